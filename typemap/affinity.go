package typemap

// Affinity is the broad category a host type belongs to.
type Affinity int

const (
	AffinityUnknown Affinity = iota
	AffinityBoolean
	AffinityNumeric
	AffinityText
	AffinityGUID
	AffinityDateTime
	AffinityBinary
	AffinityJSON
	AffinityXML
	AffinityObject
	AffinityGeometry
)

func (a Affinity) String() string {
	switch a {
	case AffinityBoolean:
		return "boolean"
	case AffinityNumeric:
		return "numeric"
	case AffinityText:
		return "text"
	case AffinityGUID:
		return "guid"
	case AffinityDateTime:
		return "datetime"
	case AffinityBinary:
		return "binary"
	case AffinityJSON:
		return "json"
	case AffinityXML:
		return "xml"
	case AffinityObject:
		return "object"
	case AffinityGeometry:
		return "geometry"
	}
	return "unknown"
}

// AffinityOf classifies a host type.
func AffinityOf(h HostType) Affinity {
	switch h.Kind {
	case Enum:
		return AffinityText
	case Array, Collection, Object:
		return AffinityJSON
	}
	switch h.Name {
	case Bool:
		return AffinityBoolean
	case Uint8, Int8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64, Decimal:
		return AffinityNumeric
	case Char, String:
		return AffinityText
	case GUID:
		return AffinityGUID
	case DateTime, DateTimeOffset, TimeSpan, DateOnly, TimeOnly:
		return AffinityDateTime
	case Bytes:
		return AffinityBinary
	case JSON:
		return AffinityJSON
	case XML:
		return AffinityXML
	case ObjectValue:
		return AffinityObject
	case Geometry:
		return AffinityGeometry
	}
	return AffinityUnknown
}

// Compatible reports whether a host type read back from the database is an
// acceptable stand-in for the original. Structured and enum values stored as
// text are compatible with text; guids stored as fixed text are compatible
// with text too, and untyped objects stored as JSON read back as JSON.
func Compatible(original, roundTripped HostType) bool {
	a, b := AffinityOf(original), AffinityOf(roundTripped)
	if a == b {
		return true
	}
	if b == AffinityText {
		switch a {
		case AffinityJSON, AffinityXML, AffinityObject, AffinityGUID:
			return true
		}
	}
	if a == AffinityBoolean && b == AffinityNumeric {
		return true
	}
	if a == AffinityObject && b == AffinityJSON {
		return true
	}
	return false
}
