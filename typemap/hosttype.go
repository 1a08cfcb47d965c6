package typemap

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the shape of a host type.
type Kind int

const (
	Primitive Kind = iota
	Enum
	Array
	Collection
	Object
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Enum:
		return "enum"
	case Array:
		return "array"
	case Collection:
		return "collection"
	case Object:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Primitive host type names.
const (
	Bool           = "bool"
	Uint8          = "uint8"
	Int8           = "int8"
	Int16          = "int16"
	Uint16         = "uint16"
	Int32          = "int32"
	Uint32         = "uint32"
	Int64          = "int64"
	Uint64         = "uint64"
	Float32        = "float32"
	Float64        = "float64"
	Decimal        = "decimal"
	Char           = "char"
	String         = "string"
	GUID           = "guid"
	DateTime       = "datetime"
	DateTimeOffset = "datetimeoffset"
	TimeSpan       = "timespan"
	DateOnly       = "dateonly"
	TimeOnly       = "timeonly"
	Bytes          = "bytes"
	JSON           = "json"
	XML            = "xml"
	ObjectValue    = "object"
	Geometry       = "geometry"
)

var primitiveNames = map[string]string{
	Bool: Bool, "boolean": Bool,
	Uint8: Uint8, "byte": Uint8,
	Int8: Int8, "sbyte": Int8,
	Int16: Int16, "short": Int16,
	Uint16: Uint16, "ushort": Uint16,
	Int32: Int32, "int": Int32,
	Uint32: Uint32, "uint": Uint32,
	Int64: Int64, "long": Int64,
	Uint64: Uint64, "ulong": Uint64,
	Float32: Float32, "float": Float32, "single": Float32,
	Float64: Float64, "double": Float64,
	Decimal: Decimal, "numeric": Decimal,
	Char: Char, "rune": Char,
	String: String, "text": String,
	GUID: GUID, "uuid": GUID,
	DateTime: DateTime, "timestamp": DateTime,
	DateTimeOffset: DateTimeOffset, "timestamptz": DateTimeOffset,
	TimeSpan: TimeSpan, "duration": TimeSpan, "interval": TimeSpan,
	DateOnly: DateOnly, "date": DateOnly,
	TimeOnly: TimeOnly, "time": TimeOnly,
	Bytes: Bytes, "binary": Bytes, "[]byte": Bytes, "[]uint8": Bytes,
	JSON: JSON, "jsonb": JSON,
	XML: XML,
	ObjectValue: ObjectValue, "any": ObjectValue, "variant": ObjectValue,
	Geometry: Geometry,
}

// Supported generic collection definitions.
const (
	List               = "list"
	Set                = "set"
	SortedSet          = "sorted_set"
	Dictionary         = "dictionary"
	SortedDictionary   = "sorted_dictionary"
	Enumerable         = "enumerable"
	CollectionOf       = "collection"
	ReadOnlyList       = "readonly_list"
	ReadOnlyCollection = "readonly_collection"
	ReadOnlyDictionary = "readonly_dictionary"
	Queue              = "queue"
	Stack              = "stack"
	LinkedList         = "linked_list"
)

var collectionArity = map[string]int{
	List:               1,
	Set:                1,
	SortedSet:          1,
	Dictionary:         2,
	SortedDictionary:   2,
	Enumerable:         1,
	CollectionOf:       1,
	ReadOnlyList:       1,
	ReadOnlyCollection: 1,
	ReadOnlyDictionary: 2,
	Queue:              1,
	Stack:              1,
	LinkedList:         1,
}

// IsSupportedCollection reports whether name is in the collection catalog.
func IsSupportedCollection(name string) bool {
	_, ok := collectionArity[name]
	return ok
}

// HostType describes a caller-side type independent of any SQL dialect.
type HostType struct {
	Kind Kind
	// Name is the primitive name, the collection definition, or the enum/object type name.
	Name string
	Elem *HostType
	Key  *HostType
}

// PrimitiveOf returns a primitive host type, canonicalizing aliases.
func PrimitiveOf(name string) HostType {
	if canonical, ok := primitiveNames[strings.ToLower(name)]; ok {
		name = canonical
	}
	return HostType{Kind: Primitive, Name: name}
}

// EnumOf returns an enum host type.
func EnumOf(name string) HostType {
	return HostType{Kind: Enum, Name: name}
}

// ArrayOf returns an array host type.
func ArrayOf(elem HostType) HostType {
	return HostType{Kind: Array, Elem: &elem}
}

// ListOf returns a list collection of elem.
func ListOf(elem HostType) HostType {
	return HostType{Kind: Collection, Name: List, Elem: &elem}
}

// CollectionOfType returns a single-argument collection of the named definition.
func CollectionOfType(name string, elem HostType) HostType {
	return HostType{Kind: Collection, Name: name, Elem: &elem}
}

// DictionaryOf returns a dictionary collection.
func DictionaryOf(key, elem HostType) HostType {
	return HostType{Kind: Collection, Name: Dictionary, Key: &key, Elem: &elem}
}

// ObjectOf returns a structured object host type.
func ObjectOf(name string) HostType {
	return HostType{Kind: Object, Name: name}
}

// IsZero reports whether the host type is unset.
func (h HostType) IsZero() bool {
	return h.Kind == Primitive && h.Name == ""
}

// Is reports whether h is the named primitive.
func (h HostType) Is(name string) bool {
	return h.Kind == Primitive && h.Name == name
}

// Equal compares two host types structurally.
func (h HostType) Equal(o HostType) bool {
	return h.String() == o.String()
}

func (h HostType) String() string {
	switch h.Kind {
	case Enum:
		return "enum:" + h.Name
	case Object:
		return "object:" + h.Name
	case Array:
		if h.Elem == nil {
			return "[]"
		}
		return "[]" + h.Elem.String()
	case Collection:
		var args []string
		if h.Key != nil {
			args = append(args, h.Key.String())
		}
		if h.Elem != nil {
			args = append(args, h.Elem.String())
		}
		return h.Name + "<" + strings.Join(args, ",") + ">"
	}
	return h.Name
}

// MarshalText implements encoding.TextMarshaler.
func (h HostType) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HostType) UnmarshalText(b []byte) error {
	parsed, err := ParseHostType(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHostType parses the textual form produced by HostType.String.
func ParseHostType(s string) (HostType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return HostType{}, fmt.Errorf("empty host type")
	}
	lower := strings.ToLower(s)

	if canonical, ok := primitiveNames[lower]; ok {
		return HostType{Kind: Primitive, Name: canonical}, nil
	}

	switch {
	case strings.HasPrefix(lower, "enum:"):
		name := strings.TrimSpace(s[len("enum:"):])
		if name == "" {
			return HostType{}, fmt.Errorf("enum host type %q has no name", s)
		}
		return EnumOf(name), nil
	case strings.HasPrefix(lower, "object:"):
		name := strings.TrimSpace(s[len("object:"):])
		if name == "" {
			return HostType{}, fmt.Errorf("object host type %q has no name", s)
		}
		return ObjectOf(name), nil
	case strings.HasPrefix(s, "[]"):
		elem, err := ParseHostType(s[2:])
		if err != nil {
			return HostType{}, fmt.Errorf("invalid array element in %q: %w", s, err)
		}
		return ArrayOf(elem), nil
	}

	open := strings.IndexByte(s, '<')
	if open > 0 && strings.HasSuffix(s, ">") {
		name := strings.ToLower(strings.TrimSpace(s[:open]))
		arity, ok := collectionArity[name]
		if !ok {
			return HostType{}, fmt.Errorf("unsupported collection %q", name)
		}
		parts := splitTopLevel(s[open+1 : len(s)-1])
		if len(parts) != arity {
			return HostType{}, fmt.Errorf("collection %q expects %d type arguments, got %d", name, arity, len(parts))
		}
		args := make([]HostType, len(parts))
		for i, p := range parts {
			arg, err := ParseHostType(p)
			if err != nil {
				return HostType{}, fmt.Errorf("invalid type argument in %q: %w", s, err)
			}
			args[i] = arg
		}
		h := HostType{Kind: Collection, Name: name}
		if arity == 2 {
			h.Key = &args[0]
			h.Elem = &args[1]
		} else {
			h.Elem = &args[0]
		}
		return h, nil
	}

	return HostType{}, fmt.Errorf("unknown host type %q", s)
}

// splitTopLevel splits on commas not nested inside angle brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// Enumer is implemented by Go types that should map as enums.
type Enumer interface {
	EnumValues() []string
}

var (
	enumerType    = reflect.TypeOf((*Enumer)(nil)).Elem()
	uuidType      = reflect.TypeOf(uuid.UUID{})
	decimalType   = reflect.TypeOf(decimal.Decimal{})
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	rawJSONType   = reflect.TypeOf(json.RawMessage{})
	byteSliceType = reflect.TypeOf([]byte{})
)

// HostTypeOf derives the host type of a Go type.
func HostTypeOf(t reflect.Type) (HostType, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case uuidType:
		return PrimitiveOf(GUID), true
	case decimalType:
		return PrimitiveOf(Decimal), true
	case timeType:
		return PrimitiveOf(DateTime), true
	case durationType:
		return PrimitiveOf(TimeSpan), true
	case rawJSONType:
		return PrimitiveOf(JSON), true
	case byteSliceType:
		return PrimitiveOf(Bytes), true
	}

	if t.Implements(enumerType) || reflect.PointerTo(t).Implements(enumerType) {
		return EnumOf(t.Name()), true
	}

	switch t.Kind() {
	case reflect.Bool:
		return PrimitiveOf(Bool), true
	case reflect.Int8:
		return PrimitiveOf(Int8), true
	case reflect.Int16:
		return PrimitiveOf(Int16), true
	case reflect.Int32:
		return PrimitiveOf(Int32), true
	case reflect.Int, reflect.Int64:
		return PrimitiveOf(Int64), true
	case reflect.Uint8:
		return PrimitiveOf(Uint8), true
	case reflect.Uint16:
		return PrimitiveOf(Uint16), true
	case reflect.Uint32:
		return PrimitiveOf(Uint32), true
	case reflect.Uint, reflect.Uint64:
		return PrimitiveOf(Uint64), true
	case reflect.Float32:
		return PrimitiveOf(Float32), true
	case reflect.Float64:
		return PrimitiveOf(Float64), true
	case reflect.String:
		return PrimitiveOf(String), true
	case reflect.Interface:
		return PrimitiveOf(ObjectValue), true
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return PrimitiveOf(Bytes), true
		}
		elem, ok := HostTypeOf(t.Elem())
		if !ok {
			return HostType{}, false
		}
		return ArrayOf(elem), true
	case reflect.Map:
		key, ok := HostTypeOf(t.Key())
		if !ok {
			return HostType{}, false
		}
		elem, ok := HostTypeOf(t.Elem())
		if !ok {
			return HostType{}, false
		}
		return DictionaryOf(key, elem), true
	case reflect.Struct:
		return ObjectOf(t.Name()), true
	}
	return HostType{}, false
}
