package typemap

import "strconv"

// Converter maps one descriptor to another. A false result means no mapping
// exists, which is not an error.
type Converter[From, To any] interface {
	TryConvert(from From) (To, bool)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc[From, To any] func(From) (To, bool)

// TryConvert calls f.
func (f ConverterFunc[From, To]) TryConvert(from From) (To, bool) {
	return f(from)
}

type (
	// HostConverter maps host types to SQL types.
	HostConverter = Converter[HostTypeDescriptor, SQLTypeDescriptor]
	// SQLConverter maps parsed SQL types to host types.
	SQLConverter = Converter[SQLTypeDescriptor, HostTypeDescriptor]
	// HostFunc is a function HostConverter.
	HostFunc = ConverterFunc[HostTypeDescriptor, SQLTypeDescriptor]
	// SQLFunc is a function SQLConverter.
	SQLFunc = ConverterFunc[SQLTypeDescriptor, HostTypeDescriptor]
)

// SQLType returns a converter that always yields name.
func SQLType(name string) HostConverter {
	return HostFunc(func(HostTypeDescriptor) (SQLTypeDescriptor, bool) {
		return SQLTypeDescriptor{SQLTypeName: name}, true
	})
}

// DecimalSQLType renders name(p,s), falling back to the given defaults.
func DecimalSQLType(name string, defPrecision, defScale int) HostConverter {
	return HostFunc(func(d HostTypeDescriptor) (SQLTypeDescriptor, bool) {
		p, s := defPrecision, defScale
		if d.Precision != nil {
			p = *d.Precision
			s = 0
		}
		if d.Scale != nil {
			s = *d.Scale
		}
		return SQLTypeDescriptor{
			SQLTypeName: name + "(" + strconv.Itoa(p) + "," + strconv.Itoa(s) + ")",
			Precision:   IntPtr(p),
			Scale:       IntPtr(s),
		}, true
	})
}

// ToHost returns a converter that yields the named primitive, carrying the
// parsed sizing onto the host descriptor.
func ToHost(name string) SQLConverter {
	return SQLFunc(func(d SQLTypeDescriptor) (HostTypeDescriptor, bool) {
		return HostTypeDescriptor{
			Type:      PrimitiveOf(name),
			Length:    d.Length,
			Precision: d.Precision,
			Scale:     d.Scale,
		}, true
	})
}

// ToDecimalHost maps numeric(p,s) style types, treating a single argument as precision.
func ToDecimalHost() SQLConverter {
	return SQLFunc(func(d SQLTypeDescriptor) (HostTypeDescriptor, bool) {
		h := HostTypeDescriptor{Type: PrimitiveOf(Decimal), Precision: d.Precision, Scale: d.Scale}
		if h.Precision == nil && d.Length != nil {
			h.Precision = d.Length
			h.Scale = IntPtr(0)
		}
		return h, true
	})
}

// ToTextHost maps character types, recording unicode and fixed-length flags.
func ToTextHost(unicode, fixed bool) SQLConverter {
	return SQLFunc(func(d SQLTypeDescriptor) (HostTypeDescriptor, bool) {
		h := HostTypeDescriptor{
			Type:          PrimitiveOf(String),
			Length:        d.Length,
			IsUnicode:     BoolPtr(unicode),
			IsFixedLength: BoolPtr(fixed),
		}
		if fixed && d.Length != nil && *d.Length == 1 {
			h.Type = PrimitiveOf(Char)
		}
		return h, true
	})
}

// ToGUIDWhenLength maps fixed character columns of exactly n characters to guid.
func ToGUIDWhenLength(n int) SQLConverter {
	return SQLFunc(func(d SQLTypeDescriptor) (HostTypeDescriptor, bool) {
		if d.Length == nil || *d.Length != n {
			return HostTypeDescriptor{}, false
		}
		return HostTypeDescriptor{Type: PrimitiveOf(GUID), Length: d.Length}, true
	})
}
