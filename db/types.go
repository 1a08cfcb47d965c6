package db

import (
	"strconv"

	"github.com/tordrt/dmschema/typemap"
)

// textSpec renders character types for one dialect.
type textSpec struct {
	varying   string
	fixed     string
	unbounded string
	// National variants; empty when the dialect has no separate unicode types.
	nvarying   string
	nfixed     string
	nunbounded string
	// defaultLength applies when no length is given; zero means unbounded.
	defaultLength int
	// maxLength is the largest length the varying type accepts.
	maxLength int
	// nmaxLength caps the national types; zero means maxLength.
	nmaxLength int
}

func (s textSpec) converter() typemap.HostConverter {
	return typemap.HostFunc(func(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
		unicode := d.IsUnicode == nil || *d.IsUnicode
		fixed := d.IsFixedLength != nil && *d.IsFixedLength
		varying, fixedName, unbounded := s.varying, s.fixed, s.unbounded
		limit := s.maxLength
		if unicode && s.nvarying != "" {
			varying, fixedName, unbounded = s.nvarying, s.nfixed, s.nunbounded
			if s.nmaxLength > 0 {
				limit = s.nmaxLength
			}
		}

		length := s.defaultLength
		if d.Length != nil {
			length = *d.Length
		}
		out := typemap.SQLTypeDescriptor{IsUnicode: typemap.BoolPtr(unicode), IsFixedLength: typemap.BoolPtr(fixed)}
		switch {
		case fixed && length > 0 && length <= limit:
			out.SQLTypeName = sized(fixedName, length)
			out.Length = typemap.IntPtr(length)
		case length <= 0 || length > limit:
			out.SQLTypeName = unbounded
			out.Length = typemap.IntPtr(typemap.MaxLength)
			out.IsFixedLength = typemap.BoolPtr(false)
		default:
			out.SQLTypeName = sized(varying, length)
			out.Length = typemap.IntPtr(length)
		}
		return out, true
	})
}

// charConverter renders a single character column.
func charConverter(fixed string) typemap.HostConverter {
	return typemap.HostFunc(func(typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
		return typemap.SQLTypeDescriptor{
			SQLTypeName:   sized(fixed, 1),
			Length:        typemap.IntPtr(1),
			IsFixedLength: typemap.BoolPtr(true),
		}, true
	})
}

// binarySpec renders binary types for one dialect.
type binarySpec struct {
	varying   string
	fixed     string
	unbounded string
	maxLength int
}

func (s binarySpec) converter() typemap.HostConverter {
	return typemap.HostFunc(func(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
		fixed := d.IsFixedLength != nil && *d.IsFixedLength
		if d.Length == nil || *d.Length <= 0 || *d.Length > s.maxLength || s.varying == "" {
			return typemap.SQLTypeDescriptor{SQLTypeName: s.unbounded}, true
		}
		name := s.varying
		if fixed && s.fixed != "" {
			name = s.fixed
		}
		return typemap.SQLTypeDescriptor{SQLTypeName: sized(name, *d.Length), Length: d.Length, IsFixedLength: typemap.BoolPtr(fixed)}, true
	})
}

func sized(name string, length int) string {
	return name + "(" + strconv.Itoa(length) + ")"
}

// registerSQL maps every name to the same host primitive.
func registerSQL(tm *typemap.TypeMap, host string, names ...string) {
	tm.RegisterSQL(typemap.ToHost(host), names...)
}

// registerHost maps every host primitive to the same SQL type.
func registerHost(tm *typemap.TypeMap, sqlType string, hosts ...string) {
	tm.RegisterHost(typemap.SQLType(sqlType), hosts...)
}

// enumConverter stores enum values by name.
func enumConverter(tm *typemap.TypeMap, length int) typemap.HostConverter {
	return typemap.HostFunc(func(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
		if d.Length == nil {
			d.Length = typemap.IntPtr(length)
		}
		d.Type = typemap.PrimitiveOf(typemap.String)
		return tm.TryGetSQLType(d)
	})
}
