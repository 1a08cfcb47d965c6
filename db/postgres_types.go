package db

import (
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// PostgresTypeMap returns the PostgreSQL type map.
func PostgresTypeMap() *typemap.TypeMap {
	tm := typemap.New(provider.PostgreSQL)

	registerHost(tm, "boolean", typemap.Bool)
	registerHost(tm, "smallint", typemap.Uint8, typemap.Int8, typemap.Int16)
	registerHost(tm, "integer", typemap.Uint16, typemap.Int32)
	registerHost(tm, "bigint", typemap.Uint32, typemap.Int64)
	tm.RegisterHost(typemap.DecimalSQLType("numeric", 20, 0), typemap.Uint64)
	registerHost(tm, "real", typemap.Float32)
	registerHost(tm, "double precision", typemap.Float64)
	tm.RegisterHost(typemap.DecimalSQLType("numeric", 16, 4), typemap.Decimal)
	tm.RegisterHost(charConverter("char"), typemap.Char)
	tm.RegisterHost(textSpec{
		varying:   "varchar",
		fixed:     "char",
		unbounded: "text",
		maxLength: 10485760,
	}.converter(), typemap.String)
	registerHost(tm, "uuid", typemap.GUID)
	registerHost(tm, "timestamp", typemap.DateTime)
	registerHost(tm, "timestamptz", typemap.DateTimeOffset)
	registerHost(tm, "interval", typemap.TimeSpan)
	registerHost(tm, "date", typemap.DateOnly)
	registerHost(tm, "time", typemap.TimeOnly)
	registerHost(tm, "bytea", typemap.Bytes)
	registerHost(tm, "jsonb", typemap.JSON, typemap.ObjectValue)
	registerHost(tm, "xml", typemap.XML)
	registerHost(tm, "geometry", typemap.Geometry)
	tm.RegisterHost(enumConverter(tm, 128), typemap.EnumPlaceholder)
	tm.RegisterHost(postgresArray(tm), typemap.ArrayPlaceholder, typemap.CollectionPlaceholder)

	registerSQL(tm, typemap.Bool, "boolean", "bool")
	registerSQL(tm, typemap.Int16, "smallint", "int2", "smallserial", "serial2")
	registerSQL(tm, typemap.Int32, "integer", "int", "int4", "serial", "serial4")
	registerSQL(tm, typemap.Int64, "bigint", "int8", "bigserial", "serial8")
	registerSQL(tm, typemap.Float32, "real", "float4")
	registerSQL(tm, typemap.Float64, "double precision", "float8")
	tm.RegisterSQL(typemap.ToDecimalHost(), "numeric", "decimal", "money")
	tm.RegisterSQL(typemap.ToTextHost(true, false), "character varying", "varchar", "text", "citext", "name")
	tm.RegisterSQL(typemap.ToTextHost(true, true), "character", "char", "bpchar")
	registerSQL(tm, typemap.GUID, "uuid")
	registerSQL(tm, typemap.DateTime, "timestamp", "timestamp without time zone")
	registerSQL(tm, typemap.DateTimeOffset, "timestamptz", "timestamp with time zone")
	registerSQL(tm, typemap.TimeSpan, "interval")
	registerSQL(tm, typemap.DateOnly, "date")
	registerSQL(tm, typemap.TimeOnly, "time", "time without time zone", "timetz", "time with time zone")
	registerSQL(tm, typemap.Bytes, "bytea")
	registerSQL(tm, typemap.JSON, "json", "jsonb")
	registerSQL(tm, typemap.XML, "xml")
	registerSQL(tm, typemap.Geometry, "geometry", "geography")
	return tm
}

// postgresArray maps sequences of primitives to native array types.
func postgresArray(tm *typemap.TypeMap) typemap.HostConverter {
	return typemap.HostFunc(func(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
		elem := d.Type.Elem
		if elem == nil || d.Type.Key != nil || elem.Kind != typemap.Primitive {
			return typemap.SQLTypeDescriptor{}, false
		}
		out, ok := tm.TryGetSQLType(typemap.HostTypeDescriptor{Type: *elem, Length: d.Length})
		if !ok {
			return typemap.SQLTypeDescriptor{}, false
		}
		return typemap.SQLTypeDescriptor{SQLTypeName: out.SQLTypeName + "[]"}, true
	})
}
