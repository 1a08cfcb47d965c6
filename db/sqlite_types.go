package db

import (
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// SQLiteTypeMap returns the SQLite type map. SQLite stores any declared type
// name, so the map writes descriptive names that read back losslessly.
func SQLiteTypeMap() *typemap.TypeMap {
	tm := typemap.New(provider.SQLite)

	registerHost(tm, "boolean", typemap.Bool)
	registerHost(tm, "tinyint", typemap.Uint8, typemap.Int8)
	registerHost(tm, "smallint", typemap.Int16)
	registerHost(tm, "integer", typemap.Uint16, typemap.Int32)
	registerHost(tm, "bigint", typemap.Uint32, typemap.Int64)
	tm.RegisterHost(typemap.DecimalSQLType("numeric", 20, 0), typemap.Uint64)
	registerHost(tm, "real", typemap.Float32)
	registerHost(tm, "double", typemap.Float64)
	tm.RegisterHost(typemap.DecimalSQLType("numeric", 16, 4), typemap.Decimal)
	tm.RegisterHost(charConverter("char"), typemap.Char)
	tm.RegisterHost(textSpec{
		varying:   "varchar",
		fixed:     "char",
		unbounded: "text",
		maxLength: 1000000000,
	}.converter(), typemap.String)
	registerHost(tm, "char(36)", typemap.GUID)
	registerHost(tm, "datetime", typemap.DateTime)
	registerHost(tm, "datetimeoffset", typemap.DateTimeOffset)
	registerHost(tm, "time", typemap.TimeSpan, typemap.TimeOnly)
	registerHost(tm, "date", typemap.DateOnly)
	registerHost(tm, "blob", typemap.Bytes)
	registerHost(tm, "text", typemap.JSON, typemap.XML, typemap.ObjectValue)
	tm.RegisterHost(enumConverter(tm, 128), typemap.EnumPlaceholder)

	registerSQL(tm, typemap.Bool, "boolean", "bool", "bit")
	registerSQL(tm, typemap.Uint8, "tinyint")
	registerSQL(tm, typemap.Int16, "smallint", "int2")
	registerSQL(tm, typemap.Int32, "integer", "int", "mediumint")
	registerSQL(tm, typemap.Int64, "bigint", "int8")
	registerSQL(tm, typemap.Float32, "real", "float")
	registerSQL(tm, typemap.Float64, "double", "double precision")
	tm.RegisterSQL(typemap.ToDecimalHost(), "numeric", "decimal")
	tm.RegisterSQL(typemap.ToTextHost(true, false), "varchar", "text", "clob", "nvarchar", "varying character", "native character")
	tm.RegisterSQL(typemap.ToTextHost(true, true), "char", "nchar", "character")
	tm.RegisterSQL(typemap.ToGUIDWhenLength(36), "char")
	registerSQL(tm, typemap.GUID, "uuid", "uniqueidentifier")
	registerSQL(tm, typemap.DateTime, "datetime", "timestamp")
	registerSQL(tm, typemap.DateTimeOffset, "datetimeoffset")
	registerSQL(tm, typemap.TimeOnly, "time")
	registerSQL(tm, typemap.DateOnly, "date")
	registerSQL(tm, typemap.Bytes, "blob", "binary", "varbinary")
	registerSQL(tm, typemap.JSON, "json")
	return tm
}
