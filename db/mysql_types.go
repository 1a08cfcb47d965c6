package db

import (
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// MySQLTypeMap returns the MySQL and MariaDB type map.
func MySQLTypeMap() *typemap.TypeMap {
	tm := typemap.New(provider.MySQL)

	registerHost(tm, "tinyint(1)", typemap.Bool)
	registerHost(tm, "tinyint unsigned", typemap.Uint8)
	registerHost(tm, "tinyint", typemap.Int8)
	registerHost(tm, "smallint", typemap.Int16)
	registerHost(tm, "smallint unsigned", typemap.Uint16)
	registerHost(tm, "int", typemap.Int32)
	registerHost(tm, "int unsigned", typemap.Uint32)
	registerHost(tm, "bigint", typemap.Int64)
	registerHost(tm, "bigint unsigned", typemap.Uint64)
	registerHost(tm, "float", typemap.Float32)
	registerHost(tm, "double", typemap.Float64)
	tm.RegisterHost(typemap.DecimalSQLType("decimal", 16, 4), typemap.Decimal)
	tm.RegisterHost(charConverter("char"), typemap.Char)
	tm.RegisterHost(textSpec{
		varying:       "varchar",
		fixed:         "char",
		unbounded:     "longtext",
		defaultLength: 255,
		maxLength:     16383,
	}.converter(), typemap.String)
	registerHost(tm, "char(36)", typemap.GUID)
	registerHost(tm, "datetime(6)", typemap.DateTime)
	registerHost(tm, "timestamp(6)", typemap.DateTimeOffset)
	registerHost(tm, "time(6)", typemap.TimeSpan, typemap.TimeOnly)
	registerHost(tm, "date", typemap.DateOnly)
	tm.RegisterHost(binarySpec{
		varying:   "varbinary",
		fixed:     "binary",
		unbounded: "longblob",
		maxLength: 65535,
	}.converter(), typemap.Bytes)
	registerHost(tm, "json", typemap.JSON, typemap.ObjectValue)
	registerHost(tm, "longtext", typemap.XML)
	registerHost(tm, "geometry", typemap.Geometry)
	tm.RegisterHost(enumConverter(tm, 128), typemap.EnumPlaceholder)

	registerSQL(tm, typemap.Int8, "tinyint")
	registerSQL(tm, typemap.Uint8, "tinyint unsigned")
	registerSQL(tm, typemap.Int16, "smallint", "year")
	registerSQL(tm, typemap.Uint16, "smallint unsigned")
	registerSQL(tm, typemap.Int32, "int", "integer", "mediumint", "mediumint unsigned")
	registerSQL(tm, typemap.Uint32, "int unsigned", "integer unsigned")
	registerSQL(tm, typemap.Int64, "bigint")
	registerSQL(tm, typemap.Uint64, "bigint unsigned", "bit")
	registerSQL(tm, typemap.Float32, "float")
	registerSQL(tm, typemap.Float64, "double", "double precision", "real")
	tm.RegisterSQL(typemap.ToDecimalHost(), "decimal", "numeric", "dec", "fixed")
	tm.RegisterSQL(typemap.ToTextHost(true, false), "varchar", "text", "tinytext", "mediumtext", "longtext", "set", "enum")
	tm.RegisterSQL(typemap.ToTextHost(true, true), "char")
	tm.RegisterSQL(typemap.ToGUIDWhenLength(36), "char")
	registerSQL(tm, typemap.DateTime, "datetime")
	registerSQL(tm, typemap.DateTimeOffset, "timestamp")
	registerSQL(tm, typemap.TimeOnly, "time")
	registerSQL(tm, typemap.DateOnly, "date")
	registerSQL(tm, typemap.Bytes, "varbinary", "binary", "blob", "tinyblob", "mediumblob", "longblob")
	registerSQL(tm, typemap.JSON, "json")
	registerSQL(tm, typemap.Geometry, "geometry", "point", "linestring", "polygon", "multipoint", "multilinestring", "multipolygon", "geometrycollection")
	tm.RegisterSQL(mysqlBoolean(), "tinyint", "bool", "boolean")
	return tm
}

// mysqlBoolean maps tinyint(1), the MySQL spelling of BOOLEAN, back to bool.
func mysqlBoolean() typemap.SQLConverter {
	return typemap.SQLFunc(func(d typemap.SQLTypeDescriptor) (typemap.HostTypeDescriptor, bool) {
		if d.SQLTypeName == "tinyint" && (d.Length == nil || *d.Length != 1) {
			return typemap.HostTypeDescriptor{}, false
		}
		return typemap.HostTypeDescriptor{Type: typemap.PrimitiveOf(typemap.Bool)}, true
	})
}
