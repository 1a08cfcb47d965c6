package db

import (
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// SQLServerTypeMap returns the SQL Server type map.
func SQLServerTypeMap() *typemap.TypeMap {
	tm := typemap.New(provider.SQLServer)

	registerHost(tm, "bit", typemap.Bool)
	registerHost(tm, "tinyint", typemap.Uint8)
	registerHost(tm, "smallint", typemap.Int8, typemap.Int16)
	registerHost(tm, "int", typemap.Uint16, typemap.Int32)
	registerHost(tm, "bigint", typemap.Uint32, typemap.Int64)
	tm.RegisterHost(typemap.DecimalSQLType("decimal", 20, 0), typemap.Uint64)
	registerHost(tm, "real", typemap.Float32)
	registerHost(tm, "float", typemap.Float64)
	tm.RegisterHost(typemap.DecimalSQLType("decimal", 16, 4), typemap.Decimal)
	tm.RegisterHost(charConverter("nchar"), typemap.Char)
	tm.RegisterHost(textSpec{
		varying:       "varchar",
		fixed:         "char",
		unbounded:     "varchar(max)",
		nvarying:      "nvarchar",
		nfixed:        "nchar",
		nunbounded:    "nvarchar(max)",
		defaultLength: 255,
		maxLength:     8000,
		nmaxLength:    4000,
	}.converter(), typemap.String)
	registerHost(tm, "uniqueidentifier", typemap.GUID)
	registerHost(tm, "datetime2", typemap.DateTime)
	registerHost(tm, "datetimeoffset", typemap.DateTimeOffset)
	registerHost(tm, "time", typemap.TimeSpan, typemap.TimeOnly)
	registerHost(tm, "date", typemap.DateOnly)
	tm.RegisterHost(binarySpec{
		varying:   "varbinary",
		fixed:     "binary",
		unbounded: "varbinary(max)",
		maxLength: 8000,
	}.converter(), typemap.Bytes)
	registerHost(tm, "nvarchar(max)", typemap.JSON)
	registerHost(tm, "xml", typemap.XML)
	registerHost(tm, "sql_variant", typemap.ObjectValue)
	registerHost(tm, "geometry", typemap.Geometry)
	tm.RegisterHost(enumConverter(tm, 128), typemap.EnumPlaceholder)

	registerSQL(tm, typemap.Bool, "bit")
	registerSQL(tm, typemap.Uint8, "tinyint")
	registerSQL(tm, typemap.Int16, "smallint")
	registerSQL(tm, typemap.Int32, "int")
	registerSQL(tm, typemap.Int64, "bigint")
	registerSQL(tm, typemap.Float32, "real")
	registerSQL(tm, typemap.Float64, "float")
	tm.RegisterSQL(typemap.ToDecimalHost(), "decimal", "numeric")
	tm.RegisterSQL(fixedDecimal(19, 4), "money")
	tm.RegisterSQL(fixedDecimal(10, 4), "smallmoney")
	tm.RegisterSQL(typemap.ToTextHost(false, false), "varchar", "text")
	tm.RegisterSQL(typemap.ToTextHost(false, true), "char")
	tm.RegisterSQL(typemap.ToTextHost(true, false), "nvarchar", "ntext")
	tm.RegisterSQL(typemap.ToTextHost(true, true), "nchar")
	registerSQL(tm, typemap.GUID, "uniqueidentifier")
	registerSQL(tm, typemap.DateTime, "datetime2", "datetime", "smalldatetime")
	registerSQL(tm, typemap.DateTimeOffset, "datetimeoffset")
	registerSQL(tm, typemap.TimeOnly, "time")
	registerSQL(tm, typemap.DateOnly, "date")
	registerSQL(tm, typemap.Bytes, "varbinary", "binary", "image", "rowversion", "timestamp")
	registerSQL(tm, typemap.XML, "xml")
	registerSQL(tm, typemap.ObjectValue, "sql_variant")
	registerSQL(tm, typemap.Geometry, "geometry", "geography")
	return tm
}

// fixedDecimal maps currency types, whose precision the catalog does not report.
func fixedDecimal(precision, scale int) typemap.SQLConverter {
	return typemap.SQLFunc(func(typemap.SQLTypeDescriptor) (typemap.HostTypeDescriptor, bool) {
		return typemap.HostTypeDescriptor{
			Type:      typemap.PrimitiveOf(typemap.Decimal),
			Precision: typemap.IntPtr(precision),
			Scale:     typemap.IntPtr(scale),
		}, true
	})
}
