package typemap

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tordrt/dmschema/provider"
)

func newTestMap() *TypeMap {
	m := New(provider.SQLite)
	m.RegisterHost(SQLType("integer"), Int32)
	m.RegisterHost(DecimalSQLType("numeric", 16, 4), Decimal)
	m.RegisterHost(SQLType("varchar(128)"), EnumPlaceholder)
	m.RegisterHost(SQLType("text"), JSON, String)
	m.RegisterSQL(ToHost(Int32), "integer")
	m.RegisterSQL(ToDecimalHost(), "numeric")
	m.RegisterSQL(ToTextHost(false, true), "char")
	m.RegisterSQL(ToGUIDWhenLength(36), "char")
	m.RegisterSQL(ToTextHost(false, false), "text")
	return m
}

func TestParseSQLType(t *testing.T) {
	tests := []struct {
		raw       string
		base      string
		length    *int
		precision *int
		scale     *int
	}{
		{"INTEGER", "integer", nil, nil, nil},
		{"varchar(255)", "varchar", IntPtr(255), nil, nil},
		{"nvarchar(max)", "nvarchar", IntPtr(MaxLength), nil, nil},
		{"numeric(10,2)", "numeric", nil, IntPtr(10), IntPtr(2)},
		{"time(5,2) without time zone", "time without time zone", nil, IntPtr(5), IntPtr(2)},
		{"character varying(20)[]", "character varying[]", IntPtr(20), nil, nil},
		{"int(11) unsigned", "int unsigned", IntPtr(11), nil, nil},
		{"enum('a','b')", "enum", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseSQLType(tt.raw)
			if got.SQLTypeName != tt.base {
				t.Errorf("Expected base %q, got %q", tt.base, got.SQLTypeName)
			}
			checkInt(t, "length", tt.length, got.Length)
			checkInt(t, "precision", tt.precision, got.Precision)
			checkInt(t, "scale", tt.scale, got.Scale)
		})
	}
}

func checkInt(t *testing.T, field string, want, got *int) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Errorf("Expected %s %v, got %v", field, want, got)
	case *want != *got:
		t.Errorf("Expected %s %d, got %d", field, *want, *got)
	}
}

func TestTryGetSQLTypeResolutionOrder(t *testing.T) {
	m := newTestMap()

	tests := []struct {
		name string
		host HostType
		want string
		ok   bool
	}{
		{"exact", PrimitiveOf(Int32), "integer", true},
		{"alias", PrimitiveOf("int"), "integer", true},
		{"enum placeholder", EnumOf("Status"), "varchar(128)", true},
		{"array falls back to json", ArrayOf(PrimitiveOf(Int32)), "text", true},
		{"collection falls back to json", ListOf(PrimitiveOf(String)), "text", true},
		{"unsupported collection", HostType{Kind: Collection, Name: "bag", Elem: &HostType{Name: String}}, "", false},
		{"object falls back to json", ObjectOf("Address"), "text", true},
		{"unmapped primitive", PrimitiveOf(Geometry), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.TryGetSQLType(Describe(tt.host))
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got.SQLTypeName != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.SQLTypeName)
			}
		})
	}
}

func TestDecimalPrecisionPreserved(t *testing.T) {
	m := newTestMap()

	explicit, ok := m.TryGetSQLType(HostTypeDescriptor{Type: PrimitiveOf(Decimal), Precision: IntPtr(10), Scale: IntPtr(2)})
	if !ok || explicit.SQLTypeName != "numeric(10,2)" {
		t.Errorf("Expected numeric(10,2), got %q (ok=%v)", explicit.SQLTypeName, ok)
	}

	defaulted, _ := m.TryGetSQLType(Describe(PrimitiveOf(Decimal)))
	if defaulted.SQLTypeName != "numeric(16,4)" {
		t.Errorf("Expected numeric(16,4), got %q", defaulted.SQLTypeName)
	}

	back, ok := m.TryGetHostType(explicit.SQLTypeName)
	if !ok {
		t.Fatal("Expected numeric(10,2) to map back")
	}
	if *back.Precision != 10 || *back.Scale != 2 {
		t.Errorf("Expected (10,2), got (%d,%d)", *back.Precision, *back.Scale)
	}
}

func TestReverseFallThrough(t *testing.T) {
	m := newTestMap()

	guid, ok := m.TryGetHostType("char(36)")
	if !ok || !guid.Type.Is(GUID) {
		t.Errorf("Expected char(36) to map to guid, got %v", guid.Type)
	}

	text, ok := m.TryGetHostType("CHAR(10)")
	if !ok || !text.Type.Is(String) {
		t.Errorf("Expected char(10) to map to string, got %v", text.Type)
	}

	arr, ok := m.TryGetHostType("integer[]")
	if !ok || arr.Type.Kind != Array || !arr.Type.Elem.Is(Int32) {
		t.Errorf("Expected integer[] to map to []int32, got %v", arr.Type)
	}

	catalog, ok := m.TryGetHostType("_integer")
	if !ok || catalog.Type.Kind != Array || !catalog.Type.Elem.Is(Int32) {
		t.Errorf("Expected _integer to map to []int32, got %v", catalog.Type)
	}

	if _, ok := m.TryGetHostType("hstore"); ok {
		t.Error("Expected hstore to be unmapped")
	}
	if _, ok := m.TryGetHostType("_hstore"); ok {
		t.Error("Expected _hstore to be unmapped")
	}
}

func TestParseHostType(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"int32", "int32", false},
		{"long", "int64", false},
		{"UUID", "guid", false},
		{"[]byte", "bytes", false},
		{"[]int32", "[]int32", false},
		{"list<string>", "list<string>", false},
		{"dictionary<string, list<int32>>", "dictionary<string,list<int32>>", false},
		{"enum:Status", "enum:Status", false},
		{"object:Address", "object:Address", false},
		{"dictionary<string>", "", true},
		{"bag<string>", "", true},
		{"enum:", "", true},
		{"widget", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHostType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHostType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.String())
			}
		})
	}
}

type status string

func (status) EnumValues() []string { return []string{"active", "disabled"} }

type address struct{ Street string }

func TestHostTypeOf(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{true, "bool"},
		{int(1), "int64"},
		{int32(1), "int32"},
		{uint8(1), "uint8"},
		{"", "string"},
		{uuid.UUID{}, "guid"},
		{decimal.Decimal{}, "decimal"},
		{time.Time{}, "datetime"},
		{time.Second, "timespan"},
		{[]byte{}, "bytes"},
		{json.RawMessage{}, "json"},
		{[]string{}, "[]string"},
		{map[string]int32{}, "dictionary<string,int32>"},
		{status(""), "enum:status"},
		{address{}, "object:address"},
		{&address{}, "object:address"},
	}

	for _, tt := range tests {
		got, ok := HostTypeOf(reflect.TypeOf(tt.value))
		if !ok {
			t.Errorf("HostTypeOf(%T) not mapped", tt.value)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("HostTypeOf(%T): expected %q, got %q", tt.value, tt.want, got.String())
		}
	}

	if _, ok := HostTypeOf(reflect.TypeOf(make(chan int))); ok {
		t.Error("Expected channels to be unmapped")
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		original, back HostType
		want           bool
	}{
		{PrimitiveOf(Int8), PrimitiveOf(Int16), true},
		{PrimitiveOf(JSON), PrimitiveOf(String), true},
		{EnumOf("Status"), PrimitiveOf(String), true},
		{ListOf(PrimitiveOf(Int32)), PrimitiveOf(JSON), true},
		{PrimitiveOf(Bool), PrimitiveOf(Uint8), true},
		{PrimitiveOf(ObjectValue), PrimitiveOf(JSON), true},
		{PrimitiveOf(DateTime), PrimitiveOf(String), false},
		{PrimitiveOf(String), PrimitiveOf(Int32), false},
	}

	for _, tt := range tests {
		if got := Compatible(tt.original, tt.back); got != tt.want {
			t.Errorf("Compatible(%s, %s): expected %v, got %v", tt.original, tt.back, tt.want, got)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(provider.SQLite); err == nil {
		t.Fatal("Expected error for missing provider")
	}

	first := New(provider.SQLite)
	second := New(provider.SQLite)
	r.Register(first)
	r.Register(second)

	got, err := r.Get(provider.SQLite)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != second {
		t.Error("Expected re-registration to replace the previous map")
	}
}
