package schemagen

import (
	stdjson "encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/hamba/avro/v2"

	"github.com/recordwire/avroforge/pkg/descriptor"
)

func field(name string, t *descriptor.Type) descriptor.Field {
	return descriptor.Field{Name: name, Type: t}
}

func compileOne(t *testing.T, typ *descriptor.Type) Node {
	t.Helper()
	rec, err := Compile("Holder", "gen.test", []descriptor.Field{field("F", typ)})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(rec.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(rec.Fields))
	}
	return rec.Fields[0].Type
}

func TestPrimitiveMappingTable(t *testing.T) {
	tests := []struct {
		kind descriptor.Primitive
		want Node
	}{
		{descriptor.Int32, "int"},
		{descriptor.UInt32, "int"},
		{descriptor.Int64, "long"},
		{descriptor.UInt64, "bytes"},
		{descriptor.Float32, "float"},
		{descriptor.Float64, "double"},
		{descriptor.Decimal, "double"},
		{descriptor.Bool, "boolean"},
		{descriptor.String, "string"},
		{descriptor.Bytes, "bytes"},
		{descriptor.DateTime, &Logical{Type: "long", LogicalType: "timestamp-millis"}},
		{descriptor.DateTimeOffset, &Logical{Type: "long", LogicalType: "timestamp-millis"}},
		{descriptor.Date, &Logical{Type: "long", LogicalType: "timestamp-millis"}},
		{descriptor.UUID, &Logical{Type: "string", LogicalType: "uuid"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := compileOne(t, descriptor.PrimitiveOf(tt.kind))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("schema(%s) = %#v, want %#v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNullableUnionNullFirst(t *testing.T) {
	got := compileOne(t, descriptor.NullableOf(descriptor.PrimitiveOf(descriptor.Int64)))
	want := []Node{"null", "long"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("nullable schema = %#v, want %#v", got, want)
	}
}

func TestNullabilitySignalsAreIdentical(t *testing.T) {
	// Explicit wrapper vs. annotation folded through AsNullable must produce
	// the same schema node.
	wrapped := compileOne(t, descriptor.NullableOf(descriptor.PrimitiveOf(descriptor.String)))
	annotated := compileOne(t, descriptor.PrimitiveOf(descriptor.String).AsNullable())
	if !reflect.DeepEqual(wrapped, annotated) {
		t.Errorf("wrapper %#v != annotation %#v", wrapped, annotated)
	}
}

func TestArrayAndMapNodes(t *testing.T) {
	arr := compileOne(t, descriptor.ArrayOf(descriptor.PrimitiveOf(descriptor.String)))
	if !reflect.DeepEqual(arr, &Array{Type: "array", Items: "string"}) {
		t.Errorf("array schema = %#v", arr)
	}

	m := compileOne(t, descriptor.MapOf(descriptor.PrimitiveOf(descriptor.String), descriptor.PrimitiveOf(descriptor.Int32)))
	if !reflect.DeepEqual(m, &Map{Type: "map", Values: "int"}) {
		t.Errorf("map schema = %#v", m)
	}
}

func TestNamedTypeDefinedOnceThenReferenced(t *testing.T) {
	address := descriptor.RecordOf("Address", "com.example", []descriptor.Field{
		field("Street", descriptor.PrimitiveOf(descriptor.String)),
	})

	rec, err := Compile("User", "com.example", []descriptor.Field{
		field("Home", address),
		field("Work", address),
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	first, ok := rec.Fields[0].Type.(*Record)
	if !ok {
		t.Fatalf("first occurrence should be a full definition, got %#v", rec.Fields[0].Type)
	}
	if first.Name != "Address" || len(first.Fields) != 1 {
		t.Errorf("unexpected full definition: %#v", first)
	}

	second, ok := rec.Fields[1].Type.(string)
	if !ok || second != "com.example.Address" {
		t.Errorf("second occurrence should be the name reference, got %#v", rec.Fields[1].Type)
	}
}

func TestEnumDefinedOnceThenReferenced(t *testing.T) {
	color := descriptor.EnumOf("Color", "paints", []string{"RED", "GREEN", "BLUE"})

	rec, err := Compile("Palette", "paints", []descriptor.Field{
		field("Primary", color),
		field("Secondary", color),
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	first, ok := rec.Fields[0].Type.(*Enum)
	if !ok {
		t.Fatalf("first occurrence should be a full enum, got %#v", rec.Fields[0].Type)
	}
	if !reflect.DeepEqual(first.Symbols, []string{"RED", "GREEN", "BLUE"}) {
		t.Errorf("symbols = %v", first.Symbols)
	}

	if ref, ok := rec.Fields[1].Type.(string); !ok || ref != "paints.Color" {
		t.Errorf("second occurrence should be the name reference, got %#v", rec.Fields[1].Type)
	}
}

func TestSelfReferentialRecordUsesReference(t *testing.T) {
	node := descriptor.RecordOf("Node", "tree", nil)
	node.Fields = []descriptor.Field{
		field("Value", descriptor.PrimitiveOf(descriptor.Int64)),
		field("Next", descriptor.NullableOf(node)),
	}

	rec, err := Compile("Node", "tree", node.Fields)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	next, ok := rec.Fields[1].Type.([]Node)
	if !ok {
		t.Fatalf("Next should be a union, got %#v", rec.Fields[1].Type)
	}
	if !reflect.DeepEqual(next, []Node{"null", "tree.Node"}) {
		t.Errorf("self reference = %#v, want [null tree.Node]", next)
	}

	// The rendered document must still be valid Avro.
	if _, err := Render(rec); err != nil {
		t.Errorf("Render failed: %v", err)
	}
}

func TestIgnoredFieldsExcluded(t *testing.T) {
	rec, err := Compile("Holder", "", []descriptor.Field{
		field("Kept", descriptor.PrimitiveOf(descriptor.Int32)),
		{Name: "Dropped", Type: descriptor.PrimitiveOf(descriptor.String), Ignored: true},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(rec.Fields) != 1 || rec.Fields[0].Name != "Kept" {
		t.Errorf("ignored field leaked into schema: %#v", rec.Fields)
	}
}

func TestUnrecognizedTypeIsFatal(t *testing.T) {
	_, err := Compile("Holder", "", []descriptor.Field{
		field("Bad", descriptor.DelegateOf("Handler", "ns")),
	})
	if err == nil {
		t.Fatal("expected error for delegate type reaching the compiler")
	}
	if !strings.Contains(err.Error(), "is not supported") {
		t.Errorf("error = %v, want 'is not supported'", err)
	}
}

func TestRenderScenario(t *testing.T) {
	rec, err := Compile("Person", "demo", []descriptor.Field{
		field("Age", descriptor.PrimitiveOf(descriptor.Int32)),
		field("Name", descriptor.PrimitiveOf(descriptor.String)),
		field("Hobbies", descriptor.ArrayOf(descriptor.PrimitiveOf(descriptor.String))),
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	rendered, err := Render(rec)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var doc struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
		Fields    []struct {
			Name string          `json:"name"`
			Type stdjson.RawMessage `json:"type"`
		} `json:"fields"`
	}
	if err := stdjson.Unmarshal([]byte(rendered), &doc); err != nil {
		t.Fatalf("rendered schema is not JSON: %v", err)
	}

	if doc.Type != "record" || doc.Name != "Person" || doc.Namespace != "demo" {
		t.Errorf("record header = %+v", doc)
	}
	wantTypes := []struct{ name, raw string }{
		{"Age", `"int"`},
		{"Name", `"string"`},
		{"Hobbies", `{"type":"array","items":"string"}`},
	}
	if len(doc.Fields) != len(wantTypes) {
		t.Fatalf("expected %d fields, got %d", len(wantTypes), len(doc.Fields))
	}
	for i, want := range wantTypes {
		if doc.Fields[i].Name != want.name {
			t.Errorf("field %d name = %s, want %s", i, doc.Fields[i].Name, want.name)
		}
		var gotNorm, wantNorm any
		if err := stdjson.Unmarshal(doc.Fields[i].Type, &gotNorm); err != nil {
			t.Fatalf("field %d type: %v", i, err)
		}
		if err := stdjson.Unmarshal([]byte(want.raw), &wantNorm); err != nil {
			t.Fatalf("want %d type: %v", i, err)
		}
		if !reflect.DeepEqual(gotNorm, wantNorm) {
			t.Errorf("field %d type = %s, want %s", i, doc.Fields[i].Type, want.raw)
		}
	}

	// The document must parse as Avro with the field order intact.
	parsed, err := avro.Parse(rendered)
	if err != nil {
		t.Fatalf("avro.Parse failed: %v", err)
	}
	rs, ok := parsed.(*avro.RecordSchema)
	if !ok {
		t.Fatalf("expected RecordSchema, got %T", parsed)
	}
	for i, want := range []string{"Age", "Name", "Hobbies"} {
		if rs.Fields()[i].Name() != want {
			t.Errorf("avro field %d = %s, want %s", i, rs.Fields()[i].Name(), want)
		}
	}
}

func TestEmptyNamespaceIsRendered(t *testing.T) {
	rec, err := Compile("Point", "", []descriptor.Field{
		field("X", descriptor.PrimitiveOf(descriptor.Float64)),
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	rendered, err := Render(rec)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(rendered, `"namespace": ""`) {
		t.Errorf("empty namespace not rendered:\n%s", rendered)
	}
}

func TestFreshRegistryPerCompilation(t *testing.T) {
	address := descriptor.RecordOf("Address", "com.example", []descriptor.Field{
		field("Street", descriptor.PrimitiveOf(descriptor.String)),
	})
	fields := []descriptor.Field{field("Home", address)}

	// Two back-to-back compilations must both emit the full definition; a
	// leaked registry would degrade the second to a bare reference.
	for run := 0; run < 2; run++ {
		rec, err := Compile("User", "com.example", fields)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if _, ok := rec.Fields[0].Type.(*Record); !ok {
			t.Errorf("run %d: expected full definition, got %#v", run, rec.Fields[0].Type)
		}
	}
}
