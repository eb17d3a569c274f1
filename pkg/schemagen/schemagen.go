// Package schemagen compiles type descriptors into Avro schema documents.
//
// Each call to Compile owns a private named-type registry, so the same record
// type compiled from two goroutines never shares state. Within one document a
// named type (record or enum) is defined in full exactly once; every later
// occurrence is emitted as a name reference, as required by Avro.
package schemagen

import (
	"fmt"

	"github.com/hamba/avro/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/recordwire/avroforge/pkg/descriptor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Node is one Avro schema tree node: a primitive name (string), a union
// ([]Node), or one of the struct nodes below.
type Node any

// Logical pairs a physical type with an Avro logical type annotation.
type Logical struct {
	Type        string `json:"type"`
	LogicalType string `json:"logicalType"`
}

type Array struct {
	Type  string `json:"type"`
	Items Node   `json:"items"`
}

type Map struct {
	Type   string `json:"type"`
	Values Node   `json:"values"`
}

// Enum is a full named enum definition. Namespace renders even when empty.
type Enum struct {
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Symbols   []string `json:"symbols"`
}

// Record is a full named record definition. Namespace renders even when empty.
type Record struct {
	Type      string        `json:"type"`
	Name      string        `json:"name"`
	Namespace string        `json:"namespace"`
	Fields    []RecordField `json:"fields"`
}

type RecordField struct {
	Name string `json:"name"`
	Type Node   `json:"type"`
}

// Compile builds the Avro record schema for the given ordered field list.
// Field order in the output matches declaration order exactly; ignored fields
// must already have been filtered by the caller (descriptor.ActiveFields).
//
// Compile assumes validation has already passed; an unrecognized type is an
// internal-consistency failure and aborts the whole compilation.
func Compile(name, namespace string, fields []descriptor.Field) (*Record, error) {
	c := &compiler{defined: make(map[string]bool)}
	c.defined[qualify(namespace, name)] = true

	compiled, err := c.fields(fields)
	if err != nil {
		return nil, err
	}
	return &Record{Type: "record", Name: name, Namespace: namespace, Fields: compiled}, nil
}

// Render marshals a compiled schema as indented JSON and re-parses the result
// with hamba/avro, so a document that is not valid Avro can never escape.
func Render(rec *Record) (string, error) {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema %s: %w", rec.Name, err)
	}
	if _, err := avro.Parse(string(raw)); err != nil {
		return "", fmt.Errorf("generated schema for %s is not valid avro: %w", rec.Name, err)
	}
	return string(raw), nil
}

type compiler struct {
	// defined is the per-run registry of fully-qualified named types already
	// emitted in full. Avro forbids a second full definition of the same name
	// within one document.
	defined map[string]bool
}

func (c *compiler) fields(fields []descriptor.Field) ([]RecordField, error) {
	out := make([]RecordField, 0, len(fields))
	for _, f := range fields {
		if f.Ignored {
			continue
		}
		node, err := c.node(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, RecordField{Name: f.Name, Type: node})
	}
	return out, nil
}

func (c *compiler) node(t *descriptor.Type) (Node, error) {
	switch t.Kind {
	case descriptor.KindNullable:
		inner, err := c.node(t.Inner)
		if err != nil {
			return nil, err
		}
		// Null is always the first union branch.
		return []Node{"null", inner}, nil

	case descriptor.KindPrimitive:
		return primitiveNode(t.Primitive)

	case descriptor.KindArray:
		items, err := c.node(t.Elem)
		if err != nil {
			return nil, err
		}
		return &Array{Type: "array", Items: items}, nil

	case descriptor.KindMap:
		// Keys are string by Avro definition; validation rejects the rest.
		values, err := c.node(t.Value)
		if err != nil {
			return nil, err
		}
		return &Map{Type: "map", Values: values}, nil

	case descriptor.KindEnum:
		full := t.FullName()
		if c.defined[full] {
			return full, nil
		}
		c.defined[full] = true
		return &Enum{Type: "enum", Name: t.Name, Namespace: t.Namespace, Symbols: t.Symbols}, nil

	case descriptor.KindRecord:
		full := t.FullName()
		if c.defined[full] {
			return full, nil
		}
		c.defined[full] = true
		nested, err := c.fields(t.Fields)
		if err != nil {
			return nil, err
		}
		return &Record{Type: "record", Name: t.Name, Namespace: t.Namespace, Fields: nested}, nil

	default:
		return nil, fmt.Errorf("%s is not supported", t)
	}
}

// primitiveNode is the fixed source-kind to Avro-type table. Changing any
// entry changes the wire contract for every producer and consumer.
func primitiveNode(p descriptor.Primitive) (Node, error) {
	switch p {
	case descriptor.Int32, descriptor.UInt32:
		return "int", nil
	case descriptor.Int64:
		return "long", nil
	case descriptor.UInt64:
		// Encoded by the accessors as an 8-byte big-endian value.
		return "bytes", nil
	case descriptor.Float32:
		return "float", nil
	case descriptor.Float64, descriptor.Decimal:
		return "double", nil
	case descriptor.Bool:
		return "boolean", nil
	case descriptor.String:
		return "string", nil
	case descriptor.Bytes:
		return "bytes", nil
	case descriptor.DateTime, descriptor.DateTimeOffset, descriptor.Date:
		return &Logical{Type: "long", LogicalType: "timestamp-millis"}, nil
	case descriptor.UUID:
		return &Logical{Type: "string", LogicalType: "uuid"}, nil
	default:
		return nil, fmt.Errorf("%s is not supported", p)
	}
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
