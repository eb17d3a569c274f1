// Package definition loads record definitions from YAML files and resolves
// them into the descriptor model consumed by the compiler.
package definition

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/recordwire/avroforge/pkg/compile"
	"github.com/recordwire/avroforge/pkg/descriptor"
)

var primitives = map[string]descriptor.Primitive{
	"int32":           descriptor.Int32,
	"int64":           descriptor.Int64,
	"uint32":          descriptor.UInt32,
	"uint64":          descriptor.UInt64,
	"float32":         descriptor.Float32,
	"float64":         descriptor.Float64,
	"decimal":         descriptor.Decimal,
	"bool":            descriptor.Bool,
	"string":          descriptor.String,
	"bytes":           descriptor.Bytes,
	"datetime":        descriptor.DateTime,
	"datetime-offset": descriptor.DateTimeOffset,
	"date":            descriptor.Date,
	"uuid":            descriptor.UUID,
}

// LoadFromFile reads and validates one definition file.
func LoadFromFile(path string) (Definition, error) {
	var d Definition

	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if len(data) == 0 {
		return d, fmt.Errorf("empty definition file")
	}
	if unmarshalErr := yaml.Unmarshal(data, &d); unmarshalErr != nil {
		return d, unmarshalErr
	}

	if d.Name == "" {
		return d, fmt.Errorf("record name is required")
	}
	if len(d.Fields) == 0 {
		return d, fmt.Errorf("record %s declares no fields", d.Name)
	}
	for _, e := range d.Enums {
		if len(e.Symbols) == 0 {
			return d, fmt.Errorf("enum %s declares no symbols", e.Name)
		}
	}
	return d, nil
}

// Resolve turns a definition into a compile request, resolving every type
// expression against the declared enums and records. Mutual and self
// references are allowed: record shells are registered before their fields
// are parsed.
func (d Definition) Resolve() (compile.Request, error) {
	r := &resolver{named: make(map[string]*descriptor.Type)}

	for _, e := range d.Enums {
		ns := e.Namespace
		if ns == "" {
			ns = d.Namespace
		}
		r.register(e.Name, descriptor.EnumOf(e.Name, ns, e.Symbols))
	}

	// Shells first so records can reference each other and the top level.
	top := descriptor.RecordOf(d.Name, d.Namespace, nil)
	r.register(d.Name, top)
	shells := make([]*descriptor.Type, len(d.Records))
	for i, rd := range d.Records {
		ns := rd.Namespace
		if ns == "" {
			ns = d.Namespace
		}
		shells[i] = descriptor.RecordOf(rd.Name, ns, nil)
		r.register(rd.Name, shells[i])
	}

	for i, rd := range d.Records {
		fields, err := r.fields(rd.Fields)
		if err != nil {
			return compile.Request{}, fmt.Errorf("record %s: %w", rd.Name, err)
		}
		shells[i].Fields = fields
	}

	fields, err := r.fields(d.Fields)
	if err != nil {
		return compile.Request{}, fmt.Errorf("record %s: %w", d.Name, err)
	}
	top.Fields = fields

	return compile.Request{
		Name:       d.Name,
		Namespace:  d.Namespace,
		Fields:     fields,
		SkipSchema: d.SkipSchema,
	}, nil
}

type resolver struct {
	named map[string]*descriptor.Type
}

func (r *resolver) register(name string, t *descriptor.Type) {
	r.named[name] = t
	if full := t.FullName(); full != name {
		r.named[full] = t
	}
}

func (r *resolver) fields(defs []FieldDef) ([]descriptor.Field, error) {
	out := make([]descriptor.Field, 0, len(defs))
	for _, fd := range defs {
		if fd.Name == "" {
			return nil, fmt.Errorf("field with empty name")
		}
		t, err := r.parse(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		if fd.Optional {
			t = t.AsNullable()
		}
		out = append(out, descriptor.Field{Name: fd.Name, Type: t, Ignored: fd.Ignored})
	}
	return out, nil
}

// parse resolves one type expression.
func (r *resolver) parse(expr string) (*descriptor.Type, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if strings.HasSuffix(expr, "?") {
		inner, err := r.parse(strings.TrimSuffix(expr, "?"))
		if err != nil {
			return nil, err
		}
		return inner.AsNullable(), nil
	}

	if arg, ok := genericArg(expr, "array"); ok {
		elem, err := r.parse(arg)
		if err != nil {
			return nil, err
		}
		return descriptor.ArrayOf(elem), nil
	}

	if arg, ok := genericArg(expr, "map"); ok {
		keyExpr, valExpr, err := splitTopLevel(arg)
		if err != nil {
			return nil, fmt.Errorf("map type %q: %w", expr, err)
		}
		key, err := r.parse(keyExpr)
		if err != nil {
			return nil, err
		}
		value, err := r.parse(valExpr)
		if err != nil {
			return nil, err
		}
		// Non-string keys resolve fine here; the validator rejects them with
		// its own diagnostic so the record owner sees the real message.
		return descriptor.MapOf(key, value), nil
	}

	if p, ok := primitives[expr]; ok {
		return descriptor.PrimitiveOf(p), nil
	}
	if t, ok := r.named[expr]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", expr)
}

// genericArg extracts T from head<T>, reporting whether expr has that shape.
func genericArg(expr, head string) (string, bool) {
	if strings.HasPrefix(expr, head+"<") && strings.HasSuffix(expr, ">") {
		return expr[len(head)+1 : len(expr)-1], true
	}
	return "", false
}

// splitTopLevel splits "K,V" on the first comma outside angle brackets.
func splitTopLevel(arg string) (string, string, error) {
	depth := 0
	for i, c := range arg {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return arg[:i], arg[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("expected key and value types")
}
