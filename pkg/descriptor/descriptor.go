package descriptor

import "fmt"

// Kind discriminates the variants of a Type.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindNullable
	KindArray
	KindMap
	KindEnum
	KindRecord
	KindDelegate
	KindUnsupported
)

// Primitive names the scalar kinds the compiler knows how to map.
type Primitive string

const (
	Int32          Primitive = "int32"
	Int64          Primitive = "int64"
	UInt32         Primitive = "uint32"
	UInt64         Primitive = "uint64"
	Float32        Primitive = "float32"
	Float64        Primitive = "float64"
	Decimal        Primitive = "decimal"
	Bool           Primitive = "bool"
	String         Primitive = "string"
	Bytes          Primitive = "bytes"
	DateTime       Primitive = "datetime"
	DateTimeOffset Primitive = "datetime-offset"
	Date           Primitive = "date"
	UUID           Primitive = "uuid"
)

// Type is the language-agnostic description of a field's type. Exactly the
// members for its Kind are populated; everything else stays zero.
type Type struct {
	Kind Kind

	// KindPrimitive
	Primitive Primitive

	// KindNullable
	Inner *Type

	// KindArray
	Elem *Type

	// KindMap; keys are validated to be string-typed before compilation
	Key   *Type
	Value *Type

	// KindEnum, KindRecord, KindDelegate, KindUnsupported
	Name      string
	Namespace string

	// KindEnum
	Symbols []string

	// KindRecord
	Fields []Field

	// KindUnsupported
	Reason string
}

// Field is one declared property of a record. Declaration order determines
// both the schema field order and the accessor position; Ignored fields are
// excluded from both as if absent.
type Field struct {
	Name    string
	Type    *Type
	Ignored bool
}

func PrimitiveOf(p Primitive) *Type { return &Type{Kind: KindPrimitive, Primitive: p} }

func NullableOf(inner *Type) *Type { return &Type{Kind: KindNullable, Inner: inner} }

func ArrayOf(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

func MapOf(key, value *Type) *Type { return &Type{Kind: KindMap, Key: key, Value: value} }

func EnumOf(name, namespace string, symbols []string) *Type {
	return &Type{Kind: KindEnum, Name: name, Namespace: namespace, Symbols: symbols}
}

func RecordOf(name, namespace string, fields []Field) *Type {
	return &Type{Kind: KindRecord, Name: name, Namespace: namespace, Fields: fields}
}

func DelegateOf(name, namespace string) *Type {
	return &Type{Kind: KindDelegate, Name: name, Namespace: namespace}
}

func UnsupportedOf(name, namespace, reason string) *Type {
	return &Type{Kind: KindUnsupported, Name: name, Namespace: namespace, Reason: reason}
}

// AsNullable folds the two nullability signals (explicit wrapper vs.
// reference-type annotation) into one canonical Nullable wrapper. Wrapping an
// already-nullable type is a no-op so both signals resolve identically.
func (t *Type) AsNullable() *Type {
	if t.Kind == KindNullable {
		return t
	}
	return NullableOf(t)
}

// Unwrap strips a Nullable wrapper, reporting whether one was present.
func (t *Type) Unwrap() (*Type, bool) {
	if t.Kind == KindNullable {
		return t.Inner, true
	}
	return t, false
}

// FullName is the namespace-qualified name of a named type (record, enum,
// delegate). Types without a namespace use the bare name.
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// String renders a compact human-readable form, used in diagnostics.
func (t *Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return string(t.Primitive)
	case KindNullable:
		return t.Inner.String() + "?"
	case KindArray:
		return "array<" + t.Elem.String() + ">"
	case KindMap:
		return "map<" + t.Key.String() + "," + t.Value.String() + ">"
	case KindEnum, KindRecord, KindDelegate, KindUnsupported:
		return t.FullName()
	default:
		return fmt.Sprintf("invalid(kind=%d)", int(t.Kind))
	}
}

// ActiveFields returns the record's fields with Ignored entries removed,
// preserving declaration order. It is the single source of truth for the
// field list both the schema compiler and the accessor generator consume.
func (t *Type) ActiveFields() []Field {
	out := make([]Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Ignored {
			continue
		}
		out = append(out, f)
	}
	return out
}
