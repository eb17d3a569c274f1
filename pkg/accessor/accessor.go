// Package accessor generates positional read/write dispatch for a record's
// fields. Position i is field i of the declaration order (ignored fields
// removed), identical to the schema field order produced by schemagen.
//
// Read converts the internal representation into the Avro-facing value;
// Write converts an externally supplied value back into the internal field
// type. Unsigned 64-bit values cross the wire as 8-byte big-endian buffers,
// the same byte order the Confluent wire format uses for schema IDs; both
// sides of a topic must agree on this convention.
package accessor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/recordwire/avroforge/pkg/descriptor"
)

const uint64WireSize = 8

// ErrInvalidPosition reports a read or write outside the valid position
// range. This is a programming error in the caller, never a data error.
var ErrInvalidPosition = errors.New("invalid field position")

// Record is the surface an accessor needs over one record instance.
type Record interface {
	Field(pos int) any
	SetField(pos int, v any)
}

// ValueRecord is a plain positional value container implementing Record.
type ValueRecord []any

func (r ValueRecord) Field(pos int) any       { return r[pos] }
func (r ValueRecord) SetField(pos int, v any) { r[pos] = v }

type convert func(any) (any, error)

type fieldCodec struct {
	name  string
	read  convert
	write convert
}

// Accessor holds the per-position conversion tables for one record type.
type Accessor struct {
	fields []fieldCodec
}

// Generate builds the accessor for an ordered field list. Ignored fields are
// skipped so positions line up with the compiled schema. Generation assumes
// validation passed; an unsupported type here fails fast.
func Generate(fields []descriptor.Field) (*Accessor, error) {
	a := &Accessor{}
	for _, f := range fields {
		if f.Ignored {
			continue
		}
		rd, err := readConv(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		wr, err := writeConv(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		a.fields = append(a.fields, fieldCodec{name: f.Name, read: rd, write: wr})
	}
	return a, nil
}

// Len is the number of addressable positions.
func (a *Accessor) Len() int { return len(a.fields) }

// FieldName returns the declared name at a position, for diagnostics.
func (a *Accessor) FieldName(pos int) string { return a.fields[pos].name }

// Read returns the Avro-facing value of the field at pos.
func (a *Accessor) Read(rec Record, pos int) (any, error) {
	if pos < 0 || pos >= len(a.fields) {
		return nil, fmt.Errorf("%w: %d outside [0, %d)", ErrInvalidPosition, pos, len(a.fields))
	}
	fc := a.fields[pos]
	out, err := fc.read(rec.Field(pos))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fc.name, err)
	}
	return out, nil
}

// Write converts an externally supplied value back to the internal field type
// and stores it at pos.
func (a *Accessor) Write(rec Record, pos int, v any) error {
	if pos < 0 || pos >= len(a.fields) {
		return fmt.Errorf("%w: %d outside [0, %d)", ErrInvalidPosition, pos, len(a.fields))
	}
	fc := a.fields[pos]
	converted, err := fc.write(v)
	if err != nil {
		return fmt.Errorf("write %s: %w", fc.name, err)
	}
	rec.SetField(pos, converted)
	return nil
}

func passthrough(v any) (any, error) { return v, nil }

// readConv builds the internal-to-Avro conversion for one type.
func readConv(t *descriptor.Type) (convert, error) {
	switch t.Kind {
	case descriptor.KindNullable:
		inner, err := readConv(t.Inner)
		if err != nil {
			return nil, err
		}
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return inner(v)
		}, nil

	case descriptor.KindPrimitive:
		return readPrimitive(t.Primitive)

	case descriptor.KindArray:
		elem, err := readConv(t.Elem)
		if err != nil {
			return nil, err
		}
		return func(v any) (any, error) {
			items, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("expected []any, got %T", v)
			}
			// Materialize into a fresh concrete sequence.
			out := make([]any, len(items))
			for i, it := range items {
				conv, err := elem(it)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = conv
			}
			return out, nil
		}, nil

	case descriptor.KindMap:
		value, err := readConv(t.Value)
		if err != nil {
			return nil, err
		}
		return func(v any) (any, error) {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map[string]any, got %T", v)
			}
			out := make(map[string]any, len(m))
			for k, mv := range m {
				conv, err := value(mv)
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", k, err)
				}
				out[k] = conv
			}
			return out, nil
		}, nil

	case descriptor.KindEnum, descriptor.KindRecord:
		// Enum symbols travel as strings; nested records pass structurally,
		// their own accessors are generated independently.
		return passthrough, nil

	default:
		return nil, fmt.Errorf("%s is not supported", t)
	}
}

func readPrimitive(p descriptor.Primitive) (convert, error) {
	switch p {
	case descriptor.UInt32:
		// Widen across the signed boundary so large values survive.
		return func(v any) (any, error) {
			u, ok := v.(uint32)
			if !ok {
				return nil, fmt.Errorf("expected uint32, got %T", v)
			}
			return int64(u), nil
		}, nil

	case descriptor.UInt64:
		return func(v any) (any, error) {
			u, ok := v.(uint64)
			if !ok {
				return nil, fmt.Errorf("expected uint64, got %T", v)
			}
			buf := make([]byte, uint64WireSize)
			binary.BigEndian.PutUint64(buf, u)
			return buf, nil
		}, nil

	case descriptor.Decimal:
		return func(v any) (any, error) {
			r, ok := v.(*big.Rat)
			if !ok {
				return nil, fmt.Errorf("expected *big.Rat, got %T", v)
			}
			f, _ := r.Float64()
			return f, nil
		}, nil

	case descriptor.DateTime, descriptor.DateTimeOffset, descriptor.Date:
		return func(v any) (any, error) {
			ts, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("expected time.Time, got %T", v)
			}
			return ts.UnixMilli(), nil
		}, nil

	case descriptor.UUID:
		return func(v any) (any, error) {
			id, ok := v.(uuid.UUID)
			if !ok {
				return nil, fmt.Errorf("expected uuid.UUID, got %T", v)
			}
			return id.String(), nil
		}, nil

	case descriptor.Int32, descriptor.Int64, descriptor.Float32, descriptor.Float64,
		descriptor.Bool, descriptor.String, descriptor.Bytes:
		return passthrough, nil

	default:
		return nil, fmt.Errorf("%s is not supported", p)
	}
}

// writeConv builds the Avro-to-internal conversion for one type.
func writeConv(t *descriptor.Type) (convert, error) {
	switch t.Kind {
	case descriptor.KindNullable:
		inner, err := writeConv(t.Inner)
		if err != nil {
			return nil, err
		}
		// Value-or-null: the null branch needs no conversion.
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return inner(v)
		}, nil

	case descriptor.KindPrimitive:
		return writePrimitive(t.Primitive)

	case descriptor.KindArray:
		elem, err := writeConv(t.Elem)
		if err != nil {
			return nil, err
		}
		return func(v any) (any, error) {
			items, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("expected []any, got %T", v)
			}
			out := make([]any, len(items))
			for i, it := range items {
				conv, err := elem(it)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = conv
			}
			return out, nil
		}, nil

	case descriptor.KindMap:
		value, err := writeConv(t.Value)
		if err != nil {
			return nil, err
		}
		return func(v any) (any, error) {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map[string]any, got %T", v)
			}
			out := make(map[string]any, len(m))
			for k, mv := range m {
				conv, err := value(mv)
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", k, err)
				}
				out[k] = conv
			}
			return out, nil
		}, nil

	case descriptor.KindEnum:
		return func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("expected enum symbol string, got %T", v)
			}
			return s, nil
		}, nil

	case descriptor.KindRecord:
		// Direct structural cast; the external value is already the
		// corresponding generated record form.
		return passthrough, nil

	default:
		return nil, fmt.Errorf("%s is not supported", t)
	}
}

func writePrimitive(p descriptor.Primitive) (convert, error) {
	switch p {
	case descriptor.UInt32:
		// Narrow back through the wide signed intermediate.
		return func(v any) (any, error) {
			w, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("expected int64, got %T", v)
			}
			return uint32(w), nil
		}, nil

	case descriptor.UInt64:
		return func(v any) (any, error) {
			buf, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("expected []byte, got %T", v)
			}
			if len(buf) != uint64WireSize {
				return nil, fmt.Errorf("expected %d bytes, got %d", uint64WireSize, len(buf))
			}
			return binary.BigEndian.Uint64(buf), nil
		}, nil

	case descriptor.Decimal:
		return func(v any) (any, error) {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("expected float64, got %T", v)
			}
			r := new(big.Rat).SetFloat64(f)
			if r == nil {
				return nil, fmt.Errorf("cannot represent %v as decimal", f)
			}
			return r, nil
		}, nil

	case descriptor.DateTime, descriptor.DateTimeOffset, descriptor.Date:
		return func(v any) (any, error) {
			millis, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("expected int64 millis, got %T", v)
			}
			return time.UnixMilli(millis).UTC(), nil
		}, nil

	case descriptor.UUID:
		return func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("expected uuid string, got %T", v)
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("parse uuid %q: %w", s, err)
			}
			return id, nil
		}, nil

	case descriptor.Int32, descriptor.Int64, descriptor.Float32, descriptor.Float64,
		descriptor.Bool, descriptor.String, descriptor.Bytes:
		return passthrough, nil

	default:
		return nil, fmt.Errorf("%s is not supported", p)
	}
}
