// Package validate decides whether a record's declared fields can take part
// in Avro schema and accessor generation, reporting every offending field in
// one pass rather than stopping at the first.
package validate

import (
	"fmt"

	"github.com/recordwire/avroforge/pkg/descriptor"
)

// Diagnostic names one field whose type cannot be compiled and why. The
// message carries the full property path down to the offending leaf.
type Diagnostic struct {
	Field   string
	Message string
}

// Validate classifies every non-ignored field and collects a diagnostic for
// each unsupported one. An empty result means the record may be compiled.
// All memoization state lives for this call only, so unrelated records can be
// validated in parallel.
func Validate(fields []descriptor.Field) []Diagnostic {
	v := &validator{
		memo:     make(map[*descriptor.Type]string),
		visiting: make(map[string]bool),
	}

	var diags []Diagnostic
	for _, f := range fields {
		if f.Ignored {
			continue
		}
		if reason := v.check(f.Type); reason != "" {
			diags = append(diags, Diagnostic{Field: f.Name, Message: reason})
		}
	}
	return diags
}

type validator struct {
	// memo caches the verdict per distinct type within this run.
	memo map[*descriptor.Type]string
	// visiting marks named records currently on the call stack; a type being
	// validated higher up is treated as valid to break recursion cycles.
	visiting map[string]bool
}

// check returns "" when t is supported, otherwise the reason it is not.
func (v *validator) check(t *descriptor.Type) string {
	if reason, ok := v.memo[t]; ok {
		return reason
	}
	reason := v.classify(t)
	v.memo[t] = reason
	return reason
}

func (v *validator) classify(t *descriptor.Type) string {
	switch t.Kind {
	case descriptor.KindNullable:
		return v.check(t.Inner)

	case descriptor.KindPrimitive:
		if supportedPrimitive(t.Primitive) {
			return ""
		}
		return fmt.Sprintf("%s is not supported", t.Primitive)

	case descriptor.KindEnum:
		// Symbols are assumed well-formed by the host pipeline.
		return ""

	case descriptor.KindArray:
		return v.check(t.Elem)

	case descriptor.KindMap:
		if !isStringKey(t.Key) {
			return fmt.Sprintf("map key type '%s' is not supported (only string keys are allowed)", t.Key)
		}
		return v.check(t.Value)

	case descriptor.KindRecord:
		return v.checkRecord(t)

	case descriptor.KindDelegate:
		return fmt.Sprintf("delegate type '%s' from namespace '%s' is not supported", t.Name, t.Namespace)

	case descriptor.KindUnsupported:
		if t.Reason != "" {
			return t.Reason
		}
		return fmt.Sprintf("type '%s' from namespace '%s' is not supported", t.Name, t.Namespace)

	default:
		return fmt.Sprintf("type '%s' is not supported", t)
	}
}

func (v *validator) checkRecord(t *descriptor.Type) string {
	full := t.FullName()
	if v.visiting[full] {
		// Self- or mutually-referential record: the definition higher up the
		// stack settles supportability.
		return ""
	}
	v.visiting[full] = true
	defer delete(v.visiting, full)

	for _, f := range t.Fields {
		if f.Ignored {
			continue
		}
		if reason := v.check(f.Type); reason != "" {
			return fmt.Sprintf("property '%s' has unsupported type: %s", f.Name, reason)
		}
	}
	return ""
}

func supportedPrimitive(p descriptor.Primitive) bool {
	switch p {
	case descriptor.Int32, descriptor.Int64, descriptor.UInt32, descriptor.UInt64,
		descriptor.Float32, descriptor.Float64, descriptor.Decimal,
		descriptor.Bool, descriptor.String, descriptor.Bytes,
		descriptor.DateTime, descriptor.DateTimeOffset, descriptor.Date,
		descriptor.UUID:
		return true
	}
	return false
}

func isStringKey(key *descriptor.Type) bool {
	return key != nil && key.Kind == descriptor.KindPrimitive && key.Primitive == descriptor.String
}
