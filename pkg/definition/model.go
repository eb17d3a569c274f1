package definition

// Definition is one record-definition YAML document. It is the CLI's stand-in
// for a host build pipeline walking declared symbols: the same descriptor
// model can be populated from attributes, macros, or static analysis instead.
type Definition struct {
	Name       string      `yaml:"name"`
	Namespace  string      `yaml:"namespace"`
	SkipSchema bool        `yaml:"skipSchema,omitempty"`
	Enums      []EnumDef   `yaml:"enums,omitempty"`
	Records    []RecordDef `yaml:"records,omitempty"`
	Fields     []FieldDef  `yaml:"fields"`
}

// EnumDef declares a named enum referencable from type expressions.
type EnumDef struct {
	Name      string   `yaml:"name"`
	Namespace string   `yaml:"namespace,omitempty"`
	Symbols   []string `yaml:"symbols"`
}

// RecordDef declares an auxiliary named record. Records may reference each
// other, themselves, and the top-level record.
type RecordDef struct {
	Name      string     `yaml:"name"`
	Namespace string     `yaml:"namespace,omitempty"`
	Fields    []FieldDef `yaml:"fields"`
}

// FieldDef is one declared field. Type is a type expression: a primitive
// name (int32, uint64, string, datetime, uuid, ...), array<T>, map<K,V>, a
// declared enum/record name, with a trailing ? marking the field nullable.
// Optional is the annotation-driven nullability signal and folds into the
// same nullable semantics as the ? suffix.
type FieldDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
	Ignored  bool   `yaml:"ignored,omitempty"`
}
