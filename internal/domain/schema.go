package domain

import (
	"errors"
	"fmt"
)

// FieldKind is the storage/indexing type of a schema field.
type FieldKind int

const (
	// FieldTag is an exact-match string field.
	FieldTag FieldKind = iota
	// FieldNumeric is a numeric field.
	FieldNumeric
	// FieldText is a full-text string field.
	FieldText
	// FieldBytes is an opaque binary field, stored but not indexed.
	FieldBytes
	// FieldVector is an embedding vector field, searchable by distance.
	FieldVector
)

// Field describes a single column of a table schema.
type Field struct {
	Name      string
	Kind      FieldKind
	VectorDim int // required for FieldVector
}

// Schema describes a typed table: its columns, which of them are vector
// columns, and which is the primary key.
type Schema struct {
	PrimaryKey string
	Fields     []Field
}

// Validate checks the schema is well-formed. A failure here is a fatal
// configuration error, raised at startup.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	if s.PrimaryKey == "" {
		return errors.New("primary key is required")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true
		if f.Kind == FieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("vector field %s requires positive dimension", f.Name)
		}
	}

	if !seen[s.PrimaryKey] {
		return fmt.Errorf("primary key %s is not a declared field", s.PrimaryKey)
	}
	return nil
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// VectorColumns returns the names of all vector fields.
func (s *Schema) VectorColumns() []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Kind == FieldVector {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// NonVectorColumns returns all field names except vector columns, in
// declaration order. This is the default projection for query results.
func (s *Schema) NonVectorColumns() []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Kind != FieldVector {
			cols = append(cols, f.Name)
		}
	}
	return cols
}
