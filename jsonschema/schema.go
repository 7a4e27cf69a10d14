// Package jsonschema exports compiled record schemas as JSON Schema
// (draft 2020-12) describing the JSON fact format read by source/gojson.
package jsonschema

import (
	factskema "github.com/reoring/factskema"
)

// Draft is the $schema URI of exported documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	SchemaURI   string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Core
	Type  string `json:"type,omitempty"`
	Const any    `json:"const,omitempty"`
	Enum  []any  `json:"enum,omitempty"`

	// Number
	Minimum *int64 `json:"minimum,omitempty"`
	Maximum *int64 `json:"maximum,omitempty"`

	// String
	Pattern string `json:"pattern,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Array
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	Items       *bool     `json:"items,omitempty"`
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// Document returns a schema accepting one fact of any of the given
// top-level schemas. Term-only schemas are skipped.
func Document(schemas []*factskema.Schema) *Schema {
	doc := &Schema{SchemaURI: Draft, Title: "facts"}
	for _, s := range schemas {
		if s.TermOnly() {
			continue
		}
		doc.OneOf = append(doc.OneOf, Fact(s))
	}
	return doc
}

// Fact describes {"predicate": name, "args": [...]} for s.
func Fact(s *factskema.Schema) *Schema {
	return closedObject(s.String(), map[string]*Schema{
		"predicate": {Const: s.Name()},
		"args":      args(s),
	}, "predicate", "args")
}

func args(s *factskema.Schema) *Schema {
	n := s.Arity()
	items := make([]*Schema, 0, n)
	for _, f := range s.Fields() {
		fs := field(f)
		fs.Title = f.Name
		items = append(items, fs)
	}
	return &Schema{Type: "array", PrefixItems: items, Items: boolPtr(false), MinItems: &n, MaxItems: &n}
}

func field(f factskema.FieldInfo) *Schema {
	if f.Nested != nil {
		// nested records are {"name", "args"} objects or bare tuples
		return &Schema{AnyOf: []*Schema{
			closedObject("", map[string]*Schema{
				"name": {Const: f.Nested.Name()},
				"args": args(f.Nested),
			}, "name", "args"),
			args(f.Nested),
		}}
	}
	switch p := f.Primitive.(type) {
	case factskema.Integer:
		return &Schema{Type: "integer", Minimum: p.Min, Maximum: p.Max}
	case factskema.String:
		s := &Schema{Type: "string"}
		if p.Pattern() != "" {
			s.Pattern = "^(?:" + p.Pattern() + ")$"
		}
		return s
	case factskema.Alpha:
		tok := &Schema{Type: "string", Pattern: factskema.ConstantNamePattern}
		if len(p.Alphabet) > 0 {
			tok = &Schema{Type: "string"}
			for _, a := range p.Alphabet {
				tok.Enum = append(tok.Enum, a)
			}
		}
		return &Schema{AnyOf: []*Schema{
			closedObject("", map[string]*Schema{"symbol": tok}, "symbol"),
			tok,
		}}
	}
	return &Schema{Description: f.Type}
}

func closedObject(title string, props map[string]*Schema, required ...string) *Schema {
	return &Schema{
		Title:                title,
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: boolPtr(false),
	}
}

func boolPtr(b bool) *bool { return &b }
