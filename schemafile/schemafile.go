// Package schemafile loads record declarations from YAML.
//
// Every top-level key names a predicate and maps its fields, in order, to a
// type name or a field specification. The reserved key "options" holds
// document settings and custom types:
//
//	options:
//	  mode: collect_all
//	  detect_duplicates: true
//	  types:
//	    Age: {type: Integer, min: 0, max: 150}
//	date:
//	  year: Integer
//	  month: {type: Integer, min: 1, max: 12}
//	  day: {type: Integer, min: 1, max: 31}
//	  options: {term_only: true}
//	bday:
//	  name: Alpha
//	  date: date
//
// Multi-document streams are merged in order.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/rules"
)

const optionsKey = "options"

// Options are the document-level settings.
type Options struct {
	Mode                   string `yaml:"mode"`
	DetectDuplicates       bool   `yaml:"detect_duplicates"`
	StrictUnknownPredicate bool   `yaml:"strict_unknown_predicate"`
	Workers                int    `yaml:"workers"`
	Language               string `yaml:"language"`
	MaxArity               int    `yaml:"max_arity"`
}

// NamedType is a custom primitive declared under options.types.
type NamedType struct {
	Name      string
	Primitive factskema.Primitive
}

// Document is a parsed schema file.
type Document struct {
	Options Options
	Types   []NamedType
	Records []factskema.RecordDecl
}

// Load reads and parses the file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses YAML schema declarations.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var root yaml.Node
		if err := dec.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("schemafile: %w", err)
		}
		if err := doc.merge(&root); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// BatchOptions converts the document settings into decoding options.
func (d *Document) BatchOptions() (factskema.Options, error) {
	mode, err := factskema.ParseMode(d.Options.Mode)
	if err != nil {
		return factskema.Options{}, err
	}
	return factskema.Options{
		Mode:                   mode,
		DetectDuplicates:       d.Options.DetectDuplicates,
		StrictUnknownPredicate: d.Options.StrictUnknownPredicate,
		Workers:                d.Options.Workers,
	}, nil
}

// Registry registers the custom types, declares every record and seals the
// resulting registry.
func (d *Document) Registry(opts ...factskema.RegistryOption) (*factskema.Registry, error) {
	cat := factskema.NewCatalogue()
	for _, t := range d.Types {
		if err := cat.Register(t.Name, t.Primitive); err != nil {
			return nil, err
		}
	}
	base := []factskema.RegistryOption{factskema.WithCatalogue(cat)}
	if d.Options.MaxArity > 0 {
		base = append(base, factskema.WithMaxArity(d.Options.MaxArity))
	}
	reg := factskema.NewRegistry(append(base, opts...)...)
	if err := reg.Declare(d.Records...); err != nil {
		return nil, err
	}
	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (d *Document) merge(root *yaml.Node) error {
	n := root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return errorAt(n, "document must be a mapping of predicates")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == optionsKey {
			if err := d.parseOptions(val); err != nil {
				return err
			}
			continue
		}
		rec, err := parseRecord(key.Value, val)
		if err != nil {
			return err
		}
		d.Records = append(d.Records, rec)
	}
	return nil
}

type rawOptions struct {
	Options `yaml:",inline"`
	Types   yaml.Node `yaml:"types"`
}

func (d *Document) parseOptions(n *yaml.Node) error {
	if err := checkKeys(n, "mode", "detect_duplicates", "strict_unknown_predicate", "workers", "language", "max_arity", "types"); err != nil {
		return err
	}
	var raw rawOptions
	raw.Options = d.Options
	if err := n.Decode(&raw); err != nil {
		return fmt.Errorf("schemafile: options: %w", err)
	}
	d.Options = raw.Options
	if raw.Types.Kind == 0 {
		return nil
	}
	if raw.Types.Kind != yaml.MappingNode {
		return errorAt(&raw.Types, "options.types must be a mapping")
	}
	for i := 0; i+1 < len(raw.Types.Content); i += 2 {
		key, val := raw.Types.Content[i], raw.Types.Content[i+1]
		spec, err := parseFieldSpec(val)
		if err != nil {
			return err
		}
		p, vs, err := spec.primitive()
		if err != nil {
			return wrapAt(val, err)
		}
		if p == nil {
			return errorAt(val, "type %s must derive from Any, Integer, Alpha or String", key.Value)
		}
		if len(vs) > 0 || spec.hasAggregates() {
			return errorAt(val, "type %s: enum, length and aggregate settings belong to fields", key.Value)
		}
		d.Types = append(d.Types, NamedType{Name: key.Value, Primitive: p})
	}
	return nil
}

// ---- records ----

type recordOptions struct {
	TermOnly   bool            `yaml:"term_only"`
	Having     []string        `yaml:"having"`
	Aggregates []aggregateSpec `yaml:"aggregates"`
}

type aggregateSpec struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Field       string   `yaml:"field"`
	Expect      *int64   `yaml:"expect"`
	ExpectField string   `yaml:"expect_field"`
	Min         *int64   `yaml:"min"`
	Max         *int64   `yaml:"max"`
	GroupBy     []string `yaml:"group_by"`
}

func parseRecord(name string, n *yaml.Node) (factskema.RecordDecl, error) {
	rec := factskema.RecordDecl{Name: name}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return rec, nil
	}
	if n.Kind != yaml.MappingNode {
		return rec, errorAt(n, "predicate %s must map field names to types", name)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == optionsKey {
			if err := applyRecordOptions(&rec, val); err != nil {
				return rec, err
			}
			continue
		}
		spec, err := parseFieldSpec(val)
		if err != nil {
			return rec, err
		}
		fd, aggs, err := spec.field(key.Value)
		if err != nil {
			return rec, wrapAt(val, fmt.Errorf("%s.%s: %w", name, key.Value, err))
		}
		rec.Fields = append(rec.Fields, fd)
		rec.Aggregates = append(rec.Aggregates, aggs...)
	}
	return rec, nil
}

func applyRecordOptions(rec *factskema.RecordDecl, n *yaml.Node) error {
	if err := checkKeys(n, "term_only", "having", "aggregates"); err != nil {
		return err
	}
	var opts recordOptions
	if err := n.Decode(&opts); err != nil {
		return fmt.Errorf("schemafile: %s.options: %w", rec.Name, err)
	}
	rec.TermOnly = opts.TermOnly
	for _, h := range opts.Having {
		v, err := rules.ParseComparison(h)
		if err != nil {
			return wrapAt(n, err)
		}
		rec.Validators = append(rec.Validators, v)
	}
	for _, a := range opts.Aggregates {
		check, err := a.check()
		if err != nil {
			return wrapAt(n, fmt.Errorf("%s: %w", rec.Name, err))
		}
		rec.Aggregates = append(rec.Aggregates, check)
	}
	return nil
}

func (a aggregateSpec) check() (factskema.AggregateCheck, error) {
	kind, sign, err := parseAggregateKind(a.Kind)
	if err != nil {
		return factskema.AggregateCheck{}, err
	}
	return factskema.AggregateCheck{
		Name:    a.Name,
		Kind:    kind,
		Sign:    sign,
		Field:   a.Field,
		Expect:  factskema.Expectation{Literal: a.Expect, Field: a.ExpectField, Min: a.Min, Max: a.Max},
		GroupBy: a.GroupBy,
	}, nil
}

func parseAggregateKind(s string) (factskema.AggregateKind, factskema.Sign, error) {
	switch s {
	case "count", "":
		return factskema.AggregateCount, factskema.SignAll, nil
	case "sum":
		return factskema.AggregateSum, factskema.SignAll, nil
	case "sum+":
		return factskema.AggregateSum, factskema.SignPositive, nil
	case "sum-":
		return factskema.AggregateSum, factskema.SignNegative, nil
	}
	return 0, 0, fmt.Errorf("unknown aggregate kind %q", s)
}

// ---- helpers ----

func checkKeys(n *yaml.Node, allowed ...string) error {
	if n.Kind != yaml.MappingNode {
		return errorAt(n, "expected a mapping")
	}
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		ok := false
		for _, a := range allowed {
			if k.Value == a {
				ok = true
				break
			}
		}
		if !ok {
			return errorAt(k, "unknown key %q", k.Value)
		}
	}
	return nil
}

func errorAt(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("schemafile: line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func wrapAt(n *yaml.Node, err error) error {
	return fmt.Errorf("schemafile: line %d: %w", n.Line, err)
}
