package main

import (
	"fmt"
	"io"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/jsonschema"
)

type fieldView struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaView struct {
	Predicate  string      `json:"predicate"`
	Arity      int         `json:"arity"`
	TermOnly   bool        `json:"term_only,omitempty"`
	Fields     []fieldView `json:"fields"`
	Aggregates []string    `json:"aggregates,omitempty"`
}

func newSchemaCmd(g *globalFlags) *cobra.Command {
	var asJSONSchema bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Compile the schema file and print the compiled records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := g.checkOutput(); err != nil {
				return err
			}
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			_, reg, err := g.load(log)
			if err != nil {
				return loadError(cmd, err)
			}
			if asJSONSchema {
				enc := j.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jsonschema.Document(reg.Schemas()))
			}
			return writeSchemas(cmd.OutOrStdout(), g.output, reg.Schemas())
		},
	}
	cmd.Flags().BoolVar(&asJSONSchema, "jsonschema", false, "print a JSON Schema for JSON fact input instead")
	return cmd
}

func writeSchemas(w io.Writer, format string, schemas []*factskema.Schema) error {
	if format == "json" {
		views := make([]schemaView, 0, len(schemas))
		for _, s := range schemas {
			v := schemaView{Predicate: s.Name(), Arity: s.Arity(), TermOnly: s.TermOnly()}
			for _, f := range s.Fields() {
				v.Fields = append(v.Fields, fieldView{Name: f.Name, Type: f.Type})
			}
			for _, a := range s.Aggregates() {
				v.Aggregates = append(v.Aggregates, a.String())
			}
			views = append(views, v)
		}
		enc := j.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	for _, s := range schemas {
		line := s.String()
		if s.TermOnly() {
			line += " [term only]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, a := range s.Aggregates() {
			if _, err := fmt.Fprintf(w, "  %s\n", a); err != nil {
				return err
			}
		}
	}
	return nil
}
