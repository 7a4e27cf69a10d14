package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/i18n"
	"github.com/reoring/factskema/schemafile"
)

// errIssues signals that decoding reported issues; they are already printed.
var errIssues = errors.New("facts did not validate")

type globalFlags struct {
	schema  string
	lang    string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "factskema",
		Short: "Validate logic-program facts against declared schemas",
		Long: `factskema compiles record schemas from a YAML file and checks facts
against them: field types and bounds, record conditions and aggregate
counts and sums.

Facts are read from JSON (.json, .jsonl, .ndjson) or Datalog (.dl, .mg,
.mangle) files.

Examples:
  factskema check -s schema.yaml facts.dl
  factskema check -s schema.yaml --mode fail_fast -o json facts.json
  factskema watch -s schema.yaml facts.dl
  factskema schema -s schema.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.schema, "schema", "s", "schema.yaml", "schema file path")
	root.PersistentFlags().StringVar(&g.lang, "lang", "", "message language (en, ja); defaults to the schema file setting")
	root.PersistentFlags().StringVarP(&g.output, "output", "o", "text", "output format (text, json)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log decoding details to stderr")

	root.AddCommand(newCheckCmd(g), newWatchCmd(g), newSchemaCmd(g))
	return root
}

func (g *globalFlags) logger() (*zap.Logger, error) {
	if !g.verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func (g *globalFlags) checkOutput() error {
	switch g.output {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown output format %q", g.output)
}

// load parses the schema file, applies the language and builds the sealed
// registry.
func (g *globalFlags) load(log *zap.Logger) (*schemafile.Document, *factskema.Registry, error) {
	doc, err := schemafile.Load(g.schema)
	if err != nil {
		return nil, nil, err
	}
	lang := g.lang
	if lang == "" {
		lang = doc.Options.Language
	}
	i18n.SetLanguage(lang)
	reg, err := doc.Registry(factskema.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return doc, reg, nil
}
