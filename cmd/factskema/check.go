package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/metrics"
	"github.com/reoring/factskema/source/datalog"
	"github.com/reoring/factskema/source/gojson"
)

type checkFlags struct {
	mode       string
	duplicates bool
	strict     bool
	workers    int
	format     string
	emit       string
	metrics    bool
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Decode facts and report every issue",
		Long: `Decode the facts of the given files (or stdin when none or "-" is
given) against the schema and report decode errors and aggregate
violations. Exits with status 1 when any issue is reported.

Flags override the options section of the schema file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runCheck(cmd.Context(), cmd, g, f, args, log)
		},
	}
	f.bind(cmd)
	fl := cmd.Flags()
	fl.StringVar(&f.emit, "emit", "", "write decoded records to stdout (json, datalog); the report goes to stderr")
	fl.BoolVar(&f.metrics, "metrics", false, "print Prometheus metrics to stderr after decoding")
	return cmd
}

// bind registers the decoding flags shared by check and watch.
func (f *checkFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", "", "fail_fast or collect_all")
	fl.BoolVar(&f.duplicates, "duplicates", false, "report duplicate facts")
	fl.BoolVar(&f.strict, "strict", false, "report facts whose predicate has no schema")
	fl.IntVar(&f.workers, "workers", 0, "decode with this many workers")
	fl.StringVar(&f.format, "format", "auto", "input format (auto, json, datalog)")
}

func runCheck(ctx context.Context, cmd *cobra.Command, g *globalFlags, f *checkFlags, files []string, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := g.checkOutput(); err != nil {
		return err
	}
	doc, reg, err := g.load(log)
	if err != nil {
		return loadError(cmd, err)
	}
	opts, err := doc.BatchOptions()
	if err != nil {
		return err
	}
	if err := f.apply(cmd, &opts); err != nil {
		return err
	}
	opts.Logger = log

	var promReg *prometheus.Registry
	if f.metrics {
		promReg = prometheus.NewRegistry()
		opts.Observer = metrics.New(promReg)
	}

	src, closeAll, err := openSources(cmd, files, f.format)
	if err != nil {
		return err
	}
	defer closeAll()

	res, err := factskema.DecodeBatch(ctx, reg, src, opts)
	if err != nil {
		return err
	}

	report := cmd.OutOrStdout()
	if f.emit != "" {
		report = cmd.ErrOrStderr()
		if err := emit(cmd.OutOrStdout(), f.emit, res.Records); err != nil {
			return err
		}
	}
	if err := writeResult(report, g.output, res); err != nil {
		return err
	}
	if promReg != nil {
		if err := metrics.WriteText(cmd.ErrOrStderr(), promReg); err != nil {
			return err
		}
	}
	if !res.OK() {
		return errIssues
	}
	return nil
}

// apply overrides opts with the flags set on the command line.
func (f *checkFlags) apply(cmd *cobra.Command, opts *factskema.Options) error {
	fl := cmd.Flags()
	if fl.Changed("mode") {
		m, err := factskema.ParseMode(f.mode)
		if err != nil {
			return err
		}
		opts.Mode = m
	}
	if fl.Changed("duplicates") {
		opts.DetectDuplicates = f.duplicates
	}
	if fl.Changed("strict") {
		opts.StrictUnknownPredicate = f.strict
	}
	if fl.Changed("workers") {
		opts.Workers = f.workers
	}
	switch f.emit {
	case "", "json", "datalog":
	default:
		return fmt.Errorf("unknown emit format %q", f.emit)
	}
	return nil
}

func loadError(cmd *cobra.Command, err error) error {
	iss, ok := factskema.AsIssues(err)
	if !ok {
		return err
	}
	for _, it := range iss {
		fmt.Fprintln(cmd.ErrOrStderr(), it.String())
	}
	return errIssues
}

func formatOf(path, format string) (string, error) {
	if format != "auto" {
		if format != "json" && format != "datalog" {
			return "", fmt.Errorf("unknown input format %q", format)
		}
		return format, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".ndjson":
		return "json", nil
	case ".dl", ".mg", ".mangle", ".lp":
		return "datalog", nil
	}
	if path == "-" {
		return "datalog", nil
	}
	return "", fmt.Errorf("%s: cannot tell the input format; use --format", path)
}

func openSources(cmd *cobra.Command, files []string, format string) (factskema.FactSource, func(), error) {
	if len(files) == 0 {
		files = []string{"-"}
	}
	var (
		srcs    []factskema.FactSource
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	for _, path := range files {
		kind, err := formatOf(path, format)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		var r io.Reader
		if path == "-" {
			r = cmd.InOrStdin()
		} else {
			fh, err := os.Open(path)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, fh)
			r = fh
		}
		if kind == "json" {
			srcs = append(srcs, gojson.NewReader(r))
		} else {
			srcs = append(srcs, datalog.NewSource(r))
		}
	}
	return factskema.MultiSource(srcs...), closeAll, nil
}

func emit(w io.Writer, format string, recs []factskema.Record) error {
	if format == "json" {
		return gojson.NewEncoder(w).EncodeRecords(recs)
	}
	return datalog.Write(w, recs)
}
