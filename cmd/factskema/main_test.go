package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/reoring/factskema/i18n"
)

const testSchema = `
options:
  detect_duplicates: true
date:
  year: Integer
  month: {type: Integer, min: 1, max: 12}
  day: {type: Integer, min: 1, max: 31}
  options: {term_only: true}
bday:
  name: Alpha
  date: date
  options:
    aggregates:
      - {kind: count, min: 1}
`

type cliRun struct {
	out, errOut bytes.Buffer
	err         error
}

func run(t *testing.T, files map[string]string, args ...string) *cliRun {
	t.Helper()
	i18n.SetLanguage("en")
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	for i, a := range args {
		if _, ok := files[a]; ok {
			args[i] = filepath.Join(dir, a)
		}
	}
	r := &cliRun{}
	cmd := newRootCmd()
	cmd.SetOut(&r.out)
	cmd.SetErr(&r.errOut)
	cmd.SetArgs(args)
	r.err = cmd.Execute()
	return r
}

func TestCheck_OK(t *testing.T) {
	r := run(t, map[string]string{
		"schema.yaml": testSchema,
		"facts.dl":    "bday(/sofia, fn:date(2019, 6, 25)).\n",
	}, "check", "-s", "schema.yaml", "facts.dl")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "1 fact(s), 1 record(s), 0 ignored, 0 duplicate(s): ok")
}

func TestCheck_ReportsIssues(t *testing.T) {
	r := run(t, map[string]string{
		"schema.yaml": testSchema,
		"facts.json": `[
			{"predicate": "bday", "args": [{"symbol": "sofia"}, {"name": "date", "args": [2019, 6, 25]}]},
			{"predicate": "bday", "args": [{"symbol": "sofia"}, {"name": "date", "args": [2019, 6, 25]}]},
			{"predicate": "bday", "args": [{"symbol": "leo"}, {"name": "date", "args": [2018, 13, 2]}]}
		]`,
	}, "check", "-s", "schema.yaml", "facts.json")
	require.ErrorIs(t, r.err, errIssues)
	out := r.out.String()
	require.Contains(t, out, "[duplicate_fact]")
	require.Contains(t, out, "decode error in bday/2 (fact #2) field date.month value 13")
	require.Contains(t, out, "2 issue(s)")
}

func TestCheck_FlagsOverrideFileOptions(t *testing.T) {
	files := map[string]string{
		"schema.yaml": testSchema,
		"facts.dl":    "bday(/a, fn:date(2019, 13, 1)).\nbday(/b, fn:date(2019, 14, 1)).\nother(1).\n",
	}
	r := run(t, files, "check", "-s", "schema.yaml", "--mode", "fail_fast", "--strict", "-o", "json", "facts.dl")
	require.ErrorIs(t, r.err, errIssues)

	var v resultView
	require.NoError(t, j.Unmarshal(r.out.Bytes(), &v))
	require.Equal(t, "fail_fast", v.Mode)
	require.True(t, v.Stopped)
	require.Equal(t, 1, v.Facts)
	require.Len(t, v.Issues, 1)
	require.Equal(t, "out_of_range", v.Issues[0].Code)
	require.Equal(t, "date.month", v.Issues[0].Field)
	require.NotNil(t, v.Issues[0].Fact)

	r = run(t, files, "check", "-s", "schema.yaml", "--strict", "-o", "json", "facts.dl")
	require.ErrorIs(t, r.err, errIssues)
	v = resultView{}
	require.NoError(t, j.Unmarshal(r.out.Bytes(), &v))
	var codes []string
	for _, it := range v.Issues {
		codes = append(codes, it.Code)
	}
	require.Equal(t, []string{"out_of_range", "out_of_range", "unknown_predicate", "count_mismatch"}, codes)
}

func TestCheck_EmitAndMetrics(t *testing.T) {
	r := run(t, map[string]string{
		"schema.yaml": testSchema,
		"facts.dl":    "bday(/sofia, fn:date(2019, 6, 25)).\n",
	}, "check", "-s", "schema.yaml", "--emit", "json", "--metrics", "facts.dl")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), `"predicate":"bday"`)
	require.Contains(t, r.errOut.String(), ": ok")
	require.Contains(t, r.errOut.String(), "factskema_records_total 1")
}

func TestCheck_CompileIssues(t *testing.T) {
	r := run(t, map[string]string{
		"schema.yaml": "a:\n  b: b\nb:\n  a: a\n",
		"facts.dl":    "",
	}, "check", "-s", "schema.yaml", "facts.dl")
	require.ErrorIs(t, r.err, errIssues)
	require.Contains(t, r.errOut.String(), "[cyclic_schema]")
}

func TestCheck_BadFlags(t *testing.T) {
	files := map[string]string{"schema.yaml": testSchema, "facts.txt": ""}
	r := run(t, files, "check", "-s", "schema.yaml", "facts.txt")
	require.ErrorContains(t, r.err, "cannot tell the input format")

	r = run(t, files, "check", "-s", "schema.yaml", "-o", "xml", "facts.txt")
	require.ErrorContains(t, r.err, "unknown output format")

	r = run(t, files, "check", "-s", "schema.yaml", "--mode", "sometimes", "--format", "json", "facts.txt")
	require.ErrorContains(t, r.err, "unknown mode")
}

func TestSchema_Text(t *testing.T) {
	r := run(t, map[string]string{"schema.yaml": testSchema}, "schema", "-s", "schema.yaml")
	require.NoError(t, r.err)
	lines := strings.Split(strings.TrimSpace(r.out.String()), "\n")
	require.Equal(t, []string{
		"date(year: Integer, month: Integer[1,12], day: Integer[1,31]) [term only]",
		"bday(name: Alpha, date: date/3)",
		"  count() expects at least 1",
	}, lines)
}

func TestSchema_JSON(t *testing.T) {
	r := run(t, map[string]string{"schema.yaml": testSchema}, "schema", "-s", "schema.yaml", "-o", "json")
	require.NoError(t, r.err)
	var views []schemaView
	require.NoError(t, j.Unmarshal(r.out.Bytes(), &views))
	require.Len(t, views, 2)
	require.True(t, views[0].TermOnly)
	require.Equal(t, "bday", views[1].Predicate)
	require.Equal(t, []string{"count() expects at least 1"}, views[1].Aggregates)
}

func TestSchema_JSONSchema(t *testing.T) {
	r := run(t, map[string]string{"schema.yaml": testSchema}, "schema", "-s", "schema.yaml", "--jsonschema")
	require.NoError(t, r.err)
	var doc map[string]any
	require.NoError(t, j.Unmarshal(r.out.Bytes(), &doc))
	require.Equal(t, "https://json-schema.org/draft/2020-12/schema", doc["$schema"])
	require.Len(t, doc["oneOf"], 1)
}
