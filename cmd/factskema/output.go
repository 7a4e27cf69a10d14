package main

import (
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	factskema "github.com/reoring/factskema"
)

type issueView struct {
	Class     string `json:"class"`
	Code      string `json:"code"`
	Predicate string `json:"predicate,omitempty"`
	Arity     int    `json:"arity,omitempty"`
	Field     string `json:"field,omitempty"`
	Value     string `json:"value,omitempty"`
	Group     string `json:"group,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Fact      *int   `json:"fact,omitempty"`
	Message   string `json:"message"`
}

type resultView struct {
	ID         string      `json:"id"`
	Mode       string      `json:"mode"`
	OK         bool        `json:"ok"`
	Facts      int         `json:"facts"`
	Records    int         `json:"records"`
	Ignored    int         `json:"ignored"`
	Duplicates int         `json:"duplicates"`
	Stopped    bool        `json:"stopped"`
	Issues     []issueView `json:"issues"`
}

func viewIssue(it factskema.Issue) issueView {
	v := issueView{
		Class:     it.Class().String(),
		Code:      it.Code,
		Predicate: it.Predicate,
		Arity:     it.Arity,
		Field:     it.Field,
		Group:     it.Group,
		Rule:      it.Rule,
		Message:   it.Message,
	}
	if it.Value != nil {
		v.Value = factskema.FormatValue(it.Value)
	}
	if it.Fact >= 0 {
		n := it.Fact
		v.Fact = &n
	}
	return v
}

func writeResult(w io.Writer, format string, res *factskema.Result) error {
	if format == "json" {
		v := resultView{
			ID:         res.ID.String(),
			Mode:       res.Reporter.Mode().String(),
			OK:         res.OK(),
			Facts:      res.Facts,
			Records:    len(res.Records),
			Ignored:    res.Ignored,
			Duplicates: res.Duplicates,
			Stopped:    res.Stopped,
			Issues:     []issueView{},
		}
		for _, it := range res.Issues() {
			v.Issues = append(v.Issues, viewIssue(it))
		}
		enc := j.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	for _, line := range res.Reporter.Render() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	status := "ok"
	if !res.OK() {
		status = fmt.Sprintf("%d issue(s)", res.Reporter.Len())
	}
	if res.Stopped {
		status += ", stopped early"
	}
	_, err := fmt.Fprintf(w, "%d fact(s), %d record(s), %d ignored, %d duplicate(s): %s\n",
		res.Facts, len(res.Records), res.Ignored, res.Duplicates, status)
	return err
}
