package factskema

import "sync"

// Reporter accumulates issues for one batch. It is append-only, never
// deduplicates and is safe for concurrent use. The mode is fixed at
// construction.
type Reporter struct {
	mu     sync.Mutex
	mode   Mode
	issues Issues
}

// NewReporter returns an empty reporter for a batch decoded in mode.
func NewReporter(mode Mode) *Reporter { return &Reporter{mode: mode} }

// Mode returns the batch mode.
func (r *Reporter) Mode() Mode { return r.mode }

// Report appends issues.
func (r *Reporter) Report(its ...Issue) {
	r.mu.Lock()
	r.issues = append(r.issues, its...)
	r.mu.Unlock()
}

// HasErrors reports whether any issue was recorded.
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issues) > 0
}

// Len returns the number of recorded issues.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issues)
}

// Issues returns a copy of every recorded issue in report order.
func (r *Reporter) Issues() Issues {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(Issues(nil), r.issues...)
}

// DecodeErrors returns the decode-stage issues.
func (r *Reporter) DecodeErrors() Issues { return r.Issues().Filter(ClassDecode) }

// AggregateViolations returns the aggregate-stage issues.
func (r *Reporter) AggregateViolations() Issues { return r.Issues().Filter(ClassAggregate) }

// Err returns the recorded issues as an error, or nil.
func (r *Reporter) Err() error {
	iss := r.Issues()
	if len(iss) == 0 {
		return nil
	}
	return iss
}

// Render returns one self-contained line per issue.
func (r *Reporter) Render() []string {
	iss := r.Issues()
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.String()
	}
	return out
}
