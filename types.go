package factskema

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mode selects how a batch reacts to decode errors.
type Mode int

const (
	CollectAll Mode = iota // Decode every fact and gather every issue.
	FailFast               // Stop at the first decode issue.
)

func (m Mode) String() string {
	if m == FailFast {
		return "fail_fast"
	}
	return "collect_all"
}

// ParseMode parses "fail_fast" or "collect_all" (dashes are accepted too).
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "fail_fast", "failfast":
		return FailFast, nil
	case "collect_all", "collectall", "":
		return CollectAll, nil
	}
	return CollectAll, fmt.Errorf("factskema: unknown mode %q", s)
}

// BatchObserver is notified once per decoded batch.
type BatchObserver interface {
	ObserveBatch(res *Result, elapsed time.Duration)
}

// Options bundles batch decoding options. The zero value decodes
// sequentially in collect-all mode without duplicate detection and ignores
// unknown predicates.
type Options struct {
	Mode Mode
	// DetectDuplicates reports facts whose decoded identity was already seen.
	DetectDuplicates bool
	// StrictUnknownPredicate reports facts without a schema instead of
	// ignoring them.
	StrictUnknownPredicate bool
	// Workers > 1 decodes facts in parallel. Results are identical to the
	// sequential path.
	Workers  int
	Logger   *zap.Logger
	Observer BatchObserver
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
