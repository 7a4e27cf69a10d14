package factskema

import "context"

// ---- Decode-time context options ----

type contextKey int

const (
	_ctxKeyFailFast contextKey = iota
)

// WithFailFast returns a child context that marks fail-fast decoding.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether decoding should stop on the first issue.
func IsFailFast(ctx context.Context) bool {
	v := ctx.Value(_ctxKeyFailFast)
	b, _ := v.(bool)
	return b
}

// ModeFrom returns the decoding mode carried by ctx.
func ModeFrom(ctx context.Context) Mode {
	if IsFailFast(ctx) {
		return FailFast
	}
	return CollectAll
}

// Decode decodes a single fact against s using the mode carried by ctx.
func Decode(ctx context.Context, s *Schema, f RawFact) (Record, error) {
	return NewDecoder(ModeFrom(ctx)).Decode(s, f)
}

// SafeDecode decodes f, returning (zero, false) on any issue.
func SafeDecode(ctx context.Context, s *Schema, f RawFact) (Record, bool) {
	r, err := Decode(ctx, s, f)
	if err != nil {
		return Record{}, false
	}
	return r, true
}
