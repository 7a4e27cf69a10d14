package dsl

import (
	factskema "github.com/reoring/factskema"
)

// Any returns the passthrough primitive.
func Any() factskema.Primitive { return factskema.Any{} }

// Int returns an unbounded Integer.
func Int() factskema.Primitive { return factskema.Integer{} }

// IntRange returns an Integer bounded to [min, max].
func IntRange(min, max int64) factskema.Primitive { return factskema.IntegerBetween(min, max) }

// IntMin returns an Integer with a lower bound.
func IntMin(min int64) factskema.Primitive { return factskema.IntegerAtLeast(min) }

// IntMax returns an Integer with an upper bound.
func IntMax(max int64) factskema.Primitive { return factskema.IntegerAtMost(max) }

// String returns an unconstrained String.
func String() factskema.Primitive { return factskema.String{} }

// Pattern returns a String whose values must fully match pattern. It panics
// on an invalid pattern.
func Pattern(pattern string) factskema.Primitive { return factskema.MustStringMatching(pattern) }

// Alpha returns an Alpha restricted to tokens; no tokens accepts any
// constant name.
func Alpha(tokens ...string) factskema.Primitive { return factskema.AlphaOf(tokens...) }

// Labeled returns an Alpha whose tokens map to labels.
func Labeled(labels map[string]string, tokens ...string) factskema.Primitive {
	return factskema.Alpha{Alphabet: tokens, Labels: labels}
}
