// Package parser converts ruleblock source text into an ordered rule list.
//
// Parsing is statement-level only: a ruleblock is preprocessed, split on
// semicolons, and each segment is classified as one of the three statement
// shapes (fetch, compute, bind). Segments that match no shape are silently
// dropped; this is policy, not an accident — stray commentary must never
// break a compile. Segments starting with '#' are compiler directives the
// core does not interpret; they are dropped with a warning.
package parser
