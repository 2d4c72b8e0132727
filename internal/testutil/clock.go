package testutil

import "time"

// FixedClock pins the compile timestamp so manifests and golden files are
// byte-identical across runs.
type FixedClock struct {
	t time.Time
}

// NewFixedClock creates a clock frozen at the given instant.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// CompileTime is the instant used by tests that need a frozen clock:
// 2024-01-01T00:00:00Z.
var CompileTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Now returns the frozen instant. It matches the signature of time.Now so
// it can be assigned to compile.Compiler.Now directly.
func (c *FixedClock) Now() time.Time {
	return c.t
}
