// Package store provides SQLite-backed provenance storage for compile runs.
//
// The store is an append-only record of compilations:
//   - Runs: one row per compile call (UUIDv7 id, dialect, manifest JSON)
//   - Artifacts: one row per emitted ruleblock (SQL text, execution order)
//
// Manifests are stored as canonical JSON, so reading a run back reproduces
// the manifest byte-for-byte.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
