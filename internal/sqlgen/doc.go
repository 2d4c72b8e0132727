// Package sqlgen emits dialect-specific SQL for linked ruleblocks.
//
// One ruleblock compiles to one SQL string. Oracle and PostgreSQL receive a
// single CREATE TABLE ... AS WITH statement whose per-variable fragments are
// CTEs; T-SQL receives a serial script that materialises each fragment into
// a primary-keyed temp table (the PK stands in for the join plan the
// CTE-based dialects get for free).
//
// A dialect is a helpers record (current-date, casts, date arithmetic,
// string aggregation) consumed by a shared operator dispatch table, plus an
// envelope. Operator semantics are specified once; only the helper surface
// differs between dialects.
package sqlgen
