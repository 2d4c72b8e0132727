// Package rules provides the core data model for the Picorules compiler.
//
// This package contains type definitions only. All other internal packages
// import rules; rules imports nothing internal. This keeps the model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Rule is a sealed union (marker method pattern) with exactly three
//     variants: Fetch, Compute, Bind
//   - Compilation never mutates its inputs; the only field set after
//     parsing is each rule's References, filled in by the linker
//   - All JSON tags use snake_case
package rules
