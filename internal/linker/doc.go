// Package linker resolves references within and between ruleblocks.
//
// Linking has three steps:
//
//  1. Reference extraction: every rule gets its set of free variable names
//     (identifiers minus a fixed SQL stoplist; fetch predicates also drop
//     the event-table columns).
//  2. Dependency graph: one node per present ruleblock; a bind in A targeting
//     a present B adds the edge A → B (A depends on B). Binds to absent
//     ruleblocks reference pre-existing tables and add no edge.
//  3. Ordering: cycle detection by depth-first colouring (any cycle is fatal),
//     then a stable postorder topological sort (dependencies first). Nodes are visited in
//     input order, so ruleblocks with no ordering constraint keep their
//     original relative positions.
//
// References to undefined local variables are not errors here: they are
// trusted to resolve by join at execution time.
package linker
