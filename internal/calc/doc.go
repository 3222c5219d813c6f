// Package calc is the variable dependency and recalculation engine.
//
// A Calculator owns an ordered arena of Variables. Each variable holds a raw
// value, a direction (Input or Output) decided by its DirectionFn, and an
// optional Equation used while it is an Output. Equations declare the
// variables they read; Build turns those declarations into a dependency
// graph once, independent of the current directions, because a toggle can
// activate any equation later.
//
// # Lifecycle
//
//  1. New, then AddVariable and AddGroup for every quantity.
//  2. Build links dependencies, optionally applies a Snapshot, refreshes
//     directions, recalculates all outputs and validates every variable.
//  3. SetValue (a user edit) and SelectOutput (a direction toggle) keep the
//     calculator consistent afterwards.
//
// # Ordering
//
// Outputs are recomputed in topological order over the active subgraph: the
// Output variables and the edges between them. A cycle in that subgraph
// aborts the pass before any value is touched and is reported as a
// *NonConvergenceError.
//
// # Notifications
//
// Observers receive value, validation and direction changes. Variables with
// updates disabled stay silent until re-enabled; Build uses this to publish
// one consistent initial state instead of every intermediate step.
//
// A Calculator is not safe for concurrent use. Callers serialize access.
package calc
