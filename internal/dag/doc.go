// Package dag is a small directed graph over integer node indices. It backs
// the calculator dependency graph: node i is the variable at arena index i,
// and an edge from -> to records that to's equation reads from.
//
// The full equation graph of a calculator is normally cyclic (voltage reads
// current and current reads voltage), so cycles are not rejected when edges
// are added. Callers take a Subgraph of the edges active under the current
// direction assignment and ask that for a topological order; a cycle there
// is reported as a *CycleError naming the nodes on it.
package dag
