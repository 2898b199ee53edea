// Package host provides Memory, an in-memory model of the authoring
// application's node-graph primitives.
//
// Memory implements graph.Host and graph.Editor with the same rules the real
// host enforces:
//   - structural links only join nodes with the same parent scope
//   - an in-port accepts at most one link; linking into an occupied port is
//     refused, never overwritten
//   - groups get a Multi-Port-In and a Multi-Port-Out proxy on first use,
//     and their port counts mirror the group's
//   - ports grow only for kinds on the graph allow-lists, and only at the
//     index equal to the current count
//   - composite in-ports vanish when unlinked and can be inserted at an index
//
// Memory backs the CLI, the scenario harness and every package test.
package host
