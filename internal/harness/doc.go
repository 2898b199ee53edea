// Package harness runs YAML scenarios of link operations against CUE
// scenes and checks the resulting graph.
//
// # Scenario Format
//
//	name: replace_source
//	description: "Connecting a second source replaces the first"
//	scene: ../scenes/flat.cue
//	tx_prefix: tx
//	options:
//	  auto_disconnect: true
//	  prune_dangling_legs: false
//	steps:
//	  - connect: { from: "Top/A:0", to: "Top/B:0" }
//	  - connect: { from: "Top/C:0", to: "Top/B:0" }
//	  - disconnect: { to: "Top/B:0" }
//	  - undo: { step: 3 }
//	  - remove: { node: "Top/M" }
//	    expect_error: INVALID_ENDPOINT
//	assertions:
//	  - type: link_exists
//	    from: "Top/C:0"
//	    to: "Top/B:0"
//	  - type: mutation_count
//	    op: remove_link
//	    count: 2
//
// Endpoints are "node:port"; "?" as the port picks a free one. Each step
// runs in its own journal transaction. undo names an earlier step by its
// 1-based index.
//
// # Assertion Types
//
//   - link_exists: from logically feeds to, through any boundary legs
//   - link_absent: to has no logical source (or none from from)
//   - structural_link: a direct host link, proxies included
//   - port_count: a node's in and/or out port count
//   - fan_in: no in-port has more than one source
//   - mutation_count: journal size, optionally of one op
//
// # Deterministic Testing
//
// Every run builds the scene anew and journals into an in-memory SQLite
// database with testutil.DeterministicClock and
// testutil.SequentialTxGenerator, so traces are byte-identical across runs
// and can be compared against golden files with RunWithGolden.
package harness
