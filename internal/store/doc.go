// Package store provides SQLite-backed durable storage for the mutation
// journal.
//
// Two append-only tables:
//   - transactions: named groups of mutations, flagged once committed
//   - mutations: create_link, remove_link and delete_node records
//
// Ordering uses the logical seq column and never wall time. Every read
// orders by seq ASC, id ASC COLLATE BINARY so replays see identical
// sequences.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Mutation IDs are content addressed (see ir.MutationID), so writing the
// same record twice is a no-op.
package store
