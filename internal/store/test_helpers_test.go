package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/nodelink/internal/ir"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeTx writes an uncommitted transaction.
func writeTx(t *testing.T, s *Store, id string, seq int64) {
	t.Helper()
	tx := ir.Transaction{ID: id, Name: "tx " + id, Seq: seq}
	if err := s.WriteTransaction(context.Background(), tx); err != nil {
		t.Fatalf("WriteTransaction(%s) failed: %v", id, err)
	}
}

// createTestMutation creates a create_link mutation Top/A[0] -> Top/B[0].
func createTestMutation(id, txID string, seq int64) ir.Mutation {
	return ir.Mutation{
		ID:   id,
		TxID: txID,
		Seq:  seq,
		Op:   ir.OpCreateLink,
		Out:  ir.Endpoint{Node: "Top/A", Port: 0},
		In:   ir.Endpoint{Node: "Top/B", Port: 0},
	}
}
