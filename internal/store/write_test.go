package store

import (
	"context"
	"testing"

	"github.com/roach88/nodelink/internal/ir"
)

func TestWriteTransaction_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := ir.Transaction{ID: "tx-1", Name: "connect A to B", Seq: 1}
	if err := s.WriteTransaction(ctx, tx); err != nil {
		t.Fatalf("WriteTransaction() failed: %v", err)
	}

	var name, journalVersion, toolVersion string
	var seq int64
	var committed int
	err := s.db.QueryRow(`
		SELECT name, seq, committed, journal_version, tool_version
		FROM transactions WHERE id = ?
	`, tx.ID).Scan(&name, &seq, &committed, &journalVersion, &toolVersion)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if name != tx.Name {
		t.Errorf("name = %q, want %q", name, tx.Name)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if committed != 0 {
		t.Errorf("committed = %d, want 0", committed)
	}
	if journalVersion != ir.JournalVersion || toolVersion != ir.ToolVersion {
		t.Errorf("versions = %q/%q, want %q/%q", journalVersion, toolVersion, ir.JournalVersion, ir.ToolVersion)
	}
}

func TestWriteTransaction_Idempotent(t *testing.T) {
	s := createTestStore(t)
	writeTx(t, s, "tx-1", 1)
	writeTx(t, s, "tx-1", 1)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestCommitTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)

	if err := s.CommitTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("CommitTransaction() failed: %v", err)
	}
	// Second commit matches the row again and is fine.
	if err := s.CommitTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("second CommitTransaction() failed: %v", err)
	}

	tx, err := s.ReadTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("ReadTransaction() failed: %v", err)
	}
	if !tx.Committed {
		t.Error("Committed = false after commit")
	}

	if err := s.CommitTransaction(ctx, "missing"); err == nil {
		t.Error("expected error committing unknown transaction")
	}
}

func TestWriteMutation_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)

	m := createTestMutation("m-1", "tx-1", 2)
	m.CreatedInPort = true
	if err := s.WriteMutation(ctx, m); err != nil {
		t.Fatalf("WriteMutation() failed: %v", err)
	}

	var op, outJSON, inJSON string
	var createdOut, createdIn int
	err := s.db.QueryRow(`
		SELECT op, out_ep, in_ep, created_out_port, created_in_port
		FROM mutations WHERE id = ?
	`, m.ID).Scan(&op, &outJSON, &inJSON, &createdOut, &createdIn)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if op != "create_link" {
		t.Errorf("op = %q, want create_link", op)
	}
	if outJSON != `{"node":"Top/A","port":0}` {
		t.Errorf("out_ep = %s", outJSON)
	}
	if inJSON != `{"node":"Top/B","port":0}` {
		t.Errorf("in_ep = %s", inJSON)
	}
	if createdOut != 0 || createdIn != 1 {
		t.Errorf("created ports = %d/%d, want 0/1", createdOut, createdIn)
	}
}

func TestWriteMutation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)

	m := createTestMutation("m-1", "tx-1", 2)
	for i := 0; i < 2; i++ {
		if err := s.WriteMutation(ctx, m); err != nil {
			t.Fatalf("WriteMutation() #%d failed: %v", i, err)
		}
	}

	muts, err := s.ReadAllMutations(ctx)
	if err != nil {
		t.Fatalf("ReadAllMutations() failed: %v", err)
	}
	if len(muts) != 1 {
		t.Errorf("len = %d, want 1", len(muts))
	}
}
