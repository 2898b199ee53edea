package store

import (
	"context"
	"fmt"

	"github.com/roach88/nodelink/internal/ir"
)

// WriteTransaction inserts a transaction record, uncommitted.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteTransaction(ctx context.Context, tx ir.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, name, seq, committed, journal_version, tool_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		tx.ID,
		tx.Name,
		tx.Seq,
		boolInt(tx.Committed),
		ir.JournalVersion,
		ir.ToolVersion,
	)
	if err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	return nil
}

// CommitTransaction marks a transaction committed. Committing twice is a
// no-op; committing an unknown ID is an error.
func (s *Store) CommitTransaction(ctx context.Context, txID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET committed = 1 WHERE id = ?
	`, txID)
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("commit transaction: %s not found", txID)
	}
	return nil
}

// WriteMutation inserts a mutation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
//
// Note: The transaction referenced by TxID must exist (foreign key constraint).
func (s *Store) WriteMutation(ctx context.Context, m ir.Mutation) error {
	outJSON, err := marshalEndpoint(m.Out)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}
	inJSON, err := marshalEndpoint(m.In)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mutations
		(id, tx_id, seq, op, out_ep, in_ep, created_out_port, created_in_port, node)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		m.ID,
		m.TxID,
		m.Seq,
		string(m.Op),
		outJSON,
		inJSON,
		boolInt(m.CreatedOutPort),
		boolInt(m.CreatedInPort),
		string(m.Node),
	)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}
	return nil
}
