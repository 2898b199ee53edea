package store

import (
	"context"
	"fmt"

	"github.com/roach88/nodelink/internal/ir"
)

// TxState is a transaction together with its mutations.
type TxState struct {
	Transaction ir.Transaction
	Mutations   []ir.Mutation
}

// GetTxState returns a transaction and its mutations.
func (s *Store) GetTxState(ctx context.Context, txID string) (TxState, error) {
	tx, err := s.ReadTransaction(ctx, txID)
	if err != nil {
		return TxState{}, fmt.Errorf("get tx state: %w", err)
	}
	muts, err := s.ReadMutations(ctx, txID)
	if err != nil {
		return TxState{}, fmt.Errorf("get tx state: %w", err)
	}
	return TxState{Transaction: tx, Mutations: muts}, nil
}

// FindOpenTransactions returns transactions that were begun but never
// committed, typically because the process died mid-surgery. Their
// mutations reached the scene and need inspecting or undoing.
func (s *Store) FindOpenTransactions(ctx context.Context) ([]TxState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM transactions
		WHERE committed = 0
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find open transactions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("find open transactions: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("find open transactions: %w", err)
	}
	rows.Close()

	states := []TxState{}
	for _, id := range ids {
		st, err := s.GetTxState(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

// ReplayMutations returns the mutations to re-apply onto a freshly built
// scene, in seq order. Uncommitted transactions are included only when
// includeOpen is set.
func (s *Store) ReplayMutations(ctx context.Context, includeOpen bool) ([]ir.Mutation, error) {
	if includeOpen {
		return s.ReadAllMutations(ctx)
	}
	return s.queryMutations(ctx, `
		SELECT m.id, m.tx_id, m.seq, m.op, m.out_ep, m.in_ep, m.created_out_port, m.created_in_port, m.node
		FROM mutations m
		JOIN transactions t ON m.tx_id = t.id
		WHERE t.committed = 1
		ORDER BY m.seq ASC, m.id COLLATE BINARY ASC
	`)
}

// GetLastSeq returns the highest seq number used in the store.
// Used to resume the logical clock with history.NewClockAt.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(seq) FROM transactions), 0),
			COALESCE((SELECT MAX(seq) FROM mutations), 0)
		)
	`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return last, nil
}
