package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nodelink/internal/ir"
)

// ErrNotFound is returned by single-record reads for a missing ID.
var ErrNotFound = errors.New("not found")

// ReadTransactions returns every transaction.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadTransactions(ctx context.Context) ([]ir.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, seq, committed
		FROM transactions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []ir.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// ReadTransaction returns one transaction by ID.
func (s *Store) ReadTransaction(ctx context.Context, id string) (ir.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, seq, committed
		FROM transactions
		WHERE id = ?
	`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Transaction{}, fmt.Errorf("read transaction %s: %w", id, ErrNotFound)
	}
	return tx, err
}

// ReadMutations returns the mutations of one transaction in seq order.
func (s *Store) ReadMutations(ctx context.Context, txID string) ([]ir.Mutation, error) {
	return s.queryMutations(ctx, `
		SELECT id, tx_id, seq, op, out_ep, in_ep, created_out_port, created_in_port, node
		FROM mutations
		WHERE tx_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, txID)
}

// ReadAllMutations returns every mutation in seq order.
func (s *Store) ReadAllMutations(ctx context.Context) ([]ir.Mutation, error) {
	return s.queryMutations(ctx, `
		SELECT id, tx_id, seq, op, out_ep, in_ep, created_out_port, created_in_port, node
		FROM mutations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

func (s *Store) queryMutations(ctx context.Context, query string, args ...any) ([]ir.Mutation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	muts := []ir.Mutation{}
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		muts = append(muts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return muts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (ir.Transaction, error) {
	var (
		tx        ir.Transaction
		committed int
	)
	if err := sc.Scan(&tx.ID, &tx.Name, &tx.Seq, &committed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Transaction{}, err
		}
		return ir.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Committed = committed != 0
	return tx, nil
}

func scanMutation(sc scanner) (ir.Mutation, error) {
	var (
		m                     ir.Mutation
		op, outJSON, inJSON   string
		node                  string
		createdOut, createdIn int
	)
	if err := sc.Scan(&m.ID, &m.TxID, &m.Seq, &op, &outJSON, &inJSON, &createdOut, &createdIn, &node); err != nil {
		return ir.Mutation{}, fmt.Errorf("scan mutation: %w", err)
	}

	out, err := unmarshalEndpoint(outJSON)
	if err != nil {
		return ir.Mutation{}, fmt.Errorf("scan mutation %s: %w", m.ID, err)
	}
	in, err := unmarshalEndpoint(inJSON)
	if err != nil {
		return ir.Mutation{}, fmt.Errorf("scan mutation %s: %w", m.ID, err)
	}

	m.Op = ir.MutationOp(op)
	m.Out = out
	m.In = in
	m.CreatedOutPort = createdOut != 0
	m.CreatedInPort = createdIn != 0
	m.Node = ir.Key(node)
	return m, nil
}
