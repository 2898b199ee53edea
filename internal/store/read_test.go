package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/ir"
)

func TestReadTransactions_Empty(t *testing.T) {
	s := createTestStore(t)

	txs, err := s.ReadTransactions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestReadTransactions_DeterministicOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Written out of order; two share a seq and fall back to id order.
	writeTx(t, s, "tx-c", 3)
	writeTx(t, s, "tx-b", 1)
	writeTx(t, s, "tx-a", 1)

	txs, err := s.ReadTransactions(ctx)
	require.NoError(t, err)

	var ids []string
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"tx-a", "tx-b", "tx-c"}, ids)
}

func TestReadTransaction_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadMutations_ByTransaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)
	writeTx(t, s, "tx-2", 4)

	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-3", "tx-1", 3)))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-2", "tx-1", 2)))
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-5", "tx-2", 5)))

	muts, err := s.ReadMutations(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, muts, 2)
	assert.Equal(t, "m-2", muts[0].ID)
	assert.Equal(t, "m-3", muts[1].ID)

	all, err := s.ReadAllMutations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReadMutations_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)

	want := []ir.Mutation{
		{
			TxID: "tx-1", Seq: 2, Op: ir.OpRemoveLink,
			Out: ir.Endpoint{Node: "Top/G1/Multi-Port-In", Port: 1},
			In:  ir.Endpoint{Node: "Top/G1/Peg", Port: 0},
		},
		{
			TxID: "tx-1", Seq: 3, Op: ir.OpCreateLink,
			Out:            ir.Endpoint{Node: "Top/G1", Port: 2},
			In:             ir.Endpoint{Node: "Top/Comp", Port: 0},
			CreatedOutPort: true,
			CreatedInPort:  true,
		},
		{
			TxID: "tx-1", Seq: 4, Op: ir.OpDeleteNode,
			Out:  ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort},
			In:   ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort},
			Node: "Top/G1/Pass",
		},
	}
	for i := range want {
		want[i].ID = ir.MustMutationID(want[i])
		require.NoError(t, s.WriteMutation(ctx, want[i]))
	}

	got, err := s.ReadMutations(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
