package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTxState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTx(t, s, "tx-1", 1)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-1", "tx-1", 2)))

	st, err := s.GetTxState(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", st.Transaction.ID)
	assert.Len(t, st.Mutations, 1)

	_, err = s.GetTxState(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOpenTransactions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writeTx(t, s, "done", 1)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-1", "done", 2)))
	require.NoError(t, s.CommitTransaction(ctx, "done"))

	writeTx(t, s, "crashed", 3)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-2", "crashed", 4)))

	open, err := s.FindOpenTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "crashed", open[0].Transaction.ID)
	assert.Len(t, open[0].Mutations, 1)
}

func TestReplayMutations_SkipsOpenTransactions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writeTx(t, s, "done", 1)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-1", "done", 2)))
	require.NoError(t, s.CommitTransaction(ctx, "done"))
	writeTx(t, s, "open", 3)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-2", "open", 4)))

	committed, err := s.ReplayMutations(ctx, false)
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, "m-1", committed[0].ID)

	all, err := s.ReplayMutations(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	writeTx(t, s, "tx-1", 1)
	require.NoError(t, s.WriteMutation(ctx, createTestMutation("m-1", "tx-1", 7)))
	writeTx(t, s, "tx-2", 5)

	seq, err = s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
