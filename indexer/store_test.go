package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/types"
)

var depositAmount = uint256.NewInt(100_000_000_000_000)

func testEvent(seq uint64) *types.DepositEvent {
	var c types.Commitment
	c[31] = byte(seq)
	c[0] = 0xab
	return &types.DepositEvent{Commitment: c, Amount: depositAmount, DepositCount: seq}
}

func TestStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, last)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, s.Add(ctx, testEvent(i)))
	}
	// already indexed events are ignored
	require.NoError(t, s.Add(ctx, testEvent(2)))

	last, err = s.LastSeq(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, last)

	rec, found, err := s.Commitment(ctx, testEvent(2).Commitment)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 2, rec.Seq)
	require.Equal(t, "100000000000000", rec.Amount)

	_, found, err = s.Commitment(ctx, testEvent(9).Commitment)
	require.NoError(t, err)
	require.False(t, found)

	recs, err := s.Records(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.EqualValues(t, 2, recs[0].Seq)
	require.EqualValues(t, 3, recs[1].Seq)
}

func TestStore_SequenceGap(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(context.Background(), testEvent(1)))
	require.ErrorIs(t, s.Add(context.Background(), testEvent(3)), ErrSequenceGap)
}

func TestStore_Reopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "index", "index.db")
	s, err := OpenStore(file)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), testEvent(1)))
	require.NoError(t, s.Close())

	s, err = OpenStore(file)
	require.NoError(t, err)
	defer s.Close()
	last, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, last)
}
