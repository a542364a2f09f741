package native

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookEscrowRoundTrip(t *testing.T) {
	ctx := context.Background()
	book := New("escrow-pool")
	book.Credit("alice", 1000)

	require.NoError(t, book.EscrowIn(ctx, "alice", 600))
	assert.EqualValues(t, 400, book.Balance("alice"))
	assert.EqualValues(t, 600, book.PoolBalance())

	require.NoError(t, book.EscrowOut(ctx, "bob", 250))
	assert.EqualValues(t, 250, book.Balance("bob"))
	assert.EqualValues(t, 350, book.PoolBalance())
}

func TestBookInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	book := New("escrow-pool")
	book.Credit("alice", 100)

	err := book.EscrowIn(ctx, "alice", 101)
	require.Error(t, err)

	// Nothing moved.
	assert.EqualValues(t, 100, book.Balance("alice"))
	assert.EqualValues(t, 0, book.PoolBalance())
}

func TestBookEscrowOutEmptyPool(t *testing.T) {
	ctx := context.Background()
	book := New("escrow-pool")

	require.Error(t, book.EscrowOut(ctx, "bob", 1))
	assert.EqualValues(t, 0, book.Balance("bob"))
}
