package streampay_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streampay "github.com/xraph/streampay"
	"github.com/xraph/streampay/custody/native"
	"github.com/xraph/streampay/custody/token"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/store/memory"
	"github.com/xraph/streampay/stream"
)

const (
	sender    = streampay.Principal("alice")
	recipient = streampay.Principal("bob")
	outsider  = streampay.Principal("mallory")
)

// testChain is a manually advanced block source.
type testChain struct {
	height uint64
}

func (c *testChain) Height() uint64 { return c.height }

// newNativeLedger wires a ledger over the in-memory store and a native
// balance book seeded with funds for the sender.
func newNativeLedger(t *testing.T) (*streampay.Ledger, *native.Book, *testChain) {
	t.Helper()

	chain := &testChain{height: 100}
	book := native.New("escrow-pool")
	book.Credit(sender, 10_000_000)

	l := streampay.New(memory.New(), book, chain)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })

	return l, book, chain
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	l, book, _ := newNativeLedger(t)

	_, err := l.Create(ctx, sender, recipient, 0, 100)
	require.ErrorIs(t, err, streampay.ErrInvalidAmount)

	_, err = l.Create(ctx, sender, recipient, 1000, 0)
	require.ErrorIs(t, err, streampay.ErrInvalidDuration)

	// No record, no counter advance, no funds moved.
	count, err := l.StreamCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.EqualValues(t, 0, book.PoolBalance())
}

func TestCreateRejectsOverflowingDuration(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	// A duration that wraps the end block below the start block would
	// make the whole escrow claimable one block after creation.
	_, err := l.Create(ctx, sender, recipient, 1_000_000, math.MaxUint64)
	require.ErrorIs(t, err, streampay.ErrInvalidDuration)

	_, err = l.Create(ctx, sender, recipient, 1_000_000, math.MaxUint64-chain.height+1)
	require.ErrorIs(t, err, streampay.ErrInvalidDuration)

	// The longest duration that still fits is accepted.
	_, err = l.Create(ctx, sender, recipient, 1_000_000, math.MaxUint64-chain.height)
	require.NoError(t, err)

	// The rejected calls moved nothing and left no trace.
	count, err := l.StreamCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1_000_000, book.PoolBalance())
}

func TestCreateEscrowsFunds(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, id)

	assert.EqualValues(t, 1_000_000, book.PoolBalance())
	assert.EqualValues(t, 9_000_000, book.Balance(sender))

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sender, rec.Sender)
	assert.Equal(t, recipient, rec.Recipient)
	assert.EqualValues(t, chain.height, rec.StartBlock)
	assert.EqualValues(t, chain.height+100, rec.EndBlock)
	assert.EqualValues(t, 0, rec.Withdrawn)
	assert.True(t, rec.Active)

	senders, err := l.StreamsBySender(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, []stream.ID{id}, senders)

	recipients, err := l.StreamsByRecipient(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, []stream.ID{id}, recipients)
}

func TestCreateInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newNativeLedger(t)

	_, err := l.Create(ctx, sender, recipient, 10_000_001, 100)
	require.ErrorIs(t, err, streampay.ErrTransferFailed)

	var xferErr *streampay.TransferError
	require.ErrorAs(t, err, &xferErr)
	assert.Equal(t, streampay.TransferIn, xferErr.Direction)

	count, err := l.StreamCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestVestingScenario(t *testing.T) {
	ctx := context.Background()
	l, _, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	vested, err := l.VestedAmount(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, vested)

	chain.height += 50
	vested, err = l.VestedAmount(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 500_000, vested)

	progress, err := l.Progress(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 50, progress)

	chain.height += 100 // well past the end block
	vested, err = l.VestedAmount(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, vested)

	progress, err = l.Progress(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 100, progress)
}

func TestWithdrawPaysVestedBalance(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	chain.height += 50

	// The returned amount equals the withdrawable balance computed
	// immediately before the call: the height is read once per operation.
	withdrawable, err := l.WithdrawableAmount(ctx, id)
	require.NoError(t, err)

	paid, err := l.Withdraw(ctx, id, recipient)
	require.NoError(t, err)
	assert.Equal(t, withdrawable, paid)
	assert.EqualValues(t, 500_000, paid)
	assert.EqualValues(t, 500_000, book.Balance(recipient))
	assert.EqualValues(t, 500_000, book.PoolBalance())

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 500_000, rec.Withdrawn)
}

func TestWithdrawSameBlockIsDepleted(t *testing.T) {
	ctx := context.Background()
	l, _, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	chain.height += 50

	_, err = l.Withdraw(ctx, id, recipient)
	require.NoError(t, err)

	// Second withdraw in the same block: nothing new has vested.
	_, err = l.Withdraw(ctx, id, recipient)
	require.ErrorIs(t, err, streampay.ErrStreamDepleted)
}

func TestWithdrawAuthorization(t *testing.T) {
	ctx := context.Background()
	l, _, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	chain.height += 50

	_, err = l.Withdraw(ctx, id, outsider)
	require.ErrorIs(t, err, streampay.ErrNotRecipient)

	_, err = l.Withdraw(ctx, id, sender)
	require.ErrorIs(t, err, streampay.ErrNotRecipient)

	_, err = l.Withdraw(ctx, 99, recipient)
	require.ErrorIs(t, err, streampay.ErrStreamNotFound)
}

func TestWithdrawBeforeAnyVesting(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	_, err = l.Withdraw(ctx, id, recipient)
	require.ErrorIs(t, err, streampay.ErrStreamDepleted)
}

func TestCancelSplitsFundsExactly(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	chain.height += 25 // 25% vested

	res, err := l.Cancel(ctx, id, sender)
	require.NoError(t, err)
	assert.EqualValues(t, 250_000, res.RecipientReceived)
	assert.EqualValues(t, 750_000, res.SenderRefunded)
	assert.EqualValues(t, res.RecipientReceived+res.SenderRefunded, 1_000_000)

	assert.EqualValues(t, 250_000, book.Balance(recipient))
	assert.EqualValues(t, 9_750_000, book.Balance(sender))
	assert.EqualValues(t, 0, book.PoolBalance())

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.EqualValues(t, 250_000, rec.Withdrawn)
	assert.Equal(t, stream.StatusCancelled, rec.Status(chain.height))
}

func TestCancelAfterPartialWithdraw(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	chain.height += 30
	_, err = l.Withdraw(ctx, id, recipient)
	require.NoError(t, err)

	chain.height += 20 // 50% vested, 30% already withdrawn
	res, err := l.Cancel(ctx, id, sender)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, res.RecipientReceived)
	assert.EqualValues(t, 500_000, res.SenderRefunded)

	assert.EqualValues(t, 500_000, book.Balance(recipient))
	assert.EqualValues(t, 0, book.PoolBalance())
}

func TestCancelledStreamIsTerminal(t *testing.T) {
	ctx := context.Background()
	l, _, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	chain.height += 25

	_, err = l.Cancel(ctx, id, sender)
	require.NoError(t, err)

	chain.height += 25

	_, err = l.Withdraw(ctx, id, recipient)
	require.ErrorIs(t, err, streampay.ErrStreamNotActive)

	_, err = l.Cancel(ctx, id, sender)
	require.ErrorIs(t, err, streampay.ErrStreamNotActive)

	// Withdrawn is frozen at the cancellation-time vested amount.
	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 250_000, rec.Withdrawn)
}

func TestCancelledStreamQueriesAreFrozen(t *testing.T) {
	ctx := context.Background()
	l, _, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	chain.height += 25

	_, err = l.Cancel(ctx, id, sender)
	require.NoError(t, err)

	// Advancing the chain must not revive any claimable balance: the
	// settlement already paid out everything the stream will ever vest.
	chain.height += 50

	withdrawable, err := l.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, withdrawable)

	vested, err := l.VestedAmount(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 250_000, vested)

	progress, err := l.Progress(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 25, progress)
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	_, err = l.Cancel(ctx, id, outsider)
	require.ErrorIs(t, err, streampay.ErrNotSender)

	_, err = l.Cancel(ctx, id, recipient)
	require.ErrorIs(t, err, streampay.ErrNotSender)

	_, err = l.Cancel(ctx, 99, sender)
	require.ErrorIs(t, err, streampay.ErrStreamNotFound)
}

func TestCancelAtStartRefundsEverything(t *testing.T) {
	ctx := context.Background()
	l, book, _ := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	// Nothing vested: no recipient transfer happens at all.
	res, err := l.Cancel(ctx, id, sender)
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.RecipientReceived)
	assert.EqualValues(t, 1_000_000, res.SenderRefunded)
	assert.EqualValues(t, 10_000_000, book.Balance(sender))
	assert.EqualValues(t, 0, book.Balance(recipient))
}

func TestCancelAbortsWhenRefundTransferFails(t *testing.T) {
	ctx := context.Background()
	chain := &testChain{height: 100}
	stub := token.NewStubTransferrer()
	l := streampay.New(memory.New(), token.New(stub, "escrow-pool"), chain)
	require.NoError(t, l.Start(ctx))
	t.Cleanup(func() { _ = l.Stop() })

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	chain.height += 25

	// The recipient payout succeeds, the sender refund fails: the whole
	// call aborts and the record is untouched.
	stub.FailAfter(1, errors.New("token ledger unavailable"))
	_, err = l.Cancel(ctx, id, sender)
	require.ErrorIs(t, err, streampay.ErrTransferFailed)

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.EqualValues(t, 0, rec.Withdrawn)
}

func TestWithdrawAbortsWhenTransferFails(t *testing.T) {
	ctx := context.Background()
	chain := &testChain{height: 100}
	stub := token.NewStubTransferrer()
	l := streampay.New(memory.New(), token.New(stub, "escrow-pool"), chain)
	require.NoError(t, l.Start(ctx))
	t.Cleanup(func() { _ = l.Stop() })

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)
	chain.height += 50

	stub.FailWith(errors.New("token ledger unavailable"))
	_, err = l.Withdraw(ctx, id, recipient)
	require.ErrorIs(t, err, streampay.ErrTransferFailed)

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rec.Withdrawn)
	assert.True(t, rec.Active)
}

func TestQueriesOnMissingStream(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newNativeLedger(t)

	_, err := l.GetStream(ctx, 42)
	require.ErrorIs(t, err, streampay.ErrStreamNotFound)

	_, err = l.VestedAmount(ctx, 42)
	require.ErrorIs(t, err, streampay.ErrStreamNotFound)

	// Withdrawable is defined as 0 for a missing stream.
	amount, err := l.WithdrawableAmount(ctx, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 0, amount)

	_, err = l.Progress(ctx, 42)
	require.ErrorIs(t, err, streampay.ErrStreamNotFound)
}

func TestIndexCapDropsNewStreams(t *testing.T) {
	ctx := context.Background()
	chain := &testChain{height: 100}
	book := native.New("escrow-pool")
	book.Credit(sender, 1_000_000)

	overflow := &overflowRecorder{}
	l := streampay.New(memory.New(), book, chain, streampay.WithPlugin(overflow))
	require.NoError(t, l.Start(ctx))
	t.Cleanup(func() { _ = l.Stop() })

	total := store.MaxIndexEntries + 5
	var last stream.ID
	for i := 0; i < total; i++ {
		id, err := l.Create(ctx, sender, recipient, 1, 10)
		require.NoError(t, err)
		last = id
	}

	// Counter and records are complete; only the listings are capped.
	count, err := l.StreamCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, total, count)

	rec, err := l.GetStream(ctx, last)
	require.NoError(t, err)
	assert.EqualValues(t, last, rec.ID)

	ids, err := l.StreamsBySender(ctx, sender)
	require.NoError(t, err)
	assert.Len(t, ids, store.MaxIndexEntries)

	// Every dropped append was surfaced: 5 per index, 2 indexes.
	assert.EqualValues(t, 10, overflow.calls)
}

type overflowRecorder struct {
	calls int
}

func (o *overflowRecorder) Name() string { return "overflow-recorder" }

func (o *overflowRecorder) OnIndexOverflow(context.Context, string, string, uint64) error {
	o.calls++
	return nil
}

func TestStreamCompletesAfterFullWithdrawal(t *testing.T) {
	ctx := context.Background()
	l, book, chain := newNativeLedger(t)

	id, err := l.Create(ctx, sender, recipient, 1_000_000, 100)
	require.NoError(t, err)

	chain.height += 150
	paid, err := l.Withdraw(ctx, id, recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, paid)
	assert.EqualValues(t, 0, book.PoolBalance())

	rec, err := l.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.Equal(t, stream.StatusCompleted, rec.Status(chain.height))
	assert.EqualValues(t, 0, rec.EscrowBalance())
}
