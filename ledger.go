package streampay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/xraph/streampay/custody"
	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
	"github.com/xraph/streampay/vesting"
)

// Ledger is the escrow state machine for one asset class. Hosts run two
// instances side by side, one over native custody and one over token
// custody, with identical vesting math and transition rules.
//
// Every mutating operation executes as a single critical section: the
// block height is read once, the vested/available computation and the
// record update form one read-modify-write step, and a per-ledger lock
// serializes them. Custody transfers happen inside the critical section
// and before any record mutation, so a failed transfer leaves the ledger
// exactly as it was.
type Ledger struct {
	store   store.Store
	custody custody.Custody
	blocks  types.BlockSource
	plugins *plugin.Registry
	logger  *slog.Logger

	// Serializes create/withdraw/cancel. Read queries go straight to
	// the store.
	mu sync.Mutex
}

// New creates a Ledger over the given store, custody mechanism, and
// block source.
func New(s store.Store, c custody.Custody, blocks types.BlockSource, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		custody: c,
		blocks:  blocks,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("streampay ledger started", "block", l.blocks.Height())
	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// CancelResult reports how a cancelled stream's remaining escrow was
// split between the two parties. The two amounts plus what was withdrawn
// before cancellation always sum to the stream's total.
type CancelResult struct {
	RecipientReceived uint64 `json:"recipient_received"`
	SenderRefunded    uint64 `json:"sender_refunded"`
}

// ──────────────────────────────────────────────────
// State transitions
// ──────────────────────────────────────────────────

// Create locks totalAmount of the sender's funds into escrow and opens a
// stream vesting linearly to the recipient over durationBlocks, starting
// at the current block. Returns the new stream's id. A zero duration, or
// one whose end block would exceed the maximum height, is rejected with
// ErrInvalidDuration.
//
// The deposit is escrowed before anything is recorded: if the custody
// transfer fails, no record exists and the id counter has not advanced.
func (l *Ledger) Create(ctx context.Context, sender, recipient types.Principal, totalAmount, durationBlocks uint64) (stream.ID, error) {
	if totalAmount == 0 {
		return 0, ErrInvalidAmount
	}
	if durationBlocks == 0 {
		return 0, ErrInvalidDuration
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.blocks.Height()
	end := now + durationBlocks
	if end < now {
		// The end block must stay above the start block; a duration that
		// wraps past the maximum height would invert the schedule.
		return 0, ErrInvalidDuration
	}

	if err := l.custody.EscrowIn(ctx, sender, totalAmount); err != nil {
		return 0, &TransferError{Direction: TransferIn, Principal: sender, Amount: totalAmount, Err: err}
	}

	rec := &stream.Stream{
		Entity:      types.NewEntity(),
		Sender:      sender,
		Recipient:   recipient,
		TotalAmount: totalAmount,
		StartBlock:  now,
		EndBlock:    end,
		Active:      true,
	}

	id, err := l.store.InsertStream(ctx, rec)
	if err != nil {
		return 0, err
	}

	l.appendIndex(ctx, store.BySender, sender, id)
	l.appendIndex(ctx, store.ByRecipient, recipient, id)

	l.logger.Info("stream created",
		"stream_id", uint64(id),
		"sender", sender.String(),
		"recipient", recipient.String(),
		"total_amount", totalAmount,
		"start_block", rec.StartBlock,
		"end_block", rec.EndBlock,
	)
	l.plugins.EmitStreamCreated(ctx, rec)

	return id, nil
}

// Withdraw pays the caller every vested-but-unclaimed unit of the stream
// and returns the amount paid. Only the stream's recipient may withdraw,
// and only while the stream is active.
func (l *Ledger) Withdraw(ctx context.Context, id stream.ID, caller types.Principal) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.store.GetStream(ctx, id)
	if err != nil {
		return 0, err
	}
	if caller != rec.Recipient {
		return 0, ErrNotRecipient
	}
	if !rec.Active {
		return 0, ErrStreamNotActive
	}

	now := l.blocks.Height()
	vested := rec.Vested(now)
	if vested <= rec.Withdrawn {
		return 0, ErrStreamDepleted
	}
	available := vested - rec.Withdrawn

	if err := l.custody.EscrowOut(ctx, rec.Recipient, available); err != nil {
		return 0, &TransferError{Direction: TransferOut, Principal: rec.Recipient, Amount: available, Err: err}
	}

	// Absolute high-water mark, not an increment: repeated withdrawals
	// can never drift past the vested amount.
	rec.Withdrawn = vested
	rec.Touch()
	if err := l.store.UpdateStream(ctx, rec); err != nil {
		return 0, err
	}

	l.logger.Info("stream withdrawal",
		"stream_id", uint64(id),
		"recipient", rec.Recipient.String(),
		"amount", available,
		"withdrawn", rec.Withdrawn,
		"block", now,
	)
	l.plugins.EmitWithdrawal(ctx, rec, available)

	return available, nil
}

// Cancel settles the stream at the current block and deactivates it
// permanently: the vested-but-unclaimed portion goes to the recipient,
// the unvested remainder returns to the sender. Only the stream's sender
// may cancel, and only while the stream is active.
//
// Both settlement transfers execute before the record is touched; if
// either fails the whole call aborts and the stream stays exactly as it
// was.
func (l *Ledger) Cancel(ctx context.Context, id stream.ID, caller types.Principal) (CancelResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.store.GetStream(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}
	if caller != rec.Sender {
		return CancelResult{}, ErrNotSender
	}
	if !rec.Active {
		return CancelResult{}, ErrStreamNotActive
	}

	now := l.blocks.Height()
	vested := rec.Vested(now)
	res := CancelResult{
		RecipientReceived: vested - rec.Withdrawn,
		SenderRefunded:    rec.TotalAmount - vested,
	}

	if res.RecipientReceived > 0 {
		if err := l.custody.EscrowOut(ctx, rec.Recipient, res.RecipientReceived); err != nil {
			return CancelResult{}, &TransferError{Direction: TransferOut, Principal: rec.Recipient, Amount: res.RecipientReceived, Err: err}
		}
	}
	if res.SenderRefunded > 0 {
		if err := l.custody.EscrowOut(ctx, rec.Sender, res.SenderRefunded); err != nil {
			return CancelResult{}, &TransferError{Direction: TransferOut, Principal: rec.Sender, Amount: res.SenderRefunded, Err: err}
		}
	}

	rec.Active = false
	rec.Withdrawn = vested
	rec.Touch()
	if err := l.store.UpdateStream(ctx, rec); err != nil {
		return CancelResult{}, err
	}

	l.logger.Info("stream cancelled",
		"stream_id", uint64(id),
		"sender", rec.Sender.String(),
		"recipient_received", res.RecipientReceived,
		"sender_refunded", res.SenderRefunded,
		"block", now,
	)
	l.plugins.EmitStreamCanceled(ctx, rec, res.RecipientReceived, res.SenderRefunded)

	return res, nil
}

// appendIndex records the id on a reverse index, surfacing the bounded
// list's silent drop through the log and the OnIndexOverflow hook.
func (l *Ledger) appendIndex(ctx context.Context, kind store.IndexKind, p types.Principal, id stream.ID) {
	appended, err := l.store.AppendStreamIndex(ctx, kind, p, id)
	if err != nil {
		l.logger.Error("stream index append failed",
			"index", string(kind),
			"principal", p.String(),
			"stream_id", uint64(id),
			"error", err,
		)
		return
	}
	if !appended {
		// The bounded list is full (store.MaxIndexEntries). The stream
		// stays retrievable by id; only the listing loses visibility.
		l.logger.Warn("stream index at capacity, id not recorded",
			"index", string(kind),
			"principal", p.String(),
			"stream_id", uint64(id),
		)
		l.plugins.EmitIndexOverflow(ctx, string(kind), p.String(), uint64(id))
	}
}

// ──────────────────────────────────────────────────
// Read-only queries
// ──────────────────────────────────────────────────

// GetStream returns the stream record by id.
func (l *Ledger) GetStream(ctx context.Context, id stream.ID) (*stream.Stream, error) {
	return l.store.GetStream(ctx, id)
}

// VestedAmount returns the amount vested at the current block height.
// Cancellation freezes the schedule: a cancelled stream reports the
// amount vested when it was settled, not what the formula would have
// reached since.
func (l *Ledger) VestedAmount(ctx context.Context, id stream.ID) (uint64, error) {
	rec, err := l.store.GetStream(ctx, id)
	if err != nil {
		return 0, err
	}
	if !rec.Active {
		return rec.Withdrawn, nil
	}
	return rec.Vested(l.blocks.Height()), nil
}

// WithdrawableAmount returns the vested-but-unclaimed balance at the
// current block height, or 0 for a stream that does not exist.
func (l *Ledger) WithdrawableAmount(ctx context.Context, id stream.ID) (uint64, error) {
	rec, err := l.store.GetStream(ctx, id)
	if err != nil {
		if errors.Is(err, ErrStreamNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Withdrawable(l.blocks.Height()), nil
}

// Progress returns the stream's vested share as a whole percentage at
// the current block height. Like VestedAmount, it stops advancing once
// the stream is cancelled.
func (l *Ledger) Progress(ctx context.Context, id stream.ID) (uint64, error) {
	rec, err := l.store.GetStream(ctx, id)
	if err != nil {
		return 0, err
	}
	vested := rec.Withdrawn
	if rec.Active {
		vested = rec.Vested(l.blocks.Height())
	}
	return vesting.Progress(vested, rec.TotalAmount), nil
}

// StreamsBySender returns the sender's bounded list of stream ids in
// creation order.
func (l *Ledger) StreamsBySender(ctx context.Context, sender types.Principal) ([]stream.ID, error) {
	return l.store.StreamsByIndex(ctx, store.BySender, sender)
}

// StreamsByRecipient returns the recipient's bounded list of stream ids
// in creation order.
func (l *Ledger) StreamsByRecipient(ctx context.Context, recipient types.Principal) ([]stream.ID, error) {
	return l.store.StreamsByIndex(ctx, store.ByRecipient, recipient)
}

// StreamCount returns the number of streams ever created on this ledger.
func (l *Ledger) StreamCount(ctx context.Context) (uint64, error) {
	return l.store.StreamCount(ctx)
}
