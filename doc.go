// Package streampay provides a streaming-payments escrow ledger for Go
// applications.
//
// StreamPay is designed as a library, not a service. A sender locks a
// fixed amount of an asset into a contract-held escrow pool at stream
// creation; the recipient's claimable balance grows linearly, block by
// block, from zero to the full amount over a configured duration. The
// recipient may withdraw any vested-but-unclaimed balance at any time,
// and the sender may cancel at any time, which settles the vested portion
// to the recipient and refunds the rest.
//
// # Quick Start
//
// Create a ledger instance with your preferred store and custody variant:
//
//	import (
//	    "github.com/xraph/streampay"
//	    "github.com/xraph/streampay/custody/native"
//	    "github.com/xraph/streampay/store/memory"
//	)
//
//	book := native.New("escrow-pool")
//	l := streampay.New(memory.New(), book, chain)
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// The chain argument is a BlockSource: the host's view of the current
// block height, the ledger's only notion of time.
//
// # Core Operations
//
// Create locks funds and opens a stream:
//
//	id, err := l.Create(ctx, "alice", "bob", 1_000_000, 100)
//
// Withdraw pays the recipient everything vested so far:
//
//	amount, err := l.Withdraw(ctx, id, "bob")
//
// Cancel settles and permanently deactivates the stream:
//
//	result, err := l.Cancel(ctx, id, "alice")
//	// result.RecipientReceived + result.SenderRefunded + prior
//	// withdrawals == total, always.
//
// # Two Asset Classes
//
// The same Ledger type serves both supported asset classes; only the
// custody mechanism differs. Run two instances side by side:
//
//	nativeLedger := streampay.New(memory.New(), native.New("pool"), chain)
//	tokenLedger := streampay.New(memory.New(), token.New(client, "pool"), chain)
//
// # Guarantees
//
// All arithmetic is integer-only; the vesting product is computed in
// 256-bit precision so it cannot overflow. Every operation is
// all-or-nothing: a failed custody transfer aborts the call with no
// record written or changed. Mutating operations on one ledger are
// serialized, so a withdrawal can never race a cancellation over the
// same vested balance.
//
// # Known Limitation
//
// The per-principal reverse indexes (streams by sender, streams by
// recipient) are capped at 50 entries; ids past the cap are silently
// dropped from the listing while the records themselves stay retrievable
// by id. The drop is surfaced through the OnIndexOverflow plugin hook and
// a warning log.
package streampay
