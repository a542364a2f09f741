// Package custody defines the capability the ledger uses to move value
// between external principals and its escrow pool.
package custody

import (
	"context"

	"github.com/xraph/streampay/types"
)

// Custody moves value between an external principal and the escrow pool
// owned by the ledger. Two variants exist: native-token custody transfers
// balances on the ledger's own book, token custody delegates to an
// external token ledger.
//
// Transfers are synchronous and all-or-nothing: a nil return means the
// full amount has moved, an error means nothing moved. The ledger aborts
// the whole enclosing operation on any custody error, so implementations
// must never partially apply a transfer.
type Custody interface {
	// EscrowIn moves amount from the principal into the escrow pool.
	EscrowIn(ctx context.Context, from types.Principal, amount uint64) error

	// EscrowOut moves amount from the escrow pool to the principal.
	EscrowOut(ctx context.Context, to types.Principal, amount uint64) error
}
