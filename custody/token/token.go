// Package token implements custody over a fungible token managed by an
// external token ledger. Escrow movements delegate to the token ledger's
// transfer entry point, from the depositing principal to the custody
// account and back out to a named recipient. No memo is attached.
package token

import (
	"context"
	"fmt"

	"github.com/xraph/streampay/custody"
	"github.com/xraph/streampay/types"
)

// Transferrer is the slice of the external token ledger the custody layer
// needs. It is defined locally so this package does not depend on any
// concrete token client; hosts inject an adapter at wiring time.
type Transferrer interface {
	Transfer(ctx context.Context, from, to types.Principal, amount uint64) error
}

// TransferrerFunc is an adapter to use a plain function as a Transferrer.
type TransferrerFunc func(ctx context.Context, from, to types.Principal, amount uint64) error

// Transfer implements Transferrer.
func (f TransferrerFunc) Transfer(ctx context.Context, from, to types.Principal, amount uint64) error {
	return f(ctx, from, to, amount)
}

// compile-time interface check
var _ custody.Custody = (*Custody)(nil)

// Custody moves a fungible token in and out of escrow through an external
// token ledger.
type Custody struct {
	token Transferrer
	pool  types.Principal
}

// New creates token custody whose escrow pool is held by the given
// custody principal on the external token ledger.
func New(token Transferrer, pool types.Principal) *Custody {
	return &Custody{token: token, pool: pool}
}

// Pool returns the custody principal holding the escrow pool.
func (c *Custody) Pool() types.Principal { return c.pool }

// EscrowIn implements custody.Custody.
func (c *Custody) EscrowIn(ctx context.Context, from types.Principal, amount uint64) error {
	if err := c.token.Transfer(ctx, from, c.pool, amount); err != nil {
		return fmt.Errorf("token: escrow in %d from %q: %w", amount, from, err)
	}
	return nil
}

// EscrowOut implements custody.Custody.
func (c *Custody) EscrowOut(ctx context.Context, to types.Principal, amount uint64) error {
	if err := c.token.Transfer(ctx, c.pool, to, amount); err != nil {
		return fmt.Errorf("token: escrow out %d to %q: %w", amount, to, err)
	}
	return nil
}
