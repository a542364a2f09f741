// Package native implements custody over the chain's native token: a
// direct balance transfer between an external principal and the custody
// account holding the escrow pool.
package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/streampay/custody"
	"github.com/xraph/streampay/types"
)

// compile-time interface check
var _ custody.Custody = (*Book)(nil)

// Book is an in-process native-token balance book. The escrow pool is an
// ordinary account on the book, owned by the custody principal given at
// construction. Each transfer debits and credits under one lock, so a
// failed transfer moves nothing.
type Book struct {
	mu       sync.RWMutex
	pool     types.Principal
	balances map[types.Principal]uint64
}

// New creates a balance book whose escrow pool is held by the given
// custody principal.
func New(pool types.Principal) *Book {
	return &Book{
		pool:     pool,
		balances: make(map[types.Principal]uint64),
	}
}

// Credit adds amount to a principal's balance. Hosts use it to mirror
// deposits arriving from the chain.
func (b *Book) Credit(p types.Principal, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[p] += amount
}

// Balance returns a principal's current balance.
func (b *Book) Balance(p types.Principal) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[p]
}

// PoolBalance returns the balance held in escrow.
func (b *Book) PoolBalance() uint64 {
	return b.Balance(b.pool)
}

// EscrowIn implements custody.Custody.
func (b *Book) EscrowIn(_ context.Context, from types.Principal, amount uint64) error {
	return b.transfer(from, b.pool, amount)
}

// EscrowOut implements custody.Custody.
func (b *Book) EscrowOut(_ context.Context, to types.Principal, amount uint64) error {
	return b.transfer(b.pool, to, amount)
}

func (b *Book) transfer(from, to types.Principal, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balances[from]
	if bal < amount {
		return fmt.Errorf("native: insufficient balance for %q: have %d, need %d", from, bal, amount)
	}
	b.balances[from] = bal - amount
	b.balances[to] += amount
	return nil
}
