package types

// BlockSource reports the current block height of the execution
// environment. Block height is the ledger's only notion of time: a
// monotonically non-decreasing counter the ledger reads but never
// advances. Each ledger operation reads the height exactly once.
type BlockSource interface {
	Height() uint64
}

// BlockSourceFunc is an adapter to use a plain function as a BlockSource.
type BlockSourceFunc func() uint64

// Height implements BlockSource.
func (f BlockSourceFunc) Height() uint64 { return f() }
