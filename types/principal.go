// Package types provides common types used across StreamPay.
package types

// Principal identifies a party on the host chain: a stream's sender or
// recipient, or the custody account holding the escrow pool. Principals
// are opaque to the ledger; resolving them to on-chain addresses or
// display names is the host's concern.
type Principal string

// String returns the principal as a plain string.
func (p Principal) String() string { return string(p) }

// IsZero reports whether the principal is empty.
func (p Principal) IsZero() bool { return p == "" }
