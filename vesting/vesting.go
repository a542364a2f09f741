// Package vesting implements the linear release schedule shared by every
// stream: nothing is claimable before the start block, the full amount is
// claimable at the end block, and in between the claimable share grows
// proportionally with block height.
package vesting

import "github.com/holiman/uint256"

// Vested returns the portion of total that has vested at block now for a
// schedule running from start to end.
//
// The computation is integer-only and deterministic:
//
//	floor(total * (now - start) / (end - start))
//
// The intermediate product is taken in 256-bit arithmetic so it cannot
// overflow for any uint64 inputs. Callers must guarantee start < end;
// stream creation enforces a positive duration, so the division is safe.
func Vested(total, start, end, now uint64) uint64 {
	if now <= start {
		return 0
	}
	if now >= end {
		return total
	}
	v := new(uint256.Int).Mul(uint256.NewInt(total), uint256.NewInt(now-start))
	v.Div(v, uint256.NewInt(end-start))
	return v.Uint64()
}

// Progress returns the vested share as a whole percentage,
// floor(vested * 100 / total). A zero total yields 0; stored streams
// always carry a positive total, this only guards malformed input.
func Progress(vested, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	p := new(uint256.Int).Mul(uint256.NewInt(vested), uint256.NewInt(100))
	p.Div(p, uint256.NewInt(total))
	return p.Uint64()
}
