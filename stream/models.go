// Package stream defines the escrow stream record and its derived state.
package stream

import (
	"github.com/xraph/streampay/types"
	"github.com/xraph/streampay/vesting"
)

// ID is the per-ledger sequence number assigned to a stream at creation.
// IDs are allocated monotonically and never reused.
type ID uint64

// Status is the derived lifecycle state of a stream.
type Status string

const (
	// StatusStreaming is an active stream with funds still vesting or
	// still unclaimed.
	StatusStreaming Status = "streaming"
	// StatusCompleted is an active stream that is fully withdrawn and past
	// its end block. It is never stored; it is derived.
	StatusCompleted Status = "completed"
	// StatusCancelled is the stored terminal state set by the sender.
	StatusCancelled Status = "cancelled"
)

// Stream is an escrow record for one sender-to-recipient value transfer
// vesting linearly over a block range. All amounts are in the smallest
// indivisible unit of the ledger's asset.
//
// Sender, Recipient, TotalAmount, StartBlock, and EndBlock are immutable
// after creation. Withdrawn only ever grows, bounded by the vested amount.
// Active flips to false exactly once, on cancellation, and never back.
type Stream struct {
	types.Entity
	ID          ID              `json:"id"`
	Sender      types.Principal `json:"sender"`
	Recipient   types.Principal `json:"recipient"`
	TotalAmount uint64          `json:"total_amount"`
	Withdrawn   uint64          `json:"withdrawn"`
	StartBlock  uint64          `json:"start_block"`
	EndBlock    uint64          `json:"end_block"`
	Active      bool            `json:"active"`
}

// Vested returns the amount vested at the given block height.
func (s *Stream) Vested(now uint64) uint64 {
	return vesting.Vested(s.TotalAmount, s.StartBlock, s.EndBlock, now)
}

// Withdrawable returns the vested-but-unclaimed balance at the given
// block height. A cancelled stream has nothing left to claim: its
// settlement already paid out everything vested at cancellation.
func (s *Stream) Withdrawable(now uint64) uint64 {
	if !s.Active {
		return 0
	}
	v := s.Vested(now)
	if v <= s.Withdrawn {
		return 0
	}
	return v - s.Withdrawn
}

// EscrowBalance returns the share of the escrow pool still attributable to
// this stream: total minus withdrawn while active, zero once cancelled.
func (s *Stream) EscrowBalance() uint64 {
	if !s.Active {
		return 0
	}
	return s.TotalAmount - s.Withdrawn
}

// Status derives the lifecycle state at the given block height. There is
// no stored completed flag; a stream is completed once it is fully
// withdrawn and past its end block.
func (s *Stream) Status(now uint64) Status {
	if !s.Active {
		return StatusCancelled
	}
	if s.Withdrawn == s.TotalAmount && now >= s.EndBlock {
		return StatusCompleted
	}
	return StatusStreaming
}

// Clone returns a copy of the record. Stores hand out clones so callers
// never alias store-owned state.
func (s *Stream) Clone() *Stream {
	c := *s
	return &c
}
