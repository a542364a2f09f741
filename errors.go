package streampay

import (
	"errors"
	"fmt"

	"github.com/xraph/streampay/types"
)

// Sentinel errors for stream operation rejections. Every rejection covers
// the whole operation: no ledger state is mutated when any of these is
// returned.
var (
	// Validation errors
	ErrInvalidAmount   = errors.New("streampay: amount must be positive")
	ErrInvalidDuration = errors.New("streampay: duration must be positive")

	// Lookup errors
	ErrStreamNotFound = errors.New("streampay: stream not found")

	// Authorization errors
	ErrNotRecipient = errors.New("streampay: caller is not the stream recipient")
	ErrNotSender    = errors.New("streampay: caller is not the stream sender")

	// State errors
	ErrStreamNotActive = errors.New("streampay: stream has been cancelled")
	ErrStreamDepleted  = errors.New("streampay: no vested balance available")

	// Custody errors
	ErrTransferFailed = errors.New("streampay: custody transfer failed")
)

// TransferDirection names which custody movement failed.
type TransferDirection string

const (
	TransferIn  TransferDirection = "escrow_in"
	TransferOut TransferDirection = "escrow_out"
)

// TransferError reports a failed custody transfer. It matches
// ErrTransferFailed under errors.Is, so hosts can branch on the class
// while still surfacing the underlying cause to the end user.
type TransferError struct {
	Direction TransferDirection
	Principal types.Principal // external party of the failed movement
	Amount    uint64
	Err       error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return fmt.Sprintf("streampay: %s of %d for %q failed: %v", e.Direction, e.Amount, e.Principal, e.Err)
}

// Unwrap returns the underlying custody failure.
func (e *TransferError) Unwrap() error { return e.Err }

// Is reports whether target matches this error's class.
func (e *TransferError) Is(target error) bool { return target == ErrTransferFailed }
