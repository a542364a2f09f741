package token

import (
	"context"
	"sync"

	"github.com/xraph/streampay/types"
)

// StubTransferrer is an in-memory Transferrer for tests and dry wiring.
// It records every transfer and can be told to fail, either always or
// starting from the nth call.
type StubTransferrer struct {
	mu        sync.Mutex
	calls     []StubTransfer
	failErr   error
	failAfter int // fail calls with index >= failAfter when failErr is set
}

// StubTransfer is one recorded transfer.
type StubTransfer struct {
	From   types.Principal
	To     types.Principal
	Amount uint64
}

// NewStubTransferrer creates a stub that accepts every transfer.
func NewStubTransferrer() *StubTransferrer {
	return &StubTransferrer{}
}

// FailWith makes every subsequent transfer return err.
func (s *StubTransferrer) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
	s.failAfter = 0
}

// FailAfter lets n more transfers succeed, then returns err for the rest.
func (s *StubTransferrer) FailAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
	s.failAfter = len(s.calls) + n
}

// Calls returns the transfers recorded so far, including failed attempts.
func (s *StubTransferrer) Calls() []StubTransfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubTransfer, len(s.calls))
	copy(out, s.calls)
	return out
}

// Transfer implements Transferrer.
func (s *StubTransferrer) Transfer(_ context.Context, from, to types.Principal, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.calls)
	s.calls = append(s.calls, StubTransfer{From: from, To: to, Amount: amount})
	if s.failErr != nil && idx >= s.failAfter {
		return s.failErr
	}
	return nil
}
