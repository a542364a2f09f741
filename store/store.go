// Package store defines the storage interface for stream records.
package store

import (
	"context"

	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

// IndexKind names one of the two reverse indexes kept per store.
type IndexKind string

const (
	// BySender indexes stream ids by the funding party.
	BySender IndexKind = "by_sender"
	// ByRecipient indexes stream ids by the claiming party.
	ByRecipient IndexKind = "by_recipient"
)

// MaxIndexEntries bounds each per-principal reverse-index list. Appends
// past the bound are dropped, so a principal's history stays enumerable in
// a single read; the stream record itself remains retrievable by id. See
// AppendStreamIndex for the drop semantics.
const MaxIndexEntries = 50

// Store is the storage interface for one ledger instance: a monotonic id
// counter, the keyed stream records, and the two bounded reverse indexes.
// Implementations return ErrStreamNotFound from the root package for
// absent ids and must never hand out references to their own state.
type Store interface {
	// InsertStream allocates the next stream id from the store's monotonic
	// counter, stamps it on the record, and persists it. Ids are never
	// reused, even across failed ledger operations that follow.
	InsertStream(ctx context.Context, s *stream.Stream) (stream.ID, error)

	// GetStream returns a copy of the record with the given id.
	GetStream(ctx context.Context, id stream.ID) (*stream.Stream, error)

	// UpdateStream replaces the record with the given id. An absent id is
	// a caller bug; the ledger only updates records it has just read.
	UpdateStream(ctx context.Context, s *stream.Stream) error

	// AppendStreamIndex appends the id to the principal's list under the
	// given index. When the list is already at MaxIndexEntries the append
	// is dropped and the method returns false with a nil error; the list
	// stays at its maximum length and the id is not recorded. The bool
	// only feeds observability; the operation itself still succeeds.
	AppendStreamIndex(ctx context.Context, kind IndexKind, p types.Principal, id stream.ID) (bool, error)

	// StreamsByIndex returns the principal's bounded id list in creation
	// order. An unknown principal yields an empty list.
	StreamsByIndex(ctx context.Context, kind IndexKind, p types.Principal) ([]stream.ID, error)

	// StreamCount returns the current counter value: the number of streams
	// ever created.
	StreamCount(ctx context.Context) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
