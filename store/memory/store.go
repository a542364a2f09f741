// Package memory provides an in-memory Store implementation, the
// reference backend for tests and single-process hosts.
package memory

import (
	"context"
	"sync"

	streampay "github.com/xraph/streampay"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps all records in process memory.
type Store struct {
	mu sync.RWMutex

	// Next stream id; equals the number of streams ever created.
	nonce uint64

	streams map[stream.ID]*stream.Stream
	indexes map[store.IndexKind]map[types.Principal][]stream.ID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		streams: make(map[stream.ID]*stream.Stream),
		indexes: map[store.IndexKind]map[types.Principal][]stream.ID{
			store.BySender:    make(map[types.Principal][]stream.ID),
			store.ByRecipient: make(map[types.Principal][]stream.ID),
		},
	}
}

// InsertStream implements store.Store.
func (s *Store) InsertStream(_ context.Context, rec *stream.Stream) (stream.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := stream.ID(s.nonce)
	s.nonce++
	rec.ID = id
	s.streams[id] = rec.Clone()
	return id, nil
}

// GetStream implements store.Store.
func (s *Store) GetStream(_ context.Context, id stream.ID) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.streams[id]; ok {
		return rec.Clone(), nil
	}
	return nil, streampay.ErrStreamNotFound
}

// UpdateStream implements store.Store.
func (s *Store) UpdateStream(_ context.Context, rec *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.streams[rec.ID]; !ok {
		return streampay.ErrStreamNotFound
	}
	s.streams[rec.ID] = rec.Clone()
	return nil
}

// AppendStreamIndex implements store.Store.
func (s *Store) AppendStreamIndex(_ context.Context, kind store.IndexKind, p types.Principal, id stream.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPrincipal := s.indexes[kind]
	if byPrincipal == nil {
		byPrincipal = make(map[types.Principal][]stream.ID)
		s.indexes[kind] = byPrincipal
	}

	list := byPrincipal[p]
	if len(list) >= store.MaxIndexEntries {
		// List is at capacity: the id is dropped, the list is unchanged.
		return false, nil
	}
	byPrincipal[p] = append(list, id)
	return true, nil
}

// StreamsByIndex implements store.Store.
func (s *Store) StreamsByIndex(_ context.Context, kind store.IndexKind, p types.Principal) ([]stream.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.indexes[kind][p]
	out := make([]stream.ID, len(list))
	copy(out, list)
	return out, nil
}

// StreamCount implements store.Store.
func (s *Store) StreamCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonce, nil
}

// Migrate implements store.Store. No-op for the memory backend.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping implements store.Store.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements store.Store.
func (s *Store) Close() error { return nil }
