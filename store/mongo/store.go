// Package mongo provides a Store implementation backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	streampay "github.com/xraph/streampay"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

// Collection name constants.
const (
	colStreams  = "streampay_streams"
	colIndexes  = "streampay_stream_index"
	colCounters = "streampay_counters"
)

const nonceCounter = "stream_nonce"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database.
type Store struct {
	db *mongo.Database
}

// New creates a MongoDB store over the given database. Call Migrate
// before first use.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates the indexes for the stream collections.
func (s *Store) Migrate(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "index_kind", Value: 1},
				{Key: "principal", Value: 1},
				{Key: "position", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := s.db.Collection(colIndexes).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("streampay/mongo: migrate %s indexes: %w", colIndexes, err)
	}
	return nil
}

// nextNonce post-increments the stream nonce and returns its prior value.
func (s *Store) nextNonce(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: nonceCounter}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("streampay/mongo: advance stream nonce: %w", err)
	}
	return doc.Value - 1, nil
}

// InsertStream implements store.Store. The nonce bump and the record
// insert run in one session transaction, so a failed insert also rolls
// the counter back and ids never gap. Requires a replica set or mongos.
func (s *Store) InsertStream(ctx context.Context, rec *stream.Stream) (stream.ID, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return 0, fmt.Errorf("streampay/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	res, err := session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		nonce, err := s.nextNonce(ctx)
		if err != nil {
			return nil, err
		}

		rec.ID = stream.ID(nonce)
		if _, err := s.db.Collection(colStreams).InsertOne(ctx, toStreamDoc(rec)); err != nil {
			return nil, fmt.Errorf("streampay/mongo: insert stream %d: %w", nonce, err)
		}
		return rec.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(stream.ID), nil
}

// GetStream implements store.Store.
func (s *Store) GetStream(ctx context.Context, id stream.ID) (*stream.Stream, error) {
	var doc streamDoc
	err := s.db.Collection(colStreams).FindOne(ctx,
		bson.D{{Key: "_id", Value: int64(id)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, streampay.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("streampay/mongo: get stream %d: %w", id, err)
	}
	return fromStreamDoc(&doc), nil
}

// UpdateStream implements store.Store.
func (s *Store) UpdateStream(ctx context.Context, rec *stream.Stream) error {
	res, err := s.db.Collection(colStreams).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: int64(rec.ID)}}, toStreamDoc(rec))
	if err != nil {
		return fmt.Errorf("streampay/mongo: update stream %d: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		return streampay.ErrStreamNotFound
	}
	return nil
}

// AppendStreamIndex implements store.Store.
func (s *Store) AppendStreamIndex(ctx context.Context, kind store.IndexKind, p types.Principal, id stream.ID) (bool, error) {
	filter := bson.D{
		{Key: "index_kind", Value: string(kind)},
		{Key: "principal", Value: p.String()},
	}

	n, err := s.db.Collection(colIndexes).CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("streampay/mongo: count index entries: %w", err)
	}
	if n >= store.MaxIndexEntries {
		// List is at capacity: the id is dropped, the collection is unchanged.
		return false, nil
	}

	doc := indexDoc{
		IndexKind: string(kind),
		Principal: p.String(),
		Position:  n,
		StreamID:  int64(id),
	}
	if _, err := s.db.Collection(colIndexes).InsertOne(ctx, doc); err != nil {
		return false, fmt.Errorf("streampay/mongo: append index entry: %w", err)
	}
	return true, nil
}

// StreamsByIndex implements store.Store.
func (s *Store) StreamsByIndex(ctx context.Context, kind store.IndexKind, p types.Principal) ([]stream.ID, error) {
	filter := bson.D{
		{Key: "index_kind", Value: string(kind)},
		{Key: "principal", Value: p.String()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cur, err := s.db.Collection(colIndexes).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("streampay/mongo: query index: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	ids := make([]stream.ID, 0)
	for cur.Next(ctx) {
		var doc indexDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("streampay/mongo: decode index entry: %w", err)
		}
		ids = append(ids, stream.ID(doc.StreamID))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("streampay/mongo: iterate index: %w", err)
	}
	return ids, nil
}

// StreamCount implements store.Store.
func (s *Store) StreamCount(ctx context.Context) (uint64, error) {
	var doc counterDoc
	err := s.db.Collection(colCounters).FindOne(ctx,
		bson.D{{Key: "_id", Value: nonceCounter}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("streampay/mongo: read stream nonce: %w", err)
	}
	return uint64(doc.Value), nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}
