package mongo

import (
	"time"

	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

// streamDoc is the persisted shape of a stream record. Amounts and block
// heights are stored as int64; the ledger's uint64 values fit the signed
// range for every realistic asset supply.
type streamDoc struct {
	ID          int64     `bson:"_id"`
	Sender      string    `bson:"sender"`
	Recipient   string    `bson:"recipient"`
	TotalAmount int64     `bson:"total_amount"`
	Withdrawn   int64     `bson:"withdrawn"`
	StartBlock  int64     `bson:"start_block"`
	EndBlock    int64     `bson:"end_block"`
	Active      bool      `bson:"active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toStreamDoc(rec *stream.Stream) *streamDoc {
	return &streamDoc{
		ID:          int64(rec.ID),
		Sender:      rec.Sender.String(),
		Recipient:   rec.Recipient.String(),
		TotalAmount: int64(rec.TotalAmount),
		Withdrawn:   int64(rec.Withdrawn),
		StartBlock:  int64(rec.StartBlock),
		EndBlock:    int64(rec.EndBlock),
		Active:      rec.Active,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func fromStreamDoc(doc *streamDoc) *stream.Stream {
	return &stream.Stream{
		Entity:      types.Entity{CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt},
		ID:          stream.ID(doc.ID),
		Sender:      types.Principal(doc.Sender),
		Recipient:   types.Principal(doc.Recipient),
		TotalAmount: uint64(doc.TotalAmount),
		Withdrawn:   uint64(doc.Withdrawn),
		StartBlock:  uint64(doc.StartBlock),
		EndBlock:    uint64(doc.EndBlock),
		Active:      doc.Active,
	}
}

// indexDoc is one reverse-index entry.
type indexDoc struct {
	IndexKind string `bson:"index_kind"`
	Principal string `bson:"principal"`
	Position  int64  `bson:"position"`
	StreamID  int64  `bson:"stream_id"`
}

// counterDoc holds a named monotonic counter.
type counterDoc struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}
