// Package sqlite provides a Store implementation backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration

	streampay "github.com/xraph/streampay"
	"github.com/xraph/streampay/store"
	"github.com/xraph/streampay/stream"
	"github.com/xraph/streampay/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens a SQLite store at the given path (":memory:" for an
// in-memory database). Call Migrate before first use.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: open %s: %w", path, err)
	}
	// The ledger serializes writers; a single connection keeps the
	// in-memory database from vanishing between pool connections.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies pending schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("streampay/sqlite: create migration table: %w", err)
	}

	for _, m := range Migrations {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, m.Name).Scan(&n)
		if err != nil {
			return fmt.Errorf("streampay/sqlite: check migration %s: %w", m.Name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("streampay/sqlite: apply %s: %w", m.Name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (name) VALUES (?)`, m.Name); err != nil {
			return fmt.Errorf("streampay/sqlite: record %s: %w", m.Name, err)
		}
	}
	return nil
}

// InsertStream implements store.Store. The nonce read, nonce bump, and
// record insert commit as one transaction.
func (s *Store) InsertStream(ctx context.Context, rec *stream.Stream) (stream.ID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("streampay/sqlite: begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var nonce int64
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM streampay_counters WHERE name = 'stream_nonce'`).Scan(&nonce)
	if err != nil {
		return 0, fmt.Errorf("streampay/sqlite: read stream nonce: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE streampay_counters SET value = value + 1 WHERE name = 'stream_nonce'`); err != nil {
		return 0, fmt.Errorf("streampay/sqlite: advance stream nonce: %w", err)
	}

	rec.ID = stream.ID(nonce)
	_, err = tx.ExecContext(ctx, `INSERT INTO streampay_streams
		(id, sender, recipient, total_amount, withdrawn, start_block, end_block, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nonce,
		rec.Sender.String(),
		rec.Recipient.String(),
		int64(rec.TotalAmount),
		int64(rec.Withdrawn),
		int64(rec.StartBlock),
		int64(rec.EndBlock),
		rec.Active,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("streampay/sqlite: insert stream %d: %w", nonce, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("streampay/sqlite: commit insert: %w", err)
	}
	return rec.ID, nil
}

// GetStream implements store.Store.
func (s *Store) GetStream(ctx context.Context, id stream.ID) (*stream.Stream, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, sender, recipient, total_amount, withdrawn, start_block, end_block, active, created_at, updated_at
		FROM streampay_streams WHERE id = ?`, int64(id))
	return scanStream(row)
}

// UpdateStream implements store.Store.
func (s *Store) UpdateStream(ctx context.Context, rec *stream.Stream) error {
	res, err := s.db.ExecContext(ctx, `UPDATE streampay_streams
		SET withdrawn = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		int64(rec.Withdrawn), rec.Active, rec.UpdatedAt, int64(rec.ID))
	if err != nil {
		return fmt.Errorf("streampay/sqlite: update stream %d: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("streampay/sqlite: update stream %d: %w", rec.ID, err)
	}
	if n == 0 {
		return streampay.ErrStreamNotFound
	}
	return nil
}

// AppendStreamIndex implements store.Store.
func (s *Store) AppendStreamIndex(ctx context.Context, kind store.IndexKind, p types.Principal, id stream.ID) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("streampay/sqlite: begin index append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM streampay_stream_index WHERE index_kind = ? AND principal = ?`,
		string(kind), p.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("streampay/sqlite: count index entries: %w", err)
	}
	if n >= store.MaxIndexEntries {
		// List is at capacity: the id is dropped, the table is unchanged.
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO streampay_stream_index (index_kind, principal, position, stream_id) VALUES (?, ?, ?, ?)`,
		string(kind), p.String(), n, int64(id))
	if err != nil {
		return false, fmt.Errorf("streampay/sqlite: append index entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("streampay/sqlite: commit index append: %w", err)
	}
	return true, nil
}

// StreamsByIndex implements store.Store.
func (s *Store) StreamsByIndex(ctx context.Context, kind store.IndexKind, p types.Principal) ([]stream.ID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stream_id FROM streampay_stream_index
		WHERE index_kind = ? AND principal = ? ORDER BY position`,
		string(kind), p.String())
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: query index: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	ids := make([]stream.ID, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("streampay/sqlite: scan index entry: %w", err)
		}
		ids = append(ids, stream.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("streampay/sqlite: iterate index: %w", err)
	}
	return ids, nil
}

// StreamCount implements store.Store.
func (s *Store) StreamCount(ctx context.Context) (uint64, error) {
	var nonce int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM streampay_counters WHERE name = 'stream_nonce'`).Scan(&nonce)
	if err != nil {
		return 0, fmt.Errorf("streampay/sqlite: read stream nonce: %w", err)
	}
	return uint64(nonce), nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanStream(row *sql.Row) (*stream.Stream, error) {
	var rec stream.Stream
	var id, total, withdrawn, startBlock, endBlock int64
	var sender, recipient string
	err := row.Scan(&id, &sender, &recipient, &total, &withdrawn,
		&startBlock, &endBlock, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, streampay.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("streampay/sqlite: scan stream: %w", err)
	}

	rec.ID = stream.ID(id)
	rec.Sender = types.Principal(sender)
	rec.Recipient = types.Principal(recipient)
	rec.TotalAmount = uint64(total)
	rec.Withdrawn = uint64(withdrawn)
	rec.StartBlock = uint64(startBlock)
	rec.EndBlock = uint64(endBlock)
	return &rec, nil
}
