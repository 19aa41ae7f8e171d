// Package sqlite provides a SQLite-backed implementation of the
// app.MetadataStore port for persisting per-file records. The exactly-once
// download guarantee relies on MarkConsumed being a single conditional UPDATE
// executed atomically by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/safesend/safesend/internal/app"
	"github.com/safesend/safesend/internal/domain"
)

var _ app.MetadataStore = (*Store)(nil)

// Store implements app.MetadataStore using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling and
// serialization.
type Store struct{ db *sql.DB }

// New constructs a Store, initializing the required schema if absent.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `CREATE TABLE IF NOT EXISTS files (
id TEXT PRIMARY KEY,
filename TEXT NOT NULL,
size INTEGER NOT NULL,
kind TEXT NOT NULL DEFAULT 'file',
created_at INTEGER NOT NULL,
expires_at INTEGER NOT NULL,
consumed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_files_expires_at ON files(expires_at);`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores a new file row. A duplicate token maps to domain.ErrConflict.
func (s *Store) Create(ctx context.Context, m app.FileMeta) error {
	const q = `INSERT INTO files (id, filename, size, kind, created_at, expires_at, consumed) VALUES (?,?,?,?,?,?,0)`
	_, err := s.db.ExecContext(ctx, q, m.Token.String(), m.Filename, m.Size, m.Kind, m.CreatedAt.Unix(), m.ExpiresAt.Unix())
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// Get returns the row for token, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, token domain.Token) (app.FileMeta, error) {
	const q = `SELECT filename, size, kind, created_at, expires_at, consumed FROM files WHERE id=?`
	var (
		m            app.FileMeta
		consumedInt  int
		createdUnix  int64
		expiresUnix  int64
	)
	row := s.db.QueryRowContext(ctx, q, token.String())
	if err := row.Scan(&m.Filename, &m.Size, &m.Kind, &createdUnix, &expiresUnix, &consumedInt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.FileMeta{}, domain.ErrNotFound
		}
		return app.FileMeta{}, err
	}
	m.Token = token
	m.CreatedAt = time.Unix(createdUnix, 0).UTC()
	m.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	m.Consumed = consumedInt == 1
	return m, nil
}

// MarkConsumed flips consumed from 0 to 1 in a single conditional UPDATE and
// reports whether this call made the transition. Concurrent callers racing on
// the same token observe exactly one true; a missing row reports false.
func (s *Store) MarkConsumed(ctx context.Context, token domain.Token) (bool, error) {
	const q = `UPDATE files SET consumed=1 WHERE id=? AND consumed=0`
	res, err := s.db.ExecContext(ctx, q, token.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the row; deleting an absent token is a no-op.
func (s *Store) Delete(ctx context.Context, token domain.Token) error {
	const q = `DELETE FROM files WHERE id=?`
	_, err := s.db.ExecContext(ctx, q, token.String())
	return err
}

// ListExpiredOrConsumed selects rows whose expiry precedes now or that are
// already consumed. Deletion is left to the caller so its blob cleanup and
// the row removal stay per-item best-effort.
func (s *Store) ListExpiredOrConsumed(ctx context.Context, now time.Time) ([]app.FileMeta, error) {
	const q = `SELECT id, filename, size, kind, created_at, expires_at, consumed FROM files WHERE expires_at < ? OR consumed=1`
	rows, err := s.db.QueryContext(ctx, q, now.Unix())
	if err != nil {
		return nil, err
	}
	var out []app.FileMeta
	for rows.Next() {
		var (
			m           app.FileMeta
			id          string
			consumedInt int
			createdUnix int64
			expiresUnix int64
		)
		if err = rows.Scan(&id, &m.Filename, &m.Size, &m.Kind, &createdUnix, &expiresUnix, &consumedInt); err != nil {
			if cErr := rows.Close(); cErr != nil {
				return nil, fmt.Errorf("scan error: %v; close error: %w", err, cErr)
			}
			return nil, err
		}
		m.Token = domain.Token(id)
		m.CreatedAt = time.Unix(createdUnix, 0).UTC()
		m.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
		m.Consumed = consumedInt == 1
		out = append(out, m)
	}
	if cErr := rows.Close(); cErr != nil {
		return nil, cErr
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
