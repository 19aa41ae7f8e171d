// Package app defines the application layer "ports" (interfaces) and data
// contracts that the core use-cases of SafeSend depend upon. It follows a
// hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (SQLite metadata, filesystem blobs, HTTP
// layer, janitor jobs) provide concrete implementations. No I/O, SQL, or
// network concerns belong here.
package app

import (
	"context"
	"io"
	"time"

	"github.com/safesend/safesend/internal/domain"
)

// FileMeta is the durable record of one uploaded file. The token is the
// primary key and also keys the blob pair in blob storage.
type FileMeta struct {
	Token     domain.Token
	Filename  string // declared original name, untrusted, display only
	Size      int64  // byte length of the ciphertext as stored
	Kind      string // coarse content classification, presentation only
	CreatedAt time.Time
	ExpiresAt time.Time // CreatedAt + TTL
	Consumed  bool      // transitions false -> true exactly once
}

// Clock abstracts time to enable deterministic testing of TTL / expiry logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// MetadataStore is the storage port for file metadata. Implementations must
// provide durability and a true atomic compare-and-set for MarkConsumed; the
// exactly-once download guarantee rests on it.
type MetadataStore interface {
	// Create inserts a new record. It returns domain.ErrConflict if the
	// token is already present.
	Create(ctx context.Context, m FileMeta) error

	// Get returns the record for token or domain.ErrNotFound.
	Get(ctx context.Context, token domain.Token) (FileMeta, error)

	// MarkConsumed atomically flips consumed from false to true and reports
	// whether THIS call performed the transition. It must be a single atomic
	// conditional update at the storage layer, not a check-then-act pair;
	// two concurrent callers must see exactly one true. A missing row
	// reports false with no error.
	MarkConsumed(ctx context.Context, token domain.Token) (bool, error)

	// Delete removes the record; it is a no-op if the token is absent.
	Delete(ctx context.Context, token domain.Token) error

	// ListExpiredOrConsumed returns records whose expiry precedes now or
	// that are already consumed. Used only by Sweep.
	ListExpiredOrConsumed(ctx context.Context, now time.Time) ([]FileMeta, error)
}

// BlobStore is the storage port for the encrypted payload and its companion
// initialization vector, stored as a pair keyed by token. The pair is created
// together and deleted together; a payload without its IV (or vice versa) is
// an inconsistency the caller treats as corruption.
type BlobStore interface {
	// Write persists exactly size bytes of ciphertext from payload plus the
	// iv sidecar. On failure any partially written artifact is removed
	// before the error is returned.
	Write(token domain.Token, payload io.Reader, size int64, iv []byte) error

	// Read opens the payload for streaming and returns the iv bytes. It
	// returns domain.ErrNotFound if either artifact is missing.
	Read(token domain.Token) (payload io.ReadCloser, iv []byte, err error)

	// Delete removes both artifacts if present. Absence is not an error.
	Delete(token domain.Token) error
}
