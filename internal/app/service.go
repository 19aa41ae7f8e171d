// Package app contains the application orchestration layer for SafeSend: the
// lifecycle manager that owns the exactly-once / expire-by-deadline contract,
// composing the metadata and blob storage ports.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/safesend/safesend/internal/domain"
)

// maxTokenAttempts bounds the regeneration loop when a freshly generated
// token collides with a live record.
const maxTokenAttempts = 5

// DefaultFilename is used when the client declares no filename.
const DefaultFilename = "download"

// DefaultKind is the generic content classification tag.
const DefaultKind = "file"

// Service orchestrates file creation, one-time consumption, and expiry
// reclamation using the injected stores and clock. The zero value is not
// usable; all fields except Logger are required.
type Service struct {
	Meta     MetadataStore
	Blobs    BlobStore
	Clock    Clock
	MaxBytes int64         // upper bound on ciphertext size
	TTL      time.Duration // fixed lifetime of every upload
	Logger   *slog.Logger  // optional; used only for cleanup/corruption logs
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Put stores a new encrypted file and returns its token and expiry. The blob
// pair is written before the metadata row, so a crash mid-sequence leaves at
// worst an orphaned blob, never a metadata row pointing at nothing.
// 'payload' streams exactly 'size' bytes of ciphertext; 'iv' is the opaque
// client-provided initialization vector.
func (s *Service) Put(ctx context.Context, filename, kind string, payload io.Reader, size int64, iv []byte) (domain.Token, time.Time, error) {
	if size <= 0 || size > s.MaxBytes {
		return "", time.Time{}, domain.ErrTooLarge
	}
	if filename == "" {
		filename = DefaultFilename
	}
	if kind == "" {
		kind = DefaultKind
	}
	token, err := s.freshToken(ctx)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.Clock.Now()
	expiresAt := now.Add(s.TTL)
	if err := s.Blobs.Write(token, payload, size, iv); err != nil {
		return "", time.Time{}, err
	}
	meta := FileMeta{
		Token:     token,
		Filename:  filename,
		Size:      size,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.Meta.Create(ctx, meta); err != nil {
		// The payload stream is already drained, so a same-token race here
		// cannot be retried; remove the blob pair and surface the error.
		if dErr := s.Blobs.Delete(token); dErr != nil {
			s.log().Warn("rollback blob after create failure", "token", token, "error", dErr)
		}
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// freshToken generates a token that is not currently live, regenerating a
// bounded number of times on collision.
func (s *Service) freshToken(ctx context.Context) (domain.Token, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := domain.NewToken()
		if err != nil { // extremely unlikely, but propagate
			return "", err
		}
		_, err = s.Meta.Get(ctx, token)
		if errors.Is(err, domain.ErrNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
		// Token occupied; regenerate.
	}
	return "", domain.ErrTokenExhausted
}

// Status reports whether a file is still retrievable. It is read-only and
// side-effect free so clients can poll it: expired-but-unswept files are
// reported ErrExpired without being deleted here, reclamation is Sweep's job.
func (s *Service) Status(ctx context.Context, tokenStr string) (FileMeta, error) {
	token, err := domain.ParseToken(tokenStr)
	if err != nil {
		return FileMeta{}, err
	}
	meta, err := s.Meta.Get(ctx, token)
	if err != nil {
		return FileMeta{}, err
	}
	if meta.Consumed {
		return FileMeta{}, domain.ErrConsumed
	}
	if s.Clock.Now().After(meta.ExpiresAt) {
		return FileMeta{}, domain.ErrExpired
	}
	return meta, nil
}

// Consume is the one-time destructive retrieval. The consumed flag is flipped
// with a single atomic compare-and-set at the metadata layer; under N
// concurrent calls exactly one wins and the losers get ErrConsumed without
// ever touching the blob. The returned ReadCloser streams the ciphertext and
// deletes the blob pair on Close, after the caller has sent the bytes ("send
// then delete"). The consumed metadata row stays behind so later Status and
// Consume calls answer ErrConsumed rather than ErrNotFound; Sweep reclaims
// the row.
func (s *Service) Consume(ctx context.Context, tokenStr string) (FileMeta, io.ReadCloser, []byte, error) {
	token, err := domain.ParseToken(tokenStr)
	if err != nil {
		return FileMeta{}, nil, nil, err
	}
	meta, err := s.Meta.Get(ctx, token)
	if err != nil {
		return FileMeta{}, nil, nil, err
	}
	// Cheap short-circuit for stale tokens before attempting the CAS.
	if meta.Consumed {
		return FileMeta{}, nil, nil, domain.ErrConsumed
	}
	if s.Clock.Now().After(meta.ExpiresAt) {
		return FileMeta{}, nil, nil, domain.ErrExpired
	}
	won, err := s.Meta.MarkConsumed(ctx, token)
	if err != nil {
		return FileMeta{}, nil, nil, err
	}
	if !won {
		// Lost the race to a concurrent caller (or to Sweep).
		return FileMeta{}, nil, nil, domain.ErrConsumed
	}
	payload, iv, err := s.Blobs.Read(token)
	if err != nil {
		// Metadata said live but the blob pair is gone: corruption, not a
		// soft 404. Log loudly and reclaim whatever remains.
		s.log().Error("blob pair missing for live metadata", "token", token, "error", err)
		s.cleanup(token)
		return FileMeta{}, nil, nil, domain.ErrInconsistent
	}
	return meta, &consumedReader{ReadCloser: payload, svc: s, token: token}, iv, nil
}

// cleanup removes both store entries for token, best-effort. Only the
// corruption path uses it; the normal consume path must leave the row so the
// token keeps answering ErrConsumed. Failures are logged and swallowed;
// anything left behind is reclaimed by Sweep.
func (s *Service) cleanup(token domain.Token) {
	if err := s.Blobs.Delete(token); err != nil {
		s.log().Warn("delete blob pair", "token", token, "error", err)
	}
	// Detached from the request context: the response has already been
	// produced by the time this runs.
	if err := s.Meta.Delete(context.Background(), token); err != nil {
		s.log().Warn("delete metadata row", "token", token, "error", err)
	}
}

// consumedReader streams the payload of a won Consume and deletes the blob
// pair on Close. The consumed metadata row is left for Sweep.
type consumedReader struct {
	io.ReadCloser
	svc   *Service
	token domain.Token
}

func (c *consumedReader) Close() error {
	err := c.ReadCloser.Close()
	if dErr := c.svc.Blobs.Delete(c.token); dErr != nil {
		c.svc.log().Warn("delete blob pair after download", "token", c.token, "error", dErr)
	}
	return err
}

// Sweep reclaims every file that is expired or already consumed as of now and
// returns the count removed. Per-item deletion failures are logged and
// skipped, never failing the overall call. It is idempotent and safe to run
// concurrently with in-flight Consume calls: the CAS in Consume and the
// idempotent deletes here commute, whichever runs first wins the delete.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.Meta.ListExpiredOrConsumed(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, meta := range stale {
		if err := s.Blobs.Delete(meta.Token); err != nil {
			s.log().Warn("sweep blob pair", "token", meta.Token, "error", err)
		}
		if err := s.Meta.Delete(ctx, meta.Token); err != nil {
			s.log().Warn("sweep metadata row", "token", meta.Token, "error", err)
			continue
		}
		count++
	}
	return count, nil
}
