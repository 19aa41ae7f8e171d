// Package filesystem provides a BlobStore implementation backed by the local
// filesystem. Each file is stored as an immutable pair of artifacts named by
// token: the encrypted payload and its initialization-vector sidecar. The two
// are written together and deleted together.
package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/safesend/safesend/internal/app"
	"github.com/safesend/safesend/internal/domain"
)

var _ app.BlobStore = (*Store)(nil)

const (
	payloadExt = ".blob"
	ivExt      = ".iv"
)

// Store implements app.BlobStore using the local filesystem.
type Store struct {
	root string
}

// New returns a filesystem-backed blob store rooted at dir. The directory
// must already exist with secure permissions (0700 recommended).
func New(root string) (*Store, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("blob root is not a directory")
	}
	return &Store{root: root}, nil
}

func (s *Store) payloadPath(token domain.Token) string {
	return filepath.Join(s.root, token.String()+payloadExt)
}

func (s *Store) ivPath(token domain.Token) string {
	return filepath.Join(s.root, token.String()+ivExt)
}

// Write stores exactly size bytes from payload plus the iv sidecar. Any
// artifact written before a failure is removed so the pair is all-or-nothing.
func (s *Store) Write(token domain.Token, payload io.Reader, size int64, iv []byte) error {
	if !token.Valid() { // fixed length, no separators: no traversal possible
		return domain.ErrInvalidToken
	}
	p := s.payloadPath(token)
	// #nosec G304: path is a fixed root plus a validated token with a fixed suffix.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := s.copyPayload(f, payload, size); err != nil {
		_ = os.Remove(p)
		return err
	}
	if err := os.WriteFile(s.ivPath(token), iv, 0o600); err != nil {
		_ = os.Remove(p)
		return err
	}
	return nil
}

// copyPayload streams size bytes into f, syncs, and closes. The file is the
// caller's to remove on error.
func (s *Store) copyPayload(f *os.File, payload io.Reader, size int64) error {
	if _, err := io.CopyN(f, payload, size); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read opens the payload for streaming and loads the iv sidecar. A missing
// artifact on either side maps to domain.ErrNotFound; the caller decides
// whether that is a soft miss or a corruption signal.
func (s *Store) Read(token domain.Token) (io.ReadCloser, []byte, error) {
	if !token.Valid() {
		return nil, nil, domain.ErrInvalidToken
	}
	iv, err := os.ReadFile(s.ivPath(token)) // #nosec G304 path constructed internally
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	f, err := os.Open(s.payloadPath(token)) // #nosec G304 path constructed internally
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return f, iv, nil
}

// Delete removes both artifacts if present. Absence is not an error; a real
// removal failure on either side is reported after both are attempted.
func (s *Store) Delete(token domain.Token) error {
	if !token.Valid() {
		return domain.ErrInvalidToken
	}
	pErr := os.Remove(s.payloadPath(token))
	iErr := os.Remove(s.ivPath(token))
	if pErr != nil && !errors.Is(pErr, fs.ErrNotExist) {
		return pErr
	}
	if iErr != nil && !errors.Is(iErr, fs.ErrNotExist) {
		return iErr
	}
	return nil
}
