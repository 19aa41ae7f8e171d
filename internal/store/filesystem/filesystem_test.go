package filesystem

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safesend/safesend/internal/domain"
)

const testToken = domain.Token("0123456789ab")

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st, dir
}

func TestNewRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := New(file); err == nil {
		t.Fatalf("expected error for non-directory root")
	}
	if _, err := New(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestWriteReadDeletePair(t *testing.T) {
	st, dir := newTestStore(t)
	payload := []byte("encrypted-payload-bytes")
	iv := []byte("AAAAAAAAAAAAAAAA")

	if err := st.Write(testToken, bytes.NewReader(payload), int64(len(payload)), iv); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Both artifacts exist on disk.
	if _, err := os.Stat(filepath.Join(dir, testToken.String()+payloadExt)); err != nil {
		t.Fatalf("payload artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, testToken.String()+ivExt)); err != nil {
		t.Fatalf("iv artifact: %v", err)
	}

	rc, gotIV, err := st.Read(testToken)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	if !bytes.Equal(gotIV, iv) {
		t.Fatalf("iv mismatch: %q vs %q", gotIV, iv)
	}

	if err := st.Delete(testToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := st.Read(testToken); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is a no-op.
	if err := st.Delete(testToken); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestWriteRejectsDuplicate(t *testing.T) {
	st, _ := newTestStore(t)
	if err := st.Write(testToken, strings.NewReader("a"), 1, []byte("iv")); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := st.Write(testToken, strings.NewReader("b"), 1, []byte("iv")); err == nil {
		t.Fatalf("expected error overwriting existing payload")
	}
}

func TestWriteShortPayloadRollsBack(t *testing.T) {
	st, dir := newTestStore(t)
	// Reader yields fewer bytes than declared: CopyN fails, pair must vanish.
	err := st.Write(testToken, strings.NewReader("abc"), 10, []byte("iv"))
	if err == nil {
		t.Fatalf("expected error for short payload")
	}
	entries, dErr := os.ReadDir(dir)
	if dErr != nil {
		t.Fatalf("ReadDir: %v", dErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty blob dir after rollback, found %d entries", len(entries))
	}
}

func TestReadMissingIVIsNotFound(t *testing.T) {
	st, dir := newTestStore(t)
	payload := []byte("payload")
	if err := st.Write(testToken, bytes.NewReader(payload), int64(len(payload)), []byte("iv")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, testToken.String()+ivExt)); err != nil {
		t.Fatalf("remove iv: %v", err)
	}
	if _, _, err := st.Read(testToken); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with iv missing, got %v", err)
	}
}

func TestReadMissingPayloadIsNotFound(t *testing.T) {
	st, dir := newTestStore(t)
	payload := []byte("payload")
	if err := st.Write(testToken, bytes.NewReader(payload), int64(len(payload)), []byte("iv")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, testToken.String()+payloadExt)); err != nil {
		t.Fatalf("remove payload: %v", err)
	}
	if _, _, err := st.Read(testToken); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with payload missing, got %v", err)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	st, _ := newTestStore(t)
	bad := domain.Token("../../passwd")
	if err := st.Write(bad, strings.NewReader("x"), 1, []byte("iv")); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("Write: expected ErrInvalidToken, got %v", err)
	}
	if _, _, err := st.Read(bad); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("Read: expected ErrInvalidToken, got %v", err)
	}
	if err := st.Delete(bad); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("Delete: expected ErrInvalidToken, got %v", err)
	}
}
