package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds the upload limit")

const ticketFilesDir = "tickets/files"

// FileStore persists ticket attachments below a media root.
type FileStore struct {
	root     string
	maxBytes int64
}

// NewFileStore builds a store rooted at root. maxBytes <= 0 disables the limit.
func NewFileStore(root string, maxBytes int64) *FileStore {
	return &FileStore{root: root, maxBytes: maxBytes}
}

// SaveTicketFile writes r under tickets/files and returns the path relative to
// the media root.
func (s *FileStore) SaveTicketFile(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := path.Join(ticketFilesDir, uuid.NewString()+"-"+sanitizeName(name))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return rel, nil
}

// OpenTicketFile returns a reader for a path previously returned by
// SaveTicketFile. Paths outside tickets/files are reported as missing.
func (s *FileStore) OpenTicketFile(rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// RemoveTicketFile deletes a stored attachment. A missing file is not an error.
func (s *FileStore) RemoveTicketFile(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DisplayName strips the uuid prefix SaveTicketFile adds to a stored name.
func DisplayName(rel string) string {
	base := path.Base(rel)
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

func (s *FileStore) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if !strings.HasPrefix(clean, ticketFilesDir+"/") {
		return "", os.ErrNotExist
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}
