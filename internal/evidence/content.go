package evidence

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidHandle is returned when a handle cannot be resolved by a store
var ErrInvalidHandle = errors.New("invalid content handle")

// ContentStore keeps evidence bytes and hands back an opaque handle for them
type ContentStore interface {
	Store(ctx context.Context, mimeType string, data []byte) (string, error)
	Resolve(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}

// DataURLStore embeds the bytes in the handle as a base64 data URL, the format
// earlier releases kept in browser storage. It needs no backing storage.
type DataURLStore struct{}

// Store encodes data as a data URL
func (DataURLStore) Store(_ context.Context, mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Resolve decodes a data URL
func (DataURLStore) Resolve(_ context.Context, handle string) ([]byte, error) {
	if !strings.HasPrefix(handle, "data:") {
		return nil, fmt.Errorf("%w: not a data URL", ErrInvalidHandle)
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(handle, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidHandle)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return []byte(s), nil
}

// Delete is a no-op; the content lives in the handle
func (DataURLStore) Delete(context.Context, string) error {
	return nil
}

// DirStore writes each blob to its own file named by a random UUID
type DirStore struct {
	Dir string
}

// NewDirStore creates the directory if needed
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}
	return &DirStore{Dir: dir}, nil
}

func (s *DirStore) path(handle string) (string, error) {
	id, err := uuid.Parse(handle)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return filepath.Join(s.Dir, id.String()), nil
}

// Store writes data under a new UUID
func (s *DirStore) Store(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := uuid.NewString()
	path, _ := s.path(handle)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write evidence content: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write evidence content: %w", err)
	}
	return handle, nil
}

// Resolve reads the blob behind a handle
func (s *DirStore) Resolve(_ context.Context, handle string) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes the blob; a missing blob is not an error
func (s *DirStore) Delete(_ context.Context, handle string) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
