// Package store provides the key-value backends the tracker persists to.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// ErrQuotaExceeded is returned when a value is larger than the store accepts
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KeyValueStore persists string values by key. A missing key is reported with
// ok == false and a nil error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend selected in cfg, wrapped in a quota when one is set
func Open(ctx context.Context, cfg models.StorageConfig) (KeyValueStore, error) {
	var (
		s   KeyValueStore
		err error
	)
	switch cfg.Backend {
	case "memory":
		s = NewMemory()
	case "", "file":
		s, err = NewFile(cfg.Dir)
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Dir, "nctracker.db")
		}
		s, err = NewSQLite(ctx, path)
	case "redis":
		s, err = NewRedis(ctx, RedisOptions{URL: cfg.RedisURL})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MaxValueBytes > 0 {
		s = Limit(s, cfg.MaxValueBytes)
	}
	return s, nil
}

// Limited rejects values over MaxBytes, the way browser storage refuses writes
// past its quota
type Limited struct {
	KeyValueStore
	MaxBytes int
}

// Limit wraps s with a per-value size cap
func Limit(s KeyValueStore, maxBytes int) *Limited {
	return &Limited{KeyValueStore: s, MaxBytes: maxBytes}
}

// Set writes the value if it fits
func (l *Limited) Set(ctx context.Context, key, value string) error {
	if l.MaxBytes > 0 && len(value) > l.MaxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrQuotaExceeded, key, len(value), l.MaxBytes)
	}
	return l.KeyValueStore.Set(ctx, key, value)
}
