package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KeyValueStore {
	t.Helper()
	ctx := context.Background()

	file, err := NewFile(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)

	sqlite, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "db", "kv.db"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds, err := NewRedis(ctx, RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr()), Prefix: "test:"})
	require.NoError(t, err)

	all := map[string]KeyValueStore{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
		"redis":  rds,
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", `{"a":1}`))
			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"a":1}`, v)

			require.NoError(t, s.Set(ctx, "k", "second"))
			v, _, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "second", v)

			require.NoError(t, s.Delete(ctx, "k"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, s.Delete(ctx, "k"), "deleting a missing key")
		})
	}
}

func TestRedis_UsesPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s, err := NewRedis(ctx, RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr()), Prefix: "nc:"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "policy", "1"))
	got, err := mr.Get("nc:policy")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "not a url"})
	assert.Error(t, err)
	_, err = NewRedis(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "amigos_nc_tracker_v2_policy", "0"))

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "amigos_nc_tracker_v2_policy")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	require.NoError(t, reopened.Delete(ctx, "amigos_nc_tracker_v2_policy"))
	_, ok, _ = reopened.Get(ctx, "amigos_nc_tracker_v2_policy")
	assert.False(t, ok)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestLimited(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	s := Limit(inner, 10)

	require.NoError(t, s.Set(ctx, "small", "0123456789"))
	err := s.Set(ctx, "big", strings.Repeat("x", 11))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, ok, _ := inner.Get(ctx, "big")
	assert.False(t, ok)
	v, ok, _ := s.Get(ctx, "small")
	assert.True(t, ok)
	assert.Equal(t, "0123456789", v)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, models.StorageConfig{Backend: "memory", MaxValueBytes: 5})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Set(ctx, "k", "too long"), ErrQuotaExceeded)

	s, err = Open(ctx, models.StorageConfig{Backend: "sqlite", Dir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLite{}, s)

	_, err = Open(ctx, models.StorageConfig{Backend: "etcd"})
	assert.Error(t, err)
}
