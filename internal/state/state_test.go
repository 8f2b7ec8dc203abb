package state_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"marketbrief/internal/state"
)

var (
	monday  = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tuesday = monday.AddDate(0, 0, 1)
)

func TestFileStore(t *testing.T) {
	t.Parallel()

	// Arrange: a store in a not yet existing directory
	path := filepath.Join(t.TempDir(), "nested", "premarket_state.json")
	s := &state.FileStore{Path: path}

	// Assert: nothing sent before the first mark
	sent, err := s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.False(t, sent)

	// Act: mark two jobs
	require.NoError(t, s.MarkSent(t.Context(), "premarket", monday))
	require.NoError(t, s.MarkSent(t.Context(), "greeting", tuesday))

	// Assert: markers are per job and per day
	sent, err = s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = s.AlreadySent(t.Context(), "premarket", tuesday)
	require.NoError(t, err)
	require.False(t, sent)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"premarket":"2024-06-10","greeting":"2024-06-11"}`, string(b))
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	t.Parallel()

	// Arrange: a file with garbage
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := &state.FileStore{Path: path}

	// Act + Assert: reads as empty and is overwritten on mark
	sent, err := s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.False(t, sent)

	require.NoError(t, s.MarkSent(t.Context(), "premarket", monday))
	sent, err = s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.True(t, sent)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	// Arrange: an in-memory redis
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := state.NewRedisStore(rdb)
	t.Cleanup(func() { _ = s.Close() })

	// Assert: missing key reads as not sent
	sent, err := s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.False(t, sent)

	// Act: mark
	require.NoError(t, s.MarkSent(t.Context(), "premarket", monday))

	// Assert: stored under the job key with a TTL
	sent, err = s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.True(t, sent)

	v, err := mr.Get("marketbrief:sent:premarket")
	require.NoError(t, err)
	require.Equal(t, "2024-06-10", v)
	require.Equal(t, 48*time.Hour, mr.TTL("marketbrief:sent:premarket"))

	// Assert: the marker expires
	mr.FastForward(49 * time.Hour)
	sent, err = s.AlreadySent(t.Context(), "premarket", monday)
	require.NoError(t, err)
	require.False(t, sent)
}

func TestOpenRedis(t *testing.T) {
	t.Parallel()

	// Arrange: an in-memory redis
	mr := miniredis.RunT(t)

	// Act: open by URL
	s, err := state.OpenRedis(t.Context(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Assert: usable
	require.NoError(t, s.MarkSent(t.Context(), "greeting", monday))

	// Act + Assert: bad URLs fail
	_, err = state.OpenRedis(t.Context(), "::not a url")
	require.Error(t, err)
}
