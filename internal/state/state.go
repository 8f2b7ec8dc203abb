// Package state remembers which jobs already ran on a given local day.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DateLayout is the day format stored in markers.
const DateLayout = "2006-01-02"

// Store persists "already sent" markers per job.
//
//go:generate mockgen -package=state -destination=mock_store.go -source=state.go Store
type Store interface {
	AlreadySent(ctx context.Context, job string, day time.Time) (bool, error)
	MarkSent(ctx context.Context, job string, day time.Time) error
}

// FileStore keeps markers in a JSON object {"job": "YYYY-MM-DD"}.
// A missing or corrupt file reads as empty.
type FileStore struct {
	Path string

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) load() map[string]string {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return map[string]string{}
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]string{}
	}
	return m
}

func (s *FileStore) AlreadySent(_ context.Context, job string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()[job] == day.Format(DateLayout), nil
}

func (s *FileStore) MarkSent(_ context.Context, job string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load()
	m[job] = day.Format(DateLayout)
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}
	}
	if err := os.WriteFile(s.Path, b, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

const (
	redisPrefix = "marketbrief:sent:"
	redisTTL    = 48 * time.Hour
)

// RedisStore keeps one key per job holding the last sent day.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// OpenRedis parses a redis:// URL and checks the connection.
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) AlreadySent(ctx context.Context, job string, day time.Time) (bool, error) {
	v, err := s.rdb.Get(ctx, redisPrefix+job).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading marker: %w", err)
	}
	return v == day.Format(DateLayout), nil
}

func (s *RedisStore) MarkSent(ctx context.Context, job string, day time.Time) error {
	if err := s.rdb.Set(ctx, redisPrefix+job, day.Format(DateLayout), redisTTL).Err(); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
