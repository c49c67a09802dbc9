package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu     sync.Mutex
	guilds map[string][]byte
	gets   int
	closed bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{guilds: make(map[string][]byte)}
}

func (m *memoryBackend) Get(ctx context.Context, guildID string) (*models.Guild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	data, ok := m.guilds[guildID]
	if !ok {
		return nil, store.ErrNotFound
	}
	g := models.NewGuild(guildID)
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}

func (m *memoryBackend) Put(ctx context.Context, g *models.Guild) error {
	data, err := models.Encode(g)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[g.ID] = data
	return nil
}

func (m *memoryBackend) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.guilds), nil
}

func (m *memoryBackend) Close() error {
	m.closed = true
	return nil
}

func TestCacheWithUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()

	c, err := NewCache("redis://127.0.0.1:1/0", slog.New(slog.NewTextHandler(io.Discard, nil)), backend)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	g := models.NewGuild("1")
	g.AddRole("10")
	require.NoError(t, c.Put(ctx, g))

	gets := backend.gets
	got, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"10"}, got.Roles)
	assert.Equal(t, gets, backend.gets, "second read should be served locally")

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// fakeRedis serves Get, Set and Del from a map. setErr and delErr make the
// matching command fail.
type fakeRedis struct {
	redis.UniversalClient

	mu     sync.Mutex
	data   map[string]string
	gets   int
	setErr error
	delErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error { return nil }

func (f *fakeRedis) fail(set, del error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr, f.delErr = set, del
}

func TestCacheFailedWriteDoesNotServeOlderEntry(t *testing.T) {
	for _, tt := range []struct {
		name   string
		delErr error
	}{
		{"delete succeeds", nil},
		{"delete fails", errors.New("connection reset")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rdb := newFakeRedis()
			c := newCache(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)), newMemoryBackend())
			defer c.Close()

			g := models.NewGuild("1")
			g.AddRole("10")
			require.NoError(t, c.Put(ctx, g))

			rdb.fail(errors.New("connection reset"), tt.delErr)
			g.AddRole("20")
			require.NoError(t, c.Put(ctx, g))

			// The local tier lost the newer entry, as after an eviction.
			c.lc.Delete(keyPrefix + "1")

			got, err := c.Get(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, []models.ID{"10", "20"}, got.Roles)

			rdb.fail(nil, nil)
			require.NoError(t, c.Put(ctx, g))
			c.lc.Delete(keyPrefix + "1")

			gets := rdb.gets
			got, err = c.Get(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, []models.ID{"10", "20"}, got.Roles)
			assert.Equal(t, gets+1, rdb.gets, "a successful write makes Redis readable again")
		})
	}
}

func TestCacheBadURL(t *testing.T) {
	_, err := NewCache("not a url", slog.New(slog.NewTextHandler(io.Discard, nil)), newMemoryBackend())
	assert.Error(t, err)
}

func TestCircuitBreakerTransitions(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.OnChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())
	for i := 0; i < 3; i++ {
		cb.RecordSuccess()
	}
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestLocalCache(t *testing.T) {
	lc := NewLocalCache(2, time.Hour)
	defer lc.Stop()

	lc.Set("a", []byte("1"), time.Minute)
	lc.Set("b", []byte("2"), 2*time.Minute)

	data, ok := lc.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), data)

	// Full: the entry closest to expiry goes.
	lc.Set("c", []byte("3"), 3*time.Minute)
	_, ok = lc.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, lc.Len())

	// Overwriting an existing key does not evict.
	lc.Set("b", []byte("22"), 3*time.Minute)
	assert.Equal(t, 2, lc.Len())

	lc.Set("expired", []byte("x"), -time.Second)
	_, ok = lc.Get("expired")
	assert.False(t, ok)

	lc.Delete("c")
	_, ok = lc.Get("c")
	assert.False(t, ok)

	lc.Stop()
	lc.Stop()
}

func TestLocalCacheExpire(t *testing.T) {
	lc := NewLocalCache(10, time.Hour)
	defer lc.Stop()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lc.now = func() time.Time { return start }

	lc.Set("short", []byte("1"), time.Minute)
	lc.Set("long", []byte("2"), time.Hour)

	lc.expire(start.Add(2 * time.Minute))
	assert.Equal(t, 1, lc.Len())

	_, ok := lc.Get("long")
	assert.True(t, ok)
}
