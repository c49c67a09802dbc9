package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/store"
	"github.com/graxinc/errutil"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "obras:guild:"
	entryTTL  = 10 * time.Minute
)

// Cache puts an in-process tier and Redis in front of a store.Backend.
// Writes always reach the backend first. A key whose latest write could not
// reach Redis is marked stale and read from the backend until a later write
// lands.
type Cache struct {
	c     redis.UniversalClient
	l     *slog.Logger
	b     store.Backend
	cb    *CircuitBreaker
	lc    *LocalCache
	stale sync.Map
}

func NewCache(url string, l *slog.Logger, b store.Backend) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errutil.With(err)
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second

	return newCache(redis.NewClient(opt), l, b), nil
}

func newCache(rdb redis.UniversalClient, l *slog.Logger, b store.Backend) *Cache {
	c := &Cache{
		c:  rdb,
		l:  l,
		b:  b,
		cb: NewCircuitBreaker(5, 30*time.Second),
		lc: NewLocalCache(1000, time.Minute),
	}
	c.cb.OnChange = func(from, to CircuitState) {
		l.Warn("redis circuit changed state", "from", from.String(), "to", to.String())
	}

	return c
}

func (c *Cache) Close() error {
	c.lc.Stop()
	return errors.Join(c.c.Close(), c.b.Close())
}

func (c *Cache) Get(ctx context.Context, guildID string) (*models.Guild, error) {
	if data, ok := c.lookup(ctx, guildID); ok {
		g := models.NewGuild(guildID)
		err := json.Unmarshal(data, g)
		if err == nil {
			return g, nil
		}
		c.l.Warn("discarding undecodable cache entry", "guild", guildID, "error", err)
		c.lc.Delete(keyPrefix + guildID)
	}

	g, err := c.b.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	c.remember(ctx, g)
	return g, nil
}

func (c *Cache) Put(ctx context.Context, guild *models.Guild) error {
	if err := c.b.Put(ctx, guild); err != nil {
		return errutil.With(err)
	}

	c.remember(ctx, guild)
	return nil
}

func (c *Cache) Count(ctx context.Context) (int, error) {
	return c.b.Count(ctx)
}

func (c *Cache) lookup(ctx context.Context, guildID string) ([]byte, bool) {
	key := keyPrefix + guildID

	if data, ok := c.lc.Get(key); ok {
		return data, true
	}

	if _, stale := c.stale.Load(key); stale || !c.cb.Allow() {
		return nil, false
	}

	data, err := c.c.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.cb.RecordSuccess()
		c.lc.Set(key, data, entryTTL)
		return data, true
	case errors.Is(err, redis.Nil):
		c.cb.RecordSuccess()
	default:
		c.cb.RecordFailure()
		c.l.Warn("error reading guild from redis", "guild", guildID, "error", err)
	}

	return nil, false
}

func (c *Cache) remember(ctx context.Context, g *models.Guild) {
	key := keyPrefix + g.ID

	data, err := models.Encode(g)
	if err != nil {
		c.l.Warn("error encoding guild for cache", "guild", g.ID, "error", err)
		c.lc.Delete(key)
		c.forget(ctx, key)
		return
	}

	c.lc.Set(key, data, entryTTL)

	if !c.cb.Allow() {
		c.stale.Store(key, struct{}{})
		return
	}

	if err := c.c.Set(ctx, key, data, entryTTL).Err(); err != nil {
		c.cb.RecordFailure()
		c.l.Warn("error writing guild to redis", "guild", g.ID, "error", err)
		c.forget(ctx, key)
		return
	}
	c.cb.RecordSuccess()
	c.stale.Delete(key)
}

// forget drops the Redis entry for key, which is older than the backend.
// The key stays marked stale, since the delete can fail as well.
func (c *Cache) forget(ctx context.Context, key string) {
	c.stale.Store(key, struct{}{})

	if !c.cb.Allow() {
		return
	}
	if err := c.c.Del(ctx, key).Err(); err != nil {
		c.cb.RecordFailure()
		c.l.Warn("error dropping stale guild from redis", "key", key, "error", err)
		return
	}
	c.cb.RecordSuccess()
}
