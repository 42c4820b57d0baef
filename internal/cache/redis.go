package cache

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 500

// redisStore implements Store on a Redis server. Every key is stored as
// "<prefix>:<key>" and scans never leave that prefix.
type redisStore struct {
	client *redis.Client
	log    zerolog.Logger
	prefix string
	closed atomic.Bool
}

// Ensure redisStore implements the required interfaces.
var (
	_ Store          = (*redisStore)(nil)
	_ Pinger         = (*redisStore)(nil)
	_ PatternDeleter = (*redisStore)(nil)
	_ StatsProvider  = (*redisStore)(nil)
	_ Named          = (*redisStore)(nil)
)

// newRedisStore connects a client from configuration. The connection is
// lazy: an unreachable server is reported by the first operation, not here.
func newRedisStore(cfg *RedisConfig, prefix string) (*redisStore, error) {
	log := partLogger("redis")

	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			log.Error().Err(err).Msg("redis: invalid url")
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	log.Info().
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Str("prefix", prefix).
		Msg("redis store created")

	return newRedisStoreFromClient(redis.NewClient(opts), prefix), nil
}

func newRedisStoreFromClient(client *redis.Client, prefix string) *redisStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		log:    partLogger("redis"),
	}
}

func (r *redisStore) prefixKey(key string) string {
	return r.prefix + ":" + key
}

func (r *redisStore) Mode() Mode {
	return ModeRedis
}

// Get retrieves a value. Returns ErrNotFound on redis.Nil.
func (r *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	data, err := r.client.Get(ctx, r.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	r.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(data)).Msg("cache get")
	return data, nil
}

// SetWithTTL stores a value with SET EX.
func (r *redisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.client.Set(ctx, r.prefixKey(key), value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	r.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

// Delete removes a key with UNLINK.
func (r *redisStore) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.client.Unlink(ctx, r.prefixKey(key)).Err(); err != nil {
		return unavailable("delete", err)
	}
	r.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// DeleteMatching walks SCAN MATCH "<prefix>:<scan prefix>*" and unlinks
// every key the pattern selects.
func (r *redisStore) DeleteMatching(ctx context.Context, p Pattern) ([]string, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	match := escapeGlob(r.prefixKey(p.ScanPrefix())) + "*"
	trim := len(r.prefix) + 1

	var removed []string
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return removed, unavailable("scan", err)
		}

		batch := make([]string, 0, len(keys))
		for _, k := range keys {
			if logical := k[trim:]; p.Match(logical) {
				batch = append(batch, k)
			}
		}
		if len(batch) > 0 {
			if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
				return removed, unavailable("unlink", err)
			}
			for _, k := range batch {
				removed = append(removed, k[trim:])
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.log.Debug().Str("pattern", p.String()).Int("removed", len(removed)).Msg("cache invalidate")
	return removed, nil
}

// Ping issues PING.
func (r *redisStore) Ping(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.log.Debug().Err(err).Msg("cache ping: unhealthy")
		return unavailable("ping", err)
	}
	return nil
}

// Stats reads server-wide counters from INFO stats. They cover the whole
// server, not only this store's prefix.
func (r *redisStore) Stats(ctx context.Context) (Stats, error) {
	if r.closed.Load() {
		return Stats{}, ErrClosed
	}
	info, err := r.client.Info(ctx, "stats").Result()
	if err != nil {
		return Stats{}, unavailable("info", err)
	}
	return parseRedisInfo(info), nil
}

// Close closes the client. Close is idempotent.
func (r *redisStore) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := r.client.Close()
	if err != nil {
		r.log.Error().Err(err).Msg("redis: client close error")
		return err
	}
	r.log.Info().Msg("redis store closed")
	return nil
}

func parseRedisInfo(info string) Stats {
	var s Stats
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			continue
		}
		switch name {
		case "keyspace_hits":
			s.Hits = n
		case "keyspace_misses":
			s.Misses = n
		case "evicted_keys":
			s.Evictions = n
		}
	}
	return s
}

// escapeGlob escapes Redis glob metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
