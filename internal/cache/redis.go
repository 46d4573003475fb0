package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisAddr = "localhost:6379"
	redisDialCheck   = 5 * time.Second
)

// redisClient guarda sesiones validadas y marcas de revocación en Redis.
// El mismo *redis.Client lo reutiliza el rate limiter.
type redisClient struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis abre el cliente y falla si Redis no responde.
func NewRedis(ctx context.Context, cfg Config) (*redisClient, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = defaultRedisAddr
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})

	pctx, cancel := context.WithTimeout(ctx, redisDialCheck)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis %s: %w", addr, err)
	}
	return &redisClient{rdb: rdb, prefix: cfg.Prefix}, nil
}

func (c *redisClient) Redis() *redis.Client { return c.rdb }

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, prefixed(c.prefix, key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("cache: get: %w", err)
	}
	return v, nil
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, prefixed(c.prefix, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, prefixed(c.prefix, key)).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

func (c *redisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, prefixed(c.prefix, key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache: exists: %w", err)
	}
	return n == 1, nil
}

func (c *redisClient) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *redisClient) Close() error { return c.rdb.Close() }

// Stats lee INFO memory+stats en una sola llamada.
func (c *redisClient) Stats(ctx context.Context) (Stats, error) {
	raw, err := c.rdb.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return Stats{}, fmt.Errorf("cache: info: %w", err)
	}
	keys, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("cache: dbsize: %w", err)
	}
	info := parseInfo(raw)
	st := Stats{Driver: "redis", Keys: keys, UsedMemory: info["used_memory_human"]}
	st.Hits, _ = strconv.ParseInt(info["keyspace_hits"], 10, 64)
	st.Misses, _ = strconv.ParseInt(info["keyspace_misses"], 10, 64)
	return st, nil
}

// parseInfo convierte la salida "campo:valor" de INFO en un mapa; ignora
// encabezados de sección (# ...).
func parseInfo(raw string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			out[k] = v
		}
	}
	return out
}
