// Package ratelimit provides fixed-window request limiters keyed by caller.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Config holds limiter configuration.
type Config struct {
	Requests int
	Window   time.Duration
	Prefix   string
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// New returns a Redis-backed limiter when redisURL is set and a local
// in-process limiter otherwise.
func New(ctx context.Context, redisURL string, cfg Config) (Limiter, func() error, error) {
	if redisURL == "" {
		slog.Info("rate limiter configured", "backend", "local", "requests", cfg.Requests, "window", cfg.Window)
		return NewLocalLimiter(cfg), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("rate limiter configured", "backend", "redis", "requests", cfg.Requests, "window", cfg.Window)
	return NewRedisLimiter(client, cfg), client.Close, nil
}

const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter is a fixed-window limiter shared across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	cfg    Config
}

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(windowScript),
		cfg:    cfg,
	}
}

// Allow reports whether key is under its limit. Redis failures fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l.cfg.Requests <= 0 || l.cfg.Window <= 0 || key == "" {
		return true
	}

	redisKey := key
	if l.cfg.Prefix != "" {
		redisKey = l.cfg.Prefix + ":" + key
	}

	ttl := l.cfg.Window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{redisKey}, ttl, l.cfg.Requests).Int64()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return allowed == 1
}

// LocalLimiter is a per-process token bucket limiter keyed by caller.
type LocalLimiter struct {
	cfg      Config
	mu       sync.Mutex
	limiters map[string]*localEntry
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter(cfg Config) *LocalLimiter {
	return &LocalLimiter{
		cfg:      cfg,
		limiters: make(map[string]*localEntry),
		now:      time.Now,
	}
}

// Allow reports whether key is under its limit.
func (l *LocalLimiter) Allow(_ context.Context, key string) bool {
	if l.cfg.Requests <= 0 || l.cfg.Window <= 0 || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	entry, ok := l.limiters[key]
	if !ok {
		every := rate.Every(l.cfg.Window / time.Duration(l.cfg.Requests))
		entry = &localEntry{limiter: rate.NewLimiter(every, l.cfg.Requests)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops buckets untouched for more than two windows.
// Callers must hold l.mu.
func (l *LocalLimiter) evictIdle(now time.Time) {
	if len(l.limiters) < 1024 {
		return
	}
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > 2*l.cfg.Window {
			delete(l.limiters, k)
		}
	}
}
