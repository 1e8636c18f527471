// Package distcache mirrors the latest ConfluenceUpdate per symbol into
// Redis, plus a pub/sub channel, so a second
// engine-less UI-only process can serve /status and /candles while the
// engine remains the sole writer. Grounded on the teacher's
// internal/cache.CacheService: a circuit-breaker-guarded Redis wrapper
// that degrades gracefully instead of failing the caller.
package distcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"marketanalysis/internal/bus"
	"marketanalysis/internal/config"
)

const (
	keyPrefix     = "marketanalysis:update:"
	channelPrefix = "marketanalysis:updates:"
	updateTTL     = 24 * time.Hour
)

const (
	maxFailures     = 3
	checkInterval   = 30 * time.Second
	recoveryBackoff = 5 * time.Second
)

// Mirror is a Redis-backed, circuit-breaker-guarded mirror of
// ConfluenceUpdates. A Mirror with Enabled false is a no-op: every method
// returns immediately without touching Redis, so callers never need to
// branch on whether distcache is configured.
type Mirror struct {
	client  *redis.Client
	enabled bool

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time
}

// New constructs a Mirror from RedisConfig. When cfg.Enabled is false, the
// returned Mirror is inert.
func New(cfg config.RedisConfig) *Mirror {
	if !cfg.Enabled {
		return &Mirror{enabled: false}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	m := &Mirror{client: client, enabled: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.healthy = client.Ping(ctx).Err() == nil
	m.lastCheck = time.Now()
	return m
}

// Enabled reports whether this Mirror is backed by a live configuration
// (not necessarily a currently-healthy connection).
func (m *Mirror) Enabled() bool { return m.enabled }

// IsHealthy reports whether the circuit breaker currently considers Redis
// reachable. Always false when the mirror is disabled.
func (m *Mirror) IsHealthy() bool {
	if !m.enabled {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

func (m *Mirror) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount++
	if m.failureCount >= maxFailures {
		m.healthy = false
	}
}

func (m *Mirror) recordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = true
	m.failureCount = 0
	m.lastCheck = time.Now()
}

func (m *Mirror) checkHealth(ctx context.Context) {
	m.mu.RLock()
	shouldCheck := !m.healthy && time.Since(m.lastCheck) >= checkInterval
	m.mu.RUnlock()
	if !shouldCheck {
		return
	}
	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), recoveryBackoff)
		defer cancel()
		if err := m.client.Ping(pingCtx).Err(); err == nil {
			m.recordSuccess()
		}
	}()
}

// Publish writes the latest update for its symbol to a TTL'd key and
// publishes it on the symbol's pub/sub channel. A disabled Mirror drops the
// update and returns nil; an unhealthy one drops it and returns an error
// -- it is a mirror, not a system of
// record, and the live bus.Bus is the primary delivery path.
func (m *Mirror) Publish(ctx context.Context, update bus.ConfluenceUpdate) error {
	if !m.enabled {
		return nil
	}
	m.checkHealth(ctx)
	if !m.IsHealthy() {
		return fmt.Errorf("distcache: redis unavailable (circuit breaker open)")
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("distcache: marshal update: %w", err)
	}

	key := keyPrefix + update.Symbol
	if err := m.client.Set(ctx, key, payload, updateTTL).Err(); err != nil {
		m.recordFailure()
		return fmt.Errorf("distcache: set %s: %w", key, err)
	}
	if err := m.client.Publish(ctx, channelPrefix+update.Symbol, payload).Err(); err != nil {
		m.recordFailure()
		return fmt.Errorf("distcache: publish %s: %w", update.Symbol, err)
	}

	m.recordSuccess()
	return nil
}

// Latest returns the most recently mirrored update for symbol, or false if
// none is cached (including when the mirror is disabled or unhealthy).
func (m *Mirror) Latest(ctx context.Context, symbol string) (bus.ConfluenceUpdate, bool) {
	var out bus.ConfluenceUpdate
	if !m.enabled {
		return out, false
	}
	m.checkHealth(ctx)
	if !m.IsHealthy() {
		return out, false
	}

	data, err := m.client.Get(ctx, keyPrefix+symbol).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.recordFailure()
		}
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	m.recordSuccess()
	return out, true
}

// Subscribe returns a channel of raw JSON payloads published for symbol.
// The caller must cancel ctx (or call the returned close func) to release
// the underlying subscription.
func (m *Mirror) Subscribe(ctx context.Context, symbol string) (<-chan []byte, func(), error) {
	if !m.enabled {
		return nil, func() {}, fmt.Errorf("distcache: disabled")
	}
	sub := m.client.Subscribe(ctx, channelPrefix+symbol)
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()
	return out, func() { sub.Close() }, nil
}

// Close releases the underlying Redis connection pool.
func (m *Mirror) Close() error {
	if !m.enabled || m.client == nil {
		return nil
	}
	return m.client.Close()
}
