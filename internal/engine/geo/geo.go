// Package geo resolves network addresses to coarse location metadata and
// caches the answers.
package geo

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker/v2"

	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

const (
	DefaultCapacity    = 10000
	DefaultNegativeTTL = 5 * time.Minute
	DefaultTimeout     = 2 * time.Second
)

// Resolver performs one outbound lookup.
type Resolver interface {
	Resolve(ctx context.Context, addr string) (model.GeoRecord, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity bounds the number of cached successful lookups. Default: 10000.
func WithCapacity(n int) Option {
	return func(c *Cache) { c.capacity = n }
}

// WithNegativeTTL sets how long a failed lookup is remembered before the
// address may be retried. Default: 5m.
func WithNegativeTTL(d time.Duration) Option {
	return func(c *Cache) { c.negativeTTL = d }
}

// WithTimeout bounds each outbound lookup. Default: 2s.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// Cache memoizes Resolver answers per address. Successes live in a bounded
// LRU without expiry; failures are cached as model.UnknownGeo for the
// negative TTL so a flapping service is not hammered but can recover.
// A circuit breaker short-circuits lookups while the service keeps failing.
type Cache struct {
	resolver    Resolver
	capacity    int
	negativeTTL time.Duration
	timeout     time.Duration

	mu       sync.Mutex
	resolved *lru.Cache[string, model.GeoRecord]
	failed   *gocache.Cache
	breaker  *gobreaker.CircuitBreaker[model.GeoRecord]
}

// New creates a Cache. A nil resolver disables enrichment: every lookup
// returns model.UnknownGeo without I/O.
func New(r Resolver, opts ...Option) *Cache {
	c := &Cache{
		resolver:    r,
		capacity:    DefaultCapacity,
		negativeTTL: DefaultNegativeTTL,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capacity <= 0 {
		c.capacity = DefaultCapacity
	}

	resolved, err := lru.New[string, model.GeoRecord](c.capacity)
	if err != nil {
		panic(err)
	}
	c.resolved = resolved
	c.failed = gocache.New(c.negativeTTL, 2*c.negativeTTL)
	c.breaker = gobreaker.NewCircuitBreaker[model.GeoRecord](gobreaker.Settings{
		Name:    "geo",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.BreakerState.WithLabelValues(name).Set(open)
		},
	})
	return c
}

// Lookup returns the cached record for addr, resolving it on a miss. It never
// fails; any error yields model.UnknownGeo.
func (c *Cache) Lookup(ctx context.Context, addr string) model.GeoRecord {
	if c.resolver == nil {
		metrics.GeoLookups.WithLabelValues("disabled").Inc()
		return model.UnknownGeo
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.resolved.Get(addr); ok {
		metrics.GeoLookups.WithLabelValues("hit").Inc()
		return rec
	}
	if _, ok := c.failed.Get(addr); ok {
		metrics.GeoLookups.WithLabelValues("negative_hit").Inc()
		return model.UnknownGeo
	}

	if rec, ok := local(addr); ok {
		c.resolved.Add(addr, rec)
		metrics.GeoLookups.WithLabelValues("resolved").Inc()
		return rec
	}

	lctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	rec, err := c.breaker.Execute(func() (model.GeoRecord, error) {
		return c.resolver.Resolve(lctx, addr)
	})
	if err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, gobreaker.ErrOpenState) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "geo lookup failed", "addr", addr, "error", err)
		c.failed.Set(addr, struct{}{}, gocache.DefaultExpiration)
		metrics.GeoLookups.WithLabelValues("failed").Inc()
		return model.UnknownGeo
	}

	c.resolved.Add(addr, rec)
	metrics.GeoLookups.WithLabelValues("resolved").Inc()
	return rec
}

// Len returns the number of cached successful lookups.
func (c *Cache) Len() int {
	return c.resolved.Len()
}

// local answers for addresses no public geolocation service knows about.
func local(addr string) (model.GeoRecord, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return model.GeoRecord{}, false
	}
	ip = ip.Unmap()
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return model.GeoRecord{City: "Unknown", Country: "Unknown", Org: "Private network"}, true
	}
	return model.GeoRecord{}, false
}
