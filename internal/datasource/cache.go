package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/metrics"
	"github.com/yourusername/f1-predictor/internal/models"
)

// SessionKey identifies a cached session.
type SessionKey struct {
	Year  int
	Event string
	Kind  models.SessionKind
}

// String returns string representation of cache key
func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.Year, k.Event, k.Kind.Code())
}

// Cache is the explicit get/put contract for session caching.
type Cache interface {
	Get(key SessionKey) (*models.Session, bool)
	Put(key SessionKey, session *models.Session)
}

// SessionCache provides in-memory caching for loaded sessions
type SessionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewSessionCache creates a new session cache
func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get retrieves a cached session
func (sc *SessionCache) Get(key SessionKey) (*models.Session, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if v, found := sc.cache.Get(key.String()); found {
		if s, ok := v.(*models.Session); ok {
			sc.hitCount++
			sc.updateMetrics()
			return s, true
		}
	}
	sc.missCount++
	sc.updateMetrics()
	return nil, false
}

// Put stores a session in cache
func (sc *SessionCache) Put(key SessionKey, session *models.Session) {
	sc.cache.Set(key.String(), session, sc.ttl)
}

// Stats returns hit count, miss count and item count.
func (sc *SessionCache) Stats() (hits, misses uint64, items int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.hitCount, sc.missCount, sc.cache.ItemCount()
}

// Clear removes all cached sessions
func (sc *SessionCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache.Flush()
	sc.hitCount = 0
	sc.missCount = 0
}

// updateMetrics updates Prometheus metrics
func (sc *SessionCache) updateMetrics() {
	total := sc.hitCount + sc.missCount
	if total > 0 {
		metrics.UpdateSessionCacheHitRatio(float64(sc.hitCount) / float64(total))
	}
}

// CachedProvider wraps a SessionProvider with a Cache. Only sessions that
// already ran are cached, so repeated qualifying lookups keep seeing fresh data.
type CachedProvider struct {
	provider SessionProvider
	cache    Cache
	logger   *logrus.Entry
}

// NewCachedProvider creates a caching provider.
func NewCachedProvider(provider SessionProvider, c Cache, logger *logrus.Logger) *CachedProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedProvider{provider: provider, cache: c, logger: logger.WithField("component", "session_cache")}
}

// Load returns a cached session or loads it through the wrapped provider.
func (p *CachedProvider) Load(ctx context.Context, year int, event string, kind models.SessionKind) (*models.Session, error) {
	key := SessionKey{Year: year, Event: event, Kind: kind}
	if s, ok := p.cache.Get(key); ok {
		p.logger.WithField("key", key.String()).Debug("Session cache hit")
		return s, nil
	}

	s, err := p.provider.Load(ctx, year, event, kind)
	if err != nil {
		return nil, err
	}
	if completed(s) {
		p.cache.Put(key, s)
	}
	return s, nil
}

// Schedule delegates to the wrapped provider.
func (p *CachedProvider) Schedule(ctx context.Context, year int) ([]models.EventMetadata, error) {
	return p.provider.Schedule(ctx, year)
}

// NextEvent delegates to the wrapped provider.
func (p *CachedProvider) NextEvent(ctx context.Context, now time.Time) (*models.EventMetadata, error) {
	return p.provider.NextEvent(ctx, now)
}

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string {
	return p.provider.Name()
}

func completed(s *models.Session) bool {
	if s == nil {
		return false
	}
	if s.Kind.IsPractice() {
		return len(s.Laps) > 0
	}
	return s.HasClassification()
}
