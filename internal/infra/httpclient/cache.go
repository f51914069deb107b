package httpclient

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showcase_client_cache_hits_total",
		Help: "Request cache hits in the API client.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showcase_client_cache_misses_total",
		Help: "Request cache misses in the API client.",
	})
)

const (
	DefaultCacheSize   = 256
	DefaultCacheMaxAge = 5 * time.Minute
)

type cached struct {
	data []byte
	at   time.Time
}

// RequestCache de-duplicates reads. Entries are bounded in number and
// expire after the TTL; a Get also honours a per-call maxAge. Concurrent
// loads of one key share a single call. Clearing starts a new generation:
// loads begun before it neither fill the cache nor absorb later callers.
type RequestCache struct {
	lru   *expirable.LRU[string, cached]
	group singleflight.Group
	now   func() time.Time

	mu  sync.Mutex // orders generation bumps against fills
	gen atomic.Uint64
}

func NewRequestCache(size int, ttl time.Duration) *RequestCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheMaxAge
	}
	return &RequestCache{
		lru: expirable.NewLRU[string, cached](size, nil, ttl),
		now: time.Now,
	}
}

// CacheKey builds the key for a request: method, path, sorted query, and the
// body with sorted keys for non-GET requests.
func CacheKey(method, rawURL string, body any) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(method))
	sb.WriteByte(' ')

	u, err := url.Parse(rawURL)
	if err != nil {
		sb.WriteString(rawURL)
	} else {
		sb.WriteString(u.Path)
		if q := u.Query(); len(q) > 0 {
			sb.WriteByte('?')
			sb.WriteString(q.Encode())
		}
	}

	if body != nil && !strings.EqualFold(method, "GET") {
		if b, err := sonic.ConfigStd.Marshal(body); err == nil {
			sb.WriteByte(' ')
			sb.Write(b)
		}
	}
	return sb.String()
}

// Get returns the entry for key if it is younger than maxAge.
func (c *RequestCache) Get(key string, maxAge time.Duration) ([]byte, bool) {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	e, ok := c.lru.Get(key)
	if !ok || c.now().Sub(e.at) >= maxAge {
		cacheMissesTotal.Inc()
		return nil, false
	}
	cacheHitsTotal.Inc()
	return e.data, true
}

func (c *RequestCache) Set(key string, data []byte) {
	c.lru.Add(key, cached{data: data, at: c.now()})
}

// Do returns the cached value for key or loads it with fetch. Callers
// waiting on the same key share one fetch. A caller whose ctx ends stops
// waiting; the shared fetch carries on for the others. A result that
// arrives after a Clear or ClearByURL is returned to its waiters but not
// cached.
func (c *RequestCache) Do(ctx context.Context, key string, maxAge time.Duration, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key, maxAge); ok {
		return data, nil
	}

	gen := c.gen.Load()
	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen.Load() == gen {
			c.Set(key, data)
		}
		c.mu.Unlock()
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Clear drops every entry.
func (c *RequestCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	c.lru.Purge()
}

// ClearByURL drops every entry whose request path equals the path of rawURL,
// whatever the method, query or body.
func (c *RequestCache) ClearByURL(rawURL string) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	for _, k := range c.lru.Keys() {
		if keyPath(k) == path {
			c.lru.Remove(k)
		}
	}
}

func (c *RequestCache) Len() int { return c.lru.Len() }

func keyPath(key string) string {
	_, rest, ok := strings.Cut(key, " ")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "? "); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
