// Package datacache is the read-through cache between the console's screens
// and the admin API's list endpoints. Entries are served from memory until
// the polling loop marks everything stale; a refetch that fails keeps
// serving the last-known-good payload so the screens never go blank over a
// flaky connection.
package datacache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Fetcher retrieves a raw resource payload with bearer auth. Implemented by
// restapi.Client.
type Fetcher interface {
	FetchRaw(ctx context.Context, token, path string) (json.RawMessage, error)
}

// Cache caches raw payloads per resource path.
type Cache struct {
	fetcher Fetcher
	token   func() string
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	data      json.RawMessage
	fetchedAt time.Time
	stale     bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) { c.now = nowFunc }
}

// New builds a Cache. tokenSource supplies the current bearer token,
// typically session.Manager.Token.
func New(fetcher Fetcher, tokenSource func() string, options ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("[datacache.New] fetcher is required")
	}
	if tokenSource == nil {
		return nil, errors.New("[datacache.New] tokenSource is required")
	}
	c := &Cache{
		fetcher: fetcher,
		token:   tokenSource,
		log:     zerolog.Nop(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Get returns the payload for path, fetching when there is no fresh entry.
// A failed refetch falls back to the last-known-good payload; the error is
// only surfaced when there is nothing cached to fall back to.
func (c *Cache) Get(ctx context.Context, path string) (json.RawMessage, error) {
	c.mu.Lock()
	cached := c.entries[path]
	if cached != nil && !cached.stale {
		data := cached.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.fetcher.FetchRaw(ctx, c.token(), path)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cached := c.entries[path]; cached != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("refetch failed, serving last-known-good")
			return cached.data, nil
		}
		return nil, errors.Wrapf(err, "[Cache.Get] fetch %s", path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = &entry{data: data, fetchedAt: c.now()}
	return data, nil
}

// InvalidateAll marks every entry stale. This is the polling tick's target:
// data stays readable but the next Get refetches.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.stale = true
	}
}

// Invalidate marks a single path stale.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[path]; e != nil {
		e.stale = true
	}
}

// Clear drops every entry, for logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// FetchedAt reports when the entry for path was last fetched, zero when it
// is not cached.
func (c *Cache) FetchedAt(path string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[path]; e != nil {
		return e.fetchedAt
	}
	return time.Time{}
}
