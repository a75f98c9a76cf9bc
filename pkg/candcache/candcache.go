// Package candcache memoizes search results by request identity and profile
// records by username for the lifetime of one process.
//
// A Cache is owned by its caller; nothing is global and nothing is persisted.
// Result and record memos are bounded; the attempted-key set is not, since an
// evicted key would permit a second network search for the same person.
package candcache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/sfcache"
)

// DefaultCapacity is the default number of entries per memo.
const DefaultCapacity = 4096

const lookupTimeout = 15 * time.Second

// Lookup fetches detailed profile data for a username.
type Lookup interface {
	Lookup(ctx context.Context, username string) (*profile.Record, error)
}

// Cache holds the process-lifetime memos.
type Cache struct {
	lookup    Lookup
	logger    *slog.Logger
	results   *sfcache.MemoryCache[string, *profile.SearchResult]
	records   *sfcache.MemoryCache[string, *profile.Record]
	attempted map[string]bool
	latest    string
	policy    fetch.Policy
	timeout   time.Duration
	lookups   atomic.Int64
	mu        sync.Mutex
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	lookup   Lookup
	logger   *slog.Logger
	policy   fetch.Policy
	capacity int
	timeout  time.Duration
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLookup sets the detail-lookup provider. Without one, Profile always
// returns the best-known candidate data.
func WithLookup(l Lookup) Option {
	return func(c *config) { c.lookup = l }
}

// WithCapacity bounds the result and record memos.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithPolicy sets the retry policy for detail lookups.
func WithPolicy(p fetch.Policy) Option {
	return func(c *config) { c.policy = p }
}

// WithTimeout sets the per-attempt detail lookup timeout (default 15s).
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	cfg := &config{
		logger:   slog.Default(),
		policy:   fetch.DefaultPolicy(),
		capacity: DefaultCapacity,
		timeout:  lookupTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}

	return &Cache{
		lookup:    cfg.lookup,
		logger:    cfg.logger,
		results:   sfcache.New[string, *profile.SearchResult](sfcache.Size(cfg.capacity)),
		records:   sfcache.New[string, *profile.Record](sfcache.Size(cfg.capacity)),
		attempted: make(map[string]bool),
		policy:    cfg.policy,
		timeout:   cfg.timeout,
	}
}

// Attempt marks key as the current search and reports whether this is its
// first attempt. A false return means the caller must not search again.
func (c *Cache) Attempt(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = key
	if c.attempted[key] {
		return false
	}
	c.attempted[key] = true
	return true
}

// Result returns the memoized result for key.
func (c *Cache) Result(key string) (*profile.SearchResult, bool) {
	return c.results.Get(key)
}

// StoreResult memoizes r under key. A key maps to at most one result: later
// stores for the same key are ignored.
func (c *Cache) StoreResult(key string, r *profile.SearchResult) {
	if r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results.Get(key); ok {
		return
	}
	c.results.Set(key, r)
}

// Candidate returns what the most recent search learned about username, or nil.
func (c *Cache) Candidate(username string) *profile.Candidate {
	c.mu.Lock()
	key := c.latest
	c.mu.Unlock()

	r, ok := c.results.Get(key)
	if !ok || r == nil {
		return nil
	}
	return r.Candidates[username]
}

// Lookups returns how many detail lookups were started.
func (c *Cache) Lookups() int64 {
	return c.lookups.Load()
}

// Profile returns the profile record for username. Records already fetched
// are returned from the memo. Below the confidence threshold, or when the
// lookup fails, the best-known candidate data is returned instead and no
// error is reported.
func (c *Cache) Profile(ctx context.Context, username string, confidence int, name string) *profile.Record {
	if username == "" || username == profile.NoMatch {
		return &profile.Record{}
	}
	if r, ok := c.records.Get(username); ok {
		return r
	}

	fallback := c.bestKnown(username)

	if confidence < profile.ConfidenceThreshold {
		c.logger.InfoContext(ctx, "confidence below threshold, using search metadata",
			"username", username, "name", name, "confidence", confidence)
		return fallback
	}
	if c.lookup == nil {
		return fallback
	}

	c.lookups.Add(1)
	rec, err := fetch.Do(ctx, c.policy, fetch.ClassifyDetail, c.logger, func(ctx context.Context) (*profile.Record, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.lookup.Lookup(ctx, username)
	})
	if err != nil || rec == nil {
		c.logger.WarnContext(ctx, "detail lookup failed, using search metadata",
			"username", username, "name", name, "error", err)
		return fallback
	}

	if rec.Username == "" {
		rec.Username = username
	}
	rec.MetadataSource = profile.SourceDetailAPI
	c.records.Set(username, rec)
	c.logger.InfoContext(ctx, "fetched profile details", "username", username, "followers", rec.FollowerCount)
	return rec
}

func (c *Cache) bestKnown(username string) *profile.Record {
	if cand := c.Candidate(username); cand != nil {
		return profile.RecordFromCandidate(cand)
	}
	return &profile.Record{Username: username}
}
