// Package search runs the Instagram profile search for one person: it builds
// the query, fetches results through a Transport with bounded retry, parses
// them, and guarantees at most one network search per request identity.
package search

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/codeGROOVE-dev/igfinder/pkg/candcache"
	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
	"github.com/codeGROOVE-dev/igfinder/pkg/htmlutil"
	"github.com/codeGROOVE-dev/igfinder/pkg/instagram"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/igfinder/pkg/serp"
)

// punctuation matches everything except letters, digits, underscore and whitespace.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// BuildQuery returns the site-restricted query for a name and optional location.
func BuildQuery(name, location string) string {
	q := "site:" + instagram.Host + " " + clean(name)
	if loc := clean(location); loc != "" {
		q += " " + loc
	}
	return q + " instagram"
}

func clean(s string) string {
	return htmlutil.CollapseSpace(punctuation.ReplaceAllString(s, ""))
}

// Searcher finds candidate profiles for search requests.
type Searcher struct {
	transport Transport
	cache     *candcache.Cache
	logger    *slog.Logger
	params    EngineParams
	policy    fetch.Policy
	calls     atomic.Int64
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) { s.logger = logger }
}

// WithParams sets the engine parameters.
func WithParams(p EngineParams) Option {
	return func(s *Searcher) { s.params = p }
}

// WithPolicy sets the retry policy.
func WithPolicy(p fetch.Policy) Option {
	return func(s *Searcher) { s.policy = p }
}

// New creates a Searcher. Results are memoized in cache.
func New(transport Transport, cache *candcache.Cache, opts ...Option) *Searcher {
	s := &Searcher{
		transport: transport,
		cache:     cache,
		logger:    slog.Default(),
		params:    DefaultEngineParams(),
		policy:    fetch.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = candcache.New(candcache.WithLogger(s.logger))
	}
	return s
}

// Cache returns the memo the searcher writes to.
func (s *Searcher) Cache() *candcache.Cache {
	return s.cache
}

// Calls returns how many searches reached the network.
func (s *Searcher) Calls() int64 {
	return s.calls.Load()
}

// Search returns the candidates for req. A request identity already attempted
// in this process is answered from the memo, or with an empty result if its
// search failed. Upstream failures yield an empty result, never an error.
func (s *Searcher) Search(ctx context.Context, req profile.SearchRequest) *profile.SearchResult {
	key := req.Key()
	if !s.cache.Attempt(key) {
		s.logger.InfoContext(ctx, "already searched, using cached result", "name", req.Name)
		if r, ok := s.cache.Result(key); ok {
			return r
		}
		return profile.NewSearchResult()
	}

	query := BuildQuery(req.Name, req.Location)
	s.calls.Add(1)
	s.logger.InfoContext(ctx, "searching", "name", req.Name, "query", query)

	body, err := fetch.Do(ctx, s.policy, fetch.ClassifySearch, s.logger, func(ctx context.Context) ([]byte, error) {
		resp, err := s.transport.Fetch(ctx, query, s.params)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &fetch.HTTPError{StatusCode: resp.StatusCode, URL: Endpoint}
		}
		return resp.Body, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "search failed after retries", "name", req.Name, "attempts", s.policy.Attempts, "error", err)
		return profile.NewSearchResult()
	}

	resp := serp.Decode(body)
	result, err := serp.Parse(resp, req)
	if err != nil {
		s.logger.WarnContext(ctx, "parsing search response failed", "name", req.Name, "kind", resp.Kind, "error", err)
	}

	s.logger.InfoContext(ctx, "search complete",
		"name", req.Name,
		"kind", resp.Kind,
		"candidates", len(result.Usernames),
		"usernames", strings.Join(result.Usernames, ", "))

	s.cache.StoreResult(key, result)
	return result
}
