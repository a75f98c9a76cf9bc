// Package finder runs the discovery pipeline: search, rank, then fetch the
// profile of the best match, for one person or a whole worklist.
package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/igfinder/pkg/ranker"
	"github.com/codeGROOVE-dev/igfinder/pkg/search"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
	"github.com/google/uuid"
)

// HighConfidence is the confidence at which a match counts as high confidence.
const HighConfidence = 70

// DefaultDelay is the pause between two people of a run.
const DefaultDelay = 3 * time.Second

// ErrNoStore is returned by Run when the finder has no worklist store.
var ErrNoStore = errors.New("no worklist store configured")

// Outcome is everything the pipeline produced for one person.
type Outcome struct {
	Result  *profile.SearchResult `json:"result"`
	Verdict *profile.Verdict      `json:"verdict"`
	Record  *profile.Record       `json:"record"`
	Row     worklist.Result       `json:"row"`
}

// Stats counts the work done by the finder.
type Stats struct {
	RunID          string        `json:"run_id,omitempty"`
	Started        time.Time     `json:"started,omitzero"`
	Duration       time.Duration `json:"duration"`
	People         int           `json:"people_processed"`
	Matches        int           `json:"successful_matches"`
	HighConfidence int           `json:"high_confidence_matches"`
	Errors         int           `json:"errors"`
	Skipped        int           `json:"skipped"`
	SearchCalls    int64         `json:"search_calls"`
	RankCalls      int64         `json:"ranking_calls"`
	DetailCalls    int64         `json:"detail_calls"`
}

func (s *Stats) add(o Stats) {
	s.People += o.People
	s.Matches += o.Matches
	s.HighConfidence += o.HighConfidence
	s.Errors += o.Errors
	s.Skipped += o.Skipped
	s.SearchCalls += o.SearchCalls
	s.RankCalls += o.RankCalls
	s.DetailCalls += o.DetailCalls
}

// Finder orchestrates the pipeline. Runs and single lookups are serialized.
type Finder struct {
	searcher *search.Searcher
	ranker   ranker.Ranker
	store    worklist.Store
	logger   *slog.Logger
	totals   Stats
	delay    time.Duration
	mu       sync.Mutex // serializes pipelines
	statsMu  sync.Mutex
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finder) { f.logger = logger }
}

// WithStore sets the worklist store used by Run.
func WithStore(s worklist.Store) Option {
	return func(f *Finder) { f.store = s }
}

// WithDelay sets the pause between people (default 3s).
func WithDelay(d time.Duration) Option {
	return func(f *Finder) { f.delay = d }
}

// New creates a Finder.
func New(searcher *search.Searcher, rk ranker.Ranker, opts ...Option) *Finder {
	f := &Finder{
		searcher: searcher,
		ranker:   rk,
		logger:   slog.Default(),
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.ranker == nil {
		f.ranker = ranker.Heuristic{}
	}
	return f
}

// Stats returns the totals since the finder was created. RunID, Started and
// Duration describe the latest run.
func (f *Finder) Stats() Stats {
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	return f.totals
}

func (f *Finder) record(s Stats, run bool) {
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	f.totals.add(s)
	if run {
		f.totals.RunID = s.RunID
		f.totals.Started = s.Started
		f.totals.Duration = s.Duration
	}
}

// Lookup runs the pipeline for a single person without touching the store.
func (f *Finder) Lookup(ctx context.Context, p profile.Person) (*Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var s Stats
	o, err := f.process(ctx, p, &s)
	if err != nil {
		s.Errors++
	}
	f.record(s, false)
	return o, err
}

// Run processes every pending person of the store. A person whose pipeline
// fails is marked "error occurred" and the run continues. People already
// present in the results are skipped.
func (f *Finder) Run(ctx context.Context) (*Stats, error) {
	if f.store == nil {
		return nil, ErrNoStore
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &Stats{RunID: uuid.NewString(), Started: time.Now()}
	logger := f.logger.With("run", stats.RunID)
	defer func() {
		stats.Duration = time.Since(stats.Started)
		f.record(*stats, true)
		logger.InfoContext(ctx, "run finished",
			"people", stats.People,
			"matches", stats.Matches,
			"high_confidence", stats.HighConfidence,
			"errors", stats.Errors,
			"skipped", stats.Skipped,
			"search_calls", stats.SearchCalls,
			"ranking_calls", stats.RankCalls,
			"detail_calls", stats.DetailCalls,
			"duration", stats.Duration.Round(time.Millisecond))
	}()

	people, err := f.store.Pending(ctx)
	if err != nil {
		return stats, fmt.Errorf("load pending people: %w", err)
	}
	done, err := f.store.ProcessedNames(ctx)
	if err != nil {
		return stats, fmt.Errorf("load existing results: %w", err)
	}

	var todo []profile.Person
	for _, p := range people {
		if done[p.Name] {
			logger.InfoContext(ctx, "skipping, already in results", "name", p.Name, "row", p.Row)
			stats.Skipped++
			continue
		}
		todo = append(todo, p)
	}
	logger.InfoContext(ctx, "run started", "pending", len(people), "to_process", len(todo))

	for i, p := range todo {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		logger.InfoContext(ctx, "processing", "name", p.Name, "location", p.Location, "row", p.Row)
		f.runOne(ctx, logger, p, stats)

		if i < len(todo)-1 && f.delay > 0 {
			if err := sleep(ctx, f.delay); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

func (f *Finder) runOne(ctx context.Context, logger *slog.Logger, p profile.Person, stats *Stats) {
	fail := func(err error) {
		stats.Errors++
		logger.ErrorContext(ctx, "processing failed", "name", p.Name, "row", p.Row, "error", err)
		if err := f.store.SetStatus(ctx, p.Row, worklist.StatusError); err != nil {
			logger.WarnContext(ctx, "status update failed", "row", p.Row, "error", err)
		}
	}

	if err := f.store.SetStatus(ctx, p.Row, worklist.StatusProcessing); err != nil {
		fail(err)
		return
	}
	o, err := f.process(ctx, p, stats)
	if err != nil {
		fail(err)
		return
	}
	if err := f.store.SetStatus(ctx, p.Row, worklist.StatusComplete); err != nil {
		fail(err)
		return
	}
	if err := f.store.AddResult(ctx, o.Row); err != nil {
		logger.WarnContext(ctx, "saving result failed", "name", p.Name, "error", err)
	}
}

// process runs one pipeline, converting a panic into an error.
func (f *Finder) process(ctx context.Context, p profile.Person, stats *Stats) (o *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			o, err = nil, fmt.Errorf("panic processing %q: %v", p.Name, r)
		}
	}()

	start := time.Now()
	cache := f.searcher.Cache()
	searches, lookups := f.searcher.Calls(), cache.Lookups()
	defer func() {
		stats.SearchCalls += f.searcher.Calls() - searches
		stats.DetailCalls += cache.Lookups() - lookups
	}()

	result := f.searcher.Search(ctx, p.Request())

	verdict := ranker.NoCandidates()
	if !result.Empty() {
		stats.RankCalls++
		verdict, err = f.ranker.Rank(ctx, p, result)
		if err != nil {
			return nil, fmt.Errorf("rank candidates: %w", err)
		}
	}

	record := &profile.Record{}
	if verdict.Matched() {
		record = cache.Profile(ctx, verdict.BestMatch, verdict.Confidence, p.Name)
		stats.Matches++
		if verdict.Confidence >= HighConfidence {
			stats.HighConfidence++
		}
	}
	stats.People++

	o = &Outcome{
		Result:  result,
		Verdict: verdict,
		Record:  record,
		Row:     worklist.NewResult(p, verdict, record, time.Since(start)),
	}
	f.logger.InfoContext(ctx, "person processed",
		"name", p.Name,
		"best_match", verdict.BestMatch,
		"confidence", verdict.Confidence,
		"source", record.MetadataSource,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return o, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
