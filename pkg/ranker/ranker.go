// Package ranker decides which candidate profile belongs to a searched person.
//
// LLM asks an OpenAI-compatible chat model for a verdict. Heuristic ranks
// offline with the guess package. Both return a verdict whose ranked list is a
// permutation of the candidate usernames.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/igfinder/pkg/guess"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// ErrMalformed is returned when a model reply holds no usable verdict.
var ErrMalformed = errors.New("malformed verdict")

// Ranker judges a candidate set.
type Ranker interface {
	Rank(ctx context.Context, person profile.Person, result *profile.SearchResult) (*profile.Verdict, error)
}

// NoCandidates is the verdict for an empty candidate set.
func NoCandidates() *profile.Verdict {
	return &profile.Verdict{
		BestMatch: profile.NoMatch,
		Ranked:    []string{},
		Reasoning: "No Instagram profiles found for this name and location.",
	}
}

// Fallback picks the first discovered candidate with zero confidence.
func Fallback(result *profile.SearchResult, reason string) *profile.Verdict {
	if result.Empty() {
		return NoCandidates()
	}
	return &profile.Verdict{
		BestMatch:  result.Usernames[0],
		Confidence: 0,
		Ranked:     append([]string(nil), result.Usernames...),
		Reasoning:  reason,
	}
}

// Heuristic ranks candidates without a language model.
type Heuristic struct{}

// Rank implements Ranker.
func (Heuristic) Rank(_ context.Context, person profile.Person, result *profile.SearchResult) (*profile.Verdict, error) {
	return guess.Rank(person, result), nil
}

var (
	fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	braced = regexp.MustCompile(`(?s)\{.*\}`)
)

// rawVerdict accepts the loose shapes models produce: numbers as strings and the like.
type rawVerdict struct {
	BestMatch  any   `json:"best_match"`
	Confidence any   `json:"confidence_score"`
	Ranked     []any `json:"ranked_usernames"`
	Reasoning  any   `json:"reasoning"`
}

// ParseVerdict extracts a verdict from model output and validates it against
// result. A fenced code block is tried first, then the outermost braces, then
// the whole text. The best match must be a candidate or the no-match sentinel.
// Confidence is clamped to 0-100 and the ranked list is completed to a
// permutation of the candidates.
func ParseVerdict(text string, result *profile.SearchResult) (*profile.Verdict, error) {
	raw, err := decode(text)
	if err != nil {
		return nil, err
	}

	known := make(map[string]string, len(result.Usernames))
	for _, u := range result.Usernames {
		known[strings.ToLower(u)] = u
	}
	resolve := func(v any) (string, bool) {
		s := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(str(v)), "@"))
		u, ok := known[s]
		return u, ok
	}

	v := &profile.Verdict{Reasoning: strings.TrimSpace(str(raw.Reasoning))}

	best := strings.TrimSpace(str(raw.BestMatch))
	switch u, ok := resolve(raw.BestMatch); {
	case ok:
		v.BestMatch = u
	case best == "" || strings.EqualFold(best, profile.NoMatch):
		v.BestMatch = profile.NoMatch
	default:
		return nil, fmt.Errorf("best match %q is not a candidate: %w", best, ErrMalformed)
	}

	if v.BestMatch != profile.NoMatch {
		v.Confidence = clamp(number(raw.Confidence))
	}

	seen := make(map[string]bool, len(result.Usernames))
	v.Ranked = make([]string, 0, len(result.Usernames))
	for _, r := range raw.Ranked {
		if u, ok := resolve(r); ok && !seen[u] {
			seen[u] = true
			v.Ranked = append(v.Ranked, u)
		}
	}
	for _, u := range result.Usernames {
		if !seen[u] {
			v.Ranked = append(v.Ranked, u)
		}
	}
	return v, nil
}

func decode(text string) (*rawVerdict, error) {
	text = strings.TrimSpace(text)
	var attempts []string
	if m := fenced.FindStringSubmatch(text); m != nil {
		attempts = append(attempts, m[1])
	}
	if m := braced.FindString(text); m != "" {
		attempts = append(attempts, m)
	}
	attempts = append(attempts, text)

	var lastErr error
	for _, a := range attempts {
		raw, err := unmarshal(a)
		if err != nil {
			lastErr = err
			continue
		}
		return raw, nil
	}
	if lastErr == nil {
		lastErr = errors.New("empty reply")
	}
	return nil, fmt.Errorf("no JSON object in reply: %w: %w", ErrMalformed, lastErr)
}

// unmarshal decodes one candidate object. The json5 decoder panics on some
// inputs that are not JSON, so a panic is reported as a decode error.
func unmarshal(s string) (raw *rawVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("decode: %v", r)
		}
	}()
	var v rawVerdict
	if err := json5.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func clamp(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}
