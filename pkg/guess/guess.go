// Package guess scores how likely an Instagram candidate belongs to a searched person.
//
// Score is the username similarity attached to every candidate at parse time.
// Rank orders a whole candidate set without calling a language model; it backs
// the offline ranker and gives the pipeline a deterministic ordering to fall
// back on.
package guess

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// Signal weights for Rank. They sum to 1.0.
const (
	weightUsername = 0.35
	weightName     = 0.35
	weightLocation = 0.15
	weightEmail    = 0.15
)

// Match is the heuristic evaluation of one candidate.
type Match struct {
	Username string
	Score    float64  // 0.0-1.0
	Reasons  []string // signals that contributed, e.g. "username", "name"
}

// Evaluate scores one candidate against the searched person.
func Evaluate(person profile.Person, c *profile.Candidate) Match {
	m := Match{Username: c.Username}

	if s := float64(Score(person.Name, c.Username)) / 100; s > 0 {
		m.Score += weightUsername * s
		m.Reasons = append(m.Reasons, "username")
	}

	if s := scoreName(person.Name, c.FullName); s > 0 {
		m.Score += weightName * s
		m.Reasons = append(m.Reasons, "name")
	}

	loc := 0.0
	if c.LocationMatch {
		loc = 1.0
	} else if person.Location != "" {
		loc = max(scoreLocation(person.Location, c.Biography), scoreLocation(person.Location, c.SearchSnippet))
	}
	if loc > 0 {
		m.Score += weightLocation * loc
		m.Reasons = append(m.Reasons, "location")
	}

	if c.EmailMatch || (person.Email != "" && strings.EqualFold(person.Email, c.PublicEmail)) {
		m.Score += weightEmail
		m.Reasons = append(m.Reasons, "email")
	}

	return m
}

// Rank orders the candidates of result by heuristic score. Ties keep discovery order.
func Rank(person profile.Person, result *profile.SearchResult) *profile.Verdict {
	if result.Empty() {
		return &profile.Verdict{
			BestMatch: profile.NoMatch,
			Ranked:    []string{},
			Reasoning: "No Instagram profiles found for this name and location.",
		}
	}

	matches := make([]Match, 0, len(result.Usernames))
	for _, u := range result.Usernames {
		c, ok := result.Candidates[u]
		if !ok {
			continue
		}
		matches = append(matches, Evaluate(person, c))
	}
	slices.SortStableFunc(matches, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })

	ranked := make([]string, len(matches))
	for i, m := range matches {
		ranked[i] = m.Username
	}

	best := matches[0]
	reasons := "no matching signals"
	if len(best.Reasons) > 0 {
		reasons = strings.Join(best.Reasons, ", ")
	}
	return &profile.Verdict{
		BestMatch:  best.Username,
		Confidence: int(math.Round(best.Score * 100)),
		Ranked:     ranked,
		Reasoning:  fmt.Sprintf("heuristic match on %s", reasons),
	}
}
