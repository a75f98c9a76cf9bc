package guess

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// nonWord matches anything outside Unicode letters, digits and underscore.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Score returns a 0-100 similarity between a searched person name and an
// Instagram username. The first matching rule wins:
//
//  1. case-insensitive exact match: 100
//  2. name without non-word characters is a substring of the username: 90
//  3. share of name terms longer than 3 characters found in the username, scaled to 80
func Score(searchName, username string) int {
	if searchName == "" || username == "" {
		return 0
	}

	name := strings.ToLower(searchName)
	user := strings.ToLower(username)

	if name == user {
		return 100
	}

	if clean := nonWord.ReplaceAllString(name, ""); clean != "" && strings.Contains(user, clean) {
		return 90
	}

	terms := strings.Fields(name)
	if len(terms) == 0 {
		return 0
	}

	var matching int
	for _, term := range terms {
		if utf8.RuneCountInString(term) <= 3 {
			continue
		}
		if clean := nonWord.ReplaceAllString(term, ""); clean != "" && strings.Contains(user, clean) {
			matching++
		}
	}

	return int(math.Round(100 * float64(matching) / float64(len(terms)) * 0.8))
}

// scoreName compares a searched name with a display name, 0.0-1.0.
func scoreName(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1.0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.7
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	var overlap int
	var firstNameMatch bool
	for i, wa := range wordsA {
		for j, wb := range wordsB {
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				overlap++
				if i == 0 && j == 0 {
					firstNameMatch = true
				}
				break
			}
		}
	}

	if overlap == 0 {
		return 0
	}

	score := float64(overlap) / float64(max(len(wordsA), len(wordsB)))
	// A shared surname alone says little about identity.
	if !firstNameMatch && overlap == 1 {
		score *= 0.2
	}
	return score
}

// scoreLocation reports how strongly text mentions a location, 0.0-1.0.
func scoreLocation(location, text string) float64 {
	if location == "" || text == "" {
		return 0
	}

	location = strings.ToLower(strings.TrimSpace(location))
	text = strings.ToLower(text)

	if strings.Contains(text, location) {
		return 1.0
	}

	words := strings.FieldsFunc(location, func(r rune) bool { return r == ',' || r == ' ' })
	textWords := extractSignificantWords(text)

	var overlap int
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if slices.Contains(textWords, w) {
			overlap++
		}
	}
	if len(words) == 0 {
		return 0
	}
	return 0.8 * float64(overlap) / float64(len(words))
}

// extractSignificantWords filters out common/short words.
func extractSignificantWords(s string) []string {
	commonWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
		"are": true, "been": true, "be": true, "have": true, "has": true, "had": true,
		"i": true, "me": true, "my": true, "we": true, "our": true, "you": true, "your": true,
		"this": true, "that": true, "these": true, "those": true,
	}

	var words []string
	for w := range strings.FieldsSeq(s) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}|/\\·•")
		w = strings.ToLower(w)
		if len(w) >= 3 && !commonWords[w] {
			words = append(words, w)
		}
	}
	return words
}
