// Package extract derives a best-effort profile sketch from the free text that
// surrounds an Instagram username on a search results page.
//
// Extraction is an ordered list of independent rules. Each rule reads the
// input and fills at most a few candidate fields; a rule that finds nothing
// leaves its fields at their zero value. Extraction never fails.
package extract

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/igfinder/pkg/guess"
	"github.com/codeGROOVE-dev/igfinder/pkg/htmlutil"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// SnippetLength is the maximum length, in characters, of a stored search snippet.
const SnippetLength = 250

// Input is the text around one username mention plus the searched person.
type Input struct {
	Username string
	Context  string
	Name     string
	Location string
	Email    string
}

// Rule fills candidate fields from the input.
type Rule struct {
	Name  string
	Apply func(in Input, c *profile.Candidate)
}

var (
	followerPattern = regexp.MustCompile(`(?i)(\d+(?:[,.]\d+)*)\s*followers`)
	bioPattern      = regexp.MustCompile(`(?i)(?:Bio|Biography):\s*"([^"]+)"`)
	quotePattern    = regexp.MustCompile(`"([^"]{10,150})"`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
	separators      = strings.NewReplacer(",", "", ".", "")

	businessTerms = []string{"business", "professional", "company", "brand", "official"}
)

// Rules is the ordered extraction rule list used by Extract.
var Rules = []Rule{
	{Name: "follower_count", Apply: followerCount},
	{Name: "full_name", Apply: fullName},
	{Name: "biography", Apply: biography},
	{Name: "is_verified", Apply: verified},
	{Name: "is_business", Apply: business},
	{Name: "location_match", Apply: locationMatch},
	{Name: "public_email", Apply: publicEmail},
	{Name: "email_match", Apply: emailMatch},
	{Name: "name_similarity", Apply: nameSimilarity},
	{Name: "search_snippet", Apply: snippet},
}

// Extract applies every rule to in and returns the resulting candidate,
// tagged as derived from result-page markup.
func Extract(in Input) *profile.Candidate {
	c := &profile.Candidate{
		Username:       in.Username,
		MetadataSource: profile.SourceMarkup,
	}
	for _, r := range Rules {
		r.Apply(in, c)
	}
	return c
}

func followerCount(in Input, c *profile.Candidate) {
	if m := followerPattern.FindStringSubmatch(in.Context); m != nil {
		c.FollowerCount = separators.Replace(m[1])
	}
}

// fullName takes the text preceding a "(@username)" marker.
func fullName(in Input, c *profile.Candidate) {
	if in.Username == "" || !strings.Contains(in.Context, "(") {
		return
	}
	re, err := regexp.Compile(`(?i)([^(]+?)\s*\(@` + regexp.QuoteMeta(in.Username) + `\)`)
	if err != nil {
		return
	}
	if m := re.FindStringSubmatch(in.Context); m != nil {
		c.FullName = strings.TrimSpace(m[1])
	}
}

func biography(in Input, c *profile.Candidate) {
	if m := bioPattern.FindStringSubmatch(in.Context); m != nil {
		c.Biography = strings.TrimSpace(m[1])
		return
	}
	if m := quotePattern.FindStringSubmatch(in.Context); m != nil {
		c.Biography = strings.TrimSpace(m[1])
	}
}

func verified(in Input, c *profile.Candidate) {
	c.IsVerified = strings.Contains(strings.ToLower(in.Context), "verified")
}

func business(in Input, c *profile.Candidate) {
	lower := strings.ToLower(in.Context)
	for _, term := range businessTerms {
		if strings.Contains(lower, term) {
			c.IsBusiness = true
			return
		}
	}
}

func locationMatch(in Input, c *profile.Candidate) {
	loc := strings.TrimSpace(in.Location)
	c.LocationMatch = loc != "" && strings.Contains(strings.ToLower(in.Context), strings.ToLower(loc))
}

func publicEmail(in Input, c *profile.Candidate) {
	if m := emailPattern.FindString(in.Context); m != "" {
		c.PublicEmail = strings.TrimRight(m, ".-")
	}
}

func emailMatch(in Input, c *profile.Candidate) {
	email := strings.TrimSpace(in.Email)
	if email != "" && strings.Contains(strings.ToLower(in.Context), strings.ToLower(email)) {
		c.EmailMatch = true
		c.EmailMatchScore = 100
	}
}

func nameSimilarity(in Input, c *profile.Candidate) {
	if s := guess.Score(in.Name, in.Username); s > 0 {
		c.NameSimilarity = s
	}
}

func snippet(in Input, c *profile.Candidate) {
	c.SearchSnippet = htmlutil.Truncate(in.Context, SnippetLength)
}
