package extract

import (
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	ctx := "Jane Doe (@jane_doe) · 12,345 followers · verified"
	got := Extract(Input{Username: "jane_doe", Context: ctx, Name: "Jane Doe"})

	want := &profile.Candidate{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		FollowerCount:  "12345",
		IsVerified:     true,
		NameSimilarity: 40,
		SearchSnippet:  ctx,
		MetadataSource: profile.SourceMarkup,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractEmpty(t *testing.T) {
	got := Extract(Input{Username: "someone"})
	want := &profile.Candidate{Username: "someone", MetadataSource: profile.SourceMarkup}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract(empty) mismatch (-want +got):\n%s", diff)
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		rule  string
		in    Input
		check func(c *profile.Candidate) bool
	}{
		{
			rule:  "follower_count",
			in:    Input{Context: "1.204.331 Followers, 80 Following"},
			check: func(c *profile.Candidate) bool { return c.FollowerCount == "1204331" },
		},
		{
			rule:  "follower_count",
			in:    Input{Context: "no audience here"},
			check: func(c *profile.Candidate) bool { return c.FollowerCount == "" },
		},
		{
			rule:  "full_name",
			in:    Input{Username: "jane_doe", Context: "Jane Q. Doe (@Jane_Doe) • Instagram photos"},
			check: func(c *profile.Candidate) bool { return c.FullName == "Jane Q. Doe" },
		},
		{
			rule:  "full_name",
			in:    Input{Username: "jane_doe", Context: "Jane Doe (@someone_else)"},
			check: func(c *profile.Candidate) bool { return c.FullName == "" },
		},
		{
			rule:  "biography",
			in:    Input{Context: `Bio: "Coffee and film" and "another quoted span here"`},
			check: func(c *profile.Candidate) bool { return c.Biography == "Coffee and film" },
		},
		{
			rule:  "biography",
			in:    Input{Context: `short "hi" then "Photographer based in Austin"`},
			check: func(c *profile.Candidate) bool { return c.Biography == "Photographer based in Austin" },
		},
		{
			rule:  "is_verified",
			in:    Input{Context: "Verified account"},
			check: func(c *profile.Candidate) bool { return c.IsVerified },
		},
		{
			rule:  "is_business",
			in:    Input{Context: "The OFFICIAL page"},
			check: func(c *profile.Candidate) bool { return c.IsBusiness },
		},
		{
			rule:  "is_business",
			in:    Input{Context: "personal blog"},
			check: func(c *profile.Candidate) bool { return !c.IsBusiness },
		},
		{
			rule:  "location_match",
			in:    Input{Location: "Austin", Context: "based in AUSTIN, TX"},
			check: func(c *profile.Candidate) bool { return c.LocationMatch },
		},
		{
			rule:  "location_match",
			in:    Input{Location: "", Context: "based in Austin"},
			check: func(c *profile.Candidate) bool { return !c.LocationMatch },
		},
		{
			rule:  "public_email",
			in:    Input{Context: "Contact: hello@jane-doe.com."},
			check: func(c *profile.Candidate) bool { return c.PublicEmail == "hello@jane-doe.com" },
		},
		{
			rule:  "email_match",
			in:    Input{Email: "Jane@Example.com", Context: "mail jane@example.com"},
			check: func(c *profile.Candidate) bool { return c.EmailMatch && c.EmailMatchScore == 100 },
		},
		{
			rule:  "email_match",
			in:    Input{Email: "jane@example.com", Context: "mail john@example.com"},
			check: func(c *profile.Candidate) bool { return !c.EmailMatch && c.EmailMatchScore == 0 },
		},
		{
			rule:  "name_similarity",
			in:    Input{Username: "randomuser", Name: "Jane Doe"},
			check: func(c *profile.Candidate) bool { return c.NameSimilarity == 0 },
		},
		{
			rule:  "search_snippet",
			in:    Input{Context: strings.Repeat("é", 300)},
			check: func(c *profile.Candidate) bool { return c.SearchSnippet == strings.Repeat("é", 250) },
		},
	}

	byName := map[string]Rule{}
	for _, r := range Rules {
		byName[r.Name] = r
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			r, ok := byName[tt.rule]
			if !ok {
				t.Fatalf("no rule named %q", tt.rule)
			}
			c := &profile.Candidate{}
			r.Apply(tt.in, c)
			if !tt.check(c) {
				t.Errorf("rule %s on %+v produced %+v", tt.rule, tt.in, c)
			}
		})
	}
}
