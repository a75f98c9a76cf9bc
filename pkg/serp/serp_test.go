package serp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/igfinder/pkg/instagram"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var janeReq = profile.SearchRequest{Name: "Jane Doe", Location: "Austin"}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantKind    Kind
		wantEntries int
	}{
		{"top-level organic", `{"organic":[{"link":"https://instagram.com/a"}]}`, KindStructured, 1},
		{"nested organic", `{"results":{"organic":[{"url":"https://instagram.com/a"},{"url":"x"}]}}`, KindStructured, 2},
		{"empty organic", `{"organic":[]}`, KindStructured, 0},
		{"empty organic, nested results", `{"organic":[],"results":{"organic":[{"link":"l"}]}}`, KindStructured, 1},
		{"json without organic", `{"general":{}}`, KindMarkup, 0},
		{"html", `<html><body>hi</body></html>`, KindMarkup, 0},
		{"broken json", `{"organic":[`, KindMarkup, 0},
		{"empty", ``, KindMarkup, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.body))
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if len(got.Entries) != tt.wantEntries {
				t.Errorf("len(Entries) = %d, want %d", len(got.Entries), tt.wantEntries)
			}
			if got.Kind == KindMarkup && got.Markup != tt.body {
				t.Errorf("Markup = %q, want body", got.Markup)
			}
		})
	}
}

func TestStructuredRoundTrip(t *testing.T) {
	body := `{"organic":[{"link":"https://instagram.com/jane_doe?hl=en","title":"Jane Doe | Instagram","snippet":"Photographer in Austin"}]}`

	resp := Decode([]byte(body))
	got, err := Parse(resp, janeReq)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := &profile.SearchResult{
		Usernames: []string{"jane_doe"},
		Candidates: map[string]*profile.Candidate{
			"jane_doe": {
				Username:       "jane_doe",
				SourceURL:      "https://instagram.com/jane_doe?hl=en",
				FullName:       "Jane Doe",
				Biography:      "Photographer in Austin",
				SearchSnippet:  "Photographer in Austin",
				NameSimilarity: 40,
				MetadataSource: profile.SourceStructured,
			},
		},
		URLs: []string{"https://instagram.com/jane_doe?hl=en"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStructured(t *testing.T) {
	entries := []Entry{
		{Link: "https://www.instagram.com/janedoe/", Title: "Jane Doe (@janedoe) &bull; Instagram photos", Description: "12K followers"},
		{URL: "https://www.instagram.com/explore/tags/austin/", Title: "#austin | Instagram"},
		{Link: "https://twitter.com/janedoe", Title: "Jane on X"},
		{Link: "https://www.instagram.com/p/Cxyz/", Title: "Post"},
		{Link: "https://www.instagram.com/janedoe/reels/", Title: "Reels | Instagram", Snippet: "more reels"},
		{Link: "https://www.instagram.com/jane-doe/", Title: "bad | Instagram"},
		{Link: "https://www.instagram.com/travelgram/", Title: "Travel", Snippet: strings.Repeat("x", 300)},
	}

	got := ParseStructured(entries, profile.SearchRequest{Name: "Jane Doe"})

	if diff := cmp.Diff([]string{"janedoe", "travelgram"}, got.Usernames); diff != "" {
		t.Errorf("Usernames mismatch (-want +got):\n%s", diff)
	}
	if len(got.URLs) != 6 {
		t.Errorf("URLs = %v, want all 6 instagram links", got.URLs)
	}

	jane := got.Candidates["janedoe"]
	if jane.FullName != "Reels" {
		t.Errorf("FullName = %q, want later non-empty title to win", jane.FullName)
	}
	if jane.Biography != "more reels" {
		t.Errorf("Biography = %q, want later snippet", jane.Biography)
	}
	if jane.NameSimilarity != 90 {
		t.Errorf("NameSimilarity = %d, want 90", jane.NameSimilarity)
	}

	travel := got.Candidates["travelgram"]
	if travel.FullName != "" {
		t.Errorf("FullName = %q, want empty without a | separator", travel.FullName)
	}
	if len(travel.SearchSnippet) != 250 || len(travel.Biography) != 300 {
		t.Errorf("snippet %d / biography %d, want 250 / 300", len(travel.SearchSnippet), len(travel.Biography))
	}
	if travel.NameSimilarity != 0 {
		t.Errorf("NameSimilarity = %d, want 0", travel.NameSimilarity)
	}
}

const samplePage = `<html><head><title>site:instagram.com Jane Doe Austin instagram - Google Search</title></head>
<body>
<div class="g">
  <a href="/url?q=https://www.instagram.com/jane_doe/&amp;sa=U"><h3>Jane Doe (@jane_doe) • Instagram photos and videos</h3></a>
  <div><span>Jane Doe (@jane_doe) · 12,345 followers · verified · "Photographer in Austin, TX" · jane@example.com</span></div>
</div>
<div class="g">
  <p>Official brand account <a href="https://instagram.com/acme.official">acme</a></p>
</div>
<div class="g"><a href="https://www.google.com/search?q=instagram.com/jane_doe">More results</a></div>
<div class="g"><a href="https://www.instagram.com/explore/">Explore</a></div>
<div class="g"><a href="https://www.instagram.com/jane_doe/?hl=en">Jane Doe again</a></div>
<h3>Photos by janes_prints on Instagram</h3>
<h2>Instagram: reels</h2>
</body></html>`

func TestParseMarkup(t *testing.T) {
	req := profile.SearchRequest{Name: "Jane Doe", Location: "Austin", Email: "jane@example.com"}
	got, err := ParseMarkup(samplePage, req)
	if err != nil {
		t.Fatalf("ParseMarkup() error = %v", err)
	}

	if diff := cmp.Diff([]string{"jane_doe", "acme.official", "janes_prints"}, got.Usernames); diff != "" {
		t.Errorf("Usernames mismatch (-want +got):\n%s", diff)
	}
	wantURLs := []string{
		"https://www.instagram.com/jane_doe/",
		"https://instagram.com/acme.official",
		"https://www.instagram.com/explore/",
		"https://www.instagram.com/jane_doe/?hl=en",
	}
	if diff := cmp.Diff(wantURLs, got.URLs); diff != "" {
		t.Errorf("URLs mismatch (-want +got):\n%s", diff)
	}

	jane := got.Candidates["jane_doe"]
	want := &profile.Candidate{
		Username:        "jane_doe",
		FullName:        "Jane Doe",
		Biography:       "Photographer in Austin, TX",
		FollowerCount:   "12345",
		PublicEmail:     "jane@example.com",
		NameSimilarity:  40,
		IsVerified:      true,
		LocationMatch:   true,
		EmailMatch:      true,
		EmailMatchScore: 100,
		MetadataSource:  profile.SourceMarkup,
	}
	opts := cmpopts.IgnoreFields(profile.Candidate{}, "SourceURL", "SearchSnippet")
	if diff := cmp.Diff(want, jane, opts); diff != "" {
		t.Errorf("jane_doe mismatch (-want +got):\n%s", diff)
	}

	acme := got.Candidates["acme.official"]
	if !acme.IsBusiness || acme.SearchSnippet != "Official brand account acme" {
		t.Errorf("acme.official = %+v, want business flag and paragraph context", acme)
	}
}

func TestParseMarkupEmpty(t *testing.T) {
	got, err := ParseMarkup("   ", janeReq)
	if err != nil || !got.Empty() || got.URLs == nil {
		t.Errorf("ParseMarkup(blank) = %+v, %v", got, err)
	}
}

func TestUsernameFromTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Jane Doe (@jane_doe) • Instagram photos and videos", "jane_doe"},
		{"Instagram: Jane.Doe", "jane.doe"},
		{"Photos by jane.doe on Instagram", "jane.doe"},
		{"@explore Instagram: janedoe", "janedoe"},
		{"Follow @jane_doe. on Instagram", "jane_doe"},
		{"Instagram", ""},
		{"@abcdefghijklmnopqrstuvwxyz0123456789 on Instagram", ""},
	}
	for _, tt := range tests {
		if got := usernameFromTitle(tt.text); got != tt.want {
			t.Errorf("usernameFromTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseFallsBackToMarkup(t *testing.T) {
	body := []byte(`{"organic":[{"link":"https://www.instagram.com/explore/","title":"Explore"}],` +
		`"html":"<div><a href='https://www.instagram.com/jane_doe/'>Jane Doe (@jane_doe)</a></div>"}`)

	got, err := Parse(Decode(body), janeReq)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"jane_doe"}, got.Usernames); diff != "" {
		t.Errorf("Usernames mismatch (-want +got):\n%s", diff)
	}
	if got.URLs[0] != "https://www.instagram.com/explore/" {
		t.Errorf("URLs = %v, want structured URLs kept first", got.URLs)
	}
}

// System pages must never surface as candidates, whatever the parse path.
func TestSystemPagesNeverEmitted(t *testing.T) {
	for _, page := range instagram.SystemPages() {
		link := "https://www.instagram.com/" + page + "/"

		structured := fmt.Sprintf(`{"organic":[{"link":%q,"title":"%s | Instagram"}]}`, link, page)
		markup := fmt.Sprintf(`<div><a href=%q>%s</a></div><h3>@%s on Instagram</h3><h2>Instagram: %s</h2><title>%s on Instagram</title>`,
			link, page, page, page, page)

		for name, body := range map[string]string{"structured": structured, "markup": markup} {
			got, err := Parse(Decode([]byte(body)), janeReq)
			if err != nil {
				t.Fatalf("%s: Parse() error = %v", name, err)
			}
			if !got.Empty() {
				t.Errorf("%s path emitted %v for system page %q", name, got.Usernames, page)
			}
		}
	}
}
