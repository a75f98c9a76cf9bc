package serp

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/igfinder/pkg/extract"
	"github.com/codeGROOVE-dev/igfinder/pkg/guess"
	"github.com/codeGROOVE-dev/igfinder/pkg/htmlutil"
	"github.com/codeGROOVE-dev/igfinder/pkg/instagram"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// SearchHost is the search engine host. Links back to it are never candidates.
const SearchHost = "www.google.com"

// titlePatterns find a username in a heading that mentions Instagram.
// They are tried in order; the first that yields a valid username wins.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`@([a-zA-Z0-9_.]+)`),
	regexp.MustCompile(`(?i)Instagram:\s+([a-zA-Z0-9_.]+)`),
	regexp.MustCompile(`(?i)([a-zA-Z0-9_.]+)\s+on\s+Instagram`),
}

// Parse routes resp to the parser for its shape. A structured response that
// yields no candidates is also parsed as markup. The result is never nil.
func Parse(resp Response, req profile.SearchRequest) (*profile.SearchResult, error) {
	if resp.Kind == KindMarkup {
		return ParseMarkup(resp.Markup, req)
	}

	result := ParseStructured(resp.Entries, req)
	if !result.Empty() || len(resp.Raw) == 0 {
		return result, nil
	}

	fallback, err := ParseMarkup(string(resp.Raw), req)
	fallback.URLs = append(result.URLs, fallback.URLs...)
	return fallback, err
}

// ParseStructured extracts candidates from a structured result list.
func ParseStructured(entries []Entry, req profile.SearchRequest) *profile.SearchResult {
	result := profile.NewSearchResult()

	for _, e := range entries {
		link := strings.TrimSpace(e.Href())
		if !instagram.IsProfileHost(link) {
			continue
		}
		result.URLs = append(result.URLs, link)

		username := instagram.UsernameFromURL(link)
		if username == "" {
			continue
		}

		title := htmlutil.Clean(e.Title)
		snippet := htmlutil.Clean(e.Text())

		c := &profile.Candidate{
			Username:       username,
			SourceURL:      link,
			Biography:      snippet,
			SearchSnippet:  htmlutil.Truncate(snippet, extract.SnippetLength),
			MetadataSource: profile.SourceStructured,
		}
		if before, _, ok := strings.Cut(title, "|"); ok {
			c.FullName = strings.TrimSpace(before)
		}
		if s := guess.Score(req.Name, username); s > 0 {
			c.NameSimilarity = s
		}
		result.Add(c)
	}

	return result
}

// ParseMarkup extracts candidates from a results page. Profile links are
// examined first, then headings that mention Instagram.
func ParseMarkup(markup string, req profile.SearchRequest) (*profile.SearchResult, error) {
	result := profile.NewSearchResult()
	if strings.TrimSpace(markup) == "" {
		return result, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return result, fmt.Errorf("parse markup: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := htmlutil.UnwrapRedirect(href)
		if isSearchHost(link) || !instagram.IsProfileHost(link) {
			return
		}
		result.URLs = append(result.URLs, link)

		username := instagram.UsernameFromURL(link)
		if username == "" {
			return
		}

		context := a.Text()
		if block := a.Parent().Closest("div, span, p"); block.Length() > 0 {
			context = block.Text()
		}

		c := extract.Extract(extract.Input{
			Username: username,
			Context:  htmlutil.CollapseSpace(context),
			Name:     req.Name,
			Location: req.Location,
			Email:    req.Email,
		})
		c.SourceURL = link
		result.Add(c)
	})

	doc.Find("h3, h2, title").Each(func(_ int, h *goquery.Selection) {
		text := htmlutil.CollapseSpace(h.Text())
		if !strings.Contains(strings.ToLower(text), "instagram") {
			return
		}
		username := usernameFromTitle(text)
		if username == "" {
			return
		}
		result.Add(extract.Extract(extract.Input{
			Username: username,
			Context:  text,
			Name:     req.Name,
			Location: req.Location,
			Email:    req.Email,
		}))
	})

	return result, nil
}

func usernameFromTitle(text string) string {
	for _, p := range titlePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if u := instagram.NormalizeUsername(strings.Trim(m[1], ".")); u != "" {
			return u
		}
	}
	return ""
}

func isSearchHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, SearchHost)
}
