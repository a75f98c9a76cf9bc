package htmlutil

import (
	"net/url"
	"strings"
)

// redirectParams are the query parameters search engines use to wrap outbound links.
// Google uses /url?q=<target> (or url=), DuckDuckGo uses /l/?uddg=<target>.
var redirectParams = []string{"uddg", "q", "url"}

// UnwrapRedirect returns the destination of a search-engine redirect link.
// Links that are not redirect wrappers are returned unchanged.
func UnwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	path := strings.TrimSuffix(u.Path, "/")
	if path != "/url" && path != "/l" && !strings.Contains(u.RawQuery, "uddg=") {
		return href
	}

	q := u.Query()
	for _, p := range redirectParams {
		target := q.Get(p)
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			return target
		}
	}
	return href
}

// ResolveReference resolves a possibly relative or protocol-relative href against base.
func ResolveReference(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return b.Scheme + ":" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
