package instagram

import (
	"net/url"
	"regexp"
	"strings"
)

// Host is the profile host marker searched for in result links.
const Host = "instagram.com"

// systemPages are first path segments that never name a user.
var systemPages = map[string]bool{
	"explore": true, "about": true, "developer": true, "legal": true,
	"directory": true, "p": true, "reels": true, "stories": true,
	"tv": true, "reel": true, "story": true, "highlights": true,
	"direct": true, "accounts": true, "challenge": true, "emails": true,
	"press": true, "contact": true, "tags": true, "locations": true,
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{1,30}$`)

// SystemPage reports whether name is a reserved path segment.
func SystemPage(name string) bool {
	return systemPages[strings.ToLower(name)]
}

// SystemPages returns the reserved path segments.
func SystemPages() []string {
	out := make([]string, 0, len(systemPages))
	for p := range systemPages {
		out = append(out, p)
	}
	return out
}

// ValidUsername reports whether s is a well-formed handle that is not a system page.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s) && !SystemPage(s)
}

// NormalizeUsername lowercases s and strips a leading "@". It returns "" when
// the result is not a valid username.
func NormalizeUsername(s string) string {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	if !ValidUsername(s) {
		return ""
	}
	return s
}

// IsProfileHost reports whether link points at the Instagram host.
func IsProfileHost(link string) bool {
	u := parseLoose(link)
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == Host || strings.HasSuffix(host, "."+Host)
}

// UsernameFromURL derives the username from the path segment immediately
// after the host. Query, fragment, and trailing slash are ignored. It returns
// "" for system pages and for segments that are not entirely valid handle
// characters.
func UsernameFromURL(link string) string {
	if !IsProfileHost(link) {
		return ""
	}
	u := parseLoose(link)
	seg, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	seg = strings.ToLower(seg)
	if !ValidUsername(seg) {
		return ""
	}
	return seg
}

// ProfileURL returns the canonical profile URL for username.
func ProfileURL(username string) string {
	return "https://www." + Host + "/" + username + "/"
}

func parseLoose(link string) *url.URL {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil
	}
	if strings.HasPrefix(link, "//") {
		link = "https:" + link
	} else if !strings.Contains(link, "://") {
		link = "https://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	return u
}
