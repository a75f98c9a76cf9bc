// Package auth resolves Instagram session cookies for the authenticated detail lookup.
//
// Cookies come from, in order of preference: explicit configuration, environment
// variables, and local browser cookie stores.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Domain is the cookie domain for Instagram.
const Domain = "instagram.com"

// essentialCookies are the cookies an authenticated Instagram request needs.
var essentialCookies = []string{"sessionid", "csrftoken"}

// NewCookieJar creates an http.CookieJar populated with the given Instagram cookies.
func NewCookieJar(cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + Domain)
	if err != nil {
		return nil, err
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: "." + Domain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of Instagram session cookies.
type Source interface {
	// Cookies returns the cookies, or nil if unavailable.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// Resolve returns session cookies from static configuration, the environment, and
// (when browser is true) local browser stores. Anonymous access is used when none is found.
func Resolve(ctx context.Context, static map[string]string, browser bool, logger *slog.Logger) map[string]string {
	if logger == nil {
		logger = slog.Default()
	}
	sources := []Source{NewStaticSource(static), EnvSource{}}
	if browser {
		sources = append(sources, NewBrowserSource(logger))
	}
	cookies, err := ChainSources(ctx, sources...)
	if err != nil {
		logger.WarnContext(ctx, "reading instagram cookies failed", "error", err)
		return nil
	}
	if len(cookies) == 0 {
		logger.DebugContext(ctx, "no instagram cookies found, using anonymous access")
	}
	return cookies
}
