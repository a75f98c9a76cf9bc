// Package instagram provides the anonymous Instagram web API as a detail
// lookup provider, plus the URL rules shared by every parser of Instagram links.
package instagram

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/auth"
	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// ProviderName is the registry name of this lookup provider.
const ProviderName = "instagram"

const (
	defaultBaseURL = "https://i.instagram.com"
	appID          = "936619743392459"
	lookupTimeout  = 15 * time.Second
)

func init() {
	profile.RegisterLookup(ProviderName, func(ctx context.Context, cfg *profile.LookupConfig) (profile.Lookup, error) {
		opts := []Option{WithLogger(cfg.Logger)}
		if len(cfg.Cookies) > 0 {
			opts = append(opts, WithCookies(cfg.Cookies))
		}
		if cfg.Host != "" {
			opts = append(opts, WithBaseURL(cfg.Host))
		}
		return New(ctx, opts...)
	})
}

// Client fetches profile details from the Instagram web API.
type Client struct {
	httpClient *http.Client
	limiter    *fetch.RateLimiter
	logger     *slog.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	minDelay   time.Duration
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCookies sets session cookies (sessionid, csrftoken) for authenticated requests.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithMinDelay sets the minimum delay between requests (default 1s).
func WithMinDelay(d time.Duration) Option {
	return func(c *config) { c.minDelay = d }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// New creates an Instagram client.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL, minDelay: time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout: lookupTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // needed for corporate proxies
			},
		}
	}

	if len(cfg.cookies) > 0 {
		jar, err := auth.NewCookieJar(cfg.cookies)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
		cfg.logger.DebugContext(ctx, "instagram client using session cookies", "count", len(cfg.cookies))
	}

	return &Client{
		httpClient: hc,
		limiter:    fetch.NewRateLimiter(cfg.minDelay, cfg.logger),
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
	}, nil
}

// Name returns the provider identifier.
func (*Client) Name() string { return ProviderName }

// Lookup retrieves the profile for username.
func (c *Client) Lookup(ctx context.Context, username string) (*profile.Record, error) {
	apiURL := c.baseURL + "/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username)
	c.logger.InfoContext(ctx, "fetching instagram profile", "username", username)

	if err := c.limiter.Wait(ctx, apiURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Required header for anonymous access
	req.Header.Set("X-Ig-App-Id", appID)
	req.Header.Set("Accept", "application/json")

	body, err := fetch.Get(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("fetch instagram API: %w", err)
	}

	return c.parseResponse(ctx, body)
}

func (c *Client) parseResponse(ctx context.Context, data []byte) (*profile.Record, error) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w: %w", profile.ErrNoData, err)
	}

	user := resp.Data.User
	if user == nil || user.Username == "" {
		return nil, fmt.Errorf("user missing from response: %w", profile.ErrNoData)
	}

	r := &profile.Record{
		Username:       user.Username,
		FullName:       user.FullName,
		Bio:            user.Biography,
		FollowerCount:  strconv.Itoa(user.EdgeFollowedBy.Count),
		FollowingCount: strconv.Itoa(user.EdgeFollow.Count),
		MediaCount:     strconv.Itoa(user.EdgeOwnerToTimelineMedia.Count),
		Category:       user.CategoryName,
		CategoryID:     user.CategoryEnum,
		PublicEmail:    user.BusinessEmail,
		ContactPhone:   user.BusinessPhoneNumber,
		ExternalURL:    user.ExternalURL,
		PictureURL:     user.ProfilePicURLHD,
		BioUsernames:   user.BiographyWithEntities.Usernames(),
		IsVerified:     user.IsVerified,
		IsBusiness:     user.IsBusinessAccount || user.IsProfessionalAccount,
		IsPrivate:      user.IsPrivate,
		MetadataSource: profile.SourceDetailAPI,
	}

	// Use standard avatar if HD not available
	if r.PictureURL == "" {
		r.PictureURL = user.ProfilePicURL
	}
	if r.Category == "" && user.BusinessCategoryName != "None" {
		r.Category = user.BusinessCategoryName
	}

	c.logger.DebugContext(ctx, "parsed instagram profile",
		"username", r.Username,
		"name", r.FullName,
		"verified", r.IsVerified,
		"followers", user.EdgeFollowedBy.Count,
	)

	return r, nil
}

// apiResponse represents the Instagram API response structure.
type apiResponse struct {
	Data struct {
		User *userInfo `json:"user"`
	} `json:"data"`
}

type userInfo struct {
	Username                 string      `json:"username"`
	FullName                 string      `json:"full_name"`
	Biography                string      `json:"biography"`
	BiographyWithEntities    BioEntities `json:"biography_with_entities"`
	ProfilePicURL            string      `json:"profile_pic_url"`
	ProfilePicURLHD          string      `json:"profile_pic_url_hd"`
	ExternalURL              string      `json:"external_url"`
	CategoryName             string      `json:"category_name"`
	CategoryEnum             string      `json:"category_enum"`
	BusinessCategoryName     string      `json:"business_category_name"`
	BusinessEmail            string      `json:"business_email"`
	BusinessPhoneNumber      string      `json:"business_phone_number"`
	EdgeFollowedBy           count       `json:"edge_followed_by"`
	EdgeFollow               count       `json:"edge_follow"`
	EdgeOwnerToTimelineMedia count       `json:"edge_owner_to_timeline_media"`
	IsVerified               bool        `json:"is_verified"`
	IsBusinessAccount        bool        `json:"is_business_account"`
	IsProfessionalAccount    bool        `json:"is_professional_account"`
	IsPrivate                bool        `json:"is_private"`
}

type count struct {
	Count int `json:"count"`
}

// BioEntities is the structured form of a biography, listing mentioned accounts.
type BioEntities struct {
	Entities []struct {
		User *struct {
			Username string `json:"username"`
		} `json:"user"`
	} `json:"entities"`
}

// Usernames returns the accounts mentioned in the biography, in order.
func (b BioEntities) Usernames() []string {
	var out []string
	for _, e := range b.Entities {
		if e.User != nil && e.User.Username != "" {
			out = append(out, e.User.Username)
		}
	}
	return out
}
