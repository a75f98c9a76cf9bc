// Package rapidapi provides the social-api4 RapidAPI Instagram endpoint as a
// detail lookup provider.
package rapidapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
	"github.com/codeGROOVE-dev/igfinder/pkg/instagram"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// ProviderName is the registry name of this lookup provider.
const ProviderName = "rapidapi"

// DefaultHost is the RapidAPI host of the social-api4 service.
const DefaultHost = "social-api4.p.rapidapi.com"

const lookupTimeout = 15 * time.Second

func init() {
	profile.RegisterLookup(ProviderName, func(ctx context.Context, cfg *profile.LookupConfig) (profile.Lookup, error) {
		opts := []Option{WithLogger(cfg.Logger)}
		if cfg.Host != "" {
			opts = append(opts, WithHost(cfg.Host))
		}
		return New(ctx, cfg.APIKey, opts...)
	})
}

// Client fetches profile details through RapidAPI.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	host       string
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHost sets the RapidAPI host header and, unless overridden, the base URL.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithBaseURL overrides the request base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a RapidAPI client.
func New(_ context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("rapidapi key not set: %w", profile.ErrAuthRequired)
	}
	c := &Client{apiKey: apiKey, host: DefaultHost, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://" + c.host
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: lookupTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // needed for corporate proxies
			},
		}
	}
	return c, nil
}

// Name returns the provider identifier.
func (*Client) Name() string { return ProviderName }

// Lookup retrieves the profile for username.
func (c *Client) Lookup(ctx context.Context, username string) (*profile.Record, error) {
	apiURL := c.baseURL + "/v1/info?username_or_id_or_url=" + url.QueryEscape(username)
	c.logger.InfoContext(ctx, "fetching profile from rapidapi", "username", username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	body, err := fetch.Get(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("fetch rapidapi: %w", err)
	}
	return parse(body)
}

type response struct {
	Data *info `json:"data"`
}

type info struct {
	Username              string                `json:"username"`
	FullName              string                `json:"full_name"`
	Biography             string                `json:"biography"`
	BiographyWithEntities instagram.BioEntities `json:"biography_with_entities"`
	FollowerCount         json.RawMessage       `json:"follower_count"`
	FollowingCount        json.RawMessage       `json:"following_count"`
	MediaCount            json.RawMessage       `json:"media_count"`
	Category              string                `json:"category"`
	CategoryID            json.RawMessage       `json:"category_id"`
	PublicEmail           string                `json:"public_email"`
	ContactPhoneNumber    string                `json:"contact_phone_number"`
	ExternalURL           string                `json:"external_url"`
	ProfilePicURLHD       string                `json:"profile_pic_url_hd"`
	ProfilePicURL         string                `json:"profile_pic_url"`
	IsVerified            bool                  `json:"is_verified"`
	IsBusiness            bool                  `json:"is_business"`
	IsPrivate             bool                  `json:"is_private"`
}

func parse(body []byte) (*profile.Record, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w: %w", profile.ErrNoData, err)
	}
	d := resp.Data
	if d == nil {
		return nil, fmt.Errorf("data missing from response: %w", profile.ErrNoData)
	}

	r := &profile.Record{
		Username:       d.Username,
		FullName:       d.FullName,
		Bio:            d.Biography,
		FollowerCount:  scalar(d.FollowerCount),
		FollowingCount: scalar(d.FollowingCount),
		MediaCount:     scalar(d.MediaCount),
		Category:       d.Category,
		CategoryID:     scalar(d.CategoryID),
		PublicEmail:    d.PublicEmail,
		ContactPhone:   d.ContactPhoneNumber,
		ExternalURL:    d.ExternalURL,
		PictureURL:     d.ProfilePicURLHD,
		BioUsernames:   d.BiographyWithEntities.Usernames(),
		IsVerified:     d.IsVerified,
		IsBusiness:     d.IsBusiness,
		IsPrivate:      d.IsPrivate,
		MetadataSource: profile.SourceDetailAPI,
	}
	if r.PictureURL == "" {
		r.PictureURL = d.ProfilePicURL
	}
	return r, nil
}

// scalar renders a JSON number or string as text. Null and other kinds are empty.
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return strings.TrimSuffix(n.String(), ".0")
	}
	return ""
}
