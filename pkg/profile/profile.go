// Package profile defines the common types for Instagram profile discovery.
package profile

import (
	"errors"
	"strings"
)

// Common errors returned by collaborator packages.
var (
	ErrNoData          = errors.New("no profile data in response")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrAuthRequired    = errors.New("authentication required")
)

// NoMatch is the best-match sentinel used when no candidate was selected.
const NoMatch = "No match found"

// ConfidenceThreshold is the minimum ranking confidence that justifies a detail lookup.
const ConfidenceThreshold = 50

// Source records where a candidate's or record's fields came from.
type Source string

// Metadata sources.
const (
	SourceStructured Source = "search-structured"
	SourceMarkup     Source = "search-markup"
	SourceDetailAPI  Source = "detail-api"
)

// Person is one worklist entry to process.
type Person struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Email    string `json:"email,omitempty"`
	Row      int    `json:"row,omitempty"` // Worklist row reference, 0 when not store-backed
}

// Request returns the search request for this person.
func (p Person) Request() SearchRequest {
	return SearchRequest{Name: p.Name, Location: p.Location, Email: p.Email}
}

// SearchRequest identifies one search. It is immutable once issued.
type SearchRequest struct {
	Name     string
	Location string
	Email    string
}

// Key returns the identity key used for deduplication.
func (r SearchRequest) Key() string {
	return r.Name + "_" + r.Location + "_" + r.Email
}

// Candidate is one extracted Instagram-profile guess with heuristic metadata.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Candidate struct {
	Username      string `json:"username"`
	SourceURL     string `json:"source_url,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	Biography     string `json:"biography,omitempty"`
	SearchSnippet string `json:"search_snippet,omitempty"`
	FollowerCount string `json:"follower_count,omitempty"` // digits only
	PublicEmail   string `json:"public_email,omitempty"`

	NameSimilarity  int  `json:"name_similarity,omitempty"`
	IsVerified      bool `json:"is_verified"`
	IsBusiness      bool `json:"is_business"`
	LocationMatch   bool `json:"location_match,omitempty"`
	EmailMatch      bool `json:"email_match,omitempty"`
	EmailMatchScore int  `json:"email_match_score,omitempty"`

	MetadataSource Source `json:"metadata_source"`
}

// Merge copies the non-empty fields of later into c. Blank fields in later never
// overwrite values already present in c.
func (c *Candidate) Merge(later *Candidate) {
	if later == nil {
		return
	}
	mergeString(&c.SourceURL, later.SourceURL)
	mergeString(&c.FullName, later.FullName)
	mergeString(&c.Biography, later.Biography)
	mergeString(&c.SearchSnippet, later.SearchSnippet)
	mergeString(&c.FollowerCount, later.FollowerCount)
	mergeString(&c.PublicEmail, later.PublicEmail)
	if later.NameSimilarity != 0 {
		c.NameSimilarity = later.NameSimilarity
	}
	if later.EmailMatchScore != 0 {
		c.EmailMatchScore = later.EmailMatchScore
	}
	c.IsVerified = c.IsVerified || later.IsVerified
	c.IsBusiness = c.IsBusiness || later.IsBusiness
	c.LocationMatch = c.LocationMatch || later.LocationMatch
	c.EmailMatch = c.EmailMatch || later.EmailMatch
	if later.MetadataSource != "" {
		c.MetadataSource = later.MetadataSource
	}
}

func mergeString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// SearchResult is the deduplicated candidate set produced for one SearchRequest.
type SearchResult struct {
	Usernames  []string              `json:"usernames"`  // distinct, in discovery order
	Candidates map[string]*Candidate `json:"candidates"` // keyed by username
	URLs       []string              `json:"urls"`       // every raw profile-host URL seen
}

// NewSearchResult returns an empty, non-nil result.
func NewSearchResult() *SearchResult {
	return &SearchResult{
		Usernames:  []string{},
		Candidates: map[string]*Candidate{},
		URLs:       []string{},
	}
}

// Add records c. The first sighting of a username fixes its position; later
// sightings are merged into the stored candidate.
func (r *SearchResult) Add(c *Candidate) {
	if c == nil || c.Username == "" {
		return
	}
	if existing, ok := r.Candidates[c.Username]; ok {
		existing.Merge(c)
		return
	}
	r.Usernames = append(r.Usernames, c.Username)
	r.Candidates[c.Username] = c
}

// Empty reports whether the result holds no candidates.
func (r *SearchResult) Empty() bool {
	return r == nil || len(r.Usernames) == 0
}

// Verdict is the ranking collaborator's judgment over a candidate set.
type Verdict struct {
	BestMatch  string   `json:"best_match"`
	Confidence int      `json:"confidence_score"`
	Ranked     []string `json:"ranked_usernames"`
	Reasoning  string   `json:"reasoning"`
}

// Matched reports whether the verdict selected a candidate.
func (v *Verdict) Matched() bool {
	return v != nil && v.BestMatch != "" && v.BestMatch != NoMatch
}

// Record is the final profile for a matched username.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Record struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Bio      string `json:"biography,omitempty"`

	FollowerCount  string `json:"follower_count,omitempty"`
	FollowingCount string `json:"following_count,omitempty"`
	MediaCount     string `json:"media_count,omitempty"`

	Category     string   `json:"category,omitempty"`
	CategoryID   string   `json:"category_id,omitempty"`
	PublicEmail  string   `json:"public_email,omitempty"`
	ContactPhone string   `json:"contact_phone_number,omitempty"`
	ExternalURL  string   `json:"external_url,omitempty"`
	PictureURL   string   `json:"profile_pic_url_hd,omitempty"`
	BioUsernames []string `json:"bio_usernames,omitempty"` // accounts mentioned in the biography

	IsVerified bool `json:"is_verified"`
	IsBusiness bool `json:"is_business"`
	IsPrivate  bool `json:"is_private,omitempty"`

	MetadataSource Source `json:"metadata_source,omitempty"`
}

// RecordFromCandidate returns the fallback record shape for c, keeping its source tag.
func RecordFromCandidate(c *Candidate) *Record {
	if c == nil {
		return &Record{}
	}
	return &Record{
		Username:       c.Username,
		FullName:       c.FullName,
		Bio:            c.Biography,
		FollowerCount:  c.FollowerCount,
		PublicEmail:    c.PublicEmail,
		IsVerified:     c.IsVerified,
		IsBusiness:     c.IsBusiness,
		MetadataSource: c.MetadataSource,
	}
}
