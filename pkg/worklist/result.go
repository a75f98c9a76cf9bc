package worklist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// InfluencerFollowers is the follower count above which an account is an influencer.
const InfluencerFollowers = 5000

// topMatches is how many ranked usernames the result row lists.
const topMatches = 5

// Columns is the result header, in column order.
var Columns = []string{
	"name", "email", "location", "best_match", "all_potential_matches",
	"follower_count", "following_count", "media_count", "biography",
	"category", "is_verified", "bio_usernames", "profile_url",
	"external_url", "category_id", "is_business", "contact_number", "public_email",
	"is_influencer", "confidence_score", "reasoning", "metadata_source", "processing_time",
}

// Result is one output row per processed person.
//
//nolint:govet // fieldalignment: field order is the column order
type Result struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Location            string `json:"location"`
	BestMatch           string `json:"best_match"`
	AllPotentialMatches string `json:"all_potential_matches"`
	FollowerCount       string `json:"follower_count"`
	FollowingCount      string `json:"following_count"`
	MediaCount          string `json:"media_count"`
	Biography           string `json:"biography"`
	Category            string `json:"category"`
	IsVerified          string `json:"is_verified"`
	BioUsernames        string `json:"bio_usernames"`
	ProfileURL          string `json:"profile_url"`
	ExternalURL         string `json:"external_url"`
	CategoryID          string `json:"category_id"`
	IsBusiness          string `json:"is_business"`
	ContactNumber       string `json:"contact_number"`
	PublicEmail         string `json:"public_email"`
	IsInfluencer        string `json:"is_influencer"`
	ConfidenceScore     string `json:"confidence_score"`
	Reasoning           string `json:"reasoning"`
	MetadataSource      string `json:"metadata_source"`
	ProcessingTime      string `json:"processing_time"`
}

// NewResult builds the row for person from its verdict and profile record.
// A nil or empty record leaves the profile columns blank.
func NewResult(p profile.Person, v *profile.Verdict, r *profile.Record, elapsed time.Duration) Result {
	if v == nil {
		v = &profile.Verdict{BestMatch: profile.NoMatch}
	}
	if r == nil {
		r = &profile.Record{}
	}

	res := Result{
		Name:                p.Name,
		Email:               p.Email,
		Location:            p.Location,
		BestMatch:           v.BestMatch,
		AllPotentialMatches: strings.Join(v.Ranked[:min(len(v.Ranked), topMatches)], ", "),
		FollowerCount:       r.FollowerCount,
		FollowingCount:      r.FollowingCount,
		MediaCount:          r.MediaCount,
		Biography:           r.Bio,
		Category:            r.Category,
		BioUsernames:        strings.Join(r.BioUsernames, ", "),
		ProfileURL:          r.PictureURL,
		ExternalURL:         r.ExternalURL,
		CategoryID:          r.CategoryID,
		ContactNumber:       r.ContactPhone,
		PublicEmail:         r.PublicEmail,
		IsInfluencer:        strconv.FormatBool(IsInfluencer(r.FollowerCount)),
		ConfidenceScore:     strconv.Itoa(v.Confidence),
		Reasoning:           v.Reasoning,
		MetadataSource:      string(r.MetadataSource),
		ProcessingTime:      fmt.Sprintf("%.2f seconds", elapsed.Seconds()),
	}
	if r.Username != "" {
		res.IsVerified = strconv.FormatBool(r.IsVerified)
		res.IsBusiness = strconv.FormatBool(r.IsBusiness)
	}
	if res.MetadataSource == "" {
		res.MetadataSource = "unknown"
	}
	return res
}

// IsInfluencer reports whether a digits-only follower count exceeds InfluencerFollowers.
func IsInfluencer(followers string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(followers))
	return err == nil && n > InfluencerFollowers
}

// Values returns the row in Columns order.
func (r Result) Values() []string {
	return []string{
		r.Name, r.Email, r.Location, r.BestMatch, r.AllPotentialMatches,
		r.FollowerCount, r.FollowingCount, r.MediaCount, r.Biography,
		r.Category, r.IsVerified, r.BioUsernames, r.ProfileURL,
		r.ExternalURL, r.CategoryID, r.IsBusiness, r.ContactNumber, r.PublicEmail,
		r.IsInfluencer, r.ConfidenceScore, r.Reasoning, r.MetadataSource, r.ProcessingTime,
	}
}

// fields returns pointers to the row's columns in Columns order, for scanning.
func (r *Result) fields() []any {
	return []any{
		&r.Name, &r.Email, &r.Location, &r.BestMatch, &r.AllPotentialMatches,
		&r.FollowerCount, &r.FollowingCount, &r.MediaCount, &r.Biography,
		&r.Category, &r.IsVerified, &r.BioUsernames, &r.ProfileURL,
		&r.ExternalURL, &r.CategoryID, &r.IsBusiness, &r.ContactNumber, &r.PublicEmail,
		&r.IsInfluencer, &r.ConfidenceScore, &r.Reasoning, &r.MetadataSource, &r.ProcessingTime,
	}
}
