package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/codeGROOVE-dev/igfinder/pkg/fetch"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/google/go-cmp/cmp"
)

func TestUsernameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://instagram.com/johndoe", "johndoe"},
		{"https://www.instagram.com/jane_doe/", "jane_doe"},
		{"https://instagram.com/jane_doe?hl=en", "jane_doe"},
		{"https://INSTAGRAM.COM/JaneDoe", "janedoe"},
		{"instagram.com/user.name/", "user.name"},
		{"https://m.instagram.com/user.name#top", "user.name"},
		{"https://instagram.com/jane_doe/reels/", "jane_doe"},
		{"https://instagram.com/p/ABC123", ""},
		{"https://instagram.com/reel/ABC123", ""},
		{"https://instagram.com/explore", ""},
		{"https://instagram.com/accounts/login/", ""},
		{"https://instagram.com/jane-doe", ""},
		{"https://instagram.com/abcdefghijklmnopqrstuvwxyz12345", ""},
		{"https://instagram.com/", ""},
		{"https://notinstagram.com/jane", ""},
		{"https://twitter.com/johndoe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := UsernameFromURL(tt.url); got != tt.want {
				t.Errorf("UsernameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSystemPagesNeverValid(t *testing.T) {
	for _, p := range SystemPages() {
		if ValidUsername(p) {
			t.Errorf("ValidUsername(%q) = true for system page", p)
		}
		if got := UsernameFromURL("https://www.instagram.com/" + p + "/"); got != "" {
			t.Errorf("UsernameFromURL(%q) = %q, want empty", p, got)
		}
	}
	if !slices.Contains(SystemPages(), "locations") {
		t.Error("SystemPages() missing locations")
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct{ in, want string }{
		{"@Jane_Doe", "jane_doe"},
		{" jane.doe ", "jane.doe"},
		{"jane doe", ""},
		{"explore", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUsername(tt.in); got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const sampleResponse = `{
  "data": {
    "user": {
      "username": "jane_doe",
      "full_name": "Jane Doe",
      "biography": "Photographer in Austin. Also @janes_prints",
      "biography_with_entities": {"entities": [{"user": {"username": "janes_prints"}}, {"hashtag": {"name": "atx"}}]},
      "profile_pic_url": "https://cdn.example/small.jpg",
      "profile_pic_url_hd": "https://cdn.example/hd.jpg",
      "external_url": "https://janedoe.example",
      "category_name": "Photographer",
      "category_enum": "PHOTOGRAPHER",
      "business_email": "jane@example.com",
      "edge_followed_by": {"count": 12345},
      "edge_follow": {"count": 321},
      "edge_owner_to_timeline_media": {"count": 87},
      "is_verified": true,
      "is_professional_account": true
    }
  }
}`

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Ig-App-Id") != appID {
			t.Errorf("missing app id header")
		}
		switch r.URL.Query().Get("username") {
		case "jane_doe":
			_, _ = w.Write([]byte(sampleResponse)) //nolint:errcheck // test
		case "empty":
			_, _ = w.Write([]byte(`{"data":{"user":null}}`)) //nolint:errcheck // test
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := New(ctx, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithMinDelay(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := c.Lookup(ctx, "jane_doe")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	want := &profile.Record{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		Bio:            "Photographer in Austin. Also @janes_prints",
		FollowerCount:  "12345",
		FollowingCount: "321",
		MediaCount:     "87",
		Category:       "Photographer",
		CategoryID:     "PHOTOGRAPHER",
		PublicEmail:    "jane@example.com",
		ExternalURL:    "https://janedoe.example",
		PictureURL:     "https://cdn.example/hd.jpg",
		BioUsernames:   []string{"janes_prints"},
		IsVerified:     true,
		IsBusiness:     true,
		MetadataSource: profile.SourceDetailAPI,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Lookup(ctx, "empty"); !errors.Is(err, profile.ErrNoData) {
		t.Errorf("Lookup(empty) error = %v, want ErrNoData", err)
	}

	_, err = c.Lookup(ctx, "missing")
	var httpErr *fetch.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("Lookup(missing) error = %v, want HTTP 404", err)
	}
}

func TestRegistered(t *testing.T) {
	l, err := profile.NewLookup(context.Background(), ProviderName, &profile.LookupConfig{
		Cookies: map[string]string{"sessionid": "abc"},
	})
	if err != nil {
		t.Fatalf("NewLookup() error = %v", err)
	}
	if l.Name() != ProviderName {
		t.Errorf("Name() = %q, want %q", l.Name(), ProviderName)
	}
}
