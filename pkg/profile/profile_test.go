package profile

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSearchRequestKey(t *testing.T) {
	r := SearchRequest{Name: "Jane Doe", Location: "Austin", Email: "jane@example.com"}
	if got, want := r.Key(), "Jane Doe_Austin_jane@example.com"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if (SearchRequest{Name: "a"}).Key() == (SearchRequest{Name: "a", Location: "b"}).Key() {
		t.Error("different requests share a key")
	}
}

func TestCandidateMerge(t *testing.T) {
	first := &Candidate{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		FollowerCount:  "100",
		IsVerified:     true,
		MetadataSource: SourceMarkup,
	}
	later := &Candidate{
		Username:      "jane_doe",
		FullName:      "",
		Biography:     "Photographer",
		FollowerCount: "120",
		IsVerified:    false,
	}
	first.Merge(later)

	want := &Candidate{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		Biography:      "Photographer",
		FollowerCount:  "120",
		IsVerified:     true,
		MetadataSource: SourceMarkup,
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchResultAdd(t *testing.T) {
	r := NewSearchResult()
	r.Add(&Candidate{Username: "b"})
	r.Add(&Candidate{Username: "a", FullName: "A"})
	r.Add(&Candidate{Username: "b", FullName: "Bee"})
	r.Add(&Candidate{})
	r.Add(nil)

	if diff := cmp.Diff([]string{"b", "a"}, r.Usernames); diff != "" {
		t.Errorf("Usernames mismatch (-want +got):\n%s", diff)
	}
	if got := r.Candidates["b"].FullName; got != "Bee" {
		t.Errorf("merged FullName = %q, want %q", got, "Bee")
	}
	if r.Empty() {
		t.Error("Empty() = true for populated result")
	}
	if !NewSearchResult().Empty() {
		t.Error("Empty() = false for new result")
	}
}

func TestVerdictMatched(t *testing.T) {
	tests := []struct {
		v    *Verdict
		want bool
	}{
		{nil, false},
		{&Verdict{}, false},
		{&Verdict{BestMatch: NoMatch}, false},
		{&Verdict{BestMatch: "jane_doe"}, true},
	}
	for _, tt := range tests {
		if got := tt.v.Matched(); got != tt.want {
			t.Errorf("Matched(%+v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestRecordFromCandidate(t *testing.T) {
	c := &Candidate{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		Biography:      "Photographer in Austin",
		FollowerCount:  "12345",
		IsVerified:     true,
		MetadataSource: SourceStructured,
	}
	want := &Record{
		Username:       "jane_doe",
		FullName:       "Jane Doe",
		Bio:            "Photographer in Austin",
		FollowerCount:  "12345",
		IsVerified:     true,
		MetadataSource: SourceStructured,
	}
	if diff := cmp.Diff(want, RecordFromCandidate(c)); diff != "" {
		t.Errorf("RecordFromCandidate() mismatch (-want +got):\n%s", diff)
	}
}

type stubLookup struct{}

func (stubLookup) Name() string { return "stub" }

func (stubLookup) Lookup(context.Context, string) (*Record, error) { return &Record{}, nil }

func TestLookupRegistry(t *testing.T) {
	RegisterLookup("stub", func(context.Context, *LookupConfig) (Lookup, error) { return stubLookup{}, nil })

	l, err := NewLookup(context.Background(), "stub", nil)
	if err != nil {
		t.Fatalf("NewLookup() error = %v", err)
	}
	if l.Name() != "stub" {
		t.Errorf("Name() = %q, want stub", l.Name())
	}
	if _, err := NewLookup(context.Background(), "missing", nil); err == nil {
		t.Error("NewLookup(missing) expected error")
	}
}
