package htmlutil

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane Doe (@jane_doe) &bull; Instagram", "Jane Doe (@jane_doe) • Instagram"},
		{"<b>Jane</b>   Doe\n\tPhotographer", "Jane Doe Photographer"},
		{"  ", ""},
		{"Tom &amp; Jerry", "Tom & Jerry"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo wörld", 7, "héllo w"},
		{"日本語テキスト", 3, "日本語"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
