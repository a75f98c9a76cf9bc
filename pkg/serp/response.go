// Package serp turns a raw search-engine response into a deduplicated set of
// Instagram profile candidates.
//
// The response shape is decided once, in Decode: either a structured result
// list or raw markup. Each shape has its own parser.
package serp

import (
	"bytes"
	"encoding/json"
)

// Kind identifies the shape of a search response.
type Kind int

// Response kinds.
const (
	KindMarkup Kind = iota
	KindStructured
)

func (k Kind) String() string {
	if k == KindStructured {
		return "structured"
	}
	return "markup"
}

// Entry is one result of a structured response.
type Entry struct {
	Link        string `json:"link"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
}

// Href returns the result link, preferring "link" over "url".
func (e Entry) Href() string {
	if e.Link != "" {
		return e.Link
	}
	return e.URL
}

// Text returns the result snippet, preferring "snippet" over "description".
func (e Entry) Text() string {
	if e.Snippet != "" {
		return e.Snippet
	}
	return e.Description
}

// Response is a decoded search response. Entries is set for structured
// responses and Markup for markup responses. Raw always holds the body.
type Response struct {
	Markup  string
	Raw     []byte
	Entries []Entry
	Kind    Kind
}

type structuredBody struct {
	Organic *[]Entry `json:"organic"`
	Results *struct {
		Organic *[]Entry `json:"organic"`
	} `json:"results"`
}

// Decode classifies body. A JSON object carrying an "organic" list, at the top
// level or under "results", is structured; anything else is markup.
func Decode(body []byte) Response {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var sb structuredBody
		if err := json.Unmarshal(trimmed, &sb); err == nil {
			switch {
			case sb.Organic != nil && len(*sb.Organic) > 0:
				return Response{Kind: KindStructured, Entries: *sb.Organic, Raw: body}
			case sb.Results != nil && sb.Results.Organic != nil:
				return Response{Kind: KindStructured, Entries: *sb.Results.Organic, Raw: body}
			case sb.Organic != nil:
				return Response{Kind: KindStructured, Entries: []Entry{}, Raw: body}
			}
		}
	}
	return Response{Kind: KindMarkup, Markup: string(body), Raw: body}
}
