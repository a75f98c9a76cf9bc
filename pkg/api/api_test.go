package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeGROOVE-dev/igfinder/pkg/finder"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
	"github.com/gin-gonic/gin"
)

type fakeFinder struct {
	last profile.Person
}

func (f *fakeFinder) Lookup(_ context.Context, p profile.Person) (*finder.Outcome, error) {
	f.last = p
	if p.Name == "Broken" {
		return nil, errors.New("pipeline failed")
	}
	r := profile.NewSearchResult()
	r.Add(&profile.Candidate{Username: "jane_doe"})
	return &finder.Outcome{
		Result:  r,
		Verdict: &profile.Verdict{BestMatch: "jane_doe", Confidence: 90, Ranked: []string{"jane_doe"}},
		Record:  &profile.Record{Username: "jane_doe"},
	}, nil
}

func (*fakeFinder) Stats() finder.Stats {
	return finder.Stats{People: 3, Matches: 2}
}

type memTrigger struct {
	value, status string
}

func (m *memTrigger) Trigger(context.Context) (value, status string, err error) {
	return m.value, m.status, nil
}

func (m *memTrigger) SetTrigger(_ context.Context, v string) error {
	m.value = v
	return nil
}

func setupRouter(f Finder, store TriggerStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, f, store, nil)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(setupRouter(&fakeFinder{}, nil), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	f := &fakeFinder{}
	router := setupRouter(f, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  ErrorCode
	}{
		{"valid", `{"name":" Jane Doe ","location":"Austin"}`, http.StatusOK, ""},
		{"missing name", `{"location":"Austin"}`, http.StatusBadRequest, ErrorCodeValidation},
		{"bad json", `{"name":`, http.StatusBadRequest, ErrorCodeInvalidJSON},
		{"pipeline error", `{"name":"Broken"}`, http.StatusInternalServerError, ErrorCodeLookupFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/search", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body)
			}
			if tt.wantErr != "" {
				var e Error
				if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != tt.wantErr {
					t.Errorf("error body = %s, want code %s", w.Body, tt.wantErr)
				}
				return
			}
			var resp SearchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Verdict.BestMatch != "jane_doe" || resp.Record.Username != "jane_doe" || len(resp.Result.Usernames) != 1 {
				t.Errorf("response = %s", w.Body)
			}
			if f.last.Name != "Jane Doe" || f.last.Location != "Austin" {
				t.Errorf("person = %+v, want trimmed name", f.last)
			}
		})
	}
}

func TestStats(t *testing.T) {
	w := do(setupRouter(&fakeFinder{}, nil), http.MethodGet, "/stats", "")
	var s finder.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.People != 3 || s.Matches != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestTrigger(t *testing.T) {
	store := &memTrigger{status: worklist.StateReady}
	router := setupRouter(&fakeFinder{}, store)

	if w := do(router, http.MethodPut, "/trigger", `{"value":"Start"}`); w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body)
	}
	w := do(router, http.MethodGet, "/trigger", "")
	var body TriggerBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Value != worklist.TriggerStart || body.Status != worklist.StateReady {
		t.Errorf("GET /trigger = %+v", body)
	}

	if w := do(router, http.MethodPut, "/trigger", `{"value":"Go"}`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT invalid value status = %d", w.Code)
	}

	noStore := setupRouter(&fakeFinder{}, nil)
	if w := do(noStore, http.MethodGet, "/trigger", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET without store status = %d", w.Code)
	}
}
