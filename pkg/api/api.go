// Package api exposes single lookups, run statistics and the trigger over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/finder"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
	"github.com/gin-gonic/gin"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

// Error codes.
const (
	ErrorCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrorCodeValidation      ErrorCode = "VALIDATION_FAILED"
	ErrorCodeLookupFailed    ErrorCode = "LOOKUP_FAILED"
	ErrorCodeStoreFailed     ErrorCode = "STORE_FAILED"
	ErrorCodeStoreNotEnabled ErrorCode = "STORE_NOT_CONFIGURED"
)

// Error is the JSON body of every failed request.
type Error struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func sendError(c *gin.Context, status int, code ErrorCode, msg string) {
	c.JSON(status, &Error{Error: "Request failed", Code: code, Message: msg, Timestamp: time.Now()})
}

// Finder is the pipeline behind the API.
type Finder interface {
	Lookup(ctx context.Context, p profile.Person) (*finder.Outcome, error)
	Stats() finder.Stats
}

// TriggerStore holds the operator trigger.
type TriggerStore interface {
	Trigger(ctx context.Context) (value, status string, err error)
	SetTrigger(ctx context.Context, value string) error
}

// API holds the handler dependencies.
type API struct {
	finder Finder
	store  TriggerStore
	logger *slog.Logger
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Email    string `json:"email"`
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	Result  *profile.SearchResult `json:"result"`
	Verdict *profile.Verdict      `json:"verdict"`
	Record  *profile.Record       `json:"record"`
	Row     worklist.Result       `json:"row"`
}

// TriggerBody is the body of GET and PUT /trigger.
type TriggerBody struct {
	Value  string `json:"value"`
	Status string `json:"status,omitempty"`
}

// SetupRoutes registers the routes on router. store may be nil, which disables
// the trigger routes.
func SetupRoutes(router *gin.Engine, f Finder, store TriggerStore, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{finder: f, store: store, logger: logger}

	router.GET("/health", a.health)
	router.POST("/search", a.search)
	router.GET("/stats", a.stats)
	router.GET("/trigger", a.getTrigger)
	router.PUT("/trigger", a.putTrigger)
}

func (*API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		sendError(c, http.StatusBadRequest, ErrorCodeValidation, "name is required")
		return
	}

	p := profile.Person{Name: req.Name, Location: strings.TrimSpace(req.Location), Email: strings.TrimSpace(req.Email)}
	o, err := a.finder.Lookup(c.Request.Context(), p)
	if err != nil {
		a.logger.WarnContext(c.Request.Context(), "lookup failed", "name", p.Name, "error", err)
		sendError(c, http.StatusInternalServerError, ErrorCodeLookupFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Result: o.Result, Verdict: o.Verdict, Record: o.Record, Row: o.Row})
}

func (a *API) stats(c *gin.Context) {
	c.JSON(http.StatusOK, a.finder.Stats())
}

func (a *API) getTrigger(c *gin.Context) {
	if a.store == nil {
		sendError(c, http.StatusServiceUnavailable, ErrorCodeStoreNotEnabled, "no worklist store configured")
		return
	}
	value, status, err := a.store.Trigger(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, ErrorCodeStoreFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, TriggerBody{Value: value, Status: status})
}

func (a *API) putTrigger(c *gin.Context) {
	if a.store == nil {
		sendError(c, http.StatusServiceUnavailable, ErrorCodeStoreNotEnabled, "no worklist store configured")
		return
	}
	var body TriggerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON: "+err.Error())
		return
	}
	if body.Value != worklist.TriggerStart && body.Value != worklist.TriggerStop {
		sendError(c, http.StatusBadRequest, ErrorCodeValidation, "value must be Start or Stop")
		return
	}
	if err := a.store.SetTrigger(c.Request.Context(), body.Value); err != nil {
		sendError(c, http.StatusInternalServerError, ErrorCodeStoreFailed, err.Error())
		return
	}
	a.logger.InfoContext(c.Request.Context(), "trigger set", "value", body.Value)
	c.JSON(http.StatusOK, TriggerBody{Value: body.Value})
}
