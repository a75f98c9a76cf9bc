// Package fetch performs the HTTP calls made against unreliable upstreams.
//
// Every call is modelled as a discriminated outcome: Success, Retryable or
// Terminal. Do retries only Retryable outcomes, with exponential backoff, and
// the decision depends on nothing but the outcome kind and the attempt count.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/codeGROOVE-dev/retry"
)

// UserAgent is the browser User-Agent string sent with every request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// MaxBody bounds how much of a response body is read.
const MaxBody = 8 << 20

// HTTPError represents an HTTP error response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Kind is the class of a call outcome.
type Kind int

// Outcome kinds.
const (
	Success Kind = iota
	Retryable
	Terminal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Classifier maps the error of one attempt (nil on success) to an outcome kind.
type Classifier func(err error) Kind

// ClassifySearch treats every failure as transient: any non-200 status and any
// transport error is retried.
func ClassifySearch(err error) Kind {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Terminal
	}
	return Retryable
}

// ClassifyDetail retries rate limiting, server errors and transport failures.
// Other client errors and malformed payloads are terminal.
func ClassifyDetail(err error) Kind {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, profile.ErrNoData) {
		return Terminal
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
			return Retryable
		}
		return Terminal
	}
	return Retryable
}

// Policy bounds a retried call.
type Policy struct {
	Attempts uint          // total attempts, including the first
	Base     time.Duration // wait before the second attempt; doubles afterwards
}

// DefaultPolicy is three attempts with 2s and 4s waits in between.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 2 * time.Second}
}

// Backoff returns the wait before attempt n+1, given that attempt n (1-based) failed.
func (p Policy) Backoff(n uint) time.Duration {
	if n == 0 {
		return 0
	}
	return p.Base << (n - 1)
}

// Do runs fn until it succeeds, returns a terminal outcome, or the policy's
// attempts are used up. The last error is returned on failure.
func Do[T any](ctx context.Context, p Policy, classify Classifier, logger *slog.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if p.Attempts == 0 {
		p.Attempts = 1
	}

	return retry.DoWithData(
		func() (T, error) {
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Base),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return classify(err) == Retryable }),
		retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx, "retrying request",
				"attempt", n+1, "max", p.Attempts, "wait", p.Backoff(n+1), "error", err)
		}),
	)
}

// Get executes req once and returns the body of a 200 response.
// Any other status is returned as *HTTPError.
func Get(client *http.Client, req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBody)) //nolint:errcheck // drain for connection reuse
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
