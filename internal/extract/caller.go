package extract

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Generator is the quiet-generation capability supplied by the host: a
// completion call that never appears in the visible chat transcript.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrCapabilityUnavailable reports that no generation capability is
// registered. Fatal for the call; never retried.
var ErrCapabilityUnavailable = errors.New("no quiet generation capability registered")

// statusCoded is satisfied by provider errors carrying an HTTP status.
type statusCoded interface {
	HTTPStatus() int
}

var throttleMarkers = []string{
	"rate limit", "rate_limit", "too many requests", "quota", "exhausted", "429",
}

// IsRateLimit classifies an error as throttling: HTTP 429, or an error
// string matching known throttling text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var coded statusCoded
	if errors.As(err, &coded) && coded.HTTPStatus() == 429 {
		return true
	}
	lowered := strings.ToLower(err.Error())
	for _, marker := range throttleMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// Caller invokes the generation capability. Single calls are never
// retried; batch calls retry rate-limit failures with increasing
// backoff.
type Caller struct {
	Gen Generator

	// Sleep is overridable for tests; zero value blocks on time.After.
	Sleep func(ctx context.Context, d time.Duration) error
}

// batch retry policy: 3 total attempts, waits of 8s then 16s.
const batchAttempts = 3

const backoffStep = 8 * time.Second

// Available reports whether a generation capability is registered.
func (c *Caller) Available() bool {
	return c != nil && c.Gen != nil
}

// Generate issues a single extraction call with no retries.
func (c *Caller) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", ErrCapabilityUnavailable
	}
	return c.Gen.Generate(ctx, prompt)
}

// GenerateBatch issues the one batched rescan call, retrying rate-limit
// failures up to 3 total attempts with 8s and 16s waits. Non-rate-limit
// failures are returned immediately. The attempt count is reported
// either way.
func (c *Caller) GenerateBatch(ctx context.Context, prompt string) (string, int, error) {
	if !c.Available() {
		return "", 0, ErrCapabilityUnavailable
	}

	var lastErr error
	for attempt := 1; attempt <= batchAttempts; attempt++ {
		response, err := c.Gen.Generate(ctx, prompt)
		if err == nil {
			return response, attempt, nil
		}
		lastErr = err
		if !IsRateLimit(err) || attempt == batchAttempts {
			return "", attempt, err
		}
		if err := c.sleep(ctx, time.Duration(attempt)*backoffStep); err != nil {
			return "", attempt, err
		}
	}
	return "", batchAttempts, lastErr
}

func (c *Caller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
