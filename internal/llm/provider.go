// Package llm provides the quiet-generation capability: a side-channel
// text completion call that never appears in the visible chat
// transcript. Providers speak plain net/http; no SDK dependency.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider issues one completion per call.
type Provider interface {
	// Generate sends a prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns a human-readable provider name, e.g. "openrouter/gpt-4o-mini".
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openrouter", "google"
	Model    string
	APIKey   string // empty = read from env
	BaseURL  string // optional override
	Timeout  time.Duration
}

// New builds a provider from config. A missing API key is an error here
// rather than at call time, so capability absence is detectable up front.
func New(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "openrouter":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENROUTER_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires an api key or OPENROUTER_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return &openrouterProvider{apiKey: key, model: model, baseURL: baseURL, timeout: timeout}, nil

	case "google":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("google provider requires an api key, GEMINI_API_KEY, or GOOGLE_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		return &googleProvider{apiKey: key, model: model, baseURL: baseURL, timeout: timeout}, nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %q (supported: openrouter, google)", cfg.Provider)
	}
}

// HTTPError carries the status and body of a failed provider call.
// Status 429 marks the error as rate-limit class for retry decisions.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code without importing this package's
// concrete type; callers assert against the interface.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}
