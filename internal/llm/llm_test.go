package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("openrouter with explicit key", func(t *testing.T) {
		p, err := New(Config{Provider: "openrouter", APIKey: "k"})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if p.Name() != "openrouter/openai/gpt-4o-mini" {
			t.Fatalf("name = %q", p.Name())
		}
	})

	t.Run("google with explicit key and model", func(t *testing.T) {
		p, err := New(Config{Provider: "google", APIKey: "k", Model: "gemini-2.5-pro"})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if p.Name() != "google/gemini-2.5-pro" {
			t.Fatalf("name = %q", p.Name())
		}
	})

	t.Run("missing key fails up front", func(t *testing.T) {
		t.Setenv("OPENROUTER_API_KEY", "")
		if _, err := New(Config{Provider: "openrouter"}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := New(Config{Provider: "acme"}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestOpenrouterGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("authorization = %q", got)
		}
		var req orRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || req.Messages[0].Content != "prompt text" {
			t.Errorf("messages = %v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response format = %v", req.ResponseFormat)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"divergence_delta": 1}`}},
			},
		})
	}))
	defer srv.Close()

	p, err := New(Config{Provider: "openrouter", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := p.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != `{"divergence_delta": 1}` {
		t.Fatalf("got %q", got)
	}
}

func TestOpenrouterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, _ := New(Config{Provider: "openrouter", APIKey: "k", BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), "p")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v", err)
	}
	if httpErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Fatalf("status = %d", httpErr.HTTPStatus())
	}
}

func TestGoogleGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "k" {
			t.Errorf("key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "{}"}}}},
			},
		})
	}))
	defer srv.Close()

	p, err := New(Config{Provider: "google", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := p.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "{}" {
		t.Fatalf("got %q", got)
	}
}

func TestGoogleEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	p, _ := New(Config{Provider: "google", APIKey: "k", BaseURL: srv.URL})
	if _, err := p.Generate(context.Background(), "p"); err == nil {
		t.Fatalf("expected error")
	}
}
