package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"chronicle/internal/llm"
)

type scriptedGen struct {
	calls      int
	lastPrompt string
	responses  []string
	errs       []error
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	g.lastPrompt = prompt
	var response string
	var err error
	if i < len(g.responses) {
		response = g.responses[i]
	}
	if i < len(g.errs) {
		err = g.errs[i]
	}
	return response, err
}

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", &llm.HTTPError{StatusCode: 429}, true},
		{"http 500", &llm.HTTPError{StatusCode: 500}, false},
		{"wrapped 429", errors.Join(errors.New("call failed"), &llm.HTTPError{StatusCode: 429}), true},
		{"throttle text", errors.New("resource exhausted, try later"), true},
		{"quota text", errors.New("Quota exceeded for model"), true},
		{"plain failure", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRateLimit(tc.err); got != tc.want {
				t.Fatalf("IsRateLimit(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestGenerateNoRetry(t *testing.T) {
	gen := &scriptedGen{errs: []error{&llm.HTTPError{StatusCode: 429}}}
	c := &Caller{Gen: gen}

	if _, err := c.Generate(context.Background(), "p"); err == nil {
		t.Fatalf("expected error")
	}
	if gen.calls != 1 {
		t.Fatalf("single call retried: %d calls", gen.calls)
	}
}

func TestGenerateBatch(t *testing.T) {
	t.Run("retries rate limits with growing backoff", func(t *testing.T) {
		gen := &scriptedGen{
			responses: []string{"", "", "{}"},
			errs:      []error{&llm.HTTPError{StatusCode: 429}, &llm.HTTPError{StatusCode: 429}, nil},
		}
		var waits []time.Duration
		c := &Caller{Gen: gen, Sleep: noSleep(&waits)}

		response, attempts, err := c.GenerateBatch(context.Background(), "p")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if response != "{}" || attempts != 3 {
			t.Fatalf("response=%q attempts=%d", response, attempts)
		}
		if len(waits) != 2 || waits[0] != 8*time.Second || waits[1] != 16*time.Second {
			t.Fatalf("waits = %v", waits)
		}
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		limit := &llm.HTTPError{StatusCode: 429}
		gen := &scriptedGen{errs: []error{limit, limit, limit, limit}}
		var waits []time.Duration
		c := &Caller{Gen: gen, Sleep: noSleep(&waits)}

		_, attempts, err := c.GenerateBatch(context.Background(), "p")
		if err == nil {
			t.Fatalf("expected error")
		}
		if gen.calls != 3 || attempts != 3 {
			t.Fatalf("calls=%d attempts=%d", gen.calls, attempts)
		}
		if len(waits) != 2 {
			t.Fatalf("waits = %v", waits)
		}
	})

	t.Run("non-throttle failure is immediate", func(t *testing.T) {
		gen := &scriptedGen{errs: []error{errors.New("connection refused")}}
		c := &Caller{Gen: gen, Sleep: noSleep(&[]time.Duration{})}

		_, attempts, err := c.GenerateBatch(context.Background(), "p")
		if err == nil || gen.calls != 1 || attempts != 1 {
			t.Fatalf("calls=%d attempts=%d err=%v", gen.calls, attempts, err)
		}
	})

	t.Run("cancelled context stops the backoff", func(t *testing.T) {
		gen := &scriptedGen{errs: []error{&llm.HTTPError{StatusCode: 429}}}
		c := &Caller{
			Gen:   gen,
			Sleep: func(ctx context.Context, d time.Duration) error { return context.Canceled },
		}

		_, _, err := c.GenerateBatch(context.Background(), "p")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
		if gen.calls != 1 {
			t.Fatalf("calls = %d", gen.calls)
		}
	})
}

func TestCallerUnavailable(t *testing.T) {
	var c *Caller
	if c.Available() {
		t.Fatalf("nil caller reported available")
	}
	c = &Caller{}
	if _, err := c.Generate(context.Background(), "p"); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := c.GenerateBatch(context.Background(), "p"); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
