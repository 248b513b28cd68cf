package state

import (
	"testing"
	"time"
)

func TestApplyDivergence(t *testing.T) {
	now := time.Date(2011, 4, 12, 9, 0, 0, 0, time.UTC)

	t.Run("accumulates and latches at threshold", func(t *testing.T) {
		ws := Document{"divergence": map[string]any{"threshold": 15.0}}
		var d Divergence
		for _, delta := range []int{5, 7, 4} {
			d = ApplyDivergence(ws, delta, now)
		}
		if d.Rating != 16 {
			t.Fatalf("rating = %d, want 16", d.Rating)
		}
		if d.TimelineReliable {
			t.Fatalf("timeline still reliable at rating %d, threshold %d", d.Rating, d.Threshold)
		}
	})

	t.Run("stays reliable below threshold", func(t *testing.T) {
		ws := Document{"divergence": map[string]any{"threshold": 15.0}}
		var d Divergence
		for _, delta := range []int{5, 3} {
			d = ApplyDivergence(ws, delta, now)
		}
		if d.Rating != 8 {
			t.Fatalf("rating = %d, want 8", d.Rating)
		}
		if !d.TimelineReliable {
			t.Fatalf("timeline flipped unreliable at rating %d", d.Rating)
		}
	})

	t.Run("never relatches reliable", func(t *testing.T) {
		ws := Document{"divergence": map[string]any{
			"threshold":         10.0,
			"rating":            12.0,
			"timeline_reliable": false,
		}}
		// Raise the threshold so the rating no longer meets it; the
		// flag must stay false regardless.
		Sub(ws, "divergence")["threshold"] = 100.0
		if d := ApplyDivergence(ws, 1, now); d.TimelineReliable {
			t.Fatalf("reliability flag relatched to true")
		}
	})

	t.Run("logs each application", func(t *testing.T) {
		ws := Document{}
		ApplyDivergence(ws, 2, now)
		ApplyDivergence(ws, 3, now)

		logged, _ := Sub(ws, "divergence")["logged_divergences"].([]any)
		if len(logged) != 2 {
			t.Fatalf("logged %d entries, want 2", len(logged))
		}
		first, _ := logged[0].(map[string]any)
		if first["timestamp"] != "2011-04-12T09:00:00Z" {
			t.Fatalf("timestamp = %v", first["timestamp"])
		}
		if first["delta"] != 2 {
			t.Fatalf("delta = %v", first["delta"])
		}
	})

	t.Run("zero threshold never latches", func(t *testing.T) {
		ws := Document{}
		if d := ApplyDivergence(ws, 50, now); !d.TimelineReliable {
			t.Fatalf("latched with no threshold configured")
		}
	})
}

func TestReadDivergence(t *testing.T) {
	t.Run("defaults on empty document", func(t *testing.T) {
		d := ReadDivergence(Document{})
		if d.Rating != 0 || d.Threshold != 0 || !d.TimelineReliable {
			t.Fatalf("unexpected defaults: %+v", d)
		}
	})

	t.Run("reads JSON-decoded numbers", func(t *testing.T) {
		d := ReadDivergence(Document{"divergence": map[string]any{
			"rating":            7.0,
			"threshold":         15.0,
			"timeline_reliable": false,
		}})
		if d.Rating != 7 || d.Threshold != 15 || d.TimelineReliable {
			t.Fatalf("unexpected: %+v", d)
		}
	})
}
