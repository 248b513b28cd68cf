package session

import (
	"strings"
	"testing"

	"chronicle/internal/state"
)

func TestRenderSummary(t *testing.T) {
	st := state.NewStore()
	st.Put(state.WorldStateKey, state.Document{
		"in_world_date":     "April 12, 2011",
		"arc":               2.0,
		"chapter":           3.0,
		"active_situations": []any{"gang war brewing", map[string]any{"summary": "ABB recruiting"}},
		"faction_status":    map[string]any{"Undersiders": "lying low", "ABB": "expanding"},
		"divergence": map[string]any{
			"rating":            16.0,
			"threshold":         15.0,
			"timeline_reliable": false,
		},
	})
	st.Put("taylor_hebert", state.Document{
		"display_name": "Taylor Hebert",
		"alias":        "Skitter",
		"faction":      "Undersiders",
		"power":        map[string]any{"summary": "insect control"},
		"current_state": map[string]any{
			"emotional_state":                "guarded",
			"relationship_to_user_character": "wary ally",
		},
	})

	out := RenderSummary(st)

	for _, want := range []string{
		"## World",
		"Date: April 12, 2011",
		"Arc 2, chapter 3",
		"- gang war brewing",
		"- ABB recruiting",
		"- ABB: expanding",
		"Divergence: 16/15 (timeline unreliable)",
		"## Characters",
		"### Taylor Hebert (Skitter)",
		"Faction: Undersiders",
		"relationship to user character: wary ally",
		"emotional state: guarded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	t.Run("faction order is deterministic", func(t *testing.T) {
		abb := strings.Index(out, "- ABB:")
		undersiders := strings.Index(out, "- Undersiders:")
		if abb < 0 || undersiders < 0 || abb > undersiders {
			t.Fatalf("faction ordering wrong:\n%s", out)
		}
	})

	t.Run("empty store renders empty", func(t *testing.T) {
		if got := RenderSummary(state.NewStore()); got != "" {
			t.Fatalf("got %q", got)
		}
	})
}
