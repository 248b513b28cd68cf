package narrative

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtractBlock(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := map[string]any{
			"divergence_delta": float64(3),
			"in_world_date":    "May 12, 2011",
			"npc_relationship": map[string]any{
				"taylor_hebert": "wary ally",
			},
		}
		formatted, err := FormatBlock(original)
		if err != nil {
			t.Fatalf("format: %v", err)
		}
		parsed, err := ExtractBlock("Some narration.\n" + formatted + "\nMore narration.")
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if !reflect.DeepEqual(parsed, original) {
			t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", parsed, original)
		}
	})

	t.Run("no block", func(t *testing.T) {
		parsed, err := ExtractBlock("Just a story with ```json\n{}\n``` inside.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed != nil {
			t.Fatalf("expected nil, got %#v", parsed)
		}
	})

	t.Run("malformed block", func(t *testing.T) {
		parsed, err := ExtractBlock("```state-update\n{not json\n```")
		if !errors.Is(err, ErrBlockSyntax) {
			t.Fatalf("expected ErrBlockSyntax, got %v", err)
		}
		if parsed != nil {
			t.Fatalf("expected nil, got %#v", parsed)
		}
	})

	t.Run("only first block honored", func(t *testing.T) {
		raw := "```state-update\n{\"in_world_date\": \"first\"}\n```\n```state-update\n{\"in_world_date\": \"second\"}\n```"
		parsed, err := ExtractBlock(raw)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if parsed["in_world_date"] != "first" {
			t.Fatalf("expected first block, got %#v", parsed)
		}
	})
}
