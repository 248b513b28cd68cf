package narrative

import "testing"

func TestNormalize(t *testing.T) {
	t.Run("strips reasoning tags", func(t *testing.T) {
		input := "<think>the player will hate this</think>The door creaks open."
		if got := Normalize(input); got != "The door creaks open." {
			t.Fatalf("unexpected result: %q", got)
		}
	})

	t.Run("strips alternate tag vocabularies", func(t *testing.T) {
		input := "<reasoning>\nlong deliberation\n</reasoning>Rain falls. <monologue>hmm</monologue>Nobody speaks."
		if got := Normalize(input); got != "Rain falls. Nobody speaks." {
			t.Fatalf("unexpected result: %q", got)
		}
	})

	t.Run("strips tags with attributes and mixed case", func(t *testing.T) {
		input := `<Thinking depth="3">plans</Thinking>She smiles.`
		if got := Normalize(input); got != "She smiles." {
			t.Fatalf("unexpected result: %q", got)
		}
	})

	t.Run("strips state-update block", func(t *testing.T) {
		input := "The vault opens.\n```state-update\n{\"divergence_delta\": 2}\n```\nDust everywhere."
		got := Normalize(input)
		if got != "The vault opens.\n\nDust everywhere." {
			t.Fatalf("unexpected result: %q", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			"",
			"plain text",
			"<think>a</think>b<internal>c</internal>",
			"before\n```state-update\n{}\n```\nafter",
			"<think>unclosed",
		}
		for _, input := range inputs {
			once := Normalize(input)
			twice := Normalize(once)
			if once != twice {
				t.Fatalf("not idempotent for %q: %q != %q", input, once, twice)
			}
		}
	})

	t.Run("never panics on hostile input", func(t *testing.T) {
		for _, input := range []string{"", "<", "</think>", "```state-update", "<think><think></think>"} {
			_ = Normalize(input)
		}
	})
}

func TestMergeContinuation(t *testing.T) {
	t.Run("merges when flagged", func(t *testing.T) {
		if got := MergeContinuation("and then", "It began", true); got != "It began and then" {
			t.Fatalf("unexpected merge: %q", got)
		}
	})

	t.Run("ignores flag without previous", func(t *testing.T) {
		if got := MergeContinuation("alone", "", true); got != "alone" {
			t.Fatalf("unexpected merge: %q", got)
		}
	})

	t.Run("unflagged passes through", func(t *testing.T) {
		if got := MergeContinuation("current", "previous", false); got != "current" {
			t.Fatalf("unexpected merge: %q", got)
		}
	})
}
