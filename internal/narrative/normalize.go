// Package narrative handles raw story text from the host chat: stripping
// non-narrative markup before humans or extraction see it, and locating
// the inline state-update block the narrator model may emit.
package narrative

import (
	"fmt"
	"regexp"
	"strings"
)

// Tag vocabularies the narrator models use for reasoning spans. All are
// stripped, including attributes on the opening tag.
var reasoningTags = []string{
	"think", "thinking", "reasoning", "reason",
	"monologue", "internal", "plan", "scratchpad",
}

var tagSpans = func() []*regexp.Regexp {
	spans := make([]*regexp.Regexp, 0, len(reasoningTags))
	for _, tag := range reasoningTags {
		spans = append(spans, regexp.MustCompile(
			fmt.Sprintf(`(?is)<%s\b[^>]*>.*?</%s>`, tag, tag)))
	}
	return spans
}()

// Normalize strips all recognized non-narrative spans (reasoning tags
// and the state-update block) and trims the result. Idempotent, and
// safe on any input.
func Normalize(text string) string {
	for _, span := range tagSpans {
		text = span.ReplaceAllString(text, "")
	}
	text = blockFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// MergeContinuation joins a continuation turn onto the text it extends.
// Without the flag, or without a previous text, current passes through
// unchanged.
func MergeContinuation(current, previous string, continuation bool) string {
	if !continuation || previous == "" {
		return current
	}
	return previous + " " + current
}
