package state

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// EntityKey derives the stable document key for an NPC from its display
// name: lowercased, non-alphanumeric runs collapsed to underscores.
// The same name always yields the same key.
func EntityKey(displayName string) string {
	key := strings.ToLower(strings.TrimSpace(displayName))
	key = nonAlnum.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// EventID derives an arc-event identifier from free text: lowercased,
// non-alphanumeric runs replaced with underscores, truncated to 40
// characters. Non-text sources fall back to a timestamp-based id.
func EventID(value any, now time.Time) string {
	text, ok := value.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return fmt.Sprintf("event_%d", now.UnixMilli())
	}
	id := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "_")
	id = strings.Trim(id, "_")
	if len(id) > 40 {
		id = id[:40]
	}
	return id
}
