package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// BlockLabel is the reserved fence label for inline state-update blocks.
const BlockLabel = "state-update"

var blockFence = regexp.MustCompile("(?s)```" + BlockLabel + "[ \t]*\n(.*?)```")

// ErrBlockSyntax reports a state-update block whose body is not valid
// JSON. Callers log it and treat the turn as having no block.
var ErrBlockSyntax = errors.New("state-update block is not valid JSON")

// ExtractBlock locates the first state-update block in raw, pre-normalization
// text and parses its body. Returns nil with no error when no block exists;
// nil with ErrBlockSyntax when a block exists but fails to parse. Only the
// first block is honored.
func ExtractBlock(raw string) (map[string]any, error) {
	match := blockFence.FindStringSubmatch(raw)
	if match == nil {
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(match[1]), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockSyntax, err)
	}
	return doc, nil
}

// FormatBlock serializes a delta-shaped object into the fenced
// state-update syntax that ExtractBlock reads back.
func FormatBlock(v any) (string, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding state-update block: %w", err)
	}
	return "```" + BlockLabel + "\n" + string(body) + "\n```", nil
}
