package narrative

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Turn roles as recorded by the host chat.
const (
	RoleUser     = "user"
	RoleNarrator = "narrator"
)

// Turn is one chat message from the narrative source.
type Turn struct {
	Role         string `json:"role"`
	Text         string `json:"text"`
	Continuation bool   `json:"continuation,omitempty"`
}

// ReadTranscript decodes a JSONL transcript, one turn per line. Blank
// lines are skipped. Continuation turns are merged into the turn they
// extend, so the result holds complete messages.
func ReadTranscript(r io.Reader) ([]Turn, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var turns []Turn
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var turn Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("transcript line %d: %w", line, err)
		}
		if turn.Continuation && len(turns) > 0 {
			prev := &turns[len(turns)-1]
			prev.Text = MergeContinuation(turn.Text, prev.Text, true)
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return turns, nil
}

// Window returns the newest n turns, oldest first. n <= 0 or n greater
// than the transcript returns everything.
func Window(turns []Turn, n int) []Turn {
	if n <= 0 || n >= len(turns) {
		return turns
	}
	return turns[len(turns)-n:]
}
