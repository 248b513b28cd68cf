package delta

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceMarkers = regexp.MustCompile("(?m)^```[a-zA-Z-]*[ \t]*$")

// Parse turns a raw model response into a delta-shaped object. Models
// sometimes wrap their output in markdown fences despite instructions,
// so fence marker lines are stripped before parsing. Returns nil when
// the response is not valid JSON or not a non-array object; callers
// treat nil as "no changes extracted", never as a failure.
func Parse(raw string) map[string]any {
	cleaned := strings.TrimSpace(fenceMarkers.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil
	}
	return doc
}
