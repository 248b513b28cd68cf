package state

import "time"

// Divergence mirrors the divergence block of the world-state document.
type Divergence struct {
	Rating           int
	Threshold        int
	TimelineReliable bool
}

// ReadDivergence extracts the divergence block from a world-state
// document, tolerating absence and JSON number decoding.
func ReadDivergence(ws Document) Divergence {
	d := Divergence{TimelineReliable: true}
	block := Sub(ws, "divergence")
	if block == nil {
		return d
	}
	d.Rating = intField(block, "rating")
	d.Threshold = intField(block, "threshold")
	if v, ok := block["timeline_reliable"].(bool); ok {
		d.TimelineReliable = v
	}
	return d
}

// ApplyDivergence raises the divergence rating by delta, appends a
// timestamped log record, and latches timeline_reliable to false once
// the rating meets the threshold. Nothing here ever raises the
// reliability flag back to true; only an external edit can.
func ApplyDivergence(ws Document, delta int, now time.Time) Divergence {
	block := Sub(ws, "divergence")
	if block == nil {
		block = map[string]any{}
		ws["divergence"] = block
	}

	current := ReadDivergence(ws)
	rating := current.Rating + delta
	block["rating"] = rating

	logged, _ := block["logged_divergences"].([]any)
	logged = append(logged, map[string]any{
		"timestamp": now.UTC().Format(time.RFC3339),
		"delta":     delta,
	})
	block["logged_divergences"] = logged

	reliable := current.TimelineReliable
	if current.Threshold > 0 && rating >= current.Threshold {
		reliable = false
	}
	block["timeline_reliable"] = reliable

	return Divergence{Rating: rating, Threshold: current.Threshold, TimelineReliable: reliable}
}

func intField(doc Document, field string) int {
	switch v := doc[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
