package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"chronicle/internal/delta"
	"chronicle/internal/narrative"
	"chronicle/internal/state"
)

// RescanOptions bounds a historical rescan.
type RescanOptions struct {
	// Window is how many of the newest turns to scan. <= 0 scans all.
	Window int
	// BlocksOnly skips the batched extraction call entirely: pass 1
	// runs, orphans are discarded.
	BlocksOnly bool
}

// RescanReport summarizes one rescan, distinguishing structured-block
// hits from the batched call's outcome.
type RescanReport struct {
	TurnsScanned  int
	BlockHits     int
	Orphans       int
	Discarded     int
	Proposed      int
	BatchAttempts int
	BatchErr      error
	Cancelled     bool
}

func (r *RescanReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scanned %d turns: %d structured-block hits, %d orphans (%d discarded), %d changes proposed",
		r.TurnsScanned, r.BlockHits, r.Orphans, r.Discarded, r.Proposed)
	if r.BatchAttempts > 0 {
		fmt.Fprintf(&sb, "; batch call: %d attempt(s)", r.BatchAttempts)
		if r.BatchErr != nil {
			fmt.Fprintf(&sb, ", failed: %v", r.BatchErr)
		}
	}
	if r.Cancelled {
		sb.WriteString("; cancelled")
	}
	return sb.String()
}

// Rescan drives the two-pass historical scan. Pass 1 takes structured
// blocks from every turn in the window (no external calls); pass 2
// concatenates the remaining turns that mention a known character into
// one document and issues exactly one generation call for the batch,
// bounding external-call volume to 1 regardless of window size.
type Rescan struct {
	Caller     *Caller
	Prompts    *PromptBuilder
	State      *state.Store
	Normalizer *delta.Normalizer

	// Propose hands a non-empty canonical delta to the review queue
	// and returns how many proposed changes it produced.
	Propose func(d *delta.Delta) int

	// Cancel is polled between turns; setting it stops the scan
	// cooperatively. An in-flight generation call is not aborted.
	Cancel *atomic.Bool

	Log *slog.Logger
}

func (r *Rescan) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Rescan) cancelled() bool {
	return r.Cancel != nil && r.Cancel.Load()
}

// Run scans the selected window oldest-to-newest. Narrator turns only;
// user turns carry no world changes.
func (r *Rescan) Run(ctx context.Context, turns []narrative.Turn, opts RescanOptions) (*RescanReport, error) {
	report := &RescanReport{}
	window := narrative.Window(turns, opts.Window)

	type orphan struct {
		position int
		text     string
	}
	var orphans []orphan

	for i, turn := range window {
		if r.cancelled() {
			report.Cancelled = true
			return report, nil
		}
		if turn.Role != narrative.RoleNarrator {
			continue
		}
		report.TurnsScanned++

		block, err := narrative.ExtractBlock(turn.Text)
		if err != nil {
			r.log().Warn("malformed state-update block", "turn", i, "error", err)
		}
		if block != nil {
			report.BlockHits++
			d := r.Normalizer.Normalize(block)
			if !d.Empty() {
				report.Proposed += r.Propose(d)
			}
			continue
		}

		if opts.BlocksOnly {
			continue
		}

		text := narrative.Normalize(turn.Text)
		if text == "" {
			report.Discarded++
			continue
		}
		// Turns naming no known character are unextractable atmosphere.
		if !r.State.Mentions(text) {
			report.Discarded++
			continue
		}
		orphans = append(orphans, orphan{position: i + 1, text: text})
	}
	report.Orphans = len(orphans)

	if opts.BlocksOnly || len(orphans) == 0 {
		return report, nil
	}
	if r.cancelled() {
		report.Cancelled = true
		return report, nil
	}

	var combined strings.Builder
	for i, o := range orphans {
		if i > 0 {
			combined.WriteString("\n\n=====\n\n")
		}
		fmt.Fprintf(&combined, "[Turn %d]\n%s", o.position, o.text)
	}

	prompt := r.Prompts.Build(combined.String(), ContextFromStore(r.State))
	response, attempts, err := r.Caller.GenerateBatch(ctx, prompt)
	report.BatchAttempts = attempts
	if err != nil {
		report.BatchErr = err
		return report, fmt.Errorf("batch extraction: %w", err)
	}

	d := r.Normalizer.Normalize(delta.Parse(response))
	if !d.Empty() {
		report.Proposed += r.Propose(d)
	}
	return report, nil
}
