package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"chronicle/internal/session"
)

// reviewChanges walks the pending queue interactively: y applies, n
// discards, a applies everything remaining, d discards everything
// remaining, q leaves the rest pending.
func reviewChanges(ctrl *session.Controller, in io.Reader, out io.Writer, applyAll bool) error {
	if applyAll {
		applied, errs := ctrl.AcceptAll()
		fmt.Fprintf(out, "Applied %d change(s).\n", applied)
		for _, err := range errs {
			fmt.Fprintf(out, "  ! %v\n", err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d change(s) failed and remain pending", len(errs))
		}
		return nil
	}

	reader := bufio.NewReader(in)
	for _, change := range ctrl.PendingChanges() {
		fmt.Fprintf(out, "\n%s\n", change.Description)
		fmt.Fprintf(out, "  was: %v\n  now: %v\n", change.Previous, change.Proposed)
		fmt.Fprint(out, "Apply? [y/n/a/d/q] ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			if err := ctrl.Accept(change.ID); err != nil {
				fmt.Fprintf(out, "  ! %v\n", err)
			}
		case "n", "no":
			if err := ctrl.Deny(change.ID); err != nil {
				fmt.Fprintf(out, "  ! %v\n", err)
			}
		case "a":
			applied, errs := ctrl.AcceptAll()
			fmt.Fprintf(out, "Applied %d change(s).\n", applied)
			for _, err := range errs {
				fmt.Fprintf(out, "  ! %v\n", err)
			}
			return nil
		case "d":
			discarded := ctrl.DenyAll()
			fmt.Fprintf(out, "Discarded %d change(s).\n", discarded)
			return nil
		case "q":
			return nil
		default:
			fmt.Fprintln(out, "  (left pending)")
		}
	}
	return nil
}

func readNarrative(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
