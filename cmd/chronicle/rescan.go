package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/internal/config"
	"chronicle/internal/extract"
	"chronicle/internal/narrative"
)

var (
	rescanFile       string
	rescanWindow     int
	rescanBlocksOnly bool
	rescanYes        bool
)

func rescanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Scan a transcript window for missed state changes",
		RunE:  runRescan,
	}
	cmd.Flags().StringVar(&rescanFile, "transcript", "", "JSONL transcript file (required)")
	cmd.Flags().IntVar(&rescanWindow, "window", 0, "Turns to scan (0 = config default)")
	cmd.Flags().BoolVar(&rescanBlocksOnly, "blocks-only", false, "Skip the batched extraction call")
	cmd.Flags().BoolVar(&rescanYes, "yes", false, "Apply all proposed changes without prompting")
	return cmd
}

func runRescan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("chronicle.yaml")
	if err != nil {
		return err
	}
	if rescanFile == "" {
		return fmt.Errorf("--transcript is required")
	}

	f, err := os.Open(rescanFile)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	turns, err := narrative.ReadTranscript(f)
	f.Close()
	if err != nil {
		return err
	}

	ctrl, cleanup, err := openController(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := loadSession(ctx, ctrl, cfg); err != nil {
		return err
	}

	window := rescanWindow
	if window <= 0 {
		window = cfg.Rescan.Window
	}
	report, err := ctrl.RescanHistory(ctx, turns, extract.RescanOptions{
		Window:     window,
		BlocksOnly: rescanBlocksOnly || cfg.Rescan.BlocksOnly,
	})
	if report != nil {
		fmt.Fprintln(os.Stdout, report.String())
	}
	if err != nil {
		return err
	}

	if len(ctrl.PendingChanges()) == 0 {
		return nil
	}
	if err := reviewChanges(ctrl, os.Stdin, os.Stdout, rescanYes); err != nil {
		return err
	}
	return ctrl.Flush(ctx)
}
