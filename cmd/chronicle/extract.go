package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicle/internal/config"
	"chronicle/internal/narrative"
)

var (
	extractFile string
	extractYes  bool
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract proposed state changes from one narrator message",
		RunE:  runExtract,
	}
	cmd.Flags().StringVar(&extractFile, "file", "-", "Narrator message file (- for stdin)")
	cmd.Flags().BoolVar(&extractYes, "yes", false, "Apply all proposed changes without prompting")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("chronicle.yaml")
	if err != nil {
		return err
	}

	text, err := readNarrative(extractFile)
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

	proposed, err := ctrl.HandleMessage(ctx, narrative.Turn{Role: narrative.RoleNarrator, Text: text})
	if err != nil {
		return err
	}
	if proposed == 0 {
		fmt.Fprintln(os.Stdout, "No changes extracted.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%d change(s) proposed.\n", proposed)

	if err := reviewChanges(ctrl, os.Stdin, os.Stdout, extractYes); err != nil {
		return err
	}
	return ctrl.Flush(ctx)
}
