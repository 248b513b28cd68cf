package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "chronicle",
		Short: "Reviewed world-state tracking for AI roleplay sessions",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(extractCmd())
	root.AddCommand(rescanCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(pullCmd())
	root.AddCommand(pushCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
