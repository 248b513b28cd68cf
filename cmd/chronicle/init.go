package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new chronicle project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(projectName string) error {
	configPath := "chronicle.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	contents := fmt.Sprintf(`project: %s
version: 1
session: default

store:
  backend: remote
  url: https://example.invalid/api
  token: ""
  collection: ""

llm:
  provider: openrouter
  model: openai/gpt-4o-mini

scenario:
  preamble: ""

rescan:
  window: 30
  blocks_only: false

persist:
  debounce_seconds: 4

snapshot:
  path: chronicle.db
`, projectName)

	if err := os.WriteFile(configPath, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	return nil
}
