package main

import (
	"context"

	"github.com/spf13/cobra"

	"chronicle/internal/config"
	"chronicle/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("chronicle.yaml")
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

	server := mcp.NewServer(ctrl, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
