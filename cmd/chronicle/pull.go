package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/config"
	"chronicle/internal/store/sqlite"
)

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch session documents from the remote store into the local snapshot",
		RunE:  runPull,
	}
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("chronicle.yaml")
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	docs, err := db.FetchAll(ctx, cfg.Store.Collection)
	if err != nil {
		return err
	}

	cache, err := sqlite.Open(ctx, cfg.Snapshot.Path)
	if err != nil {
		return err
	}
	defer cache.Close()

	err = cache.Save(ctx, sqlite.Snapshot{
		SessionID: cfg.Session,
		RemoteID:  cfg.Store.Collection,
		Documents: docs,
		SavedAt:   time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Pulled %d document(s) into %s.\n", len(docs), cfg.Snapshot.Path)
	return nil
}
