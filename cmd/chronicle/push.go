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

var pushCreate bool

func pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the local snapshot to the remote store",
		RunE:  runPush,
	}
	cmd.Flags().BoolVar(&pushCreate, "create", false, "Create a new remote collection instead of patching")
	return cmd
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("chronicle.yaml")
	if err != nil {
		return err
	}

	cache, err := sqlite.Open(ctx, cfg.Snapshot.Path)
	if err != nil {
		return err
	}
	defer cache.Close()

	snap, err := cache.Load(ctx, cfg.Session, time.Now())
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no usable snapshot for session %s (missing or older than %s)", cfg.Session, sqlite.MaxAge)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if pushCreate {
		id, err := db.Create(ctx, cfg.Project, snap.Documents)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Created collection %s with %d document(s).\n", id, len(snap.Documents))
		fmt.Fprintln(os.Stdout, "Set store.collection in chronicle.yaml to this id.")
		return nil
	}

	if err := db.Patch(ctx, cfg.Store.Collection, snap.Documents); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Pushed %d document(s).\n", len(snap.Documents))
	return nil
}
