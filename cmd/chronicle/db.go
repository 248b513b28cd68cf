package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chronicle/internal/config"
	"chronicle/internal/extract"
	"chronicle/internal/llm"
	"chronicle/internal/session"
	"chronicle/internal/store"
	"chronicle/internal/store/postgres"
	"chronicle/internal/store/remote"
	"chronicle/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Store.Backend {
	case "remote":
		return remote.New(cfg.Store.URL, cfg.Store.Token), nil
	case "postgres":
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// openController assembles a session controller from the project
// config. The generation capability stays nil when no llm provider is
// configured; extraction calls then fail with a clear status instead of
// a broken request.
func openController(ctx context.Context, cfg *config.ProjectConfig) (*session.Controller, func(), error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := sqlite.Open(ctx, cfg.Snapshot.Path)
	if err != nil {
		db.Close(ctx)
		return nil, nil, err
	}

	var generator extract.Generator
	if cfg.LLM.Provider != "" {
		provider, err := llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
		if err != nil {
			snapshot.Close()
			db.Close(ctx)
			return nil, nil, err
		}
		generator = provider
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctrl := session.New(session.Options{
		SessionID:    cfg.Session,
		CollectionID: cfg.Store.Collection,
		Generator:    generator,
		Preamble:     cfg.Scenario.Preamble,
		Remote:       db,
		Snapshot:     snapshot,
		Debounce:     cfg.Debounce(),
		Log:          logger,
	})

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snapshot.Close()
		db.Close(closeCtx)
	}
	return ctrl, cleanup, nil
}

// loadSession pulls the session documents into the controller.
func loadSession(ctx context.Context, ctrl *session.Controller, cfg *config.ProjectConfig) error {
	return ctrl.HandleChatChanged(ctx, cfg.Session)
}
