package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chronicle/internal/state"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(context.Background(), filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestSaveAndLoad(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	saved := time.Date(2011, 4, 12, 9, 0, 0, 0, time.UTC)

	snap := Snapshot{
		SessionID: "s1",
		RemoteID:  "col-1",
		Documents: map[string]state.Document{
			"world_state": {"in_world_date": "April 12, 2011"},
		},
		SavedAt: saved,
	}
	if err := cache.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := cache.Load(ctx, "s1", saved.Add(time.Hour))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatalf("snapshot missing")
	}
	if got.RemoteID != "col-1" {
		t.Fatalf("remote id = %q", got.RemoteID)
	}
	if got.Documents["world_state"]["in_world_date"] != "April 12, 2011" {
		t.Fatalf("documents = %v", got.Documents)
	}
}

func TestSaveReplaces(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	saved := time.Date(2011, 4, 12, 9, 0, 0, 0, time.UTC)

	for _, remoteID := range []string{"col-1", "col-2"} {
		if err := cache.Save(ctx, Snapshot{
			SessionID: "s1",
			RemoteID:  remoteID,
			Documents: map[string]state.Document{},
			SavedAt:   saved,
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := cache.Load(ctx, "s1", saved.Add(time.Minute))
	if err != nil || got == nil {
		t.Fatalf("load: %v, %v", got, err)
	}
	if got.RemoteID != "col-2" {
		t.Fatalf("remote id = %q, want the replacement", got.RemoteID)
	}
}

func TestLoadMissing(t *testing.T) {
	cache := openTestCache(t)
	got, err := cache.Load(context.Background(), "unknown", time.Now())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestLoadStale(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	saved := time.Date(2011, 4, 12, 9, 0, 0, 0, time.UTC)

	if err := cache.Save(ctx, Snapshot{
		SessionID: "s1",
		RemoteID:  "col-1",
		Documents: map[string]state.Document{},
		SavedAt:   saved,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got, err := cache.Load(ctx, "s1", saved.Add(MaxAge+time.Second)); err != nil || got != nil {
		t.Fatalf("stale snapshot returned: %v, %v", got, err)
	}
	if got, err := cache.Load(ctx, "s1", saved.Add(MaxAge-time.Second)); err != nil || got == nil {
		t.Fatalf("fresh snapshot rejected: %v, %v", got, err)
	}
}
