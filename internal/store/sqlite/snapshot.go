// Package sqlite keeps the last-synced session snapshot on disk, so a
// restarted host can resume without a remote round trip. Snapshots go
// stale after 24 hours and are then ignored.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chronicle/internal/state"

	_ "modernc.org/sqlite"
)

// MaxAge is how long a snapshot stays usable.
const MaxAge = 24 * time.Hour

// Snapshot is the locally cached state of one session.
type Snapshot struct {
	SessionID string
	RemoteID  string
	Documents map[string]state.Document
	SavedAt   time.Time
}

type Cache struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot cache: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging snapshot cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
    session_id TEXT PRIMARY KEY,
    remote_id TEXT NOT NULL,
    documents TEXT NOT NULL,
    saved_at TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring snapshot schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Save stores or replaces the snapshot for a session.
func (c *Cache) Save(ctx context.Context, snap Snapshot) error {
	docs, err := json.Marshal(snap.Documents)
	if err != nil {
		return fmt.Errorf("encoding snapshot documents: %w", err)
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO snapshots (session_id, remote_id, documents, saved_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
    remote_id = excluded.remote_id,
    documents = excluded.documents,
    saved_at = excluded.saved_at
`, snap.SessionID, snap.RemoteID, string(docs), savedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", snap.SessionID, err)
	}
	return nil
}

// Load returns the snapshot for a session, or nil when none exists or
// the stored one is older than MaxAge.
func (c *Cache) Load(ctx context.Context, sessionID string, now time.Time) (*Snapshot, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT remote_id, documents, saved_at FROM snapshots WHERE session_id = ?
`, sessionID)

	var remoteID, docsJSON, savedAtText string
	if err := row.Scan(&remoteID, &docsJSON, &savedAtText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot for %s: %w", sessionID, err)
	}

	savedAt, err := time.Parse(time.RFC3339, savedAtText)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: bad timestamp: %w", sessionID, err)
	}
	if now.Sub(savedAt) > MaxAge {
		return nil, nil
	}

	var docs map[string]state.Document
	if err := json.Unmarshal([]byte(docsJSON), &docs); err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", sessionID, err)
	}

	return &Snapshot{
		SessionID: sessionID,
		RemoteID:  remoteID,
		Documents: docs,
		SavedAt:   savedAt,
	}, nil
}
