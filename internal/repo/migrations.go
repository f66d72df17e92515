package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the reels schema. It is safe to call on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reels (
			id                 UUID PRIMARY KEY,
			video_url          TEXT NOT NULL,
			caption            TEXT NOT NULL,
			scheduled_at       TIMESTAMPTZ,
			status             TEXT NOT NULL DEFAULT 'pending',
			instagram_media_id TEXT,
			last_error         TEXT,
			published_at       TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reels_due
			ON reels (scheduled_at ASC)
			WHERE status = 'pending' AND scheduled_at IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_reels_unscheduled
			ON reels (created_at ASC)
			WHERE status = 'pending' AND scheduled_at IS NULL`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply reels migration: %w", err)
		}
	}
	return nil
}
