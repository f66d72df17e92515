package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
)

const reelColumns = `id, video_url, caption, scheduled_at, status, instagram_media_id, last_error, published_at, created_at, updated_at`

type PostgresReelRepo struct {
	db *sql.DB
}

func NewPostgresReelRepo(db *sql.DB) *PostgresReelRepo {
	return &PostgresReelRepo{db: db}
}

var _ ReelRepository = (*PostgresReelRepo)(nil)

func (r *PostgresReelRepo) Create(ctx context.Context, videoURL, caption string, scheduledAt *time.Time) (model.Reel, error) {
	if videoURL == "" {
		return model.Reel{}, errors.New("videoURL must not be empty")
	}
	if caption == "" {
		return model.Reel{}, errors.New("caption must not be empty")
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	var sched any
	if scheduledAt != nil {
		t := scheduledAt.UTC()
		sched = t
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO reels (id, video_url, caption, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $5)
		RETURNING `+reelColumns+`
	`, id, videoURL, caption, sched, now)

	return scanReel(row)
}

func (r *PostgresReelRepo) GetByID(ctx context.Context, id string) (model.Reel, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reelColumns+`
		FROM reels
		WHERE id = $1
	`, id)

	reel, err := scanReel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reel{}, ErrNotFound
	}
	return reel, err
}

func (r *PostgresReelRepo) List(ctx context.Context, limit, offset int) ([]model.Reel, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reelColumns+`
		FROM reels
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReels(rows)
}

func (r *PostgresReelRepo) DeletePending(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM reels
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Distinguish "missing" from "exists but already claimed/terminal".
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}

func (r *PostgresReelRepo) FindUnscheduledPending(ctx context.Context, limit int) ([]model.Reel, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reelColumns+`
		FROM reels
		WHERE status = 'pending' AND scheduled_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReels(rows)
}

func (r *PostgresReelRepo) AssignScheduledTime(ctx context.Context, id string, t time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reels
		SET scheduled_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND scheduled_at IS NULL
	`, id, t.UTC(), time.Now().UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimNextDue selects the earliest due pending reel and flips it to
// processing in a single statement. FOR UPDATE SKIP LOCKED keeps concurrent
// claimers from blocking on (or double-claiming) the same row.
func (r *PostgresReelRepo) ClaimNextDue(ctx context.Context, now time.Time) (*model.Reel, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE reels
		SET status = 'processing', updated_at = $2
		WHERE id = (
			SELECT id
			FROM reels
			WHERE status = 'pending'
			  AND scheduled_at IS NOT NULL
			  AND scheduled_at <= $1
			ORDER BY scheduled_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+reelColumns+`
	`, now.UTC(), time.Now().UTC())

	reel, err := scanReel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reel, nil
}

func (r *PostgresReelRepo) MarkPublished(ctx context.Context, id, instagramMediaID string, publishedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reels
		SET status = 'published',
		    instagram_media_id = $2,
		    published_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, instagramMediaID, publishedAt.UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresReelRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reels
		SET status = 'failed',
		    last_error = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, errMsg, time.Now().UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresReelRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reels
		SET status = 'failed',
		    last_error = 'processing stalled beyond the publish budget; reclaimed',
		    updated_at = $2
		WHERE status = 'processing' AND updated_at < $1
	`, cutoff.UTC(), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("reclaim stale reels: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReel(row rowScanner) (model.Reel, error) {
	var (
		m           model.Reel
		status      string
		scheduledAt sql.NullTime
		mediaID     sql.NullString
		lastErr     sql.NullString
		publishedAt sql.NullTime
	)

	if err := row.Scan(
		&m.ID,
		&m.VideoURL,
		&m.Caption,
		&scheduledAt,
		&status,
		&mediaID,
		&lastErr,
		&publishedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return model.Reel{}, err
	}

	m.Status = model.Status(status)
	if scheduledAt.Valid {
		t := scheduledAt.Time
		m.ScheduledAt = &t
	}
	if mediaID.Valid {
		s := mediaID.String
		m.InstagramMediaID = &s
	}
	if lastErr.Valid {
		s := lastErr.String
		m.LastError = &s
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		m.PublishedAt = &t
	}
	return m, nil
}

func scanReels(rows *sql.Rows) ([]model.Reel, error) {
	var out []model.Reel
	for rows.Next() {
		m, err := scanReel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
