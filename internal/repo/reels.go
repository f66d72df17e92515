package repo

import (
	"context"
	"errors"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
)

var (
	// ErrNotFound is returned when no reel exists for the given id.
	ErrNotFound = errors.New("reel not found")
	// ErrNotPending is returned when an operation requires a pending reel.
	ErrNotPending = errors.New("reel is not pending")
)

// ReelRepository is the durable store for reels. ClaimNextDue is the only
// concurrency primitive in the system: it selects and transitions the
// earliest due pending reel to processing in one atomic step, so overlapping
// dispatch ticks (or multiple processes) can never double-claim.
type ReelRepository interface {
	Create(ctx context.Context, videoURL, caption string, scheduledAt *time.Time) (model.Reel, error)
	GetByID(ctx context.Context, id string) (model.Reel, error)
	List(ctx context.Context, limit, offset int) ([]model.Reel, error)
	DeletePending(ctx context.Context, id string) error

	FindUnscheduledPending(ctx context.Context, limit int) ([]model.Reel, error)
	// AssignScheduledTime applies only while the reel is still pending and
	// unscheduled; it reports whether the write took effect.
	AssignScheduledTime(ctx context.Context, id string, t time.Time) (bool, error)

	// ClaimNextDue returns the earliest pending reel with scheduledAt <= now,
	// already transitioned to processing, or nil if none is due.
	ClaimNextDue(ctx context.Context, now time.Time) (*model.Reel, error)

	// MarkPublished and MarkFailed transition from processing only. They
	// report whether the row changed; a false result means the reel had
	// already reached a terminal state by another path.
	MarkPublished(ctx context.Context, id, instagramMediaID string, publishedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, errMsg string) (bool, error)

	// ReclaimStale fails processing reels last touched before cutoff,
	// returning how many rows were swept.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}
