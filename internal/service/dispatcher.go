package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
	"github.com/LeventeLantos/reels-scheduler/internal/repo"
)

// ReelPublisher is what the dispatch loop invokes per claimed reel.
type ReelPublisher interface {
	Publish(ctx context.Context, reel model.Reel) (string, error)
}

// Dispatcher advances at most one due reel per tick. The atomic claim in the
// store is the only mutual exclusion: overlapping ticks find the in-flight
// reel already in processing and no-op. All store writes happen here, not in
// the publisher, so persistence side effects stay in one place.
type Dispatcher struct {
	repo      repo.ReelRepository
	publisher ReelPublisher
	now       func() time.Time

	onPublished func(ctx context.Context, reelID, instagramMediaID string, publishedAt time.Time) error
}

func NewDispatcher(r repo.ReelRepository, p ReelPublisher) (*Dispatcher, error) {
	if r == nil {
		return nil, errors.New("repo must not be nil")
	}
	if p == nil {
		return nil, errors.New("publisher must not be nil")
	}
	return &Dispatcher{
		repo:      r,
		publisher: p,
		now:       time.Now,
	}, nil
}

// WithPublishedHook registers a best-effort side channel (the Redis cache)
// fired after a successful publish is persisted.
func (d *Dispatcher) WithPublishedHook(hook func(ctx context.Context, reelID, instagramMediaID string, publishedAt time.Time) error) *Dispatcher {
	d.onPublished = hook
	return d
}

// Tick is the per-interval body handed to the dispatch loop.
func (d *Dispatcher) Tick(ctx context.Context) {
	reel, err := d.repo.ClaimNextDue(ctx, d.now().UTC())
	if err != nil {
		slog.Error("dispatch: claim failed", "error", err)
		return
	}
	if reel == nil {
		return
	}

	slog.Info("dispatch: claimed reel",
		"reel_id", reel.ID,
		"scheduled_at", reel.ScheduledAt,
	)

	mediaID, err := d.publisher.Publish(ctx, *reel)
	if err != nil {
		d.fail(ctx, reel.ID, err)
		return
	}

	publishedAt := d.now().UTC()
	applied, err := d.repo.MarkPublished(ctx, reel.ID, mediaID, publishedAt)
	if err != nil {
		slog.Error("dispatch: mark published failed", "reel_id", reel.ID, "error", err)
		return
	}
	if !applied {
		// The reel left processing by another path; nothing to do.
		slog.Warn("dispatch: reel no longer processing, publish not recorded", "reel_id", reel.ID)
		return
	}

	slog.Info("dispatch: reel published", "reel_id", reel.ID, "instagram_media_id", mediaID)

	if d.onPublished != nil {
		if err := d.onPublished(ctx, reel.ID, mediaID, publishedAt); err != nil {
			slog.Warn("dispatch: published hook failed", "reel_id", reel.ID, "error", err)
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, reelID string, cause error) {
	var pf *PublishFailure
	kind := "unknown"
	if errors.As(cause, &pf) {
		kind = string(pf.Kind)
	}

	slog.Error("dispatch: publish failed", "reel_id", reelID, "kind", kind, "error", cause)

	applied, err := d.repo.MarkFailed(ctx, reelID, cause.Error())
	if err != nil {
		slog.Error("dispatch: mark failed errored", "reel_id", reelID, "error", err)
		return
	}
	if !applied {
		slog.Warn("dispatch: reel no longer processing, failure not recorded", "reel_id", reelID)
	}
}
