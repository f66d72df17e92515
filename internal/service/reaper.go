package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/repo"
)

// Reaper sweeps reels stuck in processing, which only happens when the
// process died mid-publish. Stuck reels are failed rather than re-queued:
// the remote publish may have gone through before the crash, and
// re-dispatching would risk posting the clip twice.
type Reaper struct {
	repo   repo.ReelRepository
	maxAge time.Duration
	now    func() time.Time
}

func NewReaper(r repo.ReelRepository, maxAge time.Duration) (*Reaper, error) {
	if r == nil {
		return nil, errors.New("repo must not be nil")
	}
	if maxAge <= 0 {
		return nil, errors.New("maxAge must be > 0")
	}
	return &Reaper{
		repo:   r,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Run is the per-interval body handed to the reaper loop. maxAge must
// comfortably exceed the whole publish budget so an in-flight reel is never
// swept out from under the dispatcher.
func (r *Reaper) Run(ctx context.Context) {
	cutoff := r.now().UTC().Add(-r.maxAge)

	n, err := r.repo.ReclaimStale(ctx, cutoff)
	if err != nil {
		slog.Error("reaper: reclaim failed", "error", err)
		return
	}
	if n > 0 {
		slog.Warn("reaper: failed stale processing reels", "count", n, "cutoff", cutoff)
	}
}
