package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/repo"
)

// Assigner gives unscheduled pending reels a publish time spread across a
// daily window, so reels uploaded together do not all post at the same
// minute. Randomizing is posting-cadence policy, not correctness: per-reel
// store errors are logged and the rest of the batch continues.
type Assigner struct {
	repo      repo.ReelRepository
	batchSize int

	// Window bounds in local hours, [start, end).
	windowStart int
	windowEnd   int
	loc         *time.Location

	now   func() time.Time
	randN func(n int) int
}

func NewAssigner(r repo.ReelRepository, batchSize, windowStart, windowEnd int, loc *time.Location) (*Assigner, error) {
	if r == nil {
		return nil, errors.New("repo must not be nil")
	}
	if batchSize <= 0 {
		return nil, errors.New("batchSize must be > 0")
	}
	if windowStart < 0 || windowEnd > 24 || windowStart >= windowEnd {
		return nil, errors.New("window must satisfy 0 <= start < end <= 24")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Assigner{
		repo:        r,
		batchSize:   batchSize,
		windowStart: windowStart,
		windowEnd:   windowEnd,
		loc:         loc,
		now:         time.Now,
		randN:       rand.IntN,
	}, nil
}

// Run performs one assignment pass. Reels that already got a time from an
// earlier run are excluded by the store query, and the guarded write keeps
// two overlapping runs from clobbering each other.
func (a *Assigner) Run(ctx context.Context) {
	reels, err := a.repo.FindUnscheduledPending(ctx, a.batchSize)
	if err != nil {
		slog.Error("assign: fetch unscheduled reels failed", "error", err)
		return
	}
	if len(reels) == 0 {
		slog.Info("assign: no unscheduled reels")
		return
	}

	assigned := 0
	for _, reel := range reels {
		t := a.randomTimeInWindow()

		applied, err := a.repo.AssignScheduledTime(ctx, reel.ID, t)
		if err != nil {
			slog.Error("assign: write failed", "reel_id", reel.ID, "error", err)
			continue
		}
		if !applied {
			slog.Warn("assign: reel already scheduled, skipping", "reel_id", reel.ID)
			continue
		}

		assigned++
		slog.Info("assign: scheduled reel", "reel_id", reel.ID, "scheduled_at", t)
	}

	slog.Info("assign: pass completed", "fetched", len(reels), "assigned", assigned)
}

// randomTimeInWindow picks a uniformly random whole minute inside today's
// window in the assigner's location.
func (a *Assigner) randomTimeInWindow() time.Time {
	now := a.now().In(a.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), a.windowStart, 0, 0, 0, a.loc)

	totalMinutes := (a.windowEnd - a.windowStart) * 60
	return dayStart.Add(time.Duration(a.randN(totalMinutes)) * time.Minute)
}
