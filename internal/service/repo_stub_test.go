package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
	"github.com/LeventeLantos/reels-scheduler/internal/repo"
)

// memReelRepo is an in-memory ReelRepository honoring the store contract:
// atomic claim, guarded assignment, terminal immutability. Tests exercise the
// pipeline's concurrency properties against it.
type memReelRepo struct {
	mu    sync.Mutex
	reels map[string]*model.Reel

	// error injection
	findErr   error
	assignErr map[string]error
}

var _ repo.ReelRepository = (*memReelRepo)(nil)

func newMemReelRepo() *memReelRepo {
	return &memReelRepo{
		reels:     make(map[string]*model.Reel),
		assignErr: make(map[string]error),
	}
}

// put inserts a reel verbatim, for test setup.
func (m *memReelRepo) put(r model.Reel) model.Reel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := r
	m.reels[r.ID] = &cp
	return r
}

func (m *memReelRepo) get(id string) model.Reel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.reels[id]
}

func (m *memReelRepo) Create(ctx context.Context, videoURL, caption string, scheduledAt *time.Time) (model.Reel, error) {
	now := time.Now().UTC()
	r := model.Reel{
		ID:          uuid.NewString(),
		VideoURL:    videoURL,
		Caption:     caption,
		ScheduledAt: scheduledAt,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return m.put(r), nil
}

func (m *memReelRepo) GetByID(ctx context.Context, id string) (model.Reel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reels[id]
	if !ok {
		return model.Reel{}, repo.ErrNotFound
	}
	return *r, nil
}

func (m *memReelRepo) List(ctx context.Context, limit, offset int) ([]model.Reel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Reel, 0, len(m.reels))
	for _, r := range m.reels {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memReelRepo) DeletePending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reels[id]
	if !ok {
		return repo.ErrNotFound
	}
	if r.Status != model.StatusPending {
		return repo.ErrNotPending
	}
	delete(m.reels, id)
	return nil
}

func (m *memReelRepo) FindUnscheduledPending(ctx context.Context, limit int) ([]model.Reel, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Reel
	for _, r := range m.reels {
		if r.Status == model.StatusPending && r.ScheduledAt == nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memReelRepo) AssignScheduledTime(ctx context.Context, id string, t time.Time) (bool, error) {
	if err := m.assignErr[id]; err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reels[id]
	if !ok || r.Status != model.StatusPending || r.ScheduledAt != nil {
		return false, nil
	}
	tt := t
	r.ScheduledAt = &tt
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memReelRepo) ClaimNextDue(ctx context.Context, now time.Time) (*model.Reel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*model.Reel
	for _, r := range m.reels {
		if r.Status == model.StatusPending && r.ScheduledAt != nil && !r.ScheduledAt.After(now) {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(*due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
		}
		return due[i].ID < due[j].ID
	})

	claimed := due[0]
	claimed.Status = model.StatusProcessing
	claimed.UpdatedAt = time.Now().UTC()

	cp := *claimed
	return &cp, nil
}

func (m *memReelRepo) MarkPublished(ctx context.Context, id, instagramMediaID string, publishedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reels[id]
	if !ok || r.Status != model.StatusProcessing {
		return false, nil
	}
	r.Status = model.StatusPublished
	r.InstagramMediaID = &instagramMediaID
	t := publishedAt
	r.PublishedAt = &t
	r.UpdatedAt = publishedAt
	return true, nil
}

func (m *memReelRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reels[id]
	if !ok || r.Status != model.StatusProcessing {
		return false, nil
	}
	r.Status = model.StatusFailed
	r.LastError = &errMsg
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memReelRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.reels {
		if r.Status == model.StatusProcessing && r.UpdatedAt.Before(cutoff) {
			r.Status = model.StatusFailed
			msg := "processing stalled beyond the publish budget; reclaimed"
			r.LastError = &msg
			n++
		}
	}
	return n, nil
}
