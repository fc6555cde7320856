package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/movies/domain"
)

// Memory is an in-process job store for the cli, tests and a server without postgres
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

var _ domain.Store = (*Memory)(nil)

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{jobs: map[string]*domain.Job{}, now: time.Now}
}

func (m *Memory) Create(_ context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return perr.Newf(perr.ErrorCodeDuplicateKey, "movie job %s exists", j.ID)
	}
	now := m.now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.State == "" {
		j.State = domain.StateQueued
	}
	c := j.Clone()
	m.jobs[j.ID] = &c
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, perr.NotFoundf("movie job %s not found", id)
	}
	return j.Clone(), nil
}

func (m *Memory) Lease(_ context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()

	var ready []*domain.Job
	for _, j := range m.jobs {
		expired := j.State == domain.StateRunning && j.LeaseExpiresAt != nil && !j.LeaseExpiresAt.After(now)
		if j.State == domain.StateQueued || expired {
			ready = append(ready, j)
		}
	}
	slices.SortFunc(ready, func(a, b *domain.Job) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(ready) > limit {
		ready = ready[:limit]
	}

	out := make([]domain.Job, 0, len(ready))
	for _, j := range ready {
		exp := now.Add(leaseFor)
		j.State = domain.StateRunning
		j.LeasedBy = workerID
		j.LeaseExpiresAt = &exp
		j.UpdatedAt = now
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
		out = append(out, j.Clone())
	}
	return out, nil
}

func (m *Memory) Progress(_ context.Context, id, workerID string, progress int, eta time.Duration, warnings []domain.Warning, leaseFor time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, perr.NotFoundf("movie job %s not found", id)
	}
	if j.State != domain.StateRunning || j.LeasedBy != workerID {
		return false, nil
	}
	now := m.now().UTC()
	exp := now.Add(leaseFor)
	j.Progress = progress
	j.ETA = eta
	j.Warnings = slices.Clone(warnings)
	j.LeaseExpiresAt = &exp
	j.UpdatedAt = now
	return true, nil
}

func (m *Memory) Finish(_ context.Context, f domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[f.ID]
	if !ok {
		return perr.NotFoundf("movie job %s not found", f.ID)
	}
	if j.State != domain.StateRunning || j.LeasedBy != f.LeasedBy {
		return nil
	}
	now := m.now().UTC()
	j.State = f.State
	j.Progress = f.Progress
	j.ETA = 0
	j.Warnings = slices.Clone(f.Warnings)
	j.Error = f.Error
	j.Output = f.Output
	j.LeasedBy = ""
	j.LeaseExpiresAt = nil
	j.UpdatedAt = now
	j.FinishedAt = &now
	return nil
}

func (m *Memory) Cancel(_ context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, perr.NotFoundf("movie job %s not found", id)
	}
	if j.State.Terminal() {
		return j.Clone(), perr.Conflictf("movie job %s is already %s", id, j.State)
	}
	now := m.now().UTC()
	j.State = domain.StateFailed
	j.Error = domain.ErrCancelled
	j.ETA = 0
	j.LeasedBy = ""
	j.LeaseExpiresAt = nil
	j.UpdatedAt = now
	j.FinishedAt = &now
	return j.Clone(), nil
}
