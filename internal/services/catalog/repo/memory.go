package repo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/instruments"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/catalog/domain"
)

// Memory is an in-process Repo backed by closest.Memory, used when postgres is off
type Memory struct {
	mu      sync.RWMutex
	sources []domain.DataSource
	nextImg int64
	idx     *closest.Memory
}

var _ Repo = (*Memory)(nil)

// NewMemory returns an empty catalog
func NewMemory() *Memory { return &Memory{idx: closest.NewMemory()} }

func sourceKey(d domain.DataSource) string {
	return strings.Join([]string{
		instruments.Fold(d.Observatory), instruments.Fold(d.Instrument),
		instruments.Fold(d.Detector), instruments.Fold(d.Measurement),
	}, "/")
}

func (m *Memory) ListSources(context.Context) ([]domain.DataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.sources)
	slices.SortFunc(out, func(a, b domain.DataSource) int { return strings.Compare(sourceKey(a), sourceKey(b)) })
	return out, nil
}

func (m *Memory) Source(_ context.Context, id int64) (domain.DataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.sources {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.DataSource{}, perr.NotFoundf("data source %d not found", id)
}

func (m *Memory) FindSource(_ context.Context, observatory, instrument, detector, measurement string) (domain.DataSource, error) {
	want := sourceKey(domain.DataSource{Observatory: observatory, Instrument: instrument, Detector: detector, Measurement: measurement})
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.sources {
		if sourceKey(d) == want {
			return d, nil
		}
	}
	return domain.DataSource{}, perr.NotFoundf("no data source %s/%s/%s/%s", observatory, instrument, detector, measurement)
}

func (m *Memory) UpsertSource(_ context.Context, ds domain.DataSource) (int64, error) {
	key := sourceKey(ds)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.sources {
		if sourceKey(d) == key {
			m.sources[i].LayeringOrder = ds.LayeringOrder
			return d.ID, nil
		}
	}
	ds.ID = int64(len(m.sources) + 1)
	m.sources = append(m.sources, ds)
	return ds.ID, nil
}

// WriteImages assigns ids to new entries, an existing (source, date) pair is kept
func (m *Memory) WriteImages(ctx context.Context, xs []domain.Entry) (int64, error) {
	var n int64
	for _, e := range xs {
		if prev, _ := m.idx.NearestAtOrAfter(ctx, e.SourceID, e.Timestamp); prev != nil && prev.Timestamp.Equal(e.Timestamp) {
			continue
		}
		m.mu.Lock()
		m.nextImg++
		e.ID = m.nextImg
		m.mu.Unlock()
		e.Timestamp = e.Timestamp.UTC()
		m.idx.Add(e)
		n++
	}
	return n, nil
}

func (m *Memory) NearestBefore(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return m.idx.NearestBefore(ctx, sourceID, t)
}

func (m *Memory) NearestAtOrAfter(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return m.idx.NearestAtOrAfter(ctx, sourceID, t)
}
