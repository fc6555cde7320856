// Package closest selects the catalog entry nearest to a requested observation time
package closest

import (
	"context"
	"time"

	perr "helioserve/internal/platform/errors"
)

// Entry is one catalogued image of a data source
// RefX/RefY locate the solar disk centre in file pixels, Scale is arcseconds per pixel
type Entry struct {
	ID        int64     `json:"id"`
	SourceID  int64     `json:"source_id"`
	Timestamp time.Time `json:"date"`
	FilePath  string    `json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Scale     float64   `json:"scale"`
	RefX      float64   `json:"ref_x"`
	RefY      float64   `json:"ref_y"`
}

// Index answers the two bounded neighbour queries around t
// both return (nil, nil) when no such entry exists
type Index interface {
	NearestBefore(ctx context.Context, sourceID int64, t time.Time) (*Entry, error)
	NearestAtOrAfter(ctx context.Context, sourceID int64, t time.Time) (*Entry, error)
}

// Find returns the entry minimizing |ts - t|
// on a tie the at-or-after entry wins
func Find(ctx context.Context, idx Index, sourceID int64, t time.Time) (Entry, error) {
	before, err := idx.NearestBefore(ctx, sourceID, t)
	if err != nil {
		return Entry{}, err
	}
	after, err := idx.NearestAtOrAfter(ctx, sourceID, t)
	if err != nil {
		return Entry{}, err
	}
	e := Pick(before, after, t)
	if e == nil {
		return Entry{}, perr.NotFoundf("no image for source %d near %s", sourceID, t.UTC().Format(time.RFC3339))
	}
	return *e, nil
}

// Pick chooses between the two neighbours of t, nil when both are absent
func Pick(before, after *Entry, t time.Time) *Entry {
	switch {
	case before == nil:
		return after
	case after == nil:
		return before
	}
	if t.Sub(before.Timestamp) < after.Timestamp.Sub(t) {
		return before
	}
	return after
}
