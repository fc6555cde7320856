// Package time contains observation time helpers shared by handlers, the CLI and the manifest importer
package time

import (
	"strconv"
	"strings"
	"time"

	perr "helioserve/internal/platform/errors"
)

// ObservationLayout is the canonical wire format for observation times
const ObservationLayout = "2006-01-02T15:04:05.000Z"

var layouts = []string{
	ObservationLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseObservation parses an observation time in any accepted layout or as unix seconds
// The result is always UTC
func ParseObservation(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, perr.InvalidArgf("date is required")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.InvalidArgf("unrecognized date %q", s)
}

// Format renders t in the canonical observation layout
func Format(t time.Time) string { return t.UTC().Format(ObservationLayout) }

// Bucket truncates t to a multiple of d since the unix epoch, d <= 0 returns t to the second
func Bucket(t time.Time, d time.Duration) time.Time {
	t = t.UTC()
	if d <= 0 {
		return t.Truncate(time.Second)
	}
	return t.Truncate(d)
}

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
