package service

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/testkit"
	"helioserve/internal/services/movies/domain"
	"helioserve/internal/services/movies/repo"
	renderdomain "helioserve/internal/services/render/domain"
)

var t0 = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeFrames resolves each frame time to entry ids and counts builds
type fakeFrames struct {
	mu      sync.Mutex
	calls   int
	entries func(t time.Time) []int64
	fail    map[int64]bool // by unix seconds
	partial map[int64]bool
	onBuild func(n int)
}

func (f *fakeFrames) Build(_ context.Context, req renderdomain.CompositeRequest) (renderdomain.Frame, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	hook := f.onBuild
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	u := req.Time.Unix()
	if f.fail[u] {
		return renderdomain.Frame{}, perr.DecodeFailuref(nil, "all 1 layers failed to decode")
	}
	ids := []int64{u}
	if f.entries != nil {
		ids = f.entries(req.Time)
	}
	frame := renderdomain.Frame{Image: testkit.Solid(8, 8, color.RGBA{R: 200, A: 255})}
	for _, id := range ids {
		frame.Entries = append(frame.Entries, closest.Entry{ID: id, SourceID: 14, Timestamp: time.Unix(id, 0).UTC()})
	}
	if f.partial[u] {
		frame.Warnings = append(frame.Warnings, renderdomain.Warning{Code: "layer_failed", Message: "source 13 failed", SourceID: 13})
	}
	return frame, nil
}

func (f *fakeFrames) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEncoder records what it was asked to encode and writes a stub movie
type fakeEncoder struct {
	mu      sync.Mutex
	paths   []string
	rate    float64
	output  string
	missing []string
	calls   int
	delay   time.Duration
}

func (e *fakeEncoder) Encode(_ context.Context, paths []string, frameRate float64, output string) error {
	time.Sleep(e.delay)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.paths = append([]string(nil), paths...)
	e.rate = frameRate
	e.output = output
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			e.missing = append(e.missing, p)
		}
	}
	return os.WriteFile(output, []byte("RIFF"), 0o644)
}

// fakeLayers applies the same defaults as the render service without a catalog
type fakeLayers struct{}

func (fakeLayers) ResolveLayers(_ context.Context, in []renderdomain.LayerInput) ([]renderdomain.Layer, error) {
	out := make([]renderdomain.Layer, 0, len(in))
	for i, li := range in {
		l := renderdomain.Layer{SourceID: li.SourceID, Visible: true, Opacity: 100, LayeringOrder: i + 1}
		if li.Visible != nil {
			l.Visible = *li.Visible
		}
		if li.Opacity != nil {
			l.Opacity = *li.Opacity
		}
		out = append(out, l)
	}
	return out, nil
}

type fixture struct {
	svc     *Svc
	store   *repo.Memory
	frames  *fakeFrames
	encoder *fakeEncoder
	out     string
}

func newFixture(t *testing.T, frames *fakeFrames, cfg Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.OutputDir = filepath.Join(dir, "out")
	if cfg.Ext == "" {
		cfg.Ext = ".avi"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = time.Nanosecond
	}
	f := &fixture{store: repo.NewMemory(), frames: frames, encoder: &fakeEncoder{}, out: cfg.OutputDir}
	f.svc = New(Deps{Store: f.store, Frames: frames, Layers: fakeLayers{}, Encoder: f.encoder}, cfg)
	return f
}

func submitInput(frames int) domain.SubmitInput {
	return domain.SubmitInput{
		Layers:         []renderdomain.LayerInput{{SourceID: 14}},
		Start:          t0,
		CadenceSeconds: 60,
		FrameCount:     frames,
		ROI:            region.ROI{X0: -600, Y0: -600, X1: 600, Y1: 600},
		Scale:          2.4,
	}
}

func wantCode(t *testing.T, err error, code perr.ErrorCode) {
	t.Helper()
	if !perr.IsCode(err, code) {
		t.Fatalf("want %s, got %v", code, err)
	}
}
