package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	kit "helioserve/internal/platform/testkit"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"INFO", "info"},
		{"warning", "warn"},
		{"error", "error"},
		{"", "info"},
		{"   nonsense   ", "info"},
	}
	for _, c := range cases {
		if got := parseLevel(c.in).String(); got != c.want {
			t.Fatalf("parseLevel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInit_Named_C(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{
		Level:        "info",
		Format:       "json",
		Service:      "helioserve-movies",
		Writer:       &buf,
		StaticFields: map[string]string{"build": "test"},
	})

	Named("sequencer").Info().Msg("named-msg")

	ctx := WithJob(WithRequest(context.Background(), "req-123"), "job-9")
	C(ctx).Info().Msg("ctx-msg")
	C(context.Background()).Info().Msg("ctx-empty")

	out := buf.String()
	kit.MustContain(t, out, `"component":"sequencer"`)
	kit.MustContain(t, out, `"request_id":"req-123"`)
	kit.MustContain(t, out, `"job_id":"job-9"`)
	kit.MustContain(t, out, `"service":"helioserve-movies"`)
	kit.MustContain(t, out, `"build":"test"`)
	if strings.Count(out, "job_id") != 1 {
		t.Fatalf("job_id should only be on the ctx line: %s", out)
	}
}

func TestWithRequestEmptyKeepsContext(t *testing.T) {
	ctx := context.Background()
	if WithRequest(ctx, "") != ctx || WithJob(ctx, "") != ctx {
		t.Fatalf("empty ids should not wrap ctx")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SERVICE", "helioserve-api")
	t.Setenv("LOG_CALLER", "yes")
	t.Setenv("LOG_SAMPLE_EVERY", "5")

	opt := FromEnv()
	if opt.Level != "warn" || opt.Format != "json" || opt.Service != "helioserve-api" {
		t.Fatalf("FromEnv fields mismatch: %+v", opt)
	}
	if !opt.WithCaller || opt.SampleEvery != 5 {
		t.Fatalf("FromEnv caller/sample mismatch: %+v", opt)
	}
}
