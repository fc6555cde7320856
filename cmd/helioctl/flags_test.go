package main

import (
	"testing"

	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
)

func TestParseLayer(t *testing.T) {
	cases := []struct {
		in      string
		id      int64
		opacity float64 // -1 means unset
		ok      bool
	}{
		{"14", 14, -1, true},
		{" 14:60 ", 14, 60, true},
		{"3:0", 3, 0, true},
		{"3:100", 3, 100, true},
		{"3:101", 0, 0, false},
		{"0", 0, 0, false},
		{"abc", 0, 0, false},
		{"7:x", 0, 0, false},
	}
	for _, c := range cases {
		got, err := parseLayer(c.in)
		if !c.ok {
			if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				t.Fatalf("%q: want invalid_argument, got %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if got.SourceID != c.id {
			t.Fatalf("%q: source %d want %d", c.in, got.SourceID, c.id)
		}
		switch {
		case c.opacity < 0 && got.Opacity != nil:
			t.Fatalf("%q: opacity should be unset, got %v", c.in, *got.Opacity)
		case c.opacity >= 0 && (got.Opacity == nil || *got.Opacity != c.opacity):
			t.Fatalf("%q: opacity %v want %v", c.in, got.Opacity, c.opacity)
		}
	}
}

func TestParseLayersRequiresOne(t *testing.T) {
	if _, err := parseLayers(nil); err == nil {
		t.Fatal("expected error for no layers")
	}
	if _, err := parseLayers([]string{"1", "1:50"}); err == nil {
		t.Fatal("expected error for a repeated source")
	}
	got, err := parseLayers([]string{"1", "2:50"})
	if err != nil || len(got) != 2 {
		t.Fatalf("got %v %v", got, err)
	}
}

func TestParseROI(t *testing.T) {
	got, err := parseROI("-1200, -600,1200,600.5")
	if err != nil {
		t.Fatal(err)
	}
	want := region.ROI{X0: -1200, Y0: -600, X1: 1200, Y1: 600.5}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,0,1,1", "10,0,0,10", "0,10,10,10"} {
		if _, err := parseROI(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
