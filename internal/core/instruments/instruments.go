// Package instruments holds the per-detector pyramid constants the renderer needs:
// base scale and zoom, solar radius, occulter geometry and colour table names
package instruments

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	perr "helioserve/internal/platform/errors"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed instruments.toml
var embedded []byte

// DefaultRsunArcsec is the apparent solar radius used when a detector does not set one
const DefaultRsunArcsec = 959.705

// Occulter is the visible annulus of a coronagraph in solar radii
type Occulter struct {
	Inner float64 `toml:"inner"`
	Outer float64 `toml:"outer"`
}

// Constants describes one detector
type Constants struct {
	Observatory       string            `toml:"observatory"`
	Instrument        string            `toml:"instrument"`
	Detector          string            `toml:"detector"`
	BaseScale         float64           `toml:"base_scale"`
	BaseZoom          int               `toml:"base_zoom"`
	RsunArcsec        float64           `toml:"rsun_arcsec"`
	Occulter          *Occulter         `toml:"occulter"`
	ColorTables       map[string]string `toml:"color_tables"`
	DefaultColorTable string            `toml:"default_color_table"`
}

// Coronagraph reports whether the annulus mask applies
func (c Constants) Coronagraph() bool { return c.Occulter != nil }

// ColorTable returns the table name for a measurement, falling back to the default
func (c Constants) ColorTable(measurement string) string {
	want := Fold(measurement)
	for k, v := range c.ColorTables {
		if Fold(k) == want {
			return v
		}
	}
	return c.DefaultColorTable
}

type document struct {
	Instrument []Constants `toml:"instrument"`
}

// Table is an immutable lookup keyed by folded (observatory, instrument, detector)
type Table struct {
	byKey map[string]Constants
}

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
		)
	},
}

// Fold normalizes a name for lookups ("SDO", " sdo " and "ｓｄｏ" are equal)
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Key builds the folded lookup key
func Key(observatory, instrument, detector string) string {
	return Fold(observatory) + "/" + Fold(instrument) + "/" + Fold(detector)
}

// Parse decodes a TOML document of [[instrument]] tables
func Parse(data []byte) (*Table, error) {
	var doc document
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "parse instruments")
	}

	t := &Table{byKey: make(map[string]Constants, len(doc.Instrument))}
	for i, c := range doc.Instrument {
		if c.BaseScale <= 0 {
			return nil, perr.InvalidArgf("instrument %d (%s/%s/%s): base_scale must be positive", i, c.Observatory, c.Instrument, c.Detector)
		}
		if c.Occulter != nil && c.Occulter.Outer > 0 && c.Occulter.Outer <= c.Occulter.Inner {
			return nil, perr.InvalidArgf("instrument %s/%s/%s: occulter outer must exceed inner", c.Observatory, c.Instrument, c.Detector)
		}
		if c.RsunArcsec <= 0 {
			c.RsunArcsec = DefaultRsunArcsec
		}
		t.byKey[Key(c.Observatory, c.Instrument, c.Detector)] = c
	}
	return t, nil
}

// Default returns the embedded table
func Default() (*Table, error) { return Parse(embedded) }

// Load returns the embedded table with entries from overridePath replacing matching keys
// An empty path yields the embedded table
func Load(overridePath string) (*Table, error) {
	t, err := Default()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return t, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read instruments override %s: %w", overridePath, err)
	}
	o, err := Parse(data)
	if err != nil {
		return nil, perr.WithOp(err, overridePath)
	}
	return t.Merge(o), nil
}

// Merge returns a new table with o's entries layered over t's
func (t *Table) Merge(o *Table) *Table {
	out := &Table{byKey: make(map[string]Constants, len(t.byKey)+len(o.byKey))}
	for k, v := range t.byKey {
		out.byKey[k] = v
	}
	for k, v := range o.byKey {
		out.byKey[k] = v
	}
	return out
}

// Len returns the number of detectors
func (t *Table) Len() int { return len(t.byKey) }

// Lookup finds a detector, NotFound when it is not configured
func (t *Table) Lookup(observatory, instrument, detector string) (Constants, error) {
	c, ok := t.byKey[Key(observatory, instrument, detector)]
	if !ok {
		return Constants{}, perr.NotFoundf("no instrument constants for %s/%s/%s", observatory, instrument, detector)
	}
	return c, nil
}
