// Package colortable maps single channel intensity rasters to RGB through 256-entry palettes
package colortable

import (
	"embed"
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"helioserve/internal/core/instruments"
	perr "helioserve/internal/platform/errors"

	"github.com/jszwec/csvutil"
)

//go:embed tables/*.csv
var embedded embed.FS

type row struct {
	Index int   `csv:"index"`
	Red   uint8 `csv:"red"`
	Green uint8 `csv:"green"`
	Blue  uint8 `csv:"blue"`
}

// Palette is a 256-entry intensity to colour table
type Palette struct {
	Name string
	lut  [256]color.RGBA
}

// At returns the colour for an intensity
func (p *Palette) At(v uint8) color.RGBA { return p.lut[v] }

// Apply maps every gray pixel through the palette into an opaque RGBA image anchored at 0,0
func (p *Palette) Apply(g *image.Gray) *image.RGBA {
	b := g.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		src := g.Pix[off : off+b.Dx()]
		dst := out.Pix[y*out.Stride:]
		for x, v := range src {
			c := p.lut[v]
			i := x * 4
			dst[i], dst[i+1], dst[i+2], dst[i+3] = c.R, c.G, c.B, 255
		}
	}
	return out
}

// Parse reads an index,red,green,blue CSV, every index 0..255 must appear exactly once
func Parse(name string, r io.Reader) (*Palette, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "color table %s: header", name)
	}
	var rows []row
	if err := dec.Decode(&rows); err != nil && err != io.EOF {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "color table %s: decode", name)
	}

	p := &Palette{Name: name}
	var seen [256]bool
	for _, r := range rows {
		if r.Index < 0 || r.Index > 255 {
			return nil, perr.InvalidArgf("color table %s: index %d out of range", name, r.Index)
		}
		if seen[r.Index] {
			return nil, perr.InvalidArgf("color table %s: duplicate index %d", name, r.Index)
		}
		seen[r.Index] = true
		p.lut[r.Index] = color.RGBA{R: r.Red, G: r.Green, B: r.Blue, A: 255}
	}
	if len(rows) != 256 {
		return nil, perr.InvalidArgf("color table %s: want 256 entries, got %d", name, len(rows))
	}
	return p, nil
}

// Store is a read-only set of palettes keyed by folded name
type Store struct {
	byName map[string]*Palette
}

// New loads the embedded palettes, then every *.csv in extraDir (which may replace them)
func New(extraDir string) (*Store, error) {
	s := &Store{byName: map[string]*Palette{}}
	if err := s.loadFS(embedded, "tables"); err != nil {
		return nil, err
	}
	if extraDir != "" {
		if _, err := os.Stat(extraDir); err != nil {
			return nil, fmt.Errorf("color table dir: %w", err)
		}
		if err := s.loadFS(os.DirFS(extraDir), "."); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		f, err := fsys.Open(path.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		p, err := Parse(name, f)
		f.Close()
		if err != nil {
			return err
		}
		s.byName[instruments.Fold(name)] = p
	}
	return nil
}

// Len returns how many palettes are loaded
func (s *Store) Len() int { return len(s.byName) }

// ByName returns a palette by its file stem
func (s *Store) ByName(name string) (*Palette, bool) {
	if name == "" {
		return nil, false
	}
	p, ok := s.byName[instruments.Fold(name)]
	return p, ok
}

// Lookup guesses a palette from the layer names, most specific first:
// instrument-detector-measurement, instrument-measurement, detector-measurement, instrument-detector
func (s *Store) Lookup(instrument, detector, measurement string) (*Palette, bool) {
	for _, parts := range [][]string{
		{instrument, detector, measurement},
		{instrument, measurement},
		{detector, measurement},
		{instrument, detector},
	} {
		if p, ok := s.ByName(join(parts)); ok {
			return p, true
		}
	}
	return nil, false
}

func join(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) < 2 {
		return ""
	}
	return strings.Join(out, "-")
}
