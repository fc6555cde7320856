package service

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	perr "helioserve/internal/platform/errors"
	ptime "helioserve/internal/platform/time"
	"helioserve/internal/services/catalog/domain"

	"github.com/jszwec/csvutil"
)

// ReadManifest decodes a CSV manifest
// relative file paths are resolved against baseDir when it is set
func ReadManifest(r io.Reader, baseDir string) ([]domain.ManifestRow, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "manifest header")
	}
	var rows []domain.ManifestRow
	if err := dec.Decode(&rows); err != nil && err != io.EOF {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode manifest")
	}
	if baseDir != "" {
		for i := range rows {
			if p := rows[i].FilePath; p != "" && !filepath.IsAbs(p) {
				rows[i].FilePath = filepath.Join(baseDir, p)
			}
		}
	}
	return rows, nil
}

// ReadManifestFile opens path and resolves file paths relative to its directory
func ReadManifestFile(path string) ([]domain.ManifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open manifest %s", path)
	}
	defer f.Close()
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return ReadManifest(f, abs)
}

func toEntry(r domain.ManifestRow) (domain.Entry, error) {
	if strings.TrimSpace(r.Observatory) == "" || strings.TrimSpace(r.Instrument) == "" ||
		strings.TrimSpace(r.Detector) == "" || strings.TrimSpace(r.Measurement) == "" {
		return domain.Entry{}, perr.InvalidArgf("observatory, instrument, detector and measurement are required")
	}
	ts, err := ptime.ParseObservation(r.Date)
	if err != nil {
		return domain.Entry{}, perr.WithField(err, "date")
	}
	switch {
	case r.FilePath == "":
		return domain.Entry{}, perr.WithField(perr.InvalidArgf("filepath is required"), "filepath")
	case r.Width <= 0 || r.Height <= 0:
		return domain.Entry{}, perr.WithField(perr.InvalidArgf("width and height must be positive"), "width")
	case r.Scale <= 0:
		return domain.Entry{}, perr.WithField(perr.InvalidArgf("scale must be positive"), "scale")
	}
	return domain.Entry{
		Timestamp: ts,
		FilePath:  r.FilePath,
		Width:     r.Width,
		Height:    r.Height,
		Scale:     r.Scale,
		RefX:      r.RefX,
		RefY:      r.RefY,
	}, nil
}
