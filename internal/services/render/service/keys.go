package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"helioserve/internal/services/render/domain"
)

// TileKey is the cache key for one tile of a catalogued image
func TileKey(sourceID int64, entryTime time.Time, zoom, x, y, size int) string {
	return fmt.Sprintf("tile/%d/%d/%d/%d_%d_%d.png", sourceID, entryTime.Unix(), zoom, x, y, size)
}

// CompositeKey hashes the canonical form of a normalized composite request and the images it resolved to
// layers are listed in merge order so requests that stack the same way share a key
// picks holds one entry per layer, a newly catalogued closer image yields a new key
func CompositeKey(req domain.CompositeRequest, picks []Pick) string {
	sigs := make([]string, 0, len(req.Layers))
	for _, i := range mergeOrder(req.Layers) {
		l := req.Layers[i]
		var at int64
		if i < len(picks) {
			at = picks[i].Entry.Timestamp.Unix()
		}
		sigs = append(sigs, fmt.Sprintf("%d@%s#%d", l.SourceID, ff(l.Opacity), at))
	}

	var b strings.Builder
	b.WriteString(strings.Join(sigs, ","))
	fmt.Fprintf(&b, "|roi=%s,%s,%s,%s|s=%s|wh=%dx%d|sh=%t",
		ff(req.ROI.X0), ff(req.ROI.Y0), ff(req.ROI.X1), ff(req.ROI.Y1),
		ff(req.Scale), req.Width, req.Height, req.Sharpen)

	sum := sha256.Sum256([]byte(b.String()))
	h := hex.EncodeToString(sum[:])
	return "composite/" + h[:2] + "/" + h + ".png"
}

func ff(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
