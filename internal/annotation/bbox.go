// Package annotation turns projected object corners into clipped image-space
// bounding boxes and persists them next to the captured frame.
package annotation

import (
	"math"

	"github.com/specialistvlad/scenegrid/internal/msgs"
)

// BBox is an image-space box in pixels, inclusive on both ends.
type BBox struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

// BoundingBox returns the smallest pixel box enclosing the finite points,
// clipped to [0, width-1]×[0, height-1]. It reports false when no point is
// finite or the box lies entirely outside the frame.
func BoundingBox(points []msgs.Point2, width, height int) (BBox, bool) {
	if width <= 0 || height <= 0 {
		return BBox{}, false
	}

	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		minU, maxU = math.Min(minU, p.U), math.Max(maxU, p.U)
		minV, maxV = math.Min(minV, p.V), math.Max(maxV, p.V)
	}
	if math.IsInf(minU, 1) {
		return BBox{}, false
	}

	if maxU < 0 || maxV < 0 || minU >= float64(width) || minV >= float64(height) {
		return BBox{}, false
	}

	xmin, xmax := math.Floor(minU), math.Ceil(maxU)
	ymin, ymax := math.Floor(minV), math.Ceil(maxV)
	w, h := float64(width-1), float64(height-1)

	return BBox{
		XMin: int(clamp(xmin, 0, w)),
		YMin: int(clamp(ymin, 0, h)),
		XMax: int(clamp(xmax, 0, w)),
		YMax: int(clamp(ymax, 0, h)),
	}, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
