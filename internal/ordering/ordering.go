// Package ordering imposes a reading order on the regions of one record.
//
// Regions are split into two columns by a vertical dividing line derived from
// the mean of their centers, then read top to bottom, left column first. A
// small, tightly stacked group skips the split and is read top to bottom
// only.
//
// Centers are integers (floor division, see annotation.NewRegion) while the
// mean, the dividing line, distances and half-widths are float64. Both kinds
// of arithmetic are deliberate and must stay as they are.
package ordering

import (
	"errors"
	"math"
	"sort"

	"github.com/ironsheep/disc-splitter/internal/annotation"
)

// ErrEmptyAnnotation is returned when a record has no regions to center on.
var ErrEmptyAnnotation = errors.New("annotation has no regions")

// clusterMax is the largest region count eligible for the stacked shortcut.
const clusterMax = 3

// GeometricCenter returns the mean of all region centers.
func GeometricCenter(regions []annotation.Region) (x, y float64, err error) {
	if len(regions) == 0 {
		return 0, 0, ErrEmptyAnnotation
	}

	var sumX, sumY int
	for _, r := range regions {
		sumX += r.CenterX
		sumY += r.CenterY
	}
	n := float64(len(regions))
	return float64(sumX) / n, float64(sumY) / n, nil
}

// DividingLine places the partition line at meanX, reflected into the left
// half of the image when meanX lies right of center.
//
// The reflected value is compared against raw center X coordinates by
// Sequence, so when the mean is on the right half the "left" group is not
// the left side of the image.
func DividingLine(meanX float64, width int) float64 {
	line := meanX
	if line > float64(width)/2 {
		line = float64(width) - line
	}
	return line
}

// Sequence returns regions in reading order. The input slice is not
// modified.
//
// With three or fewer regions all lying closer to the line than the
// smallest region's half-width, regions are ordered by center Y only.
// Otherwise regions with CenterX < line come first, then the rest, each
// group ordered by center Y. Sorting is stable so regions sharing a center Y
// keep their source order.
//
// width is unused by the rule; it is accepted alongside the line it was
// derived from.
func Sequence(regions []annotation.Region, line float64, width int) []annotation.Region {
	if len(regions) > 0 && len(regions) <= clusterMax && stacked(regions, line) {
		return byCenterY(regions)
	}

	var left, right []annotation.Region
	for _, r := range regions {
		if float64(r.CenterX) < line {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	if len(left) == 0 {
		return byCenterY(right)
	}
	if len(right) == 0 {
		return byCenterY(left)
	}
	return append(byCenterY(left), byCenterY(right)...)
}

// stacked reports whether every center lies strictly within the smallest
// half-width of the line.
func stacked(regions []annotation.Region, line float64) bool {
	minRadius := math.Inf(1)
	for _, r := range regions {
		minRadius = math.Min(minRadius, float64(r.Width)/2)
	}
	for _, r := range regions {
		if math.Abs(float64(r.CenterX)-line) >= minRadius {
			return false
		}
	}
	return true
}

func byCenterY(regions []annotation.Region) []annotation.Region {
	out := make([]annotation.Region, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CenterY < out[j].CenterY
	})
	return out
}

// Plan holds the intermediate values of one ordering pass.
type Plan struct {
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	DividingLine float64 `json:"dividing_line"`
}

// Order sequences rec.Regions in place and returns the values it used.
// It fails with ErrEmptyAnnotation when the record has no regions.
func Order(rec *annotation.Record) (Plan, error) {
	cx, cy, err := GeometricCenter(rec.Regions)
	if err != nil {
		return Plan{}, err
	}
	line := DividingLine(cx, rec.Width)
	rec.Regions = Sequence(rec.Regions, line, rec.Width)
	return Plan{CenterX: cx, CenterY: cy, DividingLine: line}, nil
}
