package annotation

import "fmt"

// Region is one detected rectangular area.
//
// Build regions with NewRegion so the size and center stay consistent with
// the corners they were read from.
type Region struct {
	Label string `json:"label"`

	XMin int `json:"xmin"`
	YMin int `json:"ymin"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// CenterX and CenterY are origin + floor(size/2).
	CenterX int `json:"center_x"`
	CenterY int `json:"center_y"`

	// Confidence is the detector score as it appeared in the source text.
	// Empty when the source did not carry one.
	Confidence string `json:"confidence,omitempty"`
}

// NewRegion derives a Region from a label and rectangle corners.
func NewRegion(label string, xmin, ymin, xmax, ymax int) Region {
	w := xmax - xmin
	h := ymax - ymin
	return Region{
		Label:   label,
		XMin:    xmin,
		YMin:    ymin,
		Width:   w,
		Height:  h,
		CenterX: xmin + floorDiv(w, 2),
		CenterY: ymin + floorDiv(h, 2),
	}
}

// XMax returns the right edge recomputed from origin and width.
func (r Region) XMax() int { return r.XMin + r.Width }

// YMax returns the bottom edge recomputed from origin and height.
func (r Region) YMax() int { return r.YMin + r.Height }

func (r Region) String() string {
	return fmt.Sprintf("%s(%d,%d)-(%d,%d)", r.Label, r.XMin, r.YMin, r.XMax(), r.YMax())
}

// floorDiv divides rounding toward negative infinity, unlike Go's / which
// truncates toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Record is one parsed annotation file.
type Record struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Depth is the channel count from size/depth, or 0 when absent.
	Depth int `json:"depth,omitempty"`

	Regions []Region `json:"regions"`

	// tree is the source document, kept so a rewrite preserves everything
	// that is not an object. Nil for records built in memory.
	tree *vocTree
}

// NewRecord creates an in-memory record with no source document.
func NewRecord(width, height int, regions []Region) *Record {
	return &Record{
		Width:   width,
		Height:  height,
		Regions: regions,
	}
}
