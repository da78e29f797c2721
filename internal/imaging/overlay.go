package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// OverlayBox is one rectangle to outline in a preview, drawn in slice order.
type OverlayBox struct {
	Rect image.Rectangle
}

// OverlayOptions controls Overlay.
type OverlayOptions struct {
	// DividingLine is the X coordinate of the partition line. A negative
	// value draws no line.
	DividingLine float64

	// FirstColor and LastColor are hex colors for the first and last box.
	// Boxes in between blend in HCL space.
	FirstColor string
	LastColor  string
}

// DefaultOverlayOptions returns a green-to-magenta gradient with no line.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		DividingLine: -1,
		FirstColor:   "#2ca02c",
		LastColor:    "#d62790",
	}
}

// Overlay draws numbered outlines of boxes over a copy of img.
//
// Box i is labelled with i and colored along the FirstColor..LastColor
// gradient, so the reading order can be checked at a glance. Stroke width and
// label size scale with the shorter image side.
func Overlay(img image.Image, boxes []OverlayBox, opts OverlayOptions) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	short := min(bounds.Dx(), bounds.Dy())
	stroke := int(math.Max(2, 0.004*float64(short)))
	scale := max(1, short/200)

	if opts.DividingLine >= 0 {
		x := bounds.Min.X + int(opts.DividingLine)
		lineColor := color.RGBA{0, 170, 255, 255}
		fillRect(result, image.Rect(x-stroke/2, bounds.Min.Y, x-stroke/2+stroke, bounds.Max.Y), lineColor)
	}

	palette := gradient(opts.FirstColor, opts.LastColor, len(boxes))
	labelBg := color.RGBA{0, 0, 0, 200}
	for i, b := range boxes {
		c := palette[i]
		r := b.Rect
		fillRect(result, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+stroke), c)
		fillRect(result, image.Rect(r.Min.X, r.Max.Y-stroke, r.Max.X, r.Max.Y), c)
		fillRect(result, image.Rect(r.Min.X, r.Min.Y, r.Min.X+stroke, r.Max.Y), c)
		fillRect(result, image.Rect(r.Max.X-stroke, r.Min.Y, r.Max.X, r.Max.Y), c)

		drawLabel(result, r.Min.X+stroke+scale, r.Min.Y+stroke+scale, strconv.Itoa(i), scale, c, labelBg)
	}

	return result
}

// gradient returns n colors blended from first to last in HCL space.
// Unparseable hex values fall back to the defaults.
func gradient(first, last string, n int) []color.RGBA {
	def := DefaultOverlayOptions()
	from, err := colorful.Hex(first)
	if err != nil {
		from, _ = colorful.Hex(def.FirstColor)
	}
	to, err := colorful.Hex(last)
	if err != nil {
		to, _ = colorful.Hex(def.LastColor)
	}

	out := make([]color.RGBA, n)
	for i := range out {
		c := from
		switch {
		case i == 0:
		case i == n-1:
			c = to
		default:
			c = from.BlendHcl(to, float64(i)/float64(n-1)).Clamped()
		}
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Over)
}

// drawLabel draws digits with a 3x5 pixel font, each font pixel scaled to a
// scale x scale block, on a background box.
func drawLabel(img *image.RGBA, x, y int, text string, scale int, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4 * scale
	labelWidth := len(text) * charWidth
	labelHeight := 7 * scale

	fillRect(img, image.Rect(x-scale, y-scale, x+labelWidth, y+labelHeight-scale), bg)

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				px, py := cx+col*scale, y+row*scale
				fillRect(img, image.Rect(px, py, px+scale, py+scale), fg)
			}
		}
		cx += charWidth
	}
}
