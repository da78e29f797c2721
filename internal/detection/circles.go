package detection

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/disc-splitter/internal/annotation"
)

// Options configures a CircleDetector. Radii are in source image pixels.
type Options struct {
	MinRadius int
	MaxRadius int

	// MaxSide is the longest side the image is reduced to before voting.
	// Zero disables downscaling.
	MaxSide int

	// Threshold is the Sobel magnitude (0-255) at which a pixel counts as an
	// edge.
	Threshold uint8

	// BlurRadius is the Gaussian blur radius applied before edge detection.
	// Zero disables blurring.
	BlurRadius float64

	// MinVotes is the fraction (0-1] of a circle's samples that must agree
	// for a center to be accepted.
	MinVotes float64

	// Label is the class name given to each detected region.
	Label string

	Logger *slog.Logger
}

// DefaultOptions returns settings suited to trays shot at a few megapixels.
func DefaultOptions() Options {
	return Options{
		MinRadius:  40,
		MaxRadius:  400,
		MaxSide:    512,
		Threshold:  128,
		BlurRadius: 2,
		MinVotes:   0.5,
		Label:      "disc",
	}
}

// Circle is a detected disc in source image coordinates.
type Circle struct {
	Center image.Point `json:"center"`
	Radius int         `json:"radius"`

	// Confidence is the fraction of samples that voted for this center,
	// capped at 1.0.
	Confidence float64 `json:"confidence"`

	score float64
}

// Bounds returns the bounding square of c.
func (c Circle) Bounds() image.Rectangle {
	return image.Rect(c.Center.X-c.Radius, c.Center.Y-c.Radius, c.Center.X+c.Radius, c.Center.Y+c.Radius)
}

// CircleDetector finds discs using edge detection and a Hough transform.
type CircleDetector struct {
	opts   Options
	logger *slog.Logger
}

// NewCircleDetector validates opts and returns a detector.
func NewCircleDetector(opts Options) (*CircleDetector, error) {
	if opts.MinRadius < 1 {
		return nil, fmt.Errorf("min radius must be at least 1, got %d", opts.MinRadius)
	}
	if opts.MaxRadius < opts.MinRadius {
		return nil, fmt.Errorf("max radius %d is below min radius %d", opts.MaxRadius, opts.MinRadius)
	}
	if opts.MinVotes <= 0 || opts.MinVotes > 1 {
		return nil, fmt.Errorf("min votes must be in (0, 1], got %g", opts.MinVotes)
	}
	if opts.Label == "" {
		opts.Label = "disc"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CircleDetector{opts: opts, logger: logger.With("component", "detection")}, nil
}

// Detect finds discs in img and returns them as an annotation record sized
// to img. An image without discs yields a record with no regions.
func (d *CircleDetector) Detect(img image.Image) (*annotation.Record, error) {
	bounds := img.Bounds()
	circles := d.Circles(img)

	regions := make([]annotation.Region, 0, len(circles))
	for _, c := range circles {
		r := c.Bounds().Intersect(bounds)
		if r.Empty() {
			continue
		}
		region := annotation.NewRegion(d.opts.Label,
			r.Min.X-bounds.Min.X, r.Min.Y-bounds.Min.Y,
			r.Max.X-bounds.Min.X, r.Max.Y-bounds.Min.Y)
		region.Confidence = fmt.Sprintf("%.2f", c.Confidence)
		regions = append(regions, region)
	}

	rec := annotation.NewRecord(bounds.Dx(), bounds.Dy(), regions)
	rec.Depth = 3
	return rec, nil
}

// Circles returns the discs found in img, strongest first.
//
// # Algorithm (Hough Circle Transform)
//
// For each radius, every edge pixel votes for the centers that would put it
// on a circle of that radius. A circle is sampled at about one point per
// pixel of circumference (at least 36). Votes are summed over a 3x3 window
// to tolerate edges a pixel or two thick, and a center is accepted when it
// is a local maximum whose sum reaches MinVotes of the sample count.
func (d *CircleDetector) Circles(img image.Image) []Circle {
	work, scale := d.downscale(img)
	edges := d.edgeMap(work)

	wb := work.Bounds()
	width, height := wb.Dx(), wb.Dy()

	minR := max(1, int(math.Round(float64(d.opts.MinRadius)/scale)))
	maxR := max(minR, int(math.Round(float64(d.opts.MaxRadius)/scale)))

	points := make([]image.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y*width+x] {
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}
	if len(points) == 0 {
		return nil
	}

	accumulator := make([]int, width*height)
	summed := make([]int, width*height)
	circles := make([]Circle, 0)

	for radius := minR; radius <= maxR; radius++ {
		if 2*radius >= width || 2*radius >= height {
			break
		}
		clear(accumulator)

		samples := max(36, min(720, int(math.Round(2*math.Pi*float64(radius)))))
		offsets := circleOffsets(radius, samples)

		for _, p := range points {
			for _, o := range offsets {
				cx, cy := p.X-o.X, p.Y-o.Y
				if cx >= 0 && cx < width && cy >= 0 && cy < height {
					accumulator[cy*width+cx]++
				}
			}
		}

		boxSum(accumulator, summed, width, height)

		threshold := int(math.Ceil(float64(samples) * d.opts.MinVotes))
		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				v := summed[y*width+x]
				if v < threshold || !localMax(summed, width, height, x, y, 5) {
					continue
				}
				circles = append(circles, Circle{
					Center: image.Point{
						X: wb.Min.X + int(math.Round(float64(x)*scale)),
						Y: wb.Min.Y + int(math.Round(float64(y)*scale)),
					},
					Radius:     int(math.Round(float64(radius) * scale)),
					Confidence: math.Min(float64(v)/float64(samples), 1.0),
					score:      float64(v) / float64(samples),
				})
			}
		}
	}

	// Strongest first so duplicate removal keeps the best fit.
	sort.SliceStable(circles, func(i, j int) bool {
		return circles[i].score > circles[j].score
	})
	filtered := filterDuplicateCircles(circles)

	d.logger.Debug("circle detection finished",
		"edge_pixels", len(points),
		"candidates", len(circles),
		"circles", len(filtered),
		"scale", scale)

	return filtered
}

// downscale shrinks img so its longer side is at most MaxSide and returns
// the factor to map working coordinates back to source coordinates.
func (d *CircleDetector) downscale(img image.Image) (image.Image, float64) {
	b := img.Bounds()
	long := max(b.Dx(), b.Dy())
	if d.opts.MaxSide <= 0 || long <= d.opts.MaxSide {
		return img, 1
	}
	small := imaging.Fit(img, d.opts.MaxSide, d.opts.MaxSide, imaging.Linear)
	return small, float64(long) / float64(max(small.Bounds().Dx(), small.Bounds().Dy()))
}

// edgeMap returns a row-major binary edge mask of img.
func (d *CircleDetector) edgeMap(img image.Image) []bool {
	var src image.Image = effect.Grayscale(img)
	if d.opts.BlurRadius > 0 {
		src = blur.Gaussian(src, d.opts.BlurRadius)
	}
	bin := segment.Threshold(effect.Sobel(src), d.opts.Threshold)

	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	edges := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			edges[y*width+x] = bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
		}
	}
	return edges
}

// circleOffsets returns the distinct integer offsets of n points evenly
// spaced on a circle of radius r.
func circleOffsets(r, n int) []image.Point {
	seen := make(map[image.Point]struct{}, n)
	out := make([]image.Point, 0, n)
	for k := 0; k < n; k++ {
		rad := 2 * math.Pi * float64(k) / float64(n)
		p := image.Point{
			X: int(math.Round(float64(r) * math.Cos(rad))),
			Y: int(math.Round(float64(r) * math.Sin(rad))),
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// boxSum writes the 3x3 neighborhood sum of src into dst.
func boxSum(src, dst []int, width, height int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s := 0
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx >= 0 && nx < width {
						s += src[ny*width+nx]
					}
				}
			}
			dst[y*width+x] = s
		}
	}
}

// localMax reports whether no value within window of (x, y) is greater.
func localMax(acc []int, width, height, x, y, window int) bool {
	v := acc[y*width+x]
	for dy := -window; dy <= window; dy++ {
		for dx := -window; dx <= window; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny >= 0 && ny < height && nx >= 0 && nx < width && acc[ny*width+nx] > v {
				return false
			}
		}
	}
	return true
}

// filterDuplicateCircles removes circles with overlapping centers.
//
// Two circles are considered duplicates if the distance between their centers
// is less than the average of their radii. In such cases, only the first
// circle is kept.
func filterDuplicateCircles(circles []Circle) []Circle {
	if len(circles) == 0 {
		return circles
	}

	filtered := make([]Circle, 0)
	for _, c := range circles {
		isDuplicate := false
		for _, f := range filtered {
			dx := c.Center.X - f.Center.X
			dy := c.Center.Y - f.Center.Y
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist < float64(c.Radius+f.Radius)/2 {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
