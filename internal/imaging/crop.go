package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when a crop rectangle has no area.
var ErrEmptyCrop = errors.New("crop region is empty")

// Crop extracts rect from img as a rect.Dx() x rect.Dy() image.
//
// The result always has the full size of rect. Pixels of rect that fall
// outside the image are opaque black, so a region running past an edge keeps
// its size and a region entirely off the image comes out black. A rectangle
// with zero or negative width or height fails with ErrEmptyCrop.
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrEmptyCrop,
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y)
	}

	clipped := rect.Intersect(img.Bounds())
	if clipped == rect {
		return imaging.Crop(img, rect), nil
	}

	dst := imaging.New(rect.Dx(), rect.Dy(), color.NRGBA{A: 255})
	if clipped.Empty() {
		return dst, nil
	}
	return imaging.Paste(dst, imaging.Crop(img, clipped), clipped.Min.Sub(rect.Min)), nil
}

// Output formats accepted by Save.
const (
	FormatJPEG = "jpg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// NormalizeFormat maps a user-supplied format name to one of the Format
// constants, reporting false for unknown names.
func NormalizeFormat(format string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	}
	return "", false
}

// SaveOptions controls encoding in Save.
type SaveOptions struct {
	// Format is one of FormatJPEG, FormatPNG or FormatWebP.
	Format string

	// Quality applies to JPEG and lossy WebP (1-100).
	Quality int

	// Lossless selects lossless WebP.
	Lossless bool
}

// Save encodes img to path in the requested format.
func Save(img image.Image, path string, opts SaveOptions) error {
	format, ok := NormalizeFormat(opts.Format)
	if !ok {
		return fmt.Errorf("unsupported output format: %q", opts.Format)
	}

	switch format {
	case FormatWebP:
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		webpOpts := &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.Quality)}
		if err := webp.Encode(f, img, webpOpts); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to close output file: %w", err)
		}
		return nil
	case FormatPNG:
		if err := imaging.Save(img, path); err != nil {
			return fmt.Errorf("failed to save png: %w", err)
		}
		return nil
	default:
		if err := imaging.Save(img, path, imaging.JPEGQuality(opts.Quality)); err != nil {
			return fmt.Errorf("failed to save jpeg: %w", err)
		}
		return nil
	}
}
