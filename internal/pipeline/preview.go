package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ironsheep/disc-splitter/internal/annotation"
	"github.com/ironsheep/disc-splitter/internal/crop"
	"github.com/ironsheep/disc-splitter/internal/imaging"
	"github.com/ironsheep/disc-splitter/internal/naming"
	"github.com/ironsheep/disc-splitter/internal/ordering"
)

// PreviewDir orders every annotation in xmls and writes out/<stem>.png: the
// matching image with each region outlined and numbered in reading order,
// plus the dividing line.
func (r *Runner) PreviewDir(ctx context.Context, images, xmls, out string) (*Report, error) {
	inputs, err := listFiles(xmls, ".xml")
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	return r.batch(ctx, CommandPreview, inputs, func(_ context.Context, input string) Result {
		rec, plan, res, ok := r.loadSorted(input)
		if !ok {
			return res
		}

		imgPath, err := r.findImage(images, naming.Stem(input))
		if err != nil {
			return imageNotFound(input, images, err)
		}
		res.Image = imgPath
		defer r.cache.Evict(imgPath)

		dest, err := r.writePreview(rec, plan, imgPath, out)
		if err != nil {
			return failed(input, err)
		}

		res.Outputs = []string{dest}
		return res
	})
}

// writePreview draws rec's regions in their current order over imgPath,
// plus the dividing line of plan, and saves out/<image stem>.png. The image
// is decoded through the runner cache.
func (r *Runner) writePreview(rec *annotation.Record, plan ordering.Plan, imgPath, out string) (string, error) {
	img, err := r.cache.Load(imgPath)
	if err != nil {
		return "", &crop.LoadError{Path: imgPath, Err: err}
	}

	boxes := make([]imaging.OverlayBox, len(rec.Regions))
	for i, reg := range rec.Regions {
		boxes[i] = imaging.OverlayBox{Rect: image.Rect(reg.XMin, reg.YMin, reg.XMax(), reg.YMax())}
	}

	opts := r.opts.Overlay
	opts.DividingLine = plan.DividingLine

	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}
	dest := filepath.Join(out, naming.Stem(imgPath)+".png")
	if err := imaging.Save(imaging.Overlay(img, boxes, opts), dest, imaging.SaveOptions{Format: imaging.FormatPNG}); err != nil {
		return "", err
	}
	return dest, nil
}
