package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/disc-splitter/internal/annotation"
	"github.com/ironsheep/disc-splitter/internal/crop"
	"github.com/ironsheep/disc-splitter/internal/detection"
	"github.com/ironsheep/disc-splitter/internal/imaging"
	"github.com/ironsheep/disc-splitter/internal/naming"
)

// DetectDir runs the circle detector over every image in images and writes
// out/<stem>.xml for each. Images without discs still get an annotation
// with no objects.
func (r *Runner) DetectDir(ctx context.Context, images, out string) (*Report, error) {
	detectOpts := r.opts.Detect
	if detectOpts.Logger == nil {
		detectOpts.Logger = r.logger
	}
	detector, err := detection.NewCircleDetector(detectOpts)
	if err != nil {
		return nil, fmt.Errorf("invalid detection options: %w", err)
	}

	inputs, err := listFiles(images, r.opts.ImageExts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return r.batch(ctx, CommandDetect, inputs, func(_ context.Context, input string) Result {
		img, err := imaging.Open(input)
		if err != nil {
			return failed(input, &crop.LoadError{Path: input, Err: err})
		}

		rec, err := detector.Detect(img)
		if err != nil {
			return failed(input, err)
		}

		path, err := annotation.WriteFile(rec, out, naming.Stem(input)+".xml")
		if err != nil {
			return failed(input, err)
		}
		return Result{
			Input:      input,
			Image:      input,
			Status:     StatusOK,
			Regions:    len(rec.Regions),
			Annotation: path,
		}
	})
}

// ConvertDir turns every detector text file (*.txt) in txts into a VOC
// annotation at out/<stem>.xml. The image size is read from the matching
// image in images.
func (r *Runner) ConvertDir(ctx context.Context, txts, images, out string) (*Report, error) {
	inputs, err := listFiles(txts, ".txt")
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}

	return r.batch(ctx, CommandConvert, inputs, func(_ context.Context, input string) Result {
		stem := naming.Stem(input)
		imgPath, err := r.findImage(images, stem)
		if err != nil {
			return failed(input, &crop.LoadError{Path: filepath.Join(images, stem), Err: err})
		}
		width, height, err := imaging.Dimensions(imgPath)
		if err != nil {
			return failed(input, &crop.LoadError{Path: imgPath, Err: err})
		}

		f, err := os.Open(input)
		if err != nil {
			return failed(input, fmt.Errorf("failed to open detections: %w", err))
		}
		rec, err := annotation.ParseDetections(f, width, height)
		f.Close()
		if err != nil {
			return failed(input, err)
		}

		path, err := annotation.WriteFile(rec, out, stem+".xml")
		if err != nil {
			return failed(input, err)
		}
		return Result{
			Input:      input,
			Image:      imgPath,
			Status:     StatusOK,
			Regions:    len(rec.Regions),
			Annotation: path,
		}
	})
}
