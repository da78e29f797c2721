package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/disc-splitter/internal/annotation"
	"github.com/ironsheep/disc-splitter/internal/crop"
	"github.com/ironsheep/disc-splitter/internal/naming"
	"github.com/ironsheep/disc-splitter/internal/ordering"
)

// CropDir crops the regions of every *.xml annotation in xmls out of the
// matching image in images, writing them under out/<image stem>/.
//
// Regions are cropped in the order the annotation lists them; run SortDir
// first, or use RunDir, to crop in reading order.
func (r *Runner) CropDir(ctx context.Context, images, xmls, out string) (*Report, error) {
	inputs, err := listFiles(xmls, ".xml")
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	return r.batch(ctx, CommandCrop, inputs, func(ctx context.Context, input string) Result {
		rec, err := annotation.ParseFile(input)
		if err != nil {
			return failed(input, err)
		}
		if len(rec.Regions) == 0 {
			return skipped(input, ordering.ErrEmptyAnnotation)
		}
		res := Result{Input: input, Status: StatusOK, Regions: len(rec.Regions)}
		imgPath, err := r.findImage(images, naming.Stem(input))
		if err != nil {
			return imageNotFound(input, images, err)
		}
		defer r.cache.Evict(imgPath)
		return r.cropRecord(ctx, rec, imgPath, out, res)
	})
}

// RunDir orders every annotation in xmls, writes it to out/xml and crops its
// regions into out/crop. With Options.Preview set it also writes the
// reading-order overlay to out/preview, from the same decoded image.
func (r *Runner) RunDir(ctx context.Context, images, xmls, out string) (*Report, error) {
	inputs, err := listFiles(xmls, ".xml")
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	xmlOut := filepath.Join(out, "xml")
	cropOut := filepath.Join(out, "crop")
	previewOut := filepath.Join(out, "preview")

	return r.batch(ctx, CommandRun, inputs, func(ctx context.Context, input string) Result {
		rec, plan, res, ok := r.loadSorted(input)
		if !ok {
			return res
		}

		path, err := annotation.WriteFile(rec, xmlOut, filepath.Base(input))
		if err != nil {
			return failed(input, err)
		}
		res.Annotation = path

		imgPath, err := r.findImage(images, naming.Stem(input))
		if err != nil {
			f := imageNotFound(input, images, err)
			f.Annotation = path
			return f
		}
		defer r.cache.Evict(imgPath)

		res = r.cropRecord(ctx, rec, imgPath, cropOut, res)
		if !r.opts.Preview || res.Status != StatusOK {
			return res
		}

		dest, err := r.writePreview(rec, plan, imgPath, previewOut)
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			res.Error = err.Error()
			return res
		}
		res.Preview = dest
		return res
	})
}

func imageNotFound(input, images string, err error) Result {
	return failed(input, &crop.LoadError{Path: filepath.Join(images, naming.Stem(input)), Err: err})
}

// cropRecord writes one crop per region of rec out of imgPath, filling in
// res. The decoded image stays in the runner cache for the caller to evict.
func (r *Runner) cropRecord(ctx context.Context, rec *annotation.Record, imgPath, out string, res Result) Result {
	input := res.Input
	res.Image = imgPath

	ex, err := crop.New(crop.Options{
		OutputRoot: out,
		Save:       r.opts.Save,
		Workers:    r.opts.CropWorkers,
		Cache:      r.cache,
		Logger:     r.logger,
		OnWrite: func(o crop.Outcome) {
			r.progress.Report(Event{
				Kind:   EventCropWritten,
				Input:  input,
				Output: o.Dest,
				Status: statusOf(o.Err),
				Region: o.Index,
				Err:    o.Err,
			})
		},
	})
	if err != nil {
		return failed(input, err)
	}

	outcomes, err := ex.Extract(ctx, rec, imgPath)
	if err != nil {
		f := failed(input, err)
		f.Image = imgPath
		f.Annotation = res.Annotation
		f.Regions = res.Regions
		return f
	}

	for _, o := range outcomes {
		if o.Err != nil {
			res.Failures = append(res.Failures, RegionFailure{Index: o.Index, Dest: o.Dest, Error: o.Err.Error()})
			continue
		}
		res.Outputs = append(res.Outputs, o.Dest)
	}

	if len(res.Outputs) == 0 && len(res.Failures) > 0 {
		res.Status = StatusFailed
		res.Err = outcomes[res.Failures[0].Index].Err
		res.Error = res.Err.Error()
	}
	return res
}

func statusOf(err error) Status {
	if err != nil {
		return StatusFailed
	}
	return StatusOK
}
