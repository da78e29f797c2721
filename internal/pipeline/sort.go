package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/disc-splitter/internal/annotation"
	"github.com/ironsheep/disc-splitter/internal/ordering"
)

// SortDir reorders every *.xml annotation in in and writes it under the same
// name to out. in and out may be the same directory.
//
// Annotations without regions are skipped. Malformed annotations fail.
func (r *Runner) SortDir(ctx context.Context, in, out string) (*Report, error) {
	inputs, err := listFiles(in, ".xml")
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	return r.batch(ctx, CommandSort, inputs, func(_ context.Context, input string) Result {
		rec, _, res, ok := r.loadSorted(input)
		if !ok {
			return res
		}

		path, err := annotation.WriteFile(rec, out, filepath.Base(input))
		if err != nil {
			return failed(input, err)
		}
		res.Annotation = path
		return res
	})
}

// loadSorted parses and orders one annotation. When ok is false the returned
// Result is the final outcome for input.
func (r *Runner) loadSorted(input string) (*annotation.Record, ordering.Plan, Result, bool) {
	rec, err := annotation.ParseFile(input)
	if err != nil {
		return nil, ordering.Plan{}, failed(input, err), false
	}

	plan, err := ordering.Order(rec)
	if errors.Is(err, ordering.ErrEmptyAnnotation) {
		return nil, plan, skipped(input, err), false
	}
	if err != nil {
		return nil, plan, failed(input, err), false
	}

	r.logger.Debug("annotation ordered",
		"input", input,
		"regions", len(rec.Regions),
		"center_x", plan.CenterX,
		"center_y", plan.CenterY,
		"dividing_line", plan.DividingLine)

	return rec, plan, Result{Input: input, Status: StatusOK, Regions: len(rec.Regions)}, true
}
