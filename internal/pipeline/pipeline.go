// Package pipeline runs the annotation and crop stages over directories of
// files.
//
// Every driver lists its inputs non-recursively in name order, processes
// them independently and returns a Report with one Result per input in that
// same order. A failing file never stops the batch. The returned error is
// reserved for problems with the batch itself: an unreadable input
// directory, invalid options, or a cancelled context.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/disc-splitter/internal/crop"
	"github.com/ironsheep/disc-splitter/internal/detection"
	"github.com/ironsheep/disc-splitter/internal/imaging"
)

// Batch command names, as used in reports.
const (
	CommandSort    = "sort"
	CommandCrop    = "crop"
	CommandRun     = "run"
	CommandDetect  = "detect"
	CommandConvert = "convert"
	CommandPreview = "preview"
)

// DefaultImageExts is the image lookup order used when Options.ImageExts is
// empty.
var DefaultImageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// Options configures a Runner.
type Options struct {
	// Workers is the number of files processed at once. Values below 1 mean
	// sequential.
	Workers int

	// ImageExts lists the extensions tried, in order, when looking up the
	// image that belongs to an annotation.
	ImageExts []string

	// Save selects the crop encoding.
	Save imaging.SaveOptions

	// CropWorkers bounds concurrent crops within one image.
	CropWorkers int

	// Preview makes RunDir also write the reading-order overlay of every
	// cropped image.
	Preview bool

	Detect  detection.Options
	Overlay imaging.OverlayOptions

	Logger   *slog.Logger
	Progress Progress
}

// Runner executes batch commands.
type Runner struct {
	opts     Options
	logger   *slog.Logger
	progress Progress
	cache    *imaging.ImageCache
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if _, err := crop.New(crop.Options{Save: opts.Save}); err != nil {
		return nil, err
	}
	if len(opts.ImageExts) == 0 {
		opts.ImageExts = DefaultImageExts
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Overlay.FirstColor == "" && opts.Overlay.LastColor == "" {
		opts.Overlay = imaging.DefaultOverlayOptions()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	return &Runner{
		opts:     opts,
		logger:   logger.With("component", "pipeline"),
		progress: progress,
		cache:    imaging.NewImageCache(),
	}, nil
}

type fileFunc func(ctx context.Context, input string) Result

// batch runs fn over inputs with at most Workers in flight. Once ctx is
// cancelled no new file is started; unstarted files are reported as skipped
// and the context error is returned with the report.
func (r *Runner) batch(ctx context.Context, command string, inputs []string, fn fileFunc) (*Report, error) {
	started := time.Now()
	results := make([]Result, len(inputs))

	r.logger.Info("batch started",
		"command", command,
		"files", len(inputs),
		"workers", r.opts.Workers)

	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	var cancelErr error
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			results[i] = skipped(input, err)
			continue
		}
		g.Go(func() error {
			res := fn(ctx, input)
			results[i] = res

			output := res.Annotation
			if output == "" && len(res.Outputs) > 0 {
				output = res.Outputs[0]
			}
			r.progress.Report(Event{
				Kind:   EventFileDone,
				Input:  input,
				Output: output,
				Status: res.Status,
				Region: -1,
				Done:   int(done.Add(1)),
				Total:  len(inputs),
				Err:    res.Err,
			})
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(command, started, results)
	r.logger.Info("batch finished",
		"command", command,
		"run_id", report.RunID,
		"ok", report.OK,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsed", report.Finished.Sub(started))

	if cancelErr != nil {
		return report, cancelErr
	}
	return report, nil
}

// listFiles returns the regular files in dir whose extension matches one of
// exts, case-insensitively, sorted by name.
func listFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return files, nil
}

// findImage returns the first existing dir/stem+ext over the configured
// extensions.
func (r *Runner) findImage(dir, stem string) (string, error) {
	for _, ext := range r.opts.ImageExts {
		for _, candidate := range []string{ext, strings.ToUpper(ext)} {
			path := filepath.Join(dir, stem+candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("no image named %s%v: %w", stem, r.opts.ImageExts, os.ErrNotExist)
}
