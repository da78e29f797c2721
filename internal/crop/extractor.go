// Package crop cuts every annotated region out of a source image and writes
// each one as its own file.
package crop

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/disc-splitter/internal/annotation"
	"github.com/ironsheep/disc-splitter/internal/imaging"
	"github.com/ironsheep/disc-splitter/internal/naming"
)

// Task is one planned crop: a region, the rectangle to cut and the file to
// write it to.
type Task struct {
	Index  int
	Region annotation.Region
	Rect   image.Rectangle
	Dest   string
}

// Outcome is the result of running one Task. Err is nil on success, a
// *WriteError when the crop failed, or the context error when the task was
// cancelled before it ran.
type Outcome struct {
	Task
	Err error
}

// Options configures an Extractor.
type Options struct {
	// OutputRoot receives one subdirectory per source image.
	OutputRoot string

	// Save selects the output encoding. An empty Format means JPEG.
	Save imaging.SaveOptions

	// Workers bounds concurrent crops within one image. Values below 1 mean
	// sequential.
	Workers int

	// Cache, when set, is used to decode source images. Extract leaves the
	// image cached; the owner of the cache evicts it.
	Cache *imaging.ImageCache

	Logger *slog.Logger

	// OnWrite is called after every crop attempt, successful or not. It may
	// be called from several goroutines.
	OnWrite func(Outcome)
}

// Extractor writes region crops for annotated images.
type Extractor struct {
	opts   Options
	format string
	logger *slog.Logger
}

// New returns an Extractor, rejecting unknown output formats.
func New(opts Options) (*Extractor, error) {
	format := imaging.FormatJPEG
	if opts.Save.Format != "" {
		f, ok := imaging.NormalizeFormat(opts.Save.Format)
		if !ok {
			return nil, fmt.Errorf("unsupported crop format: %q", opts.Save.Format)
		}
		format = f
	}
	opts.Save.Format = format
	if opts.Save.Quality <= 0 {
		opts.Save.Quality = 95
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		opts:   opts,
		format: format,
		logger: logger.With("component", "crop"),
	}, nil
}

// Dir returns the directory crops of imagePath are written to.
func (e *Extractor) Dir(imagePath string) string {
	return filepath.Join(e.opts.OutputRoot, naming.Stem(imagePath))
}

// Plan builds the crop tasks for rec's regions in their current order.
// Names are derived from the image stem, continuing a "name-(N)" sequence
// when the stem carries one.
func (e *Extractor) Plan(rec *annotation.Record, imagePath string) []Task {
	dir := e.Dir(imagePath)
	namer := naming.NewNamer(naming.Stem(imagePath), e.format)

	tasks := make([]Task, len(rec.Regions))
	for i, r := range rec.Regions {
		tasks[i] = Task{
			Index:  i,
			Region: r,
			Rect:   regionRect(r),
			Dest:   filepath.Join(dir, namer.Name(i)),
		}
	}
	return tasks
}

// regionRect keeps the corners as read. image.Rect would swap inverted
// corners and crop a different area; the literal stays empty instead.
func regionRect(r annotation.Region) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(r.XMin, r.YMin),
		Max: image.Pt(r.XMax(), r.YMax()),
	}
}

// Extract decodes imagePath and writes one file per region of rec.
//
// A decode failure returns a *LoadError and no outcomes. Otherwise every
// region gets an Outcome in sequence order; a failed region does not stop
// the others. The returned error is non-nil only for a load failure, a
// destination directory that cannot be created, or ctx cancellation.
func (e *Extractor) Extract(ctx context.Context, rec *annotation.Record, imagePath string) ([]Outcome, error) {
	img, err := e.load(imagePath)
	if err != nil {
		return nil, &LoadError{Path: imagePath, Err: err}
	}

	tasks := e.Plan(rec, imagePath)

	dir := e.Dir(imagePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: dir, Index: -1, Err: err}
	}

	outcomes := make([]Outcome, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Task: task, Err: err}
				return err
			}
			outcomes[i] = e.run(img, task)
			if e.opts.OnWrite != nil {
				e.opts.OnWrite(outcomes[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (e *Extractor) load(path string) (image.Image, error) {
	if e.opts.Cache != nil {
		return e.opts.Cache.Load(path)
	}
	return imaging.Open(path)
}

func (e *Extractor) run(img image.Image, task Task) Outcome {
	cropped, err := imaging.Crop(img, task.Rect)
	if err == nil {
		err = imaging.Save(cropped, task.Dest, e.opts.Save)
	}
	if err != nil {
		e.logger.Warn("crop failed",
			"dest", task.Dest,
			"region", task.Index,
			"error", err)
		return Outcome{Task: task, Err: &WriteError{Path: task.Dest, Index: task.Index, Err: err}}
	}

	e.logger.Debug("crop written",
		"dest", task.Dest,
		"region", task.Index,
		"label", task.Region.Label)
	return Outcome{Task: task}
}
