package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/disc-splitter/internal/config"
	"github.com/ironsheep/disc-splitter/internal/detection"
	"github.com/ironsheep/disc-splitter/internal/imaging"
	"github.com/ironsheep/disc-splitter/internal/logging"
	"github.com/ironsheep/disc-splitter/internal/pipeline"
)

// skipConfig marks commands that run without loading settings.
const skipConfig = "skip-config"

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"workers":      "workers",
	"format":       "crop.format",
	"quality":      "crop.quality",
	"crop-workers": "crop.workers",
	"lossless":     "crop.lossless",
	"preview":      "crop.preview",
	"image-exts":   "input.image_exts",
	"min-radius":   "detect.min_radius",
	"max-radius":   "detect.max_radius",
	"max-side":     "detect.max_side",
	"threshold":    "detect.threshold",
	"label":        "detect.label",
}

// app holds state shared by all subcommands for one invocation.
type app struct {
	configFile string
	reportPath string
	strict     bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "disc-splitter",
		Short: "Order disc specimen annotations and crop each disc into its own image",
		Long: `disc-splitter reads Pascal VOC annotations of disc-shaped specimens
photographed together, rewrites each annotation in reading order (left
column top to bottom, then right column) and crops every region into its
own numbered image.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./disc-splitter.yaml, then ~/.config/disc-splitter/)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json")
	pf.IntP("workers", "w", 0, "files processed in parallel")
	pf.StringSlice("image-exts", nil, "image extensions tried in order, e.g. .jpg,.png")
	pf.StringVar(&a.reportPath, "report", "", "write a JSON batch report to this file")
	pf.BoolVar(&a.strict, "strict", false, "exit non-zero when any file or crop failed")

	root.AddCommand(
		a.sortCommand(),
		a.cropCommand(),
		a.runCommand(),
		a.detectCommand(),
		a.convertCommand(),
		a.previewCommand(),
		configCommand(),
		versionCommand(),
	)
	return root
}

// setup loads settings and configures logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger.Debug("disc-splitter starting",
		"version", Version,
		"build_time", BuildTime,
		"commit", GitCommit,
		"config_file", v.ConfigFileUsed())

	a.v, a.cfg, a.logger = v, cfg, logger
	return nil
}

func (a *app) runner() (*pipeline.Runner, error) {
	c := a.cfg
	return pipeline.New(pipeline.Options{
		Workers:   c.Workers,
		ImageExts: c.Input.ImageExts,
		Save: imaging.SaveOptions{
			Format:   c.Crop.Format,
			Quality:  c.Crop.Quality,
			Lossless: c.Crop.Lossless,
		},
		CropWorkers: c.Crop.Workers,
		Preview:     c.Crop.Preview,
		Detect: detection.Options{
			MinRadius:  c.Detect.MinRadius,
			MaxRadius:  c.Detect.MaxRadius,
			MaxSide:    c.Detect.MaxSide,
			Threshold:  uint8(c.Detect.Threshold),
			BlurRadius: c.Detect.BlurRadius,
			MinVotes:   c.Detect.MinVotes,
			Label:      c.Detect.Label,
		},
		Logger:   a.logger,
		Progress: pipeline.LogProgress{Logger: a.logger},
	})
}

// finish prints the summary, writes the report if requested and turns the
// outcome into the command's error.
func (a *app) finish(cmd *cobra.Command, report *pipeline.Report, err error) error {
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
		if a.reportPath != "" {
			if werr := report.WriteFile(a.reportPath); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}
	if a.strict && report.HasFailures() {
		return fmt.Errorf("%s finished with failures (%d of %d files failed)", report.Command, report.Failed, report.Total)
	}
	return nil
}
