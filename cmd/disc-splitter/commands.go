package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/disc-splitter/internal/config"
	"github.com/ironsheep/disc-splitter/internal/pipeline"
)

// batchFunc runs one pipeline driver.
type batchFunc func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error)

func (a *app) batch(fn batchFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := a.runner()
		if err != nil {
			return err
		}
		report, err := fn(cmd, r, args)
		return a.finish(cmd, report, err)
	}
}

func addCropFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "", "crop format: jpg, png, webp")
	f.Int("quality", 0, "JPEG and lossy WebP quality (1-100)")
	f.Int("crop-workers", 0, "crops written in parallel per image")
	f.Bool("lossless", false, "write lossless WebP")
}

func (a *app) sortCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sort XMLS [OUT]",
		Short: "Rewrite every annotation in reading order",
		Long: `Rewrite every *.xml annotation in XMLS with its objects in reading order.
Results go to OUT under the same names; without OUT the files are
rewritten in place.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			out := args[0]
			if len(args) == 2 {
				out = args[1]
			}
			return r.SortDir(cmd.Context(), args[0], out)
		}),
	}
}

func (a *app) cropCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop IMAGES XMLS OUT",
		Short: "Crop every annotated region into its own image",
		Long: `Crop the regions of every *.xml annotation in XMLS out of the image with
the same stem in IMAGES. Crops of image NAME land in OUT/NAME/, numbered in
annotation order. An image named "name-(N)" yields name-N, name-N+1, ...`,
		Args: cobra.ExactArgs(3),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			return r.CropDir(cmd.Context(), args[0], args[1], args[2])
		}),
	}
	addCropFlags(cmd)
	return cmd
}

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run IMAGES XMLS OUT",
		Short: "Sort annotations into OUT/xml and crop them into OUT/crop",
		Args:  cobra.ExactArgs(3),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			return r.RunDir(cmd.Context(), args[0], args[1], args[2])
		}),
	}
	addCropFlags(cmd)
	cmd.Flags().Bool("preview", false, "also write a reading-order overlay per image into OUT/preview")
	return cmd
}

func (a *app) detectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect IMAGES OUT",
		Short: "Find discs in images and write an annotation per image",
		Args:  cobra.ExactArgs(2),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			return r.DetectDir(cmd.Context(), args[0], args[1])
		}),
	}
	f := cmd.Flags()
	f.Int("min-radius", 0, "smallest disc radius in pixels")
	f.Int("max-radius", 0, "largest disc radius in pixels")
	f.Int("max-side", 0, "downscale images to this longest side before detection")
	f.Int("threshold", 0, "edge strength threshold (0-255)")
	f.String("label", "", "class name written for each disc")
	return cmd
}

func (a *app) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert TXTS IMAGES OUT",
		Short: "Convert detector text output into annotations",
		Long: `Convert every *.txt file in TXTS, one "class confidence x1 y1 x2 y2"
detection per line, into OUT/<stem>.xml. The image size is read from the
image with the same stem in IMAGES.`,
		Args: cobra.ExactArgs(3),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			return r.ConvertDir(cmd.Context(), args[0], args[1], args[2])
		}),
	}
}

func (a *app) previewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview IMAGES XMLS OUT",
		Short: "Draw the reading order over each image",
		Long: `Write OUT/<stem>.png for every annotation in XMLS: the matching image with
each region outlined and numbered in reading order, and the dividing line
between the columns.`,
		Args: cobra.ExactArgs(3),
		RunE: a.batch(func(cmd *cobra.Command, r *pipeline.Runner, args []string) (*pipeline.Report, error) {
			return r.PreviewDir(cmd.Context(), args[0], args[1], args[2])
		}),
	}
}

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage the configuration file",
		Annotations: map[string]string{skipConfig: "true"},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [PATH]",
		Short:       "Write the default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefaults(path, force); err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", abs)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "disc-splitter %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
