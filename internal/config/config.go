// Package config loads disc-splitter settings from defaults, an optional
// YAML file, DISCSPLIT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/disc-splitter/internal/imaging"
)

// EnvPrefix prefixes every environment variable, e.g. DISCSPLIT_LOG_LEVEL
// for log.level.
const EnvPrefix = "DISCSPLIT"

// FileName is the config file base name searched for without --config.
const FileName = "disc-splitter"

// Config is the full settings tree.
type Config struct {
	Log     LogConfig    `mapstructure:"log" yaml:"log"`
	Workers int          `mapstructure:"workers" yaml:"workers"`
	Crop    CropConfig   `mapstructure:"crop" yaml:"crop"`
	Input   InputConfig  `mapstructure:"input" yaml:"input"`
	Detect  DetectConfig `mapstructure:"detect" yaml:"detect"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

type CropConfig struct {
	Format   string `mapstructure:"format" yaml:"format"`   // jpg, png, webp
	Quality  int    `mapstructure:"quality" yaml:"quality"` // 1-100, JPEG and lossy WebP
	Workers  int    `mapstructure:"workers" yaml:"workers"` // concurrent crops per image
	Lossless bool   `mapstructure:"lossless" yaml:"lossless"`
	Preview  bool   `mapstructure:"preview" yaml:"preview"` // run also writes overlays
}

type InputConfig struct {
	// ImageExts is the lookup order for the image matching an annotation.
	ImageExts []string `mapstructure:"image_exts" yaml:"image_exts"`
}

type DetectConfig struct {
	MinRadius  int     `mapstructure:"min_radius" yaml:"min_radius"`
	MaxRadius  int     `mapstructure:"max_radius" yaml:"max_radius"`
	MaxSide    int     `mapstructure:"max_side" yaml:"max_side"`
	Threshold  int     `mapstructure:"threshold" yaml:"threshold"`
	BlurRadius float64 `mapstructure:"blur_radius" yaml:"blur_radius"`
	MinVotes   float64 `mapstructure:"min_votes" yaml:"min_votes"`
	Label      string  `mapstructure:"label" yaml:"label"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Workers: 1,
		Crop: CropConfig{
			Format:  imaging.FormatJPEG,
			Quality: 95,
			Workers: 1,
		},
		Input: InputConfig{
			ImageExts: []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"},
		},
		Detect: DetectConfig{
			MinRadius:  40,
			MaxRadius:  400,
			MaxSide:    512,
			Threshold:  128,
			BlurRadius: 2,
			MinVotes:   0.5,
			Label:      "disc",
		},
	}
}

// SetDefaults registers every key with its default on v. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("crop.format", d.Crop.Format)
	v.SetDefault("crop.quality", d.Crop.Quality)
	v.SetDefault("crop.workers", d.Crop.Workers)
	v.SetDefault("crop.lossless", d.Crop.Lossless)
	v.SetDefault("crop.preview", d.Crop.Preview)
	v.SetDefault("input.image_exts", d.Input.ImageExts)
	v.SetDefault("detect.min_radius", d.Detect.MinRadius)
	v.SetDefault("detect.max_radius", d.Detect.MaxRadius)
	v.SetDefault("detect.max_side", d.Detect.MaxSide)
	v.SetDefault("detect.threshold", d.Detect.Threshold)
	v.SetDefault("detect.blur_radius", d.Detect.BlurRadius)
	v.SetDefault("detect.min_votes", d.Detect.MinVotes)
	v.SetDefault("detect.label", d.Detect.Label)
}

// NewViper returns a viper instance with defaults and environment binding,
// and with configFile read when given. Without configFile it looks for
// disc-splitter.yaml in the working directory and then in
// $HOME/.config/disc-splitter; a missing file there is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if f, ok := imaging.NormalizeFormat(c.Crop.Format); ok {
		c.Crop.Format = f
	}

	exts := make([]string, 0, len(c.Input.ImageExts))
	for _, e := range c.Input.ImageExts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	c.Input.ImageExts = exts
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}

	if _, ok := imaging.NormalizeFormat(c.Crop.Format); !ok {
		add("crop.format must be jpg, png or webp, got %q", c.Crop.Format)
	}
	if c.Crop.Quality < 1 || c.Crop.Quality > 100 {
		add("crop.quality must be between 1 and 100, got %d", c.Crop.Quality)
	}
	if c.Crop.Workers < 1 {
		add("crop.workers must be at least 1, got %d", c.Crop.Workers)
	}

	if len(c.Input.ImageExts) == 0 {
		add("input.image_exts must not be empty")
	}

	d := c.Detect
	if d.MinRadius < 1 {
		add("detect.min_radius must be at least 1, got %d", d.MinRadius)
	}
	if d.MaxRadius < d.MinRadius {
		add("detect.max_radius (%d) must not be below detect.min_radius (%d)", d.MaxRadius, d.MinRadius)
	}
	if d.MaxSide < 0 {
		add("detect.max_side must not be negative, got %d", d.MaxSide)
	}
	if d.Threshold < 0 || d.Threshold > 255 {
		add("detect.threshold must be between 0 and 255, got %d", d.Threshold)
	}
	if d.BlurRadius < 0 {
		add("detect.blur_radius must not be negative, got %g", d.BlurRadius)
	}
	if d.MinVotes <= 0 || d.MinVotes > 1 {
		add("detect.min_votes must be in (0, 1], got %g", d.MinVotes)
	}
	if strings.TrimSpace(d.Label) == "" {
		add("detect.label must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// WriteDefaults writes the default settings as YAML to path. An existing
// file is only replaced when force is set.
func WriteDefaults(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
