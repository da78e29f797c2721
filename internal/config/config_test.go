package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// chdir switches to an empty directory so no stray config file is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	v, err := NewViper("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t)
	t.Setenv("DISCSPLIT_LOG_LEVEL", "DEBUG")
	t.Setenv("DISCSPLIT_CROP_FORMAT", "webp")
	t.Setenv("DISCSPLIT_WORKERS", "4")
	t.Setenv("DISCSPLIT_DETECT_MIN_RADIUS", "12")
	t.Setenv("DISCSPLIT_CROP_PREVIEW", "true")

	v, err := NewViper("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "webp", cfg.Crop.Format)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 12, cfg.Detect.MinRadius)
	assert.True(t, cfg.Crop.Preview)
}

func TestLoad_File(t *testing.T) {
	dir := chdir(t)
	content := `
workers: 3
crop:
  format: jpeg
  quality: 80
input:
  image_exts: [png, ".JPG"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "disc-splitter.yaml"), []byte(content), 0o644))

	v, err := NewViper("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "jpg", cfg.Crop.Format)
	assert.Equal(t, 80, cfg.Crop.Quality)
	assert.Equal(t, []string{".png", ".jpg"}, cfg.Input.ImageExts)
	assert.Equal(t, "disc", cfg.Detect.Label, "unset keys keep their defaults")
}

func TestNewViper_ExplicitFileMissing(t *testing.T) {
	chdir(t)
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"crop format", func(c *Config) { c.Crop.Format = "gif" }, "crop.format"},
		{"crop quality", func(c *Config) { c.Crop.Quality = 101 }, "crop.quality"},
		{"crop workers", func(c *Config) { c.Crop.Workers = -1 }, "crop.workers"},
		{"image exts", func(c *Config) { c.Input.ImageExts = nil }, "input.image_exts"},
		{"min radius", func(c *Config) { c.Detect.MinRadius = 0 }, "detect.min_radius"},
		{"max radius", func(c *Config) { c.Detect.MaxRadius = 10 }, "detect.max_radius"},
		{"max side", func(c *Config) { c.Detect.MaxSide = -5 }, "detect.max_side"},
		{"threshold", func(c *Config) { c.Detect.Threshold = 300 }, "detect.threshold"},
		{"blur", func(c *Config) { c.Detect.BlurRadius = -1 }, "detect.blur_radius"},
		{"votes", func(c *Config) { c.Detect.MinVotes = 0 }, "detect.min_votes"},
		{"label", func(c *Config) { c.Detect.Label = " " }, "detect.label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Defaults()
	cfg.Workers = 0
	cfg.Crop.Quality = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "crop.quality")
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "disc-splitter.yaml")
	require.NoError(t, WriteDefaults(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, Defaults(), decoded)

	assert.Error(t, WriteDefaults(path, false), "existing file must not be replaced")
	assert.NoError(t, WriteDefaults(path, true))

	// The written file loads back through viper unchanged.
	chdir(t)
	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}
