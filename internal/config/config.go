package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRows          = 600
	DefaultCols          = 800
	DefaultCenterRe      = -0.5
	DefaultCenterIm      = 0.0
	DefaultPitch         = 0.004
	DefaultMaxIterations = 500
	DefaultAddr          = "127.0.0.1:8080"
	DefaultFractalDir    = "./fractals"
	DefaultPaletteDir    = "./palettes"
	DefaultImageFilename = "fractal.png"
	DefaultPaletteFile   = "default.palette"
)

type Config struct {
	Program  ProgramConfig `yaml:"program"`
	Server   ServerConfig  `yaml:"server"`
	Paths    PathsConfig   `yaml:"paths"`
	Defaults ViewDefaults  `yaml:"defaults"`
	Workers  int           `yaml:"workers"`
	Log      LogConfig     `yaml:"log"`
}

type ProgramConfig struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version"`
	Developers []string `yaml:"developers"`
	Web        string   `yaml:"web"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type PathsConfig struct {
	FractalDir string `yaml:"fractal_dir"`
	PaletteDir string `yaml:"palette_dir"`
}

// ViewDefaults seeds the viewport of a new session and the file names it uses.
type ViewDefaults struct {
	Rows          uint32  `yaml:"rows"`
	Cols          uint32  `yaml:"cols"`
	CenterRe      float64 `yaml:"center_re"`
	CenterIm      float64 `yaml:"center_im"`
	Pitch         float64 `yaml:"pixel_pitch"`
	MaxIterations uint32  `yaml:"max_iterations"`
	PaletteFile   string  `yaml:"palette_file"`
	ImageFilename string  `yaml:"image_filename"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json" or "" for auto
}

func DefaultConfig() *Config {
	return &Config{
		Program: ProgramConfig{
			Name:    "fraclab",
			Version: "0.3.0",
			Web:     "https://github.com/san-kum/fraclab",
		},
		Server: ServerConfig{
			Addr:              DefaultAddr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Paths: PathsConfig{
			FractalDir: DefaultFractalDir,
			PaletteDir: DefaultPaletteDir,
		},
		Defaults: ViewDefaults{
			Rows:          DefaultRows,
			Cols:          DefaultCols,
			CenterRe:      DefaultCenterRe,
			CenterIm:      DefaultCenterIm,
			Pitch:         DefaultPitch,
			MaxIterations: DefaultMaxIterations,
			PaletteFile:   DefaultPaletteFile,
			ImageFilename: DefaultImageFilename,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the session cannot start from.
func (c *Config) Validate() error {
	d := c.Defaults
	switch {
	case d.Rows == 0 || d.Cols == 0:
		return fmt.Errorf("defaults: rows and cols must be positive (got %dx%d)", d.Cols, d.Rows)
	case !(d.Pitch > 0):
		return fmt.Errorf("defaults: pixel_pitch must be positive (got %g)", d.Pitch)
	case d.MaxIterations == 0:
		return fmt.Errorf("defaults: max_iterations must be at least 1")
	case d.ImageFilename == "":
		return fmt.Errorf("defaults: image_filename is required")
	case d.PaletteFile == "":
		return fmt.Errorf("defaults: palette_file is required")
	case c.Paths.FractalDir == "" || c.Paths.PaletteDir == "":
		return fmt.Errorf("paths: fractal_dir and palette_dir are required")
	case c.Workers < 0:
		return fmt.Errorf("workers must not be negative (got %d)", c.Workers)
	}
	return nil
}

// Center returns the default viewport center.
func (d ViewDefaults) Center() complex128 {
	return complex(d.CenterRe, d.CenterIm)
}
