package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FRACLAB_SERVER_ADDR.
const EnvPrefix = "FRACLAB"

// NewViper returns a viper instance reading FRACLAB_* environment variables
// with dots and dashes mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay copies every key set in v (environment or bound flag) onto cfg.
func Overlay(cfg *Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	u32 := func(key string, dst *uint32) {
		if v.IsSet(key) {
			*dst = v.GetUint32(key)
		}
	}
	f64 := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	str("server.addr", &cfg.Server.Addr)
	if v.IsSet("server.read_header_timeout") {
		cfg.Server.ReadHeaderTimeout = v.GetDuration("server.read_header_timeout")
	}
	str("paths.fractal_dir", &cfg.Paths.FractalDir)
	str("paths.palette_dir", &cfg.Paths.PaletteDir)
	u32("defaults.rows", &cfg.Defaults.Rows)
	u32("defaults.cols", &cfg.Defaults.Cols)
	f64("defaults.center_re", &cfg.Defaults.CenterRe)
	f64("defaults.center_im", &cfg.Defaults.CenterIm)
	f64("defaults.pixel_pitch", &cfg.Defaults.Pitch)
	u32("defaults.max_iterations", &cfg.Defaults.MaxIterations)
	str("defaults.palette_file", &cfg.Defaults.PaletteFile)
	str("defaults.image_filename", &cfg.Defaults.ImageFilename)
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
}
