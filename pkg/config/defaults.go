package config

import (
	"github.com/chazu/microgel/pkg/engine"
	"github.com/chazu/microgel/pkg/kernel/sdfx"
	"github.com/chazu/microgel/pkg/observable"
	"github.com/chazu/microgel/pkg/shape"
	"github.com/spf13/viper"
)

const (
	DefaultInteraction = observable.DefaultInteraction
	DefaultPrecision   = shape.DefaultPrecision
	DefaultTimeout     = engine.DefaultEvalTimeout
	DefaultMeshCells   = sdfx.DefaultMeshCells
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Default returns a Config with every field at its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields that are already set are left unchanged so that explicit
// configuration always wins. WithStep and Epsilon default to zero.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Analysis.Interaction == "" {
		cfg.Analysis.Interaction = DefaultInteraction
	}
	if cfg.Output.Precision == 0 {
		cfg.Output.Precision = DefaultPrecision
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = DefaultTimeout
	}
	if cfg.Engine.MeshCells == 0 {
		cfg.Engine.MeshCells = DefaultMeshCells
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// registerDefaults makes viper aware of every key so that MICROGEL_*
// environment variables are honoured even without a config file.
func registerDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("analysis.interaction", d.Analysis.Interaction)
	v.SetDefault("analysis.epsilon", d.Analysis.Epsilon)
	v.SetDefault("output.precision", d.Output.Precision)
	v.SetDefault("output.with_step", d.Output.WithStep)
	v.SetDefault("engine.timeout", d.Engine.Timeout)
	v.SetDefault("engine.mesh_cells", d.Engine.MeshCells)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}
