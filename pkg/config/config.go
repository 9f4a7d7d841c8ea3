// Package config provides configuration loading, defaults and validation
// for the microgel tools.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/chazu/microgel/pkg/logging"
)

// Config is the root configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Output   OutputConfig   `mapstructure:"output"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      logging.Config `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AnalysisConfig controls the shape analysis.
type AnalysisConfig struct {
	// Interaction is the interaction model a trajectory must declare.
	Interaction string `mapstructure:"interaction"`
	// Epsilon is an absolute hull tolerance. Zero selects the
	// scale-relative default.
	Epsilon float64 `mapstructure:"epsilon"`
}

// OutputConfig controls the analysis output lines.
type OutputConfig struct {
	// Precision is the number of significant digits per value.
	Precision int `mapstructure:"precision"`
	// WithStep prefixes each line with its step.
	WithStep bool `mapstructure:"with_step"`
}

// EngineConfig controls script evaluation and envelope meshing.
type EngineConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MeshCells int           `mapstructure:"mesh_cells"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in the Prometheus text
	// format after every run.
	Textfile string `mapstructure:"textfile"`
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	// Analysis
	if c.Analysis.Interaction == "" {
		return fmt.Errorf("config: analysis.interaction is required")
	}
	if c.Analysis.Epsilon < 0 || math.IsNaN(c.Analysis.Epsilon) || math.IsInf(c.Analysis.Epsilon, 0) {
		return fmt.Errorf("config: analysis.epsilon must be a finite value >= 0, got %g", c.Analysis.Epsilon)
	}

	// Output
	if c.Output.Precision < 1 || c.Output.Precision > 17 {
		return fmt.Errorf("config: output.precision %d is out of range [1, 17]", c.Output.Precision)
	}

	// Engine
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("config: engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.MeshCells < 8 {
		return fmt.Errorf("config: engine.mesh_cells must be >= 8, got %d", c.Engine.MeshCells)
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected console|json", c.Log.Format)
	}
	return nil
}
