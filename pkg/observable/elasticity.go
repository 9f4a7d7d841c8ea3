// Package observable connects the shape analysis to a running (or replayed)
// simulation. The simulation is seen only through the Host interface; the
// Elasticity observable validates the interaction model once at setup and
// then turns each snapshot into one output line.
package observable

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/hull"
	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/metrics"
	"github.com/chazu/microgel/pkg/shape"
)

// DefaultInteraction is the only interaction model the analysis supports.
const DefaultInteraction = "MGInteraction"

// Host is the simulation as seen by an observable.
type Host interface {
	// Interaction returns the name of the active interaction model.
	Interaction() string
	// Positions returns the absolute particle positions of the current
	// snapshot. Observables never modify the slice.
	Positions() []geom.Vec
}

var (
	// ErrIncompatibleInteraction is matched by a ConfigurationError.
	ErrIncompatibleInteraction = errors.New("observable: incompatible interaction")
	// ErrNotInitialized is returned by Output before a successful Init.
	ErrNotInitialized = errors.New("observable: not initialized")
)

// ConfigurationError reports a host whose interaction model the observable
// cannot work with.
type ConfigurationError struct {
	Interaction string
	Required    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("observable: elasticity is not compatible with the interaction %q (requires %q)", e.Interaction, e.Required)
}

// Is makes errors.Is(err, ErrIncompatibleInteraction) succeed.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrIncompatibleInteraction
}

// Elasticity measures hull volume, equivalent ellipsoid volume and the three
// semi-axes of a microgel at every requested step.
type Elasticity struct {
	analyzer    shape.Analyzer
	interaction string
	precision   int
	log         logging.Logger
	metrics     *metrics.Metrics

	host Host
}

// Option configures an Elasticity.
type Option func(*Elasticity)

// WithInteraction sets the interaction model the host must report.
func WithInteraction(name string) Option {
	return func(e *Elasticity) { e.interaction = name }
}

// WithEpsilon sets an explicit hull tolerance. Zero keeps the
// scale-relative default.
func WithEpsilon(eps float64) Option {
	return func(e *Elasticity) { e.analyzer.Builder.Epsilon = eps }
}

// WithPrecision sets the significant digits of output values.
func WithPrecision(p int) Option {
	return func(e *Elasticity) { e.precision = p }
}

// WithKeepMesh keeps hull meshes in returned descriptors.
func WithKeepMesh(keep bool) Option {
	return func(e *Elasticity) { e.analyzer.KeepMesh = keep }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Elasticity) { e.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Elasticity) { e.metrics = m }
}

// NewElasticity returns an Elasticity observable.
func NewElasticity(opts ...Option) *Elasticity {
	e := &Elasticity{
		interaction: DefaultInteraction,
		precision:   shape.DefaultPrecision,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrNop(e.log).Named("elasticity")
	return e
}

// Init binds the observable to h after checking its interaction model.
func (e *Elasticity) Init(h Host) error {
	if got := h.Interaction(); got != e.interaction {
		e.host = nil
		return &ConfigurationError{Interaction: got, Required: e.interaction}
	}
	e.host = h
	e.log.Debug("initialized", logging.String("interaction", e.interaction))
	return nil
}

// Measure analyses the host's current positions.
func (e *Elasticity) Measure(step int64) (*shape.Descriptors, error) {
	if e.host == nil {
		return nil, ErrNotInitialized
	}
	positions := e.host.Positions()
	start := time.Now()
	d, err := e.analyzer.Analyze(positions)
	elapsed := time.Since(start)

	switch {
	case err == nil:
	case errors.Is(err, hull.ErrDegenerate):
		e.metrics.ObserveFailure(metrics.OutcomeDegenerate)
		e.log.Warn("degenerate snapshot", logging.Int64("step", step), logging.Int("particles", len(positions)), logging.Err(err))
		return nil, fmt.Errorf("step %d: %w", step, err)
	case errors.Is(err, shape.ErrInconsistentWinding):
		e.metrics.ObserveFailure(metrics.OutcomeInconsistent)
		e.log.Error("inconsistent hull", logging.Int64("step", step), logging.Err(err))
		return nil, fmt.Errorf("step %d: %w", step, err)
	default:
		e.metrics.ObserveFailure(metrics.OutcomeError)
		e.log.Error("analysis failed", logging.Int64("step", step), logging.Err(err))
		return nil, fmt.Errorf("step %d: %w", step, err)
	}

	e.metrics.ObserveSnapshot(d.Facets, d.HullVolume, d.EllipsoidVolume, elapsed)
	e.log.Debug("snapshot analysed",
		logging.Int64("step", step),
		logging.Int("particles", len(positions)),
		logging.Int("facets", d.Facets),
		logging.Float64("hull_volume", d.HullVolume),
		logging.Floats64("eigenvalues", d.Eigenvalues[:]),
		logging.Duration("elapsed", elapsed),
	)
	return d, nil
}

// Output returns "hull_volume ellipsoid_volume axis0 axis1 axis2" for the
// host's current positions.
func (e *Elasticity) Output(step int64) (string, error) {
	d, err := e.Measure(step)
	if err != nil {
		return "", err
	}
	return shape.Format(d, e.precision), nil
}
