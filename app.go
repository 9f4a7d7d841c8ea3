package main

import (
	"errors"
	"fmt"

	"github.com/chazu/microgel/pkg/config"
	"github.com/chazu/microgel/pkg/engine"
	"github.com/chazu/microgel/pkg/hull"
	"github.com/chazu/microgel/pkg/kernel"
	"github.com/chazu/microgel/pkg/kernel/sdfx"
	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/metrics"
	"github.com/chazu/microgel/pkg/observable"
	"github.com/chazu/microgel/pkg/shape"
	"github.com/chazu/microgel/pkg/sim"
	"github.com/chazu/microgel/pkg/tessellate"
	"github.com/google/uuid"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs scripts through the whole pipeline: evaluation, validation,
// shape analysis and mesh export. The CLI commands are thin wrappers
// around it.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Metrics
	engine  *engine.Engine
	kernel  kernel.Kernel
}

// MeshData is the JSON-serializable mesh export format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Step     int64     `json:"step"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// StepResult is the analysis outcome of one snapshot: either an output
// line or the reason there is none.
type StepResult struct {
	Step  int64  `json:"step"`
	Line  string `json:"line,omitempty"`
	Error string `json:"error,omitempty"`
}

// EvalResult is the full result of running a script.
type EvalResult struct {
	RunID       string          `json:"run_id"`
	Interaction string          `json:"interaction"`
	Steps       []StepResult    `json:"steps"`
	Meshes      []MeshData      `json:"meshes"`
	Errors      []EvalErrorData `json:"errors"`
	Warnings    []EvalErrorData `json:"warnings"`
}

// OK reports whether the run produced no errors.
func (r EvalResult) OK() bool {
	return len(r.Errors) == 0
}

func newEvalResult() EvalResult {
	return EvalResult{
		RunID:    uuid.New().String(),
		Steps:    []StepResult{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func (r *EvalResult) addError(msg string) {
	r.Errors = append(r.Errors, EvalErrorData{Message: msg})
}

func (r *EvalResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, EvalErrorData{Message: msg})
}

// NewApp creates an App. A nil cfg selects config.Default(); a nil logger
// discards logs; a nil metrics records nothing.
func NewApp(cfg *config.Config, log logging.Logger, m *metrics.Metrics) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	log = logging.OrNop(log)
	k := sdfx.New()
	k.MeshCells = cfg.Engine.MeshCells
	return &App{
		cfg:     cfg,
		log:     log,
		metrics: m,
		engine:  engine.NewEngine(k, engine.WithTimeout(cfg.Engine.Timeout), engine.WithLogger(log)),
		kernel:  k,
	}
}

// Check evaluates and validates source without analysing it.
func (a *App) Check(source string) EvalResult {
	result := newEvalResult()
	a.load(source, &result, a.runLogger(result))
	return result
}

// Evaluate evaluates source and analyses every snapshot. A configuration
// error stops the run before any snapshot is analysed; degenerate
// snapshots are recorded as warnings and the run continues.
func (a *App) Evaluate(source string) EvalResult {
	result := newEvalResult()
	log := a.runLogger(result)
	t := a.load(source, &result, log)
	if t == nil || t.Len() == 0 {
		return result
	}

	replay := sim.NewReplay(t)
	obs := a.bind(replay, &result, log)
	if obs == nil {
		return result
	}

	for replay.Next() {
		step := replay.Step()
		line, err := obs.Output(step)
		switch {
		case err == nil:
			if a.cfg.Output.WithStep {
				line = fmt.Sprintf("%d %s", step, line)
			}
			result.Steps = append(result.Steps, StepResult{Step: step, Line: line})
		case errors.Is(err, hull.ErrDegenerate):
			result.addWarning(err.Error())
			result.Steps = append(result.Steps, StepResult{Step: step, Error: err.Error()})
		default:
			result.addError(err.Error())
			result.Steps = append(result.Steps, StepResult{Step: step, Error: err.Error()})
		}
	}
	return result
}

// Mesh evaluates source and exports hull meshes, plus envelope meshes when
// envelopes is set. A non-negative step keeps only that step's meshes. As
// with Evaluate, a configuration error stops the run before any snapshot
// is meshed.
func (a *App) Mesh(source string, step int64, envelopes bool) EvalResult {
	result := newEvalResult()
	log := a.runLogger(result)
	t := a.load(source, &result, log)
	if t == nil {
		return result
	}
	if a.bind(sim.NewReplay(t), &result, log) == nil {
		return result
	}

	var k kernel.Kernel
	if envelopes {
		k = a.kernel
	}
	analyzer := shape.Analyzer{}
	analyzer.Builder.Epsilon = a.cfg.Analysis.Epsilon
	meshes, warnings, err := tessellate.Tessellate(t, analyzer, k)
	if err != nil {
		log.Error("tessellation failed", logging.Err(err))
		result.addError("tessellation failed: " + err.Error())
		return result
	}
	for _, w := range warnings {
		result.addWarning(w.String())
	}

	for _, m := range meshes {
		if step >= 0 && m.Step != step {
			continue
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Step:     m.Step,
			Color:    colorPalette[len(result.Meshes)%len(colorPalette)],
		})
	}
	return result
}

// bind creates the run's Elasticity observable and initializes it on h.
// It returns nil, with the configuration error recorded on result, when h
// runs an interaction the analysis does not support.
func (a *App) bind(h observable.Host, result *EvalResult, log logging.Logger) *observable.Elasticity {
	obs := observable.NewElasticity(
		observable.WithInteraction(a.cfg.Analysis.Interaction),
		observable.WithEpsilon(a.cfg.Analysis.Epsilon),
		observable.WithPrecision(a.cfg.Output.Precision),
		observable.WithLogger(log),
		observable.WithMetrics(a.metrics),
	)
	if err := obs.Init(h); err != nil {
		log.Error("incompatible trajectory", logging.Err(err))
		result.addError(err.Error())
		return nil
	}
	return obs
}

// runLogger tags every log entry of one run with its ID.
func (a *App) runLogger(r EvalResult) logging.Logger {
	return a.log.With(logging.String("run_id", r.RunID))
}

// load evaluates and validates source. It returns nil when the script
// failed or the trajectory has blocking validation errors.
func (a *App) load(source string, result *EvalResult, log logging.Logger) *sim.Trajectory {
	t, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.metrics.ObserveEvaluation("error")
		result.addError(err.Error())
		return nil
	}
	if len(evalErrs) > 0 {
		a.metrics.ObserveEvaluation("error")
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return nil
	}
	a.metrics.ObserveEvaluation("ok")
	result.Interaction = t.Interaction
	log.Info("script evaluated",
		logging.String("interaction", t.Interaction),
		logging.Int("snapshots", t.Len()),
		logging.Int("particles", t.ParticleCount()),
	)

	vr := sim.ValidateAll(t)
	for _, w := range vr.Warnings {
		result.addWarning(w.String())
	}
	if !vr.OK() {
		log.Warn("trajectory rejected", logging.Int("errors", len(vr.Errors)))
		for _, e := range vr.Errors {
			result.addError(e.Error())
		}
		return nil
	}
	return t
}
