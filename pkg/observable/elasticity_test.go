package observable_test

import (
	"errors"
	"testing"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/hull"
	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/metrics"
	"github.com/chazu/microgel/pkg/observable"
	"github.com/chazu/microgel/pkg/sample"
	"github.com/chazu/microgel/pkg/sim"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// staticHost is a Host with fixed positions.
type staticHost struct {
	interaction string
	positions   []geom.Vec
}

func (h *staticHost) Interaction() string   { return h.interaction }
func (h *staticHost) Positions() []geom.Vec { return h.positions }

var _ observable.Host = (*staticHost)(nil)
var _ observable.Host = (*sim.Replay)(nil)

func octahedron() []geom.Vec {
	return []geom.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}
}

func TestInitRejectsOtherInteraction(t *testing.T) {
	e := observable.NewElasticity()
	err := e.Init(&staticHost{interaction: "LJInteraction"})
	require.ErrorIs(t, err, observable.ErrIncompatibleInteraction)

	var ce *observable.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "LJInteraction", ce.Interaction)
	assert.Equal(t, observable.DefaultInteraction, ce.Required)
	assert.Contains(t, err.Error(), `"LJInteraction"`)

	_, err = e.Output(0)
	assert.ErrorIs(t, err, observable.ErrNotInitialized)
}

func TestInitCustomInteraction(t *testing.T) {
	e := observable.NewElasticity(observable.WithInteraction("PatchyGel"))
	assert.NoError(t, e.Init(&staticHost{interaction: "PatchyGel", positions: octahedron()}))
	assert.Error(t, e.Init(&staticHost{interaction: observable.DefaultInteraction}))
}

func TestOutputBeforeInit(t *testing.T) {
	_, err := observable.NewElasticity().Output(1)
	assert.ErrorIs(t, err, observable.ErrNotInitialized)
}

func TestOutputCube(t *testing.T) {
	h := &staticHost{interaction: observable.DefaultInteraction, positions: geom.Translate(sample.CubeCorners(2), geom.Vec{X: 5, Y: 5, Z: 5})}
	e := observable.NewElasticity()
	require.NoError(t, e.Init(h))

	line, err := e.Output(0)
	require.NoError(t, err)
	assert.Regexp(t, `^8 \S+ \S+ \S+ \S+$`, line)
}

func TestOutputOctahedron(t *testing.T) {
	h := &staticHost{interaction: observable.DefaultInteraction, positions: octahedron()}
	e := observable.NewElasticity(observable.WithPrecision(4))
	require.NoError(t, e.Init(h))

	line, err := e.Output(10)
	require.NoError(t, err)
	// 4π√3/27 = 0.80613...
	assert.Equal(t, "1.333 0.8061 0.3333 0.3333 0.3333", line)
}

func TestMeasureDegenerateIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New()
	h := &staticHost{interaction: observable.DefaultInteraction, positions: octahedron()[:3]}
	e := observable.NewElasticity(observable.WithLogger(logging.NewFromCore(core)), observable.WithMetrics(m))
	require.NoError(t, e.Init(h))

	d, err := e.Measure(7)
	assert.Nil(t, d)
	require.ErrorIs(t, err, hull.ErrDegenerate)
	assert.Contains(t, err.Error(), "step 7")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(7), warnings[0].ContextMap()["step"])
	assert.Equal(t, "elasticity", warnings[0].LoggerName)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues(metrics.OutcomeDegenerate)))
}

func TestMeasureRecordsMetrics(t *testing.T) {
	m := metrics.New()
	h := &staticHost{interaction: observable.DefaultInteraction, positions: octahedron()}
	e := observable.NewElasticity(observable.WithMetrics(m), observable.WithKeepMesh(true))
	require.NoError(t, e.Init(h))

	d, err := e.Measure(0)
	require.NoError(t, err)
	require.NotNil(t, d.Mesh)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues(metrics.OutcomeOK)))
	assert.InDelta(t, 4.0/3.0, testutil.ToFloat64(m.HullVolume), 1e-12)
}

func TestWithEpsilonAbsorbsBump(t *testing.T) {
	third := 1.1 / 3
	pts := append(octahedron(), geom.Vec{X: third, Y: third, Z: third})
	h := &staticHost{interaction: observable.DefaultInteraction, positions: pts}

	coarse := observable.NewElasticity(observable.WithEpsilon(0.25))
	require.NoError(t, coarse.Init(h))
	d, err := coarse.Measure(0)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Vertices)
}

func TestReplayDrivesObservable(t *testing.T) {
	tr := sim.New()
	tr.Interaction = observable.DefaultInteraction
	tr.AddSnapshot(&sim.Snapshot{Step: 0, Positions: octahedron()})
	tr.AddSnapshot(&sim.Snapshot{Step: 10, Positions: geom.Translate(sample.CubeCorners(2), geom.Vec{Z: 3})})

	r := sim.NewReplay(tr)
	e := observable.NewElasticity()
	require.NoError(t, e.Init(r))

	var lines []string
	for r.Next() {
		line, err := e.Output(r.Step())
		require.NoError(t, err)
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Regexp(t, `^1\.33333 `, lines[0])
	assert.Regexp(t, `^8 `, lines[1])
}
