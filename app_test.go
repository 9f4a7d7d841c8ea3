package main

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/microgel/pkg/config"
	"github.com/chazu/microgel/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestApp returns an App with defaults and a coarse envelope mesher.
func newTestApp(t *testing.T, mutate ...func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.MeshCells = 16
	for _, m := range mutate {
		m(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return NewApp(cfg, nil, nil)
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	source, err := os.ReadFile("examples/" + name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(source)
}

func failOnErrors(t *testing.T, r EvalResult) {
	t.Helper()
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			t.Errorf("error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
}

func hullVolume(t *testing.T, line string) float64 {
	t.Helper()
	fields := strings.Fields(line)
	if len(fields) != 5 {
		t.Fatalf("expected 5 fields, got %q", line)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		t.Fatalf("bad hull volume in %q: %v", line, err)
	}
	return v
}

// TestE2EReferenceExample exercises the full pipeline: script → engine →
// trajectory → replay → elasticity observable → output lines.
func TestE2EReferenceExample(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(readExample(t, "reference.mg"))
	failOnErrors(t, result)

	if result.Interaction != "MGInteraction" {
		t.Errorf("interaction = %q", result.Interaction)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	for _, s := range result.Steps {
		if s.Error != "" {
			t.Errorf("step %d: unexpected error %s", s.Step, s.Error)
		}
	}

	if !strings.HasPrefix(result.Steps[0].Line, "8 ") {
		t.Errorf("cube line = %q, want hull volume 8", result.Steps[0].Line)
	}
	if !strings.HasPrefix(result.Steps[1].Line, "1.33333 0.80613") {
		t.Errorf("octahedron line = %q", result.Steps[1].Line)
	}
	if got := result.Steps[1].Line; !strings.HasSuffix(got, "0.333333 0.333333 0.333333") {
		t.Errorf("octahedron semi-axes = %q, want all 1/3", got)
	}

	sphere := 4.0 / 3.0 * 3.141592653589793 * 27
	v := hullVolume(t, result.Steps[2].Line)
	if v > sphere || v < 0.98*sphere {
		t.Errorf("fibonacci sphere hull volume %g, want just under %g", v, sphere)
	}
}

// TestE2ESwellingExample checks the hull grows as the gel swells.
func TestE2ESwellingExample(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(readExample(t, "swelling.mg"))
	failOnErrors(t, result)

	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	prev := 0.0
	for _, s := range result.Steps {
		v := hullVolume(t, s.Line)
		if v <= prev {
			t.Errorf("step %d: hull volume %g did not grow from %g", s.Step, v, prev)
		}
		prev = v
	}
}

// TestE2ECollapseExample checks that a degenerate snapshot is reported and
// skipped while the others are still analysed.
func TestE2ECollapseExample(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(readExample(t, "collapse.mg"))
	failOnErrors(t, result)

	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	if result.Steps[0].Line == "" || result.Steps[1].Line == "" {
		t.Errorf("expected lines for steps 0 and 10, got %+v", result.Steps[:2])
	}
	last := result.Steps[2]
	if last.Line != "" || !strings.Contains(last.Error, "coplanar") {
		t.Errorf("step 20 = %+v, want a coplanar degeneracy", last)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the degenerate snapshot")
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	result := newTestApp(t).Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected 0 steps, got %d", len(result.Steps))
	}
}

// TestE2ESyntaxError ensures parse errors are reported, not fatal.
func TestE2ESyntaxError(t *testing.T) {
	result := newTestApp(t).Evaluate("(snapshot (cube-corners 2)")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for syntax error")
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected 0 steps on syntax error, got %d", len(result.Steps))
	}
}

func TestE2EMetrics(t *testing.T) {
	cfg := config.Default()
	m := metrics.New()
	app := NewApp(cfg, nil, m)

	app.Evaluate(readExample(t, "collapse.mg"))
	app.Evaluate("(snapshot")

	if got := testutil.ToFloat64(m.Snapshots.WithLabelValues(metrics.OutcomeOK)); got != 2 {
		t.Errorf("ok snapshots = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.Snapshots.WithLabelValues(metrics.OutcomeDegenerate)); got != 1 {
		t.Errorf("degenerate snapshots = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.Evaluations.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok evaluations = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.Evaluations.WithLabelValues("error")); got != 1 {
		t.Errorf("failed evaluations = %g, want 1", got)
	}
}
