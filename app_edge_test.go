package main

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/chazu/microgel/pkg/config"
	"github.com/google/uuid"
)

const cubeScript = `
(interaction "MGInteraction")
(snapshot :step 5 (translate (cube-corners 2) (vec3 10 10 10)))
`

func containsMessage(msgs []EvalErrorData, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// 1. Empty result: JSON should serialize slices as [] not null.
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	result := newTestApp(t).Evaluate("")

	if result.Steps == nil || result.Meshes == nil || result.Errors == nil || result.Warnings == nil {
		t.Fatalf("result slices should be non-nil, got %+v", result)
	}
	if !containsMessage(result.Warnings, "no snapshots") {
		t.Errorf("expected an empty-trajectory warning, got %v", result.Warnings)
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("JSON contains null: %s", data)
	}
}

// ---------------------------------------------------------------------------
// 2. Interaction model: checked once, before any snapshot is analysed.
// ---------------------------------------------------------------------------

func TestE2EIncompatibleInteraction(t *testing.T) {
	source := strings.Replace(cubeScript, "MGInteraction", "LJInteraction", 1)
	result := newTestApp(t).Evaluate(source)

	if !containsMessage(result.Errors, `"LJInteraction"`) {
		t.Fatalf("expected a configuration error naming the interaction, got %v", result.Errors)
	}
	if len(result.Steps) != 0 {
		t.Errorf("no snapshot should be analysed after a configuration error, got %d", len(result.Steps))
	}
}

func TestE2EMeshIncompatibleInteraction(t *testing.T) {
	source := strings.Replace(cubeScript, "MGInteraction", "LJInteraction", 1)
	result := newTestApp(t).Mesh(source, -1, true)

	if !containsMessage(result.Errors, `"LJInteraction"`) {
		t.Fatalf("expected a configuration error naming the interaction, got %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("no snapshot should be meshed after a configuration error, got %d meshes", len(result.Meshes))
	}
}

func TestE2EMissingInteraction(t *testing.T) {
	result := newTestApp(t).Evaluate(`(snapshot (cube-corners 2))`)

	if !containsMessage(result.Warnings, "no interaction model") {
		t.Errorf("expected a validation warning, got %v", result.Warnings)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a configuration error")
	}
}

func TestE2EConfiguredInteraction(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Analysis.Interaction = "LJInteraction" })
	result := app.Evaluate(strings.Replace(cubeScript, "MGInteraction", "LJInteraction", 1))
	failOnErrors(t, result)
	if len(result.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(result.Steps))
	}
}

// ---------------------------------------------------------------------------
// 3. Output formatting options.
// ---------------------------------------------------------------------------

func TestE2EWithStepAndPrecision(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Output.WithStep = true
		c.Output.Precision = 3
	})
	result := app.Evaluate(cubeScript)
	failOnErrors(t, result)

	line := result.Steps[0].Line
	if !regexp.MustCompile(`^5 8 \S+ \S+ \S+ \S+$`).MatchString(line) {
		t.Errorf("line = %q, want step then five values", line)
	}
	for _, f := range strings.Fields(line)[1:] {
		digits := strings.TrimLeft(strings.Replace(f, ".", "", 1), "0")
		if len(digits) > 3 {
			t.Errorf("value %q has more than 3 significant digits", f)
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Validation: blocking errors stop the run.
// ---------------------------------------------------------------------------

func TestE2EDuplicateSteps(t *testing.T) {
	source := `
(interaction "MGInteraction")
(snapshot :step 1 (cube-corners 2))
(snapshot :step 1 (cube-corners 3))
`
	app := newTestApp(t)
	for name, result := range map[string]EvalResult{
		"evaluate": app.Evaluate(source),
		"check":    app.Check(source),
	} {
		if !containsMessage(result.Errors, "duplicate step") {
			t.Errorf("%s: expected duplicate step error, got %v", name, result.Errors)
		}
		if len(result.Steps) != 0 {
			t.Errorf("%s: expected no analysis, got %d steps", name, len(result.Steps))
		}
	}
}

func TestE2ESmallSnapshotWarnsTwice(t *testing.T) {
	// Validation warns about the size, analysis then reports the degeneracy.
	source := `
(interaction "MGInteraction")
(snapshot (points (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)))
`
	result := newTestApp(t).Evaluate(source)
	failOnErrors(t, result)
	if !containsMessage(result.Warnings, "a hull needs at least 4") {
		t.Errorf("expected validation warning, got %v", result.Warnings)
	}
	if !containsMessage(result.Warnings, "too few points") {
		t.Errorf("expected degeneracy warning, got %v", result.Warnings)
	}
}

func TestE2ECheck(t *testing.T) {
	result := newTestApp(t).Check(cubeScript)
	failOnErrors(t, result)
	if result.Interaction != "MGInteraction" {
		t.Errorf("interaction = %q", result.Interaction)
	}
	if len(result.Steps) != 0 {
		t.Error("Check must not analyse")
	}
}

func TestE2ERunIDs(t *testing.T) {
	app := newTestApp(t)
	first := app.Evaluate(cubeScript)
	second := app.Check(cubeScript)

	for _, id := range []string{first.RunID, second.RunID} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("run id %q: %v", id, err)
		}
	}
	if first.RunID == second.RunID {
		t.Errorf("runs share id %s", first.RunID)
	}
}

// ---------------------------------------------------------------------------
// 5. Mesh export.
// ---------------------------------------------------------------------------

func TestE2EMeshAllSteps(t *testing.T) {
	result := newTestApp(t).Mesh(readExample(t, "reference.mg"), -1, false)
	failOnErrors(t, result)

	if len(result.Meshes) != 3 {
		t.Fatalf("expected 3 hull meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.Name == "" || m.Color == "" {
			t.Errorf("mesh %d: missing name or color: %+v", i, m.Name)
		}
		if len(m.Vertices) == 0 || len(m.Normals) != len(m.Vertices) || len(m.Indices)*3 != len(m.Vertices) {
			t.Errorf("mesh %q: inconsistent buffers", m.Name)
		}
	}
	if result.Meshes[1].Name != "step-1/hull" || len(result.Meshes[1].Indices) != 24 {
		t.Errorf("octahedron mesh = %q with %d indices", result.Meshes[1].Name, len(result.Meshes[1].Indices))
	}
}

func TestE2EMeshSingleStepWithEnvelope(t *testing.T) {
	result := newTestApp(t).Mesh(readExample(t, "swelling.mg"), 1000, true)
	failOnErrors(t, result)

	if len(result.Meshes) != 2 {
		t.Fatalf("expected hull and envelope for step 1000, got %d meshes", len(result.Meshes))
	}
	if result.Meshes[0].Name != "step-1000/hull" || result.Meshes[1].Name != "step-1000/envelope-0" {
		t.Errorf("names = %q, %q", result.Meshes[0].Name, result.Meshes[1].Name)
	}
	if result.Meshes[0].Color == result.Meshes[1].Color {
		t.Error("meshes should get distinct colors")
	}
}

func TestE2EMeshDegenerateIsWarning(t *testing.T) {
	result := newTestApp(t).Mesh(readExample(t, "collapse.mg"), -1, false)
	failOnErrors(t, result)
	if len(result.Meshes) != 2 {
		t.Errorf("expected 2 hull meshes, got %d", len(result.Meshes))
	}
	if !containsMessage(result.Warnings, "step 20") {
		t.Errorf("expected a warning for step 20, got %v", result.Warnings)
	}
}

// ---------------------------------------------------------------------------
// 6. Rapid evaluation: no panics, clean recovery between error and success.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := newTestApp(t)

	sources := []string{
		cubeScript,
		`(snapshot`,
		``,
		`(sample (vec3 1 2 3) :count 4)`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		cubeScript,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(source)
		}()
	}

	result := app.Evaluate(cubeScript)
	failOnErrors(t, result)
}
