package sim

import (
	"fmt"

	"github.com/chazu/microgel/pkg/geom"
)

// MinHullPoints is the smallest snapshot a convex hull can be built from.
const MinHullPoints = 4

// ValidationSeverity indicates whether a validation finding blocks analysis
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks analysis
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Step     int64              // which snapshot has the problem, -1 if trajectory-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] step %d: %s", e.Severity, e.Step, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Step    int64
	Message string
}

func (w ValidationWarning) String() string {
	if w.Step < 0 {
		return w.Message
	}
	return fmt.Sprintf("step %d: %s", w.Step, w.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural checks on a trajectory and returns the
// findings. An empty slice means the trajectory is valid. Validate is
// read-only and never mutates the trajectory.
func Validate(t *Trajectory) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNotEmpty(t)...)
	errs = append(errs, validateSteps(t)...)
	errs = append(errs, validateInteraction(t)...)
	return errs
}

// ValidateAll runs all validation tiers (structural, per-snapshot geometry)
// and returns a ValidationResult with separated errors and warnings.
func ValidateAll(t *Trajectory) ValidationResult {
	tier1 := Validate(t)
	tier2Errs, tier2Warnings := validatePositions(t)

	var result ValidationResult
	for _, e := range tier1 {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Step:    e.Step,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	result.Errors = append(result.Errors, tier2Errs...)
	result.Warnings = append(result.Warnings, tier2Warnings...)
	return result
}

func validateNotEmpty(t *Trajectory) []ValidationError {
	if t == nil || len(t.Snapshots) == 0 {
		return []ValidationError{{
			Step:     -1,
			Message:  "trajectory has no snapshots",
			Severity: SeverityWarning,
		}}
	}
	return nil
}

// validateSteps rejects duplicate steps and warns about steps that do not
// increase.
func validateSteps(t *Trajectory) []ValidationError {
	if t == nil {
		return nil
	}
	var errs []ValidationError
	seen := make(map[int64]bool, len(t.Snapshots))
	for i, s := range t.Snapshots {
		if seen[s.Step] {
			errs = append(errs, ValidationError{
				Step:     s.Step,
				Message:  "duplicate step",
				Severity: SeverityError,
			})
			continue
		}
		seen[s.Step] = true
		if s.Step < 0 {
			errs = append(errs, ValidationError{
				Step:     s.Step,
				Message:  "step must not be negative",
				Severity: SeverityError,
			})
		}
		if i > 0 && s.Step < t.Snapshots[i-1].Step {
			errs = append(errs, ValidationError{
				Step:     s.Step,
				Message:  fmt.Sprintf("step decreases after step %d", t.Snapshots[i-1].Step),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateInteraction(t *Trajectory) []ValidationError {
	if t == nil || t.Interaction != "" {
		return nil
	}
	return []ValidationError{{
		Step:     -1,
		Message:  "no interaction model declared",
		Severity: SeverityWarning,
	}}
}

// validatePositions checks each snapshot for non-finite coordinates (error)
// and for too few particles to span a hull (warning).
func validatePositions(t *Trajectory) ([]ValidationError, []ValidationWarning) {
	if t == nil {
		return nil, nil
	}
	var errs []ValidationError
	var warnings []ValidationWarning
	for _, s := range t.Snapshots {
		for i, p := range s.Positions {
			if !geom.IsFinite(p) {
				errs = append(errs, ValidationError{
					Step:     s.Step,
					Message:  fmt.Sprintf("particle %d has a non-finite coordinate", i),
					Severity: SeverityError,
				})
				break
			}
		}
		if len(s.Positions) < MinHullPoints {
			warnings = append(warnings, ValidationWarning{
				Step:    s.Step,
				Message: fmt.Sprintf("%d particles, a hull needs at least %d", len(s.Positions), MinHullPoints),
			})
		}
	}
	return errs, warnings
}
