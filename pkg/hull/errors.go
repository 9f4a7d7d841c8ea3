package hull

import (
	"errors"
	"fmt"
)

// ErrDegenerate is matched by every error reporting a point set that does not
// span three dimensions.
var ErrDegenerate = errors.New("hull: degenerate point set")

// ErrNonFinite is returned when an input coordinate is NaN or infinite.
var ErrNonFinite = errors.New("hull: non-finite coordinate")

// DegeneracyError describes why no hull could be built.
type DegeneracyError struct {
	Reason string // "too few points", "coincident", "collinear", "coplanar"
	Points int    // size of the input
}

func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("hull: degenerate point set (%d points): %s", e.Points, e.Reason)
}

// Is makes errors.Is(err, ErrDegenerate) succeed.
func (e *DegeneracyError) Is(target error) bool {
	return target == ErrDegenerate
}

func degenerate(reason string, n int) error {
	return &DegeneracyError{Reason: reason, Points: n}
}
