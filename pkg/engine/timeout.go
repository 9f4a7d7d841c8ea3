package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/sim"
)

// Scripts run on a worker goroutine so that a runaway script cannot hang
// the caller. Every Evaluate call opens a new generation; a trajectory that
// arrives after a newer call started belongs to a script nobody is waiting
// for and is dropped.

// DefaultEvalTimeout is the hard limit for a single evaluation unless
// WithTimeout overrides it.
const DefaultEvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned for a trajectory whose evaluation was
	// overtaken by a newer Evaluate call.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer request")
)

// evalResult carries an evaluation outcome out of the worker goroutine.
type evalResult struct {
	trajectory *sim.Trajectory
	errors     []EvalError
	err        error
}

// begin opens a new generation and returns its number.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await waits for the trajectory of generation gen on ch.
//
// On timeout the worker keeps running; ch must be buffered so that its late
// send does not block, and the result is never read.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*sim.Trajectory, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.isCurrent(gen) {
			e.log.Debug("dropping stale trajectory", logging.Int64("generation", int64(gen)))
			return nil, nil, ErrSuperseded
		}
		return res.trajectory, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}
