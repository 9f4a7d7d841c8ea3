// Package engine evaluates microgel scripts. It wraps zygomys in a
// sandboxed environment and produces a sim.Trajectory: the interaction
// model plus the particle snapshots the script declares.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/microgel/pkg/kernel"
	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/sim"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for script evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	kernel  kernel.Kernel
	timeout time.Duration
	log     logging.Logger

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation. Non-positive
// values keep DefaultEvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine whose shape builtins are backed by k.
func NewEngine(k kernel.Kernel, opts ...Option) *Engine {
	e := &Engine{kernel: k, timeout: DefaultEvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrNop(e.log).Named("engine")
	return e
}

// Timeout returns the evaluation time limit.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Evaluate runs a script and returns the trajectory it declares.
//
// Return semantics:
//   - On success: returns trajectory + nil errors + nil error
//   - On parse/eval failure: returns nil trajectory + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*sim.Trajectory, []EvalError, error) {
	gen := e.begin()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		t, evalErrs, err := e.evaluate(source)
		ch <- evalResult{trajectory: t, errors: evalErrs, err: err}
	}()

	t, evalErrs, err := e.await(ch, gen)
	switch {
	case err != nil:
		e.log.Error("evaluation failed", logging.Err(err))
	case len(evalErrs) > 0:
		e.log.Debug("script errors", logging.Int("count", len(evalErrs)), logging.String("first", evalErrs[0].Error()))
	default:
		e.log.Debug("script evaluated",
			logging.String("interaction", t.Interaction),
			logging.Int("snapshots", t.Len()),
			logging.Int("particles", t.ParticleCount()),
		)
	}
	return t, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*sim.Trajectory, []EvalError, error) {
	// Empty source is a valid program that produces an empty trajectory.
	if strings.TrimSpace(source) == "" {
		return sim.New(), nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	t := sim.New()
	registerBuiltins(env, e.kernel, t)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return t, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
