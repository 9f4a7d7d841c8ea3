package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/kernel"
	"github.com/chazu/microgel/pkg/sample"
	"github.com/chazu/microgel/pkg/sim"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites microgel script source into something zygomys
// accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user variables.
//  2. Kebab-case identifiers become snake case (cube-corners ->
//     cube_corners); zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// ; and ;; comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is never a minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec geom.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid so it can flow between shape builtins.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpCloud wraps a particle cloud. source is the solid the cloud was
// sampled from, moved along with the cloud, or nil for generated shapes.
type sexpCloud struct {
	points []geom.Vec
	source kernel.Solid
}

func (c *sexpCloud) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cloud %d)", len(c.points))
}
func (c *sexpCloud) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number returns the keyword argument key, or else positional argument
// pos, as a float64. ok is false when neither is present.
func (a kwArgs) number(key string, pos int) (v float64, ok bool, err error) {
	s, found := a.kw[key]
	if !found {
		if pos < 0 || pos >= len(a.positional) {
			return 0, false, nil
		}
		s = a.positional[pos]
	}
	v, err = toFloat64(s)
	return v, true, err
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt64 extracts an integer. Floats are rejected rather than truncated.
func toInt64(s zygo.Sexp) (int64, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// appendPositions flattens vec3s, clouds and lists of either into dst.
// Clouds with a source solid are also reported through envelope.
func appendPositions(dst []geom.Vec, s zygo.Sexp, envelope func(kernel.Solid)) ([]geom.Vec, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return append(dst, v.vec), nil
	case *sexpCloud:
		if v.source != nil {
			envelope(v.source)
		}
		return append(dst, v.points...), nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected vec3, cloud or list, got %T (%s)", s, s.SexpString(nil))
	}
	for _, item := range items {
		if dst, err = appendPositions(dst, item, envelope); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder accumulates the trajectory while a script runs.
type builder struct {
	k        kernel.Kernel
	t        *sim.Trajectory
	nextStep int64
}

// registerBuiltins installs all microgel DSL builtins into a zygomys
// environment. The builtins populate t during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, t *sim.Trajectory) {
	b := &builder{k: k, t: t}

	env.AddFunction("interaction", b.interaction)
	env.AddFunction("vec3", b.vec3)
	env.AddFunction("sphere", b.sphere)
	env.AddFunction("box", b.box)
	env.AddFunction("ellipsoid", b.ellipsoid)
	env.AddFunction("translate", b.translate)
	env.AddFunction("rotate", b.rotate)
	env.AddFunction("union", b.combine(k.Union))
	env.AddFunction("intersection", b.combine(k.Intersection))
	env.AddFunction("difference", b.combine(k.Difference))
	env.AddFunction("sample", b.sample)
	env.AddFunction("fibonacci_sphere", b.fibonacciSphere)
	env.AddFunction("cube_corners", b.cubeCorners)
	env.AddFunction("points", b.points)
	env.AddFunction("snapshot", b.snapshot)
}

// (interaction "MGInteraction")
func (b *builder) interaction(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("interaction requires exactly 1 argument, got %d", len(args))
	}
	s, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("interaction: %w", err)
	}
	b.t.Interaction = s
	return &zygo.SexpStr{S: s}, nil
}

// (vec3 1 2 3)
func (b *builder) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(args[i])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: geom.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (sphere 5) or (sphere :radius 5)
func (b *builder) sphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	r, ok, err := pa.number("radius", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
	}
	if !ok {
		return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
	}
	s, err := b.k.Sphere(r)
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("sphere %g", r)}, nil
}

// (box 2 3 4) or (box :x 2 :y 3 :z 4)
func (b *builder) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var d [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		v, ok, err := pa.number(axis, i)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %s: %w", axis, err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box requires x, y and z edge lengths")
		}
		d[i] = v
	}
	s, err := b.k.Box(d[0], d[1], d[2])
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("box %g %g %g", d[0], d[1], d[2])}, nil
}

// (ellipsoid 3 2 1) or (ellipsoid :a 3 :b 2 :c 1)
func (b *builder) ellipsoid(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var d [3]float64
	for i, axis := range []string{"a", "b", "c"} {
		v, ok, err := pa.number(axis, i)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ellipsoid: %s: %w", axis, err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("ellipsoid requires semi-axes a, b and c")
		}
		d[i] = v
	}
	s, err := b.k.Ellipsoid(d[0], d[1], d[2])
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpSolid{solid: s, desc: fmt.Sprintf("ellipsoid %g %g %g", d[0], d[1], d[2])}, nil
}

// (translate x (vec3 1 0 0)) where x is a solid, a cloud or a vec3.
func (b *builder) translate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("translate requires a target and an offset")
	}
	d, err := toVec3(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
	}
	switch v := args[0].(type) {
	case *sexpSolid:
		return &sexpSolid{solid: b.k.Translate(v.solid, d.X, d.Y, d.Z), desc: "translate " + v.desc}, nil
	case *sexpCloud:
		c := &sexpCloud{points: geom.Translate(v.points, d)}
		if v.source != nil {
			c.source = b.k.Translate(v.source, d.X, d.Y, d.Z)
		}
		return c, nil
	case *sexpVec3:
		return &sexpVec3{vec: v.vec.Add(d)}, nil
	}
	return zygo.SexpNull, fmt.Errorf("translate: expected solid, cloud or vec3, got %T (%s)", args[0], args[0].SexpString(nil))
}

// (rotate x (vec3 0 0 90)) with Euler angles in degrees, applied X then Y
// then Z.
func (b *builder) rotate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("rotate requires a target and Euler angles")
	}
	a, err := toVec3(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("rotate: angles: %w", err)
	}
	switch v := args[0].(type) {
	case *sexpSolid:
		return &sexpSolid{solid: b.k.Rotate(v.solid, a.X, a.Y, a.Z), desc: "rotate " + v.desc}, nil
	case *sexpCloud:
		c := &sexpCloud{points: geom.Transform(v.points, geom.Rotation(a.X, a.Y, a.Z))}
		if v.source != nil {
			c.source = b.k.Rotate(v.source, a.X, a.Y, a.Z)
		}
		return c, nil
	case *sexpVec3:
		return &sexpVec3{vec: geom.Rotation(a.X, a.Y, a.Z).MulPosition(v.vec)}, nil
	}
	return zygo.SexpNull, fmt.Errorf("rotate: expected solid, cloud or vec3, got %T (%s)", args[0], args[0].SexpString(nil))
}

// combine builds (union a b ...), (intersection a b ...) and
// (difference a b ...). Extra operands fold left.
func (b *builder) combine(op func(a, b kernel.Solid) kernel.Solid) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", name, len(args))
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: operand 1: %w", name, err)
		}
		for i, arg := range args[1:] {
			s, err := toSolid(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", name, i+2, err)
			}
			acc = op(acc, s)
		}
		return &sexpSolid{solid: acc, desc: fmt.Sprintf("%s of %d", name, len(args))}, nil
	}
}

// (sample solid :count 500 :seed 1)
func (b *builder) sample(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("sample requires exactly one solid")
	}
	s, err := toSolid(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sample: %w", err)
	}
	v, ok := pa.kw["count"]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("sample requires :count")
	}
	n, err := toInt64(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sample: count: %w", err)
	}
	var seed int64
	if v, ok := pa.kw["seed"]; ok {
		if seed, err = toInt64(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: seed: %w", err)
		}
	}
	pts, err := sample.Uniform(s, int(n), seed)
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpCloud{points: pts, source: s}, nil
}

// (fibonacci-sphere :count 200 :radius 5)
func (b *builder) fibonacciSphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	v, ok := pa.kw["count"]
	if !ok && len(pa.positional) > 0 {
		v, ok = pa.positional[0], true
	}
	if !ok {
		return zygo.SexpNull, fmt.Errorf("fibonacci-sphere requires :count")
	}
	n, err := toInt64(v)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("fibonacci-sphere: count: %w", err)
	}
	if n <= 0 {
		return zygo.SexpNull, fmt.Errorf("fibonacci-sphere: count must be positive, got %d", n)
	}
	r := 1.0
	if v, ok := pa.kw["radius"]; ok {
		if r, err = toFloat64(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("fibonacci-sphere: radius: %w", err)
		}
	}
	return &sexpCloud{points: sample.FibonacciSphere(int(n), r)}, nil
}

// (cube-corners 2) or (cube-corners :side 2)
func (b *builder) cubeCorners(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	side, ok, err := pa.number("side", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cube-corners: side: %w", err)
	}
	if !ok {
		return zygo.SexpNull, fmt.Errorf("cube-corners requires a side length")
	}
	return &sexpCloud{points: sample.CubeCorners(side)}, nil
}

// (points (vec3 0 0 0) (vec3 1 0 0) ...)
func (b *builder) points(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	var pts []geom.Vec
	for i, arg := range args {
		v, err := toVec3(arg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("points: entry %d: %w", i+1, err)
		}
		pts = append(pts, v)
	}
	return &sexpCloud{points: pts}, nil
}

// (snapshot :step 100 cloud (vec3 0 0 0) ...)
//
// Without :step the snapshot follows the previous one. Returns the step.
func (b *builder) snapshot(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	step := b.nextStep
	if v, ok := pa.kw["step"]; ok {
		s, err := toInt64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("snapshot: step: %w", err)
		}
		step = s
	}

	var sources []kernel.Solid
	var positions []geom.Vec
	for i, arg := range pa.positional {
		var err error
		positions, err = appendPositions(positions, arg, func(s kernel.Solid) { sources = append(sources, s) })
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("snapshot: entry %d: %w", i+1, err)
		}
	}

	b.t.AddSnapshot(&sim.Snapshot{Step: step, Positions: positions})
	for i, s := range sources {
		b.t.AddEnvelope(sim.Envelope{Name: fmt.Sprintf("step-%d/envelope-%d", step, i), Step: step, Solid: s})
	}
	b.nextStep = step + 1
	return &zygo.SexpInt{Val: step}, nil
}
