package sim

import "github.com/chazu/microgel/pkg/geom"

// Replay walks a trajectory one snapshot at a time and exposes the current
// snapshot the way a running simulation would: the active interaction model
// and the particle positions. Call Next before the first read.
type Replay struct {
	t   *Trajectory
	cur int
}

// NewReplay returns a Replay positioned before the first snapshot.
func NewReplay(t *Trajectory) *Replay {
	return &Replay{t: t, cur: -1}
}

// Next advances to the following snapshot and reports whether one exists.
func (r *Replay) Next() bool {
	if r.t == nil || r.cur+1 >= len(r.t.Snapshots) {
		r.cur = len(r.snapshots())
		return false
	}
	r.cur++
	return true
}

// Interaction returns the trajectory's interaction model name.
func (r *Replay) Interaction() string {
	if r.t == nil {
		return ""
	}
	return r.t.Interaction
}

// Step returns the step of the current snapshot, or -1 outside the range.
func (r *Replay) Step() int64 {
	if s := r.current(); s != nil {
		return s.Step
	}
	return -1
}

// Positions returns the particle positions of the current snapshot. The
// slice is shared with the trajectory and must not be modified.
func (r *Replay) Positions() []geom.Vec {
	if s := r.current(); s != nil {
		return s.Positions
	}
	return nil
}

func (r *Replay) snapshots() []*Snapshot {
	if r.t == nil {
		return nil
	}
	return r.t.Snapshots
}

func (r *Replay) current() *Snapshot {
	snaps := r.snapshots()
	if r.cur < 0 || r.cur >= len(snaps) {
		return nil
	}
	return snaps[r.cur]
}
