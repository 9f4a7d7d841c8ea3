// Package sim defines the trajectory model the analysis runs over: an
// interaction model name plus an ordered list of particle snapshots, as
// produced by evaluating a microgel script.
package sim

import (
	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/kernel"
)

// Snapshot is the particle configuration at one simulation step.
type Snapshot struct {
	Step      int64      `json:"step"`
	Positions []geom.Vec `json:"positions"`
}

// Envelope is a named solid that particles of a snapshot were sampled from.
type Envelope struct {
	Name  string       `json:"name"`
	Step  int64        `json:"step"`
	Solid kernel.Solid `json:"-"`
}

// Trajectory is the top-level data structure produced by script evaluation.
// It is never mutated after evaluation returns; each evaluation produces a
// new trajectory.
type Trajectory struct {
	Interaction string      `json:"interaction"`
	Snapshots   []*Snapshot `json:"snapshots"`
	Envelopes   []Envelope  `json:"-"`
}

// New creates an empty Trajectory.
func New() *Trajectory {
	return &Trajectory{}
}

// AddSnapshot appends a snapshot. Ordering is checked by Validate, not here.
func (t *Trajectory) AddSnapshot(s *Snapshot) {
	t.Snapshots = append(t.Snapshots, s)
}

// AddEnvelope records the solid a snapshot was sampled from.
func (t *Trajectory) AddEnvelope(e Envelope) {
	t.Envelopes = append(t.Envelopes, e)
}

// Lookup returns the first snapshot with the given step, or nil.
func (t *Trajectory) Lookup(step int64) *Snapshot {
	for _, s := range t.Snapshots {
		if s.Step == step {
			return s
		}
	}
	return nil
}

// Len returns the number of snapshots.
func (t *Trajectory) Len() int {
	return len(t.Snapshots)
}

// ParticleCount returns the total number of positions over all snapshots.
func (t *Trajectory) ParticleCount() int {
	n := 0
	for _, s := range t.Snapshots {
		n += len(s.Positions)
	}
	return n
}
