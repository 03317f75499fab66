package sim

import (
	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/trace"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

// Snapshot captures a lightweight state summary.
type Snapshot struct {
	Tick       int
	Structures int
	Troops     []TroopSnapshot
}

// TroopSnapshot is a lightweight copy of a troop's state at a tick.
type TroopSnapshot struct {
	Handle      ecs.Entity
	Label       string
	Pos         mgl64.Vec2
	State       agent.State
	HasTarget   bool
	TargetKind  grid.Kind
	TargetPoint mgl64.Vec2
	Waypoints   int
	Cursor      int
}

// Snapshot returns the current state of all troops.
func (s *Sim) Snapshot() Snapshot {
	snap := Snapshot{Tick: s.tick, Structures: len(s.World.Structures())}
	for _, t := range s.troops {
		pos, _ := s.World.Position(t.handle)
		tp, has := t.brain.TargetPoint()
		kind, _ := t.brain.TargetKind()
		snap.Troops = append(snap.Troops, TroopSnapshot{
			Handle:      t.handle,
			Label:       t.label,
			Pos:         pos,
			State:       t.brain.State(),
			HasTarget:   has,
			TargetKind:  kind,
			TargetPoint: tp,
			Waypoints:   len(t.brain.Path()),
			Cursor:      t.brain.Cursor(),
		})
	}
	return snap
}

// Frame converts the snapshot into a trace record.
func (snap Snapshot) Frame() trace.Frame {
	fr := trace.Frame{Tick: snap.Tick, Structures: snap.Structures}
	for i, tr := range snap.Troops {
		t := trace.Troop{
			Index:     i,
			X:         tr.Pos.X(),
			Y:         tr.Pos.Y(),
			State:     tr.State.String(),
			Waypoints: tr.Waypoints,
		}
		if tr.HasTarget {
			t.Target = tr.TargetKind.String()
			t.TargetX, t.TargetY = tr.TargetPoint.X(), tr.TargetPoint.Y()
		}
		fr.Troops = append(fr.Troops, t)
	}
	return fr
}
