package agent

import (
	"fmt"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/path"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

// Bodies resolves entity handles to positions. A handle that is no longer
// alive must report false from Alive; the brain never assumes it is notified.
type Bodies interface {
	Alive(e ecs.Entity) bool
	Position(e ecs.Entity) (mgl64.Vec2, bool)
	SetPosition(e ecs.Entity, p mgl64.Vec2)
}

// Journal receives short notes about decisions. It is optional.
type Journal interface {
	Note(agent ecs.Entity, key, detail string)
}

// State is the coarse phase of a brain, mostly for display and logging.
type State uint8

const (
	StateIdle    State = iota // no target in detection range
	StateMoving               // walking the cached path
	StateBlocked              // target set but no route to it
	StateInRange              // within attack range of the target point
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateBlocked:
		return "blocked"
	case StateInRange:
		return "in-range"
	default:
		return "unknown"
	}
}

// Brain drives one agent: it picks a target, plans a route and steps along it.
// A Brain is not safe for concurrent use; distinct brains may run in parallel
// against the same grid.
type Brain struct {
	cfg     Config
	agent   ecs.Entity
	bodies  Bodies
	grid    *grid.Grid
	planner *path.Planner
	journal Journal

	hasTarget   bool
	target      grid.Occupant
	targetPoint mgl64.Vec2

	route       path.Path
	cursor      int
	planVersion uint64
	state       State

	// atFace is set when the next step would enter the target's footprint.
	atFace bool
}

// New creates an unbound brain. Until Initialize is called every operation is
// a no-op.
func New(opts ...Option) *Brain {
	b := &Brain{cfg: DefaultConfig()}
	b.Configure(opts...)
	return b
}

// Initialize binds the brain to its agent, the body store and the grid.
func (b *Brain) Initialize(agent ecs.Entity, bodies Bodies, g *grid.Grid) {
	b.agent = agent
	b.bodies = bodies
	b.grid = g
	b.planner = nil
	if g != nil {
		b.planner = path.NewPlanner(g)
	}
	b.clearTarget()
}

// Configure applies options on top of the current tunables.
func (b *Brain) Configure(opts ...Option) {
	for _, o := range opts {
		o(&b.cfg)
	}
}

// SetJournal routes decision notes to j.
func (b *Brain) SetJournal(j Journal) { b.journal = j }

func (b *Brain) ready() bool {
	return b.bodies != nil && b.grid != nil && b.agent != (ecs.Entity{})
}

// Advance runs one tick of decision and motion.
func (b *Brain) Advance(delta float64) {
	if !b.ready() {
		return
	}
	pos, ok := b.bodies.Position(b.agent)
	if !ok {
		return
	}
	b.validateTarget()
	if !b.hasTarget {
		b.ReacquireTarget()
		return
	}
	if b.atFace || pos.Sub(b.targetPoint).Len() <= b.cfg.AttackRange {
		b.setState(StateInRange)
		return
	}
	if b.needsPlan() {
		b.plan(pos)
	}
	if len(b.route) == 0 {
		b.setState(StateBlocked)
		return
	}
	if !b.step(pos, delta) {
		b.atFace = true
		b.setState(StateInRange)
		return
	}
	b.setState(StateMoving)
}

// validateTarget drops a target whose handle died or whose footprint left or
// moved on the grid.
func (b *Brain) validateTarget() {
	if !b.hasTarget {
		return
	}
	if !b.bodies.Alive(b.target.Handle) {
		b.note("target_lost", "handle no longer alive")
		b.clearTarget()
		return
	}
	o, ok := b.grid.Footprint(b.target.Handle)
	if !ok || o.Origin != b.target.Origin {
		b.note("target_lost", "footprint removed or moved")
		b.clearTarget()
	}
}

func (b *Brain) needsPlan() bool {
	if len(b.route) == 0 || b.cursor >= len(b.route) {
		return true
	}
	if b.grid.Version() == b.planVersion {
		return false
	}
	blocked := false
	b.grid.Read(func(v grid.View) {
		for _, pt := range b.route[b.cursor:] {
			o, ok := v.Query(b.grid.CellAt(pt))
			if ok && o.IsWall() && o.Handle != b.target.Handle {
				blocked = true
				return
			}
		}
	})
	if !blocked {
		// Occupancy changed elsewhere; the route is still good.
		b.planVersion = b.grid.Version()
	}
	return blocked
}

func (b *Brain) plan(pos mgl64.Vec2) {
	b.planVersion = b.grid.Version()
	route := b.planner.AvoidWallsSmoothed(pos, b.targetPoint)
	if len(route) > b.cfg.MaxPathLength {
		wall, ok := b.planner.FirstWall(b.planner.IgnoreWalls(pos, b.targetPoint))
		if ok && wall.Handle != b.target.Handle {
			b.setTarget(wall, b.grid.FootprintCenter(wall))
			b.note("retarget_wall", fmt.Sprintf("detour of %d waypoints exceeds %d, breaching wall at %v",
				len(route), b.cfg.MaxPathLength, wall.Origin))
			route = b.planner.AvoidWallsSmoothed(pos, b.targetPoint)
		}
	}
	b.route = route
	b.cursor = 0
	switch {
	case len(route) > 0:
		b.note("plan", fmt.Sprintf("%d waypoints, %.1f long", len(route), path.Length(route)))
	case b.state != StateBlocked:
		// Blocked troops replan every tick; report the dead end once.
		b.note("no_path", fmt.Sprintf("target %v unreachable", b.target.Origin))
	}
}

// step moves toward the next waypoint. It returns false without moving when
// the move would put the agent inside the target's footprint.
func (b *Brain) step(pos mgl64.Vec2, delta float64) bool {
	wp := b.route[b.cursor]
	to := wp.Sub(pos)
	dist := to.Len()
	var vel mgl64.Vec2
	if dist > dirEpsilon {
		vel = to.Mul(b.cfg.Speed * delta / dist)
	}
	// Isometric rows are half as tall as columns are wide.
	vel[1] *= 0.5

	snap := dist < dirEpsilon || dist <= vel.Len()
	next := pos.Add(vel)
	if snap {
		next = wp
	}
	if b.insideTarget(next) {
		return false
	}
	b.bodies.SetPosition(b.agent, next)
	if snap {
		b.cursor++
		if b.cursor >= len(b.route) {
			b.route = nil
			b.cursor = 0
		}
	}
	return true
}

func (b *Brain) insideTarget(p mgl64.Vec2) bool {
	o, ok := b.grid.Query(b.grid.CellAt(p))
	return ok && o.Handle == b.target.Handle
}

// ReacquireTarget scans the grid for the nearest attack point within the
// detection range. Buildings always win over walls; walls are considered only
// when no building qualifies. Ties go to the occupant met first.
func (b *Brain) ReacquireTarget() {
	if !b.ready() {
		return
	}
	pos, ok := b.bodies.Position(b.agent)
	if !ok {
		return
	}
	occupants := b.grid.Occupants()
	for _, walls := range [2]bool{false, true} {
		var (
			best      grid.Occupant
			bestPoint mgl64.Vec2
			found     bool
		)
		bestDist := b.cfg.DetectionRange
		for _, o := range occupants {
			if o.IsWall() != walls {
				continue
			}
			pt := AttackPoint(b.grid, pos, o)
			if d := pos.Sub(pt).Len(); d < bestDist {
				best, bestPoint, bestDist, found = o, pt, d, true
			}
		}
		if found {
			if !b.hasTarget || best.Handle != b.target.Handle || bestPoint != b.targetPoint {
				b.setTarget(best, bestPoint)
				b.note("target", fmt.Sprintf("%s at %v, %.1f away", best.Kind, best.Origin, bestDist))
			}
			return
		}
	}
	if b.hasTarget {
		b.note("target_lost", "nothing in detection range")
	}
	b.clearTarget()
}

func (b *Brain) setTarget(o grid.Occupant, point mgl64.Vec2) {
	b.hasTarget = true
	b.target = o
	b.targetPoint = point
	b.route = nil
	b.cursor = 0
	b.atFace = false
}

func (b *Brain) clearTarget() {
	b.hasTarget = false
	b.target = grid.Occupant{}
	b.targetPoint = mgl64.Vec2{}
	b.route = nil
	b.cursor = 0
	b.atFace = false
	b.state = StateIdle
}

func (b *Brain) setState(s State) {
	if s != b.state {
		b.note("state", fmt.Sprintf("%s -> %s", b.state, s))
	}
	b.state = s
}

func (b *Brain) note(key, detail string) {
	if b.journal != nil {
		b.journal.Note(b.agent, key, detail)
	}
}

// DetourPreview returns the route the agent would take if it weighed walking
// around against stopping at the first obstruction, using MaxDetour.
func (b *Brain) DetourPreview() path.Path {
	if !b.ready() || !b.hasTarget {
		return nil
	}
	pos, ok := b.bodies.Position(b.agent)
	if !ok {
		return nil
	}
	return b.planner.ThroughObstacle(pos, b.targetPoint, b.cfg.MaxDetour)
}

// Agent returns the handle the brain steers.
func (b *Brain) Agent() ecs.Entity { return b.agent }

// Config returns the current tunables.
func (b *Brain) Config() Config { return b.cfg }

// Target returns the current target handle.
func (b *Brain) Target() (ecs.Entity, bool) { return b.target.Handle, b.hasTarget }

// TargetKind returns the kind of the current target.
func (b *Brain) TargetKind() (grid.Kind, bool) { return b.target.Kind, b.hasTarget }

// TargetPoint returns the screen point the agent is heading for.
func (b *Brain) TargetPoint() (mgl64.Vec2, bool) { return b.targetPoint, b.hasTarget }

// Path returns the cached route. Callers must not modify it.
func (b *Brain) Path() path.Path { return b.route }

// Cursor is the index of the next waypoint in Path.
func (b *Brain) Cursor() int { return b.cursor }

// PlanVersion is the grid version the cached route was last checked against.
func (b *Brain) PlanVersion() uint64 { return b.planVersion }

// State returns the current phase.
func (b *Brain) State() State { return b.state }

// InAttackRange reports whether the last tick ended in range of the target.
func (b *Brain) InAttackRange() bool { return b.state == StateInRange }
