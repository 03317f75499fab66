// Package sim drives brains over a shared battlefield one tick at a time.
// It has no Ebiten dependency; the viewer, the terminal renderer and the
// headless tools all run battles through it.
package sim

import (
	"context"
	"fmt"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/config"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/trace"
	"github.com/Garsondee/Siege-Sense/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
	"golang.org/x/sync/errgroup"
)

// Sim is one battle: a grid, the entities on it and a brain per troop.
type Sim struct {
	Grid  *grid.Grid
	World *world.Registry
	Log   *Log

	name     string
	gridCfg  grid.Config
	agentCfg agent.Config
	delta    float64
	workers  int
	tracer   *trace.Writer

	troops []troop
	labels map[ecs.Entity]string
	tick   int
	err    error // first construction error
}

type troop struct {
	handle ecs.Entity
	label  string
	brain  *agent.Brain
}

// optionKind controls the pass in which an option is applied.
type optionKind int

const (
	optInfra     optionKind = iota // board, tunables, logging: applied first
	optStructure                   // buildings and walls: applied once the grid exists
	optTroop                       // troops: applied after structures so spawn checks see them
)

// Option is a builder function applied to a Sim during construction.
type Option struct {
	kind optionKind
	fn   func(*Sim)
}

// WithName labels the run in reports.
func WithName(name string) Option {
	return Option{optInfra, func(s *Sim) { s.name = name }}
}

// WithGrid sets the board geometry.
func WithGrid(cfg grid.Config) Option {
	return Option{optInfra, func(s *Sim) { s.gridCfg = cfg }}
}

// WithAgentConfig sets the tunables given to every troop's brain.
func WithAgentConfig(cfg agent.Config) Option {
	return Option{optInfra, func(s *Sim) { s.agentCfg = cfg }}
}

// WithDelta sets the seconds advanced per tick.
func WithDelta(d float64) Option {
	return Option{optInfra, func(s *Sim) { s.delta = d }}
}

// WithVerbose enables per-tick position logging.
func WithVerbose(v bool) Option {
	return Option{optInfra, func(s *Sim) { s.Log = NewLog(v) }}
}

// WithWorkers ticks brains on up to n goroutines. 1 keeps ticks sequential.
func WithWorkers(n int) Option {
	return Option{optInfra, func(s *Sim) { s.workers = n }}
}

// WithTrace writes a frame per tick to w. The caller closes w.
func WithTrace(w *trace.Writer) Option {
	return Option{optInfra, func(s *Sim) { s.tracer = w }}
}

// WithBuilding places a size×size building at a cell.
func WithBuilding(x, y, size int) Option {
	return Option{optStructure, func(s *Sim) {
		if _, err := s.World.PlaceBuilding(grid.Cell{X: x, Y: y}, size); err != nil {
			s.fail(err)
		}
	}}
}

// WithWall places a wall at a cell.
func WithWall(x, y int) Option {
	return Option{optStructure, func(s *Sim) {
		if _, err := s.World.PlaceWall(grid.Cell{X: x, Y: y}); err != nil {
			s.fail(err)
		}
	}}
}

// WithWallLine places walls on every cell from (x0,y0) to (x1,y1) along one
// row or column.
func WithWallLine(x0, y0, x1, y1 int) Option {
	return Option{optStructure, func(s *Sim) {
		if x0 != x1 && y0 != y1 {
			s.fail(fmt.Errorf("%w: wall line (%d,%d)-(%d,%d) is not straight", world.ErrInvalidPlacement, x0, y0, x1, y1))
			return
		}
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			for y := min(y0, y1); y <= max(y0, y1); y++ {
				if _, err := s.World.PlaceWall(grid.Cell{X: x, Y: y}); err != nil {
					s.fail(err)
					return
				}
			}
		}
	}}
}

// WithTroopAt spawns a troop at a screen point.
func WithTroopAt(p mgl64.Vec2) Option {
	return Option{optTroop, func(s *Sim) {
		if _, err := s.AddTroop(p); err != nil {
			s.fail(err)
		}
	}}
}

// WithTroop spawns a troop at the centre of a cell.
func WithTroop(x, y int) Option {
	return Option{optTroop, func(s *Sim) {
		if _, err := s.AddTroop(s.Grid.CellCenter(grid.Cell{X: x, Y: y})); err != nil {
			s.fail(err)
		}
	}}
}

func (s *Sim) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// New constructs a Sim from the given options in three ordered passes:
//  1. Infrastructure (board, tunables, logging)
//  2. Structures
//  3. Troops
//
// The first placement or spawn failure is returned.
func New(opts ...Option) (*Sim, error) {
	s := &Sim{
		Log:      NewLog(false),
		gridCfg:  grid.DefaultConfig(),
		agentCfg: agent.DefaultConfig(),
		delta:    1.0 / 60,
		workers:  1,
		labels:   make(map[ecs.Entity]string),
	}
	for _, o := range opts {
		if o.kind == optInfra {
			o.fn(s)
		}
	}
	s.Grid = grid.New(s.gridCfg)
	s.World = world.New(s.Grid)
	for _, kind := range []optionKind{optStructure, optTroop} {
		for _, o := range opts {
			if o.kind == kind {
				o.fn(s)
			}
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// FromScenario builds a Sim from a loaded scenario. extra options are applied
// after the scenario's own.
func FromScenario(sc config.Scenario, extra ...Option) (*Sim, error) {
	opts := []Option{
		WithName(sc.Name),
		WithGrid(sc.Board.Grid()),
		WithAgentConfig(sc.Agent),
		WithDelta(sc.Delta),
	}
	for _, st := range sc.Structures {
		st := st
		opts = append(opts, Option{optStructure, func(s *Sim) {
			if _, err := s.World.Place(st.GridKind(), st.Origin(), st.Size); err != nil {
				s.fail(err)
			}
		}})
	}
	for _, tr := range sc.Troops {
		opts = append(opts, WithTroop(tr.Cell[0], tr.Cell[1]))
	}
	s, err := New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return s, nil
}

// AddTroop spawns a troop and gives it a brain.
func (s *Sim) AddTroop(at mgl64.Vec2) (ecs.Entity, error) {
	e, err := s.World.SpawnTroop(at)
	if err != nil {
		return ecs.Entity{}, err
	}
	label := fmt.Sprintf("T%d", len(s.troops))
	b := agent.New(agent.WithConfig(s.agentCfg))
	b.Initialize(e, s.World, s.Grid)
	b.SetJournal(journal{s})
	s.troops = append(s.troops, troop{handle: e, label: label, brain: b})
	s.labels[e] = label
	s.Log.Add(s.tick, label, "world", "spawn", fmt.Sprintf("at (%.1f,%.1f)", at.X(), at.Y()), 0)
	return e, nil
}

// journal routes brain notes into the sim log.
type journal struct{ s *Sim }

func (j journal) Note(e ecs.Entity, key, detail string) {
	label, ok := j.s.labels[e]
	if !ok {
		label = "--"
	}
	j.s.Log.Add(j.s.tick, label, "brain", key, detail, 0)
}

// Name returns the run label.
func (s *Sim) Name() string { return s.name }

// Delta returns the seconds advanced per tick.
func (s *Sim) Delta() float64 { return s.delta }

// AgentConfig returns the tunables new troops receive.
func (s *Sim) AgentConfig() agent.Config { return s.agentCfg }

// CurrentTick returns the current simulation tick.
func (s *Sim) CurrentTick() int { return s.tick }

// Brains returns the brains in spawn order.
func (s *Sim) Brains() []*agent.Brain {
	out := make([]*agent.Brain, len(s.troops))
	for i, t := range s.troops {
		out[i] = t.brain
	}
	return out
}

// Troop looks up a troop by log label.
func (s *Sim) Troop(label string) (ecs.Entity, *agent.Brain, bool) {
	for _, t := range s.troops {
		if t.label == label {
			return t.handle, t.brain, true
		}
	}
	return ecs.Entity{}, nil, false
}

// Label returns the log label of a troop.
func (s *Sim) Label(e ecs.Entity) string {
	if l, ok := s.labels[e]; ok {
		return l
	}
	return "--"
}

// Step advances every brain by one tick.
func (s *Sim) Step() error {
	s.tick++
	prev := make([]agent.State, len(s.troops))
	for i, t := range s.troops {
		prev[i] = t.brain.State()
	}

	if s.workers > 1 && len(s.troops) > 1 {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for _, t := range s.troops {
			b := t.brain
			g.Go(func() error {
				b.Advance(s.delta)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, t := range s.troops {
			t.brain.Advance(s.delta)
		}
	}

	for i, t := range s.troops {
		if st := t.brain.State(); st != prev[i] {
			s.Log.Add(s.tick, t.label, "state", "change", fmt.Sprintf("%s → %s", prev[i], st), 0)
		}
		if s.Log.Verbose() {
			if p, ok := s.World.Position(t.handle); ok {
				s.Log.AddVerbose(s.tick, t.label, "move", "position", fmt.Sprintf("(%.1f,%.1f)", p.X(), p.Y()), 0)
			}
		}
	}

	if s.tracer != nil {
		if err := s.tracer.Write(s.Snapshot().Frame()); err != nil {
			return fmt.Errorf("trace tick %d: %w", s.tick, err)
		}
	}
	return nil
}

// RunTicks advances the simulation n ticks.
func (s *Sim) RunTicks(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntil advances the simulation up to maxTicks, stopping early if predicate
// returns true. Returns the tick at which the predicate was satisfied, or -1.
func (s *Sim) RunUntil(predicate func(*Sim) bool, maxTicks int) (int, error) {
	for i := 0; i < maxTicks; i++ {
		if err := s.Step(); err != nil {
			return -1, err
		}
		if predicate(s) {
			return s.tick, nil
		}
	}
	return -1, nil
}

// AllInRange reports whether every troop ended the last tick in attack range.
func AllInRange(s *Sim) bool {
	if len(s.troops) == 0 {
		return false
	}
	for _, t := range s.troops {
		if !t.brain.InAttackRange() {
			return false
		}
	}
	return true
}

// RunBatch runs each sim for ticks steps on its own goroutine, at most
// workers at a time. The first error cancels the rest.
func RunBatch(ctx context.Context, sims []*Sim, ticks, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, s := range sims {
		s := s
		g.Go(func() error {
			for i := 0; i < ticks; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.Step(); err != nil {
					return fmt.Errorf("%s: %w", s.name, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
