package sim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/config"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/trace"
	"github.com/Garsondee/Siege-Sense/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

func mustSim(t *testing.T, opts ...Option) *Sim {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("new sim: %v", err)
	}
	return s
}

func TestSim_TroopReachesWall(t *testing.T) {
	s := mustSim(t, WithWall(3, 3), WithTroopAt(mgl64.Vec2{0, 0}))
	wallCell := grid.Cell{X: 3, Y: 3}
	tick := -1
	for i := 0; i < 600; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("run: %v", err)
		}
		if pos := s.Snapshot().Troops[0].Pos; s.Grid.CellAt(pos) == wallCell {
			t.Fatalf("tick %d: troop entered the wall footprint at %v", s.CurrentTick(), pos)
		}
		if AllInRange(s) {
			tick = s.CurrentTick()
			break
		}
	}
	if tick < 0 {
		t.Fatalf("troop never reached attack range\n%s\n%s", Summary(s.Snapshot()), s.Log.Format())
	}
	if !s.Log.HasEntry("brain", "target", "wall") {
		t.Fatalf("expected a wall target note\n%s", s.Log.Format())
	}
	last, ok := s.Log.LastOf("state", "change")
	if !ok || !strings.Contains(last.Value, "in-range") {
		t.Fatalf("last state change = %+v", last)
	}
}

func TestSim_DemolishedTargetIsReplaced(t *testing.T) {
	s := mustSim(t,
		WithBuilding(0, 3, 1),
		WithWall(3, 0),
		WithTroop(0, 0),
	)
	s.RunTicks(1)
	b := s.Brains()[0]
	target, ok := b.Target()
	if k, _ := b.TargetKind(); !ok || k != grid.KindBuilding {
		t.Fatalf("expected the building first, got kind %s ok=%v", k, ok)
	}
	if err := s.World.Demolish(target); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	s.RunTicks(1)
	if k, ok := b.TargetKind(); !ok || k != grid.KindWall {
		t.Fatalf("expected fallback to the wall, got kind %s ok=%v", k, ok)
	}
	if s.Log.CountCategory("brain", "target_lost") == 0 {
		t.Fatalf("expected a target_lost note\n%s", s.Log.Format())
	}
}

func siegeOptions(workers int) []Option {
	cfg := agent.DefaultConfig()
	cfg.DetectionRange = 1000
	return []Option{
		WithAgentConfig(cfg),
		WithWorkers(workers),
		WithBuilding(4, 4, 2),
		WithWallLine(2, 2, 7, 2),
		WithTroop(0, 0),
		WithTroop(9, 0),
		WithTroop(0, 9),
		WithTroop(9, 9),
	}
}

func TestSim_ParallelMatchesSequential(t *testing.T) {
	seq := mustSim(t, siegeOptions(1)...)
	par := mustSim(t, siegeOptions(4)...)
	if err := seq.RunTicks(120); err != nil {
		t.Fatal(err)
	}
	if err := par.RunTicks(120); err != nil {
		t.Fatal(err)
	}
	a, b := seq.Snapshot(), par.Snapshot()
	if len(a.Troops) != 4 || len(b.Troops) != 4 {
		t.Fatalf("expected 4 troops each, got %d and %d", len(a.Troops), len(b.Troops))
	}
	for i := range a.Troops {
		if a.Troops[i].Pos != b.Troops[i].Pos || a.Troops[i].State != b.Troops[i].State {
			t.Fatalf("troop %d diverged: %+v vs %+v", i, a.Troops[i], b.Troops[i])
		}
	}
}

func TestNew_ReportsPlacementErrors(t *testing.T) {
	if _, err := New(WithBuilding(3, 3, 2), WithWall(4, 4)); !errors.Is(err, world.ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
	if _, err := New(WithWallLine(0, 0, 3, 3)); !errors.Is(err, world.ErrInvalidPlacement) {
		t.Fatalf("diagonal wall line should fail, got %v", err)
	}
	if _, err := New(WithWall(5, 5), WithTroop(5, 6)); !errors.Is(err, world.ErrSpawnBlocked) {
		t.Fatalf("expected ErrSpawnBlocked, got %v", err)
	}
}

func TestFromScenario_BuildsBoard(t *testing.T) {
	sc, err := config.Parse([]byte(`
name: breach
agent:
  detection_range: 400
structures:
  - kind: building
    cell: [6, 6]
    size: 2
  - kind: wall
    cell: [4, 4]
troops:
  - cell: [0, 0]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := FromScenario(sc, WithVerbose(true))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if s.Name() != "breach" || s.Grid.Len() != 5 || len(s.Brains()) != 1 {
		t.Fatalf("name=%q cells=%d brains=%d", s.Name(), s.Grid.Len(), len(s.Brains()))
	}
	if s.Brains()[0].Config().DetectionRange != 400 {
		t.Fatal("scenario tunables not passed to brains")
	}
	s.RunTicks(3)
	if s.Log.CountCategory("move", "position") != 3 {
		t.Fatalf("verbose run should log one position per tick, got %d", s.Log.CountCategory("move", "position"))
	}
}

func TestSim_TraceFrames(t *testing.T) {
	var buf bytes.Buffer
	w, err := trace.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	s := mustSim(t, WithTrace(w), WithWall(3, 3), WithTroopAt(mgl64.Vec2{0, 0}))
	if err := s.RunTicks(10); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := trace.NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	frames, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 10 || frames[9].Tick != 10 || frames[9].Structures != 1 {
		t.Fatalf("frames = %d, last %+v", len(frames), frames[len(frames)-1])
	}
	if frames[9].Troops[0].Target != "wall" {
		t.Fatalf("troop should be targeting the wall: %+v", frames[9].Troops[0])
	}
}

func TestRunBatch_StepsEverySim(t *testing.T) {
	var sims []*Sim
	for i := 0; i < 3; i++ {
		sims = append(sims, mustSim(t, siegeOptions(1)...))
	}
	if err := RunBatch(context.Background(), sims, 25, 2); err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, s := range sims {
		if s.CurrentTick() != 25 {
			t.Fatalf("sim %d at tick %d", i, s.CurrentTick())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RunBatch(ctx, sims, 5, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled batch should report context.Canceled, got %v", err)
	}
}

func TestLog_FiltersAndFormat(t *testing.T) {
	l := NewLog(false)
	l.Add(1, "T0", "brain", "target", "wall at {3 3}", 0)
	l.Add(2, "T1", "state", "change", "idle → moving", 0)
	l.AddVerbose(2, "T1", "move", "position", "(1,1)", 0)
	if len(l.Entries()) != 2 {
		t.Fatal("verbose entry recorded with verbose off")
	}
	if len(l.FilterTroop("T1")) != 1 || len(l.FilterTickRange(2, 2)) != 1 {
		t.Fatal("filters disagree")
	}
	if !l.HasEntry("brain", "", "wall") || l.HasEntry("brain", "", "tower") {
		t.Fatal("HasEntry substring match wrong")
	}
	if l.Len() != 2 || len(l.Since(1)) != 1 || l.Since(1)[0].Troop != "T1" || l.Since(5) != nil {
		t.Fatal("Since should return entries after the cursor in insertion order")
	}
	if out := l.Format(); !strings.Contains(out, "[T=001] T0") {
		t.Fatalf("unexpected format:\n%s", out)
	}
	if out := l.FormatRange(2, 9); strings.Contains(out, "T=001") || !strings.Contains(out, "[T=002] T1") {
		t.Fatalf("range format should keep only tick 2:\n%s", out)
	}
	if l.FormatRange(5, 9) != "" {
		t.Fatal("empty range should format to nothing")
	}
}

func TestFromScenario_BuiltinRuns(t *testing.T) {
	s, err := FromScenario(config.Builtin())
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	if len(s.Brains()) != 4 {
		t.Fatalf("expected 4 troops, got %d", len(s.Brains()))
	}
	if err := s.RunTicks(60); err != nil {
		t.Fatal(err)
	}
	for i, b := range s.Brains() {
		if _, ok := b.Target(); !ok {
			t.Fatalf("troop %d has no target", i)
		}
	}
	if !s.Log.HasEntry("brain", "retarget_wall", "") {
		t.Fatalf("the wall line should force at least one breach\n%s", s.Log.Format())
	}
}
