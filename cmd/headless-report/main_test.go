package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/Garsondee/Siege-Sense/internal/trace"
	"github.com/go-gl/mathgl/mgl64"
)

func TestFirstTick_MatchesTroopAndSubstring(t *testing.T) {
	entries := []sim.LogEntry{
		{Tick: 2, Troop: "T1", Category: "state", Key: "change", Value: "idle → moving"},
		{Tick: 5, Troop: "T0", Category: "state", Key: "change", Value: "moving → in-range"},
		{Tick: 9, Troop: "T1", Category: "state", Key: "change", Value: "moving → in-range"},
	}
	if got := firstTick(entries, "T1", "state", "change", "→ in-range"); got != 9 {
		t.Fatalf("expected tick 9, got %d", got)
	}
	if got := firstTick(entries, "T2", "state", "change", ""); got != -1 {
		t.Fatalf("unknown troop should give -1, got %d", got)
	}
}

func TestRunLog_TailLimitsTicks(t *testing.T) {
	s, err := sim.New(sim.WithName("tail"), sim.WithWall(3, 3), sim.WithTroop(0, 0), sim.WithVerbose(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RunTicks(10); err != nil {
		t.Fatal(err)
	}
	tail := runLog(s, 2)
	if !strings.Contains(tail, "[T=010]") || !strings.Contains(tail, "[T=009]") || strings.Contains(tail, "[T=008]") {
		t.Fatalf("tail of 2 should cover ticks 9 and 10 only:\n%s", tail)
	}
	if full := runLog(s, 0); !strings.Contains(full, "[T=001]") {
		t.Fatalf("no tail should print the whole log:\n%s", full)
	}
}

func TestOutcome_Classification(t *testing.T) {
	cases := []struct {
		ts   troopStats
		want string
	}{
		{troopStats{firstTargetTick: -1}, "idle"},
		{troopStats{firstTargetTick: 1, final: agent.StateInRange, finalTarget: "wall"}, "breaching"},
		{troopStats{firstTargetTick: 1, final: agent.StateInRange, finalTarget: "building"}, "assaulting"},
		{troopStats{firstTargetTick: 1, final: agent.StateBlocked, noPath: 3}, "stuck"},
		{troopStats{firstTargetTick: 1, final: agent.StateMoving, noPath: 3}, "en-route"},
	}
	for _, c := range cases {
		if got := outcome(c.ts); got != c.want {
			t.Fatalf("outcome(%+v) = %s, want %s", c.ts, got, c.want)
		}
	}
}

func TestCollectStats_WallRun(t *testing.T) {
	s, err := sim.New(sim.WithName("wall"), sim.WithWall(3, 3), sim.WithTroopAt(mgl64.Vec2{0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunUntil(sim.AllInRange, 600); err != nil {
		t.Fatal(err)
	}
	rs := collectStats(1, s)
	if len(rs.troops) != 1 {
		t.Fatalf("expected one troop, got %d", len(rs.troops))
	}
	ts := rs.troops[0]
	if ts.firstTargetTick != 1 || ts.inRangeTick < 0 || rs.allInRangeTick != ts.inRangeTick {
		t.Fatalf("unexpected stats %+v (run %+v)", ts, rs)
	}
	if outcome(ts) != "breaching" {
		t.Fatalf("expected breaching, got %s", outcome(ts))
	}
}

func TestRun_BuiltinWithTrace(t *testing.T) {
	stdout := os.Stdout
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err == nil {
		os.Stdout = devnull
		defer func() { os.Stdout = stdout; devnull.Close() }()
	}

	p := filepath.Join(t.TempDir(), "run.jsonl.zst")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(logger, nil, 30, 2, 2, p, false, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	r, err := trace.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	frames, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 30 || len(frames[0].Troops) != 4 {
		t.Fatalf("expected 30 frames of 4 troops, got %d", len(frames))
	}
}

func TestRun_RejectsTraceWithSeveralScenarios(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	if err := os.WriteFile(a, []byte("name: a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(logger, []string{a, a}, 5, 1, 1, filepath.Join(dir, "t.zst"), false, 0); err == nil {
		t.Fatal("expected an error for -trace with two scenarios")
	}
}
