package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/config"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/Garsondee/Siege-Sense/internal/trace"
)

type troopStats struct {
	label string

	firstTargetTick int
	inRangeTick     int

	retargets  int
	targetLost int
	noPath     int

	final       agent.State
	finalTarget string
	waypoints   int
}

type runStats struct {
	runIndex int
	name     string
	ticks    int

	allInRangeTick int
	stateChanges   int
	troops         []troopStats
}

func main() {
	var ticks int
	var workers int
	var brainWorkers int
	var tracePath string
	var verbose bool
	var logTail int

	flag.IntVar(&ticks, "ticks", 0, "ticks per run (0: each scenario's own length)")
	flag.IntVar(&workers, "workers", 4, "scenarios simulated concurrently")
	flag.IntVar(&brainWorkers, "brain-workers", 1, "goroutines ticking brains inside one run")
	flag.StringVar(&tracePath, "trace", "", "write a zstd JSONL tick trace (single scenario only)")
	flag.BoolVar(&verbose, "verbose", false, "record per-tick positions and print the run log")
	flag.IntVar(&logTail, "log-tail", 0, "with -verbose, print only the log of the last N ticks (0: all)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: headless-report [flags] [scenario.yaml ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger, flag.Args(), ticks, workers, brainWorkers, tracePath, verbose, logTail); err != nil {
		logger.Error("headless report failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, paths []string, ticks, workers, brainWorkers int, tracePath string, verbose bool, logTail int) error {
	if ticks < 0 {
		return fmt.Errorf("-ticks must be >= 0")
	}
	if logTail < 0 {
		return fmt.Errorf("-log-tail must be >= 0")
	}
	scenarios, err := loadScenarios(paths)
	if err != nil {
		return err
	}
	if tracePath != "" && len(scenarios) != 1 {
		return fmt.Errorf("-trace needs exactly one scenario, got %d", len(scenarios))
	}

	var tw *trace.Writer
	if tracePath != "" {
		if tw, err = trace.Create(tracePath); err != nil {
			return err
		}
	}

	sims := make([]*sim.Sim, len(scenarios))
	for i, sc := range scenarios {
		opts := []sim.Option{sim.WithVerbose(verbose), sim.WithWorkers(brainWorkers)}
		if tw != nil {
			opts = append(opts, sim.WithTrace(tw))
		}
		if sims[i], err = sim.FromScenario(sc, opts...); err != nil {
			return err
		}
	}

	n := ticks
	if n == 0 {
		n = scenarios[0].Ticks
		for _, sc := range scenarios[1:] {
			n = max(n, sc.Ticks)
		}
	}
	logger.Info("running", "scenarios", len(sims), "ticks", n, "workers", workers, "brain_workers", brainWorkers)
	batchErr := sim.RunBatch(context.Background(), sims, n, workers)
	if tw != nil {
		if err := tw.Close(); err != nil && batchErr == nil {
			batchErr = err
		}
		logger.Info("trace written", "path", tracePath)
	}
	if batchErr != nil {
		return batchErr
	}

	fmt.Printf("=== Headless Siege Report ===\n")
	fmt.Printf("scenarios=%d ticks=%d\n\n", len(sims), n)
	all := make([]runStats, 0, len(sims))
	for i, s := range sims {
		rs := collectStats(i+1, s)
		all = append(all, rs)
		printRun(rs)
		if verbose {
			fmt.Print(runLog(s, logTail))
			fmt.Println()
		}
	}
	printAggregate(all)
	return nil
}

// runLog formats the log of s, limited to its last tail ticks when tail > 0.
func runLog(s *sim.Sim, tail int) string {
	if tail <= 0 {
		return s.Log.Format()
	}
	to := s.CurrentTick()
	return s.Log.FormatRange(max(0, to-tail+1), to)
}

func loadScenarios(paths []string) ([]config.Scenario, error) {
	if len(paths) == 0 {
		return []config.Scenario{config.Builtin()}, nil
	}
	out := make([]config.Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := config.Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func collectStats(runIndex int, s *sim.Sim) runStats {
	entries := s.Log.Entries()
	rs := runStats{
		runIndex:       runIndex,
		name:           s.Name(),
		ticks:          s.CurrentTick(),
		allInRangeTick: -1,
		stateChanges:   s.Log.CountCategory("state", "change"),
	}

	snap := s.Snapshot()
	for _, tr := range snap.Troops {
		ts := troopStats{
			label:           tr.Label,
			firstTargetTick: firstTick(entries, tr.Label, "brain", "target", ""),
			inRangeTick:     firstTick(entries, tr.Label, "state", "change", "→ in-range"),
			final:           tr.State,
			finalTarget:     "none",
			waypoints:       tr.Waypoints,
		}
		for _, e := range entries {
			if e.Troop != tr.Label || e.Category != "brain" {
				continue
			}
			switch e.Key {
			case "retarget_wall":
				ts.retargets++
			case "target_lost":
				ts.targetLost++
			case "no_path":
				ts.noPath++
			}
		}
		if tr.HasTarget {
			ts.finalTarget = tr.TargetKind.String()
		}
		rs.troops = append(rs.troops, ts)
	}

	// The run is "all in range" from the tick the last troop first got there.
	for _, ts := range rs.troops {
		if ts.inRangeTick < 0 {
			rs.allInRangeTick = -1
			break
		}
		rs.allInRangeTick = max(rs.allInRangeTick, ts.inRangeTick)
	}
	return rs
}

func firstTick(entries []sim.LogEntry, troop, category, key, contains string) int {
	for _, e := range entries {
		if e.Troop != troop || e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

// outcome classifies how a troop's run ended.
func outcome(ts troopStats) string {
	switch {
	case ts.firstTargetTick < 0:
		return "idle"
	case ts.final == agent.StateInRange && ts.finalTarget == "wall":
		return "breaching"
	case ts.final == agent.StateInRange:
		return "assaulting"
	case ts.noPath > 0 && ts.final != agent.StateMoving:
		return "stuck"
	default:
		return "en-route"
	}
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (%s) ---\n", rs.runIndex, rs.name)
	fmt.Printf("ticks=%d state_changes=%d all_in_range=%d\n", rs.ticks, rs.stateChanges, rs.allInRangeTick)
	for _, ts := range rs.troops {
		fmt.Printf("  %-4s %-10s first_target=%d in_range=%d target=%s retargets=%d lost=%d no_path=%d waypoints=%d\n",
			ts.label, outcome(ts), ts.firstTargetTick, ts.inRangeTick, ts.finalTarget, ts.retargets, ts.targetLost, ts.noPath, ts.waypoints)
	}
	fmt.Println()
}

func printAggregate(all []runStats) {
	outcomes := map[string]int{}
	var inRangeTicks []int
	troops := 0
	retargets := 0
	for _, rs := range all {
		for _, ts := range rs.troops {
			troops++
			outcomes[outcome(ts)]++
			retargets += ts.retargets
			if ts.inRangeTick >= 0 {
				inRangeTicks = append(inRangeTicks, ts.inRangeTick)
			}
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d troops=%d retargets=%d\n", len(all), troops, retargets)
	fmt.Printf("outcomes: %s\n", joinCounts(outcomes))
	fmt.Printf("avg_ticks_to_range=%s\n", avgTickString(inRangeTicks))
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
