package view

import (
	"fmt"
	"strings"

	"github.com/Garsondee/Siege-Sense/internal/path"
	"github.com/Garsondee/Siege-Sense/internal/sim"
)

// DebugReport renders a plain-text account of one troop over its last ticks,
// suitable for pasting into an issue.
func DebugReport(s *sim.Sim, label string, lastTicks int) string {
	e, b, ok := s.Troop(label)
	if !ok {
		return ""
	}
	if lastTicks <= 0 {
		lastTicks = 120
	}

	toTick := s.CurrentTick()
	fromTick := toTick - lastTicks + 1
	if fromTick < 0 {
		fromTick = 0
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- SiegeSense debug report ---\n")
	fmt.Fprintf(&sb, "run=%q tick_range=[%d..%d] ticks=%d\n", s.Name(), fromTick, toTick, toTick-fromTick+1)

	cfg := b.Config()
	fmt.Fprintf(&sb, "troop=%s detect=%.0f attack=%.0f speed=%.0f max_path=%d max_detour=%.1f\n\n",
		label, cfg.DetectionRange, cfg.AttackRange, cfg.Speed, cfg.MaxPathLength, cfg.MaxDetour)

	if pos, ok := s.World.Position(e); ok {
		fmt.Fprintf(&sb, "pos=(%.1f,%.1f) cell=%v state=%s\n", pos.X(), pos.Y(), s.Grid.CellAt(pos), b.State())
		if tp, has := b.TargetPoint(); has {
			kind, _ := b.TargetKind()
			fmt.Fprintf(&sb, "target=%s point=(%.1f,%.1f) dist=%.1f\n", kind, tp.X(), tp.Y(), tp.Sub(pos).Len())
		} else {
			sb.WriteString("target=none\n")
		}
	}
	route := b.Path()
	fmt.Fprintf(&sb, "route: cursor=%d/%d length=%.1f plan_version=%d grid_version=%d\n",
		b.Cursor(), len(route), path.Length(route), b.PlanVersion(), s.Grid.Version())
	if d := b.DetourPreview(); len(d) > 0 {
		fmt.Fprintf(&sb, "detour_preview: %d waypoints length=%.1f\n", len(d), path.Length(d))
	}
	if natural, straight := altRoutes(s, label); straight != nil {
		fmt.Fprintf(&sb, "natural_route: %d waypoints length=%.1f\n", len(natural), path.Length(natural))
		fmt.Fprintf(&sb, "straight_line: %d cells length=%.1f\n", len(straight), path.Length(straight))
	}

	events := s.Log.FilterTroop(label)
	sb.WriteString("events:\n")
	n := 0
	for _, ev := range events {
		if ev.Tick < fromTick || ev.Tick > toTick {
			continue
		}
		sb.WriteString("  ")
		sb.WriteString(ev.String())
		sb.WriteByte('\n')
		n++
	}
	if n == 0 {
		sb.WriteString("  (none in range)\n")
	}
	return sb.String()
}

// altRoutes returns the natural route and the straight cell line from a
// troop to its current target. Both are nil when the troop has no target.
func altRoutes(s *sim.Sim, label string) (natural, straight path.Path) {
	e, b, ok := s.Troop(label)
	if !ok {
		return nil, nil
	}
	tp, has := b.TargetPoint()
	pos, alive := s.World.Position(e)
	if !has || !alive {
		return nil, nil
	}
	p := path.NewPlanner(s.Grid)
	return p.Natural(pos, tp), p.Straight(pos, tp)
}
