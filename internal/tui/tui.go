// Package tui renders a running battle top-down in a terminal.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/gdamore/tcell/v2"
)

// Board cells are two terminal columns wide so the board reads roughly square.
const (
	cellCols = 2
	boardX   = 1
	boardY   = 2
)

var (
	styleBase     = tcell.StyleDefault
	styleWall     = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.NewRGBColor(60, 60, 70))
	styleBuilding = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.NewRGBColor(196, 160, 110))
	styleGround   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(80, 96, 70))
	styleRoute    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(240, 120, 80))
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// Renderer draws a sim onto a tcell screen and owns its run loop.
type Renderer struct {
	screen tcell.Screen
	sim    *sim.Sim
	paused bool
}

// New returns a renderer for s on an initialised screen.
func New(screen tcell.Screen, s *sim.Sim) *Renderer {
	return &Renderer{screen: screen, sim: s}
}

// Paused reports whether ticking is suspended.
func (r *Renderer) Paused() bool { return r.paused }

// HandleEvent applies a terminal event and reports whether to keep running.
func (r *Renderer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				r.paused = !r.paused
			case '.':
				if r.paused {
					_ = r.step()
				}
			}
		}
	case *tcell.EventResize:
		r.screen.Sync()
	}
	return true
}

func (r *Renderer) step() error {
	return r.sim.Step()
}

// Run ticks the sim every interval and redraws until the user quits, ctx is
// done, or maxTicks ticks have run (0 means no limit).
func (r *Renderer) Run(ctx context.Context, interval time.Duration, maxTicks int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go r.pollEvents(events, done)

	r.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !r.HandleEvent(ev) {
				return nil
			}
			r.Draw()
		case <-ticker.C:
			if r.paused {
				continue
			}
			if maxTicks > 0 && r.sim.CurrentTick() >= maxTicks {
				r.paused = true
				r.Draw()
				continue
			}
			if err := r.step(); err != nil {
				return err
			}
			r.Draw()
		}
	}
}

// pollEvents forwards screen events until the screen is finalised or done
// is closed.
func (r *Renderer) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// Draw renders the status line, the board and the legend.
func (r *Renderer) Draw() {
	r.screen.Clear()
	g := r.sim.Grid
	n := g.Extent()
	snap := r.sim.Snapshot()

	inRange := 0
	for _, tr := range snap.Troops {
		if tr.State == agent.StateInRange {
			inRange++
		}
	}
	status := fmt.Sprintf("%s T=%d troops=%d in-range=%d structures=%d", r.sim.Name(), snap.Tick, len(snap.Troops), inRange, snap.Structures)
	if r.paused {
		status += " [PAUSED]"
	}
	r.text(0, 0, status, styleStatus)

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			r.cell(grid.Cell{X: x, Y: y}, '·', ' ', styleGround)
		}
	}
	for _, tr := range snap.Troops {
		_, b, ok := r.sim.Troop(tr.Label)
		if !ok {
			continue
		}
		route := b.Path()
		for i := b.Cursor(); i < len(route); i++ {
			r.cell(g.CellAt(route[i]), '∙', ' ', styleRoute)
		}
	}
	for _, c := range g.Cells() {
		o, ok := g.Query(c)
		if !ok {
			continue
		}
		if o.IsWall() {
			r.cell(c, '▓', '▓', styleWall)
		} else {
			r.cell(c, '[', ']', styleBuilding)
		}
	}
	for i, tr := range snap.Troops {
		r.cell(g.CellAt(tr.Pos), troopGlyph(i), stateGlyph(tr.State), troopStyle(tr.State))
	}

	r.text(0, boardY+n+1, "space=pause  .=step  q=quit   [ ]=building ▓=wall  > moving ! in range ? blocked", styleBase)
	r.screen.Show()
}

func (r *Renderer) cell(c grid.Cell, left, right rune, st tcell.Style) {
	if !r.sim.Grid.InBounds(c) {
		return
	}
	x := boardX + c.X*cellCols
	y := boardY + c.Y
	r.screen.SetContent(x, y, left, nil, st)
	r.screen.SetContent(x+1, y, right, nil, st)
}

func (r *Renderer) text(x, y int, s string, st tcell.Style) {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, nil, st)
		x++
	}
}

func troopGlyph(i int) rune {
	if i < 10 {
		return rune('0' + i)
	}
	return rune('a' + (i-10)%26)
}

func stateGlyph(s agent.State) rune {
	switch s {
	case agent.StateMoving:
		return '>'
	case agent.StateInRange:
		return '!'
	case agent.StateBlocked:
		return '?'
	default:
		return ' '
	}
}

func troopStyle(s agent.State) tcell.Style {
	switch s {
	case agent.StateInRange:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	case agent.StateMoving:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorWhite)
	}
}
