package view

import (
	"errors"
	"math"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/world"
	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
)

const reportTicks = 240

// handleInput processes keys (edge-triggered) and mouse clicks.
func (g *Game) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	pressed := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !g.prevKeys[k]
	}

	mx, my := ebiten.CursorPosition()
	g.hover = g.cam.unproject(float64(mx), float64(my)).Sub(g.origin)

	// Editor modes.
	if pressed(ebiten.KeyB) {
		g.editor.EnterBuild(grid.KindBuilding, g.buildSize)
		g.status = ""
	}
	if pressed(ebiten.KeyW) {
		g.editor.EnterBuild(grid.KindWall, 1)
		g.status = ""
	}
	if pressed(ebiten.KeyM) {
		g.editor.EnterMove()
		g.status = ""
	}
	if pressed(ebiten.KeyBracketLeft) && g.buildSize > 1 {
		g.setBuildSize(g.buildSize - 1)
	}
	if pressed(ebiten.KeyBracketRight) && g.buildSize < maxBuildSz {
		g.setBuildSize(g.buildSize + 1)
	}
	if pressed(ebiten.KeyEscape) {
		g.editor.Exit()
		g.selected = ""
		g.status = ""
	}
	if pressed(ebiten.KeyT) {
		if _, err := g.sim.AddTroop(g.hover); err != nil {
			g.report(err)
		}
	}

	// Overlays and sim control.
	if pressed(ebiten.KeyG) {
		g.showGrid = !g.showGrid
	}
	if pressed(ebiten.KeyO) {
		g.showOccupancy = !g.showOccupancy
	}
	if pressed(ebiten.KeyD) {
		g.showDetour = !g.showDetour
	}
	if pressed(ebiten.KeyN) {
		g.showAlt = !g.showAlt
	}
	if pressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if pressed(ebiten.KeyC) {
		g.copyReport()
	}

	// Camera pan: arrow keys, since W and D are editor keys.
	const panSpeed = 6.0
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.cam.pan(0, -panSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.cam.pan(0, panSpeed)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.cam.pan(-panSpeed, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.cam.pan(panSpeed, 0)
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.cam.zoomBy(math.Pow(1.12, wy))
	}
	if pressed(ebiten.KeyEqual) {
		g.cam.zoomBy(1.25)
	}
	if pressed(ebiten.KeyMinus) {
		g.cam.zoomBy(1 / 1.25)
	}

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if left && !g.prevMouseLeft && g.inViewport(mx, my) {
		if g.editor.Mode() == world.ModeNone {
			g.selectTroop()
		} else {
			g.report(g.editor.Click(g.hover))
		}
	}
	g.prevMouseLeft = left

	// Right click demolishes the structure under the cursor.
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if right && !g.prevMouseRight && g.inViewport(mx, my) {
		if o, ok := g.sim.World.StructureAt(g.hover); ok {
			g.report(g.sim.World.Demolish(o.Handle))
		}
	}
	g.prevMouseRight = right

	g.prevKeys = currentKeys
}

func (g *Game) setBuildSize(n int) {
	g.buildSize = n
	if kind, _ := g.editor.Armed(); g.editor.Mode() == world.ModeBuild && kind == grid.KindBuilding {
		g.editor.Exit()
		g.editor.EnterBuild(grid.KindBuilding, n)
	}
}

func (g *Game) inViewport(mx, my int) bool {
	return mx >= g.offX && my >= g.offY && mx < g.offX+g.gameWidth && my < g.offY+g.gameHeight
}

// selectTroop picks the troop nearest the cursor within a 16 screen-pixel
// radius, or clears the selection.
func (g *Game) selectTroop() {
	radius := 16.0 / g.cam.zoom
	best := math.MaxFloat64
	g.selected = ""
	for _, tr := range g.sim.Snapshot().Troops {
		d := tr.Pos.Sub(g.hover).Len()
		if d < radius && d < best {
			best = d
			g.selected = tr.Label
		}
	}
}

func (g *Game) copyReport() {
	if g.selected == "" {
		g.report(errors.New("select a troop to copy its report"))
		return
	}
	if err := clipboard.WriteAll(DebugReport(g.sim, g.selected, reportTicks)); err != nil {
		g.report(err)
		return
	}
	g.status = "report for " + g.selected + " copied"
}
