// Package view is the Ebiten window for watching and editing a battle.
package view

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/Garsondee/Siege-Sense/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// borderWidth is the pixel gap between the window edge and the battlefield.
const borderWidth = 24

const (
	viewportW   = 960
	viewportH   = 720
	boardMargin = 48
	defaultSize = 2
	maxBuildSz  = 4
)

// Game adapts a sim.Sim to ebiten.Game.
type Game struct {
	sim    *sim.Sim
	editor *world.Editor
	events *EventLog
	// logCursor counts sim log entries already copied into events.
	logCursor int

	width      int
	height     int
	gameWidth  int
	gameHeight int
	offX       int
	offY       int

	// origin is where the grid's screen-space (0,0) lands in worldBuf.
	origin mgl64.Vec2
	raise  float64

	worldBuf *ebiten.Image
	hudBuf   *ebiten.Image
	whiteSub *ebiten.Image
	cam      camera

	prevKeys       map[ebiten.Key]bool
	prevMouseLeft  bool
	prevMouseRight bool

	paused        bool
	showGrid      bool
	showOccupancy bool
	showDetour    bool
	showAlt       bool
	buildSize     int
	selected      string
	status        string
	hover         mgl64.Vec2
}

// New wraps s in a window game.
func New(s *sim.Sim) *Game {
	cs := s.Grid.CellSize()
	n := float64(s.Grid.Extent())
	raise := 2 * cs.Y()
	bufW := n*cs.X() + 2*boardMargin
	bufH := s.Grid.BoardHeight() + 2*boardMargin + raise

	g := &Game{
		sim:        s,
		editor:     world.NewEditor(s.World),
		events:     NewEventLog(),
		width:      borderWidth + viewportW + borderWidth + logPanelWidth,
		height:     borderWidth + viewportH + borderWidth,
		gameWidth:  viewportW,
		gameHeight: viewportH,
		offX:       borderWidth,
		offY:       borderWidth,
		origin:     mgl64.Vec2{bufW / 2, boardMargin + raise},
		raise:      raise,
		prevKeys:   make(map[ebiten.Key]bool),
		showGrid:   true,
		buildSize:  defaultSize,
	}
	g.worldBuf = ebiten.NewImage(int(bufW), int(bufH))
	g.hudBuf = ebiten.NewImage(g.width/hudScale, g.height/hudScale)
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	g.whiteSub = white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)

	g.cam = camera{
		x: bufW / 2, y: bufH / 2, zoom: 1,
		vpW: viewportW, vpH: viewportH,
		offX: borderWidth, offY: borderWidth,
		bufW: bufW, bufH: bufH,
	}
	g.cam.zoom = min(viewportW/bufW, viewportH/bufH) * 0.95
	g.cam.clamp()
	g.pumpEvents()
	return g
}

// Update handles input then advances the sim one tick unless paused.
func (g *Game) Update() error {
	g.handleInput()
	if !g.paused {
		if err := g.sim.Step(); err != nil {
			return err
		}
	}
	g.pumpEvents()
	return nil
}

// pumpEvents copies new sim log entries into the panel, skipping per-tick
// position noise.
func (g *Game) pumpEvents() {
	fresh := g.sim.Log.Since(g.logCursor)
	g.logCursor += len(fresh)
	for _, e := range fresh {
		if e.Category == "move" {
			continue
		}
		g.events.AddEntry(e)
	}
}

func (g *Game) report(err error) {
	if err == nil {
		return
	}
	g.status = err.Error()
	g.events.Add(g.sim.CurrentTick(), "--", "editor", err.Error())
}

// Draw renders the battlefield, the event panel and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 13, B: 16, A: 255})

	g.worldBuf.Clear()
	g.drawWorld(g.worldBuf)

	viewport := screen.SubImage(image.Rect(g.offX, g.offY, g.offX+g.gameWidth, g.offY+g.gameHeight)).(*ebiten.Image)
	var blit ebiten.DrawImageOptions
	blit.GeoM = g.cam.geoM()
	viewport.DrawImage(g.worldBuf, &blit)

	ox := float32(g.offX)
	oy := float32(g.offY)
	gw := float32(g.gameWidth)
	gh := float32(g.gameHeight)
	vector.StrokeRect(screen, ox-1, oy-1, gw+2, gh+2, 2.0, color.RGBA{R: 65, G: 80, B: 100, A: 255}, false)

	logX := g.offX + g.gameWidth + g.offX
	g.events.Draw(screen, logX, g.height)

	g.drawHUD(screen)

	if g.cam.zoom != 1.0 {
		drawText(screen, fmt.Sprintf("zoom: %.1fx", g.cam.zoom), g.offX+6, g.offY+6, color.White)
	}
}

// Layout returns the fixed window size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// Size returns the window size in pixels.
func (g *Game) Size() (int, int) {
	return g.width, g.height
}

// toBuf converts a grid screen-space point to worldBuf coordinates.
func (g *Game) toBuf(p mgl64.Vec2) (float32, float32) {
	b := p.Add(g.origin)
	return float32(b.X()), float32(b.Y())
}

// diamond returns the four buffer-space corners of a size×size footprint
// at topLeft, lifted by h: top, right, bottom, left.
func (g *Game) diamond(topLeft grid.Cell, size int, h float64) [4]mgl64.Vec2 {
	gr := g.sim.Grid
	x, y, n := float64(topLeft.X), float64(topLeft.Y), float64(size)
	lift := mgl64.Vec2{0, -h}
	return [4]mgl64.Vec2{
		gr.GridToScreen(mgl64.Vec2{x, y}).Add(g.origin).Add(lift),
		gr.GridToScreen(mgl64.Vec2{x + n, y}).Add(g.origin).Add(lift),
		gr.GridToScreen(mgl64.Vec2{x + n, y + n}).Add(g.origin).Add(lift),
		gr.GridToScreen(mgl64.Vec2{x, y + n}).Add(g.origin).Add(lift),
	}
}
