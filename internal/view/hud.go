package view

import (
	"fmt"
	"image/color"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/world"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

// hudScale is the integer upscale factor applied to HUD text.
const hudScale = 2

const (
	charW = 7
	lineH = 13
)

var hudFace = text.NewGoXFace(basicfont.Face7x13)

func drawText(dst *ebiten.Image, s string, x, y int, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, hudFace, op)
}

func (g *Game) hudLines() []string {
	speed := "RUN"
	if g.paused {
		speed = "PAUSED"
	}
	mode := g.editor.Mode()
	modeStr := mode.String()
	switch mode {
	case world.ModeBuild:
		kind, size := g.editor.Armed()
		if kind == grid.KindWall {
			modeStr = "wall brush"
		} else {
			modeStr = fmt.Sprintf("build %dx%d", size, size)
		}
	case world.ModeMove:
		if _, ok := g.editor.Selected(); ok {
			modeStr = "move (carrying)"
		}
	}
	on := func(b bool) string {
		if b {
			return "*"
		}
		return " "
	}

	lines := []string{
		fmt.Sprintf("T=%d  %s  P=pause", g.sim.CurrentTick(), speed),
		fmt.Sprintf("mode: %s", modeStr),
		fmt.Sprintf("B=build [%d]  [/]=size  W=wall  M=move", g.buildSize),
		"T=spawn troop  Esc=exit mode",
		fmt.Sprintf("[G]%s grid  [O]%s occupancy  [D]%s detour  [N]%s alt routes", on(g.showGrid), on(g.showOccupancy), on(g.showDetour), on(g.showAlt)),
		"arrows=pan  scroll=zoom  C=copy report",
	}
	if g.selected != "" {
		lines = append(lines, fmt.Sprintf("selected: %s", g.selected))
	}
	if g.status != "" {
		lines = append(lines, g.status)
	}
	return lines
}

// drawHUD renders the key legend in the bottom-left corner. Text is drawn
// into hudBuf at 1x then composited onto the screen at hudScale.
func (g *Game) drawHUD(screen *ebiten.Image) {
	lines := g.hudLines()

	const padX = 5
	const padY = 4
	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)

	bufH := float32(g.height / hudScale)
	bx := float32(4)
	by := bufH - boxH - 4

	g.hudBuf.Clear()
	vector.FillRect(g.hudBuf, bx, by, boxW, boxH, color.RGBA{R: 6, G: 8, B: 12, A: 210}, false)
	vector.StrokeRect(g.hudBuf, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 80, B: 110, A: 180}, false)
	vector.StrokeLine(g.hudBuf, bx+1, by+1, bx+boxW-1, by+1, 1.0, color.RGBA{R: 90, G: 120, B: 160, A: 80}, false)

	for i, line := range lines {
		drawText(g.hudBuf, line, int(bx)+padX, int(by)+padY+i*lineH, color.White)
	}

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(hudScale, hudScale)
	screen.DrawImage(g.hudBuf, opts)
}
