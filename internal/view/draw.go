package view

import (
	"image/color"
	"math"
	"sort"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/Garsondee/Siege-Sense/internal/path"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	depthMin = 0
	depthMax = 1000
)

var (
	groundCol    = color.RGBA{R: 46, G: 58, B: 40, A: 255}
	gridCol      = color.RGBA{R: 80, G: 96, B: 70, A: 120}
	occupiedCol  = color.RGBA{R: 40, G: 200, B: 80, A: 90}
	neighbourCol = color.RGBA{R: 230, G: 210, B: 40, A: 70}
)

// drawable is one depth-sorted item on the board.
type drawable struct {
	z    int
	draw func(dst *ebiten.Image)
}

func (g *Game) drawWorld(dst *ebiten.Image) {
	gr := g.sim.Grid
	n := gr.Extent()

	g.fillPoly(dst, g.diamond(grid.Cell{}, n, 0)[:], groundCol)

	if g.showGrid {
		for i := 0; i <= n; i++ {
			f := float64(i)
			g.line(dst, gr.GridToScreen(mgl64.Vec2{f, 0}), gr.GridToScreen(mgl64.Vec2{f, float64(n)}), 1, gridCol)
			g.line(dst, gr.GridToScreen(mgl64.Vec2{0, f}), gr.GridToScreen(mgl64.Vec2{float64(n), f}), 1, gridCol)
		}
	}
	if g.showOccupancy {
		g.drawOccupancy(dst)
	}
	g.drawEditorGhost(dst)

	var items []drawable
	for _, o := range g.sim.World.Structures() {
		o := o
		bottom := gr.FootprintCenter(o).Y() + gr.FootprintHalfExtent(o).Y()
		items = append(items, drawable{
			z:    gr.DepthIndex(bottom, depthMin, depthMax),
			draw: func(dst *ebiten.Image) { g.drawStructure(dst, o) },
		})
	}
	snap := g.sim.Snapshot()
	for _, tr := range snap.Troops {
		tr := tr
		items = append(items, drawable{
			z:    gr.DepthIndex(tr.Pos.Y(), depthMin, depthMax),
			draw: func(dst *ebiten.Image) { g.drawTroop(dst, tr.Label, tr.Pos, tr.State) },
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].z < items[j].z })

	g.drawRoutes(dst)
	for _, it := range items {
		it.draw(dst)
	}
}

// drawOccupancy tints occupied cells green and their free neighbours yellow.
func (g *Game) drawOccupancy(dst *ebiten.Image) {
	gr := g.sim.Grid
	cells := gr.Cells()
	occupied := make(map[grid.Cell]bool, len(cells))
	for _, c := range cells {
		occupied[c] = true
	}
	seen := map[grid.Cell]bool{}
	for _, c := range cells {
		g.fillPoly(dst, g.diamond(c, 1, 0)[:], occupiedCol)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				nb := c.Add(grid.Cell{X: dx, Y: dy})
				if occupied[nb] || seen[nb] || !gr.InBounds(nb) {
					continue
				}
				seen[nb] = true
				g.fillPoly(dst, g.diamond(nb, 1, 0)[:], neighbourCol)
			}
		}
	}
}

func (g *Game) drawEditorGhost(dst *ebiten.Image) {
	if o, ok := g.editor.Preview(g.hover); o.Size > 0 {
		col := color.RGBA{R: 80, G: 220, B: 120, A: 110}
		if !ok {
			col = color.RGBA{R: 230, G: 60, B: 60, A: 110}
		}
		g.fillPoly(dst, g.diamond(o.Origin, o.Size, 0)[:], col)
	}
	if e, ok := g.editor.Selected(); ok {
		if o, found := g.sim.Grid.Footprint(e); found {
			d := g.diamond(o.Origin, o.Size, 0)
			for i := range d {
				a, b := d[i], d[(i+1)%4]
				vector.StrokeLine(dst, float32(a.X()), float32(a.Y()), float32(b.X()), float32(b.Y()), 2, color.RGBA{R: 255, G: 240, B: 60, A: 220}, false)
			}
		}
	}
}

// drawStructure draws a footprint as a shaded block: two visible side faces
// and a lit top.
func (g *Game) drawStructure(dst *ebiten.Image, o grid.Occupant) {
	cs := g.sim.Grid.CellSize()
	var h float64
	var top color.RGBA
	if o.IsWall() {
		h = cs.Y() * 0.75
		top = color.RGBA{R: 150, G: 150, B: 160, A: 255}
	} else {
		h = math.Min(g.raise, cs.Y()*0.6*float64(o.Size))
		top = color.RGBA{R: 196, G: 160, B: 110, A: 255}
	}
	base := g.diamond(o.Origin, o.Size, 0)
	lid := g.diamond(o.Origin, o.Size, h)

	// left face: left corner to bottom corner; right face: bottom to right.
	g.fillPoly(dst, []mgl64.Vec2{base[3], base[2], lid[2], lid[3]}, shade(top, 0.55))
	g.fillPoly(dst, []mgl64.Vec2{base[2], base[1], lid[1], lid[2]}, shade(top, 0.75))
	g.fillPoly(dst, lid[:], top)
	for i := range lid {
		a, b := lid[i], lid[(i+1)%4]
		vector.StrokeLine(dst, float32(a.X()), float32(a.Y()), float32(b.X()), float32(b.Y()), 1, shade(top, 0.4), false)
	}
}

func (g *Game) drawTroop(dst *ebiten.Image, label string, pos mgl64.Vec2, st agent.State) {
	x, y := g.toBuf(pos)
	var col color.RGBA
	switch st {
	case agent.StateMoving:
		col = color.RGBA{R: 220, G: 80, B: 60, A: 255}
	case agent.StateInRange:
		col = color.RGBA{R: 255, G: 200, B: 40, A: 255}
	case agent.StateBlocked:
		col = color.RGBA{R: 150, G: 60, B: 200, A: 255}
	default:
		col = color.RGBA{R: 170, G: 170, B: 170, A: 255}
	}
	vector.FillCircle(dst, x, y-4, 5, col, true)
	if label == g.selected {
		vector.StrokeCircle(dst, x, y-4, 8, 1.5, color.RGBA{R: 255, G: 255, B: 255, A: 220}, true)
	}
}

// drawRoutes draws each troop's remaining route and target, plus the detour
// preview of the selected troop.
func (g *Game) drawRoutes(dst *ebiten.Image) {
	for _, tr := range g.sim.Snapshot().Troops {
		_, b, ok := g.sim.Troop(tr.Label)
		if !ok {
			continue
		}
		isSelected := tr.Label == g.selected
		alpha := uint8(60)
		if isSelected {
			alpha = 160
		}
		route := b.Path()
		prev := tr.Pos
		for i := b.Cursor(); i < len(route); i++ {
			g.line(dst, prev, route[i], 1, color.RGBA{R: 240, G: 120, B: 80, A: alpha})
			prev = route[i]
		}
		if tp, has := b.TargetPoint(); has {
			x, y := g.toBuf(tp)
			c := color.RGBA{R: 255, G: 60, B: 60, A: alpha + 40}
			vector.StrokeLine(dst, x-4, y-4, x+4, y+4, 1, c, false)
			vector.StrokeLine(dst, x-4, y+4, x+4, y-4, 1, c, false)
		}
		if isSelected && g.showDetour {
			g.dashed(dst, b.DetourPreview(), color.RGBA{R: 90, G: 200, B: 255, A: 180})
		}
		if isSelected && g.showAlt {
			natural, straight := altRoutes(g.sim, tr.Label)
			g.dashed(dst, natural, color.RGBA{R: 120, G: 255, B: 160, A: 170})
			for _, pt := range straight {
				x, y := g.toBuf(pt)
				vector.FillCircle(dst, x, y, 2, color.RGBA{R: 255, G: 255, B: 255, A: 150}, false)
			}
		}
	}
}

// dashed strokes a polyline as 8px dashes with 6px gaps.
func (g *Game) dashed(dst *ebiten.Image, p path.Path, col color.RGBA) {
	const dashLen, gapLen = 8.0, 6.0
	for i := 1; i < len(p); i++ {
		seg := p[i].Sub(p[i-1])
		total := seg.Len()
		if total == 0 {
			continue
		}
		dir := seg.Mul(1 / total)
		for drawn := 0.0; drawn < total; drawn += dashLen + gapLen {
			end := math.Min(drawn+dashLen, total)
			g.line(dst, p[i-1].Add(dir.Mul(drawn)), p[i-1].Add(dir.Mul(end)), 1.5, col)
		}
	}
}

func (g *Game) line(dst *ebiten.Image, a, b mgl64.Vec2, width float32, col color.Color) {
	ax, ay := g.toBuf(a)
	bx, by := g.toBuf(b)
	vector.StrokeLine(dst, ax, ay, bx, by, width, col, false)
}

// fillPoly fills a convex polygon given in buffer space.
func (g *Game) fillPoly(dst *ebiten.Image, pts []mgl64.Vec2, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	r := float32(col.R) / 255
	gg := float32(col.G) / 255
	b := float32(col.B) / 255
	a := float32(col.A) / 255
	vs := make([]ebiten.Vertex, len(pts))
	for i, p := range pts {
		vs[i] = ebiten.Vertex{
			DstX: float32(p.X()), DstY: float32(p.Y()),
			SrcX: 1, SrcY: 1,
			ColorR: r, ColorG: gg, ColorB: b, ColorA: a,
		}
	}
	is := make([]uint16, 0, 3*(len(pts)-2))
	for i := 1; i+1 < len(pts); i++ {
		is = append(is, 0, uint16(i), uint16(i+1))
	}
	dst.DrawTriangles(vs, is, g.whiteSub, &ebiten.DrawTrianglesOptions{})
}

func shade(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
