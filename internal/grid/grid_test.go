package grid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

type marker struct{ n int }

// newHandles creates n live entities to stand in for placed structures.
func newHandles(t *testing.T, n int) []ecs.Entity {
	t.Helper()
	w := ecs.NewWorld()
	m := ecs.NewMap1[marker](&w)
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = m.NewEntity(&marker{n: i})
	}
	return out
}

func TestGridToScreen_Projection(t *testing.T) {
	g := New(DefaultConfig())
	s := g.GridToScreen(mgl64.Vec2{3, 1})
	// (3-1)*16 = 32, (3+1)*16 = 64
	if s.X() != 32 || s.Y() != 64 {
		t.Fatalf("expected (32,64) got (%.1f,%.1f)", s.X(), s.Y())
	}
}

func TestScreenToGrid_InverseLaw(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), {CellW: 64, CellH: 32, Extent: 20}, {CellW: 10, CellH: 7, Extent: 5}} {
		g := New(cfg)
		for x := -3.0; x <= 12; x += 0.75 {
			for y := -3.0; y <= 12; y += 1.25 {
				p := mgl64.Vec2{x, y}
				back := g.ScreenToGrid(g.GridToScreen(p))
				if !back.ApproxEqualThreshold(p, 1e-9) {
					t.Fatalf("cfg %+v: inverse of %v gave %v", cfg, p, back)
				}
			}
		}
	}
}

func TestCellAt_FloorsFractionalPoints(t *testing.T) {
	g := New(DefaultConfig())
	c := g.CellAt(g.CellCenter(Cell{X: 4, Y: 7}))
	if c != (Cell{X: 4, Y: 7}) {
		t.Fatalf("centre of (4,7) mapped to %v", c)
	}
	c = g.CellAt(g.GridToScreen(mgl64.Vec2{-0.2, 0.3}))
	if c != (Cell{X: -1, Y: 0}) {
		t.Fatalf("expected (-1,0) for negative fraction, got %v", c)
	}
}

func TestCanPlace_Bounds(t *testing.T) {
	g := New(DefaultConfig())
	if !g.CanPlace(Cell{X: 8, Y: 8}, 2) {
		t.Fatal("2x2 at (8,8) should fit a 10x10 board")
	}
	if g.CanPlace(Cell{X: 9, Y: 8}, 2) {
		t.Fatal("2x2 at (9,8) overhangs the board")
	}
	if g.CanPlace(Cell{X: -1, Y: 0}, 1) {
		t.Fatal("negative origin must be rejected")
	}
	if g.CanPlace(Cell{X: 0, Y: 0}, 0) {
		t.Fatal("zero size must be rejected")
	}
}

func TestPlace_WritesEveryCoveredCell(t *testing.T) {
	g := New(DefaultConfig())
	h := newHandles(t, 1)[0]
	if !g.Place(Cell{X: 2, Y: 3}, 3, h, KindBuilding) {
		t.Fatal("placement on empty board failed")
	}
	if g.Len() != 9 {
		t.Fatalf("expected 9 occupied cells, got %d", g.Len())
	}
	for x := 2; x < 5; x++ {
		for y := 3; y < 6; y++ {
			o, ok := g.Query(Cell{X: x, Y: y})
			if !ok || o.Handle != h || o.Size != 3 || o.Origin != (Cell{X: 2, Y: 3}) {
				t.Fatalf("cell (%d,%d) = %+v ok=%v", x, y, o, ok)
			}
		}
	}
}

func TestPlace_ExclusiveUntilRemoved(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 2)
	if !g.Place(Cell{X: 2, Y: 2}, 2, hs[0], KindBuilding) {
		t.Fatal("first placement failed")
	}
	overlaps := []Cell{{1, 1}, {3, 3}, {2, 1}, {1, 3}, {3, 2}}
	for _, tl := range overlaps {
		if g.CanPlace(tl, 2) {
			t.Fatalf("overlapping footprint at %v reported placeable", tl)
		}
		if g.Place(tl, 2, hs[1], KindWall) {
			t.Fatalf("overlapping placement at %v succeeded", tl)
		}
	}
	if g.Len() != 4 {
		t.Fatalf("rejected placements must not mutate: len=%d", g.Len())
	}
	g.Remove(hs[0])
	for _, tl := range overlaps {
		if !g.CanPlace(tl, 2) {
			t.Fatalf("after removal %v should be placeable", tl)
		}
	}
}

func TestRemove_LeavesNoDanglingCells(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 2)
	g.Place(Cell{X: 0, Y: 0}, 3, hs[0], KindBuilding)
	g.Place(Cell{X: 5, Y: 5}, 1, hs[1], KindWall)
	if n := g.Remove(hs[0]); n != 9 {
		t.Fatalf("expected 9 cells freed, got %d", n)
	}
	for _, c := range g.Cells() {
		if o, _ := g.Query(c); o.Handle == hs[0] {
			t.Fatalf("cell %v still references removed handle", c)
		}
	}
	if _, ok := g.Footprint(hs[0]); ok {
		t.Fatal("footprint of removed handle still reported")
	}
	if n := g.Remove(hs[0]); n != 0 {
		t.Fatalf("second removal should be a no-op, freed %d", n)
	}
	if g.Len() != 1 {
		t.Fatalf("unrelated wall must survive, len=%d", g.Len())
	}
}

func TestMove_OverlappingOwnFootprint(t *testing.T) {
	g := New(DefaultConfig())
	h := newHandles(t, 1)[0]
	g.Place(Cell{X: 2, Y: 2}, 2, h, KindBuilding)
	// Shifting one cell right overlaps the old footprint; must not self-collide.
	if !g.Move(h, Cell{X: 3, Y: 2}) {
		t.Fatal("move onto own footprint failed")
	}
	if g.Occupied(Cell{X: 2, Y: 2}) || g.Occupied(Cell{X: 2, Y: 3}) {
		t.Fatal("old column still occupied after move")
	}
	o, ok := g.Footprint(h)
	if !ok || o.Origin != (Cell{X: 3, Y: 2}) {
		t.Fatalf("footprint after move = %+v", o)
	}
	if g.Len() != 4 {
		t.Fatalf("expected 4 cells after move, got %d", g.Len())
	}
}

func TestMove_InvalidRestoresOldFootprint(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 3)
	g.Place(Cell{X: 0, Y: 0}, 2, hs[0], KindBuilding)
	g.Place(Cell{X: 5, Y: 5}, 1, hs[1], KindWall)
	if g.Move(hs[0], Cell{X: 4, Y: 4}) {
		t.Fatal("move onto a wall should fail")
	}
	o, ok := g.Footprint(hs[0])
	if !ok || o.Origin != (Cell{X: 0, Y: 0}) || g.Len() != 5 {
		t.Fatalf("old footprint not restored: %+v len=%d", o, g.Len())
	}
	if g.Move(hs[2], Cell{X: 7, Y: 7}) {
		t.Fatal("moving an unplaced handle should fail")
	}
}

func TestIsBlockedForWalk_OnlyWalls(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 2)
	g.Place(Cell{X: 1, Y: 1}, 1, hs[0], KindWall)
	g.Place(Cell{X: 4, Y: 4}, 1, hs[1], KindBuilding)
	if !g.IsBlockedForWalk(Cell{X: 1, Y: 1}) {
		t.Fatal("wall cell should block walking")
	}
	if g.IsBlockedForWalk(Cell{X: 4, Y: 4}) {
		t.Fatal("building cell is not a walk blocker for the avoid search")
	}
	if g.IsBlockedForWalk(Cell{X: 0, Y: 0}) {
		t.Fatal("free cell should not block")
	}
}

func TestOccupants_DistinctRowMajor(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 3)
	g.Place(Cell{X: 6, Y: 0}, 1, hs[0], KindWall)
	g.Place(Cell{X: 0, Y: 2}, 2, hs[1], KindBuilding)
	g.Place(Cell{X: 1, Y: 0}, 1, hs[2], KindWall)
	got := g.Occupants()
	if len(got) != 3 {
		t.Fatalf("expected 3 occupants, got %d", len(got))
	}
	want := []ecs.Entity{hs[2], hs[0], hs[1]}
	for i, o := range got {
		if o.Handle != want[i] {
			t.Fatalf("occupant %d = %v, want %v", i, o.Handle, want[i])
		}
	}
	cells := g.Cells()
	if cells[0] != (Cell{X: 1, Y: 0}) || cells[len(cells)-1] != (Cell{X: 1, Y: 3}) {
		t.Fatalf("cells not row-major: %v", cells)
	}
}

func TestVersion_BumpsOnMutation(t *testing.T) {
	g := New(DefaultConfig())
	h := newHandles(t, 1)[0]
	v0 := g.Version()
	g.Place(Cell{X: 1, Y: 1}, 1, h, KindWall)
	v1 := g.Version()
	if v1 == v0 {
		t.Fatal("place did not bump version")
	}
	g.Place(Cell{X: 1, Y: 1}, 1, h, KindWall)
	if g.Version() != v1 {
		t.Fatal("rejected place must not bump version")
	}
	g.Remove(h)
	if g.Version() == v1 {
		t.Fatal("remove did not bump version")
	}
}

func TestCanSpawn_NeedsOneCellClearance(t *testing.T) {
	g := New(DefaultConfig())
	h := newHandles(t, 1)[0]
	g.Place(Cell{X: 5, Y: 5}, 1, h, KindWall)
	if g.CanSpawn(g.CellCenter(Cell{X: 4, Y: 6})) {
		t.Fatal("diagonal neighbour of a wall should not allow spawning")
	}
	if !g.CanSpawn(g.CellCenter(Cell{X: 3, Y: 5})) {
		t.Fatal("two cells away should allow spawning")
	}
}

func TestDepthIndex_ClampsToBoard(t *testing.T) {
	g := New(DefaultConfig())
	h := g.BoardHeight()
	if h != 320 {
		t.Fatalf("10x10 board of 32px cells should be 320 tall, got %.1f", h)
	}
	if z := g.DepthIndex(-50, 0, 100); z != 0 {
		t.Fatalf("above the board should clamp to minZ, got %d", z)
	}
	if z := g.DepthIndex(h*2, 0, 100); z != 100 {
		t.Fatalf("below the board should clamp to maxZ, got %d", z)
	}
	if z := g.DepthIndex(h/2, 0, 100); z != 50 {
		t.Fatalf("middle should be 50, got %d", z)
	}
}

func TestRead_ViewSeesIndex(t *testing.T) {
	g := New(DefaultConfig())
	hs := newHandles(t, 2)
	g.Place(Cell{X: 2, Y: 2}, 1, hs[0], KindWall)
	g.Place(Cell{X: 3, Y: 3}, 1, hs[1], KindBuilding)
	g.Read(func(v View) {
		if !v.IsBlockedForWalk(Cell{X: 2, Y: 2}) || v.IsBlockedForWalk(Cell{X: 3, Y: 3}) {
			t.Fatal("view disagrees with grid on walk blocking")
		}
		if !v.Occupied(Cell{X: 3, Y: 3}) || v.InBounds(Cell{X: 10, Y: 0}) {
			t.Fatal("view occupancy/bounds wrong")
		}
	})
}

func TestFootprintGeometry(t *testing.T) {
	g := New(DefaultConfig())
	o := Occupant{Size: 2, Origin: Cell{X: 2, Y: 2}}
	c := g.FootprintCenter(o)
	// grid (3,3) -> screen (0, 96)
	if math.Abs(c.X()) > 1e-9 || math.Abs(c.Y()-96) > 1e-9 {
		t.Fatalf("footprint centre = %v", c)
	}
	he := g.FootprintHalfExtent(o)
	if he.X() != 32 || he.Y() != 32 {
		t.Fatalf("half extent = %v", he)
	}
}
