package world

import (
	"errors"
	"testing"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
)

func newRegistry() *Registry {
	return New(grid.New(grid.DefaultConfig()))
}

func TestPlace_SyncsGridAndBody(t *testing.T) {
	r := newRegistry()
	e, err := r.PlaceBuilding(grid.Cell{X: 2, Y: 2}, 2)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	o, ok := r.Grid().Footprint(e)
	if !ok || o.Kind != grid.KindBuilding || o.Size != 2 {
		t.Fatalf("grid footprint = %+v ok=%v", o, ok)
	}
	b, ok := r.Body(e)
	if !ok || b.Role != RoleBuilding || b.Pos != r.Grid().FootprintCenter(o) {
		t.Fatalf("body = %+v ok=%v", b, ok)
	}
}

func TestPlace_OverlapRejected(t *testing.T) {
	r := newRegistry()
	if _, err := r.PlaceWall(grid.Cell{X: 3, Y: 3}); err != nil {
		t.Fatalf("wall: %v", err)
	}
	_, err := r.PlaceBuilding(grid.Cell{X: 2, Y: 2}, 2)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
	if len(r.Structures()) != 1 {
		t.Fatalf("rejected placement left %d structures", len(r.Structures()))
	}
}

func TestMoveStructure_UpdatesBody(t *testing.T) {
	r := newRegistry()
	e, _ := r.PlaceBuilding(grid.Cell{X: 1, Y: 1}, 2)
	if err := r.MoveStructure(e, grid.Cell{X: 5, Y: 5}); err != nil {
		t.Fatalf("move: %v", err)
	}
	b, _ := r.Body(e)
	want := r.Grid().FootprintCenter(grid.Occupant{Origin: grid.Cell{X: 5, Y: 5}, Size: 2})
	if b.Pos != want {
		t.Fatalf("body at %v, want %v", b.Pos, want)
	}
	if err := r.MoveStructure(e, grid.Cell{X: 9, Y: 9}); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("overhanging move should fail with ErrInvalidPlacement, got %v", err)
	}
}

func TestDemolish_KillsHandle(t *testing.T) {
	r := newRegistry()
	e, _ := r.PlaceWall(grid.Cell{X: 4, Y: 4})
	if err := r.Demolish(e); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	if r.Alive(e) || r.Grid().Len() != 0 {
		t.Fatal("demolished wall should be gone from world and grid")
	}
	if err := r.Demolish(e); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("second demolish should report ErrUnknownEntity, got %v", err)
	}
}

func TestSpawnTroop_Clearance(t *testing.T) {
	r := newRegistry()
	r.PlaceWall(grid.Cell{X: 5, Y: 5})
	g := r.Grid()
	if _, err := r.SpawnTroop(g.CellCenter(grid.Cell{X: 5, Y: 6})); !errors.Is(err, ErrSpawnBlocked) {
		t.Fatalf("spawn next to a wall should fail, got %v", err)
	}
	if _, err := r.SpawnTroop(g.CellCenter(grid.Cell{X: -1, Y: 0})); !errors.Is(err, ErrSpawnBlocked) {
		t.Fatalf("spawn off the board should fail, got %v", err)
	}
	e, err := r.SpawnTroop(g.CellCenter(grid.Cell{X: 0, Y: 0}))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if troops := r.Troops(); len(troops) != 1 || troops[0] != e {
		t.Fatalf("troops = %v", troops)
	}
}

func TestSetPosition_OnlyTroops(t *testing.T) {
	r := newRegistry()
	wall, _ := r.PlaceWall(grid.Cell{X: 7, Y: 7})
	troop, _ := r.SpawnTroop(mgl64.Vec2{0, 10})
	before, _ := r.Position(wall)
	r.SetPosition(wall, mgl64.Vec2{1, 1})
	if after, _ := r.Position(wall); after != before {
		t.Fatal("structures must not move through SetPosition")
	}
	r.SetPosition(troop, mgl64.Vec2{3, 12})
	if p, _ := r.Position(troop); p != (mgl64.Vec2{3, 12}) {
		t.Fatalf("troop at %v", p)
	}
	if err := r.RemoveTroop(troop); err != nil {
		t.Fatalf("remove troop: %v", err)
	}
	if _, ok := r.Position(troop); ok {
		t.Fatal("removed troop still has a position")
	}
	if err := r.RemoveTroop(troop); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestEditor_ModeTransitionsClearState(t *testing.T) {
	r := newRegistry()
	ed := NewEditor(r)
	r.PlaceBuilding(grid.Cell{X: 1, Y: 1}, 1)

	ed.EnterMove()
	if err := ed.Click(r.Grid().CellCenter(grid.Cell{X: 1, Y: 1})); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, ok := ed.Selected(); !ok {
		t.Fatal("expected a selection in move mode")
	}
	ed.EnterBuild(grid.KindWall, 3)
	if _, ok := ed.Selected(); ok {
		t.Fatal("entering build mode must drop the move selection")
	}
	if k, size := ed.Armed(); k != grid.KindWall || size != 1 {
		t.Fatalf("walls are always 1x1, armed %s size %d", k, size)
	}
	ed.EnterBuild(grid.KindWall, 1)
	if ed.Mode() != ModeNone {
		t.Fatalf("re-entering the same build arming should toggle off, mode %s", ed.Mode())
	}
}

func TestEditor_BuildAndMoveClicks(t *testing.T) {
	r := newRegistry()
	g := r.Grid()
	ed := NewEditor(r)

	if err := ed.Click(g.CellCenter(grid.Cell{X: 2, Y: 2})); err != nil || g.Len() != 0 {
		t.Fatalf("clicks in ModeNone must do nothing: err=%v len=%d", err, g.Len())
	}

	ed.EnterBuild(grid.KindBuilding, 2)
	if o, ok := ed.Preview(g.CellCenter(grid.Cell{X: 2, Y: 2})); !ok || o.Origin != (grid.Cell{X: 2, Y: 2}) {
		t.Fatalf("preview = %+v ok=%v", o, ok)
	}
	if err := ed.Click(g.CellCenter(grid.Cell{X: 2, Y: 2})); err != nil {
		t.Fatalf("build click: %v", err)
	}
	if err := ed.Click(g.CellCenter(grid.Cell{X: 3, Y: 3})); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("overlapping build should fail, got %v", err)
	}

	ed.EnterMove()
	if err := ed.Click(g.CellCenter(grid.Cell{X: 8, Y: 8})); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("picking an empty cell should fail, got %v", err)
	}
	ed.Click(g.CellCenter(grid.Cell{X: 3, Y: 2}))
	if err := ed.Click(g.CellCenter(grid.Cell{X: 6, Y: 6})); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !g.Occupied(grid.Cell{X: 7, Y: 7}) || g.Occupied(grid.Cell{X: 2, Y: 2}) {
		t.Fatal("building did not move")
	}
	if _, ok := ed.Selected(); ok {
		t.Fatal("selection should clear after a drop")
	}
	if k, size := ed.Armed(); ed.Mode() != ModeBuild || k != grid.KindBuilding || size != 2 {
		t.Fatalf("a move entered from build should hand back to build, mode %s armed %s/%d", ed.Mode(), k, size)
	}

	ed.Exit()
	ed.EnterMove()
	ed.Click(g.CellCenter(grid.Cell{X: 6, Y: 6}))
	if err := ed.Click(g.CellCenter(grid.Cell{X: 0, Y: 0})); err != nil {
		t.Fatalf("second drop: %v", err)
	}
	if ed.Mode() != ModeMove {
		t.Fatalf("a move entered from none should stay in move mode, got %s", ed.Mode())
	}
}

func TestRole_String(t *testing.T) {
	if RoleTroop.String() != "troop" || RoleWall.String() != "wall" || Role(7).String() != "unknown" {
		t.Fatal("unexpected role names")
	}
	if ModeBuild.String() != "build" || Mode(9).String() != "unknown" {
		t.Fatal("unexpected mode names")
	}
}
