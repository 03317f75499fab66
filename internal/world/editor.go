package world

import (
	"fmt"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

// Mode is the editor's current interaction mode.
type Mode uint8

const (
	ModeNone  Mode = iota // clicks do nothing to structures
	ModeBuild             // clicks place the armed structure
	ModeMove              // first click picks a structure, second drops it
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeBuild:
		return "build"
	case ModeMove:
		return "move"
	default:
		return "unknown"
	}
}

// Editor holds the build/move interaction state. Every transition goes
// through EnterBuild, EnterMove or Exit, and each clears the state the
// previous mode left behind.
type Editor struct {
	reg *Registry

	mode      Mode
	buildKind grid.Kind
	buildSize int

	selected    ecs.Entity
	hasSelected bool

	// build arming to restore once a move started from build mode completes
	fromBuild bool
	prevKind  grid.Kind
	prevSize  int
}

// NewEditor returns an editor in ModeNone.
func NewEditor(reg *Registry) *Editor {
	return &Editor{reg: reg}
}

// Mode returns the current mode.
func (ed *Editor) Mode() Mode { return ed.mode }

// Armed returns the structure kind and size placed by the next build click.
func (ed *Editor) Armed() (grid.Kind, int) { return ed.buildKind, ed.buildSize }

// Selected returns the structure picked up in move mode.
func (ed *Editor) Selected() (ecs.Entity, bool) { return ed.selected, ed.hasSelected }

func (ed *Editor) reset() {
	ed.mode = ModeNone
	ed.buildKind = grid.KindBuilding
	ed.buildSize = 0
	ed.selected = ecs.Entity{}
	ed.hasSelected = false
	ed.fromBuild = false
}

// EnterBuild arms placement of kind at size. Entering build mode with the
// same arming again leaves it.
func (ed *Editor) EnterBuild(kind grid.Kind, size int) {
	if kind == grid.KindWall || size < 1 {
		size = 1
	}
	if ed.mode == ModeBuild && ed.buildKind == kind && ed.buildSize == size {
		ed.reset()
		return
	}
	ed.reset()
	ed.mode = ModeBuild
	ed.buildKind = kind
	ed.buildSize = size
}

// EnterMove switches to move mode, or leaves it when already there. A move
// entered from build mode hands back to the same build arming once the
// structure is dropped.
func (ed *Editor) EnterMove() {
	if ed.mode == ModeMove {
		ed.reset()
		return
	}
	fromBuild := ed.mode == ModeBuild
	kind, size := ed.buildKind, ed.buildSize
	ed.reset()
	ed.mode = ModeMove
	if fromBuild {
		ed.fromBuild, ed.prevKind, ed.prevSize = true, kind, size
	}
}

// Exit returns to ModeNone.
func (ed *Editor) Exit() { ed.reset() }

// Click applies the current mode at a screen point.
func (ed *Editor) Click(at mgl64.Vec2) error {
	cell := ed.reg.Grid().CellAt(at)
	switch ed.mode {
	case ModeBuild:
		_, err := ed.reg.Place(ed.buildKind, cell, ed.buildSize)
		return err
	case ModeMove:
		if !ed.hasSelected {
			o, ok := ed.reg.StructureAt(at)
			if !ok {
				return fmt.Errorf("%w: nothing to pick up at %v", ErrUnknownEntity, cell)
			}
			ed.selected, ed.hasSelected = o.Handle, true
			return nil
		}
		err := ed.reg.MoveStructure(ed.selected, cell)
		ed.selected, ed.hasSelected = ecs.Entity{}, false
		if err == nil && ed.fromBuild {
			kind, size := ed.prevKind, ed.prevSize
			ed.reset()
			ed.mode, ed.buildKind, ed.buildSize = ModeBuild, kind, size
		}
		return err
	default:
		return nil
	}
}

// Preview reports where the armed structure would land for a cursor at a
// screen point and whether it fits there.
func (ed *Editor) Preview(at mgl64.Vec2) (grid.Occupant, bool) {
	if ed.mode != ModeBuild {
		return grid.Occupant{}, false
	}
	g := ed.reg.Grid()
	o := grid.Occupant{Kind: ed.buildKind, Size: ed.buildSize, Origin: g.CellAt(at)}
	return o, g.CanPlace(o.Origin, o.Size)
}
