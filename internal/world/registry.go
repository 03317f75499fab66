// Package world owns the entities on the battlefield: structures placed on
// the grid and the troops walking between them.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

var (
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrSpawnBlocked     = errors.New("spawn blocked")
	ErrUnknownEntity    = errors.New("unknown entity")
)

// Role says what an entity is.
type Role uint8

const (
	RoleTroop Role = iota
	RoleBuilding
	RoleWall
)

func (r Role) String() string {
	switch r {
	case RoleTroop:
		return "troop"
	case RoleBuilding:
		return "building"
	case RoleWall:
		return "wall"
	default:
		return "unknown"
	}
}

func roleOf(k grid.Kind) Role {
	if k == grid.KindWall {
		return RoleWall
	}
	return RoleBuilding
}

// Body is the single component every entity carries.
type Body struct {
	Pos  mgl64.Vec2 // screen space; footprint centre for structures
	Role Role
	Size int // footprint edge in cells, 0 for troops
}

// Registry is the ark world plus the grid it keeps in sync. Structure
// placement goes through the registry so the occupancy index and the entity
// store never disagree.
type Registry struct {
	mu     sync.RWMutex
	world  ecs.World
	bodies *ecs.Map1[Body]
	grid   *grid.Grid
	troops []ecs.Entity
}

// New creates an empty registry over g.
func New(g *grid.Grid) *Registry {
	r := &Registry{world: ecs.NewWorld(), grid: g}
	r.bodies = ecs.NewMap1[Body](&r.world)
	return r
}

// Grid returns the grid the registry places structures on.
func (r *Registry) Grid() *grid.Grid { return r.grid }

// Place creates a structure of the given kind covering size×size cells from
// topLeft.
func (r *Registry) Place(kind grid.Kind, topLeft grid.Cell, size int) (ecs.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.grid.CanPlace(topLeft, size) {
		return ecs.Entity{}, fmt.Errorf("%w: %s of size %d at %v", ErrInvalidPlacement, kind, size, topLeft)
	}
	center := r.grid.FootprintCenter(grid.Occupant{Origin: topLeft, Size: size})
	e := r.bodies.NewEntity(&Body{Pos: center, Role: roleOf(kind), Size: size})
	if !r.grid.Place(topLeft, size, e, kind) {
		r.world.RemoveEntity(e)
		return ecs.Entity{}, fmt.Errorf("%w: %s of size %d at %v", ErrInvalidPlacement, kind, size, topLeft)
	}
	return e, nil
}

// PlaceBuilding places a building.
func (r *Registry) PlaceBuilding(topLeft grid.Cell, size int) (ecs.Entity, error) {
	return r.Place(grid.KindBuilding, topLeft, size)
}

// PlaceWall places a single-cell wall.
func (r *Registry) PlaceWall(c grid.Cell) (ecs.Entity, error) {
	return r.Place(grid.KindWall, c, 1)
}

// MoveStructure relocates a building or wall. On failure the structure stays
// where it was.
func (r *Registry) MoveStructure(e ecs.Entity, topLeft grid.Cell) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.world.Alive(e) || r.bodies.Get(e).Role == RoleTroop {
		return fmt.Errorf("%w: %v is not a structure", ErrUnknownEntity, e)
	}
	if !r.grid.Move(e, topLeft) {
		return fmt.Errorf("%w: cannot move %v to %v", ErrInvalidPlacement, e, topLeft)
	}
	b := r.bodies.Get(e)
	b.Pos = r.grid.FootprintCenter(grid.Occupant{Origin: topLeft, Size: b.Size})
	return nil
}

// Demolish removes a structure from the grid and the world. Brains holding
// its handle see it die on their next tick.
func (r *Registry) Demolish(e ecs.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.world.Alive(e) || r.bodies.Get(e).Role == RoleTroop {
		return fmt.Errorf("%w: %v is not a structure", ErrUnknownEntity, e)
	}
	r.grid.Remove(e)
	r.world.RemoveEntity(e)
	return nil
}

// SpawnTroop creates a troop at a screen point. The spawn cell must be on
// the board and clear of structures, neighbours included.
func (r *Registry) SpawnTroop(at mgl64.Vec2) (ecs.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.grid.CellAt(at); !r.grid.InBounds(c) {
		return ecs.Entity{}, fmt.Errorf("%w: %v is off the board", ErrSpawnBlocked, at)
	}
	if !r.grid.CanSpawn(at) {
		return ecs.Entity{}, fmt.Errorf("%w: %v is next to a structure", ErrSpawnBlocked, at)
	}
	e := r.bodies.NewEntity(&Body{Pos: at, Role: RoleTroop})
	r.troops = append(r.troops, e)
	return e, nil
}

// RemoveTroop deletes a troop.
func (r *Registry) RemoveTroop(e ecs.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.troops {
		if t == e {
			r.troops = append(r.troops[:i], r.troops[i+1:]...)
			r.world.RemoveEntity(e)
			return nil
		}
	}
	return fmt.Errorf("%w: %v is not a troop", ErrUnknownEntity, e)
}

// Alive reports whether e still exists.
func (r *Registry) Alive(e ecs.Entity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.world.Alive(e)
}

// Position returns the screen position of e.
func (r *Registry) Position(e ecs.Entity) (mgl64.Vec2, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.world.Alive(e) {
		return mgl64.Vec2{}, false
	}
	return r.bodies.Get(e).Pos, true
}

// SetPosition moves a troop. Structures only move through MoveStructure.
func (r *Registry) SetPosition(e ecs.Entity, p mgl64.Vec2) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.world.Alive(e) {
		return
	}
	if b := r.bodies.Get(e); b.Role == RoleTroop {
		b.Pos = p
	}
}

// Body returns a copy of the component of e.
func (r *Registry) Body(e ecs.Entity) (Body, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.world.Alive(e) {
		return Body{}, false
	}
	return *r.bodies.Get(e), true
}

// Troops returns live troops in spawn order.
func (r *Registry) Troops() []ecs.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ecs.Entity, len(r.troops))
	copy(out, r.troops)
	return out
}

// Structures returns every placed structure once, in grid scan order.
func (r *Registry) Structures() []grid.Occupant {
	return r.grid.Occupants()
}

// StructureAt returns the structure covering the cell under a screen point.
func (r *Registry) StructureAt(at mgl64.Vec2) (grid.Occupant, bool) {
	return r.grid.Query(r.grid.CellAt(at))
}
