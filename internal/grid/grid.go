package grid

import (
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
)

const (
	defaultCellW  = 32
	defaultCellH  = 32
	defaultExtent = 10
)

// Cell is one integer grid square.
type Cell struct {
	X, Y int
}

// Add returns c offset by o.
func (c Cell) Add(o Cell) Cell { return Cell{X: c.X + o.X, Y: c.Y + o.Y} }

// Vec returns the cell's top-left corner as a fractional grid point.
func (c Cell) Vec() mgl64.Vec2 { return mgl64.Vec2{float64(c.X), float64(c.Y)} }

// Kind classifies what occupies a cell. It is fixed at placement time.
type Kind uint8

const (
	KindBuilding Kind = iota // attackable structure, not walkable
	KindWall                 // blocks the avoid-walls search
)

func (k Kind) String() string {
	switch k {
	case KindBuilding:
		return "building"
	case KindWall:
		return "wall"
	default:
		return "unknown"
	}
}

// Occupant is the record stored at every cell of a footprint.
type Occupant struct {
	Handle ecs.Entity
	Kind   Kind
	Size   int  // footprint edge length in cells
	Origin Cell // top-left cell of the footprint
}

// IsWall reports whether the occupant is a wall.
func (o Occupant) IsWall() bool { return o.Kind == KindWall }

// Config holds the board geometry.
type Config struct {
	CellW  float64 // screen width of one cell diamond
	CellH  float64 // screen height of one cell diamond
	Extent int     // cells per side (square board)
}

// DefaultConfig returns a 10×10 board of 32×32 cells.
func DefaultConfig() Config {
	return Config{CellW: defaultCellW, CellH: defaultCellH, Extent: defaultExtent}
}

// Grid owns the isometric transform and the occupancy index.
// All methods are safe for concurrent use: readers share the lock, placement
// and removal take it exclusively.
type Grid struct {
	cfg Config

	mu       sync.RWMutex
	cells    map[Cell]Occupant
	byHandle map[ecs.Entity][]Cell
	version  uint64
}

// New creates an empty grid. Non-positive config fields fall back to defaults.
func New(cfg Config) *Grid {
	def := DefaultConfig()
	if cfg.CellW <= 0 {
		cfg.CellW = def.CellW
	}
	if cfg.CellH <= 0 {
		cfg.CellH = def.CellH
	}
	if cfg.Extent <= 0 {
		cfg.Extent = def.Extent
	}
	return &Grid{
		cfg:      cfg,
		cells:    make(map[Cell]Occupant),
		byHandle: make(map[ecs.Entity][]Cell),
	}
}

// Config returns the board geometry.
func (g *Grid) Config() Config { return g.cfg }

// Extent returns the number of cells per side.
func (g *Grid) Extent() int { return g.cfg.Extent }

// CellSize returns the screen size of one cell.
func (g *Grid) CellSize() mgl64.Vec2 { return mgl64.Vec2{g.cfg.CellW, g.cfg.CellH} }

// GridToScreen projects a fractional grid point to screen space.
func (g *Grid) GridToScreen(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		(p.X() - p.Y()) * (g.cfg.CellW / 2),
		(p.X() + p.Y()) * (g.cfg.CellH / 2),
	}
}

// ScreenToGrid is the exact inverse of GridToScreen.
func (g *Grid) ScreenToGrid(s mgl64.Vec2) mgl64.Vec2 {
	a := g.cfg.CellW / 2
	b := g.cfg.CellH / 2
	return mgl64.Vec2{
		(s.Y()/b + s.X()/a) / 2,
		(s.Y()/b - s.X()/a) / 2,
	}
}

// CellAt returns the cell containing a screen point.
func (g *Grid) CellAt(s mgl64.Vec2) Cell {
	p := g.ScreenToGrid(s)
	return Cell{X: int(math.Floor(p.X())), Y: int(math.Floor(p.Y()))}
}

// CellCenter returns the screen-space centre of a cell.
func (g *Grid) CellCenter(c Cell) mgl64.Vec2 {
	return g.GridToScreen(c.Vec().Add(mgl64.Vec2{0.5, 0.5}))
}

// FootprintCenter returns the screen-space centre of an occupant's footprint.
func (g *Grid) FootprintCenter(o Occupant) mgl64.Vec2 {
	half := float64(o.Size) / 2
	return g.GridToScreen(o.Origin.Vec().Add(mgl64.Vec2{half, half}))
}

// FootprintHalfExtent returns the half width/height of the screen-space
// bounding box of an occupant's footprint diamond.
func (g *Grid) FootprintHalfExtent(o Occupant) mgl64.Vec2 {
	return mgl64.Vec2{float64(o.Size) * g.cfg.CellW / 2, float64(o.Size) * g.cfg.CellH / 2}
}

// InBounds reports whether c lies on the board.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.cfg.Extent && c.Y < g.cfg.Extent
}

// CanPlace reports whether a size×size block at topLeft fits on the board and
// covers only free cells.
func (g *Grid) CanPlace(topLeft Cell, size int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.canPlaceLocked(topLeft, size)
}

func (g *Grid) canPlaceLocked(topLeft Cell, size int) bool {
	if size < 1 {
		return false
	}
	if topLeft.X < 0 || topLeft.Y < 0 || topLeft.X+size > g.cfg.Extent || topLeft.Y+size > g.cfg.Extent {
		return false
	}
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if _, ok := g.cells[topLeft.Add(Cell{X: x, Y: y})]; ok {
				return false
			}
		}
	}
	return true
}

// Place writes an occupant into every cell of the footprint. It returns false,
// without mutating anything, when the footprint cannot be placed.
func (g *Grid) Place(topLeft Cell, size int, handle ecs.Entity, kind Kind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.canPlaceLocked(topLeft, size) {
		return false
	}
	g.placeLocked(topLeft, size, handle, kind)
	return true
}

func (g *Grid) placeLocked(topLeft Cell, size int, handle ecs.Entity, kind Kind) {
	occ := Occupant{Handle: handle, Kind: kind, Size: size, Origin: topLeft}
	covered := make([]Cell, 0, size*size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			c := topLeft.Add(Cell{X: x, Y: y})
			g.cells[c] = occ
			covered = append(covered, c)
		}
	}
	g.byHandle[handle] = append(g.byHandle[handle], covered...)
	g.version++
}

// Remove deletes every cell entry referencing handle. It returns the number of
// cells freed; zero means the handle was not on the grid.
func (g *Grid) Remove(handle ecs.Entity) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeLocked(handle)
}

func (g *Grid) removeLocked(handle ecs.Entity) int {
	covered, ok := g.byHandle[handle]
	if !ok {
		return 0
	}
	for _, c := range covered {
		delete(g.cells, c)
	}
	delete(g.byHandle, handle)
	g.version++
	return len(covered)
}

// Move relocates an occupant so its footprint starts at topLeft. The old
// footprint is cleared first so an overlapping move does not collide with
// itself. If the new spot is invalid the old footprint is restored and Move
// returns false.
func (g *Grid) Move(handle ecs.Entity, topLeft Cell) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	covered, ok := g.byHandle[handle]
	if !ok {
		return false
	}
	old := g.cells[covered[0]]
	g.removeLocked(handle)
	if !g.canPlaceLocked(topLeft, old.Size) {
		g.placeLocked(old.Origin, old.Size, handle, old.Kind)
		return false
	}
	g.placeLocked(topLeft, old.Size, handle, old.Kind)
	return true
}

// Query returns the occupant at c, if any.
func (g *Grid) Query(c Cell) (Occupant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	o, ok := g.cells[c]
	return o, ok
}

// Occupied reports whether anything occupies c.
func (g *Grid) Occupied(c Cell) bool {
	_, ok := g.Query(c)
	return ok
}

// IsBlockedForWalk reports whether c holds a wall. Buildings do not count.
func (g *Grid) IsBlockedForWalk(c Cell) bool {
	o, ok := g.Query(c)
	return ok && o.IsWall()
}

// Footprint returns the occupant record for a placed handle.
func (g *Grid) Footprint(handle ecs.Entity) (Occupant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	covered, ok := g.byHandle[handle]
	if !ok {
		return Occupant{}, false
	}
	return g.cells[covered[0]], true
}

// Len returns the number of occupied cells.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// Version increases on every mutation of the occupancy index.
func (g *Grid) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Cells returns every occupied cell in row-major order (y, then x).
func (g *Grid) Cells() []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedCellsLocked()
}

func (g *Grid) sortedCellsLocked() []Cell {
	out := make([]Cell, 0, len(g.cells))
	for c := range g.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Occupants returns each placed occupant once, ordered by the first of its
// cells met in a row-major scan.
func (g *Grid) Occupants() []Occupant {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[ecs.Entity]bool, len(g.byHandle))
	out := make([]Occupant, 0, len(g.byHandle))
	for _, c := range g.sortedCellsLocked() {
		o := g.cells[c]
		if seen[o.Handle] {
			continue
		}
		seen[o.Handle] = true
		out = append(out, o)
	}
	return out
}

// CanSpawn reports whether a unit may appear at a screen point: no occupied
// cell may touch the spawn cell, diagonals included.
func (g *Grid) CanSpawn(s mgl64.Vec2) bool {
	at := g.CellAt(s)
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.cells {
		if abs(c.X-at.X) <= 1 && abs(c.Y-at.Y) <= 1 {
			return false
		}
	}
	return true
}

// BoardHeight is the screen-space y of the board's far corner.
func (g *Grid) BoardHeight() float64 {
	n := float64(g.cfg.Extent)
	return g.GridToScreen(mgl64.Vec2{n, n}).Y()
}

// DepthIndex maps a screen y onto [minZ, maxZ] so that things lower on the
// board draw in front.
func (g *Grid) DepthIndex(screenY float64, minZ, maxZ int) int {
	h := g.BoardHeight()
	if h <= 0 {
		return minZ
	}
	y := math.Max(0, math.Min(screenY, h))
	t := y / h
	return minZ + int(float64(maxZ-minZ)*t)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// View is a lock-free read window onto the index. It is only valid inside
// the callback passed to Grid.Read.
type View struct {
	g *Grid
}

// Read runs fn under the read lock, so fn sees one consistent snapshot of the
// occupancy index. fn must not call locking Grid methods.
func (g *Grid) Read(fn func(v View)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(View{g: g})
}

// Query returns the occupant at c, if any.
func (v View) Query(c Cell) (Occupant, bool) {
	o, ok := v.g.cells[c]
	return o, ok
}

// Occupied reports whether anything occupies c.
func (v View) Occupied(c Cell) bool {
	_, ok := v.g.cells[c]
	return ok
}

// IsBlockedForWalk reports whether c holds a wall.
func (v View) IsBlockedForWalk(c Cell) bool {
	o, ok := v.g.cells[c]
	return ok && o.IsWall()
}

// InBounds reports whether c lies on the board.
func (v View) InBounds(c Cell) bool { return v.g.InBounds(c) }
