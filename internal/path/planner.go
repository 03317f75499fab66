package path

import (
	"container/heap"
	"math"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
)

// SmoothSegments is the number of spline samples per span used by the
// smoothed entry points.
const SmoothSegments = 10

// Policy selects how the grid search treats occupied cells.
type Policy uint8

const (
	AvoidWalls  Policy = iota // wall cells are never expanded
	IgnoreWalls               // only the board edge limits the search
)

func (p Policy) String() string {
	switch p {
	case AvoidWalls:
		return "avoid"
	case IgnoreWalls:
		return "ignore"
	default:
		return "unknown"
	}
}

// Path is an ordered list of screen-space waypoints. Front is the next
// waypoint, back is the destination. Empty means unreachable.
type Path []mgl64.Vec2

// Planner computes paths over a grid. It keeps no state between calls; each
// search reads one consistent snapshot of the occupancy index.
type Planner struct {
	grid *grid.Grid
}

// NewPlanner returns a planner bound to g.
func NewPlanner(g *grid.Grid) *Planner {
	return &Planner{grid: g}
}

// Grid returns the grid the planner searches.
func (p *Planner) Grid() *grid.Grid { return p.grid }

// --- A* search ---

type searchNode struct {
	cell  grid.Cell
	g, h  float64
	seq   int // insertion order, breaks priority ties
	index int // heap index
}

type openList []*searchNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) { n := x.(*searchNode); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8]grid.Cell{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

func manhattan(a, b grid.Cell) float64 {
	return math.Abs(float64(a.X-b.X)) + math.Abs(float64(a.Y-b.Y))
}

// Find runs an 8-connected A* from the cell under start to the cell under
// goal and returns the cell centres along the way, start cell first.
// It returns an empty path when both points share a cell, when either lies
// off the board, or when no route exists. Under AvoidWalls the goal cell is
// always admissible so a wall can itself be the destination.
func (p *Planner) Find(start, goal mgl64.Vec2, policy Policy) Path {
	if p == nil || p.grid == nil {
		return nil
	}
	sc := p.grid.CellAt(start)
	gc := p.grid.CellAt(goal)
	if sc == gc || !p.grid.InBounds(sc) || !p.grid.InBounds(gc) {
		return nil
	}

	var cells []grid.Cell
	p.grid.Read(func(v grid.View) {
		cells = search(v, sc, gc, policy)
	})
	if len(cells) == 0 {
		return nil
	}
	out := make(Path, len(cells))
	for i, c := range cells {
		out[i] = p.grid.CellCenter(c)
	}
	return out
}

func search(v grid.View, start, goal grid.Cell, policy Policy) []grid.Cell {
	seq := 0
	ol := &openList{{cell: start, h: manhattan(start, goal)}}
	heap.Init(ol)

	cost := map[grid.Cell]float64{start: 0}
	from := map[grid.Cell]grid.Cell{start: start}

	found := false
	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*searchNode)
		if cur.cell == goal {
			found = true
			break
		}
		// Stale duplicate; a cheaper entry for this cell was already expanded.
		if cur.g > cost[cur.cell] {
			continue
		}
		for _, d := range dirs {
			next := cur.cell.Add(d)
			if !v.InBounds(next) {
				continue
			}
			if policy == AvoidWalls && next != goal && v.IsBlockedForWalk(next) {
				continue
			}
			step := 1.0
			if d.X != 0 && d.Y != 0 {
				step = math.Sqrt2
			}
			ng := cost[cur.cell] + step
			if prev, ok := cost[next]; ok && ng >= prev {
				continue
			}
			cost[next] = ng
			from[next] = cur.cell
			seq++
			heap.Push(ol, &searchNode{cell: next, g: ng, h: manhattan(next, goal), seq: seq})
		}
	}
	if !found {
		return nil
	}
	return buildCells(from, start, goal)
}

func buildCells(from map[grid.Cell]grid.Cell, start, goal grid.Cell) []grid.Cell {
	var cells []grid.Cell
	for c := goal; c != start; c = from[c] {
		cells = append(cells, c)
	}
	cells = append(cells, start)
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}

// AvoidWalls searches around wall cells.
func (p *Planner) AvoidWalls(start, goal mgl64.Vec2) Path {
	return p.Find(start, goal, AvoidWalls)
}

// IgnoreWalls searches as if the board were empty.
func (p *Planner) IgnoreWalls(start, goal mgl64.Vec2) Path {
	return p.Find(start, goal, IgnoreWalls)
}

// AvoidWallsSmoothed is AvoidWalls followed by Smooth.
func (p *Planner) AvoidWallsSmoothed(start, goal mgl64.Vec2) Path {
	return Smooth(p.AvoidWalls(start, goal), SmoothSegments)
}

// Straight walks the cells on the line between the two points without any
// search, one cell per step along the dominant axis.
func (p *Planner) Straight(start, goal mgl64.Vec2) Path {
	if p == nil || p.grid == nil {
		return nil
	}
	sc := p.grid.CellAt(start)
	gc := p.grid.CellAt(goal)
	dx, dy := gc.X-sc.X, gc.Y-sc.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		return Path{p.grid.CellCenter(sc)}
	}
	sx := float64(dx) / float64(steps)
	sy := float64(dy) / float64(steps)
	out := make(Path, 0, steps+1)
	for i := 0; i <= steps; i++ {
		c := grid.Cell{
			X: int(math.Round(float64(sc.X) + sx*float64(i))),
			Y: int(math.Round(float64(sc.Y) + sy*float64(i))),
		}
		out = append(out, p.grid.CellCenter(c))
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
