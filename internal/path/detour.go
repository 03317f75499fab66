package path

import (
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
)

// ThroughObstacle decides between walking around obstacles and walking up to
// the first one. The avoid-walls route wins when its extra length over the
// straight distance between the start and goal cell centres is at most
// maxDetour. Otherwise, or when no route around exists, the ignore-walls
// route is returned cut short before its first occupied cell.
func (p *Planner) ThroughObstacle(start, goal mgl64.Vec2, maxDetour float64) Path {
	if p == nil || p.grid == nil {
		return nil
	}
	sc := p.grid.CellAt(start)
	gc := p.grid.CellAt(goal)
	if sc == gc {
		return Path{p.grid.CellCenter(sc)}
	}

	around := p.AvoidWalls(start, goal)
	if len(around) > 0 {
		direct := p.grid.CellCenter(gc).Sub(p.grid.CellCenter(sc)).Len()
		if Length(around)-direct <= maxDetour {
			return around
		}
	}
	return p.untilObstruction(p.IgnoreWalls(start, goal))
}

// Natural prefers the smoothed avoid-walls route. If none exists it falls
// back to the ignore-walls route cut before its first occupied cell, smoothed
// when at least two points remain.
func (p *Planner) Natural(start, goal mgl64.Vec2) Path {
	if p == nil || p.grid == nil {
		return nil
	}
	sc := p.grid.CellAt(start)
	if sc == p.grid.CellAt(goal) {
		return Path{p.grid.CellCenter(sc)}
	}
	if around := p.AvoidWalls(start, goal); len(around) > 0 {
		return Smooth(around, SmoothSegments)
	}
	return Smooth(p.untilObstruction(p.IgnoreWalls(start, goal)), SmoothSegments)
}

// untilObstruction returns the prefix of path strictly before the first
// waypoint whose cell is occupied by anything.
func (p *Planner) untilObstruction(path Path) Path {
	var out Path
	p.grid.Read(func(v grid.View) {
		for i, pt := range path {
			if v.Occupied(p.grid.CellAt(pt)) {
				out = path[:i:i]
				return
			}
		}
		out = path
	})
	return out
}

// FirstOccupant scans path from the front and returns the first occupant
// accepted by match. A nil match accepts any occupant.
func (p *Planner) FirstOccupant(path Path, match func(grid.Occupant) bool) (grid.Occupant, bool) {
	if p == nil || p.grid == nil {
		return grid.Occupant{}, false
	}
	var (
		hit   grid.Occupant
		found bool
	)
	p.grid.Read(func(v grid.View) {
		for _, pt := range path {
			o, ok := v.Query(p.grid.CellAt(pt))
			if ok && (match == nil || match(o)) {
				hit, found = o, true
				return
			}
		}
	})
	return hit, found
}

// FirstWall returns the first wall crossed by path.
func (p *Planner) FirstWall(path Path) (grid.Occupant, bool) {
	return p.FirstOccupant(path, grid.Occupant.IsWall)
}
