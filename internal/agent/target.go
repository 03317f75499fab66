package agent

import (
	"math"

	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/go-gl/mathgl/mgl64"
)

const dirEpsilon = 1e-6

// wallPull is how far, in screen units, an attack point on a wall is moved
// from the face toward the wall centre.
const wallPull = 1.0

// AttackPoint returns where an agent at from should aim when attacking o:
// the point where the ray from the footprint centre toward the agent leaves
// the footprint's screen bounding box. Wall points sit one unit inside the
// face when the box is large enough. An agent already inside the box aims at
// its own position.
func AttackPoint(g *grid.Grid, from mgl64.Vec2, o grid.Occupant) mgl64.Vec2 {
	center := g.FootprintCenter(o)
	dir := from.Sub(center)
	dist := dir.Len()
	if dist < dirEpsilon {
		return center
	}
	n := dir.Mul(1 / dist)
	half := g.FootprintHalfExtent(o)

	t := math.Min(axisExit(half.X(), n.X()), axisExit(half.Y(), n.Y()))
	if o.IsWall() && t > wallPull {
		t -= wallPull
	}
	if t >= dist {
		return from
	}
	return center.Add(n.Mul(t))
}

func axisExit(half, component float64) float64 {
	if math.Abs(component) < dirEpsilon {
		return math.Inf(1)
	}
	return half / math.Abs(component)
}
