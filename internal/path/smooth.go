package path

import "github.com/go-gl/mathgl/mgl64"

// Smooth resamples path as a Catmull-Rom spline with segments points per
// span. End control points are clamped by repeating the boundary waypoint.
// The last waypoint is appended exactly once, so a path of n points yields
// (n-1)*segments+1 points. Paths shorter than 2 points, or a non-positive
// segment count, are returned unchanged.
func Smooth(path Path, segments int) Path {
	if len(path) < 2 || segments < 1 {
		return path
	}
	out := make(Path, 0, (len(path)-1)*segments+1)
	for i := 0; i < len(path)-1; i++ {
		p0 := path[i]
		if i > 0 {
			p0 = path[i-1]
		}
		p1 := path[i]
		p2 := path[i+1]
		p3 := p2
		if i+2 < len(path) {
			p3 = path[i+2]
		}
		for j := 0; j < segments; j++ {
			t := float64(j) / float64(segments)
			out = append(out, catmullRom(p0, p1, p2, p3, t))
		}
	}
	return append(out, path[len(path)-1])
}

func catmullRom(p0, p1, p2, p3 mgl64.Vec2, t float64) mgl64.Vec2 {
	t2 := t * t
	t3 := t2 * t
	a := p1.Mul(2)
	b := p2.Sub(p0).Mul(t)
	c := p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(t2)
	d := p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(t3)
	return a.Add(b).Add(c).Add(d).Mul(0.5)
}

// Length is the sum of Euclidean distances between consecutive waypoints.
func Length(path Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].Sub(path[i-1]).Len()
	}
	return total
}
