package view

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
)

const (
	zoomMin = 0.5
	zoomMax = 4.0
)

// camera maps the world buffer onto the battlefield viewport:
//
//	screen = (buf - cam) * zoom + vpHalf + offset
type camera struct {
	x, y float64 // buffer-space point at the viewport centre
	zoom float64

	vpW, vpH   float64
	offX, offY float64

	// bufW/bufH bound how far the centre may pan.
	bufW, bufH float64
}

func (c *camera) geoM() ebiten.GeoM {
	var m ebiten.GeoM
	m.Translate(-c.x, -c.y)
	m.Scale(c.zoom, c.zoom)
	m.Translate(c.vpW/2+c.offX, c.vpH/2+c.offY)
	return m
}

// unproject is the inverse of geoM.
func (c *camera) unproject(mx, my float64) mgl64.Vec2 {
	return mgl64.Vec2{
		(mx-c.offX-c.vpW/2)/c.zoom + c.x,
		(my-c.offY-c.vpH/2)/c.zoom + c.y,
	}
}

func (c *camera) pan(dx, dy float64) {
	c.x += dx / c.zoom
	c.y += dy / c.zoom
	c.clamp()
}

func (c *camera) zoomBy(f float64) {
	c.zoom *= f
	c.clamp()
}

func (c *camera) clamp() {
	if c.zoom < zoomMin {
		c.zoom = zoomMin
	}
	if c.zoom > zoomMax {
		c.zoom = zoomMax
	}
	c.x = min(max(c.x, 0), c.bufW)
	c.y = min(max(c.y, 0), c.bufH)
}
