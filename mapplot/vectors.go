/*
Copyright © 2021 the NcMagics authors.
This file is part of NcMagics.

NcMagics is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

NcMagics is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with NcMagics.  If not, see <http://www.gnu.org/licenses/>.
*/

package mapplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// VectorOptions control a vector layer.
type VectorOptions struct {
	// Interval thins the vectors to every Interval-th grid point in each
	// direction.
	Interval int

	// Scale is the speed drawn as one degree of arrow length.
	Scale float64

	// Barbs draws wind barbs instead of arrows: a half barb is 5, a full
	// barb 10 and a pennant 50 in the units of the data.
	Barbs bool
}

// Vectors draws the vector field (u, v), where u points east and v north.
func (m *Map) Vectors(lon, lat []float64, u, v *sparse.DenseArray, o VectorOptions) error {
	fu, err := newField(lon, lat, u)
	if err != nil {
		return err
	}
	fv, err := newField(lon, lat, v)
	if err != nil {
		return err
	}
	if o.Interval < 1 {
		o.Interval = 1
	}
	if !o.Barbs && !(o.Scale > 0) {
		return fmt.Errorf("mapplot: vector scale must be positive, not %g", o.Scale)
	}
	m.layers = append(m.layers, &vectors{u: fu, v: fv, o: o})
	return nil
}

type vectors struct {
	u, v *field
	o    VectorOptions
}

func (l *vectors) draw(c *mapCanvas) error {
	for i := 0; i < len(l.u.lat); i += l.o.Interval {
		for j := 0; j < len(l.u.lon); j += l.o.Interval {
			lon, lat := l.u.lon[j], l.u.lat[i]
			u, v := l.u.z.Get(i, j), l.v.z.Get(i, j)
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			p0, ok := c.point(lon, lat)
			if !ok || !c.Contains(p0) {
				continue
			}
			if l.o.Barbs {
				speed := math.Hypot(u, v)
				var dir vg.Point
				if speed > 0 {
					δ := 0.1 / speed
					up, _ := c.point(lon-u*δ, lat-v*δ)
					dir = unit(up.X-p0.X, up.Y-p0.Y)
				}
				c.barb(p0, dir, speed)
				continue
			}
			p1, ok := c.point(lon+u/l.o.Scale, lat+v/l.o.Scale)
			if !ok {
				continue
			}
			c.arrow(p0, p1)
		}
	}
	return nil
}

// unit returns the unit vector along (x, y), or the zero vector.
func unit(x, y vg.Length) vg.Point {
	l := vg.Length(math.Hypot(float64(x), float64(y)))
	if l == 0 {
		return vg.Point{}
	}
	return vg.Point{X: x / l, Y: y / l}
}

func add(p vg.Point, d vg.Point, s vg.Length) vg.Point {
	return vg.Point{X: p.X + d.X*s, Y: p.Y + d.Y*s}
}

func fillPolygon(c *mapCanvas, col color.Color, pts ...vg.Point) {
	var p vg.Path
	p.Move(pts[0])
	for _, pt := range pts[1:] {
		p.Line(pt)
	}
	p.Close()
	c.SetColor(col)
	c.Fill(p)
}

// arrow draws a filled arrow from p0 to p1.
func (c *mapCanvas) arrow(p0, p1 vg.Point) {
	e := unit(p1.X-p0.X, p1.Y-p0.Y)
	if e == (vg.Point{}) {
		return
	}
	length := vg.Length(math.Hypot(float64(p1.X-p0.X), float64(p1.Y-p0.Y)))
	w := c.fontSize / 8
	headLength, headWidth := 4*w, 2*w
	if headLength > length {
		headLength = length
	}
	n := vg.Point{X: -e.Y, Y: e.X}
	base := add(p1, e, -headLength)
	fillPolygon(c, color.Black,
		add(p0, n, w/2), add(base, n, w/2), add(base, n, headWidth),
		p1,
		add(base, n, -headWidth), add(base, n, -w/2), add(p0, n, -w/2),
	)
}

// barb draws a wind barb at p whose shaft points along dir, the
// direction the wind blows from.
func (c *mapCanvas) barb(p, dir vg.Point, speed float64) {
	length := 1.5 * c.fontSize
	style := draw.LineStyle{Color: color.Black, Width: c.fontSize / 12}
	pennants, full, half := barbCounts(speed)
	if pennants+full+half == 0 || dir == (vg.Point{}) {
		var circle vg.Path
		circle.Move(vg.Point{X: p.X + length/8, Y: p.Y})
		circle.Arc(p, length/8, 0, 2*math.Pi)
		circle.Close()
		c.SetLineStyle(style)
		c.Stroke(circle)
		return
	}
	end := add(p, dir, length)
	c.StrokeLines(style, []vg.Point{p, end})

	spacing := length / 8
	feather := length * 0.4
	side := vg.Point{X: dir.Y, Y: -dir.X}
	pos := end
	if pennants == 0 && full == 0 {
		// A lone half barb sits one space in from the end.
		pos = add(pos, dir, -spacing)
	}
	for i := 0; i < pennants; i++ {
		next := add(pos, dir, -spacing)
		fillPolygon(c, color.Black, pos, add(pos, side, feather), next)
		pos = add(next, dir, -spacing/2)
	}
	for i := 0; i < full; i++ {
		tip := add(add(pos, side, feather), dir, feather/4)
		c.StrokeLines(style, []vg.Point{pos, tip})
		pos = add(pos, dir, -spacing)
	}
	if half > 0 {
		tip := add(add(pos, side, feather/2), dir, feather/8)
		c.StrokeLines(style, []vg.Point{pos, tip})
	}
}

// barbCounts returns the number of pennants, full barbs and half barbs
// for a speed.
func barbCounts(speed float64) (pennants, full, half int) {
	r := int(math.Round(speed/5)) * 5
	return r / 50, (r % 50) / 10, (r % 10) / 5
}
