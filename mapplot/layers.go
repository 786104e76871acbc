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

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ShadeOptions control a shaded layer.
type ShadeOptions struct {
	// Label is written beside the colour bar.
	Label string

	// Min and Max are the ends of the colour bar. Values outside the
	// range take the colour of the nearest end.
	Min, Max float64

	// ColorMap is the name of the colour map. The default is
	// DefaultColorMap.
	ColorMap string

	// Auto sets Min and Max to the range of the data.
	Auto bool
}

// Shade fills each grid cell with a colour for its value and adds a colour
// bar. z has shape [len(lat), len(lon)].
func (m *Map) Shade(lon, lat []float64, z *sparse.DenseArray, o ShadeOptions) error {
	f, err := newField(lon, lat, z)
	if err != nil {
		return err
	}
	cm, err := m.ColorMaps.Get(o.ColorMap)
	if err != nil {
		return err
	}
	min, max := o.Min, o.Max
	if o.Auto {
		var ok bool
		if min, max, ok = f.finiteRange(); !ok {
			return fmt.Errorf("mapplot: %s has no values to shade", o.Label)
		}
		if min == max {
			min, max = min-0.5, max+0.5
		}
	}
	if !(max > min) {
		return fmt.Errorf("mapplot: colour range %g..%g for %s is empty", min, max, o.Label)
	}
	cm.SetMin(min)
	cm.SetMax(max)
	m.layers = append(m.layers, &shade{field: f, cm: cm})
	m.bars = append(m.bars, colorBar{cm: cm, label: o.Label})
	return nil
}

type shade struct {
	*field
	cm palette.ColorMap
}

func (s *shade) draw(c *mapCanvas) error {
	min, max := s.cm.Min(), s.cm.Max()
	p, err := sample(s.cm, 256)
	if err != nil {
		return err
	}
	if c.proj.Rectilinear() {
		h := plotter.NewHeatMap(clamped{field: s.field, min: min, max: max}, p)
		h.Min, h.Max = min, max
		h.Plot(c.Canvas, c.plt)
		return nil
	}
	return fillCells(c, s.field, colorFunc(s.cm))
}

// colorFunc returns the colour of a value in cm, using the end colours
// for values out of range.
func colorFunc(cm palette.ColorMap) func(v float64) (color.NRGBA, bool) {
	return func(v float64) (color.NRGBA, bool) {
		if math.IsNaN(v) {
			return color.NRGBA{}, false
		}
		v = math.Max(cm.Min(), math.Min(cm.Max(), v))
		c, err := cm.At(v)
		if err != nil {
			return color.NRGBA{}, false
		}
		return color.NRGBAModel.Convert(c).(color.NRGBA), true
	}
}

// cell returns the projected outline of the cell with the given edges,
// or false if any corner is hidden.
func (c *mapCanvas) cell(west, east, south, north float64) (geom.Polygon, bool) {
	corners := [][2]float64{{west, south}, {east, south}, {east, north}, {west, north}, {west, south}}
	ring := make([]geom.Point, len(corners))
	for i, p := range corners {
		x, y, ok := c.proj.Project(p[0], p[1])
		if !ok {
			return nil, false
		}
		ring[i] = geom.Point{X: x, Y: y}
	}
	return geom.Polygon{ring}, true
}

// fillCells draws every cell of f as a projected polygon.
func fillCells(c *mapCanvas, f *field, colorOf func(float64) (color.NRGBA, bool)) error {
	lonE, latE := edges(f.lon), latEdges(f.lat)
	for i := range f.lat {
		for j := range f.lon {
			col, ok := colorOf(f.z.Get(i, j))
			if !ok {
				continue
			}
			poly, ok := c.cell(lonE[j], lonE[j+1], latE[i], latE[i+1])
			if !ok {
				continue
			}
			// A thin outline of the fill colour hides the seams between cells.
			ls := draw.LineStyle{Color: col, Width: c.fontSize / 72}
			if err := c.carto.DrawVector(poly, col, ls, draw.GlyphStyle{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// GrayShade shades z in translucent grey between min and max and hatches
// each cell by the quarter of the range its value falls in. It adds a
// colour bar with five ticks.
func (m *Map) GrayShade(lon, lat []float64, z *sparse.DenseArray, label string, min, max float64) error {
	f, err := newField(lon, lat, z)
	if err != nil {
		return err
	}
	if !(max > min) {
		return fmt.Errorf("mapplot: grey range %g..%g for %s is empty", min, max, label)
	}
	cm := builtin["gray_r"]()
	cm.SetAlpha(0.4)
	cm.SetMin(min)
	cm.SetMax(max)
	m.layers = append(m.layers, &grayShade{shade: shade{field: f, cm: cm}})
	m.bars = append(m.bars, colorBar{cm: cm, label: label, ticker: evenTicks{n: 5}})
	return nil
}

type grayShade struct {
	shade
}

// hatches holds, for each band, the hatch lines of a unit cell as pairs
// of (s, t) end points: "--", "///", "\\\" and "++".
var hatches = [4][][2][2]float64{
	{{{0, 1. / 3}, {1, 1. / 3}}, {{0, 2. / 3}, {1, 2. / 3}}},
	{{{0.5, 0}, {1, 0.5}}, {{0, 0}, {1, 1}}, {{0, 0.5}, {0.5, 1}}},
	{{{0.5, 0}, {0, 0.5}}, {{1, 0}, {0, 1}}, {{1, 0.5}, {0.5, 1}}},
	{{{0.5, 0}, {0.5, 1}}, {{0, 0.5}, {1, 0.5}}},
}

// band returns the quarter of [min, max] that v falls in.
func band(v, min, max float64) int {
	b := int((v - min) / (max - min) * 4)
	if b < 0 {
		return 0
	}
	if b > 3 {
		return 3
	}
	return b
}

func (g *grayShade) draw(c *mapCanvas) error {
	if err := g.shade.draw(c); err != nil {
		return err
	}
	min, max := g.cm.Min(), g.cm.Max()
	ls := draw.LineStyle{Color: color.NRGBA{A: 160}, Width: c.fontSize / 24}
	lonE, latE := edges(g.lon), latEdges(g.lat)
	for i := range g.lat {
		for j := range g.lon {
			v := g.z.Get(i, j)
			if math.IsNaN(v) {
				continue
			}
			poly, ok := c.cell(lonE[j], lonE[j+1], latE[i], latE[i+1])
			if !ok {
				continue
			}
			for _, l := range hatches[band(v, min, max)] {
				line := geom.LineString{bilinear(poly[0], l[0]), bilinear(poly[0], l[1])}
				if err := c.carto.DrawVector(line, color.NRGBA{}, ls, draw.GlyphStyle{}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// bilinear returns the point at fractional position st within the
// quadrilateral whose first four points are ring's corners in the order
// south-west, south-east, north-east, north-west.
func bilinear(ring []geom.Point, st [2]float64) geom.Point {
	s, t := st[0], st[1]
	sw, se, ne, nw := ring[0], ring[1], ring[2], ring[3]
	return geom.Point{
		X: (1-s)*(1-t)*sw.X + s*(1-t)*se.X + s*t*ne.X + (1-s)*t*nw.X,
		Y: (1-s)*(1-t)*sw.Y + s*(1-t)*se.Y + s*t*ne.Y + (1-s)*t*nw.Y,
	}
}

// Hatch dots the cells where mask is not NaN. alpha is the opacity of
// the dots.
func (m *Map) Hatch(lon, lat []float64, mask *sparse.DenseArray, alpha float64) error {
	f, err := newField(lon, lat, mask)
	if err != nil {
		return err
	}
	m.layers = append(m.layers, &hatch{field: f, alpha: alpha})
	return nil
}

type hatch struct {
	*field
	alpha float64
}

func (h *hatch) draw(c *mapCanvas) error {
	glyph := draw.GlyphStyle{
		Color:  color.NRGBA{A: uint8(math.Round(255 * h.alpha))},
		Radius: c.fontSize / 12,
		Shape:  draw.CircleGlyph{},
	}
	for i, lat := range h.lat {
		for j, lon := range h.lon {
			if math.IsNaN(h.z.Get(i, j)) {
				continue
			}
			x, y, ok := c.proj.Project(lon, lat)
			if !ok {
				continue
			}
			if err := c.carto.DrawVector(geom.Point{X: x, Y: y}, color.NRGBA{}, draw.LineStyle{}, glyph); err != nil {
				return err
			}
		}
	}
	return nil
}

// PressureLevels are the contour levels for sea-level pressure in hPa.
var PressureLevels = floats.Span(make([]float64, 35), 900, 1036)

// NiceLevels returns about n contour levels at round values within
// [min, max].
func NiceLevels(min, max float64, n int) []float64 {
	if !(max > min) || n < 1 {
		return []float64{min}
	}
	raw := (max - min) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	var step float64
	for _, f := range []float64{1, 2, 2.5, 5, 10} {
		step = f * mag
		if step >= raw {
			break
		}
	}
	lo := math.Ceil(min/step) * step
	hi := math.Floor(max/step) * step
	k := int(math.Round((hi-lo)/step)) + 1
	if k < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, k), lo, hi)
}

// Contour draws labelled black contours of z. With no levels, round
// levels are chosen from the range of the data.
func (m *Map) Contour(lon, lat []float64, z *sparse.DenseArray, levels []float64) error {
	if !m.proj.Rectilinear() {
		return fmt.Errorf("mapplot: contours are only drawn on rectilinear projections")
	}
	f, err := newField(lon, lat, z)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		min, max, ok := f.finiteRange()
		if !ok {
			return fmt.Errorf("mapplot: no values to contour")
		}
		levels = NiceLevels(min, max, 10)
	}
	m.layers = append(m.layers, &contour{
		field:  f,
		levels: levels,
		color:  color.Black,
		width:  1. / 12,
		font:   1,
	})
	return nil
}

// ColorLine draws the single contour of z at value as a thick dashed line
// in col.
func (m *Map) ColorLine(lon, lat []float64, z *sparse.DenseArray, value float64, col color.Color) error {
	if !m.proj.Rectilinear() {
		return fmt.Errorf("mapplot: contours are only drawn on rectilinear projections")
	}
	f, err := newField(lon, lat, z)
	if err != nil {
		return err
	}
	m.layers = append(m.layers, &contour{
		field:  f,
		levels: []float64{value},
		color:  col,
		width:  10. / 36,
		dashed: true,
		font:   48. / 36,
	})
	return nil
}

// contour is a set of contour lines. width and font are relative to the
// map's font size.
type contour struct {
	*field
	levels      []float64
	color       color.Color
	width, font float64
	dashed      bool
}

func (l *contour) draw(c *mapCanvas) error {
	style := draw.LineStyle{Color: l.color, Width: vg.Length(l.width) * c.fontSize}
	if l.dashed {
		style.Dashes = []vg.Length{c.fontSize / 2, c.fontSize / 4}
	}
	p := plotter.NewContour(l.field, l.levels, colors{l.color})
	p.LineStyles = []draw.LineStyle{style}
	p.Min, p.Max = l.levels[0]-1, l.levels[len(l.levels)-1]+1
	p.Plot(c.Canvas, c.plt)
	return l.label(c)
}

// label writes the value of each level beside its contour, at up to a
// few places per level spaced well apart.
func (l *contour) label(c *mapCanvas) error {
	ts, err := textStyle(vg.Length(l.font) * c.fontSize * 0.8)
	if err != nil {
		return err
	}
	ts.Color = l.color
	ts.XAlign = -0.5
	ts.YAlign = -0.5
	minDist := 10 * c.fontSize
	nc, nr := l.Dims()
	stride := nr / 6
	if stride < 1 {
		stride = 1
	}
	var placed []vg.Point
	for _, z := range l.levels {
		text := fmt.Sprintf("%.1f", z)
		for r := stride / 2; r < nr; r += stride {
			for col := 0; col+1 < nc; col++ {
				a, b := l.Z(col, r), l.Z(col+1, r)
				if math.IsNaN(a) || math.IsNaN(b) || a == b || (a-z)*(b-z) > 0 {
					continue
				}
				frac := (z - a) / (b - a)
				lon := l.X(col) + frac*(l.X(col+1)-l.X(col))
				pt, ok := c.point(lon, l.Y(r))
				if !ok || !c.Contains(pt) || near(pt, placed, minDist) {
					continue
				}
				placed = append(placed, pt)
				w := ts.Font.Width(text)
				h := ts.Font.Extents().Height
				c.SetColor(color.White)
				c.Fill(rectPath(vg.Rectangle{
					Min: vg.Point{X: pt.X - w/2, Y: pt.Y - h/2},
					Max: vg.Point{X: pt.X + w/2, Y: pt.Y + h/2},
				}))
				c.FillText(ts, pt, text)
			}
		}
	}
	return nil
}

func near(p vg.Point, others []vg.Point, d vg.Length) bool {
	for _, o := range others {
		dx, dy := p.X-o.X, p.Y-o.Y
		if dx*dx+dy*dy < d*d {
			return true
		}
	}
	return false
}
