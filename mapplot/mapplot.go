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

// Package mapplot draws gridded fields as maps: shaded cells, contours,
// wind vectors and hatching over coastlines, either on a longitude-latitude
// box or on an orthographic view of the northern hemisphere.
package mapplot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Default figure settings. Fonts are sized for the default figure and
// scale with Width.
const (
	DefaultWidth  = 36 * vg.Inch
	DefaultHeight = 24 * vg.Inch
	DefaultDPI    = 48
)

// A Map is a figure under construction. Layers are drawn in the order
// they are added, followed by the coastlines and the graticule.
type Map struct {
	Width, Height vg.Length
	DPI           int

	// ColorMaps holds the colour maps that Shade can refer to by name.
	// It may be nil, in which case only the built-in maps are available.
	ColorMaps *ColorMaps

	// Graticule controls whether latitude and longitude lines are drawn.
	Graticule bool

	proj       Projection
	layers     []layer
	coastlines []geom.Geom
	bars       []colorBar
}

type layer interface {
	draw(c *mapCanvas) error
}

type colorBar struct {
	cm     palette.ColorMap
	label  string
	ticker plot.Ticker
}

// New returns a map drawn with projection p.
func New(p Projection) *Map {
	return &Map{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		DPI:       DefaultDPI,
		Graticule: true,
		proj:      p,
	}
}

// Projection returns the projection of the map.
func (m *Map) Projection() Projection { return m.proj }

// fontSize is the size of the label text.
func (m *Map) fontSize() vg.Length { return vg.Points(36) * m.Width / DefaultWidth }

// mapCanvas is the map panel: a canvas whose aspect ratio matches the
// extent of the projection, so that the carto canvas and the plot
// transforms place points identically.
type mapCanvas struct {
	draw.Canvas
	carto    *carto.Canvas
	plt      *plot.Plot
	proj     Projection
	fontSize vg.Length
}

// point returns the position of lon, lat on the canvas.
func (c *mapCanvas) point(lon, lat float64) (vg.Point, bool) {
	x, y, ok := c.proj.Project(lon, lat)
	return c.carto.Coordinates(geom.Point{X: x, Y: y}), ok
}

func textStyle(size vg.Length) (draw.TextStyle, error) {
	font, err := vg.MakeFont(plot.DefaultFont, size)
	if err != nil {
		return draw.TextStyle{}, err
	}
	return draw.TextStyle{Color: color.Black, Font: font}, nil
}

func rectPath(r vg.Rectangle) vg.Path {
	var p vg.Path
	p.Move(r.Min)
	p.Line(vg.Point{X: r.Max.X, Y: r.Min.Y})
	p.Line(r.Max)
	p.Line(vg.Point{X: r.Min.X, Y: r.Max.Y})
	p.Close()
	return p
}

// Save writes the map to a PNG file at path.
func (m *Map) Save(path, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mapplot: %v", err)
	}
	if err := m.Render(f, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Render draws the map with the given title and writes it to w as a PNG
// image.
func (m *Map) Render(w io.Writer, title string) error {
	img := vgimg.NewWith(vgimg.UseWH(m.Width, m.Height), vgimg.UseDPI(m.DPI))
	dc := draw.New(img)
	dc.SetColor(color.White)
	dc.Fill(rectPath(dc.Rectangle))

	fs := m.fontSize()
	pad := fs
	var titleHeight vg.Length
	if title != "" {
		titleHeight = 2 * fs
	}
	barWidth := 5 * fs
	area := draw.Crop(dc, pad, -pad-vg.Length(len(m.bars))*barWidth, pad, -pad-titleHeight)
	if m.proj.Rectilinear() && m.Graticule {
		// Room for the graticule labels.
		area = draw.Crop(area, 3*fs, 0, 1.5*fs, 0)
	}
	panel := m.panel(area)

	plt, err := plot.New()
	if err != nil {
		return err
	}
	xmin, xmax, ymin, ymax := m.proj.Extent()
	plt.X.Min, plt.X.Max = xmin, xmax
	plt.Y.Min, plt.Y.Max = ymin, ymax
	mc := &mapCanvas{
		Canvas:   panel,
		carto:    carto.NewCanvas(ymax, ymin, xmax, xmin, panel),
		plt:      plt,
		proj:     m.proj,
		fontSize: fs,
	}
	for _, l := range m.layers {
		if err := l.draw(mc); err != nil {
			return err
		}
	}
	if err := m.drawCoastlines(mc); err != nil {
		return err
	}
	if m.Graticule {
		if err := m.drawGraticule(mc); err != nil {
			return err
		}
	}
	m.drawFrame(mc)

	if title != "" {
		ts, err := textStyle(fs * 32 / 36)
		if err != nil {
			return err
		}
		ts.XAlign = -0.5
		ts.YAlign = -0.5
		dc.FillText(ts, vg.Point{X: (panel.Min.X + panel.Max.X) / 2, Y: dc.Max.Y - pad - titleHeight/2}, title)
	}
	if err := m.drawColorBars(dc, panel, barWidth); err != nil {
		return err
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("mapplot: writing image: %v", err)
	}
	return nil
}

// panel returns the largest part of area that has the aspect ratio of
// the projection's extent, centred vertically and aligned to the left.
func (m *Map) panel(area draw.Canvas) draw.Canvas {
	xmin, xmax, ymin, ymax := m.proj.Extent()
	w, h := float64(area.Max.X-area.Min.X), float64(area.Max.Y-area.Min.Y)
	scale := math.Min(w/(xmax-xmin), h/(ymax-ymin))
	pw, ph := vg.Length(scale*(xmax-xmin)), vg.Length(scale*(ymax-ymin))
	min := vg.Point{X: area.Min.X, Y: area.Min.Y + (area.Max.Y-area.Min.Y-ph)/2}
	return draw.Canvas{
		Canvas:    area.Canvas,
		Rectangle: vg.Rectangle{Min: min, Max: vg.Point{X: min.X + pw, Y: min.Y + ph}},
	}
}

// drawFrame outlines the map: a rectangle for rectilinear projections
// and the equator for the hemisphere view.
func (m *Map) drawFrame(c *mapCanvas) {
	c.SetLineStyle(draw.LineStyle{Color: color.Black, Width: c.fontSize / 12})
	if m.proj.Rectilinear() {
		c.Stroke(rectPath(c.Rectangle))
		return
	}
	var p vg.Path
	for lon := 0.; lon <= 360; lon += 2 {
		pt, _ := c.point(lon, 0)
		if lon == 0 {
			p.Move(pt)
		} else {
			p.Line(pt)
		}
	}
	p.Close()
	c.Stroke(p)
}

// drawColorBars draws one vertical colour bar per shaded layer to the
// right of the map panel.
func (m *Map) drawColorBars(dc draw.Canvas, panel draw.Canvas, width vg.Length) error {
	if len(m.bars) == 0 {
		return nil
	}
	shrink := 0.7
	if len(m.bars) > 1 {
		shrink = 0.56
	}
	fs := m.fontSize()
	h := vg.Length(shrink) * (panel.Max.Y - panel.Min.Y)
	bottom := panel.Min.Y + (panel.Max.Y-panel.Min.Y-h)/2
	for i, b := range m.bars {
		p, err := plot.New()
		if err != nil {
			return err
		}
		p.Add(&plotter.ColorBar{ColorMap: b.cm, Vertical: true})
		p.HideX()
		p.Y.Padding = 0
		p.Y.Label.Text = b.label
		p.Y.Label.Font.Size = fs
		p.Y.Tick.Label.Font.Size = fs * 0.8
		if b.ticker != nil {
			p.Y.Tick.Marker = b.ticker
		}
		left := panel.Max.X + fs + vg.Length(i)*width
		p.Draw(draw.Canvas{
			Canvas: dc.Canvas,
			Rectangle: vg.Rectangle{
				Min: vg.Point{X: left, Y: bottom},
				Max: vg.Point{X: left + width - fs, Y: bottom + h},
			},
		})
	}
	return nil
}

// evenTicks places n evenly spaced ticks over the axis range.
type evenTicks struct{ n int }

func (t evenTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, t.n)
	for i := range ticks {
		v := min + (max-min)*float64(i)/float64(t.n-1)
		ticks[i] = plot.Tick{Value: v, Label: fmt.Sprintf("%.3g", v)}
	}
	return ticks
}
