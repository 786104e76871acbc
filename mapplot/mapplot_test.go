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
	"bytes"
	"image/color"
	"image/png"
	"io/ioutil"
	"math"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ncmagics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/vg"
)

// testGrid returns a small grid over Japan, with latitude decreasing as in
// most model output, and a field that increases to the north-east.
func testGrid() (lon, lat []float64, z *sparse.DenseArray) {
	for x := 120.; x <= 150; x += 5 {
		lon = append(lon, x)
	}
	for y := 50.; y >= 25; y -= 5 {
		lat = append(lat, y)
	}
	z = sparse.ZerosDense(len(lat), len(lon))
	for i, y := range lat {
		for j, x := range lon {
			z.Set(y+x/10, i, j)
		}
	}
	return lon, lat, z
}

func smallMap(p Projection) *Map {
	m := New(p)
	m.Width, m.Height = 6*vg.Inch, 4*vg.Inch
	return m
}

func TestBuiltinColorMaps(t *testing.T) {
	var cms *ColorMaps
	cm, err := cms.Get("")
	require.NoError(t, err)
	cm.SetMin(0)
	cm.SetMax(20)

	c, err := cm.At(0)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 242, G: 242, B: 242, A: 255}, c)
	c, err = cm.At(20)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 180, G: 0, B: 104, A: 255}, c)

	_, err = cm.At(21)
	assert.Equal(t, palette.ErrOverflow, err)
	_, err = cm.At(-1)
	assert.Equal(t, palette.ErrUnderflow, err)
	_, err = cm.At(math.NaN())
	assert.Equal(t, palette.ErrNaN, err)

	for _, name := range []string{"kishotyo", "temperature", "diff", "gray", "gray_r", "YlOrBr"} {
		_, err := cms.Get(name)
		assert.NoError(t, err, name)
	}
	_, err = cms.Get("jet")
	assert.Error(t, err)
}

func TestGrayAlpha(t *testing.T) {
	cm := builtin["gray_r"]()
	cm.SetMin(0)
	cm.SetMax(1)
	cm.SetAlpha(0.4)
	c, err := cm.At(0.5)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 102}, c)
}

func TestLoadColorMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colormaps.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
[[colormap]]
name = "precip"
colors = ["#ffffff", "#0000ff", "#ff000080"]
`), 0644))

	cms, err := LoadColorMaps(path)
	require.NoError(t, err)
	assert.Contains(t, cms.Names(), "precip")
	assert.Contains(t, cms.Names(), "kishotyo")

	cm, err := cms.Get("precip")
	require.NoError(t, err)
	cm.SetMin(0)
	cm.SetMax(2)
	c, err := cm.At(0.5)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 255, A: 255}, c)
	c, err = cm.At(1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, c)
}

func TestLoadColorMapsInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"short":  "[[colormap]]\nname = \"a\"\ncolors = [\"#ffffff\"]\n",
		"badhex": "[[colormap]]\nname = \"a\"\ncolors = [\"#fffff\", \"#000000\"]\n",
		"noname": "[[colormap]]\ncolors = [\"#ffffff\", \"#000000\"]\n",
		"notoml": "[[colormap",
	} {
		path := filepath.Join(dir, name+".toml")
		require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
		_, err := LoadColorMaps(path)
		assert.Error(t, err, name)
	}
}

func TestParseHex(t *testing.T) {
	c, err := parseHex("#218cff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 33, G: 140, B: 255, A: 255}, c)
	c, err = parseHex("00000080")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{A: 128}, c)
	_, err = parseHex("#zzzzzz")
	assert.Error(t, err)
}

func TestNiceLevels(t *testing.T) {
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, NiceLevels(0, 100, 10))
	assert.Equal(t, []float64{5, 7.5, 10, 12.5, 15, 17.5, 20, 22.5, 25}, NiceLevels(3, 27, 10))
	assert.Equal(t, []float64{4}, NiceLevels(4, 4, 10))
}

func TestPressureLevels(t *testing.T) {
	require.Len(t, PressureLevels, 35)
	assert.Equal(t, 900., PressureLevels[0])
	assert.Equal(t, 1036., PressureLevels[34])
	assert.Equal(t, 1012., PressureLevels[28])
}

func TestOrthographic(t *testing.T) {
	x, y, ok := NorthPolar.Project(0, 90)
	assert.True(t, ok)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	// 90°E on the equator is at the bottom of the map.
	x, y, ok = NorthPolar.Project(90, 0)
	assert.True(t, ok)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, -1, y, 1e-12)

	x, y, _ = NorthPolar.Project(180, 60)
	assert.InDelta(t, 0.5, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	_, _, ok = NorthPolar.Project(140, -10)
	assert.False(t, ok)
	assert.False(t, NorthPolar.Rectilinear())
}

func TestEdges(t *testing.T) {
	assert.Equal(t, []float64{-0.5, 0.5, 1.5, 2.5}, edges([]float64{0, 1, 2}))
	assert.Equal(t, []float64{90, 88.75, 86.25, 83.75}, latEdges([]float64{90, 87.5, 85}))
}

func TestBand(t *testing.T) {
	assert.Equal(t, 0, band(-5, 0, 100))
	assert.Equal(t, 0, band(10, 0, 100))
	assert.Equal(t, 1, band(30, 0, 100))
	assert.Equal(t, 2, band(50, 0, 100))
	assert.Equal(t, 3, band(100, 0, 100))
	assert.Equal(t, 3, band(150, 0, 100))
}

func TestBarbCounts(t *testing.T) {
	for _, test := range []struct {
		speed                float64
		pennants, full, half int
	}{
		{speed: 2},
		{speed: 4, half: 1},
		{speed: 12, full: 1},
		{speed: 27, full: 2, half: 1},
		{speed: 65, pennants: 1, full: 1, half: 1},
		{speed: 101, pennants: 2},
	} {
		p, f, h := barbCounts(test.speed)
		assert.Equal(t, test.pennants, p, "pennants for %g", test.speed)
		assert.Equal(t, test.full, f, "full barbs for %g", test.speed)
		assert.Equal(t, test.half, h, "half barbs for %g", test.speed)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "150°E", LonLabel(150))
	assert.Equal(t, "180°", LonLabel(180))
	assert.Equal(t, "170°W", LonLabel(190))
	assert.Equal(t, "0°", LonLabel(360))
	assert.Equal(t, "30°N", LatLabel(30))
	assert.Equal(t, "10°S", LatLabel(-10))
	assert.Equal(t, "0°", LatLabel(0))
}

func TestFieldShape(t *testing.T) {
	lon, lat, z := testGrid()
	m := New(Equirectangular{Bounds: ncmagics.JapanBounds})
	assert.Error(t, m.Shade(lon[1:], lat, z, ShadeOptions{Min: 0, Max: 1}))
	assert.Error(t, m.Shade(lon, lat, z, ShadeOptions{Min: 1, Max: 1}))
	assert.Error(t, m.Shade(lon, lat, z, ShadeOptions{Min: 0, Max: 1, ColorMap: "nope"}))
	assert.Error(t, m.Vectors(lon, lat, z, z, VectorOptions{}))
}

func TestFieldOrientation(t *testing.T) {
	lon, lat, z := testGrid()
	f, err := newField(lon, lat, z)
	require.NoError(t, err)
	c, r := f.Dims()
	assert.Equal(t, len(lon), c)
	assert.Equal(t, len(lat), r)
	// Row 0 of the grid is the southernmost latitude.
	assert.Equal(t, 25., f.Y(0))
	assert.Equal(t, 25+120./10, f.Z(0, 0))
	assert.Equal(t, 50+150./10, f.Z(c-1, r-1))

	min, max, ok := f.finiteRange()
	assert.True(t, ok)
	assert.Equal(t, 37., min)
	assert.Equal(t, 65., max)

	cl := clamped{field: f, min: 40, max: 60}
	assert.Equal(t, 40., cl.Z(0, 0))
	assert.Equal(t, 60., cl.Z(c-1, r-1))
	z.Set(math.NaN(), len(lat)-1, 0)
	assert.True(t, math.IsInf(cl.Z(0, 0), -1))
}

// decodePNG checks that b is a PNG image of the expected size.
func decodePNG(t *testing.T, b *bytes.Buffer, width, height int) {
	img, err := png.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRenderJapan(t *testing.T) {
	lon, lat, z := testGrid()
	m := smallMap(Equirectangular{Bounds: ncmagics.JapanBounds})
	require.NoError(t, m.Shade(lon, lat, z, ShadeOptions{Label: "test", Min: 40, Max: 60, ColorMap: "temperature"}))
	require.NoError(t, m.GrayShade(lon, lat, z, "gray", 0, 100))
	require.NoError(t, m.Contour(lon, lat, z, nil))
	require.NoError(t, m.ColorLine(lon, lat, z, 50, color.NRGBA{B: 255, A: 255}))

	mask := z.Copy()
	for i, v := range mask.Elements {
		if v < 55 {
			mask.Elements[i] = math.NaN()
		}
	}
	require.NoError(t, m.Hatch(lon, lat, mask, 0.5))

	u := sparse.ZerosDense(len(lat), len(lon))
	v := sparse.ZerosDense(len(lat), len(lon))
	for i := range u.Elements {
		u.Elements[i] = float64(i)
		v.Elements[i] = -5
	}
	require.NoError(t, m.Vectors(lon, lat, u, v, VectorOptions{Interval: 2, Scale: 10}))
	require.NoError(t, m.Vectors(lon, lat, u, v, VectorOptions{Interval: 3, Barbs: true}))

	b := new(bytes.Buffer)
	require.NoError(t, m.Render(b, "2021-01-01_00 test"))
	decodePNG(t, b, 6*48, 4*48)
}

func TestRenderHemisphere(t *testing.T) {
	lon, lat, z := testGrid()
	m := smallMap(NorthPolar)
	require.NoError(t, m.Shade(lon, lat, z, ShadeOptions{Label: "auto", ColorMap: "diff", Auto: true}))
	require.NoError(t, m.Hatch(lon, lat, z, 0.3))
	require.NoError(t, m.Vectors(lon, lat, z, z, VectorOptions{Barbs: true}))
	assert.Error(t, m.Contour(lon, lat, z, nil))
	assert.Error(t, m.ColorLine(lon, lat, z, 1, color.Black))

	b := new(bytes.Buffer)
	require.NoError(t, m.Render(b, ""))
	decodePNG(t, b, 6*48, 4*48)
}

func TestCoastlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coast.shp")
	e, err := shp.NewEncoder(path, struct {
		geom.LineString
		Name string
	}{})
	require.NoError(t, err)
	require.NoError(t, e.EncodeFields(geom.LineString{{X: 130, Y: 31}, {X: 135, Y: 35}, {X: 141, Y: 43}}, "japan"))
	e.Close()

	m := smallMap(Equirectangular{Bounds: ncmagics.Bounds{South: 20, North: 60, West: 110, East: 200}})
	require.NoError(t, m.Coastlines(path))
	require.Len(t, m.coastlines, 1)
	var n int
	for _, p := range paths(m.coastlines[0]) {
		n += len(p)
	}
	assert.Equal(t, 3, n)

	b := new(bytes.Buffer)
	require.NoError(t, m.Render(b, "coastlines"))
	decodePNG(t, b, 6*48, 4*48)

	assert.Error(t, m.Coastlines(filepath.Join(t.TempDir(), "missing.shp")))
}

func TestSampleInvalid(t *testing.T) {
	_, err := sample(newSegmented(rgb(0, 0, 0)), 4)
	assert.Error(t, err)

	cm := newSegmented(rgb(0, 0, 0), rgb(255, 255, 255))
	p, err := sample(cm, 3)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, p.Colors()[1])
	assert.Empty(t, (&segmented{max: 1, alpha: 1}).Palette(4).Colors())
}

func TestRenderInvalidColorMap(t *testing.T) {
	lon, lat, z := testGrid()
	for _, p := range []Projection{Equirectangular{Bounds: ncmagics.JapanBounds}, NorthPolar} {
		m := smallMap(p)
		require.NoError(t, m.Shade(lon, lat, z, ShadeOptions{Label: "test", Min: 40, Max: 60}))
		// A colour map changed after the layer was added.
		m.layers[0].(*shade).cm.(*segmented).colors = []color.NRGBA{rgb(0, 0, 0)}
		assert.Error(t, m.Render(new(bytes.Buffer), ""))
	}
}
