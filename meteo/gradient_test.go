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

package meteo

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLat = []float64{50, 45, 40, 35, 30}
	testLon = []float64{130, 132.5, 135, 137.5, 140, 142.5}
)

// gridField returns a field on the test grid with values f(lat, lon).
func gridField(f func(lat, lon float64) float64) *sparse.DenseArray {
	a := sparse.ZerosDense(len(testLat), len(testLon))
	for j, y := range testLat {
		for i, x := range testLon {
			a.Set(f(y, x), j, i)
		}
	}
	return a
}

func TestDerivative(t *testing.T) {
	// Second-order differences are exact for quadratics, even on an
	// uneven grid.
	x := []float64{0, 1, 3, 4, 7}
	f := make([]float64, len(x))
	for i, v := range x {
		f[i] = v*v - 2*v
	}
	for i, d := range derivative(f, x) {
		assert.InDelta(t, 2*x[i]-2, d, 1e-12, "x=%g", x[i])
	}
	assert.Equal(t, []float64{2, 2}, derivative([]float64{1, 3}, []float64{0, 1}))
}

func TestGradient(t *testing.T) {
	perDegree := 1 / (EarthRadius * deg2rad)

	dx, dy, err := Gradient(gridField(func(lat, lon float64) float64 { return lat }), testLat, testLon)
	require.NoError(t, err)
	for i := range dx.Elements {
		assert.InDelta(t, 0, dx.Elements[i], 1e-15)
		assert.InDelta(t, perDegree, dy.Elements[i], 1e-12)
	}

	dx, dy, err = Gradient(gridField(func(lat, lon float64) float64 { return lon }), testLat, testLon)
	require.NoError(t, err)
	for j, φ := range testLat {
		for i := range testLon {
			assert.InDelta(t, perDegree/math.Cos(φ*deg2rad), dx.Get(j, i), 1e-12)
			assert.InDelta(t, 0, dy.Get(j, i), 1e-15)
		}
	}

	g, err := GradientMagnitude(gridField(func(lat, lon float64) float64 { return -2 * lat }), testLat, testLon)
	require.NoError(t, err)
	assert.InDelta(t, 2*perDegree, g.Get(2, 2), 1e-12)

	_, _, err = Gradient(gridField(func(lat, lon float64) float64 { return 0 }), testLat[1:], testLon)
	assert.Error(t, err)
}

func TestGradientPole(t *testing.T) {
	lat := []float64{90, 80, 70}
	lon := []float64{0, 90, 180}
	a := sparse.ZerosDense(3, 3)
	dx, _, err := Gradient(a, lat, lon)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(dx.Get(0, 1)))
	assert.Equal(t, 0., dx.Get(1, 1))
}

func TestRelativeVorticity(t *testing.T) {
	perDegree := 1 / (EarthRadius * deg2rad)
	u := gridField(func(lat, lon float64) float64 { return 0 })
	v := gridField(func(lat, lon float64) float64 { return lon })
	ζ, err := RelativeVorticity(u, v, testLat, testLon)
	require.NoError(t, err)
	assert.InDelta(t, perDegree/math.Cos(40*deg2rad), ζ.Get(2, 3), 1e-12)

	// A uniform westerly has curvature vorticity on the sphere.
	u = gridField(func(lat, lon float64) float64 { return 10 })
	v = gridField(func(lat, lon float64) float64 { return 0 })
	ζ, err = RelativeVorticity(u, v, testLat, testLon)
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Tan(45*deg2rad)/EarthRadius, ζ.Get(1, 1), 1e-12)
}

func TestCoriolisParameter(t *testing.T) {
	f := CoriolisParameter([]float64{0, 30, 90}, []float64{100, 110})
	assert.Equal(t, []int{3, 2}, f.Shape)
	assert.InDelta(t, 0, f.Get(0, 1), 1e-15)
	assert.InDelta(t, Omega, f.Get(1, 0), 1e-12)
	assert.InDelta(t, 2*Omega, f.Get(2, 1), 1e-12)
}

func TestIsentropicValue(t *testing.T) {
	theta := []*sparse.DenseArray{field(290, 300, 300, math.NaN()), field(300, 290, 310, math.NaN()), field(310, 300, 320, math.NaN())}
	p := []*sparse.DenseArray{field(1000, 1000, 1000, 1000), field(850, 850, 850, 850), field(500, 500, 500, 500)}

	v, err := IsentropicValue(theta, p, 305)
	require.NoError(t, err)
	assert.InDelta(t, 675, v.Elements[0], 1e-9, "interpolated")
	assert.InDelta(t, 500, v.Elements[1], 1e-9, "colder at every level")
	assert.InDelta(t, 925, v.Elements[2], 1e-9, "first bracketing pair")
	assert.True(t, math.IsNaN(v.Elements[3]), "missing data")

	v, err = IsentropicValue(theta, p, 295)
	require.NoError(t, err)
	assert.InDelta(t, 925, v.Elements[0], 1e-9)
	assert.InDelta(t, 925, v.Elements[1], 1e-9, "search starts at the surface")

	v, err = IsentropicValue(theta, p, 280)
	require.NoError(t, err)
	assert.InDelta(t, 1000, v.Elements[0], 1e-9, "warmer at every level")

	_, err = IsentropicValue(theta, p[:2], 300)
	assert.Error(t, err)
}

func TestGeopotentialHeightToPressure(t *testing.T) {
	p := GeopotentialHeightToPressure(field(0, 1500, 5500))
	assert.InDelta(t, 1013.25, p.Elements[0], 1e-9)
	assert.InDelta(t, 845.4393429557731, p.Elements[1], 1e-9)
	assert.InDelta(t, 504.5405347720789, p.Elements[2], 1e-9)
}

func TestDPDTheta(t *testing.T) {
	// θ increases 10 K per level and height 1500 m per level.
	theta := []*sparse.DenseArray{field(295), field(305), field(315)}
	gph := []*sparse.DenseArray{field(0), field(1500), field(3000)}
	d, err := DPDTheta(theta, gph, 305)
	require.NoError(t, err)
	lower := GeopotentialHeightToPressure(field(750)).Elements[0]
	upper := GeopotentialHeightToPressure(field(2250)).Elements[0]
	assert.InDelta(t, (upper-lower)/10, d.Elements[0], 1e-9)
	assert.True(t, d.Elements[0] < 0)
}

func TestPotentialVorticity(t *testing.T) {
	u := gridField(func(lat, lon float64) float64 { return 0 })
	v := gridField(func(lat, lon float64) float64 { return 0 })
	dpdθ := gridField(func(lat, lon float64) float64 { return -2 })
	pv, err := PotentialVorticity(u, v, dpdθ, testLat, testLon)
	require.NoError(t, err)
	f := 2 * Omega * math.Sin(45*deg2rad)
	assert.InDelta(t, f*G0/200*1e6, pv.Get(1, 2), 1e-9)
	assert.InDelta(t, 5.056, pv.Get(1, 2), 1e-3)
}

func TestEadyGrowthRate(t *testing.T) {
	n, err := BruntVaisala(field(0.01), field(1000))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(9.8e-5), n.Elements[0], 1e-12)

	lat := []float64{45}
	lon := []float64{140, 141}
	sigma, err := EadyGrowthRate(
		constant(0.01, 1, 2), constant(-10, 1, 2), constant(1000, 1, 2), lat, lon)
	require.NoError(t, err)
	f := 2 * 6.28 / 86400 * math.Sin(45*deg2rad)
	assert.InDelta(t, 0.31*f/0.01*0.01*86400, sigma.Get(0, 1), 1e-9)
}
