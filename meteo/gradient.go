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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

const deg2rad = math.Pi / 180

// derivative returns the derivative of the values f at positions x, using
// second-order centred differences in the interior and second-order
// one-sided differences at the ends. The spacing may be uneven.
func derivative(f, x []float64) []float64 {
	n := len(f)
	d := make([]float64, n)
	switch {
	case n < 2:
		return d
	case n == 2:
		d[0] = (f[1] - f[0]) / (x[1] - x[0])
		d[1] = d[0]
		return d
	}
	for i := 1; i < n-1; i++ {
		h1, h2 := x[i]-x[i-1], x[i+1]-x[i]
		d[i] = -h2/(h1*(h1+h2))*f[i-1] + (h2-h1)/(h1*h2)*f[i] + h1/(h2*(h1+h2))*f[i+1]
	}
	h1, h2 := x[1]-x[0], x[2]-x[1]
	d[0] = -(2*h1+h2)/(h1*(h1+h2))*f[0] + (h1+h2)/(h1*h2)*f[1] - h1/(h2*(h1+h2))*f[2]
	h1, h2 = x[n-2]-x[n-3], x[n-1]-x[n-2]
	d[n-1] = h2/(h1*(h1+h2))*f[n-3] - (h1+h2)/(h1*h2)*f[n-2] + (h1+2*h2)/(h2*(h1+h2))*f[n-1]
	return d
}

func checkGrid(a *sparse.DenseArray, lat, lon []float64) error {
	if len(a.Shape) != 2 || a.Shape[0] != len(lat) || a.Shape[1] != len(lon) {
		return fmt.Errorf("meteo: field shape %v does not match %d latitudes and %d longitudes",
			a.Shape, len(lat), len(lon))
	}
	return nil
}

// Gradient returns the eastward and northward derivatives [units m-1] of
// field a on the latitude-longitude grid lat, lon [degrees].
func Gradient(a *sparse.DenseArray, lat, lon []float64) (dx, dy *sparse.DenseArray, err error) {
	if err = checkGrid(a, lat, lon); err != nil {
		return nil, nil, err
	}
	ny, nx := len(lat), len(lon)
	dx = sparse.ZerosDense(ny, nx)
	dy = sparse.ZerosDense(ny, nx)

	row := make([]float64, nx)
	x := make([]float64, nx)
	for j, φ := range lat {
		c := EarthRadius * math.Cos(φ*deg2rad)
		if c < 1 {
			// The zonal spacing vanishes at the poles.
			for i := 0; i < nx; i++ {
				dx.Elements[j*nx+i] = math.NaN()
			}
			continue
		}
		for i, λ := range lon {
			x[i] = c * λ * deg2rad
			row[i] = a.Elements[j*nx+i]
		}
		copy(dx.Elements[j*nx:(j+1)*nx], derivative(row, x))
	}

	col := make([]float64, ny)
	y := make([]float64, ny)
	for j, φ := range lat {
		y[j] = EarthRadius * φ * deg2rad
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			col[j] = a.Elements[j*nx+i]
		}
		for j, v := range derivative(col, y) {
			dy.Elements[j*nx+i] = v
		}
	}
	return dx, dy, nil
}

// GradientMagnitude returns the magnitude of the horizontal gradient
// [units m-1] of field a on the latitude-longitude grid lat, lon.
func GradientMagnitude(a *sparse.DenseArray, lat, lon []float64) (*sparse.DenseArray, error) {
	dx, dy, err := Gradient(a, lat, lon)
	if err != nil {
		return nil, err
	}
	return WindSpeed(dx, dy)
}

// CoriolisParameter returns f = 2Ω sin φ [s-1] on the grid lat, lon.
func CoriolisParameter(lat, lon []float64) *sparse.DenseArray {
	return coriolis(lat, len(lon), Omega)
}

func coriolis(lat []float64, nlon int, ω float64) *sparse.DenseArray {
	f := sparse.ZerosDense(len(lat), nlon)
	for j, φ := range lat {
		v := 2 * ω * math.Sin(φ*deg2rad)
		for i := 0; i < nlon; i++ {
			f.Elements[j*nlon+i] = v
		}
	}
	return f
}

// RelativeVorticity returns the vertical component of the relative
// vorticity [s-1] of the wind u, v [m s-1] on a sphere:
// ζ = ∂v/∂x - ∂u/∂y + u tan φ / a.
func RelativeVorticity(u, v *sparse.DenseArray, lat, lon []float64) (*sparse.DenseArray, error) {
	if err := checkShapes(u, v); err != nil {
		return nil, err
	}
	dvdx, _, err := Gradient(v, lat, lon)
	if err != nil {
		return nil, err
	}
	_, dudy, err := Gradient(u, lat, lon)
	if err != nil {
		return nil, err
	}
	nx := len(lon)
	ζ := sparse.ZerosDense(len(lat), nx)
	for j, φ := range lat {
		t := math.Tan(φ*deg2rad) / EarthRadius
		for i := 0; i < nx; i++ {
			k := j*nx + i
			ζ.Elements[k] = dvdx.Elements[k] - dudy.Elements[k] + u.Elements[k]*t
		}
	}
	return ζ, nil
}
