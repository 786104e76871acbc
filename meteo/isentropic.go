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

// IsentropicValue interpolates field to the surface where the potential
// temperature equals target [K]. theta and field hold one [nlat, nlon]
// array per level, ordered from the surface upward. In each column the
// first pair of levels, searching upward, whose potential temperatures
// bracket target is interpolated linearly. Columns that are warmer than
// target at every level take the value of the lowest level and columns
// that are colder at every level take the value of the highest level.
func IsentropicValue(theta, field []*sparse.DenseArray, target float64) (*sparse.DenseArray, error) {
	if len(theta) != len(field) || len(theta) == 0 {
		return nil, fmt.Errorf("meteo: %d potential temperature levels for %d field levels", len(theta), len(field))
	}
	if err := checkShapes(append(append([]*sparse.DenseArray{}, theta...), field...)...); err != nil {
		return nil, err
	}
	nz := len(theta)
	out := sparse.ZerosDense(theta[0].Shape...)
	for i := range out.Elements {
		allAbove, allBelow := true, true
		for k := 0; k < nz; k++ {
			θ := theta[k].Elements[i]
			allAbove = allAbove && θ >= target
			allBelow = allBelow && θ <= target
		}
		switch {
		case allAbove:
			out.Elements[i] = field[0].Elements[i]
			continue
		case allBelow:
			out.Elements[i] = field[nz-1].Elements[i]
			continue
		}
		out.Elements[i] = math.NaN()
		for k := 0; k < nz-1; k++ {
			θ0, θ1 := theta[k].Elements[i], theta[k+1].Elements[i]
			if (θ0-target)*(θ1-target) > 0 || θ0 == θ1 || math.IsNaN(θ0+θ1) {
				continue
			}
			w := (target - θ0) / (θ1 - θ0)
			out.Elements[i] = field[k].Elements[i] + w*(field[k+1].Elements[i]-field[k].Elements[i])
			break
		}
	}
	return out, nil
}

// GeopotentialHeightToPressure returns the pressure [hPa] of the U.S.
// standard atmosphere at geopotential height gph [gpm].
func GeopotentialHeightToPressure(gph *sparse.DenseArray) *sparse.DenseArray {
	const (
		p0 = 1013.25 // hPa
		t0 = 288.    // K
		γ  = 0.0065  // K m-1
	)
	out, _ := apply(func(v ...float64) float64 {
		Φ := v[0] * G0
		z := EarthRadius * Φ / (G0*EarthRadius - Φ)
		return p0 * math.Pow(1-γ*z/t0, G0/(Rd*γ))
	}, gph)
	return out
}

// DPDTheta returns the change of pressure with potential temperature
// [hPa K-1] across the isentropic surface isentrope [K], calculated from
// the heights of the surfaces 5 K below and above it. theta and gph are
// the potential temperature [K] and geopotential height [gpm] of each
// level, ordered from the surface upward.
func DPDTheta(theta, gph []*sparse.DenseArray, isentrope float64) (*sparse.DenseArray, error) {
	lower, err := IsentropicValue(theta, gph, isentrope-5)
	if err != nil {
		return nil, err
	}
	upper, err := IsentropicValue(theta, gph, isentrope+5)
	if err != nil {
		return nil, err
	}
	d, err := Difference(GeopotentialHeightToPressure(upper), GeopotentialHeightToPressure(lower))
	if err != nil {
		return nil, err
	}
	d.Scale(1. / 10)
	return d, nil
}

// PotentialVorticity returns the isentropic potential vorticity [PVU] of
// the wind u, v [m s-1] on an isentropic surface, where dpdθ is the
// pressure derivative across the surface [hPa K-1] from DPDTheta:
// PV = -(f + ζ) g / (∂p/∂θ).
func PotentialVorticity(u, v, dpdθ *sparse.DenseArray, lat, lon []float64) (*sparse.DenseArray, error) {
	ζ, err := RelativeVorticity(u, v, lat, lon)
	if err != nil {
		return nil, err
	}
	const (
		pvu     = 1.e6 // PVU per K m2 kg-1 s-1
		hPaToPa = 100.
	)
	f := CoriolisParameter(lat, lon)
	return apply(func(x ...float64) float64 {
		return -(x[0] + x[1]) * G0 / (x[2] * hPaToPa) * pvu
	}, f, ζ, dpdθ)
}
