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

	"github.com/ctessum/sparse"
)

// BruntVaisala returns the Brunt-Väisälä frequency N [s-1] of a layer with
// a change of the logarithm of potential temperature dLnTheta across a
// thickness dz [m].
func BruntVaisala(dLnTheta, dz *sparse.DenseArray) (*sparse.DenseArray, error) {
	return apply(func(v ...float64) float64 {
		return math.Sqrt(9.8 * v[0] / v[1])
	}, dLnTheta, dz)
}

// EadyGrowthRate returns the maximum Eady growth rate
// σ = 0.31 (f/N) |∂u/∂z| [day-1] of a layer with Brunt-Väisälä frequency
// n [s-1], wind shear du [m s-1] across thickness dz [m] and latitudes lat.
func EadyGrowthRate(n, du, dz *sparse.DenseArray, lat, lon []float64) (*sparse.DenseArray, error) {
	if err := checkGrid(n, lat, lon); err != nil {
		return nil, err
	}
	// Ω is taken as 2π per solar day.
	f := coriolis(lat, len(lon), 6.28/86400)
	return apply(func(v ...float64) float64 {
		return 0.31 * (v[0] / v[1]) * math.Abs(v[2]/v[3]) * 86400
	}, f, n, du, dz)
}
