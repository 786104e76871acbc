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

// Package meteo calculates meteorological diagnostics, such as potential
// temperature, equivalent potential temperature and isentropic potential
// vorticity, from gridded fields on pressure levels.
//
// Fields are sparse.DenseArrays with shape [nlat, nlon] unless otherwise
// noted. Temperatures are in K, relative humidity in percent and
// pressures are *unit.Unit values.
package meteo

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// Physical constants.
const (
	// G0 is standard gravity [m s-2].
	G0 = 9.80665

	// Rd is the gas constant of dry air [J kg-1 K-1].
	Rd = 287.04749

	// Kappa is Rd/cp for dry air.
	Kappa = 2. / 7.

	// Epsilon is the ratio of the molecular weights of water and dry air.
	Epsilon = 0.6219569

	// EarthRadius is the mean radius of the earth [m].
	EarthRadius = 6371008.7714

	// Omega is the rotation rate of the earth [s-1].
	Omega = 7.292115e-5

	// P0 is the reference pressure of potential temperature [hPa].
	P0 = 1000.
)

var pressureDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}

// HPa returns a pressure of v hPa.
func HPa(v float64) *unit.Unit { return unit.New(v*100, pressureDims) }

// Pa returns a pressure of v Pa.
func Pa(v float64) *unit.Unit { return unit.New(v, pressureDims) }

// hPa checks that p is a pressure and returns its value in hPa.
func hPa(p *unit.Unit) (float64, error) {
	if p == nil {
		return math.NaN(), fmt.Errorf("meteo: missing pressure")
	}
	if err := p.Check(pressureDims); err != nil {
		return math.NaN(), fmt.Errorf("meteo: %v", err)
	}
	return p.Value() / 100, nil
}

// checkShapes returns an error if the arrays do not all have the same shape.
func checkShapes(arrays ...*sparse.DenseArray) error {
	for _, a := range arrays[1:] {
		if len(a.Elements) != len(arrays[0].Elements) || len(a.Shape) != len(arrays[0].Shape) {
			return fmt.Errorf("meteo: shape %v does not match %v", a.Shape, arrays[0].Shape)
		}
		for i, s := range a.Shape {
			if s != arrays[0].Shape[i] {
				return fmt.Errorf("meteo: shape %v does not match %v", a.Shape, arrays[0].Shape)
			}
		}
	}
	return nil
}

// apply returns a new array holding f of the elements of arrays, which
// must all have the same shape.
func apply(f func(v ...float64) float64, arrays ...*sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := checkShapes(arrays...); err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(arrays[0].Shape...)
	v := make([]float64, len(arrays))
	for i := range out.Elements {
		for j, a := range arrays {
			v[j] = a.Elements[i]
		}
		out.Elements[i] = f(v...)
	}
	return out, nil
}

// SplitLevels splits a field with shape [nlev, nlat, nlon] into one field
// per level and orders them from the surface upward, that is by
// decreasing pressure. levels holds the pressure of each level in the
// order of the first dimension of a.
func SplitLevels(a *sparse.DenseArray, levels []float64) ([]*sparse.DenseArray, []float64, error) {
	if len(a.Shape) != 3 || a.Shape[0] != len(levels) {
		return nil, nil, fmt.Errorf("meteo: cannot split shape %v into %d levels", a.Shape, len(levels))
	}
	n := a.Shape[1] * a.Shape[2]
	idx := make([]int, len(levels))
	for i := range idx {
		idx[i] = i
	}
	// Insertion sort keeps equal levels in file order.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && levels[idx[j]] > levels[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	fields := make([]*sparse.DenseArray, len(levels))
	sorted := make([]float64, len(levels))
	for k, i := range idx {
		f := sparse.ZerosDense(a.Shape[1], a.Shape[2])
		copy(f.Elements, a.Elements[i*n:(i+1)*n])
		fields[k] = f
		sorted[k] = levels[i]
	}
	return fields, sorted, nil
}

// PotentialTemperature returns θ = T (P0/p)^κ [K] for temperature t [K] on
// pressure level p.
func PotentialTemperature(t *sparse.DenseArray, p *unit.Unit) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	return t.ScaleCopy(math.Pow(P0/ph, Kappa)), nil
}

// PotentialTemperatureProfile returns the potential temperature of each
// temperature field in t, where levels holds the pressure of each field [hPa].
func PotentialTemperatureProfile(t []*sparse.DenseArray, levels []float64) ([]*sparse.DenseArray, error) {
	if len(t) != len(levels) {
		return nil, fmt.Errorf("meteo: %d temperature fields for %d levels", len(t), len(levels))
	}
	θ := make([]*sparse.DenseArray, len(t))
	for i, tt := range t {
		var err error
		if θ[i], err = PotentialTemperature(tt, HPa(levels[i])); err != nil {
			return nil, err
		}
	}
	return θ, nil
}

func saturationVaporPressure(tK float64) float64 {
	return 6.112 * math.Exp(17.67*(tK-273.15)/(tK-29.65))
}

// SaturationVaporPressure returns the saturation vapour pressure [hPa]
// over water at temperature tK [K] (Bolton, 1980).
func SaturationVaporPressure(tK *sparse.DenseArray) *sparse.DenseArray {
	out, _ := apply(func(v ...float64) float64 { return saturationVaporPressure(v[0]) }, tK)
	return out
}

func mixingRatio(ph, tK, rh float64) float64 {
	e := rh / 100 * saturationVaporPressure(tK)
	return Epsilon * e / (ph - e)
}

// MixingRatioFromRH returns the water vapour mixing ratio [kg kg-1] at
// pressure p, temperature tK [K] and relative humidity rh [%].
func MixingRatioFromRH(p *unit.Unit, tK, rh *sparse.DenseArray) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	return apply(func(v ...float64) float64 { return mixingRatio(ph, v[0], v[1]) }, tK, rh)
}

func vaporPressure(ph, w float64) float64 { return ph * w / (Epsilon + w) }

// VaporPressure returns the partial pressure of water vapour [hPa] at
// pressure p for mixing ratio w [kg kg-1].
func VaporPressure(p *unit.Unit, w *sparse.DenseArray) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	out, _ := apply(func(v ...float64) float64 { return vaporPressure(ph, v[0]) }, w)
	return out, nil
}

func dewpoint(e float64) float64 {
	l := math.Log(e / 6.112)
	return 243.5*l/(17.67-l) + 273.15
}

// Dewpoint returns the dewpoint [K] for vapour pressure e [hPa].
func Dewpoint(e *sparse.DenseArray) *sparse.DenseArray {
	out, _ := apply(func(v ...float64) float64 { return dewpoint(v[0]) }, e)
	return out
}

// equivalentPotentialTemperature follows Bolton (1980), equation 39.
func equivalentPotentialTemperature(ph, tK, rh float64) float64 {
	r := mixingRatio(ph, tK, rh)
	e := vaporPressure(ph, r)
	td := dewpoint(e)
	tl := 56 + 1/(1/(td-56)+math.Log(tK/td)/800)
	θl := tK * math.Pow(P0/(ph-e), Kappa) * math.Pow(tK/tl, 0.28*r)
	return θl * math.Exp((3036/tl-1.78)*r*(1+0.448*r))
}

// EquivalentPotentialTemperature returns the equivalent potential
// temperature [K] at pressure p for temperature tK [K] and relative
// humidity rh [%].
func EquivalentPotentialTemperature(p *unit.Unit, tK, rh *sparse.DenseArray) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	return apply(func(v ...float64) float64 {
		return equivalentPotentialTemperature(ph, v[0], v[1])
	}, tK, rh)
}

// HumidMask returns 1 where the dewpoint depression at pressure p is less
// than 3 K and NaN elsewhere. tC is the temperature [°C] and rh the
// relative humidity [%].
func HumidMask(tC, rh *sparse.DenseArray, p *unit.Unit) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	return apply(func(v ...float64) float64 {
		tK := v[0] + 273.15
		td := dewpoint(vaporPressure(ph, mixingRatio(ph, tK, v[1])))
		if tK-td < 3 {
			return 1
		}
		return math.NaN()
	}, tC, rh)
}

// SnowRatio returns the probability [0-1] that precipitation falls as snow,
// estimated from the temperature tK [K] and relative humidity rh [%] at
// pressure p.
func SnowRatio(tK, rh *sparse.DenseArray, p *unit.Unit) (*sparse.DenseArray, error) {
	ph, err := hPa(p)
	if err != nil {
		return nil, err
	}
	return apply(func(v ...float64) float64 {
		e := vaporPressure(ph, mixingRatio(ph, v[0], v[1]))
		tw := 0.584*(v[0]-273.15) + 0.875*e - 5.32
		if tw < 1.1 {
			return 1 - 0.5*math.Exp(-2.2*math.Pow(1.1-tw, 1.3))
		}
		return 0.5 * math.Exp(-2.2*math.Pow(tw-1.1, 1.3))
	}, tK, rh)
}

// WindSpeed returns the magnitude of the wind with components u and v.
func WindSpeed(u, v *sparse.DenseArray) (*sparse.DenseArray, error) {
	return apply(func(x ...float64) float64 { return math.Hypot(x[0], x[1]) }, u, v)
}

// Difference returns a - b.
func Difference(a, b *sparse.DenseArray) (*sparse.DenseArray, error) {
	return apply(func(x ...float64) float64 { return x[0] - x[1] }, a, b)
}

// Mask returns 1 where pred is true for the value of a and NaN elsewhere.
func Mask(a *sparse.DenseArray, pred func(float64) bool) *sparse.DenseArray {
	out, _ := apply(func(x ...float64) float64 {
		if pred(x[0]) {
			return 1
		}
		return math.NaN()
	}, a)
	return out
}
