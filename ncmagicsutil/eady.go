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

package ncmagicsutil

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/spatialmodel/ncmagics/meteo"
)

// EadyFiles are the inputs of Eady. GH, U and T hold the geopotential
// height, zonal wind and temperature. Each of the Prev files, if given,
// holds the same quantity for an earlier period and is averaged with
// its counterpart, as for two-month means of monthly reanalysis files.
type EadyFiles struct {
	GH, U, T             string
	PrevGH, PrevU, PrevT string
}

// eadyLayer holds the pressure levels bounding the layer of Eady, in hPa
// and in Pa.
var eadyLayer = [2][2]int{{700, 850}, {70000, 85000}}

// Eady draws the maximum Eady growth rate [day-1] of the layer between
// 700 and 850 hPa. The level axis of the files may be in hPa or Pa.
func Eady(s *Settings, f EadyFiles) (string, error) {
	r, err := s.reader(f.GH, s.Bounds)
	if err != nil {
		return "", err
	}
	lat, lon, err := r.LatLon()
	if err != nil {
		r.Close()
		return "", err
	}
	levels, p, err := layerLevels(r.Grid)
	r.Close()
	if err != nil {
		return "", err
	}

	var gh, u, θ [2]*sparse.DenseArray
	for i, l := range levels {
		if gh[i], err = readMean(s, f.GH, f.PrevGH, "height", l); err != nil {
			return "", err
		}
		if u[i], err = readMean(s, f.U, f.PrevU, "u", l); err != nil {
			return "", err
		}
		t, err := readMean(s, f.T, f.PrevT, "temperature", l)
		if err != nil {
			return "", err
		}
		if θ[i], err = meteo.PotentialTemperature(t, p(float64(l))); err != nil {
			return "", err
		}
	}
	dz, err := meteo.Difference(gh[0], gh[1])
	if err != nil {
		return "", err
	}
	du, err := meteo.Difference(u[0], u[1])
	if err != nil {
		return "", err
	}
	dLnθ := sparse.ZerosDense(θ[0].Shape...)
	for i := range dLnθ.Elements {
		dLnθ.Elements[i] = math.Log(θ[0].Elements[i]) - math.Log(θ[1].Elements[i])
	}
	n, err := meteo.BruntVaisala(dLnθ, dz)
	if err != nil {
		return "", err
	}
	σ, err := meteo.EadyGrowthRate(n, du, dz, lat, lon)
	if err != nil {
		return "", err
	}
	s.Log.WithFields(logrus.Fields{"file": f.GH, "mean": meanFinite(σ)}).Info("Eady growth rate")

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, σ, mapplot.ShadeOptions{
		Label: "eady growth rate (day⁻¹)",
		Min:   0,
		Max:   1,
	})
	if err != nil {
		return "", err
	}
	if err := m.Contour(lon, lat, σ, nil); err != nil {
		return "", err
	}
	return s.save(m, "sigma", "Eady growth rate (day⁻¹)")
}

// layerLevels returns the levels of g that bound the Eady layer, upper
// first, and the function converting them to pressures.
func layerLevels(g *ncmagics.Grid) ([2]int, func(float64) *unit.Unit, error) {
	converters := []func(float64) *unit.Unit{meteo.HPa, meteo.Pa}
	for i, levels := range eadyLayer {
		_, err0 := g.LevelIndex(levels[0])
		_, err1 := g.LevelIndex(levels[1])
		if err0 == nil && err1 == nil {
			return levels, converters[i], nil
		}
	}
	return [2]int{}, nil, fmt.Errorf("%w: the Eady growth rate needs 700 and 850 hPa; the levels are %v",
		ncmagics.ErrUnknownLevel, g.SortedLevels())
}

// readMean reads quantity q at level from the file at path. If prev is
// not empty, the mean of the two files is returned.
func readMean(s *Settings, path, prev, q string, level int) (*sparse.DenseArray, error) {
	r, err := s.reader(path, s.Bounds)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	a, err := r.ParameterAt(s.variable(q), level)
	if err != nil || prev == "" {
		return a, err
	}
	if err := r.SetFile(prev); err != nil {
		return nil, err
	}
	b, err := r.ParameterAt(s.variable(q), level)
	if err != nil {
		return nil, err
	}
	mean := sparse.ZerosDense(a.Shape...)
	for i := range mean.Elements {
		mean.Elements[i] = (a.Elements[i] + b.Elements[i]) / 2
	}
	return mean, nil
}

// meanFinite returns the mean of the values of a that are not NaN.
func meanFinite(a *sparse.DenseArray) float64 {
	var sum float64
	var n int
	for _, v := range a.Elements {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
			n++
		}
	}
	return sum / float64(n)
}
