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

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/spatialmodel/ncmagics/meteo"
)

// DefaultIsentrope is the potential temperature [K] of the isentropic
// surface of the potential vorticity products.
const DefaultIsentrope = 310

// isentropic holds the fields of one file on an isentropic surface.
type isentropic struct {
	u, v, pv *sparse.DenseArray

	// surfacePressure is the pressure [hPa] at the height of the lowest
	// level.
	surfacePressure *sparse.DenseArray
}

// readIsentropic calculates the wind and potential vorticity on the
// isentrope [K] from every level of the file read by r.
func readIsentropic(s *Settings, r *ncmagics.Reader, lat, lon []float64, isentrope float64) (*isentropic, error) {
	levels := r.Levels()
	if len(levels) < 2 {
		return nil, fmt.Errorf("ncmagics: %s has %d pressure levels; at least 2 are needed", r.Path(), len(levels))
	}
	var t, u, v, gh []*sparse.DenseArray
	pressure := make([]float64, len(levels))
	for i, l := range levels {
		f, err := readLevel(s, r, l, "temperature", "u", "v", "height")
		if err != nil {
			return nil, err
		}
		t = append(t, f["temperature"])
		u = append(u, f["u"])
		v = append(v, f["v"])
		gh = append(gh, f["height"])
		pressure[i] = float64(l)
	}
	θ, err := meteo.PotentialTemperatureProfile(t, pressure)
	if err != nil {
		return nil, err
	}
	o := &isentropic{surfacePressure: meteo.GeopotentialHeightToPressure(gh[0])}
	if o.u, err = meteo.IsentropicValue(θ, u, isentrope); err != nil {
		return nil, err
	}
	if o.v, err = meteo.IsentropicValue(θ, v, isentrope); err != nil {
		return nil, err
	}
	dpdθ, err := meteo.DPDTheta(θ, gh, isentrope)
	if err != nil {
		return nil, err
	}
	if o.pv, err = meteo.PotentialVorticity(o.u, o.v, dpdθ, lat, lon); err != nil {
		return nil, err
	}
	return o, nil
}

// PV draws the potential vorticity and wind on the isentropic surface
// isentrope [K] with the surface pressure. The 1 PVU line is drawn and
// the area above 2 PVU is hatched.
func PV(s *Settings, file string, isentrope int) (string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return "", err
	}
	defer r.Close()
	f, err := readIsentropic(s, r, lat, lon, float64(isentrope))
	if err != nil {
		return "", err
	}

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, f.pv, mapplot.ShadeOptions{
		Label: "potential vorticity (PVU)",
		Min:   0,
		Max:   6,
	})
	if err != nil {
		return "", err
	}
	if err := m.Contour(lon, lat, f.surfacePressure, mapplot.PressureLevels); err != nil {
		return "", err
	}
	if err := m.Vectors(lon, lat, f.u, f.v, mapplot.VectorOptions{Interval: 8, Scale: 10}); err != nil {
		return "", err
	}
	if err := m.ColorLine(lon, lat, f.pv, 1, pvGreen); err != nil {
		return "", err
	}
	high := meteo.Mask(f.pv, func(v float64) bool { return v > 2 })
	if err := m.Hatch(lon, lat, high, dotAlpha); err != nil {
		return "", err
	}
	return s.save(m, fmt.Sprintf("%sptl_vrt%d", name, isentrope), fmt.Sprintf("%d K", isentrope))
}

// PVDiff draws the change of the isentropic potential vorticity from
// file first to file second over the northern hemisphere.
func PVDiff(s *Settings, first, second string, isentrope int) (string, error) {
	r, err := s.reader(first, ncmagics.NorthernHemisphere)
	if err != nil {
		return "", err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return "", err
	}
	var pv [2]*sparse.DenseArray
	var names [2]string
	for i, file := range []string{first, second} {
		if err := r.SetFile(file); err != nil {
			return "", err
		}
		if names[i], err = timeName(r); err != nil {
			return "", err
		}
		f, err := readIsentropic(s, r, lat, lon, float64(isentrope))
		if err != nil {
			return "", err
		}
		pv[i] = f.pv
	}
	d, err := meteo.Difference(pv[1], pv[0])
	if err != nil {
		return "", err
	}

	m, err := s.hemisphereMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, d, mapplot.ShadeOptions{
		Label:    "potential vorticity (PVU)",
		Min:      -3,
		Max:      3,
		ColorMap: "temperature",
	})
	if err != nil {
		return "", err
	}
	return s.save(m, fmt.Sprintf("%ssub%sptl_vrt%d", names[1], names[0], isentrope), fmt.Sprintf("%d K", isentrope))
}
