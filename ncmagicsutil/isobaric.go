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
	"strconv"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/spatialmodel/ncmagics/meteo"
	"golang.org/x/sync/errgroup"
)

// IsobaricLevels are the pressure levels [hPa] of the per-level products.
var IsobaricLevels = []int{850, 500, 300}

// fields holds the quantities read at one level, keyed by the names of
// DefaultVariables.
type fields map[string]*sparse.DenseArray

// readLevel reads quantities qs at level from r.
func readLevel(s *Settings, r *ncmagics.Reader, level int, qs ...string) (fields, error) {
	f := make(fields, len(qs))
	for _, q := range qs {
		a, err := r.ParameterAt(s.variable(q), level)
		if err != nil {
			return nil, err
		}
		f[q] = a
	}
	return f, nil
}

// render calls draw for each level concurrently and returns the paths
// it returns in level order.
func render(levels []int, draw func(i, level int) (string, error)) ([]string, error) {
	paths := make([]string, len(levels))
	var g errgroup.Group
	for i, l := range levels {
		i, l := i, l
		g.Go(func() error {
			p, err := draw(i, l)
			if err != nil {
				return fmt.Errorf("ncmagics: %d hPa: %w", l, err)
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func levelTitle(level int) string { return strconv.Itoa(level) + "hPa" }

// open opens file and returns its reader, cropped coordinates and time
// label.
func (s *Settings) open(file string) (r *ncmagics.Reader, lat, lon []float64, name string, err error) {
	r, err = s.reader(file, s.Bounds)
	if err != nil {
		return nil, nil, nil, "", err
	}
	lat, lon, err = r.LatLon()
	if err == nil {
		name, err = timeName(r)
	}
	if err != nil {
		r.Close()
		return nil, nil, nil, "", err
	}
	return r, lat, lon, name, nil
}

// EPT draws the equivalent potential temperature, geopotential height and
// wind at 850 hPa. The image is named after the time stamp in the name
// of file.
func EPT(s *Settings, file string) (string, error) {
	const level = 850
	_, stamp, err := ncmagics.TimeFromName(file)
	if err != nil {
		return "", err
	}
	r, lat, lon, _, err := s.open(file)
	if err != nil {
		return "", err
	}
	defer r.Close()
	f, err := readLevel(s, r, level, "temperature", "humidity", "u", "v", "height")
	if err != nil {
		return "", err
	}
	θe, err := meteo.EquivalentPotentialTemperature(meteo.HPa(level), f["temperature"], f["humidity"])
	if err != nil {
		return "", err
	}

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, θe, mapplot.ShadeOptions{
		Label:    "equivalent potential temperature (K)",
		Min:      250,
		Max:      350,
		ColorMap: "temperature",
	})
	if err != nil {
		return "", err
	}
	if err := m.Contour(lon, lat, f["height"], nil); err != nil {
		return "", err
	}
	if err := m.Vectors(lon, lat, f["u"], f["v"], mapplot.VectorOptions{Interval: 5, Scale: 10}); err != nil {
		return "", err
	}
	return s.save(m, fmt.Sprintf("%sept_%d", stamp, level), levelTitle(level))
}

// GradPT draws the magnitude of the horizontal gradient of potential
// temperature with potential temperature contours and wind at each of
// IsobaricLevels.
func GradPT(s *Settings, file string) ([]string, error) {
	return gradient(s, file, true)
}

// GradT draws the magnitude of the horizontal gradient of temperature
// with temperature contours and wind at each of IsobaricLevels.
func GradT(s *Settings, file string) ([]string, error) {
	return gradient(s, file, false)
}

func gradient(s *Settings, file string, potential bool) ([]string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	prefix, label := "grad_t_", "gradient of temperature (K/100km)"
	if potential {
		prefix, label = "grad_pt_", "gradient of potential temperature (K/100km)"
	}
	type levelData struct {
		z, grad, u, v *sparse.DenseArray
	}
	data := make([]levelData, len(IsobaricLevels))
	for i, level := range IsobaricLevels {
		f, err := readLevel(s, r, level, "temperature", "u", "v")
		if err != nil {
			return nil, err
		}
		z := f["temperature"]
		if potential {
			if z, err = meteo.PotentialTemperature(z, meteo.HPa(float64(level))); err != nil {
				return nil, err
			}
		}
		grad, err := meteo.GradientMagnitude(z, lat, lon)
		if err != nil {
			return nil, err
		}
		data[i] = levelData{z: z, grad: scale(grad, 1.e5), u: f["u"], v: f["v"]}
	}

	return render(IsobaricLevels, func(i, level int) (string, error) {
		d := data[i]
		m, err := s.japanMap()
		if err != nil {
			return "", err
		}
		err = m.Shade(lon, lat, d.grad, mapplot.ShadeOptions{
			Label:    label,
			Min:      2,
			Max:      6,
			ColorMap: "YlOrBr",
		})
		if err != nil {
			return "", err
		}
		if err := m.Contour(lon, lat, d.z, nil); err != nil {
			return "", err
		}
		if err := m.Vectors(lon, lat, d.u, d.v, mapplot.VectorOptions{Interval: 8, Scale: 10}); err != nil {
			return "", err
		}
		return s.save(m, name+prefix+strconv.Itoa(level), levelTitle(level))
	})
}

// jetRanges are the colour bar ranges [m s-1] of the wind speed at each
// of IsobaricLevels.
var jetRanges = [][2]float64{{10, 30}, {20, 50}, {40, 80}}

// Jet draws the wind speed, geopotential height and wind at each of
// IsobaricLevels.
func Jet(s *Settings, file string) ([]string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data := make([]fields, len(IsobaricLevels))
	for i, level := range IsobaricLevels {
		f, err := readLevel(s, r, level, "u", "v", "height")
		if err != nil {
			return nil, err
		}
		if f["speed"], err = meteo.WindSpeed(f["u"], f["v"]); err != nil {
			return nil, err
		}
		data[i] = f
	}

	return render(IsobaricLevels, func(i, level int) (string, error) {
		f := data[i]
		m, err := s.japanMap()
		if err != nil {
			return "", err
		}
		err = m.Shade(lon, lat, f["speed"], mapplot.ShadeOptions{
			Label: "wind speed (m/s)",
			Min:   jetRanges[i][0],
			Max:   jetRanges[i][1],
		})
		if err != nil {
			return "", err
		}
		if err := m.Contour(lon, lat, f["height"], nil); err != nil {
			return "", err
		}
		if err := m.Vectors(lon, lat, f["u"], f["v"], mapplot.VectorOptions{Interval: 5, Scale: 15}); err != nil {
			return "", err
		}
		return s.save(m, name+"_"+strconv.Itoa(level), levelTitle(level))
	})
}

// upperAirRanges are the colour bar ranges [°C] of the temperature at
// each of IsobaricLevels.
var upperAirRanges = [][2]float64{{-30, 30}, {-60, 0}, {-60, -30}}

// UpperAir draws the temperature, geopotential height and wind barbs at
// each of IsobaricLevels. At 850 hPa the humid area, where the dewpoint
// depression is below 3 K, is hatched and the -6 °C and -9 °C lines are
// drawn. At 500 hPa the -36 °C line is drawn.
func UpperAir(s *Settings, file string) ([]string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data := make([]fields, len(IsobaricLevels))
	for i, level := range IsobaricLevels {
		f, err := readLevel(s, r, level, "temperature", "humidity", "u", "v", "height")
		if err != nil {
			return nil, err
		}
		f["celsius"] = shift(f["temperature"], -273.15)
		if f["humid"], err = meteo.HumidMask(f["celsius"], f["humidity"], meteo.HPa(float64(level))); err != nil {
			return nil, err
		}
		data[i] = f
	}

	return render(IsobaricLevels, func(i, level int) (string, error) {
		f := data[i]
		m, err := s.japanMap()
		if err != nil {
			return "", err
		}
		err = m.Shade(lon, lat, f["celsius"], mapplot.ShadeOptions{
			Label:    "temperature (°C)",
			Min:      upperAirRanges[i][0],
			Max:      upperAirRanges[i][1],
			ColorMap: "temperature",
		})
		if err != nil {
			return "", err
		}
		if err := m.Contour(lon, lat, f["height"], nil); err != nil {
			return "", err
		}
		if err := m.Vectors(lon, lat, f["u"], f["v"], mapplot.VectorOptions{Interval: 5, Barbs: true}); err != nil {
			return "", err
		}
		switch level {
		case 850:
			if err := m.Hatch(lon, lat, f["humid"], dotAlpha); err != nil {
				return "", err
			}
			if err := m.ColorLine(lon, lat, f["celsius"], -6, blue); err != nil {
				return "", err
			}
			if err := m.ColorLine(lon, lat, f["celsius"], -9, green); err != nil {
				return "", err
			}
		case 500:
			if err := m.ColorLine(lon, lat, f["celsius"], -36, red); err != nil {
				return "", err
			}
		}
		return s.save(m, name+"_"+strconv.Itoa(level), levelTitle(level))
	})
}

// Humidity draws the relative humidity, hatched where it is at least 80 %,
// with geopotential height and wind barbs at each of IsobaricLevels. The
// -6 °C line is drawn at 850 hPa and the -36 °C line at 500 hPa.
func Humidity(s *Settings, file string) ([]string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data := make([]fields, len(IsobaricLevels))
	for i, level := range IsobaricLevels {
		f, err := readLevel(s, r, level, "temperature", "humidity", "u", "v", "height")
		if err != nil {
			return nil, err
		}
		f["celsius"] = shift(f["temperature"], -273.15)
		f["moist"] = meteo.Mask(f["humidity"], func(v float64) bool { return v >= 80 })
		data[i] = f
	}

	return render(IsobaricLevels, func(i, level int) (string, error) {
		f := data[i]
		m, err := s.japanMap()
		if err != nil {
			return "", err
		}
		err = m.Shade(lon, lat, f["humidity"], mapplot.ShadeOptions{
			Label:    "relative humidity (%)",
			Min:      0,
			Max:      100,
			ColorMap: "gray",
		})
		if err != nil {
			return "", err
		}
		if err := m.Hatch(lon, lat, f["moist"], dotAlpha); err != nil {
			return "", err
		}
		if err := m.Contour(lon, lat, f["height"], nil); err != nil {
			return "", err
		}
		if err := m.Vectors(lon, lat, f["u"], f["v"], mapplot.VectorOptions{Interval: 5, Barbs: true}); err != nil {
			return "", err
		}
		switch level {
		case 850:
			err = m.ColorLine(lon, lat, f["celsius"], -6, blue)
		case 500:
			err = m.ColorLine(lon, lat, f["celsius"], -36, red)
		}
		if err != nil {
			return "", err
		}
		return s.save(m, name+"_"+strconv.Itoa(level), levelTitle(level))
	})
}

// Shear draws the vector difference between the winds at 250 and 850 hPa
// and its magnitude.
func Shear(s *Settings, file string) (string, error) {
	const upper, lower = 250, 850
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return "", err
	}
	defer r.Close()
	fu, err := readLevel(s, r, upper, "u", "v")
	if err != nil {
		return "", err
	}
	fl, err := readLevel(s, r, lower, "u", "v")
	if err != nil {
		return "", err
	}
	du, err := meteo.Difference(fu["u"], fl["u"])
	if err != nil {
		return "", err
	}
	dv, err := meteo.Difference(fu["v"], fl["v"])
	if err != nil {
		return "", err
	}
	speed, err := meteo.WindSpeed(du, dv)
	if err != nil {
		return "", err
	}
	s.Log.WithFields(logrus.Fields{"file": file, "max": maxFinite(speed)}).Debug("wind shear")

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, speed, mapplot.ShadeOptions{
		Label: "upper-lower wind (m/s)",
		Min:   10,
		Max:   80,
	})
	if err != nil {
		return "", err
	}
	if err := m.Vectors(lon, lat, du, dv, mapplot.VectorOptions{Interval: 5, Scale: 10}); err != nil {
		return "", err
	}
	return s.save(m, fmt.Sprintf("%s_wind_%d-%d", name, upper, lower), fmt.Sprintf("%d-%d hPa", upper, lower))
}

// Surface draws the sea level pressure, the relative humidity at 2 m and
// the wind at 10 m. The image is named after the time stamp in the name
// of file.
func Surface(s *Settings, file string) (string, error) {
	_, stamp, err := ncmagics.TimeFromName(file)
	if err != nil {
		return "", err
	}
	r, err := s.reader(file, s.Bounds)
	if err != nil {
		return "", err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return "", err
	}
	f := make(fields)
	for _, q := range []string{"prmsl", "u10", "v10", "rh2m"} {
		if f[q], err = r.Parameter(s.variable(q)); err != nil {
			return "", err
		}
	}

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, f["rh2m"], mapplot.ShadeOptions{
		Label:    "relative humidity (%)",
		Min:      0,
		Max:      100,
		ColorMap: "gray",
	})
	if err != nil {
		return "", err
	}
	if err := m.Contour(lon, lat, scale(f["prmsl"], 0.01), mapplot.PressureLevels); err != nil {
		return "", err
	}
	if err := m.Vectors(lon, lat, f["u10"], f["v10"], mapplot.VectorOptions{Interval: 8, Scale: 5}); err != nil {
		return "", err
	}
	return s.save(m, stamp+"surface", "surface")
}

// maxFinite returns the largest value of a that is not NaN.
func maxFinite(a *sparse.DenseArray) float64 {
	max := math.Inf(-1)
	for _, v := range a.Elements {
		if v > max {
			max = v
		}
	}
	return max
}
