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
	"image/color"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/spatialmodel/ncmagics/meteo"
)

// Line colours of the temperature lines.
var (
	blue    = color.NRGBA{B: 255, A: 255}
	green   = color.NRGBA{G: 255, A: 255}
	red     = color.NRGBA{R: 0xb2, G: 0x22, B: 0x22, A: 255}
	pvGreen = color.NRGBA{G: 0x79, B: 0x3d, A: 255}
)

// dotAlpha is the opacity of hatching dots.
const dotAlpha = 0.8

// APCP draws the 6-hour precipitation in file. If tfile, a file of
// isobaric fields at the same time, is not empty, the -6 °C line at
// 850 hPa and the fraction of precipitation falling as snow are added.
// It returns the path of the image.
func APCP(s *Settings, file, tfile string) (string, error) {
	r, err := s.reader(file, s.Bounds)
	if err != nil {
		return "", err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return "", err
	}
	apcp, err := r.Parameter(s.variable("precipitation"))
	if err != nil {
		return "", err
	}
	name, err := timeName(r)
	if err != nil {
		return "", err
	}

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, apcp, mapplot.ShadeOptions{
		Label: "Precipitation (kg/m²)/6h",
		Min:   0,
		Max:   20,
	})
	if err != nil {
		return "", err
	}
	if tfile != "" {
		if err := snowLayers(s, m, tfile); err != nil {
			return "", err
		}
	}
	return s.save(m, name+"apcp", "")
}

// APCPCumulative draws the precipitation accumulated between the forecast
// files first and last, which hold the precipitation accumulated since the
// start of the forecast. tfile is as for APCP.
func APCPCumulative(s *Settings, first, last, tfile string) (string, error) {
	r, err := s.reader(first, s.Bounds)
	if err != nil {
		return "", err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return "", err
	}
	begin, end, err := readPair(r, last, func(r *ncmagics.Reader) (*sparse.DenseArray, error) {
		return r.Parameter(s.variable("precipitation"))
	})
	if err != nil {
		return "", err
	}
	t0, err := fileTime(first)
	if err != nil {
		return "", err
	}
	t1, err := fileTime(last)
	if err != nil {
		return "", err
	}
	hours := int(t1.Sub(t0).Hours())
	apcp, err := meteo.Difference(end, begin)
	if err != nil {
		return "", err
	}

	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	err = m.Shade(lon, lat, apcp, mapplot.ShadeOptions{
		Label: fmt.Sprintf("Precipitation (kg/m²)/%dh", hours),
		Min:   0,
		Max:   60,
	})
	if err != nil {
		return "", err
	}
	if tfile != "" {
		if err := snowLayers(s, m, tfile); err != nil {
			return "", err
		}
	}
	const layout = "20060102_15"
	return s.save(m, t0.Format(layout)+"-"+t1.Format(layout), "")
}

// readPair reads a field with get from the current file of r and then
// from the file next, which r is switched to.
func readPair(r *ncmagics.Reader, next string, get func(*ncmagics.Reader) (*sparse.DenseArray, error)) (a, b *sparse.DenseArray, err error) {
	a, err = get(r)
	if err != nil {
		return nil, nil, err
	}
	if err := r.SetFile(next); err != nil {
		return nil, nil, err
	}
	b, err = get(r)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// fileTime returns the valid time of the file at path.
func fileTime(path string) (time.Time, error) {
	ds, err := ncmagics.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer ds.Close()
	return ncmagics.TimeLabel(ds)
}

// snowLayers adds the -6 °C line at 850 hPa and the snow fraction at
// 1000 hPa from the isobaric file tfile to m.
func snowLayers(s *Settings, m *mapplot.Map, tfile string) error {
	r, err := s.reader(tfile, s.Bounds)
	if err != nil {
		return err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return err
	}
	t850, err := r.ParameterAt(s.variable("temperature"), 850)
	if err != nil {
		return err
	}
	tK, err := r.ParameterAt(s.variable("temperature"), 1000)
	if err != nil {
		return err
	}
	rh, err := r.ParameterAt(s.variable("humidity"), 1000)
	if err != nil {
		return err
	}
	snow, err := meteo.SnowRatio(tK, rh, meteo.HPa(1000))
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"file": tfile}).Debug("adding snow fraction")
	if err := m.ColorLine(lon, lat, shift(t850, -273.15), -6, blue); err != nil {
		return err
	}
	return m.GrayShade(lon, lat, snow, "snow/(snow+rain)", 0, 1)
}
