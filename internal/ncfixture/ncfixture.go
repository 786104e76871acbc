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

// Package ncfixture writes small NetCDF classic files laid out like the
// GRIB-converted forecast files the commands read. It is used by tests.
package ncfixture

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
)

// PackedScale and PackedOffset are the scale_factor and add_offset
// attributes of packed variables. PackedFill is their _FillValue.
const (
	PackedScale  = 0.01
	PackedOffset = 50.
	PackedFill   = int16(-32767)
)

// Options describes the file to be written.
type Options struct {
	// Lat, Lon and Levels are the coordinate values. Levels may be
	// empty for a file without a vertical axis.
	Lat, Lon, Levels []float64

	// Hours is the value of the single time record, in hours since
	// 2021-01-01 00:00:00.
	Hours float64

	// Vars3D are float32 variables with dimensions
	// (time, level, latitude, longitude).
	Vars3D map[string]func(level, lat, lon float64) float64

	// Vars2D are float32 variables with dimensions
	// (time, latitude, longitude).
	Vars2D map[string]func(lat, lon float64) float64

	// Packed are int16 variables with dimensions (time, latitude, longitude)
	// stored with PackedScale and PackedOffset. NaN values are stored
	// as PackedFill.
	Packed map[string]func(lat, lon float64) float64
}

// Write writes the file described by o to path.
func Write(path string, o Options) error {
	dims := []string{"time", "latitude", "longitude"}
	lengths := []int{0, len(o.Lat), len(o.Lon)}
	if len(o.Levels) > 0 {
		dims = append(dims, "level")
		lengths = append(lengths, len(o.Levels))
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "Conventions", "CF-1.6")

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "hours since 2021-01-01 00:00:00")
	h.AddVariable("latitude", []string{"latitude"}, []float32{0})
	h.AddAttribute("latitude", "units", "degrees_north")
	h.AddAttribute("latitude", "axis", "Y")
	// longitude is recognized by its units alone.
	h.AddVariable("longitude", []string{"longitude"}, []float32{0})
	h.AddAttribute("longitude", "units", "degrees_east")
	if len(o.Levels) > 0 {
		h.AddVariable("level", []string{"level"}, []float32{0})
		h.AddAttribute("level", "units", "hPa")
		h.AddAttribute("level", "axis", "Z")
	}
	names3 := sortedKeys(o.Vars3D)
	for _, v := range names3 {
		h.AddVariable(v, []string{"time", "level", "latitude", "longitude"}, []float32{0})
	}
	names2 := sortedKeys(o.Vars2D)
	for _, v := range names2 {
		h.AddVariable(v, []string{"time", "latitude", "longitude"}, []float32{0})
	}
	namesP := sortedKeys(o.Packed)
	for _, v := range namesP {
		h.AddVariable(v, []string{"time", "latitude", "longitude"}, []int16{0})
		h.AddAttribute(v, "scale_factor", []float64{PackedScale})
		h.AddAttribute(v, "add_offset", []float64{PackedOffset})
		h.AddAttribute(v, "_FillValue", []int16{PackedFill})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	ff, err := cdf.Create(f, h)
	if err != nil {
		f.Close()
		return err
	}
	// Filling the record first extends the file to a whole record.
	if err := ff.FillRecord(0); err != nil {
		f.Close()
		return err
	}
	write := func(v string, data interface{}) {
		if err != nil {
			return
		}
		if _, werr := ff.Writer(v, nil, nil).Write(data); werr != nil && werr != io.EOF {
			err = fmt.Errorf("ncfixture: writing %s: %v", v, werr)
		}
	}
	write("time", []float64{o.Hours})
	write("latitude", to32(o.Lat))
	write("longitude", to32(o.Lon))
	if len(o.Levels) > 0 {
		write("level", to32(o.Levels))
	}
	for _, v := range names3 {
		fn := o.Vars3D[v]
		data := make([]float32, 0, len(o.Levels)*len(o.Lat)*len(o.Lon))
		for _, l := range o.Levels {
			for _, y := range o.Lat {
				for _, x := range o.Lon {
					data = append(data, float32(fn(l, y, x)))
				}
			}
		}
		write(v, data)
	}
	for _, v := range names2 {
		fn := o.Vars2D[v]
		data := make([]float32, 0, len(o.Lat)*len(o.Lon))
		for _, y := range o.Lat {
			for _, x := range o.Lon {
				data = append(data, float32(fn(y, x)))
			}
		}
		write(v, data)
	}
	for _, v := range namesP {
		fn := o.Packed[v]
		data := make([]int16, 0, len(o.Lat)*len(o.Lon))
		for _, y := range o.Lat {
			for _, x := range o.Lon {
				val := fn(y, x)
				if math.IsNaN(val) {
					data = append(data, PackedFill)
					continue
				}
				data = append(data, int16(math.Round((val-PackedOffset)/PackedScale)))
			}
		}
		write(v, data)
	}
	if err != nil {
		f.Close()
		return err
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Range returns n values starting at start with the given step.
func Range(start, step float64, n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = start + float64(i)*step
	}
	return o
}

func to32(v []float64) []float32 {
	o := make([]float32, len(v))
	for i, x := range v {
		o[i] = float32(x)
	}
	return o
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
