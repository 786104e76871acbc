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

package ncmagics

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// memGroup is an in-memory NetCDF-4 group. Methods it does not override
// panic through the nil embedded interface.
type memGroup struct {
	api.Group
	dims   map[string]uint64
	vars   map[string]*memVar
	attrs  memAttrs
	closed bool
}

type memVar struct {
	api.VarGetter
	dims  []string
	vals  interface{}
	attrs memAttrs
}

type memAttrs struct {
	api.AttributeMap
	m map[string]interface{}
}

func (a memAttrs) Keys() []string {
	var k []string
	for key := range a.m {
		k = append(k, key)
	}
	sort.Strings(k)
	return k
}

func (a memAttrs) Get(key string) (interface{}, bool) {
	v, ok := a.m[key]
	return v, ok
}

func (g *memGroup) Close() { g.closed = true }

func (g *memGroup) ListDimensions() []string {
	return []string{"time", "level", "latitude", "longitude"}
}

func (g *memGroup) GetDimension(name string) (uint64, bool) {
	n, ok := g.dims[name]
	return n, ok
}

func (g *memGroup) ListVariables() []string {
	var v []string
	for name := range g.vars {
		v = append(v, name)
	}
	sort.Strings(v)
	return v
}

func (g *memGroup) GetVarGetter(name string) (api.VarGetter, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, fmt.Errorf("variable %s not found", name)
	}
	return v, nil
}

func (g *memGroup) Attributes() api.AttributeMap { return g.attrs }

func (v *memVar) Dimensions() []string { return v.dims }

func (v *memVar) Attributes() api.AttributeMap { return v.attrs }

func (v *memVar) Values() (interface{}, error) { return v.vals, nil }

func (v *memVar) GetSlice(begin, end int64) (interface{}, error) {
	rv := reflect.ValueOf(v.vals)
	if begin < 0 || end > int64(rv.Len()) || begin > end {
		return nil, fmt.Errorf("slice %d:%d out of range", begin, end)
	}
	return rv.Slice(int(begin), int(end)).Interface(), nil
}

var (
	hdfLevels = []float32{850, 500}
	hdfLat    = []float32{40, 30, 20}
	hdfLon    = []float32{120, 130, 140, 150}
)

func hdfTemperature(level, lat, lon float32) float32 {
	return 200 + level/10 + lat + lon/100
}

// newMemHDF returns a NetCDF-4 dataset holding air temperature on two
// pressure levels and packed humidity with one missing cell at 30N 140E.
func newMemHDF(path string) *hdf {
	t := make([][][][]float32, 1)
	t[0] = make([][][]float32, len(hdfLevels))
	for k, l := range hdfLevels {
		t[0][k] = make([][]float32, len(hdfLat))
		for j, y := range hdfLat {
			t[0][k][j] = make([]float32, len(hdfLon))
			for i, x := range hdfLon {
				t[0][k][j][i] = hdfTemperature(l, y, x)
			}
		}
	}
	r := [][][]int16{make([][]int16, len(hdfLat))}
	for j, y := range hdfLat {
		r[0][j] = make([]int16, len(hdfLon))
		for i, x := range hdfLon {
			r[0][j][i] = int16(math.Round(float64(y+x/10-50) / 0.01))
			if y == 30 && x == 140 {
				r[0][j][i] = -32767
			}
		}
	}
	attrs := func(kv ...interface{}) memAttrs {
		m := make(map[string]interface{})
		for i := 0; i < len(kv); i += 2 {
			m[kv[i].(string)] = kv[i+1]
		}
		return memAttrs{m: m}
	}
	g := &memGroup{
		dims: map[string]uint64{
			"time":      1,
			"level":     uint64(len(hdfLevels)),
			"latitude":  uint64(len(hdfLat)),
			"longitude": uint64(len(hdfLon)),
		},
		attrs: attrs("Conventions", "CF-1.7"),
		vars: map[string]*memVar{
			"time": {dims: []string{"time"}, vals: []float64{6},
				attrs: attrs("units", "hours since 2021-01-01 00:00:00")},
			"level": {dims: []string{"level"}, vals: hdfLevels,
				attrs: attrs("units", "millibar")},
			"latitude": {dims: []string{"latitude"}, vals: hdfLat,
				attrs: attrs("standard_name", "latitude")},
			"longitude": {dims: []string{"longitude"}, vals: hdfLon,
				attrs: attrs("axis", "X")},
			"t": {dims: []string{"time", "level", "latitude", "longitude"}, vals: t,
				attrs: attrs("units", "K")},
			"r": {dims: []string{"time", "latitude", "longitude"}, vals: r,
				attrs: attrs("_FillValue", int16(-32767), "scale_factor", 0.01, "add_offset", 50.)},
		},
	}
	return &hdf{path: path, g: g}
}

func TestHDFDataset(t *testing.T) {
	h := newMemHDF("era5.nc")

	if h.Path() != "era5.nc" {
		t.Errorf("path: %s", h.Path())
	}
	if n, ok := h.DimLen("latitude"); !ok || n != 3 {
		t.Errorf("latitude length: %d, %v", n, ok)
	}
	if _, ok := h.DimLen("height"); ok {
		t.Error("height should not be a dimension")
	}
	if want := []string{"latitude", "level", "longitude", "r", "t", "time"}; !reflect.DeepEqual(h.Variables(), want) {
		t.Errorf("variables: have %v, want %v", h.Variables(), want)
	}
	dims, err := h.VarDims("r")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"time", "latitude", "longitude"}; !reflect.DeepEqual(dims, want) {
		t.Errorf("dimensions of r: have %v, want %v", dims, want)
	}
	if _, err := h.VarDims("z"); err == nil || !strings.Contains(err.Error(), "era5.nc") {
		t.Errorf("want an error naming the file, have %v", err)
	}
	if a, ok := h.Attribute("", "Conventions"); !ok || a != "CF-1.7" {
		t.Errorf("global attribute: %v, %v", a, ok)
	}
	if a, ok := h.Attribute("t", "units"); !ok || a != "K" {
		t.Errorf("variable attribute: %v, %v", a, ok)
	}
	if _, ok := h.Attribute("z", "units"); ok {
		t.Error("attribute of missing variable")
	}

	all, err := h.ReadAll("t")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3, 4}; !reflect.DeepEqual(all.Shape, want) {
		t.Errorf("shape: have %v, want %v", all.Shape, want)
	}
	if have, want := all.Get(0, 1, 2, 3), float64(hdfTemperature(500, 20, 150)); have != want {
		t.Errorf("t[0,1,2,3]: have %g, want %g", have, want)
	}
	lat, err := h.ReadAll("latitude")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{40, 30, 20}; !reflect.DeepEqual(lat.Elements, want) {
		t.Errorf("latitude: have %v, want %v", lat.Elements, want)
	}

	slab, err := h.ReadSlab("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 3, 4}; !reflect.DeepEqual(slab.Shape, want) {
		t.Errorf("slab shape: have %v, want %v", slab.Shape, want)
	}
	if have, want := slab.Get(0, 1, 0), float64(hdfTemperature(850, 30, 120)); have != want {
		t.Errorf("slab[0,1,0]: have %g, want %g", have, want)
	}
	if _, err := h.ReadSlab("t", 1); err == nil {
		t.Error("want an error for a record past the end")
	}
	if _, err := h.ReadSlab("t", -1); err == nil {
		t.Error("want an error for a negative record")
	}
	if _, err := h.ReadAll("z"); err == nil {
		t.Error("want an error reading a missing variable")
	}

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if !h.g.(*memGroup).closed {
		t.Error("group not closed")
	}
}

func TestHDFReader(t *testing.T) {
	h := newMemHDF("era5_2021-01-01_06.nc")
	g, err := DiscoverGrid(h)
	if err != nil {
		t.Fatal(err)
	}
	if g.LatName != "latitude" || g.LonName != "longitude" || g.LevelName != "level" {
		t.Errorf("axes: %s, %s, %s", g.LatName, g.LonName, g.LevelName)
	}
	r := &Reader{Grid: g, Bounds: NorthernHemisphere, CacheSize: 4, ds: h}

	ta, err := r.ParameterAt("t", 500)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{3, 4}; !reflect.DeepEqual(ta.Shape, want) {
		t.Fatalf("shape: have %v, want %v", ta.Shape, want)
	}
	if have, want := ta.Get(1, 2), float64(hdfTemperature(500, 30, 140)); have != want {
		t.Errorf("t(500, 30, 140): have %g, want %g", have, want)
	}

	rh, err := r.Parameter("r")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(rh.Get(1, 2)) {
		t.Errorf("missing cell: have %g, want NaN", rh.Get(1, 2))
	}
	if have, want := rh.Get(0, 0), 52.; different(have, want, testTolerance) {
		t.Errorf("r(40, 120): have %g, want %g", have, want)
	}

	tm, err := TimeLabel(h)
	if err != nil {
		t.Fatal(err)
	}
	if FormatTime(tm) != "2021-01-01_06" {
		t.Errorf("time: %v", tm)
	}
}

func TestOpenHDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.nc")
	if err := os.WriteFile(path, []byte("\x89HDF\r\n\x1a\nnot really"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil || !strings.Contains(err.Error(), "NetCDF-4") {
		t.Errorf("want a NetCDF-4 error, have %v", err)
	}
}
