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
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spatialmodel/ncmagics/internal/ncfixture"
)

const testTolerance = 1.e-6

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// testTemperature is the temperature field written to test files.
func testTemperature(offset float64) func(level, lat, lon float64) float64 {
	return func(level, lat, lon float64) float64 {
		return 200 + level/10 + lat + lon/100 + offset
	}
}

// writeTestFile writes a test file with 5 latitudes from 60 to 20,
// 6 longitudes from 100 to 150 and levels 1000, 850 and 500 hPa.
func writeTestFile(t *testing.T, name string, hours, offset float64, nlon int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := ncfixture.Write(path, ncfixture.Options{
		Lat:    ncfixture.Range(60, -10, 5),
		Lon:    ncfixture.Range(100, 10, nlon),
		Levels: []float64{1000, 850, 500},
		Hours:  hours,
		Vars3D: map[string]func(level, lat, lon float64) float64{
			"t": testTemperature(offset),
		},
		Vars2D: map[string]func(lat, lon float64) float64{
			"prmsl": func(lat, lon float64) float64 { return 100000 + lat*10 + lon + offset },
		},
		Packed: map[string]func(lat, lon float64) float64{
			"r": func(lat, lon float64) float64 {
				if lat == 60 && lon == 100 {
					return math.NaN()
				}
				return lat + lon/10
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverGrid(t *testing.T) {
	path := writeTestFile(t, "gfs_2021-01-01_00.nc", 0, 0, 6)
	ds, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	g, err := DiscoverGrid(ds)
	if err != nil {
		t.Fatal(err)
	}
	if g.LatName != "latitude" || g.LonName != "longitude" || g.LevelName != "level" {
		t.Errorf("axes: %s, %s, %s", g.LatName, g.LonName, g.LevelName)
	}
	if !g.HasLevels() {
		t.Error("file should have levels")
	}
	if want := []int{1000, 850, 500}; !reflect.DeepEqual(g.SortedLevels(), want) {
		t.Errorf("levels: have %v, want %v", g.SortedLevels(), want)
	}
	if i, err := g.LevelIndex(850); err != nil || i != 1 {
		t.Errorf("level index of 850: %d, %v", i, err)
	}
	if _, err := g.LevelIndex(925); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("want ErrUnknownLevel, have %v", err)
	}
	if n, ok := ds.DimLen("time"); !ok || n != 1 {
		t.Errorf("records: %d, %v", n, ok)
	}
}

func TestReader(t *testing.T) {
	path := writeTestFile(t, "gfs_2021-01-01_00.nc", 0, 0, 6)
	r, err := NewReader(path, Bounds{South: 30, North: 50, West: 120, East: 140})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	lat, lon, err := r.LatLon()
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{50, 40, 30}; !reflect.DeepEqual(lat, want) {
		t.Errorf("lat: have %v, want %v", lat, want)
	}
	if want := []float64{120, 130, 140}; !reflect.DeepEqual(lon, want) {
		t.Errorf("lon: have %v, want %v", lon, want)
	}

	t.Run("level", func(t *testing.T) {
		t850, err := r.ParameterAt("t", 850)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(t850.Shape, []int{3, 3}) {
			t.Fatalf("shape: %v", t850.Shape)
		}
		for j, y := range lat {
			for i, x := range lon {
				want := testTemperature(0)(850, y, x)
				if have := t850.Get(j, i); different(have, want, testTolerance) {
					t.Errorf("t(850, %g, %g): have %g, want %g", y, x, have, want)
				}
			}
		}
	})

	t.Run("all levels", func(t *testing.T) {
		t3d, err := r.Parameter("t")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(t3d.Shape, []int{3, 3, 3}) {
			t.Fatalf("shape: %v", t3d.Shape)
		}
		want := testTemperature(0)(500, 30, 140)
		if have := t3d.Get(2, 2, 2); different(have, want, testTolerance) {
			t.Errorf("have %g, want %g", have, want)
		}
	})

	t.Run("surface", func(t *testing.T) {
		p, err := r.Parameter("prmsl")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(p.Shape, []int{3, 3}) {
			t.Fatalf("shape: %v", p.Shape)
		}
		if have, want := p.Get(2, 2), 100440.; different(have, want, testTolerance) {
			t.Errorf("have %g, want %g", have, want)
		}
	})

	t.Run("surface at level", func(t *testing.T) {
		if _, err := r.ParameterAt("prmsl", 850); err == nil {
			t.Error("want an error selecting a level of a surface field")
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		if _, err := r.ParameterAt("t", 925); !errors.Is(err, ErrUnknownLevel) {
			t.Errorf("want ErrUnknownLevel, have %v", err)
		}
	})

	t.Run("cached copy", func(t *testing.T) {
		a, err := r.ParameterAt("t", 500)
		if err != nil {
			t.Fatal(err)
		}
		a.Elements[0] = -1
		b, err := r.ParameterAt("t", 500)
		if err != nil {
			t.Fatal(err)
		}
		if b.Elements[0] == -1 {
			t.Error("cached field was modified by the caller")
		}
	})
}

func TestUnpack(t *testing.T) {
	path := writeTestFile(t, "gfs_2021-01-01_00.nc", 0, 0, 6)
	r, err := NewReader(path, Bounds{South: 20, North: 60, West: 100, East: 150})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rh, err := r.Parameter("r")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(rh.Get(0, 0)) {
		t.Errorf("fill value should read as NaN, have %g", rh.Get(0, 0))
	}
	// latitude 50, longitude 110
	if have, want := rh.Get(1, 1), 61.; different(have, want, testTolerance) {
		t.Errorf("have %g, want %g", have, want)
	}
}

func TestSetFile(t *testing.T) {
	first := writeTestFile(t, "gfs_2021-01-01_00.nc", 0, 0, 6)
	second := writeTestFile(t, "gfs_2021-01-01_06.nc", 6, 5, 6)
	other := writeTestFile(t, "gfs_2021-01-01_12.nc", 12, 0, 7)

	r, err := NewReader(first, JapanBounds)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	a, err := r.ParameterAt("t", 1000)
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.Mask()
	if err != nil {
		t.Fatal(err)
	}

	if err := r.SetFile(second); err != nil {
		t.Fatal(err)
	}
	if r.Path() != second {
		t.Errorf("path: %s", r.Path())
	}
	m2, err := r.Mask()
	if err != nil {
		t.Fatal(err)
	}
	if m != m2 {
		t.Error("mask should survive a file swap")
	}
	b, err := r.ParameterAt("t", 1000)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Elements {
		if different(b.Elements[i]-a.Elements[i], 5, testTolerance*100) {
			t.Fatalf("element %d: %g - %g != 5", i, b.Elements[i], a.Elements[i])
		}
	}

	if err := r.SetFile(other); !errors.Is(err, ErrGridMismatch) {
		t.Errorf("want ErrGridMismatch, have %v", err)
	}
	if r.Path() != second {
		t.Errorf("failed swap should keep the current file, have %s", r.Path())
	}
}

func TestMask(t *testing.T) {
	lat := ncfixture.Range(60, -10, 5)
	lon := ncfixture.Range(100, 10, 6)
	if _, err := NewMask(lat, lon, Bounds{South: -30, North: -10, West: 100, East: 150}); err == nil {
		t.Error("want an error for an empty window")
	}
	b := Bounds{South: 40, North: 60, West: 100, East: 100}
	m1, err := cachedMask(lat, lon, b)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := cachedMask(lat, lon, b)
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Error("mask should be cached")
	}
	if nlat, nlon := m1.Shape(); nlat != 3 || nlon != 1 {
		t.Errorf("shape %d, %d", nlat, nlon)
	}
}

func TestBoundsValidate(t *testing.T) {
	for _, b := range []Bounds{JapanBounds, NorthernHemisphere} {
		if err := b.Validate(); err != nil {
			t.Error(err)
		}
	}
	for _, b := range []Bounds{
		{South: 50, North: 40, West: 110, East: 180},
		{South: -100, North: 40, West: 110, East: 180},
		{South: 20, North: 40, West: 180, East: 110},
	} {
		if err := b.Validate(); err == nil {
			t.Errorf("%v should be invalid", b)
		}
	}
}

func TestTimeLabel(t *testing.T) {
	path := writeTestFile(t, "forecast.nc", 30, 0, 6)
	ds, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	tm, err := TimeLabel(ds)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := FormatTime(tm), "2021-01-02_06"; have != want {
		t.Errorf("have %s, want %s", have, want)
	}
}

func TestParseTimeUnits(t *testing.T) {
	for _, units := range []string{
		"hours since 2021-01-01 00:00:00",
		"hours since 2021-01-01T00:00:00Z",
		"hours since 2021-1-1 00:00:00",
		"hours since 2021-01-01",
		"hours since 2021-01-01 00:00:00.0",
	} {
		step, ref, err := parseTimeUnits(units)
		if err != nil {
			t.Errorf("%s: %v", units, err)
			continue
		}
		if step.Hours() != 1 || FormatTime(ref) != "2021-01-01_00" {
			t.Errorf("%s: step %v, reference %v", units, step, ref)
		}
	}
	if _, _, err := parseTimeUnits("fortnights since 2021-01-01"); err == nil {
		t.Error("want an error for an unknown unit")
	}
}

func TestTimeFromName(t *testing.T) {
	tm, stamp, err := TimeFromName("/data/troposphere-2021-01-01_18.nc")
	if err != nil {
		t.Fatal(err)
	}
	if stamp != "2021-01-01_18" || tm.Hour() != 18 {
		t.Errorf("stamp %s, time %v", stamp, tm)
	}
	if _, _, err := TimeFromName("troposphere.nc"); !errors.Is(err, ErrNoTimeStamp) {
		t.Errorf("want ErrNoTimeStamp, have %v", err)
	}
	shifted, err := ShiftName("/data/troposphere-2021-01-01_18.nc", 6*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if want := "/data/troposphere-2021-01-02_00.nc"; shifted != want {
		t.Errorf("have %s, want %s", shifted, want)
	}
}

func TestWriteAverage(t *testing.T) {
	prev := writeTestFile(t, "gfs_2021-01-01_00.nc", 0, 0, 6)
	next := writeTestFile(t, "gfs_2021-01-01_12.nc", 12, 10, 6)
	out := filepath.Join(t.TempDir(), "gfs_2021-01-01_06.nc")

	if err := WriteAverage(prev, next, prev, out, []string{"t"}); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(out, JapanBounds)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	avg, err := r.ParameterAt("t", 850)
	if err != nil {
		t.Fatal(err)
	}
	lat, lon, err := r.LatLon()
	if err != nil {
		t.Fatal(err)
	}
	for j, y := range lat {
		for i, x := range lon {
			want := testTemperature(5)(850, y, x)
			if have := avg.Get(j, i); different(have, want, testTolerance) {
				t.Errorf("t(850, %g, %g): have %g, want %g", y, x, have, want)
			}
		}
	}
	// Variables not averaged are copied from the base file.
	p, err := r.Parameter("prmsl")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := p.Get(0, 1), 100000+60*10+120.; different(have, want, testTolerance) {
		t.Errorf("prmsl: have %g, want %g", have, want)
	}
	rh, err := r.Parameter("r")
	if err != nil {
		t.Fatal(err)
	}
	// latitude 50, longitude 110
	if have, want := rh.Get(1, 0), 61.; different(have, want, testTolerance) {
		t.Errorf("r: have %g, want %g", have, want)
	}
	tm, err := TimeLabel(r.Dataset())
	if err != nil {
		t.Fatal(err)
	}
	if FormatTime(tm) != "2021-01-01_00" {
		t.Errorf("time: %v", tm)
	}
}

func TestWriteAverageFill(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, offset, missLat, missLon float64) string {
		path := filepath.Join(dir, name)
		err := ncfixture.Write(path, ncfixture.Options{
			Lat: ncfixture.Range(60, -10, 5),
			Lon: ncfixture.Range(100, 10, 6),
			Packed: map[string]func(lat, lon float64) float64{
				"r": func(lat, lon float64) float64 {
					if lat == missLat && lon == missLon {
						return math.NaN()
					}
					return lat + lon/10 + offset
				},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		return path
	}
	prev := write("prev.nc", 0, 50, 110)
	next := write("next.nc", 2, 40, 120)
	out := filepath.Join(dir, "out.nc")
	if err := WriteAverage(prev, next, prev, out, []string{"r"}); err != nil {
		t.Fatal(err)
	}

	ds, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	a, err := ds.ReadAll("r")
	if err != nil {
		t.Fatal(err)
	}
	lat, lon := ncfixture.Range(60, -10, 5), ncfixture.Range(100, 10, 6)
	for j, y := range lat {
		for i, x := range lon {
			have := a.Get(0, j, i)
			if (y == 50 && x == 110) || (y == 40 && x == 120) {
				if have != float64(ncfixture.PackedFill) {
					t.Errorf("r(%g, %g): have %g, want fill value", y, x, have)
				}
				continue
			}
			want := (y + x/10 + 1 - ncfixture.PackedOffset) / ncfixture.PackedScale
			if different(have, want, testTolerance) {
				t.Errorf("r(%g, %g): have %g, want %g", y, x, have, want)
			}
		}
	}
}

func TestOpenNotNetCDF(t *testing.T) {
	if _, err := Open("ncmagics.go"); err == nil {
		t.Error("want an error opening a Go file")
	}
}
