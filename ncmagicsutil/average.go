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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ncmagics"
)

// DefaultAverageVars are the variables averaged by Average when none are
// given.
var DefaultAverageVars = []string{"t", "r", "u", "v"}

// Average fills the gaps in a time series of files. The files in dir
// whose names contain filter, and do not contain exclude if it is not
// empty, are sorted by name. For each neighbouring pair a new file is
// written with the name of the first file and the time stamp half way
// between the two. It is a copy of the first file in which vars, and the
// time variable, are replaced by their means over the pair. It returns
// the paths of the new files.
func Average(s *Settings, dir, filter, exclude string, vars []string) ([]string, error) {
	files, err := seriesFiles(dir, filter, exclude)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		vars = DefaultAverageVars
	}
	inputs := make(map[string]bool, len(files))
	for _, f := range files {
		inputs[f] = true
	}
	var out []string
	for i := 1; i < len(files); i++ {
		prev, next := files[i-1], files[i]
		t0, _, err := ncmagics.TimeFromName(prev)
		if err != nil {
			return out, err
		}
		t1, _, err := ncmagics.TimeFromName(next)
		if err != nil {
			return out, err
		}
		path, err := ncmagics.ShiftName(prev, t1.Sub(t0)/2)
		if err != nil {
			return out, err
		}
		if inputs[path] {
			return out, fmt.Errorf("ncmagics: the average of %s and %s would overwrite %s",
				filepath.Base(prev), filepath.Base(next), filepath.Base(path))
		}
		v, err := withTime(prev, vars)
		if err != nil {
			return out, err
		}
		if err := ncmagics.WriteAverage(prev, next, prev, path, v); err != nil {
			return out, err
		}
		s.Log.WithFields(logrus.Fields{
			"prev":   filepath.Base(prev),
			"next":   filepath.Base(next),
			"output": path,
		}).Info("wrote average")
		out = append(out, path)
	}
	return out, nil
}

// seriesFiles returns the sorted paths of the files in dir whose names
// contain filter and not exclude.
func seriesFiles(dir, filter, exclude string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: reading directory: %v", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, filter) {
			continue
		}
		if exclude != "" && strings.Contains(name, exclude) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// withTime adds the time variable to vars if the file at path has one.
func withTime(path string, vars []string) ([]string, error) {
	for _, v := range vars {
		if v == "time" {
			return vars, nil
		}
	}
	ds, err := ncmagics.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	for _, v := range ds.Variables() {
		if v == "time" {
			return append(append([]string{}, vars...), "time"), nil
		}
	}
	return vars, nil
}
