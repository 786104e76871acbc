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
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// TimeFormat is the layout of the time stamps in output and input file names.
const TimeFormat = "2006-01-02_15"

// referenceLayouts are the accepted layouts of the reference time in a CF
// "units" attribute.
var referenceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-1-2 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006-1-2",
}

// TimeLabel returns the valid time of the first record of ds, read from
// its "time" variable and that variable's CF units, for example
// "hours since 2021-01-01 00:00:00".
func TimeLabel(ds Dataset) (time.Time, error) {
	a, ok := ds.Attribute("time", "units")
	if !ok {
		return time.Time{}, fmt.Errorf("ncmagics: %s has no time units", ds.Path())
	}
	units, ok := a.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("ncmagics: time units in %s are not text", ds.Path())
	}
	step, ref, err := parseTimeUnits(units)
	if err != nil {
		return time.Time{}, fmt.Errorf("ncmagics: %s: %v", ds.Path(), err)
	}
	v, err := ds.ReadAll("time")
	if err != nil {
		return time.Time{}, err
	}
	if len(v.Elements) == 0 {
		return time.Time{}, fmt.Errorf("ncmagics: %s has no time values", ds.Path())
	}
	return ref.Add(time.Duration(math.Round(v.Elements[0] * float64(step)))), nil
}

// parseTimeUnits splits a CF time units string into the unit duration
// and the reference time.
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("invalid time units %q", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}
	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, ".0")
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("invalid reference time %q", parts[1])
}

// FormatTime formats t as it appears in file names.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeFormat) }

var stampPattern = regexp.MustCompile(`[0-9]{4}-[0-9]{2}-[0-9]{2}_[0-9]{2}`)

// TimeFromName finds a YYYY-MM-DD_HH time stamp in the base name of path.
// It returns the time and the stamp as written.
func TimeFromName(path string) (time.Time, string, error) {
	stamp := stampPattern.FindString(filepath.Base(path))
	if stamp == "" {
		return time.Time{}, "", fmt.Errorf("%w: %s", ErrNoTimeStamp, path)
	}
	t, err := time.Parse(TimeFormat, stamp)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %s: %v", ErrNoTimeStamp, path, err)
	}
	return t, stamp, nil
}

// ShiftName returns path with its time stamp moved by d.
func ShiftName(path string, d time.Duration) (string, error) {
	t, stamp, err := TimeFromName(path)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(path)
	return dir + strings.Replace(base, stamp, FormatTime(t.Add(d)), 1), nil
}
