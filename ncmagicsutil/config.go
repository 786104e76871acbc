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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/spf13/cast"
	"gonum.org/v1/plot/vg"
)

// DefaultVariables maps the quantities the products read to the variable
// names used in GRIB-converted forecast files.
var DefaultVariables = map[string]string{
	"temperature":   "t",
	"humidity":      "r",
	"u":             "u",
	"v":             "v",
	"height":        "gh",
	"precipitation": "APCP_surface",
	"prmsl":         "prmsl",
	"u10":           "u10",
	"v10":           "v10",
	"rh2m":          "r2",
}

// Settings holds the options shared by all products.
type Settings struct {
	// OutDir is the directory images are written to. It may also be a
	// blob storage location such as s3://bucket/maps, in which case
	// Upload must be called after the products are made.
	OutDir string

	// Bounds is the window of the Japan maps.
	Bounds ncmagics.Bounds

	// Coastlines is an optional shapefile drawn on every map.
	Coastlines string

	// ColorMaps holds user colour maps in addition to the built-in ones.
	ColorMaps *mapplot.ColorMaps

	Width, Height vg.Length
	DPI           int

	// Open opens each image after it is written.
	Open bool

	// Vars overrides entries of DefaultVariables.
	Vars map[string]string

	Log logrus.FieldLogger

	up uploader
}

// NewSettings returns settings for Japan maps written to the current
// directory.
func NewSettings() *Settings {
	return &Settings{
		OutDir: ".",
		Bounds: ncmagics.JapanBounds,
		Width:  mapplot.DefaultWidth,
		Height: mapplot.DefaultHeight,
		DPI:    mapplot.DefaultDPI,
		Log:    logrus.StandardLogger(),
	}
}

// variable returns the name of the variable holding quantity q.
func (s *Settings) variable(q string) string {
	if v, ok := s.Vars[q]; ok && v != "" {
		return v
	}
	return DefaultVariables[q]
}

// Upload copies images written for a blob storage OutDir to their
// destination.
func (s *Settings) Upload(ctx context.Context) error {
	return s.up.uploadOutput(ctx)
}

// reader opens a file for reading fields within b.
func (s *Settings) reader(path string, b ncmagics.Bounds) (*ncmagics.Reader, error) {
	r, err := ncmagics.NewReader(path, b)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"file": path, "bounds": b.String()}).Debug("opened file")
	return r, nil
}

// newMap returns an empty map with the size, colour maps and coastlines
// of the settings.
func (s *Settings) newMap(p mapplot.Projection) (*mapplot.Map, error) {
	m := mapplot.New(p)
	if s.Width > 0 && s.Height > 0 {
		m.Width, m.Height = s.Width, s.Height
	}
	if s.DPI > 0 {
		m.DPI = s.DPI
	}
	m.ColorMaps = s.ColorMaps
	if s.Coastlines != "" {
		if err := m.Coastlines(s.Coastlines); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// japanMap returns a map of Bounds.
func (s *Settings) japanMap() (*mapplot.Map, error) {
	return s.newMap(mapplot.Equirectangular{Bounds: s.Bounds})
}

// hemisphereMap returns a polar map of the northern hemisphere.
func (s *Settings) hemisphereMap() (*mapplot.Map, error) {
	return s.newMap(mapplot.NorthPolar)
}

// outputPath returns where the image called name is written.
func (s *Settings) outputPath(name string) string {
	dir := s.OutDir
	if dir == "" {
		dir = "."
	}
	if IsBlob(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name + ".png"
	}
	return filepath.Join(dir, name+".png")
}

// save writes m to the image called name and returns the path of the
// image.
func (s *Settings) save(m *mapplot.Map, name, title string) (string, error) {
	dst := s.outputPath(name)
	path, err := s.up.maybeUpload(dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return "", fmt.Errorf("ncmagics: creating output directory: %v", err)
	}
	start := time.Now()
	if err := m.Save(path, title); err != nil {
		return "", err
	}
	s.Log.WithFields(logrus.Fields{
		"output":   dst,
		"duration": time.Since(start).String(),
	}).Info("wrote map")
	if s.Open && !IsBlob(dst) {
		if err := open.Start(path); err != nil {
			s.Log.WithField("output", path).Warnf("opening image: %v", err)
		}
	}
	return dst, nil
}

// timeName returns the valid time of the file read by r as it appears in
// output names.
func timeName(r *ncmagics.Reader) (string, error) {
	t, err := ncmagics.TimeLabel(r.Dataset())
	if err != nil {
		return "", err
	}
	return ncmagics.FormatTime(t), nil
}

// settingsFromConfig builds the settings from the global options in cfg.
func settingsFromConfig(ctx context.Context, cfg *viper.Viper, c chan string) (*Settings, error) {
	s := NewSettings()
	s.OutDir = os.ExpandEnv(cfg.GetString("outdir"))

	b, err := parseBounds(cfg.GetString("bounds"))
	if err != nil {
		return nil, err
	}
	s.Bounds = b

	if path := os.ExpandEnv(cfg.GetString("coastlines")); path != "" {
		s.Coastlines = maybeDownload(ctx, path, c)
	}
	if path := os.ExpandEnv(cfg.GetString("colormaps")); path != "" {
		cm, err := mapplot.LoadColorMaps(maybeDownload(ctx, path, c))
		if err != nil {
			return nil, err
		}
		s.ColorMaps = cm
	}

	width, err := cast.ToFloat64E(cfg.Get("width"))
	if err != nil {
		return nil, fmt.Errorf("ncmagics: invalid width: %v", err)
	}
	height, err := cast.ToFloat64E(cfg.Get("height"))
	if err != nil {
		return nil, fmt.Errorf("ncmagics: invalid height: %v", err)
	}
	if !(width > 0 && height > 0) {
		return nil, fmt.Errorf("ncmagics: the image size must be positive, not %gx%g in", width, height)
	}
	s.Width, s.Height = vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch
	dpi, err := cast.ToIntE(cfg.Get("dpi"))
	if err != nil || dpi <= 0 {
		return nil, fmt.Errorf("ncmagics: invalid dpi %v", cfg.Get("dpi"))
	}
	s.DPI = dpi
	s.Open = cfg.GetBool("open")

	vars, err := getStringMapString("variables", cfg)
	if err != nil {
		return nil, err
	}
	for k := range vars {
		if _, ok := DefaultVariables[k]; !ok {
			return nil, fmt.Errorf("ncmagics: unknown quantity %q in variables; the quantities are %v",
				k, sortedKeys(DefaultVariables))
		}
	}
	s.Vars = vars

	s.Log = newLogger(cfg.GetBool("verbose"))
	return s, nil
}

// newLogger returns a logger writing text to standard error.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
	log.Out = os.Stderr
	if verbose {
		log.Level = logrus.DebugLevel
	}
	return log
}

// parseBounds parses a window written as "south,north,west,east".
func parseBounds(s string) (ncmagics.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return ncmagics.Bounds{}, fmt.Errorf("ncmagics: bounds must be south,north,west,east, not %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return ncmagics.Bounds{}, fmt.Errorf("ncmagics: invalid bounds %q: %v", s, err)
		}
		v[i] = f
	}
	b := ncmagics.Bounds{South: v[0], North: v[1], West: v[2], East: v[3]}
	if err := b.Validate(); err != nil {
		return ncmagics.Bounds{}, err
	}
	return b, nil
}

// getStringMapString returns a map[string]string from cfg, which may
// hold it as a map or as JSON text.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch t := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(t)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(t) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(t))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("ncmagics: reading %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("ncmagics: invalid type for %s: %#v", varName, i)
	}
}

// expandStringSlice expands the environment variables in each element.
func expandStringSlice(s []string) []string {
	o := make([]string, len(s))
	for i, ss := range s {
		o[i] = os.ExpandEnv(ss)
	}
	return o
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// shift returns a copy of a with c added to every element.
func shift(a *sparse.DenseArray, c float64) *sparse.DenseArray {
	o := a.Copy()
	o.AddConstant(c)
	return o
}

// scale returns a copy of a with every element multiplied by f.
func scale(a *sparse.DenseArray, f float64) *sparse.DenseArray { return a.ScaleCopy(f) }
