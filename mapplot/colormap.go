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

package mapplot

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultColorMap is the colour map used when none is named.
const DefaultColorMap = "kishotyo"

// segmented is a colour map that interpolates linearly between evenly
// spaced control colours.
type segmented struct {
	colors   []color.NRGBA
	min, max float64
	alpha    float64
}

func newSegmented(colors ...color.NRGBA) *segmented {
	return &segmented{colors: colors, max: 1, alpha: 1}
}

// At implements the palette.ColorMap interface.
func (s *segmented) At(v float64) (color.Color, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < s.min:
		return nil, palette.ErrUnderflow
	case v > s.max:
		return nil, palette.ErrOverflow
	}
	f := (v - s.min) / (s.max - s.min) * float64(len(s.colors)-1)
	i := int(f)
	if i >= len(s.colors)-1 {
		return s.withAlpha(s.colors[len(s.colors)-1]), nil
	}
	frac := f - float64(i)
	c1, c2 := s.colors[i], s.colors[i+1]
	return s.withAlpha(color.NRGBA{
		R: mix(c1.R, c2.R, frac),
		G: mix(c1.G, c2.G, frac),
		B: mix(c1.B, c2.B, frac),
		A: 255,
	}), nil
}

func mix(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

func (s *segmented) withAlpha(c color.NRGBA) color.NRGBA {
	c.A = uint8(math.Round(255 * s.alpha))
	return c
}

func (s *segmented) check() error {
	if len(s.colors) < 2 {
		return fmt.Errorf("mapplot: colour map needs at least two colours")
	}
	if s.max <= s.min {
		return fmt.Errorf("mapplot: colour map maximum %g is not greater than minimum %g", s.max, s.min)
	}
	return nil
}

func (s *segmented) Min() float64       { return s.min }
func (s *segmented) Max() float64       { return s.max }
func (s *segmented) SetMin(v float64)   { s.min = v }
func (s *segmented) SetMax(v float64)   { s.max = v }
func (s *segmented) Alpha() float64     { return s.alpha }
func (s *segmented) SetAlpha(a float64) { s.alpha = a }

// Palette returns n colours sampled evenly from the map. A map with an
// invalid range gives an empty palette; Shade layers sample the map
// themselves and report the error.
func (s *segmented) Palette(n int) palette.Palette {
	p, err := sample(s, n)
	if err != nil {
		return colors(nil)
	}
	return p
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// sample returns n colours evenly spaced over the range of cm.
func sample(cm palette.ColorMap, n int) (palette.Palette, error) {
	if n < 2 {
		return nil, fmt.Errorf("mapplot: cannot sample %d colours", n)
	}
	out := make(colors, n)
	d := (cm.Max() - cm.Min()) / float64(n-1)
	for i := range out {
		v := cm.Min() + float64(i)*d
		if i == n-1 {
			v = cm.Max()
		}
		c, err := cm.At(v)
		if err != nil {
			return nil, fmt.Errorf("mapplot: colour of %g: %v", v, err)
		}
		out[i] = c
	}
	return out, nil
}

func rgb(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 255} }

var builtin = map[string]func() palette.ColorMap{
	"kishotyo": func() palette.ColorMap {
		return newSegmented(
			rgb(242, 242, 242), rgb(160, 210, 255), rgb(33, 140, 255), rgb(0, 65, 255),
			rgb(250, 245, 0), rgb(255, 153, 0), rgb(255, 40, 0), rgb(180, 0, 104),
		)
	},
	"temperature": func() palette.ColorMap {
		return newSegmented(
			rgb(160, 0, 200), rgb(0, 65, 255), rgb(33, 140, 255), rgb(160, 210, 255),
			rgb(242, 242, 242), rgb(250, 245, 0), rgb(255, 153, 0), rgb(255, 40, 0),
			rgb(180, 0, 104),
		)
	},
	"diff":   func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"gray":   func() palette.ColorMap { return newSegmented(rgb(0, 0, 0), rgb(255, 255, 255)) },
	"gray_r": func() palette.ColorMap { return newSegmented(rgb(255, 255, 255), rgb(0, 0, 0)) },
	"YlOrBr": func() palette.ColorMap {
		return newSegmented(
			rgb(0xff, 0xff, 0xe5), rgb(0xff, 0xf7, 0xbc), rgb(0xfe, 0xe3, 0x91),
			rgb(0xfe, 0xc4, 0x4f), rgb(0xfe, 0x99, 0x29), rgb(0xec, 0x70, 0x14),
			rgb(0xcc, 0x4c, 0x02), rgb(0x99, 0x34, 0x04), rgb(0x66, 0x25, 0x06),
		)
	},
}

// ColorMaps holds the named colour maps available to the map layers:
// the built-in maps plus any loaded from a file.
type ColorMaps struct {
	user map[string][]color.NRGBA
}

// colorMapFile is the layout of a colour-map file:
//
//	[[colormap]]
//	name = "precip"
//	colors = ["#ffffff", "#0000ff"]
type colorMapFile struct {
	ColorMap []struct {
		Name   string   `toml:"name"`
		Colors []string `toml:"colors"`
	} `toml:"colormap"`
}

// LoadColorMaps reads the colour maps defined in the TOML file at path.
func LoadColorMaps(path string) (*ColorMaps, error) {
	var f colorMapFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("mapplot: reading colour maps from %s: %v", path, err)
	}
	cm := &ColorMaps{user: make(map[string][]color.NRGBA)}
	for _, m := range f.ColorMap {
		if m.Name == "" {
			return nil, fmt.Errorf("mapplot: colour map in %s has no name", path)
		}
		if len(m.Colors) < 2 {
			return nil, fmt.Errorf("mapplot: colour map %s needs at least two colours", m.Name)
		}
		cols := make([]color.NRGBA, len(m.Colors))
		for i, s := range m.Colors {
			c, err := parseHex(s)
			if err != nil {
				return nil, fmt.Errorf("mapplot: colour map %s: %v", m.Name, err)
			}
			cols[i] = c
		}
		cm.user[m.Name] = cols
	}
	return cm, nil
}

// parseHex parses a colour written as #rrggbb or #rrggbbaa.
func parseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Get returns a new instance of the colour map called name. An empty name
// returns the default map. Maps loaded from a file take precedence over
// the built-in maps. cm may be nil.
func (cm *ColorMaps) Get(name string) (palette.ColorMap, error) {
	if name == "" {
		name = DefaultColorMap
	}
	if cm != nil {
		if cols, ok := cm.user[name]; ok {
			return newSegmented(cols...), nil
		}
	}
	if f, ok := builtin[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("mapplot: unknown colour map %q; available maps are %s", name,
		strings.Join(cm.Names(), ", "))
}

// Names returns the names of the available colour maps.
func (cm *ColorMaps) Names() []string {
	var names []string
	for n := range builtin {
		names = append(names, n)
	}
	if cm != nil {
		for n := range cm.user {
			if _, ok := builtin[n]; !ok {
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}
