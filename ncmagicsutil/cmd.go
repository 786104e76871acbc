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

// Package ncmagicsutil is the command-line interface of NcMagics. Every
// product is a subcommand of Root and an exported function.
package ncmagicsutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/ncmagics"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to NcMagics.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "outdir",
			usage: `
              outdir is the directory the images are written to. It may
              also be a blob storage location such as s3://bucket/maps.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "bounds",
			usage: `
              bounds is the window of the maps of Japan, written as
              south,north,west,east in degrees.`,
			defaultVal: "20,60,110,180",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "coastlines",
			usage: `
              coastlines is a shapefile of coastlines drawn on every map.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "colormaps",
			usage: `
              colormaps is a TOML file of additional colour maps, each
              a [[colormap]] table with a name and a list of hexadecimal
              colors.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "width",
			usage: `
              width is the width of the images in inches.`,
			defaultVal: 36.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "height",
			usage: `
              height is the height of the images in inches.`,
			defaultVal: 24.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "dpi",
			usage: `
              dpi is the resolution of the images in dots per inch.`,
			defaultVal: 48,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "open",
			usage: `
              open opens each image after it is written.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose turns on debug logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "variables",
			usage: `
              variables overrides the names of the variables read from
              the input files. The keys are temperature, humidity, u, v,
              height, precipitation, prmsl, u10, v10 and rh2m.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "file",
			usage: `
              file is the input NetCDF file. It may be a local path, a URL
              or a blob storage location, and may be compressed.`,
			shorthand:  "f",
			defaultVal: "",
			flagsets: []*pflag.FlagSet{apcpCmd.Flags(), eptCmd.Flags(), gradPTCmd.Flags(),
				gradTCmd.Flags(), jetCmd.Flags(), surfaceCmd.Flags(), pvCmd.Flags(), shearCmd.Flags(),
				upperAirCmd.Flags(), humidityCmd.Flags(), statsCmd.Flags(), exprCmd.Flags(), exportCmd.Flags()},
		},
		{
			name: "files",
			usage: `
              files are the two input NetCDF files, earlier first.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{apcpCumulativeCmd.Flags(), pvDiffCmd.Flags()},
		},
		{
			name: "tfile",
			usage: `
              tfile is an optional file of isobaric temperature and
              humidity at the time of the precipitation. If given, the
              -6 °C line at 850 hPa and the fraction of precipitation
              falling as snow are drawn.`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{apcpCmd.Flags(), apcpCumulativeCmd.Flags()},
		},
		{
			name: "isentrope",
			usage: `
              isentrope is the potential temperature [K] of the isentropic
              surface.`,
			defaultVal: DefaultIsentrope,
			flagsets:   []*pflag.FlagSet{pvCmd.Flags(), pvDiffCmd.Flags()},
		},
		{
			name: "gh",
			usage: `
              gh is the file of geopotential height.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "u",
			usage: `
              u is the file of zonal wind.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "temperature",
			usage: `
              temperature is the file of temperature.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "prev-gh",
			usage: `
              prev-gh is an optional file of geopotential height of an
              earlier period to average with gh.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "prev-u",
			usage: `
              prev-u is an optional file of zonal wind of an earlier
              period to average with u.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "prev-temperature",
			usage: `
              prev-temperature is an optional file of temperature of an
              earlier period to average with temperature.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{eadyCmd.Flags()},
		},
		{
			name: "dir",
			usage: `
              dir is the directory holding the time series of files.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "filter",
			usage: `
              filter selects the files whose names contain it.`,
			defaultVal: "troposphere-",
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "exclude",
			usage: `
              exclude skips the files whose names contain it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "vars",
			usage: `
              vars are the variables to average.`,
			defaultVal: DefaultAverageVars,
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "var",
			usage: `
              var is the variable to summarize or export.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{statsCmd.Flags(), exportCmd.Flags()},
		},
		{
			name: "level",
			usage: `
              level is the pressure level [hPa] to read. 0 reads a
              variable without levels.`,
			shorthand:  "l",
			defaultVal: NoLevel,
			flagsets:   []*pflag.FlagSet{statsCmd.Flags(), exportCmd.Flags(), exprCmd.Flags()},
		},
		{
			name: "expression",
			usage: `
              expression is a formula of variables, for example
              "sqrt(u**2 + v**2)".`,
			shorthand:  "e",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{exprCmd.Flags()},
		},
		{
			name: "label",
			usage: `
              label is the colour bar label. The default is the expression.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{exprCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the file to export to, ending in .xlsx or .csv.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
	}

	Cfg = newConfig()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(apcpCmd)
	Root.AddCommand(apcpCumulativeCmd)
	Root.AddCommand(eptCmd)
	Root.AddCommand(gradPTCmd)
	Root.AddCommand(gradTCmd)
	Root.AddCommand(jetCmd)
	Root.AddCommand(surfaceCmd)
	Root.AddCommand(pvCmd)
	Root.AddCommand(pvDiffCmd)
	Root.AddCommand(shearCmd)
	Root.AddCommand(upperAirCmd)
	Root.AddCommand(humidityCmd)
	Root.AddCommand(eadyCmd)
	Root.AddCommand(averageCmd)
	Root.AddCommand(statsCmd)
	Root.AddCommand(exprCmd)
	Root.AddCommand(exportCmd)
}

// newConfig returns an empty configuration that also reads environment
// variables named NCMAGICS_ and then the option name in upper case, with
// dashes replaced by underscores (NCMAGICS_PREV_GH for --prev-gh).
func newConfig() *viper.Viper {
	cfg := viper.New()
	cfg.SetEnvPrefix("NCMAGICS")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
	return cfg
}

// outChan returns a channel whose messages are printed to w. done is
// closed after c is closed and every message has been printed.
func outChan(w io.Writer) (c chan string, done chan struct{}) {
	c = make(chan string)
	done = make(chan struct{})
	go func() {
		defer close(done)
		for msg := range c {
			fmt.Fprint(w, msg)
		}
	}()
	return c, done
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ncmagics: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ncmagics",
	Short: "Weather maps from NetCDF forecast files.",
	Long: `NcMagics draws weather maps of Japan and the northern hemisphere from
gridded forecast and reanalysis data in NetCDF files. Use the subcommands
specified below to make each product.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'NCMAGICS_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of NcMagics.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "NcMagics v%s\n", ncmagics.Version)
	},
	DisableAutoGenTag: true,
}

// product runs f with the settings from Cfg, uploads the images it
// writes and prints their paths.
func product(cmd *cobra.Command, f func(ctx context.Context, s *Settings, c chan string) ([]string, error)) error {
	ctx := context.Background()
	c, done := outChan(cmd.OutOrStdout())
	paths, err := func() ([]string, error) {
		s, err := settingsFromConfig(ctx, Cfg, c)
		if err != nil {
			return nil, err
		}
		paths, err := f(ctx, s, c)
		if err != nil {
			return nil, err
		}
		return paths, s.Upload(ctx)
	}()
	close(c)
	<-done
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// input returns the local path of the input file named by option.
func input(ctx context.Context, option string, c chan string) (string, error) {
	path := os.ExpandEnv(Cfg.GetString(option))
	if path == "" {
		return "", fmt.Errorf("ncmagics: --%s is required", option)
	}
	return maybeDownload(ctx, path, c), nil
}

// optionalInput is like input but returns "" if the option is not set.
func optionalInput(ctx context.Context, option string, c chan string) string {
	path := os.ExpandEnv(Cfg.GetString(option))
	if path == "" {
		return ""
	}
	return maybeDownload(ctx, path, c)
}

// inputPair returns the local paths of the two files named by option.
func inputPair(ctx context.Context, option string, c chan string) (string, string, error) {
	files, err := cast.ToStringSliceE(Cfg.Get(option))
	if err != nil {
		return "", "", fmt.Errorf("ncmagics: reading --%s: %v", option, err)
	}
	files = expandStringSlice(files)
	if len(files) != 2 {
		return "", "", fmt.Errorf("ncmagics: --%s needs 2 files but has %d", option, len(files))
	}
	return maybeDownload(ctx, files[0], c), maybeDownload(ctx, files[1], c), nil
}

// single adapts a product making one image to product.
func single(path string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// perFile returns the body of the command of a product made from one
// file.
func perFile(f func(s *Settings, file string) ([]string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			file, err := input(ctx, "file", c)
			if err != nil {
				return nil, err
			}
			return f(s, file)
		})
	}
}

var apcpCmd = &cobra.Command{
	Use:   "apcp",
	Short: "Map 6-hour precipitation",
	Long: `apcp maps the precipitation accumulated over 6 hours in --file.
If --tfile is given, the -6 °C line at 850 hPa and the fraction of
the precipitation falling as snow are added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			file, err := input(ctx, "file", c)
			if err != nil {
				return nil, err
			}
			return single(APCP(s, file, optionalInput(ctx, "tfile", c)))
		})
	},
	DisableAutoGenTag: true,
}

var apcpCumulativeCmd = &cobra.Command{
	Use:   "apcp-cumulative",
	Short: "Map precipitation between two forecast times",
	Long: `apcp-cumulative maps the precipitation accumulated between the
two forecast files given by --files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			first, last, err := inputPair(ctx, "files", c)
			if err != nil {
				return nil, err
			}
			return single(APCPCumulative(s, first, last, optionalInput(ctx, "tfile", c)))
		})
	},
	DisableAutoGenTag: true,
}

var eptCmd = &cobra.Command{
	Use:   "ept",
	Short: "Map equivalent potential temperature at 850 hPa",
	Long: `ept maps the equivalent potential temperature, geopotential height
and wind at 850 hPa. The file name must contain a YYYY-MM-DD_HH time stamp.`,
	RunE: perFile(func(s *Settings, file string) ([]string, error) {
		return single(EPT(s, file))
	}),
	DisableAutoGenTag: true,
}

var gradPTCmd = &cobra.Command{
	Use:   "grad-pt",
	Short: "Map potential temperature gradients",
	Long: `grad-pt maps the horizontal gradient of potential temperature
at 850, 500 and 300 hPa.`,
	RunE:              perFile(GradPT),
	DisableAutoGenTag: true,
}

var gradTCmd = &cobra.Command{
	Use:   "grad-t",
	Short: "Map temperature gradients",
	Long: `grad-t maps the horizontal gradient of temperature at 850, 500
and 300 hPa.`,
	RunE:              perFile(GradT),
	DisableAutoGenTag: true,
}

var jetCmd = &cobra.Command{
	Use:   "jet",
	Short: "Map wind speed",
	Long: `jet maps the wind speed, geopotential height and wind at 850, 500
and 300 hPa.`,
	RunE:              perFile(Jet),
	DisableAutoGenTag: true,
}

var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Map sea level pressure",
	Long: `surface maps the sea level pressure, the relative humidity at 2 m
and the wind at 10 m. The file name must contain a YYYY-MM-DD_HH time stamp.`,
	RunE: perFile(func(s *Settings, file string) ([]string, error) {
		return single(Surface(s, file))
	}),
	DisableAutoGenTag: true,
}

var pvCmd = &cobra.Command{
	Use:   "pv",
	Short: "Map isentropic potential vorticity",
	Long: `pv maps the potential vorticity and wind on the isentropic
surface given by --isentrope.`,
	RunE: perFile(func(s *Settings, file string) ([]string, error) {
		return single(PV(s, file, Cfg.GetInt("isentrope")))
	}),
	DisableAutoGenTag: true,
}

var pvDiffCmd = &cobra.Command{
	Use:   "pv-diff",
	Short: "Map the change of isentropic potential vorticity",
	Long: `pv-diff maps the change of the potential vorticity on the isentropic
surface given by --isentrope between the two files given by --files,
over the northern hemisphere.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			first, second, err := inputPair(ctx, "files", c)
			if err != nil {
				return nil, err
			}
			return single(PVDiff(s, first, second, Cfg.GetInt("isentrope")))
		})
	},
	DisableAutoGenTag: true,
}

var shearCmd = &cobra.Command{
	Use:   "shear",
	Short: "Map vertical wind shear",
	Long:  `shear maps the difference between the winds at 250 and 850 hPa.`,
	RunE: perFile(func(s *Settings, file string) ([]string, error) {
		return single(Shear(s, file))
	}),
	DisableAutoGenTag: true,
}

var upperAirCmd = &cobra.Command{
	Use:   "upper-air",
	Short: "Map upper air temperature",
	Long: `upper-air maps the temperature, geopotential height and wind at
850, 500 and 300 hPa, with the humid area and the -6 and -9 °C lines at
850 hPa and the -36 °C line at 500 hPa.`,
	RunE:              perFile(UpperAir),
	DisableAutoGenTag: true,
}

var humidityCmd = &cobra.Command{
	Use:   "humidity",
	Short: "Map upper air humidity",
	Long: `humidity maps the relative humidity, geopotential height and wind
at 850, 500 and 300 hPa.`,
	RunE:              perFile(Humidity),
	DisableAutoGenTag: true,
}

var eadyCmd = &cobra.Command{
	Use:   "eady",
	Short: "Map the Eady growth rate",
	Long: `eady maps the maximum Eady growth rate between 700 and 850 hPa
from the files given by --gh, --u and --temperature, each optionally
averaged with the file of an earlier period given by --prev-gh, --prev-u
and --prev-temperature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			var f EadyFiles
			var err error
			for _, in := range []struct {
				option string
				path   *string
			}{{"gh", &f.GH}, {"u", &f.U}, {"temperature", &f.T}} {
				if *in.path, err = input(ctx, in.option, c); err != nil {
					return nil, err
				}
			}
			f.PrevGH = optionalInput(ctx, "prev-gh", c)
			f.PrevU = optionalInput(ctx, "prev-u", c)
			f.PrevT = optionalInput(ctx, "prev-temperature", c)
			return single(Eady(s, f))
		})
	},
	DisableAutoGenTag: true,
}

var averageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average neighbouring files of a time series",
	Long: `average writes, for each pair of neighbouring files in --dir, a file
whose time stamp is half way between them and whose variables --vars are
the means over the pair.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			dir := os.ExpandEnv(Cfg.GetString("dir"))
			if dir == "" {
				return nil, fmt.Errorf("ncmagics: --dir is required")
			}
			vars, err := cast.ToStringSliceE(Cfg.Get("vars"))
			if err != nil {
				return nil, fmt.Errorf("ncmagics: reading --vars: %v", err)
			}
			return Average(s, dir, Cfg.GetString("filter"), Cfg.GetString("exclude"), vars)
		})
	},
	DisableAutoGenTag: true,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a variable",
	Long: `stats prints the number of values, minimum, maximum, mean and
standard deviation of --var at --level within the map bounds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			file, err := input(ctx, "file", c)
			if err != nil {
				return nil, err
			}
			sum, err := Stats(s, file, Cfg.GetString("var"), Cfg.GetInt("level"))
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			return nil, nil
		})
	},
	DisableAutoGenTag: true,
}

var exprCmd = &cobra.Command{
	Use:   "expr",
	Short: "Map an expression of variables",
	Long: `expr maps the value of --expression, a formula of the variables of
--file such as "sqrt(u**2 + v**2)" or "t - 273.15", at --level. The
functions exp, log, sqrt, abs and pow are available. Comparisons give
1 where they are true.`,
	RunE: perFile(func(s *Settings, file string) ([]string, error) {
		return single(Expr(s, file, Cfg.GetString("expression"), Cfg.GetInt("level"), Cfg.GetString("label")))
	}),
	DisableAutoGenTag: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a variable to a spreadsheet",
	Long: `export writes --var at --level within the map bounds to --output,
an Excel (.xlsx) or CSV (.csv) file with one row per grid cell.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return product(cmd, func(ctx context.Context, s *Settings, c chan string) ([]string, error) {
			file, err := input(ctx, "file", c)
			if err != nil {
				return nil, err
			}
			out := os.ExpandEnv(Cfg.GetString("output"))
			if err := Export(s, file, Cfg.GetString("var"), Cfg.GetInt("level"), out); err != nil {
				return nil, err
			}
			return []string{out}, nil
		})
	},
	DisableAutoGenTag: true,
}
