/*
Copyright © 2024 the Regrid authors.
This file is part of Regrid.

Regrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Regrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Regrid.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package regridutil provides the command-line interface and configuration
// handling for the regrid program.
package regridutil

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/regrid"
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
	// Options are the configuration options available to regrid.
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
			name: "in",
			usage: `
              in is the path to the NetCDF file holding the field to be
              interpolated.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "out",
			usage: `
              out is the path where the interpolated field will be written.
              The file is written atomically: output first goes to a temporary
              file which is renamed into place on success.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "var",
			usage: `
              var is the name of the NetCDF variable to interpolate.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "srcgrid",
			usage: `
              srcgrid describes the grid the input field is defined on, as
              "file,lonVar,latVar" or "file,lonVar,latVar,maskVar" where
              maskVar holds the number of valid layers in each column.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "dstgrid",
			usage: `
              dstgrid describes the grid the field will be interpolated to,
              in the same format as srcgrid.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "skipedges",
			usage: `
              skipedges excludes the first and last column of each row of a
              structured source grid from interpolation. Use it for grids
              whose east and west edge columns coincide.`,
			shorthand:  "s",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "fill",
			usage: `
              fill chooses the value written where no interpolated value is
              available: "zero" or "nan".`,
			defaultVal: "zero",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "propagate",
			usage: `
              propagate fills gaps in a layer with the value interpolated for
              the same point in the nearest shallower layer, falling back to
              the fill value where no layer above has one.`,
			shorthand:  "p",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "transfermask",
			usage: `
              transfermask interpolates the source grid's valid-layer-count
              mask to the destination grid and uses the result to limit which
              destination layers receive interpolated values. It requires a
              mask variable in srcgrid and none in dstgrid.`,
			shorthand:  "t",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "deflate",
			usage: `
              deflate sets the compression level (0-9) requested for the
              output variable.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "verbosity",
			usage: `
              verbosity sets the amount of progress information printed:
              0 = errors only, 1 = per-layer progress, 2 = debugging output.`,
			shorthand:  "V",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("REGRID")

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
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("regrid: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// getStringSlice returns a []string from a viper configuration, accounting
// for the fact that values read from a configuration file may come back as
// []interface{} rather than the []string a command-line flag produces.
func getStringSlice(varName string, cfg *viper.Viper) ([]string, error) {
	i := cfg.Get(varName)
	if i == nil {
		return nil, nil
	}
	return cast.ToStringSliceE(i)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "regrid",
	Short: "Interpolate layered fields between geographic grids.",
	Long: `Regrid interpolates a layered field stored in a NetCDF file from one
geographic grid to another using linear interpolation on stereographic
projections of the sphere.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'REGRID_var' where 'var' is
the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of regrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("regrid v%s\n", regrid.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interpolate a field.",
	Long: `run reads the field named by --var from the file given by --in,
interpolates it from the grid described by --srcgrid to the grid described
by --dstgrid, and writes the result to the file given by --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srcGrid, err := getStringSlice("srcgrid", Cfg)
		if err != nil {
			return err
		}
		dstGrid, err := getStringSlice("dstgrid", Cfg)
		if err != nil {
			return err
		}
		return Run(
			os.ExpandEnv(Cfg.GetString("in")),
			os.ExpandEnv(Cfg.GetString("out")),
			Cfg.GetString("var"),
			expandStringSlice(srcGrid),
			expandStringSlice(dstGrid),
			Cfg.GetBool("skipedges"),
			Cfg.GetString("fill"),
			Cfg.GetBool("propagate"),
			Cfg.GetBool("transfermask"),
			Cfg.GetInt("deflate"),
			Cfg.GetInt("verbosity"),
		)
	},
	DisableAutoGenTag: true,
}

// expandStringSlice expands any environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := range s {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}
