/*
Copyright © 2024 the hyperrf authors.
This file is part of hyperrf.

hyperrf is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hyperrf is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hyperrf.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hyperrfutil holds the command-line interface of hyperrf and
// the batch processing of emission files.
package hyperrfutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/loader"
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
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages:
              debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFiles",
			usage: `
              InputFiles specifies the trajectory (.csv, .shp) and
              emission inventory (.nc, .ncf) files to process. Entries may
              be glob patterns, contain environment variables, or be URLs
              or blob storage locations (gs://, s3://, file://).`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TropopauseFile",
			usage: `
              TropopauseFile specifies the NetCDF file holding the
              tropopause pressure climatology used for masking. It may be
              a URL or blob storage location.`,
			defaultVal: "${HYPERRF_DATA}/tropopause.ncf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TropopauseVariable",
			usage: `
              TropopauseVariable is the name of the tropopause pressure
              variable [Pa] in TropopauseFile.`,
			defaultVal: "tp_WMO",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TropopauseTimeDim",
			usage: `
              TropopauseTimeDim is the time dimension of
              TropopauseVariable that is averaged over.`,
			defaultVal: "timem",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MaskLevel",
			usage: `
              MaskLevel specifies a constant masking level [hPa]. Samples
              at higher pressure are removed before the forcing is
              calculated. If MaskLevel is 0, the tropopause is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NoMask",
			usage: `
              NoMask specifies that all samples are used, no matter where
              they are located relative to the tropopause.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ZeroMasked",
			usage: `
              ZeroMasked specifies that masked samples are kept with zero
              emissions instead of being removed.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "IncludeH2ToH2O",
			usage: `
              IncludeH2ToH2O specifies whether the water vapour forcing
              caused by hydrogen emissions is included in the total
              forcing. It is always reported separately.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the report file. The
              format is chosen by extension: .xlsx, .csv, .yaml, or plain
              text otherwise. "-" prints the report to standard output.
              Blob storage locations are uploaded after the run.`,
			shorthand:  "o",
			defaultVal: "hyperrf.xlsx",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "IncludeEmissions",
			usage: `
              IncludeEmissions adds the emitted mass of each species [t]
              to the report.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies additional report columns as a
              map of column names to expressions of the result variables
              TotalRF, TotalH2ORF, TotalO3RF, H2ORFFromH2, Samples, H2O,
              H2, NO, H2OFromH2O, O3FromH2O, O3FromH2, O3FromNO and
              H2OFromH2. Command-line and environment values are given
              in JSON format.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the log file. If it is empty,
              the report path with the extension .log is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers specifies the number of files that are processed
              at the same time.`,
			shorthand:  "w",
			defaultVal: runtime.GOMAXPROCS(-1),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LabelPattern",
			usage: `
              LabelPattern is a regular expression whose first capture
              group, matched against the base name of an input file,
              becomes the file's identifier in the report. Files that
              don't match are identified by their base name without
              extension.`,
			defaultVal: loader.DefaultLabelPattern.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "format",
			usage: `
              format specifies the output format: text or yaml.`,
			shorthand:  "f",
			defaultVal: "text",
			flagsets:   []*pflag.FlagSet{tablesCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HYPERRF")
	Cfg.AutomaticEnv()

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
	Root.AddCommand(runCmd)
	Root.AddCommand(tablesCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("hyperrf: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("hyperrf: invalid LogLevel: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "hyperrf",
	Short: "Radiative forcing of high-altitude emissions.",
	Long: `hyperrf estimates the stratospheric radiative forcing caused by water
vapour, hydrogen and nitrogen oxide emissions from hypersonic aircraft and
rockets, using latitude- and altitude-dependent forcing sensitivities.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HYPERRF_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of hyperrf.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hyperrf v%s\n", hyperrf.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Calculate radiative forcing.",
	Long: `run calculates the radiative forcing of the emissions in each of
InputFiles and writes one report row per file to OutputFile. Files that
cannot be processed are skipped and listed in the log; the command then
exits with an error after the report has been written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := NewConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd, cfg)
	},
	DisableAutoGenTag: true,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the sensitivity tables.",
	Long: `tables prints the radiative forcing sensitivities [mW m-2 Tg-1] of
each species and effect at the latitude nodes and reference altitudes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return PrintTables(cmd.OutOrStdout(), Cfg.GetString("format"))
	},
	DisableAutoGenTag: true,
}
