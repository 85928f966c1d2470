/*
Copyright © 2026 the ctramplog authors.
This file is part of ctramplog.

ctramplog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctramplog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctramplog.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package ctramputil holds the command-line interface of ctramplog.
package ctramputil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/travelmodel/ctramplog"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	alts := ctramplog.DefaultAlternatives()

	// Options are the configuration options available to ctramplog.
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
			name: "OutputDir",
			usage: `
              OutputDir is the directory where the per-decision-maker output
              directories, mode choice tables and block summaries are written.
              It must exist. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LabelFile",
			usage: `
              LabelFile is the path to the expression row labels. It is either
              a TOML file with [destination.usual], [destination.nonmandatory],
              [modechoice.usual] and [modechoice.nonmandatory] tables, or a
              UEC workbook (.xlsx) with sheets of the same names joined by '_'.
              It can include environment variables.`,
			shorthand:  "l",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "TAZCount",
			usage: `
              TAZCount is the number of traffic analysis zones in the model.`,
			defaultVal: alts.TAZCount,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SubzoneCount",
			usage: `
              SubzoneCount is the number of walk access subzones per zone.`,
			defaultVal: alts.SubzoneCount,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ModeAlternatives",
			usage: `
              ModeAlternatives is the number of tour mode choice alternatives.`,
			defaultVal: alts.ModeAlternatives,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ExcludeRows",
			usage: `
              ExcludeRows optionally gives the first and last expression row
              (inclusive) to leave out of the output tables, typically the
              alternative specific constants. Leave empty to keep all rows.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Filter",
			usage: `
              Filter is an optional expression selecting the records to write,
              for example "abs(term) > 0.001 || row < 0". Available variables
              are row, alt, taz, subzone, coefficient, variable and term;
              available functions are abs, isNaN and isInf.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of messages to print: one of
              debug, info, warning and error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Compare.OutputFile",
			usage: `
              Compare.OutputFile is the path where the differences between the
              base and build tables are written. It can include environment
              variables.`,
			defaultVal: "utility_differences.csv",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Compare.Tolerance",
			usage: `
              Compare.Tolerance is the absolute or relative difference below
              which coefficients and variable values are considered equal.`,
			defaultVal: 1e-9,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CTRAMPLOG")
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
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
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
	Root.AddCommand(compareCmd)
	Root.AddCommand(labelsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ctramplog: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command. Given a run label and a log file it decodes
// the utility blocks in the log.
var Root = &cobra.Command{
	Use:   "ctramplog <base|build> <log file>",
	Short: "Decode CT-RAMP utility traces.",
	Long: `ctramplog reads the debug log of a CT-RAMP travel model run and writes
the 'coefficient * variable' terms of every traced destination choice and
tour mode choice logsum utility calculation as CSV tables.

The first argument, 'base' or 'build', starts the name of every table so
that the output of two model runs can be compared with the 'compare'
subcommand. Destination choice blocks are written to
destchoice_<variant>_hh<hh>_pers<person>/<base|build>_dc_utilities.csv
and mode choice blocks to modechoice_<variant>/<base|build>_mc_utilities.csv
under OutputDir, each next to a copy of the log.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CTRAMPLOG_var' where 'var'
is the name of the variable to be set.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("ctramplog: need 2 arguments, <base|build> and the log file, but got %d", len(args))
		}
		if args[0] != "base" && args[0] != "build" {
			return fmt.Errorf("ctramplog: the first argument must be 'base' or 'build' but is %q", args[0])
		}
		return nil
	},
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd, Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		labels, err := ctramplog.LoadLabels(os.ExpandEnv(Cfg.GetString("LabelFile")))
		if err != nil {
			return err
		}
		alts, err := alternativesConfig(Cfg)
		if err != nil {
			return err
		}
		exclude, err := rowRangeConfig(Cfg)
		if err != nil {
			return err
		}
		res, err := Parse(context.Background(), args[0], args[1], os.ExpandEnv(Cfg.GetString("OutputDir")),
			labels, alts, exclude, Cfg.GetString("Filter"), log)
		if err != nil {
			return err
		}
		cmd.Printf("decoded %d utility blocks from %d log lines\n", len(res.Summaries), res.Lines)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ctramplog.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ctramplog v%s\n", ctramplog.Version)
	},
	DisableAutoGenTag: true,
}

// compareCmd compares the tables of two runs.
var compareCmd = &cobra.Command{
	Use:   "compare <base table> <build table>",
	Short: "Compare base and build utility tables.",
	Long: `compare matches the terms of a base and a build utility table by decision
maker, expression row and alternative and writes the terms that differ to
Compare.OutputFile.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := Compare(args[0], args[1], os.ExpandEnv(Cfg.GetString("Compare.OutputFile")),
			Cfg.GetFloat64("Compare.Tolerance"))
		if err != nil {
			return err
		}
		cmd.Printf("%d terms differ\n", n)
		return nil
	},
	DisableAutoGenTag: true,
}

// labelsCmd checks the label file.
var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Check the row label file.",
	Long: `labels loads the file given by LabelFile and prints the size and row range
of each table in it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := ctramplog.LoadLabels(os.ExpandEnv(Cfg.GetString("LabelFile")))
		if err != nil {
			return err
		}
		for _, t := range labels.Tables() {
			rows := t.Rows()
			cmd.Printf("%v %v: %d rows (%d-%d)\n", t.Kind, t.Variant, t.Len(), rows[0], rows[len(rows)-1])
		}
		return nil
	},
	DisableAutoGenTag: true,
}
