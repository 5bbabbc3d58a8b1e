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

package hyperrfutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/pkg/errors"
	"github.com/spatialmodel/hyperrf"
	"github.com/spf13/cast"
)

// Config holds the settings of a run.
type Config struct {
	InputFiles []string

	TropopauseFile     string
	TropopauseVariable string
	TropopauseTimeDim  string

	// MaskLevel is a constant masking level [hPa], or 0 to mask
	// with the tropopause.
	MaskLevel  float64
	NoMask     bool
	ZeroMasked bool

	IncludeH2ToH2O   bool
	IncludeEmissions bool
	OutputVariables  map[string]string

	OutputFile string
	LogFile    string

	Workers      int
	LabelPattern string
}

// NewConfig reads a Config from cfg, expanding environment variables
// and checking the values.
func NewConfig(cfg *viper.Viper) (*Config, error) {
	vars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return nil, err
	}
	expanded := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		expanded[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	inputFiles, err := cast.ToStringSliceE(cfg.Get("InputFiles"))
	if err != nil {
		return nil, fmt.Errorf("hyperrf: reading InputFiles: %v", err)
	}
	c := &Config{
		InputFiles:         expandStringSlice(inputFiles),
		TropopauseFile:     os.ExpandEnv(cfg.GetString("TropopauseFile")),
		TropopauseVariable: cfg.GetString("TropopauseVariable"),
		TropopauseTimeDim:  cfg.GetString("TropopauseTimeDim"),
		MaskLevel:          cfg.GetFloat64("MaskLevel"),
		NoMask:             cfg.GetBool("NoMask"),
		ZeroMasked:         cfg.GetBool("ZeroMasked"),
		IncludeH2ToH2O:     cfg.GetBool("IncludeH2ToH2O"),
		IncludeEmissions:   cfg.GetBool("IncludeEmissions"),
		OutputVariables:    expanded,
		Workers:            cfg.GetInt("Workers"),
		LabelPattern:       cfg.GetString("LabelPattern"),
	}
	if len(c.InputFiles) == 0 {
		return nil, fmt.Errorf("hyperrf: no InputFiles specified")
	}
	if c.MaskLevel < 0 {
		return nil, fmt.Errorf("hyperrf: MaskLevel must not be negative, but is %g", c.MaskLevel)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if _, err := c.labelPattern(); err != nil {
		return nil, err
	}
	c.OutputFile, err = checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return nil, err
	}
	c.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), c.OutputFile)
	return c, nil
}

// labelPattern compiles LabelPattern, which must have a capture group.
func (c *Config) labelPattern() (*regexp.Regexp, error) {
	if c.LabelPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.LabelPattern)
	if err != nil {
		return nil, fmt.Errorf("hyperrf: invalid LabelPattern: %v", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("hyperrf: LabelPattern %q has no capture group", c.LabelPattern)
	}
	return re, nil
}

// thresholder returns the masking method, or nil if samples are not
// masked. The tropopause field is only loaded if it is needed.
func (c *Config) thresholder(ctx context.Context) (hyperrf.Thresholder, error) {
	switch {
	case c.NoMask:
		return nil, nil
	case c.MaskLevel > 0:
		return hyperrf.FixedLevel(c.MaskLevel), nil
	}
	path, err := maybeDownload(ctx, c.TropopauseFile)
	if err != nil {
		return nil, &hyperrf.ResourceError{Path: c.TropopauseFile, Err: err}
	}
	f, err := hyperrf.OpenTropopause(path, c.TropopauseVariable, c.TropopauseTimeDim)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Write writes c in TOML format.
func (c *Config) Write(w io.Writer) error {
	return errors.Wrap(toml.NewEncoder(w).Encode(c), "hyperrf: writing configuration")
}

// GetStringMapString returns a map[string]string from the specified
// variable in cfg. The variable may be a map, or a string holding a
// map in JSON format.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		o := make(map[string]string, len(v))
		for k, val := range v {
			o[k] = val
		}
		return o, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]string{}, nil
		}
		o := make(map[string]string)
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, fmt.Errorf("hyperrf: parsing %s as JSON map: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("hyperrf: invalid type %T for %s", i, varName)
	}
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`hyperrf: you need to specify an output file configuration variable (for example: OutputFile="rf.xlsx")`)
	}
	if f == "-" {
		return f, nil
	}
	f = os.ExpandEnv(f)
	if IsBlob(f) {
		url, err := url.Parse(f)
		if err != nil {
			return f, err
		}
		_, err = OpenBucket(context.TODO(), url.Scheme+"://"+url.Host)
		if err != nil {
			return f, fmt.Errorf("hyperrf: error when checking OutputFile location: %v", err)
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("hyperrf: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified. No log file is written when the report goes to standard
// output and no log file is given.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" && outputFile != "-" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}
