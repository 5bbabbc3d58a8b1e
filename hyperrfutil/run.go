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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/report"
	"github.com/spf13/cobra"
)

// Run calculates the radiative forcing of the files specified in cfg
// and writes the report. Log messages are written to the standard
// error of cmd and to cfg.LogFile. If any file fails, Run returns an
// error after the report of the remaining files has been written.
func Run(cmd *cobra.Command, cfg *Config) error {
	startTime := time.Now()
	ctx := context.Background()

	var upload uploader

	log := logrus.New()
	log.Formatter = logrus.StandardLogger().Formatter
	log.Level = logrus.GetLevel()
	log.Out = cmd.OutOrStderr()
	if cfg.LogFile != "" {
		logfile, err := os.Create(upload.maybeUpload(cfg.LogFile))
		if err != nil {
			return fmt.Errorf("hyperrf: problem creating log file: %v", err)
		}
		defer logfile.Close()
		log.Out = io.MultiWriter(cmd.OutOrStderr(), logfile)
	}

	outputFile := cfg.OutputFile
	if outputFile != "-" {
		outputFile = upload.maybeUpload(outputFile)
	}
	if upload.err != nil {
		return upload.err
	}

	c, err := hyperrf.NewCalculator()
	if err != nil {
		return err
	}
	c.IncludeH2ToH2O = cfg.IncludeH2ToH2O
	c.Log = log

	// Check the report columns before doing any work.
	reportOptions := report.Options{
		IncludeEmissions:   cfg.IncludeEmissions,
		IncludeH2ORFFromH2: cfg.IncludeH2ToH2O,
		OutputVariables:    cfg.OutputVariables,
		Log:                log,
	}
	if _, err := report.New(nil, reportOptions); err != nil {
		return err
	}

	threshold, err := cfg.thresholder(ctx)
	if err != nil {
		return err
	}
	pattern, err := cfg.labelPattern()
	if err != nil {
		return err
	}
	files, err := expandInputFiles(cfg.InputFiles)
	if err != nil {
		return err
	}
	log.WithField("files", humanize.Comma(int64(len(files)))).Info("hyperrf: starting run")

	b := &Batch{
		Calculator:   c,
		Thresholder:  threshold,
		ZeroMasked:   cfg.ZeroMasked,
		LabelPattern: pattern,
		Workers:      cfg.Workers,
		Log:          log,
	}
	fileResults, err := b.Run(ctx, files)
	if err != nil {
		return err
	}

	var (
		results []*hyperrf.RFResult
		failed  []string
	)
	for _, r := range fileResults {
		if r.Err != nil {
			log.WithField("file", r.Path).Errorf("hyperrf: skipping file: %v", r.Err)
			failed = append(failed, r.Path)
			continue
		}
		results = append(results, r.Result)
	}

	t, err := report.New(results, reportOptions)
	if err != nil {
		return err
	}
	if err := t.Save(outputFile); err != nil {
		return err
	}
	if outputFile != "-" {
		if err := writeConfig(upload.maybeUpload(configSnapshotPath(cfg.OutputFile)), cfg); err != nil {
			return err
		}
	}
	if err := upload.uploadOutput(ctx); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"files":   humanize.Comma(int64(len(files))),
		"failed":  humanize.Comma(int64(len(failed))),
		"report":  cfg.OutputFile,
		"elapsed": time.Since(startTime).Round(time.Millisecond).String(),
	}).Info("hyperrf: run complete")

	if len(failed) > 0 {
		return fmt.Errorf("hyperrf: %d of %d files failed: %s", len(failed), len(files), strings.Join(failed, ", "))
	}
	return nil
}

// configSnapshotPath returns the path that the configuration of a run
// with the given report path is written to.
func configSnapshotPath(outputFile string) string {
	return strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + "_config.toml"
}

func writeConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hyperrf: problem creating configuration snapshot: %v", err)
	}
	if err := cfg.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
