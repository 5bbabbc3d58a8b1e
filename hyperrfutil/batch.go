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
	"errors"
	"regexp"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/loader"
)

// Batch calculates the radiative forcing of a set of emission files.
// The files are processed concurrently and share the Calculator and
// the Thresholder, which must therefore be safe for concurrent use.
type Batch struct {
	Calculator *hyperrf.Calculator

	// Thresholder is used to mask the samples. If it is nil, all
	// samples are used.
	Thresholder hyperrf.Thresholder

	// ZeroMasked specifies that masked samples are kept with zero
	// emissions instead of being removed.
	ZeroMasked bool

	// LabelPattern is passed to loader.Label to identify each file.
	LabelPattern *regexp.Regexp

	// Workers is the number of files processed at the same time.
	Workers int

	Log logrus.FieldLogger
}

// FileResult is the outcome of processing one file. Exactly one of
// Result and Err is set.
type FileResult struct {
	Path   string
	Result *hyperrf.RFResult
	Mask   hyperrf.MaskStats
	Err    error
}

// Run processes files and returns one FileResult per file, in the
// order of files. Errors concerning a single file are returned in its
// FileResult. A *hyperrf.ResourceError concerns every file, so it stops
// the run and is returned directly, as is cancellation of ctx.
func (b *Batch) Run(ctx context.Context, files []string) ([]FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	results := make([]FileResult, len(files))
	idx := make(chan int)
	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				r := b.process(ctx, files[i])
				results[i] = r
				var re *hyperrf.ResourceError
				if errors.As(r.Err, &re) {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = re
					}
					fatalMu.Unlock()
					cancel()
				}
			}
		}()
	}
feed:
	for i := range files {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// process loads, masks and evaluates a single file.
func (b *Batch) process(ctx context.Context, path string) FileResult {
	r := FileResult{Path: path}
	log := b.log().WithField("file", path)

	local, err := maybeDownload(ctx, path)
	if err != nil {
		r.Err = err
		return r
	}
	s, err := (&loader.Loader{Log: b.log()}).Load(local)
	if err != nil {
		r.Err = err
		return r
	}
	s.ID = loader.Label(path, b.LabelPattern)

	if b.Thresholder != nil {
		if b.ZeroMasked {
			s, r.Mask = b.Calculator.MaskValues(s, b.Thresholder)
		} else {
			s, r.Mask = b.Calculator.Mask(s, b.Thresholder)
		}
	} else {
		r.Mask = hyperrf.MaskStats{Input: s.Len()}
	}
	log.WithFields(logrus.Fields{
		"id":         s.ID,
		"samples":    humanize.Comma(int64(r.Mask.Input)),
		"masked":     humanize.Comma(int64(r.Mask.Masked)),
		"unresolved": humanize.Comma(int64(r.Mask.Unresolved)),
	}).Info("hyperrf: loaded emissions")

	if r.Result, err = b.Calculator.Compute(s); err != nil {
		r.Err = err
		return r
	}
	log.WithFields(logrus.Fields{
		"id":          s.ID,
		"RF [mW m-2]": humanize.Commaf(r.Result.TotalRF),
		"H2O [t]":     humanize.Commaf(r.Result.Emissions[hyperrf.H2O]),
		"H2 [t]":      humanize.Commaf(r.Result.Emissions[hyperrf.H2]),
		"NO [t]":      humanize.Commaf(r.Result.Emissions[hyperrf.NO]),
	}).Info("hyperrf: calculated radiative forcing")
	return r
}

func (b *Batch) log() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}
