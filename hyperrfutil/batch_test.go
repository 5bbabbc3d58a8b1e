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
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch(t *testing.T, th hyperrf.Thresholder, workers int) *Batch {
	c, err := hyperrf.NewCalculator()
	require.NoError(t, err)
	log := logrus.New()
	log.Level = logrus.ErrorLevel
	return &Batch{
		Calculator:   c,
		Thresholder:  th,
		LabelPattern: loader.DefaultLabelPattern,
		Workers:      workers,
		Log:          log,
	}
}

func TestBatchRun(t *testing.T) {
	dir, files := writeTrajectories(t)
	missing := filepath.Join(dir, "traj_ory_GONE_2022.csv")
	outside := filepath.Join(dir, "traj_ory_POLE_2022.csv")
	require.NoError(t, os.WriteFile(outside, []byte("ST,poslat,poslon,ALTFT,pressure,H2O,H2,NO\n1,95,0,100000,1000,1,1,1\n"), 0644))
	inputs := []string{files[1], missing, files[0], outside}

	for _, workers := range []int{0, 1, 3} {
		b := testBatch(t, hyperrf.FixedLevel(200), workers)
		results, err := b.Run(context.Background(), inputs)
		require.NoError(t, err)
		require.Len(t, results, len(inputs))
		for i, r := range results {
			assert.Equal(t, inputs[i], r.Path)
		}
		require.NoError(t, results[0].Err)
		assert.Equal(t, "HYP_M5", results[0].Result.ID)
		assert.Error(t, results[1].Err)
		assert.Nil(t, results[1].Result)
		require.NoError(t, results[2].Err)
		assert.Equal(t, "A320", results[2].Result.ID)
		assert.Equal(t, hyperrf.MaskStats{Input: 3, Masked: 1}, results[2].Mask)
		assert.Equal(t, 2, results[2].Result.Samples)
		var oe *hyperrf.OutOfDomainError
		assert.ErrorAs(t, results[3].Err, &oe)
	}
}

func TestBatchZeroMasked(t *testing.T) {
	_, files := writeTrajectories(t)
	b := testBatch(t, hyperrf.FixedLevel(200), 1)
	removed, err := b.Run(context.Background(), files[:1])
	require.NoError(t, err)
	b.ZeroMasked = true
	zeroed, err := b.Run(context.Background(), files[:1])
	require.NoError(t, err)

	assert.Equal(t, 3, zeroed[0].Result.Samples)
	assert.Equal(t, removed[0].Mask, zeroed[0].Mask)
	assert.InDelta(t, removed[0].Result.TotalRF, zeroed[0].Result.TotalRF, 1e-12)
	assert.Equal(t, removed[0].Result.Emissions, zeroed[0].Result.Emissions)
}

func TestBatchNoMask(t *testing.T) {
	_, files := writeTrajectories(t)
	b := testBatch(t, nil, 2)
	results, err := b.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, hyperrf.MaskStats{Input: 3}, results[0].Mask)
	assert.Equal(t, 3, results[0].Result.Samples)
	assert.Equal(t, 0.04, results[0].Result.Emissions[hyperrf.H2O])
}

func TestBatchResourceError(t *testing.T) {
	_, files := writeTrajectories(t)
	b := testBatch(t, nil, 2)
	_, err := b.Run(context.Background(), append(files, "file://hyperrf_absent_bucket/traj.csv"))
	var re *hyperrf.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "file://hyperrf_absent_bucket", re.Path)
}

func TestBatchCancel(t *testing.T) {
	_, files := writeTrajectories(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := testBatch(t, nil, 1)
	_, err := b.Run(ctx, files)
	assert.Equal(t, context.Canceled, err)
}
