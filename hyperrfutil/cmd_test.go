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
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/loader"
	"github.com/spatialmodel/hyperrf/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	testTrajectoryA = `ST,poslat,poslon,ALTFT,pressure,H2O,H2,NO
10,10.5,20,100000,1100,2000,0,30
10,-45,170.25,80000,2800,1000,400,10
10,50,200,50000,30000,1000,0,0
`
	testTrajectoryB = `ST,poslat,poslon,ALTFT,pressure,H2O,H2,NO
20,30,45,110000,700,500,1000,0
20,-20,100,95000,1300,0,200,50
`
)

// resetConfig sets every option back to its default value.
func resetConfig() {
	for _, o := range options {
		Cfg.Set(o.name, o.defaultVal)
	}
	Cfg.Set("LogLevel", "error")
}

func writeTrajectories(t *testing.T) (dir string, files []string) {
	dir = t.TempDir()
	for name, data := range map[string]string{
		"traj_ory_A320_2022.csv":   testTrajectoryA,
		"traj_ory_HYP_M5_2022.csv": testTrajectoryB,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	}
	return dir, []string{
		filepath.Join(dir, "traj_ory_A320_2022.csv"),
		filepath.Join(dir, "traj_ory_HYP_M5_2022.csv"),
	}
}

// readReport reads a CSV report into a map of ID to column values.
func readReport(t *testing.T, path string) (header []string, rows map[string][]string) {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	rows = make(map[string][]string)
	for _, r := range recs[1:] {
		rows[r[0]] = r
	}
	return recs[0], rows
}

func column(t *testing.T, header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("missing column %q in %v", name, header)
	return -1
}

// expectedRF calculates the forcing of a file without the command.
func expectedRF(t *testing.T, path string, th hyperrf.Thresholder) *hyperrf.RFResult {
	c, err := hyperrf.NewCalculator()
	require.NoError(t, err)
	s, err := loader.Load(path)
	require.NoError(t, err)
	s, _ = c.Mask(s, th)
	r, err := c.Compute(s)
	require.NoError(t, err)
	return r
}

func parseFloat(t *testing.T, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestVersion(t *testing.T) {
	resetConfig()
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, "hyperrf v"+hyperrf.Version+"\n", buf.String())
}

func TestRunFixedLevel(t *testing.T) {
	resetConfig()
	dir, files := writeTrajectories(t)
	out := filepath.Join(dir, "rf.csv")
	Cfg.Set("InputFiles", []string{filepath.Join(dir, "*.csv")})
	Cfg.Set("MaskLevel", 200.0)
	Cfg.Set("OutputFile", out)
	Cfg.Set("IncludeEmissions", true)
	Cfg.Set("Workers", 2)
	Root.SetArgs([]string{"run"})
	require.NoError(t, Root.Execute())

	header, rows := readReport(t, out)
	require.Len(t, rows, 2)
	rfCol := column(t, header, report.RFColumn)
	h2oCol := column(t, header, "H2O [t]")
	for id, path := range map[string]string{"A320": files[0], "HYP_M5": files[1]} {
		want := expectedRF(t, path, hyperrf.FixedLevel(200))
		row, ok := rows[id]
		require.True(t, ok, "missing row %s", id)
		assert.InDelta(t, want.TotalRF, parseFloat(t, row[rfCol]), 1e-12*(1+want.TotalRF))
		assert.InDelta(t, want.Emissions[hyperrf.H2O], parseFloat(t, row[h2oCol]), 1e-9)
	}
	// The third sample of A320 is below 200 hPa.
	assert.Equal(t, 0.03, parseFloat(t, rows["A320"][h2oCol]))

	_, err := os.Stat(filepath.Join(dir, "rf.log"))
	assert.NoError(t, err, "log file")
	snap, err := os.ReadFile(filepath.Join(dir, "rf_config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(snap), "MaskLevel = 200")
}

func TestRunOutputVariables(t *testing.T) {
	resetConfig()
	dir, _ := writeTrajectories(t)
	out := filepath.Join(dir, "rf.csv")
	Cfg.Set("InputFiles", []string{filepath.Join(dir, "traj_ory_A320_2022.csv")})
	Cfg.Set("NoMask", true)
	Cfg.Set("OutputFile", out)
	Cfg.Set("OutputVariables", `{"O3Share": "TotalO3RF / TotalRF", "N": "Samples"}`)
	Root.SetArgs([]string{"run"})
	require.NoError(t, Root.Execute())

	header, rows := readReport(t, out)
	row := rows["A320"]
	require.NotNil(t, row)
	total := parseFloat(t, row[column(t, header, report.RFColumn)])
	o3 := parseFloat(t, row[column(t, header, report.O3RFColumn)])
	assert.InDelta(t, o3/total, parseFloat(t, row[column(t, header, "O3Share")]), 1e-12)
	assert.Equal(t, "3", row[column(t, header, "N")])
}

func TestRunTropopause(t *testing.T) {
	resetConfig()
	dir, files := writeTrajectories(t)
	tp := writeTropopause(t, dir)
	out := filepath.Join(dir, "rf.csv")
	Cfg.Set("InputFiles", files)
	Cfg.Set("TropopauseFile", tp)
	Cfg.Set("OutputFile", out)
	Cfg.Set("OutputVariables", map[string]string{"N": "Samples"})
	Root.SetArgs([]string{"run"})
	require.NoError(t, Root.Execute())

	field, err := hyperrf.OpenTropopause(tp, "tp_WMO", "timem")
	require.NoError(t, err)
	header, rows := readReport(t, out)
	rfCol := column(t, header, report.RFColumn)
	for id, path := range map[string]string{"A320": files[0], "HYP_M5": files[1]} {
		want := expectedRF(t, path, field)
		assert.InDelta(t, want.TotalRF, parseFloat(t, rows[id][rfCol]), 1e-12*(1+want.TotalRF))
	}
	// The third sample of A320 is below the northern tropopause.
	assert.Equal(t, "2", rows["A320"][column(t, header, "N")])
}

func TestRunMissingTropopause(t *testing.T) {
	resetConfig()
	dir, files := writeTrajectories(t)
	Cfg.Set("InputFiles", files)
	Cfg.Set("TropopauseFile", filepath.Join(dir, "absent.ncf"))
	Cfg.Set("OutputFile", filepath.Join(dir, "rf.csv"))
	Root.SetArgs([]string{"run"})
	err := Root.Execute()
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "rf.csv"))
	assert.True(t, os.IsNotExist(statErr), "no report is written")
}

func TestRunFailedFile(t *testing.T) {
	resetConfig()
	dir, files := writeTrajectories(t)
	out := filepath.Join(dir, "rf.csv")
	missing := filepath.Join(dir, "traj_ory_GONE_2022.csv")
	Cfg.Set("InputFiles", []string{files[0], missing})
	Cfg.Set("MaskLevel", 200.0)
	Cfg.Set("OutputFile", out)
	Root.SetArgs([]string{"run"})
	err := Root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, err.Error(), missing)

	_, rows := readReport(t, out)
	assert.Len(t, rows, 1)
	assert.Contains(t, rows, "A320")
}

func TestTables(t *testing.T) {
	resetConfig()
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)

	Root.SetArgs([]string{"tables"})
	require.NoError(t, Root.Execute())
	text := buf.String()
	for _, tbl := range hyperrf.Tables() {
		assert.Contains(t, text, tbl.Pair.String())
	}
	assert.Contains(t, text, "Altitude [km]")

	buf.Reset()
	Cfg.Set("format", "yaml")
	require.NoError(t, Root.Execute())
	var docs []tableDoc
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &docs))
	tables := hyperrf.Tables()
	require.Len(t, docs, len(tables))
	for i, d := range docs {
		assert.Equal(t, tables[i].Species.String(), d.Species)
		assert.Equal(t, hyperrf.LatitudeNodes[:], d.Latitude)
		assert.Equal(t, tables[i].At30[:], d.At30)
		assert.Equal(t, tables[i].At38[:], d.At38)
	}

	Cfg.Set("format", "json")
	assert.Error(t, Root.Execute())
}

// writeTropopause writes a tropopause climatology of 10000 Pa in the
// southern hemisphere and 25000 Pa in the northern hemisphere.
func writeTropopause(t *testing.T, dir string) string {
	path := filepath.Join(dir, "tropopause.ncf")
	lat := []float64{-80, -40, 0, 40, 80}
	lon := []float64{0, 90, 180, 270}
	nlat, nlon := len(lat), len(lon)

	h := cdf.NewHeader([]string{"timem", "lat", "lon"}, []int{2, nlat, nlon})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("tp_WMO", []string{"timem", "lat", "lon"}, []float32{0})
	h.AddAttribute("tp_WMO", "units", "Pa")
	h.Define()

	ff, err := os.Create(path)
	require.NoError(t, err)
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	require.NoError(t, err)
	_, err = f.Writer("lat", []int{0}, []int{nlat}).Write(lat)
	require.NoError(t, err)
	_, err = f.Writer("lon", []int{0}, []int{nlon}).Write(lon)
	require.NoError(t, err)
	data := make([]float32, 0, 2*nlat*nlon)
	for k := 0; k < 2; k++ {
		for i := 0; i < nlat; i++ {
			for j := 0; j < nlon; j++ {
				v := float32(10000)
				if lat[i] > 0 {
					v = 25000
				}
				data = append(data, v)
			}
		}
	}
	_, err = f.Writer("tp_WMO", []int{0, 0, 0}, []int{2, 0, 0}).Write(data)
	require.NoError(t, err)
	return path
}

func TestLogLevel(t *testing.T) {
	resetConfig()
	Cfg.Set("LogLevel", "loud")
	Root.SetArgs([]string{"version"})
	err := Root.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "LogLevel"))
}
