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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileServer(t *testing.T, files map[string]string) *httptest.Server {
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
	}
	return httptest.NewServer(http.FileServer(http.Dir(dir)))
}

func TestMaybeDownloadLocal(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{"/dev/null", "/blah/test/", "relative.csv"} {
		k, err := maybeDownload(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, path, k)
	}
}

func TestMaybeDownloadRemote(t *testing.T) {
	ctx := context.Background()
	srv := fileServer(t, map[string]string{
		"traj.csv":  testTrajectoryB,
		"route.shp": "shp",
		"route.dbf": "dbf",
		"route.shx": "shx",
		"lone.shp":  "shp",
	})
	defer srv.Close()

	t.Run("csv", func(t *testing.T) {
		k, err := maybeDownload(ctx, srv.URL+"/traj.csv")
		require.NoError(t, err)
		assert.Equal(t, "traj.csv", filepath.Base(k))
		b, err := os.ReadFile(k)
		require.NoError(t, err)
		assert.Equal(t, testTrajectoryB, string(b))
	})
	t.Run("shapefile", func(t *testing.T) {
		k, err := maybeDownload(ctx, srv.URL+"/route.shp")
		require.NoError(t, err)
		assert.Equal(t, "route.shp", filepath.Base(k))
		for _, ext := range []string{".dbf", ".shx"} {
			_, err := os.Stat(filepath.Join(filepath.Dir(k), "route"+ext))
			assert.NoError(t, err, ext)
		}
		_, err = os.Stat(filepath.Join(filepath.Dir(k), "route.prj"))
		assert.True(t, os.IsNotExist(err), "missing .prj is skipped")
	})
	t.Run("incomplete shapefile", func(t *testing.T) {
		_, err := maybeDownload(ctx, srv.URL+"/lone.shp")
		assert.Error(t, err)
	})
	t.Run("not found", func(t *testing.T) {
		_, err := maybeDownload(ctx, srv.URL+"/absent.csv")
		require.Error(t, err)
		se, ok := err.(*statusError)
		require.True(t, ok, "%T", err)
		assert.Equal(t, http.StatusNotFound, se.status)
	})
}

func TestMaybeDownloadRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(testTrajectoryA))
	}))
	defer srv.Close()

	k, err := maybeDownload(context.Background(), srv.URL+"/traj.csv")
	require.NoError(t, err)
	b, err := os.ReadFile(k)
	require.NoError(t, err)
	assert.Equal(t, testTrajectoryA, string(b))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, os.Mkdir("testbucket", os.ModePerm))
	defer os.RemoveAll("testbucket")

	var u uploader
	local := u.maybeUpload("file://testbucket/traj.csv")
	require.NoError(t, u.err)
	assert.NotEqual(t, "file://testbucket/traj.csv", local)
	assert.Equal(t, "traj.csv", filepath.Base(local))
	assert.Equal(t, "rf.csv", u.maybeUpload("rf.csv"), "local paths are kept")
	require.NoError(t, os.WriteFile(local, []byte(testTrajectoryA), 0644))
	require.NoError(t, u.uploadOutput(ctx))

	k, err := maybeDownload(ctx, "file://testbucket/traj.csv")
	require.NoError(t, err)
	b, err := os.ReadFile(k)
	require.NoError(t, err)
	assert.Equal(t, testTrajectoryA, string(b))

	_, err = maybeDownload(ctx, "file://testbucket/absent.csv")
	assert.Error(t, err)
}

func TestOpenBucketInvalid(t *testing.T) {
	_, err := OpenBucket(context.Background(), "ftp://bucket")
	assert.Error(t, err)
}

func TestExpandShp(t *testing.T) {
	r, o := expandShp("a/route.shp")
	assert.Equal(t, []string{"a/route.shp", "a/route.dbf", "a/route.shx"}, r)
	assert.Equal(t, []string{"a/route.prj"}, o)

	r, o = expandShp("traj.csv")
	assert.Equal(t, []string{"traj.csv"}, r)
	assert.Nil(t, o)
}

func TestExpandInputFiles(t *testing.T) {
	dir, files := writeTrajectories(t)
	os.Setenv("HYPERRF_TEST_DIR", dir)
	defer os.Unsetenv("HYPERRF_TEST_DIR")

	got, err := expandInputFiles([]string{
		"${HYPERRF_TEST_DIR}/*.csv",
		files[1],
		"gs://bucket/traj_*.csv",
		"https://example.com/traj.csv",
		filepath.Join(dir, "none_*.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		files[0],
		files[1],
		"gs://bucket/traj_*.csv",
		"https://example.com/traj.csv",
		filepath.Join(dir, "none_*.csv"),
	}, got)

	_, err = expandInputFiles([]string{"[-"})
	assert.Error(t, err)
}
