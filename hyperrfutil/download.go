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
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
)

// maxDownloadRetries is the number of times a failed HTTP download
// is retried.
const maxDownloadRetries = 4

// maybeDownload checks if path is an existing local file. If not and
// path is a URL or blob storage location, it downloads the file to a
// temporary directory and returns the path to the downloaded file.
// For shapefiles, the associated .dbf, .shx and (if present) .prj
// files are downloaded as well.
func maybeDownload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return downloadHTTP(ctx, path)
	}
	if IsBlob(path) {
		return downloadBlob(ctx, path)
	}
	return path, nil
}

// statusError is returned for unsuccessful HTTP responses.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("hyperrf: downloading %s: %s", e.url, http.StatusText(e.status))
}

// downloadHTTP downloads a file from the specified URL and returns
// the path to the downloaded file.
func downloadHTTP(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "hyperrf")
	if err != nil {
		return path, fmt.Errorf("hyperrf: failed creating temporary download directory: %v", err)
	}
	required, optional := expandShp(path)
	for i, fname := range append(required, optional...) {
		local := filepath.Join(dir, filepath.Base(fname))
		err := httpGet(ctx, fname, local)
		if se, ok := err.(*statusError); ok && se.status == http.StatusNotFound && i >= len(required) {
			continue
		}
		if err != nil {
			return path, err
		}
	}
	return filepath.Join(dir, filepath.Base(required[0])), nil
}

// httpGet downloads url to the file local, retrying failed attempts.
// Responses that indicate a client error are not retried.
func httpGet(ctx context.Context, url, local string) error {
	var final error
	op := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			final = err
			return nil
		}
		resp, err := http.DefaultClient.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err := &statusError{url: url, status: resp.StatusCode}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				final = err
				return nil
			}
			return err
		}
		w, err := os.Create(local)
		if err != nil {
			final = fmt.Errorf("hyperrf: failed creating file for download: %v", err)
			return nil
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		logrus.Warnf("%v: retrying in %v", err, d)
	})
	if err != nil {
		return errors.Wrapf(err, "hyperrf: downloading %s", url)
	}
	return final
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// Even if name contains subdirectories, only the base directory name will be
// used when opening the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	url, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("hyperrfutil.OpenBucket: %v", err)
	}
	switch url.Scheme {
	case "file":
		return fileblob.NewBucket(url.Hostname())
	case "gs":
		return gsBucket(ctx, url.Hostname())
	case "s3":
		return s3Bucket(ctx, url.Hostname())
	default:
		return nil, fmt.Errorf("hyperrfutil.OpenBucket: invalid provider %s", url.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// downloadBlob downloads the specified file from blob storage. Failure
// to open the bucket is returned as a *hyperrf.ResourceError.
func downloadBlob(ctx context.Context, path string) (string, error) {
	url, err := url.Parse(path)
	if err != nil {
		return path, err
	}
	bucket, err := OpenBucket(ctx, url.Scheme+"://"+url.Host)
	if err != nil {
		// Every file in the bucket is affected.
		return path, &hyperrf.ResourceError{Path: url.Scheme + "://" + url.Host, Err: err}
	}
	dir, err := os.MkdirTemp("", "hyperrf")
	if err != nil {
		return path, fmt.Errorf("hyperrf: failed creating temporary download directory: %v", err)
	}
	required, optional := expandShp(strings.TrimPrefix(url.Path, "/"))
	for i, key := range append(required, optional...) {
		r, err := bucket.NewReader(ctx, key)
		if err != nil {
			if i >= len(required) {
				continue
			}
			return path, errors.Wrapf(err, "hyperrf: opening %s", path)
		}
		w, err := os.Create(filepath.Join(dir, filepath.Base(key)))
		if err != nil {
			r.Close()
			return path, fmt.Errorf("hyperrf: failed creating file for download: %v", err)
		}
		_, err = io.Copy(w, r)
		r.Close()
		if err != nil {
			w.Close()
			return path, errors.Wrapf(err, "hyperrf: downloading %s", key)
		}
		if err := w.Close(); err != nil {
			return path, err
		}
	}
	return filepath.Join(dir, filepath.Base(required[0])), nil
}

// expandShp returns the given file + associated [.dbf, .shx] files if
// the given file has the .shp extension, and returns the given file
// otherwise. The .prj file of a shapefile is returned as optional.
func expandShp(filename string) (required, optional []string) {
	required = []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return required, nil
	}
	base := filename[0 : len(filename)-4]
	return append(required, base+".dbf", base+".shx"), []string{base + ".prj"}
}

// expandInputFiles expands environment variables and glob patterns in
// local file names. URLs and blob storage locations are kept as they
// are. Patterns that match no files are kept so that they are reported
// as missing. Duplicates are removed and the order is preserved.
func expandInputFiles(files []string) ([]string, error) {
	var o []string
	seen := make(map[string]bool)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			o = append(o, f)
		}
	}
	for _, f := range files {
		f = os.ExpandEnv(f)
		if IsBlob(f) || strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			add(f)
			continue
		}
		matches, err := filepath.Glob(f)
		if err != nil {
			return nil, fmt.Errorf("hyperrf: invalid input file pattern %q: %v", f, err)
		}
		if len(matches) == 0 {
			add(f)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return o, nil
}
