/*
Copyright © 2021 the NcMagics authors.
This file is part of NcMagics.

NcMagics is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

NcMagics is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with NcMagics.  If not, see <http://www.gnu.org/licenses/>.
*/

package ncmagicsutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
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
	"github.com/mholt/archiver/v3"
)

// compressedExts are the extensions of inputs that are decompressed
// before they are opened.
var compressedExts = []string{".gz", ".bz2", ".xz", ".lz4", ".sz", ".zst"}

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob storage location.
// If it is, it downloads the file and
// returns the path to the downloaded file.
// For shapefiles, it downloads all associated files and
// returns the path to the file with the ".shp" extension.
// Compressed files are decompressed and the path to the
// decompressed file is returned.
// c, if not nil, is a channel across which error and
// logging messages will be sent.
func maybeDownload(ctx context.Context, path string, c chan string) string {
	local := path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		switch {
		case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
			local = downloadHTTP(path, c)
		case IsBlob(path):
			local = downloadBlob(ctx, path, c)
		default:
			return path
		}
	}
	if !isCompressed(local) {
		return local
	}
	out, err := decompress(local)
	if err != nil {
		send(c, err.Error())
		return local
	}
	send(c, fmt.Sprintf("decompressed %s to %s\n", local, out))
	return out
}

func send(c chan string, msg string) {
	if c != nil {
		c <- msg
	}
}

func isCompressed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range compressedExts {
		if ext == e {
			return true
		}
	}
	return false
}

// decompress decompresses the file at path into a temporary directory
// and returns the path of the decompressed file, which is named after
// path without its compression extension.
func decompress(path string) (string, error) {
	dir, err := ioutil.TempDir("", "ncmagics")
	if err != nil {
		return "", fmt.Errorf("ncmagics: creating temporary directory: %v", err)
	}
	base := filepath.Base(path)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	if err := archiver.DecompressFile(path, out); err != nil {
		return "", fmt.Errorf("ncmagics: decompressing %s: %v", path, err)
	}
	return out, nil
}

// downloadHTTP downloads a file from the specified URL and returns
// the path to the downloaded file. Failed requests are retried with
// exponential backoff.
func downloadHTTP(path string, c chan string) string {
	dir, err := ioutil.TempDir("", "ncmagics")
	if err != nil {
		send(c, fmt.Sprintf("ncmagics: failed creating temporary download directory: %v\n", err))
		return path
	}

	fnames := expandShp(path)
	for _, fname := range fnames {
		dst := filepath.Join(dir, filepath.Base(fname))
		err := backoff.RetryNotify(
			func() error { return getHTTP(fname, dst) },
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3),
			func(err error, d time.Duration) {
				send(c, fmt.Sprintf("%v: retrying in %v\n", err, d))
			},
		)
		if err != nil && optional(fname) {
			continue
		} else if err != nil {
			send(c, err.Error())
			return path
		}
		send(c, fmt.Sprintf("downloaded %s\n", fname))
	}
	return filepath.Join(dir, filepath.Base(fnames[0]))
}

// getHTTP copies the body of a GET request for u to the file dst.
func getHTTP(u, dst string) error {
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ncmagics: downloading %s: %s", u, resp.Status)
	}
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("ncmagics: failed creating file for download: %v", err)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("ncmagicsutil.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Hostname())
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("ncmagicsutil.OpenBucket: invalid provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
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
		region = "ap-northeast-1"
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

// downloadBlob downloads the specified file from blob storage.
func downloadBlob(ctx context.Context, path string, c chan string) string {
	u, err := url.Parse(path)
	if err != nil {
		send(c, err.Error())
		return path
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		send(c, err.Error())
		return path
	}
	dir, err := ioutil.TempDir("", "ncmagics")
	if err != nil {
		send(c, fmt.Sprintf("ncmagics: failed creating temporary download directory: %v\n", err))
		return path
	}
	key := strings.TrimPrefix(u.Path, "/")
	fnames := expandShp(key)
	for _, fname := range fnames {
		err := copyBlob(ctx, bucket, fname, filepath.Join(dir, filepath.Base(fname)))
		if err != nil && !optional(fname) {
			send(c, err.Error())
			return path
		}
	}
	return filepath.Join(dir, filepath.Base(fnames[0]))
}

func copyBlob(ctx context.Context, bucket *blob.Bucket, key, dst string) error {
	r, err := bucket.NewReader(ctx, key)
	if err != nil {
		return fmt.Errorf("ncmagics: reading %s: %v", key, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("ncmagics: failed creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// optional reports whether a missing file may be skipped. Shapefiles
// without a projection file are read as longitude and latitude.
func optional(fname string) bool { return filepath.Ext(fname) == ".prj" }

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise
func expandShp(filename string) []string {
	o := []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}
