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
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/go-cloud/blob"
)

// uploader collects output files that are written locally and copied to
// blob storage afterwards. It is safe for concurrent use.
type uploader struct {
	mu sync.Mutex

	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	dir   string
}

// uploadOutput copies the collected files to blob storage.
func (u *uploader) uploadOutput(ctx context.Context) error {
	u.mu.Lock()
	files := u.files
	u.files = nil
	u.mu.Unlock()
	for _, f := range files {
		if err := upload(ctx, f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}

func upload(ctx context.Context, src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ncmagicsutil: opening file '%s' for upload: %s", src, err)
	}
	defer r.Close()
	u, err := url.Parse(dst)
	if err != nil {
		return fmt.Errorf("ncmagicsutil: parsing url '%s' for upload: %s", dst, err)
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return fmt.Errorf("ncmagicsutil: opening bucket to upload file '%s': %s", dst, err)
	}
	w, err := bucket.NewWriter(ctx, strings.TrimPrefix(u.Path, "/"), &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("ncmagicsutil: opening writer to upload file '%s': %s", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("ncmagicsutil: uploading file '%s' to '%s': %s", src, dst, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ncmagicsutil: uploading file '%s' to '%s': %s", src, dst, err)
	}
	return nil
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// uploadOutput method is run.
func (u *uploader) maybeUpload(path string) (string, error) {
	if !IsBlob(path) {
		return path, nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dir == "" {
		dir, err := ioutil.TempDir("", "ncmagics")
		if err != nil {
			return "", fmt.Errorf("ncmagicsutil: creating upload directory: %v", err)
		}
		u.dir = dir
	}
	local := filepath.Join(u.dir, filepath.Base(path))
	u.files = append(u.files, [2]string{local, path})
	return local, nil
}
