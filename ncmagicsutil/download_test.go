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
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mholt/archiver/v3"
)

func TestMaybeDownload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	data := []byte("forecast data")
	src := filepath.Join(dir, "data.nc")
	if err := ioutil.WriteFile(src, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := archiver.CompressFile(src, src+".gz"); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	check := func(t *testing.T, path string) {
		t.Helper()
		b, err := ioutil.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b, data) {
			t.Errorf("%s holds %q; want %q", path, b, data)
		}
	}

	t.Run("local", func(t *testing.T) {
		if got := maybeDownload(ctx, src, nil); got != src {
			t.Errorf("path = %s; want %s", got, src)
		}
	})
	t.Run("missing", func(t *testing.T) {
		path := filepath.Join(dir, "missing.nc")
		if got := maybeDownload(ctx, path, nil); got != path {
			t.Errorf("path = %s; want %s", got, path)
		}
	})
	t.Run("local compressed", func(t *testing.T) {
		got := maybeDownload(ctx, src+".gz", nil)
		if filepath.Base(got) != "data.nc" {
			t.Errorf("path = %s", got)
		}
		check(t, got)
	})
	t.Run("http", func(t *testing.T) {
		got := maybeDownload(ctx, srv.URL+"/data.nc", nil)
		if got == srv.URL+"/data.nc" {
			t.Fatal("file was not downloaded")
		}
		check(t, got)
	})
	t.Run("http compressed", func(t *testing.T) {
		got := maybeDownload(ctx, srv.URL+"/data.nc.gz", nil)
		if filepath.Base(got) != "data.nc" {
			t.Errorf("path = %s", got)
		}
		check(t, got)
	})
	t.Run("http not found", func(t *testing.T) {
		c := make(chan string, 10)
		u := srv.URL + "/missing.nc"
		if got := maybeDownload(ctx, u, c); got != u {
			t.Errorf("path = %s; want %s", got, u)
		}
		if len(c) == 0 {
			t.Error("no messages about the failed download")
		}
	})
}

func TestBlob(t *testing.T) {
	ctx := context.Background()
	os.Mkdir("test", os.ModePerm)
	defer os.RemoveAll("test")

	var u uploader
	local, err := u.maybeUpload("file://test/map.png")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(local) != "map.png" {
		t.Errorf("local path = %s", local)
	}
	if err := ioutil.WriteFile(local, []byte("image"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := u.uploadOutput(ctx); err != nil {
		t.Fatal(err)
	}
	if len(u.files) != 0 {
		t.Errorf("%d files left after upload", len(u.files))
	}

	got := maybeDownload(ctx, "file://test/map.png", nil)
	b, err := ioutil.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "image" {
		t.Errorf("downloaded %q; want %q", b, "image")
	}

	if p, err := u.maybeUpload("map.png"); err != nil || p != "map.png" {
		t.Errorf("local output path = %s, %v", p, err)
	}
}

func TestExpandShp(t *testing.T) {
	got := expandShp("dir/coast.shp")
	want := []string{"dir/coast.shp", "dir/coast.dbf", "dir/coast.shx", "dir/coast.prj"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v; want %v", got, want)
	}
	if got := expandShp("data.nc"); !reflect.DeepEqual(got, []string{"data.nc"}) {
		t.Errorf("got %v", got)
	}
}

func TestOpenBucket(t *testing.T) {
	if _, err := OpenBucket(context.Background(), "ftp://bucket"); err == nil {
		t.Error("unknown provider should fail")
	}
}
