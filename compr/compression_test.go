// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package compr

import (
	"bytes"
	"io"
	"testing"
	"testing/fstest"
)

func compress(t *testing.T, algo string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, algo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAlgorithm(t *testing.T) {
	testcases := []struct {
		path, algo, stripped string
	}{
		{"orders.csv", "", "orders.csv"},
		{"orders.csv.zst", "zstd", "orders.csv"},
		{"dir/orders.csv.zstd", "zstd", "dir/orders.csv"},
		{"orders.csv.s2", "s2", "orders.csv"},
		{"s2", "", "s2"},
	}
	for _, tc := range testcases {
		if got := Algorithm(tc.path); got != tc.algo {
			t.Errorf("Algorithm(%q) = %q, want %q", tc.path, got, tc.algo)
		}
		if got := Strip(tc.path); got != tc.stripped {
			t.Errorf("Strip(%q) = %q, want %q", tc.path, got, tc.stripped)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ctl := bytes.Repeat([]byte("orderid,productid,quantity\n10248,11,12\n"), 1000)
	testcases := []struct {
		algo, path string
	}{
		{"zstd", "x.zst"},
		{"zstd-better", "x.zstd"},
		{"s2", "x.s2"},
	}
	for _, tc := range testcases {
		algo := tc.algo
		r, err := NewReader(bytes.NewReader(compress(t, algo, ctl)), Algorithm(tc.path))
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("%s: %s", algo, err)
		}
		if !bytes.Equal(got, ctl) {
			t.Errorf("%s: mismatch", algo)
		}
		if err := r.Close(); err != nil {
			t.Error(err)
		}
	}
	if _, err := NewReader(bytes.NewReader(nil), "lz4"); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
	if _, err := NewWriter(io.Discard, "lz4"); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
}

func TestOpen(t *testing.T) {
	text := []byte("a,b\n1,2\n")
	fsys := fstest.MapFS{
		"plain.csv":      {Data: text},
		"packed.csv.s2":  {Data: compress(t, "s2", text)},
		"packed.csv.zst": {Data: compress(t, "zstd", text)},
		"broken.csv.zst": {Data: []byte("not zstd")},
	}
	for _, name := range []string{"plain.csv", "packed.csv.s2", "packed.csv.zst"} {
		f, err := Open(fsys, name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if !bytes.Equal(got, text) {
			t.Errorf("%s: got %q", name, got)
		}
		if err := f.Close(); err != nil {
			t.Errorf("%s: close: %s", name, err)
		}
	}
	f, err := Open(fsys, "broken.csv.zst")
	if err == nil {
		_, err = io.ReadAll(f)
		f.Close()
	}
	if err == nil {
		t.Error("reading a corrupt file succeeded")
	}
	if _, err := Open(fsys, "missing.csv"); err == nil {
		t.Error("opening a missing file succeeded")
	}
}
