// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package compr provides a unified interface wrapping
// third-party compression libraries.
package compr

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

var extensions = []struct {
	suffix, algo string
}{
	{".zst", "zstd"},
	{".zstd", "zstd"},
	{".s2", "s2"},
}

// Algorithm returns the name of the compression
// algorithm implied by the extension of path,
// or the empty string if path is uncompressed.
func Algorithm(path string) string {
	for _, e := range extensions {
		if strings.HasSuffix(path, e.suffix) {
			return e.algo
		}
	}
	return ""
}

// Strip returns path without its
// compression extension, if it has one.
func Strip(path string) string {
	for _, e := range extensions {
		if strings.HasSuffix(path, e.suffix) {
			return strings.TrimSuffix(path, e.suffix)
		}
	}
	return path
}

type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}

// NewReader returns a reader that decompresses
// r using the named algorithm. The empty name
// means r is not compressed.
//
// Closing the returned reader releases the
// decompressor but does not close r.
func NewReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch name {
	case "":
		return io.NopCloser(r), nil
	case "zstd":
		// by default, concurrency is min(4, GOMAXPROCS);
		// a source is read by one goroutine
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zstdReader{d}, nil
	case "s2":
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("compr: unknown compression %q", name)
	}
}

// NewWriter returns a writer that compresses
// into w using the named algorithm. The caller
// must Close the writer to flush it; doing so
// does not close w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch name {
	case "zstd":
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	case "zstd-better":
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
	case "s2":
		return s2.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("compr: unknown compression %q", name)
	}
}

type fileReader struct {
	io.ReadCloser
	file fs.File
}

func (f *fileReader) Close() error {
	return errors.Join(f.ReadCloser.Close(), f.file.Close())
}

// Open opens path in fsys and decompresses it
// according to its extension (see Algorithm).
// Closing the result also closes the file.
func Open(fsys fs.FS, path string) (io.ReadCloser, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	algo := Algorithm(path)
	if algo == "" {
		return f, nil
	}
	r, err := NewReader(f, algo)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileReader{ReadCloser: r, file: f}, nil
}
