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

// Package source implements tensors backed
// by external data: CSV files, in-memory rows,
// and attribute tables for transforms.
package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SnellerInc/tql/compr"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

// Opener opens a fresh stream of
// data each time it is called.
type Opener func() (io.ReadCloser, error)

// File returns an Opener for path in fsys.
// Files ending in .zst or .s2 are decompressed.
func File(fsys fs.FS, path string) Opener {
	return func() (io.ReadCloser, error) {
		return compr.Open(fsys, path)
	}
}

// recordReader is the
// interface of csv.Reader
// that CSV uses
type recordReader interface {
	Read() ([]string, error)
	// Line returns the line on which
	// the last record read began
	Line() int
}

type strictReader struct {
	*csv.Reader
}

func (s strictReader) Line() int {
	line, _ := s.FieldPos(0)
	return line
}

// looseReader splits each line on every
// separator that is not followed by a space
type looseReader struct {
	sc   *bufio.Scanner
	sep  rune
	line int
}

func (l *looseReader) Line() int { return l.line }

func (l *looseReader) Read() ([]string, error) {
	for l.sc.Scan() {
		l.line++
		text := strings.TrimSuffix(l.sc.Text(), "\r")
		if text == "" {
			continue
		}
		return splitLoose(text, l.sep), nil
	}
	if err := l.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func splitLoose(text string, sep rune) []string {
	var fields []string
	start := 0
	for i, r := range text {
		if r != sep {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])
		if unicode.IsSpace(next) {
			continue
		}
		fields = append(fields, text[start:i])
		start = i + utf8.RuneLen(r)
	}
	return append(fields, text[start:])
}

// CSV is a tensor backed by a CSV file
// with a header row. Each Stream opens
// the file again, so a CSV is restartable.
type CSV struct {
	// Name identifies the file in errors.
	Name string

	open Opener
	hint *Hint
	sep  rune
	typ  tensor.Type
}

// NewCSV constructs a CSV tensor. The hint is
// compiled (see Hint.Compile) if necessary.
func NewCSV(name string, open Opener, hint *Hint, unit units.Unit) (*CSV, error) {
	if err := hint.Compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	sp, err := hint.Space()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	sep, _ := hint.separator()
	return &CSV{
		Name: name,
		open: open,
		hint: hint,
		sep:  sep,
		typ:  tensor.Type{Space: sp, Unit: unit},
	}, nil
}

func (c *CSV) Type() tensor.Type { return c.typ }

func (c *CSV) reader(r io.Reader) recordReader {
	if c.hint.Loose {
		return &looseReader{sc: bufio.NewScanner(r), sep: c.sep}
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = c.sep
	return strictReader{cr}
}

// header reads the header row and
// locates the columns named by the hint
func (c *CSV) header(rd recordReader) (keys []int, value int, err error) {
	names, err := rd.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%s: no header row", c.Name)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", c.Name, err)
	}
	index := make(map[string]int, len(names))
	for i := range names {
		col := strings.ToLower(strings.TrimSpace(names[i]))
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		if _, ok := index[col]; !ok {
			index[col] = i
		}
	}
	find := func(col string) (int, error) {
		i, ok := index[col]
		if !ok {
			return 0, fmt.Errorf("%s: no column %q", c.Name, col)
		}
		return i, nil
	}
	keys = make([]int, len(c.hint.Keys))
	for i := range c.hint.Keys {
		keys[i], err = find(c.hint.Keys[i].Column)
		if err != nil {
			return nil, 0, err
		}
	}
	value, err = find(c.hint.Value)
	return keys, value, err
}

// Stream implements tensor.Tensor. Every row
// of the file is produced; the predicate is left
// to the caller (see plan.Source).
func (c *CSV) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	rc, err := c.open()
	if err != nil {
		return nil, err
	}
	rd := c.reader(rc)
	keys, value, err := c.header(rd)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &csvIter{
		csv:    c,
		rc:     rc,
		rd:     rd,
		keys:   keys,
		value:  value,
		coords: make([]tensor.Coord, len(keys)),
	}, nil
}

type csvIter struct {
	csv    *CSV
	rc     io.ReadCloser
	rd     recordReader
	keys   []int
	value  int
	coords []tensor.Coord

	pt  tensor.Point
	val float64
	err error
}

func (it *csvIter) errorf(f string, args ...interface{}) bool {
	it.err = fmt.Errorf("%s: line %d: %s", it.csv.Name, it.rd.Line(), fmt.Sprintf(f, args...))
	return false
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (it *csvIter) Next() bool {
	if it.err != nil {
		return false
	}
rows:
	for {
		rec, err := it.rd.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				it.err = fmt.Errorf("%s: %w", it.csv.Name, err)
			}
			return false
		}
		text := field(rec, it.value)
		if text == "" {
			continue
		}
		it.val, err = strconv.ParseFloat(text, 64)
		if err != nil {
			return it.errorf("column %s: %s", it.csv.hint.Value, err)
		}
		for i, col := range it.keys {
			kh := &it.csv.hint.Keys[i]
			text := field(rec, col)
			if text == "" {
				if kh.Default == "" {
					continue rows
				}
				text = kh.Default
			}
			v, err := kh.Parse(text)
			if err != nil {
				return it.errorf("column %s: %s", kh.Column, err)
			}
			it.coords[i] = tensor.Coord{Axis: kh.Axis, Value: v}
		}
		it.pt, err = tensor.NewPoint(it.coords...)
		if err != nil {
			return it.errorf("%s", err)
		}
		return true
	}
}

func (it *csvIter) Point() tensor.Point { return it.pt }
func (it *csvIter) Value() float64      { return it.val }
func (it *csvIter) Err() error          { return it.err }
func (it *csvIter) Close() error        { return it.rc.Close() }
