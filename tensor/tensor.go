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

// Package tensor defines tensor types, points,
// predicates, and the streaming contract that
// both data sources and plan nodes implement.
package tensor

import (
	"context"
	"fmt"
	"strconv"
)

// Tensor is a named, dimensioned quantity:
// a (possibly lazy) function from the points
// of a space to numbers.
type Tensor interface {
	// Type returns the type of the tensor.
	// It must be cheap and free of side-effects.
	Type() Type
	// Stream begins producing the (point, value)
	// pairs of the tensor for which pred holds.
	// Every point produced covers exactly the
	// space of the tensor's type.
	//
	// Free variables referenced by pred (or by the
	// tensor's own definition) are resolved from env.
	Stream(ctx context.Context, pred Predicate, env Env) (Iterator, error)
}

// Iterator is a single-pass sequence of
// (point, value) pairs. An Iterator is not
// restartable; call Tensor.Stream again
// to re-evaluate the tensor.
//
// Callers must call Close when they are done
// with an Iterator, including when they stop
// before Next returns false.
type Iterator interface {
	// Next advances the iterator. It returns
	// false when the sequence is exhausted or
	// an error has occurred (see Err).
	Next() bool
	// Point returns the current point.
	Point() Point
	// Value returns the current value.
	Value() float64
	// Err returns the error, if any,
	// that terminated the iteration.
	Err() error
	// Close releases resources held by the iterator.
	Close() error
}

// Row is a materialized (point, value) pair.
type Row struct {
	Point Point
	Value float64
}

// String implements fmt.Stringer.
func (r Row) String() string {
	return r.Point.String() + " " + strconv.FormatFloat(r.Value, 'g', -1, 64)
}

// Collect drains it into a list of rows
// and closes it.
func Collect(it Iterator) ([]Row, error) {
	var out []Row
	for it.Next() {
		out = append(out, Row{Point: it.Point(), Value: it.Value()})
	}
	err := it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	return out, err
}

type rowIter struct {
	rows []Row
	pos  int
}

// Rows returns an Iterator over a list of rows.
func Rows(rows []Row) Iterator {
	return &rowIter{rows: rows, pos: -1}
}

func (r *rowIter) Next() bool {
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

func (r *rowIter) Point() Point   { return r.rows[r.pos].Point }
func (r *rowIter) Value() float64 { return r.rows[r.pos].Value }
func (r *rowIter) Err() error     { return nil }
func (r *rowIter) Close() error   { return nil }

type errIter struct {
	err error
}

// Failed returns an Iterator that produces
// no rows and reports err.
func Failed(err error) Iterator { return &errIter{err: err} }

func (e *errIter) Next() bool     { return false }
func (e *errIter) Point() Point   { panic("tensor: Point called on failed iterator") }
func (e *errIter) Value() float64 { panic("tensor: Value called on failed iterator") }
func (e *errIter) Err() error     { return e.err }
func (e *errIter) Close() error   { return nil }

// CheckSpace returns an error if the axes
// read by pred are not all within the space of t.
func CheckSpace(t Tensor, pred Predicate) error {
	sp := t.Type().Space
	for _, a := range pred.Axes() {
		if !sp.Contains(a) {
			return fmt.Errorf("predicate on axis %q not in %s", a, sp)
		}
	}
	return nil
}
