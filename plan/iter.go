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

package plan

import (
	"github.com/SnellerInc/tql/tensor"
)

type mapIter struct {
	tensor.Iterator
	fn func(float64) float64
}

func mapValues(it tensor.Iterator, fn func(float64) float64) tensor.Iterator {
	return &mapIter{Iterator: it, fn: fn}
}

func (m *mapIter) Value() float64 { return m.fn(m.Iterator.Value()) }

// joinIter streams left and yields
// fn(left, right) for points present in right
type joinIter struct {
	left  tensor.Iterator
	right *table
	fn    func(l, r float64) (float64, bool)
	val   float64
}

func (j *joinIter) Next() bool {
	for j.left.Next() {
		r, ok := j.right.lookup(j.left.Point())
		if !ok {
			continue
		}
		j.val, ok = j.fn(j.left.Value(), r)
		if ok {
			return true
		}
	}
	return false
}

func (j *joinIter) Point() tensor.Point { return j.left.Point() }
func (j *joinIter) Value() float64      { return j.val }
func (j *joinIter) Err() error          { return j.left.Err() }
func (j *joinIter) Close() error        { return j.left.Close() }

// concatIter yields the rows of cur and then
// the rows of each iterator produced by rest,
// opening each one only once the previous
// one has been exhausted
type concatIter struct {
	cur  tensor.Iterator
	rest []func() (tensor.Iterator, error)
	err  error
}

func (c *concatIter) Next() bool {
	for c.err == nil {
		if c.cur.Next() {
			return true
		}
		if c.err = c.cur.Err(); c.err != nil {
			return false
		}
		if len(c.rest) == 0 {
			return false
		}
		c.err = c.cur.Close()
		if c.err != nil {
			return false
		}
		c.cur, c.err = c.rest[0]()
		c.rest = c.rest[1:]
		if c.err != nil {
			c.cur = tensor.Rows(nil)
			return false
		}
	}
	return false
}

func (c *concatIter) Point() tensor.Point { return c.cur.Point() }
func (c *concatIter) Value() float64      { return c.cur.Value() }
func (c *concatIter) Err() error          { return c.err }
func (c *concatIter) Close() error        { return c.cur.Close() }
