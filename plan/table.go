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

// table is a hash table of points
// to running sums; rows are kept in
// the order their points were first seen
type table struct {
	index map[uint64][]int32
	rows  []tensor.Row
}

func newTable() *table {
	return &table{index: make(map[uint64][]int32)}
}

func (t *table) find(p tensor.Point, h uint64) int {
	for _, i := range t.index[h] {
		if t.rows[i].Point.Equal(p) {
			return int(i)
		}
	}
	return -1
}

// add adds v to the sum for p
func (t *table) add(p tensor.Point, v float64) {
	h := p.Hash()
	if i := t.find(p, h); i >= 0 {
		t.rows[i].Value += v
		return
	}
	t.index[h] = append(t.index[h], int32(len(t.rows)))
	t.rows = append(t.rows, tensor.Row{Point: p, Value: v})
}

func (t *table) lookup(p tensor.Point) (float64, bool) {
	i := t.find(p, p.Hash())
	if i < 0 {
		return 0, false
	}
	return t.rows[i].Value, true
}

// drain adds every row of it to t and closes it
func (t *table) drain(it tensor.Iterator) error {
	for it.Next() {
		t.add(it.Point(), it.Value())
	}
	err := it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	return err
}

// drainProject is like drain, but groups
// points by their projection onto s
func (t *table) drainProject(it tensor.Iterator, s tensor.Space) error {
	for it.Next() {
		t.add(it.Point().Project(s), it.Value())
	}
	err := it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	return err
}
