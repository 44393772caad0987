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

package source

import (
	"context"
	"fmt"

	"github.com/SnellerInc/tql/tensor"
)

// Memory is a tensor over a fixed list of rows.
type Memory struct {
	typ  tensor.Type
	rows []tensor.Row
}

// NewMemory constructs a Memory tensor.
// Every point must cover exactly typ.Space.
func NewMemory(typ tensor.Type, rows []tensor.Row) (*Memory, error) {
	for i := range rows {
		if !rows[i].Point.Space().Equal(typ.Space) {
			return nil, fmt.Errorf("row %d: point %s is not in %s", i, rows[i].Point, typ.Space)
		}
	}
	return &Memory{typ: typ, rows: rows}, nil
}

// Len returns the number of rows in m.
func (m *Memory) Len() int { return len(m.rows) }

func (m *Memory) Type() tensor.Type { return m.typ }

// Stream implements tensor.Tensor.
// Rows for which pred does not hold are skipped.
func (m *Memory) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	return &memIter{rows: m.rows, pred: pred, env: env, pos: -1}, nil
}

type memIter struct {
	rows []tensor.Row
	pred tensor.Predicate
	env  tensor.Env
	pos  int
	err  error
}

func (m *memIter) Next() bool {
	for m.err == nil && m.pos+1 < len(m.rows) {
		m.pos++
		ok, err := m.pred.Test(m.rows[m.pos].Point, m.env)
		if err != nil {
			m.err = err
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

func (m *memIter) Point() tensor.Point { return m.rows[m.pos].Point }
func (m *memIter) Value() float64      { return m.rows[m.pos].Value }
func (m *memIter) Err() error          { return m.err }
func (m *memIter) Close() error        { return nil }
