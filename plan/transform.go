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
	"context"
	"strings"

	"github.com/SnellerInc/tql/tensor"
)

// Transformation extends each point of its
// input with derived axes by applying Steps in
// order, and then sums the results grouped by
// projection onto Space.
type Transformation struct {
	Nonterminal
	Steps []*tensor.Transform
	Space tensor.Space
}

func (t *Transformation) Type() tensor.Type {
	return tensor.Type{Space: t.Space, Unit: t.From.Type().Unit}
}

// touched returns the set of axes
// read or written by any step
func (t *Transformation) touched() tensor.Space {
	var s tensor.Space
	for _, step := range t.Steps {
		s = s.Union(step.Domain).Union(step.Range)
	}
	return s
}

// split divides pred into the criteria that
// can be tested against input points (those
// whose axes pass through untouched) and those
// that must be tested after the steps are applied
func (t *Transformation) split(pred tensor.Predicate) (below, above tensor.Predicate) {
	input := t.From.Type().Space
	touched := t.touched()
	for _, c := range pred {
		pushdown := true
		for _, a := range c.Axes() {
			if !input.Contains(a) || touched.Contains(a) {
				pushdown = false
				break
			}
		}
		if pushdown {
			below = append(below, c)
		} else {
			above = append(above, c)
		}
	}
	return below, above
}

func (t *Transformation) apply(p tensor.Point) (tensor.Point, error) {
	var err error
	for _, step := range t.Steps {
		p, err = step.Apply(p)
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

func (t *Transformation) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	below, above := t.split(pred)
	it, err := t.From.Stream(ctx, below, env)
	if err != nil {
		return nil, err
	}
	tbl := newTable()
	for it.Next() {
		p, err := t.apply(it.Point())
		if err != nil {
			it.Close()
			return nil, err
		}
		p = p.Project(t.Space)
		ok, err := above.Test(p, env)
		if err != nil {
			it.Close()
			return nil, err
		}
		if ok {
			tbl.add(p, it.Value())
		}
	}
	err = it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return tensor.Rows(tbl.rows), nil
}

// String implements fmt.Stringer
func (t *Transformation) String() string {
	var out strings.Builder
	out.WriteString("TRANSFORM")
	for i, step := range t.Steps {
		if i > 0 {
			out.WriteByte(',')
		}
		out.WriteByte(' ')
		out.WriteString(step.String())
	}
	out.WriteString(" BY ")
	out.WriteString(t.Space.String())
	return out.String()
}
