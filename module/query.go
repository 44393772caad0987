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

package module

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/SnellerInc/tql/heap"
	"github.com/SnellerInc/tql/plan"
	"github.com/SnellerInc/tql/tensor"

	"github.com/google/uuid"
)

// Query is a lazy view of a tensor with a
// fixed set of variable bindings and a base
// predicate. Creating a Query reads no data;
// each call to Stream (or one of the methods
// built on it) evaluates the tensor again.
//
// A Query is immutable and may be used from
// multiple goroutines.
type Query struct {
	id   uuid.UUID
	name string
	t    tensor.Tensor
	pred tensor.Predicate
	env  tensor.Env
	logf func(f string, args ...interface{})
}

// Query returns a Query over the named tensor.
// Every free variable the tensor depends on must be
// bound in env, or else the returned error wraps
// ErrUnbound. Bindings that the tensor does not
// depend on are ignored.
func (m *Module) Query(name string, env tensor.Env) (*Query, error) {
	name = strings.ToLower(name)
	t, err := m.Tensor(name)
	if err != nil {
		return nil, err
	}
	bound := make(tensor.Env)
	for _, v := range m.free[name] {
		raw, ok := env[v]
		if !ok {
			return nil, fmt.Errorf("query %s: %w $%s (%s)", name, ErrUnbound, v, m.variables[v])
		}
		val, err := m.binding(v, raw)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		bound[v] = val
	}
	return &Query{
		id:   uuid.New(),
		name: name,
		t:    t,
		env:  bound,
		logf: m.logf,
	}, nil
}

// ID returns the unique identifier of q,
// which appears in its log lines.
func (q *Query) ID() uuid.UUID { return q.id }

// Name returns the name of the queried tensor.
func (q *Query) Name() string { return q.name }

// Type returns the type of the queried tensor.
func (q *Query) Type() tensor.Type { return q.t.Type() }

// Predicate returns the base predicate of q.
func (q *Query) Predicate() tensor.Predicate { return q.pred }

// Env returns the variable bindings of q.
func (q *Query) Env() tensor.Env { return q.env }

// Explain describes the plan of the queried tensor.
func (q *Query) Explain() string {
	if len(q.pred) == 0 {
		return plan.Describe(q.t)
	}
	return "WHERE " + q.pred.String() + "\n" + plan.Describe(q.t)
}

// Where returns a new Query whose base predicate
// also requires c. Every axis c tests must be in
// the space of the queried tensor.
func (q *Query) Where(c tensor.Criterion) (*Query, error) {
	sp := q.t.Type().Space
	for _, a := range c.Axes() {
		if !sp.Contains(a) {
			return nil, fmt.Errorf("query %s: axis %q is not in %s", q.name, a, sp)
		}
	}
	n := *q
	n.id = uuid.New()
	n.pred = q.pred.And(c)
	return &n, nil
}

// Stream begins evaluating the query. If ctx
// carries a plan.ExecStats (see plan.WithStats),
// execution statistics are accumulated into it.
func (q *Query) Stream(ctx context.Context) (tensor.Iterator, error) {
	q.logf("query %s: %s where %s", q.id, q.name, q.pred)
	it, err := q.t.Stream(ctx, q.pred, q.env)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.name, err)
	}
	return plan.Count(ctx, it), nil
}

// Rows evaluates the query and returns every row.
func (q *Query) Rows(ctx context.Context) ([]tensor.Row, error) {
	it, err := q.Stream(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tensor.Collect(it)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.name, err)
	}
	return rows, nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Rounded is like Rows, but rounds each value
// to the given number of decimal places.
func (q *Query) Rounded(ctx context.Context, places int) ([]tensor.Row, error) {
	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Value = Round(rows[i].Value, places)
	}
	return rows, nil
}

type ranked struct {
	row tensor.Row
	seq int
}

// Top evaluates the query and returns the n rows
// with the greatest values, greatest first. Rows
// with equal values keep the order they were
// produced in.
func (q *Query) Top(ctx context.Context, n int) ([]tensor.Row, error) {
	it, err := q.Stream(ctx)
	if err != nil {
		return nil, err
	}
	h := heap.NewBounded(n, func(x, y ranked) bool {
		if x.row.Value != y.row.Value {
			return x.row.Value < y.row.Value
		}
		return x.seq > y.seq
	})
	seq := 0
	for it.Next() {
		h.Push(ranked{row: tensor.Row{Point: it.Point(), Value: it.Value()}, seq: seq})
		seq++
	}
	err = it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.name, err)
	}
	lst := h.Drain()
	rows := make([]tensor.Row, len(lst))
	for i := range lst {
		rows[i] = lst[i].row
	}
	return rows, nil
}
