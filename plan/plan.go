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
	"fmt"
	"strconv"

	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

// Op is a node in an execution plan.
// Every Op is a tensor.Tensor, and an Op
// holds no state between calls to Stream,
// so a plan may be streamed concurrently.
type Op interface {
	tensor.Tensor
	fmt.Stringer

	// inputs returns the operands of the op,
	// or nil if the op is a leaf
	inputs() []tensor.Tensor
}

// Nonterminal is embedded in every
// Op that has exactly one operand.
type Nonterminal struct {
	From tensor.Tensor
}

func (n *Nonterminal) inputs() []tensor.Tensor {
	return []tensor.Tensor{n.From}
}

// Constant is a numeric literal used as a
// tensor: a single value over the empty space.
type Constant struct {
	Value float64
}

func (c *Constant) Type() tensor.Type {
	return tensor.Type{Unit: units.Dimensionless}
}

func (c *Constant) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p tensor.Point
	ok, err := pred.Test(p, env)
	if err != nil {
		return nil, err
	}
	if !ok {
		return tensor.Rows(nil), nil
	}
	return tensor.Rows([]tensor.Row{{Point: p, Value: c.Value}}), nil
}

func (c *Constant) inputs() []tensor.Tensor { return nil }

// String implements fmt.Stringer
func (c *Constant) String() string {
	return "CONSTANT " + strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Scale multiplies (or divides) every
// value of its input by a fixed factor.
type Scale struct {
	Nonterminal
	Factor float64
	Divide bool
}

func (s *Scale) Type() tensor.Type { return s.From.Type() }

func (s *Scale) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	it, err := s.From.Stream(ctx, pred, env)
	if err != nil {
		return nil, err
	}
	f := s.Factor
	if s.Divide {
		return mapValues(it, func(v float64) float64 { return v / f }), nil
	}
	return mapValues(it, func(v float64) float64 { return v * f }), nil
}

// String implements fmt.Stringer
func (s *Scale) String() string {
	if s.Divide {
		return "SCALE DIVIDE " + strconv.FormatFloat(s.Factor, 'g', -1, 64)
	}
	return "SCALE BY " + strconv.FormatFloat(s.Factor, 'g', -1, 64)
}

// Filter passes through the points of
// its input that satisfy Criterion.
type Filter struct {
	Nonterminal
	Criterion tensor.Criterion
}

func (f *Filter) Type() tensor.Type { return f.From.Type() }

func (f *Filter) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	return f.From.Stream(ctx, pred.And(f.Criterion), env)
}

// String implements fmt.Stringer
func (f *Filter) String() string {
	return "WHERE " + f.Criterion.String()
}

// Multiplex yields the points of IfTrue for
// which Criterion holds, followed by the points
// of IfFalse for which it does not.
//
// IfTrue and IfFalse have identical types.
type Multiplex struct {
	IfTrue    tensor.Tensor
	Criterion tensor.Criterion
	IfFalse   tensor.Tensor
}

func (m *Multiplex) Type() tensor.Type { return m.IfTrue.Type() }

func (m *Multiplex) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	first, err := m.IfTrue.Stream(ctx, pred.And(m.Criterion), env)
	if err != nil {
		return nil, err
	}
	return &concatIter{
		cur: first,
		rest: []func() (tensor.Iterator, error){
			func() (tensor.Iterator, error) {
				return m.IfFalse.Stream(ctx, pred.And(&tensor.Not{Inner: m.Criterion}), env)
			},
		},
	}, nil
}

func (m *Multiplex) inputs() []tensor.Tensor {
	return []tensor.Tensor{m.IfTrue, m.IfFalse}
}

// String implements fmt.Stringer
func (m *Multiplex) String() string {
	return "MULTIPLEX " + m.Criterion.String()
}

// Binary combines two tensors over the same
// space element-wise. Points present in only
// one operand are dropped.
//
// Both operands are grouped into hash tables,
// so duplicate points within either operand are
// summed before they are combined, and the
// result does not depend on operand order beyond
// the operator itself. Output follows the order
// in which points first appear in the left operand.
// A quotient with a zero divisor produces no point.
type Binary struct {
	Op          expr.BinaryOp
	Left, Right tensor.Tensor
	Result      tensor.Type
}

func (b *Binary) Type() tensor.Type { return b.Result }

func (b *Binary) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	rit, err := b.Right.Stream(ctx, pred, env)
	if err != nil {
		return nil, err
	}
	right := newTable()
	if err := right.drain(rit); err != nil {
		return nil, err
	}
	lit, err := b.Left.Stream(ctx, pred, env)
	if err != nil {
		return nil, err
	}
	left := newTable()
	if err := left.drain(lit); err != nil {
		return nil, err
	}
	op := b.Op
	return &joinIter{
		left:  tensor.Rows(left.rows),
		right: right,
		fn: func(l, r float64) (float64, bool) {
			switch op {
			case expr.Add:
				return l + r, true
			case expr.Sub:
				return l - r, true
			case expr.Mul:
				return l * r, true
			case expr.Div:
				if r == 0 {
					return 0, false
				}
				return l / r, true
			}
			panic("plan: invalid binary op " + op.String())
		},
	}, nil
}

func (b *Binary) inputs() []tensor.Tensor {
	return []tensor.Tensor{b.Left, b.Right}
}

// String implements fmt.Stringer
func (b *Binary) String() string {
	return "BINARY " + b.Op.String() + " " + b.Result.String()
}

// Aggregation sums the values of its input
// grouped by projection onto Space.
type Aggregation struct {
	Nonterminal
	Space tensor.Space
}

func (a *Aggregation) Type() tensor.Type {
	return tensor.Type{Space: a.Space, Unit: a.From.Type().Unit}
}

func (a *Aggregation) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	// every axis of pred is in a.Space, which is
	// a subset of the input space, so the whole
	// predicate can be evaluated below the grouping
	it, err := a.From.Stream(ctx, pred, env)
	if err != nil {
		return nil, err
	}
	t := newTable()
	if err := t.drainProject(it, a.Space); err != nil {
		return nil, err
	}
	return tensor.Rows(t.rows), nil
}

// String implements fmt.Stringer
func (a *Aggregation) String() string {
	return "AGGREGATE BY " + a.Space.String()
}
