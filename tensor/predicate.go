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

package tensor

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ErrUnbound is returned when a criterion
// refers to a free variable that has no
// binding in the environment.
var ErrUnbound = errors.New("unbound variable")

// Env binds free variables to values.
// Singular variables are bound to a Value;
// plural variables are bound to a []Value.
type Env map[string]Value

// Relop is a relational operator.
type Relop uint8

const (
	Less Relop = iota
	LessEquals
	Equals
	NotEquals
	Greater
	GreaterEquals
)

var relopText = [...]string{
	Less:          "<",
	LessEquals:    "<=",
	Equals:        "=",
	NotEquals:     "!=",
	Greater:       ">",
	GreaterEquals: ">=",
}

func (r Relop) String() string { return relopText[r] }

// holds returns whether the relation holds
// given the result of Compare(lhs, rhs)
func (r Relop) holds(cmp int) bool {
	switch r {
	case Less:
		return cmp < 0
	case LessEquals:
		return cmp <= 0
	case Equals:
		return cmp == 0
	case NotEquals:
		return cmp != 0
	case Greater:
		return cmp > 0
	case GreaterEquals:
		return cmp >= 0
	}
	panic("tensor: invalid relop")
}

// Scalar is the right-hand-side of a criterion:
// either a constant or a free variable.
type Scalar interface {
	Resolve(env Env) (Value, error)
	String() string
}

// Constant is a Scalar with a fixed value.
// A list constant holds a []Value.
type Constant struct {
	Value Value
}

func (c Constant) Resolve(Env) (Value, error) { return c.Value, nil }

func (c Constant) String() string {
	if lst, ok := c.Value.([]Value); ok {
		return formatList(lst)
	}
	return FormatValue(c.Value)
}

func formatList(lst []Value) string {
	var out strings.Builder
	out.WriteByte('[')
	for i := range lst {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(FormatValue(lst[i]))
	}
	out.WriteByte(']')
	return out.String()
}

// Variable is a Scalar bound at query time.
type Variable struct {
	Name string
}

func (v Variable) Resolve(env Env) (Value, error) {
	val, ok := env[v.Name]
	if !ok {
		return nil, fmt.Errorf("%w $%s", ErrUnbound, v.Name)
	}
	return val, nil
}

func (v Variable) String() string { return "$" + v.Name }

// Criterion is a boolean test over a point
// and an environment.
type Criterion interface {
	// Test evaluates the criterion.
	// Tested axes must be present in p.
	Test(p Point, env Env) (bool, error)
	// Axes returns the axes that Test reads.
	Axes() []string
	String() string
}

// Comparison tests an axis against a scalar.
type Comparison struct {
	Axis string
	Op   Relop
	RHS  Scalar
}

func (c *Comparison) Test(p Point, env Env) (bool, error) {
	rhs, err := c.RHS.Resolve(env)
	if err != nil {
		return false, err
	}
	cmp, err := Compare(p.MustGet(c.Axis), rhs)
	if err != nil {
		return false, fmt.Errorf("%s: %w", c, err)
	}
	return c.Op.holds(cmp), nil
}

func (c *Comparison) Axes() []string { return []string{c.Axis} }

func (c *Comparison) String() string {
	return c.Axis + " " + c.Op.String() + " " + c.RHS.String()
}

// In tests an axis for membership in a list.
// The scalar must resolve to a []Value.
type In struct {
	Axis string
	Set  Scalar
}

func (in *In) Test(p Point, env Env) (bool, error) {
	set, err := in.Set.Resolve(env)
	if err != nil {
		return false, err
	}
	lst, ok := set.([]Value)
	if !ok {
		return false, fmt.Errorf("%s: expected a list, found %T", in, set)
	}
	v := p.MustGet(in.Axis)
	for i := range lst {
		cmp, err := Compare(v, lst[i])
		if err != nil {
			return false, fmt.Errorf("%s: %w", in, err)
		}
		if cmp == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (in *In) Axes() []string { return []string{in.Axis} }

func (in *In) String() string { return in.Axis + " in " + in.Set.String() }

// Not inverts a criterion.
type Not struct {
	Inner Criterion
}

func (n *Not) Test(p Point, env Env) (bool, error) {
	ok, err := n.Inner.Test(p, env)
	return !ok, err
}

func (n *Not) Axes() []string { return n.Inner.Axes() }

func (n *Not) String() string { return "not (" + n.Inner.String() + ")" }

// Predicate is a conjunction of criteria.
// The empty Predicate accepts every point.
type Predicate []Criterion

// Test returns whether every criterion holds.
func (p Predicate) Test(pt Point, env Env) (bool, error) {
	for _, c := range p {
		ok, err := c.Test(pt, env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// And returns the conjunction of p and more.
// p itself is never modified.
func (p Predicate) And(more ...Criterion) Predicate {
	if len(more) == 0 {
		return p
	}
	out := make(Predicate, 0, len(p)+len(more))
	out = append(out, p...)
	return append(out, more...)
}

// Axes returns the sorted set of axes
// read by any criterion in p.
func (p Predicate) Axes() []string {
	var out []string
	for _, c := range p {
		for _, a := range c.Axes() {
			if !slices.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	slices.Sort(out)
	return out
}

// String implements fmt.Stringer.
// (Predicate also satisfies Criterion, so a
// conjunction can be negated as a whole.)
func (p Predicate) String() string {
	if len(p) == 0 {
		return "true"
	}
	parts := make([]string, len(p))
	for i := range p {
		parts[i] = p[i].String()
	}
	return strings.Join(parts, " and ")
}
