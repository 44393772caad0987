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
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/fuzzy"
	"github.com/SnellerInc/tql/plan"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Plan type-checks each definition in defs and
// registers the resulting tensors. Definitions
// that fail to type-check are reported to sink
// (which may be nil) and recorded as invalid,
// so later references to them are diagnosed as
// ill-typed rather than undefined. A name that
// is already defined is reported and the earlier
// definition is kept.
//
// Plan returns the number of diagnostics reported.
// Each rejected definition produces exactly one.
func (m *Module) Plan(src *expr.Source, defs []*expr.Define, sink Sink) int {
	n := 0
	complain := func(name string, at expr.Span, msg string) {
		n++
		if sink != nil {
			d := diagnose(src, at, msg)
			d.Name = name
			sink.Complain(d)
		}
	}
	for _, d := range defs {
		name := d.Name.Name
		if m.known(name) {
			complain(name, d.Name.At, "Name was previously defined; ignoring redefinition.")
			continue
		}
		p := planner{m: m, free: make(map[string]struct{}), casts: make(map[string]Usage)}
		t, err := p.expr(d.Expr)
		if err != nil {
			var g *Gripe
			if !errors.As(err, &g) {
				g = &Gripe{Span: d.Expr.Pos(), Message: err.Error()}
			}
			complain(name, g.Span, g.Message)
			m.invalid[name] = struct{}{}
			m.logf("module: %s has invalid type, because: %s", name, g.Message)
			continue
		}
		for v, u := range p.casts {
			m.variables[v] = u
		}
		free := maps.Keys(p.free)
		slices.Sort(free)
		m.register(name, t, free)
		m.logf("module: planned %s", expr.ToString(d))
	}
	return n
}

// planner lowers one definition; variable
// usages are committed to the module only
// if the definition is accepted
type planner struct {
	m     *Module
	free  map[string]struct{}
	casts map[string]Usage
}

// cast is like Module.CastVariable, but it
// records new usages in p.casts
func (p *planner) cast(name, axis string, plural bool) error {
	u := Usage{Axis: axis, Plural: plural}
	prev, ok := p.m.variables[name]
	if !ok {
		prev, ok = p.casts[name]
	}
	if !ok {
		p.casts[name] = u
		return nil
	}
	if prev != u {
		return fmt.Errorf("$%s used as %s, previously as %s: %w", name, u, prev, ErrUsageConflict)
	}
	return nil
}

func (p *planner) expr(e expr.Expr) (tensor.Tensor, error) {
	switch e := e.(type) {
	case *expr.Name:
		return p.name(e)
	case *expr.Constant:
		return &plan.Constant{Value: e.Value}, nil
	case *expr.Binary:
		return p.binary(e)
	case *expr.Scale:
		return p.scale(e)
	case *expr.Multiplex:
		return p.multiplex(e)
	case *expr.Filter:
		return p.filter(e)
	case *expr.Aggregation:
		return p.aggregation(e)
	case *expr.SumImage:
		return p.sumImage(e)
	}
	panic(fmt.Sprintf("module: unexpected expression %T", e))
}

func suggest(msg, word string, candidates []string) string {
	if s, ok := fuzzy.Suggest(word, candidates); ok {
		return msg + " Did you mean " + strconv.Quote(s) + "?"
	}
	return msg
}

func (p *planner) name(n *expr.Name) (tensor.Tensor, error) {
	if t, ok := p.m.tensors[n.Name]; ok {
		for _, v := range p.m.free[n.Name] {
			p.free[v] = struct{}{}
		}
		return t, nil
	}
	if _, ok := p.m.invalid[n.Name]; ok {
		return nil, gripef(n.At, "ill-typed name.")
	}
	return nil, gripef(n.At, "%s", suggest("undefined name.", n.Name, p.m.names))
}

func (p *planner) binary(b *expr.Binary) (tensor.Tensor, error) {
	left, err := p.expr(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := p.expr(b.Right)
	if err != nil {
		return nil, err
	}
	lt, rt := left.Type(), right.Type()
	if err := tensor.RequireSymmetry(lt.Space, rt.Space); err != nil {
		return nil, gripef(b.At, "%s", err)
	}
	var u units.Unit
	switch b.Op {
	case expr.Add, expr.Sub:
		if !lt.Unit.Equal(rt.Unit) {
			return nil, gripef(b.At, "incompatible units: %s versus %s", lt.Unit, rt.Unit)
		}
		u = lt.Unit
	case expr.Mul:
		u = lt.Unit.Mul(rt.Unit)
	case expr.Div:
		u = lt.Unit.Div(rt.Unit)
	default:
		panic("module: invalid binary op " + b.Op.String())
	}
	return &plan.Binary{
		Op:     b.Op,
		Left:   left,
		Right:  right,
		Result: tensor.Type{Space: lt.Space, Unit: u},
	}, nil
}

func (p *planner) scale(s *expr.Scale) (tensor.Tensor, error) {
	from, err := p.expr(s.Operand)
	if err != nil {
		return nil, err
	}
	if s.Divide && s.Factor == 0 {
		return nil, gripef(s.At, "division by zero.")
	}
	return &plan.Scale{
		Nonterminal: plan.Nonterminal{From: from},
		Factor:      s.Factor,
		Divide:      s.Divide,
	}, nil
}

func (p *planner) multiplex(m *expr.Multiplex) (tensor.Tensor, error) {
	iftrue, err := p.expr(m.IfTrue)
	if err != nil {
		return nil, err
	}
	iffalse, err := p.expr(m.IfFalse)
	if err != nil {
		return nil, err
	}
	tt, ft := iftrue.Type(), iffalse.Type()
	if !tt.Equal(ft) {
		return nil, gripef(m.At, "Left and right side tensors must have identical type: %s versus %s", tt, ft)
	}
	crit, err := p.criterion(m.Criterion, tt.Space)
	if err != nil {
		return nil, err
	}
	return &plan.Multiplex{IfTrue: iftrue, Criterion: crit, IfFalse: iffalse}, nil
}

func (p *planner) filter(f *expr.Filter) (tensor.Tensor, error) {
	basis, err := p.expr(f.Basis)
	if err != nil {
		return nil, err
	}
	crit, err := p.criterion(f.Criterion, basis.Type().Space)
	if err != nil {
		return nil, err
	}
	return &plan.Filter{
		Nonterminal: plan.Nonterminal{From: basis},
		Criterion:   crit,
	}, nil
}

func (p *planner) aggregation(a *expr.Aggregation) (tensor.Tensor, error) {
	from, err := p.expr(a.Operand)
	if err != nil {
		return nil, err
	}
	sp, err := p.retain(a.Axes, from.Type().Space)
	if err != nil {
		return nil, err
	}
	return &plan.Aggregation{
		Nonterminal: plan.Nonterminal{From: from},
		Space:       sp,
	}, nil
}

func (p *planner) sumImage(s *expr.SumImage) (tensor.Tensor, error) {
	from, err := p.expr(s.Operand)
	if err != nil {
		return nil, err
	}
	effective := from.Type().Space
	steps := make([]*tensor.Transform, 0, len(s.Mappings))
	for i := range s.Mappings {
		mp := &s.Mappings[i]
		var domain, rng []string
		for _, id := range mp.Domain {
			if !effective.Contains(id.Name) {
				return nil, p.unavailable(id, effective)
			}
			domain = append(domain, id.Name)
			effective = effective.Minus(tensor.MustSpace(id.Name))
		}
		for _, id := range mp.Range {
			if effective.Contains(id.Name) || slices.Contains(rng, id.Name) {
				return nil, duplicated(id)
			}
			if !p.m.universe.IsAxis(id.Name) {
				return nil, p.unknown(id)
			}
			rng = append(rng, id.Name)
		}
		dsp, rsp := tensor.MustSpace(domain...), tensor.MustSpace(rng...)
		t, ok := p.m.FindTransform(dsp, rsp)
		if !ok {
			return nil, gripef(mp.At, "No known transform applies.")
		}
		effective = effective.Union(rsp)
		steps = append(steps, t)
	}
	final := effective
	if s.Axes != nil {
		final, err = p.retain(s.Axes, effective)
		if err != nil {
			return nil, err
		}
	}
	return &plan.Transformation{
		Nonterminal: plan.Nonterminal{From: from},
		Steps:       steps,
		Space:       final,
	}, nil
}

func duplicated(id expr.Ident) *Gripe {
	return gripef(id.At, "Dimension %q is already present and may not be duplicated.", id.Name)
}

func (p *planner) unknown(id expr.Ident) *Gripe {
	msg := fmt.Sprintf("unknown dimension %q.", id.Name)
	return gripef(id.At, "%s", suggest(msg, id.Name, p.m.universe.Axes()))
}

// unavailable reports an axis that is
// not in the space sp where it is used
func (p *planner) unavailable(id expr.Ident, sp tensor.Space) *Gripe {
	if !p.m.universe.IsAxis(id.Name) {
		return p.unknown(id)
	}
	msg := fmt.Sprintf("Dimension %q is not available here. options are %s.", id.Name, sp)
	return gripef(id.At, "%s", suggest(msg, id.Name, sp.Axes()))
}

// retain validates the axes of a 'by [...]' clause
// against the space of its operand
func (p *planner) retain(ids []expr.Ident, sp tensor.Space) (tensor.Space, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(names, id.Name) {
			return tensor.Space{}, duplicated(id)
		}
		if !sp.Contains(id.Name) {
			return tensor.Space{}, p.unavailable(id, sp)
		}
		names = append(names, id.Name)
	}
	return tensor.MustSpace(names...), nil
}

func (p *planner) criterion(c expr.Criterion, sp tensor.Space) (tensor.Criterion, error) {
	switch c := c.(type) {
	case *expr.Comparison:
		axis, err := p.axis(c.Axis, sp)
		if err != nil {
			return nil, err
		}
		rhs, err := p.scalar(c.RHS, axis, false)
		if err != nil {
			return nil, err
		}
		return &tensor.Comparison{Axis: axis.Name, Op: c.Op, RHS: rhs}, nil
	case *expr.Membership:
		axis, err := p.axis(c.Axis, sp)
		if err != nil {
			return nil, err
		}
		set, err := p.scalar(c.RHS, axis, true)
		if err != nil {
			return nil, err
		}
		return &tensor.In{Axis: axis.Name, Set: set}, nil
	case *expr.Negation:
		inner, err := p.criterion(c.Inner, sp)
		if err != nil {
			return nil, err
		}
		return &tensor.Not{Inner: inner}, nil
	case *expr.Conjunction:
		terms := make(tensor.Predicate, 0, len(c.Terms))
		for _, t := range c.Terms {
			crit, err := p.criterion(t, sp)
			if err != nil {
				return nil, err
			}
			terms = append(terms, crit)
		}
		return terms, nil
	}
	panic(fmt.Sprintf("module: unexpected criterion %T", c))
}

func (p *planner) axis(id expr.Ident, sp tensor.Space) (units.Axis, error) {
	if !sp.Contains(id.Name) {
		return units.Axis{}, p.unavailable(id, sp)
	}
	a, err := p.m.universe.Axis(id.Name)
	if err != nil {
		return units.Axis{}, gripef(id.At, "%s", err)
	}
	return a, nil
}

func (p *planner) scalar(op expr.Operand, axis units.Axis, plural bool) (tensor.Scalar, error) {
	switch op := op.(type) {
	case *expr.Variable:
		if err := p.cast(op.Name, axis.Name, plural); err != nil {
			return nil, gripef(op.At, "Variable %q is used earlier in an incompatible manner. (It must agree in dimension and grammatical number.)", op.Name)
		}
		p.free[op.Name] = struct{}{}
		return tensor.Variable{Name: op.Name}, nil
	case *expr.Literal:
		if plural {
			return nil, gripef(op.At, "expected a list of values.")
		}
		v, err := coerce(axis, op.Value)
		if err != nil {
			return nil, gripef(op.At, "%s", err)
		}
		return tensor.Constant{Value: v}, nil
	case *expr.List:
		if !plural {
			return nil, gripef(op.At, "expected a single value.")
		}
		lst := make([]tensor.Value, len(op.Items))
		for i, item := range op.Items {
			v, err := coerce(axis, item.Value)
			if err != nil {
				return nil, gripef(item.At, "%s", err)
			}
			lst[i] = v
		}
		return tensor.Constant{Value: lst}, nil
	}
	panic(fmt.Sprintf("module: unexpected operand %T", op))
}

// coerce converts a literal to the
// kind of value stored along axis
func coerce(axis units.Axis, v tensor.Value) (tensor.Value, error) {
	switch axis.Kind {
	case units.Any:
		return v, nil
	case units.Int:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		}
	case units.Number:
		switch v.(type) {
		case int64, float64:
			return v, nil
		}
	case units.String:
		if _, ok := v.(string); ok {
			return v, nil
		}
	case units.Date:
		if s, ok := v.(string); ok {
			t, err := tensor.ParseTime(s)
			if err != nil {
				return nil, fmt.Errorf("%s axis %q: %w", axis.Kind, axis.Name, err)
			}
			return t, nil
		}
	case units.Bool:
		if s, ok := v.(string); ok {
			b, err := strconv.ParseBool(s)
			if err == nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot compare %s axis %q with %s", axis.Kind, axis.Name, tensor.FormatValue(v))
}
