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

// Package expr defines the syntax tree
// of tql scripts.
package expr

import (
	"strconv"
	"strings"

	"github.com/SnellerInc/tql/tensor"
)

// Span is a half-open range of byte
// offsets into the text of a script.
type Span struct {
	Start, End int
}

// Printable is the interface satisfied
// by every node that can be passed to ToString.
type Printable interface {
	text(dst *strings.Builder)
}

// ToString returns the canonical textual
// representation of a node.
func ToString(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst)
	return dst.String()
}

// Node is implemented by every AST node.
type Node interface {
	Printable
	// Pos returns the span of the token
	// that diagnostics about this node
	// should point to.
	Pos() Span
}

// Expr is a tensor-valued expression.
//
// The set of Expr implementations is closed:
// *Name, *Constant, *Binary, *Scale, *Multiplex,
// *Filter, *Aggregation and *SumImage.
type Expr interface {
	Node
	expr()
}

// Criterion is a boolean condition over the
// points of a tensor.
//
// The set of Criterion implementations is closed:
// *Comparison, *Membership, *Negation and *Conjunction.
type Criterion interface {
	Node
	criterion()
}

// Operand is the right-hand-side of a criterion:
// *Literal, *Variable or (membership only) *List.
type Operand interface {
	Node
	operand()
}

// Ident is a lower-cased identifier
// along with its location.
type Ident struct {
	Name string
	At   Span
}

func (i Ident) Pos() Span { return i.At }

func (i Ident) text(dst *strings.Builder) { dst.WriteString(i.Name) }

// Define is the statement 'name is expr'.
type Define struct {
	Name Ident
	Expr Expr
}

func (d *Define) Pos() Span { return d.Name.At }

func (d *Define) text(dst *strings.Builder) {
	dst.WriteString(d.Name.Name)
	dst.WriteString(" is ")
	d.Expr.text(dst)
}

// Name is a reference to a tensor by name.
type Name struct {
	Name string
	At   Span
}

// Constant is a numeric literal used as a tensor.
type Constant struct {
	Value float64
	At    Span
}

// BinaryOp is an element-wise arithmetic operator.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
)

func (b BinaryOp) String() string {
	switch b {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	}
	return "BinaryOp(" + strconv.Itoa(int(b)) + ")"
}

// Binary is 'left op right'.
// At is the span of the operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
	At          Span
}

// Scale is 'operand scale by N', 'operand scale divide N',
// or arithmetic between a tensor and a numeric literal.
type Scale struct {
	Operand Expr
	Factor  float64
	Divide  bool
	At      Span
}

// Multiplex is 'if_true where criterion else if_false'.
// At is the span of the 'where' keyword.
type Multiplex struct {
	IfTrue    Expr
	Criterion Criterion
	IfFalse   Expr
	At        Span
}

// Filter is 'basis where criterion'.
// At is the span of the 'where' keyword.
type Filter struct {
	Basis     Expr
	Criterion Criterion
	At        Span
}

// Aggregation is 'operand by [axes...]'.
// At is the span of the 'by' keyword.
type Aggregation struct {
	Operand Expr
	Axes    []Ident
	At      Span
}

// Mapping is one '{domain -> range}' step
// of a sum-image. At is the span of the arrow.
type Mapping struct {
	Domain, Range []Ident
	At            Span
}

func (m *Mapping) Pos() Span { return m.At }

func (m *Mapping) text(dst *strings.Builder) {
	dst.WriteByte('{')
	idents(dst, m.Domain)
	dst.WriteString(" -> ")
	idents(dst, m.Range)
	dst.WriteByte('}')
}

// SumImage is 'operand sum {a -> b} ... [by [axes...]]'.
// Axes is nil when there is no trailing space.
// At is the span of the 'sum' keyword.
type SumImage struct {
	Operand  Expr
	Mappings []Mapping
	Axes     []Ident
	At       Span
}

func (n *Name) Pos() Span        { return n.At }
func (c *Constant) Pos() Span    { return c.At }
func (b *Binary) Pos() Span      { return b.At }
func (s *Scale) Pos() Span       { return s.At }
func (m *Multiplex) Pos() Span   { return m.At }
func (f *Filter) Pos() Span      { return f.At }
func (a *Aggregation) Pos() Span { return a.At }
func (s *SumImage) Pos() Span    { return s.At }

func (*Name) expr()        {}
func (*Constant) expr()    {}
func (*Binary) expr()      {}
func (*Scale) expr()       {}
func (*Multiplex) expr()   {}
func (*Filter) expr()      {}
func (*Aggregation) expr() {}
func (*SumImage) expr()    {}

// sub writes e, parenthesized unless it is atomic
func sub(dst *strings.Builder, e Expr) {
	switch e.(type) {
	case *Name, *Constant:
		e.text(dst)
	default:
		dst.WriteByte('(')
		e.text(dst)
		dst.WriteByte(')')
	}
}

func idents(dst *strings.Builder, lst []Ident) {
	for i := range lst {
		if i > 0 {
			dst.WriteString(", ")
		}
		dst.WriteString(lst[i].Name)
	}
}

func (n *Name) text(dst *strings.Builder) { dst.WriteString(n.Name) }

func (c *Constant) text(dst *strings.Builder) {
	dst.WriteString(strconv.FormatFloat(c.Value, 'g', -1, 64))
}

func (b *Binary) text(dst *strings.Builder) {
	sub(dst, b.Left)
	dst.WriteByte(' ')
	dst.WriteString(b.Op.String())
	dst.WriteByte(' ')
	sub(dst, b.Right)
}

func (s *Scale) text(dst *strings.Builder) {
	sub(dst, s.Operand)
	if s.Divide {
		dst.WriteString(" scale divide ")
	} else {
		dst.WriteString(" scale by ")
	}
	dst.WriteString(strconv.FormatFloat(s.Factor, 'g', -1, 64))
}

func (m *Multiplex) text(dst *strings.Builder) {
	sub(dst, m.IfTrue)
	dst.WriteString(" where ")
	m.Criterion.text(dst)
	dst.WriteString(" else ")
	sub(dst, m.IfFalse)
}

func (f *Filter) text(dst *strings.Builder) {
	sub(dst, f.Basis)
	dst.WriteString(" where ")
	f.Criterion.text(dst)
}

func (a *Aggregation) text(dst *strings.Builder) {
	sub(dst, a.Operand)
	dst.WriteString(" by [")
	idents(dst, a.Axes)
	dst.WriteByte(']')
}

func (s *SumImage) text(dst *strings.Builder) {
	sub(dst, s.Operand)
	dst.WriteString(" sum")
	for i := range s.Mappings {
		dst.WriteByte(' ')
		s.Mappings[i].text(dst)
	}
	if s.Axes != nil {
		dst.WriteString(" by [")
		idents(dst, s.Axes)
		dst.WriteByte(']')
	}
}

// Comparison is 'axis relop rhs'.
type Comparison struct {
	Axis Ident
	Op   tensor.Relop
	RHS  Operand
}

// Membership is 'axis in rhs'.
type Membership struct {
	Axis Ident
	RHS  Operand
}

// Negation is 'not inner'.
type Negation struct {
	Inner Criterion
	At    Span
}

// Conjunction is 'a and b and ...'.
// At is the span of the first 'and'.
type Conjunction struct {
	Terms []Criterion
	At    Span
}

func (c *Comparison) Pos() Span  { return c.Axis.At }
func (m *Membership) Pos() Span  { return m.Axis.At }
func (n *Negation) Pos() Span    { return n.At }
func (c *Conjunction) Pos() Span { return c.At }

func (*Comparison) criterion()  {}
func (*Membership) criterion()  {}
func (*Negation) criterion()    {}
func (*Conjunction) criterion() {}

func (c *Comparison) text(dst *strings.Builder) {
	dst.WriteString(c.Axis.Name)
	dst.WriteByte(' ')
	dst.WriteString(c.Op.String())
	dst.WriteByte(' ')
	c.RHS.text(dst)
}

func (m *Membership) text(dst *strings.Builder) {
	dst.WriteString(m.Axis.Name)
	dst.WriteString(" in ")
	m.RHS.text(dst)
}

func (n *Negation) text(dst *strings.Builder) {
	dst.WriteString("not ")
	if _, ok := n.Inner.(*Conjunction); ok {
		dst.WriteByte('(')
		n.Inner.text(dst)
		dst.WriteByte(')')
		return
	}
	n.Inner.text(dst)
}

func (c *Conjunction) text(dst *strings.Builder) {
	for i := range c.Terms {
		if i > 0 {
			dst.WriteString(" and ")
		}
		c.Terms[i].text(dst)
	}
}

// Literal is a constant right-hand-side.
// Value is an int64, float64 or string.
type Literal struct {
	Value tensor.Value
	At    Span
}

// Variable is a free variable '$name',
// bound when the tensor is queried.
type Variable struct {
	Name string
	At   Span
}

// List is '[literal, ...]'.
type List struct {
	Items []*Literal
	At    Span
}

func (l *Literal) Pos() Span  { return l.At }
func (v *Variable) Pos() Span { return v.At }
func (l *List) Pos() Span     { return l.At }

func (*Literal) operand()  {}
func (*Variable) operand() {}
func (*List) operand()     {}

func (l *Literal) text(dst *strings.Builder) {
	dst.WriteString(tensor.FormatValue(l.Value))
}

func (v *Variable) text(dst *strings.Builder) {
	dst.WriteByte('$')
	dst.WriteString(v.Name)
}

func (l *List) text(dst *strings.Builder) {
	dst.WriteByte('[')
	for i := range l.Items {
		if i > 0 {
			dst.WriteString(", ")
		}
		l.Items[i].text(dst)
	}
	dst.WriteByte(']')
}
