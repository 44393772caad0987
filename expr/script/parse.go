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

// Package script implements the lexer
// and parser for tql scripts.
//
// A script is a sequence of definitions:
//
//	gross is quantity_sold * unit_price
//	revenue is gross sum {orderid -> shipcountry} by [shipcountry]
//	one_country is revenue where shipcountry = $country
//
// Syntax errors are reported through a callback
// and the parser resumes at the next definition,
// so one malformed line does not hide the rest
// of the script.
package script

import (
	"errors"
	"fmt"

	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/tensor"
)

// SyntaxError is the error type reported
// for malformed scripts.
type SyntaxError struct {
	At  expr.Span
	Msg string
}

func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at position %d: %s", s.At.Start, s.Msg)
}

type parser struct {
	toks []lexeme
	pos  int
}

func (p *parser) peek() *lexeme { return &p.toks[p.pos] }

func (p *parser) peekat(i int) *lexeme {
	if p.pos+i < len(p.toks) {
		return &p.toks[p.pos+i]
	}
	return &p.toks[len(p.toks)-1]
}

func (p *parser) advance() *lexeme {
	l := &p.toks[p.pos]
	if l.tok != tokEOF {
		p.pos++
	}
	return l
}

func (p *parser) accept(t token) (*lexeme, bool) {
	if p.peek().tok == t {
		return p.advance(), true
	}
	return nil, false
}

func (p *parser) errorf(l *lexeme, f string, args ...interface{}) error {
	return &SyntaxError{At: l.at, Msg: fmt.Sprintf(f, args...)}
}

func (p *parser) unexpected(want string) error {
	l := p.peek()
	if l.tok == tokIdent {
		return p.errorf(l, "expected %s; found %q", want, l.text)
	}
	return p.errorf(l, "expected %s; found %s", want, l.tok)
}

func (p *parser) expect(t token) (*lexeme, error) {
	if l, ok := p.accept(t); ok {
		return l, nil
	}
	return nil, p.unexpected(t.String())
}

// atDefine returns whether the input is
// positioned at the start of a definition
func (p *parser) atDefine() bool {
	return p.peek().tok == tokIdent && p.peekat(1).tok == kwIs
}

// resync skips to the start of the next definition
func (p *parser) resync() {
	if p.peek().tok != tokEOF {
		p.advance()
	}
	for p.peek().tok != tokEOF && !p.atDefine() {
		p.advance()
	}
}

// Parse parses the text of src into a list
// of definitions. Every lexical or syntax error
// is passed to report; a definition containing
// an error is omitted from the result.
func Parse(src *expr.Source, report func(at expr.Span, msg string)) []*expr.Define {
	toks := lex(src.Text, func(err error) {
		var le *LexerError
		if errors.As(err, &le) {
			report(expr.Span{Start: le.Position, End: le.Position + le.Length}, le.Message)
			return
		}
		report(expr.Span{}, err.Error())
	})
	p := &parser{toks: toks}
	var out []*expr.Define
	for p.peek().tok != tokEOF {
		start := p.pos
		d, err := p.define()
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				report(se.At, se.Msg)
			} else {
				report(p.peek().at, err.Error())
			}
			// 'IDENT is' only ever begins a definition,
			// so the next one may be inside the text
			// that failed to parse
			p.pos = start
			p.resync()
			continue
		}
		out = append(out, d)
	}
	return out
}

// ParseString is like Parse, but returns
// all of the errors that were encountered
// as a single error.
func ParseString(text string) ([]*expr.Define, error) {
	var errs []error
	defs := Parse(expr.NewSource("", []byte(text)), func(at expr.Span, msg string) {
		errs = append(errs, &SyntaxError{At: at, Msg: msg})
	})
	return defs, errors.Join(errs...)
}

// ParseExpr parses a single expression.
func ParseExpr(text string) (expr.Expr, error) {
	var errs []error
	toks := lex([]byte(text), func(err error) {
		errs = append(errs, err)
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().tok != tokEOF {
		return nil, p.unexpected("end of input")
	}
	return e, nil
}

func (p *parser) define() (*expr.Define, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(kwIs); err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().tok != tokEOF && !p.atDefine() {
		return nil, p.unexpected("a new definition")
	}
	return &expr.Define{Name: expr.Ident{Name: name.text, At: name.at}, Expr: e}, nil
}

// expr := additive [ 'where' criterion [ 'else' expr ] ]
func (p *parser) expr() (expr.Expr, error) {
	e, err := p.additive()
	if err != nil {
		return nil, err
	}
	where, ok := p.accept(kwWhere)
	if !ok {
		return e, nil
	}
	crit, err := p.criterion()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(kwElse); !ok {
		return &expr.Filter{Basis: e, Criterion: crit, At: where.at}, nil
	}
	alt, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &expr.Multiplex{IfTrue: e, Criterion: crit, IfFalse: alt, At: where.at}, nil
}

func (p *parser) additive() (expr.Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op expr.BinaryOp
		switch p.peek().tok {
		case tokPlus:
			op = expr.Add
		case tokMinus:
			op = expr.Sub
		default:
			return left, nil
		}
		at := p.advance().at
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right, At: at}
	}
}

// term := postfix { ('*' | '/') postfix }
//
// Multiplying or dividing by a numeric
// literal is a Scale rather than a Binary.
func (p *parser) term() (expr.Expr, error) {
	left, err := p.postfix()
	if err != nil {
		return nil, err
	}
	for {
		var op expr.BinaryOp
		switch p.peek().tok {
		case tokStar:
			op = expr.Mul
		case tokSlash:
			op = expr.Div
		default:
			return left, nil
		}
		at := p.advance().at
		right, err := p.postfix()
		if err != nil {
			return nil, err
		}
		if c, ok := right.(*expr.Constant); ok {
			left = &expr.Scale{Operand: left, Factor: c.Value, Divide: op == expr.Div, At: at}
			continue
		}
		if c, ok := left.(*expr.Constant); ok && op == expr.Mul {
			left = &expr.Scale{Operand: right, Factor: c.Value, At: at}
			continue
		}
		left = &expr.Binary{Op: op, Left: left, Right: right, At: at}
	}
}

func (p *parser) postfix() (expr.Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().tok {
		case kwBy:
			at := p.advance().at
			axes, err := p.axes()
			if err != nil {
				return nil, err
			}
			e = &expr.Aggregation{Operand: e, Axes: axes, At: at}
		case kwSum:
			at := p.advance().at
			si := &expr.SumImage{Operand: e, At: at}
			for {
				m, err := p.mapping()
				if err != nil {
					return nil, err
				}
				si.Mappings = append(si.Mappings, m)
				if p.peek().tok != tokLBrace {
					break
				}
			}
			if _, ok := p.accept(kwBy); ok {
				si.Axes, err = p.axes()
				if err != nil {
					return nil, err
				}
			}
			e = si
		case kwScale:
			at := p.advance().at
			divide := false
			switch p.peek().tok {
			case kwBy:
			case kwDivide:
				divide = true
			default:
				return nil, p.unexpected("'by' or 'divide'")
			}
			p.advance()
			f, err := p.number()
			if err != nil {
				return nil, err
			}
			e = &expr.Scale{Operand: e, Factor: f, Divide: divide, At: at}
		default:
			return e, nil
		}
	}
}

// primary := IDENT | NUMBER | '(' expr ')'
func (p *parser) primary() (expr.Expr, error) {
	l := p.peek()
	switch l.tok {
	case tokIdent:
		p.advance()
		return &expr.Name{Name: l.text, At: l.at}, nil
	case tokNumber:
		p.advance()
		return &expr.Constant{Value: tofloat(l.num), At: l.at}, nil
	case tokLParen:
		p.advance()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	}
	if l.tok >= kwAnd {
		return nil, p.errorf(l, "unexpected reserved word %s", l.tok)
	}
	return nil, p.unexpected("a tensor expression")
}

// number := ['-'] NUMBER
func (p *parser) number() (float64, error) {
	neg := false
	if _, ok := p.accept(tokMinus); ok {
		neg = true
	}
	l, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	f := tofloat(l.num)
	if neg {
		f = -f
	}
	return f, nil
}

func tofloat(v tensor.Value) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	panic(fmt.Sprintf("script: unexpected numeric literal %T", v))
}

// idents := IDENT { ',' IDENT }
func (p *parser) idents() ([]expr.Ident, error) {
	var out []expr.Ident
	for {
		l, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		out = append(out, expr.Ident{Name: l.text, At: l.at})
		if _, ok := p.accept(tokComma); !ok {
			return out, nil
		}
	}
}

// axes := '[' idents ']'
func (p *parser) axes() ([]expr.Ident, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	if p.peek().tok == tokRBracket {
		// a scalar result
		p.advance()
		return []expr.Ident{}, nil
	}
	out, err := p.idents()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return out, nil
}

// mapping := '{' idents '->' idents '}'
func (p *parser) mapping() (expr.Mapping, error) {
	var m expr.Mapping
	if _, err := p.expect(tokLBrace); err != nil {
		return m, err
	}
	var err error
	m.Domain, err = p.idents()
	if err != nil {
		return m, err
	}
	arrow, err := p.expect(tokArrow)
	if err != nil {
		return m, err
	}
	m.At = arrow.at
	m.Range, err = p.idents()
	if err != nil {
		return m, err
	}
	_, err = p.expect(tokRBrace)
	return m, err
}

// criterion := unary { 'and' unary }
func (p *parser) criterion() (expr.Criterion, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	and, ok := p.accept(kwAnd)
	if !ok {
		return first, nil
	}
	conj := &expr.Conjunction{Terms: []expr.Criterion{first}, At: and.at}
	for {
		next, err := p.unary()
		if err != nil {
			return nil, err
		}
		conj.Terms = append(conj.Terms, next)
		if _, ok := p.accept(kwAnd); !ok {
			return conj, nil
		}
	}
}

// unary := 'not' unary | '(' criterion ')' | IDENT relop rhs | IDENT 'in' set
func (p *parser) unary() (expr.Criterion, error) {
	l := p.peek()
	switch l.tok {
	case kwNot:
		p.advance()
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &expr.Negation{Inner: inner, At: l.at}, nil
	case tokLParen:
		p.advance()
		c, err := p.criterion()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return c, nil
	case tokIdent:
		p.advance()
		axis := expr.Ident{Name: l.text, At: l.at}
		if op, ok := p.accept(tokRelop); ok {
			rhs, err := p.rhs()
			if err != nil {
				return nil, err
			}
			return &expr.Comparison{Axis: axis, Op: op.op, RHS: rhs}, nil
		}
		if _, ok := p.accept(kwIn); ok {
			set, err := p.set()
			if err != nil {
				return nil, err
			}
			return &expr.Membership{Axis: axis, RHS: set}, nil
		}
		if p.peek().tok == kwNot && p.peekat(1).tok == kwIn {
			not := p.advance()
			p.advance()
			set, err := p.set()
			if err != nil {
				return nil, err
			}
			return &expr.Negation{Inner: &expr.Membership{Axis: axis, RHS: set}, At: not.at}, nil
		}
		return nil, p.unexpected("a comparison or 'in'")
	}
	return nil, p.unexpected("a criterion")
}

// rhs := literal | VARIABLE
func (p *parser) rhs() (expr.Operand, error) {
	if v, ok := p.accept(tokVariable); ok {
		return &expr.Variable{Name: v.text, At: v.at}, nil
	}
	return p.literal()
}

// literal := ['-'] NUMBER | STRING
func (p *parser) literal() (*expr.Literal, error) {
	l := p.peek()
	switch l.tok {
	case tokString:
		p.advance()
		return &expr.Literal{Value: l.text, At: l.at}, nil
	case tokNumber:
		p.advance()
		return &expr.Literal{Value: l.num, At: l.at}, nil
	case tokMinus:
		p.advance()
		n, err := p.expect(tokNumber)
		if err != nil {
			return nil, err
		}
		at := expr.Span{Start: l.at.Start, End: n.at.End}
		switch v := n.num.(type) {
		case int64:
			return &expr.Literal{Value: -v, At: at}, nil
		case float64:
			return &expr.Literal{Value: -v, At: at}, nil
		}
	}
	return nil, p.unexpected("a literal or variable")
}

// set := '[' literal { ',' literal } ']' | VARIABLE
func (p *parser) set() (expr.Operand, error) {
	if v, ok := p.accept(tokVariable); ok {
		return &expr.Variable{Name: v.text, At: v.at}, nil
	}
	open, err := p.expect(tokLBracket)
	if err != nil {
		return nil, err
	}
	lst := &expr.List{}
	for {
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		lst.Items = append(lst.Items, lit)
		if _, ok := p.accept(tokComma); !ok {
			break
		}
	}
	end, err := p.expect(tokRBracket)
	if err != nil {
		return nil, err
	}
	lst.At = expr.Span{Start: open.at.Start, End: end.at.End}
	return lst, nil
}
