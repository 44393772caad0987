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

package units

import (
	"fmt"
	"strconv"
	"strings"
)

type unitParser struct {
	u    *Universe
	text string
	pos  int
}

func (p *unitParser) chompws() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t') {
		p.pos++
	}
}

func (p *unitParser) peek() byte {
	p.chompws()
	if p.pos >= len(p.text) {
		return 0
	}
	return p.text[p.pos]
}

func (p *unitParser) errorf(f string, args ...interface{}) error {
	return fmt.Errorf("unit %q at position %d: %s", p.text, p.pos, fmt.Sprintf(f, args...))
}

// product := term { ('*' | '/') term }
func (p *unitParser) product() (Unit, error) {
	out, err := p.term()
	if err != nil {
		return out, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			t, err := p.term()
			if err != nil {
				return out, err
			}
			out = out.Mul(t)
		case '/':
			p.pos++
			t, err := p.term()
			if err != nil {
				return out, err
			}
			out = out.Div(t)
		default:
			return out, nil
		}
	}
}

// term := '1' | '(' product ')' | name [ '^' int ]
func (p *unitParser) term() (Unit, error) {
	c := p.peek()
	switch {
	case c == '1':
		p.pos++
		return Dimensionless, nil
	case c == '(':
		p.pos++
		inner, err := p.product()
		if err != nil {
			return inner, err
		}
		if p.peek() != ')' {
			return inner, p.errorf("expected ')'")
		}
		p.pos++
		return p.power(inner)
	case c >= 'a' && c <= 'z', c == '_':
		start := p.pos
		for p.pos < len(p.text) && isident(p.text[p.pos]) {
			p.pos++
		}
		base, err := p.u.Unit(p.text[start:p.pos])
		if err != nil {
			return base, err
		}
		return p.power(base)
	case c == 0:
		return Dimensionless, p.errorf("unexpected end of input")
	default:
		return Dimensionless, p.errorf("unexpected character %q", c)
	}
}

func (p *unitParser) power(base Unit) (Unit, error) {
	if p.peek() != '^' {
		return base, nil
	}
	p.pos++
	p.chompws()
	start := p.pos
	if p.pos < len(p.text) && p.text[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.text) && p.text[p.pos] >= '0' && p.text[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.text[start:p.pos])
	if err != nil {
		return base, p.errorf("bad exponent")
	}
	return base.Pow(n), nil
}

// ParseUnit parses a unit expression like
// "dollar/widget" or "meter*second^-2" using
// the named units of the universe. The empty
// string and "1" both denote Dimensionless.
func (u *Universe) ParseUnit(text string) (Unit, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Dimensionless, nil
	}
	p := &unitParser{u: u, text: text}
	out, err := p.product()
	if err != nil {
		return out, err
	}
	if p.peek() != 0 {
		return out, p.errorf("unexpected trailing text")
	}
	return out, nil
}
