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
	"strconv"
	"strings"
	"sync/atomic"
)

// serials orders fundamental units across
// every Universe in the process, so that
// two fundamentals never compare equal
// even when they share a printed name
var serials uint64

// fundamental is a base unit of measure.
// Fundamentals are only ever compared by pointer.
type fundamental struct {
	name   string
	serial uint64
}

func newFundamental(name string) *fundamental {
	return &fundamental{name: name, serial: atomic.AddUint64(&serials, 1)}
}

type factor struct {
	base *fundamental
	exp  int
}

// Unit is a unit of measure: a product of
// fundamental units raised to non-zero integer
// powers. Units are immutable values; the zero
// Unit is Dimensionless.
type Unit struct {
	// factors are sorted by base.serial
	// and are never modified after construction
	factors []factor
}

// Dimensionless is the multiplicative identity.
var Dimensionless = Unit{}

// IsDimensionless returns true if every
// exponent of u is zero.
func (u Unit) IsDimensionless() bool { return len(u.factors) == 0 }

// IsFundamental returns true if u is a single
// fundamental unit raised to the first power.
func (u Unit) IsFundamental() bool {
	return len(u.factors) == 1 && u.factors[0].exp == 1
}

// Equal returns whether u and o have identical
// exponent vectors over the fundamental units.
func (u Unit) Equal(o Unit) bool {
	if len(u.factors) != len(o.factors) {
		return false
	}
	for i := range u.factors {
		if u.factors[i] != o.factors[i] {
			return false
		}
	}
	return true
}

// combine merges the factors of a and b,
// scaling the exponents of b by sign
func combine(a, b Unit, sign int) Unit {
	out := make([]factor, 0, len(a.factors)+len(b.factors))
	i, j := 0, 0
	for i < len(a.factors) || j < len(b.factors) {
		switch {
		case j == len(b.factors) ||
			(i < len(a.factors) && a.factors[i].base.serial < b.factors[j].base.serial):
			out = append(out, a.factors[i])
			i++
		case i == len(a.factors) || b.factors[j].base.serial < a.factors[i].base.serial:
			out = append(out, factor{base: b.factors[j].base, exp: sign * b.factors[j].exp})
			j++
		default:
			exp := a.factors[i].exp + sign*b.factors[j].exp
			if exp != 0 {
				out = append(out, factor{base: a.factors[i].base, exp: exp})
			}
			i++
			j++
		}
	}
	if len(out) == 0 {
		return Dimensionless
	}
	return Unit{factors: out}
}

// Mul returns the product u*o.
func (u Unit) Mul(o Unit) Unit { return combine(u, o, 1) }

// Div returns the quotient u/o.
func (u Unit) Div(o Unit) Unit { return combine(u, o, -1) }

// Inv returns the reciprocal of u.
func (u Unit) Inv() Unit { return combine(Dimensionless, u, -1) }

// Pow returns u raised to the power n.
func (u Unit) Pow(n int) Unit {
	if n == 0 || len(u.factors) == 0 {
		return Dimensionless
	}
	out := make([]factor, len(u.factors))
	for i := range u.factors {
		out[i] = factor{base: u.factors[i].base, exp: u.factors[i].exp * n}
	}
	return Unit{factors: out}
}

func writeFactors(dst *strings.Builder, lst []factor) {
	for i := range lst {
		if i > 0 {
			dst.WriteByte('*')
		}
		dst.WriteString(lst[i].base.name)
		if lst[i].exp != 1 {
			dst.WriteByte('^')
			dst.WriteString(strconv.Itoa(lst[i].exp))
		}
	}
}

// String implements fmt.Stringer.
//
// Units print as a product of the positive powers
// over a product of the negative powers, e.g.
// "dollar/widget" or "1/(day*widget)".
// Dimensionless prints as "1".
func (u Unit) String() string {
	var num, den []factor
	for _, f := range u.factors {
		if f.exp > 0 {
			num = append(num, f)
		} else {
			den = append(den, factor{base: f.base, exp: -f.exp})
		}
	}
	var out strings.Builder
	if len(num) == 0 {
		out.WriteByte('1')
	} else {
		writeFactors(&out, num)
	}
	if len(den) > 0 {
		out.WriteByte('/')
		if len(den) > 1 {
			out.WriteByte('(')
		}
		writeFactors(&out, den)
		if len(den) > 1 {
			out.WriteByte(')')
		}
	}
	return out.String()
}
