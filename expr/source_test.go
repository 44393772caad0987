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

package expr

import (
	"testing"
)

func TestSourcePosition(t *testing.T) {
	lines := []string{
		"1234",
		"123456789_123456789_",
		"",
		"123456",
		"1",
	}
	var text []byte
	for _, line := range lines {
		text = append(text, line...)
		text = append(text, '\n')
	}
	s := NewSource("test", text)
	pos := 0
	for line := range lines {
		for column := 0; column <= len(lines[line]); column++ {
			l, c := s.Position(pos)
			if c != column+1 || l != line+1 {
				t.Errorf("offset %d: got %d:%d, want %d:%d", pos, l, c, line+1, column+1)
			}
			pos++
		}
	}
}

func TestToString(t *testing.T) {
	d := &Define{
		Name: Ident{Name: "net"},
		Expr: &Binary{
			Op:   Sub,
			Left: &Name{Name: "gross"},
			Right: &Aggregation{
				Operand: &Scale{Operand: &Name{Name: "discount"}, Factor: 0.5},
				Axes:    []Ident{{Name: "productid"}, {Name: "orderid"}},
			},
		},
	}
	want := "net is gross - ((discount scale by 0.5) by [productid, orderid])"
	if got := ToString(d); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}
