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

package fuzzy

import (
	"testing"
)

func TestDistance(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"a", "a", 0},
		{"ABC", "AXC", 1},
		// substitution
		{"ab", "cb", 1},
		{"abcd", "efgd", 3},
		// transposition
		{"ab", "ba", 1},
		{"ab", "cba", 2},
		{"abc", "cb", 2},
		{"abcd", "edc", 3},
		{"ca", "abc", 2},
		// deletion and insertion
		{"ab", "b", 1},
		{"b", "ab", 1},
		{"productid", "prodcutid", 1},
		{"country", "contry", 1},
		// multi-byte runes count once
		{"naïve", "naive", 1},
		{"日本", "本日", 1},
	}
	for i := range testcases {
		tc := &testcases[i]
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		if got := Distance(tc.b, tc.a); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	names := []string{"quantity_sold", "unit_price", "orderid", "productid", "shipcountry"}
	testcases := []struct {
		word, want string
		ok         bool
	}{
		{"orderd", "orderid", true},
		{"prodcutid", "productid", true},
		{"unit_prize", "unit_price", true},
		{"orderid", "", false},
		{"revenue", "", false},
		{"", "", false},
	}
	for _, tc := range testcases {
		got, ok := Suggest(tc.word, names)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tc.word, got, ok, tc.want, tc.ok)
		}
	}
}
