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
	"sort"
)

// Source is the text of a script
// along with a line table for
// converting offsets to positions.
type Source struct {
	Name string
	Text []byte

	lines []int // offset of the start of each line
}

// NewSource constructs a Source.
func NewSource(name string, text []byte) *Source {
	lines := []int{0}
	for i, b := range text {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Source{Name: name, Text: text, lines: lines}
}

// Position returns the 1-based line and
// column of the byte at offset off.
func (s *Source) Position(off int) (line, col int) {
	if off < 0 {
		off = 0
	}
	if off > len(s.Text) {
		off = len(s.Text)
	}
	i := sort.Search(len(s.lines), func(i int) bool {
		return s.lines[i] > off
	}) - 1
	return i + 1, off - s.lines[i] + 1
}

// Snippet returns the text covered by sp.
func (s *Source) Snippet(sp Span) string {
	if sp.Start < 0 || sp.End > len(s.Text) || sp.Start > sp.End {
		return ""
	}
	return string(s.Text[sp.Start:sp.End])
}
