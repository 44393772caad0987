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

	"github.com/SnellerInc/tql/units"

	"golang.org/x/exp/slices"
)

// ErrDuplicateAxis is returned from NewSpace
// when an axis name appears more than once.
var ErrDuplicateAxis = errors.New("duplicate axis")

// Space is a finite set of axis names.
// Spaces are immutable; the zero Space is empty.
type Space struct {
	axes []string // sorted, unique
}

// NewSpace constructs a Space from a list
// of axis names. The order of names is
// irrelevant, but duplicates are an error.
func NewSpace(names ...string) (Space, error) {
	lst := slices.Clone(names)
	slices.Sort(lst)
	for i := 1; i < len(lst); i++ {
		if lst[i] == lst[i-1] {
			return Space{}, fmt.Errorf("%w %q", ErrDuplicateAxis, lst[i])
		}
	}
	return Space{axes: lst}, nil
}

// MustSpace is like NewSpace, but panics on error.
func MustSpace(names ...string) Space {
	s, err := NewSpace(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of axes in s.
func (s Space) Len() int { return len(s.axes) }

// At returns the i'th axis in sorted order.
func (s Space) At(i int) string { return s.axes[i] }

// Axes returns a copy of the sorted axis names.
func (s Space) Axes() []string { return slices.Clone(s.axes) }

// Contains returns whether axis is a member of s.
func (s Space) Contains(axis string) bool {
	return slices.Contains(s.axes, axis)
}

// Equal returns whether s and o contain
// exactly the same axes.
func (s Space) Equal(o Space) bool {
	return slices.Equal(s.axes, o.axes)
}

// SubsetOf returns whether every axis in s is in o.
func (s Space) SubsetOf(o Space) bool {
	for _, a := range s.axes {
		if !o.Contains(a) {
			return false
		}
	}
	return true
}

// Union returns the axes in either s or o.
func (s Space) Union(o Space) Space {
	out := slices.Clone(s.axes)
	for _, a := range o.axes {
		if !s.Contains(a) {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return Space{axes: out}
}

// Minus returns the axes of s that are not in o.
func (s Space) Minus(o Space) Space {
	var out []string
	for _, a := range s.axes {
		if !o.Contains(a) {
			out = append(out, a)
		}
	}
	return Space{axes: out}
}

// String implements fmt.Stringer.
func (s Space) String() string {
	return "[" + strings.Join(s.axes, ", ") + "]"
}

// SpaceError describes two spaces that
// were required to be equal but were not.
type SpaceError struct {
	Left, Right Space
}

func (s *SpaceError) Error() string {
	return fmt.Sprintf("mismatched dimensions: %s versus %s", s.Left, s.Right)
}

// RequireSymmetry returns a *SpaceError
// unless a and b are the same set of axes.
func RequireSymmetry(a, b Space) error {
	if !a.Equal(b) {
		return &SpaceError{Left: a, Right: b}
	}
	return nil
}

// Type is the type of a tensor: the space
// it is dimensioned by and its unit of measure.
type Type struct {
	Space Space
	Unit  units.Unit
}

// Equal returns whether both components
// of t and o are equal.
func (t Type) Equal(o Type) bool {
	return t.Space.Equal(o.Space) && t.Unit.Equal(o.Unit)
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return t.Space.String() + " " + t.Unit.String()
}
