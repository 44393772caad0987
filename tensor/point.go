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
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dchest/siphash"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Coord is one coordinate of a Point.
type Coord struct {
	Axis  string
	Value Value
}

// Point is an immutable assignment of
// values to the axes of a space.
//
// Points are compared structurally, so points
// produced by different tensors over the same
// space can be joined and grouped together.
type Point struct {
	coords []Coord // sorted by Axis
}

// PointOf constructs a point from a map
// of axis names to values. The values must
// already be normalized (see Normalize).
func PointOf(m map[string]Value) Point {
	keys := maps.Keys(m)
	slices.Sort(keys)
	coords := make([]Coord, len(keys))
	for i, k := range keys {
		coords[i] = Coord{Axis: k, Value: m[k]}
	}
	return Point{coords: coords}
}

// NewPoint constructs a point from
// coordinates in any order. Duplicate
// axes are an error.
func NewPoint(coords ...Coord) (Point, error) {
	lst := slices.Clone(coords)
	slices.SortFunc(lst, func(a, b Coord) bool {
		return a.Axis < b.Axis
	})
	for i := 1; i < len(lst); i++ {
		if lst[i].Axis == lst[i-1].Axis {
			return Point{}, fmt.Errorf("%w %q", ErrDuplicateAxis, lst[i].Axis)
		}
	}
	return Point{coords: lst}, nil
}

// Len returns the number of coordinates in p.
func (p Point) Len() int { return len(p.coords) }

// At returns the i'th coordinate in axis order.
func (p Point) At(i int) Coord { return p.coords[i] }

func (p Point) index(axis string) int {
	for i := range p.coords {
		if p.coords[i].Axis == axis {
			return i
		}
	}
	return -1
}

// Get returns the value of the given axis.
func (p Point) Get(axis string) (Value, bool) {
	i := p.index(axis)
	if i < 0 {
		return nil, false
	}
	return p.coords[i].Value, true
}

// MustGet is like Get, but panics when the
// point has no such axis. Nodes only ever
// receive points over their declared space,
// so a missing axis is a programming error.
func (p Point) MustGet(axis string) Value {
	v, ok := p.Get(axis)
	if !ok {
		panic(fmt.Sprintf("tensor: point %s has no axis %q", p, axis))
	}
	return v
}

// Space returns the space that p covers.
func (p Point) Space() Space {
	axes := make([]string, len(p.coords))
	for i := range p.coords {
		axes[i] = p.coords[i].Axis
	}
	return Space{axes: axes}
}

// Project returns the restriction of p to
// the axes of s. Every axis of s must be
// present in p.
func (p Point) Project(s Space) Point {
	if p.covers(s) {
		return p
	}
	out := make([]Coord, len(s.axes))
	for i, a := range s.axes {
		out[i] = Coord{Axis: a, Value: p.MustGet(a)}
	}
	return Point{coords: out}
}

// covers returns whether p is exactly over s
func (p Point) covers(s Space) bool {
	if len(s.axes) != len(p.coords) {
		return false
	}
	for i := range s.axes {
		if s.axes[i] != p.coords[i].Axis {
			return false
		}
	}
	return true
}

// With returns a point containing the
// coordinates of both p and q. Coordinates
// of q replace those of p on shared axes.
func (p Point) With(q Point) Point {
	out := make([]Coord, 0, len(p.coords)+len(q.coords))
	i, j := 0, 0
	for i < len(p.coords) || j < len(q.coords) {
		switch {
		case j == len(q.coords) || (i < len(p.coords) && p.coords[i].Axis < q.coords[j].Axis):
			out = append(out, p.coords[i])
			i++
		case i == len(p.coords) || q.coords[j].Axis < p.coords[i].Axis:
			out = append(out, q.coords[j])
			j++
		default:
			out = append(out, q.coords[j])
			i++
			j++
		}
	}
	return Point{coords: out}
}

// Equal returns whether p and q have
// the same axes and the same values.
func (p Point) Equal(q Point) bool {
	if len(p.coords) != len(q.coords) {
		return false
	}
	for i := range p.coords {
		if p.coords[i].Axis != q.coords[i].Axis ||
			!equal(p.coords[i].Value, q.coords[i].Value) {
			return false
		}
	}
	return true
}

// AppendKey appends a canonical binary
// encoding of p to dst. Equal points
// produce identical keys.
func (p Point) AppendKey(dst []byte) []byte {
	for i := range p.coords {
		dst = binary.AppendUvarint(dst, uint64(len(p.coords[i].Axis)))
		dst = append(dst, p.coords[i].Axis...)
		switch v := p.coords[i].Value.(type) {
		case int64:
			dst = append(dst, 'i')
			dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
		case float64:
			dst = append(dst, 'f')
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
		case string:
			dst = append(dst, 's')
			dst = binary.AppendUvarint(dst, uint64(len(v)))
			dst = append(dst, v...)
		case bool:
			dst = append(dst, 'b', byte(btoi(v)))
		case time.Time:
			dst = append(dst, 't')
			dst = binary.LittleEndian.AppendUint64(dst, uint64(v.UnixNano()))
		default:
			panic(fmt.Sprintf("tensor: un-normalized coordinate %T on axis %q", v, p.coords[i].Axis))
		}
	}
	return dst
}

// arbitrary siphash keys; hashes are
// never persisted, only compared in-process
const (
	k0 = 0x5d1ec810febed702
	k1 = 0x40fd7fee17262f71
)

// Hash returns a 64-bit hash of p
// suitable for hash tables.
func (p Point) Hash() uint64 {
	var tmp [64]byte
	return siphash.Hash(k0, k1, p.AppendKey(tmp[:0]))
}

// String implements fmt.Stringer.
func (p Point) String() string {
	var out strings.Builder
	out.WriteByte('{')
	for i := range p.coords {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(p.coords[i].Axis)
		out.WriteString(": ")
		out.WriteString(FormatValue(p.coords[i].Value))
	}
	out.WriteByte('}')
	return out.String()
}
