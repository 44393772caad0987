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
	"fmt"
)

// TransformFunc computes the coordinates
// along the range axes of a transform from
// a point that covers at least its domain axes.
type TransformFunc func(p Point) (Point, error)

// Transform is a pure function from the
// domain axes of a point to its range axes,
// used to enrich points with derived dimensions
// (e.g. country -> continent).
type Transform struct {
	Domain Space
	Range  Space
	Fn     TransformFunc
}

// Apply returns p extended with the range
// coordinates computed by t.
func (t *Transform) Apply(p Point) (Point, error) {
	out, err := t.Fn(p.Project(t.Domain))
	if err != nil {
		return p, err
	}
	if !out.Space().Equal(t.Range) {
		return p, fmt.Errorf("transform %s produced point %s; expected axes %s", t, out, t.Range)
	}
	coords := make([]Coord, len(out.coords))
	for i, c := range out.coords {
		v, err := Normalize(c.Value)
		if err != nil {
			return p, fmt.Errorf("transform %s: axis %s: %w", t, c.Axis, err)
		}
		coords[i] = Coord{Axis: c.Axis, Value: v}
	}
	return p.With(Point{coords: coords}), nil
}

// String implements fmt.Stringer.
func (t *Transform) String() string {
	return "{" + t.Domain.String() + " -> " + t.Range.String() + "}"
}

// Attribute builds a single-axis transform
// from a function of one value.
func Attribute(domain, rng string, fn func(Value) (Value, error)) *Transform {
	return &Transform{
		Domain: MustSpace(domain),
		Range:  MustSpace(rng),
		Fn: func(p Point) (Point, error) {
			v, err := fn(p.MustGet(domain))
			if err != nil {
				return Point{}, fmt.Errorf("%s -> %s: %w", domain, rng, err)
			}
			v, err = Normalize(v)
			if err != nil {
				return Point{}, fmt.Errorf("%s -> %s: %w", domain, rng, err)
			}
			return Point{coords: []Coord{{Axis: rng, Value: v}}}, nil
		},
	}
}
