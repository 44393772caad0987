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

// Package units implements units of measure
// and the universe of discourse (the named
// units and axes) that tensor types are built from.
package units

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrAlreadyRegistered is returned when
	// a unit or axis name is registered twice.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrUnknownAxis is returned from
	// Universe.Axis when the name is not an axis.
	ErrUnknownAxis = errors.New("unknown axis")
	// ErrUnknownUnit is returned from
	// Universe.Unit when the name is not a unit.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrInvalidName is returned when a
	// name is not a valid identifier.
	ErrInvalidName = errors.New("invalid name")
)

// Universe is the universe of discourse
// for a set of scripts: the fundamental
// units of measure and the axes that tensors
// may be dimensioned by.
//
// Units and axes share a single case-insensitive
// namespace. A Universe is populated before any
// script is compiled and is only read afterwards;
// it is not safe to register names concurrently
// with other use.
type Universe struct {
	units map[string]Unit
	axes  map[string]Axis
}

// NewUniverse returns an empty Universe.
func NewUniverse() *Universe {
	return &Universe{
		units: make(map[string]Unit),
		axes:  make(map[string]Axis),
	}
}

func isident(x byte) bool {
	return (x >= 'a' && x <= 'z') || (x >= '0' && x <= '9') || x == '_'
}

// canonical lower-cases name and
// validates that it is an identifier
func canonical(name string) (string, error) {
	name = strings.ToLower(name)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for i := 0; i < len(name); i++ {
		if !isident(name[i]) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

func (u *Universe) taken(name string) bool {
	_, unit := u.units[name]
	_, axis := u.axes[name]
	return unit || axis
}

// Fundamental creates a new fundamental unit
// with the given name. The result is distinct
// from every other unit ever created.
func (u *Universe) Fundamental(name string) (Unit, error) {
	name, err := canonical(name)
	if err != nil {
		return Dimensionless, err
	}
	if u.taken(name) {
		return Dimensionless, fmt.Errorf("unit %q: %w", name, ErrAlreadyRegistered)
	}
	unit := Unit{factors: []factor{{base: newFundamental(name), exp: 1}}}
	u.units[name] = unit
	return unit, nil
}

// Define gives a name to a derived unit
// (for example "mph" for mile/hour).
func (u *Universe) Define(name string, unit Unit) error {
	name, err := canonical(name)
	if err != nil {
		return err
	}
	if u.taken(name) {
		return fmt.Errorf("unit %q: %w", name, ErrAlreadyRegistered)
	}
	u.units[name] = unit
	return nil
}

// Unit looks up a named unit.
func (u *Universe) Unit(name string) (Unit, error) {
	unit, ok := u.units[strings.ToLower(name)]
	if !ok {
		return Dimensionless, fmt.Errorf("%w %q", ErrUnknownUnit, name)
	}
	return unit, nil
}

// RegisterAxis adds an axis to the universe.
// Registering a name twice is an error.
func (u *Universe) RegisterAxis(a Axis) error {
	name, err := canonical(a.Name)
	if err != nil {
		return err
	}
	if u.taken(name) {
		return fmt.Errorf("axis %q: %w", name, ErrAlreadyRegistered)
	}
	a.Name = name
	u.axes[name] = a
	return nil
}

// Axis looks up an axis by name.
func (u *Universe) Axis(name string) (Axis, error) {
	a, ok := u.axes[strings.ToLower(name)]
	if !ok {
		return Axis{}, fmt.Errorf("%w %q", ErrUnknownAxis, name)
	}
	return a, nil
}

// IsAxis returns whether name is a registered axis.
func (u *Universe) IsAxis(name string) bool {
	_, ok := u.axes[name]
	return ok
}

// Axes returns the sorted list of axis names.
func (u *Universe) Axes() []string {
	lst := maps.Keys(u.axes)
	slices.Sort(lst)
	return lst
}

// Units returns the sorted list of unit names.
func (u *Universe) Units() []string {
	lst := maps.Keys(u.units)
	slices.Sort(lst)
	return lst
}
