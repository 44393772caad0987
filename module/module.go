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

// Package module implements the registry
// of named tensors, transforms and free
// variables that scripts are compiled against,
// along with the planner that compiles them
// and the queries that evaluate the result.
//
// A Module is populated by a single goroutine
// (registration and script compilation) and is
// read-only afterwards, at which point queries
// may run concurrently.
package module

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/tql/plan"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Usage is the way a free variable is used:
// the axis it is compared against, and whether
// it names a list of values (after 'in') or a
// single value.
type Usage struct {
	Axis   string
	Plural bool
}

func (u Usage) String() string {
	if u.Plural {
		return "list of " + u.Axis
	}
	return u.Axis
}

// Module is a collection of named tensors
// over a shared units.Universe.
type Module struct {
	universe *units.Universe
	logf     func(f string, args ...interface{})

	tensors map[string]tensor.Tensor
	names   []string // registration order
	invalid map[string]struct{}
	free    map[string][]string // free variables of each tensor

	transforms map[string]*tensor.Transform
	variables  map[string]Usage
}

// Option configures a Module.
type Option func(m *Module)

// WithLogf sets the function that receives
// log lines from the module and its queries.
func WithLogf(logf func(f string, args ...interface{})) Option {
	return func(m *Module) { m.logf = logf }
}

// New constructs an empty Module over u.
func New(u *units.Universe, opts ...Option) *Module {
	m := &Module{
		universe:   u,
		logf:       func(string, ...interface{}) {},
		tensors:    make(map[string]tensor.Tensor),
		invalid:    make(map[string]struct{}),
		free:       make(map[string][]string),
		transforms: make(map[string]*tensor.Transform),
		variables:  make(map[string]Usage),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Universe returns the universe the
// module was constructed with.
func (m *Module) Universe() *units.Universe { return m.universe }

// known returns whether name has been
// defined, successfully or not
func (m *Module) known(name string) bool {
	_, ok := m.tensors[name]
	if !ok {
		_, ok = m.invalid[name]
	}
	return ok
}

func (m *Module) register(name string, t tensor.Tensor, free []string) {
	m.tensors[name] = t
	m.names = append(m.names, name)
	if len(free) > 0 {
		m.free[name] = free
	}
	m.logf("module: registered %s %s", name, t.Type())
}

// RegisterTensor adds a tensor to the module under
// name, which is case-insensitive. Every axis of the
// tensor's space must be registered in the universe.
// Registering a name twice returns an error wrapping
// ErrAlreadyRegistered.
func (m *Module) RegisterTensor(name string, t tensor.Tensor) error {
	name = strings.ToLower(name)
	if name == "" {
		return fmt.Errorf("tensor: %w: empty name", units.ErrInvalidName)
	}
	if m.known(name) {
		return fmt.Errorf("tensor %q: %w", name, ErrAlreadyRegistered)
	}
	sp := t.Type().Space
	for i := 0; i < sp.Len(); i++ {
		if !m.universe.IsAxis(sp.At(i)) {
			return fmt.Errorf("tensor %q: %w %q", name, units.ErrUnknownAxis, sp.At(i))
		}
	}
	m.register(name, t, nil)
	return nil
}

// RegisterSource registers feed as a source
// tensor; see plan.Source.
func (m *Module) RegisterSource(name string, feed tensor.Tensor) error {
	name = strings.ToLower(name)
	return m.RegisterTensor(name, &plan.Source{Name: name, Feed: feed})
}

func transformKey(domain, rng tensor.Space) string {
	return domain.String() + " -> " + rng.String()
}

func (m *Module) checkAxis(t *tensor.Transform, axis string) error {
	if axis != strings.ToLower(axis) {
		return fmt.Errorf("transform %s: %w: axis %q is not lower-case", t, ErrInvalidTransform, axis)
	}
	if !m.universe.IsAxis(axis) {
		return fmt.Errorf("transform %s: %w %q", t, units.ErrUnknownAxis, axis)
	}
	return nil
}

// RegisterTransform adds a transform to the module.
// Transforms are keyed by the sets of axes in their
// domain and range; a key may only be registered once.
func (m *Module) RegisterTransform(t *tensor.Transform) error {
	if t.Fn == nil {
		return fmt.Errorf("transform %s: %w: no function", t, ErrInvalidTransform)
	}
	if t.Range.Len() == 0 {
		return fmt.Errorf("transform %s: %w: empty range", t, ErrInvalidTransform)
	}
	for i := 0; i < t.Domain.Len(); i++ {
		if err := m.checkAxis(t, t.Domain.At(i)); err != nil {
			return err
		}
	}
	for i := 0; i < t.Range.Len(); i++ {
		a := t.Range.At(i)
		if err := m.checkAxis(t, a); err != nil {
			return err
		}
		if t.Domain.Contains(a) {
			return fmt.Errorf("transform %s: %w: axis %q is in both domain and range", t, ErrInvalidTransform, a)
		}
	}
	key := transformKey(t.Domain, t.Range)
	if _, ok := m.transforms[key]; ok {
		return fmt.Errorf("transform %s: %w", key, ErrAlreadyRegistered)
	}
	m.transforms[key] = t
	m.logf("module: registered transform %s", key)
	return nil
}

// RegisterAttribute registers a transform from
// one axis to another computed by fn.
func (m *Module) RegisterAttribute(domain, rng string, fn func(tensor.Value) (tensor.Value, error)) error {
	domain, rng = strings.ToLower(domain), strings.ToLower(rng)
	if domain == rng {
		return fmt.Errorf("attribute %s -> %s: %w: axis is in both domain and range", domain, rng, ErrInvalidTransform)
	}
	return m.RegisterTransform(tensor.Attribute(domain, rng, fn))
}

// FindTransform returns the transform registered
// for exactly the given domain and range.
func (m *Module) FindTransform(domain, rng tensor.Space) (*tensor.Transform, bool) {
	t, ok := m.transforms[transformKey(domain, rng)]
	return t, ok
}

// Transforms returns the keys of the registered
// transforms, sorted.
func (m *Module) Transforms() []string {
	lst := maps.Keys(m.transforms)
	slices.Sort(lst)
	return lst
}

// CastVariable records that the free variable
// name is used as described by (axis, plural).
// The first use of a variable fixes its usage;
// a later, different use returns an error
// wrapping ErrUsageConflict.
func (m *Module) CastVariable(name, axis string, plural bool) error {
	u := Usage{Axis: axis, Plural: plural}
	prev, ok := m.variables[name]
	if !ok {
		m.variables[name] = u
		return nil
	}
	if prev != u {
		return fmt.Errorf("$%s used as %s, previously as %s: %w", name, u, prev, ErrUsageConflict)
	}
	return nil
}

// Variable returns the usage of a free variable.
func (m *Module) Variable(name string) (Usage, bool) {
	u, ok := m.variables[strings.ToLower(name)]
	return u, ok
}

// Tensor returns the tensor registered under name.
func (m *Module) Tensor(name string) (tensor.Tensor, error) {
	name = strings.ToLower(name)
	t, ok := m.tensors[name]
	if ok {
		return t, nil
	}
	if _, ok := m.invalid[name]; ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidTensor, name)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownTensor, name)
}

// Types returns the type of every
// successfully defined tensor.
func (m *Module) Types() map[string]tensor.Type {
	out := make(map[string]tensor.Type, len(m.tensors))
	for name, t := range m.tensors {
		out[name] = t.Type()
	}
	return out
}

// Names returns the names of the successfully
// defined tensors in the order they were defined.
func (m *Module) Names() []string { return slices.Clone(m.names) }

// Invalid returns the sorted names of the
// tensors whose definitions were rejected.
func (m *Module) Invalid() []string {
	lst := maps.Keys(m.invalid)
	slices.Sort(lst)
	return lst
}

// FreeVariables returns the sorted names of the
// free variables that must be bound to query
// the named tensor.
func (m *Module) FreeVariables(name string) []string {
	return slices.Clone(m.free[strings.ToLower(name)])
}
