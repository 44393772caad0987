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

package def

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/SnellerInc/tql/module"
	"github.com/SnellerInc/tql/source"
	"github.com/SnellerInc/tql/source/pgsource"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

// Options configures Build.
type Options struct {
	// Logf, if non-nil, receives log lines
	// from the build and from the module.
	Logf func(f string, args ...interface{})
	// Connect opens a database connection.
	// It defaults to pgsource.Open.
	Connect func(dsn string) (pgsource.Querier, error)
}

func (o *Options) logf(f string, args ...interface{}) {
	if o.Logf != nil {
		o.Logf(f, args...)
	}
}

func (o *Options) connect(dsn string) (pgsource.Querier, error) {
	if o.Connect != nil {
		return o.Connect(dsn)
	}
	return pgsource.Open(dsn, nil)
}

type builder struct {
	opts *Options
	fsys fs.FS
	u    *units.Universe
	m    *module.Module
	dbs  map[string]pgsource.Querier
}

// Build constructs a module from d. Paths in d
// are resolved relative to fsys.
//
// Any error registering a unit, axis, tensor or
// attribute aborts the build, and every such
// error is returned. Problems with the scripts
// do not: they are returned as diagnostics
// alongside the module, which holds every
// definition that passed analysis.
func (d *Definition) Build(fsys fs.FS, opts *Options) (*module.Module, module.Diagnostics, error) {
	if opts == nil {
		opts = &Options{}
	}
	b := &builder{
		opts: opts,
		fsys: fsys,
		u:    units.NewUniverse(),
		dbs:  make(map[string]pgsource.Querier),
	}
	if err := b.universe(d); err != nil {
		return nil, nil, err
	}
	var mopts []module.Option
	if opts.Logf != nil {
		mopts = append(mopts, module.WithLogf(opts.Logf))
	}
	b.m = module.New(b.u, mopts...)
	var errs []error
	for i := range d.Tensors {
		if err := b.tensor(&d.Tensors[i]); err != nil {
			errs = append(errs, fmt.Errorf("tensor %s: %w", d.Tensors[i].Name, err))
		}
	}
	for i := range d.Attributes {
		a := &d.Attributes[i]
		if err := b.attribute(a); err != nil {
			errs = append(errs, fmt.Errorf("attribute %s -> %s: %w", a.Domain, a.Range, err))
		}
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	var diags module.Diagnostics
	for _, path := range d.Scripts {
		text, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, nil, err
		}
		b.m.Script(path, text, &diags)
	}
	opts.logf("def: built module with %d tensors, %d diagnostics", len(b.m.Names()), len(diags))
	return b.m, diags, nil
}

func (b *builder) universe(d *Definition) error {
	var errs []error
	for _, name := range d.Units {
		if _, err := b.u.Fundamental(name); err != nil {
			errs = append(errs, err)
		}
	}
	for _, du := range d.Derived {
		unit, err := b.u.ParseUnit(du.Unit)
		if err == nil {
			err = b.u.Define(du.Name, unit)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", du.Name, err))
		}
	}
	for _, a := range d.Axes {
		kind, err := units.ParseKind(a.Kind)
		if err == nil {
			err = b.u.RegisterAxis(units.Axis{Name: a.Name, Kind: kind})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("axis %s: %w", a.Name, err))
		}
	}
	return errors.Join(errs...)
}

// hintType returns the CSV column
// type that parses coordinates of kind k
func hintType(k units.Kind) string {
	switch k {
	case units.Int:
		return source.TypeInt
	case units.Number:
		return source.TypeNumber
	case units.Date:
		return source.TypeDateTime
	case units.Bool:
		return source.TypeBool
	}
	return source.TypeString
}

// keyHint fills in the type of kh
// from the kind of its axis
func (b *builder) keyHint(kh *source.KeyHint) error {
	a, err := b.u.Axis(kh.Axis)
	if err != nil {
		return err
	}
	if kh.Type == "" {
		kh.Type = hintType(a.Kind)
	}
	return nil
}

func (b *builder) tensor(t *Tensor) error {
	unit, err := b.u.ParseUnit(t.Unit)
	if err != nil {
		return err
	}
	var feed tensor.Tensor
	switch {
	case t.CSV != nil:
		h := t.CSV.Hint
		h.Keys = append([]source.KeyHint(nil), h.Keys...)
		for i := range h.Keys {
			if err := b.keyHint(&h.Keys[i]); err != nil {
				return err
			}
		}
		feed, err = source.NewCSV(t.CSV.Path, source.File(b.fsys, t.CSV.Path), &h, unit)
	case t.Postgres != nil:
		feed, err = b.postgres(t.Postgres, unit)
	default:
		feed, err = b.inline(t.Inline, unit)
	}
	if err != nil {
		return err
	}
	return b.m.RegisterSource(t.Name, feed)
}

func (b *builder) postgres(p *Postgres, unit units.Unit) (tensor.Tensor, error) {
	dsn := os.ExpandEnv(p.DSN)
	db, ok := b.dbs[dsn]
	if !ok {
		var err error
		db, err = b.opts.connect(dsn)
		if err != nil {
			return nil, err
		}
		b.dbs[dsn] = db
		b.opts.logf("def: connected to %s", p.Table)
	}
	return pgsource.NewTable(db, p.Table, p.Value, p.Keys, unit)
}

func (b *builder) inline(in *Inline, unit units.Unit) (tensor.Tensor, error) {
	sp, err := tensor.NewSpace(in.Axes...)
	if err != nil {
		return nil, err
	}
	rows := make([]tensor.Row, len(in.Rows))
	for i := range in.Rows {
		coords := make([]tensor.Coord, 0, len(in.Rows[i].Point))
		for name, v := range in.Rows[i].Point {
			a, err := b.u.Axis(name)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			c, err := coordinate(a, v)
			if err != nil {
				return nil, fmt.Errorf("row %d: axis %s: %w", i, a.Name, err)
			}
			coords = append(coords, tensor.Coord{Axis: a.Name, Value: c})
		}
		p, err := tensor.NewPoint(coords...)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = tensor.Row{Point: p, Value: in.Rows[i].Value}
	}
	return source.NewMemory(tensor.Type{Space: sp, Unit: unit}, rows)
}

// coordinate converts a decoded YAML value
// into a coordinate along a
func coordinate(a units.Axis, v interface{}) (tensor.Value, error) {
	switch a.Kind {
	case units.Int:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return int64(f), nil
	case units.Number:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		return f, nil
	case units.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a string", v)
		}
		return s, nil
	case units.Bool:
		t, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%v is not a bool", v)
		}
		return t, nil
	case units.Date:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a date", v)
		}
		return tensor.ParseTime(s)
	}
	return tensor.Normalize(v)
}

func (b *builder) attribute(a *Attribute) error {
	domain, err := b.u.Axis(a.Domain)
	if err != nil {
		return err
	}
	rng, err := b.u.Axis(a.Range)
	if err != nil {
		return err
	}
	hint := &source.AttributeHint{
		Separator: a.CSV.Separator,
		Loose:     a.CSV.Loose,
		Domain:    source.KeyHint{Axis: domain.Name, Column: a.CSV.Key, Type: hintType(domain.Kind)},
		Range:     source.KeyHint{Axis: rng.Name, Column: a.CSV.Value, Type: hintType(rng.Kind)},
	}
	fn, err := source.LoadAttribute(a.CSV.Path, source.File(b.fsys, a.CSV.Path), hint)
	if err != nil {
		return err
	}
	return b.m.RegisterAttribute(domain.Name, rng.Name, fn)
}
