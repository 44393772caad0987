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

// Package def decodes module definitions:
// YAML (or JSON) documents that declare the
// units, axes, data sources, attributes and
// scripts that make up a module.Module.
package def

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"

	"github.com/SnellerInc/tql/source"
	"github.com/SnellerInc/tql/source/pgsource"

	"golang.org/x/crypto/blake2b"
	"sigs.k8s.io/yaml"
)

// DerivedUnit names a unit expression.
type DerivedUnit struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Axis declares an axis and the kind
// of its coordinates.
type Axis struct {
	Name string `json:"name"`
	// Kind is one of int, number, string,
	// date, bool; empty means any.
	Kind string `json:"kind,omitempty"`
}

// CSV is a tensor read from a CSV file.
type CSV struct {
	// Path is the path of the file relative
	// to the file system the definition was
	// opened from. A .zst or .s2 suffix selects
	// decompression.
	Path string `json:"path"`
	source.Hint
}

// Postgres is a tensor read from
// a PostgreSQL table.
type Postgres struct {
	// DSN is expanded with os.ExpandEnv
	// so that credentials may be kept
	// out of the definition.
	DSN   string            `json:"dsn"`
	Table string            `json:"table"`
	Value string            `json:"value"`
	Keys  []pgsource.Column `json:"keys"`
}

// Row is one point of an Inline tensor.
type Row struct {
	Point map[string]interface{} `json:"point"`
	Value float64                `json:"value"`
}

// Inline is a tensor whose rows are
// written in the definition itself.
type Inline struct {
	Axes []string `json:"axes"`
	Rows []Row    `json:"rows,omitempty"`
}

// Tensor declares a source tensor.
// Exactly one of CSV, Postgres and
// Inline must be set.
type Tensor struct {
	Name string `json:"name"`
	// Unit is a unit expression
	// like "dollar/widget"; empty
	// means dimensionless.
	Unit     string    `json:"unit,omitempty"`
	CSV      *CSV      `json:"csv,omitempty"`
	Postgres *Postgres `json:"postgres,omitempty"`
	Inline   *Inline   `json:"inline,omitempty"`
}

// AttributeCSV is a two-column table
// mapping one axis onto another.
type AttributeCSV struct {
	Path      string `json:"path"`
	Separator string `json:"separator,omitempty"`
	Loose     bool   `json:"loose,omitempty"`
	// Key and Value are the names of the
	// domain and range columns; they default
	// to the names of the axes.
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// Attribute declares a transform from
// the Domain axis to the Range axis.
type Attribute struct {
	Domain string        `json:"domain"`
	Range  string        `json:"range"`
	CSV    *AttributeCSV `json:"csv"`
}

// Definition describes a module.
type Definition struct {
	// Units are the fundamental units.
	Units   []string      `json:"units,omitempty"`
	Derived []DerivedUnit `json:"derived,omitempty"`
	Axes    []Axis        `json:"axes,omitempty"`
	Tensors []Tensor      `json:"tensors,omitempty"`
	// Attributes are registered in order,
	// after all of the tensors.
	Attributes []Attribute `json:"attributes,omitempty"`
	// Scripts are paths of script files,
	// planned in order once everything
	// else has been registered.
	Scripts []string `json:"scripts,omitempty"`
}

// just pick an upper limit to prevent DoS
const maxDefSize = 1024 * 1024

// Decode decodes a definition from src.
// Both YAML and JSON are accepted.
func Decode(src io.Reader) (*Definition, error) {
	buf, err := io.ReadAll(io.LimitReader(src, maxDefSize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > maxDefSize {
		return nil, fmt.Errorf("definition beyond size limit %d", maxDefSize)
	}
	d := new(Definition)
	if err := yaml.UnmarshalStrict(buf, d); err != nil {
		return nil, err
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Open opens and decodes the
// definition at path in fsys.
func Open(fsys fs.FS, path string) (*Definition, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (d *Definition) validate() error {
	for i := range d.Tensors {
		t := &d.Tensors[i]
		if t.Name == "" {
			return fmt.Errorf("tensor %d has no name", i)
		}
		n := 0
		if t.CSV != nil {
			n++
			if t.CSV.Path == "" {
				return fmt.Errorf("tensor %s: csv has no path", t.Name)
			}
		}
		if t.Postgres != nil {
			n++
		}
		if t.Inline != nil {
			n++
		}
		if n != 1 {
			return fmt.Errorf("tensor %s: exactly one of csv, postgres and inline is required", t.Name)
		}
	}
	for i := range d.Attributes {
		a := &d.Attributes[i]
		if a.Domain == "" || a.Range == "" {
			return fmt.Errorf("attribute %d: domain and range are required", i)
		}
		if a.CSV == nil || a.CSV.Path == "" {
			return fmt.Errorf("attribute %s -> %s: csv path is required", a.Domain, a.Range)
		}
	}
	return nil
}

// Hash returns a hash of the definition
// that can be used to detect changes.
// Equivalent definitions have equal hashes
// regardless of their YAML formatting.
func (d *Definition) Hash() []byte {
	h, _ := blake2b.New256(nil)
	err := json.NewEncoder(h).Encode(d)
	if err != nil {
		panic("def: failed to hash definition: " + err.Error())
	}
	return h.Sum(nil)
}
