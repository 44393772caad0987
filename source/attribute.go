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

package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/tql/tensor"
)

// ErrNoAttribute is returned from an attribute
// lookup for a key that is not in the table.
var ErrNoAttribute = errors.New("no attribute value")

// AttributeHint describes a two-column
// CSV table mapping one axis to another.
type AttributeHint struct {
	// Separator and Loose are as for Hint.
	Separator string  `json:"separator,omitempty"`
	Loose     bool    `json:"loose,omitempty"`
	Domain    KeyHint `json:"domain"`
	Range     KeyHint `json:"range"`
}

// LoadAttribute reads an attribute table and
// returns a lookup function suitable for
// module.Module.RegisterAttribute. The whole
// table is read before LoadAttribute returns.
//
// A key that appears twice with different values
// is an error; looking up a key that does not
// appear returns an error wrapping ErrNoAttribute.
func LoadAttribute(name string, open Opener, hint *AttributeHint) (func(tensor.Value) (tensor.Value, error), error) {
	if err := hint.Domain.compile(); err != nil {
		return nil, fmt.Errorf("%s: domain: %w", name, err)
	}
	if err := hint.Range.compile(); err != nil {
		return nil, fmt.Errorf("%s: range: %w", name, err)
	}
	// the range column stands in for
	// the value column of a tensor file
	h := &Hint{
		Separator: hint.Separator,
		Loose:     hint.Loose,
		Value:     hint.Range.Column,
		Keys:      []KeyHint{hint.Domain},
	}
	if err := h.Compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	sep, _ := h.separator()
	c := &CSV{Name: name, open: open, hint: h, sep: sep}
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	rd := c.reader(rc)
	keys, value, err := c.header(rd)
	if err != nil {
		return nil, err
	}
	table := make(map[string]tensor.Value)
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		dtext, rtext := field(rec, keys[0]), field(rec, value)
		if dtext == "" || rtext == "" {
			continue
		}
		d, err := hint.Domain.Parse(dtext)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, rd.Line(), err)
		}
		r, err := hint.Range.Parse(rtext)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, rd.Line(), err)
		}
		k := tensor.FormatValue(d)
		if prev, ok := table[k]; ok && tensor.FormatValue(prev) != tensor.FormatValue(r) {
			return nil, fmt.Errorf("%s: line %d: %s maps to both %s and %s",
				name, rd.Line(), k, tensor.FormatValue(prev), tensor.FormatValue(r))
		}
		table[k] = r
	}
	return func(v tensor.Value) (tensor.Value, error) {
		r, ok := table[tensor.FormatValue(v)]
		if !ok {
			return nil, fmt.Errorf("%w for %s", ErrNoAttribute, tensor.FormatValue(v))
		}
		return r, nil
	}, nil
}
