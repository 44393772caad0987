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

package module

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

func parseText(axis units.Axis, text string) (tensor.Value, error) {
	switch axis.Kind {
	case units.Int:
		return strconv.ParseInt(text, 10, 64)
	case units.Number:
		return strconv.ParseFloat(text, 64)
	case units.Date:
		return tensor.ParseTime(text)
	case units.Bool:
		return strconv.ParseBool(text)
	case units.String:
		return text, nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	return text, nil
}

// Bind parses text as a binding for the free
// variable name, according to the kind of the
// axis the variable is compared against. A
// variable used after 'in' is bound to a list
// and text is split on commas.
func (m *Module) Bind(name, text string) (tensor.Value, error) {
	name = strings.ToLower(name)
	u, ok := m.variables[name]
	if !ok {
		return nil, fmt.Errorf("no free variable $%s", name)
	}
	axis, err := m.universe.Axis(u.Axis)
	if err != nil {
		return nil, err
	}
	if !u.Plural {
		v, err := parseText(axis, strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
		return v, nil
	}
	fields := strings.Split(text, ",")
	lst := make([]tensor.Value, len(fields))
	for i := range fields {
		lst[i], err = parseText(axis, strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
	}
	return lst, nil
}

// binding validates and normalizes the
// value bound to a free variable
func (m *Module) binding(name string, v interface{}) (tensor.Value, error) {
	u := m.variables[name]
	axis, err := m.universe.Axis(u.Axis)
	if err != nil {
		return nil, err
	}
	one := func(v interface{}) (tensor.Value, error) {
		if s, ok := v.(string); ok && axis.Kind != units.String && axis.Kind != units.Any {
			return parseText(axis, s)
		}
		return tensor.Normalize(v)
	}
	lst, isList := v.([]tensor.Value)
	if strs, ok := v.([]string); ok {
		lst, isList = make([]tensor.Value, len(strs)), true
		for i := range strs {
			lst[i] = strs[i]
		}
	}
	if u.Plural != isList {
		if u.Plural {
			return nil, fmt.Errorf("$%s must be bound to a list of %s values", name, u.Axis)
		}
		return nil, fmt.Errorf("$%s must be bound to a single %s value", name, u.Axis)
	}
	if !isList {
		x, err := one(v)
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
		return x, nil
	}
	out := make([]tensor.Value, len(lst))
	for i := range lst {
		out[i], err = one(lst[i])
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
	}
	return out, nil
}
