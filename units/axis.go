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

package units

import (
	"fmt"
	"strings"
)

// Kind describes the values an axis takes.
// Kind Any disables literal checking.
type Kind uint8

const (
	Any Kind = iota
	Int
	Number
	String
	Date
	Bool
)

var kindNames = [...]string{
	Any:    "any",
	Int:    "int",
	Number: "number",
	String: "string",
	Date:   "date",
	Bool:   "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind parses the textual name of a Kind.
// The empty string is Any.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Any, nil
	}
	s = strings.ToLower(s)
	for i := range kindNames {
		if kindNames[i] == s {
			return Kind(i), nil
		}
	}
	return Any, fmt.Errorf("unknown axis kind %q", s)
}

// Axis is a named dimension of data.
// The identity of an axis is its name.
type Axis struct {
	Name string
	Kind Kind
}

func (a Axis) String() string { return a.Name }
