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
	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/expr/script"
)

// Script parses the script text and plans every
// definition in it (see Plan). Syntax errors and
// semantic errors are both reported to sink, which
// may be nil. The name is used only for diagnostics.
//
// Script returns the number of diagnostics reported.
func (m *Module) Script(name string, text []byte, sink Sink) int {
	src := expr.NewSource(name, text)
	n := 0
	defs := script.Parse(src, func(at expr.Span, msg string) {
		n++
		if sink != nil {
			sink.Complain(diagnose(src, at, msg))
		}
	})
	n += m.Plan(src, defs, sink)
	m.logf("module: script %s: %d definitions, %d diagnostics", name, len(defs), n)
	return n
}
