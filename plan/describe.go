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

// Package plan implements the executable
// form of tensor definitions.
//
// Each Op is a tensor.Tensor whose Stream
// method pulls rows lazily from its operands.
// Predicates flow down the tree: every Op
// receives the caller's predicate and passes
// as much of it as it can to its operands,
// so that filtering happens as close to the
// Source leaves as possible.
package plan

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/tql/tensor"
)

func tabify(n int, dst *strings.Builder) {
	for n > 0 {
		dst.WriteByte('\t')
		n--
	}
}

func tabline(dst *strings.Builder, indent int, line string) {
	tabify(indent, dst)
	dst.WriteString(line)
	dst.WriteByte('\n')
}

func printops(dst *strings.Builder, indent int, t tensor.Tensor) {
	op, ok := t.(Op)
	if !ok {
		tabline(dst, indent, fmt.Sprintf("%T %s", t, t.Type()))
		return
	}
	tabline(dst, indent, op.String())
	for _, in := range op.inputs() {
		printops(dst, indent+1, in)
	}
}

// Describe returns a textual description of
// a plan, one Op per line, with the operands
// of each Op indented beneath it.
func Describe(t tensor.Tensor) string {
	var out strings.Builder
	printops(&out, 0, t)
	return out.String()
}
