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
	"errors"
	"fmt"

	"github.com/SnellerInc/tql/expr"
)

// Gripe is a semantic error located
// at a span of the script text.
type Gripe struct {
	Span    expr.Span
	Message string
}

func gripef(at expr.Span, f string, args ...interface{}) *Gripe {
	return &Gripe{Span: at, Message: fmt.Sprintf(f, args...)}
}

func (g *Gripe) Error() string { return g.Message }

// Diagnostic is a Gripe (or a syntax error)
// resolved to a line and column of a script.
type Diagnostic struct {
	Source       string // name of the script
	Line, Column int
	Span         expr.Span
	Name         string // definition voided or ignored, if any
	Message      string
}

// String returns the diagnostic in the
// conventional file:line:column: form.
func (d Diagnostic) String() string {
	msg := d.Message
	if d.Name != "" {
		msg = d.Name + ": " + msg
	}
	if d.Source == "" {
		return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.Source, d.Line, d.Column, msg)
}

// Sink receives diagnostics as a script is compiled.
type Sink interface {
	Complain(d Diagnostic)
}

// SinkFunc is a function that implements Sink.
type SinkFunc func(d Diagnostic)

// Complain implements Sink.
func (f SinkFunc) Complain(d Diagnostic) { f(d) }

// Diagnostics is a Sink that collects
// every diagnostic it receives.
type Diagnostics []Diagnostic

// Complain implements Sink.
func (d *Diagnostics) Complain(x Diagnostic) { *d = append(*d, x) }

// Err returns nil if d is empty, or otherwise
// an error joining every diagnostic.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	errs := make([]error, len(d))
	for i := range d {
		errs[i] = errors.New(d[i].String())
	}
	return errors.Join(errs...)
}

func diagnose(src *expr.Source, at expr.Span, msg string) Diagnostic {
	line, col := src.Position(at.Start)
	return Diagnostic{
		Source:  src.Name,
		Line:    line,
		Column:  col,
		Span:    at,
		Message: msg,
	}
}
