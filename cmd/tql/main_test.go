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

package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/SnellerInc/tql/def"
	"github.com/SnellerInc/tql/module"
	"github.com/SnellerInc/tql/tensor"
)

const testdef = `
units: [widget]
axes:
  - {name: orderid, kind: int}
  - {name: country, kind: string}
tensors:
  - name: sold
    unit: widget
    inline:
      axes: [orderid, country]
      rows:
        - {point: {orderid: 1, country: US}, value: 5}
        - {point: {orderid: 2, country: US}, value: 3}
        - {point: {orderid: 3, country: FR}, value: 4}
scripts: [test.tql]
`

func testModule(t *testing.T) *module.Module {
	t.Helper()
	fsys := fstest.MapFS{
		"test.yaml": {Data: []byte(testdef)},
		"test.tql": {Data: []byte(`by_country is sold by [country]
sold_in is sold where country in $countries
`)},
	}
	d, err := def.Open(fsys, "test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	m, diags, err := d.Build(fsys, &def.Options{Logf: t.Logf})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Fatal(diags)
	}
	return m
}

func TestVars(t *testing.T) {
	var v vars
	if err := v.Set("country=US"); err != nil {
		t.Fatal(err)
	}
	if err := v.Set("countries=US,FR"); err != nil {
		t.Fatal(err)
	}
	if err := v.Set("country"); err == nil {
		t.Error("accepted a variable with no value")
	}
	if v.String() != "country=US,countries=US,FR" {
		t.Errorf("vars: %s", v.String())
	}
	m := testModule(t)
	env, err := bind(m, []string{"Countries=US, FR"})
	if err != nil {
		t.Fatal(err)
	}
	lst, ok := env["countries"].([]tensor.Value)
	if !ok || len(lst) != 2 || lst[0] != "US" || lst[1] != "FR" {
		t.Errorf("countries bound to %#v", env["countries"])
	}
	if _, err := bind(m, []string{"nope=1"}); err == nil {
		t.Error("bound an unknown variable")
	}
}

func TestWrite(t *testing.T) {
	p, err := tensor.NewPoint(
		tensor.Coord{Axis: "orderid", Value: int64(7)},
		tensor.Coord{Axis: "day", Value: time.Date(1996, 7, 4, 0, 0, 0, 0, time.UTC)},
	)
	if err != nil {
		t.Fatal(err)
	}
	rows := []tensor.Row{{Point: p, Value: 2.5}}
	var buf bytes.Buffer
	if err := write(&buf, rows, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{day: 1996-07-04T00:00:00Z, orderid: 7}\t2.5\n"; got != want {
		t.Errorf("text: got %q, want %q", got, want)
	}
	buf.Reset()
	if err := write(&buf, rows, true); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), `{"point":{"day":"1996-07-04T00:00:00Z","orderid":7},"value":2.5}`+"\n"; got != want {
		t.Errorf("json: got %q, want %q", got, want)
	}
}

func TestUsage(t *testing.T) {
	fs := flag.NewFlagSet("tql", flag.ContinueOnError)
	fs.String("d", "", "module `file`")
	fs.Int("top", 0, "rows to print")
	fs.Int("n", 3, "a number")
	fs.Bool("q", false, "quiet")
	var buf bytes.Buffer
	usage(&buf, fs, []string{"Module", "d", "Queries", "top"})
	want := `usage: tql [flags] tensor...

Module
  -d file
    	module file

Queries
  -top int
    	rows to print

Uncategorized
  -n int
    	a number (default 3)
  -q
    	quiet
`
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestShell(t *testing.T) {
	var out, errs bytes.Buffer
	s := &shell{m: testModule(t), env: make(tensor.Env), out: &out, errs: &errs}
	ctx := context.Background()
	steps := []struct {
		line, out, errs string
		fail            bool
	}{
		{line: "by_country", out: "{country: \"US\"}\t8\n{country: \"FR\"}\t4\n"},
		{line: "sold_in", fail: true},
		{line: ":let countries=FR"},
		{line: "sold_in", out: "{country: \"FR\", orderid: 3}\t4\n"},
		{line: ":unset countries"},
		{line: "sold_in", fail: true},
		{line: "  "},
		{line: "doubled is by_country scale by 2"},
		{line: ":top 1 doubled", out: "{country: \"US\"}\t16\n"},
		{line: "bad is by_country by [orderid]", errs: "<input 2>:1:23: bad: "},
		{line: ":top x doubled", fail: true},
		{line: ":frob", fail: true},
		{line: "two names", fail: true},
		{line: ":explain doubled", out: "SCALE"},
	}
	for _, step := range steps {
		out.Reset()
		errs.Reset()
		err := s.exec(ctx, step.line)
		if step.fail != (err != nil) {
			t.Errorf("%q: error %v", step.line, err)
		}
		if !strings.HasPrefix(out.String(), step.out) {
			t.Errorf("%q: output %q, want %q", step.line, out.String(), step.out)
		}
		if !strings.HasPrefix(errs.String(), step.errs) {
			t.Errorf("%q: diagnostics %q, want %q", step.line, errs.String(), step.errs)
		}
	}
}
