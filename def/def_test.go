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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/SnellerInc/tql/compr"
	"github.com/SnellerInc/tql/module"
	"github.com/SnellerInc/tql/source/pgsource"
	"github.com/SnellerInc/tql/units"
)

const northwind = `
units: [widget, dollar]
derived:
  - {name: price, unit: dollar/widget}
axes:
  - {name: orderid, kind: int}
  - {name: productid, kind: int}
  - {name: country, kind: string}
tensors:
  - name: quantity_sold
    unit: widget
    csv:
      path: order-details.csv.zst
      value: quantity
      keys: [{axis: orderid}, {axis: productid, column: ProductID}]
  - name: unit_price
    unit: price
    csv:
      path: order-details.csv.zst
      value: unitprice
      keys: [{axis: orderid}, {axis: productid}]
  - name: source
    inline:
      axes: [orderid]
      rows:
        - {point: {orderid: 1}, value: 10}
        - {point: {orderid: 2}, value: 20}
attributes:
  - domain: orderid
    range: country
    csv: {path: orders.csv, key: OrderID, value: ShipCountry}
scripts: [northwind.tql]
`

const details = `OrderID,ProductID,UnitPrice,Quantity
1,10,2,5
1,11,10,3
2,10,2.5,2
3,11,10,4
`

const script = `total is source sum {orderid -> country} by [country]
revenue is quantity_sold * unit_price
by_country is revenue sum {orderid -> country} by [country]
broken is revenue by [nope]
`

func testFS(t *testing.T) fstest.MapFS {
	var buf bytes.Buffer
	w, err := compr.NewWriter(&buf, "zstd")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(details))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return fstest.MapFS{
		"northwind.yaml":        {Data: []byte(northwind)},
		"order-details.csv.zst": {Data: buf.Bytes()},
		"orders.csv":            {Data: []byte("OrderID,ShipCountry\n1,US\n2,US\n3,FR\n")},
		"northwind.tql":         {Data: []byte(script)},
	}
}

func query(t *testing.T, m *module.Module, name string) []string {
	t.Helper()
	q, err := m.Query(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := q.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].String()
	}
	return out
}

func TestBuild(t *testing.T) {
	fsys := testFS(t)
	d, err := Open(fsys, "northwind.yaml")
	if err != nil {
		t.Fatal(err)
	}
	m, diags, err := d.Build(fsys, &Options{Logf: t.Logf})
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics: %v", len(diags), diags)
	}
	if got := diags[0].String(); !strings.HasPrefix(got, "northwind.tql:4:") || !strings.Contains(got, `unknown dimension "nope"`) {
		t.Errorf("unexpected diagnostic %s", got)
	}
	if got := strings.Join(query(t, m, "total"), "\n"); got != `{country: "US"} 30` {
		t.Errorf("total: %s", got)
	}
	got := strings.Join(query(t, m, "by_country"), "\n")
	want := "{country: \"US\"} 45\n{country: \"FR\"} 40"
	if got != want {
		t.Errorf("by_country: got\n%s\nwant\n%s", got, want)
	}
	types := m.Types()
	if typ := types["unit_price"].String(); typ != "[orderid, productid] dollar/widget" {
		t.Errorf("type of unit_price: %s", typ)
	}
	if typ := types["revenue"].String(); typ != "[orderid, productid] dollar" {
		t.Errorf("type of revenue: %s", typ)
	}
	if _, err := m.Tensor("broken"); !errors.Is(err, module.ErrInvalidTensor) {
		t.Errorf("broken: %v", err)
	}
}

func TestHash(t *testing.T) {
	a, err := Decode(strings.NewReader(northwind))
	if err != nil {
		t.Fatal(err)
	}
	// the same definition, as JSON
	b, err := Decode(strings.NewReader(`{
  "units": ["widget", "dollar"],
  "derived": [{"name": "price", "unit": "dollar/widget"}],
  "axes": [{"name": "orderid", "kind": "int"}, {"name": "productid", "kind": "int"}, {"name": "country", "kind": "string"}],
  "tensors": [
    {"name": "quantity_sold", "unit": "widget", "csv": {"path": "order-details.csv.zst", "value": "quantity", "keys": [{"axis": "orderid"}, {"axis": "productid", "column": "ProductID"}]}},
    {"name": "unit_price", "unit": "price", "csv": {"path": "order-details.csv.zst", "value": "unitprice", "keys": [{"axis": "orderid"}, {"axis": "productid"}]}},
    {"name": "source", "inline": {"axes": ["orderid"], "rows": [{"point": {"orderid": 1}, "value": 10}, {"point": {"orderid": 2}, "value": 20}]}}
  ],
  "attributes": [{"domain": "orderid", "range": "country", "csv": {"path": "orders.csv", "key": "OrderID", "value": "ShipCountry"}}],
  "scripts": ["northwind.tql"]
}`))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Hash(), b.Hash()) {
		t.Error("equivalent definitions hash differently")
	}
	b.Scripts = nil
	if bytes.Equal(a.Hash(), b.Hash()) {
		t.Error("different definitions hash the same")
	}
	if len(a.Hash()) != 32 {
		t.Errorf("hash is %d bytes", len(a.Hash()))
	}
}

func TestDecodeErrors(t *testing.T) {
	testcases := []struct {
		text, msg string
	}{
		{"unit: [x]", "unknown field"},
		{"tensors: [{unit: x, inline: {axes: [a]}}]", "no name"},
		{"tensors: [{name: x}]", "exactly one of"},
		{"tensors: [{name: x, csv: {path: x.csv, value: v, keys: [{axis: a}]}, inline: {axes: [a]}}]", "exactly one of"},
		{"tensors: [{name: x, csv: {value: v, keys: [{axis: a}]}}]", "no path"},
		{"tensors: [{name: x, csv: {path: x.csv, value: v, keys: [{axis: a, type: bool, format: unix_seconds}]}}]", "format only valid"},
		{"attributes: [{domain: a, csv: {path: x.csv}}]", "domain and range"},
		{"attributes: [{domain: a, range: b}]", "csv path"},
	}
	for _, tc := range testcases {
		_, err := Decode(strings.NewReader(tc.text))
		if err == nil {
			t.Errorf("%s: no error", tc.text)
			continue
		}
		if !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("%s: error %q does not contain %q", tc.text, err, tc.msg)
		}
	}
	_, err := Decode(strings.NewReader(strings.Repeat("#", maxDefSize+1)))
	if err == nil {
		t.Error("oversized definition accepted")
	}
}

func TestBuildErrors(t *testing.T) {
	fsys := testFS(t)
	testcases := []struct {
		text string
		want []string
	}{
		{"units: [widget, widget]", []string{units.ErrAlreadyRegistered.Error()}},
		{"axes: [{name: a, kind: colour}]", []string{`unknown axis kind "colour"`}},
		{"derived: [{name: x, unit: parsec}]", []string{"unit x:"}},
		{
			"tensors: [{name: q, unit: widget, inline: {axes: [a]}}, {name: r, inline: {axes: [orderid]}}]",
			[]string{"tensor q:", "tensor r:"},
		},
		{
			"axes: [{name: orderid, kind: int}]\ntensors: [{name: q, inline: {axes: [orderid], rows: [{point: {orderid: 1.5}, value: 1}]}}]",
			[]string{"row 0: axis orderid: 1.5 is not an integer"},
		},
		{
			"axes: [{name: orderid}, {name: country}]\nattributes: [{domain: orderid, range: country, csv: {path: missing.csv}}]",
			[]string{"attribute orderid -> country:", "missing.csv"},
		},
	}
	for _, tc := range testcases {
		d, err := Decode(strings.NewReader(tc.text))
		if err != nil {
			t.Fatalf("%s: %s", tc.text, err)
		}
		m, _, err := d.Build(fsys, nil)
		if err == nil {
			t.Errorf("%s: no error", tc.text)
			continue
		}
		if m != nil {
			t.Errorf("%s: got a module along with an error", tc.text)
		}
		for _, want := range tc.want {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("%s: error %q does not contain %q", tc.text, err, want)
			}
		}
	}
}

func TestPostgres(t *testing.T) {
	t.Setenv("TQL_TEST_DSN", "host=db.example dbname=northwind")
	d, err := Decode(strings.NewReader(`
axes: [{name: orderid, kind: int}, {name: productid, kind: int}]
tensors:
  - name: quantity_sold
    postgres: {dsn: "${TQL_TEST_DSN}", table: order_details, value: quantity, keys: [{axis: orderid}, {axis: productid}]}
  - name: discount
    postgres: {dsn: "${TQL_TEST_DSN}", table: order_details, value: discount, keys: [{axis: orderid}, {axis: productid}]}
`))
	if err != nil {
		t.Fatal(err)
	}
	var dsns []string
	opts := &Options{
		Connect: func(dsn string) (pgsource.Querier, error) {
			dsns = append(dsns, dsn)
			return nil, nil
		},
	}
	m, _, err := d.Build(fstest.MapFS{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(dsns) != 1 || dsns[0] != "host=db.example dbname=northwind" {
		t.Errorf("connections: %q", dsns)
	}
	if got := strings.Join(m.Names(), ","); got != "quantity_sold,discount" {
		t.Errorf("names: %s", got)
	}
}
