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
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/SnellerInc/tql/compr"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

const orderDetails = `OrderID,ProductID,UnitPrice,Quantity,Discount
10248,11,14,12,0
10248,42,9.8,10,0
10249,14,18.6,9,0
10250,41,7.7,,0
`

func detailsHint(value string) *Hint {
	return &Hint{
		Value: value,
		Keys: []KeyHint{
			{Axis: "orderid", Type: TypeInt},
			{Axis: "productid", Type: TypeInt},
		},
	}
}

func zstd(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := compr.NewWriter(&buf, "zstd")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(text))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func collect(t *testing.T, tn tensor.Tensor) []string {
	t.Helper()
	lst, err := stream(tn)
	if err != nil {
		t.Fatal(err)
	}
	return lst
}

func stream(tn tensor.Tensor) ([]string, error) {
	it, err := tn.Stream(context.Background(), nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := tensor.Collect(it)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].String()
	}
	return out, nil
}

func expect(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestCSV(t *testing.T) {
	u := units.NewUniverse()
	widget, err := u.Fundamental("widget")
	if err != nil {
		t.Fatal(err)
	}
	fsys := fstest.MapFS{
		"order-details.csv":     {Data: []byte(orderDetails)},
		"order-details.csv.zst": {Data: zstd(t, orderDetails)},
		"semicolons.csv":        {Data: []byte(strings.ReplaceAll(orderDetails, ",", ";"))},
	}
	for _, path := range []string{"order-details.csv", "order-details.csv.zst"} {
		c, err := NewCSV(path, File(fsys, path), detailsHint("Quantity"), widget)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.Type().String(); got != "[orderid, productid] widget" {
			t.Errorf("type %s", got)
		}
		want := []string{
			"{orderid: 10248, productid: 11} 12",
			"{orderid: 10248, productid: 42} 10",
			"{orderid: 10249, productid: 14} 9",
		}
		expect(t, collect(t, c), want...)
		// a CSV may be streamed again
		expect(t, collect(t, c), want...)
	}

	h := detailsHint("unitprice")
	h.Separator = ";"
	c, err := NewCSV("semicolons.csv", File(fsys, "semicolons.csv"), h, units.Dimensionless)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, collect(t, c),
		"{orderid: 10248, productid: 11} 14",
		"{orderid: 10248, productid: 42} 9.8",
		"{orderid: 10249, productid: 14} 18.6",
		"{orderid: 10250, productid: 41} 7.7",
	)
}

func TestCSVErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"details.csv": {Data: []byte(orderDetails)},
		"bad-int.csv": {Data: []byte("orderid,productid,quantity\n1,2,3\nx,2,3\n")},
		"bad-num.csv": {Data: []byte("orderid,productid,quantity\n1,2,three\n")},
		"empty.csv":   {Data: nil},
	}
	testcases := []struct {
		path, value string
		msg         string
	}{
		{"details.csv", "revenue", `details.csv: no column "revenue"`},
		{"bad-int.csv", "quantity", "bad-int.csv: line 3: column orderid:"},
		{"bad-num.csv", "quantity", "bad-num.csv: line 2: column quantity:"},
		{"empty.csv", "quantity", "empty.csv: no header row"},
		{"missing.csv", "quantity", "missing.csv"},
	}
	for _, tc := range testcases {
		c, err := NewCSV(tc.path, File(fsys, tc.path), detailsHint(tc.value), units.Dimensionless)
		if err != nil {
			t.Fatal(err)
		}
		_, err = stream(c)
		if err == nil {
			t.Errorf("%s: no error", tc.path)
			continue
		}
		if !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("%s: error %q does not contain %q", tc.path, err, tc.msg)
		}
	}
	if _, err := NewCSV("x", File(fsys, "details.csv"), &Hint{Value: "quantity"}, units.Dimensionless); !errors.Is(err, ErrNoKeys) {
		t.Errorf("no keys: %v", err)
	}
	h := detailsHint("quantity")
	h.Separator = ";;"
	if _, err := NewCSV("x", File(fsys, "details.csv"), h, units.Dimensionless); !errors.Is(err, ErrBadSeparator) {
		t.Errorf("bad separator: %v", err)
	}
}

func TestLoose(t *testing.T) {
	testcases := []struct {
		line string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{"ALFKI,Lyon, France,3", []string{"ALFKI", "Lyon, France", "3"}},
		{"x,", []string{"x", ""}},
		{",y", []string{"", "y"}},
		{"no separators", []string{"no separators"}},
	}
	for _, tc := range testcases {
		if got := splitLoose(tc.line, ','); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitLoose(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}

	fsys := fstest.MapFS{
		"customers.csv": {Data: []byte("CustomerID,City,Orders\r\nALFKI,Lyon, France,3\r\n\r\nBOLID,Madrid,5\r\n")},
	}
	h := &Hint{
		Loose: true,
		Value: "orders",
		Keys:  []KeyHint{{Axis: "customer", Column: "CustomerID"}, {Axis: "city"}},
	}
	c, err := NewCSV("customers.csv", File(fsys, "customers.csv"), h, units.Dimensionless)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, collect(t, c),
		`{city: "Lyon, France", customer: "ALFKI"} 3`,
		`{city: "Madrid", customer: "BOLID"} 5`,
	)
}

func TestHint(t *testing.T) {
	h, err := ParseHint([]byte(`{
  "value": "freight",
  "keys": [
    {"axis": "OrderDate", "type": "datetime", "format": "unix_seconds"},
    {"axis": "shipped", "type": "bool", "trueValues": ["Y"], "falseValues": ["N"]},
    {"axis": "region", "default": "none"}
  ]
}`))
	if err != nil {
		t.Fatal(err)
	}
	fsys := fstest.MapFS{
		"orders.csv": {Data: []byte("orderdate,shipped,region,freight\n0,Y,,32.38\n86400,N,WA,11.61\n")},
	}
	c, err := NewCSV("orders.csv", File(fsys, "orders.csv"), h, units.Dimensionless)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, collect(t, c),
		`{orderdate: 1970-01-01T00:00:00Z, region: "none", shipped: true} 32.38`,
		`{orderdate: 1970-01-02T00:00:00Z, region: "WA", shipped: false} 11.61`,
	)
	if k := h.Keys[0].Kind(); k != units.Date {
		t.Errorf("kind of orderdate: %s", k)
	}

	bad := []string{
		`{"value": "v", "keys": [{"axis": "a", "type": "int", "format": "unix_seconds"}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "string", "trueValues": ["Y"]}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "bool", "trueValues": ["Y"]}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "bool", "trueValues": ["Y"], "falseValues": ["Y"]}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "datetime", "format": "julian"}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "uuid"}]}`,
		`{"value": "v", "keys": [{"axis": "a", "type": "int", "default": "zero"}]}`,
		`{"value": "v", "keys": []}`,
		`{"keys": [{"axis": "a"}]}`,
	}
	for _, text := range bad {
		if _, err := ParseHint([]byte(text)); err == nil {
			t.Errorf("ParseHint(%s) succeeded", text)
		}
	}
}

func TestEpoch(t *testing.T) {
	testcases := []struct {
		unit time.Duration
		text string
		want time.Time
	}{
		{time.Second, "86400", time.Unix(86400, 0)},
		{time.Millisecond, "1500", time.Unix(1, 5e8)},
		{time.Microsecond, "2000001", time.Unix(2, 1000)},
		{time.Nanosecond, "3000000007", time.Unix(3, 7)},
	}
	for _, tc := range testcases {
		v, err := parseEpoch(tc.unit)(tc.text)
		if err != nil {
			t.Fatal(err)
		}
		if got := v.(time.Time); !got.Equal(tc.want) {
			t.Errorf("%s at %s: got %s, want %s", tc.text, tc.unit, got, tc.want)
		}
	}
}

func TestMemory(t *testing.T) {
	sp := tensor.MustSpace("orderid")
	typ := tensor.Type{Space: sp}
	rows := []tensor.Row{
		{Point: tensor.PointOf(map[string]tensor.Value{"orderid": int64(1)}), Value: 10},
		{Point: tensor.PointOf(map[string]tensor.Value{"orderid": int64(2)}), Value: 20},
	}
	m, err := NewMemory(typ, rows)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, collect(t, m), "{orderid: 1} 10", "{orderid: 2} 20")
	it, err := m.Stream(context.Background(), tensor.Predicate{&tensor.Comparison{
		Axis: "orderid",
		Op:   tensor.Greater,
		RHS:  tensor.Variable{Name: "min"},
	}}, tensor.Env{"min": int64(1)})
	if err != nil {
		t.Fatal(err)
	}
	lst, err := tensor.Collect(it)
	if err != nil {
		t.Fatal(err)
	}
	if len(lst) != 1 || lst[0].Value != 20 {
		t.Errorf("filtered rows: %v", lst)
	}
	bad := []tensor.Row{{Point: tensor.PointOf(map[string]tensor.Value{"productid": int64(1)}), Value: 1}}
	if _, err := NewMemory(typ, bad); err == nil {
		t.Error("NewMemory accepted a point outside its space")
	}
}

func TestLoadAttribute(t *testing.T) {
	fsys := fstest.MapFS{
		"orders.csv":   {Data: []byte("OrderID,CustomerID,ShipCountry\n10248,VINET,France\n10249,TOMSP,Germany\n10250,HANAR,\n")},
		"conflict.csv": {Data: []byte("OrderID,ShipCountry\n1,France\n1,Spain\n")},
	}
	hint := &AttributeHint{
		Domain: KeyHint{Axis: "orderid", Type: TypeInt},
		Range:  KeyHint{Axis: "country", Column: "shipcountry"},
	}
	fn, err := LoadAttribute("orders.csv", File(fsys, "orders.csv"), hint)
	if err != nil {
		t.Fatal(err)
	}
	v, err := fn(int64(10249))
	if err != nil {
		t.Fatal(err)
	}
	if v != "Germany" {
		t.Errorf("10249 -> %v", v)
	}
	if _, err := fn(int64(10250)); !errors.Is(err, ErrNoAttribute) {
		t.Errorf("order with no country: %v", err)
	}
	if _, err := fn(int64(1)); !errors.Is(err, ErrNoAttribute) {
		t.Errorf("unknown order: %v", err)
	}
	_, err = LoadAttribute("conflict.csv", File(fsys, "conflict.csv"), &AttributeHint{
		Domain: KeyHint{Axis: "orderid", Type: TypeInt},
		Range:  KeyHint{Axis: "country", Column: "shipcountry"},
	})
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("conflicting attribute: %v", err)
	}
}
