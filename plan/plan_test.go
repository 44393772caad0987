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

package plan

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"
)

// feed is a restartable in-memory data feed
// that ignores the predicate it is given
type feed struct {
	typ  tensor.Type
	rows []tensor.Row
}

func (f *feed) Type() tensor.Type { return f.typ }

func (f *feed) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	return tensor.Rows(f.rows), nil
}

func pt(kv ...interface{}) tensor.Point {
	m := make(map[string]tensor.Value)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return tensor.PointOf(m)
}

func source(name string, unit units.Unit, axes []string, rows ...tensor.Row) *Source {
	return &Source{
		Name: name,
		Feed: &feed{typ: tensor.Type{Space: tensor.MustSpace(axes...), Unit: unit}, rows: rows},
	}
}

func collect(t *testing.T, op tensor.Tensor, pred tensor.Predicate, env tensor.Env) []string {
	t.Helper()
	it, err := op.Stream(context.Background(), pred, env)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := tensor.Collect(it)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].String()
	}
	return out
}

func expect(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestSumImage(t *testing.T) {
	src := source("source", units.Dimensionless, []string{"orderid"},
		tensor.Row{Point: pt("orderid", int64(1)), Value: 10},
		tensor.Row{Point: pt("orderid", int64(2)), Value: 20},
	)
	country := tensor.Attribute("orderid", "country", func(v tensor.Value) (tensor.Value, error) {
		return "US", nil
	})
	total := &Transformation{
		Nonterminal: Nonterminal{From: src},
		Steps:       []*tensor.Transform{country},
		Space:       tensor.MustSpace("country"),
	}
	expect(t, collect(t, total, nil, nil), `{country: "US"} 30`)
	// streaming twice gives the same answer
	expect(t, collect(t, total, nil, nil), `{country: "US"} 30`)
}

func TestTransformationPredicates(t *testing.T) {
	continent := map[string]string{
		"France": "Europe",
		"Mexico": "North America",
		"USA":    "North America",
	}
	src := source("sales", units.Dimensionless, []string{"shipcountry", "year"},
		tensor.Row{Point: pt("shipcountry", "France", "year", int64(2021)), Value: 1},
		tensor.Row{Point: pt("shipcountry", "Mexico", "year", int64(2021)), Value: 2},
		tensor.Row{Point: pt("shipcountry", "USA", "year", int64(2021)), Value: 4},
		tensor.Row{Point: pt("shipcountry", "USA", "year", int64(2022)), Value: 8},
	)
	byContinent := &Transformation{
		Nonterminal: Nonterminal{From: src},
		Steps: []*tensor.Transform{tensor.Attribute("shipcountry", "continent", func(v tensor.Value) (tensor.Value, error) {
			return continent[v.(string)], nil
		})},
		Space: tensor.MustSpace("continent", "year"),
	}
	pred := tensor.Predicate{
		&tensor.Comparison{Axis: "continent", Op: tensor.Equals, RHS: tensor.Variable{Name: "c"}},
		&tensor.Comparison{Axis: "year", Op: tensor.Less, RHS: tensor.Constant{Value: int64(2022)}},
	}
	below, above := byContinent.split(pred)
	if below.String() != "year < 2022" || above.String() != "continent = $c" {
		t.Errorf("split: below %q above %q", below, above)
	}
	expect(t, collect(t, byContinent, pred, tensor.Env{"c": "North America"}),
		`{continent: "North America", year: 2021} 6`)

	_, err := byContinent.Stream(context.Background(), pred, nil)
	if !errors.Is(err, tensor.ErrUnbound) {
		t.Fatalf("expected ErrUnbound, got %v", err)
	}
}

func TestMultiplex(t *testing.T) {
	axes := []string{"x"}
	var arows, brows []tensor.Row
	for i := int64(0); i < 8; i++ {
		arows = append(arows, tensor.Row{Point: pt("x", i), Value: float64(i)})
		if i%2 == 0 {
			brows = append(brows, tensor.Row{Point: pt("x", i), Value: float64(100 * i)})
		}
	}
	m := &Multiplex{
		IfTrue:    source("a", units.Dimensionless, axes, arows...),
		Criterion: &tensor.Comparison{Axis: "x", Op: tensor.Less, RHS: tensor.Constant{Value: int64(5)}},
		IfFalse:   source("b", units.Dimensionless, axes, brows...),
	}
	expect(t, collect(t, m, nil, nil),
		"{x: 0} 0", "{x: 1} 1", "{x: 2} 2", "{x: 3} 3", "{x: 4} 4",
		"{x: 6} 600",
	)
	// the caller's predicate reaches both branches
	pred := tensor.Predicate{&tensor.Comparison{Axis: "x", Op: tensor.GreaterEquals, RHS: tensor.Constant{Value: int64(3)}}}
	expect(t, collect(t, m, pred, nil), "{x: 3} 3", "{x: 4} 4", "{x: 6} 600")
}

func TestBinary(t *testing.T) {
	u := units.NewUniverse()
	d, _ := u.Fundamental("dollar")
	w, _ := u.Fundamental("widget")
	axes := []string{"productid"}
	qty := source("qty", w, axes,
		tensor.Row{Point: pt("productid", int64(1)), Value: 2},
		tensor.Row{Point: pt("productid", int64(2)), Value: 0},
		tensor.Row{Point: pt("productid", int64(3)), Value: 5},
	)
	revenue := source("revenue", d, axes,
		tensor.Row{Point: pt("productid", int64(3)), Value: 50},
		tensor.Row{Point: pt("productid", int64(2)), Value: 7},
		tensor.Row{Point: pt("productid", int64(4)), Value: 1},
	)
	price := &Binary{
		Op:     expr.Div,
		Left:   revenue,
		Right:  qty,
		Result: tensor.Type{Space: tensor.MustSpace(axes...), Unit: d.Div(w)},
	}
	// 4 is missing on the right and 2 divides by zero
	expect(t, collect(t, price, nil, nil), "{productid: 3} 10")

	sum := &Binary{Op: expr.Add, Left: qty, Right: qty, Result: qty.Type()}
	expect(t, collect(t, sum, nil, nil), "{productid: 1} 4", "{productid: 2} 0", "{productid: 3} 10")
}

func TestBinaryDuplicates(t *testing.T) {
	axes := []string{"k"}
	a := source("a", units.Dimensionless, axes,
		tensor.Row{Point: pt("k", int64(1)), Value: 1},
		tensor.Row{Point: pt("k", int64(2)), Value: 5},
		tensor.Row{Point: pt("k", int64(1)), Value: 2},
	)
	b := source("b", units.Dimensionless, axes,
		tensor.Row{Point: pt("k", int64(1)), Value: 10},
		tensor.Row{Point: pt("k", int64(1)), Value: 20},
	)
	typ := a.Type()
	ab := &Binary{Op: expr.Add, Left: a, Right: b, Result: typ}
	ba := &Binary{Op: expr.Add, Left: b, Right: a, Result: typ}
	expect(t, collect(t, ab, nil, nil), "{k: 1} 33")
	expect(t, collect(t, ba, nil, nil), "{k: 1} 33")

	prod := &Binary{Op: expr.Mul, Left: a, Right: b, Result: typ}
	expect(t, collect(t, prod, nil, nil), "{k: 1} 90")
}

func TestAggregationAndScale(t *testing.T) {
	src := source("sold", units.Dimensionless, []string{"orderid", "productid"},
		tensor.Row{Point: pt("orderid", int64(10), "productid", int64(1)), Value: 1},
		tensor.Row{Point: pt("orderid", int64(10), "productid", int64(2)), Value: 2},
		tensor.Row{Point: pt("orderid", int64(11), "productid", int64(1)), Value: 4},
		tensor.Row{Point: pt("orderid", int64(12), "productid", int64(3)), Value: 8},
	)
	agg := &Aggregation{Nonterminal: Nonterminal{From: src}, Space: tensor.MustSpace("productid")}
	expect(t, collect(t, agg, nil, nil), "{productid: 1} 5", "{productid: 2} 2", "{productid: 3} 8")

	half := &Scale{Nonterminal: Nonterminal{From: agg}, Factor: 2, Divide: true}
	pred := tensor.Predicate{&tensor.In{Axis: "productid", Set: tensor.Constant{Value: []tensor.Value{int64(1), int64(3)}}}}
	expect(t, collect(t, half, pred, nil), "{productid: 1} 2.5", "{productid: 3} 4")

	total := &Aggregation{Nonterminal: Nonterminal{From: src}, Space: tensor.MustSpace()}
	expect(t, collect(t, total, nil, nil), "{} 15")

	filtered := &Filter{
		Nonterminal: Nonterminal{From: agg},
		Criterion:   &tensor.Not{Inner: &tensor.Comparison{Axis: "productid", Op: tensor.Equals, RHS: tensor.Constant{Value: int64(2)}}},
	}
	expect(t, collect(t, filtered, nil, nil), "{productid: 1} 5", "{productid: 3} 8")
}

func TestConstant(t *testing.T) {
	c := &Constant{Value: 3}
	if !c.Type().Space.Equal(tensor.MustSpace()) || !c.Type().Unit.IsDimensionless() {
		t.Fatalf("constant type %s", c.Type())
	}
	expect(t, collect(t, c, nil, nil), "{} 3")
	twice := &Scale{Nonterminal: Nonterminal{From: c}, Factor: 2}
	expect(t, collect(t, twice, nil, nil), "{} 6")
}

func TestStatsAndCancel(t *testing.T) {
	var rows []tensor.Row
	for i := int64(0); i < 3000; i++ {
		rows = append(rows, tensor.Row{Point: pt("x", i), Value: 1})
	}
	src := source("big", units.Dimensionless, []string{"x"}, rows...)
	pred := tensor.Predicate{&tensor.Comparison{Axis: "x", Op: tensor.Less, RHS: tensor.Constant{Value: int64(10)}}}

	var stats ExecStats
	ctx := WithStats(context.Background(), &stats)
	it, err := src.Stream(ctx, pred, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tensor.Collect(Count(ctx, it))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d rows", len(got))
	}
	if s := stats.Snapshot(); s.Streams != 1 || s.Scanned != 3000 || s.Matched != 10 || s.Emitted != 10 {
		t.Fatalf("stats: %s", &stats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	it, err = src.Stream(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	_, err = tensor.Collect(it)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := src.Stream(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	u := units.NewUniverse()
	d, _ := u.Fundamental("dollar")
	src := source("net_value", d, []string{"orderid", "productid"})
	step := tensor.Attribute("orderid", "shipcountry", func(v tensor.Value) (tensor.Value, error) {
		return fmt.Sprint(v), nil
	})
	op := &Filter{
		Nonterminal: Nonterminal{From: &Transformation{
			Nonterminal: Nonterminal{From: src},
			Steps:       []*tensor.Transform{step},
			Space:       tensor.MustSpace("shipcountry"),
		}},
		Criterion: &tensor.Comparison{Axis: "shipcountry", Op: tensor.Equals, RHS: tensor.Variable{Name: "country"}},
	}
	want := strings.Join([]string{
		"WHERE shipcountry = $country",
		"\tTRANSFORM {[orderid] -> [shipcountry]} BY [shipcountry]",
		"\t\tSOURCE net_value [orderid, productid] dollar",
		"",
	}, "\n")
	if got := Describe(op); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}
