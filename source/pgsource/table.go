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

// Package pgsource implements tensors
// backed by PostgreSQL tables.
package pgsource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"

	"github.com/jackc/pgx"
)

// Querier is the subset of *pgx.ConnPool
// (and *pgx.Conn) that a Table uses.
type Querier interface {
	QueryEx(ctx context.Context, sql string, options *pgx.QueryExOptions, args ...interface{}) (*pgx.Rows, error)
}

// Open connects to the database named by dsn
// and checks that the connection works.
func Open(dsn string, logger pgx.Logger) (*pgx.ConnPool, error) {
	conf, err := pgx.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if logger != nil {
		conf.Logger = logger
		conf.LogLevel = pgx.LogLevelWarn
	}
	db, err := pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: conf})
	if err != nil {
		return nil, fmt.Errorf("creating pgx connection pool: %w", err)
	}
	if _, err := db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening first pgx connection: %w", err)
	}
	return db, nil
}

// Column maps an axis onto a table column.
type Column struct {
	Axis   string `json:"axis"`
	Column string `json:"column,omitempty"` // defaults to Axis
}

// Table is a tensor whose rows are the rows
// of a database table (or view). Each Stream
// issues a new query, so a Table is restartable.
//
// Comparisons against single values are
// translated into the WHERE clause of the
// query; other criteria are left to the
// caller.
type Table struct {
	db    Querier
	name  pgx.Identifier
	value string
	keys  []Column
	typ   tensor.Type
}

// NewTable constructs a Table over the relation
// name (which may be schema-qualified with a dot).
func NewTable(db Querier, name, value string, keys []Column, unit units.Unit) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("table %s: no keys", name)
	}
	if value == "" {
		return nil, fmt.Errorf("table %s: no value column", name)
	}
	lst := make([]Column, len(keys))
	axes := make([]string, len(keys))
	for i := range keys {
		lst[i].Axis = strings.ToLower(keys[i].Axis)
		lst[i].Column = keys[i].Column
		if lst[i].Column == "" {
			lst[i].Column = lst[i].Axis
		}
		axes[i] = lst[i].Axis
	}
	sp, err := tensor.NewSpace(axes...)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return &Table{
		db:    db,
		name:  pgx.Identifier(strings.Split(name, ".")),
		value: value,
		keys:  lst,
		typ:   tensor.Type{Space: sp, Unit: unit},
	}, nil
}

func (t *Table) Type() tensor.Type { return t.typ }

func (t *Table) column(axis string) (string, bool) {
	for i := range t.keys {
		if t.keys[i].Axis == axis {
			return t.keys[i].Column, true
		}
	}
	return "", false
}

// query builds the SELECT statement for pred
func (t *Table) query(pred tensor.Predicate, env tensor.Env) (string, []interface{}, error) {
	var out strings.Builder
	out.WriteString("SELECT ")
	for i := range t.keys {
		out.WriteString(pgx.Identifier{t.keys[i].Column}.Sanitize())
		out.WriteString(", ")
	}
	out.WriteString("CAST(")
	out.WriteString(pgx.Identifier{t.value}.Sanitize())
	out.WriteString(" AS double precision) FROM ")
	out.WriteString(t.name.Sanitize())
	out.WriteString(" WHERE ")
	out.WriteString(pgx.Identifier{t.value}.Sanitize())
	out.WriteString(" IS NOT NULL")
	var args []interface{}
	for _, c := range pred {
		cmp, ok := c.(*tensor.Comparison)
		if !ok {
			continue
		}
		col, ok := t.column(cmp.Axis)
		if !ok {
			continue
		}
		v, err := cmp.RHS.Resolve(env)
		if err != nil {
			return "", nil, err
		}
		if _, ok := v.([]tensor.Value); ok {
			continue
		}
		args = append(args, v)
		out.WriteString(" AND ")
		out.WriteString(pgx.Identifier{col}.Sanitize())
		out.WriteByte(' ')
		out.WriteString(cmp.Op.String())
		out.WriteString(" $")
		out.WriteString(strconv.Itoa(len(args)))
	}
	return out.String(), args, nil
}

func (t *Table) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	sql, args, err := t.query(pred, env)
	if err != nil {
		return nil, err
	}
	rows, err := t.db.QueryEx(ctx, sql, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name.Sanitize(), err)
	}
	return &tableIter{
		table:  t,
		rows:   rows,
		coords: make([]tensor.Coord, len(t.keys)),
	}, nil
}

type tableIter struct {
	table  *Table
	rows   *pgx.Rows
	coords []tensor.Coord

	pt  tensor.Point
	val float64
	err error
}

func (it *tableIter) Next() bool {
	if it.err != nil {
		return false
	}
rows:
	for it.rows.Next() {
		vals, err := it.rows.Values()
		if err != nil {
			it.err = err
			return false
		}
		for i := range it.table.keys {
			if vals[i] == nil {
				continue rows
			}
			v, err := tensor.Normalize(vals[i])
			if err != nil {
				it.err = fmt.Errorf("column %s: %w", it.table.keys[i].Column, err)
				return false
			}
			it.coords[i] = tensor.Coord{Axis: it.table.keys[i].Axis, Value: v}
		}
		f, ok := vals[len(it.table.keys)].(float64)
		if !ok {
			it.err = fmt.Errorf("column %s: unexpected %T", it.table.value, vals[len(it.table.keys)])
			return false
		}
		it.val = f
		it.pt, err = tensor.NewPoint(it.coords...)
		if err != nil {
			it.err = err
			return false
		}
		return true
	}
	return false
}

func (it *tableIter) Point() tensor.Point { return it.pt }
func (it *tableIter) Value() float64      { return it.val }

func (it *tableIter) Err() error {
	if it.err != nil {
		return fmt.Errorf("table %s: %w", it.table.name.Sanitize(), it.err)
	}
	if err := it.rows.Err(); err != nil {
		return fmt.Errorf("table %s: %w", it.table.name.Sanitize(), err)
	}
	return nil
}

func (it *tableIter) Close() error {
	it.rows.Close()
	return nil
}
