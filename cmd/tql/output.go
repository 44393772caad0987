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
	"bufio"
	"encoding/json"
	"io"
	"strconv"

	"github.com/SnellerInc/tql/tensor"
)

type jsonRow struct {
	Point map[string]tensor.Value `json:"point"`
	Value float64                 `json:"value"`
}

func output(dst io.Writer, rows []tensor.Row) error {
	return write(dst, rows, dashj)
}

// write prints rows one per line, either as
// text (the point, a tab, and the value) or
// as JSON objects
func write(dst io.Writer, rows []tensor.Row, asJSON bool) error {
	w := bufio.NewWriter(dst)
	if asJSON {
		enc := json.NewEncoder(w)
		for i := range rows {
			p := rows[i].Point
			jr := jsonRow{Point: make(map[string]tensor.Value, p.Len()), Value: rows[i].Value}
			for j := 0; j < p.Len(); j++ {
				c := p.At(j)
				jr.Point[c.Axis] = c.Value
			}
			if err := enc.Encode(&jr); err != nil {
				return err
			}
		}
		return w.Flush()
	}
	for i := range rows {
		w.WriteString(rows[i].Point.String())
		w.WriteByte('\t')
		w.WriteString(strconv.FormatFloat(rows[i].Value, 'g', -1, 64))
		w.WriteByte('\n')
	}
	return w.Flush()
}
