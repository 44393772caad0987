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

package tensor

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/exp/constraints"
)

// Value is a coordinate along an axis.
//
// The dynamic type of a Value is always
// one of int64, float64, string, bool or
// time.Time; use Normalize to convert other
// Go values at API boundaries.
type Value = interface{}

// ErrBadValue is returned by Normalize
// for values that cannot be coordinates.
var ErrBadValue = errors.New("invalid coordinate value")

// Normalize converts v into one of the
// dynamic types permitted for a Value.
func Normalize(v interface{}) (Value, error) {
	switch v := v.(type) {
	case int64, float64, string, bool:
		return v, nil
	case time.Time:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T", ErrBadValue, v)
	}
}

// MismatchError is returned when two values
// of incomparable types are compared.
type MismatchError struct {
	Left, Right Value
}

func (m *MismatchError) Error() string {
	return fmt.Sprintf("cannot compare %T %s with %T %s",
		m.Left, FormatValue(m.Left), m.Right, FormatValue(m.Right))
}

func ordered[T constraints.Ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Compare orders two values. Integers and
// floats compare numerically with one another;
// strings, times and booleans only compare with
// values of the same type. Any other pairing
// returns a *MismatchError.
func Compare(a, b Value) (int, error) {
	switch a := a.(type) {
	case int64:
		switch b := b.(type) {
		case int64:
			return ordered(a, b), nil
		case float64:
			return ordered(float64(a), b), nil
		}
	case float64:
		switch b := b.(type) {
		case int64:
			return ordered(a, float64(b)), nil
		case float64:
			return ordered(a, b), nil
		}
	case string:
		if b, ok := b.(string); ok {
			return ordered(a, b), nil
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b), nil
		}
	case bool:
		if b, ok := b.(bool); ok {
			return ordered(btoi(a), btoi(b)), nil
		}
	}
	return 0, &MismatchError{Left: a, Right: b}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// equal is the structural equality used for
// points; unlike Compare it never coerces
func equal(a, b Value) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// FormatValue formats a value the way
// it would be written in a script.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a date or timestamp
// in one of the layouts accepted in scripts
// and data files.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or timestamp", s)
}
