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
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SnellerInc/tql/tensor"
	"github.com/SnellerInc/tql/units"

	"golang.org/x/exp/slices"
)

const (
	TypeString   = "string" // default
	TypeNumber   = "number" // also floating point
	TypeInt      = "int"    // integer only
	TypeBool     = "bool"
	TypeDateTime = "datetime"
)

const (
	FormatDateTime             = "datetime" // default
	FormatDateTimeUnixSec      = "unix_seconds"
	FormatDateTimeUnixMilliSec = "unix_milli_seconds"
	FormatDateTimeUnixMicroSec = "unix_micro_seconds"
	FormatDateTimeUnixNanoSec  = "unix_nano_seconds"
)

var (
	ErrNoKeys                        = errors.New("hint has no keys")
	ErrNoValue                       = errors.New("hint has no value column")
	ErrFormatOnlyValidForDateTime    = errors.New("format only valid for datetime type")
	ErrBoolValuesOnlyValidForBool    = errors.New("custom true/false values only valid for bool type")
	ErrRequireBothTrueAndFalseValues = errors.New("require both true and false values")
	ErrTrueAndFalseValuesOverlap     = errors.New("true and false values overlap")
	ErrBadSeparator                  = errors.New("separator must be a single character")
)

// Hint specifies how the columns of a CSV
// file map onto the points and values of a
// tensor.
type Hint struct {
	// Separator allows specifying a custom
	// separator (defaults to comma)
	Separator string `json:"separator,omitempty"`
	// Loose selects splitting each line on every
	// separator that is not followed by whitespace,
	// rather than RFC 4180 quoting. Exports that
	// leave commas in text unquoted ("Lyon, France")
	// need this.
	Loose bool `json:"loose,omitempty"`
	// Value is the name of the numeric column.
	Value string `json:"value"`
	// Keys specifies the column for each axis.
	Keys []KeyHint `json:"keys"`
}

// KeyHint defines how a column is
// parsed into coordinates along an axis.
type KeyHint struct {
	// Axis is the name of the axis.
	Axis string `json:"axis"`
	// Column is the name of the column;
	// it defaults to the axis name.
	Column string `json:"column,omitempty"`
	// Type of the column (default "string")
	Type string `json:"type,omitempty"`
	// Default value if the column is an empty
	// string. Rows with an empty key column and
	// no default are skipped.
	Default string `json:"default,omitempty"`
	// Format of a datetime column
	Format string `json:"format,omitempty"`
	// Optional list of values that represent TRUE
	// (only valid for bool type)
	TrueValues []string `json:"trueValues,omitempty"`
	// Optional list of values that represent FALSE
	// (only valid for bool type)
	FalseValues []string `json:"falseValues,omitempty"`

	parse func(string) (tensor.Value, error)
}

func (kh *KeyHint) UnmarshalJSON(data []byte) error {
	type _keyHint KeyHint
	if err := json.Unmarshal(data, (*_keyHint)(kh)); err != nil {
		return err
	}
	return kh.compile()
}

func (kh *KeyHint) compile() error {
	kh.Axis = strings.ToLower(kh.Axis)
	if kh.Axis == "" {
		return fmt.Errorf("key hint: %w: no axis", units.ErrInvalidName)
	}
	if kh.Column == "" {
		kh.Column = kh.Axis
	}
	kh.Column = strings.ToLower(kh.Column)

	t := kh.Type
	if t == "" {
		t = TypeString
	}
	if t != TypeDateTime && kh.Format != "" {
		return ErrFormatOnlyValidForDateTime
	}
	if t != TypeBool && (kh.TrueValues != nil || kh.FalseValues != nil) {
		return ErrBoolValuesOnlyValidForBool
	}

	switch t {
	case TypeString:
		kh.parse = parseString
	case TypeNumber:
		kh.parse = parseNumber
	case TypeInt:
		kh.parse = parseInt
	case TypeBool:
		if kh.TrueValues != nil || kh.FalseValues != nil {
			if len(kh.TrueValues) == 0 || len(kh.FalseValues) == 0 {
				return ErrRequireBothTrueAndFalseValues
			}
			// make sure there is no overlap
			for _, tv := range kh.TrueValues {
				if slices.Contains(kh.FalseValues, tv) {
					return ErrTrueAndFalseValuesOverlap
				}
			}
			trueValues, falseValues := kh.TrueValues, kh.FalseValues
			kh.parse = func(text string) (tensor.Value, error) {
				return parseCustomBool(text, trueValues, falseValues)
			}
		} else {
			kh.parse = parseBool
		}
	case TypeDateTime:
		f := FormatDateTime
		if kh.Format != "" {
			f = kh.Format
		}
		switch f {
		case FormatDateTime:
			kh.parse = parseDate
		case FormatDateTimeUnixSec:
			kh.parse = parseEpoch(time.Second)
		case FormatDateTimeUnixMilliSec:
			kh.parse = parseEpoch(time.Millisecond)
		case FormatDateTimeUnixMicroSec:
			kh.parse = parseEpoch(time.Microsecond)
		case FormatDateTimeUnixNanoSec:
			kh.parse = parseEpoch(time.Nanosecond)
		default:
			return fmt.Errorf("invalid date format %q", f)
		}
	default:
		return fmt.Errorf("key %s: invalid type %q", kh.Axis, kh.Type)
	}
	if kh.Default != "" {
		if _, err := kh.parse(kh.Default); err != nil {
			return fmt.Errorf("key %s: default: %w", kh.Axis, err)
		}
	}
	return nil
}

// Parse converts the text of a column
// into a coordinate.
func (kh *KeyHint) Parse(text string) (tensor.Value, error) {
	if kh.parse == nil {
		if err := kh.compile(); err != nil {
			return nil, err
		}
	}
	return kh.parse(text)
}

// Kind returns the kind of axis
// values the hint produces.
func (kh *KeyHint) Kind() units.Kind {
	switch kh.Type {
	case TypeNumber:
		return units.Number
	case TypeInt:
		return units.Int
	case TypeBool:
		return units.Bool
	case TypeDateTime:
		return units.Date
	}
	return units.String
}

// Compile validates the hint. Hints decoded
// from JSON or YAML are compiled as they are
// decoded; hints built in Go must be compiled
// before use.
func (h *Hint) Compile() error {
	if len(h.Keys) == 0 {
		return ErrNoKeys
	}
	if h.Value == "" {
		return ErrNoValue
	}
	h.Value = strings.ToLower(h.Value)
	if _, err := h.separator(); err != nil {
		return err
	}
	for i := range h.Keys {
		if err := h.Keys[i].compile(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hint) separator() (rune, error) {
	if h.Separator == "" {
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(h.Separator)
	if size != len(h.Separator) || r == utf8.RuneError || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("%w: %q", ErrBadSeparator, h.Separator)
	}
	return r, nil
}

// Space returns the space of the
// points described by the hint.
func (h *Hint) Space() (tensor.Space, error) {
	axes := make([]string, len(h.Keys))
	for i := range h.Keys {
		axes[i] = strings.ToLower(h.Keys[i].Axis)
	}
	return tensor.NewSpace(axes...)
}

// ParseHint parses a JSON hint, like:
//
//	{
//	  "value": "quantity",
//	  "keys": [
//	    {"axis": "orderid", "type": "int"},
//	    {"axis": "productid", "type": "int"},
//	    {"axis": "discontinued", "type": "bool", "trueValues": ["Y"], "falseValues": ["N"]},
//	    {"axis": "orderdate", "type": "datetime", "format": "unix_seconds"}
//	  ]
//	}
//
// Supported types:
//   - string
//   - number -> floating point
//   - int
//   - bool -> can support custom trueValues/falseValues
//   - datetime -> formats: datetime (default), unix_seconds, unix_milli_seconds,
//     unix_micro_seconds, unix_nano_seconds
func ParseHint(hint []byte) (*Hint, error) {
	var h Hint
	err := json.Unmarshal(hint, &h)
	if err != nil {
		return nil, err
	}
	if err := h.Compile(); err != nil {
		return nil, err
	}
	return &h, nil
}

func parseString(text string) (tensor.Value, error) {
	return text, nil
}

func parseNumber(text string) (tensor.Value, error) {
	return strconv.ParseFloat(text, 64)
}

func parseInt(text string) (tensor.Value, error) {
	return strconv.ParseInt(text, 10, 64)
}

func parseCustomBool(text string, trueValues []string, falseValues []string) (tensor.Value, error) {
	if slices.Contains(trueValues, text) {
		return true, nil
	}
	if slices.Contains(falseValues, text) {
		return false, nil
	}
	return nil, fmt.Errorf("%q is neither a true nor a false value", text)
}

func parseBool(text string) (tensor.Value, error) {
	return strconv.ParseBool(text)
}

func parseDate(text string) (tensor.Value, error) {
	return tensor.ParseTime(text)
}

func parseEpoch(unit time.Duration) func(string) (tensor.Value, error) {
	return func(text string) (tensor.Value, error) {
		e, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, err
		}
		per := int64(time.Second / unit)
		return time.Unix(e/per, (e%per)*int64(unit)).UTC(), nil
	}
}
