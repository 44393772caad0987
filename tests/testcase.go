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

// Package tests provides common functions used in tests.
package tests

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
)

var sepdash = []byte("---")

// Spec is a test case read by ReadSpec.
type Spec struct {
	// Sections are the parts of the file
	// separated by lines beginning with `---`.
	Sections [][]string
	// Tags are the `## key: value` lines,
	// keyed by the lower-cased key.
	Tags map[string]string
}

// ReadSpec reads parts of a text separated by `---`.
//
// Each part is a list of lines. Empty lines are
// skipped, as are lines starting with `#` other
// than tag lines, which start with `##` and hold
// a `key: value` pair.
func ReadSpec(r io.Reader) (*Spec, error) {
	rd := bufio.NewScanner(r)
	spec := &Spec{
		Sections: [][]string{{}},
		Tags:     make(map[string]string),
	}
	part := 0
	for rd.Scan() {
		line := rd.Bytes()
		if bytes.HasPrefix(line, sepdash) {
			part++
			spec.Sections = append(spec.Sections, []string{})
			continue
		}
		if bytes.HasPrefix(line, []byte("##")) {
			key, value, ok := strings.Cut(string(line[2:]), ":")
			if ok {
				key = strings.ToLower(strings.TrimSpace(key))
				spec.Tags[key] = strings.TrimSpace(value)
			}
			continue
		}
		// allow # line comments iff they begin the line
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		spec.Sections[part] = append(spec.Sections[part], string(line))
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ParseTestcase reads the test case in the named file.
func ParseTestcase(fname string) (*Spec, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSpec(f)
}
