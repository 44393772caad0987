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
	"flag"
	"fmt"
	"io"
	"strings"
)

// usage prints the flags of fs in sections.
// Each entry of order is either the name of a
// flag or the heading of a new section. Flags
// not named in order are printed last.
func usage(dst io.Writer, fs *flag.FlagSet, order []string) {
	fmt.Fprintf(dst, "usage: %s [flags] tensor...\n", fs.Name())
	seen := make(map[string]bool)
	for _, text := range order {
		f := fs.Lookup(text)
		if f == nil {
			fmt.Fprintf(dst, "\n%s\n", text)
			continue
		}
		printFlag(dst, f)
		seen[f.Name] = true
	}
	header := false
	fs.VisitAll(func(f *flag.Flag) {
		if seen[f.Name] {
			return
		}
		if !header {
			fmt.Fprintf(dst, "\nUncategorized\n")
			header = true
		}
		printFlag(dst, f)
	})
}

func printFlag(dst io.Writer, f *flag.Flag) {
	name, help := flag.UnquoteUsage(f)
	line := "  -" + f.Name
	if name != "" {
		line += " " + name
	}
	fmt.Fprintf(dst, "%s\n    \t%s", line, strings.ReplaceAll(help, "\n", "\n    \t"))
	switch f.DefValue {
	case "", "false", "0", "-1":
	default:
		fmt.Fprintf(dst, " (default %s)", f.DefValue)
	}
	fmt.Fprintln(dst)
}
