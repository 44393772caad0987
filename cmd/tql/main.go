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

// Command tql evaluates tensors defined by
// a module definition and its scripts.
//
//	tql -d northwind.yaml -var country=US by_country
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SnellerInc/tql/def"
	"github.com/SnellerInc/tql/module"
	"github.com/SnellerInc/tql/plan"
	"github.com/SnellerInc/tql/tensor"

	"golang.org/x/crypto/blake2b"
)

// vars collects repeated -var flags
type vars []string

func (v *vars) String() string { return strings.Join(*v, ",") }

func (v *vars) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("expected name=value, found %q", s)
	}
	*v = append(*v, s)
	return nil
}

var (
	dashd       string
	dashs       vars
	dashe       string
	dashvar     vars
	dashj       bool
	dashr       int
	dashtop     int
	dashexplain bool
	dashl       bool
	dasht       bool
	dashv       bool
	dashi       bool
	dasho       string
)

func init() {
	flag.StringVar(&dashd, "d", "", "module definition (YAML or JSON)")
	flag.Var(&dashs, "s", "additional script file (may be repeated)")
	flag.StringVar(&dashe, "e", "", "additional script text")
	flag.Var(&dashvar, "var", "bind a free variable as name=value (may be repeated); lists are comma-separated")
	flag.BoolVar(&dashj, "j", false, "write rows as JSON, one object per line")
	flag.IntVar(&dashr, "r", -1, "round values to this many decimal places")
	flag.IntVar(&dashtop, "top", 0, "print only the rows with the greatest values")
	flag.BoolVar(&dashexplain, "explain", false, "print the query plan instead of evaluating")
	flag.BoolVar(&dashl, "l", false, "list the tensors of the module and their types")
	flag.BoolVar(&dasht, "t", false, "print execution time and statistics on stderr")
	flag.BoolVar(&dashv, "v", false, "verbose logging")
	flag.BoolVar(&dashi, "i", false, "interactive shell")
	flag.StringVar(&dasho, "o", "", "file for output (default is stdout)")

	flag.Usage = func() {
		usage(flag.CommandLine.Output(), flag.CommandLine, []string{
			"Module",
			"d", "s", "e", "l",
			"Queries",
			"var", "explain", "top", "r",
			"Output",
			"j", "o", "t", "v",
			"Interactive",
			"i",
		})
	}
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	log.Printf(f, args...)
}

// fingerprint identifies script text in log lines
func fingerprint(text []byte) string {
	sum := blake2b.Sum256(text)
	return hex.EncodeToString(sum[:6])
}

func diagnostics(diags module.Diagnostics) {
	for i := range diags {
		fmt.Fprintln(os.Stderr, diags[i].String())
	}
}

// load builds the module named by -d
// and plans the scripts named by -s and -e
func load() *module.Module {
	if dashd == "" {
		exit(fmt.Errorf("no module definition (-d)"))
	}
	dir, base := filepath.Split(dashd)
	if dir == "" {
		dir = "."
	}
	fsys := os.DirFS(dir)
	d, err := def.Open(fsys, base)
	if err != nil {
		exit(err)
	}
	opts := &def.Options{}
	if dashv {
		opts.Logf = logf
		logf("definition %s: %s", dashd, hex.EncodeToString(d.Hash()))
	}
	m, diags, err := d.Build(fsys, opts)
	if err != nil {
		exit(err)
	}
	for _, path := range dashs {
		text, err := os.ReadFile(path)
		if err != nil {
			exit(err)
		}
		if dashv {
			logf("script %s: %s", path, fingerprint(text))
		}
		m.Script(path, text, &diags)
	}
	if dashe != "" {
		m.Script("-e", []byte(dashe), &diags)
	}
	diagnostics(diags)
	return m
}

func bind(m *module.Module, lst []string) (tensor.Env, error) {
	env := make(tensor.Env)
	for _, s := range lst {
		name, text, _ := strings.Cut(s, "=")
		v, err := m.Bind(name, text)
		if err != nil {
			return nil, err
		}
		env[strings.ToLower(name)] = v
	}
	return env, nil
}

func list(dst io.Writer, m *module.Module) {
	types := m.Types()
	for _, name := range m.Names() {
		fmt.Fprintf(dst, "%s\t%s", name, types[name])
		if free := m.FreeVariables(name); len(free) > 0 {
			fmt.Fprintf(dst, "\t$%s", strings.Join(free, " $"))
		}
		fmt.Fprintln(dst)
	}
	for _, name := range m.Invalid() {
		fmt.Fprintf(dst, "%s\tinvalid\n", name)
	}
}

func rows(ctx context.Context, q *module.Query) ([]tensor.Row, error) {
	var lst []tensor.Row
	var err error
	if dashtop > 0 {
		lst, err = q.Top(ctx, dashtop)
	} else {
		lst, err = q.Rows(ctx)
	}
	if err != nil {
		return nil, err
	}
	if dashr >= 0 {
		for i := range lst {
			lst[i].Value = module.Round(lst[i].Value, dashr)
		}
	}
	return lst, nil
}

func do(ctx context.Context, dst io.Writer, m *module.Module, env tensor.Env, name string) error {
	q, err := m.Query(name, env)
	if err != nil {
		return err
	}
	if dashexplain {
		_, err := io.WriteString(dst, q.Explain())
		return err
	}
	var stats plan.ExecStats
	start := time.Now()
	lst, err := rows(plan.WithStats(ctx, &stats), q)
	if err != nil {
		return err
	}
	if dasht {
		fmt.Fprintf(os.Stderr, "query %s (%s): %s %s\n", q.ID(), name, time.Since(start), &stats)
	}
	return output(dst, lst)
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)
	m := load()
	var dst io.Writer = os.Stdout
	if dasho != "" {
		f, err := os.Create(dasho)
		if err != nil {
			exit(err)
		}
		defer f.Close()
		dst = f
	}
	env, err := bind(m, dashvar)
	if err != nil {
		exit(err)
	}
	if dashl {
		list(dst, m)
	}
	if dashi {
		if err := repl(m, env); err != nil {
			exit(err)
		}
		return
	}
	ctx := context.Background()
	for _, name := range flag.Args() {
		if len(flag.Args()) > 1 && !dashj {
			fmt.Fprintf(dst, "# %s\n", name)
		}
		if err := do(ctx, dst, m, env, name); err != nil {
			exit(err)
		}
	}
}
