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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/SnellerInc/tql/module"
	"github.com/SnellerInc/tql/tensor"

	"github.com/peterh/liner"
)

const replHelp = `name is expression    define a tensor
name                  evaluate a tensor
:let name=value       bind a free variable
:unset name           remove a binding
:explain name         print the plan of a tensor
:top n name           print the n greatest values of a tensor
:list                 list the tensors of the module
:help                 print this message
`

// shell is the state of an interactive session
type shell struct {
	m    *module.Module
	env  tensor.Env
	out  io.Writer
	errs io.Writer
	n    int // definitions entered so far
}

// exec runs one line of input
func (s *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) >= 3 && fields[1] == "is" {
		s.n++
		var diags module.Diagnostics
		s.m.Script(fmt.Sprintf("<input %d>", s.n), []byte(line), &diags)
		for i := range diags {
			fmt.Fprintln(s.errs, diags[i].String())
		}
		return nil
	}
	switch fields[0] {
	case ":help":
		_, err := io.WriteString(s.out, replHelp)
		return err
	case ":list":
		list(s.out, s.m)
		return nil
	case ":let":
		if len(fields) != 2 || !strings.Contains(fields[1], "=") {
			return fmt.Errorf("usage: :let name=value")
		}
		env, err := bind(s.m, fields[1:])
		if err != nil {
			return err
		}
		for k, v := range env {
			s.env[k] = v
		}
		return nil
	case ":unset":
		if len(fields) != 2 {
			return fmt.Errorf("usage: :unset name")
		}
		delete(s.env, strings.ToLower(fields[1]))
		return nil
	case ":explain":
		if len(fields) != 2 {
			return fmt.Errorf("usage: :explain name")
		}
		q, err := s.m.Query(fields[1], s.env)
		if err != nil {
			return err
		}
		_, err = io.WriteString(s.out, q.Explain())
		return err
	case ":top":
		if len(fields) != 3 {
			return fmt.Errorf("usage: :top n name")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("bad row count %q", fields[1])
		}
		q, err := s.m.Query(fields[2], s.env)
		if err != nil {
			return err
		}
		lst, err := q.Top(ctx, n)
		if err != nil {
			return err
		}
		return write(s.out, lst, false)
	}
	if strings.HasPrefix(fields[0], ":") {
		return fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
	if len(fields) != 1 {
		return fmt.Errorf("expected a tensor name or a definition")
	}
	q, err := s.m.Query(fields[0], s.env)
	if err != nil {
		return err
	}
	lst, err := q.Rows(ctx)
	if err != nil {
		return err
	}
	return write(s.out, lst, false)
}

func repl(m *module.Module, env tensor.Env) error {
	s := &shell{m: m, env: env, out: os.Stdout, errs: os.Stderr}
	lin := liner.NewLiner()
	defer lin.Close()
	lin.SetMultiLineMode(true)
	lin.SetCtrlCAborts(true)
	ctx := context.Background()
	for {
		got, err := lin.Prompt("tql> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return fmt.Errorf("reading prompt: %w", err)
		}
		if strings.TrimSpace(got) == "" {
			continue
		}
		lin.AppendHistory(got)
		if err := s.exec(ctx, got); err != nil {
			fmt.Fprintln(s.errs, err)
		}
	}
}
