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
	"fmt"
	"sync/atomic"

	"github.com/SnellerInc/tql/tensor"
)

// Source is the leaf of a plan: it wraps
// an external data feed such as a CSV file
// or a database table. A Source is the only
// Op that performs I/O.
//
// The predicate is passed to the feed so that
// it may skip rows early, but the Source also
// tests every row itself, so feeds are free
// to ignore it.
type Source struct {
	Name string
	Feed tensor.Tensor
}

func (s *Source) Type() tensor.Type { return s.Feed.Type() }

// how often (in rows) a source
// checks for cancellation
const cancelCheck = 1024

func (s *Source) Stream(ctx context.Context, pred tensor.Predicate, env tensor.Env) (tensor.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tensor.CheckSpace(s, pred); err != nil {
		return nil, fmt.Errorf("source %s: %w", s.Name, err)
	}
	it, err := s.Feed.Stream(ctx, pred, env)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.Name, err)
	}
	stats := StatsFrom(ctx)
	if stats != nil {
		atomic.AddInt64(&stats.Streams, 1)
	}
	return &sourceIter{
		ctx:   ctx,
		name:  s.Name,
		inner: it,
		pred:  pred,
		env:   env,
		stats: stats,
	}, nil
}

func (s *Source) inputs() []tensor.Tensor { return nil }

// String implements fmt.Stringer
func (s *Source) String() string {
	return "SOURCE " + s.Name + " " + s.Feed.Type().String()
}

type sourceIter struct {
	ctx    context.Context
	name   string
	inner  tensor.Iterator
	pred   tensor.Predicate
	env    tensor.Env
	stats  *ExecStats
	n      int
	err    error
	closed bool
}

func (s *sourceIter) Next() bool {
	if s.err != nil {
		return false
	}
	for s.inner.Next() {
		s.n++
		if s.n%cancelCheck == 0 {
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return false
			}
		}
		if s.stats != nil {
			atomic.AddInt64(&s.stats.Scanned, 1)
		}
		ok, err := s.pred.Test(s.inner.Point(), s.env)
		if err != nil {
			s.err = fmt.Errorf("source %s: %w", s.name, err)
			return false
		}
		if ok {
			if s.stats != nil {
				atomic.AddInt64(&s.stats.Matched, 1)
			}
			return true
		}
	}
	return false
}

func (s *sourceIter) Point() tensor.Point { return s.inner.Point() }
func (s *sourceIter) Value() float64      { return s.inner.Value() }

func (s *sourceIter) Err() error {
	if s.err != nil {
		return s.err
	}
	if err := s.inner.Err(); err != nil {
		return fmt.Errorf("source %s: %w", s.name, err)
	}
	return nil
}

func (s *sourceIter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.inner.Close()
}
