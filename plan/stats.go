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

// ExecStats is a collection
// of statistics that are aggregated
// during the execution of a query.
//
// The fields are updated atomically,
// so the same ExecStats may be shared
// by concurrent queries.
type ExecStats struct {
	// Streams is the number of
	// times a source was opened.
	Streams int64
	// Scanned is the number of rows
	// read from sources, and Matched
	// is the number of those rows that
	// satisfied the source predicate.
	Scanned, Matched int64
	// Emitted is the number of rows
	// produced at the root of the plan
	// (see Count).
	Emitted int64
}

// Snapshot returns a copy of e
// that is safe to inspect while
// queries are still running.
func (e *ExecStats) Snapshot() ExecStats {
	return ExecStats{
		Streams: atomic.LoadInt64(&e.Streams),
		Scanned: atomic.LoadInt64(&e.Scanned),
		Matched: atomic.LoadInt64(&e.Matched),
		Emitted: atomic.LoadInt64(&e.Emitted),
	}
}

// String implements fmt.Stringer
func (e *ExecStats) String() string {
	s := e.Snapshot()
	return fmt.Sprintf("streams=%d scanned=%d matched=%d emitted=%d",
		s.Streams, s.Scanned, s.Matched, s.Emitted)
}

type statsKey struct{}

// WithStats returns a context that causes
// queries streamed with it to record their
// statistics into stats.
func WithStats(ctx context.Context, stats *ExecStats) context.Context {
	return context.WithValue(ctx, statsKey{}, stats)
}

// StatsFrom returns the ExecStats attached
// to ctx by WithStats, or nil.
func StatsFrom(ctx context.Context) *ExecStats {
	s, _ := ctx.Value(statsKey{}).(*ExecStats)
	return s
}

type countIter struct {
	tensor.Iterator
	n *int64
}

func (c *countIter) Next() bool {
	if c.Iterator.Next() {
		atomic.AddInt64(c.n, 1)
		return true
	}
	return false
}

// Count wraps the iterator at the root
// of a plan so that the rows it produces
// are counted in the ExecStats attached to ctx.
func Count(ctx context.Context, it tensor.Iterator) tensor.Iterator {
	stats := StatsFrom(ctx)
	if stats == nil {
		return it
	}
	return &countIter{Iterator: it, n: &stats.Emitted}
}
