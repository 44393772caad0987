// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package heap implements generic heap functions
// and a bounded heap for selecting the n greatest
// items of a stream.
package heap

// FixSlice fixes the element x[index] in order
// to preserve the min-heap invariant determined
// by the provided comparison function.
func FixSlice[T any](x []T, index int, less func(x, y T) bool) {
	siftDown(x, index, less)
	siftUp(x, index, less)
}

// PopSlice removes the "smallest" element from x
// based on the provided comparison function
// and updates x appropriately to preserve the
// heap invariant.
func PopSlice[T any](x *[]T, less func(x, y T) bool) T {
	ret := (*x)[0]
	(*x)[0], *x = (*x)[len(*x)-1], (*x)[:len(*x)-1]
	if len(*x) > 0 {
		siftDown((*x), 0, less)
	}
	return ret
}

// PushSlice adds item to x while preserving
// the min-heap invariant determined by the
// provided comparison function.
func PushSlice[T any](x *[]T, item T, less func(x, y T) bool) {
	*x = append(*x, item)
	siftUp(*x, len(*x)-1, less)
}

func siftUp[T any](x []T, index int, less func(x, y T) bool) {
	for index > 0 {
		p := (index - 1) / 2
		if less(x[p], x[index]) {
			break
		}
		x[p], x[index] = x[index], x[p]
		index = p
	}
}

func siftDown[T any](x []T, index int, less func(x, y T) bool) {
	for {
		left := (index * 2) + 1
		right := left + 1
		if left >= len(x) {
			break
		}
		c := left
		if len(x) > right && less(x[right], x[left]) {
			c = right
		}
		if less(x[index], x[c]) {
			break
		}
		x[c], x[index] = x[index], x[c]
		index = c
	}
}

// Bounded retains the n "greatest" items pushed
// into it according to less. The least of the
// retained items sits at the root of a min-heap
// and is evicted when a greater item arrives.
type Bounded[T any] struct {
	items []T
	n     int
	less  func(x, y T) bool
}

// NewBounded constructs a Bounded that
// retains at most n items.
func NewBounded[T any](n int, less func(x, y T) bool) *Bounded[T] {
	if n < 0 {
		n = 0
	}
	return &Bounded[T]{n: n, less: less}
}

// Len returns the number of retained items.
func (b *Bounded[T]) Len() int { return len(b.items) }

// Push offers item to b.
func (b *Bounded[T]) Push(item T) {
	if len(b.items) < b.n {
		PushSlice(&b.items, item, b.less)
		return
	}
	if b.n > 0 && b.less(b.items[0], item) {
		b.items[0] = item
		FixSlice(b.items, 0, b.less)
	}
}

// Drain removes every retained item from b
// and returns them greatest first.
func (b *Bounded[T]) Drain() []T {
	out := make([]T, len(b.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = PopSlice(&b.items, b.less)
	}
	return out
}
