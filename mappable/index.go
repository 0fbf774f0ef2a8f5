// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mappable implements a sorted, interval-keyed container over any
// value that can report a region.ContigRegion, plus a per-contig layer
// (Map) that lifts the same queries across a GenomicRegion's contig
// dimension. It is the Go counterpart of the "MappableMap" container
// template used throughout the octopus source (see
// _examples/original_source/src/mappable_map.h).
package mappable

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/mattwherlock/octopus/region"
)

// Interval is satisfied by any value that can report the ContigRegion it
// occupies.
type Interval interface {
	Range() region.ContigRegion
}

// Index is a sorted sequence of Intervals supporting overlap and
// containment queries. The zero value is an empty, usable Index.
type Index[T Interval] struct {
	items []T
	// maxEnd[i] is the maximum End among items[0:i+1]. It is non-decreasing
	// and lets OverlapRange skip straight to the first item that could
	// possibly reach into the query region, per spec.md §4.B.
	maxEnd []uint32
}

// NewIndex builds an Index over items, sorting a private copy by
// (Begin, End).
func NewIndex[T Interval](items []T) *Index[T] {
	idx := &Index[T]{items: slices.Clone(items)}
	idx.rebuild()
	return idx
}

// Add appends item and restores sorted order.
func (idx *Index[T]) Add(item T) {
	idx.items = append(idx.items, item)
	idx.rebuild()
}

func (idx *Index[T]) rebuild() {
	sort.SliceStable(idx.items, func(i, j int) bool {
		return idx.items[i].Range().Less(idx.items[j].Range())
	})
	idx.maxEnd = make([]uint32, len(idx.items))
	var running uint32
	for i, it := range idx.items {
		if e := it.Range().End; e > running {
			running = e
		}
		idx.maxEnd[i] = running
	}
}

// Len returns the number of items held by the index.
func (idx *Index[T]) Len() int { return len(idx.items) }

// startForOverlap returns the first index whose item could possibly
// overlap q, using the running-maximum-end prefix to skip runs of items
// that end at or before q.Begin.
func (idx *Index[T]) startForOverlap(q region.ContigRegion) int {
	return sort.Search(len(idx.maxEnd), func(i int) bool {
		return idx.maxEnd[i] > q.Begin
	})
}

// OverlapRange returns every item whose region overlaps q, in sorted
// order.
func (idx *Index[T]) OverlapRange(q region.ContigRegion) []T {
	start := idx.startForOverlap(q)
	var out []T
	for i := start; i < len(idx.items); i++ {
		r := idx.items[i].Range()
		if r.Begin >= q.End {
			break
		}
		if region.Overlaps(r, q) {
			out = append(out, idx.items[i])
		}
	}
	return out
}

// ContainedRange returns every item whose region lies entirely within q,
// in sorted order.
func (idx *Index[T]) ContainedRange(q region.ContigRegion) []T {
	first := sort.Search(len(idx.items), func(i int) bool {
		return idx.items[i].Range().Begin >= q.Begin
	})
	var out []T
	for i := first; i < len(idx.items); i++ {
		r := idx.items[i].Range()
		if r.Begin >= q.End {
			break
		}
		if region.Contains(q, r) {
			out = append(out, idx.items[i])
		}
	}
	return out
}

// CountOverlapped returns the number of items overlapping q.
func (idx *Index[T]) CountOverlapped(q region.ContigRegion) int { return len(idx.OverlapRange(q)) }

// CountContained returns the number of items contained within q.
func (idx *Index[T]) CountContained(q region.ContigRegion) int { return len(idx.ContainedRange(q)) }

// HasOverlapped reports whether any item overlaps q.
func (idx *Index[T]) HasOverlapped(q region.ContigRegion) bool {
	start := idx.startForOverlap(q)
	for i := start; i < len(idx.items); i++ {
		r := idx.items[i].Range()
		if r.Begin >= q.End {
			return false
		}
		if region.Overlaps(r, q) {
			return true
		}
	}
	return false
}

// HasContained reports whether any item is contained within q.
func (idx *Index[T]) HasContained(q region.ContigRegion) bool {
	return len(idx.ContainedRange(q)) > 0
}

// LeftmostOverlapped returns the smallest-Begin item overlapping q. It
// returns a region.DomainError if no item overlaps.
func (idx *Index[T]) LeftmostOverlapped(q region.ContigRegion) (T, error) {
	overlapped := idx.OverlapRange(q)
	if len(overlapped) == 0 {
		var zero T
		return zero, region.DomainError{Message: "no overlapped item"}
	}
	return overlapped[0], nil
}

// RightmostOverlapped returns the largest-End item overlapping q. It
// returns a region.DomainError if no item overlaps.
func (idx *Index[T]) RightmostOverlapped(q region.ContigRegion) (T, error) {
	overlapped := idx.OverlapRange(q)
	if len(overlapped) == 0 {
		var zero T
		return zero, region.DomainError{Message: "no overlapped item"}
	}
	best := overlapped[0]
	for _, it := range overlapped[1:] {
		if it.Range().End > best.Range().End {
			best = it
		}
	}
	return best, nil
}
