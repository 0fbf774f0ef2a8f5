// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mappable

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mattwherlock/octopus/region"
)

// Map lifts Index's per-contig queries across a GenomicRegion's contig
// dimension, the Go equivalent of the "MappableMap" alias in
// _examples/original_source/src/mappable_map.h.
type Map[T Interval] struct {
	byContig map[region.ContigName]*Index[T]
}

// NewMap returns an empty Map.
func NewMap[T Interval]() *Map[T] {
	return &Map[T]{byContig: make(map[region.ContigName]*Index[T])}
}

// Add records item under contig, creating that contig's Index on first
// use.
func (m *Map[T]) Add(contig region.ContigName, item T) {
	idx, ok := m.byContig[contig]
	if !ok {
		idx = NewIndex[T](nil)
		m.byContig[contig] = idx
	}
	idx.Add(item)
}

// Contigs returns the set of contigs with at least one entry, sorted for
// deterministic iteration.
func (m *Map[T]) Contigs() []region.ContigName {
	names := maps.Keys(m.byContig)
	slices.Sort(names)
	return names
}

// Index returns the Index for contig, and whether one exists.
func (m *Map[T]) Index(contig region.ContigName) (*Index[T], bool) {
	idx, ok := m.byContig[contig]
	return idx, ok
}

// HasOverlapped reports whether any entry on q's contig overlaps q.
func (m *Map[T]) HasOverlapped(q region.GenomicRegion) bool {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		return false
	}
	return idx.HasOverlapped(q.ContigRegion)
}

// CountOverlapped returns the number of entries on q's contig overlapping
// q.
func (m *Map[T]) CountOverlapped(q region.GenomicRegion) int {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		return 0
	}
	return idx.CountOverlapped(q.ContigRegion)
}

// HasContained reports whether any entry on q's contig is contained in q.
func (m *Map[T]) HasContained(q region.GenomicRegion) bool {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		return false
	}
	return idx.HasContained(q.ContigRegion)
}

// CountContained returns the number of entries on q's contig contained in
// q.
func (m *Map[T]) CountContained(q region.GenomicRegion) int {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		return 0
	}
	return idx.CountContained(q.ContigRegion)
}

// OverlapRange returns every entry on q's contig overlapping q.
func (m *Map[T]) OverlapRange(q region.GenomicRegion) []T {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		return nil
	}
	return idx.OverlapRange(q.ContigRegion)
}

// LeftmostOverlapped returns the smallest-Begin entry on q's contig
// overlapping q, matching
// _examples/original_source/src/mappable_map.h's leftmost_overlapped.
// Only q's contig is searched; it returns a region.DomainError if Map
// holds no entries for that contig.
func (m *Map[T]) LeftmostOverlapped(q region.GenomicRegion) (T, error) {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		var zero T
		return zero, region.DomainError{Message: "no entries for contig " + string(q.Contig)}
	}
	return idx.LeftmostOverlapped(q.ContigRegion)
}

// RightmostOverlapped returns the largest-End entry overlapping q.
func (m *Map[T]) RightmostOverlapped(q region.GenomicRegion) (T, error) {
	idx, ok := m.byContig[q.Contig]
	if !ok {
		var zero T
		return zero, region.DomainError{Message: "no entries for contig " + string(q.Contig)}
	}
	return idx.RightmostOverlapped(q.ContigRegion)
}
