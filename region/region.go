// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package region implements the genomic interval primitives shared by the
// Read Manager: a half-open interval on a single contig (ContigRegion) and
// a contig-qualified interval (GenomicRegion).
package region

import "fmt"

// ContigName identifies a reference contig (chromosome or scaffold).
type ContigName string

// ContigRegion is a half-open interval [Begin, End) of zero-based positions
// on a single, unspecified contig. The zero value is the empty interval
// [0, 0).
type ContigRegion struct {
	Begin, End uint32
}

// NewContigRegion returns the interval [begin, end), or a DomainError if
// begin > end.
func NewContigRegion(begin, end uint32) (ContigRegion, error) {
	if begin > end {
		return ContigRegion{}, DomainError{fmt.Sprintf("invalid region: begin %d > end %d", begin, end)}
	}
	return ContigRegion{Begin: begin, End: end}, nil
}

// Len returns the number of positions spanned by r.
func (r ContigRegion) Len() uint32 { return r.End - r.Begin }

// Empty reports whether r spans no positions.
func (r ContigRegion) Empty() bool { return r.Begin == r.End }

// Less orders regions lexicographically by (Begin, End), the order required
// by the interval index for correct two-pointer scanning.
func (r ContigRegion) Less(other ContigRegion) bool {
	if r.Begin != other.Begin {
		return r.Begin < other.Begin
	}
	return r.End < other.End
}

func (r ContigRegion) String() string {
	return fmt.Sprintf("[%d,%d)", r.Begin, r.End)
}

// Range returns r itself, satisfying mappable.Interval so a ContigRegion
// can be stored directly in a mappable.Index without a wrapper type.
func (r ContigRegion) Range() ContigRegion { return r }

// Overlaps reports whether a and b share at least one position.
func Overlaps(a, b ContigRegion) bool {
	return a.Begin < b.End && b.Begin < a.End
}

// Contains reports whether b lies entirely within a.
func Contains(a, b ContigRegion) bool {
	return a.Begin <= b.Begin && b.End <= a.End
}

// EndsBefore reports whether a ends at or before b begins.
func EndsBefore(a, b ContigRegion) bool {
	return a.End <= b.Begin
}

// GenomicRegion is a ContigRegion qualified by the contig it lies on.
type GenomicRegion struct {
	Contig ContigName
	ContigRegion
}

// NewGenomicRegion returns the region [begin, end) on contig.
func NewGenomicRegion(contig ContigName, begin, end uint32) (GenomicRegion, error) {
	cr, err := NewContigRegion(begin, end)
	if err != nil {
		return GenomicRegion{}, err
	}
	return GenomicRegion{Contig: contig, ContigRegion: cr}, nil
}

func (r GenomicRegion) String() string {
	return fmt.Sprintf("%s:%s", r.Contig, r.ContigRegion)
}

// sameContig returns the two regions' shared contig, or a DomainError if
// they name different contigs.
func sameContig(a, b GenomicRegion) (ContigName, error) {
	if a.Contig != b.Contig {
		return "", DomainError{fmt.Sprintf("cross-contig comparison: %q vs %q", a.Contig, b.Contig)}
	}
	return a.Contig, nil
}

// Overlap reports whether a and b, which must share a contig, overlap.
func Overlap(a, b GenomicRegion) (bool, error) {
	if _, err := sameContig(a, b); err != nil {
		return false, err
	}
	return Overlaps(a.ContigRegion, b.ContigRegion), nil
}

// ContainsRegion reports whether b, which must share a's contig, lies
// entirely within a.
func ContainsRegion(a, b GenomicRegion) (bool, error) {
	if _, err := sameContig(a, b); err != nil {
		return false, err
	}
	return Contains(a.ContigRegion, b.ContigRegion), nil
}

// DomainError reports invalid interval geometry or an invalid comparison,
// such as comparing regions on different contigs.
type DomainError struct {
	Message string
}

func (e DomainError) Error() string { return "region: " + e.Message }
