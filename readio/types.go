// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package readio implements the Reader backend capability (spec.md §4.C):
// the boundary between the Read Manager and concrete aligned-read file
// formats. A Backend knows how to Open a FilePath into a Handle; a Handle
// knows how to enumerate its samples, summarize its coverage, and stream
// or count records intersecting a region.
package readio

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mattwherlock/octopus/mappable"
	"github.com/mattwherlock/octopus/region"
)

// SampleName identifies a biological sample.
type SampleName string

// FilePath identifies a backing aligned-read file. Equality is by
// normalized path.
type FilePath string

// Normalize returns p with its path cleaned and made absolute, so that two
// different spellings of the same file compare equal.
func Normalize(p string) (FilePath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrapf(err, "normalizing path %q", p)
	}
	return FilePath(filepath.Clean(abs)), nil
}

func (p FilePath) String() string { return string(p) }

// AlignedRead is the opaque record produced by a Handle. The Read Manager
// only ever needs its mapping position and originating sample, per
// spec.md §3.
type AlignedRead struct {
	region region.GenomicRegion
	sample SampleName
}

// NewAlignedRead constructs an AlignedRead. Backends use this to adapt
// their native record type to the capability the Read Manager depends on.
func NewAlignedRead(r region.GenomicRegion, sample SampleName) AlignedRead {
	return AlignedRead{region: r, sample: sample}
}

// Region returns the read's mapped genomic position.
func (a AlignedRead) Region() region.GenomicRegion { return a.region }

// Sample returns the sample the read was sequenced from.
func (a AlignedRead) Sample() SampleName { return a.sample }

// Handle is an open connection to one aligned-read file.
type Handle interface {
	// Close releases any resources held by the handle.
	Close() error
	// Samples returns every sample this file hosts reads for.
	Samples() []SampleName
	// PossibleRegions returns a conservative per-contig union of the
	// intervals this file could contain records for (spec.md §4.D).
	PossibleRegions() *mappable.Map[region.ContigRegion]
	// Count returns the number of records overlapping r.
	Count(r region.GenomicRegion) (uint64, error)
	// Fetch streams every record overlapping r, in the backend's native
	// order.
	Fetch(r region.GenomicRegion) ([]AlignedRead, error)
}

// Backend opens FilePaths into Handles. A query that falls on a contig the
// backend does not know returns a zero/empty result, never an error
// (spec.md §4.C).
type Backend interface {
	Open(path FilePath) (Handle, error)
}

// IoError reports a backend open or read failure, carrying the offending
// path for the caller.
type IoError struct {
	Path  FilePath
	Cause error
}

func (e *IoError) Error() string {
	return errors.Wrapf(e.Cause, "io error on %s", e.Path).Error()
}

func (e *IoError) Unwrap() error { return e.Cause }
