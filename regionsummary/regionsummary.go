// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regionsummary implements the per-file coverage summary
// (spec.md §4.D) the Read Manager consults before opening a file: a
// conservative record of which genomic regions a file could possibly
// contain records for, built once from a Handle's own PossibleRegions
// and reused for the lifetime of the manager.
package regionsummary

import (
	"github.com/mattwherlock/octopus/mappable"
	"github.com/mattwherlock/octopus/readio"
	"github.com/mattwherlock/octopus/region"
)

// Summary maps every known FilePath to its possible-region map. A file
// absent from Summary is treated as having no possible regions, so
// CouldContain safely returns false for paths the caller never
// registered.
type Summary struct {
	byFile map[readio.FilePath]*mappable.Map[region.ContigRegion]
}

// New builds an empty Summary.
func New() *Summary {
	return &Summary{byFile: make(map[readio.FilePath]*mappable.Map[region.ContigRegion])}
}

// Set records path's possible-region map, replacing any prior entry.
func (s *Summary) Set(path readio.FilePath, regions *mappable.Map[region.ContigRegion]) {
	s.byFile[path] = regions
}

// CouldContain reports whether path might hold records overlapping q. A
// conservative true is always an acceptable answer; only a path with no
// recorded overlap on q's contig returns false.
func (s *Summary) CouldContain(path readio.FilePath, q region.GenomicRegion) bool {
	regions, ok := s.byFile[path]
	if !ok {
		return false
	}
	return regions.HasOverlapped(q)
}

// FilesPossiblyContaining returns every candidate path whose possible
// regions overlap q.
func (s *Summary) FilesPossiblyContaining(candidates []readio.FilePath, q region.GenomicRegion) []readio.FilePath {
	var out []readio.FilePath
	for _, path := range candidates {
		if s.CouldContain(path, q) {
			out = append(out, path)
		}
	}
	return out
}

// Delete drops path's entry, used when a file is permanently closed and
// its summary should no longer be consulted.
func (s *Summary) Delete(path readio.FilePath) {
	delete(s.byFile, path)
}
