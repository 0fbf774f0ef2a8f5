// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sampleindex implements the sample-to-file dispatch table
// (spec.md §4.F): the reverse index from a SampleName to every FilePath
// hosting reads for it, the Go counterpart of octopus's
// SampleIdToReaderPathMap.
package sampleindex

import (
	"sort"

	"golang.org/x/exp/maps"

	"github.com/mattwherlock/octopus/readio"
)

// Index maps each known sample to the files that host its reads.
type Index struct {
	byFile   map[readio.FilePath][]readio.SampleName
	bySample map[readio.SampleName][]readio.FilePath
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byFile:   make(map[readio.FilePath][]readio.SampleName),
		bySample: make(map[readio.SampleName][]readio.FilePath),
	}
}

// AddFile records that path hosts reads for every sample in samples.
func (idx *Index) AddFile(path readio.FilePath, samples []readio.SampleName) {
	idx.byFile[path] = append(idx.byFile[path], samples...)
	for _, s := range samples {
		idx.bySample[s] = append(idx.bySample[s], path)
	}
}

// RemoveFile drops path from the index, along with any sample entries
// that then have no remaining file.
func (idx *Index) RemoveFile(path readio.FilePath) {
	samples, ok := idx.byFile[path]
	if !ok {
		return
	}
	delete(idx.byFile, path)
	for _, s := range samples {
		paths := idx.bySample[s]
		for i, p := range paths {
			if p == path {
				paths = append(paths[:i], paths[i+1:]...)
				break
			}
		}
		if len(paths) == 0 {
			delete(idx.bySample, s)
		} else {
			idx.bySample[s] = paths
		}
	}
}

// Samples returns every sample known to the index, sorted for
// deterministic iteration.
func (idx *Index) Samples() []readio.SampleName {
	names := maps.Keys(idx.bySample)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// NumSamples returns the number of distinct samples known.
func (idx *Index) NumSamples() int { return len(idx.bySample) }

// HasSample reports whether sample has at least one hosting file.
func (idx *Index) HasSample(sample readio.SampleName) bool {
	_, ok := idx.bySample[sample]
	return ok
}

// FilesFor returns the de-duplicated union of files hosting any of
// samples. A sample with no hosting file contributes nothing; the caller
// is responsible for treating an unknown sample as an error if that
// distinction matters (see readmanager.NotFoundError).
func (idx *Index) FilesFor(samples ...readio.SampleName) []readio.FilePath {
	seen := make(map[readio.FilePath]struct{})
	var out []readio.FilePath
	for _, s := range samples {
		for _, path := range idx.bySample[s] {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			out = append(out, path)
		}
	}
	return out
}

// FilesForAll returns every file known to the index.
func (idx *Index) FilesForAll() []readio.FilePath {
	return maps.Keys(idx.byFile)
}
