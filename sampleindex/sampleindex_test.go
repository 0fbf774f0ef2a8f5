// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sampleindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattwherlock/octopus/readio"
	"github.com/mattwherlock/octopus/sampleindex"
)

func TestFilesForUnion(t *testing.T) {
	idx := sampleindex.New()
	idx.AddFile("f1.bam", []readio.SampleName{"A"})
	idx.AddFile("f2.bam", []readio.SampleName{"A", "B"})

	files := idx.FilesFor("A")
	assert.ElementsMatch(t, []readio.FilePath{"f1.bam", "f2.bam"}, files)

	files = idx.FilesFor("B")
	assert.Equal(t, []readio.FilePath{"f2.bam"}, files)

	files = idx.FilesFor("A", "B")
	assert.ElementsMatch(t, []readio.FilePath{"f1.bam", "f2.bam"}, files)
}

func TestFilesForUnknownSample(t *testing.T) {
	idx := sampleindex.New()
	idx.AddFile("f1.bam", []readio.SampleName{"A"})
	assert.Empty(t, idx.FilesFor("GHOST"))
}

func TestHasSampleAndSamples(t *testing.T) {
	idx := sampleindex.New()
	idx.AddFile("f1.bam", []readio.SampleName{"B", "A"})
	assert.True(t, idx.HasSample("A"))
	assert.False(t, idx.HasSample("GHOST"))
	assert.Equal(t, []readio.SampleName{"A", "B"}, idx.Samples())
	assert.Equal(t, 2, idx.NumSamples())
}

func TestRemoveFile(t *testing.T) {
	idx := sampleindex.New()
	idx.AddFile("f1.bam", []readio.SampleName{"A"})
	idx.AddFile("f2.bam", []readio.SampleName{"A", "B"})

	idx.RemoveFile("f2.bam")

	assert.False(t, idx.HasSample("B"))
	assert.Equal(t, []readio.FilePath{"f1.bam"}, idx.FilesFor("A"))
}

func TestFilesForAll(t *testing.T) {
	idx := sampleindex.New()
	idx.AddFile("f1.bam", []readio.SampleName{"A"})
	idx.AddFile("f2.bam", []readio.SampleName{"B"})
	assert.ElementsMatch(t, []readio.FilePath{"f1.bam", "f2.bam"}, idx.FilesForAll())
}
