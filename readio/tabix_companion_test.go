// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattwherlock/octopus/tabix"
)

func bedLikeIndex() *tabix.Index {
	idx := tabix.New()
	idx.BeginColumn = 2
	idx.EndColumn = 3
	idx.ZeroBased = true
	idx.MetaChar = '#'
	return idx
}

func TestParseIndexedLineExtractsBeginEnd(t *testing.T) {
	idx := bedLikeIndex()

	begin, end, ok := parseIndexedLine(idx, "1\t1000\t1010\tfoo")
	assert.True(t, ok)
	assert.Equal(t, uint32(1000), begin)
	assert.Equal(t, uint32(1010), end)
}

func TestParseIndexedLineSkipsMetaCharLines(t *testing.T) {
	idx := bedLikeIndex()

	_, _, ok := parseIndexedLine(idx, "#contig\tbegin\tend")
	assert.False(t, ok)
}

func TestParseIndexedLineAppliesOneBasedOffset(t *testing.T) {
	idx := bedLikeIndex()
	idx.ZeroBased = false

	begin, end, ok := parseIndexedLine(idx, "1\t1001\t1010")
	assert.True(t, ok)
	assert.Equal(t, uint32(1000), begin)
	assert.Equal(t, uint32(1010), end)
}

func TestParseIndexedLineDefaultsEndWhenColumnMissing(t *testing.T) {
	idx := bedLikeIndex()
	idx.EndColumn = 0

	begin, end, ok := parseIndexedLine(idx, "1\t1000")
	assert.True(t, ok)
	assert.Equal(t, uint32(1000), begin)
	assert.Equal(t, uint32(1001), end)
}

func TestParseIndexedLineRejectsMalformedColumn(t *testing.T) {
	idx := bedLikeIndex()

	_, _, ok := parseIndexedLine(idx, "1\tnotanumber\t1010")
	assert.False(t, ok)

	_, _, ok = parseIndexedLine(idx, "1")
	assert.False(t, ok)
}

func TestIndexedContigSpansAbsentWithNoCompanionFile(t *testing.T) {
	path := FilePath(t.TempDir() + "/no-index.sam")
	spans, ok := indexedContigSpans(path)
	assert.False(t, ok)
	assert.Nil(t, spans)
}
