// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattwherlock/octopus/bam"
	"github.com/mattwherlock/octopus/bgzf"
	"github.com/mattwherlock/octopus/region"
	"github.com/mattwherlock/octopus/sam"
)

func newTestReference(t *testing.T, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	require.NoError(t, err)
	return ref
}

func newTestHeader(t *testing.T, refs []*sam.Reference, rgSamples map[string]string) *sam.Header {
	t.Helper()
	h, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	for id, sample := range rgSamples {
		rg, err := sam.NewReadGroup(id, "", "", "", "", "", "", sample, "", "", time.Time{}, 0)
		require.NoError(t, err)
		require.NoError(t, h.AddReadGroup(rg))
	}
	return h
}

func newTestRecord(t *testing.T, ref *sam.Reference, pos, matchLen int, rgID string) *sam.Record {
	t.Helper()
	var aux []sam.Aux
	if rgID != "" {
		a, err := sam.NewAux(sam.Tag{'R', 'G'}, 'Z', rgID)
		require.NoError(t, err)
		aux = append(aux, a)
	}
	seq := make([]byte, matchLen)
	for i := range seq {
		seq[i] = 'A'
	}
	rec, err := sam.NewRecord("r", ref, nil, pos, -1, 0, 30,
		[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, matchLen)}, seq, nil, aux)
	require.NoError(t, err)
	return rec
}

func TestSampleByReadGroup(t *testing.T) {
	h := newTestHeader(t, nil, map[string]string{"rg1": "SampleA", "rg2": "SampleB"})
	got := sampleByReadGroup(h)
	assert.Equal(t, map[string]SampleName{"rg1": "SampleA", "rg2": "SampleB"}, got)
}

func TestRecordOverlaps(t *testing.T) {
	ref := newTestReference(t, "1", 100000)
	rec := newTestRecord(t, ref, 1000, 10, "")

	overlapping, err := region.NewGenomicRegion("1", 1005, 1015)
	require.NoError(t, err)
	assert.True(t, recordOverlaps(rec, overlapping))

	wrongContig, err := region.NewGenomicRegion("2", 1005, 1015)
	require.NoError(t, err)
	assert.False(t, recordOverlaps(rec, wrongContig))

	beyond, err := region.NewGenomicRegion("1", 2000, 3000)
	require.NoError(t, err)
	assert.False(t, recordOverlaps(rec, beyond))
}

func TestBAIIndexAdapter(t *testing.T) {
	ref := newTestReference(t, "1", 100000)
	rec := newTestRecord(t, ref, 1000, 10, "")

	var idx bam.Index
	require.NoError(t, idx.Add(rec, bgzf.Chunk{}))

	adapter := baiIndex{&idx}
	assert.True(t, adapter.refHasData(ref.ID()))
	assert.False(t, adapter.refHasData(ref.ID()+1))
}

func TestSampleForRecord(t *testing.T) {
	ref := newTestReference(t, "1", 100000)
	rec := newTestRecord(t, ref, 1000, 10, "rg1")

	h := &bamHandle{sampleByReadGroup: map[string]SampleName{"rg1": "SampleA"}}
	assert.Equal(t, SampleName("SampleA"), h.sampleForRecord(rec))

	unrecognized := newTestRecord(t, ref, 1000, 10, "")
	assert.Equal(t, SampleName(""), h.sampleForRecord(unrecognized))
}
