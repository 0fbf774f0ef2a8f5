// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mappable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattwherlock/octopus/region"
)

type interval struct {
	id string
	r  region.ContigRegion
}

func (i interval) Range() region.ContigRegion { return i.r }

func iv(id string, b, e uint32) interval {
	return interval{id: id, r: region.ContigRegion{Begin: b, End: e}}
}

func ids(items []interval) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestIndexOverlapRange(t *testing.T) {
	idx := NewIndex([]interval{
		iv("a", 0, 10),
		iv("b", 5, 15),
		iv("c", 20, 30),
		iv("d", 25, 26),
	})

	got := idx.OverlapRange(region.ContigRegion{Begin: 8, End: 21})
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(got))
}

func TestIndexContainedRange(t *testing.T) {
	idx := NewIndex([]interval{
		iv("a", 0, 10),
		iv("b", 5, 15),
		iv("c", 1, 9),
	})

	got := idx.ContainedRange(region.ContigRegion{Begin: 0, End: 10})
	assert.ElementsMatch(t, []string{"a", "c"}, ids(got))
}

func TestIndexLeftmostRightmost(t *testing.T) {
	idx := NewIndex([]interval{
		iv("a", 10, 20),
		iv("b", 5, 12),
		iv("c", 15, 40),
	})

	left, err := idx.LeftmostOverlapped(region.ContigRegion{Begin: 0, End: 100})
	require.NoError(t, err)
	assert.Equal(t, "b", left.id)

	right, err := idx.RightmostOverlapped(region.ContigRegion{Begin: 0, End: 100})
	require.NoError(t, err)
	assert.Equal(t, "c", right.id)
}

func TestIndexLeftmostOnEmptyErrors(t *testing.T) {
	idx := NewIndex[interval](nil)
	_, err := idx.LeftmostOverlapped(region.ContigRegion{Begin: 0, End: 10})
	require.Error(t, err)
	var domainErr region.DomainError
	require.ErrorAs(t, err, &domainErr)
}

func TestIndexHasCount(t *testing.T) {
	idx := NewIndex([]interval{iv("a", 0, 10), iv("b", 100, 200)})
	assert.True(t, idx.HasOverlapped(region.ContigRegion{Begin: 5, End: 50}))
	assert.False(t, idx.HasOverlapped(region.ContigRegion{Begin: 10, End: 100}))
	assert.Equal(t, 1, idx.CountOverlapped(region.ContigRegion{Begin: 5, End: 50}))
}

func TestMapDispatchesPerContig(t *testing.T) {
	m := NewMap[interval]()
	m.Add("1", iv("a", 0, 10))
	m.Add("1", iv("b", 20, 30))
	m.Add("2", iv("c", 0, 10))

	q1, _ := region.NewGenomicRegion("1", 5, 25)
	assert.Equal(t, 2, m.CountOverlapped(q1))

	qUnknown, _ := region.NewGenomicRegion("3", 0, 10)
	assert.Equal(t, 0, m.CountOverlapped(qUnknown))
	assert.False(t, m.HasOverlapped(qUnknown))
}
