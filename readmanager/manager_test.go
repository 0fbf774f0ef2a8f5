// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readmanager

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattwherlock/octopus/filepool"
	"github.com/mattwherlock/octopus/mappable"
	"github.com/mattwherlock/octopus/readio"
	"github.com/mattwherlock/octopus/region"
)

// fakeRecord is a minimal AlignedRead-producing record used to build fake
// handles without any real backend format.
type fakeRecord struct {
	begin, end uint32
	sample     readio.SampleName
}

// fakeHandle serves an in-memory fixed set of reads on one contig,
// exercising the Manager's dispatch logic independent of any concrete
// file format.
type fakeHandle struct {
	contig  region.ContigName
	samples []readio.SampleName
	records []fakeRecord
	closed  bool
}

func (h *fakeHandle) Close() error                { h.closed = true; return nil }
func (h *fakeHandle) Samples() []readio.SampleName { return h.samples }

func (h *fakeHandle) PossibleRegions() *mappable.Map[region.ContigRegion] {
	m := mappable.NewMap[region.ContigRegion]()
	if len(h.records) == 0 {
		return m
	}
	begin, end := h.records[0].begin, h.records[0].end
	for _, r := range h.records[1:] {
		if r.begin < begin {
			begin = r.begin
		}
		if r.end > end {
			end = r.end
		}
	}
	m.Add(h.contig, region.ContigRegion{Begin: begin, End: end})
	return m
}

func (h *fakeHandle) overlapping(r region.GenomicRegion) []fakeRecord {
	if r.Contig != h.contig {
		return nil
	}
	var out []fakeRecord
	for _, rec := range h.records {
		if region.Overlaps(region.ContigRegion{Begin: rec.begin, End: rec.end}, r.ContigRegion) {
			out = append(out, rec)
		}
	}
	return out
}

// Count and Fetch both refuse to serve a closed handle rather than
// silently returning stale data, so a test that races a query against
// eviction fails loudly instead of passing on reused memory.
func (h *fakeHandle) Count(r region.GenomicRegion) (uint64, error) {
	if h.closed {
		return 0, assert.AnError
	}
	return uint64(len(h.overlapping(r))), nil
}

func (h *fakeHandle) Fetch(r region.GenomicRegion) ([]readio.AlignedRead, error) {
	if h.closed {
		return nil, assert.AnError
	}
	var out []readio.AlignedRead
	for _, rec := range h.overlapping(r) {
		gr := region.GenomicRegion{Contig: h.contig, ContigRegion: region.ContigRegion{Begin: rec.begin, End: rec.end}}
		out = append(out, readio.NewAlignedRead(gr, rec.sample))
	}
	return out, nil
}

type fakeBackend struct {
	handles map[readio.FilePath]*fakeHandle
	opens   map[readio.FilePath]int
}

func (b *fakeBackend) Open(path readio.FilePath) (readio.Handle, error) {
	b.opens[path]++
	h, ok := b.handles[path]
	if !ok {
		return nil, &IoError{Path: path, Cause: assert.AnError}
	}
	h.closed = false
	return h, nil
}

func normalized(t *testing.T, raw string) readio.FilePath {
	t.Helper()
	p, err := readio.Normalize(raw)
	require.NoError(t, err)
	return p
}

func newTestManager(t *testing.T, maxOpen int, files map[string]*fakeHandle, sizes map[string]int64) (*Manager, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{handles: make(map[readio.FilePath]*fakeHandle), opens: make(map[readio.FilePath]int)}
	sizeOf := make(map[readio.FilePath]int64, len(files))
	var paths []string
	for raw, h := range files {
		np := normalized(t, raw)
		backend.handles[np] = h
		sizeOf[np] = sizes[raw]
		paths = append(paths, raw)
	}
	sort.Strings(paths)

	m, err := newManager(Config{FilePaths: paths, MaxOpenFiles: maxOpen}, backend, func(p readio.FilePath) (int64, error) {
		return sizeOf[p], nil
	})
	require.NoError(t, err)
	return m, backend
}

func region1(t *testing.T, begin, end uint32) region.GenomicRegion {
	t.Helper()
	r, err := region.NewGenomicRegion("1", begin, end)
	require.NoError(t, err)
	return r
}

func TestScenario1SingleFileSingleSample(t *testing.T) {
	h := &fakeHandle{
		contig:  "1",
		samples: []readio.SampleName{"A"},
		records: []fakeRecord{{1000, 1200, "A"}, {1500, 1600, "A"}, {1900, 2000, "A"}},
	}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": h}, map[string]int64{"F1.sam": 1})

	reads, err := m.FetchReads(region1(t, 1500, 1600), "A")
	require.NoError(t, err)
	require.Contains(t, reads, readio.SampleName("A"))
	assert.Len(t, reads["A"], 1)

	count, err := m.CountReads(region1(t, 1500, 1600), "A")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestScenario2MultiFileMultiSample(t *testing.T) {
	f1 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{10, 20, "A"}, {30, 40, "A"}}}
	f2 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A", "B"}, records: []fakeRecord{{50, 60, "A"}, {70, 80, "B"}}}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": f1, "F2.sam": f2}, map[string]int64{"F1.sam": 1, "F2.sam": 1})

	reads, err := m.FetchReads(region1(t, 0, 10000), "A", "B")
	require.NoError(t, err)
	require.Len(t, reads, 2)
	assert.Len(t, reads["A"], 3)
	assert.Len(t, reads["B"], 1)
}

func TestScenario3PoolEvictsLargestFile(t *testing.T) {
	// Construction opens F1, F2 and F3 in ascending size order (1, 2, 4)
	// under a pool capped at 2 slots, so F2 does not survive construction:
	// admitting F3 evicts F2, the larger of the two already open.
	f1 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}}}
	f2 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}}}
	f3 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}}}
	m, backend := newTestManager(t, 2,
		map[string]*fakeHandle{"F1.sam": f1, "F2.sam": f2, "F3.sam": f3},
		map[string]int64{"F1.sam": 1, "F2.sam": 2, "F3.sam": 4},
	)
	require.LessOrEqual(t, m.pool.NumOpen(), 2)

	p1, p2, p3 := normalized(t, "F1.sam"), normalized(t, "F2.sam"), normalized(t, "F3.sam")
	assert.Equal(t, filepool.Open, m.pool.StateOf(p1))
	assert.Equal(t, filepool.Closed, m.pool.StateOf(p2))
	assert.Equal(t, filepool.Open, m.pool.StateOf(p3))

	// Re-querying F2 must re-open it, admitting it in preference to
	// evicting F1 (the smaller of the two open files) since F3 is larger.
	opensBeforeF2 := backend.opens[p2]
	_, err := m.pool.Acquire(p2)
	require.NoError(t, err)
	assert.Equal(t, opensBeforeF2+1, backend.opens[p2])
	assert.LessOrEqual(t, m.pool.NumOpen(), 2)
	assert.Equal(t, filepool.Open, m.pool.StateOf(p1))
	assert.Equal(t, filepool.Closed, m.pool.StateOf(p3))
}

func TestScenario4BoundedCoverage(t *testing.T) {
	var records []fakeRecord
	for i := uint32(0); i < 200; i++ {
		records = append(records, fakeRecord{begin: i * 20, end: i*20 + 10, sample: "A"})
	}
	h := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: records}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": h}, map[string]int64{"F1.sam": 1})

	sub, err := m.FindCoveredSubregion(region1(t, 0, 1000000), 100, "A")
	require.NoError(t, err)
	assert.LessOrEqual(t, sub.End, uint32(1000000))

	count, err := m.CountReads(sub, "A")
	require.NoError(t, err)
	assert.LessOrEqual(t, count, uint64(100))
}

func TestScenario5UnknownContig(t *testing.T) {
	h := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}}}
	m, backend := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": h}, map[string]int64{"F1.sam": 1})

	before := backend.opens[normalized(t, "F1.sam")]
	count, err := m.CountReads(region1(t, 0, 1000), "A")
	require.NoError(t, err)
	_ = count

	unknown, err := region.NewGenomicRegion("Z", 0, 1000)
	require.NoError(t, err)
	count, err = m.CountReads(unknown, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, before, backend.opens[normalized(t, "F1.sam")])
}

func TestScenario6MissingSample(t *testing.T) {
	h := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}}}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": h}, map[string]int64{"F1.sam": 1})

	_, err := m.FetchReads(region1(t, 0, 1000), "GHOST")
	require.Error(t, err)
	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, readio.SampleName("GHOST"), nf.Sample)
}

func TestGoodAndCounts(t *testing.T) {
	h := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: nil}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": h}, map[string]int64{"F1.sam": 1})

	assert.True(t, m.Good())
	assert.Equal(t, 1, m.NumFiles())
	assert.Equal(t, 1, m.NumSamples())
	assert.Equal(t, []readio.SampleName{"A"}, m.Samples())
}

func TestPropertyCountEqualsFetchLen(t *testing.T) {
	f1 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{0, 10, "A"}, {5, 15, "A"}}}
	f2 := &fakeHandle{contig: "1", samples: []readio.SampleName{"A"}, records: []fakeRecord{{20, 30, "A"}}}
	m, _ := newTestManager(t, 10, map[string]*fakeHandle{"F1.sam": f1, "F2.sam": f2}, map[string]int64{"F1.sam": 1, "F2.sam": 1})

	r := region1(t, 0, 100)
	count, err := m.CountReads(r, "A")
	require.NoError(t, err)
	reads, err := m.FetchReads(r, "A")
	require.NoError(t, err)
	assert.EqualValues(t, len(reads["A"]), count)
}

// TestConcurrentQueriesSerializeAgainstEviction exercises spec.md §8 P7:
// concurrent query invocation must yield results equal to some serial
// order. Five files are managed under a pool capped at two open handles,
// so every goroutine's CountReads forces eviction and reopening of other
// files mid-query. fakeHandle.Count errors on a closed handle, so if the
// pool ever let eviction close a handle a concurrent goroutine was still
// reading from, some goroutine here would observe that error (or, with a
// real backend, a use-after-close panic) instead of the correct count.
func TestConcurrentQueriesSerializeAgainstEviction(t *testing.T) {
	const numFiles = 5
	files := make(map[string]*fakeHandle, numFiles)
	sizes := make(map[string]int64, numFiles)
	for i := 0; i < numFiles; i++ {
		name := fmt.Sprintf("F%d.sam", i)
		files[name] = &fakeHandle{
			contig:  "1",
			samples: []readio.SampleName{"A"},
			records: []fakeRecord{{uint32(i * 100), uint32(i*100 + 10), "A"}},
		}
		sizes[name] = int64(i + 1)
	}
	m, _ := newTestManager(t, 2, files, sizes)

	r := region1(t, 0, 1000)
	const want = uint64(numFiles)
	const numGoroutines = 20

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	counts := make(chan uint64, numGoroutines)
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.CountReads(r, "A")
			if err != nil {
				errs <- err
				return
			}
			counts <- n
		}()
	}
	wg.Wait()
	close(errs)
	close(counts)

	for err := range errs {
		t.Fatalf("CountReads under concurrent eviction pressure returned an error: %v", err)
	}
	for n := range counts {
		assert.Equal(t, want, n)
	}
}
