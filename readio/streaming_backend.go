// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readio

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/mattwherlock/octopus/mappable"
	"github.com/mattwherlock/octopus/region"
	"github.com/mattwherlock/octopus/sam"
)

var xzMagic = [6]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// StreamingBackend opens plain, unindexed SAM text files, optionally
// XZ-compressed. Because there is no index, a StreamingBackend.Handle
// answers every query by scanning the whole file in file order: it
// trades random-access speed for the ability to serve files no indexer
// has touched, which is the fallback spec.md §4.C calls for.
type StreamingBackend struct{}

// Open implements Backend. It reads and buffers the whole record stream
// up front, since a plain SAM stream supports only a single forward pass
// and the Handle interface may be queried many times over its lifetime.
func (StreamingBackend) Open(path FilePath) (Handle, error) {
	f, err := os.Open(path.String())
	if err != nil {
		return nil, &IoError{Path: path, Cause: err}
	}
	defer f.Close()

	r, err := decompressingReader(f)
	if err != nil {
		return nil, &IoError{Path: path, Cause: err}
	}

	sr, err := sam.NewReader(r)
	if err != nil {
		return nil, &IoError{Path: path, Cause: errors.Wrap(err, "decoding SAM header")}
	}

	h := &streamingHandle{
		path:              path,
		header:            sr.Header(),
		sampleByReadGroup: sampleByReadGroup(sr.Header()),
	}
	for {
		rec, err := sr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &IoError{Path: path, Cause: errors.Wrap(err, "decoding SAM record")}
		}
		h.records = append(h.records, h.toAlignedRead(rec))
	}

	// A tabix companion index, if present beside path, lets
	// PossibleRegions answer from the index's own per-contig chunk
	// bounds instead of re-deriving the span by walking every buffered
	// record. Absence of a companion index is the common case, not an
	// error: h.indexedSpans stays nil and PossibleRegions falls back to
	// scanning h.records.
	if spans, ok := indexedContigSpans(path); ok {
		h.indexedSpans = spans
	}
	return h, nil
}

// decompressingReader wraps r in an xz.Reader if its leading bytes carry
// the XZ container magic, otherwise returns r unchanged.
func decompressingReader(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	head, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "peeking file header")
	}
	if len(head) == len(xzMagic) && [6]byte(head) == xzMagic {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "opening xz stream")
		}
		return xr, nil
	}
	return br, nil
}

type streamingHandle struct {
	path              FilePath
	header            *sam.Header
	sampleByReadGroup map[string]SampleName
	records           []AlignedRead

	// indexedSpans, when non-nil, was derived from a tabix companion
	// index instead of from records, and PossibleRegions prefers it.
	indexedSpans map[region.ContigName]region.ContigRegion
}

func (h *streamingHandle) Close() error { return nil }

func (h *streamingHandle) Samples() []SampleName {
	seen := make(map[SampleName]struct{}, len(h.sampleByReadGroup))
	out := make([]SampleName, 0, len(h.sampleByReadGroup))
	for _, s := range h.sampleByReadGroup {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PossibleRegions derives a per-contig span either from a tabix companion
// index, if Open found one beside this file, or else from the actual
// records read. A file with no records (and no index entry) on a contig
// correctly reports no possible region for it.
func (h *streamingHandle) PossibleRegions() *mappable.Map[region.ContigRegion] {
	m := mappable.NewMap[region.ContigRegion]()
	if h.indexedSpans != nil {
		for contig, span := range h.indexedSpans {
			m.Add(contig, span)
		}
		return m
	}
	spans := make(map[region.ContigName]region.ContigRegion)
	for _, rec := range h.records {
		gr := rec.Region()
		cur, ok := spans[gr.Contig]
		if !ok {
			spans[gr.Contig] = gr.ContigRegion
			continue
		}
		if gr.Begin < cur.Begin {
			cur.Begin = gr.Begin
		}
		if gr.End > cur.End {
			cur.End = gr.End
		}
		spans[gr.Contig] = cur
	}
	for contig, span := range spans {
		m.Add(contig, span)
	}
	return m
}

func (h *streamingHandle) Count(r region.GenomicRegion) (uint64, error) {
	var n uint64
	for _, rec := range h.records {
		if overlapsQuery(rec, r) {
			n++
		}
	}
	return n, nil
}

func (h *streamingHandle) Fetch(r region.GenomicRegion) ([]AlignedRead, error) {
	var out []AlignedRead
	for _, rec := range h.records {
		if overlapsQuery(rec, r) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func overlapsQuery(rec AlignedRead, r region.GenomicRegion) bool {
	gr := rec.Region()
	if gr.Contig != r.Contig {
		return false
	}
	return region.Overlaps(gr.ContigRegion, r.ContigRegion)
}

func (h *streamingHandle) toAlignedRead(rec *sam.Record) AlignedRead {
	contig := region.ContigName("*")
	if rec.Ref != nil {
		contig = region.ContigName(rec.Ref.Name())
	}
	gr := region.GenomicRegion{
		Contig:       contig,
		ContigRegion: region.ContigRegion{Begin: uint32(rec.Start()), End: uint32(rec.End())},
	}
	return NewAlignedRead(gr, h.sampleForRecord(rec))
}

func (h *streamingHandle) sampleForRecord(rec *sam.Record) SampleName {
	aux, ok := rec.Tag([]byte("RG"))
	if !ok {
		return ""
	}
	name, ok := aux.Value().(string)
	if !ok {
		return ""
	}
	return h.sampleByReadGroup[name]
}
