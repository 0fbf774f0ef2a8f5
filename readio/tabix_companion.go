// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readio

import (
	"bufio"
	"compress/gzip"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mattwherlock/octopus/bgzf"
	bgzfindex "github.com/mattwherlock/octopus/bgzf/index"
	"github.com/mattwherlock/octopus/region"
	"github.com/mattwherlock/octopus/tabix"
)

// companionIndexPath returns the conventional tabix sidecar path for a
// bgzip-compressed, position-sorted text file: path with ".tbi" appended.
func companionIndexPath(path FilePath) string {
	return path.String() + ".tbi"
}

// indexedContigSpans consults a tabix companion index beside path, if one
// exists, and reports the genomic span tabix has indexed for each
// reference it knows about. It decodes only the BGZF chunks tabix
// reports for each reference rather than the whole file, so a file with
// a companion index answers PossibleRegions without StreamingBackend's
// usual full-file scan. The second return value is false whenever no
// usable companion index was found, in which case the caller should fall
// back to scanning.
func indexedContigSpans(path FilePath) (map[region.ContigName]region.ContigRegion, bool) {
	idx, err := readCompanionIndex(path)
	if err != nil || idx == nil {
		return nil, false
	}

	f, err := os.Open(path.String())
	if err != nil {
		return nil, false
	}
	defer f.Close()
	bg, err := bgzf.NewReader(f)
	if err != nil {
		// The companion index exists but path itself is not BGZF, so the
		// index cannot address any chunk within it. Fall back to a scan.
		return nil, false
	}
	defer bg.Close()

	spans := make(map[region.ContigName]region.ContigRegion, idx.NumRefs())
	for _, name := range idx.Names() {
		chunks, err := idx.Chunks(name, 0, math.MaxInt32)
		if err != nil {
			continue
		}
		if span, ok := decodeIndexedSpan(bg, idx, chunks); ok {
			spans[region.ContigName(name)] = span
		}
	}
	if len(spans) == 0 {
		return nil, false
	}
	return spans, true
}

// readCompanionIndex opens and decodes path's ".tbi" sidecar, if any. A
// missing sidecar is not an error: it means path has no companion index.
func readCompanionIndex(path FilePath) (*tabix.Index, error) {
	tf, err := os.Open(companionIndexPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", companionIndexPath(path))
	}
	defer tf.Close()

	// The tabix specification stores the .tbi itself BGZF-compressed, but
	// since it is read once in full rather than seeked into, decoding it
	// as an ordinary (non-blocked) gzip stream is sufficient.
	gz, err := gzip.NewReader(tf)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing tabix index")
	}
	defer gz.Close()
	return tabix.ReadFrom(gz)
}

// decodeIndexedSpan reads the tab-delimited records tabix has placed in
// chunks and returns the min/max extent of idx's configured begin/end
// columns, following the same SetChunk-then-iterate idiom the BAM reader
// uses for region-limited decoding.
func decodeIndexedSpan(bg *bgzf.Reader, idx *tabix.Index, chunks []bgzf.Chunk) (region.ContigRegion, bool) {
	cr, err := bgzfindex.NewChunkReader(bg, chunks)
	if err != nil {
		return region.ContigRegion{}, false
	}
	defer cr.Close()

	sc := bufio.NewScanner(cr)
	var span region.ContigRegion
	found := false
	for sc.Scan() {
		begin, end, ok := parseIndexedLine(idx, sc.Text())
		if !ok {
			continue
		}
		if !found {
			span, found = region.ContigRegion{Begin: begin, End: end}, true
			continue
		}
		if begin < span.Begin {
			span.Begin = begin
		}
		if end > span.End {
			span.End = end
		}
	}
	return span, found
}

func parseIndexedLine(idx *tabix.Index, line string) (begin, end uint32, ok bool) {
	if line == "" {
		return 0, 0, false
	}
	if idx.MetaChar != 0 && strings.HasPrefix(line, string(idx.MetaChar)) {
		return 0, 0, false
	}
	fields := strings.Split(line, "\t")
	if int(idx.BeginColumn) <= 0 || int(idx.BeginColumn) > len(fields) {
		return 0, 0, false
	}
	b, err := strconv.Atoi(fields[idx.BeginColumn-1])
	if err != nil {
		return 0, 0, false
	}
	if !idx.ZeroBased {
		b--
	}
	e := b + 1
	if int(idx.EndColumn) > 0 && int(idx.EndColumn) <= len(fields) {
		if parsed, err := strconv.Atoi(fields[idx.EndColumn-1]); err == nil {
			e = parsed
		}
	}
	if b < 0 || e < b {
		return 0, 0, false
	}
	return uint32(b), uint32(e), true
}
