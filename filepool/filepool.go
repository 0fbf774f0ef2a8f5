// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filepool implements the bounded open-file admission policy
// (spec.md §4.E): at most maxOpen backend handles are held open at once,
// and when the pool is full, opening a new file closes the currently
// open file with the largest size on disk, tie-broken by lexicographic
// path. This generalizes the bíogo bgzf block cache's eviction discipline
// (see bgzf/cache) from "evict least useful block" to "evict most
// expensive file to keep open," matching the size-ordered admission
// octopus's ReadManager performs against its own OpenReaderMap.
package filepool

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattwherlock/octopus/readio"
)

// State is the lifecycle stage of a single pool entry.
type State int

const (
	// Unknown is the zero value: the pool has never seen this path.
	Unknown State = iota
	// Opening indicates an Open call for this path is in flight.
	Opening
	// Open indicates the path has a live Handle.
	Open
	// Closing indicates a Close call for this path is in flight.
	Closing
	// Closed indicates the path was opened and later evicted or
	// explicitly closed.
	Closed
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// entry tracks one file's admission state alongside its handle and the
// size used to rank it for eviction.
type entry struct {
	path  readio.FilePath
	size  int64
	state State
	h     readio.Handle
}

// Pool bounds the number of concurrently open Handles to a configured
// maximum, opening and closing backend files as callers request them. A
// single mutex serializes all admission decisions, mirroring the
// coarse-grained locking octopus's ReadManager uses around its reader
// map.
type Pool struct {
	mu sync.Mutex

	backend  readio.Backend
	maxOpen  int
	log      *logrus.Logger
	sizeOf   func(readio.FilePath) (int64, error)
	entries  map[readio.FilePath]*entry
	overflow bool // true once eviction pressure has been logged once
}

// New returns a Pool that opens files through backend, admitting at most
// maxOpen at a time. sizeOf reports a file's size on disk for ranking
// purposes; log receives one warning the first time the pool must evict
// to make room. A nil logger discards these warnings.
func New(backend readio.Backend, maxOpen int, sizeOf func(readio.FilePath) (int64, error), log *logrus.Logger) *Pool {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Pool{
		backend: backend,
		maxOpen: maxOpen,
		log:     log,
		sizeOf:  sizeOf,
		entries: make(map[readio.FilePath]*entry),
	}
}

// Register makes path known to the pool without opening it, computing
// and caching its size for later eviction ranking.
func (p *Pool) Register(path readio.FilePath) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[path]; ok {
		return nil
	}
	size, err := p.sizeOf(path)
	if err != nil {
		return errors.Wrapf(err, "statting %s", path)
	}
	p.entries[path] = &entry{path: path, size: size, state: Unknown}
	return nil
}

// SizeOrderedPaths returns every registered path sorted ascending by
// size, the order octopus's ReadManager opens its initial files in so
// that small, cheap files are admitted before eviction pressure begins.
func (p *Pool) SizeOrderedPaths() []readio.FilePath {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]readio.FilePath, 0, len(p.entries))
	for path := range p.entries {
		out = append(out, path)
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := p.entries[out[i]], p.entries[out[j]]
		if ei.size != ej.size {
			return ei.size < ej.size
		}
		return out[i] < out[j]
	})
	return out
}

// Acquire returns an open Handle for path, opening it (evicting another
// file if the pool is full) if it is not already open.
//
// The returned Handle is only safe to use for as long as p.mu is held.
// Acquire releases the lock on return, so it must not be used to drive
// backend I/O from concurrent callers: a second Acquire for a different
// path can evict and close this path's Handle the instant the lock is
// released. Acquire exists for single-threaded callers such as
// construction and tests; query paths that perform I/O on the returned
// Handle must use WithHandle instead.
func (p *Pool) Acquire(path readio.FilePath) (readio.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireLocked(path)
}

// WithHandle acquires path's Handle and invokes fn with it while p.mu is
// held for the entire call, so the Handle is guaranteed Open for the
// duration of fn: no concurrent Acquire or WithHandle can select it for
// eviction until fn returns. This is the single coarse-grained lock
// design octopus's ReadManager uses around its reader map, traded
// deliberately for the correctness of never running backend I/O against
// a Handle that another goroutine might close out from under it. If fn
// returns an error, the path's Handle is closed and removed from the
// pool, matching the caller's prior behaviour of discarding a Handle
// that failed mid-query.
func (p *Pool) WithHandle(path readio.FilePath, fn func(readio.Handle) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.acquireLocked(path)
	if err != nil {
		return err
	}
	if err := fn(h); err != nil {
		_ = p.closeLocked(path)
		return err
	}
	return nil
}

func (p *Pool) acquireLocked(path readio.FilePath) (readio.Handle, error) {
	e, ok := p.entries[path]
	if !ok {
		size, err := p.sizeOf(path)
		if err != nil {
			return nil, errors.Wrapf(err, "statting %s", path)
		}
		e = &entry{path: path, size: size, state: Unknown}
		p.entries[path] = e
	}
	if e.state == Open {
		return e.h, nil
	}

	if p.numOpenLocked() >= p.maxOpen {
		if err := p.evictOneLocked(path); err != nil {
			return nil, err
		}
	}

	e.state = Opening
	h, err := p.backend.Open(path)
	if err != nil {
		e.state = Closed
		return nil, err
	}
	e.h = h
	e.state = Open
	return h, nil
}

// numOpenLocked counts entries currently in the Open state. Caller must
// hold p.mu.
func (p *Pool) numOpenLocked() int {
	var n int
	for _, e := range p.entries {
		if e.state == Open {
			n++
		}
	}
	return n
}

// Partition splits paths into those currently open and those that are
// not, mirroring octopus's partition_open.
func (p *Pool) Partition(paths []readio.FilePath) (open, closed []readio.FilePath) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		if e, ok := p.entries[path]; ok && e.state == Open {
			open = append(open, path)
		} else {
			closed = append(closed, path)
		}
	}
	return open, closed
}

// evictOneLocked closes the largest currently open file other than
// exempt, so that a fresh admission always succeeds. Caller must hold
// p.mu.
func (p *Pool) evictOneLocked(exempt readio.FilePath) error {
	victim := p.chooseEvictionLocked(exempt)
	if victim == "" {
		return errors.Errorf("filepool: no open file space and no evictable file for %s", exempt)
	}
	if !p.overflow {
		p.overflow = true
		p.log.WithFields(logrus.Fields{
			"max_open": p.maxOpen,
			"evicting": victim,
			"admitting": exempt,
		}).Warn("filepool: open file limit reached, evicting largest open file")
	}
	return p.closeLocked(victim)
}

// chooseEvictionLocked returns the largest-size open entry, tie-broken
// by lexicographically greatest path, matching octopus's
// choose_reader_to_close ordering over its size-keyed OpenReaderMap.
func (p *Pool) chooseEvictionLocked(exempt readio.FilePath) readio.FilePath {
	var best *entry
	for _, e := range p.entries {
		if e.state != Open || e.path == exempt {
			continue
		}
		if best == nil || e.size > best.size || (e.size == best.size && e.path > best.path) {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return best.path
}

func (p *Pool) closeLocked(path readio.FilePath) error {
	e, ok := p.entries[path]
	if !ok || e.state != Open {
		return nil
	}
	e.state = Closing
	err := e.h.Close()
	e.h = nil
	e.state = Closed
	return err
}

// Close closes path's handle if open. It is a no-op if the file is
// already closed or was never opened.
func (p *Pool) Close(path readio.FilePath) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked(path)
}

// CloseAll closes every currently open handle, for use at manager
// shutdown.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for path, e := range p.entries {
		if e.state != Open {
			continue
		}
		if err := p.closeLocked(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NumOpen returns the number of currently open handles.
func (p *Pool) NumOpen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numOpenLocked()
}

// NumRegistered returns the number of paths the pool knows about,
// open or not.
func (p *Pool) NumRegistered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// StateOf reports the current lifecycle state of path.
func (p *Pool) StateOf(path readio.FilePath) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[path]
	if !ok {
		return Unknown
	}
	return e.state
}
