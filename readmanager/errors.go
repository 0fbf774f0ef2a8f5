// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package readmanager

import (
	"github.com/pkg/errors"

	"github.com/mattwherlock/octopus/readio"
)

// IoError reports a backend open or read failure encountered while
// serving a query. Path names the offending file.
type IoError struct {
	Path  readio.FilePath
	Cause error
}

func (e *IoError) Error() string {
	return errors.Wrapf(e.Cause, "read manager: io error on %s", e.Path).Error()
}

func (e *IoError) Unwrap() error { return e.Cause }

// DomainError reports invalid Manager configuration, such as a Config with
// no file paths. Malformed and cross-contig regions are reported by
// region.DomainError instead. A zero or negative MaxOpenFiles is not
// rejected: it selects the default of 200 (see Config).
type DomainError struct {
	Message string
}

func (e DomainError) Error() string { return "read manager: " + e.Message }

// NotFoundError reports a query naming a sample absent from every known
// file.
type NotFoundError struct {
	Sample readio.SampleName
}

func (e NotFoundError) Error() string {
	return "read manager: sample not found: " + string(e.Sample)
}
