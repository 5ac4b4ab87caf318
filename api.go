// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package implode is a collection of libraries for the PKWARE Data Compression
// Library (DCL) "implode" format. The decompressor lives in package explode.
//
// Note that this format is unrelated to the "imploding" method of PKZIP.
package implode

import (
	"io"

	"github.com/dsnet/implode/internal/errors"
)

// The Error interface identifies all compression related errors.
type Error interface {
	error
	CompressError()

	// IsCorrupted reports whether the input stream was corrupted.
	IsCorrupted() bool

	// IsUnsupported reports whether the input stream uses a feature of the
	// format that is not implemented, such as coded literals.
	IsUnsupported() bool
}

var _ Error = errors.Error{}

// ByteReader is an interface accepted by all decompression Readers.
// It guarantees that the decompressor never reads more data than is necessary
// from the underlying io.Reader.
type ByteReader interface {
	io.Reader
	io.ByteReader
}
