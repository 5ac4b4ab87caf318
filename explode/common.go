// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package explode implements a decompressor for the PKWARE Data Compression
// Library (DCL) "implode" format.
//
// The stream starts with two header bytes: a literal mode (0 for uncoded
// binary literals, 1 for Shannon-Fano coded ASCII literals) and the number of
// low-order distance bits stored verbatim (4, 5 or 6 for the 1KiB, 2KiB and
// 4KiB dictionaries). The remainder is an LSB-first bit-stream of literals,
// length/distance pairs and a terminating end code. Only binary mode is
// supported.
//
// The Exploder type is the streaming core. It is fed arbitrarily sized chunks
// of input and returns the output produced from each chunk, never allocating
// after construction. The Reader type wraps an Exploder as an io.Reader.
package explode

import (
	"fmt"

	"github.com/dsnet/implode/internal/errors"
)

const (
	modeBinary = 0 // Uncoded 8-bit literals
	modeASCII  = 1 // Shannon-Fano coded literals (unsupported)

	halfSize   = 1 << 12      // Size of one buffer half and the maximum distance
	bufferSize = 2 * halfSize // Size of the double buffered window

	maxAccumBits = 64 // Capacity of the bit accumulator
	refillLimit  = maxAccumBits - 8
)

func errorf(c int, f string, a ...interface{}) error {
	return errors.Error{Code: c, Pkg: "explode", Msg: fmt.Sprintf(f, a...)}
}

var (
	// ErrUnsupportedMode reports a stream whose literals are Shannon-Fano
	// coded. It is fatal for the stream.
	ErrUnsupportedMode error = errors.Error{Code: errors.Unsupported, Pkg: "explode", Msg: "coded literal mode"}

	// ErrDistanceTooFar reports a back-reference that points before the
	// start of the output or beyond the dictionary. It is fatal for the stream.
	// Distances over 4096 are always rejected, whatever the dictionary size
	// byte says, since only one half of the window is kept as history.
	ErrDistanceTooFar error = errors.Error{Code: errors.Corrupted, Pkg: "explode", Msg: "distance is too far back"}

	// ErrSymbolTooLong reports a symbol that needs more bits than the bit
	// accumulator can hold, which happens when the dictionary size byte is
	// far out of range. It is fatal for the stream.
	ErrSymbolTooLong error = errors.Error{Code: errors.Corrupted, Pkg: "explode", Msg: "symbol is too long"}

	// ErrNeedMode reports that no input was available for the mode byte.
	ErrNeedMode error = NeedInputError("mode")

	// ErrNeedDictBits reports that no input was available for the dictionary
	// size byte.
	ErrNeedDictBits error = NeedInputError("dictionary size")
)

// NeedInputError reports that a header field could not be read because the
// input was exhausted. It is a backpressure signal, not a failure: calling
// again with more input appended continues where the previous call stopped.
type NeedInputError string

func (e NeedInputError) Error() string {
	return "explode: need more bytes for " + string(e)
}

// NeedBitsError is returned by DecodeSymbol when the bit window holds fewer
// bits than the next symbol requires. Its value is the number of additional
// bits needed. Like NeedInputError, it is a backpressure signal.
type NeedBitsError uint

func (e NeedBitsError) Error() string {
	return fmt.Sprintf("explode: need %d more bits", uint(e))
}

// IsNeedInput reports whether err only signals that more input is required.
func IsNeedInput(err error) bool {
	switch err.(type) {
	case NeedInputError, NeedBitsError:
		return true
	}
	return false
}
