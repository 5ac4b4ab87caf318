// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package explode

import "github.com/dsnet/implode/internal/errors"

const (
	numLenCodes  = 16
	numDistCodes = 64

	// endLength is the length value (before the +2 offset) that marks the end
	// of the stream instead of a back-reference.
	endLength = 517
)

// CodeTable holds the lookup tables used to decode lengths and distances.
//
// The LenCodes and DistCodes tables are indexed by the next 8 bits of the
// stream (LSB-first) and map them to a code. The bit width of that code is
// given by LenBits or DistBits, so only the low bits of the index matter and
// the remaining bits replicate the entry.
type CodeTable struct {
	ExtraLenBits [numLenCodes]uint8  // Number of extra bits following each length code
	LenBase      [numLenCodes]uint16 // Smallest length value of each length code
	LenAdd       [numLenCodes]uint16 // Added to code+extra when extra bits are present
	LenBits      [numLenCodes]uint8  // Bit width of each length code
	LenCodes     [256]uint8          // Next 8 bits to length code

	DistBits  [numDistCodes]uint8 // Bit width of each distance code
	DistCodes [256]uint8          // Next 8 bits to distance code
}

// Validate checks that every table entry stays within the bounds of the
// arrays it indexes and that every code fits in the 8-bit lookup window.
func (ct *CodeTable) Validate() error {
	for i, c := range ct.LenCodes {
		if c >= numLenCodes {
			return errorf(errors.Invalid, "length lookup %d out of range: %d", i, c)
		}
	}
	for i, c := range ct.DistCodes {
		if c >= numDistCodes {
			return errorf(errors.Invalid, "distance lookup %d out of range: %d", i, c)
		}
	}
	for i := 0; i < numLenCodes; i++ {
		if ct.LenBits[i] == 0 || ct.LenBits[i] > 8 {
			return errorf(errors.Invalid, "length code %d has width %d", i, ct.LenBits[i])
		}
		if ct.ExtraLenBits[i] > 8 {
			return errorf(errors.Invalid, "length code %d has %d extra bits", i, ct.ExtraLenBits[i])
		}
	}
	for i, nb := range ct.DistBits {
		if nb == 0 || nb > 8 {
			return errorf(errors.Invalid, "distance code %d has width %d", i, nb)
		}
	}
	return nil
}

// DefaultCodeTable contains the tables used by the standard PKWARE DCL.
// Use it to read any stream produced by the DCL.
var DefaultCodeTable = CodeTable{
	ExtraLenBits: [numLenCodes]uint8{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8},
	LenBase:      [numLenCodes]uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 14, 22, 38, 70, 134, 262},
	LenAdd:       [numLenCodes]uint16{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 4, 11, 26, 57, 120, 247},
	LenBits:      [numLenCodes]uint8{3, 2, 3, 3, 4, 4, 4, 5, 5, 5, 5, 6, 6, 6, 7, 7},
	LenCodes: [256]uint8{
		15, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 12, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		13, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 11, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		14, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 12, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		13, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 11, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		15, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 12, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		13, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 11, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		14, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 12, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
		13, 2, 5, 1, 8, 0, 3, 1, 10, 2, 4, 1, 6, 0, 3, 1, 11, 2, 5, 1, 7, 0, 3, 1, 9, 2, 4, 1, 6, 0, 3, 1,
	},

	DistBits: [numDistCodes]uint8{
		2, 4, 4, 5, 5, 5, 5, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	},
	DistCodes: [256]uint8{
		63, 6, 23, 0, 39, 2, 14, 0, 47, 4, 18, 0, 31, 1, 10, 0, 55, 5, 20, 0, 35, 2, 12, 0, 43, 3, 16, 0, 27, 1, 8, 0,
		59, 6, 21, 0, 37, 2, 13, 0, 45, 4, 17, 0, 29, 1, 9, 0, 51, 5, 19, 0, 33, 2, 11, 0, 41, 3, 15, 0, 25, 1, 7, 0,
		61, 6, 22, 0, 38, 2, 14, 0, 46, 4, 18, 0, 30, 1, 10, 0, 53, 5, 20, 0, 34, 2, 12, 0, 42, 3, 16, 0, 26, 1, 8, 0,
		57, 6, 21, 0, 36, 2, 13, 0, 44, 4, 17, 0, 28, 1, 9, 0, 49, 5, 19, 0, 32, 2, 11, 0, 40, 3, 15, 0, 24, 1, 7, 0,
		62, 6, 23, 0, 39, 2, 14, 0, 47, 4, 18, 0, 31, 1, 10, 0, 54, 5, 20, 0, 35, 2, 12, 0, 43, 3, 16, 0, 27, 1, 8, 0,
		58, 6, 21, 0, 37, 2, 13, 0, 45, 4, 17, 0, 29, 1, 9, 0, 50, 5, 19, 0, 33, 2, 11, 0, 41, 3, 15, 0, 25, 1, 7, 0,
		60, 6, 22, 0, 38, 2, 14, 0, 46, 4, 18, 0, 30, 1, 10, 0, 52, 5, 20, 0, 34, 2, 12, 0, 42, 3, 16, 0, 26, 1, 8, 0,
		56, 6, 21, 0, 36, 2, 13, 0, 44, 4, 17, 0, 28, 1, 9, 0, 48, 5, 19, 0, 32, 2, 11, 0, 40, 3, 15, 0, 24, 1, 7, 0,
	},
}
