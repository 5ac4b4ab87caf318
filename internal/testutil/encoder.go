// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"fmt"

	"github.com/dsnet/implode/internal"
)

// The encoder builds its prefix codes from the code lengths published with the
// format, in the compact form where each byte holds (count-1)<<4 | length.
// Codes are assigned canonically and written inverted, most-significant bit
// first. None of the decoder's lookup tables are used here.
var (
	lenCodes  = canonicalCodes(expandLengths([]byte{2, 35, 36, 53, 38, 23}))
	distCodes = canonicalCodes(expandLengths([]byte{2, 20, 53, 230, 247, 151, 248}))

	// Length symbols in the order of lenCodes. The first two are swapped with
	// respect to the order of increasing length.
	lenBase  = [16]uint{3, 2, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 40, 72, 136, 264}
	lenExtra = [16]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}
)

const (
	// MaxLength is the longest match a pair can describe.
	MaxLength = 518

	// endLength is the pseudo-length that marks the end of the stream.
	endLength = 519
)

type bitCode struct {
	val uint32 // Code in stream order
	len uint
}

func expandLengths(rep []byte) (lens []uint) {
	for _, r := range rep {
		for i := 0; i <= int(r>>4); i++ {
			lens = append(lens, uint(r&15))
		}
	}
	return lens
}

func canonicalCodes(lens []uint) []bitCode {
	var maxLen uint
	for _, n := range lens {
		if n > maxLen {
			maxLen = n
		}
	}
	codes := make([]bitCode, len(lens))
	var code uint32
	for n := uint(1); n <= maxLen; n++ {
		for sym, l := range lens {
			if l == n {
				inv := ^code & (1<<n - 1)
				codes[sym] = bitCode{internal.ReverseUint32N(inv, n), n}
				code++
			}
		}
		code <<= 1
	}
	return codes
}

// LiteralBits returns the bits encoding a literal byte in stream order.
func LiteralBits(c byte) (uint64, uint) {
	return uint64(c) << 1, 9
}

// EndBits returns the bits encoding the end of the stream.
func EndBits() (uint64, uint) {
	v, n := lengthBits(endLength)
	return 1 | v<<1, 1 + n
}

// PairBits returns the bits encoding a back-reference in stream order.
// Length 2 matches carry 2 low distance bits and all others carry dictBits.
// It panics if the pair cannot be represented.
func PairBits(dist, length, dictBits uint) (uint64, uint) {
	lowBits := dictBits
	if length == 2 {
		lowBits = 2
	}
	if dist == 0 || length < 2 || length > MaxLength || (dist-1)>>lowBits >= uint(len(distCodes)) {
		panic(fmt.Sprintf("testutil: unencodable pair: dist %d, length %d, dict bits %d", dist, length, dictBits))
	}

	v, n := lengthBits(length)
	v = 1 | v<<1
	n++

	d := dist - 1
	dc := distCodes[d>>lowBits]
	v |= uint64(dc.val) << n
	n += dc.len
	v |= uint64(d&(1<<lowBits-1)) << n
	n += lowBits
	return v, n
}

func lengthBits(length uint) (uint64, uint) {
	for sym, base := range lenBase {
		if length >= base && length < base+1<<lenExtra[sym] {
			lc := lenCodes[sym]
			v := uint64(lc.val) | uint64(length-base)<<lc.len
			return v, lc.len + lenExtra[sym]
		}
	}
	panic(fmt.Sprintf("testutil: invalid length %d", length))
}

// Token is a single element of a stream to encode. A Length of zero denotes
// the literal byte Literal; otherwise it is a back-reference.
type Token struct {
	Literal  byte
	Distance uint
	Length   uint
}

func (t Token) String() string {
	if t.Length == 0 {
		return fmt.Sprintf("Lit(%#02x)", t.Literal)
	}
	return fmt.Sprintf("Pair(%d, %d)", t.Distance, t.Length)
}

// Encoder writes a binary mode stream.
type Encoder struct {
	bw       bitBuffer
	dictBits uint
}

// NewEncoder returns an Encoder with the header already written.
// The dictBits value is written verbatim, so it may be invalid.
func NewEncoder(dictBits uint) *Encoder {
	e := &Encoder{dictBits: dictBits}
	e.bw.b = []byte{0, byte(dictBits)}
	return e
}

func (e *Encoder) Literal(c byte) { e.bw.WriteBits64(LiteralBits(c)) }
func (e *Encoder) End()           { e.bw.WriteBits64(EndBits()) }
func (e *Encoder) Pair(dist, length uint) {
	e.bw.WriteBits64(PairBits(dist, length, e.dictBits))
}

func (e *Encoder) Token(t Token) {
	if t.Length == 0 {
		e.Literal(t.Literal)
	} else {
		e.Pair(t.Distance, t.Length)
	}
}

// Bytes returns the stream written so far, padded to a byte boundary.
func (e *Encoder) Bytes() []byte { return e.bw.Bytes() }

// Implode encodes the tokens followed by the end code.
func Implode(toks []Token, dictBits uint) []byte {
	e := NewEncoder(dictBits)
	for _, t := range toks {
		e.Token(t)
	}
	e.End()
	return e.Bytes()
}

// Expand is a reference decoder for tokens that keeps the entire output as
// history. It panics if a distance points before the start of the output.
func Expand(toks []Token) []byte {
	var b []byte
	for _, t := range toks {
		if t.Length == 0 {
			b = append(b, t.Literal)
			continue
		}
		if t.Distance > uint(len(b)) {
			panic(fmt.Sprintf("testutil: distance %d beyond output of %d bytes", t.Distance, len(b)))
		}
		for i := uint(0); i < t.Length; i++ {
			b = append(b, b[uint(len(b))-t.Distance])
		}
	}
	return b
}
