// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package explode

import (
	"fmt"

	"github.com/dsnet/implode/internal"
)

// SymbolKind identifies the kind of a decoded Symbol.
type SymbolKind uint8

const (
	LiteralSymbol SymbolKind = iota // A single uncoded byte
	PairSymbol                      // A length/distance back-reference
	EndSymbol                       // The end of the stream
)

// Symbol is a single decoded element of the bit-stream.
type Symbol struct {
	Kind     SymbolKind
	Literal  byte // Valid for LiteralSymbol
	Distance uint // Valid for PairSymbol; at least 1
	Length   uint // Valid for PairSymbol; at least 2
}

func Literal(c byte) Symbol         { return Symbol{Kind: LiteralSymbol, Literal: c} }
func Pair(dist, length uint) Symbol { return Symbol{Kind: PairSymbol, Distance: dist, Length: length} }
func End() Symbol                   { return Symbol{Kind: EndSymbol} }

func (s Symbol) String() string {
	switch s.Kind {
	case LiteralSymbol:
		return fmt.Sprintf("Literal(%#02x)", s.Literal)
	case PairSymbol:
		return fmt.Sprintf("Pair{Distance: %d, Length: %d}", s.Distance, s.Length)
	case EndSymbol:
		return "End"
	default:
		return fmt.Sprintf("Symbol(%d)", s.Kind)
	}
}

// DecodeSymbol decodes one symbol from the low nbits of bits, which holds the
// stream in LSB-first order. The dictBits argument is the dictionary size
// header byte, which is the base-2 logarithm of the dictionary size minus 6.
//
// It returns the symbol and the number of bits it occupies. If nbits is too
// small for the symbol, it returns a NeedBitsError holding the number of
// additional bits required. The table lookups may read bits above nbits, but
// any result depending on them is discarded.
func DecodeSymbol(bits uint64, nbits uint, ct *CodeTable, dictBits uint) (Symbol, uint, error) {
	var sym Symbol
	var used uint

	next := uint8(bits >> 1)
	if bits&1 == 0 {
		used = 9
		sym = Literal(next)
	} else {
		code := uint(ct.LenCodes[next])
		codeBits := uint(ct.LenBits[code])
		extraBits := uint(ct.ExtraLenBits[code])
		used = 1 + codeBits + extraBits

		length := code
		if extraBits > 0 {
			extra := uint((bits >> (1 + codeBits)) & internal.MaskUint64(extraBits))
			length += uint(ct.LenAdd[code]) + extra
		}
		if length == endLength {
			if nbits < used {
				return Symbol{}, 0, NeedBitsError(used - nbits)
			}
			return End(), used, nil
		}

		// The distance is split into a coded high part and verbatim low bits.
		// The shortest matches always use 2 low bits.
		distCode := uint(ct.DistCodes[uint8(bits>>used)])
		used += uint(ct.DistBits[distCode])
		lowBits := dictBits
		if length == 0 {
			lowBits = 2
		}
		low := uint((bits >> used) & internal.MaskUint64(lowBits))
		used += lowBits

		sym = Pair((distCode<<lowBits|low)+1, length+2)
	}

	if nbits < used {
		return Symbol{}, 0, NeedBitsError(used - nbits)
	}
	return sym, used, nil
}
