// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package explode

import (
	"io"

	"github.com/dsnet/implode/internal"
	"github.com/dsnet/implode/internal/errors"
)

// Exploder is the streaming decompression state for a single stream.
//
// The window is a fixed buffer of two halves. Positions are tracked in an
// unswapped coordinate space where [halfSize, bufferSize) is the half being
// written and [0, halfSize) is the half before it. The physical index of a
// position is the position XORed with offsXor, so swapping the halves only
// flips offsXor and the previous output stays in place as history.
//
// An Exploder is not safe for concurrent use.
type Exploder struct {
	table    *CodeTable
	dictBits uint  // Verbatim low distance bits, from the header
	err      error // Persistent fatal error

	needMode     bool // Mode byte not yet consumed
	needDictBits bool // Dictionary size byte not yet consumed
	needSwap     bool // Active half is full and must be swapped
	ended        bool // End code was decoded
	wrapped      bool // Previous half holds valid history

	buf       [bufferSize]byte
	offsXor   uint // Either 0 or halfSize
	writeOffs uint // Next write position, in [halfSize, bufferSize]

	bits    uint64 // Bit accumulator carried across calls
	nbits   uint   // Number of valid bits in bits
	remLen  uint   // Bytes left of a copy interrupted by a full half
	curOffs uint   // Source position of the interrupted copy
}

// NewExploder returns an Exploder that decodes with the given code table.
// A nil table selects DefaultCodeTable. It panics if the table is invalid.
func NewExploder(ct *CodeTable) *Exploder {
	e := new(Exploder)
	e.init(ct)
	return e
}

func (e *Exploder) init(ct *CodeTable) {
	if ct == nil {
		ct = &DefaultCodeTable
	}
	if err := ct.Validate(); err != nil {
		panic(err)
	}
	e.table = ct
	e.Reset()
}

// Reset discards all stream state so that the Exploder can decode a new
// stream. The window buffer is reused.
func (e *Exploder) Reset() {
	e.dictBits, e.err = 0, nil
	e.needMode, e.needDictBits = true, true
	e.needSwap, e.ended, e.wrapped = false, false, false
	e.offsXor, e.writeOffs = 0, halfSize
	e.bits, e.nbits = 0, 0
	e.remLen, e.curOffs = 0, 0
}

// Ended reports whether the end code has been decoded.
func (e *Exploder) Ended() bool { return e.ended }

// DictBits reports the dictionary size header byte, or 0 if it has not been
// read yet.
func (e *Exploder) DictBits() uint { return e.dictBits }

// Explode consumes a prefix of in and returns the number of bytes consumed
// and the output produced by this call. The output aliases the internal
// window and is only valid until the next call to Explode or Reset.
//
// Bytes loaded into the bit accumulator count as consumed; the remaining
// input must be offered again, followed by more data, on the next call.
// When the end code is reached, whole bytes left unused in the accumulator
// are handed back by reducing n as far as this call's input allows.
//
// The returned error is ErrNeedMode or ErrNeedDictBits if the header could
// not be read; in that case nothing is consumed. Running out of bits in the
// body is not an error: the call returns with whatever it produced and
// progress resumes when more input is supplied. A symbol that cannot fit in
// the bit accumulator is reported as ErrSymbolTooLong. Fatal errors persist
// until Reset. Once the stream has ended, Explode returns io.EOF.
func (e *Exploder) Explode(in []byte) (n int, out []byte, err error) {
	if e.err != nil {
		return 0, nil, e.err
	}
	if e.ended {
		return 0, nil, io.EOF
	}

	var pos int
	if e.needMode {
		if len(in) < 1 {
			return 0, nil, ErrNeedMode
		}
		switch mode := in[0]; mode {
		case modeBinary:
		case modeASCII:
			e.err = ErrUnsupportedMode
			return 0, nil, e.err
		default:
			e.err = errorf(errors.Unsupported, "unknown literal mode %d", mode)
			return 0, nil, e.err
		}
		pos = 1
	}
	if e.needDictBits {
		if len(in) < pos+1 {
			return 0, nil, ErrNeedDictBits
		}
		e.dictBits = uint(in[pos])
		pos++
	}
	e.needMode, e.needDictBits = false, false

	if e.needSwap {
		e.swap()
	}
	start := e.writeOffs
	if e.remLen > 0 {
		e.needSwap = e.copyPending()
	}

	loadStart := pos
	bits, nbits := e.bits, e.nbits
loop:
	for !e.needSwap {
		for nbits <= refillLimit && pos < len(in) {
			bits |= uint64(in[pos]) << nbits
			pos++
			nbits += 8
		}
		if e.writeOffs == bufferSize {
			e.needSwap = true
			break
		}

		sym, used, err := DecodeSymbol(bits, nbits, e.table, e.dictBits)
		if err != nil {
			if nbits > refillLimit {
				e.err = ErrSymbolTooLong // The accumulator is already full
			}
			break // Need more input
		}
		bits >>= used
		nbits -= used

		switch sym.Kind {
		case LiteralSymbol:
			e.buf[e.writeOffs^e.offsXor] = sym.Literal
			e.writeOffs++
		case PairSymbol:
			if sym.Distance > e.histSize() {
				e.err = ErrDistanceTooFar
				break loop
			}
			e.remLen, e.curOffs = sym.Length, e.writeOffs-sym.Distance
			e.needSwap = e.copyPending()
		case EndSymbol:
			e.ended = true
			if k := int(nbits / 8); k > 0 {
				if k > pos-loadStart {
					k = pos - loadStart
				}
				pos -= k
				nbits -= 8 * uint(k)
				bits &= internal.MaskUint64(nbits)
			}
			break loop
		}
	}
	e.bits, e.nbits = bits, nbits

	if internal.Debug && (e.writeOffs < halfSize || e.writeOffs > bufferSize || start > e.writeOffs) {
		panic(errorf(errors.Internal, "window offsets out of range: %d..%d", start, e.writeOffs))
	}
	return pos, e.buf[start-e.offsXor : e.writeOffs-e.offsXor], e.err
}

// histSize reports how many bytes behind the write position may be
// referenced by a back-reference.
func (e *Exploder) histSize() uint {
	if e.wrapped {
		return halfSize
	}
	return e.writeOffs - halfSize
}

// swap makes the full active half the history half and starts writing into
// the other one. An interrupted copy keeps its source by moving it back by
// one half, which cannot underflow since distances never exceed halfSize.
func (e *Exploder) swap() {
	e.offsXor ^= halfSize
	e.writeOffs = halfSize
	e.wrapped = true
	if e.remLen > 0 {
		e.curOffs -= halfSize
	}
	e.needSwap = false
}

// copyPending copies as much of the pending back-reference as fits into the
// active half and reports whether some of it is left for after the swap.
// Overlapping copies are handled by copying forward one byte at a time.
func (e *Exploder) copyPending() bool {
	cnt := e.remLen
	if room := bufferSize - e.writeOffs; cnt > room {
		cnt = room
	}
	from, to := e.curOffs, e.writeOffs
	for end := to + cnt; to < end; to, from = to+1, from+1 {
		e.buf[to^e.offsXor] = e.buf[from^e.offsXor]
	}
	e.writeOffs, e.curOffs = to, from
	e.remLen -= cnt
	return e.remLen > 0
}
