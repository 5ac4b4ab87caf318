// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"bytes"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/dsnet/implode/internal"
)

var (
	reBin  = regexp.MustCompile("^[01]{1,64}$")
	reDec  = regexp.MustCompile("^D[0-9]+:[0-9]+$")
	reHex  = regexp.MustCompile("^H[0-9]+:[0-9a-fA-F]{1,16}$")
	reRaw  = regexp.MustCompile("^X:[0-9a-fA-F]+$")
	reLit  = regexp.MustCompile("^LIT:[0-9a-fA-F]{2}$")
	rePair = regexp.MustCompile("^P[0-9]+:[0-9]+:[0-9]+$")
	reQnt  = regexp.MustCompile("[*][0-9]+$")
)

// DecodeBitGen decodes a BitGen formatted string.
//
// The BitGen format allows bit-streams to be generated from a series of tokens
// describing bits in the resulting string. It aids a human in scripting
// implode streams by hand, one symbol at a time, with comments recording the
// intent of each piece. Bits are always packed starting with the
// least-significant bit of each byte.
//
// The format consists of a series of tokens separated by white space of any
// kind. The '#' character starts a comment that runs to the end of the line.
//
// A token of "<" (little-endian) or ">" (big-endian) sets the bit-parsing mode
// for the tokens that follow. The mode defaults to little-endian. The same
// characters may also prefix a single binary or numeric token to change the
// mode for that token only.
//
// A token of the pattern "[01]{1,64}" forms a bit-string (e.g. 11010).
// In little-endian mode, the right-most bits are written first. In big-endian
// mode, the left-most bits are written first.
//
// A token of the pattern "D[0-9]+:[0-9]+" or "H[0-9]+:[0-9a-fA-F]{1,16}"
// represents a decimal or hexadecimal value, respectively. The first number
// is the bit-length, between 0 and 64, and must be large enough to hold the
// value. The bit-parsing mode decides which end of the value goes first.
//
// A token of the pattern "X:[0-9a-fA-F]+" represents literal bytes and may
// only be used when the bit-stream is byte-aligned, such as for the header.
//
// The symbol tokens "LIT:hh", "Pd:dist:len" and "END" write a literal byte,
// a back-reference using d low distance bits, and the end code.
//
// A trailing quantifier of the pattern "[*][0-9]+" repeats a token.
//
// If the stream does not end on a byte boundary, it is padded with 0 bits.
//
// Example BitGen file:
//	X:0004           # Binary literals, 1KiB dictionary
//	LIT:41 LIT:49    # "AI"
//	P4:2:11          # Copy 11 bytes from 2 back
//	END
//
// Generated output stream (in hexadecimal):
//	"00048224258f807f"
func DecodeBitGen(str string) ([]byte, error) {
	// Tokenize the input string by removing comments and superfluous spaces.
	var toks []string
	for _, s := range strings.Split(str, "\n") {
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		toks = append(toks, strings.Fields(s)...)
	}

	var bw bitBuffer
	var parseMode bool // Bit-parsing mode: false is LE, true is BE
	for _, t := range toks {
		// Check for local and global bit-parsing mode modifiers.
		pm := parseMode
		if t[0] == '<' || t[0] == '>' {
			pm = t[0] == '>'
			t = t[1:]
			if len(t) == 0 {
				parseMode = pm // This is a global modifier, so remember it
				continue
			}
		}

		// Check for quantifier decorators.
		rep := 1
		if reQnt.MatchString(t) {
			i := strings.LastIndexByte(t, '*')
			n, err := strconv.Atoi(t[i+1:])
			if err != nil {
				return nil, errors.New("testutil: invalid quantified token: " + t)
			}
			t, rep = t[:i], n
		}

		var v uint64
		var n uint
		switch {
		case reBin.MatchString(t):
			for _, b := range t {
				v = v<<1 | uint64(b-'0')
			}
			n = uint(len(t))
			if pm {
				v = internal.ReverseUint64N(v, n)
			}
		case reDec.MatchString(t) || reHex.MatchString(t):
			i := strings.IndexByte(t, ':')
			base := 10
			if t[0] == 'H' {
				base = 16
			}
			nb, err1 := strconv.Atoi(t[1:i])
			val, err2 := strconv.ParseUint(t[i+1:], base, 64)
			if err1 != nil || err2 != nil || nb > 64 {
				return nil, errors.New("testutil: invalid numeric token: " + t)
			}
			if nb < 64 && val&((1<<uint(nb))-1) != val {
				return nil, errors.New("testutil: integer overflow on token: " + t)
			}
			v, n = val, uint(nb)
			if pm {
				v = internal.ReverseUint64N(v, n)
			}
		case reRaw.MatchString(t):
			b, err := hex.DecodeString(t[2:])
			if err != nil {
				return nil, errors.New("testutil: invalid raw bytes token: " + t)
			}
			if _, err := bw.Write(bytes.Repeat(b, rep)); err != nil {
				return nil, err
			}
			continue
		case reLit.MatchString(t):
			c, _ := strconv.ParseUint(t[4:], 16, 8)
			v, n = LiteralBits(byte(c))
		case rePair.MatchString(t):
			f := strings.Split(t[1:], ":")
			var args [3]uint
			for i := range args {
				x, err := strconv.ParseUint(f[i], 10, 16)
				if err != nil {
					return nil, errors.New("testutil: invalid pair token: " + t)
				}
				args[i] = uint(x)
			}
			v, n = PairBits(args[1], args[2], args[0])
		case t == "END":
			v, n = EndBits()
		default:
			return nil, errors.New("testutil: invalid token: " + t)
		}
		for i := 0; i < rep; i++ {
			bw.WriteBits64(v, n)
		}
	}
	return bw.Bytes(), nil
}

// bitBuffer is a minimal LSB-first bit writer.
type bitBuffer struct {
	b []byte
	m byte // Mask of the next bit in the last byte; zero when aligned
}

func (b *bitBuffer) Write(buf []byte) (int, error) {
	if b.m != 0x00 {
		return 0, errors.New("testutil: unaligned write")
	}
	b.b = append(b.b, buf...)
	return len(buf), nil
}

func (b *bitBuffer) WriteBits64(v uint64, n uint) {
	for i := uint(0); i < n; i++ {
		if b.m == 0x00 {
			b.m = 0x01
			b.b = append(b.b, 0x00)
		}
		if v&(1<<i) != 0 {
			b.b[len(b.b)-1] |= b.m
		}
		b.m <<= 1
	}
}

func (b *bitBuffer) Bytes() []byte {
	return b.b
}
