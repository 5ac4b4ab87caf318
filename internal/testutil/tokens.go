// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

// RandomTokens generates tokens that expand to at least n bytes. The data
// heavily favors back-references, most of them long, so that copies often
// straddle the halves of the decoder's window. Random literal runs keep the
// data from being trivially repetitive.
func RandomTokens(r *Rand, n int, dictBits uint) []Token {
	maxDist := 64 << dictBits
	if maxDist > 1<<12 {
		maxDist = 1 << 12
	}

	randLen := func() int {
		switch p := r.Percent(); {
		case p < 15:
			return r.Between(2, 8)
		case p < 30:
			return r.Between(8, 16)
		case p < 45:
			return r.Between(16, 32)
		case p < 60:
			return r.Between(32, 64)
		case p < 75:
			return r.Between(64, 128)
		case p < 90:
			return r.Between(128, 256)
		default:
			return r.Between(256, MaxLength+1)
		}
	}

	randDist := func() int {
		switch p := r.Percent(); {
		case p < 10:
			return 1
		case p < 20:
			return r.Between(2, 4)
		case p < 30:
			return r.Between(4, 16)
		case p < 45:
			return r.Between(16, 128)
		case p < 60:
			return r.Between(128, 1024)
		default:
			return r.Between(1024, 1<<12+1)
		}
	}

	var toks []Token
	var size int
	writeLits := func(cnt int) {
		for _, c := range r.Bytes(cnt) {
			toks = append(toks, Token{Literal: c})
		}
		size += cnt
	}

	writeLits(randLen())
	for size < n {
		if r.Percent() < 10 {
			writeLits(randLen())
			continue
		}
		d, l := randDist(), randLen()
		if l == 2 && d > 256 {
			d = 1 + d%256
		}
		if d > size || d > maxDist {
			d = 1 + d%min(size, maxDist)
		}
		toks = append(toks, Token{Distance: uint(d), Length: uint(l)})
		size += l
	}
	return toks
}
