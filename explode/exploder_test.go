// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package explode

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/dsnet/implode/internal/errors"
	"github.com/dsnet/implode/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

// explodeChunks feeds the chunks to e one at a time, carrying over any input
// that was not consumed, and returns the concatenated output. It returns
// io.ErrUnexpectedEOF if the chunks run out before the end of the stream.
func explodeChunks(e *Exploder, chunks [][]byte) ([]byte, error) {
	var out, pending []byte
	for _, c := range chunks {
		pending = append(pending, c...)
		for {
			n, b, err := e.Explode(pending)
			pending = pending[n:]
			out = append(out, b...)
			switch {
			case e.Ended():
				return out, nil
			case err != nil && !IsNeedInput(err):
				return out, err
			case n == 0 && len(b) == 0:
			default:
				continue
			}
			break
		}
	}

	// Flush output held back by a full window.
	for !e.Ended() {
		n, b, err := e.Explode(pending)
		pending = pending[n:]
		out = append(out, b...)
		if err != nil && !IsNeedInput(err) {
			return out, err
		}
		if n == 0 && len(b) == 0 && !e.Ended() {
			return out, io.ErrUnexpectedEOF
		}
	}
	return out, nil
}

func TestExplode(t *testing.T) {
	db := testutil.MustDecodeBitGen

	var vectors = []struct {
		desc   string // Description of the test
		input  []byte // Test input string
		output string // Expected output string
		err    error  // Expected error
	}{{
		desc: "empty string (truncated)",
		err:  io.ErrUnexpectedEOF,
	}, {
		desc:  "mode only (truncated)",
		input: db("X:00"),
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "header only (truncated)",
		input: db("X:0004"),
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "coded literals",
		input: db("X:0104 END"),
		err:   ErrUnsupportedMode,
	}, {
		desc:  "unknown literal mode",
		input: db("X:0204 END"),
		err:   errorf(errors.Unsupported, "unknown literal mode 2"),
	}, {
		desc:  "end code only",
		input: db("X:0004 END"),
	}, {
		desc:   "repeated pair",
		input:  db("X:0004 LIT:41 LIT:49 P4:2:11 END"),
		output: "AIAIAIAIAIAIA",
	}, {
		desc:   "literals",
		input:  db("X:0006 LIT:68 LIT:65 LIT:6c LIT:6c LIT:6f END"),
		output: "hello",
	}, {
		desc:   "literals (truncated)",
		input:  db("X:0006 LIT:68 LIT:65 LIT:6c LIT:6c LIT:6f"),
		output: "hello",
		err:    io.ErrUnexpectedEOF,
	}, {
		desc:   "end code (truncated)",
		input:  db("X:0006 LIT:68 LIT:65 LIT:6c LIT:6c LIT:6f END")[:9],
		output: "hello",
		err:    io.ErrUnexpectedEOF,
	}, {
		desc:   "overlapping copy",
		input:  db("X:0004 LIT:61 P4:1:10 END"),
		output: "aaaaaaaaaaa",
	}, {
		desc:   "shortest match uses two low distance bits",
		input:  db("X:0006 LIT:61 LIT:62 LIT:63 P6:3:2 END"),
		output: "abcab",
	}, {
		desc:   "longest match",
		input:  db("X:0005 LIT:7a P5:1:518 END"),
		output: strings.Repeat("z", 519),
	}, {
		desc:   "dictionary size is not validated",
		input:  db("X:0007 LIT:41 P7:1:3 END"),
		output: "AAAA",
	}, {
		desc:   "distance before start of output",
		input:  db("X:0004 LIT:41 P4:2:3 END"),
		output: "A",
		err:    ErrDistanceTooFar,
	}, {
		desc:   "distance before start of output, first symbol",
		input:  db("X:0004 P4:1:2 END"),
		output: "",
		err:    ErrDistanceTooFar,
	}, {
		desc:   "trailing data is ignored",
		input:  db("X:0004 LIT:41 LIT:49 P4:2:11 END X:deadbeef"),
		output: "AIAIAIAIAIAIA",
	}, {
		desc:   "known stream",
		input:  testutil.MustDecodeHex("00048224258f807f"),
		output: "AIAIAIAIAIAIA",
	}}

	for i, v := range vectors {
		for _, size := range []int{1, 2, 3, 7, len(v.input) + 1} {
			e := NewExploder(nil)
			output, err := explodeChunks(e, testutil.SplitChunks(v.input, size))
			if err != v.err {
				t.Errorf("test %d, %s, chunk size %d\nerror mismatch: got %v, want %v", i, v.desc, size, err, v.err)
			}
			if string(output) != v.output {
				t.Errorf("test %d, %s, chunk size %d\noutput mismatch:\ngot  %q\nwant %q", i, v.desc, size, output, v.output)
			}
		}

		output, err := Decode(v.input, nil)
		if err != v.err {
			t.Errorf("test %d, %s\nDecode error mismatch: got %v, want %v", i, v.desc, err, v.err)
		}
		if string(output) != v.output {
			t.Errorf("test %d, %s\nDecode output mismatch:\ngot  %q\nwant %q", i, v.desc, output, v.output)
		}
	}
}

func TestExplodeHeader(t *testing.T) {
	e := NewExploder(nil)

	if n, out, err := e.Explode(nil); n != 0 || len(out) != 0 || err != ErrNeedMode {
		t.Fatalf("Explode(nil) = (%d, %q, %v), want (0, \"\", %v)", n, out, err, ErrNeedMode)
	}
	if n, out, err := e.Explode([]byte{0}); n != 0 || len(out) != 0 || err != ErrNeedDictBits {
		t.Fatalf("Explode(mode) = (%d, %q, %v), want (0, \"\", %v)", n, out, err, ErrNeedDictBits)
	}
	if !IsNeedInput(ErrNeedMode) || !IsNeedInput(ErrNeedDictBits) || IsNeedInput(ErrDistanceTooFar) {
		t.Errorf("IsNeedInput misclassifies the sentinel errors")
	}

	// The mode byte was not committed, so the full header is offered again.
	if n, out, err := e.Explode([]byte{0, 6}); n != 2 || len(out) != 0 || err != nil {
		t.Fatalf("Explode(header) = (%d, %q, %v), want (2, \"\", nil)", n, out, err)
	}
	if got := e.DictBits(); got != 6 {
		t.Errorf("DictBits() = %d, want 6", got)
	}
	if n, out, err := e.Explode(nil); n != 0 || len(out) != 0 || err != nil {
		t.Errorf("Explode(nil) after header = (%d, %q, %v), want (0, \"\", nil)", n, out, err)
	}

	// Unsupported modes are fatal and persist.
	e.Reset()
	for i := 0; i < 2; i++ {
		if n, _, err := e.Explode([]byte{1, 4, 0xff}); n != 0 || err != ErrUnsupportedMode {
			t.Errorf("call %d, Explode(ascii) = (%d, %v), want (0, %v)", i, n, err, ErrUnsupportedMode)
		}
	}
	if !errors.IsUnsupported(ErrUnsupportedMode) {
		t.Errorf("ErrUnsupportedMode is not classified as unsupported")
	}
}

func TestExplodeConsumed(t *testing.T) {
	stream := testutil.MustDecodeHex("00048224258f807f")
	input := append(append([]byte(nil), stream...), "canary"...)

	e := NewExploder(nil)
	n, out, err := e.Explode(input)
	if err != nil || !e.Ended() {
		t.Fatalf("Explode() = (%d, %q, %v), ended: %v", n, out, err, e.Ended())
	}
	if n != len(stream) {
		t.Errorf("consumed mismatch: got %d, want %d", n, len(stream))
	}
	if string(out) != "AIAIAIAIAIAIA" {
		t.Errorf("output mismatch: got %q", out)
	}

	if n, out, err := e.Explode(input[n:]); n != 0 || len(out) != 0 || err != io.EOF {
		t.Errorf("Explode() after end = (%d, %q, %v), want (0, \"\", EOF)", n, out, err)
	}
}

func TestExplodeRandom(t *testing.T) {
	sizes := [][]int{{1}, {2}, {3, 7}, {100}, {1, 4095, 4097}, {1 << 20}}
	for dictBits := uint(4); dictBits <= 6; dictBits++ {
		for seed := 0; seed < 4; seed++ {
			r := testutil.NewRand(seed)
			toks := testutil.RandomTokens(r, 50000, dictBits)
			want := testutil.Expand(toks)
			input := testutil.Implode(toks, dictBits)

			for _, size := range sizes {
				e := NewExploder(nil)
				got, err := explodeChunks(e, testutil.SplitChunks(input, size...))
				if err != nil {
					t.Errorf("dict bits %d, seed %d, sizes %v: unexpected error: %v", dictBits, seed, size, err)
				}
				if !bytes.Equal(got, want) {
					t.Errorf("dict bits %d, seed %d, sizes %v: output mismatch (len %d, want %d)",
						dictBits, seed, size, len(got), len(want))
				}
			}
		}
	}
}

func TestExplodeWindow(t *testing.T) {
	lits := func(n int) (toks []testutil.Token) {
		r := testutil.NewRand(n)
		for _, c := range r.Bytes(n) {
			toks = append(toks, testutil.Token{Literal: c})
		}
		return toks
	}
	pair := func(dist, length uint) testutil.Token {
		return testutil.Token{Distance: dist, Length: length}
	}
	cat := func(tss ...[]testutil.Token) (toks []testutil.Token) {
		for _, ts := range tss {
			toks = append(toks, ts...)
		}
		return toks
	}

	vectors := []struct {
		desc string
		toks []testutil.Token
	}{{
		desc: "literals fill exactly one half",
		toks: lits(halfSize),
	}, {
		desc: "literals fill several halves",
		toks: lits(3*halfSize + 17),
	}, {
		desc: "copy straddles the first swap",
		toks: cat(lits(halfSize-10), []testutil.Token{pair(100, 518)}),
	}, {
		desc: "copy ends exactly at the swap",
		toks: cat(lits(halfSize-100), []testutil.Token{pair(50, 100), pair(1, 5)}),
	}, {
		desc: "copy of the maximum distance after a swap",
		toks: cat(lits(halfSize+300), []testutil.Token{pair(halfSize, 518), pair(halfSize, 518)}),
	}, {
		desc: "overlapping copy straddles many swaps",
		toks: cat(lits(1), repeatTokens(pair(1, 518), 40)),
	}, {
		desc: "maximum distance copies chain through the window",
		toks: cat(lits(halfSize), repeatTokens(pair(halfSize, 500), 50)),
	}}

	for i, v := range vectors {
		want := testutil.Expand(v.toks)
		input := testutil.Implode(v.toks, 6)
		for _, size := range []int{1, 13, len(input)} {
			got, err := explodeChunks(NewExploder(nil), testutil.SplitChunks(input, size))
			if err != nil {
				t.Errorf("test %d, %s, chunk size %d: unexpected error: %v", i, v.desc, size, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("test %d, %s, chunk size %d: output mismatch (len %d, want %d)", i, v.desc, size, len(got), len(want))
			}
		}
	}
}

func repeatTokens(t testutil.Token, n int) []testutil.Token {
	toks := make([]testutil.Token, n)
	for i := range toks {
		toks[i] = t
	}
	return toks
}

func TestExplodeOutputBounds(t *testing.T) {
	// No single call may return more than one half of the window.
	toks := []testutil.Token{{Literal: 'x'}}
	toks = append(toks, repeatTokens(testutil.Token{Distance: 1, Length: 518}, 64)...)
	input := testutil.Implode(toks, 4)

	e := NewExploder(nil)
	var total int
	for !e.Ended() {
		n, out, err := e.Explode(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) > halfSize {
			t.Fatalf("call returned %d bytes, want at most %d", len(out), halfSize)
		}
		if n == 0 && len(out) == 0 && !e.Ended() {
			t.Fatalf("no progress after %d bytes", total)
		}
		input = input[n:]
		total += len(out)
	}
	if want := 1 + 64*518; total != want {
		t.Errorf("output length mismatch: got %d, want %d", total, want)
	}
}

func TestExplodeReset(t *testing.T) {
	r := testutil.NewRand(0)
	toks := testutil.RandomTokens(r, 20000, 5)
	want := testutil.Expand(toks)
	input := testutil.Implode(toks, 5)

	e := NewExploder(nil)
	for i := 0; i < 3; i++ {
		// Abandon a stream half way, then decode a complete one.
		if _, err := explodeChunks(e, [][]byte{input[:len(input)/2]}); err != io.ErrUnexpectedEOF {
			t.Errorf("iteration %d, partial stream: got %v, want %v", i, err, io.ErrUnexpectedEOF)
		}
		e.Reset()
		got, err := explodeChunks(e, testutil.SplitChunks(input, 1000))
		if err != nil {
			t.Errorf("iteration %d, unexpected error: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("iteration %d, output mismatch", i)
		}
		e.Reset()
	}

	// Reset clears a fatal error.
	if _, _, err := e.Explode([]byte{1, 4}); err != ErrUnsupportedMode {
		t.Fatalf("got %v, want %v", err, ErrUnsupportedMode)
	}
	e.Reset()
	if n, _, err := e.Explode([]byte{0, 4}); n != 2 || err != nil {
		t.Errorf("after Reset: got (%d, %v), want (2, nil)", n, err)
	}
}

func TestExplodeDistanceTooFar(t *testing.T) {
	vectors := []struct {
		desc     string
		dictBits uint // Zero selects 6
		toks     []testutil.Token
		output   int // Number of bytes produced before the error
	}{{
		desc:   "beyond output within first half",
		toks:   []testutil.Token{{Literal: 1}, {Literal: 2}, {Distance: 3, Length: 4}},
		output: 2,
	}, {
		desc: "beyond output near the end of the first half",
		toks: append(
			repeatTokens(testutil.Token{Literal: 7}, halfSize-2),
			testutil.Token{Distance: halfSize - 1, Length: 3},
		),
		output: halfSize - 2,
	}, {
		desc:     "beyond one half with a large dictionary",
		dictBits: 7,
		toks: append(
			repeatTokens(testutil.Token{Literal: 7}, halfSize+10),
			testutil.Token{Distance: halfSize + 1, Length: 3},
		),
		output: halfSize + 10,
	}}

	for i, v := range vectors {
		if v.dictBits == 0 {
			v.dictBits = 6
		}
		input := testutil.Implode(v.toks, v.dictBits)
		e := NewExploder(nil)
		got, err := explodeChunks(e, [][]byte{input})
		if err != ErrDistanceTooFar {
			t.Errorf("test %d, %s: got %v, want %v", i, v.desc, err, ErrDistanceTooFar)
		}
		if !errors.IsCorrupted(err) {
			t.Errorf("test %d, %s: error is not classified as corrupted", i, v.desc)
		}
		if len(got) != v.output {
			t.Errorf("test %d, %s: output length mismatch: got %d, want %d", i, v.desc, len(got), v.output)
		}

		// The error persists.
		if _, _, err := e.Explode(input); err != ErrDistanceTooFar {
			t.Errorf("test %d, %s: persistent error mismatch: got %v", i, v.desc, err)
		}
	}
}

func TestExplodeSymbolTooLong(t *testing.T) {
	// A dictionary size byte of 200 makes every pair longer than 64 bits.
	input := append([]byte{0, 200}, bytes.Repeat([]byte{0xff}, 100)...)

	for _, size := range []int{1, 3, len(input)} {
		e := NewExploder(nil)
		got, err := explodeChunks(e, testutil.SplitChunks(input, size))
		if err != ErrSymbolTooLong {
			t.Errorf("chunk size %d: got %v, want %v", size, err, ErrSymbolTooLong)
		}
		if !errors.IsCorrupted(err) {
			t.Errorf("chunk size %d: error is not classified as corrupted", size)
		}
		if len(got) != 0 {
			t.Errorf("chunk size %d: unexpected output: %x", size, got)
		}
		if _, _, err := e.Explode(input); err != ErrSymbolTooLong {
			t.Errorf("chunk size %d: persistent error mismatch: got %v", size, err)
		}
	}

	// Out of range sizes that still fit the accumulator decode normally.
	e := NewExploder(nil)
	enc := testutil.NewEncoder(20)
	enc.Literal('a')
	enc.Literal('b')
	enc.Pair(2, 4)
	enc.End()
	got, err := explodeChunks(e, [][]byte{enc.Bytes()})
	if diff := cmp.Diff("ababab", string(got)); diff != "" || err != nil {
		t.Errorf("dict bits 20: mismatch (-want +got):\n%s\nerror: %v", diff, err)
	}
}

func TestNewExploderInvalidTable(t *testing.T) {
	ct := DefaultCodeTable
	ct.DistCodes[0] = 255

	defer func() {
		if ex, ok := recover().(error); !ok || !errors.IsInvalid(ex) {
			t.Errorf("unexpected panic value: %v", ex)
		}
	}()
	NewExploder(&ct)
	t.Errorf("NewExploder did not panic")
}

func TestExplodeCustomTable(t *testing.T) {
	// A table that only differs in unused entries decodes identically.
	ct := DefaultCodeTable
	ct.LenBase = [numLenCodes]uint16{}
	e := NewExploder(&ct)
	got, err := explodeChunks(e, [][]byte{testutil.MustDecodeHex("00048224258f807f")})
	if diff := cmp.Diff("AIAIAIAIAIAIA", string(got)); diff != "" || err != nil {
		t.Errorf("mismatch (-want +got):\n%s\nerror: %v", diff, err)
	}
}

func BenchmarkExplode(b *testing.B) {
	r := testutil.NewRand(0)
	toks := testutil.RandomTokens(r, 1<<20, 6)
	input := testutil.Implode(toks, 6)
	size := len(testutil.Expand(toks))
	e := NewExploder(nil)

	b.SetBytes(int64(size))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Reset()
		in := input
		for !e.Ended() {
			n, _, err := e.Explode(in)
			if err != nil {
				b.Fatal(err)
			}
			in = in[n:]
		}
	}
}
