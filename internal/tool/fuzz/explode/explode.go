// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

//go:build gofuzz
// +build gofuzz

package explode

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/dsnet/implode"
	"github.com/dsnet/implode/explode"
)

func Fuzz(data []byte) int {
	want, ok := testDecoders(data)
	for _, size := range []int{1, 3, 64} {
		testChunks(data, want, size)
	}
	if ok {
		return 1 // Favor valid inputs
	}
	return 0
}

// testDecoders tests that the Reader and Decode agree on the input.
// Any error they report must be a truncation or a classified implode.Error.
func testDecoders(data []byte) ([]byte, bool) {
	zr, err := explode.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		panic(err)
	}
	defer zr.Close()

	rb, rerr := ioutil.ReadAll(zr)
	db, derr := explode.Decode(data, nil)

	if rerr != derr {
		panic("mismatching errors")
	}
	if !bytes.Equal(rb, db) {
		panic("mismatching bytes")
	}
	switch err := rerr.(type) {
	case nil:
		if err := zr.Close(); err != nil {
			panic(err)
		}
		return rb, true
	case implode.Error:
		if !err.IsCorrupted() && !err.IsUnsupported() {
			panic(err)
		}
	default:
		if err != io.ErrUnexpectedEOF {
			panic(err)
		}
	}
	return rb, false
}

// testChunks checks that feeding the input in chunks of the given size
// produces the same output as decoding it all at once.
func testChunks(data, want []byte, size int) {
	e := explode.NewExploder(nil)
	var got, pending []byte
	for len(data) > 0 || len(pending) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		pending, data = append(pending, data[:n]...), data[n:]

		progress := n > 0
		for !e.Ended() {
			cnt, out, err := e.Explode(pending)
			pending = pending[cnt:]
			got = append(got, out...)
			if err != nil && !explode.IsNeedInput(err) {
				progress = false
				data = nil
				pending = nil
				break
			}
			if cnt == 0 && len(out) == 0 {
				break
			}
			progress = true
		}
		if e.Ended() || !progress {
			break
		}
	}
	if !bytes.Equal(got, want) {
		panic("mismatching bytes across chunk sizes")
	}
}
