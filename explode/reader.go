// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package explode

import (
	"io"

	"github.com/dsnet/implode"
	"github.com/dsnet/implode/internal"
	"github.com/dsnet/implode/internal/errors"
)

const (
	defaultBufferSize = 1 << 12
	minBufferSize     = 16
)

var errClosed = errors.Error{Code: errors.Closed, Pkg: "explode", Msg: "reader is closed"}

type ReaderConfig struct {
	CodeTable  *CodeTable // Tables to decode with; nil selects DefaultCodeTable
	BufferSize int        // Size of the input buffer; zero selects a default

	_ struct{} // Blank field to prevent unkeyed struct literals
}

type Reader struct {
	InputOffset  int64 // Total number of bytes consumed by the decoder
	OutputOffset int64 // Total number of bytes emitted from Read

	rd     io.Reader
	br     implode.ByteReader // Non-nil if rd is read one byte at a time
	buf    []byte             // Input buffer
	in     []byte             // Input not yet consumed, a prefix of buf
	toRead []byte             // Uncompressed data ready to be emitted from Read
	err    error              // Persistent error

	ex Exploder
}

// NewReader returns a Reader that decompresses a single stream from r.
//
// If r implements implode.ByteReader, it is read one byte at a time so that
// no input beyond the end of the stream is consumed. Otherwise, up to one
// buffer of data past the end may be read from r.
func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	ct, size := &DefaultCodeTable, defaultBufferSize
	if conf != nil {
		if conf.CodeTable != nil {
			ct = conf.CodeTable
		}
		switch {
		case conf.BufferSize < 0:
			return nil, errorf(errors.Invalid, "negative buffer size: %d", conf.BufferSize)
		case conf.BufferSize > 0:
			size = conf.BufferSize
			if size < minBufferSize {
				size = minBufferSize
			}
		}
	}
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	if internal.GoFuzz {
		size = minBufferSize // Exercise the carry-over of unconsumed input
	}

	zr := new(Reader)
	zr.buf = make([]byte, size)
	zr.ex.init(ct)
	zr.Reset(r)
	return zr, nil
}

func (zr *Reader) Read(buf []byte) (int, error) {
	for {
		if len(zr.toRead) > 0 {
			cnt := copy(buf, zr.toRead)
			zr.toRead = zr.toRead[cnt:]
			zr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if zr.err != nil {
			return 0, zr.err
		}
		zr.step()
	}
}

// step performs one call to the Exploder, reading more input only when the
// Exploder could make no progress with what it already has.
func (zr *Reader) step() {
	defer errors.Recover(&zr.err)
	if zr.ex.Ended() {
		zr.err = io.EOF
		return
	}

	n, out, err := zr.ex.Explode(zr.in)
	zr.in = zr.in[n:]
	zr.InputOffset += int64(n)
	zr.toRead = out
	switch {
	case err != nil && !IsNeedInput(err):
		errors.Panic(err)
	case n == 0 && len(out) == 0 && !zr.ex.Ended():
		zr.fill()
	}
}

// fill moves unconsumed input to the front of the buffer and appends more.
// It panics with the read error, where io.EOF becomes io.ErrUnexpectedEOF.
func (zr *Reader) fill() {
	cnt := copy(zr.buf, zr.in)
	zr.in = zr.buf[:cnt]
	if cnt == len(zr.buf) {
		errors.Panic(errorf(errors.Internal, "no progress with a full input buffer"))
	}

	var err error
	if zr.br != nil {
		var c byte
		if c, err = zr.br.ReadByte(); err == nil {
			zr.in = append(zr.in, c)
		}
	} else {
		var n int
		n, err = zr.rd.Read(zr.buf[cnt:])
		zr.in = zr.buf[:cnt+n]
		if n > 0 && err == io.EOF {
			err = nil // Surface io.EOF on the next fill
		}
	}

	switch {
	case err == io.EOF:
		errors.Panic(io.ErrUnexpectedEOF)
	case err != nil:
		errors.Panic(err)
	}
}

func (zr *Reader) Close() error {
	if zr.err == nil || zr.err == io.EOF || zr.err == errClosed {
		zr.toRead = nil // Make sure future reads fail
		zr.err = errClosed
		return nil
	}
	return zr.err // Return the persistent error
}

// Reset discards the Reader's state and makes it read a new stream from r,
// reusing its buffers.
func (zr *Reader) Reset(r io.Reader) error {
	if zr.buf == nil {
		zr.buf = make([]byte, defaultBufferSize)
	}
	if zr.ex.table == nil {
		zr.ex.init(nil)
	}
	zr.InputOffset, zr.OutputOffset = 0, 0
	zr.rd, zr.br = r, nil
	if br, ok := r.(implode.ByteReader); ok {
		zr.br = br
	}
	zr.in, zr.toRead, zr.err = zr.buf[:0], nil, nil
	zr.ex.Reset()
	return nil
}

// Decode decompresses a complete stream held in src using the given table,
// where nil selects DefaultCodeTable. Data following the end of the stream
// is ignored. It returns io.ErrUnexpectedEOF if src ends before the end code.
func Decode(src []byte, ct *CodeTable) ([]byte, error) {
	e := NewExploder(ct)
	var dst []byte
	for !e.Ended() {
		n, out, err := e.Explode(src)
		src = src[n:]
		dst = append(dst, out...)
		switch {
		case IsNeedInput(err):
			return dst, io.ErrUnexpectedEOF
		case err != nil:
			return dst, err
		case n == 0 && len(out) == 0 && !e.Ended():
			return dst, io.ErrUnexpectedEOF
		}
	}
	return dst, nil
}
