// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package unpack drives the streaming Exploder over files for the dclexplode
// tool and optionally recompresses the result.
package unpack

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/dsnet/implode/explode"
)

// Stats records the work done for a single stream.
type Stats struct {
	BytesIn  int64 // Bytes of the stream consumed, excluding trailing data
	BytesOut int64 // Bytes of decompressed output
	Chunks   int   // Number of reads from the source
	DictBits uint  // Dictionary size header byte
}

// Stream decompresses a single stream read from src in chunks of chunkSize
// bytes and writes the output to dst. Input that the Exploder does not
// consume is carried over into the next chunk. The context is checked
// between chunks.
//
// If src ends before the end code, Stream returns an error whose cause is
// io.ErrUnexpectedEOF. Errors from the Exploder are returned as causes
// unchanged, so that they can still be classified through implode.Error.
func Stream(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (*Stats, error) {
	if chunkSize <= 0 {
		return &Stats{}, errors.Errorf("invalid chunk size %d", chunkSize)
	}

	e := explode.NewExploder(nil)
	stats := &Stats{}
	buf := make([]byte, 0, chunkSize)
	var srcErr error
	for !e.Ended() {
		if err := ctx.Err(); err != nil {
			return stats, errors.Wrap(err, "unpack interrupted")
		}

		// Carry unconsumed input to the front and read the next chunk.
		if srcErr == nil {
			if len(buf) == cap(buf) {
				buf = append(buf, make([]byte, chunkSize)...)[:len(buf)]
			}
			n, err := src.Read(buf[len(buf):cap(buf)])
			buf = buf[:len(buf)+n]
			stats.Chunks++
			switch {
			case err == io.EOF:
				srcErr = io.ErrUnexpectedEOF
			case err != nil:
				return stats, errors.Wrap(err, "error reading input")
			}
		}

		progress, err := explodeAll(e, dst, &buf, stats)
		if err != nil {
			return stats, err
		}
		if !progress && srcErr != nil && !e.Ended() {
			return stats, errors.Wrap(srcErr, "stream is truncated")
		}
	}
	return stats, nil
}

// explodeAll calls Explode until it stops making progress on the input held
// in buf, which is compacted afterwards. It reports whether any progress was
// made.
func explodeAll(e *explode.Exploder, dst io.Writer, buf *[]byte, stats *Stats) (progress bool, err error) {
	in := *buf
	for !e.Ended() {
		n, out, err := e.Explode(in)
		in = in[n:]
		stats.BytesIn += int64(n)
		stats.DictBits = e.DictBits()
		if len(out) > 0 {
			if _, werr := dst.Write(out); werr != nil {
				return progress, errors.Wrap(werr, "error writing output")
			}
			stats.BytesOut += int64(len(out))
		}
		if err != nil && !explode.IsNeedInput(err) {
			return progress, err
		}
		if n == 0 && len(out) == 0 {
			break
		}
		progress = true
	}
	*buf = (*buf)[:copy(*buf, in)]
	return progress, nil
}
