// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package unpack

import (
	"io"
	"io/ioutil"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/dsnet/implode/internal/config"
)

// Encoder wraps w so that data written to it is recompressed.
type Encoder func(w io.Writer) (io.WriteCloser, error)

// Decoder reads data written by the matching Encoder.
type Decoder func(r io.Reader) (io.ReadCloser, error)

var (
	Encoders = map[string]Encoder{}
	Decoders = map[string]Decoder{}
)

func RegisterEncoder(format string, enc Encoder) { Encoders[format] = enc }
func RegisterDecoder(format string, dec Decoder) { Decoders[format] = dec }

func init() {
	RegisterEncoder(config.RepackNone,
		func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		})
	RegisterDecoder(config.RepackNone,
		func(r io.Reader) (io.ReadCloser, error) {
			return ioutil.NopCloser(r), nil
		})

	RegisterEncoder(config.RepackGzip,
		func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestCompression)
		})
	RegisterDecoder(config.RepackGzip,
		func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		})

	RegisterEncoder(config.RepackZstd,
		func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		})
	RegisterDecoder(config.RepackZstd,
		func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		})

	RegisterEncoder(config.RepackXZ,
		func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		})
	RegisterDecoder(config.RepackXZ,
		func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return ioutil.NopCloser(xr), nil
		})
}

// NewRepacker returns a writer that recompresses into w using the format.
// Closing it flushes the format's trailer but does not close w.
func NewRepacker(w io.Writer, format string) (io.WriteCloser, error) {
	enc, ok := Encoders[format]
	if !ok {
		return nil, errors.Errorf("unknown repack format %q", format)
	}
	wc, err := enc(w)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s writer", format)
	}
	return wc, nil
}

// NewUnpacker returns a reader for data produced by NewRepacker.
func NewUnpacker(r io.Reader, format string) (io.ReadCloser, error) {
	dec, ok := Decoders[format]
	if !ok {
		return nil, errors.Errorf("unknown repack format %q", format)
	}
	rc, err := dec(r)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s reader", format)
	}
	return rc, nil
}

// Formats lists the registered repack formats.
func Formats() []string {
	var fs []string
	for f := range Encoders {
		fs = append(fs, f)
	}
	sort.Strings(fs)
	return fs
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
