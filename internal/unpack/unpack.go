// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package unpack

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dsnet/implode/internal/config"
)

// DefaultOutputExt is appended to outputs whose input lacks the suffix.
const DefaultOutputExt = ".out"

type Unpacker struct {
	settings *config.Settings
	stdout   io.Writer
	log      *logrus.Entry
}

func New(s *config.Settings, stdout io.Writer) (*Unpacker, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}

	if _, ok := Encoders[s.Repack]; !ok {
		return nil, errors.Errorf("unknown repack format %q", s.Repack)
	}

	return &Unpacker{
		settings: s,
		stdout:   stdout,
		log:      logrus.WithField("pkg", "unpack"),
	}, nil
}

// Run unpacks every file in order, stopping at the first failure.
func (u *Unpacker) Run(ctx context.Context, files []string) error {
	for _, file := range files {
		if _, err := u.File(ctx, file); err != nil {
			return errors.Wrapf(err, "unable to unpack %s", file)
		}
	}
	return nil
}

// OutputPath derives the output name for an input file: the suffix is
// replaced by the repack extension, or DefaultOutputExt is appended when the
// input does not carry the suffix. An output directory replaces the input's.
func OutputPath(file string, s *config.Settings) string {
	name := file
	if s.Suffix != "" && strings.HasSuffix(name, s.Suffix) && len(name) > len(s.Suffix) {
		name = strings.TrimSuffix(name, s.Suffix)
	} else {
		name += DefaultOutputExt
	}
	name += s.RepackExt()

	if s.OutputDir != "" {
		name = filepath.Join(s.OutputDir, filepath.Base(name))
	}
	return name
}

// File unpacks a single file and returns its statistics. A partially written
// output file is removed on failure.
func (u *Unpacker) File(ctx context.Context, file string) (stats *Stats, err error) {
	llog := u.log.WithField("file", file)
	start := time.Now()

	in, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open input")
	}
	defer in.Close()

	var out io.Writer
	var outPath string
	if u.settings.Stdout {
		out = u.stdout
	} else {
		outPath = OutputPath(file, u.settings)
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if u.settings.Force {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		var f *os.File
		if f, err = os.OpenFile(outPath, flags, 0664); err != nil {
			return nil, errors.Wrap(err, "unable to create output")
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "unable to close output")
			}
			if err != nil {
				os.Remove(outPath)
			}
		}()
		out = f
	}

	llog.Debugf("unpacking to %q with chunk size %s", outPath, u.settings.ChunkSize)

	bw := bufio.NewWriter(out)
	rp, err := NewRepacker(bw, u.settings.Repack)
	if err != nil {
		return nil, err
	}

	stats, err = Stream(ctx, rp, in, int(u.settings.ChunkSize))
	if err != nil {
		llog.WithFields(logrus.Fields{
			"in":        stats.BytesIn,
			"out":       stats.BytesOut,
			"dict_bits": stats.DictBits,
		}).Warnf("unpack failed: %s", err)
		return stats, err
	}
	if err := rp.Close(); err != nil {
		return stats, errors.Wrap(err, "unable to finish repacking")
	}
	if err := bw.Flush(); err != nil {
		return stats, errors.Wrap(err, "unable to flush output")
	}

	if info, err := in.Stat(); err == nil && info.Size() > stats.BytesIn {
		llog.Warnf("ignored %d bytes of trailing data", info.Size()-stats.BytesIn)
	}

	llog.WithFields(logrus.Fields{
		"in":        stats.BytesIn,
		"out":       stats.BytesOut,
		"dict_bits": stats.DictBits,
		"chunks":    stats.Chunks,
		"elapsed":   time.Since(start),
	}).Info("unpacked")

	return stats, nil
}
