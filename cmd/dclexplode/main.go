// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command dclexplode decompresses files in the PKWARE DCL implode format.
//
// Example usage:
//	$ dclexplode --repack=zstd -o out/ archive/*.dcl
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"github.com/dsnet/implode/internal/config"
	"github.com/dsnet/implode/internal/unpack"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

// run executes the tool with the process arguments. Decompressed data is
// only ever written to stdout; diagnostics go to stderr.
func run(stdout, stderr io.Writer) int {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintln(stderr, "ERROR: ", err)
		return 1
	}

	logrus.SetOutput(stderr)

	if cfg.CLI.Debug {
		logrus.Info("debug mode enabled")
		logrus.SetLevel(logrus.DebugLevel)
	}

	displayConfig(cfg)

	u, err := unpack.New(cfg.Settings, stdout)
	if err != nil {
		logrus.Errorf("unable to create unpacker: %s", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := u.Run(ctx, cfg.CLI.Files); err != nil {
		logrus.Errorf("error during unpack: %s", err)
		return 1
	}
	return 0
}

func displayConfig(cfg *config.Config) {
	if cfg == nil || !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	logrus.Debugf("dclexplode %s settings:", config.VERSION)
	logrus.Debugf("  files: %v", cfg.CLI.Files)
	logrus.Debugf("  config file: %q", cfg.CLI.ConfigFile)
	logrus.Debugf("  [EXPLODE]\n%# v", pretty.Formatter(cfg.Settings))
}
