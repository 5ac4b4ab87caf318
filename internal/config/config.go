// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package config gathers the settings of the dclexplode tool from command-line
// flags, environment variables, a .env file and an optional TOML file.
package config

import (
	"math"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dsnet/golib/unitconv"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvVarPrefix = "DCLEXPLODE"

	DefaultChunkSize = Size(64 << 10)
	DefaultSuffix    = ".dcl"
	DefaultRepack    = RepackNone

	MinChunkSize = Size(1)
	MaxChunkSize = Size(1 << 30)

	RepackNone = "none"
	RepackGzip = "gzip"
	RepackZstd = "zstd"
	RepackXZ   = "xz"
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	// Output file extension for each repack format.
	repackExts = map[string]string{
		RepackNone: "",
		RepackGzip: ".gz",
		RepackZstd: ".zst",
		RepackXZ:   ".xz",
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML

	// Settings holds the effective options, with flags taking precedence
	// over the TOML file.
	Settings *Settings
}

type TOML struct {
	Explode *TOMLExplode `toml:"explode"`
}

type TOMLExplode struct {
	ChunkSize Size   `toml:"chunk_size"`
	Suffix    string `toml:"suffix"`
	Repack    string `toml:"repack"`
	OutputDir string `toml:"output_dir"`
	Force     bool   `toml:"force"`
}

type CLI struct {
	Files      []string `kong:"arg,name='file',help='DCL imploded files to decompress'"`
	ConfigFile string   `kong:"name='config',help='Path to an optional TOML config file',type='path',short='c'"`
	OutputDir  string   `kong:"help='Directory for the outputs (default: next to each input)',type='path',short='o'"`
	Stdout     bool     `kong:"help='Write the decompressed data to stdout'"`
	Force      bool     `kong:"help='Overwrite existing outputs',short='f'"`
	Repack     string   `kong:"help='Recompress the output: none, gzip, zstd or xz'"`
	ChunkSize  string   `kong:"help='Size of the input chunks, such as 4Ki or 64Ki'"`
	Suffix     string   `kong:"help='Suffix removed from input names to name the outputs'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

// Settings are the options used to unpack each file.
type Settings struct {
	ChunkSize Size
	Suffix    string
	Repack    string
	OutputDir string
	Force     bool
	Stdout    bool
}

// RepackExt returns the file extension added to outputs for the repack format.
func (s *Settings) RepackExt() string {
	return repackExts[s.Repack]
}

// NewConfig reads the configuration from the process arguments and
// environment. Invalid flags terminate the process with a usage message.
func NewConfig() (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(os.Args[1:], kong.UsageOnError())
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}
	return newConfig(cli)
}

func newConfig(cli *CLI) (*Config, error) {
	tomlConfig := &TOML{}
	if cli.ConfigFile != "" {
		var err error
		if tomlConfig, err = readTOML(cli.ConfigFile); err != nil {
			return nil, errors.Wrap(err, "error reading config file")
		}
	} else if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	settings, err := mergeSettings(cli, tomlConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error merging settings")
	}

	cfg := &Config{
		CLI:      cli,
		TOML:     tomlConfig,
		Settings: settings,
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Explode == nil {
		t.Explode = &TOMLExplode{}
	}

	// Set defaults for [explode]
	if t.Explode.ChunkSize == 0 {
		t.Explode.ChunkSize = DefaultChunkSize
	}

	if t.Explode.Suffix == "" {
		t.Explode.Suffix = DefaultSuffix
	}

	if t.Explode.Repack == "" {
		t.Explode.Repack = DefaultRepack
	}

	return nil
}

// mergeSettings overlays the flags that were set onto the TOML values.
func mergeSettings(cli *CLI, t *TOML) (*Settings, error) {
	if cli == nil || t == nil || t.Explode == nil {
		return nil, errors.New("config cannot be nil")
	}

	s := &Settings{
		ChunkSize: t.Explode.ChunkSize,
		Suffix:    t.Explode.Suffix,
		Repack:    t.Explode.Repack,
		OutputDir: t.Explode.OutputDir,
		Force:     t.Explode.Force || cli.Force,
		Stdout:    cli.Stdout,
	}

	if cli.ChunkSize != "" {
		n, err := ParseSize(cli.ChunkSize)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --chunk-size")
		}
		s.ChunkSize = n
	}

	if cli.Suffix != "" {
		s.Suffix = cli.Suffix
	}

	if cli.Repack != "" {
		s.Repack = strings.ToLower(cli.Repack)
	}

	if cli.OutputDir != "" {
		s.OutputDir = cli.OutputDir
	}

	return s, nil
}

func Validate(c *Config) error {
	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	if err := validateSettings(c.Settings, len(c.CLI.Files)); err != nil {
		return errors.Wrap(err, "error validating settings")
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [explode]
	if err := validateTOMLExplode(t.Explode); err != nil {
		return errors.Wrap(err, "explode error(s)")
	}

	return nil
}

func validateTOMLExplode(e *TOMLExplode) error {
	if e == nil {
		return errors.New("explode cannot be empty")
	}

	if e.ChunkSize < MinChunkSize || e.ChunkSize > MaxChunkSize {
		return errors.Errorf("explode.chunk_size must be between %s and %s", MinChunkSize, MaxChunkSize)
	}

	if _, ok := repackExts[e.Repack]; !ok {
		return errors.Errorf("explode.repack %s is invalid", e.Repack)
	}

	return nil
}

func validateSettings(s *Settings, numFiles int) error {
	if s == nil {
		return errors.New("settings cannot be nil")
	}

	if s.ChunkSize < MinChunkSize || s.ChunkSize > MaxChunkSize {
		return errors.Errorf("chunk size must be between %s and %s", MinChunkSize, MaxChunkSize)
	}

	if _, ok := repackExts[s.Repack]; !ok {
		return errors.Errorf("repack format %s is invalid", s.Repack)
	}

	if s.Stdout && numFiles != 1 {
		return errors.New("--stdout requires exactly one input file")
	}

	if s.Stdout && s.OutputDir != "" {
		return errors.New("--stdout and an output directory are mutually exclusive")
	}

	if s.OutputDir != "" {
		info, err := os.Stat(s.OutputDir)
		if err != nil {
			return errors.Wrap(err, "unable to stat output directory")
		}

		if !info.IsDir() {
			return errors.Errorf("output directory %s is not a directory", s.OutputDir)
		}
	}

	return nil
}

func readCLIArgs(args []string, opts ...kong.Option) (*CLI, error) {
	cli := &CLI{}
	opts = append([]kong.Option{
		kong.Name("dclexplode"),
		kong.Description("Decompressor for PKWARE DCL imploded files"),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		},
	}, opts...)

	parser, err := kong.New(cli, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "error building CLI parser")
	}

	if cli.Ctx, err = parser.Parse(args); err != nil {
		return nil, errors.Wrap(err, "error parsing args")
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

func readTOML(file string) (*TOML, error) {
	// Attempt to load file
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	tomlConfig := &TOML{}

	if err := toml.Unmarshal(data, tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error parsing TOML config")
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	// Validate loaded config
	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if len(cli.Files) == 0 {
		return errors.New("at least one input file is required")
	}

	return nil
}

// Size is a byte count written with an optional SI or IEC prefix, such as
// "64Ki" or "1M".
type Size int

// ParseSize parses a byte count with an optional unit prefix.
func ParseSize(s string) (Size, error) {
	f, err := unitconv.ParsePrefix(strings.TrimSuffix(s, "B"), unitconv.AutoParse)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, errors.Errorf("size %q is not a whole number of bytes", s)
	}
	return Size(f), nil
}

func (s Size) String() string {
	return unitconv.FormatPrefix(float64(s), unitconv.IEC, -1)
}

func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(text []byte) error {
	n, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*s = n
	return nil
}
