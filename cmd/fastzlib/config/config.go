// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	EnvVarPrefix = "FASTZLIB"

	DefaultLevel      = -1
	DefaultWindowBits = 15
	DefaultMemLevel   = 8
	DefaultStrategy   = "default"
	DefaultFormat     = "zlib"
	DefaultChunkSize  = 16 << 10
	DefaultLogLevel   = "info"

	MinLevel      = -1
	MaxLevel      = 9
	MinWindowBits = 8
	MaxWindowBits = 15
	MinMemLevel   = 1
	MaxMemLevel   = 9
	MinChunkSize  = 1
	MaxChunkSize  = 64 << 20
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validStrategies = map[string]struct{}{
		"default":      {},
		"filtered":     {},
		"huffman-only": {},
		"rle":          {},
		"fixed":        {},
	}

	validFormats = map[string]struct{}{
		"zlib":    {},
		"gzip":    {},
		"gz":      {},
		"raw":     {},
		"deflate": {},
		"auto":    {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML

	// Codec is the TOML [codec] table with the command line flags applied.
	Codec *TOMLCodec
}

type TOML struct {
	Codec *TOMLCodec `toml:"codec"`
	Log   *TOMLLog   `toml:"log"`
}

type TOMLCodec struct {
	Level          *int   `toml:"level"`
	WindowBits     int    `toml:"window_bits"`
	MemLevel       int    `toml:"mem_level"`
	Strategy       string `toml:"strategy"`
	Format         string `toml:"format"`
	ChunkSize      int    `toml:"chunk_size"`
	DictionaryFile string `toml:"dictionary_file"`
}

type TOMLLog struct {
	Level string `toml:"level"`
}

// CodecFlags override the [codec] table. Zero values mean "not given".
type CodecFlags struct {
	Level      *int   `kong:"help='Compression level, -1 (default) to 9',short='l'"`
	WindowBits int    `kong:"help='Base two logarithm of the window size, 8 to 15',short='w'"`
	MemLevel   int    `kong:"help='Memory level of the compressor, 1 to 9'"`
	Strategy   string `kong:"help='Compression strategy: default, filtered, huffman-only, rle, fixed',short='s'"`
	Format     string `kong:"help='Framing: zlib, gzip, raw or auto (decompression only)',short='f'"`
	ChunkSize  int    `kong:"help='Output chunk size in bytes'"`
	Dictionary string `kong:"help='Preset dictionary file'"`
}

type CompressCmd struct {
	CodecFlags
	Input  string `kong:"arg,optional,help='Input file, stdin when omitted'"`
	Output string `kong:"help='Output file, stdout when omitted',short='o'"`
}

type DecompressCmd struct {
	CodecFlags
	Input  string `kong:"arg,optional,help='Input file, stdin when omitted'"`
	Output string `kong:"help='Output file, stdout when omitted',short='o'"`
}

type InspectCmd struct {
	CodecFlags
	Input string `kong:"arg,help='Compressed file'"`
}

type ChecksumCmd struct {
	Input string `kong:"arg,help='File to checksum'"`
	Jobs  int    `kong:"help='Number of parallel pieces, combined afterwards',short='j',default='1'"`
}

type BenchCmd struct {
	CodecFlags
	Input  string `kong:"arg,help='Sample file'"`
	Rounds int    `kong:"help='Rounds per engine and level',short='r',default='3'"`
	Levels []int  `kong:"help='Levels to measure',default='1,6,9'"`
}

type CLI struct {
	ConfigFile string `kong:"help='Path to the TOML config file',type='path',short='c'"`
	Debug      bool   `kong:"help='Enable debug output',short='d'"`
	Quiet      bool   `kong:"help='Only log warnings and errors',short='q'"`

	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	Compress   CompressCmd   `kong:"cmd,help='Compress a file'"`
	Decompress DecompressCmd `kong:"cmd,help='Decompress a file'"`
	Inspect    InspectCmd    `kong:"cmd,help='Describe the framing and header of a compressed file'"`
	Checksum   ChecksumCmd   `kong:"cmd,help='Print the Adler-32 and CRC-32 of a file'"`
	Bench      BenchCmd      `kong:"cmd,help='Compare with klauspost/compress on a sample file'"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

// NewConfig parses args (without the program name), reads the optional
// TOML file and merges both.
func NewConfig(args []string) (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	cfg := &Config{
		CLI:   cli,
		TOML:  tomlConfig,
		Codec: mergeCodec(tomlConfig.Codec, cli.codecFlags()),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Command returns the name of the selected subcommand.
func (c *CLI) Command() string {
	if c.Ctx == nil {
		return ""
	}
	for _, p := range c.Ctx.Path {
		if p.Command != nil {
			return p.Command.Name
		}
	}
	return ""
}

func (c *CLI) codecFlags() *CodecFlags {
	switch c.Command() {
	case "compress":
		return &c.Compress.CodecFlags
	case "decompress":
		return &c.Decompress.CodecFlags
	case "inspect":
		return &c.Inspect.CodecFlags
	case "bench":
		return &c.Bench.CodecFlags
	}
	return nil
}

// LogLevel resolves the logrus level from the flags and the [log] table.
func (c *Config) LogLevel() (logrus.Level, error) {
	switch {
	case c.CLI != nil && c.CLI.Debug:
		return logrus.DebugLevel, nil
	case c.CLI != nil && c.CLI.Quiet:
		return logrus.WarnLevel, nil
	}
	return logrus.ParseLevel(c.TOML.Log.Level)
}

func mergeCodec(t *TOMLCodec, f *CodecFlags) *TOMLCodec {
	merged := *t
	if f == nil {
		return &merged
	}
	if f.Level != nil {
		level := *f.Level
		merged.Level = &level
	}
	if f.WindowBits != 0 {
		merged.WindowBits = f.WindowBits
	}
	if f.MemLevel != 0 {
		merged.MemLevel = f.MemLevel
	}
	if f.Strategy != "" {
		merged.Strategy = f.Strategy
	}
	if f.Format != "" {
		merged.Format = f.Format
	}
	if f.ChunkSize != 0 {
		merged.ChunkSize = f.ChunkSize
	}
	if f.Dictionary != "" {
		merged.DictionaryFile = f.Dictionary
	}
	return &merged
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Codec == nil {
		t.Codec = &TOMLCodec{}
	}

	if t.Log == nil {
		t.Log = &TOMLLog{}
	}

	// Set defaults for [codec]
	if t.Codec.Level == nil {
		level := DefaultLevel
		t.Codec.Level = &level
	}

	if t.Codec.WindowBits == 0 {
		t.Codec.WindowBits = DefaultWindowBits
	}

	if t.Codec.MemLevel == 0 {
		t.Codec.MemLevel = DefaultMemLevel
	}

	if t.Codec.Strategy == "" {
		t.Codec.Strategy = DefaultStrategy
	}

	if t.Codec.Format == "" {
		t.Codec.Format = DefaultFormat
	}

	if t.Codec.ChunkSize == 0 {
		t.Codec.ChunkSize = DefaultChunkSize
	}

	// Set defaults for [log]
	if t.Log.Level == "" {
		t.Log.Level = DefaultLogLevel
	}

	return nil
}

func Validate(c *Config) error {
	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	if err := validateTOMLCodec(c.Codec); err != nil {
		return errors.Wrap(err, "error validating codec flags")
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [codec]
	if err := validateTOMLCodec(t.Codec); err != nil {
		return errors.Wrap(err, "codec error(s)")
	}

	// Validate [log]
	if err := validateTOMLLog(t.Log); err != nil {
		return errors.Wrap(err, "log error(s)")
	}

	return nil
}

func validateTOMLCodec(c *TOMLCodec) error {
	if c == nil {
		return errors.New("codec cannot be empty")
	}

	if c.Level == nil {
		return errors.New("codec.level cannot be empty")
	}

	if *c.Level < MinLevel || *c.Level > MaxLevel {
		return errors.Errorf("codec.level must be between %d and %d", MinLevel, MaxLevel)
	}

	if c.WindowBits < MinWindowBits || c.WindowBits > MaxWindowBits {
		return errors.Errorf("codec.window_bits must be between %d and %d", MinWindowBits, MaxWindowBits)
	}

	if c.MemLevel < MinMemLevel || c.MemLevel > MaxMemLevel {
		return errors.Errorf("codec.mem_level must be between %d and %d", MinMemLevel, MaxMemLevel)
	}

	if _, ok := validStrategies[c.Strategy]; !ok {
		return errors.Errorf("codec.strategy %s is invalid", c.Strategy)
	}

	if _, ok := validFormats[c.Format]; !ok {
		return errors.Errorf("codec.format %s is invalid", c.Format)
	}

	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return errors.Errorf("codec.chunk_size must be between %d and %d", MinChunkSize, MaxChunkSize)
	}

	if c.DictionaryFile != "" {
		info, err := os.Stat(c.DictionaryFile)
		if os.IsNotExist(err) {
			return errors.Errorf("codec.dictionary_file %s does not exist", c.DictionaryFile)
		}

		if err != nil {
			return errors.Wrap(err, "error checking codec.dictionary_file")
		}

		if info.IsDir() {
			return errors.Errorf("codec.dictionary_file %s is a directory", c.DictionaryFile)
		}
	}

	return nil
}

func validateTOMLLog(l *TOMLLog) error {
	if l == nil {
		return errors.New("log cannot be empty")
	}

	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return errors.Wrap(err, "log.level is invalid")
	}

	return nil
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("fastzlib"),
		kong.Description("DEFLATE, zlib and gzip compression tool"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
	if err != nil {
		return nil, errors.Wrap(err, "error building CLI parser")
	}

	cli.Ctx, err = parser.Parse(args)
	if err != nil {
		return nil, err
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

// readTOML loads file. An empty name yields the defaults.
func readTOML(file string) (*TOML, error) {
	tomlConfig := &TOML{}

	if file != "" {
		// Attempt to load file
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "error reading file")
		}

		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
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

	if cli.Debug && cli.Quiet {
		return errors.New("--debug and --quiet are mutually exclusive")
	}

	if cli.Command() == "checksum" && cli.Checksum.Jobs < 1 {
		return errors.New("--jobs must be at least 1")
	}

	if cli.Command() == "bench" && cli.Bench.Rounds < 1 {
		return errors.New("--rounds must be at least 1")
	}

	return nil
}
