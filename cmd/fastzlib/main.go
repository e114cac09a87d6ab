// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Command fastzlib compresses, decompresses and inspects DEFLATE, zlib and
// gzip data.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib"
	"github.com/intel/fastzlib/cmd/fastzlib/config"
)

func main() {
	cfg, err := config.NewConfig(os.Args[1:])
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	displayConfig(cfg)

	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		logrus.Errorf("%s failed: %s", cfg.CLI.Command(), err)
		os.Exit(1)
	}
}

func displayConfig(cfg *config.Config) {
	logrus.Debug("fastzlib settings:")
	logrus.Debugf("  version: %s (zlib %s)", config.VERSION, fastzlib.Version)
	logrus.Debugf("  command: %s", cfg.CLI.Command())
	logrus.Debugf("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Debugf("  codec.level: %d", *cfg.Codec.Level)
	logrus.Debugf("  codec.window_bits: %d", cfg.Codec.WindowBits)
	logrus.Debugf("  codec.mem_level: %d", cfg.Codec.MemLevel)
	logrus.Debugf("  codec.strategy: %s", cfg.Codec.Strategy)
	logrus.Debugf("  codec.format: %s", cfg.Codec.Format)
	logrus.Debugf("  codec.chunk_size: %d", cfg.Codec.ChunkSize)
	logrus.Debugf("  codec.dictionary_file: %s", cfg.Codec.DictionaryFile)
	logrus.Debugf("  log.level: %s", cfg.TOML.Log.Level)
}
