// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// input is the whole content of a file or of stdin. Regular files are
// mapped read-only.
type input struct {
	name string
	data []byte
	file *os.File
	mmap mmap.MMap
}

func openInput(name string, stdin io.Reader) (*input, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "error reading stdin")
		}
		return &input{name: "-", data: data}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "error opening input")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "error reading input info")
	}

	if info.IsDir() {
		f.Close()
		return nil, errors.Errorf("input %s is a directory", name)
	}

	in := &input{name: name, file: f}
	if info.Size() == 0 {
		// empty files cannot be mapped
		return in, nil
	}

	in.mmap, err = mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "error mapping input")
	}
	in.data = in.mmap

	return in, nil
}

func (in *input) Close() error {
	var err error
	if in.mmap != nil {
		err = in.mmap.Unmap()
	}
	if in.file != nil {
		if cerr := in.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func openOutput(name string, stdout io.Writer) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{stdout}, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "error creating output")
	}

	return f, nil
}

func readDictionary(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}

	dict, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "error reading dictionary")
	}

	return dict, nil
}
