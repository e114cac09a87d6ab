// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"fmt"
	"io"

	"github.com/intel/fastzlib/compress/flate/internal/deflate"
)

// ErrorKind classifies failures the way zlib return codes do.
type ErrorKind int

const (
	// StreamError is an invalid parameter or a call out of sequence.
	StreamError ErrorKind = iota + 1
	// DataError is corrupted input; the stream cannot continue.
	DataError
	// BufferError means no progress was possible: more input or more
	// output space is required.
	BufferError
	// MemoryError is an allocation failure.
	MemoryError
	// NeedDictError means a zlib stream requires a preset dictionary.
	NeedDictError
)

func (k ErrorKind) String() string {
	switch k {
	case StreamError:
		return "stream error"
	case DataError:
		return "data error"
	case BufferError:
		return "buffer error"
	case MemoryError:
		return "insufficient memory"
	case NeedDictError:
		return "need dictionary"
	}
	return "unknown error"
}

// Error is returned by the compressor and the decompressor.
type Error struct {
	Kind ErrorKind
	Msg  string
	// Offset is the position in the compressed input where a DataError was
	// detected, -1 when unknown.
	Offset int64
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	s := "flate: " + e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Offset >= 0 {
		s += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	return s
}

// Is matches errors of the same kind. A target without a message matches
// every error of its kind, so both errors.Is(err, ErrData) and
// errors.Is(err, ErrInvalidDistance) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsChecksum reports whether the error is a failed integrity check rather
// than a malformed bit stream.
func (e *Error) IsChecksum() bool {
	switch e.Msg {
	case msgDataCheck, msgLengthCheck, msgHeaderCRC:
		return true
	}
	return false
}

const (
	msgDataCheck   = "incorrect data check"
	msgLengthCheck = "incorrect length check"
	msgHeaderCRC   = "header crc mismatch"
)

func kindError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Offset: -1}
}

var (
	ErrStream   = kindError(StreamError, "")
	ErrData     = kindError(DataError, "")
	ErrBuffer   = kindError(BufferError, "")
	ErrMemory   = kindError(MemoryError, "")
	ErrNeedDict = kindError(NeedDictError, "")

	ErrInvalidBlockType     = kindError(DataError, "invalid block type")
	ErrInvalidStoredLengths = kindError(DataError, "invalid stored block lengths")
	ErrTooManySymbols       = kindError(DataError, "too many length or distance symbols")
	ErrInvalidCodeLengths   = kindError(DataError, "invalid code lengths set")
	ErrInvalidRepeat        = kindError(DataError, "invalid bit length repeat")
	ErrMissingEndOfBlock    = kindError(DataError, "invalid code -- missing end-of-block")
	ErrInvalidLitLenSet     = kindError(DataError, "invalid literal/lengths set")
	ErrInvalidDistSet       = kindError(DataError, "invalid distances set")
	ErrInvalidLitLenCode    = kindError(DataError, "invalid literal/length code")
	ErrInvalidDistCode      = kindError(DataError, "invalid distance code")
	ErrInvalidDistance      = kindError(DataError, "invalid distance too far back")
	ErrHeaderCheck          = kindError(DataError, "incorrect header check")
	ErrUnknownMethod        = kindError(DataError, "unknown compression method")
	ErrWindowSize           = kindError(DataError, "invalid window size")
	ErrHeaderFlags          = kindError(DataError, "unknown header flags set")
	ErrHeaderCRC            = kindError(DataError, msgHeaderCRC)
	ErrDataCheck            = kindError(DataError, msgDataCheck)
	ErrLengthCheck          = kindError(DataError, msgLengthCheck)
	ErrIncorrectDictionary  = kindError(DataError, "incorrect dictionary")
	ErrNoFlushPoint         = kindError(DataError, "no flush point found")
)

// fromDeflate converts errors of the compression engine.
func fromDeflate(err error) error {
	switch {
	case err == nil || err == io.EOF:
		return err
	case errors.Is(err, deflate.ErrBuffer):
		return ErrBuffer
	case errors.Is(err, deflate.ErrStream):
		return ErrStream
	}
	// header validation
	return &Error{Kind: StreamError, Msg: err.Error(), Offset: -1, Err: err}
}
