// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "errors"

// Errors reported for malformed DEFLATE streams. Decoding stops at the
// first of these conditions and returns no partial output.
var (
	// ErrHeader indicates a malformed block header, including stored
	// blocks whose length complement doesn't match and dynamic headers
	// with an HLIT value above 286.
	ErrHeader = errors.New("flate: malformed block header")

	// ErrCodeLengths indicates that the code lengths of a dynamic block
	// don't describe a usable prefix code set.
	ErrCodeLengths = errors.New("flate: malformed code lengths")

	// ErrSymbol indicates a decoded symbol that is reserved or has no
	// code assigned.
	ErrSymbol = errors.New("flate: malformed symbol")

	// ErrDistance indicates a match distance reaching back before the
	// start of the output.
	ErrDistance = errors.New("flate: invalid match distance")

	// ErrTruncated indicates that the input ended in the middle of the
	// stream.
	ErrTruncated = errors.New("flate: truncated input")

	// ErrBlockType indicates the reserved block type 3.
	ErrBlockType = errors.New("flate: reserved block type")
)
