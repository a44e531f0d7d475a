// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package flate implements a decoder for the DEFLATE compressed data format
// described in RFC 1951. The decoder works on a complete byte slice and
// produces the uncompressed data as a single byte slice. The gzip file
// format is handled by the parent package.
package flate
