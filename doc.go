// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package gz supports the decompression of gzip files as defined in RFC
// 1952. The package handles the container: magic bytes, header fields, and
// the CRC-32 and size trailer. The DEFLATE bit stream itself is decoded by
// the flate subpackage.
//
// The decoder works on complete files held in memory and supports a single
// gzip member per file, because the compressed payload is delimited by the
// file end minus the eight trailer bytes.
package gz
