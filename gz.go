// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package gz

import (
	"errors"
	"hash/crc32"
	"io"
	"time"

	"github.com/ulikunitz/gz/flate"
)

// Header magic bytes and the compression method of the gzip format. Only
// method 8, DEFLATE, has ever been defined.
var headerMagic = []byte{0x1f, 0x8b}

const methodDeflate = 8

// Flag bits of the FLG header byte (RFC 1952, section 2.3.1).
const (
	fText = 1 << iota
	fHCRC
	fExtra
	fName
	fComment
	fMask = 1<<5 - 1
)

// trailerLen is the size of the CRC-32 and ISIZE fields terminating a
// member.
const trailerLen = 8

// Errors reported for malformed gzip files.
var (
	// ErrHeader indicates a file that doesn't start with a valid gzip
	// member header.
	ErrHeader = errors.New("gz: malformed header")

	// ErrChecksum indicates that the CRC-32 of the decompressed data
	// doesn't match the trailer field.
	ErrChecksum = errors.New("gz: invalid checksum")

	// ErrSize indicates that the length of the decompressed data doesn't
	// match the ISIZE trailer field.
	ErrSize = errors.New("gz: invalid uncompressed size")
)

// Header collects the metadata fields of a gzip member header. Name and
// Comment are stored as Latin-1 in the file and passed through verbatim.
type Header struct {
	Name    string
	Comment string
	Extra   []byte
	ModTime time.Time
	OS      byte
	Text    bool
}

// parseHeader reads the member header at the start of data and returns the
// number of bytes it occupies.
func parseHeader(data []byte) (h Header, n int, err error) {
	const fixedLen = 10
	if len(data) < fixedLen {
		return h, 0, ErrHeader
	}
	if data[0] != headerMagic[0] || data[1] != headerMagic[1] {
		return h, 0, ErrHeader
	}
	if data[2] != methodDeflate {
		return h, 0, ErrHeader
	}
	flags := data[3]
	if flags&^byte(fMask) != 0 {
		return h, 0, ErrHeader
	}
	if mtime := getLE32(data[4:8]); mtime != 0 {
		h.ModTime = time.Unix(int64(mtime), 0)
	}
	// data[8] is XFL and only advisory
	h.OS = data[9]
	h.Text = flags&fText != 0
	n = fixedLen
	if flags&fExtra != 0 {
		if len(data) < n+2 {
			return h, 0, ErrHeader
		}
		k := int(getLE16(data[n:]))
		n += 2
		if len(data) < n+k {
			return h, 0, ErrHeader
		}
		h.Extra = data[n : n+k : n+k]
		n += k
	}
	if flags&fName != 0 {
		if h.Name, n, err = headerString(data, n); err != nil {
			return h, 0, err
		}
	}
	if flags&fComment != 0 {
		if h.Comment, n, err = headerString(data, n); err != nil {
			return h, 0, err
		}
	}
	if flags&fHCRC != 0 {
		if len(data) < n+2 {
			return h, 0, ErrHeader
		}
		crc := uint16(crc32.ChecksumIEEE(data[:n]))
		if crc != getLE16(data[n:]) {
			return h, 0, ErrHeader
		}
		n += 2
	}
	return h, n, nil
}

// headerString reads a zero-terminated header string starting at off and
// returns the offset behind the terminator.
func headerString(data []byte, off int) (s string, n int, err error) {
	for i := off; i < len(data); i++ {
		if data[i] == 0 {
			return string(data[off:i]), i + 1, nil
		}
	}
	return "", 0, ErrHeader
}

// Decompress decodes the gzip file stored in data and returns the
// uncompressed bytes. The output is verified against the CRC-32 and ISIZE
// fields of the trailer. Errors from the DEFLATE layer are passed through
// unchanged.
func Decompress(data []byte) ([]byte, error) {
	out, _, err := decompress(data)
	return out, err
}

func decompress(data []byte) (out []byte, h Header, err error) {
	h, n, err := parseHeader(data)
	if err != nil {
		return nil, h, err
	}
	if len(data) < n+trailerLen {
		return nil, h, flate.ErrTruncated
	}
	out, err = flate.Decode(data[n : len(data)-trailerLen])
	if err != nil {
		return nil, h, err
	}
	trailer := data[len(data)-trailerLen:]
	if crc32.ChecksumIEEE(out) != getLE32(trailer[:4]) {
		return nil, h, ErrChecksum
	}
	if uint32(len(out)) != getLE32(trailer[4:]) {
		return nil, h, ErrSize
	}
	return out, h, nil
}

// Reader reads a gzip file. The file is decompressed and verified eagerly
// when the reader is created; Read serves from the decoded buffer. The
// Header fields are valid right after NewReader returns.
type Reader struct {
	Header
	data []byte
	pos  int
}

// NewReader decompresses the gzip file provided by z. The reader z is read
// to its end.
func NewReader(z io.Reader) (r *Reader, err error) {
	if z == nil {
		return nil, errors.New("gz: reader must be not nil")
	}
	data, err := io.ReadAll(z)
	if err != nil {
		return nil, err
	}
	out, h, err := decompress(data)
	if err != nil {
		return nil, err
	}
	return &Reader{Header: h, data: out}, nil
}

// Read provides the decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
