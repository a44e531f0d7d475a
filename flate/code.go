// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// maxCodeLen is the maximum bit length of a Huffman code in DEFLATE.
const maxCodeLen = 15

// code represents a canonical Huffman code. The bit pattern is interpreted
// MSB-first: the most significant of the len bits is the first one on the
// wire.
type code struct {
	len   uint8
	value uint16
}

// valid reports whether the code has a usable length and no bits set above
// it.
func (c code) valid() bool {
	return 0 < c.len && c.len <= maxCodeLen && c.value>>c.len == 0
}

// String renders the bit pattern of the code in wire order.
func (c code) String() string {
	if c.len == 0 {
		return "<none>"
	}
	p := make([]byte, c.len)
	for i := range p {
		p[i] = '0' + byte(c.value>>uint(int(c.len)-1-i))&1
	}
	return string(p)
}

// canonicalCodes assigns canonical Huffman codes to a vector of code
// lengths following RFC 1951, section 3.2.2. Symbols with length zero take
// no part in the alphabet and keep the zero code value. An over-subscribed
// length vector is not detected here; it yields codes whose values overflow
// their lengths, which the prefix tree rejects when the codes are added.
func canonicalCodes(lengths []uint8) ([]code, error) {
	maxLen := uint8(0)
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen > maxCodeLen {
		return nil, ErrCodeLengths
	}

	var blCount [maxCodeLen + 1]int
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}

	var nextCode [maxCodeLen + 1]uint16
	v := uint16(0)
	for bits := uint8(1); bits <= maxLen; bits++ {
		v = (v + uint16(blCount[bits-1])) << 1
		nextCode[bits] = v
	}

	codes := make([]code, len(lengths))
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		codes[i] = code{len: l, value: nextCode[l]}
		nextCode[l]++
	}
	return codes, nil
}
