// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// blockType describes the two-bit type field of a block header.
type blockType byte

const (
	blockStored blockType = iota
	blockFixed
	blockDynamic
	blockReserved
)

// String represents the block type as string.
func (bt blockType) String() string {
	switch bt {
	case blockStored:
		return "stored"
	case blockFixed:
		return "fixed Huffman"
	case blockDynamic:
		return "dynamic Huffman"
	}
	return "reserved"
}

// Symbol ranges of the literal/length alphabet and the match limits of the
// format.
const (
	endOfBlock  = 256
	lenCodeMin  = 257
	lenCodeMax  = 285
	maxMatchLen = 258
)

// lengthCodes maps the length codes 257-285 to their base length and extra
// bit count (RFC 1951, section 3.2.5). Code 285 is the fixed value 258.
var lengthCodes = [29]struct {
	base  uint16
	extra uint8
}{
	{3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0}, {8, 0}, {9, 0}, {10, 0},
	{11, 1}, {13, 1}, {15, 1}, {17, 1},
	{19, 2}, {23, 2}, {27, 2}, {31, 2},
	{35, 3}, {43, 3}, {51, 3}, {59, 3},
	{67, 4}, {83, 4}, {99, 4}, {115, 4},
	{131, 5}, {163, 5}, {195, 5}, {227, 5},
	{258, 0},
}

// distCodes maps the distance codes 0-29 to their base distance and extra
// bit count. The codes 30 and 31 are reserved.
var distCodes = [30]struct {
	base  uint16
	extra uint8
}{
	{1, 0}, {2, 0}, {3, 0}, {4, 0},
	{5, 1}, {7, 1}, {9, 2}, {13, 2},
	{17, 3}, {25, 3}, {33, 4}, {49, 4},
	{65, 5}, {97, 5}, {129, 6}, {193, 6},
	{257, 7}, {385, 7}, {513, 8}, {769, 8},
	{1025, 9}, {1537, 9}, {2049, 10}, {3073, 10},
	{4097, 11}, {6145, 11}, {8193, 12}, {12289, 12},
	{16385, 13}, {24577, 13},
}

// clcOrder gives the positions of the code-length-code lengths in the
// dynamic block header (RFC 1951, section 3.2.7).
var clcOrder = [19]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// decoder decodes a sequence of DEFLATE blocks into buf. The whole output
// is retained, so every match distance up to the 32 KiB window remains
// addressable.
type decoder struct {
	br  bitReader
	buf []byte
}

// Decode interprets data as a DEFLATE bit stream and returns the
// uncompressed bytes. Container framing like the gzip header and trailer
// must be stripped before the call.
func Decode(data []byte) ([]byte, error) {
	d := decoder{br: newBitReader(data)}
	if err := d.decode(); err != nil {
		return nil, err
	}
	return d.buf, nil
}

func (d *decoder) decode() error {
	for {
		last, err := d.br.getBit()
		if err != nil {
			return err
		}
		t, err := d.br.getBits(2)
		if err != nil {
			return err
		}
		switch blockType(t) {
		case blockStored:
			err = d.storedBlock()
		case blockFixed:
			err = d.huffmanBlock(fixedLitLenTree, fixedDistTree)
		case blockDynamic:
			var litLen, dist *prefixTree
			litLen, dist, err = d.readTrees()
			if err == nil {
				err = d.huffmanBlock(litLen, dist)
			}
		default:
			err = ErrBlockType
		}
		if err != nil {
			return err
		}
		if last != 0 {
			return nil
		}
	}
}

// grow ensures space for n more output bytes. The capacity doubles from a
// 32 KiB floor, so the amortized cost per output byte stays constant.
func (d *decoder) grow(n int) {
	if cap(d.buf)-len(d.buf) >= n {
		return
	}
	c := cap(d.buf)
	if c < 32<<10 {
		c = 32 << 10
	}
	for c < len(d.buf)+n {
		c *= 2
	}
	p := make([]byte, len(d.buf), c)
	copy(p, d.buf)
	d.buf = p
}

func (d *decoder) writeByte(b byte) {
	d.grow(maxMatchLen)
	d.buf = append(d.buf, b)
}

// writeMatch copies length bytes starting distance bytes back from the end
// of the output. For distance < length the copy proceeds byte by byte: the
// source overlaps bytes the copy itself has just written, which the format
// uses for run-length extension. The space is reserved up front, so the
// buffer never moves mid-copy.
func (d *decoder) writeMatch(distance, length int) error {
	if distance > len(d.buf) {
		return ErrDistance
	}
	d.grow(length)
	i := len(d.buf) - distance
	if distance >= length {
		d.buf = append(d.buf, d.buf[i:i+length]...)
		return nil
	}
	for ; length > 0; length-- {
		d.buf = append(d.buf, d.buf[i])
		i++
	}
	return nil
}

// storedBlock copies a raw block. The LEN and NLEN fields start at the next
// byte boundary (RFC 1951, section 3.2.4).
func (d *decoder) storedBlock() error {
	d.br.alignByte()
	n, err := d.br.getBits(16)
	if err != nil {
		return err
	}
	nlen, err := d.br.getBits(16)
	if err != nil {
		return err
	}
	if nlen != ^n&0xffff {
		return ErrHeader
	}
	k := int(n)
	d.grow(k)
	p := d.buf[len(d.buf) : len(d.buf)+k]
	if err = d.br.readBytes(p); err != nil {
		return err
	}
	d.buf = d.buf[:len(d.buf)+k]
	return nil
}

// readTrees parses the header of a dynamic block: the code length code and
// the run-length encoded literal/length and distance code lengths.
func (d *decoder) readTrees() (litLen, dist *prefixTree, err error) {
	v, err := d.br.getBits(5)
	if err != nil {
		return nil, nil, err
	}
	hlit := 257 + int(v)
	if hlit > 286 {
		return nil, nil, ErrHeader
	}
	v, err = d.br.getBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist := 1 + int(v)
	v, err = d.br.getBits(4)
	if err != nil {
		return nil, nil, err
	}
	hclen := 4 + int(v)

	var clcLengths [19]uint8
	for i := 0; i < hclen; i++ {
		if v, err = d.br.getBits(3); err != nil {
			return nil, nil, err
		}
		clcLengths[clcOrder[i]] = uint8(v)
	}
	clc, err := treeFromLengths(clcLengths[:], 7)
	if err != nil {
		return nil, nil, err
	}

	lengths := make([]uint8, hlit+hdist)
	for i := 0; i < len(lengths); {
		s, err := clc.decodeSymbol(&d.br)
		if err != nil {
			return nil, nil, err
		}
		l, count := uint8(0), 1
		switch {
		case s <= 15:
			l = uint8(s)
		case s == 16:
			// repeats the previous length, so there must be one
			if i == 0 {
				return nil, nil, ErrCodeLengths
			}
			l = lengths[i-1]
			if v, err = d.br.getBits(2); err != nil {
				return nil, nil, err
			}
			count = 3 + int(v)
		case s == 17:
			if v, err = d.br.getBits(3); err != nil {
				return nil, nil, err
			}
			count = 3 + int(v)
		case s == 18:
			if v, err = d.br.getBits(7); err != nil {
				return nil, nil, err
			}
			count = 11 + int(v)
		default:
			return nil, nil, ErrCodeLengths
		}
		if i+count > len(lengths) {
			return nil, nil, ErrCodeLengths
		}
		for ; count > 0; count-- {
			lengths[i] = l
			i++
		}
	}

	if litLen, err = treeFromLengths(lengths[:hlit], 9); err != nil {
		return nil, nil, err
	}
	if dist, err = treeFromLengths(lengths[hlit:], 6); err != nil {
		return nil, nil, err
	}
	return litLen, dist, nil
}

// huffmanBlock runs the literal/match loop until the end-of-block symbol.
func (d *decoder) huffmanBlock(litLen, dist *prefixTree) error {
	for {
		s, err := litLen.decodeSymbol(&d.br)
		if err != nil {
			return err
		}
		switch {
		case s < endOfBlock:
			d.writeByte(byte(s))
		case s == endOfBlock:
			return nil
		case s <= lenCodeMax:
			length, err := d.matchLength(s)
			if err != nil {
				return err
			}
			distance, err := d.matchDistance(dist)
			if err != nil {
				return err
			}
			if err = d.writeMatch(distance, length); err != nil {
				return err
			}
		default:
			// 286 and 287 have fixed codes but are reserved
			return ErrSymbol
		}
	}
}

func (d *decoder) matchLength(s int) (length int, err error) {
	c := lengthCodes[s-lenCodeMin]
	length = int(c.base)
	if c.extra > 0 {
		v, err := d.br.getBits(int(c.extra))
		if err != nil {
			return 0, err
		}
		length += int(v)
	}
	return length, nil
}

func (d *decoder) matchDistance(dist *prefixTree) (distance int, err error) {
	s, err := dist.decodeSymbol(&d.br)
	if err != nil {
		return 0, err
	}
	if s >= len(distCodes) {
		return 0, ErrSymbol
	}
	c := distCodes[s]
	distance = int(c.base)
	if c.extra > 0 {
		v, err := d.br.getBits(int(c.extra))
		if err != nil {
			return 0, err
		}
		distance += int(v)
	}
	return distance, nil
}
