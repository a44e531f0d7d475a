// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

// bitWriter assembles test streams following the DEFLATE packing rules:
// integer fields enter LSB-first, codes enter MSB-first.
type bitWriter struct {
	p    []byte
	bits uint32
	n    int
}

func (w *bitWriter) writeBits(v uint32, n int) {
	w.bits |= v << uint(w.n)
	w.n += n
	for w.n >= 8 {
		w.p = append(w.p, byte(w.bits))
		w.bits >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) writeCode(c code) {
	for i := int(c.len) - 1; i >= 0; i-- {
		w.writeBits(uint32(c.value>>uint(i))&1, 1)
	}
}

// flush pads the last byte with zero bits and returns the stream.
func (w *bitWriter) flush() []byte {
	if w.n > 0 {
		w.p = append(w.p, byte(w.bits))
		w.bits = 0
		w.n = 0
	}
	return w.p
}

// consumedBits returns how many bits the reader has taken from its input.
func consumedBits(br *bitReader) int {
	return 8*br.pos - br.n
}

func mustAdd(t *testing.T, tr *prefixTree, symbol int, c code) {
	t.Helper()
	if err := tr.add(symbol, c); err != nil {
		t.Fatalf("add(%d, %v) error %s", symbol, c, err)
	}
}

func TestPrefixTreeTable(t *testing.T) {
	// first tree of the handwritten examples: B has the single-bit code
	codes := []struct {
		symbol int
		c      code
	}{
		{'A', code{2, 0b00}},
		{'B', code{1, 0b1}},
		{'C', code{3, 0b011}},
		{'D', code{3, 0b010}},
	}
	tr := new(prefixTree)
	tr.allocNode()
	for _, sc := range codes {
		mustAdd(t, tr, sc.symbol, sc.c)
	}
	tr.makeTable(4)

	// the table index carries the wire bits from bit 0 upwards
	tests := []struct {
		index int
		want  tableEntry
	}{
		{0b0000, tableEntry{2, 'A'}},
		{0b1100, tableEntry{2, 'A'}},
		{0b0001, tableEntry{1, 'B'}},
		{0b1111, tableEntry{1, 'B'}},
		{0b0110, tableEntry{3, 'C'}},
		{0b1110, tableEntry{3, 'C'}},
		{0b0010, tableEntry{3, 'D'}},
		{0b1010, tableEntry{3, 'D'}},
	}
	for _, tc := range tests {
		if e := tr.table[tc.index]; e != tc.want {
			t.Fatalf("table[%#06b] is {%d, %d}; want {%d, %d}",
				tc.index, e.n, e.target, tc.want.n,
				tc.want.target)
		}
	}

	for _, sc := range codes {
		c, ok := tr.codeOf(sc.symbol)
		if !ok {
			t.Fatalf("codeOf(%c) found no code", sc.symbol)
		}
		if c != sc.c {
			t.Fatalf("codeOf(%c) returned %v; want %v",
				sc.symbol, c, sc.c)
		}
	}
}

func TestPrefixTreeTableShorterThanCode(t *testing.T) {
	// with a 2-bit table the codes of C and D stop at an internal node
	tr := new(prefixTree)
	tr.allocNode()
	mustAdd(t, tr, 'A', code{2, 0b10})
	mustAdd(t, tr, 'B', code{1, 0b0})
	mustAdd(t, tr, 'C', code{3, 0b110})
	mustAdd(t, tr, 'D', code{3, 0b111})
	tr.makeTable(2)

	if e := tr.table[0b01]; e != (tableEntry{2, 'A'}) {
		t.Fatalf("table[0b01] is {%d, %d}; want {2, 'A'}", e.n, e.target)
	}
	if e := tr.table[0b00]; e != (tableEntry{1, 'B'}) {
		t.Fatalf("table[0b00] is {%d, %d}; want {1, 'B'}", e.n, e.target)
	}
	if e := tr.table[0b10]; e != (tableEntry{1, 'B'}) {
		t.Fatalf("table[0b10] is {%d, %d}; want {1, 'B'}", e.n, e.target)
	}
	e := tr.table[0b11]
	if e.n != 2 || e.target < maxSymbols || e.target == invalidEdge {
		t.Fatalf("table[0b11] is {%d, %d}; want an internal node"+
			" after 2 bits", e.n, e.target)
	}
	if v := *tr.edge(e.target, false); v != 'C' {
		t.Fatalf("left edge below table[0b11] is %d; want 'C'", v)
	}
	if v := *tr.edge(e.target, true); v != 'D' {
		t.Fatalf("right edge below table[0b11] is %d; want 'D'", v)
	}
}

func TestPrefixTreeCollisions(t *testing.T) {
	tr := new(prefixTree)
	tr.allocNode()
	mustAdd(t, tr, 1, code{2, 0b00})
	if err := tr.add(2, code{2, 0b00}); err != ErrCodeLengths {
		t.Fatalf("duplicate code returned error %v; want %v",
			err, ErrCodeLengths)
	}
	if err := tr.add(3, code{3, 0b001}); err != ErrCodeLengths {
		t.Fatalf("code below a leaf returned error %v; want %v",
			err, ErrCodeLengths)
	}
}

func TestTreeFromLengthsOversubscribed(t *testing.T) {
	// three single-bit codes cannot exist
	if _, err := treeFromLengths([]uint8{1, 1, 1}, 4); err != ErrCodeLengths {
		t.Fatalf("treeFromLengths returned error %v; want %v",
			err, ErrCodeLengths)
	}
}

func TestDecodeSymbolEmptyTree(t *testing.T) {
	tr, err := treeFromLengths([]uint8{0, 0, 0}, 6)
	if err != nil {
		t.Fatalf("treeFromLengths error %s", err)
	}
	br := newBitReader([]byte{0xff, 0xff})
	if _, err = tr.decodeSymbol(&br); err != ErrSymbol {
		t.Fatalf("decodeSymbol returned error %v; want %v",
			err, ErrSymbol)
	}
}

func TestDecodeSymbolIncompleteCode(t *testing.T) {
	// a lone 1-bit code leaves the other half of the tree unset
	tr, err := treeFromLengths([]uint8{1}, 5)
	if err != nil {
		t.Fatalf("treeFromLengths error %s", err)
	}
	br := newBitReader([]byte{0x00})
	s, err := tr.decodeSymbol(&br)
	if err != nil {
		t.Fatalf("decodeSymbol error %s", err)
	}
	if s != 0 {
		t.Fatalf("decodeSymbol returned %d; want %d", s, 0)
	}
	br = newBitReader([]byte{0xff})
	if _, err = tr.decodeSymbol(&br); err != ErrSymbol {
		t.Fatalf("decodeSymbol on the unset branch returned error %v;"+
			" want %v", err, ErrSymbol)
	}
}

// randomLengths produces the length vector of a complete prefix code with n
// symbols by splitting random leaves of an implicit tree.
func randomLengths(rnd *rand.Rand, n int) []uint8 {
	if n == 1 {
		return []uint8{1}
	}
	depths := []uint8{1, 1}
	for len(depths) < n {
		i := rnd.Intn(len(depths))
		if depths[i] >= maxCodeLen {
			continue
		}
		d := depths[i] + 1
		depths[i] = d
		depths = append(depths, d)
	}
	rnd.Shuffle(len(depths), func(i, j int) {
		depths[i], depths[j] = depths[j], depths[i]
	})
	return depths
}

func TestTreeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(41))
	for iter := 0; iter < 50; iter++ {
		n := 1 + rnd.Intn(maxSymbols-2)
		lengths := randomLengths(rnd, n)
		tableBits := 1 + rnd.Intn(9)
		codes, err := canonicalCodes(lengths)
		if err != nil {
			t.Fatalf("canonicalCodes error %s", err)
		}
		tr, err := newPrefixTree(codes, tableBits)
		if err != nil {
			t.Fatalf("newPrefixTree error %s", err)
		}
		for s, c := range codes {
			var w bitWriter
			w.writeCode(c)
			// arbitrary trailing bits must not disturb the code
			w.writeBits(0xa5, 8)
			w.writeBits(0xa5, 8)
			br := newBitReader(w.flush())
			got, err := tr.decodeSymbol(&br)
			if err != nil {
				t.Fatalf("decodeSymbol for %d (%v) error %s",
					s, c, err)
			}
			if got != s {
				t.Fatalf("decodeSymbol returned %d; want %d"+
					" (code %v, table bits %d)",
					got, s, c, tableBits)
			}
			if k := consumedBits(&br); k != int(c.len) {
				t.Fatalf("decodeSymbol consumed %d bits;"+
					" want %d (table bits %d)",
					k, c.len, tableBits)
			}
		}
	}
}

func TestTreeRoundTripWithGaps(t *testing.T) {
	// symbols with length zero stay out of the alphabet
	lengths := []uint8{0, 3, 0, 3, 2, 0, 2}
	tr, err := treeFromLengths(lengths, 2)
	if err != nil {
		t.Fatalf("treeFromLengths error %s", err)
	}
	codes, err := canonicalCodes(lengths)
	if err != nil {
		t.Fatalf("canonicalCodes error %s", err)
	}
	for s, c := range codes {
		if c.len == 0 {
			continue
		}
		var w bitWriter
		w.writeCode(c)
		w.writeBits(0xff, 8)
		br := newBitReader(w.flush())
		got, err := tr.decodeSymbol(&br)
		if err != nil {
			t.Fatalf("decodeSymbol for %d error %s", s, err)
		}
		if got != s {
			t.Fatalf("decodeSymbol returned %d; want %d", got, s)
		}
	}
}

func TestFixedTreeTablePath(t *testing.T) {
	// every fixed literal/length code of up to k bits decodes in a
	// single table step; the longer ones descend at most len-k further
	// bits
	codes, err := canonicalCodes(fixedLitLenLengths())
	if err != nil {
		t.Fatalf("canonicalCodes error %s", err)
	}
	for k := 1; k <= 9; k++ {
		tr, err := newPrefixTree(codes, k)
		if err != nil {
			t.Fatalf("newPrefixTree error %s", err)
		}
		for s, c := range codes {
			var w bitWriter
			w.writeCode(c)
			w.writeBits(0x5a5a, 16)
			br := newBitReader(w.flush())
			got, err := tr.decodeSymbol(&br)
			if err != nil {
				t.Fatalf("decodeSymbol for %d error %s",
					s, err)
			}
			if got != s {
				t.Fatalf("k=%d: decodeSymbol returned %d;"+
					" want %d", k, got, s)
			}
			if n := consumedBits(&br); n != int(c.len) {
				t.Fatalf("k=%d: symbol %d consumed %d bits;"+
					" want %d", k, s, n, c.len)
			}
		}
	}
}

func TestWriteGraph(t *testing.T) {
	tr, err := treeFromLengths([]uint8{2, 2, 2, 2}, 2)
	if err != nil {
		t.Fatalf("treeFromLengths error %s", err)
	}
	var buf bytes.Buffer
	if err = tr.writeGraph(&buf); err != nil {
		t.Fatalf("writeGraph error %s", err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, "digraph G {") {
		t.Fatalf("writeGraph output %q misses the digraph prologue", s)
	}
	for _, want := range []string{"s0", "s3", "n0 -> n1"} {
		if !strings.Contains(s, want) {
			t.Fatalf("writeGraph output %q misses %q", s, want)
		}
	}
}
