// SPDX-FileCopyrightText: © 2022 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"fmt"
	"io"
)

// The prefix tree mixes leaf symbols and internal node references in the
// same edge field: values below maxSymbols are symbols, values from
// maxSymbols on refer to the internal node with index value-maxSymbols.
// invalidEdge marks edges that construction has not assigned.
const (
	maxSymbols  = 288
	maxNodes    = maxSymbols
	invalidEdge = maxSymbols + maxNodes
)

// node holds the two edges of an internal tree node.
type node struct {
	left, right uint16
}

// tableEntry is one slot of the bit-indexed lookup table. n counts the bits
// consumed to reach target; target is a symbol or an encoded node
// reference, following the same convention as the node edges.
type tableEntry struct {
	n      uint8
	target uint16
}

// prefixTree decodes prefix codes. The binary tree supports bit-by-bit
// descent; the lookup table indexed by the next tableBits stream bits
// short-circuits the common case of one memory read per symbol.
type prefixTree struct {
	numNodes  int
	nodes     [maxNodes]node
	tableBits int
	table     []tableEntry
}

// newPrefixTree builds the decoder for the given code assignment. Symbols
// without a code are skipped.
func newPrefixTree(codes []code, tableBits int) (*prefixTree, error) {
	if len(codes) > maxSymbols {
		panic("newPrefixTree: too many symbols")
	}
	t := new(prefixTree)
	t.allocNode()
	for s, c := range codes {
		if c.len == 0 {
			continue
		}
		if err := t.add(s, c); err != nil {
			return nil, err
		}
	}
	t.makeTable(tableBits)
	return t, nil
}

// treeFromLengths combines the canonical code construction with the tree
// build.
func treeFromLengths(lengths []uint8, tableBits int) (*prefixTree, error) {
	codes, err := canonicalCodes(lengths)
	if err != nil {
		return nil, err
	}
	return newPrefixTree(codes, tableBits)
}

// allocNode appends a node with unset edges and returns its encoded edge
// value.
func (t *prefixTree) allocNode() uint16 {
	if t.numNodes >= maxNodes {
		panic("prefixTree: node array exhausted")
	}
	t.nodes[t.numNodes] = node{left: invalidEdge, right: invalidEdge}
	t.numNodes++
	return uint16(t.numNodes-1) + maxSymbols
}

// edge returns a pointer to the selected edge of the node referenced by the
// encoded value v.
func (t *prefixTree) edge(v uint16, right bool) *uint16 {
	n := &t.nodes[v-maxSymbols]
	if right {
		return &n.right
	}
	return &n.left
}

// add inserts the symbol under its code, following the code bits MSB-first
// and allocating internal nodes on the way. Overwriting an occupied edge or
// descending through a leaf reports malformed code lengths.
func (t *prefixTree) add(symbol int, c code) error {
	if !(0 <= symbol && symbol < maxSymbols) {
		panic("prefixTree: symbol out of range")
	}
	if !c.valid() {
		return ErrCodeLengths
	}
	v := uint16(maxSymbols)
	for i := int(c.len) - 1; i > 0; i-- {
		e := t.edge(v, c.value>>uint(i)&1 != 0)
		if *e == invalidEdge {
			*e = t.allocNode()
		} else if *e < maxSymbols {
			return ErrCodeLengths
		}
		v = *e
	}
	e := t.edge(v, c.value&1 != 0)
	if *e != invalidEdge {
		return ErrCodeLengths
	}
	*e = uint16(symbol)
	return nil
}

// makeTable builds the lookup table with 2^bits entries. Each index is the
// LSB-first integer the bit reader yields for the upcoming bits, which
// reverses the MSB-first wire order of the codes: slot i describes the code
// whose wire bits are i's bits read from bit 0 upwards.
func (t *prefixTree) makeTable(bits int) {
	if !(1 <= bits && bits <= 9) {
		panic("makeTable: bits out of range")
	}
	t.tableBits = bits
	t.table = make([]tableEntry, 1<<uint(bits))
	for i := range t.table {
		e := tableEntry{target: maxSymbols}
		v := i
		for int(e.n) < bits && e.target >= maxSymbols &&
			e.target != invalidEdge {
			e.n++
			e.target = *t.edge(e.target, v&1 != 0)
			v >>= 1
		}
		t.table[i] = e
	}
}

// decodeSymbol reads the next symbol from the bit reader. The lookup table
// serves codes of up to tableBits bits in one step when enough input may be
// left; longer codes and the tail of the input fall back to bit-by-bit
// descent. Reaching an unset edge reports a malformed symbol.
func (t *prefixTree) decodeSymbol(br *bitReader) (symbol int, err error) {
	v := uint16(maxSymbols)
	if br.maxPeekBits() >= t.tableBits {
		if err = br.ensureBits(t.tableBits); err != nil {
			return 0, err
		}
		e := t.table[br.peekBits(t.tableBits)]
		br.consumeBits(int(e.n))
		v = e.target
	}
	for v >= maxSymbols {
		if v == invalidEdge {
			return 0, ErrSymbol
		}
		bit, err := br.getBit()
		if err != nil {
			return 0, err
		}
		v = *t.edge(v, bit != 0)
	}
	return int(v), nil
}

// codeOf returns the code assigned to the symbol, if any. The search walks
// the whole tree; it serves diagnostics and tests, not the decode path.
func (t *prefixTree) codeOf(symbol int) (code, bool) {
	return t.findCode(uint16(symbol), 0, code{})
}

func (t *prefixTree) findCode(symbol uint16, index int, prefix code) (code, bool) {
	n := t.nodes[index]
	for _, e := range [2]struct {
		v   uint16
		bit uint16
	}{{n.left, 0}, {n.right, 1}} {
		c := code{len: prefix.len + 1, value: prefix.value<<1 | e.bit}
		if e.v == symbol {
			return c, true
		}
		if e.v >= maxSymbols && e.v != invalidEdge {
			if r, ok := t.findCode(symbol, int(e.v-maxSymbols), c); ok {
				return r, true
			}
		}
	}
	return code{}, false
}

// writeGraph writes the tree in Graphviz dot syntax. It has proven handy
// when chasing bit-order bugs.
func (t *prefixTree) writeGraph(w io.Writer) error {
	var err error
	pr := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	pr("digraph G {\n")
	for i := 0; i < t.numNodes; i++ {
		n := t.nodes[i]
		for _, e := range [2]struct {
			v     uint16
			label string
		}{{n.left, "0"}, {n.right, "1"}} {
			switch {
			case e.v == invalidEdge:
			case e.v >= maxSymbols:
				pr("n%d -> n%d [label=%q]\n",
					i, e.v-maxSymbols, e.label)
			default:
				pr("n%d -> s%d [label=%q]\ns%d [label=\"%d\" shape=box]\n",
					i, e.v, e.label, e.v, e.v)
			}
		}
	}
	pr("}\n")
	return err
}
