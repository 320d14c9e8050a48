// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package wavelet implements a multi-symbol wavelet tree supporting
// rank(c,i) and access(i), used as the backing structure for a BWT string
// over a small alphabet (here: null, the four DNA bases and the
// FM-index separator, 6 symbols total).
package wavelet

import (
	"encoding/binary"
	"errors"
	"io"
	"math/bits"

	"github.com/shenwei356/csfmple/bitvector"
)

// ErrBroken is returned when a persisted wavelet tree is truncated.
var ErrBroken = errors.New("wavelet: truncated data")

// Tree is a balanced binary wavelet tree over symbols [0, sigma).
type Tree struct {
	sigma int // alphabet size (number of distinct symbol codes)
	depth int // bits needed to address sigma symbols
	n     int // length of the encoded string

	// level[d] is the bit vector for depth d: bit value is bit (depth-1-d)
	// of the symbol code, over the globally stable-partitioned sequence of
	// the previous level (wavelet-matrix layout).
	level []*bitvector.BitVector
}

// Build constructs a wavelet tree over the given symbol sequence X, each
// value in [0, sigma).
func Build(x []uint8, sigma int) *Tree {
	if sigma < 1 {
		sigma = 1
	}
	depth := bits.Len(uint(sigma - 1))
	if depth == 0 {
		depth = 1
	}

	t := &Tree{sigma: sigma, depth: depth, n: len(x)}
	t.level = make([]*bitvector.BitVector, depth)

	cur := make([]uint8, len(x))
	copy(cur, x)

	for d := 0; d < depth; d++ {
		shift := uint(depth - 1 - d)
		bv := bitvector.New(len(cur))
		for i, v := range cur {
			if (v>>shift)&1 == 1 {
				bv.Set(i)
			}
		}
		bv.Build()
		t.level[d] = bv

		// stable partition by bit d (MSB-first): all the 0-bit symbols
		// keep their relative order, followed by all the 1-bit symbols.
		next := make([]uint8, 0, len(cur))
		for _, v := range cur {
			if (v>>shift)&1 == 0 {
				next = append(next, v)
			}
		}
		for _, v := range cur {
			if (v>>shift)&1 == 1 {
				next = append(next, v)
			}
		}
		cur = next
	}

	return t
}

// Len returns the length of the encoded sequence.
func (t *Tree) Len() int { return t.n }

// Access returns the symbol at position i.
//
// Both Access and Rank rely on the wavelet-matrix position mapping: each
// level's bit vector is built over a single, globally stable-partitioned
// array (see Build), so descending to the next level only needs the
// level's total zero count and Rank1 at the current position - no
// per-node offset tables are required.
func (t *Tree) Access(i int) uint8 {
	var code uint8
	for d := 0; d < t.depth; d++ {
		bv := t.level[d]
		if bv.Get(i) {
			code = code<<1 | 1
			i = t.zeros(d) + bv.Rank1(i)
		} else {
			code = code << 1
			i = i - bv.Rank1(i)
		}
	}
	return code
}

// Rank returns the number of occurrences of symbol c in x[0, i).
//
// Both the query position i and the start of symbol c's range (position 0
// at the top level) are pushed down the levels; their difference at the
// bottom is the count.
func (t *Tree) Rank(c uint8, i int) int {
	start := 0
	for d := 0; d < t.depth; d++ {
		shift := uint(t.depth - 1 - d)
		bit := (c >> shift) & 1
		bv := t.level[d]
		if bit == 1 {
			z := t.zeros(d)
			start = z + bv.Rank1(start)
			i = z + bv.Rank1(i)
		} else {
			start = start - bv.Rank1(start)
			i = i - bv.Rank1(i)
		}
	}
	return i - start
}

// zeros returns the total number of 0-bits in level d's bit vector.
func (t *Tree) zeros(d int) int {
	bv := t.level[d]
	return bv.Len() - bv.Rank1(bv.Len())
}

// Save persists the wavelet tree: sigma, depth, n, then each level's bit
// vector in order.
func (t *Tree) Save(w io.Writer) (int, error) {
	be := binary.BigEndian
	var written int
	if err := binary.Write(w, be, uint32(t.sigma)); err != nil {
		return written, err
	}
	written += 4
	if err := binary.Write(w, be, uint32(t.depth)); err != nil {
		return written, err
	}
	written += 4
	if err := binary.Write(w, be, uint32(t.n)); err != nil {
		return written, err
	}
	written += 4
	for _, bv := range t.level {
		n, err := bv.Save(w)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Load reads a wavelet tree previously written by Save.
func Load(r io.Reader) (*Tree, error) {
	be := binary.BigEndian
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ErrBroken
	}
	sigma := int(be.Uint32(hdr[0:4]))
	depth := int(be.Uint32(hdr[4:8]))
	n := int(be.Uint32(hdr[8:12]))

	t := &Tree{sigma: sigma, depth: depth, n: n}
	t.level = make([]*bitvector.BitVector, depth)
	for d := 0; d < depth; d++ {
		bv, err := bitvector.Load(r)
		if err != nil {
			return nil, err
		}
		t.level[d] = bv
	}
	return t, nil
}
