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

// Package bitvector implements a plain (uncompressed) bit vector with
// access, rank1 and select1. Access is O(1); rank1 is one cumulative
// sample per block of 8 words plus a popcount over at most 8 words;
// select1 scans the block samples linearly and is not O(1).
package bitvector

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/shenwei356/csfmple/bitvector/popcount"
)

const wordBits = 64

// blockWords is the number of 64-bit words per coarse rank block.
// A coarse rank sample every blockWords*64 bits keeps rank1 to one
// cumulative lookup plus a short word scan.
const blockWords = 8

// BitVector is a fixed-length, immutable-once-built bit vector.
type BitVector struct {
	n      int      // number of bits
	words  []uint64 // bit data, word i holds bits [64i, 64i+64)
	blockR []uint32 // cumulative rank1 at the start of each block
}

// ErrBroken is returned when a persisted bit vector is truncated.
var ErrBroken = errors.New("bitvector: truncated data")

// New returns a bit vector of n bits, all initially 0.
func New(n int) *BitVector {
	return &BitVector{
		n:     n,
		words: make([]uint64, (n+wordBits-1)/wordBits+1),
	}
}

// Len returns the number of bits.
func (b *BitVector) Len() int { return b.n }

// Set sets bit i to 1.
func (b *BitVector) Set(i int) {
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Get returns bit i.
func (b *BitVector) Get(i int) bool {
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Access is an alias for Get.
func (b *BitVector) Access(i int) bool { return b.Get(i) }

// Build finalizes the rank index. Must be called once after all Set calls
// and before any Rank1/Select1 call.
func (b *BitVector) Build() {
	nBlocks := (len(b.words) + blockWords - 1) / blockWords
	b.blockR = make([]uint32, nBlocks+1)
	var cum uint32
	for blk := 0; blk < nBlocks; blk++ {
		b.blockR[blk] = cum
		start := blk * blockWords
		end := start + blockWords
		if end > len(b.words) {
			end = len(b.words)
		}
		for w := start; w < end; w++ {
			cum += uint32(popcount.Count64(b.words[w]))
		}
	}
	b.blockR[nBlocks] = cum
}

// Rank1 returns the number of 1-bits in [0, i), i.e. rank1(i).
func (b *BitVector) Rank1(i int) int {
	if i <= 0 {
		return 0
	}
	if i > b.n {
		i = b.n
	}
	wordIdx := i / wordBits
	blk := wordIdx / blockWords
	rank := int(b.blockR[blk])
	for w := blk * blockWords; w < wordIdx; w++ {
		rank += popcount.Count64(b.words[w])
	}
	rem := i % wordBits
	if rem > 0 {
		mask := uint64(1)<<uint(rem) - 1
		rank += popcount.Count64(b.words[wordIdx] & mask)
	}
	return rank
}

// Select1 returns the 0-based position of the (rank+1)-th 1-bit
// (i.e. Select1(0) is the first set bit). Returns -1 if there is no
// such bit.
func (b *BitVector) Select1(rank int) int {
	target := rank + 1
	nBlocks := len(b.blockR) - 1
	// linear scan over blocks is acceptable: blocks are coarse and this
	// is only used during SA sampling and accessSA fallback paths.
	blk := 0
	for blk < nBlocks && int(b.blockR[blk+1]) < target {
		blk++
	}
	if blk >= nBlocks {
		return -1
	}
	rem := target - int(b.blockR[blk])
	start := blk * blockWords
	end := start + blockWords
	if end > len(b.words) {
		end = len(b.words)
	}
	for w := start; w < end; w++ {
		c := popcount.Count64(b.words[w])
		if c >= rem {
			word := b.words[w]
			for bit := 0; bit < wordBits; bit++ {
				if word&(1<<uint(bit)) != 0 {
					rem--
					if rem == 0 {
						return w*wordBits + bit
					}
				}
			}
		}
		rem -= c
	}
	return -1
}

// Save writes the bit vector as: n (4 bytes), len(words) (4 bytes), words.
func (b *BitVector) Save(w io.Writer) (int, error) {
	be := binary.BigEndian
	var n int
	if err := binary.Write(w, be, uint32(b.n)); err != nil {
		return n, err
	}
	n += 4
	if err := binary.Write(w, be, uint32(len(b.words))); err != nil {
		return n, err
	}
	n += 4
	if err := binary.Write(w, be, b.words); err != nil {
		return n, err
	}
	n += 8 * len(b.words)
	return n, nil
}

// Load reads a bit vector previously written by Save and rebuilds its
// rank index.
func Load(r io.Reader) (*BitVector, error) {
	be := binary.BigEndian
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ErrBroken
	}
	n := int(be.Uint32(hdr[0:4]))
	nWords := int(be.Uint32(hdr[4:8]))
	words := make([]uint64, nWords)
	if err := binary.Read(r, be, words); err != nil {
		return nil, ErrBroken
	}
	b := &BitVector{n: n, words: words}
	b.Build()
	return b, nil
}
