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

// Package csfm implements the Consensus-Space FM-Index: a compressed,
// self-index over the concatenation of all non-gap residues of a
// reference multiple sequence alignment, with an auxiliary mapping back
// to consensus-column coordinates so that matches are reported in
// alignment space.
package csfm

import (
	"errors"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/bitvector"
	"github.com/shenwei356/csfmple/sa"
	"github.com/shenwei356/csfmple/wavelet"
)

// SASampleRate is the sparse suffix-array sampling rate, a compile-time
// power-of-two.
const SASampleRate = 32

// MaxCSLen is the largest consensus length this index can address
// (concat2CS entries are stored as uint16).
const MaxCSLen = 65535

// ErrInvalidInput is returned for a consensus length that overflows the
// index's coordinate width, per the engine's InvalidInput error kind.
var ErrInvalidInput = errors.New("csfm: MSA consensus length exceeds 65535")

// ErrBuildFailure wraps a fatal suffix-array construction error.
var ErrBuildFailure = errors.New("csfm: suffix array construction failed")

// MSA is the external collaborator this index is built from. It exposes
// only what the index builder needs: per-row/per-column residues, the
// consensus string, per-column identity and basic dimensions.
type MSA interface {
	NumSeq() int
	CSLen() int
	Alphabet() *alphabet.Alphabet
	CS() string
	IdentityAt(j int) float64
	ResidueAt(i, j int) byte
	NonGapLen() int
}

// CSLoc is a single match location, reported in 1-based consensus-column
// coordinates, together with the aligned (gapped) reconstruction of the
// matched pattern.
type CSLoc struct {
	CSStart int // 1-based consensus column of the first matched residue
	CSEnd   int // 1-based consensus column of the last matched residue
	MatchCS string
}

// Index is an immutable snapshot built once per MSA.
type Index struct {
	abc    *alphabet.Alphabet
	gapCh  byte
	csLen  int // L
	concatLen int // total non-gap residues + numSeq

	c [alphabet.Size + 2]int32 // C-table, codes 0..size+1

	bwt *wavelet.Tree

	saSampled []int32
	saIdx     *bitvector.BitVector

	concat2CS []uint16 // length concatLen+1
	csSeq     string   // 1-based, leading space
	csIdentity []float64 // 1-based, csIdentity[0] is dummy
}

// CSLen returns L, the consensus alignment length.
func (idx *Index) CSLen() int { return idx.csLen }

// ConcatLen returns the length of the concatenated non-gap text
// (excluding the trailing null terminator).
func (idx *Index) ConcatLen() int { return idx.concatLen }

// CS returns the 1-based consensus string (csSeq[0] is a dummy space).
func (idx *Index) CS() string { return idx.csSeq }

// IdentityAt returns the per-column identity for 1-based column j.
func (idx *Index) IdentityAt(j int) float64 { return idx.csIdentity[j] }

// Build constructs a CSFM index from an MSA.
func Build(msa MSA) (*Index, error) {
	if msa.CSLen() > MaxCSLen {
		return nil, ErrInvalidInput
	}

	abc := msa.Alphabet()
	idx := &Index{
		abc:   abc,
		gapCh: abc.Gap(),
		csLen: msa.CSLen(),
	}
	idx.concatLen = msa.NonGapLen() + msa.NumSeq()

	idx.csSeq = " " + msa.CS()
	idx.csIdentity = make([]float64, idx.csLen+1)
	for j := 0; j < idx.csLen; j++ {
		idx.csIdentity[j+1] = msa.IdentityAt(j)
	}

	concatSeq, err := idx.buildConcatSeq(msa)
	if err != nil {
		return nil, err
	}
	if err := idx.buildBWT(concatSeq); err != nil {
		return nil, err
	}
	return idx, nil
}

// buildConcatSeq walks the MSA rows, writing the concatenated, recoded
// non-gap text and the concat2CS back-mapping, and accumulating raw
// per-code counts into idx.c, which it then converts in place to
// cumulative counts.
func (idx *Index) buildConcatSeq(msa MSA) ([]byte, error) {
	n := idx.concatLen + 1 // + null terminator
	concatSeq := make([]byte, n)
	idx.concat2CS = make([]uint16, n)

	abc := idx.abc
	sep := byte(alphabet.Separator)

	shift := 0
	for i := 0; i < msa.NumSeq(); i++ {
		for j := 0; j < idx.csLen; j++ {
			ch := msa.ResidueAt(i, j)
			if abc.IsGap(ch) {
				continue
			}
			code, err := abc.Encode(alphabet.ToUpper(ch))
			if err != nil {
				return nil, err
			}
			k := byte(code) + 1 // 1..size
			idx.c[k]++
			concatSeq[shift] = k
			idx.concat2CS[shift] = uint16(j + 1)
			shift++
		}
		idx.c[sep]++
		concatSeq[shift] = sep
		idx.concat2CS[shift] = 0
		shift++
	}
	if shift != n-1 {
		return nil, ErrBuildFailure
	}
	concatSeq[shift] = 0 // null terminal
	idx.c[0]++

	// convert to cumulative (exclusive prefix sum).
	var prev int32
	var tmp int32
	prev = idx.c[0]
	idx.c[0] = 0
	for i := 1; i < len(idx.c); i++ {
		tmp = idx.c[i]
		idx.c[i] = idx.c[i-1] + prev
		prev = tmp
	}

	return concatSeq, nil
}

// buildBWT builds the suffix array, the sparse sample + rank-select
// index over sampled positions, and the BWT wavelet tree.
func (idx *Index) buildBWT(concatSeq []byte) error {
	n := len(concatSeq) // concatLen+1
	saInt, err := sa.Build(concatSeq, alphabet.Size+2)
	if err != nil {
		return ErrBuildFailure
	}

	idx.saSampled = make([]int32, 0, n/SASampleRate+1)
	bv := bitvector.New(n)
	for i := 0; i < n; i++ {
		if int(saInt[i])%SASampleRate == 0 {
			idx.saSampled = append(idx.saSampled, saInt[i])
			bv.Set(i)
		}
	}
	bv.Build()
	idx.saIdx = bv

	x := make([]byte, n)
	for i := 0; i < n; i++ {
		if saInt[i] == 0 {
			x[i] = 0
		} else {
			x[i] = concatSeq[saInt[i]-1]
		}
	}
	idx.bwt = wavelet.Build(x, alphabet.Size+2)

	return nil
}

// LF implements the FM-index backward step LF(c,i) = C[c] + rank(c,i).
func (idx *Index) LF(c byte, i int) int {
	return int(idx.c[c]) + idx.bwt.Rank(c, i)
}

// AccessSA resolves SA[i] (0-based position in the concatenated text) by
// repeated backward LF-stepping from a non-sampled position until a
// sampled one is reached. Terminates in at most SASampleRate hops.
func (idx *Index) AccessSA(i int) int {
	dist := 0
	for !idx.saIdx.Access(i) {
		c := idx.bwt.Access(i)
		// BWT[i] == c, so LF with exclusive rank lands on the row of
		// the predecessor suffix.
		i = idx.LF(c, i)
		dist++
	}
	return int(idx.saSampled[idx.saIdx.Rank1(i+1)-1]) + dist
}

// extractCS reconstructs the aligned (gapped) form of pattern starting at
// concatenated position start, re-inserting the gap character wherever
// consecutive residues sit on non-adjacent consensus columns.
func (idx *Index) extractCS(start int, pattern string) string {
	if pattern == "" {
		return ""
	}
	out := make([]byte, 0, len(pattern)+4)
	for i := start; i < start+len(pattern); i++ {
		if i > start && int(idx.concat2CS[i])-int(idx.concat2CS[i-1]) > 1 {
			gaps := int(idx.concat2CS[i]) - int(idx.concat2CS[i-1]) - 1
			for g := 0; g < gaps; g++ {
				out = append(out, idx.gapCh)
			}
		}
		out = append(out, pattern[i-start])
	}
	return string(out)
}
