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

// Package digitalseq implements a compact integer-coded aligned sequence,
// used as the representation of a leaf's bound residues on the
// phylogenetic tree.
package digitalseq

import (
	"encoding/binary"
	"io"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/kmers"
)

// GapCode is the sentinel stored for an alignment gap.
const GapCode int8 = -1

// DigitalSeq is a column-aligned, integer-coded sequence of length L.
// Each entry is either a 0-based alphabet code (>=0) or GapCode.
type DigitalSeq []int8

// FromAligned encodes an aligned residue string (upper or lower case,
// plus the alphabet's gap character) into a DigitalSeq. It fails fast
// on any character that is neither a recognized base nor a gap, per the
// engine's build-time decoding rule.
func FromAligned(abc *alphabet.Alphabet, aligned string) (DigitalSeq, error) {
	seq := make(DigitalSeq, len(aligned))
	for j := 0; j < len(aligned); j++ {
		ch := aligned[j]
		if abc.IsGap(ch) {
			seq[j] = GapCode
			continue
		}
		code, err := abc.Encode(alphabet.ToUpper(ch))
		if err != nil {
			return nil, err
		}
		seq[j] = code
	}
	return seq, nil
}

// Len returns the aligned length L.
func (s DigitalSeq) Len() int { return len(s) }

// IsGap reports whether column j is a gap.
func (s DigitalSeq) IsGap(j int) bool { return s[j] < 0 }

// String decodes the sequence back to a display string, using the gap
// character for gap columns.
func (s DigitalSeq) String(abc *alphabet.Alphabet) string {
	out := make([]byte, len(s))
	for j, c := range s {
		if c < 0 {
			out[j] = abc.Gap()
		} else {
			out[j] = abc.Decode(c)
		}
	}
	return string(out)
}

// PackedKmer re-encodes a contiguous gap-free window of the sequence as a
// 2-bit-per-base packed k-mer, using the same bit layout as
// github.com/shenwei356/kmers so that DigitalSeq windows and k-mer
// indexes agree on encoding.
func PackedKmer(s DigitalSeq, start, k int) (uint64, error) {
	win := make([]byte, k)
	for i := 0; i < k; i++ {
		c := s[start+i]
		if c < 0 {
			return 0, errGapInWindow
		}
		win[i] = alphabetBase[c]
	}
	return kmers.Encode(win)
}

var alphabetBase = [4]byte{'A', 'C', 'G', 'T'}

var errGapInWindow = errGap{}

type errGap struct{}

func (errGap) Error() string { return "digitalseq: gap within k-mer window" }

// Save writes the sequence as a length-prefixed array of signed bytes.
func Save(w io.Writer, s DigitalSeq) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	buf := make([]byte, len(s))
	for i, c := range s {
		buf[i] = byte(c)
	}
	_, err := w.Write(buf)
	return err
}

// Load reads a sequence previously written by Save.
func Load(r io.Reader) (DigitalSeq, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	seq := make(DigitalSeq, n)
	for i, b := range buf {
		seq[i] = int8(b)
	}
	return seq, nil
}
