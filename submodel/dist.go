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

package submodel

import "github.com/shenwei356/csfmple/digitalseq"

// MaxPDist is the largest uncorrected p-distance for which a pair of
// aligned sequences is still considered informative for model training.
const MaxPDist = 0.15

// PDist returns the uncorrected p-distance between two aligned sequences
// over columns [start, end]: the fraction of differing residues among
// columns where neither sequence has a gap. Returns 0 for an empty
// comparable set.
func PDist(a, b digitalseq.DigitalSeq, start, end int) float64 {
	var diff, n int
	for j := start; j <= end; j++ {
		if a[j] < 0 || b[j] < 0 {
			continue
		}
		if a[j] != b[j] {
			diff++
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(diff) / float64(n)
}

// CalcBaseFreq counts observed base frequencies in an aligned sequence,
// ignoring gaps.
func CalcBaseFreq(s digitalseq.DigitalSeq) Vector4 {
	var freq Vector4
	for _, c := range s {
		if c >= 0 {
			freq[c]++
		}
	}
	return freq
}

// CalcTransFreq2Seq counts the observed base transitions between two
// aligned sequences: entry [i][j] is the number of columns where a reads
// base i and b reads base j, over columns where neither has a gap.
func CalcTransFreq2Seq(a, b digitalseq.DigitalSeq) Matrix4x4 {
	var freq Matrix4x4
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for j := 0; j < n; j++ {
		if a[j] >= 0 && b[j] >= 0 {
			freq[a[j]][b[j]]++
		}
	}
	return freq
}

// CalcTransFreq3Seq counts base transitions from an inferred ancestor to
// two tip sequences, resolving the ancestral state with outgroup out: at
// columns where the tips agree the shared base is ancestral and no change
// is recorded; where they disagree and the outgroup sides with one tip,
// the outgroup's base is taken as ancestral and one change to the other
// tip is recorded.
func CalcTransFreq3Seq(out, a, b digitalseq.DigitalSeq) Matrix4x4 {
	var freq Matrix4x4
	n := len(out)
	if len(a) < n {
		n = len(a)
	}
	if len(b) < n {
		n = len(b)
	}
	for j := 0; j < n; j++ {
		o, x, y := out[j], a[j], b[j]
		if o < 0 || x < 0 || y < 0 {
			continue
		}
		switch {
		case x == y:
			freq[x][x]++
		case o == x:
			freq[o][y]++
		case o == y:
			freq[o][x]++
		}
	}
	return freq
}
