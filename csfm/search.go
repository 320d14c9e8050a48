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

package csfm

import (
	"math/rand"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/twotwotwo/sorts"
)

// csLocs orders hits by consensus coordinates for stable reporting.
type csLocs []CSLoc

func (s csLocs) Len() int      { return len(s) }
func (s csLocs) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s csLocs) Less(i, j int) bool {
	if s[i].CSStart != s[j].CSStart {
		return s[i].CSStart < s[j].CSStart
	}
	return s[i].CSEnd < s[j].CSEnd
}

// backwardSearch runs the textbook FM-index backward search, scanning
// the pattern right-to-left since the index is over the forward text.
// It returns an empty, not-found interval (start=1, end=0) for an empty
// pattern or an unencodable character - query-time failures never panic.
func (idx *Index) backwardSearch(pattern string) (start, end int) {
	m := len(pattern)
	if m == 0 {
		return 1, 0
	}

	start, end = 0, idx.concatLen
	for i := m - 1; i >= 0 && start <= end; i-- {
		ch := alphabet.ToUpper(pattern[i])
		code, err := idx.abc.Encode(ch)
		if err != nil {
			return 1, 0
		}
		b := byte(code) + 1
		if start == 0 {
			start = int(idx.c[b])
			end = int(idx.c[b+1]) - 1
		} else {
			start = idx.LF(b, start)
			end = idx.LF(b, end+1) - 1
		}
	}
	return start, end
}

// Count returns the number of occurrences of pattern.
func (idx *Index) Count(pattern string) int {
	start, end := idx.backwardSearch(pattern)
	if start > end {
		return 0
	}
	return end - start + 1
}

// Locate returns every occurrence of pattern, in alignment (consensus)
// coordinates, with gaps reinserted into the matched string wherever the
// consensus-column delta exceeds 1. Hits are ordered by consensus
// position.
func (idx *Index) Locate(pattern string) []CSLoc {
	start, end := idx.backwardSearch(pattern)
	if start > end {
		return nil
	}
	locs := make([]CSLoc, 0, end-start+1)
	for i := start; i <= end; i++ {
		concatStart := idx.AccessSA(i)
		csStart := int(idx.concat2CS[concatStart])
		csEnd := int(idx.concat2CS[concatStart+len(pattern)-1])
		locs = append(locs, CSLoc{
			CSStart: csStart,
			CSEnd:   csEnd,
			MatchCS: idx.extractCS(concatStart, pattern),
		})
	}
	sorts.Quicksort(csLocs(locs))
	return locs
}

// LocateFirst returns the first SA-order occurrence of pattern,
// deterministic across calls.
func (idx *Index) LocateFirst(pattern string) (CSLoc, bool) {
	start, end := idx.backwardSearch(pattern)
	if start > end {
		return CSLoc{}, false
	}
	concatStart := idx.AccessSA(start)
	csStart := int(idx.concat2CS[concatStart])
	csEnd := int(idx.concat2CS[concatStart+len(pattern)-1])
	return CSLoc{CSStart: csStart, CSEnd: csEnd, MatchCS: idx.extractCS(concatStart, pattern)}, true
}

// LocateOne returns a uniformly random occurrence of pattern, using the
// caller-supplied RNG so that sampling runs are reproducible.
func (idx *Index) LocateOne(pattern string, rng *rand.Rand) (CSLoc, bool) {
	start, end := idx.backwardSearch(pattern)
	if start > end {
		return CSLoc{}, false
	}
	i := start + rng.Intn(end-start+1)
	concatStart := idx.AccessSA(i)
	csStart := int(idx.concat2CS[concatStart])
	csEnd := int(idx.concat2CS[concatStart+len(pattern)-1])
	return CSLoc{CSStart: csStart, CSEnd: csEnd, MatchCS: idx.extractCS(concatStart, pattern)}, true
}

// LocateIndex returns a set of source-sequence indices (0-based) for the
// occurrences of pattern, deriving each index as SA[i]/(csLen+1). The
// indices are exact only when no row carries gaps; with gapped rows an
// index can name a row other than the one that holds the occurrence.
func (idx *Index) LocateIndex(pattern string) map[int]struct{} {
	start, end := idx.backwardSearch(pattern)
	out := make(map[int]struct{})
	if start > end {
		return out
	}
	stride := idx.csLen + 1
	for i := start; i <= end; i++ {
		k := idx.AccessSA(i)
		out[k/stride] = struct{}{}
	}
	return out
}
