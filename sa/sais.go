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

// Package sa builds a suffix array over a small-alphabet byte string using
// the linear-time SA-IS (induced sorting) algorithm.
package sa

import "errors"

// ErrBuildFailure is returned when the input is malformed for SA
// construction (the caller is expected to treat this as fatal, per the
// engine's build-time error handling design).
var ErrBuildFailure = errors.New("sa: suffix array construction failed")

// Build returns the suffix array of t, a byte string over codes
// [0, alphabetSize), where t must end with a unique minimum sentinel
// (code 0) that appears nowhere else in t. Caller owns t; Build does not
// mutate it.
func Build(t []byte, alphabetSize int) ([]int32, error) {
	n := len(t)
	if n == 0 {
		return nil, ErrBuildFailure
	}
	s := make([]int32, n)
	for i, b := range t {
		s[i] = int32(b)
	}
	sa := make([]int32, n)
	sais(s, sa, alphabetSize)
	return sa, nil
}

// sais fills sa with the suffix array of s (values are codes in
// [0, K)), using the SA-IS algorithm. len(sa) == len(s).
func sais(s []int32, sa []int32, K int) {
	n := len(s)
	for i := range sa {
		sa[i] = -1
	}
	if n == 1 {
		sa[0] = 0
		return
	}

	// classify S-type (true) / L-type (false) suffixes, right to left.
	isS := make([]bool, n)
	isS[n-1] = true
	for i := n - 2; i >= 0; i-- {
		switch {
		case s[i] < s[i+1]:
			isS[i] = true
		case s[i] > s[i+1]:
			isS[i] = false
		default:
			isS[i] = isS[i+1]
		}
	}

	isLMS := func(i int) bool { return i > 0 && isS[i] && !isS[i-1] }

	var lms []int32
	for i := 1; i < n; i++ {
		if isLMS(i) {
			lms = append(lms, int32(i))
		}
	}

	induceSort(s, sa, isS, K, lms)

	// name the LMS substrings by rank, sorted order from the first induce pass.
	sortedLMS := make([]int32, 0, len(lms))
	for _, pos := range sa {
		if pos > 0 && isLMS(int(pos)) {
			sortedLMS = append(sortedLMS, pos)
		}
	}

	names := make([]int32, n)
	for i := range names {
		names[i] = -1
	}
	name := int32(0)
	var prev int32 = -1
	for _, pos := range sortedLMS {
		if prev != -1 && !lmsSubstringEqual(s, isS, int(prev), int(pos)) {
			name++
		}
		names[pos] = name
		prev = pos
	}
	numNames := int(name) + 1

	reduced := make([]int32, len(lms))
	for i, pos := range lms {
		reduced[i] = names[pos]
	}

	var reducedSA []int32
	if numNames < len(reduced) {
		reducedSA = make([]int32, len(reduced))
		sais(reduced, reducedSA, numNames)
	} else {
		reducedSA = make([]int32, len(reduced))
		for i, nm := range reduced {
			reducedSA[nm] = int32(i)
		}
	}

	orderedLMS := make([]int32, len(reducedSA))
	for i, idx := range reducedSA {
		orderedLMS[i] = lms[idx]
	}

	for i := range sa {
		sa[i] = -1
	}
	induceSort(s, sa, isS, K, orderedLMS)
}

func induceSort(s []int32, sa []int32, isS []bool, K int, lms []int32) {
	n := len(s)
	bucketSize := make([]int32, K)
	for _, c := range s {
		bucketSize[c]++
	}

	bucketTail := func() []int32 {
		tails := make([]int32, K)
		var sum int32
		for i, v := range bucketSize {
			sum += v
			tails[i] = sum - 1
		}
		return tails
	}
	bucketHead := func() []int32 {
		heads := make([]int32, K)
		var sum int32
		for i, v := range bucketSize {
			heads[i] = sum
			sum += v
		}
		return heads
	}

	tails := bucketTail()
	for i := len(lms) - 1; i >= 0; i-- {
		pos := lms[i]
		c := s[pos]
		sa[tails[c]] = pos
		tails[c]--
	}

	heads := bucketHead()
	for i := 0; i < n; i++ {
		pos := sa[i]
		if pos > 0 && !isS[pos-1] {
			c := s[pos-1]
			sa[heads[c]] = pos - 1
			heads[c]++
		}
	}

	tails = bucketTail()
	for i := n - 1; i >= 0; i-- {
		pos := sa[i]
		if pos > 0 && isS[pos-1] {
			c := s[pos-1]
			sa[tails[c]] = pos - 1
			tails[c]--
		}
	}
}

func lmsSubstringEqual(s []int32, isS []bool, i, j int) bool {
	n := len(s)
	isLMS := func(k int) bool { return k > 0 && isS[k] && !isS[k-1] }
	// both i and j are LMS positions, so the terminator check only
	// applies from offset 1 on.
	for d := 0; ; d++ {
		if s[i+d] != s[j+d] {
			return false
		}
		if d > 0 {
			iLMS := isLMS(i + d)
			jLMS := isLMS(j + d)
			if iLMS && jLMS {
				return true
			}
			if iLMS != jLMS {
				return false
			}
		}
		if i+d+1 >= n || j+d+1 >= n {
			return false
		}
	}
}
