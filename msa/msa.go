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

// Package msa is a minimal in-memory multiple sequence alignment: equal
// length aligned rows with a derived consensus string and per-column
// identity. It implements the alignment collaborator interfaces the
// index builder and the tree binder consume; a full-featured MSA loader
// lives outside this module.
package msa

import (
	"errors"
	"fmt"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/digitalseq"
)

// ErrEmpty is returned for an alignment with no rows.
var ErrEmpty = errors.New("msa: empty alignment")

// ErrRaggedRows is returned when rows differ in aligned length.
var ErrRaggedRows = errors.New("msa: rows differ in aligned length")

// MSA is an immutable in-memory alignment.
type MSA struct {
	abc   *alphabet.Alphabet
	names []string
	rows  []string
	seqs  []digitalseq.DigitalSeq

	cs       string
	identity []float64
	nonGap   int
}

// New builds an alignment over the DNA alphabet from parallel name and
// aligned-row slices. Rows must be equal length; residues are validated
// during digital encoding (fail-fast on non-DNA, non-gap characters).
func New(names, rows []string) (*MSA, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if len(names) != len(rows) {
		return nil, fmt.Errorf("msa: %d names for %d rows", len(names), len(rows))
	}
	abc := alphabet.DNA
	csLen := len(rows[0])
	m := &MSA{abc: abc, names: names, rows: rows}
	for _, row := range rows {
		if len(row) != csLen {
			return nil, ErrRaggedRows
		}
		seq, err := digitalseq.FromAligned(abc, row)
		if err != nil {
			return nil, err
		}
		m.seqs = append(m.seqs, seq)
		for _, c := range seq {
			if c >= 0 {
				m.nonGap++
			}
		}
	}
	m.deriveConsensus()
	return m, nil
}

// deriveConsensus picks the most frequent residue per column (the gap
// character where a column is all gaps) and records the matching
// fraction as the column's identity.
func (m *MSA) deriveConsensus() {
	csLen := len(m.rows[0])
	cs := make([]byte, csLen)
	m.identity = make([]float64, csLen)
	n := float64(len(m.seqs))
	for j := 0; j < csLen; j++ {
		var counts [alphabet.Size]int
		for _, seq := range m.seqs {
			if seq[j] >= 0 {
				counts[seq[j]]++
			}
		}
		best, bestCount := -1, 0
		for b, c := range counts {
			if c > bestCount {
				best, bestCount = b, c
			}
		}
		if best < 0 {
			cs[j] = m.abc.Gap()
		} else {
			cs[j] = m.abc.Decode(int8(best))
		}
		m.identity[j] = float64(bestCount) / n
	}
	m.cs = string(cs)
}

// NumSeq returns the number of rows.
func (m *MSA) NumSeq() int { return len(m.rows) }

// CSLen returns the aligned (consensus) length.
func (m *MSA) CSLen() int { return len(m.rows[0]) }

// Alphabet returns the alignment's alphabet.
func (m *MSA) Alphabet() *alphabet.Alphabet { return m.abc }

// CS returns the consensus string.
func (m *MSA) CS() string { return m.cs }

// IdentityAt returns the fraction of rows matching the consensus at
// 0-based column j.
func (m *MSA) IdentityAt(j int) float64 { return m.identity[j] }

// ResidueAt returns the aligned residue of row i at 0-based column j.
func (m *MSA) ResidueAt(i, j int) byte { return m.rows[i][j] }

// NonGapLen returns the total number of non-gap residues.
func (m *MSA) NonGapLen() int { return m.nonGap }

// SeqNameAt returns the name of row i.
func (m *MSA) SeqNameAt(i int) string { return m.names[i] }

// DSAt returns the digitally coded sequence of row i.
func (m *MSA) DSAt(i int) digitalseq.DigitalSeq { return m.seqs[i] }
