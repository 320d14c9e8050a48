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

package msa

import "testing"

func TestNew(t *testing.T) {
	m, err := New([]string{"s1", "s2"}, []string{"ACGT-", "ACGTA"})
	if err != nil {
		t.Fatal(err)
	}
	if m.NumSeq() != 2 || m.CSLen() != 5 {
		t.Fatalf("numSeq=%d csLen=%d", m.NumSeq(), m.CSLen())
	}
	if m.NonGapLen() != 9 {
		t.Errorf("nonGapLen = %d, want 9", m.NonGapLen())
	}
	if m.SeqNameAt(1) != "s2" {
		t.Errorf("name = %q", m.SeqNameAt(1))
	}
	if m.ResidueAt(0, 4) != '-' || m.ResidueAt(1, 4) != 'A' {
		t.Error("residue access broken")
	}
	if m.CS() != "ACGTA" {
		t.Errorf("consensus = %q", m.CS())
	}
	if m.IdentityAt(0) != 1 || m.IdentityAt(4) != 0.5 {
		t.Errorf("identity = %g, %g", m.IdentityAt(0), m.IdentityAt(4))
	}
	if m.DSAt(0).Len() != 5 || !m.DSAt(0).IsGap(4) {
		t.Error("digital row broken")
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("empty alignment should fail")
	}
	if _, err := New([]string{"a", "b"}, []string{"ACG", "AC"}); err == nil {
		t.Error("ragged rows should fail")
	}
	if _, err := New([]string{"a"}, []string{"ACN"}); err == nil {
		t.Error("ambiguity codes should fail fast")
	}
}

func TestAllGapColumn(t *testing.T) {
	m, err := New([]string{"a", "b"}, []string{"A-G", "A-G"})
	if err != nil {
		t.Fatal(err)
	}
	if m.CS() != "A-G" {
		t.Errorf("consensus with all-gap column = %q", m.CS())
	}
	if m.IdentityAt(1) != 0 {
		t.Errorf("identity of all-gap column = %g", m.IdentityAt(1))
	}
}
