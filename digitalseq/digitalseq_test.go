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

package digitalseq

import (
	"bytes"
	"testing"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/kmers"
)

func TestFromAligned(t *testing.T) {
	seq, err := FromAligned(alphabet.DNA, "Ac-gT")
	if err != nil {
		t.Fatal(err)
	}
	want := DigitalSeq{0, 1, GapCode, 2, 3}
	if len(seq) != len(want) {
		t.Fatalf("len = %d", len(seq))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("seq[%d] = %d, want %d", i, seq[i], want[i])
		}
	}
	if !seq.IsGap(2) || seq.IsGap(0) {
		t.Error("gap detection broken")
	}
	if seq.String(alphabet.DNA) != "AC-GT" {
		t.Errorf("String() = %q", seq.String(alphabet.DNA))
	}
}

func TestFromAlignedRejectsAmbiguity(t *testing.T) {
	if _, err := FromAligned(alphabet.DNA, "ACNGT"); err == nil {
		t.Error("an ambiguity code must fail fast during encoding")
	}
}

func TestPackedKmer(t *testing.T) {
	seq, err := FromAligned(alphabet.DNA, "ACGT-ACG")
	if err != nil {
		t.Fatal(err)
	}
	code, err := PackedKmer(seq, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	want, err := kmers.Encode([]byte("ACGT"))
	if err != nil {
		t.Fatal(err)
	}
	if code != want {
		t.Errorf("PackedKmer = %d, want %d", code, want)
	}
	if _, err := PackedKmer(seq, 2, 4); err == nil {
		t.Error("a window crossing a gap must fail")
	}
}

func TestSaveLoad(t *testing.T) {
	seq, _ := FromAligned(alphabet.DNA, "AC-GT")
	var buf bytes.Buffer
	if err := Save(&buf, seq); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.String(alphabet.DNA) != "AC-GT" {
		t.Errorf("round trip = %q", loaded.String(alphabet.DNA))
	}
}
