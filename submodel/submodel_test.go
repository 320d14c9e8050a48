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

import (
	"bufio"
	"bytes"
	"math"
	"testing"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/digitalseq"
)

var testPi = Vector4{0.3, 0.2, 0.2, 0.3}

func testModels() []Model {
	return []Model{
		NewF81(testPi),
		NewHKY85(testPi, 2.0),
		NewGTR(testPi, [6]float64{1, 2, 1, 1, 2, 1}),
	}
}

func TestPrRowStochastic(t *testing.T) {
	for _, m := range testModels() {
		for _, tt := range []float64{0, 1e-6, 0.01, 0.1, 1, 10, 100} {
			p := m.Pr(tt)
			for i := 0; i < 4; i++ {
				var rowSum float64
				for j := 0; j < 4; j++ {
					if p[i][j] < 0 {
						t.Errorf("%s: Pr(%g)[%d][%d] = %g < 0", m.Type(), tt, i, j, p[i][j])
					}
					rowSum += p[i][j]
				}
				if math.Abs(rowSum-1) > 1e-9 {
					t.Errorf("%s: Pr(%g) row %d sums to %g", m.Type(), tt, i, rowSum)
				}
			}
		}
	}
}

func TestPrZeroIsIdentity(t *testing.T) {
	for _, m := range testModels() {
		p := m.Pr(0)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(p[i][j]-want) > 1e-12 {
					t.Errorf("%s: Pr(0)[%d][%d] = %g, want %g", m.Type(), i, j, p[i][j], want)
				}
			}
		}
	}
}

func TestPiStationary(t *testing.T) {
	// pi is a left eigenvector of Pr(t) with eigenvalue 1.
	for _, m := range testModels() {
		pi := m.Pi()
		p := m.Pr(0.7)
		for j := 0; j < 4; j++ {
			var s float64
			for i := 0; i < 4; i++ {
				s += pi[i] * p[i][j]
			}
			if math.Abs(s-pi[j]) > 1e-9 {
				t.Errorf("%s: (pi*Pr)[%d] = %g, want %g", m.Type(), j, s, pi[j])
			}
		}
	}
}

func TestCreate(t *testing.T) {
	for _, typ := range []string{"GTR", "HKY85", "F81"} {
		m, err := Create(typ)
		if err != nil {
			t.Fatal(err)
		}
		if m.Type() != typ {
			t.Errorf("Create(%s).Type() = %s", typ, m.Type())
		}
	}
	if _, err := Create("JC69"); err == nil {
		t.Error("Create with an unknown model type should fail")
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, m := range testModels() {
		var buf bytes.Buffer
		if err := Save(&buf, m); err != nil {
			t.Fatal(err)
		}
		m2, err := Load(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("%s: %v", m.Type(), err)
		}
		if m2.Type() != m.Type() {
			t.Fatalf("round trip changed type: %s -> %s", m.Type(), m2.Type())
		}
		p1, p2 := m.Pr(0.42), m2.Pr(0.42)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if math.Abs(p1[i][j]-p2[i][j]) > 1e-12 {
					t.Errorf("%s: Pr differs after round trip at [%d][%d]", m.Type(), i, j)
				}
			}
		}
	}
}

func mustSeq(t *testing.T, s string) digitalseq.DigitalSeq {
	t.Helper()
	seq, err := digitalseq.FromAligned(alphabet.DNA, s)
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func TestPDist(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"ACGT", "ACGT", 0},
		{"ACGT", "ACGA", 0.25},
		{"AC-T", "ACGT", 0},      // gap column excluded
		{"ACGT", "TGCA", 1},
		{"A-G-", "A-G-", 0},
	}
	for _, tt := range tests {
		a, b := mustSeq(t, tt.a), mustSeq(t, tt.b)
		if got := PDist(a, b, 0, len(tt.a)-1); got != tt.want {
			t.Errorf("PDist(%s, %s) = %g, want %g", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSubDist(t *testing.T) {
	a := mustSeq(t, "ACGTACGTACGTACGTACGT")
	b := mustSeq(t, "ACGTACGTACGTACGTACGA") // one change in 20 sites
	for _, m := range testModels() {
		d := m.SubDist(a, b, 0, a.Len()-1)
		p := PDist(a, b, 0, a.Len()-1)
		if d < p {
			t.Errorf("%s: corrected distance %g < p-distance %g", m.Type(), d, p)
		}
		if d0 := m.SubDist(a, a, 0, a.Len()-1); d0 != 0 {
			t.Errorf("%s: self distance = %g, want 0", m.Type(), d0)
		}
	}
}

func TestCalcTransFreq2Seq(t *testing.T) {
	a := mustSeq(t, "AAC-G")
	b := mustSeq(t, "AGCT-")
	f := CalcTransFreq2Seq(a, b)
	if f[0][0] != 1 || f[0][2] != 1 || f[1][1] != 1 {
		t.Errorf("unexpected transition counts: %v", f)
	}
	var total float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			total += f[i][j]
		}
	}
	if total != 3 {
		t.Errorf("total counted columns = %g, want 3 (gap columns excluded)", total)
	}
}

func TestCalcTransFreq3Seq(t *testing.T) {
	out := mustSeq(t, "AACG")
	a := mustSeq(t, "AACG")
	b := mustSeq(t, "AATG")
	f := CalcTransFreq3Seq(out, a, b)
	// column 2: tips disagree, outgroup sides with a: ancestral C, change C->T.
	if f[1][3] != 1 {
		t.Errorf("expected one C->T change, got %v", f)
	}
	if f[0][0] != 2 || f[2][2] != 1 {
		t.Errorf("expected unchanged columns on the diagonal, got %v", f)
	}
}

func TestCalcBaseFreq(t *testing.T) {
	s := mustSeq(t, "AAC-GT-T")
	f := CalcBaseFreq(s)
	if f != (Vector4{2, 1, 1, 2}) {
		t.Errorf("CalcBaseFreq = %v", f)
	}
}
