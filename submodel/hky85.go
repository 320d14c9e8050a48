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
	"fmt"
	"io"
	"math"

	"github.com/shenwei356/csfmple/digitalseq"
)

// HKY85 is the Hasegawa-Kishino-Yano 1985 model: unequal base
// frequencies plus a transition/transversion rate ratio kappa.
type HKY85 struct {
	pi    Vector4
	kappa float64

	q Matrix4x4 // normalized rate matrix, mean substitution rate 1
}

// NewHKY85 returns an HKY85 model with the given stationary frequencies
// and transition/transversion ratio.
func NewHKY85(pi Vector4, kappa float64) *HKY85 {
	m := &HKY85{pi: pi, kappa: kappa}
	m.setQ()
	return m
}

// isTransition reports whether the i<->j substitution is a transition
// (A<->G or C<->T under the A,C,G,T coding).
func isTransition(i, j int) bool {
	return i != j && (i+j == 2 || i+j == 4)
}

func (m *HKY85) setQ() {
	var q Matrix4x4
	for i := 0; i < 4; i++ {
		var rowSum float64
		for j := 0; j < 4; j++ {
			if i == j {
				continue
			}
			r := 1.0
			if isTransition(i, j) {
				r = m.kappa
			}
			q[i][j] = r * m.pi[j]
			rowSum += q[i][j]
		}
		q[i][i] = -rowSum
	}
	var mu float64
	for i := 0; i < 4; i++ {
		mu -= m.pi[i] * q[i][i]
	}
	m.q = q.Scale(1 / mu)
}

// Type returns "HKY85".
func (m *HKY85) Type() string { return "HKY85" }

// Pi returns the stationary base frequencies.
func (m *HKY85) Pi() Vector4 { return m.pi }

// Pr returns exp(Q*t) via scaling-and-squaring.
func (m *HKY85) Pr(t float64) Matrix4x4 {
	return m.q.Scale(t).Expm()
}

// SubDist uses the Kimura two-parameter correction computed from the
// observed transition (P) and transversion (Q) proportions:
// d = -1/2*ln(1-2P-Q) - 1/4*ln(1-2Q). Saturated pairs map to +Inf.
func (m *HKY85) SubDist(a, b digitalseq.DigitalSeq, start, end int) float64 {
	var ts, tv, n float64
	for j := start; j <= end; j++ {
		if a[j] < 0 || b[j] < 0 {
			continue
		}
		n++
		if a[j] == b[j] {
			continue
		}
		if isTransition(int(a[j]), int(b[j])) {
			ts++
		} else {
			tv++
		}
	}
	if n == 0 {
		return 0
	}
	p := ts / n
	q := tv / n
	x := 1 - 2*p - q
	y := 1 - 2*q
	if x <= 0 || y <= 0 {
		return math.Inf(1)
	}
	return -0.5*math.Log(x) - 0.25*math.Log(y)
}

// Write emits the "pi:" line followed by the "kappa:" line.
func (m *HKY85) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "pi: %g %g %g %g\n", m.pi[0], m.pi[1], m.pi[2], m.pi[3]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "kappa: %g\n", m.kappa)
	return err
}

// Read parses the parameter block written by Write.
func (m *HKY85) Read(r io.Reader) error {
	if _, err := fmt.Fscanf(r, "pi: %g %g %g %g\n", &m.pi[0], &m.pi[1], &m.pi[2], &m.pi[3]); err != nil {
		return fmt.Errorf("submodel: malformed HKY85 parameters: %w", err)
	}
	if _, err := fmt.Fscanf(r, "kappa: %g\n", &m.kappa); err != nil {
		return fmt.Errorf("submodel: malformed HKY85 parameters: %w", err)
	}
	m.setQ()
	return nil
}
