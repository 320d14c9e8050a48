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

// F81 is the Felsenstein 1981 model: unequal base frequencies, a single
// exchange rate. Its Pr(t) has a closed form, so no matrix exponential
// is needed.
type F81 struct {
	pi   Vector4
	beta float64 // 1/(1 - sum pi^2), scales time so the mean rate is 1
}

// NewF81 returns an F81 model with the given stationary frequencies.
func NewF81(pi Vector4) *F81 {
	m := &F81{pi: pi}
	m.setBeta()
	return m
}

func (m *F81) setBeta() {
	var s float64
	for _, p := range m.pi {
		s += p * p
	}
	m.beta = 1 / (1 - s)
}

// Type returns "F81".
func (m *F81) Type() string { return "F81" }

// Pi returns the stationary base frequencies.
func (m *F81) Pi() Vector4 { return m.pi }

// Pr returns the closed-form F81 transition matrix:
// P_ij(t) = e^(-beta*t)*delta_ij + (1-e^(-beta*t))*pi_j.
func (m *F81) Pr(t float64) Matrix4x4 {
	e := math.Exp(-m.beta * t)
	var p Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			p[i][j] = (1 - e) * m.pi[j]
			if i == j {
				p[i][j] += e
			}
		}
	}
	return p
}

// SubDist is the F81 distance correction d = -B*ln(1 - p/B) with
// B = 1 - sum pi^2. Saturated pairs (p >= B) map to +Inf.
func (m *F81) SubDist(a, b digitalseq.DigitalSeq, start, end int) float64 {
	p := PDist(a, b, start, end)
	bb := 1 / m.beta
	if p >= bb {
		return math.Inf(1)
	}
	return -bb * math.Log(1-p/bb)
}

// Write emits the single parameter line "pi: A C G T".
func (m *F81) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "pi: %g %g %g %g\n", m.pi[0], m.pi[1], m.pi[2], m.pi[3])
	return err
}

// Read parses the parameter block written by Write.
func (m *F81) Read(r io.Reader) error {
	if _, err := fmt.Fscanf(r, "pi: %g %g %g %g\n", &m.pi[0], &m.pi[1], &m.pi[2], &m.pi[3]); err != nil {
		return fmt.Errorf("submodel: malformed F81 parameters: %w", err)
	}
	m.setBeta()
	return nil
}
