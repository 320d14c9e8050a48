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

// GTR is the general time-reversible model: unequal base frequencies and
// six symmetric exchangeability parameters (AC, AG, AT, CG, CT, GT).
type GTR struct {
	pi Vector4
	// rate holds the six upper-triangle exchangeabilities in the order
	// AC, AG, AT, CG, CT, GT.
	rate [6]float64

	q Matrix4x4 // normalized rate matrix, mean substitution rate 1
}

// NewGTR returns a GTR model with the given stationary frequencies and
// exchangeabilities (AC, AG, AT, CG, CT, GT).
func NewGTR(pi Vector4, rate [6]float64) *GTR {
	m := &GTR{pi: pi, rate: rate}
	m.setQ()
	return m
}

// rateIdx maps the (i,j) base pair, i < j, to its exchangeability slot.
var rateIdx = [4][4]int{
	{0, 0, 1, 2},
	{0, 0, 3, 4},
	{1, 3, 0, 5},
	{2, 4, 5, 0},
}

// setQ assembles Q_ij = r_ij * pi_j, fills the diagonal with negative
// row sums, and rescales so the expected substitution rate is 1.
func (m *GTR) setQ() {
	var q Matrix4x4
	for i := 0; i < 4; i++ {
		var rowSum float64
		for j := 0; j < 4; j++ {
			if i == j {
				continue
			}
			q[i][j] = m.rate[rateIdx[i][j]] * m.pi[j]
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

// Type returns "GTR".
func (m *GTR) Type() string { return "GTR" }

// Pi returns the stationary base frequencies.
func (m *GTR) Pi() Vector4 { return m.pi }

// Pr returns exp(Q*t) via scaling-and-squaring.
func (m *GTR) Pr(t float64) Matrix4x4 {
	return m.q.Scale(t).Expm()
}

// SubDist is the paralinear (log-det) distance, the standard correction
// for time-reversible models with arbitrary exchangeabilities:
// d = -1/4 * (ln det F - 1/2 * ln(prod fa_i * prod fb_i)),
// where F is the joint observed base-pair frequency matrix and fa, fb the
// marginal frequencies. Degenerate pairs map to +Inf.
func (m *GTR) SubDist(a, b digitalseq.DigitalSeq, start, end int) float64 {
	var f Matrix4x4
	var n float64
	for j := start; j <= end; j++ {
		if a[j] < 0 || b[j] < 0 {
			continue
		}
		f[a[j]][b[j]]++
		n++
	}
	if n == 0 {
		return 0
	}
	var fa, fb Vector4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			f[i][j] /= n
			fa[i] += f[i][j]
			fb[j] += f[i][j]
		}
	}
	det := f.det()
	if det <= 0 {
		return math.Inf(1)
	}
	var logMarg float64
	for i := 0; i < 4; i++ {
		if fa[i] <= 0 || fb[i] <= 0 {
			return math.Inf(1)
		}
		logMarg += math.Log(fa[i]) + math.Log(fb[i])
	}
	d := -0.25 * (math.Log(det) - 0.5*logMarg)
	if d < 0 {
		return 0
	}
	return d
}

// Write emits the "pi:" line followed by the "rate:" exchangeability line.
func (m *GTR) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "pi: %g %g %g %g\n", m.pi[0], m.pi[1], m.pi[2], m.pi[3]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "rate: %g %g %g %g %g %g\n",
		m.rate[0], m.rate[1], m.rate[2], m.rate[3], m.rate[4], m.rate[5])
	return err
}

// Read parses the parameter block written by Write.
func (m *GTR) Read(r io.Reader) error {
	if _, err := fmt.Fscanf(r, "pi: %g %g %g %g\n", &m.pi[0], &m.pi[1], &m.pi[2], &m.pi[3]); err != nil {
		return fmt.Errorf("submodel: malformed GTR parameters: %w", err)
	}
	if _, err := fmt.Fscanf(r, "rate: %g %g %g %g %g %g\n",
		&m.rate[0], &m.rate[1], &m.rate[2], &m.rate[3], &m.rate[4], &m.rate[5]); err != nil {
		return fmt.Errorf("submodel: malformed GTR parameters: %w", err)
	}
	m.setQ()
	return nil
}

// det returns the determinant by cofactor expansion along the first row.
func (m Matrix4x4) det() float64 {
	det3 := func(a, b, c, d, e, f, g, h, i float64) float64 {
		return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	}
	return m[0][0]*det3(m[1][1], m[1][2], m[1][3], m[2][1], m[2][2], m[2][3], m[3][1], m[3][2], m[3][3]) -
		m[0][1]*det3(m[1][0], m[1][2], m[1][3], m[2][0], m[2][2], m[2][3], m[3][0], m[3][2], m[3][3]) +
		m[0][2]*det3(m[1][0], m[1][1], m[1][3], m[2][0], m[2][1], m[2][3], m[3][0], m[3][1], m[3][3]) -
		m[0][3]*det3(m[1][0], m[1][1], m[1][2], m[2][0], m[2][1], m[2][2], m[3][0], m[3][1], m[3][2])
}
