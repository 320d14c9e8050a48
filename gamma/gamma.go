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

// Package gamma implements the discrete-Gamma model of among-site rate
// heterogeneity: Gamma(alpha, alpha) partitioned into K equal-probability
// cells, each represented by its conditional mean rate, so the mean of
// the K rates is 1 (Yang 1994).
package gamma

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrBroken is returned when a persisted model is truncated.
var ErrBroken = errors.New("gamma: truncated data")

// Model is a K-category discretization of Gamma(alpha, alpha).
type Model struct {
	alpha float64
	k     int
	b     []float64 // K+1 cell boundaries, b[0]=0, b[K]=+Inf
	r     []float64 // K representative rates, mean 1
}

// New returns a discrete-Gamma model with k categories and shape alpha.
func New(k int, alpha float64) *Model {
	m := &Model{alpha: alpha, k: k}
	m.setBreaks()
	m.setRates()
	return m
}

// K returns the number of rate categories.
func (m *Model) K() int { return m.k }

// Shape returns the shape parameter alpha.
func (m *Model) Shape() float64 { return m.alpha }

// SetShape re-discretizes the model for a new shape parameter.
func (m *Model) SetShape(alpha float64) {
	m.alpha = alpha
	m.setBreaks()
	m.setRates()
}

// Rate returns the representative rate of category k.
func (m *Model) Rate(k int) float64 { return m.r[k] }

// Rates returns all K representative rates.
func (m *Model) Rates() []float64 { return m.r }

// setBreaks computes the K-1 interior cell boundaries of Gamma(alpha,
// alpha) using the chi-squared(df=2*alpha) inverse-CDF approximation
// (Yang 1994b), partitioning [0, Inf) into K equal-probability cells.
func (m *Model) setBreaks() {
	m.b = make([]float64, m.k+1)
	m.b[0] = 0
	m.b[m.k] = math.Inf(1)
	for k := 1; k < m.k; k++ {
		p := float64(k) / float64(m.k)
		m.b[k] = pointChi2(p, 2*m.alpha) / (2 * m.alpha)
	}
}

// setRates computes each cell's conditional mean of Gamma(alpha, alpha).
// With lnGamma(alpha+1) precomputed, the mean of cell [b0, b1) is
// K * (P(alpha+1, b1*alpha) - P(alpha+1, b0*alpha)) where P is the
// regularized lower incomplete gamma.
func (m *Model) setRates() {
	m.r = make([]float64, m.k)
	lnga1, _ := math.Lgamma(m.alpha + 1)
	prev := 0.0
	for k := 0; k < m.k; k++ {
		var cum float64
		if k == m.k-1 {
			cum = 1
		} else {
			cum = incompleteGamma(m.b[k+1]*m.alpha, m.alpha+1, lnga1)
		}
		m.r[k] = (cum - prev) * float64(m.k)
		prev = cum
	}
}

// EstimateShape estimates the shape parameter from a sample of per-site
// observed change counts using the named method. Only "moment" is
// recognized; other methods return 0 as a sentinel.
func EstimateShape(x []float64, method string) float64 {
	if method == "moment" {
		return estimateShapeMoment(x)
	}
	return 0
}

// estimateShapeMoment is the method-of-moments estimator under a
// negative-binomial model of observed changes: alpha = mean^2 /
// (variance - mean). Returns 0 when the sample shows no overdispersion.
func estimateShapeMoment(x []float64) float64 {
	n := float64(len(x))
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= n
	var varSum float64
	for _, v := range x {
		d := v - mean
		varSum += d * d
	}
	variance := varSum / (n - 1)
	if variance <= mean {
		return 0
	}
	return mean * mean / (variance - mean)
}

// Save writes the model as K, alpha, boundaries and rates.
func (m *Model) Save(w io.Writer) error {
	be := binary.BigEndian
	if err := binary.Write(w, be, int32(m.k)); err != nil {
		return err
	}
	if err := binary.Write(w, be, m.alpha); err != nil {
		return err
	}
	if err := binary.Write(w, be, m.b); err != nil {
		return err
	}
	return binary.Write(w, be, m.r)
}

// Load reads a model previously written by Save.
func Load(r io.Reader) (*Model, error) {
	be := binary.BigEndian
	var k32 int32
	if err := binary.Read(r, be, &k32); err != nil {
		return nil, ErrBroken
	}
	m := &Model{k: int(k32)}
	if err := binary.Read(r, be, &m.alpha); err != nil {
		return nil, ErrBroken
	}
	m.b = make([]float64, m.k+1)
	if err := binary.Read(r, be, m.b); err != nil {
		return nil, ErrBroken
	}
	m.r = make([]float64, m.k)
	if err := binary.Read(r, be, m.r); err != nil {
		return nil, ErrBroken
	}
	return m, nil
}
