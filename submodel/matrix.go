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

import "math"

// Vector4 is a stationary/frequency/likelihood vector over {A,C,G,T}.
type Vector4 [4]float64

// Dot returns the ordinary dot product.
func (v Vector4) Dot(u Vector4) float64 {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2] + v[3]*u[3]
}

// Matrix4x4 is a row-major 4x4 matrix, used for both rate matrices (Q)
// and transition-probability matrices (Pr(t)).
type Matrix4x4 [4][4]float64

// Mul returns m*n.
func (m Matrix4x4) Mul(n Matrix4x4) Matrix4x4 {
	var out Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Scale returns m*s.
func (m Matrix4x4) Scale(s float64) Matrix4x4 {
	var out Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][j] * s
		}
	}
	return out
}

// Add returns m+n.
func (m Matrix4x4) Add(n Matrix4x4) Matrix4x4 {
	var out Matrix4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][j] + n[i][j]
		}
	}
	return out
}

// Identity4 returns the 4x4 identity matrix.
func Identity4() Matrix4x4 {
	var m Matrix4x4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// maxAbsRowSum returns max_i sum_j |m[i][j]|, used to pick a scaling
// exponent for the scaling-and-squaring matrix exponential.
func (m Matrix4x4) maxAbsRowSum() float64 {
	var maxSum float64
	for i := 0; i < 4; i++ {
		var s float64
		for j := 0; j < 4; j++ {
			s += math.Abs(m[i][j])
		}
		if s > maxSum {
			maxSum = s
		}
	}
	return maxSum
}

// Expm computes exp(m) via scaling-and-squaring: m is halved until its
// norm is small, a truncated Taylor series is evaluated there, and the
// result is squared back up. This is the generic numerical backbone
// of GTR's and HKY85's Pr(t) = exp(Q*t) (F81 uses its closed form
// instead); it keeps Pr(t) stable for
// t across the whole [0,100] working range, since the scaling step keeps
// the series argument's norm below 1 regardless of t.
func (m Matrix4x4) Expm() Matrix4x4 {
	norm := m.maxAbsRowSum()
	s := 0
	for norm > 0.5 {
		norm /= 2
		s++
	}
	scaled := m.Scale(1 / math.Pow(2, float64(s)))

	// Taylor series exp(A) = sum_{k=0}^{terms} A^k / k!
	const terms = 18
	result := Identity4()
	term := Identity4()
	for k := 1; k <= terms; k++ {
		term = term.Mul(scaled).Scale(1 / float64(k))
		result = result.Add(term)
	}

	for i := 0; i < s; i++ {
		result = result.Mul(result)
	}
	return result
}
