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

package gamma

import (
	"bytes"
	"math"
	"testing"
)

func TestRateMeanIsOne(t *testing.T) {
	for _, k := range []int{2, 4, 8} {
		for _, alpha := range []float64{0.2, 0.5, 1.0, 2.0, 10.0} {
			m := New(k, alpha)
			var mean float64
			for _, r := range m.Rates() {
				mean += r
			}
			mean /= float64(k)
			if math.Abs(mean-1) > 1e-9 {
				t.Errorf("K=%d alpha=%g: mean rate = %.12f, want 1", k, alpha, mean)
			}
		}
	}
}

func TestRatesIncreasing(t *testing.T) {
	m := New(4, 0.5)
	rates := m.Rates()
	for k := 1; k < len(rates); k++ {
		if rates[k] <= rates[k-1] {
			t.Errorf("rates not increasing: %v", rates)
		}
	}
	if rates[0] <= 0 {
		t.Errorf("lowest rate %g should be positive", rates[0])
	}
}

func TestSetShape(t *testing.T) {
	m := New(4, 0.5)
	low := m.Rate(0)
	m.SetShape(50)
	// with a large shape the distribution concentrates near 1, so the
	// lowest category rate moves up.
	if m.Rate(0) <= low {
		t.Errorf("rate(0) did not increase with shape: %g -> %g", low, m.Rate(0))
	}
	if m.Shape() != 50 {
		t.Errorf("Shape() = %g", m.Shape())
	}
}

func TestIncompleteGamma(t *testing.T) {
	lg1, _ := math.Lgamma(1.0)
	// P(1, x) = 1 - e^-x for the unit exponential.
	for _, x := range []float64{0.1, 0.5, 1, 2, 5} {
		got := incompleteGamma(x, 1, lg1)
		want := 1 - math.Exp(-x)
		if math.Abs(got-want) > 1e-8 {
			t.Errorf("P(1, %g) = %.10f, want %.10f", x, got, want)
		}
	}
}

func TestPointChi2(t *testing.T) {
	// median of chi-squared(2) is 2*ln(2).
	got := pointChi2(0.5, 2)
	want := 2 * math.Ln2
	if math.Abs(got-want) > 1e-5 {
		t.Errorf("chi2(0.5, 2) = %g, want %g", got, want)
	}
	// quantile and CDF must be inverses.
	for _, df := range []float64{0.5, 1, 4, 10} {
		for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
			x := pointChi2(p, df)
			lg, _ := math.Lgamma(df / 2)
			back := incompleteGamma(x/2, df/2, lg)
			if math.Abs(back-p) > 1e-5 {
				t.Errorf("df=%g p=%g: CDF(quantile) = %g", df, p, back)
			}
		}
	}
}

func TestEstimateShape(t *testing.T) {
	// overdispersed counts: mean 2, variance > mean.
	x := []float64{0, 0, 1, 1, 2, 2, 3, 7}
	alpha := EstimateShape(x, "moment")
	if alpha <= 0 {
		t.Errorf("moment estimator returned %g for an overdispersed sample", alpha)
	}
	if got := EstimateShape(x, "mle"); got != 0 {
		t.Errorf("unknown method should return the 0 sentinel, got %g", got)
	}
	if got := EstimateShape([]float64{1, 1, 1, 1}, "moment"); got != 0 {
		t.Errorf("non-overdispersed sample should return 0, got %g", got)
	}
}

func TestSaveLoad(t *testing.T) {
	m := New(4, 0.7)
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatal(err)
	}
	m2, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if m2.K() != m.K() || m2.Shape() != m.Shape() {
		t.Fatalf("round trip changed K/alpha: %d/%g", m2.K(), m2.Shape())
	}
	for k := 0; k < m.K(); k++ {
		if m.Rate(k) != m2.Rate(k) {
			t.Errorf("rate %d differs after round trip", k)
		}
	}
}
