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

import "math"

// pointNormal returns the standard-normal quantile for lower-tail
// probability p, using the rational approximation of Odeh & Evans
// (1974), accurate to about 7 decimal digits.
func pointNormal(p float64) float64 {
	const (
		a0 = -0.322232431088
		a1 = -1.0
		a2 = -0.342242088547
		a3 = -0.0204231210245
		a4 = -0.453642210148e-4
		b0 = 0.0993484626060
		b1 = 0.588581570495
		b2 = 0.531103462366
		b3 = 0.103537752850
		b4 = 0.0038560700634
	)
	p1 := p
	if p1 > 0.5 {
		p1 = 1 - p
	}
	if p1 < 1e-20 {
		if p < 0.5 {
			return -999
		}
		return 999
	}
	y := math.Sqrt(math.Log(1 / (p1 * p1)))
	z := y + ((((y*a4+a3)*y+a2)*y+a1)*y+a0)/((((y*b4+b3)*y+b2)*y+b1)*y+b0)
	if p < 0.5 {
		return -z
	}
	return z
}

// pointChi2 returns the chi-squared quantile for lower-tail probability
// p and df degrees of freedom, following Best & Roberts (1975, AS 91):
// a starting approximation refined by Newton steps against the
// regularized incomplete gamma.
func pointChi2(p, df float64) float64 {
	const (
		e  = 0.5e-6
		aa = 0.6931471805599453 // ln 2
	)
	if p < 0.000002 {
		return 0
	}
	if p > 0.999998 {
		p = 0.999998
	}
	g, _ := math.Lgamma(df / 2)
	xx := df / 2
	c := xx - 1

	var ch float64
	switch {
	case df < -1.24*math.Log(p):
		ch = math.Pow(p*xx*math.Exp(g+xx*aa), 2/df)
		if ch < e {
			return ch
		}
	case df <= 0.32:
		ch = 0.4
		a := math.Log(1 - p)
		for {
			q := ch
			p1 := 1 + ch*(4.67+ch)
			p2 := ch * (6.73 + ch*(6.66+ch))
			t := -0.5 + (4.67+2*ch)/p1 - (6.73+ch*(13.32+3*ch))/p2
			ch -= (1 - math.Exp(a+g+0.5*ch+c*aa)*p2/p1) / t
			if math.Abs(q/ch-1) <= 0.01 {
				break
			}
		}
	default:
		x := pointNormal(p)
		p1 := 0.222222 / df
		ch = df * math.Pow(x*math.Sqrt(p1)+1-p1, 3)
		if ch > 2.2*df+6 {
			ch = -2 * (math.Log(1-p) - c*math.Log(0.5*ch) + g)
		}
	}

	for {
		q := ch
		p1 := 0.5 * ch
		t := incompleteGamma(p1, xx, g)
		if t < 0 {
			return -1
		}
		p2 := p - t
		t = p2 * math.Exp(xx*aa+g+p1-c*math.Log(ch))
		b := t / ch
		a := 0.5*t - b*c
		s1 := (210 + a*(140+a*(105+a*(84+a*(70+60*a))))) / 420
		s2 := (420 + a*(735+a*(966+a*(1141+1278*a)))) / 2520
		s3 := (210 + a*(462+a*(707+932*a))) / 2520
		s4 := (252 + a*(672+1182*a) + c*(294+a*(889+1740*a))) / 5040
		s5 := (84 + 264*a + c*(175+606*a)) / 2520
		s6 := (120 + c*(346+127*c)) / 5040
		ch += t * (1 + 0.5*t*s1 - b*c*(s1-b*(s2-b*(s3-b*(s4-b*(s5-b*s6))))))
		if math.Abs(q/ch-1) <= e {
			return ch
		}
	}
}

// incompleteGamma returns the regularized lower incomplete gamma
// P(alpha, x), given lnGammaAlpha = lnGamma(alpha), via the series
// expansion for small x and the continued fraction otherwise (AS 32).
func incompleteGamma(x, alpha, lnGammaAlpha float64) float64 {
	const (
		accurate = 1e-10
		overflow = 1e30
	)
	if x == 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	if x < 0 || alpha <= 0 {
		return -1
	}

	factor := math.Exp(alpha*math.Log(x) - x - lnGammaAlpha)

	if x <= 1 || x < alpha {
		// series expansion
		gin, term, rn := 1.0, 1.0, alpha
		for term > accurate {
			rn++
			term *= x / rn
			gin += term
		}
		return gin * factor / alpha
	}

	// continued fraction
	a := 1 - alpha
	b := a + x + 1
	var term float64
	pn := [6]float64{1, x, x + 1, x * b}
	gin := pn[2] / pn[3]
	for {
		a++
		b += 2
		term++
		an := a * term
		for i := 0; i < 2; i++ {
			pn[i+4] = b*pn[i+2] - an*pn[i]
		}
		if pn[5] != 0 {
			rn := pn[4] / pn[5]
			dif := math.Abs(gin - rn)
			if dif <= accurate && dif <= accurate*rn {
				break
			}
			gin = rn
		}
		for i := 0; i < 4; i++ {
			pn[i] = pn[i+2]
		}
		if math.Abs(pn[4]) >= overflow {
			for i := 0; i < 4; i++ {
				pn[i] /= overflow
			}
		}
	}
	return 1 - factor*gin
}
