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

package phylotree

import "math"

// BranchEps is the convergence threshold of the iterative branch-length
// optimizers.
const BranchEps = 1e-5

// siteEstimate returns, for site j, the posterior weight of "at least
// one substitution" on the u-v branch given prior (p0, q0). NaN sites
// are reported through ok=false and excluded by the callers.
func (t *Tree) siteEstimate(u, v *Node, j int, p0, q0 float64) (float64, bool) {
	pi := t.model.Pi()
	lu := t.getBranch(u, v).loglik[j]
	lv := t.getBranch(v, u).loglik[j]
	logA := dotProductScaledVec(pi, addV4(lu, lv))
	logB := dotProductScaledVec(pi, lu) + dotProductScaledVec(pi, lv)
	if math.IsNaN(logA) || math.IsNaN(logB) {
		return 0, false
	}
	scale := math.Max(logA, logB)
	logA -= scale
	logB -= scale
	return math.Exp(logB) * p0 / (math.Exp(logA)*q0 + math.Exp(logB)*p0), true
}

// EstimateBranchLength returns a quick starting estimate for the u-v
// branch length from the two directed caches: the mean per-site
// posterior probability of change under an uninformative prior. Both
// caches must be evaluated; v must be u's parent.
func (t *Tree) EstimateBranchLength(u, v *Node, start, end int) float64 {
	var p float64
	n := 0
	for j := start; j <= end; j++ {
		e, ok := t.siteEstimate(u, v, j, 0.5, 0.5)
		if !ok {
			continue
		}
		p += e
		n++
	}
	return p / float64(n)
}

// OptimizeBranchLength runs Felsenstein's iterative EM on the u-v branch
// over sites [start, end], writes the optimized length back and returns
// it. Both directed caches must be evaluated; v must be u's parent.
func (t *Tree) OptimizeBranchLength(u, v *Node, start, end int) float64 {
	w0 := t.EstimateBranchLength(u, v, start, end)

	q0 := math.Exp(-w0)
	p0 := 1 - q0
	p, q := p0, q0

	for p >= 0 && p <= 1 {
		p = 0
		n := 0
		for j := start; j <= end; j++ {
			e, ok := t.siteEstimate(u, v, j, p0, q0)
			if !ok {
				continue
			}
			p += e
			n++
		}
		p /= float64(n)
		q = 1 - p

		if math.Abs(math.Log(q)-math.Log(q0)) < BranchEps {
			break
		}
		p0, q0 = p, q
	}

	w := -math.Log(q)
	t.setBranchLength(u, v, w)
	return w
}

// OptimizeBranchLengthClamped is OptimizeBranchLength starting from the
// branch's current length and clamping the result to maxL.
func (t *Tree) OptimizeBranchLengthClamped(u, v *Node, maxL float64, start, end int) float64 {
	w0 := t.BranchLength(u, v)

	q0 := math.Exp(-w0)
	p0 := 1 - q0
	p, q := p0, q0

	for p >= 0 && p <= 1 {
		p = 0
		n := 0
		for j := start; j <= end; j++ {
			e, ok := t.siteEstimate(u, v, j, p0, q0)
			if !ok {
				continue
			}
			p += e
			n++
		}
		p /= float64(n)
		q = 1 - p

		if math.Abs(q-q0) < BranchEps {
			break
		}
		p0, q0 = p, q
	}

	w := -math.Log(q)
	if w > maxL {
		w = maxL
	}
	t.setBranchLength(u, v, w)
	return w
}

// OptimizeBranchLength3 jointly optimizes the two branches around the
// middle node r between u (child of r) and v (parent of r), holding
// their total length constant: u-r is optimized with the total as cap,
// v-r absorbs the remainder, the dependent caches are invalidated and
// re-evaluated, and the process repeats to convergence. With doUpdate
// set, the r->v cache is also invalidated and the tree re-evaluated with
// v as root after each half-step; other caches are not invalidated.
// Returns the converged u-r share of the total length. The original
// root is restored before returning.
func (t *Tree) OptimizeBranchLength3(u, r, v *Node, start, end int, doUpdate bool) float64 {
	oldRoot := t.root

	wur0 := t.BranchLength(u, r)
	wvr0 := t.BranchLength(v, r)
	w0 := wur0 + wvr0

	wur := wur0

	// w(u,r) depends on loglik(r->u); w(v,r) depends on loglik(r->v).
	for 0 <= wur && wur <= w0 {
		t.SetRoot(r)

		wur = t.OptimizeBranchLengthClamped(u, r, w0, start, end)

		if doUpdate {
			t.ResetLoglik(r, v)
			t.SetRoot(v)
			t.Evaluate()
		}

		t.setBranchLength(v, r, w0-wur)

		t.SetRoot(r)
		t.ResetLoglik(r, u)
		t.SetRoot(u)
		t.Evaluate()

		if math.Abs(wur-wur0) < BranchEps {
			break
		}
		wur0 = wur
	}
	t.SetRoot(oldRoot)

	return wur / w0
}
