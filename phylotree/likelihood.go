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

import (
	"math"
	"sync"

	"github.com/shenwei356/csfmple/gamma"
	"github.com/shenwei356/csfmple/submodel"
)

// MinLoglikExp is the lower clamp on log-space scaling factors, half of
// float64's minimum binary exponent, preventing underflow cascades in
// the scaled convolutions.
const MinLoglikExp = -1021.0 / 2

// dotProductScaledMat returns y with y[i] = log(sum_j P[i][j]*exp(v[j])),
// computed with the log-sum-exp trick: the max of v (clamped below at
// MinLoglikExp) is factored out before exponentiation.
func dotProductScaledMat(p submodel.Matrix4x4, v submodel.Vector4) submodel.Vector4 {
	scale := maxElem(v)
	if scale < MinLoglikExp {
		scale = MinLoglikExp
	}
	var e submodel.Vector4
	for j := 0; j < 4; j++ {
		e[j] = math.Exp(v[j] - scale)
	}
	var y submodel.Vector4
	for i := 0; i < 4; i++ {
		var s float64
		for j := 0; j < 4; j++ {
			s += p[i][j] * e[j]
		}
		y[i] = math.Log(s) + scale
	}
	return y
}

// dotProductScaledVec returns log(sum_i pi[i]*exp(v[i])), scaled the
// same way as dotProductScaledMat.
func dotProductScaledVec(pi, v submodel.Vector4) float64 {
	scale := maxElem(v)
	if scale < MinLoglikExp {
		scale = MinLoglikExp
	}
	var s float64
	for i := 0; i < 4; i++ {
		s += pi[i] * math.Exp(v[i]-scale)
	}
	return math.Log(s) + scale
}

// rowMeanExpScaled combines per-rate-category conditional logliks into
// log of the mean of exps across categories, shift-stabilized per row.
func rowMeanExpScaled(cols []submodel.Vector4) submodel.Vector4 {
	var y submodel.Vector4
	k := float64(len(cols))
	for i := 0; i < 4; i++ {
		scale := cols[0][i]
		for _, c := range cols[1:] {
			if c[i] > scale {
				scale = c[i]
			}
		}
		if scale < MinLoglikExp {
			scale = MinLoglikExp
		}
		var s float64
		for _, c := range cols {
			s += math.Exp(c[i] - scale)
		}
		y[i] = math.Log(s/k) + scale
	}
	return y
}

func maxElem(v submodel.Vector4) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func addV4(a, b submodel.Vector4) submodel.Vector4 {
	return submodel.Vector4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// poolRateCols recycles the per-site rate-category scratch columns.
var poolRateCols = &sync.Pool{New: func() interface{} {
	cols := make([]submodel.Vector4, 0, 8)
	return &cols
}}

// SetModel attaches a substitution model and re-derives the leaf
// log-likelihood table from its stationary distribution.
func (t *Tree) SetModel(m submodel.Model) {
	t.model = m
	t.initLeafLoglik()
}

// SetDG attaches (or removes, with nil) a discrete-Gamma rate model.
func (t *Tree) SetDG(dg *gamma.Model) { t.dg = dg }

// initLeafLoglik fills the 4x5 leaf table: identity (in log space) over
// the four observable bases and log(pi) for the gap column.
func (t *Tree) initLeafLoglik() {
	negInf := math.Inf(-1)
	for k := 0; k < 4; k++ {
		for b := 0; b < 4; b++ {
			if k == b {
				t.leafLoglik[k][b] = 0
			} else {
				t.leafLoglik[k][b] = negInf
			}
		}
	}
	if t.model == nil {
		for k := 0; k < 4; k++ {
			t.leafLoglik[k][4] = InvalidLoglik
		}
		return
	}
	pi := t.model.Pi()
	for k := 0; k < 4; k++ {
		t.leafLoglik[k][4] = math.Log(pi[k])
	}
}

// leafContribution returns the leaf table column for an observed state:
// the base's column for a residue, the gap column for the negative
// sentinel.
func (t *Tree) leafContribution(state int8) submodel.Vector4 {
	var v submodel.Vector4
	col := 4
	if state >= 0 {
		col = int(state)
	}
	for k := 0; k < 4; k++ {
		v[k] = t.leafLoglik[k][col]
	}
	return v
}

// InitBranchLoglik allocates every directed edge's conditional loglik
// cache, marked unevaluated. Must be called after LoadMSA (csLen known)
// and before any evaluation.
func (t *Tree) InitBranchLoglik() {
	for _, b := range t.branches {
		b.loglik = makeInvalid(t.csLen)
	}
}

func makeInvalid(n int) []submodel.Vector4 {
	m := make([]submodel.Vector4, n)
	for j := range m {
		m[j] = submodel.Vector4{InvalidLoglik, InvalidLoglik, InvalidLoglik, InvalidLoglik}
	}
	return m
}

// ResetLoglik invalidates the u->v cache.
func (t *Tree) ResetLoglik(u, v *Node) {
	b := t.getBranch(u, v)
	if b.loglik == nil {
		b.loglik = makeInvalid(t.csLen)
		return
	}
	for j := range b.loglik {
		b.loglik[j] = submodel.Vector4{InvalidLoglik, InvalidLoglik, InvalidLoglik, InvalidLoglik}
	}
}

// ResetAllLoglik invalidates every directed edge cache.
func (t *Tree) ResetAllLoglik() {
	for _, b := range t.branches {
		if b.loglik != nil {
			for j := range b.loglik {
				b.loglik[j] = submodel.Vector4{InvalidLoglik, InvalidLoglik, InvalidLoglik, InvalidLoglik}
			}
		}
	}
}

// IsEvaluated reports whether the whole u->v cache is evaluated.
func (t *Tree) IsEvaluated(u, v *Node) bool {
	if v == nil {
		return false
	}
	b, ok := t.branches[[2]int64{u.id, v.id}]
	if !ok || b.loglik == nil {
		return false
	}
	for j := range b.loglik {
		if b.loglik[j][0] == InvalidLoglik {
			return false
		}
	}
	return true
}

// isEvaluatedAt reports whether column j of the u->v cache is evaluated.
func (t *Tree) isEvaluatedAt(u, v *Node, j int) bool {
	if v == nil {
		return false
	}
	b, ok := t.branches[[2]int64{u.id, v.id}]
	return ok && b.loglik != nil && b.loglik[j][0] != InvalidLoglik
}

func (t *Tree) setBranchLoglikAt(u, v *Node, j int, val submodel.Vector4) {
	b := t.getBranch(u, v)
	if b.loglik == nil {
		b.loglik = makeInvalid(t.csLen)
	}
	b.loglik[j] = val
}

func (t *Tree) getBranchLoglikAt(u, v *Node, j int) submodel.Vector4 {
	return t.getBranch(u, v).loglik[j]
}

// loglikRated computes the conditional loglik at node for site j with a
// fixed relative rate r, accumulating each child's cached (or freshly
// evaluated) conditional loglik convolved over the connecting branch.
func (t *Tree) loglikRated(node *Node, j int, r float64) submodel.Vector4 {
	var v submodel.Vector4
	for _, c := range node.neighbors {
		if isChild(c, node) {
			lc := t.LoglikAt(c, j)
			p := t.model.Pr(t.BranchLength(node, c) * r)
			v = addV4(v, dotProductScaledMat(p, lc))
		}
	}
	if node.IsLeaf() && len(node.seq) > 0 {
		v = addV4(v, t.leafContribution(node.seq[j]))
	}
	return v
}

// LoglikAt returns the conditional loglik of node toward its current
// parent at site j, from cache when available. With a discrete-Gamma
// model attached, the K per-rate conditionals are combined through
// rowMeanExpScaled. Non-root results are cached.
func (t *Tree) LoglikAt(node *Node, j int) submodel.Vector4 {
	if t.isEvaluatedAt(node, node.parent, j) {
		return t.getBranchLoglikAt(node, node.parent, j)
	}
	var v submodel.Vector4
	if t.dg == nil {
		v = t.loglikRated(node, j, 1)
	} else {
		colsP := poolRateCols.Get().(*[]submodel.Vector4)
		cols := (*colsP)[:0]
		for k := 0; k < t.dg.K(); k++ {
			cols = append(cols, t.loglikRated(node, j, t.dg.Rate(k)))
		}
		v = rowMeanExpScaled(cols)
		*colsP = cols
		poolRateCols.Put(colsP)
	}
	if !node.IsRoot() {
		t.setBranchLoglikAt(node, node.parent, j, v)
	}
	return v
}

// Evaluate computes (and caches) the conditional logliks of every
// directed edge pointing toward the current root.
func (t *Tree) Evaluate() {
	for j := 0; j < t.csLen; j++ {
		t.EvaluateAt(t.root, j)
	}
}

// EvaluateAt evaluates the caches below node for site j.
func (t *Tree) EvaluateAt(node *Node, j int) {
	if t.isEvaluatedAt(node, node.parent, j) {
		return
	}
	for _, c := range node.neighbors {
		if isChild(c, node) {
			t.LoglikAt(c, j)
		}
	}
}

// TreeLoglikAt returns the per-site whole-tree log-likelihood at node:
// log(pi . exp(L_node(j))).
func (t *Tree) TreeLoglikAt(node *Node, j int) float64 {
	return dotProductScaledVec(t.model.Pi(), t.LoglikAt(node, j))
}

// TreeLoglik returns the whole-tree log-likelihood at the current root
// over sites [start, end] (inclusive, 0-based).
func (t *Tree) TreeLoglik(start, end int) float64 {
	var sum float64
	for j := start; j <= end; j++ {
		sum += t.TreeLoglikAt(t.root, j)
	}
	return sum
}

// TreeLoglikAll returns the whole-tree log-likelihood over every site.
func (t *Tree) TreeLoglikAll() float64 {
	return t.TreeLoglik(0, t.csLen-1)
}

// InferState returns node's most likely ancestral state at site j: the
// observed state for a leaf with a bound sequence, the argmax of the
// conditional loglik otherwise.
func (t *Tree) InferState(node *Node, j int) int8 {
	if len(node.seq) > 0 {
		return node.seq[j]
	}
	v := t.LoglikAt(node, j)
	var state int8
	best := v[0]
	for k := int8(1); k < 4; k++ {
		if v[k] > best {
			best = v[k]
			state = k
		}
	}
	return state
}

// EstimateNumMutations counts, at site j, the nodes whose inferred state
// differs from their parent's, a per-site observed-change sample for
// gamma shape estimation.
func (t *Tree) EstimateNumMutations(j int) int {
	n := 0
	for _, node := range t.nodes {
		if !node.IsRoot() && t.InferState(node, j) != t.InferState(node.parent, j) {
			n++
		}
	}
	return n
}
