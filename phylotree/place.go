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
	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/submodel"
)

// EstimateSeq scores an aligned query against the u-v edge without
// mutating the tree: the two directed caches are convolved to the edge
// midpoint, the query's leaf contribution is added, and the per-site
// results are summed under pi. Used to rank candidate edges before
// committing to a full placement. v must be u's parent and both directed
// caches must be evaluated.
func (t *Tree) EstimateSeq(seq digitalseq.DigitalSeq, u, v *Node, start, end int) float64 {
	w := t.BranchLength(u, v)
	pr := t.model.Pr(w / 2)
	var treeLik float64
	for j := start; j <= end; j++ {
		loglik := addV4(
			dotProductScaledMat(pr, t.getBranchLoglikAt(u, v, j)),
			dotProductScaledMat(pr, t.getBranchLoglikAt(v, u, j)),
		)
		loglik = addV4(loglik, t.leafContribution(seq[j]))
		treeLik += dotProductScaledVec(t.model.Pi(), loglik)
	}
	return treeLik
}

// PlaceSeq splices a new leaf carrying the aligned query seq onto the
// u-v edge (v must be u's parent): the edge is split at a new interior
// node r placed at its midpoint, the old directed caches are inherited
// by the two halves, the new leaf n is attached to r, and the three
// incident branch lengths are optimized (n-r alone, then u-r/v-r
// jointly under their conserved total). Returns the whole-tree
// log-likelihood over [start, end] with r as root; the tree gains
// exactly two nodes, and the u-v edge is replaced by the three edges
// u-r, v-r and n-r (a net gain of two undirected edges).
func (t *Tree) PlaceSeq(seq digitalseq.DigitalSeq, u, v *Node, start, end int) float64 {
	w0 := t.BranchLength(u, v)
	oldUV := t.getBranch(u, v)
	oldVU := t.getBranch(v, u)
	t.removeEdge(u, v)

	r := &Node{id: int64(len(t.nodes)), name: v.name}
	n := &Node{id: int64(len(t.nodes)) + 1, name: v.name, seq: seq}
	n.parent = r
	u.parent = r
	r.parent = v
	t.nodes = append(t.nodes, r, n)

	// the halves keep the old edge's caches: the conditional loglik of
	// a subtree does not depend on the length of its own top branch.
	t.addEdge(u, r)
	t.addEdge(v, r)
	t.setBranch(u, r, oldUV)
	t.setBranch(v, r, oldVU)
	t.setBranchLength(u, r, w0*0.5)
	t.setBranchLength(v, r, w0*0.5)
	t.ResetLoglik(r, u)
	t.ResetLoglik(r, v)

	t.addEdge(n, r)
	t.ResetLoglik(r, n)
	t.ResetLoglik(n, r)

	t.SetRoot(n)
	t.Evaluate() // r->n
	t.SetRoot(r)
	t.Evaluate() // n->r
	t.OptimizeBranchLength(n, r, start, end)
	t.SetRoot(u)
	t.Evaluate() // r->u
	t.SetRoot(v)
	t.Evaluate() // r->v

	t.OptimizeBranchLength3(u, r, v, start, end, false)
	t.SetRoot(r)

	return t.TreeLoglik(start, end)
}

// setBranch copies another branch record (length and a private copy of
// its cache) into the u->v slot.
func (t *Tree) setBranch(u, v *Node, src *branch) {
	dst := t.getBranch(u, v)
	dst.length = src.length
	if src.loglik == nil {
		dst.loglik = nil
		return
	}
	dst.loglik = make([]submodel.Vector4, len(src.loglik))
	copy(dst.loglik, src.loglik)
}

// Clone returns an independent copy of the tree sharing the (immutable)
// substitution and rate models and the bound sequences. Concurrent
// placements require one clone per worker.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		csLen:      t.csLen,
		nodes:      make([]*Node, len(t.nodes)),
		branches:   make(map[[2]int64]*branch, len(t.branches)),
		leafLoglik: t.leafLoglik,
		msaID2Node: make(map[int]*Node, len(t.msaID2Node)),
		model:      t.model,
		dg:         t.dg,
	}
	for i, u := range t.nodes {
		c.nodes[i] = &Node{id: u.id, name: u.name, seq: u.seq, anno: u.anno, annoDist: u.annoDist}
	}
	for i, u := range t.nodes {
		cu := c.nodes[i]
		if u.parent != nil {
			cu.parent = c.nodes[u.parent.id]
		}
		cu.neighbors = make([]*Node, len(u.neighbors))
		for k, v := range u.neighbors {
			cu.neighbors[k] = c.nodes[v.id]
		}
	}
	for key, b := range t.branches {
		nb := &branch{length: b.length}
		if b.loglik != nil {
			nb.loglik = make([]submodel.Vector4, len(b.loglik))
			copy(nb.loglik, b.loglik)
		}
		c.branches[key] = nb
	}
	for i, u := range t.msaID2Node {
		c.msaID2Node[i] = c.nodes[u.id]
	}
	c.root = c.nodes[t.root.id]
	return c
}
