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
	"math/rand"

	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/submodel"
)

// IsTip reports whether node is an internal node all of whose children
// are leaves.
func (t *Tree) IsTip(node *Node) bool {
	if node.IsLeaf() {
		return false
	}
	for _, c := range node.neighbors {
		if isChild(c, node) && !c.IsLeaf() {
			return false
		}
	}
	return true
}

// children returns node's children under the current rooting.
func (n *Node) children() []*Node {
	var cs []*Node
	for _, c := range n.neighbors {
		if isChild(c, n) {
			cs = append(cs, c)
		}
	}
	return cs
}

// firstChild returns the first child, nil if none.
func (n *Node) firstChild() *Node {
	for _, c := range n.neighbors {
		if isChild(c, n) {
			return c
		}
	}
	return nil
}

// lastChild returns the last child, nil if none.
func (n *Node) lastChild() *Node {
	for i := len(n.neighbors) - 1; i >= 0; i-- {
		if isChild(n.neighbors[i], n) {
			return n.neighbors[i]
		}
	}
	return nil
}

// randomLeaf descends from node to a leaf, choosing a child uniformly
// at each step.
func randomLeaf(node *Node, rng *rand.Rand) *Node {
	for !node.IsLeaf() {
		cs := node.children()
		if len(cs) == 0 {
			return node
		}
		node = cs[rng.Intn(len(cs))]
	}
	return node
}

// TrainingSetGoldman extracts observed base-transition count matrices
// from every tip with at least two leaf children (Goldman's two-sequence
// scheme), skipping pairs beyond submodel.MaxPDist.
func (t *Tree) TrainingSetGoldman() []submodel.Matrix4x4 {
	var data []submodel.Matrix4x4
	for _, node := range t.nodes {
		if t.IsTip(node) && len(node.neighbors) > 2 {
			seq1 := node.firstChild().seq
			seq2 := node.lastChild().seq
			if submodel.PDist(seq1, seq2, 0, minLen(seq1, seq2)-1) <= submodel.MaxPDist {
				data = append(data, submodel.CalcTransFreq2Seq(seq1, seq2))
			}
		}
	}
	return data
}

// TrainingSetGojobori extracts directional transition counts using
// Gojobori's three-sequence scheme: at every node with exactly two
// children one of which is a tip, the tip's two leaf sequences are
// polarized by a random outgroup leaf under the other child.
func (t *Tree) TrainingSetGojobori(rng *rand.Rand) []submodel.Matrix4x4 {
	var data []submodel.Matrix4x4
	for _, node := range t.nodes {
		cs := node.children()
		if len(cs) != 2 || !(t.IsTip(cs[0]) || t.IsTip(cs[1])) {
			continue
		}
		tipChild, outerChild := cs[0], cs[1]
		if !t.IsTip(tipChild) {
			tipChild, outerChild = outerChild, tipChild
		}
		seq0 := randomLeaf(outerChild, rng).seq
		seq1 := tipChild.firstChild().seq
		seq2 := tipChild.lastChild().seq
		n := minLen(seq0, seq1)
		if m := minLen(seq0, seq2); m < n {
			n = m
		}
		if n == 0 {
			continue
		}
		if submodel.PDist(seq0, seq1, 0, n-1) <= submodel.MaxPDist &&
			submodel.PDist(seq0, seq2, 0, n-1) <= submodel.MaxPDist {
			data = append(data, submodel.CalcTransFreq3Seq(seq0, seq1, seq2))
		}
	}
	return data
}

func minLen(a, b digitalseq.DigitalSeq) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

// EstimateBaseFreq sums the observed base counts over every bound leaf
// and normalizes them, a quick stationary-frequency estimate for
// bootstrapping a substitution model.
func (t *Tree) EstimateBaseFreq() submodel.Vector4 {
	var freq submodel.Vector4
	for _, node := range t.nodes {
		if node.IsLeaf() && len(node.seq) > 0 {
			f := submodel.CalcBaseFreq(node.seq)
			for i := 0; i < 4; i++ {
				freq[i] += f[i]
			}
		}
	}
	var total float64
	for _, f := range freq {
		total += f
	}
	if total > 0 {
		for i := range freq {
			freq[i] /= total
		}
	}
	return freq
}

// LeafHitsByPDist returns the bound leaves whose uncorrected p-distance
// to seq over [start, end] is at most maxDist. A non-empty candidates
// slice restricts the scan to those nodes.
func (t *Tree) LeafHitsByPDist(candidates []*Node, seq digitalseq.DigitalSeq, maxDist float64, start, end int) []*Node {
	if len(candidates) == 0 {
		candidates = t.nodes
	}
	var hits []*Node
	for _, node := range candidates {
		if node.IsLeaf() && len(node.seq) > 0 &&
			submodel.PDist(node.seq, seq, start, end) <= maxDist {
			hits = append(hits, node)
		}
	}
	return hits
}

// LeafHitsBySubDist is LeafHitsByPDist with the attached model's
// corrected substitution distance.
func (t *Tree) LeafHitsBySubDist(candidates []*Node, seq digitalseq.DigitalSeq, maxDist float64, start, end int) []*Node {
	if len(candidates) == 0 {
		candidates = t.nodes
	}
	var hits []*Node
	for _, node := range candidates {
		if node.IsLeaf() && len(node.seq) > 0 &&
			t.model.SubDist(node.seq, seq, start, end) <= maxDist {
			hits = append(hits, node)
		}
	}
	return hits
}
