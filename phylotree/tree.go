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

// Package phylotree implements an unrooted phylogenetic tree with cached
// per-directed-edge conditional log-likelihoods, Felsenstein pruning with
// optional discrete-Gamma rate heterogeneity, iterative branch-length
// optimization, and placement of a new aligned sequence onto an existing
// branch.
//
// A tree is single-threaded at the data-structure level: evaluation,
// optimization, placement and re-rooting all mutate the shared edge
// caches. Read-only use of a fully evaluated tree is safe; concurrent
// placements require one tree copy per worker.
package phylotree

import (
	"errors"
	"fmt"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/gamma"
	"github.com/shenwei356/csfmple/newick"
	"github.com/shenwei356/csfmple/submodel"
)

// InvalidLoglik marks an unevaluated cache column. +1 is impossible in
// valid log space, so "evaluated" stays a first-class distinction
// without widening the matrix element type.
const InvalidLoglik = 1.0

// Node is one vertex of the tree. The distinguished root imposes a
// directed view through the parent pointers; re-rooting rewrites them.
type Node struct {
	id       int64
	name     string
	seq      digitalseq.DigitalSeq // empty unless a bound leaf
	anno     string
	annoDist float64

	parent    *Node
	neighbors []*Node
}

// ID returns the node's monotonically assigned id.
func (n *Node) ID() int64 { return n.id }

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Anno returns the node's taxonomic annotation.
func (n *Node) Anno() string { return n.anno }

// AnnoDist returns the accumulated distance to the nearest annotated
// ancestor.
func (n *Node) AnnoDist() float64 { return n.annoDist }

// Seq returns the aligned sequence bound to this node, or nil.
func (n *Node) Seq() digitalseq.DigitalSeq { return n.seq }

// Parent returns the node's parent under the current rooting, nil for
// the root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether the node is the current root.
func (n *Node) IsRoot() bool { return n.parent == nil }

// IsLeaf reports whether the node has exactly one neighbor.
func (n *Node) IsLeaf() bool { return len(n.neighbors) == 1 }

// IsInternal reports whether the node has more than one neighbor.
func (n *Node) IsInternal() bool { return len(n.neighbors) > 1 }

// isChild reports whether c is a child of p under the current rooting.
func isChild(c, p *Node) bool { return c.parent == p }

// isParent reports whether p is the parent of c under the current
// rooting. The nil parent of the root is handled so that
// isParent(nil, root) holds.
func isParent(p, c *Node) bool { return c != nil && c.parent == p }

// branch is the per-directed-edge record: the branch length (stored in
// both directions, equal by construction) and the cached conditional
// log-likelihood matrix of the subtree on the source side when the
// target is treated as its parent.
type branch struct {
	length float64
	loglik []submodel.Vector4 // csLen columns; nil or InvalidLoglik-filled when unevaluated
}

// Tree is an unrooted phylogenetic tree. Nodes live in an arena indexed
// by id; every adjacency is represented in both nodes' neighbor lists,
// and each direction owns a branch record.
type Tree struct {
	csLen int
	nodes []*Node
	root  *Node

	branches map[[2]int64]*branch

	// leafLoglik[k][b] is the log-likelihood of observing leaf state b
	// (A,C,G,T or gap) when the leaf's ancestral state is k.
	leafLoglik [4][5]float64

	msaID2Node map[int]*Node

	model submodel.Model
	dg    *gamma.Model
}

// ErrNonUniqueName is returned by LoadMSA when two MSA rows share a name.
var ErrNonUniqueName = errors.New("phylotree: non-unique sequence name in MSA")

// ErrNotDNA is returned by LoadMSA for a non-DNA alphabet.
var ErrNotDNA = errors.New("phylotree: only the DNA alphabet is supported")

// FromNewick builds a tree from a parsed Newick node, assigning ids in
// DFS order starting at 0. The Newick root becomes the tree root.
func FromNewick(nt *newick.Node) *Tree {
	t := &Tree{branches: make(map[[2]int64]*branch), msaID2Node: make(map[int]*Node)}
	t.root = t.buildFrom(nt, nil)
	return t
}

func (t *Tree) buildFrom(nt *newick.Node, parent *Node) *Node {
	u := &Node{id: int64(len(t.nodes)), name: nt.Name, parent: parent}
	t.nodes = append(t.nodes, u)
	if parent != nil {
		t.addEdge(u, parent)
		t.setBranchLength(u, parent, nt.Length)
	}
	for i := range nt.Children {
		t.buildFrom(&nt.Children[i], u)
	}
	return u
}

// NumNodes returns the number of nodes.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// NumEdges returns the number of directed edges.
func (t *Tree) NumEdges() int {
	n := 0
	for _, u := range t.nodes {
		n += len(u.neighbors)
	}
	return n
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	n := 0
	for _, u := range t.nodes {
		if u.IsLeaf() {
			n++
		}
	}
	return n
}

// CSLen returns the aligned sequence length the tree was bound to.
func (t *Tree) CSLen() int { return t.csLen }

// Root returns the current root.
func (t *Tree) Root() *Node { return t.root }

// Node returns the node with the given id.
func (t *Tree) Node(id int64) *Node { return t.nodes[id] }

// Nodes returns the node arena in id order. Callers must not mutate it.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Model returns the attached substitution model.
func (t *Tree) Model() submodel.Model { return t.model }

// DG returns the attached discrete-Gamma model, or nil.
func (t *Tree) DG() *gamma.Model { return t.dg }

// addEdge records the undirected edge u-v in both adjacency lists and
// creates the two directional branch records.
func (t *Tree) addEdge(u, v *Node) {
	u.neighbors = append(u.neighbors, v)
	v.neighbors = append(v.neighbors, u)
	t.branches[[2]int64{u.id, v.id}] = &branch{}
	t.branches[[2]int64{v.id, u.id}] = &branch{}
}

// removeEdge detaches the undirected edge u-v. The branch records are
// kept so that a subsequent re-attach can recover their caches.
func (t *Tree) removeEdge(u, v *Node) {
	u.neighbors = removeNeighbor(u.neighbors, v)
	v.neighbors = removeNeighbor(v.neighbors, u)
}

func removeNeighbor(neighbors []*Node, v *Node) []*Node {
	for i, n := range neighbors {
		if n == v {
			return append(neighbors[:i], neighbors[i+1:]...)
		}
	}
	return neighbors
}

// getBranch returns the directional branch record for u->v.
func (t *Tree) getBranch(u, v *Node) *branch {
	b, ok := t.branches[[2]int64{u.id, v.id}]
	if !ok {
		panic(fmt.Sprintf("phylotree: no branch %d->%d", u.id, v.id))
	}
	return b
}

// BranchLength returns the length of the u-v branch. The root's dummy
// edge to its nil parent has length 0.
func (t *Tree) BranchLength(u, v *Node) float64 {
	if v == nil {
		return 0
	}
	return t.getBranch(u, v).length
}

// SetBranchLength sets the length of the u-v branch in both directional
// records. Caches that depend on the changed length must be invalidated
// by the caller through ResetLoglik.
func (t *Tree) SetBranchLength(u, v *Node, w float64) {
	t.setBranchLength(u, v, w)
}

func (t *Tree) setBranchLength(u, v *Node, w float64) {
	t.getBranch(u, v).length = w
	t.getBranch(v, u).length = w
}

// SetRoot re-roots the tree at newRoot, rewriting every parent pointer
// with a DFS, and returns the previous root. O(V).
func (t *Tree) SetRoot(newRoot *Node) *Node {
	if newRoot == nil || newRoot == t.root {
		return t.root
	}
	newRoot.parent = nil
	visited := make(map[*Node]bool, len(t.nodes))
	stack := []*Node{newRoot}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[u] {
			continue
		}
		visited[u] = true
		for _, v := range u.neighbors {
			if !visited[v] && !isChild(v, u) {
				v.parent = u
			}
			stack = append(stack, v)
		}
	}
	oldRoot := t.root
	t.root = newRoot
	return oldRoot
}

// MSA is the collaborator LoadMSA consumes: named, digitally coded rows
// of a consensus alignment.
type MSA interface {
	NumSeq() int
	CSLen() int
	Alphabet() *alphabet.Alphabet
	SeqNameAt(i int) string
	DSAt(i int) digitalseq.DigitalSeq
}

// LoadMSA binds MSA rows to the tree nodes that carry the same name and
// records the msa-row -> node mapping. Nodes whose names are absent from
// the MSA are left unbound. Returns the number of newly bound nodes.
func (t *Tree) LoadMSA(msa MSA) (int, error) {
	n0 := len(t.msaID2Node)
	if msa.Alphabet().Name() != "DNA" {
		return 0, ErrNotDNA
	}
	t.csLen = msa.CSLen()

	name2msaID := make(map[string]int, msa.NumSeq())
	for i := 0; i < msa.NumSeq(); i++ {
		name := msa.SeqNameAt(i)
		if _, dup := name2msaID[name]; dup {
			return 0, fmt.Errorf("%w: %s", ErrNonUniqueName, name)
		}
		name2msaID[name] = i
	}

	for _, node := range t.nodes {
		i, ok := name2msaID[node.name]
		if !ok {
			continue
		}
		node.seq = msa.DSAt(i)
		t.msaID2Node[i] = node
	}
	return len(t.msaID2Node) - n0, nil
}

// NodeByMSAID returns the node bound to MSA row i, or nil.
func (t *Tree) NodeByMSAID(i int) *Node { return t.msaID2Node[i] }
