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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/gamma"
	"github.com/shenwei356/csfmple/newick"
	"github.com/shenwei356/csfmple/persist"
	"github.com/shenwei356/csfmple/submodel"
)

var be = binary.BigEndian

// ProgName identifies tree blobs on disk.
const ProgName = "csfmple-ptu"

// MainVersion and MinorVersion are the writer's format version; a blob
// written by a newer version refuses to load.
const (
	MainVersion uint16 = 0
	MinorVersion uint16 = 1
)

// Save writes the tree as a versioned binary blob: header, node count
// and csLen, per-node records, per-directed-edge records, the leaf
// loglik table, the root id, the msa-row index, the substitution model
// in text form and the optional discrete-Gamma block.
func (t *Tree) Save(w io.Writer) error {
	h := persist.Header{ProgName: ProgName, Major: MainVersion, Minor: MinorVersion}
	if err := persist.WriteHeader(w, h); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint64(len(t.nodes))); err != nil {
		return err
	}
	if err := binary.Write(w, be, int32(t.csLen)); err != nil {
		return err
	}
	for _, node := range t.nodes {
		if err := t.saveNode(w, node); err != nil {
			return err
		}
	}
	if err := binary.Write(w, be, uint64(t.NumEdges())); err != nil {
		return err
	}
	for _, u := range t.nodes {
		for _, v := range u.neighbors {
			if err := t.saveEdge(w, u, v); err != nil {
				return err
			}
		}
	}
	if err := binary.Write(w, be, t.leafLoglik); err != nil {
		return err
	}
	if err := binary.Write(w, be, t.root.id); err != nil {
		return err
	}
	if err := t.saveMSAIndex(w); err != nil {
		return err
	}
	if err := submodel.Save(w, t.model); err != nil {
		return err
	}
	hasDG := t.dg != nil
	if err := binary.Write(w, be, hasDG); err != nil {
		return err
	}
	if hasDG {
		return t.dg.Save(w)
	}
	return nil
}

func (t *Tree) saveNode(w io.Writer, node *Node) error {
	if err := binary.Write(w, be, uint32(len(node.name))); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint32(len(node.anno))); err != nil {
		return err
	}
	if err := binary.Write(w, be, node.id); err != nil {
		return err
	}
	if _, err := io.WriteString(w, node.name); err != nil {
		return err
	}
	if err := digitalseq.Save(w, node.seq); err != nil {
		return err
	}
	if _, err := io.WriteString(w, node.anno); err != nil {
		return err
	}
	return binary.Write(w, be, node.annoDist)
}

func (t *Tree) saveEdge(w io.Writer, u, v *Node) error {
	if err := binary.Write(w, be, u.id); err != nil {
		return err
	}
	if err := binary.Write(w, be, v.id); err != nil {
		return err
	}
	if err := binary.Write(w, be, isParent(u, v)); err != nil {
		return err
	}
	b := t.getBranch(u, v)
	if err := binary.Write(w, be, b.length); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint32(len(b.loglik))); err != nil {
		return err
	}
	if b.loglik == nil {
		return nil
	}
	return binary.Write(w, be, b.loglik)
}

func (t *Tree) saveMSAIndex(w io.Writer) error {
	if err := binary.Write(w, be, uint32(len(t.msaID2Node))); err != nil {
		return err
	}
	// arena order keeps the map serialization deterministic.
	for _, node := range t.nodes {
		for msaID, bound := range t.msaID2Node {
			if bound == node {
				if err := binary.Write(w, be, uint32(msaID)); err != nil {
					return err
				}
				if err := binary.Write(w, be, node.id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Load reads a tree previously written by Save, refusing blobs written
// by a newer version.
func Load(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)
	if _, err := persist.ReadHeader(br, ProgName, MainVersion, MinorVersion); err != nil {
		return nil, err
	}
	t := &Tree{branches: make(map[[2]int64]*branch), msaID2Node: make(map[int]*Node)}

	var nNodes uint64
	if err := binary.Read(br, be, &nNodes); err != nil {
		return nil, persist.ErrBroken
	}
	var csLen32 int32
	if err := binary.Read(br, be, &csLen32); err != nil {
		return nil, persist.ErrBroken
	}
	t.csLen = int(csLen32)

	for i := uint64(0); i < nNodes; i++ {
		node, err := loadNode(br)
		if err != nil {
			return nil, err
		}
		t.nodes = append(t.nodes, node)
	}

	var nEdges uint64
	if err := binary.Read(br, be, &nEdges); err != nil {
		return nil, persist.ErrBroken
	}
	for i := uint64(0); i < nEdges; i++ {
		if err := t.loadEdge(br); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(br, be, &t.leafLoglik); err != nil {
		return nil, persist.ErrBroken
	}
	var rootID int64
	if err := binary.Read(br, be, &rootID); err != nil {
		return nil, persist.ErrBroken
	}
	if rootID < 0 || rootID >= int64(len(t.nodes)) {
		return nil, persist.ErrFormat
	}
	t.root = t.nodes[rootID]

	if err := t.loadMSAIndex(br); err != nil {
		return nil, err
	}

	m, err := submodel.Load(br)
	if err != nil {
		return nil, err
	}
	t.model = m

	var hasDG bool
	if err := binary.Read(br, be, &hasDG); err != nil {
		return nil, persist.ErrBroken
	}
	if hasDG {
		dg, err := gamma.Load(br)
		if err != nil {
			return nil, err
		}
		t.dg = dg
	}
	return t, nil
}

func loadNode(r io.Reader) (*Node, error) {
	var nName, nAnno uint32
	if err := binary.Read(r, be, &nName); err != nil {
		return nil, persist.ErrBroken
	}
	if err := binary.Read(r, be, &nAnno); err != nil {
		return nil, persist.ErrBroken
	}
	node := &Node{}
	if err := binary.Read(r, be, &node.id); err != nil {
		return nil, persist.ErrBroken
	}
	name := make([]byte, nName)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, persist.ErrBroken
	}
	node.name = string(name)
	seq, err := digitalseq.Load(r)
	if err != nil {
		return nil, persist.ErrBroken
	}
	if len(seq) > 0 {
		node.seq = seq
	}
	anno := make([]byte, nAnno)
	if _, err := io.ReadFull(r, anno); err != nil {
		return nil, persist.ErrBroken
	}
	node.anno = string(anno)
	if err := binary.Read(r, be, &node.annoDist); err != nil {
		return nil, persist.ErrBroken
	}
	return node, nil
}

func (t *Tree) loadEdge(r io.Reader) error {
	var id1, id2 int64
	if err := binary.Read(r, be, &id1); err != nil {
		return persist.ErrBroken
	}
	if err := binary.Read(r, be, &id2); err != nil {
		return persist.ErrBroken
	}
	var parentFlag bool
	if err := binary.Read(r, be, &parentFlag); err != nil {
		return persist.ErrBroken
	}
	if id1 < 0 || id1 >= int64(len(t.nodes)) || id2 < 0 || id2 >= int64(len(t.nodes)) {
		return persist.ErrFormat
	}
	u, v := t.nodes[id1], t.nodes[id2]
	u.neighbors = append(u.neighbors, v)
	if parentFlag {
		v.parent = u
	}

	b := &branch{}
	if err := binary.Read(r, be, &b.length); err != nil {
		return persist.ErrBroken
	}
	var nCols uint32
	if err := binary.Read(r, be, &nCols); err != nil {
		return persist.ErrBroken
	}
	if nCols > 0 {
		b.loglik = make([]submodel.Vector4, nCols)
		if err := binary.Read(r, be, b.loglik); err != nil {
			return persist.ErrBroken
		}
	}
	t.branches[[2]int64{id1, id2}] = b
	return nil
}

func (t *Tree) loadMSAIndex(r io.Reader) error {
	var n uint32
	if err := binary.Read(r, be, &n); err != nil {
		return persist.ErrBroken
	}
	for i := uint32(0); i < n; i++ {
		var msaID uint32
		var nodeID int64
		if err := binary.Read(r, be, &msaID); err != nil {
			return persist.ErrBroken
		}
		if err := binary.Read(r, be, &nodeID); err != nil {
			return persist.ErrBroken
		}
		if nodeID < 0 || nodeID >= int64(len(t.nodes)) {
			return persist.ErrFormat
		}
		t.msaID2Node[int(msaID)] = t.nodes[nodeID]
	}
	return nil
}

// WriteNewick writes the tree in Newick notation under the current
// rooting, quoting names that carry separator characters.
func (t *Tree) WriteNewick(w io.Writer) error {
	if err := t.writeNewickNode(w, t.root); err != nil {
		return err
	}
	_, err := io.WriteString(w, ";\n")
	return err
}

func (t *Tree) writeNewickNode(w io.Writer, node *Node) error {
	if node.IsRoot() || node.IsInternal() {
		if _, err := io.WriteString(w, "("); err != nil {
			return err
		}
		first := true
		for _, c := range node.neighbors {
			if !isChild(c, node) {
				continue
			}
			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := t.writeNewickNode(w, c); err != nil {
				return err
			}
			first = false
		}
		if _, err := io.WriteString(w, ")"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, newick.QuoteName(node.name)); err != nil {
		return err
	}
	if length := t.BranchLength(node, node.parent); length > 0 {
		if _, err := fmt.Fprintf(w, ":%g", length); err != nil {
			return err
		}
	}
	return nil
}
