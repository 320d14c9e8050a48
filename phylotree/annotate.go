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
	"io"
	"strings"
)

// AnnoFieldSep separates the name and annotation fields of an
// annotation file line.
const AnnoFieldSep = '\t'

// taxaSep are the characters separating taxa levels inside a name.
const taxaSep = ";: "

// levelPrefixes are the canonical rank prefixes, kingdom through
// species.
var levelPrefixes = []string{"k__", "p__", "c__", "o__", "f__", "g__", "s__"}

// IsCanonicalName reports whether name starts with any canonical rank
// prefix.
func IsCanonicalName(name string) bool {
	for _, p := range levelPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// splitTaxa splits a taxa string on the level separators, compressing
// runs and dropping empty fields.
func splitTaxa(taxa string) []string {
	return strings.FieldsFunc(taxa, func(r rune) bool {
		return strings.ContainsRune(taxaSep, r)
	})
}

// IsFullCanonicalName reports whether taxa names all seven canonical
// levels in order, kingdom through species.
func IsFullCanonicalName(taxa string) bool {
	fields := splitTaxa(taxa)
	if len(fields) != len(levelPrefixes) {
		return false
	}
	for level, f := range fields {
		if !strings.HasPrefix(f, levelPrefixes[level]) {
			return false
		}
	}
	return true
}

// IsPartialCanonicalName reports whether every field of taxa carries
// some canonical rank prefix.
func IsPartialCanonicalName(taxa string) bool {
	fields := splitTaxa(taxa)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !IsCanonicalName(f) {
			return false
		}
	}
	return true
}

// FormatTaxaName keeps only the canonical fields of taxa and joins them
// with ";".
func FormatTaxaName(taxa string) string {
	var kept []string
	for _, f := range splitTaxa(taxa) {
		if IsCanonicalName(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, ";")
}

// LoadAnnotation reads tab-separated "name<TAB>anno" lines and replaces
// the name of every matching node with its annotation string, the form
// Annotate expects.
func (t *Tree) LoadAnnotation(r io.Reader) error {
	name2anno := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		i := strings.IndexByte(line, AnnoFieldSep)
		if i < 0 {
			continue
		}
		name2anno[line[:i]] = line[i+1:]
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for _, node := range t.nodes {
		if anno, ok := name2anno[node.name]; ok {
			node.name = anno
		}
	}
	return nil
}

// Annotate computes the taxonomic annotation of every node.
func (t *Tree) Annotate() {
	for _, node := range t.nodes {
		t.AnnotateNode(node)
	}
}

// AnnotateNode walks from node toward the root, accumulating branch
// length into the node's annoDist and collecting canonical names, until
// the first fully canonical ancestor (or the root). The collected path
// is reversed and joined with ";"; a node under no canonical ancestry
// is annotated "Other".
func (t *Tree) AnnotateNode(node *Node) {
	var annoPath []string
	p := node
	for !IsFullCanonicalName(p.name) && !p.IsRoot() {
		node.annoDist += t.BranchLength(p, p.parent)
		if IsPartialCanonicalName(p.name) {
			annoPath = append(annoPath, p.name)
		}
		p = p.parent
	}
	if IsFullCanonicalName(p.name) {
		annoPath = append(annoPath, p.name)
	}
	for i, j := 0, len(annoPath)-1; i < j; i, j = i+1, j-1 {
		annoPath[i], annoPath[j] = annoPath[j], annoPath[i]
	}
	if len(annoPath) > 0 {
		node.anno = strings.Join(annoPath, ";")
	} else {
		node.anno = "Other"
	}
}
