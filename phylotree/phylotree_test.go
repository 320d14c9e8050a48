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
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/gamma"
	"github.com/shenwei356/csfmple/msa"
	"github.com/shenwei356/csfmple/newick"
	"github.com/shenwei356/csfmple/submodel"
)

func mustDigital(t *testing.T, s string) digitalseq.DigitalSeq {
	t.Helper()
	seq, err := digitalseq.FromAligned(alphabet.DNA, s)
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(1)) }

var uniformPi = submodel.Vector4{0.25, 0.25, 0.25, 0.25}

// buildTree parses nwk, binds the named MSA rows and attaches a uniform
// F81 model.
func buildTree(t *testing.T, nwk string, names, rows []string) *Tree {
	t.Helper()
	n, err := newick.Parse(nwk)
	if err != nil {
		t.Fatal(err)
	}
	tree := FromNewick(n)
	m, err := msa.New(names, rows)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.LoadMSA(m); err != nil {
		t.Fatal(err)
	}
	tree.SetModel(submodel.NewF81(uniformPi))
	tree.InitBranchLoglik()
	return tree
}

func nodeByName(t *testing.T, tree *Tree, name string) *Node {
	t.Helper()
	for _, n := range tree.Nodes() {
		if n.Name() == name {
			return n
		}
	}
	t.Fatalf("no node named %q", name)
	return nil
}

func TestFromNewick(t *testing.T) {
	n, err := newick.Parse("((t1:0.1,t2:0.2)a:0.5,t3:0.3)root;")
	if err != nil {
		t.Fatal(err)
	}
	tree := FromNewick(n)
	if tree.NumNodes() != 5 || tree.NumLeaves() != 3 {
		t.Fatalf("nodes=%d leaves=%d", tree.NumNodes(), tree.NumLeaves())
	}
	if tree.NumEdges() != 8 { // 4 undirected edges
		t.Fatalf("directed edges = %d", tree.NumEdges())
	}
	t1 := nodeByName(t, tree, "t1")
	a := nodeByName(t, tree, "a")
	if t1.Parent() != a {
		t.Error("t1's parent should be a")
	}
	if w := tree.BranchLength(t1, a); w != 0.1 {
		t.Errorf("w(t1,a) = %g", w)
	}
	if tree.Root().Name() != "root" {
		t.Errorf("root = %q", tree.Root().Name())
	}
}

func TestSetRoot(t *testing.T) {
	n, _ := newick.Parse("((t1:0.1,t2:0.2)a:0.5,t3:0.3)root;")
	tree := FromNewick(n)
	t1 := nodeByName(t, tree, "t1")
	a := nodeByName(t, tree, "a")
	root := tree.Root()

	old := tree.SetRoot(t1)
	if old != root {
		t.Error("SetRoot should return the previous root")
	}
	if !t1.IsRoot() || a.Parent() != t1 || root.Parent() != a {
		t.Error("parent pointers not rewritten after re-rooting")
	}
	tree.SetRoot(root)
	if t1.Parent() != a || a.Parent() != root {
		t.Error("re-rooting back did not restore parents")
	}
}

// two identical single-column leaves on a star tree: the engine result
// must match the hand-rolled pruning formula, and the optimal branch
// length is (numerically) zero.
func TestTwoLeafLoglik(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1)root;",
		[]string{"t1", "t2"}, []string{"A", "A"})
	tree.Evaluate()

	model := tree.Model()
	p := model.Pr(0.1)
	var want float64
	for i := 0; i < 4; i++ {
		want += uniformPi[i] * p[i][0] * p[i][0]
	}
	want = math.Log(want)

	got := tree.TreeLoglikAll()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("treeLoglik = %.12f, want %.12f", got, want)
	}
}

func TestOptimizeBranchLengthIdenticalSeqs(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1)root;",
		[]string{"t1", "t2"}, []string{"A", "A"})
	root := tree.Root()
	t1 := nodeByName(t, tree, "t1")

	tree.Evaluate()
	tree.SetRoot(t1)
	tree.Evaluate()
	tree.SetRoot(root)

	w := tree.OptimizeBranchLength(t1, root, 0, 0)
	if w > BranchEps {
		t.Errorf("optimized branch length for identical sequences = %g, want <= %g", w, BranchEps)
	}
}

// the whole-tree log-likelihood is invariant under the choice of root.
func TestRootInvariance(t *testing.T) {
	tree := buildTree(t, "((t1:0.1,t2:0.2)a:0.3,(t3:0.15,t4:0.25)b:0.35)root;",
		[]string{"t1", "t2", "t3", "t4"},
		[]string{"ACGTA", "ACGTT", "AGGTA", "AGGTC"})
	tree.Evaluate()
	want := tree.TreeLoglikAll()

	for _, node := range tree.Nodes() {
		tree.SetRoot(node)
		tree.Evaluate()
		got := tree.TreeLoglikAll()
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("root at %q (id %d): loglik = %.12f, want %.12f",
				node.Name(), node.ID(), got, want)
		}
	}
}

func TestGammaEvaluation(t *testing.T) {
	build := func() *Tree {
		return buildTree(t, "((t1:0.1,t2:0.2)a:0.3,t3:0.15)root;",
			[]string{"t1", "t2", "t3"},
			[]string{"ACGT", "ACGA", "AGGT"})
	}
	plain := build()
	plain.Evaluate()
	base := plain.TreeLoglikAll()

	mixed := build()
	mixed.SetDG(gamma.New(4, 0.5))
	mixed.Evaluate()
	got := mixed.TreeLoglikAll()
	if math.IsNaN(got) || math.IsInf(got, 0) || got >= 0 {
		t.Fatalf("gamma loglik = %g", got)
	}
	if got == base {
		t.Error("rate heterogeneity should change the likelihood")
	}
}

// after a branch-length change, untouched directions stay evaluated, and
// invalidating just the dependent direction reproduces a full rebuild.
func TestCacheCoherence(t *testing.T) {
	nwk := "((t1:0.1,t2:0.2)a:0.3,(t3:0.15,t4:0.25)b:0.35)root;"
	names := []string{"t1", "t2", "t3", "t4"}
	rows := []string{"ACGTA", "ACGTT", "AGGTA", "AGGTC"}

	tree := buildTree(t, nwk, names, rows)
	tree.Evaluate()

	t1 := nodeByName(t, tree, "t1")
	a := nodeByName(t, tree, "a")
	root := tree.Root()

	tree.SetBranchLength(t1, a, 0.42)
	// the conditional loglik of t1's subtree does not depend on the
	// length of its own top branch, only a's (and above) do.
	if !tree.IsEvaluated(t1, a) {
		t.Error("t1->a should remain evaluated after its length changes")
	}
	tree.ResetLoglik(a, root)
	if tree.IsEvaluated(a, root) {
		t.Error("a->root should be invalidated")
	}
	tree.Evaluate()
	got := tree.TreeLoglikAll()

	// full rebuild from scratch with the same lengths.
	fresh := buildTree(t, nwk, names, rows)
	ft1 := nodeByName(t, fresh, "t1")
	fa := nodeByName(t, fresh, "a")
	fresh.SetBranchLength(ft1, fa, 0.42)
	fresh.Evaluate()
	want := fresh.TreeLoglikAll()

	if math.Abs(got-want) > 1e-12 {
		t.Errorf("incremental re-evaluation = %.12f, full rebuild = %.12f", got, want)
	}
}

// placing a read identical to t1 on t1's edge must beat placing it on
// t3's edge, and placement adds exactly 2 nodes and 3 new edges.
func TestPlaceSeq(t *testing.T) {
	nwk := "(t1:0.1,t2:0.1,t3:0.2)root;"
	names := []string{"t1", "t2", "t3"}
	rows := []string{"AAAA", "AAAC", "AACC"}
	query := mustDigital(t, "AAAA")

	place := func(leafName string) (float64, *Tree) {
		tree := buildTree(t, nwk, names, rows)
		root := tree.Root()
		leaf := nodeByName(t, tree, leafName)
		tree.Evaluate()
		tree.SetRoot(leaf)
		tree.Evaluate()
		tree.SetRoot(root)
		return tree.PlaceSeq(query, leaf, root, 0, 3), tree
	}

	lk1, tree1 := place("t1")
	lk3, _ := place("t3")
	if lk1 <= lk3 {
		t.Errorf("placement on t1's edge (%.6f) should beat t3's edge (%.6f)", lk1, lk3)
	}

	if tree1.NumNodes() != 6 {
		t.Errorf("nodes after placement = %d, want 6", tree1.NumNodes())
	}
	if tree1.NumEdges() != 10 { // 3 original - 1 split + 3 new = 5 undirected
		t.Errorf("directed edges after placement = %d, want 10", tree1.NumEdges())
	}
	r := tree1.Node(4) // first fresh id after the original 4 nodes
	n := tree1.Node(5)
	if !n.IsLeaf() || len(n.Seq()) == 0 {
		t.Fatal("new leaf should carry the query sequence")
	}
	oldRoot := tree1.Node(0)
	for _, pair := range [][2]*Node{
		{n, r}, {r, n},
		{nodeByName(t, tree1, "t1"), r}, {r, nodeByName(t, tree1, "t1")},
		{oldRoot, r}, {r, oldRoot},
	} {
		if !tree1.IsEvaluated(pair[0], pair[1]) {
			t.Errorf("direction %d->%d not evaluated after placement",
				pair[0].ID(), pair[1].ID())
		}
	}
}

func TestEstimateSeqRanksEdges(t *testing.T) {
	nwk := "(t1:0.1,t2:0.1,t3:0.2)root;"
	names := []string{"t1", "t2", "t3"}
	rows := []string{"AAAA", "AAAC", "AACC"}
	query := mustDigital(t, "AAAA")

	tree := buildTree(t, nwk, names, rows)
	root := tree.Root()
	tree.Evaluate()
	for _, name := range []string{"t1", "t3"} {
		tree.SetRoot(nodeByName(t, tree, name))
		tree.Evaluate()
	}
	tree.SetRoot(root)

	s1 := tree.EstimateSeq(query, nodeByName(t, tree, "t1"), root, 0, 3)
	s3 := tree.EstimateSeq(query, nodeByName(t, tree, "t3"), root, 0, 3)
	if s1 <= s3 {
		t.Errorf("estimateSeq on t1's edge (%.6f) should beat t3's edge (%.6f)", s1, s3)
	}
}

func TestAnnotate(t *testing.T) {
	nwk := "((((((((t1:1)s__foo:1)g__Lactobacillus:1)f__Lactobacillaceae:1)o__Lactobacillales:1)c__Bacilli:1)p__Firmicutes:1)k__Bacteria:1,t2:1)root;"
	n, err := newick.Parse(nwk)
	if err != nil {
		t.Fatal(err)
	}
	tree := FromNewick(n)
	tree.Annotate()

	t1 := nodeByName(t, tree, "t1")
	want := "k__Bacteria;p__Firmicutes;c__Bacilli;o__Lactobacillales;f__Lactobacillaceae;g__Lactobacillus;s__foo"
	if t1.Anno() != want {
		t.Errorf("anno = %q, want %q", t1.Anno(), want)
	}
	if t1.AnnoDist() != 8 {
		t.Errorf("annoDist = %g, want 8", t1.AnnoDist())
	}

	t2 := nodeByName(t, tree, "t2")
	if t2.Anno() != "Other" {
		t.Errorf("anno of unannotated leaf = %q, want Other", t2.Anno())
	}
}

func TestFullCanonicalNameStopsWalk(t *testing.T) {
	full := "k__Bacteria;p__Firmicutes;c__Bacilli;o__Lactobacillales;f__Lactobacillaceae;g__Lactobacillus;s__acidophilus"
	nwk := "(('" + full + "':1)g__ignored:1,t2:1)root;"
	n, err := newick.Parse(nwk)
	if err != nil {
		t.Fatal(err)
	}
	tree := FromNewick(n)
	tree.Annotate()
	node := nodeByName(t, tree, full)
	if node.Anno() != full {
		t.Errorf("a fully canonical node annotates as itself, got %q", node.Anno())
	}
	if node.AnnoDist() != 0 {
		t.Errorf("annoDist = %g, want 0", node.AnnoDist())
	}
}

func TestCanonicalNameHelpers(t *testing.T) {
	full := "k__Bacteria;p__Firmicutes;c__Bacilli;o__Lactobacillales;f__Lactobacillaceae;g__Lactobacillus;s__acidophilus"
	if !IsFullCanonicalName(full) {
		t.Error("seven-level name should be fully canonical")
	}
	if IsFullCanonicalName("k__Bacteria") {
		t.Error("a single level is not fully canonical")
	}
	if !IsPartialCanonicalName("k__Bacteria;p__Firmicutes") {
		t.Error("prefixed levels should be partially canonical")
	}
	if IsPartialCanonicalName("t1") {
		t.Error("a plain name is not canonical")
	}
	if got := FormatTaxaName("k__Bacteria; junk ;p__Firmicutes"); got != "k__Bacteria;p__Firmicutes" {
		t.Errorf("FormatTaxaName = %q", got)
	}
}

func TestLoadAnnotation(t *testing.T) {
	n, _ := newick.Parse("((t1:1)anc:1,t2:1)root;")
	tree := FromNewick(n)
	in := strings.NewReader("anc\tk__Bacteria;p__Firmicutes\nmissing\tk__Archaea\n")
	if err := tree.LoadAnnotation(in); err != nil {
		t.Fatal(err)
	}
	if nodeByName(t, tree, "k__Bacteria;p__Firmicutes") == nil {
		t.Error("annotation should replace the node name")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tree := buildTree(t, "((t1:0.1,t2:0.2)a:0.3,t3:0.15)root;",
		[]string{"t1", "t2", "t3"},
		[]string{"ACGT", "ACGA", "AGGT"})
	tree.SetDG(gamma.New(4, 0.5))
	tree.Evaluate()
	want := tree.TreeLoglikAll()

	var buf bytes.Buffer
	if err := tree.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NumNodes() != tree.NumNodes() || loaded.NumEdges() != tree.NumEdges() {
		t.Fatalf("shape changed: %d nodes %d edges", loaded.NumNodes(), loaded.NumEdges())
	}
	if loaded.Root().ID() != tree.Root().ID() {
		t.Error("root id changed")
	}
	got := loaded.TreeLoglikAll()
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("loglik after round trip = %.12f, want %.12f", got, want)
	}
	if loaded.DG() == nil || loaded.DG().K() != 4 {
		t.Error("discrete-Gamma block lost in round trip")
	}
	if loaded.Model().Type() != "F81" {
		t.Errorf("model type = %q", loaded.Model().Type())
	}
	if loaded.NodeByMSAID(0) == nil {
		t.Error("msa index lost in round trip")
	}
}

func TestSaveLoadVersionCheck(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1)root;",
		[]string{"t1", "t2"}, []string{"A", "A"})
	var buf bytes.Buffer
	if err := tree.Save(&buf); err != nil {
		t.Fatal(err)
	}
	// bump the stored minor version beyond the loader's.
	b := buf.Bytes()
	nameEnd := 4 + len(ProgName)
	b[nameEnd+3] = byte(MinorVersion + 1)
	if _, err := Load(bytes.NewReader(b)); err == nil {
		t.Error("loading a newer blob should fail")
	}
}

func TestWriteNewick(t *testing.T) {
	n, _ := newick.Parse("((t1:0.1,t2:0.2)a:0.5,t3:0.3)root;")
	tree := FromNewick(n)
	var buf bytes.Buffer
	if err := tree.WriteNewick(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	back, err := newick.Parse(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("emitted Newick does not parse: %v\n%s", err, out)
	}
	if back.Name != "root" || len(back.Children) != 2 {
		t.Errorf("unexpected emitted topology: %s", out)
	}
}

func TestTrainingSets(t *testing.T) {
	tree := buildTree(t, "((t1:0.1,t2:0.1)a:0.2,(t3:0.1,t4:0.1)b:0.2)root;",
		[]string{"t1", "t2", "t3", "t4"},
		[]string{"ACGTACGTAC", "ACGTACGTAA", "ACGTACGTAC", "ACGTACGTAA"})

	a := nodeByName(t, tree, "a")
	if !tree.IsTip(a) {
		t.Error("a should be a tip (all children are leaves)")
	}
	if tree.IsTip(nodeByName(t, tree, "t1")) {
		t.Error("a leaf is not a tip")
	}

	// a and b are both tips with two leaf children each.
	goldman := tree.TrainingSetGoldman()
	if len(goldman) != 2 {
		t.Errorf("Goldman set size = %d, want 2", len(goldman))
	}

	rng := newTestRand()
	gojobori := tree.TrainingSetGojobori(rng)
	if len(gojobori) == 0 {
		t.Fatal("Gojobori set should not be empty")
	}
	var total float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			total += gojobori[0][i][j]
		}
	}
	if total == 0 {
		t.Error("empty transition count matrix")
	}
}

func TestEstimateBaseFreq(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1)root;",
		[]string{"t1", "t2"}, []string{"AACG", "AACT"})
	freq := tree.EstimateBaseFreq()
	var sum float64
	for _, f := range freq {
		sum += f
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("frequencies sum to %g", sum)
	}
	if freq[0] != 0.5 { // 4 A's of 8 residues
		t.Errorf("freq[A] = %g, want 0.5", freq[0])
	}
}

func TestLeafHits(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1,t3:0.1)root;",
		[]string{"t1", "t2", "t3"},
		[]string{"AAAAAAAA", "AAAAAAAC", "CCCCCCCC"})
	query := mustDigital(t, "AAAAAAAA")

	hits := tree.LeafHitsByPDist(nil, query, 0.2, 0, 7)
	if len(hits) != 2 {
		t.Fatalf("p-dist hits = %d, want 2", len(hits))
	}
	subHits := tree.LeafHitsBySubDist(hits, query, 0.2, 0, 7)
	if len(subHits) != 2 {
		t.Errorf("sub-dist hits = %d, want 2", len(subHits))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tree := buildTree(t, "(t1:0.1,t2:0.1,t3:0.2)root;",
		[]string{"t1", "t2", "t3"},
		[]string{"AAAA", "AAAC", "AACC"})
	tree.Evaluate()
	want := tree.TreeLoglikAll()

	clone := tree.Clone()
	root := clone.Root()
	leaf := nodeByName(t, clone, "t1")
	clone.SetRoot(leaf)
	clone.Evaluate()
	clone.SetRoot(root)
	clone.PlaceSeq(mustDigital(t, "AAAA"), leaf, root, 0, 3)

	if tree.NumNodes() != 4 {
		t.Error("placement on the clone mutated the original's nodes")
	}
	if got := tree.TreeLoglikAll(); got != want {
		t.Error("placement on the clone changed the original's likelihood")
	}
}
