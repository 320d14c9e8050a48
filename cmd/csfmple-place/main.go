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

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/profile"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/csfm"
	"github.com/shenwei356/csfmple/digitalseq"
	"github.com/shenwei356/csfmple/phylotree"
	"github.com/shenwei356/xopen"
)

var version = "0.1.0"

type placement struct {
	name   string
	anno   string
	loglik float64
	err    error
}

func main() {
	usage := fmt.Sprintf(`
This command places aligned query reads onto a reference tree built by
csfmple-build and reports the taxonomy of the best insertion point.

Version: v%s
Usage: %s [options] <bundle prefix> <aligned query fasta/q>

Options/Flags:
`, version, filepath.Base(os.Args[0]))

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	help := flag.Bool("h", false, "print help message")
	outFile := flag.String("o", "-", "output file, - for stdout")
	maxDist := flag.Float64("d", 0.3, "maximum p-distance of candidate leaves")
	threads := flag.Int("j", runtime.NumCPU(), "number of threads, one tree copy each")
	pfCPU := flag.Bool("pprof-cpu", false, "pprofile CPU")
	pfMEM := flag.Bool("pprof-mem", false, "pprofile memory")

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if *threads <= 0 {
		*threads = runtime.NumCPU()
	}

	// go tool pprof -http=:8080 cpu.pprof
	if *pfCPU {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *pfMEM {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	prefix := flag.Arg(0)

	idx := loadIndex(prefix + ".csfm")
	tree := loadTree(prefix + ".ptu")
	log.Printf("loaded bundle %s.{csfm,ptu}: %d columns, %d leaves",
		prefix, idx.CSLen(), tree.NumLeaves())

	outfh, err := xopen.Wopen(*outFile)
	checkError(err)
	defer outfh.Close()
	fmt.Fprintf(outfh, "query\tloglik\ttaxonomy\n")

	sTime := time.Now()

	// placement mutates shared per-edge caches, so each worker gets its
	// own tree replica; the frozen index is shared read-only.
	queries := make(chan *fastx.Record, *threads)
	results := make(chan placement, *threads)

	var wg sync.WaitGroup
	for w := 0; w < *threads; w++ {
		wg.Add(1)
		replica := tree.Clone()
		go func() {
			defer wg.Done()
			for record := range queries {
				results <- placeOne(idx, replica, record, *maxDist)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		seq.ValidateSeq = false
		reader, err := fastx.NewReader(nil, flag.Arg(1), "")
		checkError(err)
		for {
			record, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				checkError(err)
				break
			}
			queries <- record.Clone()
		}
		close(queries)
	}()

	var nQueries, nFailed int
	for r := range results {
		nQueries++
		if r.err != nil {
			nFailed++
			log.Printf("skipping %s: %v", r.name, r.err)
			continue
		}
		fmt.Fprintf(outfh, "%s\t%.4f\t%s\n", r.name, r.loglik, r.anno)
	}

	log.Printf("placed %d queries (%d skipped) in %s", nQueries-nFailed, nFailed, time.Since(sTime))
}

// placeOne splices one aligned query onto its best candidate edge of
// the worker's tree replica and reads the taxonomy off the edge's
// parent node. The splice is made on a fresh clone of the replica, so
// the replica itself is never spliced and is only reused for its caches.
func placeOne(idx *csfm.Index, replica *phylotree.Tree, record *fastx.Record, maxDist float64) placement {
	name := string(record.ID)
	aligned := string(record.Seq.Seq)
	if len(aligned) != idx.CSLen() {
		return placement{name: name, err: fmt.Errorf("aligned length %d != %d", len(aligned), idx.CSLen())}
	}
	query, err := digitalseq.FromAligned(alphabet.DNA, aligned)
	if err != nil {
		return placement{name: name, err: err}
	}

	// shortlist reference rows that share an exact seed with the query,
	// then refine by p-distance; an empty shortlist falls back to a
	// whole-tree scan inside LeafHitsByPDist.
	var candidates []*phylotree.Node
	if seedStr := seed(aligned); seedStr != "" {
		for msaID := range idx.LocateIndex(seedStr) {
			if node := replica.NodeByMSAID(msaID); node != nil {
				candidates = append(candidates, node)
			}
		}
	}
	hits := replica.LeafHitsByPDist(candidates, query, maxDist, 0, replica.CSLen()-1)
	if len(hits) == 0 {
		return placement{name: name, anno: "Other", loglik: 0}
	}

	// rank candidate edges cheaply, then pay for one real placement.
	// EstimateSeq needs both directions of each candidate edge, so the
	// replica is briefly re-rooted at each candidate leaf; the extra
	// caches stay valid and warm later queries.
	root := replica.Root()
	best := hits[0]
	bestScore := 0.0
	for i, leaf := range hits {
		replica.SetRoot(leaf)
		replica.Evaluate()
		replica.SetRoot(root)
		score := replica.EstimateSeq(query, leaf, leaf.Parent(), 0, replica.CSLen()-1)
		if i == 0 || score > bestScore {
			best, bestScore = leaf, score
		}
	}

	// splice into a throwaway clone so the replica keeps its topology.
	work := replica.Clone()
	leaf := work.Node(best.ID())
	anno := leaf.Parent().Anno()
	if anno == "" {
		anno = leaf.Anno()
	}
	if anno == "" {
		anno = "Other"
	}
	loglik := work.PlaceSeq(query, leaf, leaf.Parent(), 0, work.CSLen()-1)
	return placement{name: name, anno: anno, loglik: loglik}
}

// seedLen is the exact-match seed length used to shortlist reference
// rows through the FM-index.
const seedLen = 12

// seed returns the first gap-free window of the aligned query, or ""
// when no window is long enough.
func seed(aligned string) string {
	run := 0
	for i := 0; i < len(aligned); i++ {
		if alphabet.DNA.IsGap(aligned[i]) {
			run = 0
			continue
		}
		run++
		if run == seedLen {
			return aligned[i-seedLen+1 : i+1]
		}
	}
	return ""
}

func loadIndex(file string) *csfm.Index {
	fh, err := xopen.Ropen(file)
	checkError(err)
	defer fh.Close()
	idx, err := csfm.Load(fh)
	checkError(err)
	return idx
}

func loadTree(file string) *phylotree.Tree {
	fh, err := xopen.Ropen(file)
	checkError(err)
	defer fh.Close()
	tree, err := phylotree.Load(fh)
	checkError(err)
	return tree
}

func checkError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
