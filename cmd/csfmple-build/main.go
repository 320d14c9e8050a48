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
	"time"

	"github.com/pkg/profile"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/csfmple/csfm"
	"github.com/shenwei356/csfmple/gamma"
	"github.com/shenwei356/csfmple/msa"
	"github.com/shenwei356/csfmple/newick"
	"github.com/shenwei356/csfmple/phylotree"
	"github.com/shenwei356/csfmple/submodel"
	"github.com/shenwei356/xopen"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

var version = "0.1.0"

func main() {
	usage := fmt.Sprintf(`
This command builds a searchable consensus-space FM-index and a
likelihood-ready reference tree from an aligned FASTA file and its
Newick tree, and persists both as one bundle.

Version: v%s
Usage: %s [options] <aligned fasta> <newick tree>

Options/Flags:
`, version, filepath.Base(os.Args[0]))

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	help := flag.Bool("h", false, "print help message")
	outPrefix := flag.String("o", "ref", "output prefix (<prefix>.csfm and <prefix>.ptu)")
	modelType := flag.String("model", "F81", "substitution model type (GTR, HKY85 or F81)")
	kappa := flag.Float64("kappa", 2.0, "transition/transversion ratio for HKY85")
	gammaK := flag.Int("gamma-k", 0, "discrete-Gamma categories, 0 disables rate heterogeneity")
	gammaAlpha := flag.Float64("gamma-alpha", 0.5, "discrete-Gamma shape parameter")
	annoFile := flag.String("anno", "", "optional tab-separated name<TAB>taxonomy file")
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

	// go tool pprof -http=:8080 cpu.pprof
	if *pfCPU {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *pfMEM {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	sTime := time.Now()
	names, rows := readAlignedFasta(flag.Arg(0))
	log.Printf("read %d aligned sequences from %s", len(rows), flag.Arg(0))

	m, err := msa.New(names, rows)
	checkError(err)

	p := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(3,
		mpb.PrependDecorators(decor.Name("building bundle")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	idx, err := csfm.Build(m)
	checkError(err)
	bar.Increment()

	nt, err := newick.Parse(readAll(flag.Arg(1)))
	checkError(err)
	tree := phylotree.FromNewick(nt)
	n, err := tree.LoadMSA(m)
	checkError(err)
	log.Printf("bound %d of %d tree leaves to alignment rows", n, tree.NumLeaves())

	if *annoFile != "" {
		fh, err := xopen.Ropen(*annoFile)
		checkError(err)
		checkError(tree.LoadAnnotation(fh))
		fh.Close()
	}

	model := makeModel(*modelType, *kappa, tree)
	tree.SetModel(model)
	if *gammaK > 1 {
		tree.SetDG(gamma.New(*gammaK, *gammaAlpha))
	}
	tree.InitBranchLoglik()
	tree.Evaluate()
	tree.Annotate()
	bar.Increment()

	saveTo(*outPrefix+".csfm", idx.Save)
	saveTo(*outPrefix+".ptu", tree.Save)
	bar.Increment()
	p.Wait()

	log.Printf("finished building %s.{csfm,ptu} in %s (loglik %.4f)",
		*outPrefix, time.Since(sTime), tree.TreeLoglikAll())
}

// makeModel parameterizes the requested model from the tree's observed
// base frequencies; exchangeability fitting belongs to an external
// training step.
func makeModel(modelType string, kappa float64, tree *phylotree.Tree) submodel.Model {
	if _, err := submodel.Create(modelType); err != nil {
		checkError(err)
	}
	pi := tree.EstimateBaseFreq()
	switch modelType {
	case "GTR":
		return submodel.NewGTR(pi, [6]float64{1, 1, 1, 1, 1, 1})
	case "HKY85":
		return submodel.NewHKY85(pi, kappa)
	default:
		return submodel.NewF81(pi)
	}
}

func readAlignedFasta(file string) (names, rows []string) {
	seq.ValidateSeq = false
	reader, err := fastx.NewReader(nil, file, "")
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
		names = append(names, string(record.ID))
		rows = append(rows, string(record.Seq.Seq))
	}
	return names, rows
}

func readAll(file string) string {
	fh, err := xopen.Ropen(file)
	checkError(err)
	defer fh.Close()
	data, err := io.ReadAll(fh)
	checkError(err)
	return string(data)
}

func saveTo(file string, save func(io.Writer) error) {
	outfh, err := xopen.Wopen(file)
	checkError(err)
	defer outfh.Close()
	checkError(save(outfh))
}

func checkError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
