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

// Package submodel implements nucleotide substitution models (GTR, HKY85
// and F81). The likelihood engine consumes only the stationary
// distribution Pi and the transition-probability matrix Pr(t); the
// model-distance helpers are used for candidate shortlisting before
// placement.
package submodel

import (
	"bufio"
	"fmt"
	"io"

	"github.com/shenwei356/csfmple/digitalseq"
)

// Model is the capability interface the likelihood engine needs from a
// substitution model. Implementations are immutable once loaded and may
// be shared across trees.
type Model interface {
	// Type returns the model's name, e.g. "GTR".
	Type() string

	// Pi returns the stationary base frequencies.
	Pi() Vector4

	// Pr returns the transition-probability matrix over time t,
	// row-stochastic in the probability domain. Numerically stable for
	// t in [0, 100]; behavior outside this range is the caller's
	// responsibility.
	Pr(t float64) Matrix4x4

	// SubDist returns the model-corrected substitution distance between
	// two aligned sequences over columns [start, end] (both inclusive,
	// 0-based).
	SubDist(a, b digitalseq.DigitalSeq, start, end int) float64

	// Read parses the model's parameter block from its text form.
	Read(r io.Reader) error

	// Write emits the model's parameter block in its text form.
	Write(w io.Writer) error
}

// Create returns a fresh, un-parameterized model of the given type.
// Unknown types are a hard error.
func Create(modelType string) (Model, error) {
	switch modelType {
	case "GTR":
		return new(GTR), nil
	case "HKY85":
		return new(HKY85), nil
	case "F81":
		return new(F81), nil
	default:
		return nil, fmt.Errorf("submodel: unknown DNA substitution model type: %s", modelType)
	}
}

// Save writes the model type on its own line followed by the model's
// parameter block, the layout Load expects.
func Save(w io.Writer, m Model) error {
	if _, err := fmt.Fprintln(w, m.Type()); err != nil {
		return err
	}
	return m.Write(w)
}

// Load reads a model type line, creates the model through Create, and
// parses its parameter block.
func Load(r *bufio.Reader) (Model, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	modelType := trimEOL(line)
	m, err := Create(modelType)
	if err != nil {
		return nil, err
	}
	if err := m.Read(r); err != nil {
		return nil, err
	}
	return m, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
