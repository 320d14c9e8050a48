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

package csfm

import (
	"encoding/binary"
	"io"

	"github.com/shenwei356/csfmple/alphabet"
	"github.com/shenwei356/csfmple/bitvector"
	"github.com/shenwei356/csfmple/persist"
	"github.com/shenwei356/csfmple/wavelet"
)

var be = binary.BigEndian

// Save writes the index fields in a fixed order: alphabet
// name, gap char, csLen, concatLen, full C table, csSeq, csIdentity,
// concat2CS, saSampled, wavelet tree, rank-select bit vector.
func (idx *Index) Save(w io.Writer) error {
	if err := persist.WriteString(w, idx.abc.Name()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{idx.gapCh}); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint32(idx.csLen)); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint32(idx.concatLen)); err != nil {
		return err
	}
	if err := binary.Write(w, be, idx.c); err != nil {
		return err
	}
	if err := persist.WriteString(w, idx.csSeq); err != nil {
		return err
	}
	if err := binary.Write(w, be, idx.csIdentity); err != nil {
		return err
	}
	if err := binary.Write(w, be, idx.concat2CS); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint32(len(idx.saSampled))); err != nil {
		return err
	}
	if err := binary.Write(w, be, idx.saSampled); err != nil {
		return err
	}
	if _, err := idx.bwt.Save(w); err != nil {
		return err
	}
	if _, err := idx.saIdx.Save(w); err != nil {
		return err
	}
	return nil
}

// Load reads an index previously written by Save. Only the DNA alphabet
// is currently supported; an index persisted under a different alphabet
// name is a FormatError.
func Load(r io.Reader) (*Index, error) {
	name, err := persist.ReadString(r)
	if err != nil {
		return nil, err
	}
	if name != alphabet.DNA.Name() {
		return nil, persist.ErrFormat
	}

	var gap [1]byte
	if _, err := io.ReadFull(r, gap[:]); err != nil {
		return nil, persist.ErrBroken
	}

	var csLen32, concatLen32 uint32
	if err := binary.Read(r, be, &csLen32); err != nil {
		return nil, persist.ErrBroken
	}
	if err := binary.Read(r, be, &concatLen32); err != nil {
		return nil, persist.ErrBroken
	}

	idx := &Index{
		abc:       alphabet.DNA,
		gapCh:     gap[0],
		csLen:     int(csLen32),
		concatLen: int(concatLen32),
	}

	if err := binary.Read(r, be, &idx.c); err != nil {
		return nil, persist.ErrBroken
	}

	csSeq, err := persist.ReadString(r)
	if err != nil {
		return nil, err
	}
	idx.csSeq = csSeq

	idx.csIdentity = make([]float64, idx.csLen+1)
	if err := binary.Read(r, be, idx.csIdentity); err != nil {
		return nil, persist.ErrBroken
	}

	idx.concat2CS = make([]uint16, idx.concatLen+1)
	if err := binary.Read(r, be, idx.concat2CS); err != nil {
		return nil, persist.ErrBroken
	}

	var nSampled uint32
	if err := binary.Read(r, be, &nSampled); err != nil {
		return nil, persist.ErrBroken
	}
	idx.saSampled = make([]int32, nSampled)
	if err := binary.Read(r, be, idx.saSampled); err != nil {
		return nil, persist.ErrBroken
	}

	bwt, err := wavelet.Load(r)
	if err != nil {
		return nil, err
	}
	idx.bwt = bwt

	saIdx, err := bitvector.Load(r)
	if err != nil {
		return nil, err
	}
	idx.saIdx = saIdx

	return idx, nil
}
