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

// Package persist holds the small set of binary I/O helpers shared by the
// csfm and phylotree versioned save/load formats: length-prefixed
// strings and a (programName, version) compatibility header.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var be = binary.BigEndian

// ErrFormat means the blob's magic header or alphabet tag did not match
// what the loader expected.
var ErrFormat = errors.New("persist: invalid binary format")

// ErrBroken means the blob ended before all expected fields were read.
var ErrBroken = errors.New("persist: truncated data")

// ErrVersionMismatch means the blob was written by a newer program
// version than the one attempting to load it.
var ErrVersionMismatch = errors.New("persist: file was written by a newer version")

// WriteString writes a length-prefixed (uint32) UTF-8 string.
func WriteString(w io.Writer, s string) error {
	if err := binary.Write(w, be, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string previously written by WriteString.
func ReadString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, be, &n); err != nil {
		return "", ErrBroken
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrBroken
	}
	return string(buf), nil
}

// Header identifies the program and semantic version that wrote a blob.
type Header struct {
	ProgName string
	Major    uint16
	Minor    uint16
}

// String renders the header the way version-mismatch messages quote it.
func (h Header) String() string {
	return fmt.Sprintf("%s v%d.%d", h.ProgName, h.Major, h.Minor)
}

// WriteHeader writes the (programName, version) pair that leads every
// tree blob.
func WriteHeader(w io.Writer, h Header) error {
	if err := WriteString(w, h.ProgName); err != nil {
		return err
	}
	if err := binary.Write(w, be, h.Major); err != nil {
		return err
	}
	return binary.Write(w, be, h.Minor)
}

// ReadHeader reads a header written by WriteHeader and refuses to load a
// blob written by a newer minor/major version than the caller's.
func ReadHeader(r io.Reader, wantProgName string, wantMajor, wantMinor uint16) (Header, error) {
	var h Header
	name, err := ReadString(r)
	if err != nil {
		return h, err
	}
	if name != wantProgName {
		return h, ErrFormat
	}
	h.ProgName = name
	if err := binary.Read(r, be, &h.Major); err != nil {
		return h, ErrBroken
	}
	if err := binary.Read(r, be, &h.Minor); err != nil {
		return h, ErrBroken
	}
	if h.Major > wantMajor || (h.Major == wantMajor && h.Minor > wantMinor) {
		return h, ErrVersionMismatch
	}
	return h, nil
}
