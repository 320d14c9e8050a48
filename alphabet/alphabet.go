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

// Package alphabet maps between characters and small integer codes for the
// DNA alphabet used throughout the index and likelihood engine.
//
// Codes reserve 0 for null, 1..Size for the alphabet symbols and Size+1 for
// the FM-index separator. A gap is not a code; it is detected with IsGap.
package alphabet

import "fmt"

// DNA is the only alphabet this engine supports.
var DNA = &Alphabet{
	name:   "DNA",
	decode: [4]byte{'A', 'C', 'G', 'T'},
	gap:    '-',
}

// Size is the number of real symbols in the DNA alphabet.
const Size = 4

// Separator is the private FM-index separator code, one past the alphabet.
const Separator = Size + 1

// Alphabet is a fixed, named character set with a canonical decode table
// and a gap character.
type Alphabet struct {
	name   string
	decode [Size]byte
	gap    byte
}

// Name returns the alphabet's name, e.g. "DNA".
func (a *Alphabet) Name() string { return a.name }

// Gap returns the canonical gap character.
func (a *Alphabet) Gap() byte { return a.gap }

// IsGap reports whether ch is the gap character.
func (a *Alphabet) IsGap(ch byte) bool { return ch == a.gap }

// Decode returns the canonical upper-case character for code (0-based,
// i.e. in [0, Size)).
func (a *Alphabet) Decode(code int8) byte {
	return a.decode[code]
}

// Encode maps an upper-case DNA character to its 0-based code.
// It returns an error for any character other than the four bases,
// including the gap character; callers that need gap-tolerant behavior
// must call IsGap first.
func (a *Alphabet) Encode(ch byte) (int8, error) {
	switch ch {
	case 'A':
		return 0, nil
	case 'C':
		return 1, nil
	case 'G':
		return 2, nil
	case 'T':
		return 3, nil
	default:
		return -1, fmt.Errorf("alphabet: %q is not a valid %s residue", ch, "DNA")
	}
}

// ToUpper canonicalizes a residue character the way the index builder does:
// lower-case bases are upper-cased before encoding.
func ToUpper(ch byte) byte {
	if ch >= 'a' && ch <= 'z' {
		return ch - ('a' - 'A')
	}
	return ch
}
