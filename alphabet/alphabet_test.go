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

package alphabet

import "testing"

func TestEncodeDecode(t *testing.T) {
	for code, ch := range []byte{'A', 'C', 'G', 'T'} {
		got, err := DNA.Encode(ch)
		if err != nil {
			t.Fatal(err)
		}
		if got != int8(code) {
			t.Errorf("Encode(%c) = %d, want %d", ch, got, code)
		}
		if DNA.Decode(int8(code)) != ch {
			t.Errorf("Decode(%d) = %c, want %c", code, DNA.Decode(int8(code)), ch)
		}
	}
}

func TestEncodeRejectsUnknown(t *testing.T) {
	for _, ch := range []byte{'N', 'U', '-', ' ', 'a'} {
		if _, err := DNA.Encode(ch); err == nil {
			t.Errorf("Encode(%q) should fail", ch)
		}
	}
}

func TestGap(t *testing.T) {
	if !DNA.IsGap('-') {
		t.Error("'-' should be the gap")
	}
	if DNA.IsGap('A') {
		t.Error("'A' is not a gap")
	}
	if DNA.Gap() != '-' {
		t.Errorf("Gap() = %c", DNA.Gap())
	}
	if DNA.Name() != "DNA" {
		t.Errorf("Name() = %s", DNA.Name())
	}
}

func TestToUpper(t *testing.T) {
	if ToUpper('a') != 'A' || ToUpper('t') != 'T' || ToUpper('G') != 'G' || ToUpper('-') != '-' {
		t.Error("ToUpper canonicalization broken")
	}
}
