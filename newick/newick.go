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

// Package newick parses and formats trees in Newick notation. A parsed
// tree is a plain recursive node structure; it carries no phylogenetic
// semantics of its own.
package newick

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// InvalidChars are the characters that force single-quoting of a node
// name on output, besides whitespace.
const InvalidChars = "(){};,"

// Node is one vertex of a parsed Newick tree.
type Node struct {
	Name     string
	Length   float64
	Children []Node
}

// ErrSyntax is returned for a malformed Newick string.
var ErrSyntax = errors.New("newick: syntax error")

// Parse reads a single Newick tree, e.g. "((a:1,b:2):0.5,c:3);". The
// trailing semicolon is optional. Names may be single-quoted.
func Parse(s string) (*Node, error) {
	p := &parser{s: s}
	p.skipSpace()
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.i < len(p.s) && p.s[p.i] == ';' {
		p.i++
		p.skipSpace()
	}
	if p.i != len(p.s) {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrSyntax, p.i)
	}
	return n, nil
}

type parser struct {
	s string
	i int
}

func (p *parser) skipSpace() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t' || p.s[p.i] == '\n' || p.s[p.i] == '\r') {
		p.i++
	}
}

func (p *parser) parseNode() (*Node, error) {
	n := &Node{}
	if p.i < len(p.s) && p.s[p.i] == '(' {
		p.i++
		for {
			p.skipSpace()
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, *child)
			p.skipSpace()
			if p.i >= len(p.s) {
				return nil, fmt.Errorf("%w: unclosed '('", ErrSyntax)
			}
			if p.s[p.i] == ',' {
				p.i++
				continue
			}
			if p.s[p.i] == ')' {
				p.i++
				break
			}
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, p.s[p.i], p.i)
		}
	}
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	n.Name = name
	p.skipSpace()
	if p.i < len(p.s) && p.s[p.i] == ':' {
		p.i++
		length, err := p.parseLength()
		if err != nil {
			return nil, err
		}
		n.Length = length
	}
	return n, nil
}

func (p *parser) parseName() (string, error) {
	if p.i < len(p.s) && p.s[p.i] == '\'' {
		p.i++
		start := p.i
		for p.i < len(p.s) && p.s[p.i] != '\'' {
			p.i++
		}
		if p.i >= len(p.s) {
			return "", fmt.Errorf("%w: unterminated quoted name", ErrSyntax)
		}
		name := p.s[start:p.i]
		p.i++
		return name, nil
	}
	start := p.i
	for p.i < len(p.s) && !strings.ContainsRune(InvalidChars+": \t\n\r'", rune(p.s[p.i])) {
		p.i++
	}
	return p.s[start:p.i], nil
}

func (p *parser) parseLength() (float64, error) {
	p.skipSpace()
	start := p.i
	for p.i < len(p.s) {
		c := p.s[p.i]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.i++
			continue
		}
		break
	}
	length, err := strconv.ParseFloat(p.s[start:p.i], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad branch length at offset %d", ErrSyntax, start)
	}
	return length, nil
}

// QuoteName wraps name in single quotes when it contains whitespace or
// any of InvalidChars, as required on output.
func QuoteName(name string) string {
	if strings.ContainsAny(name, InvalidChars+" \t\n\r") {
		return "'" + name + "'"
	}
	return name
}

// String formats the tree rooted at n in Newick notation, including the
// trailing semicolon.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	sb.WriteByte(';')
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if len(n.Children) > 0 {
		sb.WriteByte('(')
		for i := range n.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			n.Children[i].write(sb)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(QuoteName(n.Name))
	if n.Length > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
}
