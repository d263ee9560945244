// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package expr evaluates configuration-item expressions: integer literals
// (decimal or 0x-prefixed hex), named config references, and the operators
// + - * / % & | ^ ~ << >> ( ), as 64-bit signed integers with two's-complement
// wraparound on overflow.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru"
)

var identRe = regexp2.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`, regexp2.None)

// ValidIdent reports whether name is a legal config/bundle/module/instance
// identifier.
func ValidIdent(name string) bool {
	if name == "" {
		return false
	}
	ok, err := identRe.MatchString(name)
	return err == nil && ok
}

// Resolver looks up the current evaluated value of another named config.
type Resolver func(name string) (int64, bool)

// Result is the outcome of evaluating one expression.
type Result struct {
	Value int64
	Refs  []string // referenced config names, in first-seen order, deduplicated
}

type tokKind int

const (
	tokNum tokKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokKind
	text string
	num  int64
}

// parseCache memoizes the token stream for previously-seen expression text,
// so re-evaluating the same expression string across many configs (e.g.
// after a topological reload) doesn't re-lex it every time.
var parseCache *lru.Cache

func init() {
	c, err := lru.New(512)
	if err != nil {
		panic(err)
	}
	parseCache = c
}

func tokenize(src string) ([]token, error) {
	if cached, ok := parseCache.Get(src); ok {
		return cached.([]token), nil
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	parseCache.Add(src, toks)
	return toks, nil
}

func lex(src string) ([]token, error) {
	var toks []token
	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '<' || c == '>':
			if i+1 < n && src[i+1] == c {
				toks = append(toks, token{kind: tokOp, text: src[i : i+2]})
				i += 2
				continue
			}
			return nil, fmt.Errorf("expr: unexpected character %q", c)
		case strings.ContainsRune("+-*/%&|^~", rune(c)):
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		case isDigit(c):
			start := i
			if c == '0' && i+1 < n && (src[i+1] == 'x' || src[i+1] == 'X') {
				i += 2
				for i < n && isHexDigit(src[i]) {
					i++
				}
			} else {
				for i < n && isDigit(src[i]) {
					i++
				}
			}
			text := src[start:i]
			v, err := parseLiteral(text)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokNum, text: text, num: v})
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i]})
		default:
			return nil, fmt.Errorf("expr: unexpected character %q", c)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func parseLiteral(text string) (int64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("expr: bad hex literal %q: %w", text, err)
		}
		return int64(u), nil
	}
	u, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expr: bad literal %q: %w", text, err)
	}
	return int64(u), nil
}

// parser is a standard precedence-climbing recursive descent over the
// token stream; each precedence level is itself a left-to-right scan, which
// is how left-to-right evaluation order is preserved within each
// precedence tier while still respecting operator precedence overall.
type parser struct {
	toks []token
	pos  int
	self string
	ref  Resolver
	refs []string
	seen map[string]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// Eval parses and evaluates src under resolver ref; self is the name of the
// config being evaluated (a reference to self is an error).
func Eval(src, self string, ref Resolver) (Result, error) {
	toks, err := tokenize(src)
	if err != nil {
		return Result{}, err
	}
	p := &parser{toks: toks, self: self, ref: ref, seen: make(map[string]bool)}
	v, err := p.parseOr()
	if err != nil {
		return Result{}, err
	}
	if p.peek().kind != tokEOF {
		return Result{}, fmt.Errorf("expr: unexpected trailing token %q", p.peek().text)
	}
	return Result{Value: v, Refs: p.refs}, nil
}

func (p *parser) parseOr() (int64, error) {
	v, err := p.parseXor()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && p.peek().text == "|" {
		p.next()
		rhs, err := p.parseXor()
		if err != nil {
			return 0, err
		}
		v = v | rhs
	}
	return v, nil
}

func (p *parser) parseXor() (int64, error) {
	v, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && p.peek().text == "^" {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		v = v ^ rhs
	}
	return v, nil
}

func (p *parser) parseAnd() (int64, error) {
	v, err := p.parseShift()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && p.peek().text == "&" {
		p.next()
		rhs, err := p.parseShift()
		if err != nil {
			return 0, err
		}
		v = v & rhs
	}
	return v, nil
}

func (p *parser) parseShift() (int64, error) {
	v, err := p.parseAdd()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "<<" || p.peek().text == ">>") {
		op := p.next().text
		rhs, err := p.parseAdd()
		if err != nil {
			return 0, err
		}
		if op == "<<" {
			v = v << uint(rhs&63)
		} else {
			v = v >> uint(rhs&63)
		}
	}
	return v, nil
}

func (p *parser) parseAdd() (int64, error) {
	v, err := p.parseMul()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		rhs, err := p.parseMul()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v = v + rhs
		} else {
			v = v - rhs
		}
	}
	return v, nil
}

func (p *parser) parseMul() (int64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/" || p.peek().text == "%") {
		op := p.next().text
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			v = v * rhs
		case "/":
			if rhs == 0 {
				return 0, fmt.Errorf("expr: division by zero")
			}
			v = v / rhs
		case "%":
			if rhs == 0 {
				return 0, fmt.Errorf("expr: modulo by zero")
			}
			v = v % rhs
		}
	}
	return v, nil
}

func (p *parser) parseUnary() (int64, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "~") {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if t.text == "-" {
			return -v, nil
		}
		return ^v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (int64, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return t.num, nil
	case tokIdent:
		if t.text == p.self {
			return 0, fmt.Errorf("expr: self-reference to %q", t.text)
		}
		if !p.seen[t.text] {
			p.seen[t.text] = true
			p.refs = append(p.refs, t.text)
		}
		v, ok := p.ref(t.text)
		if !ok {
			return 0, fmt.Errorf("expr: undefined reference %q", t.text)
		}
		return v, nil
	case tokLParen:
		v, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if p.peek().kind != tokRParen {
			return 0, fmt.Errorf("expr: expected ')'")
		}
		p.next()
		return v, nil
	default:
		return 0, fmt.Errorf("expr: unexpected token %q", t.text)
	}
}
