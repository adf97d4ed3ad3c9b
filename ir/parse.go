// Copyright © 2020 The Pea Authors under an MIT-style license.

package ir

import (
	"fmt"
	"io"
	"io/ioutil"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/eaburns/peggy/peg"
	"github.com/eaburns/unret/loc"
)

// A Parser parses the printed form of the IR.
//
// The grammar is in grammar.peggy.
// In brief:
//
//	Module  <- Group*
//	Group   <- "val" Def / "rec" "{" ("val" Def ";"?)+ "}"
//	Def     <- Name (":" Type)? "=" Expr
//	Expr    <- "let" Group "in" Expr / "return" Expr / Postfix
//	Postfix <- Primary ("(" Exprs ")" / "[" Types "]")*
//	Primary <- Ident / Op / Con / Int / String / "(" Expr ")"
//	         / "fn" ("[" Type "]")? "(" Parms ")" "{" Expr "}"
//	         / "forall" "[" Idents "]" "{" Expr "}"
//	         / "match" Expr "{" (Pattern Guards ";"?)* "}"
//	Guards  <- "->" Expr / ("|" Expr "->" Expr)+
//	Pattern <- "_" / Ident / Con ("(" Patterns ")")? / Int / String
//	Type    <- (Ident / Con) ("[" Types "]")?
//
// Comments begin with // and extend to the end of the line.
type Parser struct {
	path   string
	groups []*DefGroup
	locs   loc.Files
}

// NewParser returns a new parser for the named module.
func NewParser(modPath string) *Parser {
	return &Parser{path: modPath}
}

// Mod returns the module built from the parsed files.
func (p *Parser) Mod() *Mod {
	return &Mod{Path: p.path, Groups: p.groups, Locs: p.locs}
}

// Parse parses definition groups from an io.Reader,
// appending them to the module.
// The first argument is the file path or "" if unspecified.
func (p *Parser) Parse(path string, r io.Reader) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	text := string(data)
	rd, err := newReader(path, text, p.locs.Len())
	if err != nil {
		return err
	}
	var groups []*DefGroup
	if err := rd.run(func() {
		for !rd.at(tEOF) {
			groups = append(groups, rd.group())
		}
	}); err != nil {
		return err
	}
	p.groups = append(p.groups, groups...)
	p.locs.Add(path, text)
	return nil
}

// ParseFile parses the source in the file specified by a path.
func (p *Parser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Parse(path, f)
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (Expr, error) {
	rd, err := newReader("", src, 0)
	if err != nil {
		return nil, err
	}
	var e Expr
	err = rd.run(func() {
		e = rd.expr()
		if !rd.at(tEOF) {
			rd.fail("end of input")
		}
	})
	return e, err
}

type parseError struct {
	path string
	text string
	fail *peg.Fail
}

func (err parseError) Tree() *peg.Fail { return err.fail }

func (err parseError) Error() string {
	e := peg.SimpleError(err.text, err.fail)
	e.FilePath = err.path
	return e.Error()
}

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tCon
	tOp
	tInt
	tStr
	tPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
	end  int
}

var keywords = map[string]bool{
	"val":    true,
	"rec":    true,
	"let":    true,
	"in":     true,
	"return": true,
	"fn":     true,
	"forall": true,
	"match":  true,
}

type reader struct {
	path string
	text string
	// base is the offset of text within the module's loc.Files.
	base int
	toks []token
	i    int
}

func newReader(path, text string, base int) (*reader, error) {
	rd := &reader{path: path, text: text, base: base}
	if err := rd.lex(); err != nil {
		return nil, err
	}
	return rd, nil
}

// run calls f, converting a parse failure raised by f into an error.
func (rd *reader) run(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fail, ok := r.(*peg.Fail)
		if !ok {
			panic(r)
		}
		err = parseError{
			path: rd.path,
			text: rd.text,
			fail: &peg.Fail{Name: "Module", Pos: 0, Kids: []*peg.Fail{fail}},
		}
	}()
	f()
	return nil
}

func (rd *reader) failAt(pos int, want string) {
	panic(&peg.Fail{Pos: pos, Want: want})
}

func (rd *reader) fail(want string) {
	rd.failAt(rd.peek().pos, want)
}

func (rd *reader) lex() error {
	var fail *peg.Fail
	text := rd.text
	for p := 0; ; {
		for p < len(text) {
			if c := text[p]; c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				p++
				continue
			}
			if strings.HasPrefix(text[p:], "//") {
				for p < len(text) && text[p] != '\n' {
					p++
				}
				continue
			}
			break
		}
		if p >= len(text) {
			rd.toks = append(rd.toks, token{kind: tEOF, pos: p, end: p})
			break
		}
		start := p
		var kind tokKind
		switch c := text[p]; {
		case isLetter(c) || c == '_':
			for p < len(text) && isIdentChar(text[p]) {
				p++
			}
			kind = tIdent
			if c >= 'A' && c <= 'Z' {
				kind = tCon
			}
		case isDigit(c) || c == '-' && p+1 < len(text) && isDigit(text[p+1]):
			p++
			for p < len(text) && isDigit(text[p]) {
				p++
			}
			kind = tInt
		case c == '"':
			p++
			for p < len(text) && text[p] != '"' {
				if text[p] == '\\' {
					p++
				}
				p++
			}
			if p >= len(text) {
				fail = &peg.Fail{Pos: start, Want: `"\""`}
				break
			}
			p++
			kind = tStr
		case strings.IndexByte("(){}[],;:", c) >= 0:
			p++
			kind = tPunct
		case strings.IndexByte(opChars, c) >= 0:
			for p < len(text) && strings.IndexByte(opChars, text[p]) >= 0 {
				p++
			}
			kind = tOp
		default:
			fail = &peg.Fail{Pos: start, Want: "token"}
		}
		if fail != nil {
			return parseError{
				path: rd.path,
				text: rd.text,
				fail: &peg.Fail{Name: "Module", Pos: 0, Kids: []*peg.Fail{fail}},
			}
		}
		rd.toks = append(rd.toks, token{kind: kind, text: text[start:p], pos: start, end: p})
	}
	return nil
}

const opChars = "+-*/<>=!&|%^~"

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '\''
}

func (rd *reader) peek() token { return rd.toks[rd.i] }

func (rd *reader) next() token {
	t := rd.toks[rd.i]
	if t.kind != tEOF {
		rd.i++
	}
	return t
}

// prevEnd returns the end offset of the last consumed token.
func (rd *reader) prevEnd() int {
	if rd.i == 0 {
		return 0
	}
	return rd.toks[rd.i-1].end
}

func (rd *reader) at(kind tokKind) bool { return rd.peek().kind == kind }

// is returns whether the next token is the given keyword, punctuation, or operator.
func (rd *reader) is(text string) bool {
	t := rd.peek()
	switch t.kind {
	case tIdent:
		return keywords[text] && t.text == text
	case tPunct, tOp:
		return t.text == text
	}
	return false
}

func (rd *reader) accept(text string) bool {
	if rd.is(text) {
		rd.next()
		return true
	}
	return false
}

func (rd *reader) expect(text string) {
	if !rd.accept(text) {
		rd.fail(strconv.Quote(text))
	}
}

func (rd *reader) group() *DefGroup {
	switch {
	case rd.accept("val"):
		return &DefGroup{Defs: []*Def{rd.def()}}
	case rd.accept("rec"):
		rd.expect("{")
		g := &DefGroup{Rec: true}
		for !rd.accept("}") {
			rd.expect("val")
			g.Defs = append(g.Defs, rd.def())
			rd.accept(";")
		}
		if len(g.Defs) == 0 {
			rd.failAt(rd.prevEnd()-1, `"val"`)
		}
		return g
	default:
		rd.fail(`"val" or "rec"`)
		panic("unreachable")
	}
}

func (rd *reader) def() *Def {
	start := rd.peek().pos
	d := &Def{Name: rd.name()}
	if rd.accept(":") {
		t := rd.typeName()
		d.Type = &t
	}
	rd.expect("=")
	d.Expr = rd.expr()
	d.Range = loc.Range{rd.base + start, rd.base + rd.prevEnd()}
	return d
}

// name returns a variable name: an identifier or an operator.
func (rd *reader) name() string {
	switch t := rd.peek(); {
	case t.kind == tIdent && !keywords[t.text]:
		return rd.next().text
	case t.kind == tOp && !reservedOp(t.text):
		return rd.next().text
	}
	rd.fail("name")
	panic("unreachable")
}

func reservedOp(text string) bool {
	return text == "=" || text == "->" || text == "|"
}

func (rd *reader) expr() Expr {
	switch {
	case rd.accept("let"):
		g := rd.group()
		rd.expect("in")
		return &Let{Group: g, Body: rd.expr()}
	case rd.accept("return"):
		return &Ret{Val: rd.expr()}
	}
	e := rd.primary()
	for {
		switch {
		case rd.accept("("):
			var args []Expr
			rd.list(")", func() { args = append(args, rd.expr()) })
			e = &App{Fun: e, Args: args}
		case rd.accept("["):
			targs := []TypeName{}
			rd.list("]", func() { targs = append(targs, rd.typeName()) })
			e = &TypeApp{Expr: e, TArgs: targs}
		default:
			return e
		}
	}
}

func (rd *reader) primary() Expr {
	t := rd.peek()
	switch {
	case rd.accept("fn"):
		return rd.lam()
	case rd.accept("forall"):
		return rd.typeLam()
	case rd.accept("match"):
		return rd.match()
	case rd.accept("("):
		e := rd.expr()
		rd.expect(")")
		return e
	case t.kind == tIdent && !keywords[t.text], t.kind == tOp && !reservedOp(t.text):
		return &Var{Name: rd.next().text}
	case t.kind == tCon:
		return &Con{Name: rd.next().text}
	case t.kind == tInt, t.kind == tStr:
		return rd.lit()
	}
	rd.fail("expression")
	panic("unreachable")
}

func (rd *reader) lit() Expr {
	t := rd.next()
	if t.kind == tInt {
		var i big.Int
		if _, ok := i.SetString(t.text, 10); !ok {
			rd.failAt(t.pos, "integer")
		}
		return &IntLit{Val: &i}
	}
	s, err := strconv.Unquote(t.text)
	if err != nil {
		rd.failAt(t.pos, "string")
	}
	return &StrLit{Data: s}
}

func (rd *reader) lam() Expr {
	var lam Lam
	if rd.accept("[") {
		eff := rd.typeName()
		lam.Eff = &eff
		rd.expect("]")
	}
	rd.expect("(")
	rd.list(")", func() {
		p := Parm{Name: rd.name()}
		if rd.accept(":") {
			t := rd.typeName()
			p.Type = &t
		}
		lam.Parms = append(lam.Parms, p)
	})
	rd.expect("{")
	lam.Body = rd.expr()
	rd.expect("}")
	return &lam
}

func (rd *reader) typeLam() Expr {
	var tlam TypeLam
	rd.expect("[")
	rd.list("]", func() {
		tlam.TParms = append(tlam.TParms, TypeVar{Name: rd.name()})
	})
	rd.expect("{")
	tlam.Body = rd.expr()
	rd.expect("}")
	return &tlam
}

func (rd *reader) match() Expr {
	c := &Case{Scrut: rd.expr()}
	rd.expect("{")
	for !rd.accept("}") {
		b := Branch{Pat: rd.pattern()}
		if rd.accept("->") {
			b.Guards = []Guard{Unguarded(rd.expr())}
		} else {
			for rd.is("|") || len(b.Guards) == 0 {
				rd.expect("|")
				var g Guard
				g.Test = rd.expr()
				rd.expect("->")
				g.Expr = rd.expr()
				b.Guards = append(b.Guards, g)
			}
		}
		rd.accept(";")
		c.Branches = append(c.Branches, b)
	}
	return c
}

func (rd *reader) pattern() Pattern {
	switch t := rd.peek(); {
	case t.kind == tIdent && t.text == "_":
		rd.next()
		return &PatWild{}
	case t.kind == tIdent && !keywords[t.text]:
		return &PatVar{Name: rd.next().text}
	case t.kind == tCon:
		p := &PatCon{Name: rd.next().text}
		if rd.accept("(") {
			rd.list(")", func() { p.Args = append(p.Args, rd.pattern()) })
		}
		return p
	case t.kind == tInt, t.kind == tStr:
		return &PatLit{Lit: rd.lit()}
	}
	rd.fail("pattern")
	panic("unreachable")
}

func (rd *reader) typeName() TypeName {
	t := rd.peek()
	if t.kind != tIdent && t.kind != tCon || keywords[t.text] {
		rd.fail("type")
	}
	n := TypeName{Name: rd.next().text}
	if rd.accept("[") {
		rd.list("]", func() { n.Args = append(n.Args, rd.typeName()) })
	}
	return n
}

// list parses comma-separated items up to and including the close token.
// The opening token must already be consumed.
func (rd *reader) list(close string, item func()) {
	if rd.accept(close) {
		return
	}
	for {
		item()
		if rd.accept(close) {
			return
		}
		if !rd.accept(",") {
			rd.fail(fmt.Sprintf("%q or %q", ",", close))
		}
	}
}
