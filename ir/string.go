// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// The printed form is the syntax accepted by Parser.
// Var types are not printed.

func (m *Mod) String() string {
	return m.buildString(&strings.Builder{}).String()
}

func (m *Mod) buildString(s *strings.Builder) *strings.Builder {
	for i, g := range m.Groups {
		if i > 0 {
			s.WriteString("\n\n")
		}
		g.buildString(s, 0)
	}
	return s
}

func (g *DefGroup) String() string {
	return g.buildString(&strings.Builder{}, 0).String()
}

func (g *DefGroup) buildString(s *strings.Builder, depth int) *strings.Builder {
	if !g.Rec {
		for _, d := range g.Defs {
			s.WriteString("val ")
			d.buildString(s, depth)
		}
		return s
	}
	s.WriteString("rec {")
	for _, d := range g.Defs {
		newline(s, depth+1)
		s.WriteString("val ")
		d.buildString(s, depth+1)
	}
	newline(s, depth)
	s.WriteRune('}')
	return s
}

func (d *Def) buildString(s *strings.Builder, depth int) *strings.Builder {
	s.WriteString(d.Name)
	if d.Type != nil {
		s.WriteString(": ")
		s.WriteString(d.Type.String())
	}
	s.WriteString(" = ")
	return buildExpr(s, depth, d.Expr)
}

// ExprString returns the printed form of an expression.
func ExprString(e Expr) string {
	return buildExpr(&strings.Builder{}, 0, e).String()
}

func buildExpr(s *strings.Builder, depth int, e Expr) *strings.Builder {
	switch e := e.(type) {
	case nil:
		s.WriteString("<nil>")
	case *Var:
		s.WriteString(e.Name)
	case *Con:
		s.WriteString(e.Name)
	case *IntLit:
		s.WriteString(e.Val.String())
	case *StrLit:
		s.WriteString(strconv.Quote(e.Data))
	case *App:
		buildOperand(s, depth, e.Fun)
		s.WriteRune('(')
		for i, a := range e.Args {
			if i > 0 {
				s.WriteString(", ")
			}
			buildExpr(s, depth, a)
		}
		s.WriteRune(')')
	case *Lam:
		s.WriteString("fn")
		if e.Eff != nil {
			fmt.Fprintf(s, "[%s]", e.Eff)
		}
		s.WriteRune('(')
		for i, p := range e.Parms {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(p.Name)
			if p.Type != nil {
				s.WriteString(": ")
				s.WriteString(p.Type.String())
			}
		}
		s.WriteString(") {")
		newline(s, depth+1)
		buildExpr(s, depth+1, e.Body)
		newline(s, depth)
		s.WriteRune('}')
	case *TypeLam:
		s.WriteString("forall[")
		for i, p := range e.TParms {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(p.Name)
		}
		s.WriteString("] {")
		newline(s, depth+1)
		buildExpr(s, depth+1, e.Body)
		newline(s, depth)
		s.WriteRune('}')
	case *TypeApp:
		buildOperand(s, depth, e.Expr)
		s.WriteRune('[')
		for i, a := range e.TArgs {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(a.String())
		}
		s.WriteRune(']')
	case *Let:
		s.WriteString("let ")
		e.Group.buildString(s, depth)
		s.WriteString(" in")
		newline(s, depth)
		buildExpr(s, depth, e.Body)
	case *Case:
		s.WriteString("match ")
		buildExpr(s, depth, e.Scrut)
		s.WriteString(" {")
		for _, b := range e.Branches {
			newline(s, depth+1)
			buildPattern(s, b.Pat)
			if len(b.Guards) == 1 && IsTrue(b.Guards[0].Test) {
				s.WriteString(" -> ")
				buildExpr(s, depth+1, b.Guards[0].Expr)
				continue
			}
			for _, g := range b.Guards {
				newline(s, depth+2)
				s.WriteString("| ")
				buildExpr(s, depth+2, g.Test)
				s.WriteString(" -> ")
				buildExpr(s, depth+2, g.Expr)
			}
		}
		newline(s, depth)
		s.WriteRune('}')
	case *Ret:
		s.WriteString("return ")
		buildExpr(s, depth, e.Val)
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
	return s
}

// buildOperand builds the function of an App or the expression of a TypeApp.
// Exprs that extend as far right as possible are parenthesized.
func buildOperand(s *strings.Builder, depth int, e Expr) {
	switch e.(type) {
	case *Let, *Ret:
		s.WriteRune('(')
		buildExpr(s, depth, e)
		s.WriteRune(')')
	default:
		buildExpr(s, depth, e)
	}
}

func buildPattern(s *strings.Builder, p Pattern) {
	switch p := p.(type) {
	case *PatWild:
		s.WriteRune('_')
	case *PatVar:
		s.WriteString(p.Name)
	case *PatCon:
		s.WriteString(p.Name)
		if len(p.Args) == 0 {
			return
		}
		s.WriteRune('(')
		for i, a := range p.Args {
			if i > 0 {
				s.WriteString(", ")
			}
			buildPattern(s, a)
		}
		s.WriteRune(')')
	case *PatLit:
		buildExpr(s, 0, p.Lit)
	default:
		panic(fmt.Sprintf("impossible Pattern type: %T", p))
	}
}

func (n TypeName) String() string {
	var s strings.Builder
	s.WriteString(n.Name)
	buildTypeArgs(&s, n.Args)
	return s.String()
}

func buildTypeArgs(s *strings.Builder, args []TypeName) {
	if len(args) == 0 {
		return
	}
	s.WriteRune('[')
	for i, a := range args {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(a.String())
	}
	s.WriteRune(']')
}

func newline(s *strings.Builder, depth int) {
	s.WriteRune('\n')
	for i := 0; i < depth; i++ {
		s.WriteRune('\t')
	}
}
