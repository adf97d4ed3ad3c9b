// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

package unret

import (
	"fmt"

	"github.com/eaburns/unret/ir"
)

// A renamer renames the binders of an expression that shadow a name in scope.
//
// The rewrite moves a continuation under the pattern and let binders
// of the expression that it follows.
// The free variables of the continuation are in scope around that expression,
// so if no binder shadows a name in scope, none can capture them.
type renamer struct {
	names *ir.Names
	// taken holds the names in scope around the whole expression:
	// module-level definitions and the expression's free variables.
	taken map[string]bool
}

type renaming struct {
	from, to string
	up       *renaming
}

func (r *renaming) lookup(name string) (string, bool) {
	for ; r != nil; r = r.up {
		if r.from == name {
			return r.to, true
		}
	}
	return "", false
}

// unshadow returns e with every binder that shadows a name in scope renamed.
// If no binder is renamed, e itself is returned.
func (ur *unreturner) unshadow(e ir.Expr, globals []string) ir.Expr {
	rn := renamer{names: ur.names, taken: ir.FreeVars(e)}
	for _, g := range globals {
		rn.taken[g] = true
	}
	return rn.expr(nil, e)
}

// bind adds a binder to the scope, renaming it if it shadows a name in scope.
func (rn *renamer) bind(sc *renaming, name string) (*renaming, string) {
	to := name
	if _, ok := sc.lookup(name); ok || rn.taken[name] {
		to = rn.names.Fresh(hint(name))
	}
	return &renaming{from: name, to: to, up: sc}, to
}

// hint returns the name itself if it is an identifier, or "op" for an operator.
func hint(name string) string {
	if c := name[0]; c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return name
	}
	return "op"
}

func (rn *renamer) expr(sc *renaming, e ir.Expr) ir.Expr {
	switch e := e.(type) {
	case *ir.Var:
		if to, ok := sc.lookup(e.Name); ok && to != e.Name {
			return &ir.Var{Name: to, Type: e.Type}
		}
		return e
	case *ir.Con, *ir.IntLit, *ir.StrLit:
		return e
	case *ir.App:
		fun := rn.expr(sc, e.Fun)
		args, changed := rn.exprs(sc, e.Args)
		if fun == e.Fun && !changed {
			return e
		}
		return &ir.App{Fun: fun, Args: args}
	case *ir.Lam:
		parms := make([]ir.Parm, len(e.Parms))
		changed := false
		for i, p := range e.Parms {
			parms[i] = p
			sc, parms[i].Name = rn.bind(sc, p.Name)
			changed = changed || parms[i].Name != p.Name
		}
		body := rn.expr(sc, e.Body)
		if body == e.Body && !changed {
			return e
		}
		return &ir.Lam{Parms: parms, Eff: e.Eff, Body: body}
	case *ir.TypeLam:
		body := rn.expr(sc, e.Body)
		if body == e.Body {
			return e
		}
		return &ir.TypeLam{TParms: e.TParms, Body: body}
	case *ir.TypeApp:
		x := rn.expr(sc, e.Expr)
		if x == e.Expr {
			return e
		}
		return &ir.TypeApp{Expr: x, TArgs: e.TArgs}
	case *ir.Let:
		g, inner := rn.group(sc, e.Group)
		body := rn.expr(inner, e.Body)
		if g == e.Group && body == e.Body {
			return e
		}
		return &ir.Let{Group: g, Body: body}
	case *ir.Case:
		return rn.match(sc, e)
	case *ir.Ret:
		val := rn.expr(sc, e.Val)
		if val == e.Val {
			return e
		}
		return &ir.Ret{Val: val}
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

func (rn *renamer) exprs(sc *renaming, es []ir.Expr) ([]ir.Expr, bool) {
	out := make([]ir.Expr, len(es))
	changed := false
	for i, e := range es {
		out[i] = rn.expr(sc, e)
		changed = changed || out[i] != e
	}
	return out, changed
}

// group returns the renamed group and the scope of the let body.
func (rn *renamer) group(sc *renaming, g *ir.DefGroup) (*ir.DefGroup, *renaming) {
	inner := sc
	names := make([]string, len(g.Defs))
	for i, d := range g.Defs {
		inner, names[i] = rn.bind(inner, d.Name)
	}
	defScope := sc
	if g.Rec {
		defScope = inner
	}
	var defs []*ir.Def
	for i, d := range g.Defs {
		e := rn.expr(defScope, d.Expr)
		if e == d.Expr && names[i] == d.Name {
			continue
		}
		if defs == nil {
			defs = append([]*ir.Def{}, g.Defs...)
		}
		defs[i] = &ir.Def{Range: d.Range, Name: names[i], Type: d.Type, Expr: e}
	}
	if defs == nil {
		return g, inner
	}
	return &ir.DefGroup{Rec: g.Rec, Defs: defs}, inner
}

func (rn *renamer) match(sc *renaming, e *ir.Case) ir.Expr {
	scrut := rn.expr(sc, e.Scrut)
	changed := scrut != e.Scrut
	branches := make([]ir.Branch, len(e.Branches))
	for i, b := range e.Branches {
		inner := sc
		pat := rn.pattern(&inner, b.Pat)
		guards := make([]ir.Guard, len(b.Guards))
		for j, g := range b.Guards {
			guards[j] = ir.Guard{Test: rn.expr(inner, g.Test), Expr: rn.expr(inner, g.Expr)}
			changed = changed || guards[j].Test != g.Test || guards[j].Expr != g.Expr
		}
		changed = changed || pat != b.Pat
		branches[i] = ir.Branch{Pat: pat, Guards: guards}
	}
	if !changed {
		return e
	}
	return &ir.Case{Scrut: scrut, Branches: branches}
}

func (rn *renamer) pattern(sc **renaming, p ir.Pattern) ir.Pattern {
	switch p := p.(type) {
	case *ir.PatVar:
		var to string
		*sc, to = rn.bind(*sc, p.Name)
		if to == p.Name {
			return p
		}
		return &ir.PatVar{Name: to}
	case *ir.PatCon:
		var args []ir.Pattern
		for i, a := range p.Args {
			a1 := rn.pattern(sc, a)
			if a1 != a && args == nil {
				args = append([]ir.Pattern{}, p.Args...)
			}
			if args != nil {
				args[i] = a1
			}
		}
		if args == nil {
			return p
		}
		return &ir.PatCon{Name: p.Name, Args: args}
	default:
		return p
	}
}
