package ir

import "fmt"

// FreeVars returns the names of the variables referenced in e
// that are not bound within e.
func FreeVars(e Expr) map[string]bool {
	free := make(map[string]bool)
	freeVars(e, nil, free)
	return free
}

type boundSet struct {
	name string
	up   *boundSet
}

func (b *boundSet) has(name string) bool {
	for ; b != nil; b = b.up {
		if b.name == name {
			return true
		}
	}
	return false
}

func freeVars(e Expr, bound *boundSet, free map[string]bool) {
	switch e := e.(type) {
	case *Var:
		if !bound.has(e.Name) {
			free[e.Name] = true
		}
	case *Con, *IntLit, *StrLit:
	case *App:
		freeVars(e.Fun, bound, free)
		for _, a := range e.Args {
			freeVars(a, bound, free)
		}
	case *Lam:
		for _, p := range e.Parms {
			bound = &boundSet{name: p.Name, up: bound}
		}
		freeVars(e.Body, bound, free)
	case *TypeLam:
		freeVars(e.Body, bound, free)
	case *TypeApp:
		freeVars(e.Expr, bound, free)
	case *Let:
		inner := bound
		for _, d := range e.Group.Defs {
			inner = &boundSet{name: d.Name, up: inner}
		}
		defScope := bound
		if e.Group.Rec {
			defScope = inner
		}
		for _, d := range e.Group.Defs {
			freeVars(d.Expr, defScope, free)
		}
		freeVars(e.Body, inner, free)
	case *Case:
		freeVars(e.Scrut, bound, free)
		for _, b := range e.Branches {
			inner := bound
			for _, n := range PatVars(b.Pat) {
				inner = &boundSet{name: n, up: inner}
			}
			for _, g := range b.Guards {
				freeVars(g.Test, inner, free)
				freeVars(g.Expr, inner, free)
			}
		}
	case *Ret:
		freeVars(e.Val, bound, free)
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

// PatVars returns the names bound by a pattern, left to right.
func PatVars(p Pattern) []string {
	var names []string
	var walk func(Pattern)
	walk = func(p Pattern) {
		switch p := p.(type) {
		case *PatVar:
			names = append(names, p.Name)
		case *PatCon:
			for _, a := range p.Args {
				walk(a)
			}
		}
	}
	walk(p)
	return names
}

// Idents returns every variable name that is bound or referenced in e.
func Idents(e Expr) []string {
	var names []string
	Walk(e, func(e Expr) bool {
		switch e := e.(type) {
		case *Var:
			names = append(names, e.Name)
		case *Lam:
			for _, p := range e.Parms {
				names = append(names, p.Name)
			}
		case *Let:
			for _, d := range e.Group.Defs {
				names = append(names, d.Name)
			}
		case *Case:
			for _, b := range e.Branches {
				names = append(names, PatVars(b.Pat)...)
			}
		}
		return true
	})
	return names
}
