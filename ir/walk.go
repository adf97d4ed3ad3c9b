package ir

import "fmt"

// Walk calls f for e and, if f returns true, for each sub-expression of e,
// in pre-order.
// Guard tests and Case scrutinees are visited
// before the expressions they select.
func Walk(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch e := e.(type) {
	case *Var, *Con, *IntLit, *StrLit:
	case *App:
		Walk(e.Fun, f)
		for _, a := range e.Args {
			Walk(a, f)
		}
	case *Lam:
		Walk(e.Body, f)
	case *TypeLam:
		Walk(e.Body, f)
	case *TypeApp:
		Walk(e.Expr, f)
	case *Let:
		for _, d := range e.Group.Defs {
			Walk(d.Expr, f)
		}
		Walk(e.Body, f)
	case *Case:
		Walk(e.Scrut, f)
		for _, b := range e.Branches {
			for _, g := range b.Guards {
				Walk(g.Test, f)
				Walk(g.Expr, f)
			}
		}
	case *Ret:
		Walk(e.Val, f)
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

// HasRet returns whether a Ret occurs anywhere in e,
// including under boundaries.
func HasRet(e Expr) bool {
	var found bool
	Walk(e, func(e Expr) bool {
		if _, ok := e.(*Ret); ok {
			found = true
		}
		return !found
	})
	return found
}

// NakedRet returns whether a Ret occurs in e outside of every boundary.
// Such a Ret would exit the boundary that encloses e itself.
func NakedRet(e Expr) bool {
	var found bool
	Walk(e, func(e Expr) bool {
		switch e.(type) {
		case *Ret:
			found = true
		case *Lam, *TypeLam:
			return false
		}
		return !found
	})
	return found
}

// Copy returns a deep copy of an expression.
// No node of the result is shared with e.
// Types and literal values, which are never modified, are shared.
func Copy(e Expr) Expr {
	switch e := e.(type) {
	case *Var:
		c := *e
		return &c
	case *Con:
		c := *e
		return &c
	case *IntLit:
		c := *e
		return &c
	case *StrLit:
		c := *e
		return &c
	case *App:
		return &App{Fun: Copy(e.Fun), Args: copyExprs(e.Args)}
	case *Lam:
		return &Lam{
			Parms: append([]Parm{}, e.Parms...),
			Eff:   e.Eff,
			Body:  Copy(e.Body),
		}
	case *TypeLam:
		return &TypeLam{
			TParms: append([]TypeVar{}, e.TParms...),
			Body:   Copy(e.Body),
		}
	case *TypeApp:
		return &TypeApp{
			Expr:  Copy(e.Expr),
			TArgs: append([]TypeName{}, e.TArgs...),
		}
	case *Let:
		return &Let{Group: CopyGroup(e.Group), Body: Copy(e.Body)}
	case *Case:
		c := &Case{Scrut: Copy(e.Scrut), Branches: make([]Branch, len(e.Branches))}
		for i, b := range e.Branches {
			c.Branches[i].Pat = b.Pat
			c.Branches[i].Guards = make([]Guard, len(b.Guards))
			for j, g := range b.Guards {
				c.Branches[i].Guards[j] = Guard{Test: Copy(g.Test), Expr: Copy(g.Expr)}
			}
		}
		return c
	case *Ret:
		return &Ret{Val: Copy(e.Val)}
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

// CopyGroup returns a deep copy of a definition group.
func CopyGroup(g *DefGroup) *DefGroup {
	c := &DefGroup{Rec: g.Rec, Defs: make([]*Def, len(g.Defs))}
	for i, d := range g.Defs {
		c.Defs[i] = &Def{Range: d.Range, Name: d.Name, Type: d.Type, Expr: Copy(d.Expr)}
	}
	return c
}

func copyExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	c := make([]Expr, len(es))
	for i, e := range es {
		c[i] = Copy(e)
	}
	return c
}
