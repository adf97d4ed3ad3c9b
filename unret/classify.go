// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

package unret

import (
	"fmt"

	"github.com/eaburns/unret/ir"
)

// classify classifies and rewrites an expression.
// It never fails; escaping exits are reported by the callers
// that have no continuation to give: recGroup and topGroup.
func (ur *unreturner) classify(e ir.Expr) kexpr {
	switch e := e.(type) {
	case *ir.Var, *ir.Con, *ir.IntLit, *ir.StrLit:
		return keep(e)
	case *ir.App:
		return keep(ur.app(e))
	case *ir.Lam:
		body := reconstruct(ur.classify(e.Body), nil)
		if body == e.Body {
			return keep(e)
		}
		return keep(&ir.Lam{Parms: e.Parms, Eff: e.Eff, Body: body})
	case *ir.TypeLam:
		body := reconstruct(ur.classify(e.Body), nil)
		if body == e.Body {
			return keep(e)
		}
		return keep(&ir.TypeLam{TParms: e.TParms, Body: body})
	case *ir.TypeApp:
		return mapExpr(func(x ir.Expr) ir.Expr {
			if x == e.Expr {
				return e
			}
			return &ir.TypeApp{Expr: x, TArgs: e.TArgs}
		}, ur.classify(e.Expr))
	case *ir.Let:
		return ur.let(e)
	case *ir.Case:
		return ur.match(e)
	case *ir.Ret:
		return exit(ur.pure(e.Val))
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

// pure rewrites the boundaries nested in an expression
// that can contain no early exit of its own:
// application operands, case scrutinees, guard tests, and exit values.
// If the expression does contain an exit, it is returned as is;
// ir.Check reports it.
func (ur *unreturner) pure(e ir.Expr) ir.Expr {
	if ke := ur.classify(e); ke.kind == unchanged {
		return ke.expr
	}
	return e
}

func (ur *unreturner) app(e *ir.App) ir.Expr {
	fun := ur.pure(e.Fun)
	changed := fun != e.Fun
	args := make([]ir.Expr, len(e.Args))
	for i, a := range e.Args {
		args[i] = ur.pure(a)
		changed = changed || args[i] != a
	}
	if !changed {
		return e
	}
	return &ir.App{Fun: fun, Args: args}
}

func (ur *unreturner) let(e *ir.Let) kexpr {
	if e.Group.Rec {
		g := ur.recGroup(e.Group)
		return sequence(func(_, body ir.Expr) ir.Expr {
			return rebuildLet(e, g, body)
		}, keep(nil), ur.classify(e.Body))
	}
	// Group shapes were checked by checkShapes.
	kd := ur.classify(e.Group.Defs[0].Expr)
	kb := ur.classify(e.Body)
	return sequence(func(val, body ir.Expr) ir.Expr {
		return rebuildLet(e, withDef(e.Group, 0, val), body)
	}, kd, kb)
}

func rebuildLet(e *ir.Let, g *ir.DefGroup, body ir.Expr) ir.Expr {
	if g == e.Group && body == e.Body {
		return e
	}
	return &ir.Let{Group: g, Body: body}
}

// A tail is the classification of a guard result of a case,
// along with the rewritten guard test.
type tail struct {
	test ir.Expr
	ke   kexpr
}

func (ur *unreturner) match(e *ir.Case) kexpr {
	scrut := ur.pure(e.Scrut)
	changed := scrut != e.Scrut
	exits := false
	tails := make([][]tail, len(e.Branches))
	for i, b := range e.Branches {
		tails[i] = make([]tail, len(b.Guards))
		for j, g := range b.Guards {
			t := tail{test: ur.pure(g.Test), ke: ur.classify(g.Expr)}
			changed = changed || t.test != g.Test
			switch t.ke.kind {
			case unchanged:
				changed = changed || t.ke.expr != g.Expr
			default:
				exits = true
			}
			tails[i][j] = t
		}
	}
	if !exits {
		if !changed {
			return keep(e)
		}
		return keep(rebuildCase(e, scrut, tails, nil))
	}
	for i := range tails {
		for j, t := range tails[i] {
			if t.ke.kind == unchanged {
				tails[i][j].ke = lift(t.ke.expr)
			}
		}
	}
	return param(func(k Kont) ir.Expr {
		if !ur.cfg.ShareJoins || k == nil || resuming(tails) < 2 {
			return rebuildCase(e, scrut, tails, k)
		}
		return ur.join(k, func(k Kont) ir.Expr {
			return rebuildCase(e, scrut, tails, k)
		})
	})
}

// resuming returns the number of tails that may resume their continuation.
func resuming(tails [][]tail) int {
	var n int
	for _, ts := range tails {
		for _, t := range ts {
			if t.ke.kind != direct {
				n++
			}
		}
	}
	return n
}

// rebuildCase returns a new Case with each tail rewritten under k.
func rebuildCase(e *ir.Case, scrut ir.Expr, tails [][]tail, k Kont) ir.Expr {
	c := &ir.Case{Scrut: scrut, Branches: make([]ir.Branch, len(e.Branches))}
	for i, b := range e.Branches {
		guards := make([]ir.Guard, len(b.Guards))
		for j, t := range tails[i] {
			guards[j] = ir.Guard{Test: t.test, Expr: reconstruct(t.ke, k)}
		}
		c.Branches[i] = ir.Branch{Pat: b.Pat, Guards: guards}
	}
	return c
}

// join binds the continuation to a fresh local function, a join point,
// and returns the expression built with a continuation that calls it:
//
//	let val _j = fn(_x) { k(_x) } in build(fn(v) { _j(v) })
func (ur *unreturner) join(k Kont, build func(Kont) ir.Expr) ir.Expr {
	j := ur.names.Fresh("j")
	x := ur.names.Fresh("x")
	def := &ir.Def{
		Name: j,
		Expr: &ir.Lam{
			Parms: []ir.Parm{{Name: x}},
			Body:  k(&ir.Var{Name: x}),
		},
	}
	body := build(func(v ir.Expr) ir.Expr {
		return &ir.App{Fun: &ir.Var{Name: j}, Args: []ir.Expr{v}}
	})
	return &ir.Let{Group: &ir.DefGroup{Defs: []*ir.Def{def}}, Body: body}
}
