// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

package unret

import (
	"fmt"

	"github.com/eaburns/unret/ir"
)

// A Kont is a continuation.
// It maps an expression producing a value
// to an expression that computes whatever follows with that value.
// The nil Kont is the identity.
type Kont func(ir.Expr) ir.Expr

func (k Kont) apply(e ir.Expr) ir.Expr {
	if k == nil {
		return e
	}
	return k(e)
}

type kind int

const (
	unchanged kind = iota
	direct
	parametric
)

func (k kind) String() string {
	switch k {
	case unchanged:
		return "unchanged"
	case direct:
		return "direct"
	case parametric:
		return "parametric"
	default:
		panic(fmt.Sprintf("impossible kind: %d", int(k)))
	}
}

// A kexpr is the classification of how an early exit
// occurs in an expression, together with its rewrite.
type kexpr struct {
	kind kind

	// expr is the rewritten, exit-free expression if unchanged,
	// or the exit value if direct.
	// If unchanged and no boundary below was rewritten,
	// expr is the original expression.
	expr ir.Expr

	// res is non-nil if parametric.
	res *resolver
}

// A resolver builds the rewrite of a parametric expression
// from its continuation.
// A resolver must only be resolved once.
type resolver struct {
	f    func(Kont) ir.Expr
	done bool
}

func (r *resolver) resolve(k Kont) ir.Expr {
	if r.done {
		panic("continuation resolved twice")
	}
	r.done = true
	return r.f(k)
}

func keep(e ir.Expr) kexpr { return kexpr{kind: unchanged, expr: e} }

func exit(e ir.Expr) kexpr { return kexpr{kind: direct, expr: e} }

func param(f func(Kont) ir.Expr) kexpr {
	return kexpr{kind: parametric, res: &resolver{f: f}}
}

// lift embeds a pure expression as a parametric one
// that passes its value to the continuation.
func lift(e ir.Expr) kexpr {
	return param(func(k Kont) ir.Expr { return k.apply(e) })
}

// reconstruct returns the final expression of a classification.
// The continuation is only used by a parametric classification:
// an unchanged expression is returned as is,
// and a direct exit overrides everything that follows it.
func reconstruct(ke kexpr, k Kont) ir.Expr {
	switch ke.kind {
	case unchanged, direct:
		return ke.expr
	case parametric:
		return ke.res.resolve(k)
	default:
		panic(fmt.Sprintf("impossible kind: %d", int(ke.kind)))
	}
}

// resume is like reconstruct,
// but it also applies the continuation to an unchanged expression.
func resume(ke kexpr, k Kont) ir.Expr {
	if ke.kind == unchanged {
		return k.apply(ke.expr)
	}
	return reconstruct(ke, k)
}

// mapExpr applies g to the expression of a classification
// without resolving its continuation.
func mapExpr(g func(ir.Expr) ir.Expr, ke kexpr) kexpr {
	switch ke.kind {
	case unchanged:
		return keep(g(ke.expr))
	case direct:
		return exit(g(ke.expr))
	case parametric:
		return param(func(k Kont) ir.Expr { return g(ke.res.resolve(k)) })
	default:
		panic(fmt.Sprintf("impossible kind: %d", int(ke.kind)))
	}
}

// sequence classifies an expression that evaluates a, then b,
// where combine rebuilds the expression from the rewrites of a and b.
//
// The first direct exit, in evaluation order, wins:
// if a is direct, b is unreachable and dropped;
// if b is direct, a is still evaluated before it.
//
// If a is parametric, the continuation of a is called once per tail of a.
// The first call resumes b; later calls get a copy of that rewrite.
func sequence(combine func(a, b ir.Expr) ir.Expr, ka, kb kexpr) kexpr {
	switch {
	case ka.kind == direct:
		return ka
	case ka.kind == unchanged && kb.kind == unchanged:
		return keep(combine(ka.expr, kb.expr))
	case ka.kind == unchanged && kb.kind == direct:
		return exit(combine(ka.expr, kb.expr))
	case ka.kind == unchanged:
		return param(func(k Kont) ir.Expr {
			return combine(ka.expr, kb.res.resolve(k))
		})
	default:
		return param(func(k Kont) ir.Expr {
			var rest ir.Expr
			return ka.res.resolve(func(v ir.Expr) ir.Expr {
				if rest == nil {
					rest = resume(kb, k)
					return combine(v, rest)
				}
				return combine(v, ir.Copy(rest))
			})
		})
	}
}
