// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

// Package unret eliminates early exits from the IR.
//
// After the pass, a Ret never occurs outside of a boundary's body,
// and no Ret remains that a later pass could move
// into a newly synthesized function.
// Early exits under a let or a case are hoisted outward:
// the code following them is threaded into the rewrite
// as an explicit continuation,
// and the exit value becomes the result of that path.
//
// Continuations are moved under the binders of lets and case branches.
// Before a definition with an early exit is rewritten,
// each of its binders that shadows a name in scope is renamed to a fresh name,
// so no binder can capture a free variable of a continuation.
package unret

import (
	"github.com/eaburns/unret/ir"
)

// Config configures the pass.
type Config struct {
	// ShareJoins, if true, binds a continuation that would be distributed
	// to more than one tail of a case to a local function, a join point,
	// that each tail calls.
	// If false, the continuation is duplicated into each tail.
	ShareJoins bool

	// Names generates the names of join points and their parameters.
	// If nil, a new generator is used for each run of the pass.
	Names *ir.Names
}

// Run rewrites a module so that no early exit remains outside of a boundary.
//
// If the module contains no early exit that needs rewriting,
// m itself is returned.
// If an early exit escapes a recursive definition group
// or the module top level, the returned module is nil,
// and the errors describe each escape.
// The same is true if a definition group of the module is malformed
// (see ir.CheckGroup); the module is not rewritten.
func Run(m *ir.Mod, cfg Config) (*ir.Mod, []error) {
	ur := newUnreturner(m, cfg)
	for _, g := range m.Groups {
		ur.checkShapes(g)
	}
	if len(ur.errs) > 0 {
		return nil, convertErrors(ur.errs)
	}
	ur.scan(m.Groups)
	groups := make([]*ir.DefGroup, len(m.Groups))
	changed := false
	for i, g := range m.Groups {
		groups[i] = ur.topGroup(g)
		changed = changed || groups[i] != g
	}
	if len(ur.errs) > 0 {
		return nil, convertErrors(ur.errs)
	}
	if !changed {
		return m, nil
	}
	return &ir.Mod{Path: m.Path, Groups: groups, Locs: m.Locs}, nil
}

// RunGroup rewrites a single top-level definition group.
//
// If the group contains no early exit that needs rewriting, g is returned.
func RunGroup(g *ir.DefGroup, cfg Config) (*ir.DefGroup, []error) {
	ur := newUnreturner(nil, cfg)
	if ur.checkShapes(g); len(ur.errs) > 0 {
		return nil, convertErrors(ur.errs)
	}
	ur.scan([]*ir.DefGroup{g})
	g1 := ur.topGroup(g)
	if len(ur.errs) > 0 {
		return nil, convertErrors(ur.errs)
	}
	return g1, nil
}

type unreturner struct {
	mod   *ir.Mod
	cfg   Config
	names *ir.Names
	errs  []bugError

	// globals are the names of the module-level definitions.
	globals []string
}

func newUnreturner(m *ir.Mod, cfg Config) *unreturner {
	names := cfg.Names
	if names == nil {
		names = ir.NewNames("")
	}
	return &unreturner{mod: m, cfg: cfg, names: names}
}

// scan records the module-level names,
// and reserves every name of the groups so that no fresh name equals one.
func (ur *unreturner) scan(groups []*ir.DefGroup) {
	for _, g := range groups {
		for _, d := range g.Defs {
			ur.globals = append(ur.globals, d.Name)
			ur.names.Reserve(d.Name)
			ur.names.Reserve(ir.Idents(d.Expr)...)
		}
	}
}

// checkShapes reports malformed groups in g, including nested groups.
func (ur *unreturner) checkShapes(g *ir.DefGroup) {
	if err := ir.CheckGroup(g); err != nil {
		var d *ir.Def
		if len(g.Defs) > 0 {
			d = g.Defs[0]
		}
		ur.malformed(d, err)
		return
	}
	for _, d := range g.Defs {
		d := d
		ir.Walk(d.Expr, func(e ir.Expr) bool {
			if l, ok := e.(*ir.Let); ok {
				if err := ir.CheckGroup(l.Group); err != nil {
					ur.malformed(d, err)
					return false
				}
			}
			return true
		})
	}
}

// topGroup rewrites a group at module scope.
// There is no boundary at module scope to absorb an exit,
// so a direct definition is an error,
// and a parametric one is resolved with the identity continuation.
func (ur *unreturner) topGroup(g *ir.DefGroup) *ir.DefGroup {
	for i, d := range g.Defs {
		if ir.HasRet(d.Expr) {
			g = withDef(g, i, ur.unshadow(d.Expr, ur.globals))
		}
	}
	if g.Rec {
		return ur.recGroup(g)
	}
	d := g.Defs[0]
	ke := ur.classify(d.Expr)
	if ke.kind == direct {
		ur.topExit(d)
	}
	return withDef(g, 0, reconstruct(ke, nil))
}

// recGroup rewrites a recursive group.
// There is no continuation to thread into mutual recursion,
// so a direct member is an error,
// and a parametric member is resolved with the identity continuation.
func (ur *unreturner) recGroup(g *ir.DefGroup) *ir.DefGroup {
	g1 := g
	for i, d := range g.Defs {
		ke := ur.classify(d.Expr)
		if ke.kind == direct {
			ur.recExit(d)
		}
		g1 = withDef(g1, i, reconstruct(ke, nil))
	}
	return g1
}

// withDef returns g with the expression of its ith Def replaced.
// If the expression is unchanged, g itself is returned.
// Otherwise, a new DefGroup is returned; g is not modified.
func withDef(g *ir.DefGroup, i int, e ir.Expr) *ir.DefGroup {
	d := g.Defs[i]
	if e == d.Expr {
		return g
	}
	defs := append([]*ir.Def{}, g.Defs...)
	defs[i] = &ir.Def{Range: d.Range, Name: d.Name, Type: d.Type, Expr: e}
	return &ir.DefGroup{Rec: g.Rec, Defs: defs}
}
