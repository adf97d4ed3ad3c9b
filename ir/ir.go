// Copyright © 2020 The Pea Authors under an MIT-style license.

// Package ir is a small, explicit functional intermediate representation.
//
// The representation sits between the lowering of surface statements
// and the passes that introduce new function boundaries
// (lambda-lifting, effect-handler insertion, closure conversion).
// Statement-level control, like an early return,
// is reified as an ordinary expression node, Ret.
//
// Boundaries
//
// A Lam or a TypeLam is a boundary.
// A Ret transfers control to the result of the nearest enclosing boundary.
// No other node shields a Ret.
//
// Immutability
//
// Nodes are not modified after construction.
// Passes build new trees, and return the original pointer
// for any subtree that they did not change.
package ir

import (
	"math/big"

	"github.com/eaburns/unret/loc"
)

// A Mod is a compilation unit: a sequence of definition groups.
// The order of groups is significant; each group sees the groups before it.
type Mod struct {
	Path   string
	Groups []*DefGroup

	// Locs maps the Ranges of Defs to file locations.
	// It is nil if the Mod was not read from source text.
	Locs loc.Files
}

// Loc returns the location of a definition in m.
func (m *Mod) Loc(d *Def) loc.Loc {
	if m == nil {
		return loc.Loc{}
	}
	return m.Locs.Loc(d.Range)
}

// A DefGroup is either a single, non-recursive Def,
// or a set of mutually-recursive Defs.
//
// If Rec is false, Defs has exactly one element.
// The Defs of a recursive group have no evaluation order
// relative to each other, but all are visible to each other.
type DefGroup struct {
	Rec  bool
	Defs []*Def
}

// A Def binds a name to an expression.
type Def struct {
	loc.Range
	Name string
	// Type is nil if not explicit.
	Type *TypeName
	Expr Expr
}

// A TypeName is the name of a type, an effect, or a type variable.
type TypeName struct {
	Name string
	Args []TypeName
}

// A TypeVar is a type parameter of a TypeLam.
type TypeVar struct {
	Name string
}

// A Parm is a parameter of a Lam.
type Parm struct {
	Name string
	// Type is nil if not explicit.
	Type *TypeName
}

// An Expr is an expression.
//
// The set of Exprs is closed; it is exactly the types of this package
// that implement the unexported expr method.
type Expr interface {
	expr()
}

// A Var is a reference to a variable.
type Var struct {
	Name string
	// Type is nil if not explicit.
	Type *TypeName
}

// A Con is a reference to a data constructor.
type Con struct {
	Name string
}

// An IntLit is an integer literal.
type IntLit struct {
	Val *big.Int
}

// A StrLit is a string literal.
type StrLit struct {
	Data string
}

// An App is a function application.
type App struct {
	Fun  Expr
	Args []Expr
}

// A Lam is a function literal. It is a boundary.
type Lam struct {
	Parms []Parm
	// Eff is the effect annotation; it is nil if not explicit.
	Eff  *TypeName
	Body Expr
}

// A TypeLam is a type abstraction. It is a boundary.
type TypeLam struct {
	TParms []TypeVar
	Body   Expr
}

// A TypeApp is a type application.
type TypeApp struct {
	Expr  Expr
	TArgs []TypeName
}

// A Let binds a definition group in a body.
type Let struct {
	Group *DefGroup
	Body  Expr
}

// A Case is a pattern match.
// The first Branch with a matching pattern and holding guard is selected.
type Case struct {
	Scrut    Expr
	Branches []Branch
}

// A Branch is a pattern and the guards tried when the pattern matches.
type Branch struct {
	Pat    Pattern
	Guards []Guard
}

// A Guard is a boolean test and the result expression
// selected if the test is the first of its Branch to hold.
type Guard struct {
	// Test is a reference to the True constructor for an unguarded branch.
	Test Expr
	Expr Expr
}

// A Ret is an early exit.
// It abandons the remaining computation of the nearest enclosing boundary,
// making Val the result of that boundary.
type Ret struct {
	Val Expr
}

func (*Var) expr()     {}
func (*Con) expr()     {}
func (*IntLit) expr()  {}
func (*StrLit) expr()  {}
func (*App) expr()     {}
func (*Lam) expr()     {}
func (*TypeLam) expr() {}
func (*TypeApp) expr() {}
func (*Let) expr()     {}
func (*Case) expr()    {}
func (*Ret) expr()     {}

// A Pattern is a Case pattern.
//
// The set of Patterns is closed; it is exactly the types of this package
// that implement the unexported pattern method.
type Pattern interface {
	pattern()
}

// A PatWild matches anything and binds nothing.
type PatWild struct{}

// A PatVar matches anything and binds it to a name.
type PatVar struct {
	Name string
}

// A PatCon matches a constructor application.
type PatCon struct {
	Name string
	Args []Pattern
}

// A PatLit matches a literal. Lit is an *IntLit or a *StrLit.
type PatLit struct {
	Lit Expr
}

func (*PatWild) pattern() {}
func (*PatVar) pattern()  {}
func (*PatCon) pattern()  {}
func (*PatLit) pattern()  {}

// TrueName is the name of the constructor that an unguarded Guard tests.
const TrueName = "True"

// Unguarded returns a Guard whose test always holds.
func Unguarded(e Expr) Guard {
	return Guard{Test: &Con{Name: TrueName}, Expr: e}
}

// IsTrue returns whether an expression is a reference to the True constructor.
func IsTrue(e Expr) bool {
	c, ok := e.(*Con)
	return ok && c.Name == TrueName
}

// NewInt returns an integer literal.
func NewInt(i int64) *IntLit {
	return &IntLit{Val: big.NewInt(i)}
}
