// Package interp is a reference interpreter for the IR.
//
// It gives a Ret its meaning before the early-exit pass:
// a Ret abandons the evaluation of the nearest enclosing boundary,
// and its value becomes the result of that boundary.
// Types are erased: a TypeApp evaluates to its expression,
// and a TypeLam evaluates its body, catching any exit from it.
package interp

import (
	"fmt"
	"math/big"

	"github.com/eaburns/unret/ir"
	"github.com/pkg/errors"
)

// exitSignal is returned as an error by eval
// while an early exit unwinds to its boundary.
type exitSignal struct {
	val Value
}

func (*exitSignal) Error() string { return "early exit outside of a function" }

type env struct {
	name string
	val  Value
	up   *env
}

func (e *env) bind(name string, val Value) *env {
	return &env{name: name, val: val, up: e}
}

func (e *env) lookup(name string) (Value, bool) {
	for ; e != nil; e = e.up {
		if e.name == name {
			return e.val, true
		}
	}
	if p, ok := prims[name]; ok {
		return p, true
	}
	return nil, false
}

// A Machine holds the evaluated top-level definitions of a module.
type Machine struct {
	globals *env
	// MaxDepth bounds the depth of nested calls; 0 is unbounded.
	MaxDepth int
	depth    int
}

// Load evaluates the top-level definitions of a module, in order.
func Load(m *ir.Mod) (*Machine, error) {
	mach := &Machine{MaxDepth: 10000}
	for _, g := range m.Groups {
		var err error
		if mach.globals, err = mach.group(mach.globals, g); err != nil {
			if _, ok := err.(*exitSignal); ok {
				return nil, errors.Errorf("%s: %s", g.Defs[0].Name, err)
			}
			return nil, err
		}
	}
	return mach, nil
}

// Value returns the value of a top-level definition.
func (mach *Machine) Value(name string) (Value, error) {
	v, ok := mach.globals.lookup(name)
	if !ok {
		return nil, errors.Errorf("%s: not defined", name)
	}
	return v, nil
}

// Call calls the value of a top-level definition with arguments.
func (mach *Machine) Call(name string, args ...Value) (Value, error) {
	f, err := mach.Value(name)
	if err != nil {
		return nil, err
	}
	return mach.apply(f, args)
}

// Run loads a module and calls one of its definitions.
func Run(m *ir.Mod, name string, args ...Value) (Value, error) {
	mach, err := Load(m)
	if err != nil {
		return nil, err
	}
	return mach.Call(name, args...)
}

func (mach *Machine) group(en *env, g *ir.DefGroup) (*env, error) {
	if !g.Rec {
		d := g.Defs[0]
		v, err := mach.eval(en, d.Expr)
		if err != nil {
			return nil, err
		}
		return en.bind(d.Name, v), nil
	}
	frames := make([]*env, len(g.Defs))
	for i, d := range g.Defs {
		en = en.bind(d.Name, nil)
		frames[i] = en
	}
	for i, d := range g.Defs {
		v, err := mach.eval(en, d.Expr)
		if err != nil {
			return nil, err
		}
		frames[i].val = v
	}
	return en, nil
}

func (mach *Machine) eval(en *env, e ir.Expr) (Value, error) {
	switch e := e.(type) {
	case *ir.Var:
		v, ok := en.lookup(e.Name)
		if !ok {
			return nil, errors.Errorf("%s: not defined", e.Name)
		}
		if v == nil {
			return nil, errors.Errorf("%s: used before its definition", e.Name)
		}
		return v, nil
	case *ir.Con:
		return &Data{Con: e.Name}, nil
	case *ir.IntLit:
		return new(big.Int).Set(e.Val), nil
	case *ir.StrLit:
		return e.Data, nil
	case *ir.App:
		f, err := mach.eval(en, e.Fun)
		if err != nil {
			return nil, err
		}
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			if args[i], err = mach.eval(en, a); err != nil {
				return nil, err
			}
		}
		return mach.apply(f, args)
	case *ir.Lam:
		return &Closure{Lam: e, env: en}, nil
	case *ir.TypeLam:
		return catchExit(mach.eval(en, e.Body))
	case *ir.TypeApp:
		return mach.eval(en, e.Expr)
	case *ir.Let:
		en1, err := mach.group(en, e.Group)
		if err != nil {
			return nil, err
		}
		return mach.eval(en1, e.Body)
	case *ir.Case:
		return mach.match(en, e)
	case *ir.Ret:
		v, err := mach.eval(en, e.Val)
		if err != nil {
			return nil, err
		}
		return nil, &exitSignal{val: v}
	default:
		panic(fmt.Sprintf("impossible Expr type: %T", e))
	}
}

func catchExit(v Value, err error) (Value, error) {
	if x, ok := err.(*exitSignal); ok {
		return x.val, nil
	}
	return v, err
}

func (mach *Machine) apply(f Value, args []Value) (Value, error) {
	switch f := f.(type) {
	case *Closure:
		if len(args) != len(f.Lam.Parms) {
			return nil, errors.Errorf("called with %d arguments, expected %d", len(args), len(f.Lam.Parms))
		}
		if mach.MaxDepth > 0 && mach.depth >= mach.MaxDepth {
			return nil, errors.New("call depth exceeded")
		}
		en := f.env
		for i, p := range f.Lam.Parms {
			en = en.bind(p.Name, args[i])
		}
		mach.depth++
		defer func() { mach.depth-- }()
		return catchExit(mach.eval(en, f.Lam.Body))
	case *Prim:
		if len(args) != f.Arity {
			return nil, errors.Errorf("%s called with %d arguments, expected %d", f.Name, len(args), f.Arity)
		}
		return f.Fun(args)
	case *Data:
		if len(f.Args) > 0 {
			return nil, errors.Errorf("%s is not a function", Format(f))
		}
		return &Data{Con: f.Con, Args: args}, nil
	default:
		return nil, errors.Errorf("%s is not a function", Format(f))
	}
}

func (mach *Machine) match(en *env, e *ir.Case) (Value, error) {
	v, err := mach.eval(en, e.Scrut)
	if err != nil {
		return nil, err
	}
	for _, b := range e.Branches {
		en1, ok := bindPattern(en, b.Pat, v)
		if !ok {
			continue
		}
		for _, g := range b.Guards {
			t, err := mach.eval(en1, g.Test)
			if err != nil {
				return nil, err
			}
			if d, ok := t.(*Data); ok && d.Con == ir.TrueName {
				return mach.eval(en1, g.Expr)
			}
		}
	}
	return nil, errors.Errorf("no branch matches %s", Format(v))
}

// bindPattern returns the environment extended with the variables of a pattern,
// and whether the pattern matches.
func bindPattern(en *env, p ir.Pattern, v Value) (*env, bool) {
	switch p := p.(type) {
	case *ir.PatWild:
		return en, true
	case *ir.PatVar:
		return en.bind(p.Name, v), true
	case *ir.PatCon:
		d, ok := v.(*Data)
		if !ok || d.Con != p.Name || len(d.Args) != len(p.Args) {
			return nil, false
		}
		for i, a := range p.Args {
			if en, ok = bindPattern(en, a, d.Args[i]); !ok {
				return nil, false
			}
		}
		return en, true
	case *ir.PatLit:
		switch lit := p.Lit.(type) {
		case *ir.IntLit:
			i, ok := v.(*big.Int)
			return en, ok && i.Cmp(lit.Val) == 0
		case *ir.StrLit:
			s, ok := v.(string)
			return en, ok && s == lit.Data
		}
		return nil, false
	default:
		panic(fmt.Sprintf("impossible Pattern type: %T", p))
	}
}
