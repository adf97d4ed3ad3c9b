package ir

import "github.com/pkg/errors"

// Check returns errors describing malformed parts of the module.
// An empty return indicates no errors.
//
// These are indicative of bugs in the producer of the module:
// a non-recursive group without exactly one Def,
// a Def or Case branch missing its expressions,
// or a Ret that is not shielded by a boundary.
//
// Check is intended to run on the output of the early-exit pass,
// after which no Ret may remain outside a boundary.
func Check(m *Mod) []error {
	var errs []error
	for _, g := range m.Groups {
		if err := CheckGroup(g); err != nil {
			errs = append(errs, err)
		}
		for _, d := range g.Defs {
			if d.Expr != nil {
				errs = append(errs, checkDef(m, d)...)
			}
		}
	}
	return errs
}

func checkDef(m *Mod, d *Def) []error {
	var errs []error
	if NakedRet(d.Expr) {
		errs = append(errs, errors.Errorf("%s: %s: early exit outside of a function", m.Loc(d), d.Name))
	}
	Walk(d.Expr, func(e Expr) bool {
		switch e := e.(type) {
		case *Let:
			if err := CheckGroup(e.Group); err != nil {
				errs = append(errs, errors.Errorf("%s: %s: %v", m.Loc(d), d.Name, err))
			}
		case *Case:
			for _, b := range e.Branches {
				if len(b.Guards) == 0 {
					errs = append(errs, errors.Errorf("%s: %s: branch with no guards", m.Loc(d), d.Name))
				}
			}
		}
		return true
	})
	return errs
}

// CheckGroup returns an error if a group is malformed:
// a non-recursive group without exactly one Def,
// an empty recursive group, or a Def with no expression.
// Nested groups are not checked.
func CheckGroup(g *DefGroup) error {
	if !g.Rec && len(g.Defs) != 1 {
		return errors.Errorf("non-recursive group with %d definitions", len(g.Defs))
	}
	if g.Rec && len(g.Defs) == 0 {
		return errors.New("empty recursive group")
	}
	for _, d := range g.Defs {
		if d.Expr == nil {
			return errors.Errorf("%s: no expression", d.Name)
		}
	}
	return nil
}
