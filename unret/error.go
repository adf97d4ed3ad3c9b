package unret

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eaburns/unret/ir"
	"github.com/eaburns/unret/loc"
	"github.com/pkg/errors"
)

var (
	// ErrRecExit is the cause of the error reported
	// when an early exit escapes a recursive definition group.
	ErrRecExit = errors.New("early exit escapes recursive definition")

	// ErrTopExit is the cause of the error reported
	// when an early exit escapes to the module top level.
	ErrTopExit = errors.New("early exit escapes to module top level")

	// ErrMalformed is the cause of the error reported
	// when a definition group is malformed.
	ErrMalformed = errors.New("malformed definition group")
)

// A bugError is an internal compiler error.
// It indicates a malformed input tree from an earlier stage.
type bugError struct {
	loc   loc.Loc
	cause error
	name  string
	notes []string
}

func (err *bugError) Unwrap() error { return err.cause }

func (err *bugError) Error() string {
	var s strings.Builder
	s.WriteString(err.loc.String())
	s.WriteString(": internal error: ")
	s.WriteString(err.cause.Error())
	if err.name != "" {
		s.WriteString(" ")
		s.WriteString(err.name)
	}
	for _, n := range err.notes {
		s.WriteString("\n\t")
		s.WriteString(n)
	}
	return s.String()
}

func note(err *bugError, f string, vs ...interface{}) {
	err.notes = append(err.notes, fmt.Sprintf(f, vs...))
}

func (ur *unreturner) recExit(d *ir.Def) {
	err := bugError{loc: ur.mod.Loc(d), cause: ErrRecExit, name: d.Name}
	note(&err, "the body of %s exits unconditionally outside of any function", d.Name)
	ur.errs = append(ur.errs, err)
}

func (ur *unreturner) topExit(d *ir.Def) {
	err := bugError{loc: ur.mod.Loc(d), cause: ErrTopExit, name: d.Name}
	note(&err, "there is no function at module scope for the exit to leave")
	ur.errs = append(ur.errs, err)
}

func (ur *unreturner) malformed(d *ir.Def, cause error) {
	var err bugError
	if d == nil {
		err = bugError{cause: ErrMalformed}
	} else {
		err = bugError{loc: ur.mod.Loc(d), cause: ErrMalformed, name: d.Name}
	}
	note(&err, "%s", cause)
	ur.errs = append(ur.errs, err)
}

func convertErrors(berrs []bugError) []error {
	sort.SliceStable(berrs, func(i, j int) bool {
		li, lj := berrs[i].loc, berrs[j].loc
		switch {
		case li.Path != lj.Path:
			return li.Path < lj.Path
		case li.Line[0] != lj.Line[0]:
			return li.Line[0] < lj.Line[0]
		default:
			return li.Col[0] < lj.Col[0]
		}
	})
	var errs []error
	for i := range berrs {
		errs = append(errs, &berrs[i])
	}
	return errs
}
