package interp

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/eaburns/unret/ir"
	"github.com/pkg/errors"
)

// A Value is the result of evaluating an expression.
// It is one of *big.Int, string, *Data, *Closure, or *Prim.
type Value interface{}

// Data is a constructor applied to its arguments.
type Data struct {
	Con  string
	Args []Value
}

// A Closure is a function literal and the environment it was evaluated in.
type Closure struct {
	Lam *ir.Lam
	env *env
}

// A Prim is a built-in function.
type Prim struct {
	Name  string
	Arity int
	Fun   func([]Value) (Value, error)
}

// True and False are the boolean values.
var (
	True  = &Data{Con: ir.TrueName}
	False = &Data{Con: "False"}
)

// Int returns an integer Value.
func Int(i int64) Value { return big.NewInt(i) }

// Format returns a human-readable string of a Value.
// Equal Data values and literals have equal strings.
func Format(v Value) string {
	var s strings.Builder
	buildValue(&s, v)
	return s.String()
}

func buildValue(s *strings.Builder, v Value) {
	switch v := v.(type) {
	case *big.Int:
		s.WriteString(v.String())
	case string:
		s.WriteString(strconv.Quote(v))
	case *Data:
		s.WriteString(v.Con)
		if len(v.Args) == 0 {
			return
		}
		s.WriteRune('(')
		for i, a := range v.Args {
			if i > 0 {
				s.WriteString(", ")
			}
			buildValue(s, a)
		}
		s.WriteRune(')')
	case *Closure:
		fmt.Fprintf(s, "<fn/%d>", len(v.Lam.Parms))
	case *Prim:
		fmt.Fprintf(s, "<%s>", v.Name)
	default:
		fmt.Fprintf(s, "<%T>", v)
	}
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

var prims = map[string]*Prim{}

func init() {
	intOp := func(name string, f func(x, y *big.Int) (Value, error)) {
		prims[name] = &Prim{Name: name, Arity: 2, Fun: func(args []Value) (Value, error) {
			x, ok0 := args[0].(*big.Int)
			y, ok1 := args[1].(*big.Int)
			if !ok0 || !ok1 {
				return nil, errors.Errorf("%s: bad operands %s, %s", name, Format(args[0]), Format(args[1]))
			}
			return f(x, y)
		}}
	}
	intOp("+", func(x, y *big.Int) (Value, error) { return new(big.Int).Add(x, y), nil })
	intOp("-", func(x, y *big.Int) (Value, error) { return new(big.Int).Sub(x, y), nil })
	intOp("*", func(x, y *big.Int) (Value, error) { return new(big.Int).Mul(x, y), nil })
	intOp("/", func(x, y *big.Int) (Value, error) {
		if y.Sign() == 0 {
			return nil, errors.New("division by zero")
		}
		return new(big.Int).Quo(x, y), nil
	})
	intOp("<", func(x, y *big.Int) (Value, error) { return boolValue(x.Cmp(y) < 0), nil })
	intOp("<=", func(x, y *big.Int) (Value, error) { return boolValue(x.Cmp(y) <= 0), nil })
	intOp(">", func(x, y *big.Int) (Value, error) { return boolValue(x.Cmp(y) > 0), nil })
	intOp(">=", func(x, y *big.Int) (Value, error) { return boolValue(x.Cmp(y) >= 0), nil })
	prims["=="] = &Prim{Name: "==", Arity: 2, Fun: func(args []Value) (Value, error) {
		return boolValue(Format(args[0]) == Format(args[1])), nil
	}}
	prims["!="] = &Prim{Name: "!=", Arity: 2, Fun: func(args []Value) (Value, error) {
		return boolValue(Format(args[0]) != Format(args[1])), nil
	}}
	prims["concat"] = &Prim{Name: "concat", Arity: 2, Fun: func(args []Value) (Value, error) {
		x, ok0 := args[0].(string)
		y, ok1 := args[1].(string)
		if !ok0 || !ok1 {
			return nil, errors.Errorf("concat: bad operands %s, %s", Format(args[0]), Format(args[1]))
		}
		return x + y, nil
	}}
	prims["show"] = &Prim{Name: "show", Arity: 1, Fun: func(args []Value) (Value, error) {
		return Format(args[0]), nil
	}}
}
