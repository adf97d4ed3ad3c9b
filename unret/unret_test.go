package unret

import (
	"strings"
	"testing"

	"github.com/eaburns/pretty"
	"github.com/eaburns/unret/interp"
	"github.com/eaburns/unret/ir"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestRunUnchanged(t *testing.T) {
	tests := []string{
		"val x = 1",
		"val f = fn(x) { +(x, 1) }",
		"val f = fn(x) { match x { Just(x) -> x; _ -> 0 } }",
		`
			rec {
				val even = fn(n) { match n { 0 -> True; _ -> odd(-(n, 1)) } }
				val odd = fn(n) { match n { 0 -> False; _ -> even(-(n, 1)) } }
			}
			val main = forall[a] { fn(x: a) { let val y = id[a](x) in y } }
		`,
	}
	for _, src := range tests {
		m := parseMod(t, src)
		got, errs := Run(m, Config{})
		if len(errs) > 0 {
			t.Errorf("Run(%q) failed: %v", src, errs)
			continue
		}
		if got != m {
			t.Errorf("Run(%q) returned a new module:\n%s", src, got)
		}
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "exit at function body",
			src:  "val f = fn(x) { return +(x, 1) }",
			want: "val f = fn(x) { +(x, 1) }",
		},
		{
			name: "exit absorbed by function",
			src:  "val f = fn(b) { match b { True -> return 42; False -> 7 } }",
			want: "val f = fn(b) { match b { True -> 42; False -> 7 } }",
		},
		{
			name: "exit absorbed by type function",
			src:  "val f = forall[a] { return 1 }",
			want: "val f = forall[a] { 1 }",
		},
		{
			name: "exit in function argument",
			src:  "val f = g(fn(x) { return x }, 2)",
			want: "val f = g(fn(x) { x }, 2)",
		},
		{
			name: "exit in let definition",
			src:  "val f = fn(x) { let val y = return x in g(y) }",
			want: "val f = fn(x) { x }",
		},
		{
			name: "exit in let body",
			src:  "val f = fn(x) { let val y = g(x) in return y }",
			want: "val f = fn(x) { let val y = g(x) in y }",
		},
		{
			name: "case in let body",
			src:  "val f = fn(x) { let val y = g(x) in match y { A -> return 0; B -> 1 } }",
			want: "val f = fn(x) { let val y = g(x) in match y { A -> 0; B -> 1 } }",
		},
		{
			name: "continuation distributed to branches",
			src: `
				val f = fn(s, x) {
					let val r = match s { A -> return 1; B -> f1(x) } in
					g(r)
				}
			`,
			want: `
				val f = fn(s, x) {
					match s {
						A -> 1
						B -> let val r = f1(x) in g(r)
					}
				}
			`,
		},
		{
			name: "continuation distributed to guards",
			src: `
				val f = fn(x) {
					let val r = match x { y | >(y, 0) -> return y | True -> 0 } in
					-(r, 1)
				}
			`,
			want: `
				val f = fn(x) {
					match x {
						y | >(y, 0) -> y | True -> let val r = 0 in -(r, 1)
					}
				}
			`,
		},
		{
			name: "continuation duplicated",
			src: `
				val f = fn(s) {
					let val r = match s { A -> return 0; B -> 1; C -> 2 } in
					+(r, 10)
				}
			`,
			want: `
				val f = fn(s) {
					match s {
						A -> 0
						B -> let val r = 1 in +(r, 10)
						C -> let val r = 2 in +(r, 10)
					}
				}
			`,
		},
		{
			name: "exit from a nested case",
			src: `
				val f = fn(n) {
					let val a = match n {
						0 -> match g(n) { True -> return 1; False -> 2 }
						_ -> 3
					} in
					h(a)
				}
			`,
			want: `
				val f = fn(n) {
					match n {
						0 -> match g(n) { True -> 1; False -> let val a = 2 in h(a) }
						_ -> let val a = 3 in h(a)
					}
				}
			`,
		},
		{
			name: "parametric top-level definition",
			src:  "val x = let val y = match c { A -> return 1; B -> 2 } in y",
			want: "val x = match c { A -> 1; B -> let val y = 2 in y }",
		},
		{
			name: "parametric recursive member",
			src:  "rec { val x = match c { A -> return 1; B -> x } }",
			want: "rec { val x = match c { A -> 1; B -> x } }",
		},
		{
			name: "pattern binder shadowing a variable of the continuation",
			src: `
				val f = fn(y) {
					let val r = match y { Just(y) -> return y; Nothing -> 0 } in
					+(r, y)
				}
			`,
			want: `
				val f = fn(y) {
					match y {
						Just(_y1) -> _y1
						Nothing -> let val r = 0 in +(r, y)
					}
				}
			`,
		},
		{
			name: "let binder shadowing a variable of the continuation",
			src: `
				val f = fn(x) {
					let val r = let val x = 1 in match x { 0 -> return 0; _ -> x } in
					g(r, x)
				}
			`,
			want: `
				val f = fn(x) {
					let val _x1 = 1 in
					match _x1 { 0 -> 0; _ -> let val r = _x1 in g(r, x) }
				}
			`,
		},
		{
			name: "binder shadowing a module-level definition",
			src: `
				val g = 5
				val f = fn(s) {
					let val r = match s { Just(g) -> return g; Nothing -> 0 } in
					+(r, g)
				}
			`,
			want: `
				val g = 5

				val f = fn(s) {
					match s {
						Just(_g1) -> _g1
						Nothing -> let val r = 0 in +(r, g)
					}
				}
			`,
		},
		{
			name: "local recursive group",
			src: `
				val f = fn(n) {
					let rec { val g = fn(i) { let val j = match i { 0 -> return 0; _ -> -(i, 1) } in g(j) } } in
					g(n)
				}
			`,
			want: `
				val f = fn(n) {
					let rec { val g = fn(i) { match i { 0 -> 0; _ -> let val j = -(i, 1) in g(j) } } } in
					g(n)
				}
			`,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			m := parseMod(t, test.src)
			before := m.String()
			got, errs := Run(m, Config{})
			if len(errs) > 0 {
				t.Fatalf("Run failed: %v", errs)
			}
			want := parseMod(t, test.want).String()
			if diff := cmp.Diff(want, got.String()); diff != "" {
				t.Errorf("got\n%s\nexpected\n%s\ndiff\n%s", got, want, diff)
				t.Log(pretty.String(got.Groups))
			}
			if after := m.String(); after != before {
				t.Errorf("input modified:\n%s", after)
			}
		})
	}
}

func TestRunShareJoins(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		src    string
		want   string
	}{
		{
			name: "shared continuation",
			src: `
				val f = fn(s) {
					let val r = match s { A -> return 0; B -> 1; C -> 2 } in
					+(r, 10)
				}
			`,
			want: `
				val f = fn(s) {
					let val _j1 = fn(_x2) { let val r = _x2 in +(r, 10) } in
					match s {
						A -> 0
						B -> _j1(1)
						C -> _j1(2)
					}
				}
			`,
		},
		{
			name:   "name prefix",
			prefix: "u",
			src: `
				val f = fn(s) {
					let val r = match s { A -> return 0; B -> 1; C -> 2 } in
					+(r, 10)
				}
			`,
			want: `
				val f = fn(s) {
					let val _uj1 = fn(_ux2) { let val r = _ux2 in +(r, 10) } in
					match s {
						A -> 0
						B -> _uj1(1)
						C -> _uj1(2)
					}
				}
			`,
		},
		{
			name: "fresh names avoid names of the module",
			src: `
				val _j1 = 5
				val f = fn(s) {
					let val r = match s { A -> return 0; B -> 1; C -> 2 } in
					+(r, _j1)
				}
			`,
			want: `
				val _j1 = 5

				val f = fn(s) {
					let val _j2 = fn(_x3) { let val r = _x3 in +(r, _j1) } in
					match s {
						A -> 0
						B -> _j2(1)
						C -> _j2(2)
					}
				}
			`,
		},
		{
			name: "single resuming tail",
			src: `
				val f = fn(s) {
					let val r = match s { A -> return 0; B -> 1 } in
					+(r, 10)
				}
			`,
			want: `
				val f = fn(s) {
					match s {
						A -> 0
						B -> let val r = 1 in +(r, 10)
					}
				}
			`,
		},
		{
			name: "no continuation",
			src:  "val f = fn(s) { match s { A -> return 0; B -> 1; C -> 2 } }",
			want: "val f = fn(s) { match s { A -> 0; B -> 1; C -> 2 } }",
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			m := parseMod(t, test.src)
			got, errs := Run(m, Config{ShareJoins: true, Names: ir.NewNames(test.prefix)})
			if len(errs) > 0 {
				t.Fatalf("Run failed: %v", errs)
			}
			want := parseMod(t, test.want).String()
			if diff := cmp.Diff(want, got.String()); diff != "" {
				t.Errorf("got\n%s\nexpected\n%s\ndiff\n%s", got, want, diff)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		errs []error
	}{
		{
			name: "recursive group of one",
			src:  "rec { val f = return 1 }",
			errs: []error{ErrRecExit},
		},
		{
			name: "recursive group of two",
			src:  "rec { val f = fn() { g } val g = let val y = return 2 in y }",
			errs: []error{ErrRecExit},
		},
		{
			name: "every offending recursive member",
			src:  "rec { val f = return 1 val g = fn() { f } val h = return 2 }",
			errs: []error{ErrRecExit, ErrRecExit},
		},
		{
			name: "local recursive group",
			src:  "val f = fn() { let rec { val g = return 1 } in g }",
			errs: []error{ErrRecExit},
		},
		{
			name: "module top level",
			src:  "val main = return 0",
			errs: []error{ErrTopExit},
		},
		{
			name: "module top level through let",
			src:  "val x = let val y = 1 in return y",
			errs: []error{ErrTopExit},
		},
		{
			name: "every escape is reported",
			src: `
				val x = return 1
				val y = 2
				rec { val z = return 3 }
			`,
			errs: []error{ErrTopExit, ErrRecExit},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			m := parseMod(t, test.src)
			got, errs := Run(m, Config{})
			if got != nil {
				t.Errorf("got a module:\n%s", got)
			}
			if len(errs) != len(test.errs) {
				t.Fatalf("got %d errors %v, expected %d", len(errs), errs, len(test.errs))
			}
			for i, err := range errs {
				if !errors.Is(err, test.errs[i]) {
					t.Errorf("error %d is %q, expected cause %q", i, err, test.errs[i])
				}
			}
		})
	}
}

func TestRunMalformed(t *testing.T) {
	one := func(name string, e ir.Expr) *ir.Def { return &ir.Def{Name: name, Expr: e} }
	tests := []struct {
		name string
		mod  *ir.Mod
	}{
		{
			name: "empty group",
			mod:  &ir.Mod{Groups: []*ir.DefGroup{{}}},
		},
		{
			name: "empty recursive group",
			mod:  &ir.Mod{Groups: []*ir.DefGroup{{Rec: true}}},
		},
		{
			name: "missing expression",
			mod:  &ir.Mod{Groups: []*ir.DefGroup{{Defs: []*ir.Def{{Name: "x"}}}}},
		},
		{
			name: "nested group with two definitions",
			mod: &ir.Mod{Groups: []*ir.DefGroup{{Defs: []*ir.Def{one("f", &ir.Lam{
				Body: &ir.Let{
					Group: &ir.DefGroup{Defs: []*ir.Def{
						one("x", &ir.Ret{Val: ir.NewInt(1)}),
						one("y", ir.NewInt(2)),
					}},
					Body: &ir.Var{Name: "x"},
				},
			})}}}},
		},
		{
			name: "nested empty group",
			mod: &ir.Mod{Groups: []*ir.DefGroup{{Defs: []*ir.Def{one("f", &ir.Lam{
				Body: &ir.Let{Group: &ir.DefGroup{}, Body: &ir.Ret{Val: ir.NewInt(1)}},
			})}}}},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got, errs := Run(test.mod, Config{})
			if got != nil {
				t.Errorf("got a module:\n%s", got)
			}
			if len(errs) != 1 {
				t.Fatalf("got %d errors %v, expected 1", len(errs), errs)
			}
			if !errors.Is(errs[0], ErrMalformed) {
				t.Errorf("got %q, expected cause %q", errs[0], ErrMalformed)
			}
		})
	}
}

func TestRunGroupMalformed(t *testing.T) {
	g, errs := RunGroup(&ir.DefGroup{}, Config{})
	if g != nil {
		t.Errorf("got a group:\n%s", g)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrMalformed) {
		t.Fatalf("got %v, expected %v", errs, ErrMalformed)
	}
	const want = "<unknown>: internal error: malformed definition group\n\tnon-recursive group with 0 definitions"
	if got := errs[0].Error(); got != want {
		t.Errorf("got %q, expected %q", got, want)
	}
}

func TestErrorMessage(t *testing.T) {
	m := parseMod(t, "val main = return 0")
	_, errs := Run(m, Config{})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, expected 1", len(errs))
	}
	const want = "test.ir:1.5-20: internal error: early exit escapes to module top level main"
	if got := errs[0].Error(); !strings.HasPrefix(got, want+"\n\t") {
		t.Errorf("got %q, expected prefix %q", got, want)
	}
}

func TestRunGroup(t *testing.T) {
	m := parseMod(t, "val f = fn(x) { return x } val y = 1")
	g, errs := RunGroup(m.Groups[0], Config{})
	if len(errs) > 0 {
		t.Fatalf("RunGroup failed: %v", errs)
	}
	if got, want := g.String(), "val f = fn(x) {\n\tx\n}"; got != want {
		t.Errorf("got\n%s\nexpected\n%s", got, want)
	}
	if g, _ := RunGroup(m.Groups[1], Config{}); g != m.Groups[1] {
		t.Errorf("unchanged group was rebuilt")
	}
	if _, errs := RunGroup(parseMod(t, "val x = return 1").Groups[0], Config{}); !errors.Is(errs[0], ErrTopExit) {
		t.Errorf("got %v, expected %v", errs, ErrTopExit)
	}
}

var semanticTests = []struct {
	name string
	src  string
}{
	{
		name: "find",
		src: `
			rec {
				val find = fn(p, xs) {
					match xs {
						Nil -> Nothing
						Cons(x, rest) ->
							let val hit = match p(x) { True -> return Just(x); False -> Nothing } in
							find(p, rest)
					}
				}
			}
			val list = Cons(0, Cons(1, Cons(2, Cons(3, Nil))))
			val main = fn(n) { find(fn(x) { ==(x, n) }, list) }
		`,
	},
	{
		name: "let chain",
		src: `
			val main = fn(n) {
				let val a = match <(n, 2) { True -> return 100; False -> +(n, 1) } in
				let val b = match ==(a, 4) { True -> return 200; False -> *(a, 2) } in
				-(b, 1)
			}
		`,
	},
	{
		name: "guards",
		src: `
			val main = fn(n) {
				let val r = match n {
					0 -> return "zero"
					x | >(x, 3) -> return "big" | ==(x, 2) -> "two" | True -> show(x)
				} in
				concat(r, "!")
			}
		`,
	},
	{
		name: "type functions",
		src: `
			val id = forall[a] { fn(x: a) { x } }
			val main = fn(n) {
				let val f = id[int] in
				let val g = forall[b] { match <(n, 3) { True -> return n; False -> 0 } } in
				let val h = (match >(n, 4) { True -> return 99; False -> id })[int] in
				+(f(g), h(1))
			}
		`,
	},
	{
		name: "function argument",
		src: `
			val apply = fn(f, x) { f(x) }
			val main = fn(n) {
				apply(fn(m) { let val y = match m { 0 -> return 10; _ -> m } in *(y, 3) }, n)
			}
		`,
	},
	{
		name: "nested cases",
		src: `
			val main = fn(n) {
				let val a = match <(n, 3) {
					True -> match ==(n, 1) { True -> return "one"; False -> "small" }
					False -> match ==(n, 4) { True -> "four"; False -> return "other" }
				} in
				concat(a, "?")
			}
		`,
	},
	{
		name: "local recursion",
		src: `
			val main = fn(n) {
				let rec {
					val loop = fn(i, acc) {
						match >=(i, n) {
							True -> acc
							False ->
								let val acc2 = match ==(i, 3) { True -> return -(0, acc); False -> +(acc, i) } in
								loop(+(i, 1), acc2)
						}
					}
				} in
				loop(0, 0)
			}
		`,
	},
	{
		name: "shadowed pattern binder",
		src: `
			val main = fn(n) {
				let val y = 100 in
				let val r = match Just(n) { Just(y) | ==(y, 0) -> return 0 | True -> +(y, 1) } in
				+(r, y)
			}
		`,
	},
	{
		name: "shadowed let binder",
		src: `
			val main = fn(n) {
				let val y = 100 in
				let val r = let val y = 1 in match n { 0 -> return 0; _ -> +(n, y) } in
				+(r, y)
			}
		`,
	},
	{
		name: "shadowed recursive let binder",
		src: `
			val g = fn(x) { *(x, 2) }
			val main = fn(n) {
				let val r = let rec { val g = fn(x) { x } } in match n { 0 -> return 0; _ -> g(n) } in
				g(r)
			}
		`,
	},
	{
		name: "shadowed primitive",
		src: `
			val main = fn(n) {
				let val r = let val + = fn(a, b) { a } in match n { 0 -> return 0; _ -> +(n, 7) } in
				+(r, 1)
			}
		`,
	},
}

func TestRunPreservesMeaning(t *testing.T) {
	for _, share := range []bool{false, true} {
		for _, test := range semanticTests {
			test := test
			cfg := Config{ShareJoins: share}
			t.Run(test.name, func(t *testing.T) {
				checkMeaning(t, parseMod(t, test.src), cfg)
			})
		}
	}
}

// checkMeaning checks that Run removes every early exit of m
// without changing the result of main for small integer arguments.
func checkMeaning(t *testing.T, m *ir.Mod, cfg Config) {
	t.Helper()
	got, errs := Run(m, cfg)
	if len(errs) > 0 {
		t.Fatalf("Run failed: %v", errs)
	}
	if errs := ir.Check(got); len(errs) > 0 {
		t.Fatalf("output is ill-formed: %v\n%s", errs, got)
	}
	seen := make(map[ir.Expr]bool)
	for _, g := range got.Groups {
		for _, d := range g.Defs {
			if ir.HasRet(d.Expr) {
				t.Errorf("%s still has an early exit:\n%s", d.Name, got)
			}
			ir.Walk(d.Expr, func(e ir.Expr) bool {
				if seen[e] {
					t.Errorf("node %s is shared", ir.ExprString(e))
				}
				seen[e] = true
				return true
			})
		}
	}
	for n := int64(0); n <= 5; n++ {
		want, wantErr := interp.Run(m, "main", interp.Int(n))
		v, err := interp.Run(got, "main", interp.Int(n))
		if (err != nil) != (wantErr != nil) {
			t.Fatalf("main(%d): got error %v, expected %v\n%s", n, err, wantErr, got)
		}
		if err != nil {
			continue
		}
		if interp.Format(v) != interp.Format(want) {
			t.Errorf("main(%d)=%s, expected %s\n%s",
				n, interp.Format(v), interp.Format(want), got)
		}
	}
}

func parseMod(t *testing.T, src string) *ir.Mod {
	t.Helper()
	p := ir.NewParser("#test")
	if err := p.Parse("test.ir", strings.NewReader(src)); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	return p.Mod()
}
