package grammar

import (
	"bytes"
	"encoding/json"
	"testing"

	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

func compileTestGrammar(t *testing.T, src string) (*spec.CompiledGrammar, *spec.Report) {
	t.Helper()

	gram := buildTestGrammar(t, src)
	cg, report, err := Compile(gram, EnableReporting())
	if err != nil {
		t.Fatal(err)
	}
	if err := cg.Validate(); err != nil {
		t.Fatalf("the compiled grammar is invalid: %v", err)
	}
	return cg, report
}

// findReportState returns the state whose kernel contains the item.
func findReportState(t *testing.T, report *spec.Report, prod, dot int) *spec.State {
	t.Helper()

	for _, s := range report.States {
		for _, item := range s.Kernel {
			if item.Production == prod && item.Dot == dot {
				return s
			}
		}
	}
	t.Fatalf("a state having the item was not found; production: %v, dot: %v", prod, dot)
	return nil
}

func TestResolveSRConflictByPrecedence(t *testing.T) {
	src := `
#name test;

#prec (
    #left mul
    #left add
    #right pow
);

expr
    : expr add expr
    | expr mul expr
    | expr pow expr
    | id
    ;
add: '+';
mul: '*';
pow: '^';
id: "[a-z]+";
`

	cg, report := compileTestGrammar(t, src)
	syn := cg.Syntactic
	term := func(name string) int {
		for i, n := range syn.Terminals {
			if n == name {
				return i
			}
		}
		t.Fatalf("a terminal was not found: %v", name)
		return 0
	}

	const (
		prodAdd = 2
		prodMul = 3
		prodPow = 4
	)
	tests := []struct {
		caption string
		prod    int
		la      string
		reduce  bool
	}{
		{caption: "add is left-associative", prod: prodAdd, la: "add", reduce: true},
		{caption: "mul binds tighter than add", prod: prodAdd, la: "mul", reduce: false},
		{caption: "add after mul reduces", prod: prodMul, la: "add", reduce: true},
		{caption: "mul is left-associative", prod: prodMul, la: "mul", reduce: true},
		{caption: "pow is right-associative", prod: prodPow, la: "pow", reduce: false},
		{caption: "pow binds looser than mul", prod: prodPow, la: "mul", reduce: false},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			state := findReportState(t, report, tt.prod, 3)
			act := syn.ActionEntry(state.Number, term(tt.la))
			if tt.reduce {
				if act != tt.prod {
					t.Fatalf("want reduce %v; got: %v", tt.prod, act)
				}
			} else {
				if act >= 0 {
					t.Fatalf("want shift; got: %v", act)
				}
			}

			for _, c := range state.SRConflict {
				if c.ResolvedBy == spec.ResolvedByShift {
					t.Fatalf("a conflict must be resolved by precedence or associativity: %+v", c)
				}
			}
		})
	}
}

func TestResolveRRConflictByProductionOrder(t *testing.T) {
	src := `
#name test;

s
    : a
    | b
    ;
a
    : foo
    ;
b
    : foo
    ;
foo: 'foo';
`

	_, report := compileTestGrammar(t, src)
	var conflicts []*spec.RRConflict
	for _, s := range report.States {
		conflicts = append(conflicts, s.RRConflict...)
	}
	if len(conflicts) != 1 {
		t.Fatalf("want one reduce/reduce conflict; got: %v", len(conflicts))
	}
	c := conflicts[0]
	if c.Production1 != 4 || c.Production2 != 5 || c.AdoptedProduction != 4 || c.ResolvedBy != spec.ResolvedByProdOrder {
		t.Fatalf("unexpected conflict: %+v", c)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := `
#name test;

#prec (
    #left mul
    #left add
);

expr
    : expr add expr
    | expr mul expr
    | l_paren expr r_paren
    | error #recover
    | id
    ;
add: '+';
mul: '*';
l_paren: '(';
r_paren: ')';
id: "[a-z]+";
`

	marshal := func() []byte {
		cg, report := compileTestGrammar(t, src)
		b, err := json.Marshal(struct {
			Grammar *spec.CompiledGrammar
			Report  *spec.Report
		}{cg, report})
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	first := marshal()
	for i := 0; i < 5; i++ {
		if !bytes.Equal(first, marshal()) {
			t.Fatal("compiling the same grammar twice produced different outputs")
		}
	}
}
