package grammar

import (
	"testing"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

func TestGenLALR1Automaton(t *testing.T) {
	// This grammar belongs to LALR(1) class, not SLR(1).
	src := `
#name test;

s: l eq r | r;
l: ref r | id;
r: l;
eq: '=';
ref: '*';
id: "[A-Za-z0-9_]+";
`

	gram := buildTestGrammar(t, src)

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol, gram.errorSymbol)
	if err != nil {
		t.Fatalf("failed to create a LR0 automaton: %v", err)
	}
	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		t.Fatalf("failed to create a FIRST set: %v", err)
	}
	automaton, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		t.Fatalf("failed to create a LALR1 automaton: %v", err)
	}
	if len(automaton.states) != 10 {
		t.Fatalf("unexpected state count; want: 10, got: %v", len(automaton.states))
	}

	g := newItemFactory(t, gram)

	tests := []struct {
		caption string
		kernel  []*lrItem
		want    []*lrItem
	}{
		{
			caption: "the initial state",
			kernel:  []*lrItem{g.item("s'", 0, "s")},
			want:    []*lrItem{withLookAhead(g.item("s'", 0, "s"), symbol.SymbolEOF)},
		},
		{
			caption: "r → l・ shares a state with s → l・eq r but is followed only by EOF",
			kernel: []*lrItem{
				g.item("s", 1, "l", "eq", "r"),
				g.item("r", 1, "l"),
			},
			want: []*lrItem{
				withLookAhead(g.item("s", 1, "l", "eq", "r"), symbol.SymbolEOF),
				withLookAhead(g.item("r", 1, "l"), symbol.SymbolEOF),
			},
		},
		{
			caption: "look-ahead symbols propagate through l → ref r",
			kernel:  []*lrItem{g.item("l", 1, "ref", "r")},
			want:    []*lrItem{withLookAhead(g.item("l", 1, "ref", "r"), g.sym("eq"), symbol.SymbolEOF)},
		},
		{
			caption: "r → l・ reached from ref sees both eq and EOF",
			kernel:  []*lrItem{g.item("r", 1, "l")},
			want:    []*lrItem{withLookAhead(g.item("r", 1, "l"), g.sym("eq"), symbol.SymbolEOF)},
		},
		{
			caption: "the accepting item",
			kernel:  []*lrItem{g.item("s", 3, "l", "eq", "r")},
			want:    []*lrItem{withLookAhead(g.item("s", 3, "l", "eq", "r"), symbol.SymbolEOF)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			state := findStateByKernel(t, automaton.lr0Automaton, tt.kernel...)
			for _, want := range tt.want {
				var got *lrItem
				for _, item := range state.items {
					if item.id == want.id {
						got = item
						break
					}
				}
				if got == nil {
					t.Fatalf("an item was not found: %v", want.id)
				}
				testLookAhead(t, got.lookAhead.symbols, want.lookAhead.symbols)
			}
		})
	}
}

func TestGenLALR1AutomatonEmptyProduction(t *testing.T) {
	src := `
#name test;

s: a b;
a: foo | ;
b: bar;
foo: 'foo';
bar: 'bar';
`

	gram := buildTestGrammar(t, src)
	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol, gram.errorSymbol)
	if err != nil {
		t.Fatal(err)
	}
	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		t.Fatal(err)
	}
	automaton, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		t.Fatal(err)
	}

	g := newItemFactory(t, gram)

	initial := findStateByKernel(t, automaton.lr0Automaton, g.item("s'", 0, "s"))
	if len(initial.emptyProdItems) != 1 {
		t.Fatalf("the initial state must have one empty production item; got: %v", len(initial.emptyProdItems))
	}
	testLookAhead(t, initial.emptyProdItems[0].lookAhead.symbols, map[symbol.Symbol]struct{}{
		g.sym("bar"): {},
	})
}

func testLookAhead(t *testing.T, actual, expected map[symbol.Symbol]struct{}) {
	t.Helper()

	if len(actual) != len(expected) {
		t.Fatalf("unexpected look-ahead symbols; want: %v, got: %v", expected, actual)
	}
	for sym := range expected {
		if _, ok := actual[sym]; !ok {
			t.Fatalf("unexpected look-ahead symbols; want: %v, got: %v", expected, actual)
		}
	}
}
