package grammar

import (
	"strings"
	"testing"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
	parser "github.com/louiss0/tree-sitter-markdoc/spec/grammar/parser"
)

func buildTestGrammar(t *testing.T, src string) *Grammar {
	t.Helper()

	ast, err := parser.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	b := GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return gram
}

// itemFactory builds symbols, productions and LR(0) items of a test grammar by name.
type itemFactory struct {
	t      *testing.T
	symTab *symbol.SymbolTableReader
}

func newItemFactory(t *testing.T, gram *Grammar) *itemFactory {
	return &itemFactory{t: t, symTab: gram.symbolTable.Reader()}
}

func (f *itemFactory) sym(name string) symbol.Symbol {
	f.t.Helper()
	sym, ok := f.symTab.ToSymbol(name)
	if !ok {
		f.t.Fatalf("no such symbol: %v", name)
	}
	return sym
}

func (f *itemFactory) prod(lhs string, rhs ...string) *production {
	f.t.Helper()
	syms := make([]symbol.Symbol, len(rhs))
	for i, name := range rhs {
		syms[i] = f.sym(name)
	}
	prod, err := newProduction(f.sym(lhs), syms)
	if err != nil {
		f.t.Fatalf("%v -> %v: %v", lhs, rhs, err)
	}
	return prod
}

func (f *itemFactory) item(lhs string, dot int, rhs ...string) *lrItem {
	f.t.Helper()
	item, err := newLR0Item(f.prod(lhs, rhs...), dot)
	if err != nil {
		f.t.Fatalf("%v -> %v (dot %v): %v", lhs, rhs, dot, err)
	}
	return item
}

func withLookAhead(item *lrItem, lookAhead ...symbol.Symbol) *lrItem {
	if item.lookAhead.symbols == nil {
		item.lookAhead.symbols = map[symbol.Symbol]struct{}{}
	}

	for _, a := range lookAhead {
		item.lookAhead.symbols[a] = struct{}{}
	}

	return item
}

// findStateByKernel returns the state whose kernel consists of exactly the given items.
func findStateByKernel(t *testing.T, automaton *lr0Automaton, items ...*lrItem) *lrState {
	t.Helper()

	want, err := newKernel(items)
	if err != nil {
		t.Fatal(err)
	}
	state, ok := automaton.states[want.id]
	if !ok {
		t.Fatalf("a state was not found; kernel: %v", want.id)
	}
	return state
}
