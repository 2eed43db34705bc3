package grammar

import (
	"fmt"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

// firstEntry is FIRST of a symbol sequence: the terminals that can begin it, and whether it
// derives the empty string.
type firstEntry struct {
	symbols map[symbol.Symbol]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[symbol.Symbol]struct{}{},
	}
}

func (e *firstEntry) add(sym symbol.Symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *firstEntry) addEmpty() bool {
	if e.empty {
		return false
	}
	e.empty = true
	return true
}

func (e *firstEntry) merge(src *firstEntry) bool {
	changed := false
	for sym := range src.symbols {
		if e.add(sym) {
			changed = true
		}
	}
	return changed
}

type firstSet map[symbol.Symbol]*firstEntry

// genFirstSet computes FIRST of every non-terminal by iterating to a fixed point.
func genFirstSet(prods *productionSet) (firstSet, error) {
	fst := firstSet{}
	for _, prod := range prods.getAllProductions() {
		if _, ok := fst[prod.lhs]; !ok {
			fst[prod.lhs] = newFirstEntry()
		}
	}

	for {
		changed := false
		for _, prod := range prods.getAllProductions() {
			c, err := fst.accumulate(fst[prod.lhs], prod.rhs)
			if err != nil {
				return nil, err
			}
			if c {
				changed = true
			}
		}
		if !changed {
			return fst, nil
		}
	}
}

// accumulate adds FIRST(seq) to acc and reports whether acc grew.
func (fst firstSet) accumulate(acc *firstEntry, seq []symbol.Symbol) (bool, error) {
	changed := false
	for _, sym := range seq {
		if sym.IsTerminal() {
			if acc.add(sym) {
				changed = true
			}
			return changed, nil
		}
		e, ok := fst[sym]
		if !ok {
			return false, fmt.Errorf("no FIRST entry for a symbol %v", sym)
		}
		if acc.merge(e) {
			changed = true
		}
		if !e.empty {
			return changed, nil
		}
	}
	if acc.addEmpty() {
		changed = true
	}
	return changed, nil
}

// find returns FIRST of the RHS of prod from the position head.
func (fst firstSet) find(prod *production, head int) (*firstEntry, error) {
	entry := newFirstEntry()
	if head >= prod.rhsLen {
		entry.addEmpty()
		return entry, nil
	}
	_, err := fst.accumulate(entry, prod.rhs[head:])
	if err != nil {
		return nil, err
	}
	return entry, nil
}
