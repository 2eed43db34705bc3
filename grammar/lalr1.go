package grammar

import (
	"fmt"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

type lalr1Automaton struct {
	*lr0Automaton
}

type itemRef struct {
	state kernelID
	item  lrItemID
}

// laPropagate stands in for "the look-ahead of the kernel item" while computing closures. The
// nil symbol never appears in a grammar, so it cannot collide with a real terminal.
const laPropagate = symbol.SymbolNil

type laItem struct {
	prod *production
	dot  int
	la   symbol.Symbol
}

// genLALR1Automaton attaches LALR(1) look-ahead sets to the items of an LR(0) automaton.
// Look-aheads are found by computing, for every kernel item, the LR(1) closure with a
// placeholder look-ahead: real terminals reaching an item are spontaneous, the placeholder
// marks a propagation edge. The edges are then followed to a fixed point.
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, first firstSet) (*lalr1Automaton, error) {
	initial := lr0.states[lr0.initialState]
	initial.items[0].lookAhead.symbols = map[symbol.Symbol]struct{}{
		symbol.SymbolEOF: {},
	}

	edges := map[itemRef][]itemRef{}
	for _, state := range lr0.states {
		for _, kItem := range state.items {
			kProd, ok := prods.findByID(kItem.prod)
			if !ok {
				return nil, fmt.Errorf("a production was not found: %v", kItem.prod)
			}
			closure, err := genLALR1Closure(kProd, kItem.dot, prods, first)
			if err != nil {
				return nil, err
			}

			src := itemRef{state: state.id, item: kItem.id}
			for _, ci := range closure {
				var dest itemRef
				switch {
				case ci.dot < ci.prod.rhsLen:
					next, ok := state.next[ci.prod.rhs[ci.dot]]
					if !ok {
						return nil, fmt.Errorf("state %v has no transition on %v", state.num, ci.prod.rhs[ci.dot])
					}
					it, err := newLR0Item(ci.prod, ci.dot+1)
					if err != nil {
						return nil, err
					}
					dest = itemRef{state: next, item: it.id}
				case ci.prod.isEmpty():
					it, err := newLR0Item(ci.prod, 0)
					if err != nil {
						return nil, err
					}
					dest = itemRef{state: state.id, item: it.id}
				default:
					// The kernel item itself is reducible; its look-ahead is its own.
					continue
				}

				if ci.la == laPropagate {
					edges[src] = append(edges[src], dest)
					continue
				}
				destItem, err := lr0.findItem(dest)
				if err != nil {
					return nil, err
				}
				destItem.addLookAhead(ci.la)
			}
		}
	}

	err := propagateLookAhead(lr0, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to propagate look-ahead symbols: %w", err)
	}

	return &lalr1Automaton{
		lr0Automaton: lr0,
	}, nil
}

// genLALR1Closure computes the LR(1) closure of a single item whose look-ahead is laPropagate.
func genLALR1Closure(prod *production, dot int, prods *productionSet, first firstSet) ([]*laItem, error) {
	type key struct {
		prod productionID
		dot  int
		la   symbol.Symbol
	}
	items := []*laItem{{prod: prod, dot: dot, la: laPropagate}}
	known := map[key]struct{}{
		{prod: prod.id, dot: dot, la: laPropagate}: {},
	}
	for i := 0; i < len(items); i++ {
		item := items[i]
		if item.dot >= item.prod.rhsLen || !item.prod.rhs[item.dot].IsNonTerminal() {
			continue
		}

		fst, err := first.find(item.prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		las := make([]symbol.Symbol, 0, len(fst.symbols)+1)
		for sym := range fst.symbols {
			las = append(las, sym)
		}
		if fst.empty {
			las = append(las, item.la)
		}

		ps, _ := prods.findByLHS(item.prod.rhs[item.dot])
		for _, p := range ps {
			for _, la := range las {
				k := key{prod: p.id, dot: 0, la: la}
				if _, ok := known[k]; ok {
					continue
				}
				known[k] = struct{}{}
				items = append(items, &laItem{prod: p, dot: 0, la: la})
			}
		}
	}

	return items, nil
}

func propagateLookAhead(lr0 *lr0Automaton, edges map[itemRef][]itemRef) error {
	for {
		changed := false
		for src, dests := range edges {
			srcItem, err := lr0.findItem(src)
			if err != nil {
				return err
			}
			for _, dest := range dests {
				destItem, err := lr0.findItem(dest)
				if err != nil {
					return err
				}
				for a := range srcItem.lookAhead.symbols {
					if destItem.addLookAhead(a) {
						changed = true
					}
				}
			}
		}
		if !changed {
			return nil
		}
	}
}

func (a *lr0Automaton) findItem(ref itemRef) (*lrItem, error) {
	state, ok := a.states[ref.state]
	if !ok {
		return nil, fmt.Errorf("a state was not found: %v", ref.state)
	}
	for _, item := range state.items {
		if item.id == ref.item {
			return item, nil
		}
	}
	for _, item := range state.emptyProdItems {
		if item.id == ref.item {
			return item, nil
		}
	}
	return nil, fmt.Errorf("an item was not found: %v in state %v", ref.item, state.num)
}

func (item *lrItem) addLookAhead(sym symbol.Symbol) bool {
	if item.lookAhead.symbols == nil {
		item.lookAhead.symbols = map[symbol.Symbol]struct{}{}
	}
	if _, ok := item.lookAhead.symbols[sym]; ok {
		return false
	}
	item.lookAhead.symbols[sym] = struct{}{}
	return true
}
