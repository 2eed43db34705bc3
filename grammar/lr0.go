package grammar

import (
	"fmt"
	"sort"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState
}

// genLR0Automaton builds the canonical LR(0) collection breadth first, so state numbers are
// stable for a given grammar.
func genLR0Automaton(prods *productionSet, startSym symbol.Symbol, errSym symbol.Symbol) (*lr0Automaton, error) {
	if !startSym.IsStart() {
		return nil, fmt.Errorf("%v is not a start symbol", startSym)
	}
	startProds, ok := prods.findByLHS(startSym)
	if !ok || len(startProds) == 0 {
		return nil, fmt.Errorf("the start symbol has no production")
	}
	initialItem, err := newLR0Item(startProds[0], 0)
	if err != nil {
		return nil, err
	}
	initialKernel, err := newKernel([]*lrItem{initialItem})
	if err != nil {
		return nil, err
	}

	automaton := &lr0Automaton{
		initialState: initialKernel.id,
		states:       map[kernelID]*lrState{},
	}
	known := map[kernelID]struct{}{
		initialKernel.id: {},
	}
	queue := []*kernel{initialKernel}
	num := stateNumInitial
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]

		state, neighbours, err := genStateAndNeighbourKernels(k, prods, errSym)
		if err != nil {
			return nil, err
		}
		state.num = num
		num = num.next()
		automaton.states[state.id] = state

		for _, n := range neighbours {
			if _, ok := known[n.id]; ok {
				continue
			}
			known[n.id] = struct{}{}
			queue = append(queue, n)
		}
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet, errSym symbol.Symbol) (*lrState, []*kernel, error) {
	items, err := genLR0Closure(k, prods)
	if err != nil {
		return nil, nil, err
	}

	state := &lrState{
		kernel:    k,
		next:      map[symbol.Symbol]kernelID{},
		reducible: map[productionID]struct{}{},
	}
	for _, item := range items {
		if item.dottedSymbol == errSym {
			state.isErrorTrapper = true
		}
		if !item.reducible {
			continue
		}
		state.reducible[item.prod] = struct{}{}
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, nil, fmt.Errorf("a reducible production was not found: %v", item.prod)
		}
		if prod.isEmpty() {
			state.emptyProdItems = append(state.emptyProdItems, item)
		}
	}

	neighbours, err := genNeighbourKernels(items, prods)
	if err != nil {
		return nil, nil, err
	}
	kernels := make([]*kernel, 0, len(neighbours))
	for _, n := range neighbours {
		state.next[n.symbol] = n.kernel.id
		kernels = append(kernels, n.kernel)
	}

	return state, kernels, nil
}

func genLR0Closure(k *kernel, prods *productionSet) ([]*lrItem, error) {
	items := append([]*lrItem{}, k.items...)
	expanded := map[symbol.Symbol]struct{}{}
	for i := 0; i < len(items); i++ {
		sym := items[i].dottedSymbol
		if !sym.IsNonTerminal() {
			continue
		}
		if _, ok := expanded[sym]; ok {
			continue
		}
		expanded[sym] = struct{}{}

		ps, _ := prods.findByLHS(sym)
		for _, prod := range ps {
			item, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	return items, nil
}

type neighbourKernel struct {
	symbol symbol.Symbol
	kernel *kernel
}

// genNeighbourKernels returns the GOTO kernels of a closure ordered by symbol.
func genNeighbourKernels(items []*lrItem, prods *productionSet) ([]*neighbourKernel, error) {
	advanced := map[symbol.Symbol][]*lrItem{}
	for _, item := range items {
		if item.dottedSymbol.IsNil() {
			continue
		}
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("a production was not found: %v", item.prod)
		}
		next, err := newLR0Item(prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		advanced[item.dottedSymbol] = append(advanced[item.dottedSymbol], next)
	}

	syms := make([]symbol.Symbol, 0, len(advanced))
	for sym := range advanced {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})

	neighbours := make([]*neighbourKernel, 0, len(syms))
	for _, sym := range syms {
		k, err := newKernel(advanced[sym])
		if err != nil {
			return nil, err
		}
		neighbours = append(neighbours, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}

	return neighbours, nil
}

// orderedStates returns the states sorted by state number.
func (a *lr0Automaton) orderedStates() []*lrState {
	states := make([]*lrState, len(a.states))
	for _, s := range a.states {
		states[s.num] = s
	}
	return states
}
