package grammar

import (
	"fmt"
	"sort"

	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

// action is an entry of the action table. A negative entry shifts and moves to the state -a, a
// positive one reduces by the production a, and zero is a syntax error.
type action int

func shiftTo(state stateNum) action {
	return action(-state)
}

func reduceBy(prod productionNum) action {
	return action(prod)
}

func (a action) shift() (stateNum, bool) {
	return stateNum(-a), a < 0
}

func (a action) reduce() (productionNum, bool) {
	return productionNum(a), a > 0
}

// A shift/reduce conflict on sym in state, between shifting to next and reducing by prod.
type srConflict struct {
	sym        symbol.Symbol
	next       stateNum
	prod       productionNum
	resolvedBy int
}

// A reduce/reduce conflict on sym between two productions. prod1 was written first.
type rrConflict struct {
	sym          symbol.Symbol
	prod1, prod2 productionNum
}

// ParsingTable holds the action and goto tables as row-major matrices with one row per state.
// A goto entry of 0 means no transition; the initial state is never a goto target.
type ParsingTable struct {
	actionTable      []action
	goToTable        []stateNum
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	// errorTrapperStates[s] is 1 when state s has an item `A → α・error β`.
	errorTrapperStates []int

	InitialState stateNum
}

func (t *ParsingTable) action(state stateNum, sym symbol.SymbolNum) action {
	return t.actionTable[state.Int()*t.terminalCount+sym.Int()]
}

func (t *ParsingTable) setAction(state stateNum, sym symbol.SymbolNum, a action) {
	t.actionTable[state.Int()*t.terminalCount+sym.Int()] = a
}

func (t *ParsingTable) goTo(state stateNum, sym symbol.SymbolNum) (stateNum, bool) {
	next := t.goToTable[state.Int()*t.nonTerminalCount+sym.Int()]
	return next, next != stateNumInitial
}

func (t *ParsingTable) setGoTo(state stateNum, sym symbol.SymbolNum, next stateNum) {
	t.goToTable[state.Int()*t.nonTerminalCount+sym.Int()] = next
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTableReader
	precAndAssoc *precAndAssoc

	srConflicts map[stateNum][]*srConflict
	rrConflicts map[stateNum][]*rrConflict
}

func sortedSymbols[V any](m map[symbol.Symbol]V) []symbol.Symbol {
	syms := make([]symbol.Symbol, 0, len(m))
	for sym := range m {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	n := len(b.automaton.states)
	tab := &ParsingTable{
		actionTable:        make([]action, n*b.termCount),
		goToTable:          make([]stateNum, n*b.nonTermCount),
		stateCount:         n,
		terminalCount:      b.termCount,
		nonTerminalCount:   b.nonTermCount,
		errorTrapperStates: make([]int, n),
		InitialState:       b.automaton.states[b.automaton.initialState].num,
	}
	b.srConflicts = map[stateNum][]*srConflict{}
	b.rrConflicts = map[stateNum][]*rrConflict{}

	// Everything is visited in a fixed order so that conflicts are recorded the same way on
	// every build.
	for _, state := range b.automaton.orderedStates() {
		if state.isErrorTrapper {
			tab.errorTrapperStates[state.num] = 1
		}

		for _, sym := range sortedSymbols(state.next) {
			next := b.automaton.states[state.next[sym]].num
			if sym.IsTerminal() {
				b.addShift(tab, state.num, sym, next)
			} else {
				tab.setGoTo(state.num, sym.Num(), next)
			}
		}

		items, err := b.reducibleItems(state)
		if err != nil {
			return nil, err
		}
		for _, ri := range items {
			for _, la := range sortedSymbols(ri.item.lookAhead.symbols) {
				b.addReduce(tab, state.num, la, ri.prod)
			}
		}
	}

	return tab, nil
}

type reducibleItem struct {
	prod productionNum
	item *lrItem
}

// reducibleItems returns the items a state can reduce by, ordered by production number.
func (b *lrTableBuilder) reducibleItems(state *lrState) ([]reducibleItem, error) {
	var items []reducibleItem
	for prodID := range state.reducible {
		prod, ok := b.prods.findByID(prodID)
		if !ok {
			return nil, fmt.Errorf("reducible production not found: %v", prodID)
		}
		item := findItem(state.items, prodID, true)
		if item == nil {
			item = findItem(state.emptyProdItems, prodID, false)
		}
		if item == nil {
			return nil, fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, prod.num)
		}
		items = append(items, reducibleItem{prod: prod.num, item: item})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].prod < items[j].prod
	})
	return items, nil
}

func findItem(items []*lrItem, prod productionID, reducibleOnly bool) *lrItem {
	for _, item := range items {
		if item.prod == prod && (!reducibleOnly || item.reducible) {
			return item
		}
	}
	return nil
}

// addShift records a shift on sym. A reduce already in the entry is a shift/reduce conflict.
func (b *lrTableBuilder) addShift(tab *ParsingTable, state stateNum, sym symbol.Symbol, next stateNum) {
	if prod, ok := tab.action(state, sym.Num()).reduce(); ok {
		b.resolveShiftReduce(tab, state, sym, next, prod)
		return
	}
	tab.setAction(state, sym.Num(), shiftTo(next))
}

// addReduce records a reduction on the look-ahead sym. Between two reductions the production
// declared first wins.
func (b *lrTableBuilder) addReduce(tab *ParsingTable, state stateNum, sym symbol.Symbol, prod productionNum) {
	cur := tab.action(state, sym.Num())
	if next, ok := cur.shift(); ok {
		b.resolveShiftReduce(tab, state, sym, next, prod)
		return
	}
	if other, ok := cur.reduce(); ok {
		if other == prod {
			return
		}
		b.rrConflicts[state] = append(b.rrConflicts[state], &rrConflict{
			sym:   sym,
			prod1: other,
			prod2: prod,
		})
		if other < prod {
			return
		}
	}
	tab.setAction(state, sym.Num(), reduceBy(prod))
}

func (b *lrTableBuilder) resolveShiftReduce(tab *ParsingTable, state stateNum, sym symbol.Symbol, next stateNum, prod productionNum) {
	shift, by := b.preferShift(sym.Num(), prod)
	b.srConflicts[state] = append(b.srConflicts[state], &srConflict{
		sym:        sym,
		next:       next,
		prod:       prod,
		resolvedBy: by,
	})
	if shift {
		tab.setAction(state, sym.Num(), shiftTo(next))
	} else {
		tab.setAction(state, sym.Num(), reduceBy(prod))
	}
}

// preferShift decides a shift/reduce conflict by precedence, then by associativity. Without
// precedence on both sides the shift wins.
func (b *lrTableBuilder) preferShift(sym symbol.SymbolNum, prod productionNum) (bool, int) {
	symPrec := b.precAndAssoc.terminalPrecedence(sym)
	prodPrec := b.precAndAssoc.productionPredence(prod)
	switch {
	case symPrec == precNil || prodPrec == precNil:
		return true, spec.ResolvedByShift
	case symPrec == prodPrec:
		return b.precAndAssoc.productionAssociativity(prod) != assocTypeLeft, spec.ResolvedByAssoc
	default:
		// A smaller number binds tighter.
		return symPrec < prodPrec, spec.ResolvedByPrec
	}
}

func assocLetter(a assocType) string {
	switch a {
	case assocTypeLeft:
		return "l"
	case assocTypeRight:
		return "r"
	}
	return ""
}

func (b *lrTableBuilder) genReport(tab *ParsingTable, gram *Grammar) (*spec.Report, error) {
	terms, err := b.reportTerminals(gram)
	if err != nil {
		return nil, err
	}
	nonTerms, err := b.reportNonTerminals(gram)
	if err != nil {
		return nil, err
	}

	ps := gram.productionSet.getAllProductions()
	prods := make([]*spec.Production, len(ps)+1)
	for _, p := range ps {
		rhs := make([]int, len(p.rhs))
		for i, e := range p.rhs {
			rhs[i] = e.Num().Int()
			if !e.IsTerminal() {
				rhs[i] = -rhs[i]
			}
		}
		_, recover := gram.recoverProductions[p.id]
		prods[p.num.Int()] = &spec.Production{
			Number:        p.num.Int(),
			LHS:           p.lhs.Num().Int(),
			RHS:           rhs,
			Fields:        gram.fields[p.id],
			Recover:       recover,
			Precedence:    b.precAndAssoc.productionPredence(p.num),
			Associativity: assocLetter(b.precAndAssoc.productionAssociativity(p.num)),
		}
	}

	states := make([]*spec.State, len(b.automaton.states))
	for _, s := range b.automaton.orderedStates() {
		state, err := b.reportState(tab, s)
		if err != nil {
			return nil, err
		}
		states[s.num.Int()] = state
	}

	return &spec.Report{
		Name:         gram.name,
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
	}, nil
}

func (b *lrTableBuilder) reportTerminals(gram *Grammar) ([]*spec.Terminal, error) {
	externals := map[symbol.Symbol]struct{}{}
	for _, sym := range gram.externals {
		externals[sym] = struct{}{}
	}

	syms := b.symTab.TerminalSymbols()
	terms := make([]*spec.Terminal, len(syms)+1)
	for _, sym := range syms {
		name, ok := b.symTab.ToText(sym)
		if !ok {
			return nil, fmt.Errorf("failed to generate terminals: symbol not found: %v", sym)
		}
		_, anonymous := gram.anonymous[sym]
		_, external := externals[sym]
		terms[sym.Num()] = &spec.Terminal{
			Number:        sym.Num().Int(),
			Name:          name,
			Alias:         gram.aliases[sym],
			Anonymous:     anonymous,
			External:      external,
			Pattern:       gram.sym2Pat[sym],
			Precedence:    b.precAndAssoc.terminalPrecedence(sym.Num()),
			Associativity: assocLetter(b.precAndAssoc.terminalAssociativity(sym.Num())),
		}
	}
	return terms, nil
}

func (b *lrTableBuilder) reportNonTerminals(gram *Grammar) ([]*spec.NonTerminal, error) {
	syms := b.symTab.NonTerminalSymbols()
	nonTerms := make([]*spec.NonTerminal, len(syms)+1)
	for _, sym := range syms {
		name, ok := b.symTab.ToText(sym)
		if !ok {
			return nil, fmt.Errorf("failed to generate non-terminals: symbol not found: %v", sym)
		}
		kind, named := gram.nonTermKinds[sym]
		nonTerms[sym.Num()] = &spec.NonTerminal{
			Number: sym.Num().Int(),
			Name:   name,
			Kind:   kind,
			Hidden: !named && !sym.IsStart(),
		}
	}
	return nonTerms, nil
}

func (b *lrTableBuilder) reportState(tab *ParsingTable, s *lrState) (*spec.State, error) {
	state := &spec.State{
		Number:     s.num.Int(),
		Trapper:    s.isErrorTrapper,
		SRConflict: []*spec.SRConflict{},
		RRConflict: []*spec.RRConflict{},
	}

	for _, item := range s.items {
		p, ok := b.prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("failed to generate states: production of kernel item not found: %v", item.prod)
		}
		state.Kernel = append(state.Kernel, &spec.Item{
			Production: p.num.Int(),
			Dot:        item.dot,
		})
	}
	sort.Slice(state.Kernel, func(i, j int) bool {
		ki, kj := state.Kernel[i], state.Kernel[j]
		if ki.Production != kj.Production {
			return ki.Production < kj.Production
		}
		return ki.Dot < kj.Dot
	})

	reduces := map[productionNum]*spec.Reduce{}
	for _, t := range b.symTab.TerminalSymbols() {
		act := tab.action(s.num, t.Num())
		if next, ok := act.shift(); ok {
			state.Shift = append(state.Shift, &spec.Transition{
				Symbol: t.Num().Int(),
				State:  next.Int(),
			})
			continue
		}
		if prod, ok := act.reduce(); ok {
			r, ok := reduces[prod]
			if !ok {
				r = &spec.Reduce{Production: prod.Int()}
				reduces[prod] = r
				state.Reduce = append(state.Reduce, r)
			}
			r.LookAhead = append(r.LookAhead, t.Num().Int())
		}
	}
	for _, n := range b.symTab.NonTerminalSymbols() {
		if next, ok := tab.goTo(s.num, n.Num()); ok {
			state.GoTo = append(state.GoTo, &spec.Transition{
				Symbol: n.Num().Int(),
				State:  next.Int(),
			})
		}
	}
	sort.Slice(state.Shift, func(i, j int) bool {
		return state.Shift[i].State < state.Shift[j].State
	})
	sort.Slice(state.Reduce, func(i, j int) bool {
		return state.Reduce[i].Production < state.Reduce[j].Production
	})
	sort.Slice(state.GoTo, func(i, j int) bool {
		return state.GoTo[i].State < state.GoTo[j].State
	})

	for _, c := range b.srConflicts[s.num] {
		sr := &spec.SRConflict{
			Symbol:     c.sym.Num().Int(),
			State:      c.next.Int(),
			Production: c.prod.Int(),
			ResolvedBy: c.resolvedBy,
		}
		act := tab.action(s.num, c.sym.Num())
		if next, ok := act.shift(); ok {
			n := next.Int()
			sr.AdoptedState = &n
		} else if prod, ok := act.reduce(); ok {
			n := prod.Int()
			sr.AdoptedProduction = &n
		}
		state.SRConflict = append(state.SRConflict, sr)
	}
	sort.SliceStable(state.SRConflict, func(i, j int) bool {
		return state.SRConflict[i].Symbol < state.SRConflict[j].Symbol
	})

	for _, c := range b.rrConflicts[s.num] {
		prod, _ := tab.action(s.num, c.sym.Num()).reduce()
		state.RRConflict = append(state.RRConflict, &spec.RRConflict{
			Symbol:            c.sym.Num().Int(),
			Production1:       c.prod1.Int(),
			Production2:       c.prod2.Int(),
			AdoptedProduction: prod.Int(),
			ResolvedBy:        spec.ResolvedByProdOrder,
		})
	}
	sort.SliceStable(state.RRConflict, func(i, j int) bool {
		return state.RRConflict[i].Symbol < state.RRConflict[j].Symbol
	})

	return state, nil
}
