package parser

import (
	"fmt"

	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

type Grammar interface {
	// InitialState returns the initial state of a parser.
	InitialState() int

	// StartProduction returns the start production of grammar.
	StartProduction() int

	// Action returns an ACTION entry corresponding to a (state, terminal symbol) pair.
	Action(state int, terminal int) int

	// GoTo returns a GOTO entry corresponding to a (state, non-terminal symbol) pair.
	GoTo(state int, lhs int) int

	// ErrorTrapperState returns true when a state can shift the error symbol.
	ErrorTrapperState(state int) bool

	// LHS returns a LHS symbol of a production.
	LHS(prod int) int

	// AlternativeSymbolCount returns a symbol count of p production.
	AlternativeSymbolCount(prod int) int

	// RecoverProduction returns true when a production has the recover directive.
	RecoverProduction(prod int) bool

	// TerminalCount returns a terminal symbol count of grammar.
	TerminalCount() int

	// NonTerminalCount returns a non-terminal symbol count of grammar.
	NonTerminalCount() int

	// EOF returns the EOF symbol.
	EOF() int

	// Error returns the error symbol.
	Error() int

	// Terminal return a string representation of a terminal symbol.
	Terminal(terminal int) string

	// NonTerminal return a string representation of a non-terminal symbol.
	NonTerminal(nonTerminal int) string

	// MissingTerminals returns the terminals the parser may insert as MISSING leaves, in the
	// order it tries them.
	MissingTerminals() []int

	// SyncTerminal returns the terminal at which an incremental parse may resume, or 0.
	SyncTerminal() int

	// TerminalKind returns the node kind of the leaves of a terminal.
	TerminalKind(terminal int) tree.Kind

	// NonTerminalKind returns the node kind of a non-terminal. When named is false, the
	// non-terminal is hidden and its children belong to its parent.
	NonTerminalKind(nonTerminal int) (kind tree.Kind, named bool)

	// Fields returns the field of each RHS symbol of a production, or nil.
	Fields(prod int) []tree.Field

	// RootNonTerminal returns the non-terminal of the root node.
	RootNonTerminal() int
}

var _ Grammar = &grammarImpl{}

// recoveryShifts is the number of shifts after which the parser leaves the error state.
const recoveryShifts = 3

type ParserOption func(p *Parser) error

// DisableLAC disables LAC (lookahead correction). LAC is enabled by default.
func DisableLAC() ParserOption {
	return func(p *Parser) error {
		p.disableLAC = true
		return nil
	}
}

func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		p.semAct = semAct
		return nil
	}
}

// OnSync registers a function the parser calls each time it shifts the sync terminal on the
// canonical sync stack outside of error recovery. When f returns true, Parse returns without
// accepting and Stopped reports the token.
func OnSync(f func(tok *scanner.Token) bool) ParserOption {
	return func(p *Parser) error {
		p.onSync = f
		return nil
	}
}

// ResumeStack starts the parser on a state stack instead of the initial state. The bottom of
// states must be the initial state.
func ResumeStack(states []int) ParserOption {
	return func(p *Parser) error {
		if len(states) == 0 || states[0] != p.gram.InitialState() {
			return fmt.Errorf("a resumed state stack must start with the initial state")
		}
		p.stateStack.items = append(p.stateStack.items[:0], states...)
		return nil
	}
}

type Parser struct {
	toks       TokenStream
	gram       Grammar
	stateStack *stateStack
	semAct     SemanticActionSet
	disableLAC bool
	onError    bool
	shiftCount int
	synErrs    []*SyntaxError

	onSync    func(tok *scanner.Token) bool
	syncStack []int
	stopped   *scanner.Token

	// prevEnd is the end of the last shifted token. MISSING leaves sit there.
	prevEnd int

	// deferred is the token that caused a MISSING insertion. It is read again after the
	// inserted token is shifted.
	deferred *scanner.Token
	missing  *scanner.Token

	lastTrapTok   *scanner.Token
	lastTrapDepth int
}

func NewParser(toks TokenStream, gram Grammar, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		toks:       toks,
		gram:       gram,
		stateStack: &stateStack{},
	}
	p.stateStack.push(gram.InitialState())

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	if p.onSync != nil {
		p.syncStack = SyncStack(gram)
	}

	return p, nil
}

func (p *Parser) Parse() error {
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

	// missingTried is true once a MISSING insertion was attempted for the current lookahead.
	missingTried := false

	// validated is true once the current lookahead passed LAC on the current stack.
	validated := false

ACTION_LOOP:
	for {
		act := p.lookupAction(tok, &validated)
		switch {
		case act < 0: // Shift
			nextState := act * -1

			recovered := false
			if p.onError {
				p.shiftCount++

				// When the parser performs shift three times, the parser recovers from the error state.
				if p.shiftCount >= recoveryShifts {
					p.onError = false
					p.shiftCount = 0
					recovered = true
				}
			}

			p.shift(nextState)
			validated = false

			if p.semAct != nil {
				if tok == p.missing {
					p.semAct.ShiftMissing(tok.Terminal, tok.Start)
				} else {
					p.semAct.Shift(tok, recovered)
				}
			}
			p.prevEnd = tok.End

			if p.atSync(tok) && p.onSync(tok) {
				p.stopped = tok
				return nil
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
			missingTried = false
		case act > 0: // Reduce
			prodNum := act

			recovered := false
			if p.onError && p.gram.RecoverProduction(prodNum) {
				p.onError = false
				p.shiftCount = 0
				recovered = true
			}

			accepted := p.reduce(prodNum)
			if accepted {
				if p.semAct != nil {
					p.semAct.Accept()
				}

				return nil
			}

			if p.semAct != nil {
				p.semAct.Reduce(prodNum, recovered)
			}
		default: // Error
			if p.onError {
				if p.isEOF(tok) {
					// The error state cannot consume the end of the input, so the error has to
					// grow over a deeper trapper.
					limit := p.stateStack.len()
					if p.lastTrapDepth < limit {
						limit = p.lastTrapDepth
					}
					ok, err := p.trapAndShiftError(tok, limit)
					if err != nil {
						return err
					}
					if !ok {
						return p.abort(tok)
					}
					validated = false
					continue ACTION_LOOP
				}

				if p.semAct != nil {
					p.semAct.SkipError(tok)
				}
				tok, err = p.nextToken()
				if err != nil {
					return err
				}
				missingTried = false
				validated = false

				continue ACTION_LOOP
			}

			if !tok.Invalid && !missingTried && tok != p.missing {
				missingTried = true
				if term, ok := p.searchMissing(tok); ok {
					p.synErrs = append(p.synErrs, &SyntaxError{
						Offset:  p.prevEnd,
						Token:   tok,
						Missing: p.gram.Terminal(term),
					})
					p.deferred = tok
					p.missing = &scanner.Token{
						Terminal: term,
						Start:    p.prevEnd,
						End:      p.prevEnd,
					}
					tok = p.missing
					validated = false

					continue ACTION_LOOP
				}
			}

			p.synErrs = append(p.synErrs, &SyntaxError{
				Offset:            tok.Start,
				Token:             tok,
				ExpectedTerminals: p.searchLookahead(p.stateStack.top()),
			})

			limit := p.stateStack.len() + 1
			if tok == p.lastTrapTok {
				limit = p.lastTrapDepth
			}
			ok, err := p.trapAndShiftError(tok, limit)
			if err != nil {
				return err
			}
			if !ok {
				return p.abort(tok)
			}
			validated = false
		}
	}
}

// SyntaxErrors returns the syntax errors in the order the parser met them.
func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.synErrs
}

// Stopped returns the sync token at which Parse stopped, or nil when the parser accepted the
// whole input.
func (p *Parser) Stopped() *scanner.Token {
	return p.stopped
}

// SyncStack returns the state stack of a parser that has just shifted the sync terminal after
// a run of top-level blocks, or nil when the grammar has no such configuration.
func SyncStack(gram Grammar) []int {
	sync := gram.SyncTerminal()
	if sync == 0 {
		return nil
	}
	s0 := gram.InitialState()
	for nt := 1; nt < gram.NonTerminalCount(); nt++ {
		g1 := gram.GoTo(s0, nt)
		if g1 == 0 {
			continue
		}
		if act := gram.Action(g1, sync); act < 0 {
			return []int{s0, g1, act * -1}
		}
	}
	return nil
}

func (p *Parser) atSync(tok *scanner.Token) bool {
	if p.onSync == nil || p.onError || p.syncStack == nil || tok.Terminal != p.gram.SyncTerminal() {
		return false
	}
	if p.stateStack.len() != len(p.syncStack) {
		return false
	}
	for i, s := range p.syncStack {
		if p.stateStack.items[i] != s {
			return false
		}
	}
	return true
}

// abort gives up on recovery: everything parsed so far and the rest of the input become one
// error.
func (p *Parser) abort(tok *scanner.Token) error {
	if p.semAct == nil {
		return nil
	}
	p.semAct.MissError(tok)
	for !p.isEOF(tok) {
		p.semAct.SkipError(tok)
		var err error
		tok, err = p.nextToken()
		if err != nil {
			return err
		}
	}
	p.semAct.Accept()
	return nil
}

func (p *Parser) nextToken() (*scanner.Token, error) {
	if p.deferred != nil {
		tok := p.deferred
		p.deferred = nil
		return tok, nil
	}
	return p.toks.Next()
}

func (p *Parser) isEOF(tok *scanner.Token) bool {
	return !tok.Invalid && tok.Terminal == p.gram.EOF()
}

func (p *Parser) lookupAction(tok *scanner.Token, validated *bool) int {
	if tok.Invalid {
		return 0
	}
	if !p.disableLAC && !*validated {
		if !p.validateLookahead(tok.Terminal) {
			return 0
		}
		*validated = true
	}

	return p.gram.Action(p.stateStack.top(), tok.Terminal)
}

// validateLookahead reports whether the parser can shift or accept a terminal after the
// reductions it triggers. It runs the reductions on a copy of the state stack.
func (p *Parser) validateLookahead(term int) bool {
	return p.simulate(p.stateStack.copy(), term) != nil
}

// simulate runs the actions of term on states and returns the stack after the shift of term,
// or nil when the parser rejects term. When term is accepted, it returns states unchanged.
func (p *Parser) simulate(states *stateStack, term int) *stateStack {
	for {
		act := p.gram.Action(states.top(), term)

		switch {
		case act < 0: // Shift
			states.push(act * -1)
			return states
		case act > 0: // Reduce
			prodNum := act

			lhs := p.gram.LHS(prodNum)
			if lhs == p.gram.LHS(p.gram.StartProduction()) {
				return states
			}
			n := p.gram.AlternativeSymbolCount(prodNum)
			states.pop(n)
			nextState := p.gram.GoTo(states.top(), lhs)
			states.push(nextState)
		default: // Error
			return nil
		}
	}
}

// searchMissing returns the first MISSING terminal after whose insertion the parser can shift
// or accept tok.
func (p *Parser) searchMissing(tok *scanner.Token) (int, bool) {
	for _, term := range p.gram.MissingTerminals() {
		states := p.simulate(p.stateStack.copy(), term)
		if states == nil {
			continue
		}
		if p.simulate(states, tok.Terminal) != nil {
			return term, true
		}
	}
	return 0, false
}

func (p *Parser) lookupActionOnError() (int, error) {
	errSym := p.gram.Error()

	act := p.gram.Action(p.stateStack.top(), errSym)
	if act >= 0 {
		return 0, fmt.Errorf("an entry must be a shift action by the error symbol; entry: %v, state: %v, symbol: %v", act, p.stateStack.top(), p.gram.Terminal(errSym))
	}

	return act, nil
}

func (p *Parser) shift(nextState int) {
	p.stateStack.push(nextState)
}

func (p *Parser) reduce(prodNum int) bool {
	lhs := p.gram.LHS(prodNum)
	if lhs == p.gram.LHS(p.gram.StartProduction()) {
		return true
	}
	n := p.gram.AlternativeSymbolCount(prodNum)
	p.stateStack.pop(n)
	nextState := p.gram.GoTo(p.stateStack.top(), lhs)
	p.stateStack.push(nextState)
	return false
}

// trapAndShiftError pops states until it finds an error trapper state with a stack depth
// below limit, then shifts the error symbol. It returns false when no such state exists.
func (p *Parser) trapAndShiftError(cause *scanner.Token, limit int) (bool, error) {
	popped := 0
	for {
		if p.gram.ErrorTrapperState(p.stateStack.top()) && p.stateStack.len() < limit {
			break
		}
		if p.stateStack.len() <= 1 {
			return false, nil
		}
		p.stateStack.pop(1)
		popped++
	}

	act, err := p.lookupActionOnError()
	if err != nil {
		return false, err
	}

	p.lastTrapTok = cause
	p.lastTrapDepth = p.stateStack.len()

	if p.semAct != nil {
		p.semAct.TrapAndShiftError(cause, popped)
	}
	p.shift(act * -1)

	p.onError = true
	p.shiftCount = 0

	return true, nil
}

func (p *Parser) searchLookahead(state int) []string {
	kinds := []string{}
	termCount := p.gram.TerminalCount()
	for term := 1; term < termCount; term++ {
		if p.disableLAC {
			if p.gram.Action(state, term) == 0 {
				continue
			}
		} else {
			if !p.validateLookahead(term) {
				continue
			}
		}

		// We don't add the error symbol to the look-ahead symbols because users cannot input the error symbol
		// intentionally.
		if term == p.gram.Error() {
			continue
		}

		kinds = append(kinds, p.gram.Terminal(term))
	}

	return kinds
}

type stateStack struct {
	items []int
}

func (s *stateStack) top() int {
	return s.items[len(s.items)-1]
}

func (s *stateStack) len() int {
	return len(s.items)
}

func (s *stateStack) push(state int) {
	s.items = append(s.items, state)
}

func (s *stateStack) pop(n int) {
	s.items = s.items[:len(s.items)-n]
}

func (s *stateStack) copy() *stateStack {
	items := make([]int, len(s.items), len(s.items)+8)
	copy(items, s.items)
	return &stateStack{
		items: items,
	}
}
