package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mlspec "github.com/nihei9/maleeni/spec"

	"github.com/louiss0/tree-sitter-markdoc/compressor"
)

// FormatVersion changes whenever the layout of CompiledGrammar changes. Load rejects grammars
// written with another version.
const FormatVersion = 1

var ErrIncompatibleGrammar = errors.New("incompatible compiled grammar")

type CompiledGrammar struct {
	Version   int            `json:"version"`
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical"`
	Syntactic *SyntacticSpec `json:"syntactic"`
	Tree      *TreeSpec      `json:"tree"`
}

// LexicalSpec describes the maleeni lexer used for the interiors of tags and expressions.
type LexicalSpec struct {
	Maleeni *mlspec.CompiledLexSpec `json:"maleeni"`

	// KindToTerminal maps a maleeni kind ID to a terminal number.
	KindToTerminal []int `json:"kind_to_terminal"`

	// Skip[kindID] is 1 when the lexer drops tokens of the kind.
	Skip []int `json:"skip"`
}

type SyntacticSpec struct {
	Action                  *compressor.UniqueEntriesTable `json:"action"`
	GoTo                    *compressor.UniqueEntriesTable `json:"goto"`
	StateCount              int                            `json:"state_count"`
	InitialState            int                            `json:"initial_state"`
	StartProduction         int                            `json:"start_production"`
	LHSSymbols              []int                          `json:"lhs_symbols"`
	AlternativeSymbolCounts []int                          `json:"alternative_symbol_counts"`
	Terminals               []string                       `json:"terminals"`
	TerminalAliases         []string                       `json:"terminal_aliases"`
	TerminalCount           int                            `json:"terminal_count"`
	NonTerminals            []string                       `json:"non_terminals"`
	NonTerminalCount        int                            `json:"non_terminal_count"`
	EOFSymbol               int                            `json:"eof_symbol"`
	ErrorSymbol             int                            `json:"error_symbol"`
	ErrorTrapperStates      []int                          `json:"error_trapper_states"`
	RecoverProductions      []int                          `json:"recover_productions"`

	// Externals lists the terminals the scanner produces itself rather than through maleeni.
	Externals []int `json:"externals"`

	// MissingTerminals lists, in the order the parser tries them, the terminals the parser
	// may insert as zero-width MISSING leaves.
	MissingTerminals []int `json:"missing_terminals"`

	// SyncTerminal is the terminal whose shift marks a point where re-parsing can restart.
	SyncTerminal int `json:"sync_terminal"`
}

// ActionEntry returns an entry of the action table. A negative value means a shift to the state
// -entry, a positive one a reduction by the production entry, and 0 an error.
func (s *SyntacticSpec) ActionEntry(state, terminal int) int {
	v, err := s.Action.Lookup(state, terminal)
	if err != nil {
		return 0
	}
	return v
}

// GoToEntry returns the next state after reducing to a non-terminal, or 0 when there is none.
func (s *SyntacticSpec) GoToEntry(state, nonTerminal int) int {
	v, err := s.GoTo.Lookup(state, nonTerminal)
	if err != nil {
		return 0
	}
	return v
}

// TreeSpec tells the tree builder how grammar symbols become nodes.
type TreeSpec struct {
	// TerminalKinds[terminal] is the node kind of a named leaf, or "" for an anonymous token.
	TerminalKinds []string `json:"terminal_kinds"`

	// NonTerminalKinds[nonTerminal] is the node kind of a non-terminal, or "" when the
	// non-terminal is hidden and its children belong to the parent.
	NonTerminalKinds []string `json:"non_terminal_kinds"`

	// Fields[production][i] is the field name of the i-th RHS element, or "".
	Fields [][]string `json:"fields"`
}

func Load(r io.Reader) (*CompiledGrammar, error) {
	var cg CompiledGrammar
	d := json.NewDecoder(r)
	err := d.Decode(&cg)
	if err != nil {
		return nil, err
	}
	err = cg.Validate()
	if err != nil {
		return nil, err
	}
	return &cg, nil
}

func (g *CompiledGrammar) Write(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(g)
}

// Validate checks the internal consistency of a compiled grammar so that a parser never
// indexes out of its tables.
func (g *CompiledGrammar) Validate() error {
	if g.Version != FormatVersion {
		return fmt.Errorf("%w: format version %v, want %v", ErrIncompatibleGrammar, g.Version, FormatVersion)
	}
	if g.Lexical == nil || g.Syntactic == nil || g.Tree == nil {
		return fmt.Errorf("%w: lexical, syntactic, and tree sections are required", ErrIncompatibleGrammar)
	}

	lex := g.Lexical
	if lex.Maleeni == nil {
		return fmt.Errorf("%w: the maleeni lexer is missing", ErrIncompatibleGrammar)
	}
	if len(lex.KindToTerminal) != len(lex.Maleeni.KindNames) || len(lex.Skip) != len(lex.Maleeni.KindNames) {
		return fmt.Errorf("%w: kind tables disagree with the lexer; kinds: %v, kind_to_terminal: %v, skip: %v",
			ErrIncompatibleGrammar, len(lex.Maleeni.KindNames), len(lex.KindToTerminal), len(lex.Skip))
	}

	syn := g.Syntactic
	if syn.Action == nil || syn.GoTo == nil {
		return fmt.Errorf("%w: parsing tables are missing", ErrIncompatibleGrammar)
	}
	if rows, cols := syn.Action.OriginalTableSize(); rows != syn.StateCount || cols != syn.TerminalCount {
		return fmt.Errorf("%w: the action table is %vx%v, want %vx%v", ErrIncompatibleGrammar, rows, cols, syn.StateCount, syn.TerminalCount)
	}
	if rows, cols := syn.GoTo.OriginalTableSize(); rows != syn.StateCount || cols != syn.NonTerminalCount {
		return fmt.Errorf("%w: the goto table is %vx%v, want %vx%v", ErrIncompatibleGrammar, rows, cols, syn.StateCount, syn.NonTerminalCount)
	}
	if len(syn.Terminals) != syn.TerminalCount || len(syn.TerminalAliases) != syn.TerminalCount {
		return fmt.Errorf("%w: terminal names disagree with the terminal count %v", ErrIncompatibleGrammar, syn.TerminalCount)
	}
	if len(syn.NonTerminals) != syn.NonTerminalCount {
		return fmt.Errorf("%w: non-terminal names disagree with the non-terminal count %v", ErrIncompatibleGrammar, syn.NonTerminalCount)
	}
	if len(syn.ErrorTrapperStates) != syn.StateCount {
		return fmt.Errorf("%w: error trapper states disagree with the state count %v", ErrIncompatibleGrammar, syn.StateCount)
	}
	prodCount := len(syn.LHSSymbols)
	if len(syn.AlternativeSymbolCounts) != prodCount || len(syn.RecoverProductions) != prodCount || len(g.Tree.Fields) != prodCount {
		return fmt.Errorf("%w: production tables disagree in length", ErrIncompatibleGrammar)
	}
	if syn.InitialState < 0 || syn.InitialState >= syn.StateCount {
		return fmt.Errorf("%w: invalid initial state %v", ErrIncompatibleGrammar, syn.InitialState)
	}
	if syn.StartProduction <= 0 || syn.StartProduction >= prodCount {
		return fmt.Errorf("%w: invalid start production %v", ErrIncompatibleGrammar, syn.StartProduction)
	}
	validTerm := func(t int) bool {
		return t > 0 && t < syn.TerminalCount
	}
	for kind, t := range lex.KindToTerminal {
		if kind == 0 {
			continue
		}
		if !validTerm(t) {
			return fmt.Errorf("%w: a lexer kind maps to an invalid terminal %v", ErrIncompatibleGrammar, t)
		}
	}
	for _, t := range syn.Externals {
		if !validTerm(t) {
			return fmt.Errorf("%w: invalid external terminal %v", ErrIncompatibleGrammar, t)
		}
	}
	for _, t := range syn.MissingTerminals {
		if !validTerm(t) {
			return fmt.Errorf("%w: invalid missing terminal %v", ErrIncompatibleGrammar, t)
		}
	}
	if !validTerm(syn.EOFSymbol) || !validTerm(syn.ErrorSymbol) {
		return fmt.Errorf("%w: invalid EOF or error symbol", ErrIncompatibleGrammar)
	}
	if syn.SyncTerminal != 0 && !validTerm(syn.SyncTerminal) {
		return fmt.Errorf("%w: invalid sync terminal %v", ErrIncompatibleGrammar, syn.SyncTerminal)
	}
	for p := 1; p < prodCount; p++ {
		lhs := syn.LHSSymbols[p]
		if lhs <= 0 || lhs >= syn.NonTerminalCount {
			return fmt.Errorf("%w: production %v has an invalid LHS %v", ErrIncompatibleGrammar, p, lhs)
		}
		if len(g.Tree.Fields[p]) != 0 && len(g.Tree.Fields[p]) != syn.AlternativeSymbolCounts[p] {
			return fmt.Errorf("%w: production %v has %v fields for %v symbols", ErrIncompatibleGrammar, p, len(g.Tree.Fields[p]), syn.AlternativeSymbolCounts[p])
		}
	}
	if len(g.Tree.TerminalKinds) != syn.TerminalCount || len(g.Tree.NonTerminalKinds) != syn.NonTerminalCount {
		return fmt.Errorf("%w: node kinds disagree with the symbol counts", ErrIncompatibleGrammar)
	}
	return nil
}
