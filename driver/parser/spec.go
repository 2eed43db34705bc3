package parser

import (
	"fmt"

	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

type grammarImpl struct {
	g *spec.CompiledGrammar

	termKinds    []tree.Kind
	nonTermKinds []tree.Kind
	hidden       []bool
	fields       [][]tree.Field
	root         int
}

// NewGrammar prepares a compiled grammar for the parser. It fails when the grammar names a node
// kind or a field the tree package does not define.
func NewGrammar(g *spec.CompiledGrammar) (*grammarImpl, error) {
	gi := &grammarImpl{
		g:            g,
		termKinds:    make([]tree.Kind, len(g.Tree.TerminalKinds)),
		nonTermKinds: make([]tree.Kind, len(g.Tree.NonTerminalKinds)),
		hidden:       make([]bool, len(g.Tree.NonTerminalKinds)),
		fields:       make([][]tree.Field, len(g.Tree.Fields)),
	}
	skipped := map[int]bool{}
	for kind, skip := range g.Lexical.Skip {
		if skip != 0 {
			skipped[g.Lexical.KindToTerminal[kind]] = true
		}
	}
	for t, name := range g.Tree.TerminalKinds {
		// Skipped terminals never reach the parser.
		if name == "" || skipped[t] {
			gi.termKinds[t] = tree.KindAnonymous
			continue
		}
		k, ok := tree.KindByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown node kind %v of terminal %v", name, g.Syntactic.Terminals[t])
		}
		gi.termKinds[t] = k
	}
	for n, name := range g.Tree.NonTerminalKinds {
		if name == "" {
			gi.hidden[n] = true
			continue
		}
		k, ok := tree.KindByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown node kind %v of non-terminal %v", name, g.Syntactic.NonTerminals[n])
		}
		gi.nonTermKinds[n] = k
		if k == tree.KindSourceFile {
			gi.root = n
		}
	}
	if gi.root == 0 {
		return nil, fmt.Errorf("the grammar has no %v non-terminal", tree.KindSourceFile)
	}
	for p, names := range g.Tree.Fields {
		if len(names) == 0 {
			continue
		}
		fs := make([]tree.Field, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			f, ok := tree.FieldByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown field %v in production %v", name, p)
			}
			fs[i] = f
		}
		gi.fields[p] = fs
	}
	return gi, nil
}

func (g *grammarImpl) InitialState() int {
	return g.g.Syntactic.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.Syntactic.StartProduction
}

func (g *grammarImpl) RecoverProduction(prod int) bool {
	return g.g.Syntactic.RecoverProductions[prod] != 0
}

func (g *grammarImpl) Action(state int, terminal int) int {
	return g.g.Syntactic.ActionEntry(state, terminal)
}

func (g *grammarImpl) GoTo(state int, lhs int) int {
	return g.g.Syntactic.GoToEntry(state, lhs)
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return g.g.Syntactic.AlternativeSymbolCounts[prod]
}

func (g *grammarImpl) TerminalCount() int {
	return g.g.Syntactic.TerminalCount
}

func (g *grammarImpl) NonTerminalCount() int {
	return g.g.Syntactic.NonTerminalCount
}

func (g *grammarImpl) ErrorTrapperState(state int) bool {
	return g.g.Syntactic.ErrorTrapperStates[state] != 0
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.Syntactic.NonTerminals[nonTerminal]
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.Syntactic.LHSSymbols[prod]
}

func (g *grammarImpl) EOF() int {
	return g.g.Syntactic.EOFSymbol
}

func (g *grammarImpl) Error() int {
	return g.g.Syntactic.ErrorSymbol
}

// Terminal returns the display text of a terminal: its alias when it has one.
func (g *grammarImpl) Terminal(terminal int) string {
	if a := g.g.Syntactic.TerminalAliases[terminal]; a != "" {
		return a
	}
	return g.g.Syntactic.Terminals[terminal]
}

func (g *grammarImpl) MissingTerminals() []int {
	return g.g.Syntactic.MissingTerminals
}

func (g *grammarImpl) SyncTerminal() int {
	return g.g.Syntactic.SyncTerminal
}

func (g *grammarImpl) TerminalKind(terminal int) tree.Kind {
	return g.termKinds[terminal]
}

func (g *grammarImpl) NonTerminalKind(nonTerminal int) (tree.Kind, bool) {
	return g.nonTermKinds[nonTerminal], !g.hidden[nonTerminal]
}

func (g *grammarImpl) Fields(prod int) []tree.Field {
	return g.fields[prod]
}

func (g *grammarImpl) RootNonTerminal() int {
	return g.root
}
