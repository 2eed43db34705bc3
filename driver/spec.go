package driver

import (
	"github.com/louiss0/tree-sitter-markdoc/driver/parser"
	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

// Grammar bundles the tables a parse needs: the parsing tables, the scanner tables, and the
// symbol names of the tree. It is read-only and safe for concurrent parses.
type Grammar struct {
	compiled *spec.CompiledGrammar
	gram     parser.Grammar
	tabs     *scanner.Tables
	syms     *tree.Symbols
}

func NewGrammar(cg *spec.CompiledGrammar) (*Grammar, error) {
	err := cg.Validate()
	if err != nil {
		return nil, err
	}
	gram, err := parser.NewGrammar(cg)
	if err != nil {
		return nil, err
	}
	tabs, err := scanner.NewTables(cg)
	if err != nil {
		return nil, err
	}
	return &Grammar{
		compiled: cg,
		gram:     gram,
		tabs:     tabs,
		syms: &tree.Symbols{
			Terminals:       cg.Syntactic.Terminals,
			TerminalAliases: cg.Syntactic.TerminalAliases,
			NonTerminals:    cg.Syntactic.NonTerminals,
		},
	}, nil
}

func (g *Grammar) Compiled() *spec.CompiledGrammar {
	return g.compiled
}

func (g *Grammar) Parser() parser.Grammar {
	return g.gram
}

func (g *Grammar) Scanner() *scanner.Tables {
	return g.tabs
}

func (g *Grammar) Symbols() *tree.Symbols {
	return g.syms
}
