package grammar

import (
	"errors"
	"fmt"
	"io"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"

	"github.com/louiss0/tree-sitter-markdoc/compressor"
	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

type compileConfig struct {
	isReportingEnabled bool
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// Compile generates the LALR(1) tables of a grammar and compiles its lexical productions with
// maleeni. The report is nil unless EnableReporting is passed.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{}
	for _, opt := range opts {
		opt(config)
	}

	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, nil, errors.New(b.String())
		}
		return nil, nil, err
	}

	symTab := gram.symbolTable.Reader()

	kind2Term := make([]int, len(lexSpec.KindNames))
	skip := make([]int, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[mlspec.LexKindIDNil] = symbol.SymbolNil.Num().Int()
			continue
		}

		sym, ok := symTab.ToSymbol(k.String())
		if !ok {
			return nil, nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = sym.Num().Int()

		for _, sk := range gram.skipLexKinds {
			if k != sk {
				continue
			}
			skip[i] = 1
			break
		}
	}

	terms, err := symTab.TerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	nonTerms, err := symTab.NonTerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	termAliases := make([]string, len(terms))
	termKinds := make([]string, len(terms))
	for _, sym := range symTab.TerminalSymbols() {
		termAliases[sym.Num()] = gram.aliases[sym]
		if _, anonymous := gram.anonymous[sym]; anonymous || sym.IsEOF() {
			continue
		}
		termKinds[sym.Num()] = terms[sym.Num()]
	}

	nonTermKinds := make([]string, len(nonTerms))
	for _, sym := range symTab.NonTerminalSymbols() {
		nonTermKinds[sym.Num()] = gram.nonTermKinds[sym]
	}

	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		return nil, nil, err
	}

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol, gram.errorSymbol)
	if err != nil {
		return nil, nil, err
	}

	var tab *ParsingTable
	var report *spec.Report
	{
		lalr1, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
		if err != nil {
			return nil, nil, err
		}

		b := &lrTableBuilder{
			automaton:    lalr1.lr0Automaton,
			prods:        gram.productionSet,
			termCount:    len(terms),
			nonTermCount: len(nonTerms),
			symTab:       symTab,
			precAndAssoc: gram.precAndAssoc,
		}
		tab, err = b.build()
		if err != nil {
			return nil, nil, err
		}

		if config.isReportingEnabled {
			report, err = b.genReport(tab, gram)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	action, err := compressTable(len(tab.actionTable), tab.terminalCount, func(i int) int {
		return int(tab.actionTable[i])
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compress the action table: %w", err)
	}
	goTo, err := compressTable(len(tab.goToTable), tab.nonTerminalCount, func(i int) int {
		return int(tab.goToTable[i])
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compress the goto table: %w", err)
	}

	prodCount := gram.productionSet.count()
	lhsSyms := make([]int, prodCount)
	altSymCounts := make([]int, prodCount)
	recoverProds := make([]int, prodCount)
	fields := make([][]string, prodCount)
	for _, p := range gram.productionSet.getAllProductions() {
		lhsSyms[p.num] = p.lhs.Num().Int()
		altSymCounts[p.num] = p.rhsLen

		if _, ok := gram.recoverProductions[p.id]; ok {
			recoverProds[p.num] = 1
		}
		fields[p.num] = gram.fields[p.id]
	}

	externals := make([]int, len(gram.externals))
	for i, sym := range gram.externals {
		externals[i] = sym.Num().Int()
	}
	missing := make([]int, len(gram.missing))
	for i, sym := range gram.missing {
		missing[i] = sym.Num().Int()
	}

	return &spec.CompiledGrammar{
		Version: spec.FormatVersion,
		Name:    gram.name,
		Lexical: &spec.LexicalSpec{
			Maleeni:        lexSpec,
			KindToTerminal: kind2Term,
			Skip:           skip,
		},
		Syntactic: &spec.SyntacticSpec{
			Action:                  action,
			GoTo:                    goTo,
			StateCount:              tab.stateCount,
			InitialState:            tab.InitialState.Int(),
			StartProduction:         productionNumStart.Int(),
			LHSSymbols:              lhsSyms,
			AlternativeSymbolCounts: altSymCounts,
			Terminals:               terms,
			TerminalAliases:         termAliases,
			TerminalCount:           tab.terminalCount,
			NonTerminals:            nonTerms,
			NonTerminalCount:        tab.nonTerminalCount,
			EOFSymbol:               symbol.SymbolEOF.Num().Int(),
			ErrorSymbol:             gram.errorSymbol.Num().Int(),
			ErrorTrapperStates:      tab.errorTrapperStates,
			RecoverProductions:      recoverProds,
			Externals:               externals,
			MissingTerminals:        missing,
			SyncTerminal:            gram.syncSymbol.Num().Int(),
		},
		Tree: &spec.TreeSpec{
			TerminalKinds:    termKinds,
			NonTerminalKinds: nonTermKinds,
			Fields:           fields,
		},
	}, report, nil
}

func compressTable(size, colCount int, entry func(i int) int) (*compressor.UniqueEntriesTable, error) {
	entries := make([]int, size)
	for i := range entries {
		entries[i] = entry(i)
	}
	orig, err := compressor.NewOriginalTable(entries, colCount)
	if err != nil {
		return nil, err
	}
	tab := compressor.NewUniqueEntriesTable(0)
	err = tab.Compress(orig)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
