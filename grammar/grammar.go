package grammar

import (
	"fmt"
	"sort"
	"strings"

	mlspec "github.com/nihei9/maleeni/spec"

	verr "github.com/louiss0/tree-sitter-markdoc/error"
	"github.com/louiss0/tree-sitter-markdoc/grammar/symbol"
	parser "github.com/louiss0/tree-sitter-markdoc/spec/grammar/parser"
)

type assocType string

const (
	assocTypeNil   = assocType("")
	assocTypeLeft  = assocType("left")
	assocTypeRight = assocType("right")
)

const (
	precNil = 0
	precMin = 1
)

// precAndAssoc represents precedence and associativities of terminal symbols and productions.
// We use the priority of the production to resolve shift/reduce conflicts.
type precAndAssoc struct {
	// termPrec and termAssoc represent the precedence of the terminal symbols.
	termPrec  map[symbol.SymbolNum]int
	termAssoc map[symbol.SymbolNum]assocType

	// prodPrec and prodAssoc represent the precedence and the associativities of the production.
	// These values are inherited from the right-most terminal symbols in the RHS of the productions.
	prodPrec  map[productionNum]int
	prodAssoc map[productionNum]assocType
}

func (pa *precAndAssoc) terminalPrecedence(sym symbol.SymbolNum) int {
	prec, ok := pa.termPrec[sym]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) terminalAssociativity(sym symbol.SymbolNum) assocType {
	assoc, ok := pa.termAssoc[sym]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

func (pa *precAndAssoc) productionPredence(prod productionNum) int {
	prec, ok := pa.prodPrec[prod]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) productionAssociativity(prod productionNum) assocType {
	assoc, ok := pa.prodAssoc[prod]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

const reservedSymbolNameError = "error"

// hiddenPrefix marks a non-terminal whose children belong to its parent and a terminal that is
// omitted from S-expressions.
const hiddenPrefix = "_"

type Grammar struct {
	name                 string
	lexSpec              *mlspec.LexSpec
	skipLexKinds         []mlspec.LexKindName
	aliases              map[symbol.Symbol]string
	sym2Pat              map[symbol.Symbol]string
	anonymous            map[symbol.Symbol]struct{}
	externals            []symbol.Symbol
	missing              []symbol.Symbol
	syncSymbol           symbol.Symbol
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	errorSymbol          symbol.Symbol
	symbolTable          *symbol.SymbolTable
	fields               map[productionID][]string
	nonTermKinds         map[symbol.Symbol]string
	precAndAssoc         *precAndAssoc

	// recoverProductions is a set of productions having the recover directive.
	recoverProductions map[productionID]struct{}
}

func (g *Grammar) Name() string {
	return g.name
}

type GrammarBuilder struct {
	AST *parser.RootNode

	errs verr.SpecErrors
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	dirs := b.collectTopLevelDirectives()

	var specName string
	if dir, ok := dirs["name"]; ok {
		if len(dir.Parameters) != 1 || dir.Parameters[0].ID == "" {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "'name' takes just one ID parameter",
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
		} else {
			specName = dir.Parameters[0].ID
		}
	} else {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrNoGrammarName,
		})
	}

	b.checkSpellingInconsistenciesOfUserDefinedIDs(b.AST)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTabAndLexSpec, err := b.genSymbolTableAndLexSpec(b.AST, dirs["externals"])
	if err != nil {
		return nil, err
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	prodsAndDirs, err := b.genProductions(b.AST, symTabAndLexSpec)
	if err != nil {
		return nil, err
	}
	if prodsAndDirs == nil || len(b.errs) > 0 {
		return nil, b.errs
	}

	pa, err := b.genPrecAndAssoc(symTabAndLexSpec, dirs["prec"], prodsAndDirs)
	if err != nil {
		return nil, err
	}
	if pa == nil && len(b.errs) > 0 {
		return nil, b.errs
	}

	missing := b.genMissingSymbols(symTabAndLexSpec, dirs["missing"])
	syncSym := b.genSyncSymbol(symTabAndLexSpec, dirs["sync"])
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	syms := findUsedAndUnusedSymbols(b.AST, symTabAndLexSpec.externalNames)

	// A skipped terminal is never referenced by productions, so it counts as used.
	for _, sym := range symTabAndLexSpec.skipSyms {
		if _, ok := syms.unusedTerminals[sym]; !ok {
			pos := syms.usedTerminals[sym]

			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrTermCannotBeSkipped,
				Detail: sym,
				Row:    pos.Row,
				Col:    pos.Col,
			})
			continue
		}

		delete(syms.unusedTerminals, sym)
	}

	for _, sym := range sortedKeys(syms.unusedProductions) {
		pos := syms.unusedProductions[sym]
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUnusedProduction,
			Detail: sym,
			Row:    pos.Row,
			Col:    pos.Col,
		})
	}

	for _, sym := range sortedKeys(syms.unusedTerminals) {
		pos := syms.unusedTerminals[sym]
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUnusedTerminal,
			Detail: sym,
			Row:    pos.Row,
			Col:    pos.Col,
		})
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTabAndLexSpec.lexSpec.Name = specName

	return &Grammar{
		name:                 specName,
		lexSpec:              symTabAndLexSpec.lexSpec,
		skipLexKinds:         symTabAndLexSpec.skip,
		aliases:              symTabAndLexSpec.aliases,
		sym2Pat:              symTabAndLexSpec.sym2Pat,
		anonymous:            symTabAndLexSpec.anonymous,
		externals:            symTabAndLexSpec.externals,
		missing:              missing,
		syncSymbol:           syncSym,
		productionSet:        prodsAndDirs.prods,
		augmentedStartSymbol: prodsAndDirs.augStartSym,
		errorSymbol:          symTabAndLexSpec.errSym,
		symbolTable:          symTabAndLexSpec.symTab,
		fields:               prodsAndDirs.fields,
		nonTermKinds:         prodsAndDirs.nonTermKinds,
		recoverProductions:   prodsAndDirs.recoverProds,
		precAndAssoc:         pa,
	}, nil
}

var topLevelDirectives = map[string]struct{}{
	"name":      {},
	"externals": {},
	"prec":      {},
	"missing":   {},
	"sync":      {},
}

func (b *GrammarBuilder) collectTopLevelDirectives() map[string]*parser.DirectiveNode {
	dirs := map[string]*parser.DirectiveNode{}
	for _, dir := range b.AST.Directives {
		if _, ok := topLevelDirectives[dir.Name]; !ok {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}
		if _, dup := dirs[dir.Name]; dup {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}
		dirs[dir.Name] = dir
	}
	return dirs
}

type usedAndUnusedSymbols struct {
	unusedProductions map[string]parser.Position
	unusedTerminals   map[string]parser.Position
	usedTerminals     map[string]parser.Position
}

func findUsedAndUnusedSymbols(root *parser.RootNode, externals map[string]parser.Position) *usedAndUnusedSymbols {
	prods := map[string]*parser.ProductionNode{}
	terms := map[string]parser.Position{}
	mark := map[string]bool{}
	{
		for _, p := range root.Productions {
			prods[p.LHS] = p
			mark[p.LHS] = false
			for _, alt := range p.RHS {
				for _, e := range alt.Elements {
					if e.ID == "" {
						continue
					}
					mark[e.ID] = false
				}
			}
		}

		for _, p := range root.LexProductions {
			terms[p.LHS] = p.Pos
			mark[p.LHS] = false
		}
		for name, pos := range externals {
			terms[name] = pos
			mark[name] = false
		}

		start := root.Productions[0]
		mark[start.LHS] = true
		markUsedSymbols(mark, map[string]bool{}, prods, start)

		// We don't have to check the error symbol because the error symbol doesn't have a production.
		delete(mark, reservedSymbolNameError)
	}

	usedTerms := make(map[string]parser.Position, len(terms))
	unusedProds := map[string]parser.Position{}
	unusedTerms := map[string]parser.Position{}
	for sym, used := range mark {
		if p, ok := prods[sym]; ok {
			if used {
				continue
			}
			unusedProds[sym] = p.Pos
			continue
		}
		if pos, ok := terms[sym]; ok {
			if used {
				usedTerms[sym] = pos
			} else {
				unusedTerms[sym] = pos
			}
			continue
		}

		// An undefined symbol lands here. genProductions has already reported it.
	}

	return &usedAndUnusedSymbols{
		usedTerminals:     usedTerms,
		unusedProductions: unusedProds,
		unusedTerminals:   unusedTerms,
	}
}

func markUsedSymbols(mark map[string]bool, marked map[string]bool, prods map[string]*parser.ProductionNode, prod *parser.ProductionNode) {
	if marked[prod.LHS] {
		return
	}

	// Mark the production before descending to avoid infinite recursion.
	marked[prod.LHS] = true

	for _, alt := range prod.RHS {
		for _, e := range alt.Elements {
			if e.ID == "" {
				continue
			}

			mark[e.ID] = true

			p, ok := prods[e.ID]
			if !ok {
				continue
			}

			markUsedSymbols(mark, marked, prods, p)
		}
	}
}

// checkSpellingInconsistenciesOfUserDefinedIDs reports identifiers that differ only in case style.
// Hidden and visible names are checked separately because `_tag_open` and `tag_open` are
// meant to be different symbols. Labels live in their own namespace and are not checked.
func (b *GrammarBuilder) checkSpellingInconsistenciesOfUserDefinedIDs(root *parser.RootNode) {
	var ids []string
	{
		for _, prod := range root.Productions {
			ids = append(ids, prod.LHS)
		}
		for _, prod := range root.LexProductions {
			ids = append(ids, prod.LHS)
		}
		for _, dir := range root.Directives {
			dirIDs := collectUserDefinedIDsFromDirective(dir)
			if len(dirIDs) > 0 {
				ids = append(ids, dirIDs...)
			}
		}
	}

	var hidden, visible []string
	for _, id := range ids {
		if strings.HasPrefix(id, hiddenPrefix) {
			hidden = append(hidden, id)
		} else {
			visible = append(visible, id)
		}
	}

	duplicated := append(mlspec.FindSpellingInconsistencies(visible), mlspec.FindSpellingInconsistencies(hidden)...)
	if len(duplicated) == 0 {
		return
	}

	for _, dup := range duplicated {
		var s string
		{
			var b strings.Builder
			fmt.Fprintf(&b, "%+v", dup[0])
			for _, id := range dup[1:] {
				fmt.Fprintf(&b, ", %+v", id)
			}
			s = b.String()
		}

		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrSpellingInconsistency,
			Detail: s,
		})
	}
}

func collectUserDefinedIDsFromDirective(dir *parser.DirectiveNode) []string {
	if dir.Name == "name" {
		return nil
	}
	var ids []string
	for _, param := range dir.Parameters {
		if param.Group != nil {
			for _, d := range param.Group {
				dIDs := collectUserDefinedIDsFromDirective(d)
				if len(dIDs) > 0 {
					ids = append(ids, dIDs...)
				}
			}
		}
		if param.ID != "" {
			ids = append(ids, param.ID)
		}
	}
	return ids
}

type symbolTableAndLexSpec struct {
	symTab        *symbol.SymbolTable
	lit2Sym       map[string]symbol.Symbol
	sym2Pat       map[symbol.Symbol]string
	lexSpec       *mlspec.LexSpec
	errSym        symbol.Symbol
	skip          []mlspec.LexKindName
	skipSyms      []string
	aliases       map[symbol.Symbol]string
	anonymous     map[symbol.Symbol]struct{}
	externals     []symbol.Symbol
	externalNames map[string]parser.Position
}

func (b *GrammarBuilder) genSymbolTableAndLexSpec(root *parser.RootNode, externalsDir *parser.DirectiveNode) (*symbolTableAndLexSpec, error) {
	// Literal patterns in productions take precedence over lexical productions. Thus they must
	// be registered to `symTab` and `entries` first.
	symTab := symbol.NewSymbolTable()
	w := symTab.Writer()
	r := symTab.Reader()
	entries := []*mlspec.LexEntry{}

	// We need to register the reserved symbol before registering others.
	errSym, err := w.RegisterTerminalSymbol(reservedSymbolNameError)
	if err != nil {
		return nil, err
	}

	lit2Sym := map[string]symbol.Symbol{}
	sym2Pat := map[symbol.Symbol]string{}
	aliases := map[symbol.Symbol]string{}
	anonymous := map[symbol.Symbol]struct{}{
		errSym: {},
	}
	{
		lits := []string{}
		for _, prod := range root.Productions {
			for _, alt := range prod.RHS {
				for _, elem := range alt.Elements {
					if elem.Pattern == "" {
						continue
					}
					if _, ok := lit2Sym[elem.Pattern]; ok {
						continue
					}
					lit2Sym[elem.Pattern] = symbol.SymbolNil
					lits = append(lits, elem.Pattern)
				}
			}
		}

		for i, lit := range lits {
			kind := fmt.Sprintf("x_%v", i+1)

			sym, err := w.RegisterTerminalSymbol(kind)
			if err != nil {
				return nil, err
			}

			pat := mlspec.EscapePattern(lit)
			lit2Sym[lit] = sym
			sym2Pat[sym] = pat
			aliases[sym] = lit
			anonymous[sym] = struct{}{}

			entries = append(entries, &mlspec.LexEntry{
				Kind:    mlspec.LexKindName(kind),
				Pattern: mlspec.LexPattern(pat),
			})
		}
	}

	var externals []symbol.Symbol
	externalNames := map[string]parser.Position{}
	if externalsDir != nil {
		var last symbol.Symbol
		for _, param := range externalsDir.Parameters {
			switch {
			case param.ID != "":
				if param.ID == reservedSymbolNameError {
					b.errs = append(b.errs, &verr.SpecError{
						Cause: semErrErrSymIsReserved,
						Row:   param.Pos.Row,
						Col:   param.Pos.Col,
					})
					last = symbol.SymbolNil
					continue
				}
				if _, exist := r.ToSymbol(param.ID); exist {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDuplicateTerminal,
						Detail: param.ID,
						Row:    param.Pos.Row,
						Col:    param.Pos.Col,
					})
					last = symbol.SymbolNil
					continue
				}
				sym, err := w.RegisterTerminalSymbol(param.ID)
				if err != nil {
					return nil, err
				}
				externals = append(externals, sym)
				externalNames[param.ID] = param.Pos
				if strings.HasPrefix(param.ID, hiddenPrefix) {
					anonymous[sym] = struct{}{}
				}
				last = sym
			case param.String != "" && !last.IsNil():
				if _, aliased := aliases[last]; aliased {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDirInvalidParam,
						Detail: "an external terminal takes at most one alias",
						Row:    param.Pos.Row,
						Col:    param.Pos.Col,
					})
					continue
				}
				aliases[last] = param.String
			default:
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'externals' takes terminal names, each optionally followed by a string alias",
					Row:    param.Pos.Row,
					Col:    param.Pos.Col,
				})
			}
		}
	}

	skipKinds := []mlspec.LexKindName{}
	skipSyms := []string{}
	for _, prod := range root.LexProductions {
		if sym, exist := r.ToSymbol(prod.LHS); exist {
			if sym == errSym {
				b.errs = append(b.errs, &verr.SpecError{
					Cause: semErrErrSymIsReserved,
					Row:   prod.Pos.Row,
					Col:   prod.Pos.Col,
				})
			} else {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateTerminal,
					Detail: prod.LHS,
					Row:    prod.Pos.Row,
					Col:    prod.Pos.Col,
				})
			}

			continue
		}

		lhsSym, err := w.RegisterTerminalSymbol(prod.LHS)
		if err != nil {
			return nil, err
		}

		entry, skip, specErr := genLexEntry(prod)
		if specErr != nil {
			b.errs = append(b.errs, specErr)
			continue
		}
		if skip {
			skipKinds = append(skipKinds, mlspec.LexKindName(prod.LHS))
			skipSyms = append(skipSyms, prod.LHS)
		}
		if strings.HasPrefix(prod.LHS, hiddenPrefix) {
			anonymous[lhsSym] = struct{}{}
		}
		sym2Pat[lhsSym] = string(entry.Pattern)
		entries = append(entries, entry)
	}

	return &symbolTableAndLexSpec{
		symTab:  symTab,
		lit2Sym: lit2Sym,
		sym2Pat: sym2Pat,
		lexSpec: &mlspec.LexSpec{
			Entries: entries,
		},
		errSym:        errSym,
		skip:          skipKinds,
		skipSyms:      skipSyms,
		aliases:       aliases,
		anonymous:     anonymous,
		externals:     externals,
		externalNames: externalNames,
	}, nil
}

func genLexEntry(prod *parser.ProductionNode) (*mlspec.LexEntry, bool, *verr.SpecError) {
	elem := prod.RHS[0].Elements[0]

	var pattern string
	if elem.Literally {
		pattern = mlspec.EscapePattern(elem.Pattern)
	} else {
		pattern = elem.Pattern
	}

	var skip bool
	dirConsumed := map[string]struct{}{}
	for _, dir := range prod.Directives {
		if _, consumed := dirConsumed[dir.Name]; consumed {
			return nil, false, &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
		dirConsumed[dir.Name] = struct{}{}

		switch dir.Name {
		case "skip":
			if len(dir.Parameters) > 0 {
				return nil, false, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'skip' directive needs no parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				}
			}
			skip = true
		default:
			return nil, false, &verr.SpecError{
				Cause:  semErrInvalidProdDir,
				Detail: fmt.Sprintf("a lexical production cannot have '%v' directive", dir.Name),
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
	}

	return &mlspec.LexEntry{
		Kind:    mlspec.LexKindName(prod.LHS),
		Pattern: mlspec.LexPattern(pattern),
	}, skip, nil
}

type productionsAndDirectives struct {
	prods        *productionSet
	augStartSym  symbol.Symbol
	fields       map[productionID][]string
	nonTermKinds map[symbol.Symbol]string
	prodPrecs    map[productionID]symbol.Symbol
	prodPrecPoss map[productionID]parser.Position
	recoverProds map[productionID]struct{}
}

func (b *GrammarBuilder) genProductions(root *parser.RootNode, symTabAndLexSpec *symbolTableAndLexSpec) (*productionsAndDirectives, error) {
	w := symTabAndLexSpec.symTab.Writer()
	r := symTabAndLexSpec.symTab.Reader()
	lit2Sym := symTabAndLexSpec.lit2Sym
	errSym := symTabAndLexSpec.errSym

	if len(root.Productions) == 0 {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrNoProduction,
		})
		return nil, nil
	}

	prods := newProductionSet()
	fields := map[productionID][]string{}
	nonTermKinds := map[symbol.Symbol]string{}
	prodPrecs := map[productionID]symbol.Symbol{}
	prodPrecPoss := map[productionID]parser.Position{}
	recoverProds := map[productionID]struct{}{}

	startProd := root.Productions[0]
	if strings.HasPrefix(startProd.LHS, hiddenPrefix) {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrHiddenStart,
			Detail: startProd.LHS,
			Row:    startProd.Pos.Row,
			Col:    startProd.Pos.Col,
		})
	}
	augStartSym, err := w.RegisterStartSymbol(fmt.Sprintf("%s'", startProd.LHS))
	if err != nil {
		return nil, err
	}

	defined := map[string]struct{}{}
	for _, prod := range root.Productions {
		if prod.LHS == reservedSymbolNameError {
			b.errs = append(b.errs, &verr.SpecError{
				Cause: semErrErrSymIsReserved,
				Row:   prod.Pos.Row,
				Col:   prod.Pos.Col,
			})
			continue
		}
		if sym, ok := r.ToSymbol(prod.LHS); ok && sym.IsTerminal() {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateName,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		if _, ok := defined[prod.LHS]; ok {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateProduction,
				Detail: fmt.Sprintf("'%v' is defined more than once", prod.LHS),
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		defined[prod.LHS] = struct{}{}

		sym, err := w.RegisterNonTerminalSymbol(prod.LHS)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(prod.LHS, hiddenPrefix) {
			nonTermKinds[sym] = prod.LHS
		}
	}
	if len(b.errs) > 0 {
		return nil, nil
	}

	startSym, _ := r.ToSymbol(startProd.LHS)
	p, err := newProduction(augStartSym, []symbol.Symbol{startSym})
	if err != nil {
		return nil, err
	}
	prods.append(p)

	for _, prod := range root.Productions {
		lhsSym, ok := r.ToSymbol(prod.LHS)
		if !ok {
			// All symbols are assumed to be pre-detected, so it's a bug if we cannot find them here.
			return nil, fmt.Errorf("symbol '%v' is undefined", prod.LHS)
		}

		prodDirConsumed := map[string]struct{}{}
		for _, dir := range prod.Directives {
			if _, consumed := prodDirConsumed[dir.Name]; consumed {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateDir,
					Detail: dir.Name,
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				continue
			}
			prodDirConsumed[dir.Name] = struct{}{}

			switch dir.Name {
			case "alias":
				if len(dir.Parameters) != 1 || dir.Parameters[0].ID == "" {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDirInvalidParam,
						Detail: "'alias' directive needs just one ID parameter",
						Row:    dir.Pos.Row,
						Col:    dir.Pos.Col,
					})
					continue
				}
				if strings.HasPrefix(prod.LHS, hiddenPrefix) {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrInvalidProdDir,
						Detail: "a hidden production cannot have an alias",
						Row:    dir.Pos.Row,
						Col:    dir.Pos.Col,
					})
					continue
				}
				nonTermKinds[lhsSym] = dir.Parameters[0].ID
			default:
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrInvalidProdDir,
					Detail: fmt.Sprintf("a production cannot have '%v' directive", dir.Name),
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
			}
		}

	LOOP_RHS:
		for _, alt := range prod.RHS {
			altSyms := make([]symbol.Symbol, len(alt.Elements))
			var altFields []string
			labels := map[string]struct{}{}
			for i, elem := range alt.Elements {
				var sym symbol.Symbol
				if elem.Pattern != "" {
					var ok bool
					sym, ok = lit2Sym[elem.Pattern]
					if !ok {
						// All patterns are assumed to be pre-detected, so it's a bug if we cannot find them here.
						return nil, fmt.Errorf("pattern '%v' is undefined", elem.Pattern)
					}
				} else {
					var ok bool
					sym, ok = r.ToSymbol(elem.ID)
					if !ok {
						b.errs = append(b.errs, &verr.SpecError{
							Cause:  semErrUndefinedSym,
							Detail: elem.ID,
							Row:    elem.Pos.Row,
							Col:    elem.Pos.Col,
						})
						continue LOOP_RHS
					}
				}
				altSyms[i] = sym

				if elem.Label != nil {
					if _, added := labels[elem.Label.Name]; added {
						b.errs = append(b.errs, &verr.SpecError{
							Cause:  semErrDuplicateLabel,
							Detail: elem.Label.Name,
							Row:    elem.Label.Pos.Row,
							Col:    elem.Label.Pos.Col,
						})
						continue LOOP_RHS
					}
					labels[elem.Label.Name] = struct{}{}
					if altFields == nil {
						altFields = make([]string, len(alt.Elements))
					}
					altFields[i] = elem.Label.Name
				}
			}

			p, err := newProduction(lhsSym, altSyms)
			if err != nil {
				return nil, err
			}
			if _, exist := prods.findByID(p.id); exist {
				// Report the line number of a duplicate alternative.
				// When the alternative is empty, we report the position of its LHS.
				pos := prod.Pos
				if len(alt.Elements) > 0 {
					pos = alt.Elements[0].Pos
				}

				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateProduction,
					Detail: describeAlternative(prod.LHS, alt),
					Row:    pos.Row,
					Col:    pos.Col,
				})
				continue LOOP_RHS
			}
			prods.append(p)
			if altFields != nil {
				fields[p.id] = altFields
			}

			dirConsumed := map[string]struct{}{}
			for _, dir := range alt.Directives {
				if _, consumed := dirConsumed[dir.Name]; consumed {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDuplicateDir,
						Detail: dir.Name,
						Row:    dir.Pos.Row,
						Col:    dir.Pos.Col,
					})
				}
				dirConsumed[dir.Name] = struct{}{}

				switch dir.Name {
				case "prec":
					if len(dir.Parameters) != 1 || (dir.Parameters[0].ID == "" && dir.Parameters[0].String == "") {
						b.errs = append(b.errs, &verr.SpecError{
							Cause:  semErrDirInvalidParam,
							Detail: "'prec' directive needs just one terminal",
							Row:    dir.Pos.Row,
							Col:    dir.Pos.Col,
						})
						continue LOOP_RHS
					}
					param := dir.Parameters[0]
					sym, ok := b.lookUpTerminalParam(param, symTabAndLexSpec)
					if !ok {
						continue LOOP_RHS
					}
					if sym == errSym {
						b.errs = append(b.errs, &verr.SpecError{
							Cause:  semErrDirInvalidParam,
							Detail: fmt.Sprintf("'%v' directive cannot be applied to an error symbol", dir.Name),
							Row:    param.Pos.Row,
							Col:    param.Pos.Col,
						})
						continue LOOP_RHS
					}
					prodPrecs[p.id] = sym
					prodPrecPoss[p.id] = param.Pos
				case "recover":
					if len(dir.Parameters) > 0 {
						b.errs = append(b.errs, &verr.SpecError{
							Cause:  semErrDirInvalidParam,
							Detail: "'recover' directive needs no parameter",
							Row:    dir.Pos.Row,
							Col:    dir.Pos.Col,
						})
						continue LOOP_RHS
					}
					recoverProds[p.id] = struct{}{}
				default:
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrInvalidAltDir,
						Detail: fmt.Sprintf("invalid directive name '%v'", dir.Name),
						Row:    dir.Pos.Row,
						Col:    dir.Pos.Col,
					})
					continue LOOP_RHS
				}
			}
		}
	}

	return &productionsAndDirectives{
		prods:        prods,
		augStartSym:  augStartSym,
		fields:       fields,
		nonTermKinds: nonTermKinds,
		prodPrecs:    prodPrecs,
		prodPrecPoss: prodPrecPoss,
		recoverProds: recoverProds,
	}, nil
}

func describeAlternative(lhs string, alt *parser.AlternativeNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v →", lhs)
	for _, elem := range alt.Elements {
		switch {
		case elem.ID != "":
			fmt.Fprintf(&b, " %v", elem.ID)
		case elem.Pattern != "":
			fmt.Fprintf(&b, " '%v'", elem.Pattern)
		}
	}
	if len(alt.Elements) == 0 {
		fmt.Fprintf(&b, " ε")
	}
	return b.String()
}

// lookUpTerminalParam resolves a directive parameter naming a terminal, either by its name or
// by the literal it is written as.
func (b *GrammarBuilder) lookUpTerminalParam(param *parser.ParameterNode, symTabAndLexSpec *symbolTableAndLexSpec) (symbol.Symbol, bool) {
	if param.String != "" {
		sym, ok := symTabAndLexSpec.lit2Sym[param.String]
		if !ok {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrUndefinedLiteral,
				Detail: param.String,
				Row:    param.Pos.Row,
				Col:    param.Pos.Col,
			})
			return symbol.SymbolNil, false
		}
		return sym, true
	}

	sym, ok := symTabAndLexSpec.symTab.Reader().ToSymbol(param.ID)
	if !ok {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUndefinedSym,
			Detail: param.ID,
			Row:    param.Pos.Row,
			Col:    param.Pos.Col,
		})
		return symbol.SymbolNil, false
	}
	if !sym.IsTerminal() {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrDirInvalidParam,
			Detail: fmt.Sprintf("the symbol must be a terminal: %v", param.ID),
			Row:    param.Pos.Row,
			Col:    param.Pos.Col,
		})
		return symbol.SymbolNil, false
	}
	return sym, true
}

func (b *GrammarBuilder) genPrecAndAssoc(symTabAndLexSpec *symbolTableAndLexSpec, precDir *parser.DirectiveNode, prodsAndDirs *productionsAndDirectives) (*precAndAssoc, error) {
	errSym := symTabAndLexSpec.errSym
	termPrec := map[symbol.SymbolNum]int{}
	termAssoc := map[symbol.SymbolNum]assocType{}
	if precDir != nil {
		if len(precDir.Parameters) != 1 || precDir.Parameters[0].Group == nil {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "'prec' needs just one directive group",
				Row:    precDir.Pos.Row,
				Col:    precDir.Pos.Col,
			})
			return nil, nil
		}

		precN := precMin
		for _, dir := range precDir.Parameters[0].Group {
			var assocTy assocType
			switch dir.Name {
			case "left":
				assocTy = assocTypeLeft
			case "right":
				assocTy = assocTypeRight
			case "assign":
				assocTy = assocTypeNil
			default:
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidName,
					Detail: dir.Name,
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				return nil, nil
			}

			if len(dir.Parameters) == 0 {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "associativity needs at least one symbol",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				return nil, nil
			}
			for _, p := range dir.Parameters {
				if p.ID == "" && p.String == "" {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDirInvalidParam,
						Detail: "a parameter must be a terminal name or a literal",
						Row:    p.Pos.Row,
						Col:    p.Pos.Col,
					})
					return nil, nil
				}
				sym, ok := b.lookUpTerminalParam(p, symTabAndLexSpec)
				if !ok {
					return nil, nil
				}
				if sym == errSym {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDirInvalidParam,
						Detail: fmt.Sprintf("'%v' directive cannot be applied to an error symbol", dir.Name),
						Row:    p.Pos.Row,
						Col:    p.Pos.Col,
					})
					return nil, nil
				}
				if prec, alreadySet := termPrec[sym.Num()]; alreadySet {
					var detail string
					switch {
					case prec == precN:
						detail = "already has the same associativity and precedence"
					case termAssoc[sym.Num()] == assocTy:
						detail = "already has different precedence"
					default:
						detail = "already has different associativity and precedence"
					}
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrDuplicateAssoc,
						Detail: fmt.Sprintf("'%v' %v", p.ID+p.String, detail),
						Row:    p.Pos.Row,
						Col:    p.Pos.Col,
					})
					continue
				}

				termPrec[sym.Num()] = precN
				termAssoc[sym.Num()] = assocTy
			}

			precN++
		}
	}
	if len(b.errs) > 0 {
		return nil, nil
	}

	r := symTabAndLexSpec.symTab.Reader()
	prodPrec := map[productionNum]int{}
	prodAssoc := map[productionNum]assocType{}
	for _, prod := range prodsAndDirs.prods.getAllProductions() {
		// A #prec directive changes only precedence, not associativity.
		if term, ok := prodsAndDirs.prodPrecs[prod.id]; ok {
			if prec, ok := termPrec[term.Num()]; ok {
				prodPrec[prod.num] = prec
				prodAssoc[prod.num] = assocTypeNil
			} else {
				text, _ := r.ToText(term)
				pos := prodsAndDirs.prodPrecPoss[prod.id]
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedPrec,
					Detail: text,
					Row:    pos.Row,
					Col:    pos.Col,
				})
			}
			continue
		}

		// A production inherits precedence and associativity from the right-most terminal symbol.
		mostrightTerm := symbol.SymbolNil
		for _, sym := range prod.rhs {
			if !sym.IsTerminal() {
				continue
			}
			mostrightTerm = sym
		}
		if !mostrightTerm.IsNil() {
			if prec, ok := termPrec[mostrightTerm.Num()]; ok {
				prodPrec[prod.num] = prec
				prodAssoc[prod.num] = termAssoc[mostrightTerm.Num()]
			}
		}
	}
	if len(b.errs) > 0 {
		return nil, nil
	}

	return &precAndAssoc{
		termPrec:  termPrec,
		termAssoc: termAssoc,
		prodPrec:  prodPrec,
		prodAssoc: prodAssoc,
	}, nil
}

func (b *GrammarBuilder) genMissingSymbols(symTabAndLexSpec *symbolTableAndLexSpec, dir *parser.DirectiveNode) []symbol.Symbol {
	if dir == nil {
		return nil
	}
	if len(dir.Parameters) == 0 {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrDirInvalidParam,
			Detail: "'missing' needs at least one terminal",
			Row:    dir.Pos.Row,
			Col:    dir.Pos.Col,
		})
		return nil
	}

	var syms []symbol.Symbol
	seen := map[symbol.Symbol]struct{}{}
	for _, param := range dir.Parameters {
		sym, ok := b.lookUpTerminalParam(param, symTabAndLexSpec)
		if !ok {
			continue
		}
		if sym == symTabAndLexSpec.errSym {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "the error symbol cannot be missing",
				Row:    param.Pos.Row,
				Col:    param.Pos.Col,
			})
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		syms = append(syms, sym)
	}
	return syms
}

func (b *GrammarBuilder) genSyncSymbol(symTabAndLexSpec *symbolTableAndLexSpec, dir *parser.DirectiveNode) symbol.Symbol {
	if dir == nil {
		return symbol.SymbolNil
	}
	if len(dir.Parameters) != 1 {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrDirInvalidParam,
			Detail: "'sync' takes just one terminal",
			Row:    dir.Pos.Row,
			Col:    dir.Pos.Col,
		})
		return symbol.SymbolNil
	}
	sym, ok := b.lookUpTerminalParam(dir.Parameters[0], symTabAndLexSpec)
	if !ok {
		return symbol.SymbolNil
	}
	return sym
}

func sortedKeys(m map[string]parser.Position) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
