// Package markdoc parses Markdoc documents into concrete syntax trees and keeps them up to date
// as the documents are edited.
//
// A Markdoc document is Markdown with {% %} tags and {{ }} expressions. The grammar lives in
// markdoc.vgram and is compiled to LALR(1) tables when it is first loaded.
package markdoc

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/driver/parser"
	"github.com/louiss0/tree-sitter-markdoc/grammar"
	"github.com/louiss0/tree-sitter-markdoc/incremental"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
	gparser "github.com/louiss0/tree-sitter-markdoc/spec/grammar/parser"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

//go:embed markdoc.vgram
var grammarSource []byte

// GrammarSource returns the text of the Markdoc grammar.
func GrammarSource() []byte {
	return grammarSource
}

// ErrGrammarLoad is wrapped by every error that prevents a grammar from loading.
var ErrGrammarLoad = errors.New("failed to load the grammar")

// Language is a loaded grammar. It is read-only and safe for concurrent use.
type Language struct {
	g *driver.Grammar
}

var (
	loadOnce sync.Once
	loaded   *Language
	loadErr  error
)

// Load compiles the embedded grammar. The grammar is compiled once; later calls return the
// same Language.
func Load() (*Language, error) {
	loadOnce.Do(func() {
		var cg *spec.CompiledGrammar
		cg, _, loadErr = Compile()
		if loadErr != nil {
			return
		}
		loaded, loadErr = newLanguage(cg)
	})
	return loaded, loadErr
}

// Compile compiles the embedded grammar to tables.
func Compile(opts ...grammar.CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	return CompileSource(bytes.NewReader(grammarSource), opts...)
}

// CompileSource compiles a grammar written in the grammar language.
func CompileSource(src io.Reader, opts ...grammar.CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	ast, err := gparser.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrGrammarLoad, err)
	}
	b := grammar.GrammarBuilder{
		AST: ast,
	}
	g, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrGrammarLoad, err)
	}
	cg, report, err := grammar.Compile(g, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrGrammarLoad, err)
	}
	return cg, report, nil
}

// LoadCompiled reads a grammar that Compile produced and CompiledGrammar.Write saved.
func LoadCompiled(r io.Reader) (*Language, error) {
	cg, err := spec.Load(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGrammarLoad, err)
	}
	return newLanguage(cg)
}

func newLanguage(cg *spec.CompiledGrammar) (*Language, error) {
	g, err := driver.NewGrammar(cg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGrammarLoad, err)
	}
	return &Language{
		g: g,
	}, nil
}

// Grammar returns the tables the language parses with.
func (l *Language) Grammar() *driver.Grammar {
	return l.g
}

// Result is a parsed document. A tree containing ERROR or MISSING nodes is still a result;
// Errors describes them.
type Result struct {
	Tree   *tree.Tree
	Errors []*parser.SyntaxError

	doc *driver.Document
}

// Document returns the document an incremental parse continues from.
func (r *Result) Document() *driver.Document {
	return r.doc
}

func newResult(doc *driver.Document) *Result {
	return &Result{
		Tree:   doc.Tree,
		Errors: doc.Errors,
		doc:    doc,
	}
}

// Parse parses a document.
func (l *Language) Parse(text []byte, opts ...driver.ParseOption) (*Result, error) {
	doc, err := l.g.Parse(text, opts...)
	if err != nil {
		return nil, err
	}
	return newResult(doc), nil
}

// Reparse parses newText, the result of applying edits to the text of old, and reuses the parts
// of old the edits do not affect. old stays valid.
func (l *Language) Reparse(old *Result, edits []incremental.Edit, newText []byte, opts ...driver.ParseOption) (*Result, error) {
	doc, err := incremental.Reparse(l.g, old.doc, edits, newText, opts...)
	if err != nil {
		return nil, err
	}
	return newResult(doc), nil
}
