package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	"github.com/louiss0/tree-sitter-markdoc/grammar"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
	"github.com/louiss0/tree-sitter-markdoc/spec/grammar/parser"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

func compileGrammar(t *testing.T, src string) *spec.CompiledGrammar {
	t.Helper()

	ast, err := parser.Parse(strings.NewReader(src))
	require.NoError(t, err)

	b := grammar.GrammarBuilder{
		AST: ast,
	}
	g, err := b.Build()
	require.NoError(t, err)

	cg, _, err := grammar.Compile(g)
	require.NoError(t, err)

	return cg
}

// lookUpTerminal finds a terminal by its alias or by its name.
func lookUpTerminal(cg *spec.CompiledGrammar, s string) (int, bool) {
	for term, alias := range cg.Syntactic.TerminalAliases {
		if alias != "" && alias == s {
			return term, true
		}
	}
	for term, name := range cg.Syntactic.Terminals {
		if name == s {
			return term, true
		}
	}
	return 0, false
}

// tokenize splits src at spaces. A word is a terminal alias or name, `#` is an invalid token,
// and any other word is text, or an identifier when the grammar has no text.
func tokenize(t *testing.T, cg *spec.CompiledGrammar, src string) []*scanner.Token {
	t.Helper()

	var toks []*scanner.Token
	pos := 0
	for _, w := range strings.Split(src, " ") {
		if w == "" {
			pos++
			continue
		}
		tok := &scanner.Token{
			Start: pos,
			End:   pos + len(w),
		}
		switch term, ok := lookUpTerminal(cg, w); {
		case w == "#":
			tok.Invalid = true
		case ok:
			tok.Terminal = term
		default:
			text, ok := lookUpTerminal(cg, "text")
			if !ok {
				text, ok = lookUpTerminal(cg, "identifier")
			}
			require.True(t, ok)
			tok.Terminal = text
		}
		toks = append(toks, tok)
		pos += len(w) + 1
	}
	return toks
}

func symbols(cg *spec.CompiledGrammar) *tree.Symbols {
	return &tree.Symbols{
		Terminals:       cg.Syntactic.Terminals,
		TerminalAliases: cg.Syntactic.TerminalAliases,
		NonTerminals:    cg.Syntactic.NonTerminals,
	}
}

type parseResult struct {
	tree    *tree.Tree
	synErrs []*SyntaxError
}

func parse(t *testing.T, cg *spec.CompiledGrammar, src string, opts ...ParserOption) *parseResult {
	t.Helper()

	gram, err := NewGrammar(cg)
	require.NoError(t, err)

	tb := NewTreeBuilder(gram, &tree.Arena{}, len(src))
	opts = append([]ParserOption{SemanticAction(tb)}, opts...)
	p, err := NewParser(NewSliceTokenStream(tokenize(t, cg, src), cg.Syntactic.EOFSymbol), gram, opts...)
	require.NoError(t, err)

	require.NoError(t, p.Parse())
	require.False(t, tb.Root().Nil())

	tr := tree.New(tb.Arena(), tb.Root(), symbols(cg), []byte(src))
	require.NoError(t, tree.Check(tr))

	return &parseResult{
		tree:    tr,
		synErrs: p.SyntaxErrors(),
	}
}

const recoveryGrammar = `
#name test;

#missing ')';

source_file
    : _items
    ;
_items
    : _item
    | _items _item
    ;
_item
    : error #recover
    | paragraph
    ;
paragraph
    : '(' text ')'
    ;

text
    : "[a-z]+";
`

func TestParser_Recovery(t *testing.T) {
	type synErr struct {
		offset  int
		invalid bool
		missing string
	}

	tests := []struct {
		caption string
		src     string
		sexpr   string
		synErrs []synErr
	}{
		{
			caption: "a well-formed input has no errors",
			src:     "( a ) ( b )",
			sexpr:   "(source_file (paragraph (text)) (paragraph (text)))",
		},
		{
			caption: "the parser inserts a missing token when the next token fits after it",
			src:     "( a ( b )",
			sexpr:   `(source_file (paragraph (text) (MISSING ")")) (paragraph (text)))`,
			synErrs: []synErr{
				{offset: 3, missing: ")"},
			},
		},
		{
			caption: "a missing token at the end of the input",
			src:     "( a",
			sexpr:   `(source_file (paragraph (text) (MISSING ")")))`,
			synErrs: []synErr{
				{offset: 3, missing: ")"},
			},
		},
		{
			caption: "an unexpected token ends up in an ERROR node",
			src:     "( a ) ) ( b )",
			sexpr:   "(source_file (ERROR (text)) (paragraph (text)))",
			synErrs: []synErr{
				{offset: 6},
			},
		},
		{
			caption: "an invalid token becomes an ERROR leaf",
			src:     "( a ) # ( b )",
			sexpr:   "(source_file (ERROR (text) (ERROR)) (paragraph (text)))",
			synErrs: []synErr{
				{offset: 6, invalid: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, recoveryGrammar)

			r := parse(t, cg, tt.src)
			assert.Equal(t, tt.sexpr, r.tree.SExpr())

			require.Len(t, r.synErrs, len(tt.synErrs))
			for i, e := range tt.synErrs {
				assert.Equal(t, e.offset, r.synErrs[i].Offset)
				assert.Equal(t, e.missing, r.synErrs[i].Missing)
				assert.Equal(t, e.invalid, r.synErrs[i].Token.Invalid)
			}
		})
	}
}

func TestParser_ExpectedTerminals(t *testing.T) {
	cg := compileGrammar(t, recoveryGrammar)

	r := parse(t, cg, "( a ) ) ( b )")
	require.Len(t, r.synErrs, 1)
	assert.ElementsMatch(t, []string{"<eof>", "("}, r.synErrs[0].ExpectedTerminals)
	assert.Equal(t, "6: unexpected token; expected: "+strings.Join(r.synErrs[0].ExpectedTerminals, ", "), r.synErrs[0].Error())
}

func TestParser_ForcedRecoveryAtEOF(t *testing.T) {
	// The error state inside a paragraph needs a ')', so at the end of the input the error has
	// to move out to the item level.
	cg := compileGrammar(t, `
#name test;

source_file
    : _items
    ;
_items
    : _item
    | _items _item
    ;
_item
    : error #recover
    | paragraph
    ;
paragraph
    : '(' text ')'
    | '(' error ')'
    ;

text
    : "[a-z]+";
`)

	r := parse(t, cg, "( #")
	assert.Equal(t, "(source_file (ERROR (ERROR)))", r.tree.SExpr())
	require.Len(t, r.synErrs, 1)
	assert.True(t, r.synErrs[0].Token.Invalid)
}

func TestParser_AbortWithoutTrapper(t *testing.T) {
	cg := compileGrammar(t, `
#name test;

source_file
    : paragraph
    ;
paragraph
    : '(' text ')'
    ;

text
    : "[a-z]+";
`)

	r := parse(t, cg, "( ( a )")
	assert.Equal(t, "(source_file (ERROR (text)))", r.tree.SExpr())
	assert.Equal(t, 7, r.tree.Root().End())
	require.Len(t, r.synErrs, 1)
	assert.Equal(t, 2, r.synErrs[0].Offset)
}

const syncGrammar = `
#name test;

#externals _sep;

#sync _sep;

source_file
    : _blocks
    | _blocks _sep
    |
    ;
_blocks
    : _block
    | _blocks _sep _block
    ;
_block
    : error #recover
    | paragraph
    ;
paragraph
    : _texts
    ;
_texts
    : text
    | _texts text
    ;

text
    : "[a-z]+";
`

func TestParser_StopAndResumeAtSync(t *testing.T) {
	cg := compileGrammar(t, syncGrammar)
	gram, err := NewGrammar(cg)
	require.NoError(t, err)

	src := "a b _sep c _sep d"
	full := parse(t, cg, src)
	require.Empty(t, full.synErrs)
	assert.Equal(t, "(source_file (paragraph (text) (text)) (paragraph (text)) (paragraph (text)))", full.tree.SExpr())

	toks := tokenize(t, cg, src)
	arena := &tree.Arena{}

	var syncs []int
	tb := NewTreeBuilder(gram, arena, len(src))
	p, err := NewParser(NewSliceTokenStream(toks, cg.Syntactic.EOFSymbol), gram,
		SemanticAction(tb),
		OnSync(func(tok *scanner.Token) bool {
			syncs = append(syncs, tok.Start)
			return len(syncs) == 2
		}),
	)
	require.NoError(t, err)
	require.NoError(t, p.Parse())

	stopped := p.Stopped()
	require.NotNil(t, stopped)
	assert.Equal(t, []int{4, 11}, syncs)
	assert.Equal(t, 11, stopped.Start)

	frames := tb.Frames()
	require.Len(t, frames, 4)
	kinds := make([]tree.Kind, len(frames))
	for i, c := range frames {
		kinds[i] = arena.NodeKind(c.ID)
	}
	assert.Equal(t, []tree.Kind{tree.KindParagraph, tree.KindAnonymous, tree.KindParagraph, tree.KindAnonymous}, kinds)

	// Resume after the second separator with the nodes parsed so far.
	var rest []*scanner.Token
	for _, tok := range toks {
		if tok.Start >= stopped.End {
			rest = append(rest, tok)
		}
	}
	rb := NewTreeBuilder(gram, arena.Fork(), len(src))
	rb.ResumeFrames(frames[:len(frames)-1], frames[len(frames)-1])
	rp, err := NewParser(NewSliceTokenStream(rest, cg.Syntactic.EOFSymbol), gram,
		SemanticAction(rb),
		ResumeStack(SyncStack(gram)),
	)
	require.NoError(t, err)
	require.NoError(t, rp.Parse())
	require.Nil(t, rp.Stopped())

	resumed := tree.New(rb.Arena(), rb.Root(), symbols(cg), []byte(src))
	assert.True(t, tree.Equal(full.tree, resumed), tree.FirstDifference(full.tree, resumed))
}

func TestParser_SyncAfterRecovery(t *testing.T) {
	cg := compileGrammar(t, syncGrammar)

	var syncs []int
	r := parse(t, cg, "a # _sep b", OnSync(func(tok *scanner.Token) bool {
		syncs = append(syncs, tok.Start)
		return false
	}))
	assert.Equal(t, []int{4}, syncs)
	assert.Equal(t, "(source_file (ERROR (text) (ERROR)) (paragraph (text)))", r.tree.SExpr())
	require.Len(t, r.synErrs, 1)
	assert.Equal(t, 2, r.synErrs[0].Offset)
}

func TestSyncStack(t *testing.T) {
	gram, err := NewGrammar(compileGrammar(t, syncGrammar))
	require.NoError(t, err)

	states := SyncStack(gram)
	require.Len(t, states, 3)
	assert.Equal(t, gram.InitialState(), states[0])
	assert.Less(t, gram.Action(states[1], gram.SyncTerminal()), 0)

	gram, err = NewGrammar(compileGrammar(t, recoveryGrammar))
	require.NoError(t, err)
	assert.Nil(t, SyncStack(gram))
}

func TestNewGrammar_UnknownKind(t *testing.T) {
	cg := compileGrammar(t, `
#name test;

source_file
    : sentence
    ;
sentence
    : text
    ;

text
    : "[a-z]+";
`)
	_, err := NewGrammar(cg)
	assert.ErrorContains(t, err, fmt.Sprintf("unknown node kind %v", "sentence"))
}
