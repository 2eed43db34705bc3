package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

type testSemAct struct {
	gram   *spec.CompiledGrammar
	actLog []string
}

func (a *testSemAct) term(tok *scanner.Token) string {
	if tok.Invalid {
		return "<invalid>"
	}
	if alias := a.gram.Syntactic.TerminalAliases[tok.Terminal]; alias != "" {
		return alias
	}
	return a.gram.Syntactic.Terminals[tok.Terminal]
}

func (a *testSemAct) Shift(tok *scanner.Token, recovered bool) {
	a.actLog = append(a.actLog, fmt.Sprintf("shift/%v", a.term(tok)))
}

func (a *testSemAct) ShiftMissing(terminal int, pos int) {
	a.actLog = append(a.actLog, fmt.Sprintf("missing/%v", a.term(&scanner.Token{Terminal: terminal})))
}

func (a *testSemAct) Reduce(prodNum int, recovered bool) {
	lhs := a.gram.Syntactic.LHSSymbols[prodNum]
	a.actLog = append(a.actLog, fmt.Sprintf("reduce/%v", a.gram.Syntactic.NonTerminals[lhs]))
}

func (a *testSemAct) Accept() {
	a.actLog = append(a.actLog, "accept")
}

func (a *testSemAct) TrapAndShiftError(cause *scanner.Token, popped int) {
	a.actLog = append(a.actLog, fmt.Sprintf("trap/%v/shift/error", popped))
}

func (a *testSemAct) SkipError(tok *scanner.Token) {
	a.actLog = append(a.actLog, fmt.Sprintf("skip/%v", a.term(tok)))
}

func (a *testSemAct) MissError(cause *scanner.Token) {
	a.actLog = append(a.actLog, "miss")
}

func TestParserWithLAC(t *testing.T) {
	specSrc := `
#name test;

source_file
    : _t _t
    ;
_t
    : 'c' _t
    | 'd'
    ;
`

	src := `c c d`

	tests := []struct {
		caption string
		opts    []ParserOption
		actLog  []string
	}{
		{
			caption: "LAC is enabled",
			actLog: []string{
				"shift/c",
				"shift/c",
				"shift/d",
				"miss",
				"accept",
			},
		},
		{
			caption: "LAC is disabled",
			opts:    []ParserOption{DisableLAC()},
			actLog: []string{
				"shift/c",
				"shift/c",
				"shift/d",
				"reduce/_t",
				"reduce/_t",
				"reduce/_t",
				"miss",
				"accept",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, specSrc)
			gram, err := NewGrammar(cg)
			require.NoError(t, err)

			semAct := &testSemAct{
				gram: cg,
			}
			opts := append([]ParserOption{SemanticAction(semAct)}, tt.opts...)
			p, err := NewParser(NewSliceTokenStream(tokenize(t, cg, src), cg.Syntactic.EOFSymbol), gram, opts...)
			require.NoError(t, err)

			require.NoError(t, p.Parse())
			assert.Equal(t, tt.actLog, semAct.actLog)

			require.Len(t, p.SyntaxErrors(), 1)
			assert.Equal(t, []string{"c", "d"}, p.SyntaxErrors()[0].ExpectedTerminals)
		})
	}
}

func TestParserWithLAC_Missing(t *testing.T) {
	cg := compileGrammar(t, recoveryGrammar)
	gram, err := NewGrammar(cg)
	require.NoError(t, err)

	semAct := &testSemAct{
		gram: cg,
	}
	p, err := NewParser(NewSliceTokenStream(tokenize(t, cg, "( a ( b )"), cg.Syntactic.EOFSymbol), gram, SemanticAction(semAct))
	require.NoError(t, err)
	require.NoError(t, p.Parse())

	assert.Equal(t, []string{
		"shift/(",
		"shift/text",
		"missing/)",
		"reduce/paragraph",
		"reduce/_item",
		"reduce/_items",
		"shift/(",
		"shift/text",
		"shift/)",
		"reduce/paragraph",
		"reduce/_item",
		"reduce/_items",
		"reduce/source_file",
		"accept",
	}, semAct.actLog)
}
