package scanner_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

func tables(t *testing.T) (*scanner.Tables, *spec.CompiledGrammar) {
	t.Helper()
	lang, err := markdoc.Load()
	require.NoError(t, err)
	g := lang.Grammar()
	return g.Scanner(), g.Compiled()
}

func scanAll(t *testing.T, tabs *scanner.Tables, cg *spec.CompiledGrammar, src []byte, offset int, snapshot []byte) []*scanner.Token {
	t.Helper()
	s, err := scanner.New(tabs, src, offset, snapshot)
	require.NoError(t, err)
	var toks []*scanner.Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if !tok.Invalid && tok.Terminal == cg.Syntactic.EOFSymbol {
			return toks
		}
		require.Less(t, len(toks), 10*len(src)+10, "the scanner does not terminate")
	}
}

// describe renders tokens as "name [start, end)". Literal terminals are shown by their text.
func describe(cg *spec.CompiledGrammar, toks []*scanner.Token) []string {
	var ds []string
	for _, tok := range toks {
		if tok.Invalid {
			ds = append(ds, fmt.Sprintf("<invalid> [%v, %v)", tok.Start, tok.End))
			continue
		}
		name := cg.Syntactic.Terminals[tok.Terminal]
		if strings.HasPrefix(name, "x_") {
			name = cg.Syntactic.TerminalAliases[tok.Terminal]
		}
		ds = append(ds, fmt.Sprintf("%v [%v, %v)", name, tok.Start, tok.End))
	}
	return ds
}

func TestScanner_Tokens(t *testing.T) {
	tabs, cg := tables(t)

	tests := []struct {
		caption string
		src     string
		toks    []string
	}{
		{
			caption: "a heading and a paragraph",
			src:     "# Title\n\nHello world\n",
			toks: []string{
				"heading_marker [0, 1)",
				"heading_text [2, 7)",
				"_sep [7, 9)",
				"text [9, 20)",
				"<eof> [21, 21)",
			},
		},
		{
			caption: "a list item continued by an indented line",
			src:     "- a\n  b\n",
			toks: []string{
				"list_marker [0, 1)",
				"text [2, 7)",
				"_item_end [7, 7)",
				"<eof> [8, 8)",
			},
		},
		{
			caption: "sibling list items",
			src:     "- a\n- b\n",
			toks: []string{
				"list_marker [0, 1)",
				"text [2, 3)",
				"_item_end [3, 3)",
				"_item_sep [3, 4)",
				"list_marker [4, 5)",
				"text [6, 7)",
				"_item_end [7, 7)",
				"<eof> [8, 8)",
			},
		},
		{
			caption: "a paragraph ends a list item",
			src:     "- a\nb",
			toks: []string{
				"list_marker [0, 1)",
				"text [2, 3)",
				"_item_end [3, 3)",
				"_sep [3, 4)",
				"text [4, 5)",
				"<eof> [5, 5)",
			},
		},
		{
			caption: "an inline expression",
			src:     "Hello {{ $name }}\n",
			toks: []string{
				"text [0, 5)",
				"_expr_open [6, 8)",
				"$ [9, 10)",
				"identifier [10, 14)",
				"_expr_close [15, 17)",
				"<eof> [18, 18)",
			},
		},
		{
			caption: "a quoted list item",
			src:     "> - a\nb\n",
			toks: []string{
				"_bq_marker [0, 1)",
				"list_marker [2, 3)",
				"text [4, 5)",
				"_item_end [5, 5)",
				"_sep [5, 6)",
				"text [6, 7)",
				"<eof> [8, 8)",
			},
		},
		{
			caption: "a quoted heading",
			src:     ">  ## h\n",
			toks: []string{
				"_bq_marker [0, 1)",
				"heading_marker [3, 5)",
				"heading_text [6, 7)",
				"<eof> [8, 8)",
			},
		},
		{
			caption: "a block tag",
			src:     "{% t %}\nz\n{% /t %}\n",
			toks: []string{
				"_btag_open [0, 2)",
				"tag_name [3, 4)",
				"_tag_close [5, 7)",
				"_inner_sep [7, 8)",
				"text [8, 9)",
				"_inner_sep [9, 10)",
				"_btag_end_open [10, 14)",
				"tag_name [14, 15)",
				"_tag_close [16, 18)",
				"<eof> [19, 19)",
			},
		},
		{
			caption: "invalid UTF-8",
			src:     "a\xffb\n",
			toks: []string{
				"text [0, 1)",
				"<invalid> [1, 2)",
				"text [2, 3)",
				"<eof> [4, 4)",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			toks := scanAll(t, tabs, cg, []byte(tt.src), 0, nil)
			assert.Equal(t, tt.toks, describe(cg, toks))
		})
	}
}

func TestScanner_Reach(t *testing.T) {
	tabs, cg := tables(t)

	toks := scanAll(t, tabs, cg, []byte("a\n\nb\n"), 0, nil)
	var reach []int
	for _, tok := range toks {
		reach = append(reach, tok.Reach)
	}
	assert.Equal(t, []int{5, 5, 6, 6}, reach)
}

func TestScanner_ResumeFromSnapshot(t *testing.T) {
	tabs, cg := tables(t)

	src := []byte("# A\n\n- x\n  - y\n\n{% t %}\n- z\n{% /t %}\n\n```go\ncode\n```\n\nend {{ 1 + 2 }}\n")
	full := scanAll(t, tabs, cg, src, 0, nil)

	resumed := 0
	for i, tok := range full {
		if tok.Snapshot == nil {
			continue
		}
		require.Equal(t, "_sep", cg.Syntactic.Terminals[tok.Terminal])
		rest := scanAll(t, tabs, cg, src, tok.End, tok.Snapshot)
		assert.Equal(t, describe(cg, full[i+1:]), describe(cg, rest), "resuming at %v", tok.End)
		resumed++
	}
	assert.Greater(t, resumed, 2)
}

func TestNew_InvalidStart(t *testing.T) {
	tabs, _ := tables(t)

	_, err := scanner.New(tabs, []byte("abc"), 4, nil)
	assert.Error(t, err)
	_, err = scanner.New(tabs, []byte("abc"), 1, nil)
	assert.Error(t, err)
	_, err = scanner.New(tabs, []byte("abc"), 1, []byte{0xff})
	assert.Error(t, err)
}

func TestState_MarshalBinary(t *testing.T) {
	tests := []*scanner.State{
		{},
		{AtStart: true},
		{
			Open: []scanner.Container{
				{Tag: true},
				{MarkerCol: 2, ContentCol: 4},
				{MarkerCol: 4, ContentCol: 7},
			},
		},
	}
	for _, st := range tests {
		b, err := st.MarshalBinary()
		require.NoError(t, err)
		var got scanner.State
		require.NoError(t, got.UnmarshalBinary(b))
		assert.True(t, st.Equal(&got), "%+v != %+v", st, got)
	}
}

func TestState_UnmarshalBinary(t *testing.T) {
	t.Run("unknown fields are skipped", func(t *testing.T) {
		st := &scanner.State{AtStart: true}
		b, err := st.MarshalBinary()
		require.NoError(t, err)
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte("future"))

		var got scanner.State
		require.NoError(t, got.UnmarshalBinary(b))
		assert.True(t, st.Equal(&got))
	})
	t.Run("truncated input is an error", func(t *testing.T) {
		var got scanner.State
		assert.Error(t, got.UnmarshalBinary([]byte{0x12, 0x05, 0x08}))
	})
}
