package markdoc_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/incremental"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

func load(t *testing.T) *markdoc.Language {
	t.Helper()
	lang, err := markdoc.Load()
	require.NoError(t, err)
	return lang
}

func TestLoad(t *testing.T) {
	a := load(t)
	b := load(t)
	assert.Same(t, a, b)
	assert.Equal(t, "markdoc", a.Grammar().Compiled().Name)
}

func TestLoadCompiled(t *testing.T) {
	cg, _, err := markdoc.Compile()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cg.Write(&buf))
	lang, err := markdoc.LoadCompiled(&buf)
	require.NoError(t, err)

	src := []byte("# Title\n\nSome *text*.\n")
	want, err := load(t).Parse(src)
	require.NoError(t, err)
	got, err := lang.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, want.Tree.SExpr(), got.Tree.SExpr())
}

func TestLoadCompiled_Invalid(t *testing.T) {
	_, err := markdoc.LoadCompiled(strings.NewReader("{"))
	assert.ErrorIs(t, err, markdoc.ErrGrammarLoad)
}

func TestCompileSource_Invalid(t *testing.T) {
	_, _, err := markdoc.CompileSource(strings.NewReader("#name broken;\n\ns: undefined_symbol;\n"))
	assert.ErrorIs(t, err, markdoc.ErrGrammarLoad)
}

// listItem is a list item holding nothing but a line of text.
const listItem = "(list_item marker: (list_marker) content: (list_paragraph (text)))"

func TestParse(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		tree    string
	}{
		{
			caption: "an empty document",
			src:     "",
			tree:    "(source_file)",
		},
		{
			caption: "blank lines only",
			src:     "\n\n  \n",
			tree:    "(source_file)",
		},
		{
			caption: "a heading followed by a paragraph",
			src:     "# Title\n\nHello world\n",
			tree:    "(source_file (heading heading_marker: (heading_marker) heading_text: (heading_text)) (paragraph (text)))",
		},
		{
			caption: "a list item continued by an indented line",
			src:     "- a\n  b\n",
			tree:    "(source_file (list (list_item marker: (list_marker) content: (list_paragraph (text)))))",
		},
		{
			caption: "a paragraph after a list item",
			src:     "- a\nb\n",
			tree:    "(source_file (list (list_item marker: (list_marker) content: (list_paragraph (text)))) (paragraph (text)))",
		},
		{
			caption: "sibling list items",
			src:     "- a\n- b\n",
			tree:    "(source_file (list (list_item marker: (list_marker) content: (list_paragraph (text))) (list_item marker: (list_marker) content: (list_paragraph (text)))))",
		},
		{
			caption: "three sibling list items",
			src:     "- a\n- b\n- c\n",
			tree:    "(source_file (list " + listItem + " " + listItem + " " + listItem + "))",
		},
		{
			caption: "a nested list followed by a sibling item",
			src:     "- a\n  - b\n  - c\n- d\n",
			tree: "(source_file (list (list_item marker: (list_marker) content: (list_paragraph (text)) (list " +
				listItem + " " + listItem + ")) " + listItem + "))",
		},
		{
			caption: "a list inside a block tag",
			src:     "{% a %}\n- x\n- y\n{% /a %}\n",
			tree:    "(source_file (markdoc_tag (tag_open (tag_name)) (list " + listItem + " " + listItem + ") (tag_close (tag_name))))",
		},
		{
			caption: "a quoted paragraph",
			src:     "> quoted\n",
			tree:    "(source_file (blockquote (paragraph (text))))",
		},
		{
			caption: "a quoted heading",
			src:     "> # h\n",
			tree:    "(source_file (blockquote (heading heading_marker: (heading_marker) heading_text: (heading_text))))",
		},
		{
			caption: "a quoted list item followed by a paragraph",
			src:     "> - a\nb\n",
			tree:    "(source_file (blockquote (list " + listItem + ")) (paragraph (text)))",
		},
		{
			caption: "a quoted thematic break",
			src:     "> ---\n",
			tree:    "(source_file (blockquote (thematic_break)))",
		},
		{
			caption: "a nested blockquote",
			src:     "> > a\n",
			tree:    "(source_file (blockquote (blockquote (paragraph (text)))))",
		},
		{
			caption: "an empty blockquote",
			src:     ">\n",
			tree:    "(source_file (blockquote))",
		},
		{
			caption: "an inline expression",
			src:     "Hello {{ $name }}\n",
			tree:    "(source_file (paragraph (text) (inline_expression content: (expression (variable (identifier))))))",
		},
		{
			caption: "a block tag",
			src:     "{% if $x %}\nHi\n{% /if %}\n",
			tree:    "(source_file (markdoc_tag (tag_open (tag_name) (expression (variable (identifier)))) (paragraph (text)) (tag_close (tag_name))))",
		},
		{
			caption: "a thematic break between paragraphs",
			src:     "a\n\n---\n\nb\n",
			tree:    "(source_file (paragraph (text)) (thematic_break) (paragraph (text)))",
		},
	}
	lang := load(t)
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			res, err := lang.Parse([]byte(tt.src))
			require.NoError(t, err)
			assert.Empty(t, res.Errors)
			assert.Equal(t, tt.tree, res.Tree.SExpr())
			assert.NoError(t, tree.Check(res.Tree))
			assert.False(t, res.Tree.Root().HasError())
		})
	}
}

func TestParse_LegacyListParagraph(t *testing.T) {
	res, err := load(t).Parse([]byte("- a\n  b\n"))
	require.NoError(t, err)
	assert.Equal(t, "(source_file (list (list_item (list_marker) (paragraph (text)))))", res.Tree.SExpr(tree.WithoutFields(), tree.Legacy()))
}

func TestParse_UnterminatedExpression(t *testing.T) {
	res, err := load(t).Parse([]byte("Hello {{ $name\n"))
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.NotEmpty(t, res.Errors[0].Missing)
	assert.True(t, res.Tree.Root().HasError())
	assert.NoError(t, tree.Check(res.Tree))
}

func TestReparse(t *testing.T) {
	lang := load(t)
	oldText := []byte("# Title\n\nfirst\n\nsecond\n\nthird\n")
	old, err := lang.Parse(oldText)
	require.NoError(t, err)

	i := bytes.Index(oldText, []byte("second"))
	newText := append(append(append([]byte{}, oldText[:i]...), "the second"...), oldText[i+len("second"):]...)
	res, err := lang.Reparse(old, []incremental.Edit{{Start: i, End: i + len("second"), NewLength: len("the second")}}, newText)
	require.NoError(t, err)

	want, err := lang.Parse(newText)
	require.NoError(t, err)
	assert.True(t, tree.Equal(want.Tree, res.Tree), tree.FirstDifference(want.Tree, res.Tree))

	// The old result stays usable.
	assert.Equal(t, oldText, old.Tree.Source())
	assert.NoError(t, tree.Check(old.Tree))
}

func TestResult_Frontmatter(t *testing.T) {
	lang := load(t)

	tests := []struct {
		caption string
		src     string
		found   bool
		want    map[string]any
		err     bool
	}{
		{
			caption: "no frontmatter",
			src:     "# Title\n",
		},
		{
			caption: "frontmatter",
			src:     "---\ntitle: Hello\ntags: [a, b]\n---\n\nHi\n",
			found:   true,
			want: map[string]any{
				"title": "Hello",
				"tags":  []any{"a", "b"},
			},
		},
		{
			caption: "frontmatter that is not YAML",
			src:     "---\ntitle: [x\n---\n",
			found:   true,
			err:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			res, err := lang.Parse([]byte(tt.src))
			require.NoError(t, err)
			var got map[string]any
			found, err := res.Frontmatter(&got)
			assert.Equal(t, tt.found, found)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "bytes that are not UTF-8",
			src:     "\xff\xfe\x00garbage \x80\xc3\n\n\xe2\x82\n",
		},
		{
			caption: "a truncated fence",
			src:     "```go\nfunc main() {",
		},
		{
			caption: "an unterminated block tag",
			src:     "{% if $x %}\nHi\n",
		},
		{
			caption: "an unterminated inline tag",
			src:     "a {% tag x=1\n",
		},
		{
			caption: "a closing tag without an opening one",
			src:     "{% /if %}\n\ntext\n",
		},
		{
			caption: "an expression cut short inside a list",
			src:     "- {{ f(1, [2\n- b\n",
		},
	}
	lang := load(t)
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			res, err := lang.Parse([]byte(tt.src))
			require.NoError(t, err)
			assert.True(t, res.Tree.Root().HasError(), res.Tree.SExpr())
			assert.NotEmpty(t, res.Errors)
			assert.NoError(t, tree.Check(res.Tree))
			assert.Equal(t, len(tt.src), res.Tree.Root().End())
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	srcs := []string{
		"---\ntitle: x\n---\n\n# Title\n\n- a\n  b\n\n  c\n- d\n",
		"> - a\n\n{% t x=1 %}\n```js\ncode\n```\n{% /t %}\n",
		"a {{ $x.y[0] + f(1) }} *b* **c** `d` [e](f) ![g](h)\n",
		"\xff{% a \n- {{ (\n",
	}
	lang := load(t)
	for _, src := range srcs {
		a, err := lang.Parse([]byte(src))
		require.NoError(t, err)
		b, err := lang.Parse([]byte(src))
		require.NoError(t, err)
		assert.True(t, tree.Equal(a.Tree, b.Tree), tree.FirstDifference(a.Tree, b.Tree))
		assert.Equal(t, a.Tree.SExpr(), b.Tree.SExpr())
		assert.Equal(t, a.Errors, b.Errors)
	}
}

// editFragments are the pieces random documents and random edits are made of.
var editFragments = []string{
	"# Title\n",
	"\n",
	"\n\n",
	"plain text\n",
	"more *em* and **strong**\n",
	"- a\n",
	"  - nested\n",
	"  continued\n",
	"1. first\n",
	"> quoted\n",
	"> - quoted item\n",
	"{% tag a=1 %}\n",
	"{% /tag %}\n",
	"{% self /%}\n",
	"```go\n",
	"```\n",
	"x := 1\n",
	"---\n",
	"{{ $v + 2 }}",
	"{% if $x %}",
	"[link](url)",
	"<!-- c -->\n",
	"<div>\n",
	"\xff",
	" ",
	"",
}

func randomText(r *rand.Rand, n int) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, editFragments[r.Intn(len(editFragments))]...)
	}
	return b
}

func TestReparse_RandomEdits(t *testing.T) {
	lang := load(t)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		text := randomText(r, 2+r.Intn(8))
		old, err := lang.Parse(text)
		require.NoError(t, err)

		newText := text
		var edits []incremental.Edit
		for j := 0; j < 1+r.Intn(2); j++ {
			start := r.Intn(len(newText) + 1)
			end := start + r.Intn(len(newText)-start+1)
			repl := randomText(r, r.Intn(3))
			edits = append(edits, incremental.Edit{Start: start, End: end, NewLength: len(repl)})
			newText = append(append(append([]byte{}, newText[:start]...), repl...), newText[end:]...)
		}

		res, err := lang.Reparse(old, edits, newText)
		require.NoError(t, err, "%q with %v", text, edits)
		want, err := lang.Parse(newText)
		require.NoError(t, err)
		if !tree.Equal(want.Tree, res.Tree) {
			t.Fatalf("%q with %v gives %q: %v", text, edits, newText, tree.FirstDifference(want.Tree, res.Tree))
		}
		require.NoError(t, tree.Check(res.Tree))
	}
}
