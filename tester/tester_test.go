package tester

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louiss0/tree-sitter-markdoc"
)

func writeCorpus(t *testing.T, dir, name, src string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestTester_Run(t *testing.T) {
	lang, err := markdoc.Load()
	require.NoError(t, err)

	tests := []struct {
		caption string
		src     string
		legacy  bool
		failed  bool
		skipped bool
	}{
		{
			caption: "a matching tree",
			src: `===
paragraph
===
hello
---
(source_file (paragraph (text)))
`,
		},
		{
			caption: "fields are compared when the expected tree has some",
			src: `===
list item
===
- a
---
(source_file (list (list_item marker: (list_marker) content: (list_paragraph (text)))))
`,
		},
		{
			caption: "a wrong field",
			src: `===
list item
===
- a
---
(source_file (list (list_item content: (list_marker) marker: (list_paragraph (text)))))
`,
			failed: true,
		},
		{
			caption: "a mismatching tree",
			src: `===
paragraph
===
hello
---
(source_file (heading))
`,
			failed: true,
		},
		{
			caption: "the legacy spelling of list paragraphs",
			src: `===
list item
===
- a
---
(source_file (list (list_item (list_marker) (paragraph (text)))))
`,
			legacy: true,
		},
		{
			caption: "the legacy spelling without the legacy flag",
			src: `===
list item
===
- a
---
(source_file (list (list_item (list_marker) (paragraph (text)))))
`,
			failed: true,
		},
		{
			caption: "a wildcard",
			src: `===
paragraph
===
hello
---
(source_file (_ (text)))
`,
		},
		{
			caption: "a skipped test case",
			src: `===
paragraph
:skip
===
hello
---
(source_file (heading))
`,
			skipped: true,
		},
		{
			caption: "a broken corpus file",
			src: `paragraph
---
(source_file)
`,
			failed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			dir := t.TempDir()
			writeCorpus(t, dir, "corpus/test.txt", tt.src)

			cases := ListTestCases([]string{filepath.Join(dir, "corpus", "*.txt")})
			require.Len(t, cases, 1)
			tester := &Tester{
				Language: lang,
				Cases:    cases,
				Legacy:   tt.legacy,
			}
			rs, err := tester.Run(context.Background())
			require.NoError(t, err)
			require.Len(t, rs, 1)
			r := rs[0]
			assert.Equal(t, tt.skipped, r.Skipped)
			if tt.failed {
				assert.Error(t, r.Error, r.String())
				assert.True(t, strings.HasPrefix(r.String(), "Failed "))
			} else {
				assert.NoError(t, r.Error, r.String())
			}
		})
	}
}

func TestTester_UnifiedDiff(t *testing.T) {
	lang, err := markdoc.Load()
	require.NoError(t, err)

	dir := t.TempDir()
	writeCorpus(t, dir, "a.txt", `===
paragraph
===
hello
---
(source_file (heading))
`)
	tester := &Tester{
		Language: lang,
		Cases:    ListTestCases([]string{filepath.Join(dir, "a.txt")}),
	}
	rs, err := tester.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Contains(t, rs[0].UnifiedDiff, "--- expected")
	assert.Contains(t, rs[0].UnifiedDiff, "+++ actual")
	assert.Contains(t, rs[0].UnifiedDiff, "-    (heading)")
	assert.Contains(t, rs[0].String(), "unexpected kind: expected 'heading' but got 'paragraph'")
}

func TestListTestCases(t *testing.T) {
	dir := t.TempDir()
	two := `===
a
===
a
---
(source_file (paragraph (text)))

===
b
===
b
---
(source_file (paragraph (text)))
`
	writeCorpus(t, dir, "x/one.txt", two)
	writeCorpus(t, dir, "x/y/two.txt", two)
	writeCorpus(t, dir, "x/y/ignored.md", "not a corpus")

	cases := ListTestCases([]string{filepath.Join(dir, "**", "*.txt")})
	require.Len(t, cases, 4)
	for _, c := range cases {
		assert.NoError(t, c.Error)
	}

	cases = ListTestCases([]string{filepath.Join(dir, "nothing", "*.txt")})
	require.Len(t, cases, 1)
	assert.Error(t, cases[0].Error)
}

func TestCorpus(t *testing.T) {
	lang, err := markdoc.Load()
	require.NoError(t, err)

	tester := &Tester{
		Language: lang,
		Cases:    ListTestCases([]string{filepath.Join("..", "testdata", "corpus", "*.txt")}),
		Workers:  4,
	}
	rs, err := tester.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	for _, r := range rs {
		assert.NoError(t, r.Error, r.String())
	}
}
