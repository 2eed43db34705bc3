package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

func grammar(t *testing.T) *driver.Grammar {
	t.Helper()
	lang, err := markdoc.Load()
	require.NoError(t, err)
	return lang.Grammar()
}

func offsets(sps []driver.SyncPoint) []int {
	var os []int
	for _, sp := range sps {
		os = append(os, sp.Offset)
	}
	return os
}

func TestParse_SyncPoints(t *testing.T) {
	g := grammar(t)

	doc, err := g.Parse([]byte("a\n\nb\n\nc\n"))
	require.NoError(t, err)
	require.Len(t, doc.SyncPoints, 2)
	assert.Equal(t, []int{3, 6}, offsets(doc.SyncPoints))
	assert.Equal(t, 5, doc.SyncPoints[0].Reach)
	assert.Equal(t, 8, doc.SyncPoints[1].Reach)
	for _, sp := range doc.SyncPoints {
		assert.NotNil(t, sp.Snapshot)
		assert.LessOrEqual(t, sp.Offset, sp.Reach)
	}
}

func TestParse_NoSyncPointsInsideContainers(t *testing.T) {
	g := grammar(t)

	tests := []struct {
		caption string
		src     string
		offsets []int
	}{
		{
			caption: "a single paragraph",
			src:     "a\nb\n",
		},
		{
			caption: "list items",
			src:     "- a\n- b\n\n- c\n",
		},
		{
			caption: "blocks inside a tag",
			src:     "{% t %}\na\n\nb\n{% /t %}\n",
		},
		{
			caption: "a tag between paragraphs",
			src:     "a\n\n{% t %}\nb\n{% /t %}\n\nc\n",
			offsets: []int{3, 23},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			doc, err := g.Parse([]byte(tt.src))
			require.NoError(t, err)
			assert.Empty(t, doc.Errors)
			assert.Equal(t, tt.offsets, offsets(doc.SyncPoints))
		})
	}
}

func TestParse_SyncPointAfterError(t *testing.T) {
	g := grammar(t)

	doc, err := g.Parse([]byte("a\n\n{{ $x\n\nb\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Errors)
	assert.Equal(t, []int{3, 10}, offsets(doc.SyncPoints))
	assert.NoError(t, tree.Check(doc.Tree))
}

func TestParse_DisableLAC(t *testing.T) {
	g := grammar(t)

	for _, src := range []string{
		"# Title\n\n- a\n- b\n\n{{ 1 + 2 * 3 }}\n",
		"{% t a=1 %}\nx\n{% /t %}\n",
	} {
		want, err := g.Parse([]byte(src))
		require.NoError(t, err)
		got, err := g.Parse([]byte(src), driver.DisableLAC())
		require.NoError(t, err)
		assert.True(t, tree.Equal(want.Tree, got.Tree), "%q: %v", src, tree.FirstDifference(want.Tree, got.Tree))
	}
}

func TestResume_StopAtSyncPoint(t *testing.T) {
	g := grammar(t)

	src := []byte("a\n\nb\n\nc\n")
	doc, err := g.Parse(src)
	require.NoError(t, err)
	children := doc.Tree.RootChildren()
	require.Len(t, children, 5)

	var seen []driver.SyncPoint
	part, err := g.Resume(src, &driver.Resumption{
		Arena:  doc.Tree.Arena().Fork(),
		From:   doc.SyncPoints[0],
		Blocks: children[:1],
		Sep:    children[1],
		Stop: func(sp driver.SyncPoint) bool {
			seen = append(seen, sp)
			return true
		},
	})
	require.NoError(t, err)
	assert.True(t, part.Stopped())
	assert.Equal(t, []int{6}, offsets(seen))
	assert.Equal(t, []int{6}, offsets(part.SyncPoints))
	require.Len(t, part.Children, 4)
	assert.Equal(t, children[0], part.Children[0])
	assert.Equal(t, children[1], part.Children[1])
	assert.Equal(t, children[3].Start, part.Children[3].Start)
}

func TestResume_ToTheEnd(t *testing.T) {
	g := grammar(t)

	src := []byte("a\n\nb\n\nc\n")
	doc, err := g.Parse(src)
	require.NoError(t, err)
	children := doc.Tree.RootChildren()

	part, err := g.Resume(src, &driver.Resumption{
		Arena:  doc.Tree.Arena().Fork(),
		From:   doc.SyncPoints[0],
		Blocks: children[:1],
		Sep:    children[1],
	})
	require.NoError(t, err)
	require.False(t, part.Stopped())

	got := tree.New(part.Arena, part.Root, g.Symbols(), src)
	assert.True(t, tree.Equal(doc.Tree, got), tree.FirstDifference(doc.Tree, got))
}

func TestSyncPoint_Shift(t *testing.T) {
	sp := driver.SyncPoint{
		Offset:   10,
		Snapshot: []byte{1},
		Reach:    12,
	}
	assert.Equal(t, driver.SyncPoint{Offset: 13, Snapshot: []byte{1}, Reach: 15}, sp.Shift(3))
	assert.Equal(t, driver.SyncPoint{Offset: 8, Snapshot: []byte{1}, Reach: 10}, sp.Shift(-2))
}
