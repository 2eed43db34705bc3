package compressor

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const x = 0 // an empty entry

func compressors() []Compressor {
	return []Compressor{
		NewUniqueEntriesTable(x),
		NewRowDisplacementTable(x),
	}
}

func requireSameEntries(t *testing.T, comp Compressor, entries []int, rowCount, colCount int) {
	t.Helper()
	rs, cs := comp.OriginalTableSize()
	require.Equal(t, rowCount, rs)
	require.Equal(t, colCount, cs)
	for row := 0; row < rowCount; row++ {
		for col := 0; col < colCount; col++ {
			v, err := comp.Lookup(row, col)
			require.NoError(t, err)
			require.Equal(t, entries[row*colCount+col], v, "entry (%v, %v)", row, col)
		}
	}
}

func TestCompressor_Compress(t *testing.T) {
	tests := []struct {
		caption  string
		entries  []int
		colCount int
	}{
		{
			caption: "full rows",
			entries: []int{
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
			},
			colCount: 5,
		},
		{
			caption: "empty rows",
			entries: []int{
				x, x, x, x, x,
				x, x, x, x, x,
				x, x, x, x, x,
			},
			colCount: 5,
		},
		{
			caption: "full and empty rows",
			entries: []int{
				1, 1, 1, 1, 1,
				x, x, x, x, x,
				1, 1, 1, 1, 1,
			},
			colCount: 5,
		},
		{
			caption: "a diagonal of empty entries",
			entries: []int{
				1, x, 1, 1, 1,
				1, 1, x, 1, 1,
				1, 1, 1, x, 1,
			},
			colCount: 5,
		},
		{
			// Shift entries are negative and reduce entries are positive in an action table.
			caption: "an action table",
			entries: []int{
				-3, x, x, 2, 2,
				x, -4, x, x, x,
				-3, x, x, 2, 2,
				x, x, x, x, 5,
				x, x, -9, x, x,
			},
			colCount: 5,
		},
		{
			caption:  "a single column",
			entries:  []int{x, 7, x, 7},
			colCount: 1,
		},
	}
	for _, tt := range tests {
		for _, comp := range compressors() {
			t.Run(fmt.Sprintf("%T %v", comp, tt.caption), func(t *testing.T) {
				dup := append([]int{}, tt.entries...)
				rowCount := len(tt.entries) / tt.colCount

				orig, err := NewOriginalTable(tt.entries, tt.colCount)
				require.NoError(t, err)
				require.NoError(t, comp.Compress(orig))
				requireSameEntries(t, comp, tt.entries, rowCount, tt.colCount)

				for _, idx := range [][2]int{{0, -1}, {-1, 0}, {rowCount - 1, tt.colCount}, {rowCount, tt.colCount - 1}} {
					_, err := comp.Lookup(idx[0], idx[1])
					assert.Error(t, err, "(%v, %v) is out of range", idx[0], idx[1])
				}

				assert.Equal(t, dup, tt.entries, "the original entries must stay intact")
			})
		}
	}
}

func TestNewOriginalTable_Invalid(t *testing.T) {
	_, err := NewOriginalTable(nil, 1)
	assert.Error(t, err)
	_, err = NewOriginalTable([]int{1, 2, 3}, 2)
	assert.Error(t, err)
}

// Compiled grammars store their tables as JSON.
func TestUniqueEntriesTable_JSON(t *testing.T) {
	entries := []int{
		-3, x, x, 2, 2,
		x, -4, x, x, x,
		-3, x, x, 2, 2,
	}
	orig, err := NewOriginalTable(entries, 5)
	require.NoError(t, err)
	tab := NewUniqueEntriesTable(x)
	require.NoError(t, tab.Compress(orig))

	b, err := json.Marshal(tab)
	require.NoError(t, err)
	loaded := &UniqueEntriesTable{}
	require.NoError(t, json.Unmarshal(b, loaded))
	requireSameEntries(t, loaded, entries, 3, 5)
}
