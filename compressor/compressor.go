package compressor

import (
	"encoding/binary"
	"fmt"
	"sort"
)

type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

type Compressor interface {
	Compress(orig *OriginalTable) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
)

// UniqueEntriesTable shares identical rows, then packs the remaining unique rows into a
// RowDisplacementTable. LR tables have many identical rows (states that only reduce one
// production), so the two steps complement each other.
type UniqueEntriesTable struct {
	UniqueEntries    *RowDisplacementTable `json:"unique_entries"`
	RowNums          []int                 `json:"row_nums"`
	OriginalRowCount int                   `json:"original_row_count"`
	OriginalColCount int                   `json:"original_col_count"`
}

func NewUniqueEntriesTable(emptyValue int) *UniqueEntriesTable {
	return &UniqueEntriesTable{
		UniqueEntries: NewRowDisplacementTable(emptyValue),
	}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.UniqueEntries.Lookup(tab.RowNums[row], col)
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *UniqueEntriesTable) Compress(orig *OriginalTable) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	hash2RowNum := map[string]int{}
	nextRowNum := 0
	for row := 0; row < orig.rowCount; row++ {
		var rowHash string
		{
			buf := make([]byte, 0, orig.colCount*binary.MaxVarintLen64)
			for col := 0; col < orig.colCount; col++ {
				buf = binary.AppendVarint(buf, int64(orig.entries[row*orig.colCount+col]))
			}
			rowHash = string(buf)
		}
		rowNum, ok := hash2RowNum[rowHash]
		if !ok {
			rowNum = nextRowNum
			nextRowNum++
			hash2RowNum[rowHash] = rowNum
			start := row * orig.colCount
			uniqueEntries = append(uniqueEntries, orig.entries[start:start+orig.colCount]...)
		}
		rowNums[row] = rowNum
	}

	uniqueOrig, err := NewOriginalTable(uniqueEntries, orig.colCount)
	if err != nil {
		return err
	}
	if tab.UniqueEntries == nil {
		tab.UniqueEntries = NewRowDisplacementTable(0)
	}
	err = tab.UniqueEntries.Compress(uniqueOrig)
	if err != nil {
		return err
	}
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

const ForbiddenValue = -1

type RowDisplacementTable struct {
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
	EmptyValue       int   `json:"empty_value"`
	Entries          []int `json:"entries"`
	Bounds           []int `json:"bounds"`
	RowDisplacement  []int `json:"row_displacement"`
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	d := tab.RowDisplacement[row]
	if d+col >= len(tab.Bounds) || tab.Bounds[d+col] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[d+col], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum        int
	nonEmptyCount int
	nonEmptyCol   []int
}

func (tab *RowDisplacementTable) Compress(orig *OriginalTable) error {
	rowInfo := make([]rowInfo, orig.rowCount)
	for row := 0; row < orig.rowCount; row++ {
		rowInfo[row].rowNum = row
		for col := 0; col < orig.colCount; col++ {
			if orig.entries[row*orig.colCount+col] == tab.EmptyValue {
				continue
			}
			rowInfo[row].nonEmptyCount++
			rowInfo[row].nonEmptyCol = append(rowInfo[row].nonEmptyCol, col)
		}
	}
	sort.SliceStable(rowInfo, func(i int, j int) bool {
		return rowInfo[i].nonEmptyCount > rowInfo[j].nonEmptyCount
	})

	entries := make([]int, 0, len(orig.entries))
	bounds := make([]int, 0, len(orig.entries))
	grow := func(n int) {
		for len(entries) < n {
			entries = append(entries, tab.EmptyValue)
			bounds = append(bounds, ForbiddenValue)
		}
	}
	grow(orig.colCount)

	rowDisplacement := make([]int, orig.rowCount)
	nextRowDisplacement := 0
	for _, rInfo := range rowInfo {
		if rInfo.nonEmptyCount <= 0 {
			continue
		}

		for {
			grow(nextRowDisplacement + orig.colCount)
			isOverlapped := false
			for _, col := range rInfo.nonEmptyCol {
				if bounds[nextRowDisplacement+col] == ForbiddenValue {
					continue
				}
				isOverlapped = true
				break
			}
			if isOverlapped {
				nextRowDisplacement++
				continue
			}

			rowDisplacement[rInfo.rowNum] = nextRowDisplacement
			for _, col := range rInfo.nonEmptyCol {
				entries[nextRowDisplacement+col] = orig.entries[(rInfo.rowNum*orig.colCount)+col]
				bounds[nextRowDisplacement+col] = rInfo.rowNum
			}
			nextRowDisplacement++
			break
		}
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries
	tab.Bounds = bounds
	tab.RowDisplacement = rowDisplacement

	return nil
}
