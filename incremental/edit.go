package incremental

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidEdit = errors.New("invalid edit")

// Edit replaces the bytes [Start, End) with NewLength new bytes.
type Edit struct {
	Start     int
	End       int
	NewLength int
}

// Delta returns the change in text length.
func (e Edit) Delta() int {
	return e.NewLength - (e.End - e.Start)
}

// NewEnd returns the end of the replacement in the edited text.
func (e Edit) NewEnd() int {
	return e.Start + e.NewLength
}

func (e Edit) String() string {
	return fmt.Sprintf("[%v, %v) -> %v bytes", e.Start, e.End, e.NewLength)
}

// Range is a byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Invalidation is the effect of a sequence of edits on a text.
type Invalidation struct {
	// Edit covers every edit: Start and End are offsets in the old text, and NewLength is the
	// length of the replaced region in the new text.
	Edit Edit

	// Ranges are the inserted regions in the new text, sorted and merged.
	Ranges []Range

	// OldLength and NewLength are the text lengths before and after the edits.
	OldLength int
	NewLength int
}

// merge applies the edits in order to a text of textLen bytes. Each edit is in the
// coordinates of the text the previous edits produced.
func merge(textLen int, edits []Edit) (*Invalidation, error) {
	if len(edits) == 0 {
		return nil, fmt.Errorf("%w: no edits", ErrInvalidEdit)
	}

	inv := &Invalidation{
		OldLength: textLen,
	}
	cur := textLen
	var merged Edit
	var ranges []Range
	for i, e := range edits {
		if e.Start < 0 || e.Start > e.End || e.End > cur || e.NewLength < 0 {
			return nil, fmt.Errorf("%w: edit #%v %v does not fit a text of %v bytes", ErrInvalidEdit, i+1, e, cur)
		}

		if i == 0 {
			merged = e
		} else {
			newEnd := merged.NewEnd()
			if e.End > newEnd {
				newEnd = e.End
			}
			newEnd += e.Delta()
			if e.End > merged.NewEnd() {
				merged.End += e.End - merged.NewEnd()
			}
			if e.Start < merged.Start {
				merged.Start = e.Start
			}
			merged.NewLength = newEnd - merged.Start
		}

		for j, r := range ranges {
			ranges[j] = Range{
				Start: mapOffset(r.Start, e),
				End:   mapOffset(r.End, e),
			}
		}
		ranges = append(ranges, Range{
			Start: e.Start,
			End:   e.NewEnd(),
		})
		cur += e.Delta()
	}

	inv.Edit = merged
	inv.Ranges = mergeRanges(ranges)
	inv.NewLength = cur
	return inv, nil
}

// mapOffset returns where an offset ends up after an edit. Offsets inside the removed region
// move to the end of the replacement.
func mapOffset(off int, e Edit) int {
	switch {
	case off <= e.Start:
		return off
	case off >= e.End:
		return off + e.Delta()
	default:
		return e.NewEnd()
	}
}

func mergeRanges(rs []Range) []Range {
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].Start < rs[j].Start
	})
	var out []Range
	for _, r := range rs {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			if r.End > out[n-1].End {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
