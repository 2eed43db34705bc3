package incremental

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdit(t *testing.T) {
	e := Edit{Start: 2, End: 4, NewLength: 5}
	assert.Equal(t, 3, e.Delta())
	assert.Equal(t, 7, e.NewEnd())
	assert.Equal(t, "[2, 4) -> 5 bytes", e.String())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		caption string
		textLen int
		edits   []Edit
		inv     *Invalidation
	}{
		{
			caption: "a single replacement",
			textLen: 10,
			edits: []Edit{
				{Start: 2, End: 4, NewLength: 3},
			},
			inv: &Invalidation{
				Edit:      Edit{Start: 2, End: 4, NewLength: 3},
				Ranges:    []Range{{Start: 2, End: 5}},
				OldLength: 10,
				NewLength: 11,
			},
		},
		{
			caption: "a deletion after a replacement",
			textLen: 10,
			edits: []Edit{
				{Start: 2, End: 4, NewLength: 3},
				{Start: 8, End: 9, NewLength: 0},
			},
			inv: &Invalidation{
				Edit:      Edit{Start: 2, End: 8, NewLength: 6},
				Ranges:    []Range{{Start: 2, End: 5}, {Start: 8, End: 8}},
				OldLength: 10,
				NewLength: 10,
			},
		},
		{
			caption: "an edit before an earlier one",
			textLen: 10,
			edits: []Edit{
				{Start: 5, End: 6, NewLength: 1},
				{Start: 0, End: 1, NewLength: 2},
			},
			inv: &Invalidation{
				Edit:      Edit{Start: 0, End: 6, NewLength: 7},
				Ranges:    []Range{{Start: 0, End: 2}, {Start: 6, End: 7}},
				OldLength: 10,
				NewLength: 11,
			},
		},
		{
			caption: "overlapping insertions merge into one range",
			textLen: 4,
			edits: []Edit{
				{Start: 1, End: 1, NewLength: 3},
				{Start: 2, End: 2, NewLength: 2},
			},
			inv: &Invalidation{
				Edit:      Edit{Start: 1, End: 1, NewLength: 5},
				Ranges:    []Range{{Start: 1, End: 6}},
				OldLength: 4,
				NewLength: 9,
			},
		},
		{
			caption: "an edit of an empty text",
			textLen: 0,
			edits: []Edit{
				{Start: 0, End: 0, NewLength: 4},
			},
			inv: &Invalidation{
				Edit:      Edit{Start: 0, End: 0, NewLength: 4},
				Ranges:    []Range{{Start: 0, End: 4}},
				OldLength: 0,
				NewLength: 4,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			inv, err := merge(tt.textLen, tt.edits)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.inv, inv); diff != "" {
				t.Fatalf("unexpected invalidation (-want +got):\n%v", diff)
			}
		})
	}
}

func TestMerge_Invalid(t *testing.T) {
	tests := []struct {
		caption string
		textLen int
		edits   []Edit
	}{
		{
			caption: "no edits",
			textLen: 10,
		},
		{
			caption: "a negative start",
			textLen: 10,
			edits:   []Edit{{Start: -1, End: 2, NewLength: 0}},
		},
		{
			caption: "a start after the end",
			textLen: 10,
			edits:   []Edit{{Start: 3, End: 2, NewLength: 0}},
		},
		{
			caption: "an end beyond the text",
			textLen: 10,
			edits:   []Edit{{Start: 3, End: 11, NewLength: 0}},
		},
		{
			caption: "a negative length",
			textLen: 10,
			edits:   []Edit{{Start: 3, End: 4, NewLength: -1}},
		},
		{
			caption: "a second edit beyond the edited text",
			textLen: 10,
			edits: []Edit{
				{Start: 0, End: 5, NewLength: 0},
				{Start: 6, End: 7, NewLength: 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := merge(tt.textLen, tt.edits)
			assert.ErrorIs(t, err, ErrInvalidEdit)
		})
	}
}
