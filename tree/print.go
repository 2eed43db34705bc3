package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rivo/uniseg"
)

// previewLen is the number of grapheme clusters of node text PrintTree shows.
const previewLen = 24

// PrintTree prints a tree with byte ranges, one node per line.
func PrintTree(w io.Writer, t *Tree) {
	printTree(w, t.Root(), "", "")
}

func printTree(w io.Writer, n Node, ruledLine string, childRuledLinePrefix string) {
	var label string
	switch {
	case n.IsMissing():
		label = fmt.Sprintf("MISSING %v", n.Type())
	case n.IsNamed():
		label = n.Type()
	default:
		label = strconv.Quote(n.Type())
	}
	if n.Field() != FieldNone {
		label = fmt.Sprintf("%v: %v", n.Field(), label)
	}

	if n.IsLeaf() && n.Len() > 0 {
		fmt.Fprintf(w, "%v%v [%v, %v) %v\n", ruledLine, label, n.Start(), n.End(), preview(n.Text()))
	} else {
		fmt.Fprintf(w, "%v%v [%v, %v)\n", ruledLine, label, n.Start(), n.End())
	}

	num := n.ChildCount()
	for i := 0; i < num; i++ {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, n.Child(i), childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}

// preview quotes the beginning of a text without splitting a grapheme cluster.
func preview(text []byte) string {
	g := uniseg.NewGraphemes(string(text))
	n := 0
	end := 0
	for g.Next() {
		if n == previewLen {
			return strconv.Quote(string(text[:end])) + "..."
		}
		_, end = g.Positions()
		n++
	}
	return strconv.Quote(string(text))
}

type jsonNode struct {
	Type     string      `json:"type"`
	Named    bool        `json:"named"`
	Field    string      `json:"field,omitempty"`
	Start    int         `json:"start"`
	End      int         `json:"end"`
	Missing  bool        `json:"missing,omitempty"`
	Text     string      `json:"text,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func toJSONNode(n Node) *jsonNode {
	j := &jsonNode{
		Type:    n.Type(),
		Named:   n.IsNamed(),
		Field:   n.Field().String(),
		Start:   n.Start(),
		End:     n.End(),
		Missing: n.IsMissing(),
	}
	if n.IsLeaf() {
		j.Text = string(n.Text())
		return j
	}
	j.Children = make([]*jsonNode, n.ChildCount())
	for i := range j.Children {
		j.Children[i] = toJSONNode(n.Child(i))
	}
	return j
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONNode(t.Root()))
}
