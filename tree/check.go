package tree

import (
	"bytes"
	"fmt"
)

// Check verifies the structural invariants of a tree: the root spans the source, every node lies
// inside its parent, siblings are in order without overlapping, and MISSING leaves are empty.
func Check(t *Tree) error {
	root := t.Root()
	if root.Start() != 0 || root.End() != len(t.src) {
		return fmt.Errorf("the root spans [%v, %v) but the source is %v bytes long", root.Start(), root.End(), len(t.src))
	}
	return checkNode(root, "")
}

func checkNode(n Node, path string) error {
	path = fmt.Sprintf("%v/%v", path, n.Type())
	if n.Kind() >= kindCount {
		return fmt.Errorf("%v: invalid kind %v", path, n.Kind())
	}
	if n.IsMissing() && (n.Len() != 0 || !n.IsLeaf()) {
		return fmt.Errorf("%v: a missing node must be an empty leaf", path)
	}
	prevEnd := n.Start()
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.Start() < prevEnd {
			return fmt.Errorf("%v: child %v [%v, %v) starts before the end of its predecessor %v", path, i, c.Start(), c.End(), prevEnd)
		}
		if c.End() > n.End() || c.Len() < 0 {
			return fmt.Errorf("%v: child %v [%v, %v) is outside of its parent [%v, %v)", path, i, c.Start(), c.End(), n.Start(), n.End())
		}
		if err := checkNode(c, path); err != nil {
			return err
		}
		prevEnd = c.End()
	}
	return nil
}

// Equal reports whether two trees have the same source and the same structure, ranges, fields,
// and flags. The trees may live in different arenas.
func Equal(a, b *Tree) bool {
	if !bytes.Equal(a.src, b.src) {
		return false
	}
	return equalNode(a.Root(), b.Root())
}

func equalNode(a, b Node) bool {
	ea, eb := a.entry(), b.entry()
	if ea.kind != eb.kind || ea.symbol != eb.symbol || ea.flags != eb.flags || ea.length != eb.length || len(ea.edges) != len(eb.edges) {
		return false
	}
	if a.start != b.start || a.field != b.field {
		return false
	}
	for i := range ea.edges {
		if !equalNode(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}

// FirstDifference returns a description of the first node at which two trees differ, or "" when
// they are equal.
func FirstDifference(a, b *Tree) string {
	if !bytes.Equal(a.src, b.src) {
		return "the sources differ"
	}
	return firstDifference(a.Root(), b.Root(), "")
}

func firstDifference(a, b Node, path string) string {
	path = fmt.Sprintf("%v/%v", path, a.Type())
	ea, eb := a.entry(), b.entry()
	switch {
	case ea.kind != eb.kind || ea.symbol != eb.symbol:
		return fmt.Sprintf("%v: %v vs %v", path, a, b)
	case a.start != b.start || ea.length != eb.length:
		return fmt.Sprintf("%v: range [%v, %v) vs [%v, %v)", path, a.Start(), a.End(), b.Start(), b.End())
	case a.field != b.field:
		return fmt.Sprintf("%v: field %q vs %q", path, a.field, b.field)
	case ea.flags != eb.flags:
		return fmt.Sprintf("%v: flags %b vs %b", path, ea.flags, eb.flags)
	}
	n := len(ea.edges)
	if len(eb.edges) < n {
		n = len(eb.edges)
	}
	for i := 0; i < n; i++ {
		if d := firstDifference(a.Child(i), b.Child(i), path); d != "" {
			return d
		}
	}
	if len(ea.edges) != len(eb.edges) {
		return fmt.Sprintf("%v: %v children vs %v", path, len(ea.edges), len(eb.edges))
	}
	return ""
}
