package tree

import (
	"fmt"
	"strconv"
)

// Symbols names the grammar symbols the nodes of a tree refer to.
type Symbols struct {
	Terminals       []string
	TerminalAliases []string
	NonTerminals    []string
}

// TerminalText returns the text a terminal is displayed with: its alias when it has one, its
// name otherwise.
func (s *Symbols) TerminalText(term int) string {
	if s == nil || term <= 0 || term >= len(s.Terminals) {
		return ""
	}
	if term < len(s.TerminalAliases) && s.TerminalAliases[term] != "" {
		return s.TerminalAliases[term]
	}
	return s.Terminals[term]
}

// Tree is an immutable concrete syntax tree over a source text.
type Tree struct {
	arena *Arena
	root  NodeID
	syms  *Symbols
	src   []byte
}

// New returns a tree whose root is the node root of arena. The root must span the whole source.
func New(arena *Arena, root NodeID, syms *Symbols, src []byte) *Tree {
	return &Tree{
		arena: arena,
		root:  root,
		syms:  syms,
		src:   src,
	}
}

func (t *Tree) Arena() *Arena {
	return t.arena
}

func (t *Tree) Symbols() *Symbols {
	return t.syms
}

func (t *Tree) Source() []byte {
	return t.src
}

func (t *Tree) Root() Node {
	return Node{
		tree: t,
		id:   t.root,
	}
}

// RootChildren returns the children of the root with absolute positions. A re-parse splices
// them into a new root.
func (t *Tree) RootChildren() []Child {
	return t.arena.Children(t.root, 0)
}

// Node is a view of a node in a tree. The zero value is a nil node.
type Node struct {
	tree  *Tree
	id    NodeID
	start int
	field Field
}

func (n Node) IsNil() bool {
	return n.tree == nil
}

func (n Node) entry() *entry {
	return n.tree.arena.at(n.id)
}

func (n Node) ID() NodeID {
	return n.id
}

func (n Node) Kind() Kind {
	return n.entry().kind
}

// Symbol returns the grammar symbol of the node: a terminal number for leaves, a non-terminal
// number for inner nodes, and 0 for ERROR nodes and invalid bytes.
func (n Node) Symbol() int {
	return n.entry().symbol
}

// Type returns the kind name of a named node or the display text of an anonymous token.
func (n Node) Type() string {
	e := n.entry()
	if e.kind != KindAnonymous {
		return e.kind.String()
	}
	return n.tree.syms.TerminalText(e.symbol)
}

func (n Node) IsNamed() bool {
	return n.entry().kind.Named()
}

func (n Node) IsMissing() bool {
	return n.entry().flags&FlagMissing != 0
}

func (n Node) IsError() bool {
	return n.entry().kind == KindError
}

// HasError reports whether the node or any of its descendants is an ERROR or MISSING node.
func (n Node) HasError() bool {
	return n.entry().flags&flagHasError != 0
}

func (n Node) IsLeaf() bool {
	return len(n.entry().edges) == 0
}

func (n Node) Start() int {
	return n.start
}

func (n Node) End() int {
	return n.start + n.entry().length
}

func (n Node) Len() int {
	return n.entry().length
}

// Field returns the role of the node in its parent.
func (n Node) Field() Field {
	return n.field
}

func (n Node) Text() []byte {
	return n.tree.src[n.Start():n.End()]
}

func (n Node) ChildCount() int {
	return len(n.entry().edges)
}

func (n Node) Child(i int) Node {
	ed := n.entry().edges[i]
	return Node{
		tree:  n.tree,
		id:    ed.node,
		start: n.start + ed.offset,
		field: ed.field,
	}
}

func (n Node) Children() []Node {
	cs := make([]Node, n.ChildCount())
	for i := range cs {
		cs[i] = n.Child(i)
	}
	return cs
}

func (n Node) NamedChildren() []Node {
	var cs []Node
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c.IsNamed() {
			cs = append(cs, c)
		}
	}
	return cs
}

// ChildByField returns the first child playing the role f, or a nil node.
func (n Node) ChildByField(f Field) Node {
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c.field == f {
			return c
		}
	}
	return Node{}
}

// Descendant returns the smallest named node containing [start, end).
func (n Node) Descendant(start, end int) Node {
	if start < n.Start() || end > n.End() {
		return Node{}
	}
	cur := n
	for {
		next := Node{}
		for i := 0; i < cur.ChildCount(); i++ {
			c := cur.Child(i)
			if c.Start() <= start && end <= c.End() && c.IsNamed() && !(c.Len() == 0 && start != end) {
				next = c
				break
			}
		}
		if next.IsNil() {
			return cur
		}
		cur = next
	}
}

func (n Node) String() string {
	if n.IsNil() {
		return "<nil>"
	}
	if n.IsNamed() {
		return fmt.Sprintf("%v [%v, %v)", n.Type(), n.Start(), n.End())
	}
	return fmt.Sprintf("%v [%v, %v)", strconv.Quote(n.Type()), n.Start(), n.End())
}

// Walk visits n and its descendants in document order. Returning false from f skips the
// children of the visited node.
func Walk(n Node, f func(n Node) bool) {
	if !f(n) {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		Walk(n.Child(i), f)
	}
}
