package tree

import "fmt"

const (
	chunkShift = 10
	chunkLen   = 1 << chunkShift
	chunkMask  = chunkLen - 1
)

// NodeID addresses a node in an Arena. The zero value is nil.
//
// An ID encodes a chunk number and an index into that chunk, so the ID of a node stays valid
// in every arena forked from the one that allocated it.
type NodeID uint32

func (id NodeID) Nil() bool {
	return id == 0
}

func (id NodeID) coordinates() (int, int) {
	v := int(id) - 1
	return v >> chunkShift, v & chunkMask
}

// NodeFlags mark leaves the parser did not take verbatim from the input.
type NodeFlags uint8

const (
	// FlagMissing marks a zero-width leaf the parser inserted in place of an expected token.
	FlagMissing NodeFlags = 1 << iota

	flagHasError
)

type edge struct {
	node   NodeID
	offset int
	field  Field
}

type entry struct {
	kind   Kind
	symbol int
	flags  NodeFlags
	length int
	edges  []edge
}

// Arena stores nodes in fixed-size chunks. Entries never move and are never modified once
// allocated. Fork returns an arena that shares every existing chunk and allocates into new
// ones, so a tree built in a fork may refer to the nodes of an older tree while readers of the
// older tree run concurrently.
//
// A zero Arena is empty and ready to use.
type Arena struct {
	chunks [][]entry
}

// Fork returns a new arena containing every node of a.
func (a *Arena) Fork() *Arena {
	chunks := make([][]entry, len(a.chunks))
	for i, c := range a.chunks {
		// Clip the capacity so that the fork never appends into a shared chunk.
		chunks[i] = c[:len(c):len(c)]
	}
	return &Arena{
		chunks: chunks,
	}
}

// Len returns the number of nodes an arena holds, shared ones included.
func (a *Arena) Len() int {
	n := 0
	for _, c := range a.chunks {
		n += len(c)
	}
	return n
}

func (a *Arena) alloc(e entry) NodeID {
	if len(a.chunks) == 0 {
		a.chunks = append(a.chunks, make([]entry, 0, chunkLen))
	}
	last := &a.chunks[len(a.chunks)-1]
	if len(*last) == cap(*last) {
		a.chunks = append(a.chunks, make([]entry, 0, chunkLen))
		last = &a.chunks[len(a.chunks)-1]
	}
	*last = append(*last, e)
	return NodeID((len(a.chunks)-1)<<chunkShift|(len(*last)-1)) + 1
}

func (a *Arena) at(id NodeID) *entry {
	if id.Nil() {
		panic("tree: nil node ID")
	}
	c, i := id.coordinates()
	if c >= len(a.chunks) || i >= len(a.chunks[c]) {
		panic(fmt.Sprintf("tree: node ID out of range: %#x", uint32(id)))
	}
	return &a.chunks[c][i]
}

// NodeLen returns the byte length of a node.
func (a *Arena) NodeLen(id NodeID) int {
	return a.at(id).length
}

// NewLeaf allocates a leaf. symbol is the grammar terminal the leaf stands for.
func (a *Arena) NewLeaf(kind Kind, symbol int, length int, flags NodeFlags) NodeID {
	if kind == KindError || flags&FlagMissing != 0 {
		flags |= flagHasError
	}
	return a.alloc(entry{
		kind:   kind,
		symbol: symbol,
		flags:  flags,
		length: length,
	})
}

// Child places a node inside its parent. Start is an absolute byte offset.
type Child struct {
	ID    NodeID
	Start int
	Field Field
}

// NewNode allocates an inner node spanning [start, end). Children must lie inside the span in
// order without overlapping. symbol is the grammar non-terminal the node stands for, or 0 for
// nodes the parser synthesizes, such as ERROR nodes.
func (a *Arena) NewNode(kind Kind, symbol int, start, end int, children []Child) NodeID {
	var flags NodeFlags
	if kind == KindError {
		flags |= flagHasError
	}
	edges := make([]edge, len(children))
	for i, c := range children {
		edges[i] = edge{
			node:   c.ID,
			offset: c.Start - start,
			field:  c.Field,
		}
		if a.at(c.ID).flags&flagHasError != 0 {
			flags |= flagHasError
		}
	}
	return a.alloc(entry{
		kind:   kind,
		symbol: symbol,
		flags:  flags,
		length: end - start,
		edges:  edges,
	})
}

// NodeKind returns the kind of a node.
func (a *Arena) NodeKind(id NodeID) Kind {
	return a.at(id).kind
}

// Children returns the children of a node that starts at start, with absolute positions.
func (a *Arena) Children(id NodeID, start int) []Child {
	e := a.at(id)
	cs := make([]Child, len(e.edges))
	for i, ed := range e.edges {
		cs[i] = Child{
			ID:    ed.node,
			Start: start + ed.offset,
			Field: ed.field,
		}
	}
	return cs
}
