package parser

import (
	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

// SemanticActionSet is a set of semantic actions a parser calls.
type SemanticActionSet interface {
	// Shift runs when the parser shifts a symbol onto a state stack. `tok` is a token corresponding to the symbol.
	// When the parser recovered from an error state by shifting the token, `recovered` is true.
	Shift(tok *scanner.Token, recovered bool)

	// ShiftMissing runs when the parser shifts a terminal it inserted in place of a token the input lacks.
	// `pos` is the offset the inserted terminal sits at.
	ShiftMissing(terminal int, pos int)

	// Reduce runs when the parser reduces an RHS of a production to its LHS. `prodNum` is a number of the production.
	// When the parser recovered from an error state by reducing the production, `recovered` is true.
	Reduce(prodNum int, recovered bool)

	// Accept runs when the parser accepts an input.
	Accept()

	// TrapAndShiftError runs when the parser traps a syntax error and shifts a error symbol onto the state stack.
	// `cause` is a token that caused a syntax error. `popped` is the number of frames that the parser discards
	// from the state stack.
	// Unlike `Shift` function, this function doesn't take a token to be shifted as an argument because a token
	// corresponding to the error symbol doesn't exist.
	TrapAndShiftError(cause *scanner.Token, popped int)

	// SkipError runs when the parser discards a token while it is in the error state.
	SkipError(tok *scanner.Token)

	// MissError runs when the parser fails to trap a syntax error. `cause` is a token that caused a syntax error.
	// The parser then discards the rest of the input with SkipError and accepts.
	MissError(cause *scanner.Token)
}

var _ SemanticActionSet = &TreeBuilder{}

// frame holds the nodes a symbol on the state stack stands for. A hidden non-terminal has any
// number of nodes; an error frame holds the nodes an ERROR node will wrap.
type frame struct {
	children []tree.Child
	start    int
	end      int
	err      bool
}

// TreeBuilder is a SemanticActionSet that builds a concrete syntax tree in an arena.
type TreeBuilder struct {
	gram    Grammar
	arena   *tree.Arena
	srcLen  int
	frames  []*frame
	lastEnd int
	root    tree.NodeID
}

// NewTreeBuilder returns a TreeBuilder that allocates the nodes of a source text of srcLen
// bytes in arena.
func NewTreeBuilder(gram Grammar, arena *tree.Arena, srcLen int) *TreeBuilder {
	return &TreeBuilder{
		gram:   gram,
		arena:  arena,
		srcLen: srcLen,
		frames: make([]*frame, 0, 64),
	}
}

// ResumeFrames sets the frames that match a parser resumed on the sync stack: the top-level
// blocks parsed so far followed by the sync leaf.
func (b *TreeBuilder) ResumeFrames(blocks []tree.Child, sync tree.Child) {
	f := &frame{
		children: blocks,
	}
	if len(blocks) > 0 {
		last := blocks[len(blocks)-1]
		f.start = blocks[0].Start
		f.end = last.Start + b.arena.NodeLen(last.ID)
	}
	end := sync.Start + b.arena.NodeLen(sync.ID)
	b.frames = append(b.frames[:0], f, &frame{
		children: []tree.Child{sync},
		start:    sync.Start,
		end:      end,
	})
	b.lastEnd = end
}

// Frames returns the nodes of every frame on the stack from the bottom up. A parser that
// stopped at a sync token has them as the direct children of the root.
func (b *TreeBuilder) Frames() []tree.Child {
	var cs []tree.Child
	for _, f := range b.frames {
		cs = append(cs, b.materialize(f)...)
	}
	return cs
}

// Root returns the root node after the parser accepted, or a nil ID.
func (b *TreeBuilder) Root() tree.NodeID {
	return b.root
}

// Arena returns the arena the builder allocates nodes in.
func (b *TreeBuilder) Arena() *tree.Arena {
	return b.arena
}

// Shift is an implementation of SemanticActionSet.Shift method.
func (b *TreeBuilder) Shift(tok *scanner.Token, recovered bool) {
	leaf := b.arena.NewLeaf(b.gram.TerminalKind(tok.Terminal), tok.Terminal, tok.End-tok.Start, 0)
	b.push(&frame{
		children: []tree.Child{{ID: leaf, Start: tok.Start}},
		start:    tok.Start,
		end:      tok.End,
	})
	b.lastEnd = tok.End
}

// ShiftMissing is an implementation of SemanticActionSet.ShiftMissing method.
func (b *TreeBuilder) ShiftMissing(terminal int, pos int) {
	leaf := b.arena.NewLeaf(b.gram.TerminalKind(terminal), terminal, 0, tree.FlagMissing)
	b.push(&frame{
		children: []tree.Child{{ID: leaf, Start: pos}},
		start:    pos,
		end:      pos,
	})
}

// Reduce is an implementation of SemanticActionSet.Reduce method.
func (b *TreeBuilder) Reduce(prodNum int, recovered bool) {
	lhs := b.gram.LHS(prodNum)

	// When an alternative is empty, `n` will be 0, and `handle` will be empty slice.
	n := b.gram.AlternativeSymbolCount(prodNum)
	handle := b.pop(n)

	fields := b.gram.Fields(prodNum)
	var children []tree.Child
	for i, f := range handle {
		for _, c := range b.materialize(f) {
			if i < len(fields) && fields[i] != tree.FieldNone {
				c.Field = fields[i]
			}
			children = append(children, c)
		}
	}

	start, end := b.lastEnd, b.lastEnd
	if n > 0 {
		start, end = handle[0].start, handle[n-1].end
	}

	kind, named := b.gram.NonTerminalKind(lhs)
	if !named {
		b.push(&frame{
			children: children,
			start:    start,
			end:      end,
		})
		return
	}
	if lhs == b.gram.RootNonTerminal() {
		start, end = 0, b.srcLen
	}
	node := b.arena.NewNode(kind, lhs, start, end, children)
	b.push(&frame{
		children: []tree.Child{{ID: node, Start: start}},
		start:    start,
		end:      end,
	})
}

// Accept is an implementation of SemanticActionSet.Accept method.
func (b *TreeBuilder) Accept() {
	cs := b.Frames()
	b.frames = b.frames[:0]
	if len(cs) == 1 && b.arena.NodeKind(cs[0].ID) == tree.KindSourceFile {
		b.root = cs[0].ID
		return
	}
	for i := range cs {
		cs[i].Field = tree.FieldNone
	}
	b.root = b.arena.NewNode(tree.KindSourceFile, b.gram.RootNonTerminal(), 0, b.srcLen, cs)
}

// TrapAndShiftError is an implementation of SemanticActionSet.TrapAndShiftError method.
func (b *TreeBuilder) TrapAndShiftError(cause *scanner.Token, popped int) {
	b.push(b.errorFrame(b.pop(popped)))
}

// SkipError is an implementation of SemanticActionSet.SkipError method.
func (b *TreeBuilder) SkipError(tok *scanner.Token) {
	var leaf tree.NodeID
	if tok.Invalid {
		leaf = b.arena.NewLeaf(tree.KindError, 0, tok.End-tok.Start, 0)
	} else {
		leaf = b.arena.NewLeaf(b.gram.TerminalKind(tok.Terminal), tok.Terminal, tok.End-tok.Start, 0)
	}
	c := tree.Child{ID: leaf, Start: tok.Start}
	b.lastEnd = tok.End

	if len(b.frames) == 0 {
		b.push(&frame{
			children: []tree.Child{c},
			start:    tok.Start,
			end:      tok.End,
			err:      true,
		})
		return
	}

	top := b.frames[len(b.frames)-1]
	if !top.err {
		// The error state consumed a token after shifting one, so the skipped token gets an
		// ERROR node of its own.
		c = tree.Child{
			ID:    b.arena.NewNode(tree.KindError, 0, tok.Start, tok.End, []tree.Child{c}),
			Start: tok.Start,
		}
	} else if len(top.children) == 0 {
		top.start = tok.Start
	}
	top.children = append(top.children, c)
	top.end = tok.End
}

// MissError is an implementation of SemanticActionSet.MissError method.
func (b *TreeBuilder) MissError(cause *scanner.Token) {
	b.frames = []*frame{b.errorFrame(b.pop(len(b.frames)))}
}

// errorFrame merges frames into one error frame. Nested errors become part of the new one.
func (b *TreeBuilder) errorFrame(fs []*frame) *frame {
	ef := &frame{
		start: b.lastEnd,
		end:   b.lastEnd,
		err:   true,
	}
	if len(fs) > 0 {
		ef.start, ef.end = fs[0].start, fs[len(fs)-1].end
	}
	for _, f := range fs {
		for _, c := range f.children {
			if !f.err && b.arena.NodeKind(c.ID) == tree.KindError && !b.isLeafError(c) {
				ef.children = append(ef.children, b.arena.Children(c.ID, c.Start)...)
				continue
			}
			c.Field = tree.FieldNone
			ef.children = append(ef.children, c)
		}
	}
	return ef
}

// isLeafError reports whether c is an ERROR leaf standing for invalid bytes.
func (b *TreeBuilder) isLeafError(c tree.Child) bool {
	return len(b.arena.Children(c.ID, c.Start)) == 0
}

// materialize returns the nodes of a frame, wrapping an error frame in an ERROR node.
func (b *TreeBuilder) materialize(f *frame) []tree.Child {
	if !f.err {
		return f.children
	}
	node := b.arena.NewNode(tree.KindError, 0, f.start, f.end, f.children)
	return []tree.Child{{ID: node, Start: f.start}}
}

func (b *TreeBuilder) push(f *frame) {
	b.frames = append(b.frames, f)
}

func (b *TreeBuilder) pop(n int) []*frame {
	fs := b.frames[len(b.frames)-n:]
	b.frames = b.frames[:len(b.frames)-n]

	return fs
}
