// Package incremental updates a parsed document after edits by re-parsing only the region
// around the edits. The result is identical to a parse of the new text from scratch.
package incremental

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

var log = commonlog.GetLogger("markdoc.incremental")

// Invalidate validates edits against the text of a document and merges them.
func Invalidate(old *driver.Document, edits []Edit) (*Invalidation, error) {
	return merge(len(old.Tree.Source()), edits)
}

// Reparse is Invalidate followed by ReparseInvalidated.
func Reparse(g *driver.Grammar, old *driver.Document, edits []Edit, newText []byte, opts ...driver.ParseOption) (*driver.Document, error) {
	inv, err := Invalidate(old, edits)
	if err != nil {
		return nil, err
	}
	return ReparseInvalidated(g, old, inv, newText, opts...)
}

// ReparseInvalidated parses newText reusing the parts of old that the edits cannot affect. The
// old document stays valid.
func ReparseInvalidated(g *driver.Grammar, old *driver.Document, inv *Invalidation, newText []byte, opts ...driver.ParseOption) (*driver.Document, error) {
	oldLen := len(old.Tree.Source())
	if inv.OldLength != oldLen {
		return nil, fmt.Errorf("%w: the edits are for a text of %v bytes, but the document has %v", ErrInvalidEdit, inv.OldLength, oldLen)
	}
	if len(newText) != inv.NewLength {
		return nil, fmt.Errorf("%w: the edits produce a text of %v bytes, but the new text has %v", ErrInvalidEdit, inv.NewLength, len(newText))
	}

	e := inv.Edit
	delta := e.Delta()
	newEnd := e.NewEnd()

	children := old.Tree.RootChildren()
	sync := g.Parser().SyncTerminal()

	from, fromIdx, ok := restartPoint(old, children, sync, e.Start)
	if !ok {
		log.Debugf("no sync point precedes the edit %v; parsing from scratch", e)
		return g.Parse(newText, opts...)
	}

	oldSyncs := make(map[int]int, len(old.SyncPoints))
	for i, sp := range old.SyncPoints {
		oldSyncs[sp.Offset] = i
	}
	stopIdx := -1
	var stopAt driver.SyncPoint
	stop := func(sp driver.SyncPoint) bool {
		if sp.Offset < newEnd {
			return false
		}
		i, ok := oldSyncs[sp.Offset-delta]
		if !ok || !bytes.Equal(old.SyncPoints[i].Snapshot, sp.Snapshot) {
			return false
		}
		idx := sepIndex(old.Tree, children, sync, sp.Offset-delta)
		if idx < 0 {
			return false
		}
		stopIdx = idx
		stopAt = old.SyncPoints[i]
		return true
	}

	part, err := g.Resume(newText, &driver.Resumption{
		Arena:  old.Tree.Arena().Fork(),
		From:   from,
		Blocks: children[:fromIdx],
		Sep:    children[fromIdx],
		Stop:   stop,
	}, opts...)
	if err != nil {
		return nil, err
	}

	doc := &driver.Document{}
	for _, sp := range old.SyncPoints {
		if sp.Offset > from.Offset {
			break
		}
		doc.SyncPoints = append(doc.SyncPoints, sp)
	}
	doc.SyncPoints = append(doc.SyncPoints, part.SyncPoints...)
	for _, synErr := range old.Errors {
		if synErr.Offset < from.Offset {
			doc.Errors = append(doc.Errors, synErr)
		}
	}
	doc.Errors = append(doc.Errors, part.Errors...)

	if !part.Stopped() {
		doc.Tree = tree.New(part.Arena, part.Root, g.Symbols(), newText)
		log.Debugf("re-parsed %v from %v to the end: %v tokens", e, from.Offset, part.Tokens)
		return doc, nil
	}

	rs := part.Children
	for _, c := range children[stopIdx+1:] {
		c.Start += delta
		rs = append(rs, c)
	}
	root := part.Arena.NewNode(tree.KindSourceFile, g.Parser().RootNonTerminal(), 0, len(newText), rs)
	doc.Tree = tree.New(part.Arena, root, g.Symbols(), newText)

	stopReach := part.SyncPoints[len(part.SyncPoints)-1].Reach
	for _, sp := range old.SyncPoints {
		if sp.Offset <= stopAt.Offset {
			continue
		}
		sp = sp.Shift(delta)
		if sp.Reach < stopReach {
			sp.Reach = stopReach
		}
		doc.SyncPoints = append(doc.SyncPoints, sp)
	}
	for _, synErr := range old.Errors {
		if synErr.Offset >= stopAt.Offset {
			doc.Errors = append(doc.Errors, synErr.Shift(delta))
		}
	}

	log.Debugf("re-parsed %v from %v to %v: %v tokens, reused %v of %v root children",
		e, from.Offset, stopAt.Offset+delta, part.Tokens, fromIdx+1+len(children)-stopIdx-1, len(children))

	return doc, nil
}

// restartPoint finds the last sync point at or before off whose tokens never looked at off or
// beyond, and the index of its separator among the root children.
func restartPoint(old *driver.Document, children []tree.Child, sync int, off int) (driver.SyncPoint, int, bool) {
	for i := len(old.SyncPoints) - 1; i >= 0; i-- {
		sp := old.SyncPoints[i]
		if sp.Offset > off || sp.Reach > off {
			continue
		}
		idx := sepIndex(old.Tree, children, sync, sp.Offset)
		if idx < 0 {
			continue
		}
		return sp, idx, true
	}
	return driver.SyncPoint{}, 0, false
}

// sepIndex returns the index of the root child that is a separator ending at off, or -1.
func sepIndex(t *tree.Tree, children []tree.Child, sync int, off int) int {
	i := sort.Search(len(children), func(i int) bool {
		return children[i].Start >= off
	}) - 1
	if i < 0 {
		return -1
	}
	n := t.Root().Child(i)
	if !n.IsLeaf() || n.Symbol() != sync || n.End() != off {
		return -1
	}
	return i
}
