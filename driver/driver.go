// Package driver runs the scanner and the parser over a document and records the points at
// which an incremental parse may resume.
package driver

import (
	"github.com/tliron/commonlog"

	"github.com/louiss0/tree-sitter-markdoc/driver/parser"
	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

var log = commonlog.GetLogger("markdoc.driver")

// SyncPoint is a top-level block start following a separator the parser shifted outside of
// error recovery. The scanner state and the parser state stack there are known, so a parse can
// resume from it.
type SyncPoint struct {
	// Offset is the end of the separator.
	Offset int

	// Snapshot is the serialized scanner state at Offset.
	Snapshot []byte

	// Reach is one past the last byte the scanner examined to produce every token up to Offset.
	Reach int
}

// Shift returns the sync point moved by delta bytes.
func (sp SyncPoint) Shift(delta int) SyncPoint {
	return SyncPoint{
		Offset:   sp.Offset + delta,
		Snapshot: sp.Snapshot,
		Reach:    sp.Reach + delta,
	}
}

// Document is a parsed source text.
type Document struct {
	Tree       *tree.Tree
	SyncPoints []SyncPoint
	Errors     []*parser.SyntaxError
}

type parseConfig struct {
	disableLAC bool
}

// ParseOption changes how a document is parsed.
type ParseOption func(c *parseConfig)

// DisableLAC turns lookahead correction off. Syntax errors are then detected after the
// reductions a lookahead triggers rather than before them.
func DisableLAC() ParseOption {
	return func(c *parseConfig) {
		c.disableLAC = true
	}
}

// Parse parses a whole source text.
func (g *Grammar) Parse(src []byte, opts ...ParseOption) (*Document, error) {
	part, err := g.Resume(src, nil, opts...)
	if err != nil {
		return nil, err
	}
	return &Document{
		Tree:       tree.New(part.Arena, part.Root, g.syms, src),
		SyncPoints: part.SyncPoints,
		Errors:     part.Errors,
	}, nil
}

// Resumption describes how a parse continues a previous one.
type Resumption struct {
	// Arena receives the new nodes. It holds the nodes of Blocks and Sep.
	Arena *tree.Arena

	// From is the sync point the parse starts at.
	From SyncPoint

	// Blocks are the root children before the separator ending at From.Offset, and Sep is that
	// separator.
	Blocks []tree.Child
	Sep    tree.Child

	// Stop is called at every sync point the parse passes. When it returns true, the parse
	// stops there.
	Stop func(sp SyncPoint) bool
}

// Partial is the outcome of a parse that may have resumed or stopped at a sync point.
type Partial struct {
	Arena *tree.Arena

	// Root is the root node when the parse reached the end of the input. It is nil when the
	// parse stopped.
	Root tree.NodeID

	// Children are the root children up to and including the separator the parse stopped at.
	Children []tree.Child

	SyncPoints []SyncPoint
	Errors     []*parser.SyntaxError

	// Tokens is the number of tokens the scanner produced.
	Tokens int
}

// Stopped reports whether the parse stopped at a sync point before the end of the input.
func (p *Partial) Stopped() bool {
	return p.Root.Nil()
}

// Resume parses src from a sync point of a previous parse, or from the beginning when r is nil.
func (g *Grammar) Resume(src []byte, r *Resumption, opts ...ParseOption) (*Partial, error) {
	c := &parseConfig{}
	for _, opt := range opts {
		opt(c)
	}

	arena := &tree.Arena{}
	offset, reach := 0, 0
	var snapshot []byte
	if r != nil {
		arena = r.Arena
		offset = r.From.Offset
		snapshot = r.From.Snapshot
		reach = r.From.Reach
	}

	s, err := scanner.New(g.tabs, src, offset, snapshot)
	if err != nil {
		return nil, err
	}
	toks := &reachStream{
		s:     s,
		reach: reach,
	}
	tb := parser.NewTreeBuilder(g.gram, arena, len(src))

	var syncs []SyncPoint
	pOpts := []parser.ParserOption{
		parser.SemanticAction(tb),
		parser.OnSync(func(tok *scanner.Token) bool {
			if tok.Snapshot == nil {
				return false
			}
			sp := SyncPoint{
				Offset:   tok.End,
				Snapshot: tok.Snapshot,
				Reach:    toks.reach,
			}
			syncs = append(syncs, sp)
			return r != nil && r.Stop != nil && r.Stop(sp)
		}),
	}
	if c.disableLAC {
		pOpts = append(pOpts, parser.DisableLAC())
	}
	if r != nil {
		tb.ResumeFrames(r.Blocks, r.Sep)
		pOpts = append(pOpts, parser.ResumeStack(parser.SyncStack(g.gram)))
	}

	p, err := parser.NewParser(toks, g.gram, pOpts...)
	if err != nil {
		return nil, err
	}
	err = p.Parse()
	if err != nil {
		return nil, err
	}

	part := &Partial{
		Arena:      arena,
		SyncPoints: syncs,
		Errors:     p.SyntaxErrors(),
		Tokens:     toks.count,
	}
	if p.Stopped() != nil {
		part.Children = tb.Frames()
	} else {
		part.Root = tb.Root()
	}

	log.Debugf("parsed from %v of %v bytes: %v tokens, %v sync points, %v syntax errors, stopped: %v",
		offset, len(src), part.Tokens, len(syncs), len(part.Errors), part.Stopped())

	return part, nil
}
