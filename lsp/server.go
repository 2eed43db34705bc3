// Package lsp serves Markdoc documents over the Language Server Protocol. Documents are synced
// incrementally: every change is turned into byte edits and the previous tree is reparsed.
package lsp

import (
	"fmt"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/incremental"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

var log = commonlog.GetLogger("markdoc.lsp")

type Server struct {
	lang    *markdoc.Language
	name    string
	version string
	opts    []driver.ParseOption
	docs    documents
	handler protocol.Handler
	server  *server.Server
}

func NewServer(lang *markdoc.Language, name, version string, opts ...driver.ParseOption) *Server {
	s := &Server{
		lang:    lang,
		name:    name,
		version: version,
		opts:    opts,
	}
	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		SetTrace:              s.setTrace,
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
		TextDocumentHover:     s.textDocumentHover,
	}
	s.server = server.NewServer(&s.handler, name, false)
	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

// Document returns an open document.
func (s *Server) Document(uri string) (*Document, bool) {
	return s.docs.get(uri)
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	openClose := true
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
	}
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc, err := s.open(params.TextDocument.URI, params.TextDocument.Version, []byte(params.TextDocument.Text))
	if err != nil {
		return err
	}
	s.publish(ctx, doc)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, err := s.change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		return err
	}
	s.publish(ctx, doc)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	if s.docs.remove(params.TextDocument.URI) {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	return nil
}

// textDocumentHover shows the path of named nodes from the root to the innermost one under the
// cursor.
func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	n, path := nodePath(doc.Result.Tree.Root(), offsetAt(doc.Text, params.Position))
	r := rangeOf(doc.Text, n.Start(), n.End())
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("`%v`", path),
		},
		Range: &r,
	}, nil
}

func nodePath(root tree.Node, off int) (tree.Node, string) {
	path := root.Type()
	cur := root
	for {
		next := tree.Node{}
		for _, c := range cur.NamedChildren() {
			if c.Start() <= off && off < c.End() {
				next = c
				break
			}
		}
		if next.IsNil() {
			return cur, path
		}
		path += " > " + next.Type()
		cur = next
	}
}

func (s *Server) open(uri string, version protocol.Integer, text []byte) (*Document, error) {
	res, err := s.lang.Parse(text, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %v: %w", uri, err)
	}
	doc := &Document{
		URI:     uri,
		Version: version,
		Text:    text,
		Result:  res,
	}
	s.docs.put(doc)
	log.Debugf("opened %v (version %v, %v bytes)", uri, version, len(text))
	return doc, nil
}

// change applies content changes in order. Ranged changes become byte edits that reparse the
// previous tree; a change without a range replaces the whole text.
func (s *Server) change(uri string, version protocol.Integer, changes []any) (*Document, error) {
	old, ok := s.docs.get(uri)
	if !ok {
		return nil, fmt.Errorf("%v is not open", uri)
	}
	text := old.Text
	res := old.Result
	var edits []incremental.Edit
	for _, c := range changes {
		var whole *string
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				whole = &c.Text
				break
			}
			text, edits = applyChange(text, edits, *c.Range, c.Text)
		case protocol.TextDocumentContentChangeEventWhole:
			whole = &c.Text
		default:
			return nil, fmt.Errorf("unsupported content change: %T", c)
		}
		if whole != nil {
			text = []byte(*whole)
			edits = nil
			r, err := s.lang.Parse(text, s.opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %v: %w", uri, err)
			}
			res = r
		}
	}
	if len(edits) > 0 {
		r, err := s.lang.Reparse(res, edits, text, s.opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to reparse %v: %w", uri, err)
		}
		res = r
	}
	doc := &Document{
		URI:     uri,
		Version: version,
		Text:    text,
		Result:  res,
	}
	s.docs.put(doc)
	log.Debugf("changed %v (version %v, %v edits)", uri, version, len(edits))
	return doc, nil
}

// applyChange replaces a range of text and records the replacement as an edit of the text
// the previous edits produced.
func applyChange(text []byte, edits []incremental.Edit, r protocol.Range, newText string) ([]byte, []incremental.Edit) {
	start := offsetAt(text, r.Start)
	end := offsetAt(text, r.End)
	if end < start {
		start, end = end, start
	}
	next := make([]byte, 0, len(text)-(end-start)+len(newText))
	next = append(next, text[:start]...)
	next = append(next, newText...)
	next = append(next, text[end:]...)
	return next, append(edits, incremental.Edit{
		Start:     start,
		End:       end,
		NewLength: len(newText),
	})
}

func (s *Server) publish(ctx *glsp.Context, doc *Document) {
	version := protocol.UInteger(doc.Version)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: Diagnostics(doc),
	})
}
