package lsp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

const testURI = "file:///doc.md"

type notifications struct {
	diags []protocol.PublishDiagnosticsParams
}

func (ns *notifications) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != protocol.ServerTextDocumentPublishDiagnostics {
				return
			}
			ns.diags = append(ns.diags, params.(protocol.PublishDiagnosticsParams))
		},
	}
}

func (ns *notifications) last(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NotEmpty(t, ns.diags)
	return ns.diags[len(ns.diags)-1]
}

func newTestServer(t *testing.T) (*Server, *markdoc.Language) {
	t.Helper()
	lang, err := markdoc.Load()
	require.NoError(t, err)
	return NewServer(lang, "markdoc", "test"), lang
}

func openDoc(t *testing.T, s *Server, ns *notifications, text string) {
	t.Helper()
	err := s.textDocumentDidOpen(ns.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        testURI,
			LanguageID: "markdoc",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
}

func pos(line, char protocol.UInteger) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func ranged(start, end protocol.Position, text string) protocol.TextDocumentContentChangeEvent {
	return protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{Start: start, End: end},
		Text:  text,
	}
}

func TestServer_DidOpen(t *testing.T) {
	tests := []struct {
		caption  string
		text     string
		severity []protocol.DiagnosticSeverity
	}{
		{
			caption: "a valid document",
			text:    "# Title\n\nHello {{ $name }}\n",
		},
		{
			caption:  "an unterminated expression",
			text:     "Hello {{ $name\n",
			severity: []protocol.DiagnosticSeverity{protocol.DiagnosticSeverityError},
		},
		{
			caption: "valid frontmatter",
			text:    "---\ntitle: x\n---\n\nHi\n",
		},
		{
			caption:  "frontmatter that is not YAML",
			text:     "---\ntitle: [x\n---\n\nHi\n",
			severity: []protocol.DiagnosticSeverity{protocol.DiagnosticSeverityWarning},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			s, _ := newTestServer(t)
			ns := &notifications{}
			openDoc(t, s, ns, tt.text)

			p := ns.last(t)
			assert.Equal(t, testURI, p.URI)
			require.NotNil(t, p.Version)
			assert.Equal(t, protocol.UInteger(1), *p.Version)
			var severity []protocol.DiagnosticSeverity
			for _, d := range p.Diagnostics {
				require.NotNil(t, d.Severity)
				severity = append(severity, *d.Severity)
				assert.Equal(t, diagnosticSource, *d.Source)
			}
			assert.Equal(t, tt.severity, severity)
		})
	}
}

func TestServer_MissingDiagnostic(t *testing.T) {
	s, _ := newTestServer(t)
	ns := &notifications{}
	openDoc(t, s, ns, "Hello {{ $name\n")

	diags := ns.last(t).Diagnostics
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "missing")
	assert.Equal(t, diags[0].Range.Start, diags[0].Range.End)
	assert.Equal(t, protocol.UInteger(0), diags[0].Range.Start.Line)
}

func TestServer_DidChange(t *testing.T) {
	tests := []struct {
		caption string
		text    string
		changes []any
		want    string
	}{
		{
			caption: "a replacement",
			text:    "# Title\n\nHello world\n",
			changes: []any{
				ranged(pos(2, 6), pos(2, 11), "there"),
			},
			want: "# Title\n\nHello there\n",
		},
		{
			caption: "edits applied in order",
			text:    "a\n\nb\n",
			changes: []any{
				ranged(pos(0, 0), pos(0, 0), "- "),
				ranged(pos(2, 1), pos(2, 1), " {{ 1 + 2 }}"),
				ranged(pos(3, 0), pos(3, 0), "\n{% t %}\nc\n{% /t %}\n"),
			},
			want: "- a\n\nb {{ 1 + 2 }}\n\n{% t %}\nc\n{% /t %}\n",
		},
		{
			caption: "a deletion across lines",
			text:    "one\n\ntwo\n\nthree\n",
			changes: []any{
				ranged(pos(0, 3), pos(2, 3), ""),
			},
			want: "one\n\nthree\n",
		},
		{
			caption: "a whole replacement between edits",
			text:    "a\n",
			changes: []any{
				ranged(pos(0, 1), pos(0, 1), "b"),
				protocol.TextDocumentContentChangeEventWhole{Text: "# x\n"},
				ranged(pos(1, 0), pos(1, 0), "- y\n"),
			},
			want: "# x\n- y\n",
		},
		{
			caption: "characters outside the basic multilingual plane",
			text:    "😀 a\n\nb\n",
			changes: []any{
				ranged(pos(0, 3), pos(0, 4), "*c*"),
			},
			want: "😀 *c*\n\nb\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			s, lang := newTestServer(t)
			ns := &notifications{}
			openDoc(t, s, ns, tt.text)

			err := s.textDocumentDidChange(ns.context(), &protocol.DidChangeTextDocumentParams{
				TextDocument: protocol.VersionedTextDocumentIdentifier{
					TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
					Version:                2,
				},
				ContentChanges: tt.changes,
			})
			require.NoError(t, err)

			doc, ok := s.Document(testURI)
			require.True(t, ok)
			assert.Equal(t, tt.want, string(doc.Text))
			assert.Equal(t, protocol.Integer(2), doc.Version)

			fresh, err := lang.Parse([]byte(tt.want))
			require.NoError(t, err)
			if !tree.Equal(fresh.Tree, doc.Result.Tree) {
				t.Fatalf("the reparsed tree differs from a fresh parse: %v", tree.FirstDifference(fresh.Tree, doc.Result.Tree))
			}
			assert.Equal(t, protocol.UInteger(2), *ns.last(t).Version)
		})
	}
}

func TestServer_DidChange_NotOpen(t *testing.T) {
	s, _ := newTestServer(t)
	ns := &notifications{}
	err := s.textDocumentDidChange(ns.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{ranged(pos(0, 0), pos(0, 0), "a")},
	})
	assert.Error(t, err)
	assert.Empty(t, ns.diags)
}

func TestServer_DidClose(t *testing.T) {
	s, _ := newTestServer(t)
	ns := &notifications{}
	openDoc(t, s, ns, "Hello {{ $name\n")
	require.Len(t, ns.last(t).Diagnostics, 1)
	assert.Equal(t, []string{testURI}, s.docs.uris())

	err := s.textDocumentDidClose(ns.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	_, ok := s.Document(testURI)
	assert.False(t, ok)
	assert.Empty(t, ns.last(t).Diagnostics)
	assert.Empty(t, s.docs.uris())
}

func TestServer_Hover(t *testing.T) {
	s, _ := newTestServer(t)
	ns := &notifications{}
	openDoc(t, s, ns, "# Title\n\n- a\n")

	h, err := s.textDocumentHover(ns.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     pos(2, 2),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, h)
	content, ok := h.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, "`source_file > list > list_item > list_paragraph > text`", content.Value)
	want := &protocol.Range{Start: pos(2, 2), End: pos(2, 3)}
	if diff := cmp.Diff(want, h.Range); diff != "" {
		t.Fatalf("unexpected range (-want +got):\n%v", diff)
	}
}
