package lsp

import (
	"sync"

	"github.com/tidwall/btree"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/louiss0/tree-sitter-markdoc"
)

// Document is an open text document and its latest parse.
type Document struct {
	URI     string
	Version protocol.Integer
	Text    []byte
	Result  *markdoc.Result
}

// documents holds the open documents ordered by URI. A zero value is ready to use.
type documents struct {
	mu   sync.Mutex
	docs btree.Map[string, *Document]
}

func (ds *documents) get(uri string) (*Document, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.docs.Get(uri)
}

func (ds *documents) put(doc *Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs.Set(doc.URI, doc)
}

func (ds *documents) remove(uri string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	_, ok := ds.docs.Delete(uri)
	return ok
}

// uris returns the URIs of the open documents in order.
func (ds *documents) uris() []string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var uris []string
	ds.docs.Scan(func(uri string, _ *Document) bool {
		uris = append(uris, uri)
		return true
	})
	return uris
}
