package driver

import (
	"github.com/louiss0/tree-sitter-markdoc/driver/parser"
	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
)

// reachStream passes the tokens of a scanner through and remembers how far the scanner looked
// to produce them.
type reachStream struct {
	s     *scanner.Scanner
	reach int
	count int
}

var _ parser.TokenStream = &reachStream{}

func (r *reachStream) Next() (*scanner.Token, error) {
	tok, err := r.s.Next()
	if err != nil {
		return nil, err
	}
	if tok.Reach > r.reach {
		r.reach = tok.Reach
	}
	r.count++
	return tok, nil
}
