package parser

import "github.com/louiss0/tree-sitter-markdoc/driver/scanner"

// TokenStream feeds tokens to a parser. After the last token, Next returns an EOF token.
type TokenStream interface {
	Next() (*scanner.Token, error)
}

var _ TokenStream = &scanner.Scanner{}

// sliceTokenStream replays a fixed list of tokens, then EOF tokens.
type sliceTokenStream struct {
	toks []*scanner.Token
	eof  int
	end  int
}

// NewSliceTokenStream returns a stream of toks followed by EOF tokens of the terminal eof.
func NewSliceTokenStream(toks []*scanner.Token, eof int) TokenStream {
	return &sliceTokenStream{
		toks: toks,
		eof:  eof,
	}
}

func (s *sliceTokenStream) Next() (*scanner.Token, error) {
	if len(s.toks) == 0 {
		return &scanner.Token{
			Terminal: s.eof,
			Start:    s.end,
			End:      s.end,
		}, nil
	}
	tok := s.toks[0]
	s.toks = s.toks[1:]
	s.end = tok.End
	return tok, nil
}
