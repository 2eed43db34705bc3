package scanner

import (
	"bytes"

	mldriver "github.com/nihei9/maleeni/driver"
)

// interior tokenizes the inside of a tag or an expression with the lexer compiled from the
// grammar's lexical productions.
func (s *Scanner) interior(a, b int, tag bool) ([]*Token, error) {
	if a >= b {
		return nil, nil
	}
	lex, err := mldriver.NewLexer(s.tabs.lexSpec, bytes.NewReader(s.src[a:b]))
	if err != nil {
		return nil, err
	}
	var toks []*Token
	pos := a
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF {
			break
		}
		start := pos
		pos += len(tok.Lexeme)
		if tok.Invalid {
			toks = append(toks, &Token{Start: start, End: pos, Invalid: true})
			continue
		}
		if s.tabs.skip[tok.KindID] > 0 {
			continue
		}
		toks = append(toks, &Token{
			Terminal: s.tabs.kindToTerm[tok.KindID],
			Start:    start,
			End:      pos,
		})
	}
	return s.rekind(toks, tag), nil
}

// rekind assigns the terminals that depend on context rather than on the text of a token.
func (s *Scanner) rekind(toks []*Token, tag bool) []*Token {
	t := s.t
	if tag {
		if len(toks) > 0 && s.is(toks[0], t.identifier) {
			end := s.hyphenRun(toks, 0)
			if end >= len(toks) || !s.isAccessor(toks[end]) {
				toks = s.merge(toks, 0, end, t.tagName)
			}
		}
		for i := 0; i < len(toks); i++ {
			if !s.is(toks[i], t.identifier) {
				continue
			}
			end := s.hyphenRun(toks, i)
			if end < len(toks) && s.is(toks[end], t.equal) {
				toks = s.merge(toks, i, end, t.attrName)
			}
		}
	}

	for i, tok := range toks {
		if i > 0 && s.isOperand(toks[i-1]) {
			continue
		}
		switch {
		case s.is(tok, t.binaryAdd):
			tok.Terminal = t.unaryPlus
		case s.is(tok, t.binarySubtract):
			tok.Terminal = t.unaryMinus
		}
	}

	for i, tok := range toks {
		if !s.is(tok, t.lparen) {
			continue
		}
		depth := 0
		for j := i + 1; j < len(toks); j++ {
			switch {
			case s.is(toks[j], t.lparen) || s.is(toks[j], t.arrowOpen):
				depth++
				continue
			case !s.is(toks[j], t.rparen):
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			if j+1 < len(toks) && s.is(toks[j+1], t.arrow) {
				tok.Terminal = t.arrowOpen
			}
			break
		}
	}
	return toks
}

func (s *Scanner) is(tok *Token, term int) bool {
	return !tok.Invalid && tok.Terminal == term
}

// hyphenRun returns the index following a run name-name-... that starts at i, where the parts
// touch each other.
func (s *Scanner) hyphenRun(toks []*Token, i int) int {
	j := i + 1
	for j+1 < len(toks) &&
		s.is(toks[j], s.t.binarySubtract) && toks[j].Start == toks[j-1].End &&
		s.is(toks[j+1], s.t.identifier) && toks[j+1].Start == toks[j].End {
		j += 2
	}
	return j
}

// merge replaces toks[i:end] with one token of the terminal term.
func (s *Scanner) merge(toks []*Token, i, end int, term int) []*Token {
	toks[i].Terminal = term
	toks[i].End = toks[end-1].End
	return append(toks[:i+1], toks[end:]...)
}

func (s *Scanner) isAccessor(tok *Token) bool {
	return s.is(tok, s.t.lparen) || s.is(tok, s.t.dot) || s.is(tok, s.t.lbracket)
}

func (s *Scanner) isOperand(tok *Token) bool {
	if tok.Invalid {
		return false
	}
	switch tok.Terminal {
	case s.t.identifier, s.t.str, s.t.number, s.t.null, s.t.trueLit, s.t.falseLit, s.t.rparen, s.t.rbracket, s.t.rbrace:
		return true
	}
	return false
}
