package scanner

import (
	"bytes"
	"unicode/utf8"
)

// inlineFunc tries to recognize an inline construct at i within the line segment [a, e). It
// returns the tokens of the construct and the offset following it. When it returns no tokens
// but next > i, the bytes [i, next) are plain text.
type inlineFunc func(s *Scanner, a, i, e int) (toks []*Token, next int, err error)

var inlineFuncs = map[byte]inlineFunc{
	'{': (*Scanner).braces,
	'`': (*Scanner).codeSpan,
	'!': (*Scanner).image,
	'[': (*Scanner).link,
	'<': (*Scanner).htmlInline,
	'*': (*Scanner).emphasis,
	'_': (*Scanner).emphasis,
}

// inlines tokenizes the inline content [a, e) of one line. a and e are not whitespace.
func (s *Scanner) inlines(a, e int) ([]*Token, error) {
	var toks []*Token
	textStart := -1
	flush := func(end int) {
		if textStart < 0 {
			return
		}
		st := s.skipSpace(textStart, end)
		en := s.trimRight(st, end)
		if en > st {
			toks = append(toks, &Token{Terminal: s.t.text, Start: st, End: en})
		}
		textStart = -1
	}

	for i := a; i < e; {
		c := s.src[i]
		if c == '\\' {
			if textStart < 0 {
				textStart = i
			}
			i++
			if i < e && isPunct(s.src[i]) {
				i++
			}
			continue
		}
		if f, ok := inlineFuncs[c]; ok {
			ts, next, err := f(s, a, i, e)
			if err != nil {
				return nil, err
			}
			if len(ts) > 0 {
				flush(i)
				toks = append(toks, ts...)
				i = next
				continue
			}
			if next > i {
				if textStart < 0 {
					textStart = i
				}
				i = next
				continue
			}
		}
		r, size := utf8.DecodeRune(s.src[i:e])
		if r == utf8.RuneError && size <= 1 {
			flush(i)
			toks = append(toks, &Token{Start: i, End: i + 1, Invalid: true})
			i++
			continue
		}
		if textStart < 0 {
			textStart = i
		}
		i += size
	}
	flush(e)
	return toks, nil
}

func isPunct(c byte) bool {
	return c >= '!' && c <= '/' || c >= ':' && c <= '@' || c >= '[' && c <= '`' || c >= '{' && c <= '~'
}

// findCloser returns the offset of the first closer in [i, e) outside of quotes and braces, or
// -1.
func (s *Scanner) findCloser(i, e int, closer string) int {
	depth := 0
	for i < e {
		c := s.src[i]
		switch {
		case depth == 0 && bytes.HasPrefix(s.src[i:e], []byte(closer)):
			return i
		case c == '"' || c == '\'':
			i++
			for i < e && s.src[i] != c {
				if s.src[i] == '\\' {
					i++
				}
				i++
			}
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		}
		i++
	}
	return -1
}

// braces recognizes {{ }} expressions and {% %} tags. An unterminated one runs to the end of
// the line without a closer.
func (s *Scanner) braces(a, i, e int) ([]*Token, int, error) {
	if i+1 >= e {
		return nil, i, nil
	}
	switch s.src[i+1] {
	case '{':
		return s.expression(i, e)
	case '%':
		return s.inlineTag(i, e)
	}
	return nil, i, nil
}

func (s *Scanner) expression(i, e int) ([]*Token, int, error) {
	k := s.findCloser(i+2, e, "}}")
	end := e
	if k >= 0 {
		end = k
	}
	in, err := s.interior(i+2, end, false)
	if err != nil {
		return nil, 0, err
	}
	toks := make([]*Token, 0, len(in)+2)
	toks = append(toks, &Token{Terminal: s.t.exprOpen, Start: i, End: i + 2})
	toks = append(toks, in...)
	if k < 0 {
		return toks, e, nil
	}
	return append(toks, &Token{Terminal: s.t.exprClose, Start: k, End: k + 2}), k + 2, nil
}

func (s *Scanner) inlineTag(i, e int) ([]*Token, int, error) {
	k := s.findCloser(i+2, e, "%}")

	var open *Token
	from := i + 2
	if j := s.skipSpace(i+2, e); j < e && s.src[j] == '/' {
		open = &Token{Terminal: s.t.tagEndOpen, Start: i, End: j + 1}
		from = j + 1
	} else {
		open = &Token{Terminal: s.t.tagOpen, Start: i, End: i + 2}
	}

	var closer *Token
	to, next := e, e
	if k >= 0 {
		to, next = k, k+2
		closer = &Token{Terminal: s.t.tagClose, Start: k, End: k + 2}
		if open.Terminal == s.t.tagOpen && k-1 >= from && s.src[k-1] == '/' {
			to = k - 1
			closer = &Token{Terminal: s.t.selfClose, Start: k - 1, End: k + 2}
		}
	}

	in, err := s.interior(from, to, true)
	if err != nil {
		return nil, 0, err
	}
	toks := make([]*Token, 0, len(in)+2)
	toks = append(toks, open)
	toks = append(toks, in...)
	if closer != nil {
		toks = append(toks, closer)
	}
	return toks, next, nil
}

func (s *Scanner) codeSpan(a, i, e int) ([]*Token, int, error) {
	if n := s.run(i, e, '`'); n > 1 {
		return nil, i + n, nil
	}
	k := bytes.IndexByte(s.src[i+1:e], '`')
	if k <= 0 {
		return nil, i + 1, nil
	}
	c := i + 1 + k
	if s.run(c, e, '`') > 1 {
		return nil, i + 1, nil
	}
	return []*Token{
		{Terminal: s.t.backtick, Start: i, End: i + 1},
		{Terminal: s.t.codeSpan, Start: i + 1, End: c},
		{Terminal: s.t.backtick, Start: c, End: c + 1},
	}, c + 1, nil
}

// linkParts finds the ] and the parenthesized destination following a bracketed text that
// starts at i. Both the text and the destination must be non-empty.
func (s *Scanner) linkParts(i, e int) (rb, rp int, ok bool) {
	k := bytes.IndexByte(s.src[i:e], ']')
	if k <= 0 {
		return 0, 0, false
	}
	rb = i + k
	if rb+1 >= e || s.src[rb+1] != '(' {
		return 0, 0, false
	}
	k = bytes.IndexByte(s.src[rb+2:e], ')')
	if k <= 0 {
		return 0, 0, false
	}
	return rb, rb + 2 + k, true
}

func (s *Scanner) image(a, i, e int) ([]*Token, int, error) {
	if i+1 >= e || s.src[i+1] != '[' {
		return nil, i, nil
	}
	rb, rp, ok := s.linkParts(i+2, e)
	if !ok {
		return nil, i, nil
	}
	return []*Token{
		{Terminal: s.t.imgOpen, Start: i, End: i + 2},
		{Terminal: s.t.imageAlt, Start: i + 2, End: rb},
		{Terminal: s.t.rbracket, Start: rb, End: rb + 1},
		{Terminal: s.t.lparen, Start: rb + 1, End: rb + 2},
		{Terminal: s.t.imageDest, Start: rb + 2, End: rp},
		{Terminal: s.t.rparen, Start: rp, End: rp + 1},
	}, rp + 1, nil
}

func (s *Scanner) link(a, i, e int) ([]*Token, int, error) {
	rb, rp, ok := s.linkParts(i+1, e)
	if !ok {
		return nil, i, nil
	}
	return []*Token{
		{Terminal: s.t.lbracket, Start: i, End: i + 1},
		{Terminal: s.t.linkText, Start: i + 1, End: rb},
		{Terminal: s.t.rbracket, Start: rb, End: rb + 1},
		{Terminal: s.t.lparen, Start: rb + 1, End: rb + 2},
		{Terminal: s.t.linkDest, Start: rb + 2, End: rp},
		{Terminal: s.t.rparen, Start: rp, End: rp + 1},
	}, rp + 1, nil
}

// htmlInline recognizes <name .../> and <name ...>...</name> without another < in between.
func (s *Scanner) htmlInline(a, i, e int) ([]*Token, int, error) {
	if i+1 >= e || !isLetter(s.src[i+1]) {
		return nil, i, nil
	}
	n := i + 1
	for n < e && (isAlnum(s.src[n]) || s.src[n] == '-') {
		n++
	}
	k := bytes.IndexByte(s.src[n:e], '>')
	if k < 0 {
		return nil, i, nil
	}
	gt := n + k
	end := gt + 1
	if s.src[gt-1] != '/' {
		closeTag := []byte("</" + string(s.src[i+1:n]) + ">")
		c := bytes.Index(s.src[end:e], closeTag)
		if c < 0 || bytes.IndexByte(s.src[end:end+c], '<') >= 0 {
			return nil, i, nil
		}
		end += c + len(closeTag)
	}
	return []*Token{
		{Terminal: s.t.htmlInline, Start: i, End: end},
	}, end, nil
}

// emphasis recognizes *emphasis*, _emphasis_, **strong**, and __strong__. An underscore never
// opens or closes inside a word.
func (s *Scanner) emphasis(a, i, e int) ([]*Token, int, error) {
	c := s.src[i]
	n := s.run(i, e, c)
	if c == '_' && i > a && isAlnum(s.src[i-1]) {
		return nil, i + n, nil
	}
	switch n {
	case 1:
		k, ok := s.emphasisClose(i+1, e, c)
		if !ok {
			return nil, i + 1, nil
		}
		return []*Token{
			{Terminal: s.t.emOpen, Start: i, End: i + 1},
			{Terminal: s.t.emText, Start: i + 1, End: k},
			{Terminal: s.t.emClose, Start: k, End: k + 1},
		}, k + 1, nil
	case 2:
		if toks, next, ok := s.strong(i, e, c); ok {
			return toks, next, nil
		}
	}
	return nil, i + n, nil
}

// emphasisClose finds the single delimiter closing an emphasis whose content starts at i.
func (s *Scanner) emphasisClose(i, e int, c byte) (int, bool) {
	if i >= e || isSpace(s.src[i]) {
		return 0, false
	}
	for k := i + 1; k < e; k++ {
		if s.src[k] != c {
			continue
		}
		if s.run(k, e, c) > 1 || (k > 0 && s.src[k-1] == c) {
			return 0, false
		}
		if isSpace(s.src[k-1]) {
			return 0, false
		}
		if c == '_' && k+1 < e && isAlnum(s.src[k+1]) {
			return 0, false
		}
		return k, true
	}
	return 0, false
}

func (s *Scanner) strong(i, e int, c byte) ([]*Token, int, bool) {
	from := i + 2
	if from >= e || isSpace(s.src[from]) {
		return nil, 0, false
	}
	closeAt := -1
	for k := from + 1; k+1 < e; k++ {
		if s.src[k] == c && s.src[k+1] == c && !isSpace(s.src[k-1]) {
			if c == '_' && k+2 < e && isAlnum(s.src[k+2]) {
				continue
			}
			closeAt = k
			break
		}
	}
	if closeAt < 0 {
		return nil, 0, false
	}

	toks := []*Token{
		{Terminal: s.t.strongOpen, Start: i, End: from},
	}
	textStart := from
	flush := func(end int) {
		st := s.skipSpace(textStart, end)
		if en := s.trimRight(st, end); en > st {
			toks = append(toks, &Token{Terminal: s.t.emText, Start: st, End: en})
		}
	}
	for j := from; j < closeAt; {
		d := s.src[j]
		if (d == '*' || d == '_') && s.run(j, closeAt, d) == 1 {
			if k, ok := s.emphasisClose(j+1, closeAt, d); ok {
				flush(j)
				toks = append(toks,
					&Token{Terminal: s.t.emOpen, Start: j, End: j + 1},
					&Token{Terminal: s.t.emText, Start: j + 1, End: k},
					&Token{Terminal: s.t.emClose, Start: k, End: k + 1},
				)
				j = k + 1
				textStart = j
				continue
			}
		}
		j++
	}
	flush(closeAt)
	return append(toks, &Token{Terminal: s.t.strongClose, Start: closeAt, End: closeAt + 2}), closeAt + 2, true
}
