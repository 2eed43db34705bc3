package scanner

import (
	"bytes"
	"regexp"
)

var (
	commentOpenRE  = regexp.MustCompile(`^\{%\s*comment\s*%\}$`)
	commentCloseRE = regexp.MustCompile(`^\{%\s*/comment\s*%\}$`)
)

// scanBlock tokenizes the leaf block starting at the line p and returns the start of its last
// line.
func (s *Scanner) scanBlock(p int) (int, error) {
	e := s.lineEnd(p)
	c := s.indent(p, e)

	if s.state.AtStart && p == 0 {
		if last, ok := s.frontmatter(p, e); ok {
			return last, nil
		}
	}
	if last, ok := s.commentBlock(c, e); ok {
		return last, nil
	}
	if ok, err := s.blockTag(c, e); err != nil || ok {
		return p, err
	}
	if last, ok := s.fencedCode(p, c, e); ok {
		return last, nil
	}
	if s.heading(c, e) {
		return p, nil
	}
	if s.isThematicBreak(c, e) {
		s.emit(s.t.thematicBreak, c, s.trimRight(c, e))
		return p, nil
	}
	if s.src[c] == '>' {
		return p, s.blockquote(c, e)
	}
	if last, ok := s.htmlComment(p, c, e); ok {
		return last, nil
	}
	if last, ok := s.htmlBlock(p, c, e); ok {
		return last, nil
	}
	if m := s.listMarker(c, e); m >= 0 {
		return s.listItem(p, c, m, e)
	}
	return s.paragraph(p, c, e)
}

func (s *Scanner) lineIs(i, e int, text string) bool {
	return string(s.src[i:s.trimRight(i, e)]) == text
}

func (s *Scanner) frontmatter(p, e int) (int, bool) {
	if !s.lineIs(p, e, "---") || e >= len(s.src) {
		return 0, false
	}
	for i := e + 1; i < len(s.src); {
		le := s.lineEnd(i)
		if s.lineIs(i, le, "---") {
			s.emit(s.t.fmDelim, p, p+3)
			if i-1 > e+1 {
				s.emit(s.t.yaml, e+1, i-1)
			}
			s.emit(s.t.fmDelim, i, i+3)
			return i, true
		}
		if le >= len(s.src) {
			break
		}
		i = le + 1
	}
	return 0, false
}

func (s *Scanner) commentBlock(c, e int) (int, bool) {
	if !commentOpenRE.Match(s.src[c:s.trimRight(c, e)]) {
		return 0, false
	}
	for i := e + 1; i < len(s.src) && e < len(s.src); {
		le := s.lineEnd(i)
		k := s.indent(i, le)
		te := s.trimRight(k, le)
		if commentCloseRE.Match(s.src[k:te]) {
			s.emit(s.t.commentBlock, c, te)
			return i, true
		}
		if le >= len(s.src) {
			break
		}
		i = le + 1
	}
	return 0, false
}

// blockTagLine reports whether [c, e) is a line holding exactly one {% %} tag that starts with
// a tag name. k is the offset of the closing %}.
func (s *Scanner) blockTagLine(c, e int) (k int, closing bool, ok bool) {
	te := s.trimRight(c, e)
	line := s.src[c:te]
	if len(line) < 4 || !bytes.HasPrefix(line, []byte("{%")) || !bytes.HasSuffix(line, []byte("%}")) {
		return 0, false, false
	}
	k = s.findCloser(c+2, te, "%}")
	if k != te-2 {
		return 0, false, false
	}
	i := s.skipSpace(c+2, k)
	if i < k && s.src[i] == '/' {
		closing = true
		i = s.skipSpace(i+1, k)
	}
	if i >= k || !isIdentStart(s.src[i]) {
		return 0, false, false
	}
	j := s.identEnd(i, k)
	for j+1 < k && s.src[j] == '-' && isIdentStart(s.src[j+1]) {
		j = s.identEnd(j+1, k)
	}
	if n := s.skipSpace(j, k); n < k {
		switch s.src[n] {
		case '(', '.', '[':
			return 0, false, false
		}
	}
	return k, closing, true
}

func (s *Scanner) identEnd(i, e int) int {
	for i < e && isIdentPart(s.src[i]) {
		i++
	}
	return i
}

// blockTag tokenizes a line holding a block-level tag and updates the open containers.
func (s *Scanner) blockTag(c, e int) (bool, error) {
	k, closing, ok := s.blockTagLine(c, e)
	if !ok {
		return false, nil
	}

	var open *Token
	from, to := c+2, k
	if closing {
		slash := s.skipSpace(c+2, k)
		open = &Token{Terminal: s.t.btagEndOpen, Start: c, End: slash + 1}
		from = slash + 1
	} else {
		open = &Token{Terminal: s.t.btagOpen, Start: c, End: c + 2}
	}
	closer := &Token{Terminal: s.t.tagClose, Start: k, End: k + 2}
	if !closing && k-1 >= from && s.src[k-1] == '/' {
		closer = &Token{Terminal: s.t.selfClose, Start: k - 1, End: k + 2}
		to = k - 1
	}

	in, err := s.interior(from, to, true)
	if err != nil {
		return false, err
	}
	if len(in) == 0 || in[0].Terminal != s.t.tagName || in[0].Invalid {
		// A keyword such as true lexes as a literal; the line is a paragraph then.
		return false, nil
	}

	s.push(open)
	s.push(in...)
	s.push(closer)

	switch {
	case closing:
		if n := len(s.state.Open); n > 0 && s.state.Open[n-1].Tag {
			s.state.Open = s.state.Open[:n-1]
		}
	case closer.Terminal == s.t.tagClose:
		s.state.Open = append(s.state.Open, Container{Tag: true})
	}
	return true, nil
}

func isLanguageByte(c byte) bool {
	return isAlnum(c) || c == '_' || c == '+' || c == '-'
}

func (s *Scanner) fencedCode(p, c, e int) (int, bool) {
	ch := s.src[c]
	if ch != '`' && ch != '~' {
		return 0, false
	}
	n := s.run(c, e, ch)
	if n < 3 {
		return 0, false
	}

	s.emit(s.t.fenceDelim, c, c+n)
	i := s.skipSpace(c+n, e)
	j := i
	for j < e && isLanguageByte(s.src[j]) {
		j++
	}
	if j > i {
		s.emit(s.t.language, i, j)
		i = s.skipSpace(j, e)
	}
	if i < e && s.src[i] == '{' {
		if k := bytes.LastIndexByte(s.src[i:e], '}'); k >= 0 {
			s.emit(s.t.attributes, i, i+k+1)
			i = s.skipSpace(i+k+1, e)
		}
	}
	if te := s.trimRight(i, e); te > i {
		s.push(&Token{Start: i, End: te, Invalid: true})
	}

	// Inside a list item, a line indented less than the item's content ends the block.
	limit := -1
	if m := len(s.state.Open); m > 0 && !s.state.Open[m-1].Tag {
		limit = s.state.Open[m-1].ContentCol
	}

	first := e + 1
	last := p
	codeEnd := -1
	for i := first; e < len(s.src) && i < len(s.src); {
		le := s.lineEnd(i)
		k := s.indent(i, le)
		nonBlank := !s.blank(k, le)
		if limit >= 0 && nonBlank && k-i < limit {
			break
		}
		if r := s.run(k, le, ch); r >= n && s.blank(k+r, le) {
			if i-1 > first {
				s.emit(s.t.code, first, i-1)
			}
			s.emit(s.t.codeFenceClose, k, k+r)
			return i, true
		}
		if nonBlank {
			codeEnd = s.trimRight(i, le)
			last = i
		}
		if le >= len(s.src) {
			break
		}
		i = le + 1
	}
	if codeEnd > first {
		s.emit(s.t.code, first, codeEnd)
	}
	return last, true
}

// headingMarker returns the number of #s starting an ATX heading at c, or 0.
func (s *Scanner) headingMarker(c, e int) int {
	n := s.run(c, e, '#')
	if n == 0 || n > 6 {
		return 0
	}
	if c+n < e && !isSpace(s.src[c+n]) {
		return 0
	}
	return n
}

func (s *Scanner) heading(c, e int) bool {
	n := s.headingMarker(c, e)
	if n == 0 {
		return false
	}
	s.emit(s.t.headingMarker, c, c+n)
	i := s.skipSpace(c+n, e)
	if te := s.trimRight(i, e); te > i {
		s.emit(s.t.headingText, i, te)
	}
	return true
}

func (s *Scanner) isThematicBreak(c, e int) bool {
	ch := s.src[c]
	if ch != '*' && ch != '-' && ch != '_' {
		return false
	}
	n := 0
	for i := c; i < e; i++ {
		switch {
		case s.src[i] == ch:
			n++
		case isSpace(s.src[i]):
		default:
			return false
		}
	}
	return n >= 3
}

func (s *Scanner) blockquote(c, e int) error {
	s.emit(s.t.bqMarker, c, c+1)
	i := s.skipSpace(c+1, e)
	te := s.trimRight(i, e)
	if te <= i {
		return nil
	}
	return s.quoted(i, te)
}

// quoted tokenizes the rest of a blockquote line as a block of its own. A quoted block ends
// with its line, so a quoted list item is closed right away.
func (s *Scanner) quoted(i, e int) error {
	switch {
	case s.heading(i, e):
		return nil
	case s.isThematicBreak(i, e):
		s.emit(s.t.thematicBreak, i, e)
		return nil
	case s.src[i] == '>':
		return s.blockquote(i, e)
	}
	if m := s.listMarker(i, e); m >= 0 {
		s.emit(s.t.listMarker, i, m)
		if j := s.skipSpace(m, e); j < e {
			toks, err := s.inlines(j, e)
			if err != nil {
				return err
			}
			s.push(toks...)
		}
		s.emit(s.t.itemEnd, e, e)
		return nil
	}
	toks, err := s.inlines(i, e)
	if err != nil {
		return err
	}
	s.push(toks...)
	return nil
}

func (s *Scanner) htmlComment(p, c, e int) (int, bool) {
	if !bytes.HasPrefix(s.src[c:e], []byte("<!--")) {
		return 0, false
	}
	for line, from, le := p, c+4, e; ; {
		if k := bytes.Index(s.src[from:le], []byte("-->")); k >= 0 {
			end := from + k + 3
			if !s.blank(end, le) {
				return 0, false
			}
			s.emit(s.t.htmlComment, c, end)
			return line, true
		}
		if le >= len(s.src) {
			return 0, false
		}
		line = le + 1
		from = line
		le = s.lineEnd(line)
	}
}

// htmlBlock recognizes a block starting with an HTML tag. It ends at the line holding the
// matching close tag, before a blank line, or at the end of the input.
func (s *Scanner) htmlBlock(p, c, e int) (int, bool) {
	if s.src[c] != '<' || c+1 >= e || !isLetter(s.src[c+1]) {
		return 0, false
	}
	n := c + 1
	for n < e && (isAlnum(s.src[n]) || s.src[n] == '-') {
		n++
	}
	closeTag := []byte("</" + string(s.src[c+1:n]) + ">")

	last, end := p, s.trimRight(c, e)
	for line, from, le := p, c, e; ; {
		if bytes.Contains(s.src[from:le], closeTag) {
			break
		}
		if le >= len(s.src) {
			break
		}
		next := le + 1
		ne := s.lineEnd(next)
		if s.blank(next, ne) {
			break
		}
		line, from, le = next, next, ne
		last, end = line, s.trimRight(line, le)
	}
	s.emit(s.t.htmlBlock, c, end)
	return last, true
}

// listMarker returns the end of a list marker starting at c, or -1.
func (s *Scanner) listMarker(c, e int) int {
	var m int
	switch ch := s.src[c]; {
	case ch == '-' || ch == '*' || ch == '+':
		m = c + 1
	case isDigit(ch):
		d := c
		for d < e && isDigit(s.src[d]) {
			d++
		}
		if d-c > 9 || d >= e || (s.src[d] != '.' && s.src[d] != ')') {
			return -1
		}
		m = d + 1
	default:
		return -1
	}
	if m < e && !isSpace(s.src[m]) {
		return -1
	}
	return m
}

func (s *Scanner) listItem(p, c, m, e int) (int, error) {
	i := m
	for i < e && (s.src[i] == ' ' || s.src[i] == '\t') {
		i++
	}
	contentCol := i - p
	switch {
	case s.blank(i, e):
		contentCol = m - p + 1
	case i-m > 4:
		contentCol = m - p + 1
	}
	s.state.Open = append(s.state.Open, Container{
		MarkerCol:  c - p,
		ContentCol: contentCol,
	})
	s.emit(s.t.listMarker, c, m)
	if s.blank(i, e) {
		return p, nil
	}
	return s.paragraph(p, i, e)
}

// paragraph tokenizes the lines of a paragraph whose first line starts at p and whose content
// starts at c.
func (s *Scanner) paragraph(p, c, e int) (int, error) {
	toks, err := s.inlines(c, s.trimRight(c, e))
	if err != nil {
		return 0, err
	}
	s.push(toks...)

	line := p
	for e < len(s.src) {
		next := e + 1
		ne := s.lineEnd(next)
		if !s.continues(next, ne) {
			break
		}
		k := s.indent(next, ne)
		toks, err := s.inlines(k, s.trimRight(k, ne))
		if err != nil {
			return 0, err
		}
		prev := s.queue[len(s.queue)-1]
		if s.isText(prev) && len(toks) > 0 && s.isText(toks[0]) {
			prev.End = toks[0].End
			s.lastEnd = prev.End
			toks = toks[1:]
		} else {
			s.emit(s.t.softBreak, e, e+1)
		}
		s.push(toks...)
		line, e = next, ne
	}
	return line, nil
}

func (s *Scanner) isText(tok *Token) bool {
	return !tok.Invalid && tok.Terminal == s.t.text
}

// continues reports whether the line [i, e) continues the paragraph before it.
func (s *Scanner) continues(i, e int) bool {
	if s.blank(i, e) {
		return false
	}
	c := s.indent(i, e)
	if c == i && s.state.openItems() > 0 {
		return false
	}
	return !s.startsBlock(c, e)
}

// startsBlock reports whether a line interrupts a paragraph.
func (s *Scanner) startsBlock(c, e int) bool {
	if s.headingMarker(c, e) > 0 || s.src[c] == '>' || s.isThematicBreak(c, e) || s.listMarker(c, e) >= 0 {
		return true
	}
	if ch := s.src[c]; (ch == '`' || ch == '~') && s.run(c, e, ch) >= 3 {
		return true
	}
	_, _, ok := s.blockTagLine(c, e)
	return ok
}
