package scanner

import (
	"bytes"
	"fmt"
)

// Scanner produces the tokens of a Markdoc document one at a time.
//
// The scanner works in batches. At a block start it recognizes one leaf block, tokenizes it,
// and then decides how the block relates to the next one: which list items end and which
// separator follows. A batch is queued whole, so the queue is empty at every block start and
// the State there determines all the tokens that follow.
type Scanner struct {
	tabs *Tables
	t    *terminals
	src  []byte

	// pos is the start of the next block.
	pos   int
	state State

	queue []*Token
	head  int

	// reach is one past the last byte the current batch examined.
	reach int

	// lastEnd is the end of the last content token of the current block.
	lastEnd int

	done bool
}

// New returns a scanner starting at offset. A scan from the beginning of a document passes a
// nil snapshot; any other offset must be a block start the scanner reported along with the
// snapshot of a separator token ending there.
func New(tabs *Tables, src []byte, offset int, snapshot []byte) (*Scanner, error) {
	if offset < 0 || offset > len(src) {
		return nil, fmt.Errorf("offset %v is outside of the source of %v bytes", offset, len(src))
	}
	s := &Scanner{
		tabs: tabs,
		t:    &tabs.terms,
		src:  src,
		pos:  offset,
	}
	if snapshot == nil {
		if offset != 0 {
			return nil, fmt.Errorf("resuming at offset %v requires a snapshot", offset)
		}
		s.state.AtStart = true
		return s, nil
	}
	err := s.state.UnmarshalBinary(snapshot)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Next returns the next token. After the last token it returns an EOF token on every call.
func (s *Scanner) Next() (*Token, error) {
	for s.head >= len(s.queue) {
		if s.done {
			return &Token{
				Terminal: s.t.eof,
				Start:    len(s.src),
				End:      len(s.src),
				Reach:    len(s.src) + 1,
			}, nil
		}
		err := s.scanBatch()
		if err != nil {
			return nil, err
		}
	}
	tok := s.queue[s.head]
	s.head++
	return tok, nil
}

func (s *Scanner) scanBatch() error {
	s.queue = nil
	s.head = 0
	s.reach = s.pos
	s.lastEnd = s.pos

	p := s.skipBlankLines(s.pos)
	if p >= len(s.src) {
		s.closeItems(s.state.innermostTag()+1, s.lastEnd)
		s.done = true
		s.see(len(s.src) + 1)
	} else {
		last, err := s.scanBlock(p)
		if err != nil {
			return err
		}
		s.state.AtStart = false
		s.boundary(last)
	}

	for _, tok := range s.queue {
		tok.Reach = s.reach
	}
	return nil
}

// boundary emits the tokens between the block whose last line starts at last and the next
// block.
func (s *Scanner) boundary(last int) {
	contentEnd := s.lastEnd
	nl := s.lineEnd(last)
	q := len(s.src)
	if nl < len(s.src) {
		q = s.skipBlankLines(nl + 1)
	}
	if q >= len(s.src) {
		s.closeItems(s.state.innermostTag()+1, contentEnd)
		s.done = true
		s.see(len(s.src) + 1)
		return
	}

	e := s.lineEnd(q)
	c := s.indent(q, e)
	col := c - q
	t := s.state.innermostTag()
	open := s.state.Open

	// outside picks the separator used when no list item stays open above the innermost tag.
	outside := func() int {
		if t >= 0 {
			return s.t.innerSep
		}
		return s.t.sep
	}

	var sep int
	if _, closing, ok := s.blockTagLine(c, e); ok && closing && t >= 0 {
		s.closeItems(t+1, contentEnd)
		sep = s.t.innerSep
	} else if !s.isThematicBreak(c, e) && s.listMarker(c, e) >= 0 {
		j := -1
		for k := t + 1; k < len(open); k++ {
			if col < open[k].ContentCol {
				j = k
				break
			}
		}
		switch {
		case j >= 0:
			s.closeItems(j, contentEnd)
			sep = s.t.itemSep
		case len(open) > t+1:
			sep = s.t.childSep
		default:
			sep = outside()
		}
	} else {
		k := t + 1
		for k < len(open) && open[k].ContentCol <= col {
			k++
		}
		s.closeItems(k, contentEnd)
		if k > t+1 {
			sep = s.t.childSep
		} else {
			sep = outside()
		}
	}

	tok := &Token{
		Terminal: sep,
		Start:    nl,
		End:      q,
	}
	if sep == s.t.sep {
		// Marshaling a state never fails.
		tok.Snapshot, _ = s.state.MarshalBinary()
	}
	s.queue = append(s.queue, tok)
	s.pos = q
}

// closeItems ends the containers from index k on, emitting an empty _item_end at pos for each.
func (s *Scanner) closeItems(k int, pos int) {
	for i := len(s.state.Open) - 1; i >= k; i-- {
		s.queue = append(s.queue, &Token{
			Terminal: s.t.itemEnd,
			Start:    pos,
			End:      pos,
		})
	}
	if k < len(s.state.Open) {
		s.state.Open = s.state.Open[:k]
	}
}

func (s *Scanner) emit(term int, start, end int) *Token {
	tok := &Token{
		Terminal: term,
		Start:    start,
		End:      end,
	}
	s.push(tok)
	return tok
}

func (s *Scanner) push(toks ...*Token) {
	for _, tok := range toks {
		s.queue = append(s.queue, tok)
		s.lastEnd = tok.End
	}
}

func (s *Scanner) see(n int) {
	if n > s.reach {
		s.reach = n
	}
}

// lineEnd returns the offset of the newline ending the line that contains i, or len(src).
func (s *Scanner) lineEnd(i int) int {
	n := bytes.IndexByte(s.src[i:], '\n')
	if n < 0 {
		s.see(len(s.src) + 1)
		return len(s.src)
	}
	s.see(i + n + 1)
	return i + n
}

func (s *Scanner) skipBlankLines(i int) int {
	for i < len(s.src) {
		e := s.lineEnd(i)
		if !s.blank(i, e) {
			return i
		}
		if e >= len(s.src) {
			return len(s.src)
		}
		i = e + 1
	}
	return len(s.src)
}

func (s *Scanner) blank(i, e int) bool {
	for ; i < e; i++ {
		if !isSpace(s.src[i]) {
			return false
		}
	}
	return true
}

// indent returns the offset of the first byte of [i, e) that is neither a space nor a tab.
func (s *Scanner) indent(i, e int) int {
	for i < e && (s.src[i] == ' ' || s.src[i] == '\t') {
		i++
	}
	return i
}

func (s *Scanner) skipSpace(i, e int) int {
	for i < e && isSpace(s.src[i]) {
		i++
	}
	return i
}

func (s *Scanner) trimRight(i, e int) int {
	for e > i && isSpace(s.src[e-1]) {
		e--
	}
	return e
}

func (s *Scanner) run(i, e int, c byte) int {
	n := 0
	for i+n < e && s.src[i+n] == c {
		n++
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isAlnum(c byte) bool {
	return isLetter(c) || isDigit(c)
}

func isIdentStart(c byte) bool {
	return isLetter(c) || c == '_'
}

func isIdentPart(c byte) bool {
	return isAlnum(c) || c == '_'
}
