package parser

import (
	"fmt"
	"strings"

	"github.com/louiss0/tree-sitter-markdoc/driver/scanner"
)

// SyntaxError describes a point where the input did not match the grammar. The parser keeps
// going after every syntax error; the tree holds an ERROR or a MISSING node there.
type SyntaxError struct {
	// Offset is the byte offset of the offending token, or of the inserted token when Missing is
	// set.
	Offset int

	// Token is the token the parser could not accept.
	Token *scanner.Token

	// Missing is the terminal the parser inserted as a MISSING node, or "".
	Missing string

	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	switch {
	case e.Missing != "":
		fmt.Fprintf(&b, "%v: missing %v", e.Offset, e.Missing)
	case e.Token != nil && e.Token.Invalid:
		fmt.Fprintf(&b, "%v: invalid token", e.Offset)
	default:
		fmt.Fprintf(&b, "%v: unexpected token", e.Offset)
	}
	if e.Missing == "" && len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

// Shift returns a copy of an error moved by delta bytes.
func (e *SyntaxError) Shift(delta int) *SyntaxError {
	c := *e
	c.Offset += delta
	if e.Token != nil {
		tok := *e.Token
		tok.Start += delta
		tok.End += delta
		tok.Snapshot = nil
		c.Token = &tok
	}
	return &c
}
