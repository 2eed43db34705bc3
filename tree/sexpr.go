package tree

import (
	"fmt"
	"strconv"
	"strings"
)

type sexprConfig struct {
	withoutFields bool
	legacy        bool
}

type SExprOption func(c *sexprConfig)

// WithoutFields omits field labels.
func WithoutFields() SExprOption {
	return func(c *sexprConfig) {
		c.withoutFields = true
	}
}

// Legacy renders list_paragraph as paragraph, the spelling older corpora use.
func Legacy() SExprOption {
	return func(c *sexprConfig) {
		c.legacy = true
	}
}

// SExpr renders the tree as an S-expression of its named nodes.
func (t *Tree) SExpr(opts ...SExprOption) string {
	return t.Root().SExpr(opts...)
}

func (n Node) SExpr(opts ...SExprOption) string {
	c := &sexprConfig{}
	for _, opt := range opts {
		opt(c)
	}
	var b strings.Builder
	writeSExpr(&b, n, c)
	return b.String()
}

func writeSExpr(b *strings.Builder, n Node, c *sexprConfig) {
	if n.IsMissing() {
		b.WriteString("(MISSING ")
		if n.IsNamed() {
			b.WriteString(kindName(n.Kind(), c))
		} else {
			b.WriteString(strconv.Quote(n.Type()))
		}
		b.WriteString(")")
		return
	}

	b.WriteString("(")
	b.WriteString(kindName(n.Kind(), c))
	for i := 0; i < n.ChildCount(); i++ {
		child := n.Child(i)
		if !child.IsNamed() && !child.IsMissing() {
			continue
		}
		b.WriteString(" ")
		if !c.withoutFields && child.Field() != FieldNone {
			b.WriteString(child.Field().String())
			b.WriteString(": ")
		}
		writeSExpr(b, child, c)
	}
	b.WriteString(")")
}

func kindName(k Kind, c *sexprConfig) string {
	if c.legacy && k == KindListParagraph {
		return KindParagraph.String()
	}
	return k.String()
}

// SNode is a node of a parsed S-expression.
type SNode struct {
	Field string
	// Type is a kind name. For a MISSING node it is the name as written, quoted when the missing
	// token is anonymous.
	Type     string
	Missing  bool
	Children []*SNode
}

func (n *SNode) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *SNode) write(b *strings.Builder) {
	if n.Missing {
		fmt.Fprintf(b, "(MISSING %v)", n.Type)
		return
	}
	b.WriteString("(")
	b.WriteString(n.Type)
	for _, c := range n.Children {
		b.WriteString(" ")
		if c.Field != "" {
			b.WriteString(c.Field)
			b.WriteString(": ")
		}
		c.write(b)
	}
	b.WriteString(")")
}

// HasFields reports whether any node of the tree carries a field label.
func (n *SNode) HasFields() bool {
	if n.Field != "" {
		return true
	}
	for _, c := range n.Children {
		if c.HasFields() {
			return true
		}
	}
	return false
}

// WithoutFields returns a copy of the tree without field labels.
func (n *SNode) WithoutFields() *SNode {
	cs := make([]*SNode, len(n.Children))
	for i, c := range n.Children {
		cs[i] = c.WithoutFields()
	}
	return &SNode{
		Type:     n.Type,
		Missing:  n.Missing,
		Children: cs,
	}
}

// Legacy returns a copy of the tree in which list_paragraph is spelled paragraph.
func (n *SNode) Legacy() *SNode {
	cs := make([]*SNode, len(n.Children))
	for i, c := range n.Children {
		cs[i] = c.Legacy()
	}
	ty := n.Type
	if !n.Missing && ty == KindListParagraph.String() {
		ty = KindParagraph.String()
	}
	return &SNode{
		Field:    n.Field,
		Type:     ty,
		Missing:  n.Missing,
		Children: cs,
	}
}

// ParseSExpr reads the S-expression form of a tree.
func ParseSExpr(src string) (*SNode, error) {
	p := &sexprParser{
		src: src,
	}
	n, err := p.parseNode("")
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing text")
	}
	return n, nil
}

type sexprParser struct {
	src string
	pos int
}

func (p *sexprParser) errorf(format string, a ...interface{}) error {
	return fmt.Errorf("%v: %v", p.pos, fmt.Sprintf(format, a...))
}

func (p *sexprParser) skipSpaces() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *sexprParser) expect(c byte) error {
	p.skipSpaces()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return p.errorf("%q expected", c)
	}
	p.pos++
	return nil
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (p *sexprParser) name() string {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *sexprParser) quoted() (string, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s := p.src[start:p.pos]
			if _, err := strconv.Unquote(s); err != nil {
				return "", p.errorf("invalid string %v", s)
			}
			return s, nil
		}
		p.pos++
	}
	return "", p.errorf("unclosed string")
}

func (p *sexprParser) parseNode(field string) (*SNode, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	ty := p.name()
	if ty == "" {
		return nil, p.errorf("a node type expected")
	}
	n := &SNode{
		Field: field,
		Type:  ty,
	}

	if ty == "MISSING" {
		p.skipSpaces()
		switch {
		case p.pos < len(p.src) && p.src[p.pos] == '"':
			s, err := p.quoted()
			if err != nil {
				return nil, err
			}
			n.Type = s
		default:
			name := p.name()
			if name == "" {
				return nil, p.errorf("a missing node needs a type")
			}
			n.Type = name
		}
		n.Missing = true
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return n, nil
	}

	for {
		p.skipSpaces()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unclosed node %v", ty)
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return n, nil
		}

		var f string
		if p.src[p.pos] != '(' {
			f = p.name()
			if f == "" {
				return nil, p.errorf("unexpected character %q", p.src[p.pos])
			}
			if err := p.expect(':'); err != nil {
				return nil, err
			}
		}
		c, err := p.parseNode(f)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
}
