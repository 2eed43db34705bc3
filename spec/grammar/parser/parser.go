package parser

import (
	"io"

	verr "github.com/louiss0/tree-sitter-markdoc/error"
)

type RootNode struct {
	Directives     []*DirectiveNode
	Productions    []*ProductionNode
	LexProductions []*ProductionNode
}

type ProductionNode struct {
	Directives []*DirectiveNode
	LHS        string
	RHS        []*AlternativeNode
	Pos        Position
}

// isLexical reports whether a production defines a terminal: it has a single alternative
// holding a single unlabeled pattern or string.
func (n *ProductionNode) isLexical() bool {
	if len(n.RHS) != 1 {
		return false
	}
	alt := n.RHS[0]
	if len(alt.Elements) != 1 || len(alt.Directives) > 0 {
		return false
	}
	elem := alt.Elements[0]
	return elem.Pattern != "" && elem.Label == nil
}

type AlternativeNode struct {
	Elements   []*ElementNode
	Directives []*DirectiveNode
	Pos        Position
}

type ElementNode struct {
	ID        string
	Pattern   string
	Literally bool
	Label     *LabelNode
	Pos       Position
}

type LabelNode struct {
	Name string
	Pos  Position
}

type DirectiveNode struct {
	Name       string
	Parameters []*ParameterNode
	Pos        Position
}

type ParameterNode struct {
	ID     string
	String string
	Group  []*DirectiveNode
	Pos    Position
}

func raiseSyntaxError(row int, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   row,
	})
}

func raiseSyntaxErrorWithDetail(row int, synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    row,
	})
}

// Parse reads a grammar written in the DSL:
//
//	#name markdoc;
//	#externals _sep text;
//	#prec ( #left binary_add #right unary_minus );
//	paragraph : _inlines ;
//	heading : heading_marker@heading_marker heading_text@heading_text ;
//	ws #skip : "[\u{0020}]+" ;
func Parse(src io.Reader) (*RootNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
	errs      verr.SpecErrors
}

func newParser(src io.Reader) (*parser, error) {
	lex, err := newLexer(src)
	if err != nil {
		return nil, err
	}
	return &parser{
		lex: lex,
	}, nil
}

func (p *parser) parse() (root *RootNode, retErr error) {
	defer func() {
		switch err := recover().(type) {
		case nil:
		case *verr.SpecError:
			root = nil
			retErr = verr.SpecErrors{err}
		case error:
			root = nil
			retErr = err
		default:
			panic(err)
		}
	}()
	root = p.parseRoot()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return root, nil
}

func (p *parser) parseRoot() *RootNode {
	root := &RootNode{}
	for {
		if p.consume(tokenKindEOF) {
			break
		}
		if p.consume(tokenKindDirectiveMarker) {
			dir := p.parseDirective()
			if !p.consume(tokenKindSemicolon) {
				raiseSyntaxError(dir.Pos.Row, synErrTopLevelDirNoSemicolon)
			}
			root.Directives = append(root.Directives, dir)
			continue
		}

		prod := p.parseProduction()
		if prod.isLexical() {
			root.LexProductions = append(root.LexProductions, prod)
			continue
		}
		for _, alt := range prod.RHS {
			for _, elem := range alt.Elements {
				if elem.Pattern != "" && !elem.Literally {
					p.errs = append(p.errs, &verr.SpecError{
						Cause:  synErrPatternInAlt,
						Detail: elem.Pattern,
						Row:    elem.Pos.Row,
						Col:    elem.Pos.Col,
					})
				}
			}
		}
		root.Productions = append(root.Productions, prod)
	}
	if len(root.Productions) == 0 {
		raiseSyntaxError(0, synErrNoProduction)
	}
	return root
}

// parseDirective parses a directive following the directive marker #.
func (p *parser) parseDirective() *DirectiveNode {
	markerPos := p.lastTok.pos
	if !p.consume(tokenKindID) {
		raiseSyntaxError(markerPos.Row, synErrNoDirectiveName)
	}
	dir := &DirectiveNode{
		Name: p.lastTok.text,
		Pos:  markerPos,
	}
	for {
		switch {
		case p.consume(tokenKindID):
			dir.Parameters = append(dir.Parameters, &ParameterNode{
				ID:  p.lastTok.text,
				Pos: p.lastTok.pos,
			})
		case p.consume(tokenKindStringLiteral):
			dir.Parameters = append(dir.Parameters, &ParameterNode{
				String: p.lastTok.text,
				Pos:    p.lastTok.pos,
			})
		case p.consume(tokenKindLParen):
			param := &ParameterNode{
				Pos: p.lastTok.pos,
			}
			for p.consume(tokenKindDirectiveMarker) {
				param.Group = append(param.Group, p.parseDirective())
			}
			if !p.consume(tokenKindRParen) {
				raiseSyntaxError(param.Pos.Row, synErrUnclosedDirGroup)
			}
			dir.Parameters = append(dir.Parameters, param)
		default:
			return dir
		}
	}
}

func (p *parser) parseProduction() *ProductionNode {
	if !p.consume(tokenKindID) {
		row := 0
		if p.peekedTok != nil {
			row = p.peekedTok.pos.Row
		}
		raiseSyntaxError(row, synErrNoProductionName)
	}
	prod := &ProductionNode{
		LHS: p.lastTok.text,
		Pos: p.lastTok.pos,
	}
	for p.consume(tokenKindDirectiveMarker) {
		prod.Directives = append(prod.Directives, p.parseDirective())
	}
	if !p.consume(tokenKindColon) {
		raiseSyntaxError(prod.Pos.Row, synErrNoColon)
	}
	prod.RHS = append(prod.RHS, p.parseAlternative())
	for p.consume(tokenKindOr) {
		prod.RHS = append(prod.RHS, p.parseAlternative())
	}
	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(prod.Pos.Row, synErrNoSemicolon)
	}
	return prod
}

func (p *parser) parseAlternative() *AlternativeNode {
	alt := &AlternativeNode{
		Pos: p.peek().pos,
	}
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		alt.Elements = append(alt.Elements, elem)
	}
	for p.consume(tokenKindDirectiveMarker) {
		alt.Directives = append(alt.Directives, p.parseDirective())
	}
	return alt
}

func (p *parser) parseElement() *ElementNode {
	var elem *ElementNode
	switch {
	case p.consume(tokenKindID):
		elem = &ElementNode{
			ID:  p.lastTok.text,
			Pos: p.lastTok.pos,
		}
	case p.consume(tokenKindTerminalPattern):
		elem = &ElementNode{
			Pattern: p.lastTok.text,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindStringLiteral):
		elem = &ElementNode{
			Pattern:   p.lastTok.text,
			Literally: true,
			Pos:       p.lastTok.pos,
		}
	case p.consume(tokenKindLabelMarker):
		raiseSyntaxError(p.lastTok.pos.Row, synErrLabelWithNoSymbol)
	default:
		return nil
	}
	if p.consume(tokenKindLabelMarker) {
		if !p.consume(tokenKindID) {
			raiseSyntaxError(elem.Pos.Row, synErrNoLabel)
		}
		elem.Label = &LabelNode{
			Name: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	}
	return elem
}

func (p *parser) peek() *token {
	if p.peekedTok != nil {
		return p.peekedTok
	}
	tok, err := p.lex.next()
	if err != nil {
		panic(err)
	}
	if tok.kind == tokenKindInvalid {
		raiseSyntaxErrorWithDetail(tok.pos.Row, synErrInvalidToken, tok.text)
	}
	p.peekedTok = tok
	return tok
}

func (p *parser) consume(expected tokenKind) bool {
	tok := p.peek()
	if tok.kind != expected {
		return false
	}
	p.peekedTok = nil
	p.lastTok = tok
	return true
}
