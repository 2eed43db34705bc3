package scanner

import (
	"fmt"

	mldriver "github.com/nihei9/maleeni/driver"

	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

// terminals holds the terminal numbers the scanner emits.
type terminals struct {
	eof int

	sep, innerSep, childSep, itemSep, itemEnd, softBreak int

	fmDelim, yaml, commentBlock, htmlComment, htmlBlock, thematicBreak int
	headingMarker, headingText, bqMarker                               int
	fenceDelim, language, attributes, code, codeFenceClose             int
	listMarker                                                         int

	text, emOpen, emClose, emText, strongOpen, strongClose int
	backtick, codeSpan                                     int
	linkText, linkDest, imgOpen, imageAlt, imageDest       int
	htmlInline                                             int

	exprOpen, exprClose                              int
	tagOpen, btagOpen, tagEndOpen, btagEndOpen       int
	tagClose, selfClose, tagName, attrName           int
	unaryMinus, unaryPlus, arrowOpen                 int
	identifier, str, number, null, trueLit, falseLit int
	binaryAdd, binarySubtract                        int

	lbracket, rbracket, lparen, rparen, lbrace, rbrace int
	equal, dot, arrow                                  int
}

// Tables is what the scanner needs from a compiled grammar. It is read-only and may be shared
// by concurrent scanners.
type Tables struct {
	lexSpec    mldriver.LexSpec
	kindToTerm []int
	skip       []int
	terms      terminals
}

// NewTables looks up the terminals the scanner produces in a compiled grammar.
func NewTables(g *spec.CompiledGrammar) (*Tables, error) {
	syn := g.Syntactic
	lookup := func(name string) (int, error) {
		for i, t := range syn.Terminals {
			if t == name {
				return i, nil
			}
		}
		for i, a := range syn.TerminalAliases {
			if a == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("the grammar has no terminal %v", name)
	}

	tabs := &Tables{
		lexSpec:    mldriver.NewLexSpec(g.Lexical.Maleeni),
		kindToTerm: g.Lexical.KindToTerminal,
		skip:       g.Lexical.Skip,
	}
	t := &tabs.terms
	t.eof = syn.EOFSymbol
	for _, e := range []struct {
		dst  *int
		name string
	}{
		{&t.sep, "_sep"},
		{&t.innerSep, "_inner_sep"},
		{&t.childSep, "_child_sep"},
		{&t.itemSep, "_item_sep"},
		{&t.itemEnd, "_item_end"},
		{&t.softBreak, "_soft_break"},
		{&t.fmDelim, "_fm_delim"},
		{&t.yaml, "yaml"},
		{&t.commentBlock, "comment_block"},
		{&t.htmlComment, "html_comment"},
		{&t.htmlBlock, "html_block"},
		{&t.thematicBreak, "thematic_break"},
		{&t.headingMarker, "heading_marker"},
		{&t.headingText, "heading_text"},
		{&t.bqMarker, "_bq_marker"},
		{&t.fenceDelim, "_fence_delim"},
		{&t.language, "language"},
		{&t.attributes, "attributes"},
		{&t.code, "code"},
		{&t.codeFenceClose, "code_fence_close"},
		{&t.listMarker, "list_marker"},
		{&t.text, "text"},
		{&t.emOpen, "_em_open"},
		{&t.emClose, "_em_close"},
		{&t.emText, "_em_text"},
		{&t.strongOpen, "_strong_open"},
		{&t.strongClose, "_strong_close"},
		{&t.backtick, "_backtick"},
		{&t.codeSpan, "_code_span"},
		{&t.linkText, "link_text"},
		{&t.linkDest, "link_destination"},
		{&t.imgOpen, "_img_open"},
		{&t.imageAlt, "image_alt"},
		{&t.imageDest, "image_destination"},
		{&t.htmlInline, "html_inline"},
		{&t.exprOpen, "_expr_open"},
		{&t.exprClose, "_expr_close"},
		{&t.tagOpen, "_tag_open"},
		{&t.btagOpen, "_btag_open"},
		{&t.tagEndOpen, "_tag_end_open"},
		{&t.btagEndOpen, "_btag_end_open"},
		{&t.tagClose, "_tag_close"},
		{&t.selfClose, "_self_close"},
		{&t.tagName, "tag_name"},
		{&t.attrName, "attribute_name"},
		{&t.unaryMinus, "unary_minus"},
		{&t.unaryPlus, "unary_plus"},
		{&t.arrowOpen, "_arrow_open"},
		{&t.identifier, "identifier"},
		{&t.str, "string"},
		{&t.number, "number"},
		{&t.null, "null"},
		{&t.trueLit, "true"},
		{&t.falseLit, "false"},
		{&t.binaryAdd, "binary_add"},
		{&t.binarySubtract, "binary_subtract"},
		{&t.lbracket, "["},
		{&t.rbracket, "]"},
		{&t.lparen, "("},
		{&t.rparen, ")"},
		{&t.lbrace, "{"},
		{&t.rbrace, "}"},
		{&t.equal, "="},
		{&t.dot, "."},
		{&t.arrow, "=>"},
	} {
		num, err := lookup(e.name)
		if err != nil {
			return nil, err
		}
		*e.dst = num
	}
	return tabs, nil
}

// Sync returns the terminal separating top-level blocks.
func (t *Tables) Sync() int {
	return t.terms.sep
}
