package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	verr "github.com/louiss0/tree-sitter-markdoc/error"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

type tokenKind string

const (
	tokenKindID              = tokenKind("id")
	tokenKindTerminalPattern = tokenKind("terminal pattern")
	tokenKindStringLiteral   = tokenKind("string")
	tokenKindColon           = tokenKind(":")
	tokenKindOr              = tokenKind("|")
	tokenKindSemicolon       = tokenKind(";")
	tokenKindLabelMarker     = tokenKind("@")
	tokenKindDirectiveMarker = tokenKind("#")
	tokenKindLParen          = tokenKind("(")
	tokenKindRParen          = tokenKind(")")
	tokenKindEOF             = tokenKind("eof")
	tokenKindInvalid         = tokenKind("invalid")
)

type Position struct {
	Row int
	Col int
}

func newPosition(row, col int) Position {
	return Position{
		Row: row,
		Col: col,
	}
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newIDToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindID,
		text: text,
		pos:  pos,
	}
}

func newTerminalPatternToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindTerminalPattern,
		text: text,
		pos:  pos,
	}
}

func newStringLiteralToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindStringLiteral,
		text: text,
		pos:  pos,
	}
}

func newEOFToken() *token {
	return &token{
		kind: tokenKindEOF,
	}
}

func newInvalidToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		pos:  pos,
	}
}

// The lexical specification of the grammar DSL itself. Entries earlier in the list win ties.
var dslLexSpec = &mlspec.LexSpec{
	Name: "vgram",
	Entries: []*mlspec.LexEntry{
		{Kind: "white_space", Pattern: `[\u{0009}\u{000A}\u{000D}\u{0020}]+`},
		{Kind: "line_comment", Pattern: `//[^\u{000A}]*`},
		{Kind: "identifier", Pattern: `[A-Za-z_][0-9A-Za-z_]*`},
		{Kind: "terminal_pattern", Pattern: `"([^"\\\u{000A}]|\\[^\u{000A}])*"`},
		{Kind: "unclosed_terminal", Pattern: `"([^"\\\u{000A}]|\\[^\u{000A}])*\\?`},
		{Kind: "string_literal", Pattern: `'([^'\\\u{000A}]|\\[^\u{000A}])*'`},
		{Kind: "unclosed_string", Pattern: `'([^'\\\u{000A}]|\\[^\u{000A}])*\\?`},
		{Kind: "colon", Pattern: `:`},
		{Kind: "or", Pattern: `\|`},
		{Kind: "semicolon", Pattern: `;`},
		{Kind: "label_marker", Pattern: `@`},
		{Kind: "directive_marker", Pattern: `#`},
		{Kind: "l_paren", Pattern: `\(`},
		{Kind: "r_paren", Pattern: `\)`},
	},
}

var (
	dslLexOnce sync.Once
	dslLex     *mlspec.CompiledLexSpec
	dslLexErr  error
)

func compiledDSLLexSpec() (*mlspec.CompiledLexSpec, error) {
	dslLexOnce.Do(func() {
		clspec, err, cErrs := mlcompiler.Compile(dslLexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
		if err != nil {
			if len(cErrs) > 0 {
				var b strings.Builder
				for i, cErr := range cErrs {
					if i > 0 {
						fmt.Fprintf(&b, "\n")
					}
					fmt.Fprintf(&b, "%v: %v", cErr.Kind, cErr.Cause)
				}
				err = fmt.Errorf("failed to compile the grammar lexer: %v", b.String())
			}
			dslLexErr = err
			return
		}
		dslLex = clspec
	})
	return dslLex, dslLexErr
}

type lexer struct {
	s *mlspec.CompiledLexSpec
	d *mldriver.Lexer

	// row and col track the position of the next token. Every byte of the source belongs to
	// exactly one lexeme, skipped or not, so summing lexemes is enough.
	row int
	col int
}

func newLexer(src io.Reader) (*lexer, error) {
	s, err := compiledDSLLexSpec()
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	d, err := mldriver.NewLexer(mldriver.NewLexSpec(s), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return &lexer{
		s:   s,
		d:   d,
		row: 1,
		col: 1,
	}, nil
}

func (l *lexer) advance(lexeme []byte) Position {
	pos := newPosition(l.row, l.col)
	for _, c := range string(lexeme) {
		if c == '\n' {
			l.row++
			l.col = 1
			continue
		}
		l.col++
	}
	return pos
}

func (l *lexer) next() (*token, error) {
	for {
		tok, err := l.d.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF {
			return newEOFToken(), nil
		}
		text := string(tok.Lexeme)
		pos := l.advance(tok.Lexeme)
		if tok.Invalid {
			return newInvalidToken(text, pos), nil
		}

		switch l.s.KindNames[tok.KindID] {
		case "white_space", "line_comment":
			continue
		case "identifier":
			return newIDToken(text, pos), nil
		case "terminal_pattern":
			pat := text[1 : len(text)-1]
			if pat == "" {
				return nil, &verr.SpecError{
					Cause: synErrEmptyPattern,
					Row:   pos.Row,
					Col:   pos.Col,
				}
			}
			// The escape sequences in a pattern are interpreted by maleeni, except for \".
			// That one delimits patterns, so it is resolved here.
			return newTerminalPatternToken(strings.ReplaceAll(pat, `\"`, `"`), pos), nil
		case "unclosed_terminal":
			cause := synErrUnclosedTerminal
			if strings.HasSuffix(text, `\`) {
				cause = synErrIncompletedEscSeq
			}
			return nil, &verr.SpecError{
				Cause: cause,
				Row:   pos.Row,
				Col:   pos.Col,
			}
		case "string_literal":
			str := text[1 : len(text)-1]
			if str == "" {
				return nil, &verr.SpecError{
					Cause: synErrEmptyString,
					Row:   pos.Row,
					Col:   pos.Col,
				}
			}
			return newStringLiteralToken(unescapeStringLiteral(str), pos), nil
		case "unclosed_string":
			cause := synErrUnclosedString
			if strings.HasSuffix(text, `\`) {
				cause = synErrIncompletedEscSeq
			}
			return nil, &verr.SpecError{
				Cause: cause,
				Row:   pos.Row,
				Col:   pos.Col,
			}
		case "colon":
			return newSymbolToken(tokenKindColon, pos), nil
		case "or":
			return newSymbolToken(tokenKindOr, pos), nil
		case "semicolon":
			return newSymbolToken(tokenKindSemicolon, pos), nil
		case "label_marker":
			return newSymbolToken(tokenKindLabelMarker, pos), nil
		case "directive_marker":
			return newSymbolToken(tokenKindDirectiveMarker, pos), nil
		case "l_paren":
			return newSymbolToken(tokenKindLParen, pos), nil
		case "r_paren":
			return newSymbolToken(tokenKindRParen, pos), nil
		default:
			return newInvalidToken(text, pos), nil
		}
	}
}

// unescapeStringLiteral resolves \' and \\ only. Any other backslash stays as it is.
func unescapeStringLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
