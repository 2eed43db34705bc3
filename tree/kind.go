package tree

import "fmt"

// Kind is the type of a node. The set of kinds is closed; KindAnonymous is the kind of every
// token the grammar leaves unnamed, such as punctuation and delimiters.
type Kind uint8

const (
	KindAnonymous Kind = iota
	KindError

	// Blocks
	KindSourceFile
	KindFrontmatter
	KindYAML
	KindCommentBlock
	KindMarkdocTag
	KindTagOpen
	KindTagClose
	KindTagSelfClose
	KindTagName
	KindFencedCodeBlock
	KindCodeFenceOpen
	KindInfoString
	KindLanguage
	KindAttributes
	KindCode
	KindCodeFenceClose
	KindHeading
	KindHeadingMarker
	KindHeadingText
	KindThematicBreak
	KindBlockquote
	KindHTMLBlock
	KindHTMLComment
	KindList
	KindListItem
	KindListMarker
	KindListParagraph
	KindParagraph

	// Inlines
	KindText
	KindEmphasis
	KindStrong
	KindInlineCode
	KindLink
	KindLinkText
	KindLinkDestination
	KindImage
	KindImageAlt
	KindImageDestination
	KindHTMLInline
	KindInlineExpression
	KindInlineTag
	KindInlineTagExpression

	// Attributes and expressions
	KindAttribute
	KindAttributeName
	KindAttributeValue
	KindExpression
	KindBinaryExpression
	KindUnaryExpression
	KindCallExpression
	KindMemberExpression
	KindArrayAccess
	KindArrowFunction
	KindVariable
	KindIdentifier
	KindString
	KindNumber
	KindBoolean
	KindNull
	KindArrayLiteral
	KindObjectLiteral
	KindPair
	KindParenthesizedExpression

	// Operators
	KindBinaryOr
	KindBinaryAnd
	KindBinaryEqual
	KindBinaryNotEqual
	KindBinaryLessThan
	KindBinaryGreaterThan
	KindBinaryLessEqual
	KindBinaryGreaterEqual
	KindBinaryAdd
	KindBinarySubtract
	KindBinaryMultiply
	KindBinaryDivide
	KindBinaryModulo
	KindUnaryNot
	KindUnaryMinus
	KindUnaryPlus

	kindCount
)

var kindNames = [kindCount]string{
	KindAnonymous: "",
	KindError:     "ERROR",

	KindSourceFile:      "source_file",
	KindFrontmatter:     "frontmatter",
	KindYAML:            "yaml",
	KindCommentBlock:    "comment_block",
	KindMarkdocTag:      "markdoc_tag",
	KindTagOpen:         "tag_open",
	KindTagClose:        "tag_close",
	KindTagSelfClose:    "tag_self_close",
	KindTagName:         "tag_name",
	KindFencedCodeBlock: "fenced_code_block",
	KindCodeFenceOpen:   "code_fence_open",
	KindInfoString:      "info_string",
	KindLanguage:        "language",
	KindAttributes:      "attributes",
	KindCode:            "code",
	KindCodeFenceClose:  "code_fence_close",
	KindHeading:         "heading",
	KindHeadingMarker:   "heading_marker",
	KindHeadingText:     "heading_text",
	KindThematicBreak:   "thematic_break",
	KindBlockquote:      "blockquote",
	KindHTMLBlock:       "html_block",
	KindHTMLComment:     "html_comment",
	KindList:            "list",
	KindListItem:        "list_item",
	KindListMarker:      "list_marker",
	KindListParagraph:   "list_paragraph",
	KindParagraph:       "paragraph",

	KindText:                "text",
	KindEmphasis:            "emphasis",
	KindStrong:              "strong",
	KindInlineCode:          "inline_code",
	KindLink:                "link",
	KindLinkText:            "link_text",
	KindLinkDestination:     "link_destination",
	KindImage:               "image",
	KindImageAlt:            "image_alt",
	KindImageDestination:    "image_destination",
	KindHTMLInline:          "html_inline",
	KindInlineExpression:    "inline_expression",
	KindInlineTag:           "inline_tag",
	KindInlineTagExpression: "inline_tag_expression",

	KindAttribute:               "attribute",
	KindAttributeName:           "attribute_name",
	KindAttributeValue:          "attribute_value",
	KindExpression:              "expression",
	KindBinaryExpression:        "binary_expression",
	KindUnaryExpression:         "unary_expression",
	KindCallExpression:          "call_expression",
	KindMemberExpression:        "member_expression",
	KindArrayAccess:             "array_access",
	KindArrowFunction:           "arrow_function",
	KindVariable:                "variable",
	KindIdentifier:              "identifier",
	KindString:                  "string",
	KindNumber:                  "number",
	KindBoolean:                 "boolean",
	KindNull:                    "null",
	KindArrayLiteral:            "array_literal",
	KindObjectLiteral:           "object_literal",
	KindPair:                    "pair",
	KindParenthesizedExpression: "parenthesized_expression",

	KindBinaryOr:           "binary_or",
	KindBinaryAnd:          "binary_and",
	KindBinaryEqual:        "binary_equal",
	KindBinaryNotEqual:     "binary_not_equal",
	KindBinaryLessThan:     "binary_less_than",
	KindBinaryGreaterThan:  "binary_greater_than",
	KindBinaryLessEqual:    "binary_less_equal",
	KindBinaryGreaterEqual: "binary_greater_equal",
	KindBinaryAdd:          "binary_add",
	KindBinarySubtract:     "binary_subtract",
	KindBinaryMultiply:     "binary_multiply",
	KindBinaryDivide:       "binary_divide",
	KindBinaryModulo:       "binary_modulo",
	KindUnaryNot:           "unary_not",
	KindUnaryMinus:         "unary_minus",
	KindUnaryPlus:          "unary_plus",
}

var nameToKind = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindError; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

// Named reports whether nodes of the kind appear in S-expressions.
func (k Kind) Named() bool {
	return k != KindAnonymous && k < kindCount
}

// KindByName looks up a kind by the name a grammar gives it. The empty name is KindAnonymous.
func KindByName(name string) (Kind, bool) {
	if name == "" {
		return KindAnonymous, true
	}
	k, ok := nameToKind[name]
	return k, ok
}

// Kinds returns every named kind in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, 0, kindCount-1)
	for k := KindError; k < kindCount; k++ {
		ks = append(ks, k)
	}
	return ks
}

// Field is the role a child plays in its parent.
type Field uint8

const (
	FieldNone Field = iota
	FieldHeadingMarker
	FieldHeadingText
	FieldOpen
	FieldCode
	FieldClose
	FieldMarker
	FieldContent
	FieldLeft
	FieldOperator
	FieldRight
	FieldArgument
	FieldFunction
	FieldArguments
	FieldObject
	FieldProperty
	FieldArray
	FieldIndex
	FieldKey
	FieldValue
	FieldExpression

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldNone:          "",
	FieldHeadingMarker: "heading_marker",
	FieldHeadingText:   "heading_text",
	FieldOpen:          "open",
	FieldCode:          "code",
	FieldClose:         "close",
	FieldMarker:        "marker",
	FieldContent:       "content",
	FieldLeft:          "left",
	FieldOperator:      "operator",
	FieldRight:         "right",
	FieldArgument:      "argument",
	FieldFunction:      "function",
	FieldArguments:     "arguments",
	FieldObject:        "object",
	FieldProperty:      "property",
	FieldArray:         "array",
	FieldIndex:         "index",
	FieldKey:           "key",
	FieldValue:         "value",
	FieldExpression:    "expression",
}

var nameToField = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := FieldNone + 1; f < fieldCount; f++ {
		m[fieldNames[f]] = f
	}
	return m
}()

func (f Field) String() string {
	if f >= fieldCount {
		return fmt.Sprintf("Field(%d)", f)
	}
	return fieldNames[f]
}

// FieldByName looks up a field by name. The empty name is FieldNone.
func FieldByName(name string) (Field, bool) {
	if name == "" {
		return FieldNone, true
	}
	f, ok := nameToField[name]
	return f, ok
}
