package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParserWithConflicts(t *testing.T) {
	tests := []struct {
		caption string
		specSrc string
		src     string
		sexpr   string
	}{
		{
			caption: "when a shift/reduce conflict occurred, we prioritize the shift action",
			specSrc: `
#name test;

source_file
    : _expr
    ;
_expr
    : binary_expression
    | identifier
    ;
binary_expression
    : _expr@left binary_add@operator _expr@right
    ;

identifier
    : "[a-z]+";
binary_add
    : '+';
`,
			src:   "a binary_add b binary_add c",
			sexpr: "(source_file (binary_expression left: (identifier) operator: (binary_add) right: (binary_expression left: (identifier) operator: (binary_add) right: (identifier))))",
		},
		{
			caption: "when a reduce/reduce conflict occurred, we prioritize the production defined earlier in the grammar",
			specSrc: `
#name test;

source_file
    : attribute_value
    | expression
    ;
attribute_value
    : identifier
    ;
expression
    : identifier
    ;

identifier
    : "[a-z]+";
`,
			src:   "a",
			sexpr: "(source_file (attribute_value (identifier)))",
		},
		{
			caption: "left associativities defined earlier in the grammar have higher precedence",
			specSrc: `
#name test;

#prec (
    #left binary_multiply
    #left binary_add
);

source_file
    : _expr
    ;
_expr
    : binary_expression
    | identifier
    ;
binary_expression
    : _expr@left binary_add@operator _expr@right
    | _expr@left binary_multiply@operator _expr@right
    ;

identifier
    : "[a-z]+";
binary_add
    : '+';
binary_multiply
    : '*';
`,
			src:   "a binary_add b binary_multiply c binary_add d",
			sexpr: "(source_file (binary_expression left: (binary_expression left: (identifier) operator: (binary_add) right: (binary_expression left: (identifier) operator: (binary_multiply) right: (identifier))) operator: (binary_add) right: (identifier)))",
		},
		{
			caption: "a right associativity groups to the right",
			specSrc: `
#name test;

#prec (
    #right binary_or
);

source_file
    : _expr
    ;
_expr
    : binary_expression
    | identifier
    ;
binary_expression
    : _expr@left binary_or@operator _expr@right
    ;

identifier
    : "[a-z]+";
binary_or
    : '||';
`,
			src:   "a binary_or b binary_or c",
			sexpr: "(source_file (binary_expression left: (identifier) operator: (binary_or) right: (binary_expression left: (identifier) operator: (binary_or) right: (identifier))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, tt.specSrc)
			r := parse(t, cg, tt.src)
			assert.Empty(t, r.synErrs)
			assert.Equal(t, tt.sexpr, r.tree.SExpr())
		})
	}
}
