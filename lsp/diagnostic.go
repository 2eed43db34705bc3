package lsp

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"gopkg.in/yaml.v3"

	"github.com/louiss0/tree-sitter-markdoc"
)

const diagnosticSource = "markdoc"

// Diagnostics reports the syntax errors of a document, plus a warning when its frontmatter is
// not valid YAML.
func Diagnostics(doc *Document) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	if doc.Result == nil {
		return diags
	}
	for _, e := range doc.Result.Errors {
		start, end := e.Offset, e.Offset
		var msg string
		switch {
		case e.Missing != "":
			msg = fmt.Sprintf("missing %v", e.Missing)
		case e.Token != nil && e.Token.Invalid:
			start, end = e.Token.Start, e.Token.End
			msg = "invalid token"
		default:
			if e.Token != nil {
				start, end = e.Token.Start, e.Token.End
			}
			msg = "unexpected token"
			if len(e.ExpectedTerminals) > 0 {
				msg = fmt.Sprintf("%v; expected: %v", msg, joinTerminals(e.ExpectedTerminals))
			}
		}
		diags = append(diags, newDiagnostic(doc.Text, start, end, protocol.DiagnosticSeverityError, msg))
	}
	if d, ok := frontmatterDiagnostic(doc); ok {
		diags = append(diags, d)
	}
	return diags
}

func frontmatterDiagnostic(doc *Document) (protocol.Diagnostic, bool) {
	n := doc.Result.FrontmatterYAML()
	if n.IsNil() {
		return protocol.Diagnostic{}, false
	}
	if err := markdoc.DecodeFrontmatter(n.Text(), &yaml.Node{}); err != nil {
		return newDiagnostic(doc.Text, n.Start(), n.End(), protocol.DiagnosticSeverityWarning, err.Error()), true
	}
	return protocol.Diagnostic{}, false
}

func newDiagnostic(text []byte, start, end int, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := diagnosticSource
	return protocol.Diagnostic{
		Range:    rangeOf(text, start, end),
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func joinTerminals(terms []string) string {
	const max = 5
	s := ""
	for i, t := range terms {
		if i == max {
			return s + ", ..."
		}
		if i > 0 {
			s += ", "
		}
		s += t
	}
	return s
}
