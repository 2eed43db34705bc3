// Package test reads corpus files: named documents paired with the trees they must parse to.
//
// A corpus file holds any number of test cases. Each one starts with a header, a name between
// two lines of = signs, followed by the input, a line of - signs, and the expected tree as an
// S-expression:
//
//	==================
//	A heading
//	==================
//	# Title
//	---
//	(source_file (heading heading_marker: (heading_marker) heading_text: (heading_text)))
//
// A header may also hold attribute lines such as :skip.
package test

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/louiss0/tree-sitter-markdoc/tree"
)

type TreeDiff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newTreeDiff(expectedPath, actualPath string, message string) *TreeDiff {
	return &TreeDiff{
		ExpectedPath: expectedPath,
		ActualPath:   actualPath,
		Message:      message,
	}
}

func childPath(parent string, i int, n *tree.SNode) string {
	if parent == "" {
		return n.Type
	}
	return fmt.Sprintf("%v.[%v]%v", parent, i, n.Type)
}

// DiffTree compares two trees and reports the first difference on each path. An expected node
// of type _ matches a node of any type.
func DiffTree(expected, actual *tree.SNode) []*TreeDiff {
	return diffTree(expected, actual, expected.Type, actual.Type)
}

func diffTree(expected, actual *tree.SNode, expPath, actPath string) []*TreeDiff {
	if expected.Type != "_" && actual.Type != expected.Type {
		msg := fmt.Sprintf("unexpected kind: expected '%v' but got '%v'", expected.Type, actual.Type)
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	if expected.Missing != actual.Missing {
		msg := fmt.Sprintf("unexpected missing flag: expected %v but got %v", expected.Missing, actual.Missing)
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	if expected.Field != actual.Field {
		msg := fmt.Sprintf("unexpected field: expected '%v' but got '%v'", expected.Field, actual.Field)
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	if len(actual.Children) != len(expected.Children) {
		msg := fmt.Sprintf("unexpected node count: expected %v but got %v", len(expected.Children), len(actual.Children))
		return []*TreeDiff{
			newTreeDiff(expPath, actPath, msg),
		}
	}
	var diffs []*TreeDiff
	for i, exp := range expected.Children {
		act := actual.Children[i]
		if ds := diffTree(exp, act, childPath(expPath, i, exp), childPath(actPath, i, act)); len(ds) > 0 {
			diffs = append(diffs, ds...)
		}
	}
	return diffs
}

// Format renders a tree with one node per line, indenting children by four spaces.
func Format(n *tree.SNode) []byte {
	var b bytes.Buffer
	format(&b, n, 0)
	b.WriteString("\n")
	return b.Bytes()
}

func format(buf *bytes.Buffer, n *tree.SNode, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	if n.Field != "" {
		buf.WriteString(n.Field)
		buf.WriteString(": ")
	}
	if n.Missing {
		fmt.Fprintf(buf, "(MISSING %v)", n.Type)
		return
	}
	buf.WriteString("(")
	buf.WriteString(n.Type)
	if len(n.Children) > 0 {
		buf.WriteString("\n")
		for i, c := range n.Children {
			format(buf, c, depth+1)
			if i < len(n.Children)-1 {
				buf.WriteString("\n")
			}
		}
	}
	buf.WriteString(")")
}

type TestCase struct {
	Name   string
	Source []byte
	Output *tree.SNode

	// Line is the line of the header's first delimiter, counting from 1.
	Line int

	Skip bool
}

var (
	reHeaderDelim = regexp.MustCompile(`^={3,}\s*$`)
	reDivider     = regexp.MustCompile(`^-{3,}\s*$`)
)

// ParseCorpus reads every test case of a corpus file.
func ParseCorpus(r io.Reader) ([]*TestCase, error) {
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<24)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	var cases []*TestCase
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	for i < len(lines) {
		c, next, err := parseTestCase(lines, i)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
		i = next
	}
	return cases, nil
}

// parseTestCase reads the test case whose header starts at lines[i] and returns the index of
// the line following it.
func parseTestCase(lines []string, i int) (*TestCase, int, error) {
	if !isHeader(lines, i) {
		return nil, 0, fmt.Errorf("%v: a test case must start with a line of = signs", i+1)
	}
	c := &TestCase{
		Line: i + 1,
	}

	j := i + 1
	var name []string
	for ; j < len(lines) && !reHeaderDelim.MatchString(lines[j]); j++ {
		l := strings.TrimSpace(lines[j])
		switch {
		case l == "":
		case l == ":skip":
			c.Skip = true
		case strings.HasPrefix(l, ":"):
			return nil, 0, fmt.Errorf("%v: unknown attribute %v", j+1, l)
		default:
			name = append(name, l)
		}
	}
	if j >= len(lines) {
		return nil, 0, fmt.Errorf("%v: the header is not closed", i+1)
	}
	if len(name) == 0 {
		return nil, 0, fmt.Errorf("%v: a test case needs a name", i+1)
	}
	c.Name = strings.Join(name, " ")

	inputStart := j + 1
	end := inputStart
	for end < len(lines) && !isHeader(lines, end) {
		end++
	}
	// The input may hold lines of - signs itself, such as frontmatter delimiters, so the last
	// one before the next header divides the input from the expected tree.
	k := end - 1
	for k >= inputStart && !reDivider.MatchString(lines[k]) {
		k--
	}
	if k < inputStart {
		return nil, 0, fmt.Errorf("%v: %v: the input is not followed by a line of - signs", c.Line, c.Name)
	}
	c.Source = []byte(strings.Join(lines[inputStart:k], "\n"))

	expected := strings.TrimSpace(strings.Join(lines[k+1:end], "\n"))
	if expected == "" {
		return nil, 0, fmt.Errorf("%v: %v: the expected tree is empty", c.Line, c.Name)
	}
	out, err := tree.ParseSExpr(expected)
	if err != nil {
		return nil, 0, fmt.Errorf("%v: %v: invalid expected tree: %w", k+2, c.Name, err)
	}
	c.Output = out
	return c, end, nil
}

// isHeader reports whether lines[i] starts a header: a line of = signs, name or attribute lines,
// and another line of = signs.
func isHeader(lines []string, i int) bool {
	if !reHeaderDelim.MatchString(lines[i]) {
		return false
	}
	for j := i + 1; j < len(lines); j++ {
		switch {
		case reHeaderDelim.MatchString(lines[j]):
			return j > i+1
		case reDivider.MatchString(lines[j]):
			return false
		}
	}
	return false
}
