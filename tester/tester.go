// Package tester runs corpus test cases against a grammar.
package tester

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/driver"
	tspec "github.com/louiss0/tree-sitter-markdoc/spec/test"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

type TestResult struct {
	TestCasePath string
	Name         string
	Skipped      bool
	Error        error
	Diffs        []*tspec.TreeDiff

	// UnifiedDiff shows the expected and the actual tree line by line.
	UnifiedDiff string
}

func (r *TestResult) String() string {
	name := r.TestCasePath
	if r.Name != "" {
		name = fmt.Sprintf("%v: %v", r.TestCasePath, r.Name)
	}
	if r.Skipped {
		return fmt.Sprintf("Skipped %v", name)
	}
	if r.Error != nil {
		const indent1 = "    "
		const indent2 = indent1 + indent1

		msgLines := strings.Split(r.Error.Error(), "\n")
		msg := fmt.Sprintf("Failed %v:\n%v%v", name, indent1, strings.Join(msgLines, "\n"+indent1))
		if len(r.Diffs) == 0 {
			return msg
		}
		var diffLines []string
		for _, diff := range r.Diffs {
			diffLines = append(diffLines, diff.Message)
			diffLines = append(diffLines, fmt.Sprintf("%vexpected path: %v", indent1, diff.ExpectedPath))
			diffLines = append(diffLines, fmt.Sprintf("%vactual path:   %v", indent1, diff.ActualPath))
		}
		msg = fmt.Sprintf("%v\n%v%v", msg, indent2, strings.Join(diffLines, "\n"+indent2))
		if r.UnifiedDiff != "" {
			msg = fmt.Sprintf("%v\n%v%v", msg, indent1, strings.Join(strings.Split(strings.TrimRight(r.UnifiedDiff, "\n"), "\n"), "\n"+indent1))
		}
		return msg
	}
	return fmt.Sprintf("Passed %v", name)
}

type TestCaseWithMetadata struct {
	TestCase *tspec.TestCase
	FilePath string
	Error    error
}

// ListTestCases reads the corpus files matching the patterns. A pattern may use ** to match
// any number of directories. A file that cannot be read or parsed yields one entry carrying
// the error.
func ListTestCases(patterns []string) []*TestCaseWithMetadata {
	var cases []*TestCaseWithMetadata
	for _, pattern := range patterns {
		paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			cases = append(cases, &TestCaseWithMetadata{
				FilePath: pattern,
				Error:    err,
			})
			continue
		}
		if len(paths) == 0 {
			cases = append(cases, &TestCaseWithMetadata{
				FilePath: pattern,
				Error:    fmt.Errorf("no corpus file matches %v", pattern),
			})
			continue
		}
		for _, path := range paths {
			cases = append(cases, readCorpus(path)...)
		}
	}
	return cases
}

func readCorpus(path string) []*TestCaseWithMetadata {
	f, err := os.Open(path)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: path,
				Error:    err,
			},
		}
	}
	defer f.Close()
	cs, err := tspec.ParseCorpus(f)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: path,
				Error:    err,
			},
		}
	}
	cases := make([]*TestCaseWithMetadata, len(cs))
	for i, c := range cs {
		cases[i] = &TestCaseWithMetadata{
			TestCase: c,
			FilePath: path,
		}
	}
	return cases
}

type Tester struct {
	Language *markdoc.Language
	Cases    []*TestCaseWithMetadata

	// Legacy compares trees in the historical spelling, in which a list item's paragraph is a
	// paragraph.
	Legacy bool

	// Workers bounds the number of test cases run at once. Zero or less means one.
	Workers int

	ParseOptions []driver.ParseOption
}

// Run runs every test case and returns the results in the order of the cases.
func (t *Tester) Run(ctx context.Context) ([]*TestResult, error) {
	rs := make([]*TestResult, len(t.Cases))
	eg, ctx := errgroup.WithContext(ctx)
	workers := t.Workers
	if workers <= 0 {
		workers = 1
	}
	eg.SetLimit(workers)
	for i, c := range t.Cases {
		i, c := i, c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rs[i] = t.runTest(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (t *Tester) runTest(c *TestCaseWithMetadata) *TestResult {
	if c.Error != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        c.Error,
		}
	}
	tc := c.TestCase
	r := &TestResult{
		TestCasePath: fmt.Sprintf("%v:%v", c.FilePath, tc.Line),
		Name:         tc.Name,
	}
	if tc.Skip {
		r.Skipped = true
		return r
	}

	res, err := t.Language.Parse(tc.Source, t.ParseOptions...)
	if err != nil {
		r.Error = err
		return r
	}
	if err := tree.Check(res.Tree); err != nil {
		r.Error = fmt.Errorf("invalid tree: %w", err)
		return r
	}

	actual, err := tree.ParseSExpr(res.Tree.SExpr())
	if err != nil {
		r.Error = err
		return r
	}
	expected := tc.Output
	if !expected.HasFields() {
		actual = actual.WithoutFields()
	}
	if t.Legacy {
		actual = actual.Legacy()
	}

	// When a tree exists, the test continues regardless of whether or not syntax errors occurred.
	diffs := tspec.DiffTree(expected, actual)
	if len(diffs) > 0 {
		r.Error = fmt.Errorf("output mismatch")
		r.Diffs = diffs
		r.UnifiedDiff, _ = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(tspec.Format(expected))),
			B:        difflib.SplitLines(string(tspec.Format(actual))),
			FromFile: "expected",
			ToFile:   "actual",
			Context:  3,
		})
	}
	return r
}
