package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/tester"
)

var testFlags = struct {
	legacy     *bool
	workers    *int
	disableLAC *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "test [<corpus file path or glob>...]",
		Short: "Run corpus tests against the grammar",
		Long: `test runs the test cases of corpus files. A corpus file holds test cases of the form

    ===
    name
    ===
    input
    ---
    (expected tree)

Without arguments test runs the corpus the settings name.`,
		Example: `  markdoc test 'testdata/corpus/**/*.txt'`,
		RunE:    runTest,
	}
	testFlags.legacy = cmd.Flags().Bool("legacy", false, "accept the legacy spelling of list item paragraphs")
	testFlags.workers = cmd.Flags().IntP("workers", "j", 0, "number of test cases run at once (default from the settings)")
	testFlags.disableLAC = cmd.Flags().Bool("disable-lac", false, "disable LAC (lookahead correction)")
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Test.Corpus
	}
	if cmd.Flags().Changed("legacy") {
		cfg.Test.Legacy = *testFlags.legacy
	}
	if *testFlags.workers > 0 {
		cfg.Test.Workers = *testFlags.workers
	}
	if cmd.Flags().Changed("disable-lac") {
		cfg.Parse.DisableLAC = *testFlags.disableLAC
	}

	lang, err := loadLanguage()
	if err != nil {
		return err
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(patterns)
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(os.Stderr, "Failed to read a corpus file: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	t := &tester.Tester{
		Language: lang,
		Cases:    cs,
		Legacy:   cfg.Test.Legacy,
		Workers:  cfg.Test.Workers,
	}
	if cfg.Parse.DisableLAC {
		t.ParseOptions = append(t.ParseOptions, driver.DisableLAC())
	}
	rs, err := t.Run(context.Background())
	if err != nil {
		return err
	}
	testFailed := false
	for _, r := range rs {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
