package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/louiss0/tree-sitter-markdoc"
	verr "github.com/louiss0/tree-sitter-markdoc/error"
	"github.com/louiss0/tree-sitter-markdoc/grammar"
	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

var compileFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "compile [<grammar file path>]",
		Short: "Compile the grammar into a parsing table",
		Long: `compile compiles the embedded Markdoc grammar, or the grammar file given as an argument,
and writes the compiled grammar along with a report of its parsing table.`,
		Example: `  markdoc compile -o build/
  markdoc compile markdoc.vgram -o markdoc.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cgram, report, err := compileGrammar(args)
	if err != nil {
		return err
	}

	err = writeCompiledGrammarAndReport(cgram, report, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("Cannot write an output files: %w", err)
	}

	if n := countConflicts(report, true); n > 0 {
		fmt.Fprintf(os.Stderr, "%v conflicts\n", n)
	}
	return nil
}

// compileGrammar compiles the grammar file args names, or the embedded grammar when args is
// empty. Reporting is always enabled.
func compileGrammar(args []string) (*spec.CompiledGrammar, *spec.Report, error) {
	if len(args) == 0 {
		return markdoc.Compile(grammar.EnableReporting())
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()
	cgram, report, err := markdoc.CompileSource(f, grammar.EnableReporting())
	if err != nil {
		var specErrs verr.SpecErrors
		if errors.As(err, &specErrs) {
			for _, e := range specErrs {
				e.FilePath = path
				e.SourceName = path
			}
		}
		return nil, nil, err
	}
	return cgram, report, nil
}

// countConflicts counts the conflicts of a parsing table. When implicit is set, it counts only
// the ones the default rules resolved.
func countConflicts(report *spec.Report, implicit bool) int {
	var n int
	for _, s := range report.States {
		for _, c := range s.SRConflict {
			if !implicit || c.ResolvedBy == spec.ResolvedByShift {
				n++
			}
		}
		for _, c := range s.RRConflict {
			if !implicit || c.ResolvedBy == spec.ResolvedByProdOrder {
				n++
			}
		}
	}
	return n
}

// writeCompiledGrammarAndReport writes a compiled grammar and a report to files located at a
// specified path.
//
// When the path is a directory, the files are <path>/<grammar-name>.json and
// <path>/<grammar-name>-report.json. When the path is a file or a non-existent path, it names
// the compiled grammar, and the report goes to the same directory. When the path is empty,
// the compiled grammar goes to stdout and the report to the current directory.
func writeCompiledGrammarAndReport(cgram *spec.CompiledGrammar, report *spec.Report, path string) error {
	cgramPath, reportPath, err := makeOutputFilePaths(cgram.Name, path)
	if err != nil {
		return err
	}

	{
		var cgramW io.Writer
		if cgramPath != "" {
			cgramFile, err := os.OpenFile(cgramPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer cgramFile.Close()
			cgramW = cgramFile
		} else {
			cgramW = os.Stdout
		}

		err := cgram.Write(cgramW)
		if err != nil {
			return err
		}
	}

	{
		reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer reportFile.Close()

		b, err := json.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(reportFile, "%v\n", string(b))
	}

	return nil
}

func makeOutputFilePaths(gramName string, path string) (string, string, error) {
	reportFileName := gramName + "-report.json"

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		return "", filepath.Join(wd, reportFileName), nil
	}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", err
	}
	if os.IsNotExist(err) || !fi.IsDir() {
		dir, _ := filepath.Split(path)
		return path, filepath.Join(dir, reportFileName), nil
	}

	return filepath.Join(path, gramName+".json"), filepath.Join(path, reportFileName), nil
}
