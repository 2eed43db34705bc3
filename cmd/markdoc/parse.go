package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/config"
	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

var parseFlags = struct {
	format      *string
	workers     *int
	disableLAC  *bool
	frontmatter *bool
	legacy      *bool
	noFields    *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "parse [<file path or glob>...]",
		Short: "Parse documents and print their syntax trees",
		Long: `parse parses the documents the arguments name and prints their syntax trees. An argument
may be a glob; ** matches any number of directories. Without arguments parse reads stdin.`,
		Example: `  cat doc.md | markdoc parse
  markdoc parse -f tree 'docs/**/*.md'`,
		RunE: runParse,
	}
	parseFlags.format = cmd.Flags().StringP("format", "f", "", "output format: sexpr, tree, or json (default from the settings)")
	parseFlags.workers = cmd.Flags().IntP("workers", "j", 0, "number of documents parsed at once (default from the settings)")
	parseFlags.disableLAC = cmd.Flags().Bool("disable-lac", false, "disable LAC (lookahead correction)")
	parseFlags.frontmatter = cmd.Flags().Bool("frontmatter", false, "print the decoded frontmatter of each document")
	parseFlags.legacy = cmd.Flags().Bool("legacy", false, "spell list item paragraphs as paragraph in S-expressions")
	parseFlags.noFields = cmd.Flags().Bool("no-fields", false, "omit field names from S-expressions")
	rootCmd.AddCommand(cmd)
}

type parsedDocument struct {
	path        string
	src         []byte
	res         *markdoc.Result
	frontmatter any
	err         error
}

func runParse(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("format") {
		cfg.Parse.Format = *parseFlags.format
	}
	if *parseFlags.workers > 0 {
		cfg.Parse.Workers = *parseFlags.workers
	}
	if cmd.Flags().Changed("disable-lac") {
		cfg.Parse.DisableLAC = *parseFlags.disableLAC
	}
	if cmd.Flags().Changed("frontmatter") {
		cfg.Parse.Frontmatter = *parseFlags.frontmatter
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lang, err := loadLanguage()
	if err != nil {
		return err
	}

	var docs []*parsedDocument
	if len(args) == 0 {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		docs = []*parsedDocument{{path: "stdin", src: src}}
	} else {
		paths, err := expandPaths(args)
		if err != nil {
			return err
		}
		for _, path := range paths {
			docs = append(docs, &parsedDocument{path: path})
		}
	}

	var opts []driver.ParseOption
	if cfg.Parse.DisableLAC {
		opts = append(opts, driver.DisableLAC())
	}
	if err := parseDocuments(context.Background(), lang, docs, cfg.Parse.Workers, opts); err != nil {
		return err
	}

	failed := false
	for _, doc := range docs {
		if doc.err != nil {
			fmt.Fprintf(os.Stderr, "%v: %v\n", doc.path, doc.err)
			failed = true
			continue
		}
		if err := writeDocument(os.Stdout, doc, len(docs) > 1); err != nil {
			return err
		}
	}
	if failed {
		return fmt.Errorf("Cannot parse some documents")
	}
	return nil
}

// expandPaths expands globs into the files they match. An argument matching no file is an
// error.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		ps, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("Invalid glob %v: %w", arg, err)
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("No file matches %v", arg)
		}
		paths = append(paths, ps...)
	}
	return paths, nil
}

// parseDocuments reads and parses documents concurrently. Failures are recorded per document.
func parseDocuments(ctx context.Context, lang *markdoc.Language, docs []*parsedDocument, workers int, opts []driver.ParseOption) error {
	eg, ctx := errgroup.WithContext(ctx)
	if workers <= 0 {
		workers = 1
	}
	eg.SetLimit(workers)
	for _, doc := range docs {
		doc := doc
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if doc.src == nil {
				doc.src, doc.err = os.ReadFile(doc.path)
				if doc.err != nil {
					return nil
				}
			}
			doc.res, doc.err = lang.Parse(doc.src, opts...)
			if doc.err != nil || !cfg.Parse.Frontmatter {
				return nil
			}
			var fm any
			found, err := doc.res.Frontmatter(&fm)
			if err != nil {
				doc.err = err
				return nil
			}
			if found {
				doc.frontmatter = fm
			}
			return nil
		})
	}
	return eg.Wait()
}

type jsonDocument struct {
	Path        string      `json:"path"`
	Tree        *tree.Tree  `json:"tree"`
	Errors      []jsonError `json:"errors"`
	Frontmatter any         `json:"frontmatter,omitempty"`
}

type jsonError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

func writeDocument(w io.Writer, doc *parsedDocument, withPath bool) error {
	if cfg.Parse.Format == config.FormatJSON {
		j := &jsonDocument{
			Path:        doc.path,
			Tree:        doc.res.Tree,
			Errors:      []jsonError{},
			Frontmatter: doc.frontmatter,
		}
		for _, e := range doc.res.Errors {
			line, col := lineAndColumn(doc.src, e.Offset)
			j.Errors = append(j.Errors, jsonError{
				Line:    line,
				Column:  col,
				Offset:  e.Offset,
				Message: e.Error(),
			})
		}
		b, err := json.Marshal(j)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\n", string(b))
		return nil
	}

	if withPath {
		fmt.Fprintf(w, "# %v\n", doc.path)
	}
	for _, e := range doc.res.Errors {
		line, col := lineAndColumn(doc.src, e.Offset)
		fmt.Fprintf(os.Stderr, "%v:%v:%v: %v\n", doc.path, line, col, e)
	}
	if doc.frontmatter != nil {
		b, err := yaml.Marshal(doc.frontmatter)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "frontmatter:\n%v", indent(b, "    "))
	}
	switch cfg.Parse.Format {
	case config.FormatTree:
		tree.PrintTree(w, doc.res.Tree)
	default:
		var opts []tree.SExprOption
		if *parseFlags.noFields {
			opts = append(opts, tree.WithoutFields())
		}
		if *parseFlags.legacy {
			opts = append(opts, tree.Legacy())
		}
		fmt.Fprintf(w, "%v\n", doc.res.Tree.SExpr(opts...))
	}
	return nil
}

// lineAndColumn returns the 1-based line and byte column of an offset.
func lineAndColumn(src []byte, off int) (int, int) {
	if off > len(src) {
		off = len(src)
	}
	line := bytes.Count(src[:off], []byte{'\n'}) + 1
	col := off - bytes.LastIndexByte(src[:off], '\n')
	return line, col
}

func indent(b []byte, prefix string) string {
	var out bytes.Buffer
	for _, l := range bytes.SplitAfter(b, []byte{'\n'}) {
		if len(l) == 0 {
			continue
		}
		out.WriteString(prefix)
		out.Write(l)
	}
	return out.String()
}
