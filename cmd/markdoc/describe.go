package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
	"github.com/louiss0/tree-sitter-markdoc/tree"
)

func init() {
	cmd := &cobra.Command{
		Use:   "describe [<compiled grammar file path>]",
		Short: "Print the node kinds a grammar produces",
		Long: `describe lists every node kind with the grammar symbols producing it and the fields its
children play. Without an argument it describes the grammar in use.`,
		Example: `  markdoc describe
  markdoc describe build/markdoc.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDescribe,
	}
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	var cg *spec.CompiledGrammar
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("Cannot open the compiled grammar %s: %w", args[0], err)
		}
		defer f.Close()
		cg, err = spec.Load(f)
		if err != nil {
			return err
		}
	} else {
		lang, err := loadLanguage()
		if err != nil {
			return err
		}
		cg = lang.Grammar().Compiled()
	}

	return writeDescription(os.Stdout, describeKinds(cg))
}

type kindDescription struct {
	Kind    string
	Leaf    bool
	Symbols []string
	Fields  []string
}

// describeKinds collects the node kinds of a grammar in declaration order.
func describeKinds(cg *spec.CompiledGrammar) []*kindDescription {
	descs := map[string]*kindDescription{}
	get := func(kind string, leaf bool) *kindDescription {
		d, ok := descs[kind]
		if !ok {
			d = &kindDescription{Kind: kind, Leaf: leaf}
			descs[kind] = d
		}
		return d
	}

	for t, kind := range cg.Tree.TerminalKinds {
		if kind == "" {
			continue
		}
		d := get(kind, true)
		d.Symbols = appendUnique(d.Symbols, cg.Syntactic.Terminals[t])
	}
	for n, kind := range cg.Tree.NonTerminalKinds {
		if kind == "" {
			continue
		}
		d := get(kind, false)
		d.Symbols = appendUnique(d.Symbols, cg.Syntactic.NonTerminals[n])
	}
	for p, fields := range cg.Tree.Fields {
		if p >= len(cg.Syntactic.LHSSymbols) {
			break
		}
		kind := cg.Tree.NonTerminalKinds[cg.Syntactic.LHSSymbols[p]]
		if kind == "" {
			continue
		}
		d := get(kind, false)
		for _, f := range fields {
			if f != "" {
				d.Fields = appendUnique(d.Fields, f)
			}
		}
	}

	var ds []*kindDescription
	for _, k := range tree.Kinds() {
		if d, ok := descs[k.String()]; ok {
			sort.Strings(d.Fields)
			ds = append(ds, d)
		}
	}
	return ds
}

func appendUnique(ss []string, s string) []string {
	for _, e := range ss {
		if e == s {
			return ss
		}
	}
	return append(ss, s)
}

const descTemplate = `# Nodes
{{ range . }}{{ if not .Leaf }}
{{ printKind . }}{{ end }}{{ end }}

# Leaves
{{ range . }}{{ if .Leaf }}
{{ printKind . }}{{ end }}{{ end }}
`

func writeDescription(w io.Writer, descs []*kindDescription) error {
	fns := template.FuncMap{
		"printKind": func(d *kindDescription) string {
			var b strings.Builder
			fmt.Fprintf(&b, "%v", d.Kind)
			if len(d.Symbols) > 1 || len(d.Symbols) == 1 && d.Symbols[0] != d.Kind {
				fmt.Fprintf(&b, " (from %v)", strings.Join(d.Symbols, ", "))
			}
			if len(d.Fields) > 0 {
				fmt.Fprintf(&b, "\n    fields: %v", strings.Join(d.Fields, ", "))
			}
			return b.String()
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(descTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, descs)
}
