package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	spec "github.com/louiss0/tree-sitter-markdoc/spec/grammar"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show [<report file path>]",
		Short: "Print a report in a readable format",
		Long: `show prints the states and conflicts of a parsing table. Without an argument it reports on
the embedded grammar.`,
		Example: `  markdoc show
  markdoc show markdoc-report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report, err := loadReport(args)
	if err != nil {
		return err
	}

	return writeReport(os.Stdout, report)
}

// loadReport reads the report file args names, or compiles the embedded grammar to report on it.
func loadReport(args []string) (*spec.Report, error) {
	if len(args) == 0 {
		_, report, err := compileGrammar(nil)
		return report, err
	}
	return readReport(args[0])
}

func readReport(path string) (*spec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the report %s: %w", path, err)
	}
	defer f.Close()

	d, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	report := &spec.Report{}
	err = json.Unmarshal(d, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

const reportTemplate = `# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range slice .Terminals 1 -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range slice .Productions 1 -}}
{{ printProduction . }}
{{ end }}
# States
{{ range .States }}
## State {{ .Number }}{{ if .Trapper }} (error trapper){{ end }}

{{ range .Kernel -}}
{{ printItem . }}
{{ end }}
{{ range .Shift -}}
{{ printShift . }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ range .GoTo -}}
{{ printGoTo . }}
{{ end }}
{{ range .SRConflict -}}
{{ printSRConflict . }}
{{ end -}}
{{ range .RRConflict -}}
{{ printRRConflict . }}
{{ end -}}
{{ end }}`

func writeReport(w io.Writer, report *spec.Report) error {
	termName := func(sym int) string {
		if report.Terminals[sym].Alias != "" {
			return report.Terminals[sym].Alias
		}
		return report.Terminals[sym].Name
	}

	nonTermName := func(sym int) string {
		return report.NonTerminals[sym].Name
	}

	assocName := func(assoc string) string {
		switch assoc {
		case "l":
			return "left"
		case "r":
			return "right"
		default:
			return "no"
		}
	}

	precAndAssoc := func(prec int, assoc string) (string, string) {
		p := " -"
		if prec != 0 {
			p = fmt.Sprintf("%2v", prec)
		}
		a := "-"
		if assoc != "" {
			a = assoc
		}
		return p, a
	}

	rhs := func(prod *spec.Production, dot int) string {
		var b strings.Builder
		fmt.Fprintf(&b, "%v →", nonTermName(prod.LHS))
		for i, e := range prod.RHS {
			if i == dot {
				fmt.Fprintf(&b, " ・")
			}
			var name string
			if e > 0 {
				name = termName(e)
			} else {
				name = nonTermName(e * -1)
			}
			if i < len(prod.Fields) && prod.Fields[i] != "" {
				name = name + "@" + prod.Fields[i]
			}
			fmt.Fprintf(&b, " %v", name)
		}
		if dot >= len(prod.RHS) {
			fmt.Fprintf(&b, " ・")
		} else if len(prod.RHS) == 0 {
			fmt.Fprintf(&b, " ε")
		}
		return b.String()
	}

	fns := template.FuncMap{
		"printConflictSummary": func(report *spec.Report) string {
			implicitlyResolvedCount := countConflicts(report, true)
			explicitlyResolvedCount := countConflicts(report, false) - implicitlyResolvedCount

			var b strings.Builder
			if implicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved implicitly.\n", implicitlyResolvedCount)
			} else if implicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved implicitly.\n", implicitlyResolvedCount)
			}
			if explicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved explicitly.\n", explicitlyResolvedCount)
			} else if explicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved explicitly.\n", explicitlyResolvedCount)
			}
			if implicitlyResolvedCount == 0 && explicitlyResolvedCount == 0 {
				fmt.Fprintf(&b, "No conflict")
			}
			return b.String()
		},
		"printTerminal": func(term *spec.Terminal) string {
			prec, assoc := precAndAssoc(term.Precedence, term.Associativity)
			var b strings.Builder
			fmt.Fprintf(&b, "%4v %v %v %v", term.Number, prec, assoc, term.Name)
			if term.Alias != "" {
				fmt.Fprintf(&b, " (%v)", term.Alias)
			}
			if term.External {
				fmt.Fprintf(&b, " external")
			}
			return b.String()
		},
		"printProduction": func(prod *spec.Production) string {
			prec, assoc := precAndAssoc(prod.Precedence, prod.Associativity)
			s := fmt.Sprintf("%4v %v %v %v", prod.Number, prec, assoc, rhs(prod, -1))
			if prod.Recover {
				s += " #recover"
			}
			return s
		},
		"printItem": func(item *spec.Item) string {
			return fmt.Sprintf("%4v %v", item.Production, rhs(report.Productions[item.Production], item.Dot))
		},
		"printShift": func(tran *spec.Transition) string {
			return fmt.Sprintf("shift  %4v on %v", tran.State, termName(tran.Symbol))
		},
		"printReduce": func(reduce *spec.Reduce) string {
			names := make([]string, len(reduce.LookAhead))
			for i, a := range reduce.LookAhead {
				names[i] = termName(a)
			}
			return fmt.Sprintf("reduce %4v on %v", reduce.Production, strings.Join(names, ", "))
		},
		"printGoTo": func(tran *spec.Transition) string {
			return fmt.Sprintf("goto   %4v on %v", tran.State, nonTermName(tran.Symbol))
		},
		"printSRConflict": func(sr *spec.SRConflict) string {
			var adopted string
			switch {
			case sr.AdoptedState != nil:
				adopted = fmt.Sprintf("shift %v", *sr.AdoptedState)
			case sr.AdoptedProduction != nil:
				adopted = fmt.Sprintf("reduce %v", *sr.AdoptedProduction)
			}
			var resolvedBy string
			switch sr.ResolvedBy {
			case spec.ResolvedByPrec:
				if sr.AdoptedState != nil {
					resolvedBy = fmt.Sprintf("symbol %v has higher precedence than production %v", termName(sr.Symbol), sr.Production)
				} else {
					resolvedBy = fmt.Sprintf("production %v has higher precedence than symbol %v", sr.Production, termName(sr.Symbol))
				}
			case spec.ResolvedByAssoc:
				if sr.AdoptedState != nil {
					resolvedBy = fmt.Sprintf("symbol %v and production %v has the same precedence, and symbol %v has %v associativity", termName(sr.Symbol), sr.Production, termName(sr.Symbol), assocName(report.Terminals[sr.Symbol].Associativity))
				} else {
					resolvedBy = fmt.Sprintf("production %v and symbol %v has the same precedence, and production %v has %v associativity", sr.Production, termName(sr.Symbol), sr.Production, assocName(report.Productions[sr.Production].Associativity))
				}
			case spec.ResolvedByShift:
				resolvedBy = fmt.Sprintf("symbol %v and production %v don't define a precedence comparison (default rule)", termName(sr.Symbol), sr.Production)
			default:
				resolvedBy = "?" // This is a bug.
			}
			return fmt.Sprintf("shift/reduce conflict (shift %v, reduce %v) on %v: %v adopted because %v", sr.State, sr.Production, termName(sr.Symbol), adopted, resolvedBy)
		},
		"printRRConflict": func(rr *spec.RRConflict) string {
			var resolvedBy string
			switch rr.ResolvedBy {
			case spec.ResolvedByProdOrder:
				resolvedBy = fmt.Sprintf("production %v and %v don't define a precedence comparison (default rule)", rr.Production1, rr.Production2)
			default:
				resolvedBy = "?" // This is a bug.
			}
			return fmt.Sprintf("reduce/reduce conflict (%v, %v) on %v: reduce %v adopted because %v", rr.Production1, rr.Production2, termName(rr.Symbol), rr.AdoptedProduction, resolvedBy)
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, report)
}
