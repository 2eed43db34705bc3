package main

import (
	"github.com/spf13/cobra"

	"github.com/louiss0/tree-sitter-markdoc/driver"
	"github.com/louiss0/tree-sitter-markdoc/lsp"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func init() {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Serve documents over the Language Server Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE:  runLSP,
	}
	rootCmd.AddCommand(cmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	lang, err := loadLanguage()
	if err != nil {
		return err
	}
	var opts []driver.ParseOption
	if cfg.Parse.DisableLAC {
		opts = append(opts, driver.DisableLAC())
	}
	return lsp.NewServer(lang, cfg.LSP.Name, version, opts...).RunStdio()
}
