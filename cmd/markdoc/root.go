package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/louiss0/tree-sitter-markdoc"
	"github.com/louiss0/tree-sitter-markdoc/config"
)

var rootFlags = struct {
	config    *string
	verbosity *int
	logFile   *string
}{}

// cfg holds the settings of the running command: the settings file overridden by flags.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "markdoc",
	Short: "Parse Markdoc documents into concrete syntax trees",
	Long: `markdoc provides the following features:
- Parses Markdoc documents and prints their syntax trees.
- Runs corpus tests against the grammar.
- Compiles the grammar and reports its parsing table.
- Serves documents over the Language Server Protocol.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setUp,
}

func init() {
	rootFlags.config = rootCmd.PersistentFlags().String("config", "", "settings file path (default: the nearest "+config.FileName+")")
	rootFlags.verbosity = rootCmd.PersistentFlags().CountP("verbose", "v", "log more; repeat for debug messages")
	rootFlags.logFile = rootCmd.PersistentFlags().String("log-file", "", "log file path (default stderr)")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}

func setUp(cmd *cobra.Command, args []string) error {
	var err error
	if *rootFlags.config != "" {
		cfg, err = config.Load(*rootFlags.config)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Log.Verbosity = *rootFlags.verbosity
	}
	if *rootFlags.logFile != "" {
		cfg.Log.File = *rootFlags.logFile
	}

	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)
	return nil
}

// loadLanguage returns the embedded grammar, or the compiled grammar the settings name.
func loadLanguage() (*markdoc.Language, error) {
	if cfg.Grammar.Compiled == "" {
		return markdoc.Load()
	}
	f, err := os.Open(cfg.Grammar.Compiled)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the compiled grammar %s: %w", cfg.Grammar.Compiled, err)
	}
	defer f.Close()
	return markdoc.LoadCompiled(f)
}
