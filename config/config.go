// Package config reads markdoc.toml, the settings file of the markdoc command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the settings file the markdoc command looks for.
const FileName = "markdoc.toml"

// Output formats of parsed trees.
const (
	FormatSExpr = "sexpr"
	FormatTree  = "tree"
	FormatJSON  = "json"
)

type Config struct {
	Grammar GrammarConfig `toml:"grammar"`
	Parse   ParseConfig   `toml:"parse"`
	Test    TestConfig    `toml:"test"`
	Log     LogConfig     `toml:"log"`
	LSP     LSPConfig     `toml:"lsp"`
}

// GrammarConfig selects the grammar. Without a compiled grammar the embedded one is used.
type GrammarConfig struct {
	Compiled string `toml:"compiled"`
}

type ParseConfig struct {
	Format     string `toml:"format"`
	Workers    int    `toml:"workers"`
	DisableLAC bool   `toml:"disable_lac"`

	// Frontmatter prints the decoded frontmatter of each document along with its tree.
	Frontmatter bool `toml:"frontmatter"`
}

type TestConfig struct {
	Corpus  []string `toml:"corpus"`
	Legacy  bool     `toml:"legacy"`
	Workers int      `toml:"workers"`
}

type LogConfig struct {
	// Verbosity is 0 for errors only, 1 for info, and 2 or more for debug messages.
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type LSPConfig struct {
	Name string `toml:"name"`
}

// Default returns the settings used when no file sets them.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Parse.Format == "" {
		c.Parse.Format = FormatSExpr
	}
	if c.Parse.Workers <= 0 {
		c.Parse.Workers = runtime.NumCPU()
	}
	if len(c.Test.Corpus) == 0 {
		c.Test.Corpus = []string{"testdata/corpus/**/*.txt"}
	}
	if c.Test.Workers <= 0 {
		c.Test.Workers = runtime.NumCPU()
	}
	if c.LSP.Name == "" {
		c.LSP.Name = "markdoc"
	}
}

func (c *Config) Validate() error {
	switch c.Parse.Format {
	case FormatSExpr, FormatTree, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q; use %v, %v, or %v", c.Parse.Format, FormatSExpr, FormatTree, FormatJSON)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log verbosity must not be negative: %v", c.Log.Verbosity)
	}
	return nil
}

// Load reads a settings file. Settings the file omits take their defaults. Relative paths in
// the file are relative to the directory holding it.
func Load(path string) (*Config, error) {
	c := &Config{}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%v: unknown setting %v", path, undecoded[0])
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	dir := filepath.Dir(path)
	if c.Grammar.Compiled != "" && !filepath.IsAbs(c.Grammar.Compiled) {
		c.Grammar.Compiled = filepath.Join(dir, c.Grammar.Compiled)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
	for i, p := range c.Test.Corpus {
		if !filepath.IsAbs(p) {
			c.Test.Corpus[i] = filepath.Join(dir, p)
		}
	}
	return c, nil
}

// Find looks for a settings file in dir and its ancestors and loads the nearest one. It returns
// the defaults when there is none.
func Find(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		_, err := os.Stat(path)
		if err == nil {
			return Load(path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
