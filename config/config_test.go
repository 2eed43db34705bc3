package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, FormatSExpr, c.Parse.Format)
	assert.Equal(t, runtime.NumCPU(), c.Parse.Workers)
	assert.Equal(t, "markdoc", c.LSP.Name)
	assert.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[grammar]
compiled = "build/markdoc.json"

[parse]
format = "json"
workers = 2
disable_lac = true

[test]
corpus = ["corpus/*.txt", "/abs/*.txt"]
legacy = true

[log]
verbosity = 2
file = "markdoc.log"
`)

	c, err := Load(path)
	require.NoError(t, err)
	want := &Config{
		Grammar: GrammarConfig{
			Compiled: filepath.Join(dir, "build/markdoc.json"),
		},
		Parse: ParseConfig{
			Format:     FormatJSON,
			Workers:    2,
			DisableLAC: true,
		},
		Test: TestConfig{
			Corpus:  []string{filepath.Join(dir, "corpus/*.txt"), "/abs/*.txt"},
			Legacy:  true,
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{
			Verbosity: 2,
			File:      filepath.Join(dir, "markdoc.log"),
		},
		LSP: LSPConfig{
			Name: "markdoc",
		},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%v", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "broken TOML",
			src:     "[parse\n",
		},
		{
			caption: "an unknown setting",
			src:     "[parse]\ncolour = true\n",
		},
		{
			caption: "an unknown format",
			src:     "[parse]\nformat = \"xml\"\n",
		},
		{
			caption: "a negative verbosity",
			src:     "[log]\nverbosity = -1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tt.src)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[lsp]\nname = \"docs\"\n")
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	c, err := Find(sub)
	require.NoError(t, err)
	assert.Equal(t, "docs", c.LSP.Name)

	c, err = Find(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "markdoc", c.LSP.Name)
}
