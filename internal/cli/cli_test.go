package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/layout"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithCache(t, t.TempDir(), args...)
}

// executeWithCache runs the CLI with the artifact cache rooted at dir.
func executeWithCache(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(cacheDirEnv, dir)
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"solve", "render", "view", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSolveJSON(t *testing.T) {
	out, err := execute(t, "solve", "testdata/dashboard.toml",
		"--format", "json", "--collapse", "sidebar", "--resize", "400x600")
	require.NoError(t, err)

	var res solveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "dashboard", res.Document)
	assert.Equal(t, layout.ScreenDimensions{Width: 400, Height: 600}, res.Window)
	assert.Zero(t, res.Rejected)

	byName := map[string]layout.Rect{}
	for _, n := range res.Nodes {
		byName[n.Name] = n.Rect
		if n.Name == "sidebar" {
			assert.Equal(t, draw.Collapsed, n.State)
		}
	}
	assert.Equal(t, layout.Rect{Width: 400, Height: 600}, byName["root"])
	assert.Equal(t, layout.Rect{Top: 50}, byName["sidebar"])
	assert.Equal(t, layout.Rect{Top: 50, Width: 400, Height: 550}, byName["content"])
}

func TestSolveWindowOverride(t *testing.T) {
	out, err := execute(t, "solve", "testdata/dashboard.toml", "--format", "json", "--width", "1000", "--height", "500")
	require.NoError(t, err)

	var res solveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	for _, n := range res.Nodes {
		if n.Name == "sidebar" {
			assert.Equal(t, layout.Rect{Top: 50, Width: 250, Height: 450}, n.Rect)
		}
	}
}

func TestSolveYAMLAndTable(t *testing.T) {
	out, err := execute(t, "solve", "testdata/dashboard.toml", "--format", "yaml", "--hide", "content")
	require.NoError(t, err)
	assert.Contains(t, out, "document: dashboard")
	assert.Contains(t, out, "state: hidden")

	out, err = execute(t, "solve", "testdata/dashboard.toml", "--ticks", "2")
	require.NoError(t, err)
	for _, want := range []string{"Entity", "header", "sidebar", "800 × 600", "0 positions changed"} {
		assert.Contains(t, out, want)
	}
}

func TestSolveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	out, err := execute(t, "solve", "testdata/dashboard.toml", "-f", "json", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
}

func TestSolveErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing file", []string{"solve", "testdata/missing.toml"}, errors.ErrCodeFileNotFound},
		{"bad extension", []string{"solve", "testdata/dashboard.json"}, errors.ErrCodeInvalidFormat},
		{"bad output format", []string{"solve", "testdata/dashboard.toml", "-f", "xml"}, errors.ErrCodeInvalidFormat},
		{"bad size", []string{"solve", "testdata/dashboard.toml", "--resize", "400by600"}, errors.ErrCodeInvalidInput},
		{"unknown entity", []string{"solve", "testdata/dashboard.toml", "--collapse", "footer"}, errors.ErrCodeUnknownEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    layout.ScreenDimensions
		wantErr bool
	}{
		{"400x600", layout.ScreenDimensions{Width: 400, Height: 600}, false},
		{" 80X24 ", layout.ScreenDimensions{Width: 80, Height: 24}, false},
		{"0x0", layout.ScreenDimensions{}, false},
		{"400", layout.ScreenDimensions{}, true},
		{"-1x5", layout.ScreenDimensions{}, true},
		{"ax5", layout.ScreenDimensions{}, true},
		{"5x99999999999", layout.ScreenDimensions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "framekit")
		})
	}

	_, err := execute(t, "completion", "tcsh")
	assert.Error(t, err)
}
