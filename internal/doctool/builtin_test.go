package doctool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// TestRenderBuiltin renders a small docs tree with layout preserved.
func TestRenderBuiltin(t *testing.T) {
	docs := writeDocs(t, map[string]string{
		"getting-started.md": "# Getting Started\n\nHello **world**.\n",
		"guide/advanced.md":  "# Advanced\n\n- one\n- two\n",
		"notes.txt":          "not markdown",
	})
	out := t.TempDir()

	n, err := RenderBuiltin(context.Background(), docs, out, "My Docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := os.ReadFile(filepath.Join(out, "html", "getting-started.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<strong>world</strong>")
	assert.Contains(t, string(page), "<title>Getting Started</title>")

	assert.FileExists(t, filepath.Join(out, "html", "guide", "advanced.html"))
	assert.NoFileExists(t, filepath.Join(out, "html", "notes.html"))

	index, err := os.ReadFile(filepath.Join(out, "html", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="getting-started.html"`)
	assert.Contains(t, string(index), "Getting Started")
	assert.Contains(t, string(index), `href="guide/advanced.html"`)
	assert.Contains(t, string(index), "<title>My Docs</title>")
}

// TestRenderBuiltinGFM renders tables from the GFM extension.
func TestRenderBuiltinGFM(t *testing.T) {
	docs := writeDocs(t, map[string]string{
		"table.md": "| a | b |\n|---|---|\n| 1 | 2 |\n",
	})
	out := t.TempDir()

	_, err := RenderBuiltin(context.Background(), docs, out, "T")
	require.NoError(t, err)

	page, err := os.ReadFile(filepath.Join(out, "html", "table.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<table>")
}

// TestRenderBuiltinHandwrittenIndex keeps a project-supplied index page.
func TestRenderBuiltinHandwrittenIndex(t *testing.T) {
	docs := writeDocs(t, map[string]string{
		"index.md": "# Custom Home\n",
		"other.md": "# Other\n",
	})
	out := t.TempDir()

	_, err := RenderBuiltin(context.Background(), docs, out, "Site")
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(out, "html", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Custom Home")
	assert.NotContains(t, string(index), "<ul>")
}

// TestRenderBuiltinEmptyTree is a doctool error.
func TestRenderBuiltinEmptyTree(t *testing.T) {
	_, err := RenderBuiltin(context.Background(), t.TempDir(), t.TempDir(), "Empty")
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryDocTool))
}

// TestVerifyLinks flags missing internal targets only.
func TestVerifyLinks(t *testing.T) {
	htmlDir := writeDocs(t, map[string]string{
		"index.html":      `<a href="good.html">ok</a> <a href="missing.html">bad</a>`,
		"good.html":       `<a href="https://example.com/x">external</a> <a href="#frag">frag</a>`,
		"sub/deep.html":   `<img src="../good.html"> <a href="/index.html">root</a>`,
		"sub/lonely.html": `<a href="gone.html">gone</a>`,
	})

	broken, err := VerifyLinks(htmlDir)
	require.NoError(t, err)
	require.Len(t, broken, 2)

	targets := map[string]string{}
	for _, b := range broken {
		targets[b.Target] = b.Page
	}
	assert.Equal(t, "index.html", targets["missing.html"])
	assert.Equal(t, filepath.Join("sub", "lonely.html"), targets["gone.html"])
}
