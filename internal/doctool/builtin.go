package doctool

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// RenderBuiltin renders every Markdown file under docsDir to HTML below
// outDir, preserving the directory layout, and writes an index page. It
// returns the number of pages rendered.
func RenderBuiltin(ctx context.Context, docsDir, outDir, title string) (int, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	var pages []string
	err := filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, err := filepath.Rel(docsDir, path)
		if err != nil {
			return err
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var body bytes.Buffer
		if err := md.Convert(source, &body); err != nil {
			return fmt.Errorf("render %s: %w", rel, err)
		}

		htmlRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
		target := filepath.Join(outDir, "html", htmlRel)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		page := wrapPage(pageTitle(htmlRel, title), body.String())
		if err := os.WriteFile(target, []byte(page), 0o644); err != nil {
			return err
		}

		pages = append(pages, htmlRel)
		observability.DebugContext(ctx, "Rendered page", logfields.Path(htmlRel))
		return nil
	})
	if err != nil {
		return 0, derrors.DocToolFailed("builtin", err)
	}
	if len(pages) == 0 {
		return 0, derrors.DocToolFailed("builtin", fmt.Errorf("no markdown files under %s", docsDir))
	}

	sort.Strings(pages)
	if err := writeIndex(filepath.Join(outDir, "html", "index.html"), title, pages); err != nil {
		return 0, derrors.DocToolFailed("builtin", err)
	}
	return len(pages), nil
}

// pageTitle derives a human title from the page path, falling back to the
// site title for the root index.
func pageTitle(htmlRel, siteTitle string) string {
	base := strings.TrimSuffix(filepath.Base(htmlRel), ".html")
	if base == "index" {
		return siteTitle
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(base)
}

func wrapPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body)
}

func writeIndex(path, title string, pages []string) error {
	var b strings.Builder
	b.WriteString("<ul>\n")
	for _, page := range pages {
		if page == "index.html" {
			continue
		}
		label := pageTitle(page, title)
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`+"\n",
			html.EscapeString(filepath.ToSlash(page)), html.EscapeString(label))
	}
	b.WriteString("</ul>\n")

	// A hand-written index.md wins over the generated listing.
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(wrapPage(title, b.String())), 0o644)
}
