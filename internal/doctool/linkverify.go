package doctool

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// BrokenLink is an internal link whose target file does not exist in the
// rendered output.
type BrokenLink struct {
	Page   string // page containing the link, relative to the html root
	Target string // the href/src as written
}

// VerifyLinks walks the rendered HTML under htmlDir and reports internal
// links (href/src) whose targets are missing. External schemes, fragments and
// mail links are skipped.
func VerifyLinks(htmlDir string) ([]BrokenLink, error) {
	var broken []BrokenLink

	err := filepath.WalkDir(htmlDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}

		rel, err := filepath.Rel(htmlDir, path)
		if err != nil {
			return err
		}

		refs, err := extractRefs(path)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			target, ok := localTarget(ref)
			if !ok {
				continue
			}
			resolved := filepath.Join(filepath.Dir(path), filepath.FromSlash(target))
			if target != "" && strings.HasPrefix(target, "/") {
				resolved = filepath.Join(htmlDir, filepath.FromSlash(strings.TrimPrefix(target, "/")))
			}
			if _, statErr := os.Stat(resolved); statErr != nil {
				broken = append(broken, BrokenLink{Page: rel, Target: ref})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return broken, nil
}

// extractRefs parses one HTML file and collects href and src attribute values.
func extractRefs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// localTarget reports whether ref points inside the rendered site and returns
// the path portion to check.
func localTarget(ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}
