package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	pathpkg "path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownFetcher converts markdown fragments to HTML.
// Paths with a .md or .markdown extension are rendered, everything else
// is passed through unchanged.
type MarkdownFetcher struct {
	next Fetcher
	md   goldmark.Markdown
}

func NewMarkdownFetcher(next Fetcher) *MarkdownFetcher {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			// fragments are trusted site content and may embed markup
			html.WithUnsafe(),
		),
	)
	return &MarkdownFetcher{next: next, md: md}
}

func (m *MarkdownFetcher) Fetch(ctx context.Context, path string) (string, error) {
	content, err := m.next.Fetch(ctx, path)
	if err != nil || !isMarkdown(path) {
		return content, err
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown %s: %w", path, err)
	}
	return buf.String(), nil
}

func isMarkdown(p string) bool {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	switch strings.ToLower(pathpkg.Ext(p)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
