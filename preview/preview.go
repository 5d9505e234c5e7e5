// Package preview renders a visited page as Markdown so an operator can see
// what the solver saw.
package preview

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability text accepted as the page's
// main content. Quiz pages are often tiny, so below it the whole page is
// converted instead.
const minContentLength = 50

// Preview is a Markdown rendering of a page.
type Preview struct {
	Title    string
	Markdown string

	// Readable is true when readability isolated the main content; false
	// when the whole document was converted.
	Readable bool
}

// Renderer converts pages to Markdown. It is safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

// NewRenderer creates a Renderer with tables preserved.
func NewRenderer() *Renderer {
	return &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Render converts rawHTML fetched from sourceURL. Relative links become
// absolute against sourceURL's origin.
func (r *Renderer) Render(rawHTML, sourceURL string) (*Preview, error) {
	content, title, readable := extractContent(rawHTML, sourceURL)

	var domain string
	if u, err := nurl.Parse(sourceURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}
	md, err := r.conv.ConvertString(content, converter.WithDomain(domain))
	if err != nil {
		return nil, err
	}
	return &Preview{Title: title, Markdown: strings.TrimSpace(md), Readable: readable}, nil
}

// extractContent runs readability and falls back to the raw document when
// it errors or finds too little text.
func extractContent(rawHTML, sourceURL string) (content, title string, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL, using raw HTML", "url", sourceURL, "error", err)
		return rawHTML, "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed, using raw HTML", "url", sourceURL, "error", err)
		return rawHTML, "", false
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return rawHTML, article.Title, false
	}
	return article.Content, article.Title, true
}
