// Package markdown renders generated answers for display. Models sometimes
// answer with lists or emphasis; raw HTML in an answer is never passed through.
package markdown

import (
	stdhtml "html"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func render(md string) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink,
	}
	renderer := html.NewRenderer(opts)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))
	return string(markdown.Render(doc, renderer))
}

// ToHTML renders md to HTML safe for direct inclusion in a page.
func ToHTML(md string) template.HTML {
	return template.HTML(render(md))
}

// ToPlainText renders md and drops all markup, leaving readable text.
func ToPlainText(md string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(StripHTMLTags(render(md))))
}

func StripHTMLTags(htmlContent string) string {
	var result strings.Builder
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}

// Preview shortens text to at most n runes for one-line listings.
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(ToPlainText(text)), " ")
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
