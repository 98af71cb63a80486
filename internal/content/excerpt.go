// Package content derives listing metadata from article bodies.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultExcerptLength is the excerpt size used by the catalog.
const DefaultExcerptLength = 280

const blockSelector = "p, div, br, li, h1, h2, h3, h4, h5, h6, blockquote, figcaption, td"

// PlainText strips markup from editor HTML and collapses whitespace.
// Scripts, styles and embedded frames contribute no text.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, iframe, noscript").Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns at most maxRunes runes of the article's plain text, cut at a
// word boundary and marked with an ellipsis when shortened.
func Excerpt(html string, maxRunes int) string {
	text := PlainText(html)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}
