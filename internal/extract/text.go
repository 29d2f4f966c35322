package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultExcerptLength bounds fallback descriptions built from listing text.
const DefaultExcerptLength = 300

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	blockElements  = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, section, article, blockquote, tr"
)

// CleanText collapses every whitespace run to a single space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeDescription collapses whitespace inside paragraphs and keeps
// paragraph breaks as a single blank line.
func NormalizeDescription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	chunks := paragraphBreak.Split(s, -1)
	paragraphs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if p := CleanText(chunk); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// BlockText renders sel as plain text where block elements and <br> become
// paragraph breaks. sel itself is not modified.
func BlockText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	clone := sel.Clone()
	clone.Find("script, style, noscript").Remove()
	clone.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(breakNode())
	})
	clone.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.BeforeNodes(breakNode())
		s.AfterNodes(breakNode())
	})
	return NormalizeDescription(clone.Text())
}

func breakNode() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n\n"}
}

// Excerpt shortens text to at most limit runes, cutting at a word boundary.
func Excerpt(text string, limit int) string {
	text = CleanText(text)
	if limit <= 0 {
		limit = DefaultExcerptLength
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// FirstText returns the cleaned text of the first non-empty match of any
// selector, tried in order.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		var found string
		sel.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = CleanText(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// FirstAttr returns the first non-empty attribute value among matches of
// selector, trying attrs in order on each match.
func FirstAttr(sel *goquery.Selection, selector string, attrs ...string) string {
	var found string
	sel.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range attrs {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
		}
		return true
	})
	return found
}

// TextList collects the cleaned, non-empty, de-duplicated texts of matches.
func TextList(sel *goquery.Selection, selector string) []string {
	var out []string
	seen := make(map[string]struct{})
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if text == "" {
			return
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, text)
	})
	return out
}
