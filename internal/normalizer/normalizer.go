package normalizer

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"web-rag/internal/models"
)

// skipTags are subtrees that never contain visible content.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

// Normalize turns raw HTML into a flat document tagged with its source URL.
// Layout whitespace is collapsed in two stages: lines are stripped, then
// each line is split on runs of two or more spaces and the surviving
// fragments are joined with single spaces. The double-space split keeps
// text runs that the page laid out side by side from merging into one
// unbroken sentence.
func Normalize(rawHTML []byte, source string) models.Document {
	title, text := extract(rawHTML)
	return models.Document{
		Content: CleanText(text),
		Source:  source,
		Title:   title,
	}
}

// CleanText applies the two-stage whitespace normalization to already
// extracted text.
func CleanText(text string) string {
	var fragments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, phrase := range splitDoubleSpace(line) {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				fragments = append(fragments, phrase)
			}
		}
	}
	return strings.Join(fragments, " ")
}

// splitDoubleSpace splits on runs of 2+ spaces.
func splitDoubleSpace(line string) []string {
	var parts []string
	rest := line
	for {
		i := strings.Index(rest, "  ")
		if i < 0 {
			parts = append(parts, rest)
			return parts
		}
		parts = append(parts, rest[:i])
		rest = strings.TrimLeft(rest[i:], " ")
	}
}

// extract walks the parsed HTML and collects the page title and the visible
// text nodes, line-separated.
func extract(rawHTML []byte) (title, text string) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		// Unparseable input is treated as plain text.
		return "", string(rawHTML)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if n.Data == "title" && n.FirstChild != nil && title == "" {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString("\n")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, sb.String()
}
