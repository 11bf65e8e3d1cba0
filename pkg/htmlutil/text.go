package htmlutil

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// blockTags are elements that terminate a paragraph of extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true,
}

// skippedTags are elements whose text content is not book text.
var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "title": true,
}

// ExtractParagraphs parses an HTML document and returns its visible text
// grouped into paragraphs. Whitespace is collapsed; empty paragraphs are
// dropped.
func ExtractParagraphs(document string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		text := collapseWhitespace(current.String())
		current.Reset()
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			flush()
		}
	}
	walk(root)
	flush()

	return paragraphs, nil
}

// StripTags returns the visible text of an HTML fragment as a single
// newline-separated string.
func StripTags(fragment string) string {
	paragraphs, err := ExtractParagraphs(fragment)
	if err != nil {
		return ""
	}
	return strings.Join(paragraphs, "\n")
}

// DocumentTitle returns the contents of a document's <title> element, or ""
// when there is none.
func DocumentTitle(document string) string {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return ""
	}

	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.TextNode {
					sb.WriteString(child.Data)
				}
			}
			title = collapseWhitespace(sb.String())
			return
		}
		for child := n.FirstChild; child != nil && title == ""; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return title
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
