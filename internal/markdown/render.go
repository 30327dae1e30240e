package markdown

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"
)

var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

var droppedElements = map[string]struct{}{
	"head":     {},
	"script":   {},
	"style":    {},
	"iframe":   {},
	"object":   {},
	"embed":    {},
	"form":     {},
	"link":     {},
	"meta":     {},
	"noscript": {},
}

// ToHTML converts a markdown blog post into a sanitized HTML fragment wrapped in <article>.
func ToHTML(source string) (string, error) {
	trimmed := StripCodeFence(strings.TrimSpace(source))
	if trimmed == "" {
		return "", eris.New("markdown content is empty")
	}

	var rendered bytes.Buffer
	if err := converter.Convert([]byte(trimmed), &rendered); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	return sanitize(rendered.String())
}

func sanitize(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", eris.Wrap(err, "parsing rendered html")
	}

	root := &html.Node{Type: html.ElementNode, Data: "article"}
	appendSanitizedChildren(root, doc)

	if root.FirstChild == nil {
		return "", eris.New("html content empty after cleaning")
	}

	var builder strings.Builder
	if err := html.Render(&builder, root); err != nil {
		return "", eris.Wrap(err, "rendering cleaned html")
	}

	return builder.String(), nil
}

func appendSanitizedChildren(dst, src *html.Node) {
	skipWhitespace := src.Type == html.DocumentNode || (src.Type == html.ElementNode && (strings.EqualFold(src.Data, "html") || strings.EqualFold(src.Data, "body")))

	for child := src.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if skipWhitespace && strings.TrimSpace(child.Data) == "" {
				continue
			}
			dst.AppendChild(&html.Node{Type: html.TextNode, Data: child.Data})
		case html.ElementNode:
			name := strings.ToLower(child.Data)
			if _, drop := droppedElements[name]; drop {
				continue
			}
			if name == "html" || name == "body" {
				appendSanitizedChildren(dst, child)
				continue
			}

			replacement := &html.Node{Type: html.ElementNode, Data: child.Data, Attr: safeAttributes(child.Attr)}
			appendSanitizedChildren(replacement, child)
			dst.AppendChild(replacement)
		case html.CommentNode, html.DoctypeNode:
			continue
		default:
			appendSanitizedChildren(dst, child)
		}
	}
}

func safeAttributes(attrs []html.Attribute) []html.Attribute {
	if len(attrs) == 0 {
		return nil
	}

	kept := make([]html.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(attr.Key)
		if strings.HasPrefix(key, "on") || key == "style" {
			continue
		}
		if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

// StripCodeFence unwraps content enclosed in a single ``` fence. Anything else is returned unchanged.
func StripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	body := content[3:]
	newline := strings.IndexByte(body, '\n')
	if newline == -1 {
		return content
	}
	body = body[newline+1:]

	trimmedBody := strings.TrimRight(body, " \t\r\n")
	if !strings.HasSuffix(trimmedBody, "```") {
		return content
	}

	return strings.TrimSpace(trimmedBody[:len(trimmedBody)-3])
}
