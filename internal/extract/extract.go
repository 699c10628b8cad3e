// Package extract implements C1, the Content Extractor: a pure function
// turning an HTML document into {title, text, markdown, tables,
// structured}. It never performs IO — callers (the lightweight and
// playwright adapters) hand it bytes already fetched/rendered elsewhere.
package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

// Result is C1's pure output.
type Result struct {
	Title      string
	Text       string
	Markdown   string
	Tables     []fetch.Table
	Structured map[string]string
}

// blockTags force a paragraph break in the text/markdown renderings.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "li": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "blockquote": true, "pre": true,
}

// skipTags are never descended into for text/markdown extraction.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true,
}

// Extract parses raw HTML and derives every field of Result. Malformed
// markup degrades gracefully (x/net/html repairs it the way a browser
// would) rather than erroring.
func Extract(rawHTML string) (Result, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Result{}, err
	}

	res := Result{Structured: map[string]string{}}
	res.Title = firstText(doc, "title")
	res.Structured = extractMeta(doc)

	var textBuf, mdBuf strings.Builder
	walkText(doc, &textBuf, &mdBuf)
	res.Text = collapseWhitespace(textBuf.String())
	res.Markdown = collapseBlankLines(mdBuf.String())

	res.Tables = extractTables(doc)

	return res, nil
}

func firstText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		var b strings.Builder
		collectText(n, &b)
		return strings.TrimSpace(b.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := firstText(c, tag); t != "" {
			return t
		}
	}
	return ""
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// extractMeta pulls <meta name=".."> / <meta property=".."> pairs into a
// flat map, the closest HTML has to structured frontmatter.
func extractMeta(n *html.Node) map[string]string {
	out := map[string]string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var key, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name", "property":
					key = a.Val
				case "content":
					content = a.Val
				}
			}
			if key != "" && content != "" {
				out[key] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// walkText renders visible text and a lightweight markdown rendering in a
// single traversal, since both share the same skip/block-boundary rules.
func walkText(n *html.Node, text, md *strings.Builder) {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}

	if n.Type == html.TextNode {
		trimmed := strings.TrimSpace(n.Data)
		if trimmed != "" {
			text.WriteString(trimmed)
			text.WriteString(" ")
			md.WriteString(trimmed)
			md.WriteString(" ")
		}
		return
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			md.WriteString("\n" + strings.Repeat("#", level) + " ")
		case "li":
			md.WriteString("\n- ")
		case "a":
			href := attr(n, "href")
			if href != "" {
				var inner strings.Builder
				collectText(n, &inner)
				md.WriteString("[" + strings.TrimSpace(inner.String()) + "](" + href + ")")
				text.WriteString(strings.TrimSpace(inner.String()) + " ")
				return
			}
		case "img":
			alt := attr(n, "alt")
			src := attr(n, "src")
			if src != "" {
				md.WriteString("![" + alt + "](" + src + ")")
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, text, md)
	}

	if n.Type == html.ElementNode && blockTags[n.Data] {
		text.WriteString("\n")
		md.WriteString("\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func extractTables(n *html.Node) []fetch.Table {
	var tables []fetch.Table
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, extractTable(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return tables
}

func extractTable(tableNode *html.Node) fetch.Table {
	var t fetch.Table
	t.Caption = firstText(tableNode, "caption")

	var rows [][]string
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					var cell strings.Builder
					collectText(c, &cell)
					row = append(row, strings.TrimSpace(cell.String()))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(tableNode)

	if len(rows) > 0 {
		t.Headers = rows[0]
		t.Rows = rows[1:]
	}
	return t
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
