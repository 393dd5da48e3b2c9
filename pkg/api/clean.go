package api

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// droppedTags are removed together with their content.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// keptAttributes are retained on every element. Other attributes are
// dropped unless keepAttribute says otherwise.
var keptAttributes = map[string]bool{
	"id":         true,
	"class":      true,
	"href":       true,
	"src":        true,
	"alt":        true,
	"title":      true,
	"role":       true,
	"aria-label": true,
}

func keepAttribute(name string) bool {
	name = strings.ToLower(name)
	return keptAttributes[name] || strings.HasPrefix(name, "data-")
}

// CleanMarkup strips scripts, styles, comments, event handlers and
// whitespace-only text from an element's inner HTML. Output stops at
// maxLength bytes of text when maxLength > 0; truncated reports whether that
// happened.
func CleanMarkup(fragment string, maxLength int) (cleaned string, truncated bool, err error) {
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse HTML: %w", err)
	}

	c := &cleaner{max: maxLength}
	for _, n := range nodes {
		if c.node(n) {
			truncated = true
			break
		}
	}
	return strings.TrimSpace(c.out.String()), truncated, nil
}

type cleaner struct {
	out  strings.Builder
	text int
	max  int
}

func (c *cleaner) full() bool {
	return c.max > 0 && c.text >= c.max
}

// node writes n and reports whether the length limit was hit.
func (c *cleaner) node(n *html.Node) bool {
	if c.full() {
		return true
	}

	switch n.Type {
	case html.TextNode:
		return c.textNode(n.Data)
	case html.ElementNode:
		return c.element(n)
	case html.CommentNode, html.DoctypeNode:
		return false
	default:
		return c.children(n)
	}
}

func (c *cleaner) textNode(data string) bool {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return false
	}

	if c.max > 0 && c.text+len(text) > c.max {
		text = text[:c.max-c.text] + "..."
		c.out.WriteString(html.EscapeString(text))
		c.text = c.max
		return true
	}

	c.out.WriteString(html.EscapeString(text))
	c.text += len(text)
	return false
}

func (c *cleaner) element(n *html.Node) bool {
	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return false
	}

	c.out.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(attr.Key) {
			fmt.Fprintf(&c.out, ` %s="%s"`, strings.ToLower(attr.Key), html.EscapeString(attr.Val))
		}
	}
	c.out.WriteString(">")

	if voidTags[tag] {
		return false
	}

	truncated := c.children(n)
	c.out.WriteString("</" + tag + ">")
	return truncated
}

func (c *cleaner) children(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if c.node(child) {
			return true
		}
	}
	return false
}
