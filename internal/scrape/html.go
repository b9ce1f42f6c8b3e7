package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

type matchFunc func(*html.Node) bool

func byTag(tag string) matchFunc {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func byClass(tag, class string) matchFunc {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag && hasClass(n, class)
	}
}

func findAll(root *html.Node, match matchFunc) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
	})
	return out
}

func findFirst(root *html.Node, match matchFunc) *html.Node {
	for _, n := range findAll(root, match) {
		return n
	}
	return nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
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

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// text collects the concatenated text content beneath a node.
func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}
