package snapshot

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// invisibleTags never render.
var invisibleTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true, "noscript": true, "title": true, "meta": true, "link": true,
}

// rendered approximates visibility from markup alone: the node and all of its
// ancestors must be free of the hidden attribute, of inline styles that hide
// them, and of tags that never render.
func rendered(n *html.Node) bool {
	for cur := n; cur != nil && cur.Type != html.DocumentNode; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if invisibleTags[cur.Data] || hasAttr(cur, "hidden") {
			return false
		}
		if cur.Data == "input" && strings.EqualFold(htmlquery.SelectAttr(cur, "type"), "hidden") {
			return false
		}
		if hiddenByStyle(htmlquery.SelectAttr(cur, "style")) {
			return false
		}
	}
	return true
}

func hiddenByStyle(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
		switch {
		case prop == "display" && value == "none":
			return true
		case prop == "visibility" && (value == "hidden" || value == "collapse"):
			return true
		}
	}
	return false
}

func isFormControl(n *html.Node) bool {
	switch n.Data {
	case "input", "textarea", "select":
		return true
	}
	return false
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
