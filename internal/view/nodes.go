// Package view builds the widget's HTML as node trees. Text is only ever set
// on text nodes, so the renderer escapes it; no markup is parsed from strings.
package view

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func el(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func class(names ...string) html.Attribute {
	return attr("class", strings.Join(names, " "))
}

// visibility returns the class list with "hidden" appended when hidden.
func visibility(hidden bool, names ...string) html.Attribute {
	if hidden {
		names = append(names, "hidden")
	}
	return class(names...)
}

func appendAll(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}

// withText returns n with a single text child.
func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(text(s))
	return n
}
