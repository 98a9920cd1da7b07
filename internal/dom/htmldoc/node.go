package htmldoc

import (
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
	"golang.org/x/net/html"
)

// node is the comparable handle handed out for every *html.Node.
type node struct {
	n *html.Node
	d *Document
}

var _ dom.Node = node{}

func (d *Document) wrap(n *html.Node) dom.Node {
	if n == nil {
		return nil
	}
	return node{n: n, d: d}
}

func unwrap(n dom.Node) *html.Node {
	if n == nil {
		return nil
	}
	if v, ok := n.(node); ok {
		return v.n
	}
	return nil
}

func (v node) Type() dom.NodeType {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return v.d.typeOf(v.n)
}

func (d *Document) typeOf(n *html.Node) dom.NodeType {
	switch n.Type {
	case html.ElementNode:
		return dom.ElementNode
	case html.TextNode:
		return dom.TextNode
	case html.DocumentNode:
		if _, ok := d.hosts[n]; ok {
			return dom.FragmentNode
		}
	}
	return dom.OtherNode
}

func (v node) Name() string {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return v.d.nameOf(v.n)
}

func (d *Document) nameOf(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return strings.ToUpper(n.Data)
	case html.TextNode:
		return dom.TextName
	case html.CommentNode:
		return dom.CommentName
	case html.DocumentNode:
		if _, ok := d.hosts[n]; ok {
			return dom.FragmentName
		}
		return "#document"
	}
	return ""
}

func (v node) Parent() dom.Node {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return v.d.wrap(v.d.parentOf(v.n))
}

// parentOf hides the document node: the html element is the tree root.
func (d *Document) parentOf(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil {
		return nil
	}
	if p.Type == html.DocumentNode {
		if _, ok := d.hosts[p]; !ok {
			return nil
		}
	}
	return p
}

func (v node) Children() []dom.Node {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	var out []dom.Node
	for c := v.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, v.d.wrap(c))
	}
	return out
}

func (v node) ShadowRoot() dom.Node {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if s, ok := v.d.shadows[v.n]; ok {
		return v.d.wrap(s.root)
	}
	return nil
}

func (v node) Host() dom.Node {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return v.d.wrap(v.d.hosts[v.n])
}

func (v node) Attr(name string) (string, bool) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return getAttr(v.n, name)
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (v node) SetAttr(name, value string) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if v.n.Type != html.ElementNode {
		return
	}
	setAttr(v.n, name, value)
	v.d.version++
}

func setAttr(n *html.Node, name, value string) {
	name = strings.ToLower(name)
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func (v node) RemoveAttr(name string) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	kept := v.n.Attr[:0]
	for _, a := range v.n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	v.n.Attr = kept
	v.d.version++
}

func (v node) Data() string {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if v.n.Type == html.TextNode || v.n.Type == html.CommentNode {
		return v.n.Data
	}
	return ""
}

func (v node) SetData(data string) {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	if v.n.Type != html.TextNode && v.n.Type != html.CommentNode {
		return
	}
	v.n.Data = data
	v.d.version++
}

func (v node) TextContent() string {
	v.d.mu.Lock()
	defer v.d.mu.Unlock()
	return textContent(v.n)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				visit(c.FirstChild)
			}
		}
	}
	visit(n.FirstChild)
	return b.String()
}

// String renders a short description for logs and test failures.
func (v node) String() string {
	name := v.Name()
	if id, ok := v.Attr("id"); ok {
		return name + "#" + id
	}
	return name
}
