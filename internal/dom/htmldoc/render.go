package htmldoc

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render writes the page as HTML. Shadow trees are written back as
// declarative <template shadowrootmode> children of their host.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	out := d.materialize(d.root)
	d.mu.Unlock()
	if err := html.Render(w, out); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

// HTML renders the page to a string.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) materialize(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if s, ok := d.shadows[n]; ok {
		t := &html.Node{
			Type:     html.ElementNode,
			Data:     "template",
			DataAtom: atom.Template,
			Attr:     []html.Attribute{{Key: "shadowrootmode", Val: s.mode}},
		}
		for ch := s.root.FirstChild; ch != nil; ch = ch.NextSibling {
			t.AppendChild(d.materialize(ch))
		}
		c.AppendChild(t)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(d.materialize(ch))
	}
	return c
}
