// Package htmldoc is an in-memory live document backed by golang.org/x/net/html.
//
// It parses a page once and then behaves like a rendered tab: nodes can be
// edited in place, child list changes are reported to observers, selectors
// are answered through goquery, and a deterministic flow layout gives every
// node a box relative to a scrollable viewport.
package htmldoc

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/oukeidos/dualpage/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const DefaultViewportHeight = 800

// Options configures a parsed document.
type Options struct {
	// URL is the address the page was loaded from. Site rules match against it.
	URL string
	// ViewportHeight defaults to DefaultViewportHeight.
	ViewportHeight float64
	// Hidden starts the page in the background.
	Hidden bool
}

type shadow struct {
	root *html.Node
	mode string
}

// Document implements dom.Document.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	url  *url.URL

	shadows map[*html.Node]*shadow
	hosts   map[*html.Node]*html.Node

	visible   bool
	listeners map[int]func(bool)
	observers map[int]*observer
	nextID    int

	viewportHeight float64
	scrollY        float64

	version       uint64
	layoutVersion uint64
	boxes         map[*html.Node]box
	contentHeight float64
}

var _ dom.Document = (*Document)(nil)

type observer struct {
	root *html.Node
	fn   func([]dom.MutationRecord)
}

type pendingRecord struct {
	target  *html.Node
	added   []*html.Node
	removed []*html.Node
}

// Parse reads an HTML page.
func Parse(r io.Reader, opts Options) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	u := &url.URL{}
	if opts.URL != "" {
		u, err = url.Parse(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid page url %q: %w", opts.URL, err)
		}
	}
	vh := opts.ViewportHeight
	if vh <= 0 {
		vh = DefaultViewportHeight
	}
	d := &Document{
		root:           root,
		url:            u,
		shadows:        make(map[*html.Node]*shadow),
		hosts:          make(map[*html.Node]*html.Node),
		visible:        !opts.Hidden,
		listeners:      make(map[int]func(bool)),
		observers:      make(map[int]*observer),
		viewportHeight: vh,
	}
	d.attachShadowRoots()
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts Options) (*Document, error) {
	return Parse(strings.NewReader(s), opts)
}

// attachShadowRoots turns declarative <template shadowrootmode> children into
// shadow trees of their parent element.
func (d *Document) attachShadowRoots() {
	var templates []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Template {
				if _, ok := getAttr(c, "shadowrootmode"); ok {
					templates = append(templates, c)
				}
			}
			visit(c)
		}
	}
	visit(d.root)

	for _, t := range templates {
		host := t.Parent
		if host == nil || host.Type != html.ElementNode {
			continue
		}
		if _, taken := d.shadows[host]; taken {
			continue
		}
		mode, _ := getAttr(t, "shadowrootmode")
		frag := &html.Node{Type: html.DocumentNode}
		for c := t.FirstChild; c != nil; {
			next := c.NextSibling
			t.RemoveChild(c)
			frag.AppendChild(c)
			c = next
		}
		host.RemoveChild(t)
		d.shadows[host] = &shadow{root: frag, mode: mode}
		d.hosts[frag] = host
	}
}

func (d *Document) documentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func (d *Document) childElement(a atom.Atom) *html.Node {
	de := d.documentElement()
	if de == nil {
		return nil
	}
	for c := de.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func (d *Document) Root() dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.documentElement())
}

func (d *Document) Head() dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.childElement(atom.Head))
}

func (d *Document) Body() dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.childElement(atom.Body))
}

func (d *Document) URL() *url.URL {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := *d.url
	return &u
}

func (d *Document) titleElement() *html.Node {
	head := d.childElement(atom.Head)
	if head == nil {
		return nil
	}
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			return c
		}
	}
	return nil
}

// Title returns the page title with whitespace collapsed.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.titleElement()
	if t == nil {
		return ""
	}
	return strings.Join(strings.Fields(textContent(t)), " ")
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	t := d.titleElement()
	var recs []pendingRecord
	if t == nil {
		head := d.childElement(atom.Head)
		if head == nil {
			d.mu.Unlock()
			return
		}
		t = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(t)
		recs = append(recs, pendingRecord{target: head, added: []*html.Node{t}})
	}
	var removed []*html.Node
	for c := t.FirstChild; c != nil; {
		next := c.NextSibling
		t.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	text := &html.Node{Type: html.TextNode, Data: title}
	t.AppendChild(text)
	recs = append(recs, pendingRecord{target: t, added: []*html.Node{text}, removed: removed})
	d.version++
	d.unlockAndNotify(recs)
}

// Lang returns the lang attribute of the html element.
func (d *Document) Lang() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	de := d.documentElement()
	if de == nil {
		return ""
	}
	v, _ := getAttr(de, "lang")
	return strings.TrimSpace(v)
}

func (d *Document) CreateElement(tag string) dom.Node {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (d *Document) CreateText(data string) dom.Node {
	return d.wrap(&html.Node{Type: html.TextNode, Data: data})
}

// detach removes n from its parent and returns the record for it.
func (d *Document) detach(n *html.Node) (pendingRecord, bool) {
	p := n.Parent
	if p == nil {
		return pendingRecord{}, false
	}
	p.RemoveChild(n)
	return pendingRecord{target: p, removed: []*html.Node{n}}, true
}

func (d *Document) InsertBefore(parent, child, ref dom.Node) {
	p, c, r := unwrap(parent), unwrap(child), unwrap(ref)
	if p == nil || c == nil {
		return
	}
	d.mu.Lock()
	if r != nil && r.Parent != p {
		d.mu.Unlock()
		return
	}
	var recs []pendingRecord
	if rec, ok := d.detach(c); ok {
		recs = append(recs, rec)
	}
	p.InsertBefore(c, r)
	recs = append(recs, pendingRecord{target: p, added: []*html.Node{c}})
	d.version++
	d.unlockAndNotify(recs)
}

func (d *Document) AppendChild(parent, child dom.Node) {
	d.InsertBefore(parent, child, nil)
}

func (d *Document) ReplaceWith(old, replacement dom.Node) {
	o, r := unwrap(old), unwrap(replacement)
	if o == nil || r == nil || o == r {
		return
	}
	d.mu.Lock()
	p := o.Parent
	if p == nil {
		d.mu.Unlock()
		return
	}
	var recs []pendingRecord
	if rec, ok := d.detach(r); ok {
		recs = append(recs, rec)
	}
	p.InsertBefore(r, o)
	p.RemoveChild(o)
	recs = append(recs, pendingRecord{target: p, added: []*html.Node{r}, removed: []*html.Node{o}})
	d.version++
	d.unlockAndNotify(recs)
}

func (d *Document) Remove(n dom.Node) {
	h := unwrap(n)
	if h == nil {
		return
	}
	d.mu.Lock()
	rec, ok := d.detach(h)
	if !ok {
		d.mu.Unlock()
		return
	}
	d.version++
	d.unlockAndNotify([]pendingRecord{rec})
}

func (d *Document) Clone(n dom.Node) dom.Node {
	h := unwrap(n)
	if h == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(cloneTree(h))
}

func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneTree(ch))
	}
	return c
}

func (d *Document) QuerySelectorAll(root dom.Node, selector string) []dom.Node {
	r := unwrap(root)
	if r == nil || strings.TrimSpace(selector) == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dom.Node
	goquery.NewDocumentFromNode(r).Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, d.wrap(s.Get(0)))
	})
	return out
}

func (d *Document) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// SetVisible switches the page between foreground and background and tells
// every visibility listener.
func (d *Document) SetVisible(visible bool) {
	d.mu.Lock()
	if d.visible == visible {
		d.mu.Unlock()
		return
	}
	d.visible = visible
	fns := make([]func(bool), 0, len(d.listeners))
	for id := 0; id < d.nextID; id++ {
		if fn, ok := d.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(visible)
	}
}

func (d *Document) OnVisibilityChange(fn func(bool)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

type observerHandle struct {
	d  *Document
	id int
}

func (h observerHandle) Disconnect() {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	delete(h.d.observers, h.id)
}

func (d *Document) Observe(root dom.Node, fn func([]dom.MutationRecord)) dom.Observer {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.observers[id] = &observer{root: unwrap(root), fn: fn}
	return observerHandle{d: d, id: id}
}

// unlockAndNotify releases the document lock and then delivers records to
// the observers whose root contains the mutated parent.
func (d *Document) unlockAndNotify(recs []pendingRecord) {
	type delivery struct {
		fn   func([]dom.MutationRecord)
		recs []dom.MutationRecord
	}
	var out []delivery
	for id := 0; id < d.nextID; id++ {
		o, ok := d.observers[id]
		if !ok || o.root == nil {
			continue
		}
		var matched []dom.MutationRecord
		for _, r := range recs {
			if !d.containsLocked(o.root, r.target) {
				continue
			}
			matched = append(matched, dom.MutationRecord{
				Target:  d.wrap(r.target),
				Added:   d.wrapAll(r.added),
				Removed: d.wrapAll(r.removed),
			})
		}
		if len(matched) > 0 {
			out = append(out, delivery{fn: o.fn, recs: matched})
		}
	}
	d.mu.Unlock()
	for _, dl := range out {
		dl.fn(dl.recs)
	}
}

func (d *Document) wrapAll(ns []*html.Node) []dom.Node {
	out := make([]dom.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, d.wrap(n))
	}
	return out
}

func (d *Document) containsLocked(root, n *html.Node) bool {
	for cur := n; cur != nil; {
		if cur == root {
			return true
		}
		if cur.Parent != nil {
			cur = cur.Parent
			continue
		}
		cur = d.hosts[cur]
	}
	return false
}
