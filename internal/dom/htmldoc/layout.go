package htmldoc

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oukeidos/dualpage/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Flow layout constants. Every non-blank text node starts a new line box.
const (
	lineHeight    = 20.0
	charsPerLine  = 80
	bodyMargin    = 8.0
	replacedBlock = 150.0
)

type box struct {
	top    float64
	bottom float64
}

var hiddenAtoms = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Title: true, atom.Meta: true, atom.Link: true, atom.Noscript: true,
}

// layoutLocked recomputes boxes when the tree changed since the last pass.
func (d *Document) layoutLocked() {
	if d.boxes != nil && d.layoutVersion == d.version {
		return
	}
	d.boxes = make(map[*html.Node]box)
	y := bodyMargin
	var visit func(n *html.Node, hidden bool)
	visit = func(n *html.Node, hidden bool) {
		top := y
		switch n.Type {
		case html.TextNode:
			if !hidden && strings.TrimSpace(n.Data) != "" {
				lines := math.Ceil(float64(utf8.RuneCountInString(n.Data)) / charsPerLine)
				y += lines * lineHeight
			}
		case html.ElementNode, html.DocumentNode:
			self := hidden || (n.Type == html.ElementNode && !renderedSelf(n))
			if !self {
				if h, ok := replacedHeight(n); ok {
					y += h
					self = true
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c, self)
			}
			if s, ok := d.shadows[n]; ok {
				visit(s.root, self)
			}
		}
		d.boxes[n] = box{top: top, bottom: y}
	}
	visit(d.root, false)
	d.contentHeight = y + bodyMargin
	d.layoutVersion = d.version
}

func renderedSelf(n *html.Node) bool {
	if hiddenAtoms[n.DataAtom] {
		return false
	}
	if _, ok := getAttr(n, "hidden"); ok {
		return false
	}
	style, _ := getAttr(n, "style")
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "display") && strings.TrimSpace(value) == "none" {
			return false
		}
	}
	return true
}

// replacedHeight gives elements whose content is not laid out as text a fixed
// box. Their children are treated as hidden.
func replacedHeight(n *html.Node) (float64, bool) {
	switch n.DataAtom {
	case atom.Img, atom.Video, atom.Canvas, atom.Iframe, atom.Object:
		if v, ok := getAttr(n, "height"); ok {
			if h, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil && h >= 0 {
				return h, true
			}
		}
		return replacedBlock, true
	case atom.Input, atom.Select, atom.Textarea, atom.Button:
		if n.DataAtom == atom.Input {
			if t, _ := getAttr(n, "type"); strings.EqualFold(t, "hidden") {
				return 0, true
			}
		}
		return lineHeight, true
	}
	return 0, false
}

func (d *Document) Rect(n dom.Node) dom.Rect {
	h := unwrap(n)
	if h == nil {
		return dom.Rect{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layoutLocked()
	b, ok := d.boxes[h]
	if !ok {
		return dom.Rect{}
	}
	return dom.Rect{
		Top:    b.top - d.scrollY,
		Bottom: b.bottom - d.scrollY,
		Height: b.bottom - b.top,
	}
}

func (d *Document) ViewportHeight() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewportHeight
}

// SetViewportHeight resizes the viewport.
func (d *Document) SetViewportHeight(h float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h > 0 {
		d.viewportHeight = h
	}
}

// ContentHeight is the laid out height of the whole page.
func (d *Document) ContentHeight() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layoutLocked()
	return d.contentHeight
}

// ScrollY returns the current scroll offset.
func (d *Document) ScrollY() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrollY
}

// ScrollTo moves the viewport, clamped to the page.
func (d *Document) ScrollTo(y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layoutLocked()
	limit := math.Max(0, d.contentHeight-d.viewportHeight)
	d.scrollY = math.Min(math.Max(0, y), limit)
}
