package segment

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/rivo/uniseg"
)

// DefaultSoftLimit is the grapheme budget of one unit.
const DefaultSoftLimit = 1000

// Unit is a run of inline text nodes translated as one paragraph.
type Unit struct {
	ID string
	// Parent is the nearest non-inline ancestor of the first text node.
	Parent dom.Node
	// Top and Bottom bracket the unit for viewport checks.
	Top    dom.Node
	Bottom dom.Node
	Texts  []dom.Node
	// Translated is set once the unit has been dispatched.
	Translated bool
}

// Size counts grapheme clusters across the unit's text nodes.
func (u *Unit) Size() int {
	n := 0
	for _, t := range u.Texts {
		n += uniseg.GraphemeClusterCount(t.Data())
	}
	return n
}

// SharesText reports whether two units hold a common text node.
func (u *Unit) SharesText(o *Unit) bool {
	for _, a := range u.Texts {
		for _, b := range o.Texts {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Segmenter builds units from a subtree.
type Segmenter struct {
	Classifier Classifier
	// SoftLimit defaults to DefaultSoftLimit.
	SoftLimit int
	// NewID defaults to random UUIDs.
	NewID func() string
}

// walkCtx is the immutable context a frame carries down the tree.
type walkCtx struct {
	// last is the element most recently entered at this level: the nearest
	// preceding element sibling, the node itself, or the parent.
	last dom.Node
	// lastSelect is the nearest enclosing or preceding SELECT or DATALIST.
	lastSelect dom.Node
}

type frameKind int

const (
	visitFrame frameKind = iota
	exitFrame
	closeFrame
)

type frame struct {
	kind frameKind
	node dom.Node
	ctx  walkCtx
}

// Segment returns the units under root in document order.
func (s *Segmenter) Segment(root dom.Node) []*Unit {
	if root == nil {
		return nil
	}
	b := &unitBuilder{seg: s, root: root}
	b.open(nil, nil)

	start := walkCtx{}
	if root.Type() != dom.ElementNode {
		start.last = dom.ParentOrHost(root)
	}
	stack := []frame{{kind: visitFrame, node: root, ctx: start}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.kind {
		case closeFrame:
			b.close(f.ctx.last)
		case exitFrame:
			if b.cur.Bottom == nil {
				b.cur.Bottom = f.node
			}
		case visitFrame:
			stack = s.visit(b, f, stack)
		}
	}

	units := b.units
	if n := len(units); n > 0 && len(units[n-1].Texts) == 0 {
		units = units[:n-1]
	}
	return units
}

// visit handles one node and pushes the frames for its children.
func (s *Segmenter) visit(b *unitBuilder, f frame, stack []frame) []frame {
	n := f.node
	ctx := f.ctx
	switch n.Type() {
	case dom.TextNode:
		b.addText(n, ctx)
		return stack
	case dom.FragmentNode:
		ctx = walkCtx{last: n.Host()}
	case dom.ElementNode:
		ctx.last = n
		if dom.IsTag(n, "SELECT", "DATALIST") {
			ctx.lastSelect = n
		}
		switch s.Classifier.Classify(n) {
		case NoTranslate:
			b.close(n)
			return stack
		case IgnoredInline:
			return stack
		}
	default:
		return stack
	}

	children := n.Children()
	if sr := n.ShadowRoot(); sr != nil {
		children = append(children, sr)
	}

	var frames []frame
	childCtx := ctx
	for _, c := range children {
		if c.Type() == dom.ElementNode {
			childCtx.last = c
			if dom.IsTag(c, "SELECT", "DATALIST") {
				childCtx.lastSelect = c
			}
		}
		if s.closesAround(c) {
			frames = append(frames,
				frame{kind: closeFrame, ctx: childCtx},
				frame{kind: visitFrame, node: c, ctx: childCtx},
				frame{kind: closeFrame, ctx: childCtx},
			)
			continue
		}
		frames = append(frames, frame{kind: visitFrame, node: c, ctx: childCtx})
	}

	stack = append(stack, frame{kind: exitFrame, node: n})
	for i := len(frames) - 1; i >= 0; i-- {
		stack = append(stack, frames[i])
	}
	return stack
}

// closesAround reports whether a child ends the current unit before and after itself.
func (s *Segmenter) closesAround(c dom.Node) bool {
	if c.Type() != dom.ElementNode {
		return false
	}
	switch s.Classifier.Classify(c) {
	case Boundary, NoTranslate:
		return true
	}
	return false
}

type unitBuilder struct {
	seg   *Segmenter
	root  dom.Node
	units []*Unit
	cur   *Unit
	size  int
}

func (b *unitBuilder) newID() string {
	if b.seg.NewID != nil {
		return b.seg.NewID()
	}
	return uuid.NewString()
}

func (b *unitBuilder) open(parent, top dom.Node) {
	b.cur = &Unit{ID: b.newID(), Parent: parent, Top: top}
	b.units = append(b.units, b.cur)
	b.size = 0
}

// close ends a non-empty unit at bottom and opens a fresh one.
func (b *unitBuilder) close(bottom dom.Node) {
	if len(b.cur.Texts) == 0 {
		return
	}
	b.cur.Bottom = bottom
	b.open(nil, nil)
}

func (b *unitBuilder) limit() int {
	if b.seg.SoftLimit > 0 {
		return b.seg.SoftLimit
	}
	return DefaultSoftLimit
}

func (b *unitBuilder) addText(t dom.Node, ctx walkCtx) {
	data := t.Data()
	if strings.TrimSpace(data) == "" {
		return
	}
	size := uniseg.GraphemeClusterCount(data)
	if len(b.cur.Texts) > 0 && b.size+size > b.limit() {
		parent := b.cur.Parent
		b.cur.Bottom = ctx.last
		b.open(parent, ctx.last)
	}

	if b.cur.Parent == nil {
		if p := t.Parent(); ctx.lastSelect != nil && dom.IsTag(p, "OPTION") {
			b.cur.Parent = ctx.lastSelect
			b.cur.Top = ctx.lastSelect
		} else {
			b.cur.Parent = b.resolveParent(t)
		}
	}
	if b.cur.Top == nil {
		b.cur.Top = ctx.last
	}
	b.cur.Texts = append(b.cur.Texts, t)
	b.size += size
	b.cur.Bottom = nil
}

// resolveParent climbs past inline wrappers until a boundary element or the
// walk root. Text directly in a shadow tree resolves to its host.
func (b *unitBuilder) resolveParent(t dom.Node) dom.Node {
	c := b.seg.Classifier
	p := t.Parent()
	for p != nil && p != b.root && p.Type() == dom.ElementNode {
		name := p.Name()
		if !c.IsInlineTextName(name) && !c.IsIgnoredName(name) {
			break
		}
		p = p.Parent()
	}
	if p != nil && p.Type() == dom.FragmentNode {
		return p.Host()
	}
	return p
}
