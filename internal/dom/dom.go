// Package dom describes the live document tree the translation engine works on.
//
// The engine never owns the tree. It reads nodes, classifies them, and makes
// small local edits (wrap, replace, insert before, remove) through Document.
// Node values must be comparable so that == reports node identity.
package dom

import "net/url"

type NodeType int

const (
	OtherNode NodeType = iota
	ElementNode
	TextNode
	FragmentNode
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case FragmentNode:
		return "fragment"
	default:
		return "other"
	}
}

// Names reported by Node.Name for non-element nodes.
const (
	TextName     = "#text"
	FragmentName = "#document-fragment"
	CommentName  = "#comment"
)

// Node is one node of the live tree.
type Node interface {
	Type() NodeType
	// Name is the upper-case tag name for elements, TextName for text
	// and FragmentName for shadow roots.
	Name() string
	// Parent is nil for the tree root, for detached nodes and for shadow roots.
	Parent() Node
	// Children returns a snapshot of the child list.
	Children() []Node
	// ShadowRoot returns the attached shadow tree of an element, or nil.
	ShadowRoot() Node
	// Host returns the element a shadow root is attached to, or nil.
	Host() Node

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	// Data is the character data of a text node.
	Data() string
	SetData(data string)
	// TextContent concatenates every descendant text node in the light tree.
	TextContent() string
}

// Rect is a bounding box relative to the top of the viewport.
type Rect struct {
	Top    float64
	Bottom float64
	Height float64
}

// MutationRecord reports a child list change under Target.
type MutationRecord struct {
	Target  Node
	Added   []Node
	Removed []Node
}

// Observer stops a subscription started by Document.Observe.
type Observer interface {
	Disconnect()
}

// Document is the owner of a live tree.
type Document interface {
	Root() Node
	Head() Node
	Body() Node
	URL() *url.URL

	Title() string
	SetTitle(title string)

	CreateElement(tag string) Node
	CreateText(data string) Node
	// InsertBefore inserts child into parent before ref; a nil ref appends.
	// A child that is still attached elsewhere is moved.
	InsertBefore(parent, child, ref Node)
	AppendChild(parent, child Node)
	// ReplaceWith puts replacement where old is and detaches old.
	ReplaceWith(old, replacement Node)
	Remove(n Node)
	// Clone returns a detached deep copy of n.
	Clone(n Node) Node

	// QuerySelectorAll returns the descendants of root matching a CSS selector
	// in document order. Shadow trees are not searched.
	QuerySelectorAll(root Node, selector string) []Node

	// Rect returns the node's box relative to the current scroll position.
	Rect(n Node) Rect
	ViewportHeight() float64

	Visible() bool
	// OnVisibilityChange registers fn and returns a function that removes it.
	OnVisibilityChange(fn func(visible bool)) (cancel func())

	// Observe reports child list changes made anywhere under root.
	Observe(root Node, fn func([]MutationRecord)) Observer
}
