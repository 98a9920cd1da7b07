// Package dual renders the bilingual view: a hidden copy of each translated
// block kept next to it, and the inline style of translated text.
package dual

import (
	"log/slog"
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/segment"
	"github.com/oukeidos/dualpage/internal/siterules"
)

// Styles of translated text in the bilingual view.
const (
	StyleUnderline = "underline"
	StyleHighlight = "highlight"
	StyleWeakening = "weakening"
	StyleMask      = "mask"
	StyleNone      = "none"
)

// Styles lists the accepted style names.
var Styles = []string{StyleUnderline, StyleHighlight, StyleWeakening, StyleMask, StyleNone}

// MaskClass marks a companion whose following sibling is blurred until hovered.
const MaskClass = "immersive-translate-mask-next-sibling"

// MaskCSS is injected once when the mask style is in use.
const MaskCSS = ".immersive-translate-mask-next-sibling + *{filter:blur(5px);transition: filter 0.1s ease; } .immersive-translate-mask-next-sibling + *:hover {filter:none !important;}"

// markStylesheet tags the injected style element.
const markStylesheet = "stylesheet"

const baseWrapperStyle = "vertical-align: inherit;"

var styleSuffix = map[string]string{
	StyleUnderline: "border-bottom: 2px solid #72ECE9;",
	StyleHighlight: "background-color: #EAD0B3;padding: 3px 0;",
	StyleWeakening: "opacity: 0.4;",
}

// IsStyle reports whether s names a known style.
func IsStyle(s string) bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}

// WrapperStyle returns the inline style of the element holding translated text.
func WrapperStyle(style, custom string) string {
	s := baseWrapperStyle + styleSuffix[style]
	if custom = strings.TrimSpace(custom); custom != "" {
		s += custom
	}
	return s
}

// Compositor creates, shows, hides and removes companion copies.
type Compositor struct {
	Doc dom.Document
	// Rule is the matched site rule; the zero Rule means none.
	Rule siterules.Rule
	// Enabled turns the bilingual view on.
	Enabled     bool
	Style       string
	CustomStyle string

	Logger *slog.Logger
}

func (c *Compositor) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Logger()
}

// EffectiveStyle is the site rule's style when it sets one, else the configured style.
func (c *Compositor) EffectiveStyle() string {
	if c.Rule.Style != "" {
		return c.Rule.Style
	}
	if c.Style == "" {
		return StyleUnderline
	}
	return c.Style
}

// TextStyle is the inline style for a translated text wrapper.
func (c *Compositor) TextStyle() string {
	if !c.Enabled {
		return baseWrapperStyle
	}
	return WrapperStyle(c.EffectiveStyle(), c.CustomStyle)
}

// IsCompanion reports whether n is a companion copy.
func IsCompanion(n dom.Node) bool {
	return dom.AttrValue(n, segment.MarkAttr) == segment.MarkCompanion
}

// Materialize inserts a hidden copy of node next to it unless one is
// already there. It reports whether a copy was created.
func (c *Compositor) Materialize(node dom.Node) bool {
	if !c.Enabled || node == nil || node.Type() != dom.ElementNode || IsCompanion(node) {
		return false
	}
	if c.hasCompanion(node) {
		return false
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}

	c.EnsureStylesheet()
	cp := c.Doc.Clone(node)
	stripIDs(c.Doc, cp)
	originalDisplay := dom.StyleProperty(node, "display")
	originalDisplay = c.tweak(node, cp, originalDisplay)

	if dom.IsInline(cp) {
		dom.SetStyleProperty(cp, "padding-right", "8px")
	} else if !dom.IsTag(cp, "P", "UL", "OL", "LI") {
		dom.SetStyleProperty(cp, "padding-bottom", "8px")
	}

	if c.Rule.CompanionLayout == siterules.LayoutSplice {
		c.splice(node, cp, originalDisplay)
		return true
	}
	c.format(cp, originalDisplay)
	c.Doc.InsertBefore(parent, cp, node)
	return true
}

// stripIDs removes id attributes from a copy so the page keeps unique ids
// and selectors keep finding the live node.
func stripIDs(doc dom.Document, cp dom.Node) {
	cp.RemoveAttr("id")
	for _, n := range doc.QuerySelectorAll(cp, "[id]") {
		n.RemoveAttr("id")
	}
}

func (c *Compositor) hasCompanion(node dom.Node) bool {
	if prev := dom.PreviousSibling(node); prev != nil && IsCompanion(prev) {
		return true
	}
	if c.Rule.CompanionLayout == siterules.LayoutSplice {
		if first := dom.FirstChild(node); first != nil && IsCompanion(first) {
			return true
		}
	}
	return false
}

// tweak applies per-site layout fixes to a fresh copy and returns the
// display value the copy is revealed with.
func (c *Compositor) tweak(node, cp dom.Node, display string) string {
	lineBreak := false
	parent := node.Parent()
	switch c.Rule.Name {
	case "reddit":
		lineBreak = dom.IsTag(node, "H1", "H3")
	case "oldReddit", "oldRedditCompact":
		lineBreak = strings.Contains(dom.AttrValue(parent, "class"), "title")
	case "stackoverflow":
		lineBreak = dom.IsTag(parent, "H1") || dom.HasClass(node, "comment-copy")
	case "ycombinator":
		lineBreak = dom.IsTag(node, "A")
	case "google":
		if dom.IsTag(node, "H3") {
			display = "block"
		}
	case "discord":
		lineBreak = dom.IsTag(node, "H3")
	case "nitter":
		display = "block"
	default:
		lineBreak = len(c.Rule.Selectors) > 0 && dom.IsInline(node)
	}
	if lineBreak {
		c.Doc.AppendChild(cp, c.Doc.CreateElement("br"))
	}
	return display
}

func (c *Compositor) format(n dom.Node, originalDisplay string) {
	n.SetAttr(segment.MarkAttr, segment.MarkCompanion)
	if originalDisplay != "" {
		n.SetAttr(segment.OriginalDisplayAttr, originalDisplay)
	}
	dom.SetStyleProperty(n, "display", "none")
	dom.AddClass(n, segment.NoTranslateClass)
	if c.EffectiveStyle() == StyleMask {
		dom.AddClass(n, MaskClass)
	}
}

// splice moves the copy's children into node ahead of its own content,
// followed by a line break.
func (c *Compositor) splice(node, cp dom.Node, originalDisplay string) {
	first := dom.FirstChild(node)
	for _, ch := range cp.Children() {
		item := ch
		if ch.Type() != dom.ElementNode {
			span := c.Doc.CreateElement("span")
			c.Doc.AppendChild(span, ch)
			item = span
		}
		c.format(item, originalDisplay)
		c.Doc.InsertBefore(node, item, first)
	}
	nl := c.Doc.CreateElement("span")
	c.Doc.AppendChild(nl, c.Doc.CreateText("\n"))
	c.format(nl, "")
	c.Doc.InsertBefore(node, nl, first)
}

// EnsureStylesheet injects the mask rule into the head once.
func (c *Compositor) EnsureStylesheet() {
	if !c.Enabled || c.EffectiveStyle() != StyleMask {
		return
	}
	head := c.Doc.Head()
	if head == nil {
		return
	}
	for _, ch := range head.Children() {
		if dom.AttrValue(ch, segment.MarkAttr) == markStylesheet {
			return
		}
	}
	style := c.Doc.CreateElement("style")
	style.SetAttr(segment.MarkAttr, markStylesheet)
	c.Doc.AppendChild(style, c.Doc.CreateText(MaskCSS))
	c.Doc.AppendChild(head, style)
}

// companions lists every companion under root, shadow trees included.
func companions(root dom.Node) []dom.Node {
	var out []dom.Node
	dom.Walk(root, func(n dom.Node) bool {
		if IsCompanion(n) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// RemoveAll deletes every companion under root and the injected stylesheet.
// It returns the number of companions removed.
func (c *Compositor) RemoveAll(root dom.Node) int {
	found := companions(root)
	for _, n := range found {
		c.Doc.Remove(n)
	}
	if head := c.Doc.Head(); head != nil {
		for _, ch := range head.Children() {
			if dom.AttrValue(ch, segment.MarkAttr) == markStylesheet {
				c.Doc.Remove(ch)
			}
		}
	}
	if len(found) > 0 {
		c.log().Debug("Companions removed", "count", len(found))
	}
	return len(found)
}

// Reveal makes every companion visible with the display it was copied with.
func (c *Compositor) Reveal(root dom.Node) int {
	found := companions(root)
	for _, n := range found {
		if v := dom.AttrValue(n, segment.OriginalDisplayAttr); v != "" {
			dom.SetStyleProperty(n, "display", v)
		} else {
			dom.RemoveStyleProperty(n, "display")
		}
	}
	return len(found)
}

// Conceal hides every companion again.
func (c *Compositor) Conceal(root dom.Node) int {
	found := companions(root)
	for _, n := range found {
		dom.SetStyleProperty(n, "display", "none")
	}
	return len(found)
}
