package dom

import (
	"strings"
)

// Walk visits root and its descendants in document order with an explicit
// stack. Shadow root children are visited after the light children of their
// host. Returning false from fn skips the node's subtree.
func Walk(root Node, fn func(n Node) bool) {
	if root == nil {
		return
	}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		var next []Node
		next = append(next, n.Children()...)
		if sr := n.ShadowRoot(); sr != nil {
			next = append(next, sr)
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
}

// ParentOrHost steps up one level, crossing from a shadow root to its host.
func ParentOrHost(n Node) Node {
	if n == nil {
		return nil
	}
	if p := n.Parent(); p != nil {
		return p
	}
	return n.Host()
}

// ParentElement returns the nearest element ancestor in the light tree.
func ParentElement(n Node) Node {
	if n == nil {
		return nil
	}
	p := n.Parent()
	if p == nil || p.Type() != ElementNode {
		return nil
	}
	return p
}

// Contains reports whether n is root or one of its descendants, including
// descendants of attached shadow trees.
func Contains(root, n Node) bool {
	for cur := n; cur != nil; cur = ParentOrHost(cur) {
		if cur == root {
			return true
		}
	}
	return false
}

// Closest returns the nearest of n and its light-tree ancestors that
// satisfies match, or nil.
func Closest(n Node, match func(Node) bool) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() == ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}

// PreviousSibling returns the node just before n in its parent's child list.
func PreviousSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	var prev Node
	for _, c := range p.Children() {
		if c == n {
			return prev
		}
		prev = c
	}
	return nil
}

// FirstChild returns the first child of n, or nil.
func FirstChild(n Node) Node {
	children := n.Children()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// Compare orders two nodes of the same tree: negative when a precedes b,
// positive when it follows, zero when they are the same node. An ancestor
// precedes its descendants; a shadow tree follows the light children of its host.
func Compare(a, b Node) int {
	if a == b {
		return 0
	}
	pa, pb := path(a), path(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	return len(pa) - len(pb)
}

// path lists child positions from the outermost ancestor down to n.
func path(n Node) []int {
	var rev []int
	for cur := n; ; {
		if p := cur.Parent(); p != nil {
			rev = append(rev, indexOf(p.Children(), cur))
			cur = p
			continue
		}
		if h := cur.Host(); h != nil {
			rev = append(rev, len(h.Children()))
			cur = h
			continue
		}
		break
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

func indexOf(nodes []Node, n Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}

// IsTag reports whether n is an element with one of the given upper-case names.
func IsTag(n Node, names ...string) bool {
	if n == nil || n.Type() != ElementNode {
		return false
	}
	name := n.Name()
	for _, want := range names {
		if name == want {
			return true
		}
	}
	return false
}

// IsContentEditable follows the inherited contenteditable attribute.
func IsContentEditable(n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() != ElementNode {
			continue
		}
		v, ok := cur.Attr("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

var hiddenTags = map[string]bool{
	"HEAD": true, "SCRIPT": true, "STYLE": true, "TEMPLATE": true,
	"TITLE": true, "META": true, "LINK": true, "NOSCRIPT": true,
}

// IsRendered reports whether n would produce a box: it is not inside an
// element hidden by tag, the hidden attribute or an inline display:none.
func IsRendered(n Node) bool {
	for cur := n; cur != nil; cur = ParentOrHost(cur) {
		if cur.Type() != ElementNode {
			continue
		}
		if hiddenTags[cur.Name()] {
			return false
		}
		if _, ok := cur.Attr("hidden"); ok {
			return false
		}
		if StyleProperty(cur, "display") == "none" {
			return false
		}
	}
	return true
}

// InnerText returns the rendered text under n. Hidden subtrees are skipped,
// block-level children start new lines and runs of spaces are collapsed.
func InnerText(n Node) string {
	if n == nil || !IsRendered(n) {
		return ""
	}
	var b strings.Builder
	var visit func(Node)
	visit = func(c Node) {
		for _, ch := range c.Children() {
			switch ch.Type() {
			case TextNode:
				b.WriteString(ch.Data())
			case ElementNode:
				if !IsRenderedSelf(ch) {
					continue
				}
				if IsTag(ch, "BR") {
					b.WriteByte('\n')
					continue
				}
				block := !inlineBox[ch.Name()]
				if block {
					b.WriteByte('\n')
				}
				visit(ch)
				if block {
					b.WriteByte('\n')
				}
			}
		}
	}
	if n.Type() == TextNode {
		b.WriteString(n.Data())
	} else {
		visit(n)
	}
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// IsRenderedSelf checks only n's own hiding rules.
func IsRenderedSelf(n Node) bool {
	if hiddenTags[n.Name()] {
		return false
	}
	if _, ok := n.Attr("hidden"); ok {
		return false
	}
	return StyleProperty(n, "display") != "none"
}

// inlineBox lists elements laid out inline by default.
var inlineBox = map[string]bool{
	"A": true, "ABBR": true, "ACRONYM": true, "B": true, "BDO": true, "BIG": true,
	"BR": true, "BUTTON": true, "CITE": true, "CODE": true, "DFN": true, "EM": true,
	"FONT": true, "I": true, "IMG": true, "INPUT": true, "KBD": true, "LABEL": true,
	"MAP": true, "OBJECT": true, "OUTPUT": true, "Q": true, "S": true, "SAMP": true,
	"SCRIPT": true, "SELECT": true, "SMALL": true, "SPAN": true, "STRONG": true,
	"SUB": true, "SUP": true, "TEXTAREA": true, "TIME": true, "TT": true, "U": true,
	"VAR": true, "WBR": true,
}

// IsInline reports whether an element is laid out inline by default.
func IsInline(n Node) bool {
	return n != nil && n.Type() == ElementNode && inlineBox[n.Name()]
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// HasAttr reports whether an attribute is present.
func HasAttr(n Node, name string) bool {
	if n == nil || n.Type() != ElementNode {
		return false
	}
	_, ok := n.Attr(name)
	return ok
}

// AttrValue returns an attribute or "".
func AttrValue(n Node, name string) string {
	if n == nil || n.Type() != ElementNode {
		return ""
	}
	v, _ := n.Attr(name)
	return v
}
