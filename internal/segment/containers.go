package segment

import (
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
)

// mainContentRatio is the share of page words the main container must hold.
const mainContentRatio = 0.4

// blacklistDepth is how many ancestors are checked against the denylist.
const blacklistDepth = 3

var denylistWords = []string{"comment"}

// Containers returns the subtrees block discovery searches. Configured
// container selectors win; otherwise the main content is detected from word
// counts. The result is nil when nothing qualifies.
func (d *Discoverer) Containers(root dom.Node) []dom.Node {
	if len(d.Rule.ContainerSelectors) > 0 {
		sel := strings.Join(d.Rule.ContainerSelectors, ",")
		matches := d.Doc.QuerySelectorAll(root, sel)
		if len(matches) == 0 {
			return nil
		}
		if d.Rule.BrToParagraph {
			for _, m := range matches {
				d.brToParagraph(m)
			}
		}
		return matches
	}
	if c := d.mainContent(root); c != nil {
		return []dom.Node{c}
	}
	return nil
}

func (d *Discoverer) mainContent(root dom.Node) dom.Node {
	total := dom.WordCount(dom.InnerText(root))
	if total == 0 {
		return nil
	}

	candidates := d.Doc.QuerySelectorAll(root, "p")
	if len(candidates) == 0 {
		candidates = d.Doc.QuerySelectorAll(root, "div")
	}
	var best dom.Node
	bestWords := 0
	for _, c := range candidates {
		if blacklisted(c) || d.Doc.Rect(c).Height == 0 {
			continue
		}
		if w := dom.WordCount(dom.InnerText(c)); w > bestWords {
			best, bestWords = c, w
		}
	}
	if best == nil {
		return root
	}

	for float64(bestWords)/float64(total) < mainContentRatio && best != root {
		p := best.Parent()
		if p == nil || p.Type() != dom.ElementNode {
			break
		}
		w := dom.WordCount(dom.InnerText(p))
		if w == 0 {
			break
		}
		best, bestWords = p, w
	}
	if dom.IsTag(best, "P") && best != root {
		if p := best.Parent(); p != nil && p.Type() == dom.ElementNode {
			best = p
		}
	}
	return best
}

// blacklisted reports whether n or one of its nearest ancestors carries a
// denylisted word in its class or id.
func blacklisted(n dom.Node) bool {
	cur := n
	for i := 0; i <= blacklistDepth && cur != nil; i++ {
		if cur.Type() != dom.ElementNode || dom.IsTag(cur, "BODY") {
			break
		}
		id := strings.ToLower(dom.AttrValue(cur, "id"))
		class := strings.ToLower(dom.AttrValue(cur, "class"))
		for _, w := range denylistWords {
			if strings.Contains(id, w) || strings.Contains(class, w) {
				return true
			}
		}
		cur = cur.Parent()
	}
	return false
}

// brToParagraph regroups the children of a container into paragraphs at every
// run of two or more line breaks.
func (d *Discoverer) brToParagraph(container dom.Node) {
	children := container.Children()
	breaks := 0
	for _, c := range children {
		if dom.IsTag(c, "BR") {
			breaks++
		}
	}
	if breaks < 2 {
		return
	}

	var groups [][]dom.Node
	var cur, pending, drop []dom.Node
	run := 0
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur = nil
	}
	for _, c := range children {
		switch {
		case dom.IsTag(c, "BR"):
			run++
			pending = append(pending, c)
		case c.Type() == dom.TextNode && strings.TrimSpace(c.Data()) == "" && run > 0:
			pending = append(pending, c)
		default:
			if run >= 2 {
				flush()
				drop = append(drop, pending...)
			} else {
				cur = append(cur, pending...)
			}
			pending = pending[:0]
			run = 0
			cur = append(cur, c)
		}
	}
	if run >= 2 {
		drop = append(drop, pending...)
	} else {
		cur = append(cur, pending...)
	}
	flush()
	if len(groups) < 2 {
		return
	}
	for _, n := range drop {
		d.Doc.Remove(n)
	}

	for _, g := range groups {
		p := d.Doc.CreateElement("p")
		d.Doc.InsertBefore(container, p, g[0])
		for _, n := range g {
			d.Doc.AppendChild(p, n)
		}
	}
}
