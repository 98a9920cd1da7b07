// Package segment turns a live document tree into ordered translation units.
//
// Segment walks a subtree and groups runs of inline text into units that
// are translated as one paragraph. Discover picks the block roots a page is
// segmented from on a full translation pass.
package segment

import (
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
)

// Attributes the engine puts on nodes it creates.
const (
	MarkAttr            = "data-translationmark"
	OriginalDisplayAttr = "data-translationoriginaldisplay"

	// MarkCompanion tags the hidden copy of a block shown beside its translation.
	MarkCompanion = "copiedNode"
	// MarkTranslated tags the wrapper holding translated text.
	MarkTranslated = "translated"

	NoTranslateClass = "notranslate"
)

// Class says how an element takes part in unit building.
type Class int

const (
	// Boundary elements close the current unit before and after themselves.
	Boundary Class = iota
	// InlineText elements carry text into the current unit.
	InlineText
	// IgnoredInline elements are skipped without closing the unit.
	IgnoredInline
	// NoTranslate elements are skipped and close the unit.
	NoTranslate
)

func (c Class) String() string {
	switch c {
	case InlineText:
		return "inline-text"
	case IgnoredInline:
		return "ignored-inline"
	case NoTranslate:
		return "no-translate"
	default:
		return "boundary"
	}
}

var inlineTextTags = map[string]bool{
	dom.TextName: true, "A": true, "ABBR": true, "ACRONYM": true, "B": true, "BDO": true,
	"BIG": true, "CITE": true, "DFN": true, "EM": true, "I": true, "LABEL": true, "Q": true,
	"S": true, "SMALL": true, "SPAN": true, "STRONG": true, "SUB": true, "SUP": true,
	"U": true, "TT": true, "VAR": true,
}

var ignoredInlineTags = map[string]bool{"BR": true, "CODE": true, "KBD": true, "WBR": true}

var noTranslateTags = map[string]bool{"TITLE": true, "SCRIPT": true, "STYLE": true, "TEXTAREA": true, "SVG": true}

// Classifier assigns element classes.
type Classifier struct {
	// TranslatePre makes PRE an ordinary boundary element instead of skipping it.
	TranslatePre bool
}

// IsInlineTextName reports whether a node name carries text inline.
func (c Classifier) IsInlineTextName(name string) bool {
	return inlineTextTags[name]
}

// IsIgnoredName reports whether a node name is skipped without a boundary.
func (c Classifier) IsIgnoredName(name string) bool {
	if name == "PRE" {
		return !c.TranslatePre
	}
	return ignoredInlineTags[name]
}

// IsNoTranslateName reports whether a tag is never translated.
func (c Classifier) IsNoTranslateName(name string) bool {
	return noTranslateTags[strings.ToUpper(name)]
}

// Classify returns the class of an element or text node. Comments and other
// node types are ignored.
func (c Classifier) Classify(n dom.Node) Class {
	switch n.Type() {
	case dom.TextNode:
		return InlineText
	case dom.ElementNode:
	case dom.FragmentNode:
		return Boundary
	default:
		return IgnoredInline
	}
	name := n.Name()
	if c.IsNoTranslateName(name) || HasNoTranslate(n) || dom.HasAttr(n, MarkAttr) || dom.IsContentEditable(n) {
		return NoTranslate
	}
	if c.IsIgnoredName(name) {
		return IgnoredInline
	}
	if inlineTextTags[name] {
		return InlineText
	}
	return Boundary
}

// HasNoTranslate reports the author's opt-out markers on an element.
func HasNoTranslate(n dom.Node) bool {
	if n == nil || n.Type() != dom.ElementNode {
		return false
	}
	return dom.HasClass(n, NoTranslateClass) || dom.AttrValue(n, "translate") == "no"
}

// IsEngineNode reports whether the engine created n.
func IsEngineNode(n dom.Node) bool {
	return dom.HasAttr(n, MarkAttr)
}
