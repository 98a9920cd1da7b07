package segment

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/siterules"
)

// DefaultBlockTags are discovered as translation roots.
var DefaultBlockTags = []string{"H1", "H2", "H3", "H4", "H5", "H6", "TABLE", "OL", "P", "LI"}

// headingTags are added page-wide when no container selector narrows discovery.
var headingTags = []string{"H1"}

// DefaultMaxDetectBlocks caps per-block language detection.
const DefaultMaxDetectBlocks = 500

// A paragraph holding an image and less text than this is a bare figure.
const imageCaptionMin = 80

// LanguageDetector returns a language code for text, or "" when unsure.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Discoverer selects the block roots of a page.
type Discoverer struct {
	Doc        dom.Document
	Classifier Classifier
	// Rule is the matched site rule. The zero Rule means none matched.
	Rule siterules.Rule

	TargetLanguage string
	NeverLangs     []string
	DualDisplay    bool

	// Detector is used when the rule asks for per-block language detection.
	Detector        LanguageDetector
	MaxDetectBlocks int

	Logger *slog.Logger
}

func (d *Discoverer) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.Logger()
}

func (d *Discoverer) blockTags() []string {
	if len(d.Rule.BlockElements) > 0 {
		out := make([]string, 0, len(d.Rule.BlockElements))
		for _, t := range d.Rule.BlockElements {
			out = append(out, strings.ToUpper(strings.TrimSpace(t)))
		}
		return out
	}
	tags := append([]string(nil), DefaultBlockTags...)
	if d.Classifier.TranslatePre {
		tags = append(tags, "PRE")
	}
	return tags
}

func (d *Discoverer) isBlockTag(n dom.Node, tags []string) bool {
	for _, t := range tags {
		if n.Name() == t {
			return true
		}
	}
	return false
}

// blockSet keeps discovered roots free of nesting, preferring the ancestor.
type blockSet struct {
	nodes []dom.Node
}

func (s *blockSet) covered(n dom.Node) bool {
	for _, b := range s.nodes {
		if dom.Contains(b, n) {
			return true
		}
	}
	return false
}

func (s *blockSet) has(n dom.Node) bool {
	for _, b := range s.nodes {
		if b == n {
			return true
		}
	}
	return false
}

func (s *blockSet) add(n dom.Node) {
	if s.covered(n) {
		return
	}
	kept := s.nodes[:0]
	for _, b := range s.nodes {
		if !dom.Contains(n, b) {
			kept = append(kept, b)
		}
	}
	s.nodes = append(kept, n)
}

// Discover returns the block roots under root ordered by document position.
// Detection failures drop the affected block; a cancelled context aborts.
func (d *Discoverer) Discover(ctx context.Context, root dom.Node) ([]dom.Node, error) {
	return d.KeepForeign(ctx, d.Candidates(root), d.TargetLanguage)
}

// Candidates runs the structural part of Discover: it wraps no-translate
// nodes and returns the valid blocks under root in document order. It edits
// the tree but never calls the detector.
func (d *Discoverer) Candidates(root dom.Node) []dom.Node {
	if root == nil {
		return nil
	}
	d.wrapNoTranslate(root)

	var blocks blockSet
	selectors := d.Rule.Selectors
	langs := d.languages(d.TargetLanguage)

	for _, sel := range selectors {
		for _, n := range d.Doc.QuerySelectorAll(root, sel) {
			if d.Rule.LangAttributeCheck {
				if lang := strings.TrimSpace(dom.AttrValue(n, "lang")); lang != "" && language.SameLanguage(lang, langs, d.DualDisplay) {
					continue
				}
			}
			if d.IsValid(n) {
				blocks.add(n)
			}
		}
	}

	if len(d.Rule.ContainerSelectors) > 0 || len(selectors) == 0 {
		tags := d.blockTags()
		containers := d.Containers(root)
		for _, container := range containers {
			if d.IsValid(container) && len(d.Rule.ContainerSelectors) > 0 && d.isBlockTag(container, tags) {
				blocks.add(container)
				continue
			}
			for _, tag := range tags {
				for _, n := range d.Doc.QuerySelectorAll(container, strings.ToLower(tag)) {
					if d.IsValid(n) {
						blocks.add(n)
					}
				}
			}
		}
		if len(containers) > 0 && len(d.Rule.ContainerSelectors) == 0 {
			for _, tag := range headingTags {
				for _, h := range d.Doc.QuerySelectorAll(root, strings.ToLower(tag)) {
					if d.IsValid(h) && !blocks.has(h) {
						blocks.add(h)
					}
				}
			}
		}
	}

	out := blocks.nodes
	sort.SliceStable(out, func(i, j int) bool { return dom.Compare(out[i], out[j]) < 0 })
	return out
}

// KeepForeign applies per-block language detection when the site rule asks
// for it: only blocks whose language differs from target and the
// never-translate languages survive. It reads the tree without editing it,
// so callers may run it without holding their own locks.
func (d *Discoverer) KeepForeign(ctx context.Context, blocks []dom.Node, target string) ([]dom.Node, error) {
	if !d.Rule.DetectLanguage || d.Detector == nil || len(blocks) == 0 {
		return blocks, nil
	}
	limit := d.MaxDetectBlocks
	if limit <= 0 {
		limit = DefaultMaxDetectBlocks
	}
	if len(blocks) >= limit {
		return blocks, nil
	}
	return d.keepForeign(ctx, blocks, d.languages(target))
}

func (d *Discoverer) languages(target string) []string {
	return append([]string{target}, d.NeverLangs...)
}

// keepForeign keeps blocks whose detected language clearly differs from the
// target and the never-translate languages.
func (d *Discoverer) keepForeign(ctx context.Context, blocks []dom.Node, langs []string) ([]dom.Node, error) {
	kept := make([]dom.Node, 0, len(blocks))
	for _, n := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := dom.InnerText(n)
		if strings.TrimSpace(text) == "" {
			continue
		}
		lang, err := d.Detector.DetectLanguage(ctx, text)
		if err != nil {
			d.log().Debug("Block language detection failed", "error", err)
			continue
		}
		if code, ok := language.FixCode(lang); ok && !language.SameLanguage(code, langs, d.DualDisplay) {
			kept = append(kept, n)
		}
	}
	d.log().Debug("Language policy applied", "blocks", len(blocks), "kept", len(kept))
	return kept, nil
}

// wrapNoTranslate wraps every node matched by the rule's no-translate
// selectors in a span.notranslate placeholder.
func (d *Discoverer) wrapNoTranslate(root dom.Node) {
	if len(d.Rule.NoTranslateSelectors) == 0 {
		return
	}
	sel := strings.Join(d.Rule.NoTranslateSelectors, ",")
	for _, n := range d.Doc.QuerySelectorAll(root, sel) {
		p := n.Parent()
		if p == nil {
			continue
		}
		if dom.IsTag(p, "SPAN") && dom.HasClass(p, NoTranslateClass) && len(p.Children()) == 1 {
			continue
		}
		span := d.Doc.CreateElement("span")
		span.SetAttr("class", NoTranslateClass)
		d.Doc.ReplaceWith(n, span)
		d.Doc.AppendChild(span, n)
	}
}

// IsValid reports whether an element may become a translation root.
func (d *Discoverer) IsValid(n dom.Node) bool {
	if n == nil || n.Type() != dom.ElementNode {
		return false
	}
	if IsEngineNode(n) {
		return false
	}
	name := n.Name()
	if d.Classifier.IsIgnoredName(name) || d.Classifier.IsNoTranslateName(name) ||
		HasNoTranslate(n) || dom.IsContentEditable(n) {
		return false
	}
	if p := n.Parent(); p != nil && IsEngineNode(p) {
		return false
	}
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() != dom.ElementNode {
			continue
		}
		if dom.AttrValue(cur, MarkAttr) == MarkCompanion || HasNoTranslate(cur) {
			return false
		}
	}
	if name == "P" && d.isBareFigure(n) {
		return false
	}
	return true
}

// isBareFigure reports whether a paragraph is an image with at most one
// other node beside it and a short caption. Whitespace-only text is ignored.
func (d *Discoverer) isBareFigure(p dom.Node) bool {
	significant := 0
	for _, ch := range p.Children() {
		if ch.Type() == dom.TextNode && strings.TrimSpace(ch.Data()) == "" {
			continue
		}
		significant++
	}
	if significant == 0 || significant > 2 {
		return false
	}
	if len(d.Doc.QuerySelectorAll(p, "img")) == 0 {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(dom.InnerText(p))) < imageCaptionMin
}
