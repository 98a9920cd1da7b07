package scheduler

import (
	"context"
	"errors"
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/segment"
)

// batch is the work of one dispatch cycle.
type batch struct {
	gen     uint64
	service string
	target  string

	units []*segment.Unit
	// texts are the protected unit texts; originals the text before protection.
	texts     [][]string
	originals [][]string

	attrs     []*Attribute
	attrTexts []string
	title     *titleEntry
}

func (b *batch) empty() bool {
	return len(b.units) == 0 && len(b.attrTexts) == 0
}

// retry is a spliced text whose placeholders could not be mapped back.
type retry struct {
	text     dom.Node
	original string
}

// DispatchOnce sends the units and attributes currently in view and applies
// the results. Units are marked translated before the request goes out, so a
// failed request leaves them showing the original text.
func (e *Engine) DispatchOnce(ctx context.Context) error {
	b := e.collect()
	if b == nil {
		return nil
	}
	return e.deliver(ctx, b)
}

// collect picks the pending work in view.
func (e *Engine) collect() *batch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st.Page != Translated || !e.doc.Visible() {
		return nil
	}
	vh := e.doc.ViewportHeight()
	b := &batch{gen: e.st.Generation, service: e.st.Service, target: e.st.TargetLanguage}

	for _, u := range e.st.Units {
		if u.Translated || !e.unitInView(u, vh) {
			continue
		}
		u.Translated = true
		texts := make([]string, len(u.Texts))
		originals := make([]string, len(u.Texts))
		for i, n := range u.Texts {
			originals[i] = n.Data()
			texts[i] = e.codec.Protect(originals[i])
		}
		b.units = append(b.units, u)
		b.texts = append(b.texts, texts)
		b.originals = append(b.originals, originals)
	}
	for _, a := range e.st.Attributes {
		if a.dispatched || !e.nodeInView(a.Node, vh) {
			continue
		}
		a.dispatched = true
		b.attrs = append(b.attrs, a)
		b.attrTexts = append(b.attrTexts, strings.TrimSpace(a.Label))
	}
	if t := e.st.title; t != nil && !t.dispatched {
		t.dispatched = true
		b.title = t
		b.attrTexts = append(b.attrTexts, t.text)
	}
	if b.empty() {
		return nil
	}
	return b
}

func intersects(top, bottom, vh float64) bool {
	return bottom > top && bottom > 0 && top < vh
}

// unitInView reports whether the unit's text intersects the viewport.
// Hidden text has no height and is never in view.
func (e *Engine) unitInView(u *segment.Unit, vh float64) bool {
	if len(u.Texts) == 0 {
		return false
	}
	// Options are laid out inside their select box.
	if dom.IsTag(u.Top, "SELECT", "DATALIST") {
		return e.nodeInView(u.Top, vh)
	}
	first := e.doc.Rect(u.Texts[0])
	last := e.doc.Rect(u.Texts[len(u.Texts)-1])
	return intersects(first.Top, last.Bottom, vh)
}

func (e *Engine) nodeInView(n dom.Node, vh float64) bool {
	if n.Parent() == nil || !dom.IsRendered(n) {
		return false
	}
	r := e.doc.Rect(n)
	return intersects(r.Top, r.Bottom, vh)
}

// current reports whether results of generation gen may still be applied.
func (e *Engine) current(gen uint64) bool {
	return e.st.Generation == gen && e.st.Page == Translated
}

func (e *Engine) deliver(ctx context.Context, b *batch) error {
	var errs []error
	if len(b.units) > 0 {
		e.log.Debug("Dispatching units", "units", len(b.units), "generation", b.gen)
		results, err := e.backend.TranslateBatch(ctx, b.service, b.target, b.texts)
		if err != nil {
			e.log.Warn("Unit translation failed", "units", len(b.units), "error", err)
			errs = append(errs, err)
		} else if retries := e.apply(b, results); len(retries) > 0 {
			e.retry(ctx, b, retries)
		}
	}
	if len(b.attrTexts) > 0 {
		results, err := e.backend.TranslateText(ctx, b.service, b.target, b.attrTexts)
		if err != nil {
			e.log.Warn("Attribute translation failed", "count", len(b.attrTexts), "error", err)
			errs = append(errs, err)
		} else {
			e.applyAttributes(b, results)
		}
	}
	return errors.Join(errs...)
}

// apply splices the unit results into the page. It returns the texts that
// need a plain translation because placeholder recovery failed.
func (e *Engine) apply(b *batch, results [][]string) []retry {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(b.gen) {
		e.log.Debug("Stale unit results dropped", "generation", b.gen, "current", e.st.Generation)
		return nil
	}
	var retries []retry
	for i, u := range b.units {
		if i >= len(results) {
			break
		}
		res := results[i]
		if block := e.st.blocks[u]; block != nil {
			e.compositor.Materialize(block)
		}
		nodes := u.Texts
		if e.cfg.DontSortResults {
			for j, n := range nodes {
				if j >= len(res) {
					break
				}
				text := res[j]
				if j == len(nodes)-1 && len(res) > len(nodes) {
					text = strings.Join(res[j:], " ")
				}
				retries = e.splice(n, b.originals[i][j], text, retries)
			}
			continue
		}
		for j := 0; j < len(nodes) && j < len(res); j++ {
			if res[j] != "" {
				retries = e.splice(nodes[j], b.originals[i][j], res[j], retries)
			}
		}
	}
	return retries
}

// splice wraps a text node in a marked font element and writes the
// recovered translation into it.
func (e *Engine) splice(n dom.Node, original, translated string, retries []retry) []retry {
	if n.Parent() == nil {
		return retries
	}
	wrapper := e.doc.CreateElement("font")
	wrapper.SetAttr(segment.MarkAttr, segment.MarkTranslated)
	wrapper.SetAttr("style", e.compositor.TextStyle())
	text := e.doc.CreateText(original)
	e.doc.AppendChild(wrapper, text)
	e.doc.ReplaceWith(n, wrapper)
	e.st.restores = append(e.st.restores, textRestore{wrapper: wrapper, original: n})

	recovered, err := e.codec.Recover(translated)
	if err != nil {
		e.log.Debug("Malformed translation, retrying as plain text", "error", err)
		return append(retries, retry{text: text, original: original})
	}
	text.SetData(recovered)
	return retries
}

// retry translates each malformed text once more without placeholders.
func (e *Engine) retry(ctx context.Context, b *batch, retries []retry) {
	for _, r := range retries {
		out, err := e.backend.TranslateSingleText(ctx, b.service, b.target, r.original)
		if err != nil {
			e.log.Warn("Plain text retry failed", "error", err)
			continue
		}
		e.mu.Lock()
		if e.current(b.gen) && r.text.Parent() != nil {
			r.text.SetData(out)
		}
		e.mu.Unlock()
	}
}

func (e *Engine) applyAttributes(b *batch, results []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(b.gen) {
		e.log.Debug("Stale attribute results dropped", "generation", b.gen)
		return
	}
	for i, a := range b.attrs {
		if i >= len(results) || strings.TrimSpace(results[i]) == "" {
			continue
		}
		a.Node.SetAttr(a.Name, results[i])
		a.applied = true
	}
	if t := b.title; t != nil && len(results) == len(b.attrs)+1 {
		if v := results[len(results)-1]; strings.TrimSpace(v) != "" {
			e.doc.SetTitle(v)
			t.applied = true
		}
	}
}
