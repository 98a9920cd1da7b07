package scheduler

import (
	"context"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/segment"
)

// enableObserverLocked starts following child list changes of the body
// when dynamic content translation is on and the page is visible.
func (e *Engine) enableObserverLocked() {
	e.disableObserverLocked()
	if !e.cfg.TranslateDynamicContent || !e.doc.Visible() || e.st.Page != Translated {
		return
	}
	body := e.doc.Body()
	if body == nil {
		return
	}
	e.qmu.Lock()
	defer e.qmu.Unlock()
	e.epoch++
	epoch := e.epoch
	e.observer = e.doc.Observe(body, func(recs []dom.MutationRecord) {
		e.record(epoch, recs)
	})
	e.log.Debug("Mutation observer enabled")
}

// disableObserverLocked stops observation and drops queued records.
func (e *Engine) disableObserverLocked() {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	e.epoch++
	if e.observer != nil {
		e.observer.Disconnect()
		e.observer = nil
		e.log.Debug("Mutation observer disabled")
	}
	e.added = nil
	e.removed = nil
}

// record queues added elements worth segmenting and every removed node.
func (e *Engine) record(epoch uint64, recs []dom.MutationRecord) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	if e.observer == nil || e.epoch != epoch {
		return
	}
	c := e.segmenter.Classifier
	for _, r := range recs {
		for _, n := range r.Added {
			if n.Type() != dom.ElementNode || segment.IsEngineNode(n) {
				continue
			}
			name := n.Name()
			if c.IsNoTranslateName(name) || c.IsInlineTextName(name) || c.IsIgnoredName(name) {
				continue
			}
			if !containsNode(e.added, n) {
				e.added = append(e.added, n)
			}
		}
		e.removed = append(e.removed, r.Removed...)
	}
}

func containsNode(list []dom.Node, n dom.Node) bool {
	for _, m := range list {
		if m == n {
			return true
		}
	}
	return false
}

// DrainOnce segments the elements added since the last drain and queues
// the units not already known. It returns the number of new units.
func (e *Engine) DrainOnce(ctx context.Context) (int, error) {
	e.qmu.Lock()
	added, removed := e.added, e.removed
	e.added, e.removed = nil, nil
	e.qmu.Unlock()
	if len(added) == 0 {
		return 0, nil
	}

	type pending struct {
		node   dom.Node
		blocks []dom.Node
	}

	e.mu.Lock()
	if e.st.Page != Translated {
		e.mu.Unlock()
		return 0, nil
	}
	gen, target := e.st.Generation, e.st.TargetLanguage
	root := e.doc.Root()
	var found []pending
	for _, n := range added {
		if containsNode(removed, n) || !dom.Contains(root, n) {
			continue
		}
		found = append(found, pending{node: n, blocks: e.discoverer.Candidates(n)})
	}
	e.mu.Unlock()

	// Block language detection calls the backend, so it runs unlocked.
	for i := range found {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		blocks, err := e.discoverer.KeepForeign(ctx, found[i].blocks, target)
		if err != nil {
			return 0, err
		}
		found[i].blocks = blocks
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(gen) {
		return 0, nil
	}
	count := 0
	for _, f := range found {
		if !dom.Contains(root, f.node) {
			continue
		}
		blocks := f.blocks
		if len(blocks) == 0 && e.discoverer.IsValid(f.node) {
			blocks = []dom.Node{f.node}
		}
		for _, b := range blocks {
			if !dom.Contains(root, b) {
				continue
			}
			for _, u := range e.segmenter.Segment(b) {
				if e.known(u) {
					continue
				}
				e.st.Units = append(e.st.Units, u)
				e.st.blocks[u] = b
				count++
			}
		}
	}
	if count > 0 {
		e.log.Debug("New units queued", "units", count, "added", len(added))
	}
	return count, nil
}

// known reports whether u shares a text node with a unit already tracked.
func (e *Engine) known(u *segment.Unit) bool {
	for _, k := range e.st.Units {
		if k.SharesText(u) {
			return true
		}
	}
	return false
}

// setVisible follows page visibility: observation runs only while the page
// is visible and translated.
func (e *Engine) setVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if visible && e.st.Page == Translated {
		e.enableObserverLocked()
		return
	}
	e.disableObserverLocked()
}
