// Package scheduler drives the in-place translation of one page: it splits
// the page into units, sends the units in view to the backend, splices the
// results back, follows tree mutations, and restores the page exactly.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/backend"
	"github.com/oukeidos/dualpage/internal/config"
	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/dual"
	"github.com/oukeidos/dualpage/internal/host"
	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/segment"
	"github.com/oukeidos/dualpage/internal/siterules"
)

// Default labels of value buttons without a value attribute.
const (
	submitLabel = "Submit Query"
	resetLabel  = "Reset"
)

// Options configures an Engine.
type Options struct {
	Doc     dom.Document
	Backend backend.Translator
	// Host receives state notifications and answers bootstrap questions.
	// It may be nil.
	Host   host.Port
	Config config.Config
	// Rules are matched against the page. Nil means no site rules.
	Rules      *siterules.Set
	Dictionary *keyword.Dictionary
	// Frame marks an embedded document that follows its main frame.
	Frame bool
	// NewID names units. It defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// Engine translates one document. All methods are safe for concurrent use.
type Engine struct {
	doc        dom.Document
	backend    backend.Translator
	host       host.Port
	cfg        config.Config
	rule       siterules.Rule
	frame      bool
	segmenter  *segment.Segmenter
	discoverer *segment.Discoverer
	compositor *dual.Compositor
	codec      *keyword.Codec
	log        *slog.Logger

	// mu guards st and every tree edit the engine makes. It is never held
	// during a backend or host call; block language detection runs between
	// two critical sections and re-checks the generation.
	mu sync.Mutex
	st State

	// qmu guards the mutation queue. Observer callbacks run on whichever
	// goroutine edited the tree, which may already hold mu.
	qmu      sync.Mutex
	observer dom.Observer
	epoch    uint64
	added    []dom.Node
	removed  []dom.Node

	inflight  sync.WaitGroup
	kick      chan struct{}
	langReady chan struct{}
	langOnce  sync.Once
	stopVis   func()
}

// New prepares an engine for doc. The page starts in the Original state.
func New(opts Options) (*Engine, error) {
	if opts.Doc == nil {
		return nil, errors.New("scheduler: document is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("scheduler: backend is required")
	}
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logger.With("scheduler")
	}
	dict := opts.Dictionary
	if dict == nil {
		dict = keyword.NewDictionary(nil)
	}

	rule, matched := opts.Rules.MatchPage(opts.Doc)
	if matched {
		log.Debug("Site rule matched", "rule", rule.Name)
	}
	classifier := segment.Classifier{TranslatePre: cfg.TranslatePre}

	e := &Engine{
		doc:     opts.Doc,
		backend: opts.Backend,
		host:    opts.Host,
		cfg:     cfg,
		rule:    rule,
		frame:   opts.Frame,
		segmenter: &segment.Segmenter{
			Classifier: classifier,
			SoftLimit:  cfg.SoftCharLimit,
			NewID:      opts.NewID,
		},
		discoverer: &segment.Discoverer{
			Doc:             opts.Doc,
			Classifier:      classifier,
			Rule:            rule,
			TargetLanguage:  cfg.TargetLanguage,
			NeverLangs:      cfg.NeverTranslateLangs,
			DualDisplay:     cfg.ShowDualLanguage,
			Detector:        opts.Backend,
			MaxDetectBlocks: cfg.DetectLanguageMaxBlocks,
			Logger:          log,
		},
		compositor: &dual.Compositor{
			Doc:         opts.Doc,
			Rule:        rule,
			Enabled:     cfg.ShowDualLanguage,
			Style:       cfg.DualStyle,
			CustomStyle: cfg.CustomDualStyle,
			Logger:      log,
		},
		codec:     keyword.NewCodec(dict),
		log:       log,
		kick:      make(chan struct{}, 1),
		langReady: make(chan struct{}),
	}
	e.st = State{
		Page:             Original,
		TargetLanguage:   cfg.TargetLanguage,
		OriginalLanguage: language.Undetermined,
		PageLanguage:     language.Undetermined,
		Service:          cfg.TranslatorService,
	}
	e.st.reset()
	return e, nil
}

// Rule returns the site rule matched for the page.
func (e *Engine) Rule() siterules.Rule {
	return e.rule
}

// Compositor returns the companion renderer used by the engine.
func (e *Engine) Compositor() *dual.Compositor {
	return e.compositor
}

// SetDictionary replaces the keyword dictionary for later passes.
func (e *Engine) SetDictionary(d *keyword.Dictionary) {
	e.codec.SetDictionary(d)
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := 0
	for _, u := range e.st.Units {
		if !u.Translated {
			pending++
		}
	}
	e.qmu.Lock()
	observing := e.observer != nil
	e.qmu.Unlock()
	return Status{
		Page:             e.st.Page,
		Generation:       e.st.Generation,
		TargetLanguage:   e.st.TargetLanguage,
		OriginalLanguage: e.st.OriginalLanguage,
		PageLanguage:     e.st.PageLanguage,
		Service:          e.st.Service,
		Units:            len(e.st.Units),
		Pending:          pending,
		Attributes:       len(e.st.Attributes),
		Observing:        observing,
	}
}

func resolveTarget(target string) (string, error) {
	if _, ok := language.GetLanguage(target); ok {
		return target, nil
	}
	if code, ok := language.FixCode(target); ok {
		return code, nil
	}
	return "", apperrors.Validation(fmt.Errorf("unsupported target language %q", target))
}

// TranslatePage restores the page, segments it again and switches to the
// Translated state. An empty target keeps the current target language.
// Units are sent by DispatchOnce or the Run loop.
func (e *Engine) TranslatePage(ctx context.Context, target string) error {
	e.mu.Lock()
	if target == "" {
		target = e.st.TargetLanguage
	}
	target, err := resolveTarget(target)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.restoreLocked()
	e.st.Generation++
	gen := e.st.Generation
	e.codec.Reset()
	e.st.TargetLanguage = target
	e.discoverer.TargetLanguage = target
	found, err := e.pageBlocks()
	e.mu.Unlock()

	// Block language detection calls the backend, so it runs unlocked.
	if err == nil {
		found, err = e.discoverer.KeepForeign(ctx, found, target)
	}
	if err != nil {
		e.log.Error("Segmentation failed", "error", err)
		e.notify(ctx, Original)
		return apperrors.Segmentation(err)
	}

	e.mu.Lock()
	if cur := e.st.Generation; cur != gen {
		e.mu.Unlock()
		e.log.Debug("Page translation superseded", "generation", gen, "current", cur)
		return nil
	}
	units, blocks, err := e.segmentBlocks(found)
	if err != nil {
		e.mu.Unlock()
		e.log.Error("Segmentation failed", "error", err)
		e.notify(ctx, Original)
		return apperrors.Segmentation(err)
	}
	e.st.Units = units
	e.st.blocks = blocks
	e.st.Attributes = e.collectAttributes()
	e.st.title = e.titleEntry()
	e.st.Page = Translated
	e.st.PageLanguage = target
	attrs := len(e.st.Attributes)
	e.enableObserverLocked()
	e.mu.Unlock()

	e.log.Info("Page translation started", "target", target, "units", len(units), "attributes", attrs, "generation", gen)
	e.notify(ctx, Original)
	e.notify(ctx, Translated)
	select {
	case e.kick <- struct{}{}:
	default:
	}
	return nil
}

// RestorePage puts the page back exactly as it was before translation.
// It is safe to call in any state.
func (e *Engine) RestorePage(ctx context.Context) {
	e.mu.Lock()
	e.restoreLocked()
	e.mu.Unlock()
	e.notify(ctx, Original)
}

func (e *Engine) restoreLocked() {
	e.st.Generation++
	e.disableObserverLocked()
	wasTranslated := e.st.Page == Translated
	e.st.Page = Original
	e.st.PageLanguage = e.st.OriginalLanguage

	if t := e.st.title; t != nil && t.applied {
		for _, ch := range t.elem.Children() {
			e.doc.Remove(ch)
		}
		for _, ch := range t.children {
			e.doc.AppendChild(t.elem, ch)
		}
	}
	removed := e.compositor.RemoveAll(e.doc.Root())
	for i := len(e.st.restores) - 1; i >= 0; i-- {
		r := e.st.restores[i]
		if r.wrapper.Parent() != nil {
			e.doc.ReplaceWith(r.wrapper, r.original)
		}
	}
	for _, a := range e.st.Attributes {
		if !a.applied {
			continue
		}
		if a.Existed {
			a.Node.SetAttr(a.Name, a.Original)
		} else {
			a.Node.RemoveAttr(a.Name)
		}
	}
	if wasTranslated {
		e.log.Info("Page restored", "restored", len(e.st.restores), "companions", removed)
	}
	e.st.reset()
}

// SwapTranslationService moves to the other configured service and
// translates again when the page is translated.
func (e *Engine) SwapTranslationService(ctx context.Context) error {
	e.mu.Lock()
	e.st.Service = e.cfg.NextService(e.st.Service)
	service := e.st.Service
	translated := e.st.Page == Translated
	e.mu.Unlock()
	e.log.Info("Translation service swapped", "service", service)
	if translated {
		return e.TranslatePage(ctx, "")
	}
	return nil
}

// pageBlocks returns the candidate blocks of the page before language
// detection. Callers hold mu.
func (e *Engine) pageBlocks() (found []dom.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected tree shape: %v", r)
		}
	}()
	body := e.doc.Body()
	if body == nil {
		return nil, errors.New("document has no body")
	}
	return e.discoverer.Candidates(body), nil
}

// segmentBlocks segments each discovered block. A page without blocks is
// segmented as a whole. Callers hold mu.
func (e *Engine) segmentBlocks(found []dom.Node) (units []*segment.Unit, blocks map[*segment.Unit]dom.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected tree shape: %v", r)
		}
	}()
	body := e.doc.Body()
	if body == nil {
		return nil, nil, errors.New("document has no body")
	}
	blocks = make(map[*segment.Unit]dom.Node)
	if len(found) == 0 {
		units = e.segmenter.Segment(body)
		assignBlocks(units, blocks, e.discoverer)
		return units, blocks, nil
	}
	for _, b := range found {
		if !dom.Contains(body, b) {
			continue
		}
		for _, u := range e.segmenter.Segment(b) {
			units = append(units, u)
			blocks[u] = b
		}
	}
	return units, blocks, nil
}

// assignBlocks maps each unit to the outermost unit parent that contains it,
// so that nested units share one companion.
func assignBlocks(units []*segment.Unit, blocks map[*segment.Unit]dom.Node, d *segment.Discoverer) {
	var parents []dom.Node
	for _, u := range units {
		p := u.Parent
		if p == nil || dom.IsTag(p, "BODY", "HTML") || !d.IsValid(p) {
			continue
		}
		parents = append(parents, p)
	}
	for _, u := range units {
		if u.Parent == nil {
			continue
		}
		var outer dom.Node
		for _, p := range parents {
			if dom.Contains(p, u.Parent) && (outer == nil || dom.Contains(p, outer)) {
				outer = p
			}
		}
		if outer != nil {
			blocks[u] = outer
		}
	}
}

// collectAttributes lists the attributes of the page worth translating.
func (e *Engine) collectAttributes() []*Attribute {
	body := e.doc.Body()
	if body == nil {
		return nil
	}
	var out []*Attribute
	add := func(n dom.Node, name, value, label string, existed bool) {
		out = append(out, &Attribute{Node: n, Name: name, Original: value, Label: label, Existed: existed})
	}
	query := func(sel string, fn func(n dom.Node)) {
		for _, n := range e.doc.QuerySelectorAll(body, sel) {
			if segment.HasNoTranslate(n) || segment.IsEngineNode(n) {
				continue
			}
			fn(n)
		}
	}
	plain := func(name string) func(dom.Node) {
		return func(n dom.Node) {
			if v := dom.AttrValue(n, name); strings.TrimSpace(v) != "" {
				add(n, name, v, v, true)
			}
		}
	}

	query(`input[placeholder], textarea[placeholder]`, plain("placeholder"))
	query(`area[alt], img[alt], input[type="image"][alt]`, plain("alt"))
	query(`input[type="button"], input[type="submit"], input[type="reset"]`, func(n dom.Node) {
		v, ok := n.Attr("value")
		typ := strings.ToLower(dom.AttrValue(n, "type"))
		switch {
		case v == "" && typ == "submit":
			add(n, "value", v, submitLabel, ok)
		case v == "" && typ == "reset":
			add(n, "value", v, resetLabel, ok)
		case strings.TrimSpace(v) != "":
			add(n, "value", v, v, true)
		}
	})
	query(`[title]`, plain("title"))
	return out
}

func (e *Engine) titleEntry() *titleEntry {
	head := e.doc.Head()
	if head == nil {
		return nil
	}
	elems := e.doc.QuerySelectorAll(head, "title")
	if len(elems) == 0 {
		return nil
	}
	text := e.doc.Title()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &titleEntry{elem: elems[0], children: elems[0].Children(), text: text}
}

// notify tells the host about a page state change.
func (e *Engine) notify(ctx context.Context, state PageState) {
	if e.host == nil {
		return
	}
	if _, err := e.host.Request(ctx, host.Request{Action: host.SetPageLanguageState, State: string(state)}); err != nil {
		e.log.Debug("Page state notification failed", "state", state, "error", err)
	}
}
