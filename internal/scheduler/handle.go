package scheduler

import (
	"context"
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/host"
	"github.com/oukeidos/dualpage/internal/language"
)

var _ host.Handler = (*Engine)(nil)

func (e *Engine) response() host.Response {
	st := e.Status()
	return host.Response{State: string(st.Page), Language: st.PageLanguage, Service: st.Service}
}

// Handle answers a host request.
func (e *Engine) Handle(ctx context.Context, req host.Request) (host.Response, error) {
	switch req.Action {
	case host.TranslatePage:
		if req.TargetLanguage == host.OriginalTarget {
			e.RestorePage(ctx)
			return e.response(), nil
		}
		err := e.TranslatePage(ctx, req.TargetLanguage)
		return e.response(), err
	case host.RestorePage:
		e.RestorePage(ctx)
		return e.response(), nil
	case host.GetOriginalTabLanguage:
		lang, err := e.OriginalLanguage(ctx)
		return host.Response{Language: lang}, err
	case host.GetCurrentPageLanguage:
		return host.Response{Language: e.Status().PageLanguage}, nil
	case host.GetCurrentPageLanguageState:
		return host.Response{State: string(e.Status().Page)}, nil
	case host.GetCurrentPageTranslatorService:
		return host.Response{Service: e.Status().Service}, nil
	case host.SwapTranslationService:
		err := e.SwapTranslationService(ctx)
		return e.response(), err
	case host.ToggleTranslation:
		var err error
		if e.Status().Page == Translated {
			e.RestorePage(ctx)
		} else {
			err = e.TranslatePage(ctx, "")
		}
		return e.response(), err
	case host.AutoTranslateBecauseClickedALink:
		err := e.onLinkClick(ctx)
		return e.response(), err
	}
	return host.Response{}, host.Unsupported(req.Action)
}

// OriginalLanguage waits until the page language is known.
func (e *Engine) OriginalLanguage(ctx context.Context) (string, error) {
	select {
	case <-e.langReady:
		return e.Status().OriginalLanguage, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Engine) setOriginalLanguage(lang string) {
	e.mu.Lock()
	e.st.OriginalLanguage = lang
	if e.st.Page == Original {
		e.st.PageLanguage = lang
	}
	e.mu.Unlock()
	e.langOnce.Do(func() { close(e.langReady) })
}

func (e *Engine) onLinkClick(ctx context.Context) error {
	if !e.cfg.AutoTranslateOnLinkClick {
		return nil
	}
	lang, err := e.OriginalLanguage(ctx)
	if err != nil {
		return err
	}
	st := e.Status()
	if st.Page == Original && lang != st.TargetLanguage && !e.cfg.IsNeverTranslateLang(lang) {
		return e.TranslatePage(ctx, "")
	}
	return nil
}

// Start follows page visibility, learns the page language and translates
// right away when the site or language lists ask for it. A frame follows
// its main frame instead.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopVis == nil {
		e.stopVis = e.doc.OnVisibilityChange(e.setVisible)
	}
	e.mu.Unlock()

	if e.frame {
		return e.startFrame(ctx)
	}

	lang := e.detectTabLanguage(ctx)
	e.setOriginalLanguage(lang)
	e.log.Debug("Page language detected", "language", lang)

	hostName := e.hostName(ctx)
	if e.cfg.IsAlwaysTranslateSite(hostName) {
		return e.TranslatePage(ctx, "")
	}
	st := e.Status()
	if lang != language.Undetermined && st.Page == Original && !e.cfg.IsNeverTranslateSite(hostName) &&
		lang != st.TargetLanguage && e.cfg.IsAlwaysTranslateLang(lang) {
		return e.TranslatePage(ctx, "")
	}
	return nil
}

func (e *Engine) startFrame(ctx context.Context) error {
	lang := language.Undetermined
	if e.host == nil {
		e.setOriginalLanguage(lang)
		return nil
	}
	if resp, err := e.host.Request(ctx, host.Request{Action: host.GetMainFrameTabLanguage}); err == nil {
		if code, ok := language.FixCode(resp.Language); ok {
			lang = code
		}
	}
	e.setOriginalLanguage(lang)
	resp, err := e.host.Request(ctx, host.Request{Action: host.GetMainFramePageLanguageState})
	if err != nil {
		e.log.Debug("Main frame state unavailable", "error", err)
		return nil
	}
	if resp.State == string(Translated) {
		return e.TranslatePage(ctx, "")
	}
	return nil
}

// detectTabLanguage asks the host, then reads <html lang>, then detects the
// language of the body text.
func (e *Engine) detectTabLanguage(ctx context.Context) string {
	if e.host != nil {
		if resp, err := e.host.Request(ctx, host.Request{Action: host.DetectTabLanguage}); err == nil {
			if code, ok := language.FixCode(resp.Language); ok {
				return code
			}
		}
	}
	if code, ok := language.FixCode(dom.AttrValue(e.doc.Root(), "lang")); ok {
		return code
	}
	text := dom.InnerText(e.doc.Body())
	if strings.TrimSpace(text) == "" {
		return language.Undetermined
	}
	var detected string
	if e.host != nil {
		if resp, err := e.host.Request(ctx, host.Request{Action: host.DetectLanguage, Text: text}); err == nil {
			detected = resp.Language
		}
	}
	if detected == "" {
		lang, err := e.backend.DetectLanguage(ctx, text)
		if err != nil {
			e.log.Debug("Page language detection failed", "error", err)
			return language.Undetermined
		}
		detected = lang
	}
	if code, ok := language.FixCode(detected); ok {
		return code
	}
	return language.Undetermined
}

func (e *Engine) hostName(ctx context.Context) string {
	if e.host != nil {
		if resp, err := e.host.Request(ctx, host.Request{Action: host.GetTabHostName}); err == nil && resp.HostName != "" {
			return resp.HostName
		}
	}
	if u := e.doc.URL(); u != nil {
		return u.Hostname()
	}
	return ""
}
