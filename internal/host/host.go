// Package host is the typed request/response port between the engine and
// whatever drives it: a CLI session, a test, or a remote controller.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Action names a request.
type Action string

// Requests the engine answers.
const (
	TranslatePage                    Action = "translatePage"
	RestorePage                      Action = "restorePage"
	GetOriginalTabLanguage           Action = "getOriginalTabLanguage"
	GetCurrentPageLanguage           Action = "getCurrentPageLanguage"
	GetCurrentPageLanguageState      Action = "getCurrentPageLanguageState"
	GetCurrentPageTranslatorService  Action = "getCurrentPageTranslatorService"
	SwapTranslationService           Action = "swapTranslationService"
	ToggleTranslation                Action = "toggle-translation"
	AutoTranslateBecauseClickedALink Action = "autoTranslateBecauseClickedALink"
)

// Requests the engine sends.
const (
	SetPageLanguageState          Action = "setPageLanguageState"
	DetectLanguage                Action = "detectLanguage"
	GetTabHostName                Action = "getTabHostName"
	GetTabURL                     Action = "getTabUrl"
	DetectTabLanguage             Action = "detectTabLanguage"
	GetMainFrameTabLanguage       Action = "getMainFrameTabLanguage"
	GetMainFramePageLanguageState Action = "getMainFramePageLanguageState"
)

// OriginalTarget as a target language asks for the page to be restored.
const OriginalTarget = "original"

// Request is one message. Only the fields the action needs are set.
type Request struct {
	Action         Action
	TargetLanguage string
	State          string
	Text           string
}

// Response answers a Request.
type Response struct {
	Language string
	State    string
	Service  string
	HostName string
	URL      string
}

// ErrUnsupported is returned for actions a handler does not know.
var ErrUnsupported = errors.New("unsupported action")

// ErrClosed is returned by a Pipe after Close.
var ErrClosed = errors.New("port closed")

// Unsupported wraps ErrUnsupported with the action name.
func Unsupported(a Action) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, a)
}

// Port sends requests and waits for their responses.
type Port interface {
	Request(ctx context.Context, req Request) (Response, error)
}

// Handler answers requests.
type Handler interface {
	Handle(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Direct is a Port that calls a Handler on the caller's goroutine.
type Direct struct {
	Handler Handler
}

func (d Direct) Request(ctx context.Context, req Request) (Response, error) {
	if d.Handler == nil {
		return Response{}, Unsupported(req.Action)
	}
	return d.Handler.Handle(ctx, req)
}

type envelope struct {
	ctx   context.Context
	req   Request
	reply chan result
}

type result struct {
	resp Response
	err  error
}

// Pipe carries requests to a handler running on its own goroutine, one
// request at a time.
type Pipe struct {
	ch        chan envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewPipe returns a pipe. Requests block until Serve picks them up.
func NewPipe() *Pipe {
	return &Pipe{ch: make(chan envelope), done: make(chan struct{})}
}

func (p *Pipe) Request(ctx context.Context, req Request) (Response, error) {
	env := envelope{ctx: ctx, req: req, reply: make(chan result, 1)}
	select {
	case p.ch <- env:
	case <-p.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Serve answers requests with h until ctx ends or the pipe is closed.
func (p *Pipe) Serve(ctx context.Context, h Handler) error {
	for {
		select {
		case env := <-p.ch:
			resp, err := h.Handle(env.ctx, env.req)
			env.reply <- result{resp: resp, err: err}
		case <-p.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops Serve and fails pending and later requests.
func (p *Pipe) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Static answers the engine's requests from fixed values and records the
// page states it is told about.
type Static struct {
	HostName string
	URL      string
	// TabLanguage answers DetectTabLanguage and GetMainFrameTabLanguage.
	TabLanguage string
	// MainFrameState answers GetMainFramePageLanguageState.
	MainFrameState string
	// Detect answers DetectLanguage when set.
	Detect func(ctx context.Context, text string) (string, error)

	mu     sync.Mutex
	states []string
}

func (s *Static) Request(ctx context.Context, req Request) (Response, error) {
	switch req.Action {
	case SetPageLanguageState:
		s.mu.Lock()
		s.states = append(s.states, req.State)
		s.mu.Unlock()
		return Response{State: req.State}, nil
	case GetTabHostName:
		return Response{HostName: s.HostName}, nil
	case GetTabURL:
		return Response{URL: s.URL}, nil
	case DetectTabLanguage, GetMainFrameTabLanguage:
		return Response{Language: s.TabLanguage}, nil
	case GetMainFramePageLanguageState:
		return Response{State: s.MainFrameState}, nil
	case DetectLanguage:
		if s.Detect == nil {
			return Response{}, Unsupported(req.Action)
		}
		lang, err := s.Detect(ctx, req.Text)
		return Response{Language: lang}, err
	}
	return Response{}, Unsupported(req.Action)
}

// States returns the page states reported so far.
func (s *Static) States() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.states...)
}
