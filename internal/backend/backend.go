// Package backend is the translation contract the engine consumes and the
// router that maps service names to translation services.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/logger"
)

// Service translates flat lists of texts. translator.Translator implements it.
type Service interface {
	Translate(ctx context.Context, target string, texts []string) ([]string, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Translator is what the scheduler calls.
type Translator interface {
	// TranslateBatch returns one translation per input text, in the same shape.
	TranslateBatch(ctx context.Context, service, target string, batch [][]string) ([][]string, error)
	TranslateText(ctx context.Context, service, target string, texts []string) ([]string, error)
	TranslateSingleText(ctx context.Context, service, target, text string) (string, error)
	// DetectLanguage returns a language code, or "und" when unsure.
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Router dispatches requests to registered services, each behind a breaker.
type Router struct {
	mu       sync.RWMutex
	services map[string]*Breaker
	detector string
	log      *slog.Logger
}

// NewRouter returns an empty router. A nil logger uses the package logger.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = logger.With("backend")
	}
	return &Router{services: map[string]*Breaker{}, log: log}
}

// Register adds a service under name. The first service registered also
// answers language detection until SetDetector picks another.
func (r *Router) Register(name string, svc Service) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = NewBreaker(name, svc, r.log)
	if r.detector == "" {
		r.detector = name
	}
}

// SetDetector selects the service used for language detection.
func (r *Router) SetDetector(name string) {
	r.mu.Lock()
	r.detector = strings.ToLower(strings.TrimSpace(name))
	r.mu.Unlock()
}

// Services lists registered service names in order.
func (r *Router) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Router) service(name string) (*Breaker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.services[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.Validation(fmt.Errorf("unknown translation service %q", name))
	}
	return b, nil
}

// TranslateBatch flattens the batch into one request and reshapes the result.
func (r *Router) TranslateBatch(ctx context.Context, service, target string, batch [][]string) ([][]string, error) {
	var flat []string
	for _, unit := range batch {
		flat = append(flat, unit...)
	}
	out, err := r.TranslateText(ctx, service, target, flat)
	if err != nil {
		return nil, err
	}
	result := make([][]string, len(batch))
	pos := 0
	for i, unit := range batch {
		result[i] = out[pos : pos+len(unit)]
		pos += len(unit)
	}
	return result, nil
}

// TranslateText translates texts with the named service.
func (r *Router) TranslateText(ctx context.Context, service, target string, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	b, err := r.service(service)
	if err != nil {
		return nil, err
	}
	out, err := b.Translate(ctx, target, texts)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, apperrors.Validation(fmt.Errorf("service %s returned %d translations for %d texts", service, len(out), len(texts)))
	}
	for i := range out {
		out[i] = PlainText(texts[i], out[i])
	}
	return out, nil
}

// TranslateSingleText translates one text with the named service.
func (r *Router) TranslateSingleText(ctx context.Context, service, target, text string) (string, error) {
	out, err := r.TranslateText(ctx, service, target, []string{text})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// DetectLanguage asks the detector service for the language of text.
func (r *Router) DetectLanguage(ctx context.Context, text string) (string, error) {
	r.mu.RLock()
	name := r.detector
	r.mu.RUnlock()
	if name == "" {
		return "", apperrors.Validation(fmt.Errorf("no language detection service registered"))
	}
	b, err := r.service(name)
	if err != nil {
		return "", err
	}
	return b.DetectLanguage(ctx, text)
}
