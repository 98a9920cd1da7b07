package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/sony/gobreaker"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	breakerInterval = time.Minute
)

// Breaker stops calling a service after repeated failures and lets a single
// probe through once breakerTimeout has passed.
type Breaker struct {
	name string
	svc  Service
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps svc in a circuit breaker named after the service.
func NewBreaker(name string, svc Service, log *slog.Logger) *Breaker {
	if log == nil {
		log = logger.With("backend")
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Translation service breaker changed state", "service", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{name: name, svc: svc, cb: gobreaker.NewCircuitBreaker(settings)}
}

// countsAsSuccess keeps cancellations and caller-side problems from tripping
// the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return apperrors.Is(err, apperrors.KindMalformedOutput) || apperrors.Is(err, apperrors.KindBadRequest)
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.New(apperrors.KindTransient, "Translation service "+b.name+" is temporarily unavailable.", err)
	}
	return err
}

func (b *Breaker) Translate(ctx context.Context, target string, texts []string) ([]string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.svc.Translate(ctx, target, texts)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	res, _ := out.([]string)
	return res, nil
}

func (b *Breaker) DetectLanguage(ctx context.Context, text string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.svc.DetectLanguage(ctx, text)
	})
	if err != nil {
		return "", b.wrap(err)
	}
	res, _ := out.(string)
	return res, nil
}
