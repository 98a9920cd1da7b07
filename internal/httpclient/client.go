// Package httpclient builds the HTTP client shared by the model backends.
package httpclient

import (
	"net/http"
	"sync"
	"time"

	"github.com/oukeidos/dualpage/internal/version"
)

const (
	// DefaultTimeout bounds one model request. Page chunks are a few dozen
	// short texts, so requests that run longer are stuck rather than slow.
	DefaultTimeout = 3 * time.Minute

	// At most 20 concurrent requests go to one provider host.
	MaxIdleConns          = 40
	MaxIdleConnsPerHost   = 20
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 15 * time.Second
	ExpectContinueTimeout = time.Second
)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideMu        sync.RWMutex
	overrideClient    *http.Client
)

// userAgent tags requests that do not set their own User-Agent.
type userAgent struct {
	base  http.RoundTripper
	agent string
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", u.agent)
	return u.base.RoundTrip(clone)
}

// NewTransport returns the tuned transport wrapped with the dualpage User-Agent.
func NewTransport() http.RoundTripper {
	return userAgent{
		base: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          MaxIdleConns,
			MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
			IdleConnTimeout:       IdleConnTimeout,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ExpectContinueTimeout: ExpectContinueTimeout,
			ForceAttemptHTTP2:     true,
		},
		agent: version.UserAgent(),
	}
}

// NewClient returns a client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(),
	}
}

// GetDefaultClient returns the process-wide backend client.
func GetDefaultClient() *http.Client {
	overrideMu.RLock()
	c := overrideClient
	overrideMu.RUnlock()
	if c != nil {
		return c
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the default client and returns a
// function that restores the previous one.
func SetDefaultClientForTesting(client *http.Client) func() {
	overrideMu.Lock()
	prev := overrideClient
	overrideClient = client
	overrideMu.Unlock()
	return func() {
		overrideMu.Lock()
		overrideClient = prev
		overrideMu.Unlock()
	}
}
