package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oukeidos/dualpage/internal/version"
)

func TestGetDefaultClient(t *testing.T) {
	client := GetDefaultClient()
	if client == nil {
		t.Fatal("Expected client to not be nil")
	}
	if client.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout to be %v, got %v", DefaultTimeout, client.Timeout)
	}
	if GetDefaultClient() != client {
		t.Errorf("Expected singleton client instance")
	}
}

func TestNewClient_Transport(t *testing.T) {
	client := NewClient(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Expected timeout to be 5s, got %v", client.Timeout)
	}
	ua, ok := client.Transport.(userAgent)
	if !ok {
		t.Fatalf("Expected user agent transport, got %T", client.Transport)
	}
	transport, ok := ua.base.(*http.Transport)
	if !ok {
		t.Fatalf("Expected *http.Transport underneath, got %T", ua.base)
	}
	if transport.MaxIdleConnsPerHost != MaxIdleConnsPerHost {
		t.Errorf("Expected MaxIdleConnsPerHost to be %d, got %d", MaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	}
	if transport.Proxy == nil {
		t.Errorf("Expected proxy from environment")
	}
}

func TestUserAgent(t *testing.T) {
	got := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if ua := <-got; ua != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", ua, version.UserAgent())
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom/1")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if ua := <-got; ua != "custom/1" {
		t.Errorf("User-Agent = %q, want the caller's value", ua)
	}
}

func TestSetDefaultClientForTesting(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	restore := SetDefaultClientForTesting(custom)
	if GetDefaultClient() != custom {
		t.Fatalf("Expected override client")
	}
	restore()
	if GetDefaultClient() == custom {
		t.Fatalf("Expected override to be restored")
	}
}
