package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oukeidos/dualpage/internal/apperrors"
)

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		responseBody   string
		expectedErrMsg string
		kind           apperrors.Kind
	}{
		{
			name:           "429 Too Many Requests",
			status:         http.StatusTooManyRequests,
			responseBody:   `{"error": {"message": "Rate limit reached: SECRET_PAGE_TEXT", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`,
			expectedErrMsg: "OpenAI API rate limit exceeded (429)",
			kind:           apperrors.KindRateLimit,
		},
		{
			name:           "401 Unauthorized",
			status:         http.StatusUnauthorized,
			responseBody:   `{"error": {"message": "Invalid API Key: SECRET_PAGE_TEXT", "type": "auth_error"}}`,
			expectedErrMsg: "OpenAI API authentication/authorization failed (401)",
			kind:           apperrors.KindAuth,
		},
		{
			name:           "500 Internal Server Error",
			status:         http.StatusInternalServerError,
			responseBody:   "server down SECRET_PAGE_TEXT",
			expectedErrMsg: "OpenAI server error (500)",
			kind:           apperrors.KindTransient,
		},
		{
			name:           "403 Forbidden",
			status:         http.StatusForbidden,
			responseBody:   "restricted SECRET_PAGE_TEXT",
			expectedErrMsg: "OpenAI API authentication/authorization failed (403)",
			kind:           apperrors.KindAuth,
		},
		{
			name:           "404 Model Not Found",
			status:         http.StatusNotFound,
			responseBody:   `{"error": {"message": "The model SECRET_PAGE_TEXT does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`,
			expectedErrMsg: "The model does not exist",
			kind:           apperrors.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.responseBody)
			}))
			defer server.Close()

			client := NewClientWithBaseURL("test-key", "test-model", server.URL)

			_, err := client.Complete(context.Background(), "system", "{}")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedErrMsg) {
				t.Errorf("Expected error message to contain %q, got %q", tt.expectedErrMsg, err.Error())
			}
			if strings.Contains(err.Error(), "SECRET_PAGE_TEXT") {
				t.Errorf("Expected error message to redact sensitive content, got %q", err.Error())
			}
			if !apperrors.Is(err, tt.kind) {
				t.Errorf("Expected kind %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestClient_Complete_Success(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"language\":\"fr\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", "", server.URL)
	resp, err := client.Complete(context.Background(), "detect", `{"text":"bonjour"}`)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Text != `{"language":"fr"}` {
		t.Errorf("Complete() text = %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 3 || resp.Usage.CandidatesTokens != 2 || resp.Usage.TotalTokens != 5 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if path != "/chat/completions" {
		t.Errorf("path = %q", path)
	}
	if got.Model != DefaultModel || got.ResponseFormat.Type != "json_object" {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != `{"text":"bonjour"}` {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestClient_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-2","choices":[]}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", "m", server.URL)
	_, err := client.Complete(context.Background(), "", "{}")
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClassifyOpenAIError_Context(t *testing.T) {
	if err := classifyOpenAIError(context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled unchanged, got %v", err)
	}
	if err := classifyOpenAIError(fmt.Errorf("dial tcp: refused")); !apperrors.IsRetryable(err) {
		t.Fatalf("expected retryable network error, got %v", err)
	}
}
