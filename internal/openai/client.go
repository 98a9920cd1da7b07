package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/httpclient"
	"github.com/oukeidos/dualpage/internal/translator"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gpt-4.1-mini"

// Client handles communication with the OpenAI chat completions API.
type Client struct {
	api   *goopenai.Client
	model string
}

// Ensure Client implements translator.Model
var _ translator.Model = (*Client)(nil)

// NewClient creates a client for the public API.
func NewClient(apiKey, model string) *Client {
	return NewClientWithBaseURL(apiKey, model, "")
}

// NewClientWithBaseURL creates a client for an OpenAI compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.HTTPClient = httpclient.GetDefaultClient()
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:   goopenai.NewClientWithConfig(cfg),
		model: model,
	}
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.model
}

// Complete sends one prompt and returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, system, input string) (*translator.Completion, error) {
	var messages []goopenai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: input})

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	slog.Debug("OpenAI API Response", "usage_total", resp.Usage.TotalTokens, "response_id", resp.ID)

	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response format was invalid.", errors.New("no choices in response"))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonLength {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response was cut off.", errors.New("finish reason length"))
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "OpenAI response format was invalid.", errors.New("empty message content"))
	}
	return &translator.Completion{
		Text: choice.Message.Content,
		Usage: translator.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CandidatesTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// errorDetails is the part of an API error used for classification.
type errorDetails struct {
	Message string
	Type    string
	Code    any
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, errorDetails{Message: apiErr.Message, Type: apiErr.Type, Code: apiErr.Code})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return classifyStatus(reqErr.HTTPStatusCode, errorDetails{Message: reqErr.HTTPStatus})
	}
	return apperrors.New(
		apperrors.KindTransient,
		"OpenAI request failed due to a temporary network/runtime error.",
		fmt.Errorf("request failed: %w", err),
	)
}

func classifyStatus(statusCode int, details errorDetails) error {
	code := details.codeString()
	cause := fmt.Errorf("openai status=%d type=%s code=%s message=%s", statusCode, details.Type, code, details.Message)

	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.New(
			apperrors.KindRateLimit,
			"OpenAI API rate limit exceeded (429): please try again later.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		if isOpenAIModelNotFound(details) {
			return apperrors.New(
				apperrors.KindBadRequest,
				"The model does not exist or you do not have access to it.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			"OpenAI resource not found (404).",
			cause,
		)
	default:
		if statusCode >= 500 {
			return apperrors.New(
				apperrors.KindTransient,
				fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("OpenAI API error (%d).", statusCode),
			cause,
		)
	}
}

func isOpenAIModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
