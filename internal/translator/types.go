package translator

import (
	"context"

	"github.com/oukeidos/dualpage/internal/chunker"
)

// Model is a single completion endpoint of a language model. Implementations
// return the raw text the model produced for the given system prompt and
// JSON input.
type Model interface {
	Complete(ctx context.Context, system, input string) (*Completion, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, system, input string) (*Completion, error)

// Complete calls f.
func (f ModelFunc) Complete(ctx context.Context, system, input string) (*Completion, error) {
	return f(ctx, system, input)
}

// Completion is one model answer.
type Completion struct {
	Text  string
	Usage Usage
}

// Usage holds token usage information.
type Usage struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CandidatesTokens += o.CandidatesTokens
	u.TotalTokens += o.TotalTokens
}

// RequestData is the JSON input sent with each chunk.
type RequestData struct {
	TargetLanguage string         `json:"target_language"`
	ContextBefore  []chunker.Item `json:"context_before"`
	Target         []chunker.Item `json:"target"`
	ContextAfter   []chunker.Item `json:"context_after"`
}

// TranslatedItem is one entry of the model output.
type TranslatedItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ResponseData is the JSON output expected from the model.
type ResponseData struct {
	Translations []TranslatedItem `json:"translations"`
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Language string `json:"language"`
}
