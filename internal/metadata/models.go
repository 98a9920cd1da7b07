// Package metadata lists the models offered for each backend service and
// their token prices, used for the cost estimate printed after a run.
package metadata

type GeminiModel struct {
	ID                      string
	Label                   string
	InputPerMillion         float64
	OutputPerMillion        float64
	ReasoningBilledAsOutput bool
}

type OpenAIModel struct {
	ID               string
	Label            string
	InputPerMillion  float64
	OutputPerMillion float64
}

var GeminiModels = []GeminiModel{
	{
		ID:                      "gemini-2.5-flash",
		Label:                   "Gemini 2.5 Flash",
		InputPerMillion:         0.30,
		OutputPerMillion:        2.50,
		ReasoningBilledAsOutput: true,
	},
	{
		ID:                      "gemini-2.5-flash-lite",
		Label:                   "Gemini 2.5 Flash-Lite",
		InputPerMillion:         0.10,
		OutputPerMillion:        0.40,
		ReasoningBilledAsOutput: true,
	},
	{
		ID:                      "gemini-2.5-pro",
		Label:                   "Gemini 2.5 Pro",
		InputPerMillion:         1.25,
		OutputPerMillion:        10.00,
		ReasoningBilledAsOutput: true,
	},
}

var OpenAIModels = []OpenAIModel{
	{
		ID:               "gpt-4.1-mini",
		Label:            "GPT-4.1 mini",
		InputPerMillion:  0.40,
		OutputPerMillion: 1.60,
	},
	{
		ID:               "gpt-4.1",
		Label:            "GPT-4.1",
		InputPerMillion:  2.00,
		OutputPerMillion: 8.00,
	},
}

const (
	DefaultOpenAIInputPerMillion  = 2.50
	DefaultOpenAIOutputPerMillion = 10.00
	DefaultGeminiInputPerMillion  = 2.00
	DefaultGeminiOutputPerMillion = 12.00
)

func GeminiModelIDs() []string {
	ids := make([]string, 0, len(GeminiModels))
	for _, m := range GeminiModels {
		ids = append(ids, m.ID)
	}
	return ids
}

func OpenAIModelIDs() []string {
	ids := make([]string, 0, len(OpenAIModels))
	for _, m := range OpenAIModels {
		ids = append(ids, m.ID)
	}
	return ids
}

func GeminiPricing(modelID string) (GeminiModel, bool) {
	for _, m := range GeminiModels {
		if m.ID == modelID {
			return m, true
		}
	}
	return GeminiModel{
		ID:                      "default",
		Label:                   "Default Gemini",
		InputPerMillion:         DefaultGeminiInputPerMillion,
		OutputPerMillion:        DefaultGeminiOutputPerMillion,
		ReasoningBilledAsOutput: true,
	}, false
}

func OpenAIPricing(modelID string) (OpenAIModel, bool) {
	for _, m := range OpenAIModels {
		if m.ID == modelID {
			return m, true
		}
	}
	return OpenAIModel{
		ID:               "default",
		Label:            "Default OpenAI",
		InputPerMillion:  DefaultOpenAIInputPerMillion,
		OutputPerMillion: DefaultOpenAIOutputPerMillion,
	}, false
}

// EstimateCost prices token usage for a service. Gemini reasoning tokens,
// the part of total not covered by prompt and candidates, bill as output.
func EstimateCost(service, modelID string, prompt, candidates, total int) (cost float64, reasoning int) {
	if service == "openai" {
		p, _ := OpenAIPricing(modelID)
		return float64(prompt)/1_000_000*p.InputPerMillion + float64(candidates)/1_000_000*p.OutputPerMillion, 0
	}
	p, _ := GeminiPricing(modelID)
	reasoning = max(0, total-(prompt+candidates))
	output := candidates
	if p.ReasoningBilledAsOutput {
		output += reasoning
	}
	return float64(prompt)/1_000_000*p.InputPerMillion + float64(output)/1_000_000*p.OutputPerMillion, reasoning
}
