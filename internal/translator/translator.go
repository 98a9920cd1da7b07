package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/chunker"
	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/rivo/uniseg"
)

const (
	// DefaultChunkSize is the number of texts sent per request.
	DefaultChunkSize = 40
	// DefaultContextSize is the number of neighbouring texts sent as context.
	DefaultContextSize = 3
	// DefaultChunkChars caps the grapheme clusters of one request.
	DefaultChunkChars = 6000
	// detectSampleChars caps the text sent for language detection.
	detectSampleChars = 500
)

// GetSystemPrompt generates the translation prompt for a target language.
func GetSystemPrompt(targetName string) string {
	return fmt.Sprintf(`You are a professional translator of web pages.
Translate the provided text fragments into %s.

1. Input Structure:
- The input is provided in JSON format with 'target_language', 'context_before', 'target', and 'context_after'.
- 'target': Contains the fragments you must translate. Each fragment has an 'id' and a 'text'.
- 'context_before' and 'context_after': Neighbouring fragments of the same page, provided for context only. Do NOT translate them or include them in the output.

2. Output Structure:
- The output MUST be a JSON object with a 'translations' field, containing an array of objects.
- Each object in the array must have:
  - 'id': The ID from the input fragment.
  - 'text': The translated fragment.
- Return exactly one object per input fragment. Do not merge or split fragments.
- Respond ONLY with the JSON object.

3. Rules:
- A fragment may be part of a larger sentence broken up by links or formatting; translate it so that it reads naturally when joined with its neighbours.
- Sequences of the form %s<number>%s are protected terms. Copy them to the output exactly as they appear, without adding spaces inside them.
- Keep numbers, URLs, code and product names unchanged.
- Write ONLY the %s translation; do not include the source text.`,
		targetName, keyword.MarkOpen, keyword.MarkClose, targetName)
}

// DetectPrompt is the system prompt for language detection.
const DetectPrompt = `You identify the language of a text sample.
The input is a JSON object with a 'text' field.
Respond ONLY with a JSON object of the form {"language": "<code>"} where <code> is the BCP 47 language tag of the dominant language, for example "en", "fr", "pt-BR" or "zh-TW".
If the language cannot be determined, use "und".`

// Translator turns a Model into a page text translation service.
type Translator struct {
	model       Model
	chunkSize   int
	contextSize int
	chunkChars  int
	concurrency int
	usage       Usage
	usageMu     sync.Mutex
	onProgress  func(TranslationProgress)
}

// NewTranslator creates a new Translator instance.
func NewTranslator(model Model, chunkSize, contextSize, concurrency int) (*Translator, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunkSize must be greater than 0, got %d", chunkSize)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be greater than 0, got %d", concurrency)
	}
	return &Translator{
		model:       model,
		chunkSize:   chunkSize,
		contextSize: contextSize,
		chunkChars:  DefaultChunkChars,
		concurrency: concurrency,
	}, nil
}

// SetChunkChars sets the per-request character budget; 0 disables it.
func (t *Translator) SetChunkChars(n int) {
	t.chunkChars = n
}

// SetProgressHandler registers a callback for chunk progress.
func (t *Translator) SetProgressHandler(fn func(TranslationProgress)) {
	t.onProgress = fn
}

// TranslationState represents the current state of a chunk translation.
type TranslationState int

const (
	StateStarted TranslationState = iota
	StateInProgress
	StateCompleted
	StateCanceled
)

var defaultQPS = 3
var defaultRampUp = 2 * time.Second

// TranslationProgress represents the current state of the translation process.
type TranslationProgress struct {
	ChunkIndex  int
	TotalChunks int
	Attempt     int
	State       TranslationState
	Error       error
}

func (t *Translator) progress(p TranslationProgress) {
	if t.onProgress != nil {
		t.onProgress(p)
	}
}

// splitSpace separates surrounding whitespace from the text the model sees.
func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// Translate translates texts into the target language. Blank texts are
// returned unchanged and never sent; surrounding whitespace is kept.
func (t *Translator) Translate(ctx context.Context, target string, texts []string) ([]string, error) {
	lang, ok := language.GetLanguage(target)
	if !ok {
		return nil, apperrors.Validation(fmt.Errorf("unsupported target language: %q", target))
	}

	out := make([]string, len(texts))
	copy(out, texts)
	type padding struct{ lead, trail string }
	pads := make(map[int]padding)
	var items []chunker.Item
	for i, s := range texts {
		lead, core, trail := splitSpace(s)
		if core == "" {
			continue
		}
		items = append(items, chunker.Item{ID: i + 1, Text: core})
		pads[i+1] = padding{lead, trail}
	}
	if len(items) == 0 {
		return out, nil
	}

	chunks := chunker.SplitIntoChunksLimit(items, t.chunkSize, t.contextSize, t.chunkChars)
	results, errs := t.translateEngine(ctx, GetSystemPrompt(lang.Name), lang.Code, chunks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failed []int
	var firstErr error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, i)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("%d of %d chunks failed: %w", len(failed), len(chunks), firstErr)
	}

	for id, text := range results {
		p := pads[id]
		out[id-1] = p.lead + text + p.trail
	}
	return out, nil
}

func (t *Translator) translateEngine(ctx context.Context, system, target string, chunks []chunker.Chunk) (map[int]string, []error) {
	results := make(map[int]string)
	errs := make([]error, len(chunks))
	processed := make([]bool, len(chunks))

	var wg sync.WaitGroup
	var mu sync.Mutex

	rateCh, stopRate := newRateLimiter(defaultQPS)
	defer stopRate()

	jobs := make(chan int, len(chunks))
	for i := range chunks {
		jobs <- i
	}
	close(jobs)

	workers := t.concurrency
	if workers > len(chunks) {
		workers = len(chunks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, workers, defaultRampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if rateCh != nil {
					select {
					case <-ctx.Done():
						return
					case <-rateCh:
					}
				}
				chunk := chunks[i]
				input, err := json.Marshal(RequestData{
					TargetLanguage: target,
					ContextBefore:  chunk.Context.Before,
					Target:         chunk.Target,
					ContextAfter:   chunk.Context.After,
				})
				if err != nil {
					mu.Lock()
					errs[i] = fmt.Errorf("failed to marshal request: %w", err)
					processed[i] = true
					mu.Unlock()
					continue
				}

				var translated map[int]string
				attempts, err := t.complete(ctx, system, string(input), func(attempt int, prev error) {
					state := StateStarted
					if attempt > 1 {
						state = StateInProgress
					}
					t.progress(TranslationProgress{ChunkIndex: i, TotalChunks: len(chunks), Attempt: attempt, State: state, Error: prev})
				}, func(text string) error {
					resp, err := parseResponse(text)
					if err != nil {
						return err
					}
					translated, err = mergeResults(chunk.Target, resp)
					return err
				})

				mu.Lock()
				processed[i] = true
				errs[i] = err
				if err == nil {
					for id, s := range translated {
						results[id] = s
					}
				}
				mu.Unlock()

				if err == nil {
					t.progress(TranslationProgress{ChunkIndex: i, TotalChunks: len(chunks), Attempt: attempts, State: StateCompleted})
					continue
				}
				if attempts >= maxAttempts && apperrors.IsRetryable(err) {
					logger.Error("Chunk failed after maximum retries", "index", i, "attempts", attempts, "error", err)
				} else {
					logger.Error("Chunk failed without retry", "index", i, "attempts", attempts, "error", err)
				}
			}
		}(w)
	}

	wg.Wait()
	if ctx.Err() != nil {
		t.progress(TranslationProgress{
			ChunkIndex:  -1,
			TotalChunks: len(chunks),
			State:       StateCanceled,
			Error:       ctx.Err(),
		})
	}
	for i := range chunks {
		if !processed[i] && errs[i] == nil {
			if err := ctx.Err(); err != nil {
				errs[i] = err
			} else {
				errs[i] = errors.New("chunk was not processed")
			}
		}
	}
	return results, errs
}

const maxAttempts = 3

// complete calls the model until parse accepts its answer or the retry
// policy gives up. It returns the number of attempts used.
func (t *Translator) complete(ctx context.Context, system, input string, onAttempt func(attempt int, prev error), parse func(string) error) (int, error) {
	var err error
	attemptsUsed := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptsUsed = attempt
		if onAttempt != nil {
			onAttempt(attempt, err)
		}

		var resp *Completion
		resp, err = t.model.Complete(ctx, system, input)
		if err == nil {
			t.usageMu.Lock()
			t.usage.Add(resp.Usage)
			t.usageMu.Unlock()
			if err = parse(resp.Text); err != nil {
				err = apperrors.Validation(err)
			}
		}
		if err == nil {
			return attempt, nil
		}

		retry, backoff := retryDecision(ctx, err, attempt, maxAttempts)
		if !retry {
			break
		}
		select {
		case <-ctx.Done():
			return attemptsUsed, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return attemptsUsed, err
}

// parseResponse accepts the expected object or a bare array of items.
func parseResponse(text string) (*ResponseData, error) {
	var responseData ResponseData
	if err := json.Unmarshal([]byte(text), &responseData); err != nil {
		var items []TranslatedItem
		if err2 := json.Unmarshal([]byte(text), &items); err2 != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		responseData.Translations = items
	}
	return &responseData, nil
}

func mergeResults(original []chunker.Item, resp *ResponseData) (map[int]string, error) {
	expectedIDs := make(map[int]bool)
	for _, s := range original {
		expectedIDs[s.ID] = true
	}

	transMap := make(map[int]string)
	for _, tr := range resp.Translations {
		// Check for duplicate IDs in model output
		if _, exists := transMap[tr.ID]; exists {
			return nil, fmt.Errorf("duplicate translation ID detected in model output: %d", tr.ID)
		}

		// Check for unexpected (hallucinated) IDs
		if !expectedIDs[tr.ID] {
			return nil, fmt.Errorf("unexpected translation ID (hallucination) from model: %d", tr.ID)
		}

		transMap[tr.ID] = tr.Text
	}

	// Check if all requested IDs were returned
	if len(transMap) != len(original) {
		return nil, fmt.Errorf("translation count mismatch: expected %d, got %d", len(original), len(transMap))
	}

	for _, orig := range original {
		text, ok := transMap[orig.ID]
		if !ok {
			return nil, fmt.Errorf("missing translation for item ID %d", orig.ID)
		}
		if strings.TrimSpace(text) == "" && orig.Text != "" {
			return nil, fmt.Errorf("hallucination detected: empty translation for item ID %d", orig.ID)
		}
		transMap[orig.ID] = strings.TrimSpace(text)
	}
	return transMap, nil
}

// DetectLanguage asks the model for the language of text and returns a
// supported service code, or language.Undetermined.
func (t *Translator) DetectLanguage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return language.Undetermined, nil
	}
	if uniseg.GraphemeClusterCount(text) > detectSampleChars {
		var b strings.Builder
		g := uniseg.NewGraphemes(text)
		for n := 0; n < detectSampleChars && g.Next(); n++ {
			b.WriteString(g.Str())
		}
		text = b.String()
	}
	input, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	code := language.Undetermined
	_, err = t.complete(ctx, DetectPrompt, string(input), nil, func(answer string) error {
		var resp detectResponse
		if err := json.Unmarshal([]byte(answer), &resp); err != nil {
			return fmt.Errorf("failed to unmarshal detection response: %w", err)
		}
		if c, ok := language.FixCode(resp.Language); ok {
			code = c
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func retryDecision(ctx context.Context, err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if ctx.Err() != nil {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	base := 1 * time.Second
	maxBackoff := 20 * time.Second
	jitterMax := 1 * time.Second

	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func newRateLimiter(qps int) (<-chan time.Time, func()) {
	if qps <= 0 {
		return nil, func() {}
	}
	interval := time.Second / time.Duration(qps)
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}

// GetUsage returns the total token usage.
func (t *Translator) GetUsage() Usage {
	t.usageMu.Lock()
	defer t.usageMu.Unlock()
	return t.usage
}
