package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oukeidos/dualpage/internal/auth"
	"github.com/oukeidos/dualpage/internal/backend"
	"github.com/oukeidos/dualpage/internal/cleanup"
	"github.com/oukeidos/dualpage/internal/config"
	"github.com/oukeidos/dualpage/internal/gemini"
	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/metadata"
	"github.com/oukeidos/dualpage/internal/openai"
	"github.com/oukeidos/dualpage/internal/translator"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	serviceGemini = "gemini"
	serviceOpenAI = "openai"

	maxConcurrency = 20
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
)

func isKnownService(name string) bool {
	return name == serviceGemini || name == serviceOpenAI
}

func serviceLabel(name string) string {
	if name == serviceOpenAI {
		return "OpenAI"
	}
	return "Gemini"
}

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but none of %s is set", strings.Join(auth.EnvVars(service), ", "))
	}

	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", serviceLabel(service)))
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

// lookupAPIKey finds a key without prompting. It serves the alternate
// service, which is optional.
func lookupAPIKey(service string, allowEnv, envOnly bool) (string, string) {
	if !envOnly {
		if key, source := getKey(service, false); key != "" {
			return key, source
		}
	}
	if allowEnv || envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable"
		}
	}
	return "", ""
}

func resolveLanguageCode(input string) (string, error) {
	if lang, ok := language.GetLanguage(input); ok {
		return lang.Code, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return "", fmt.Errorf("language is empty")
	}
	if code, ok := language.FixCode(needle); ok {
		return code, nil
	}
	for _, entry := range language.GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Code, nil
		}
	}
	return "", fmt.Errorf("unsupported language: %s", input)
}

// engineFlags are the flags that override the loaded engine configuration.
type engineFlags struct {
	configPath     string
	target         string
	service        string
	alternate      string
	dictionary     string
	dualStyle      string
	noDual         bool
	dontSort       bool
	translatePre   bool
	alwaysLangs    []string
	neverLangs     []string
	specialRules   []string
	softCharLimit  int
	detectMaxBlock int
}

func addEngineFlags(cmd *cobra.Command, f *engineFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Target language code or name (default from config: en)")
	cmd.Flags().StringVar(&f.service, "service", "", "Translation service: gemini or openai")
	cmd.Flags().StringVar(&f.alternate, "alternate-service", "", "Service used after a service swap")
	cmd.Flags().StringVar(&f.dictionary, "dictionary", "", "Path to a keyword dictionary (JSON or YAML)")
	cmd.Flags().StringVar(&f.dualStyle, "dual-style", "", "Style of translated text: underline, highlight, weakening, mask or none")
	cmd.Flags().BoolVar(&f.noDual, "no-dual", false, "Do not keep the original text next to the translation")
	cmd.Flags().BoolVar(&f.dontSort, "dont-sort-results", false, "Apply results by position and join extra results onto the last text")
	cmd.Flags().BoolVar(&f.translatePre, "translate-pre", false, "Translate text inside <pre> elements")
	cmd.Flags().StringSliceVar(&f.alwaysLangs, "always-translate-lang", nil, "Languages translated on load (repeatable)")
	cmd.Flags().StringSliceVar(&f.neverLangs, "never-translate-lang", nil, "Languages left untranslated (repeatable)")
	cmd.Flags().StringArrayVar(&f.specialRules, "rule", nil, "Extra site rule as a JSON or YAML document (repeatable)")
	cmd.Flags().IntVar(&f.softCharLimit, "soft-char-limit", 0, "Soft cap of characters per translation unit")
	cmd.Flags().IntVar(&f.detectMaxBlock, "detect-max-blocks", 0, "Skip per-block language detection above this many blocks")
}

// loadEngineConfig reads the config file and environment, then applies the
// flags the user set.
func loadEngineConfig(cmd *cobra.Command, f *engineFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		code, err := resolveLanguageCode(f.target)
		if err != nil {
			return config.Config{}, err
		}
		cfg.TargetLanguage = code
	}
	if flags.Changed("service") {
		cfg.TranslatorService = f.service
	}
	if flags.Changed("alternate-service") {
		cfg.AlternateService = f.alternate
	}
	if flags.Changed("dictionary") {
		cfg.DictionaryPath = f.dictionary
	}
	if flags.Changed("dual-style") {
		cfg.DualStyle = f.dualStyle
	}
	if f.noDual {
		cfg.ShowDualLanguage = false
	}
	if f.dontSort {
		cfg.DontSortResults = true
	}
	if f.translatePre {
		cfg.TranslatePre = true
	}
	if flags.Changed("always-translate-lang") {
		cfg.AlwaysTranslateLangs = f.alwaysLangs
	}
	if flags.Changed("never-translate-lang") {
		cfg.NeverTranslateLangs = f.neverLangs
	}
	cfg.SpecialRules = append(cfg.SpecialRules, f.specialRules...)
	if flags.Changed("soft-char-limit") {
		cfg.SoftCharLimit = f.softCharLimit
	}
	if flags.Changed("detect-max-blocks") {
		cfg.DetectLanguageMaxBlocks = f.detectMaxBlock
	}

	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if !isKnownService(cfg.TranslatorService) {
		return config.Config{}, fmt.Errorf("invalid service %q. Must be 'gemini' or 'openai'", cfg.TranslatorService)
	}
	return cfg, nil
}

// backendOptions configure the model backed services.
type backendOptions struct {
	geminiModel   string
	openaiModel   string
	openaiBaseURL string
	chunkSize     int
	contextSize   int
	concurrency   int
	allowEnv      bool
	envOnly       bool
}

func addBackendFlags(cmd *cobra.Command, o *backendOptions) {
	cmd.Flags().StringVar(&o.geminiModel, "model", gemini.DefaultModel, "Gemini model name")
	cmd.Flags().StringVar(&o.openaiModel, "openai-model", openai.DefaultModel, "OpenAI model name")
	cmd.Flags().StringVar(&o.openaiBaseURL, "openai-base-url", "", "Base URL of an OpenAI compatible endpoint")
	cmd.Flags().IntVar(&o.chunkSize, "chunk-size", translator.DefaultChunkSize, "Number of texts per request")
	cmd.Flags().IntVar(&o.contextSize, "context-size", translator.DefaultContextSize, "Number of neighbouring texts sent as context")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 4, "Number of concurrent API requests (1-20)")
	cmd.Flags().BoolVar(&o.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&o.envOnly, "env-only", false, "Use only environment variables for API keys")
}

// serviceBackend is one registered translation service.
type serviceBackend struct {
	name  string
	model string
	tr    *translator.Translator
}

func clampConcurrency(value int) int {
	switch {
	case value < 1:
		logger.Warn("Config normalized", "detail", fmt.Sprintf("concurrency raised from %d to 1", value))
		return 1
	case value > maxConcurrency:
		logger.Warn("Config normalized", "detail", fmt.Sprintf("concurrency lowered from %d to %d", value, maxConcurrency))
		return maxConcurrency
	}
	return value
}

// buildBackends registers the primary service, which must have a key, and
// the alternate service when a key for it is available without prompting.
func buildBackends(ctx context.Context, cfg config.Config, o backendOptions) (*backend.Router, []serviceBackend, error) {
	router := backend.NewRouter(logger.With("backend"))
	var built []serviceBackend

	names := []string{cfg.TranslatorService}
	if cfg.AlternateService != "" && cfg.AlternateService != cfg.TranslatorService && isKnownService(cfg.AlternateService) {
		names = append(names, cfg.AlternateService)
	}
	concurrency := clampConcurrency(o.concurrency)
	for i, name := range names {
		var key, source string
		if i == 0 {
			var err error
			key, source, err = resolveAPIKey(name, o.allowEnv, o.envOnly)
			if err != nil {
				return nil, nil, err
			}
		} else if key, source = lookupAPIKey(name, o.allowEnv, o.envOnly); key == "" {
			logger.Info("Alternate service has no API key; swaps stay on the primary service", "service", name)
			continue
		}
		logger.Info("Using API Key", "service", name, "source", source)

		var model translator.Model
		modelName := o.openaiModel
		if name == serviceGemini {
			modelName = o.geminiModel
			client, err := gemini.NewClient(ctx, key, modelName)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
			}
			cleanup.Register("gemini client", client.Close)
			model = client
		} else {
			model = openai.NewClientWithBaseURL(key, modelName, o.openaiBaseURL)
		}
		tr, err := translator.NewTranslator(model, o.chunkSize, o.contextSize, concurrency)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize translator: %w", err)
		}
		router.Register(name, tr)
		built = append(built, serviceBackend{name: name, model: modelName, tr: tr})
	}
	router.SetDetector(cfg.TranslatorService)
	return router, built, nil
}

func printUsageStats(w io.Writer, services []serviceBackend, duration time.Duration) {
	fmt.Fprintln(w, "\n--- Execution Stats ---")
	fmt.Fprintf(w, "Time: %s\n", duration)
	for _, s := range services {
		usage := s.tr.GetUsage()
		fmt.Fprintf(w, "Service: %s (model %s)\n", s.name, s.model)
		if usage.TotalTokens == 0 {
			continue
		}
		fmt.Fprintf(w, "Tokens: In=%d, Out=%d, Total=%d\n", usage.PromptTokens, usage.CandidatesTokens, usage.TotalTokens)
		cost, reasoning := metadata.EstimateCost(s.name, s.model, usage.PromptTokens, usage.CandidatesTokens, usage.TotalTokens)
		if reasoning > 0 {
			fmt.Fprintf(w, "Estimated Cost: $%.5f (Reasoning Tokens: %d)\n", cost, reasoning)
		} else {
			fmt.Fprintf(w, "Estimated Cost: $%.5f\n", cost)
		}
	}
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
