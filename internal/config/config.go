// Package config holds the settings the translation engine reads: target
// language, backend services, bilingual view, site and language lists.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oukeidos/dualpage/internal/dual"
	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/siterules"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DUALPAGE_TARGET_LANGUAGE.
const EnvPrefix = "DUALPAGE"

const (
	DefaultDispatchInterval = 600 * time.Millisecond
	DefaultDrainInterval    = 2 * time.Second
	DefaultSoftCharLimit    = 1000
	DefaultMaxDetectBlocks  = 500

	MinInterval      = 50 * time.Millisecond
	MaxInterval      = time.Minute
	MinSoftCharLimit = 100
	MaxSoftCharLimit = 10000
)

// Config is the engine configuration.
type Config struct {
	TargetLanguage    string `mapstructure:"target_language"`
	TranslatorService string `mapstructure:"translator_service"`
	// AlternateService is swapped in by a service swap request.
	AlternateService string `mapstructure:"alternate_service"`

	DictionaryPath string `mapstructure:"dictionary"`

	ShowDualLanguage bool   `mapstructure:"show_dual_language"`
	DualStyle        string `mapstructure:"dual_style"`
	CustomDualStyle  string `mapstructure:"custom_dual_style"`

	TranslateDynamicContent  bool `mapstructure:"translate_dynamic_content"`
	TranslatePre             bool `mapstructure:"translate_pre"`
	DontSortResults          bool `mapstructure:"dont_sort_results"`
	AutoTranslateOnLinkClick bool `mapstructure:"auto_translate_on_link_click"`

	NeverTranslateSites  []string `mapstructure:"never_translate_sites"`
	AlwaysTranslateSites []string `mapstructure:"always_translate_sites"`
	NeverTranslateLangs  []string `mapstructure:"never_translate_langs"`
	AlwaysTranslateLangs []string `mapstructure:"always_translate_langs"`

	// SpecialRules are user site rules, each a JSON or YAML document.
	SpecialRules []string `mapstructure:"special_rules"`

	DispatchInterval        time.Duration `mapstructure:"dispatch_interval"`
	DrainInterval           time.Duration `mapstructure:"drain_interval"`
	SoftCharLimit           int           `mapstructure:"soft_char_limit"`
	DetectLanguageMaxBlocks int           `mapstructure:"detect_language_max_blocks"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TargetLanguage:          "en",
		TranslatorService:       "gemini",
		AlternateService:        "openai",
		ShowDualLanguage:        true,
		DualStyle:               dual.StyleUnderline,
		TranslateDynamicContent: true,
		DispatchInterval:        DefaultDispatchInterval,
		DrainInterval:           DefaultDrainInterval,
		SoftCharLimit:           DefaultSoftCharLimit,
		DetectLanguageMaxBlocks: DefaultMaxDetectBlocks,
	}
}

func clampDuration(name string, v time.Duration, notes *[]string) time.Duration {
	switch {
	case v < MinInterval:
		*notes = append(*notes, fmt.Sprintf("%s raised from %s to %s", name, v, MinInterval))
		return MinInterval
	case v > MaxInterval:
		*notes = append(*notes, fmt.Sprintf("%s lowered from %s to %s", name, v, MaxInterval))
		return MaxInterval
	}
	return v
}

// normalizeLangs maps language tags to service codes and drops unknown ones.
func normalizeLangs(name string, in []string, notes *[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tag := range in {
		code, ok := language.FixCode(tag)
		if !ok {
			if strings.TrimSpace(tag) != "" {
				*notes = append(*notes, fmt.Sprintf("%s: dropped unknown language %q", name, tag))
			}
			continue
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

func normalizeSites(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if code, ok := language.FixCode(c.TargetLanguage); ok && code != c.TargetLanguage {
		notes = append(notes, fmt.Sprintf("target language %q normalized to %q", c.TargetLanguage, code))
		c.TargetLanguage = code
	}
	c.TranslatorService = strings.ToLower(strings.TrimSpace(c.TranslatorService))
	c.AlternateService = strings.ToLower(strings.TrimSpace(c.AlternateService))
	c.DualStyle = strings.ToLower(strings.TrimSpace(c.DualStyle))
	if c.DualStyle == "" {
		c.DualStyle = dual.StyleUnderline
	}

	c.DispatchInterval = clampDuration("dispatch interval", c.DispatchInterval, &notes)
	c.DrainInterval = clampDuration("drain interval", c.DrainInterval, &notes)
	if c.SoftCharLimit < MinSoftCharLimit {
		notes = append(notes, fmt.Sprintf("soft char limit raised from %d to %d", c.SoftCharLimit, MinSoftCharLimit))
		c.SoftCharLimit = MinSoftCharLimit
	} else if c.SoftCharLimit > MaxSoftCharLimit {
		notes = append(notes, fmt.Sprintf("soft char limit lowered from %d to %d", c.SoftCharLimit, MaxSoftCharLimit))
		c.SoftCharLimit = MaxSoftCharLimit
	}
	if c.DetectLanguageMaxBlocks <= 0 {
		c.DetectLanguageMaxBlocks = DefaultMaxDetectBlocks
	}

	c.NeverTranslateLangs = normalizeLangs("never translate languages", c.NeverTranslateLangs, &notes)
	c.AlwaysTranslateLangs = normalizeLangs("always translate languages", c.AlwaysTranslateLangs, &notes)
	c.NeverTranslateSites = normalizeSites(c.NeverTranslateSites)
	c.AlwaysTranslateSites = normalizeSites(c.AlwaysTranslateSites)
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if _, ok := language.GetLanguage(c.TargetLanguage); !ok {
		return fmt.Errorf("unsupported target language: %q", c.TargetLanguage)
	}
	if c.TranslatorService == "" {
		return errors.New("translator service is required")
	}
	if !dual.IsStyle(c.DualStyle) {
		return fmt.Errorf("unknown dual style %q (want one of %s)", c.DualStyle, strings.Join(dual.Styles, ", "))
	}
	if c.DispatchInterval <= 0 || c.DrainInterval <= 0 {
		return errors.New("dispatch and drain intervals must be positive")
	}
	if c.SoftCharLimit <= 0 {
		return fmt.Errorf("soft char limit must be greater than 0, got %d", c.SoftCharLimit)
	}
	if _, err := siterules.ParseUserRules(c.SpecialRules); err != nil {
		return fmt.Errorf("invalid special rules: %w", err)
	}
	return nil
}

// Rules builds the site rule set: user rules first, then the built-in ones.
// Broken user rules are skipped and reported in the error.
func (c Config) Rules() (*siterules.Set, error) {
	user, err := siterules.ParseUserRules(c.SpecialRules)
	return siterules.NewSet(user, true), err
}

// LoadDictionary reads the configured dictionary file. No path yields an
// empty dictionary.
func (c Config) LoadDictionary() (*keyword.Dictionary, error) {
	if strings.TrimSpace(c.DictionaryPath) == "" {
		return keyword.NewDictionary(nil), nil
	}
	return keyword.LoadDictionary(c.DictionaryPath)
}

// NextService returns the service a swap moves to from current.
func (c Config) NextService(current string) string {
	if c.AlternateService == "" || c.AlternateService == c.TranslatorService {
		return current
	}
	if current == c.TranslatorService {
		return c.AlternateService
	}
	return c.TranslatorService
}

func siteListed(list []string, host string) bool {
	host = strings.ToLower(host)
	for _, s := range list {
		if s == host {
			return true
		}
	}
	return false
}

// IsNeverTranslateSite reports whether the host is excluded from automatic translation.
func (c Config) IsNeverTranslateSite(host string) bool {
	return siteListed(c.NeverTranslateSites, host)
}

// IsAlwaysTranslateSite reports whether the host is translated on load.
func (c Config) IsAlwaysTranslateSite(host string) bool {
	return siteListed(c.AlwaysTranslateSites, host)
}

// IsNeverTranslateLang reports whether pages in lang are left alone.
func (c Config) IsNeverTranslateLang(lang string) bool {
	return language.SameLanguage(lang, c.NeverTranslateLangs, false)
}

// IsAlwaysTranslateLang reports whether pages in lang are translated on load.
func (c Config) IsAlwaysTranslateLang(lang string) bool {
	return language.SameLanguage(lang, c.AlwaysTranslateLangs, false)
}

// NewViper returns a viper instance seeded with the defaults and bound to
// DUALPAGE_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("target_language", d.TargetLanguage)
	v.SetDefault("translator_service", d.TranslatorService)
	v.SetDefault("alternate_service", d.AlternateService)
	v.SetDefault("dictionary", d.DictionaryPath)
	v.SetDefault("show_dual_language", d.ShowDualLanguage)
	v.SetDefault("dual_style", d.DualStyle)
	v.SetDefault("custom_dual_style", d.CustomDualStyle)
	v.SetDefault("translate_dynamic_content", d.TranslateDynamicContent)
	v.SetDefault("translate_pre", d.TranslatePre)
	v.SetDefault("dont_sort_results", d.DontSortResults)
	v.SetDefault("auto_translate_on_link_click", d.AutoTranslateOnLinkClick)
	v.SetDefault("never_translate_sites", []string{})
	v.SetDefault("always_translate_sites", []string{})
	v.SetDefault("never_translate_langs", []string{})
	v.SetDefault("always_translate_langs", []string{})
	v.SetDefault("special_rules", []string{})
	v.SetDefault("dispatch_interval", d.DispatchInterval)
	v.SetDefault("drain_interval", d.DrainInterval)
	v.SetDefault("soft_char_limit", d.SoftCharLimit)
	v.SetDefault("detect_language_max_blocks", d.DetectLanguageMaxBlocks)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads a YAML, JSON or TOML config file when path is set, applies
// environment overrides and returns the decoded configuration.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals the viper state into a Config.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
