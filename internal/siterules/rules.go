// Package siterules holds per-site adjustments to block discovery and the
// bilingual view: which selectors hold the translatable text, which parts to
// leave alone, and how to check a block's language before sending it.
package siterules

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/oukeidos/dualpage/internal/dom"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var builtinYAML []byte

// Companion layouts.
const (
	LayoutBefore = ""
	LayoutSplice = "splice"
)

// Rule adjusts discovery and composition for matching pages.
// List fields accept a single string or a list in both YAML and JSON.
type Rule struct {
	Name                 string  `yaml:"name"`
	Hostname             Strings `yaml:"hostname"`
	Regex                Strings `yaml:"regex"`
	Selectors            Strings `yaml:"selectors"`
	ContainerSelectors   Strings `yaml:"containerSelectors"`
	NoTranslateSelectors Strings `yaml:"noTranslateSelectors"`
	BlockElements        Strings `yaml:"blockElements"`
	// DetectLanguage asks the backend for each block's language and keeps
	// only blocks clearly in another language than the target.
	DetectLanguage bool `yaml:"detectLanguage"`
	// LangAttributeCheck drops selector blocks whose lang attribute is
	// already the target or a never-translate language.
	LangAttributeCheck bool   `yaml:"langAttributeCheck"`
	Style              string `yaml:"style"`
	BrToParagraph      bool   `yaml:"brToParagraph"`
	CompanionLayout    string `yaml:"companionLayout"`
}

// Strings is a list that also decodes from a single scalar.
type Strings []string

func (s *Strings) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" || value.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = Strings{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
}

// Validate reports the first problem with a rule.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name is required")
	}
	if len(r.Hostname) == 0 && len(r.Regex) == 0 {
		return fmt.Errorf("rule %q: hostname or regex is required", r.Name)
	}
	for _, expr := range r.Regex {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("rule %q: invalid regex %q: %w", r.Name, expr, err)
		}
	}
	switch r.CompanionLayout {
	case LayoutBefore, LayoutSplice:
	default:
		return fmt.Errorf("rule %q: unknown companionLayout %q", r.Name, r.CompanionLayout)
	}
	return nil
}

// ParseRules decodes a YAML or JSON list of rules.
func ParseRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse site rules: %w", err)
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// ParseRule decodes one rule from a JSON or YAML string.
func ParseRule(s string) (Rule, error) {
	var r Rule
	if err := yaml.Unmarshal([]byte(s), &r); err != nil {
		return Rule{}, fmt.Errorf("failed to parse site rule: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// ParseUserRules decodes every string it can. Rules that fail to parse are
// reported in the joined error and left out of the result.
func ParseUserRules(list []string) ([]Rule, error) {
	var rules []Rule
	var errs []error
	for i, s := range list {
		r, err := ParseRule(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("special rule %d: %w", i+1, err))
			continue
		}
		rules = append(rules, r)
	}
	return rules, errors.Join(errs...)
}

// Builtin returns the embedded default rules.
func Builtin() []Rule {
	rules, err := ParseRules(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("siterules: embedded rules are invalid: %v", err))
	}
	return rules
}

type compiled struct {
	rule    Rule
	regexes []*regexp.Regexp
}

// Set matches pages against an ordered list of rules.
type Set struct {
	rules []compiled
}

// NewSet orders user rules ahead of the built-in ones. Later user rules in
// the list take precedence over earlier ones.
func NewSet(user []Rule, withBuiltin bool) *Set {
	s := &Set{}
	for i := len(user) - 1; i >= 0; i-- {
		s.add(user[i])
	}
	if withBuiltin {
		for _, r := range Builtin() {
			s.add(r)
		}
	}
	return s
}

func (s *Set) add(r Rule) {
	c := compiled{rule: r}
	for _, expr := range r.Regex {
		if re, err := regexp.Compile(expr); err == nil {
			c.regexes = append(c.regexes, re)
		}
	}
	s.rules = append(s.rules, c)
}

// Rules returns the rules in match order.
func (s *Set) Rules() []Rule {
	if s == nil {
		return nil
	}
	out := make([]Rule, 0, len(s.rules))
	for _, c := range s.rules {
		out = append(out, c.rule)
	}
	return out
}

// Match returns the first rule for the URL by exact hostname or by a regex
// over origin and path.
func (s *Set) Match(u *url.URL) (Rule, bool) {
	if s == nil || u == nil {
		return Rule{}, false
	}
	host := u.Hostname()
	withoutSearch := u.Scheme + "://" + u.Host + u.EscapedPath()
	for _, c := range s.rules {
		for _, h := range c.rule.Hostname {
			if h == host {
				return c.rule, true
			}
		}
		for _, re := range c.regexes {
			if re.MatchString(withoutSearch) {
				return c.rule, true
			}
		}
	}
	return Rule{}, false
}

// Nitter and Mastodon instances live on too many domains to list, so they
// are recognised by page content.
var (
	nitterRule = Rule{
		Name:      "nitter",
		Selectors: Strings{".tweet-content", ".quote-text"},
	}
	mastodonRule = Rule{
		Name:               "mastodon",
		ContainerSelectors: Strings{"div.status__content__text"},
		DetectLanguage:     true,
	}
)

// MatchPage matches the page URL first and then falls back to content
// heuristics for federated sites.
func (s *Set) MatchPage(doc dom.Document) (Rule, bool) {
	if r, ok := s.Match(doc.URL()); ok {
		return r, true
	}
	root := doc.Root()
	var rule Rule
	found := false
	for _, meta := range doc.QuerySelectorAll(root, `meta[property="og:site_name"]`) {
		if dom.AttrValue(meta, "content") == "Nitter" && len(doc.QuerySelectorAll(root, ".tweet-content")) > 0 {
			rule, found = nitterRule, true
		}
		break
	}
	if len(doc.QuerySelectorAll(root, "div#mastodon")) > 0 {
		rule, found = mastodonRule, true
	}
	return rule, found
}
