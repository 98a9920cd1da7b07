package keyword

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Entry maps a protected phrase to its forced rendering.
// An empty Value keeps the phrase exactly as it appeared on the page.
type Entry struct {
	Key   string
	Value string

	match string // lower-cased Key
}

// Dictionary is the user's custom keyword list, ordered longest key first so
// that "spring boot" is protected before "spring".
type Dictionary struct {
	entries []Entry
	index   map[string]string
}

// NewDictionary builds a dictionary from entries in their configured order.
// Keys match case-insensitively and keep their first spelling for display;
// the last duplicate's value wins.
func NewDictionary(entries []Entry) *Dictionary {
	d := &Dictionary{index: make(map[string]string, len(entries))}
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		shown := strings.TrimSpace(e.Key)
		key := lowerRunes(shown)
		if key == "" {
			continue
		}
		if i, ok := seen[key]; ok {
			d.entries[i].Value = e.Value
			d.index[key] = e.Value
			continue
		}
		seen[key] = len(d.entries)
		d.entries = append(d.entries, Entry{Key: shown, Value: e.Value, match: key})
		d.index[key] = e.Value
	}
	sort.SliceStable(d.entries, func(i, j int) bool {
		return utf8.RuneCountInString(d.entries[i].match) > utf8.RuneCountInString(d.entries[j].match)
	})
	return d
}

// Len returns the number of phrases.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns the phrases in matching order.
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the replacement for a phrase, matched case-insensitively.
func (d *Dictionary) Lookup(phrase string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.index[lowerRunes(phrase)]
	return v, ok
}

// ParseDictionary decodes a JSON object or YAML mapping of phrase -> replacement,
// preserving document order.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	if root.Kind == 0 {
		return NewDictionary(nil), nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("dictionary must be a mapping of phrase to replacement (line %d)", node.Line)
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("dictionary entry at line %d must map a string to a string", k.Line)
		}
		entries = append(entries, Entry{Key: k.Value, Value: v.Value})
	}
	return NewDictionary(entries), nil
}

// LoadDictionary reads a dictionary file.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file %s: %w", path, err)
	}
	d, err := ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// lowerRunes lower-cases rune by rune so that byte offsets of the lowered
// text line up with the original one rune for one rune.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}
