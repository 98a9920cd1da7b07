// Package keyword shields user dictionary phrases from machine translation.
//
// Protect swaps every isolated occurrence of a dictionary phrase for a short
// numbered placeholder that translation backends leave alone. Recover maps the
// placeholders in translated text back to the configured replacement.
package keyword

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/oukeidos/dualpage/internal/apperrors"
)

const (
	MarkOpen  = "@%"
	MarkClose = "#$"

	// Some backends split the marks with a space.
	brokenOpen  = "@ %"
	brokenClose = "# $"

	// separator is inserted between the letters of a non-isolated match so it
	// cannot be matched again, and stripped before the text leaves Protect.
	separator = "#n%o#"
)

// ErrUnmappedIndex reports a placeholder that does not refer to a stored phrase.
var ErrUnmappedIndex = errors.New("placeholder index not mapped")

// Codec holds the compression map for one translation pass.
// It is safe for concurrent use.
type Codec struct {
	mu    sync.Mutex
	dict  *Dictionary
	index int
	store map[int]string
}

// NewCodec returns a codec for the dictionary. A nil dictionary disables protection.
func NewCodec(d *Dictionary) *Codec {
	return &Codec{dict: d, store: make(map[int]string)}
}

// SetDictionary swaps the dictionary and clears the compression map.
func (c *Codec) SetDictionary(d *Dictionary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dict = d
	c.resetLocked()
}

// Dictionary returns the active dictionary.
func (c *Codec) Dictionary() *Dictionary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dict
}

// Reset clears the compression map. Indexes restart at 1.
func (c *Codec) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Codec) resetLocked() {
	c.index = 0
	c.store = make(map[int]string)
}

// Len returns the number of stored phrases.
func (c *Codec) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Protect replaces isolated dictionary phrases in text with placeholders.
// Matching ignores case; the matched text keeps its original case in the map.
func (c *Codec) Protect(text string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dict.Len() == 0 {
		return text
	}

	runes := []rune(text)
	collapsed := false
	for _, e := range c.dict.entries {
		key := []rune(e.match)
		offset := 0
		for {
			i := c.find(runes, key, offset)
			if i < 0 {
				break
			}
			if !collapsed {
				collapsed = true
				runes = []rune(collapseDelimiters(string(runes)))
				offset = 0
				continue
			}

			matched := string(runes[i : i+len(key)])
			var replacement []rune
			if IsDelimiter(before(runes, i)) && IsDelimiter(after(runes, i+len(key))) {
				c.index++
				c.store[c.index] = matched
				replacement = []rune(MarkOpen + strconv.Itoa(c.index) + MarkClose)
			} else {
				var b strings.Builder
				b.WriteString(separator)
				for _, r := range matched {
					b.WriteRune(r)
					b.WriteString(separator)
				}
				replacement = []rune(b.String())
			}

			next := make([]rune, 0, len(runes)-len(key)+len(replacement))
			next = append(next, runes[:i]...)
			next = append(next, replacement...)
			next = append(next, runes[i+len(key):]...)
			runes = next
			offset = i + len(replacement)
		}
		runes = []rune(strings.ReplaceAll(string(runes), separator, ""))
	}
	return string(runes)
}

// find returns the rune index of the next case-insensitive occurrence of key
// at or after offset that does not overlap an existing placeholder.
func (c *Codec) find(runes, key []rune, offset int) int {
	if len(key) == 0 {
		return -1
	}
	lower := []rune(lowerRunes(string(runes)))
	spans := placeholderSpans(runes)
	for i := offset; i+len(key) <= len(lower); i++ {
		if !equalRunes(lower[i:i+len(key)], key) {
			continue
		}
		if end, ok := overlaps(spans, i, i+len(key)); ok {
			i = end - 1
			continue
		}
		return i
	}
	return -1
}

type span struct{ start, end int }

// placeholderSpans lists the rune ranges of MarkOpen digits MarkClose sequences.
func placeholderSpans(runes []rune) []span {
	var spans []span
	for s := 0; s+1 < len(runes); s++ {
		if runes[s] != '@' || runes[s+1] != '%' {
			continue
		}
		e := s + 2
		for e < len(runes) && runes[e] >= '0' && runes[e] <= '9' {
			e++
		}
		if e > s+2 && e+1 < len(runes) && runes[e] == '#' && runes[e+1] == '$' {
			spans = append(spans, span{s, e + 2})
			s = e + 1
		}
	}
	return spans
}

func overlaps(spans []span, start, end int) (int, bool) {
	for _, sp := range spans {
		if start < sp.end && sp.start < end {
			return sp.end, true
		}
	}
	return 0, false
}

// before returns the rune preceding i, looking through separators.
// String edges read as a newline.
func before(runes []rune, i int) rune {
	sep := []rune(separator)
	for i >= len(sep) && equalRunes(runes[i-len(sep):i], sep) {
		i -= len(sep)
	}
	if i <= 0 {
		return '\n'
	}
	return runes[i-1]
}

// after returns the rune at i, looking through separators.
func after(runes []rune, i int) rune {
	sep := []rune(separator)
	for i+len(sep) <= len(runes) && equalRunes(runes[i:i+len(sep)], sep) {
		i += len(sep)
	}
	if i >= len(runes) {
		return '\n'
	}
	return runes[i]
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Recover replaces placeholders in translated text with dictionary values.
// A replacement gets a space on each side unless it already borders a
// delimiter or the edge of the text. A malformed or unmapped placeholder
// returns an error of kind apperrors.KindMalformedOutput; the caller should
// translate the unprotected text again instead.
func (c *Codec) Recover(translated string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dict.Len() == 0 || !hasMarks(translated) {
		return translated, nil
	}

	s := collapseDelimiters(translated)
	s = strings.ReplaceAll(s, brokenOpen, MarkOpen)
	s = strings.ReplaceAll(s, brokenClose, MarkClose)

	offset := 0
	for {
		rest := s[offset:]
		start := strings.Index(rest, MarkOpen)
		end := strings.Index(rest, MarkClose)
		if start < 0 && end < 0 {
			break
		}
		if start < 0 || end < 0 || end < start+len(MarkOpen) {
			return "", apperrors.Malformed(fmt.Errorf("%w: unbalanced marks at byte %d", ErrUnmappedIndex, offset))
		}
		start += offset
		end += offset

		raw := s[start+len(MarkOpen) : end]
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", apperrors.Malformed(fmt.Errorf("%w: %q", ErrUnmappedIndex, raw))
		}
		original, ok := c.store[n]
		if !ok {
			return "", apperrors.Malformed(fmt.Errorf("%w: %d", ErrUnmappedIndex, n))
		}

		value, _ := c.dict.Lookup(original)
		if value == "" {
			value = original
		}

		front := s[:start]
		back := s[end+len(MarkClose):]
		if front != "" {
			if r := lastRune(front); !IsDelimiter(r) {
				front += " "
			}
		}
		if back != "" {
			if r := firstRune(back); !IsDelimiter(r) {
				back = " " + back
			}
		}
		s = front + value + back
		offset = len(front) + len(value)
	}
	return s, nil
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func hasMarks(s string) bool {
	for _, m := range []string{MarkOpen, MarkClose, brokenOpen, brokenClose} {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
