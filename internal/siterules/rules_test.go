package siterules

import (
	"net/url"
	"testing"

	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestBuiltinRulesAreValid(t *testing.T) {
	rules := Builtin()
	require.NotEmpty(t, rules)
	names := map[string]bool{}
	for _, r := range rules {
		require.NoError(t, r.Validate())
		assert.False(t, names[r.Name], "duplicate rule %q", r.Name)
		names[r.Name] = true
	}
	for _, want := range []string{"twitter", "reddit", "oldReddit", "oldRedditCompact", "stackoverflow", "ycombinator", "google", "discord", "youtube"} {
		assert.True(t, names[want], "missing built-in rule %q", want)
	}
}

func TestMatch_HostnameAndRegex(t *testing.T) {
	s := NewSet(nil, true)
	tests := []struct {
		url  string
		want string
	}{
		{"https://twitter.com/home", "twitter"},
		{"https://old.reddit.com/r/golang/", "oldReddit"},
		{"https://old.reddit.com/r/golang/.compact", "oldRedditCompact"},
		{"https://www.google.com/search?q=go", "google"},
		{"https://unix.stackexchange.com/questions/1/x", "stackoverflow"},
		{"https://www.youtube.com/watch?v=1", "youtube"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			r, ok := s.Match(mustURL(t, tt.url))
			require.True(t, ok)
			assert.Equal(t, tt.want, r.Name)
		})
	}
	_, ok := s.Match(mustURL(t, "https://example.com/"))
	assert.False(t, ok)
}

func TestUserRulesTakePrecedence(t *testing.T) {
	user, err := ParseUserRules([]string{
		`{"name":"first","hostname":"twitter.com","selectors":"article p"}`,
		`{"name":"second","hostname":["twitter.com"],"detectLanguage":true}`,
		`{"name":"broken"`,
		`name: nohost`,
	})
	require.Error(t, err)
	require.Len(t, user, 2)
	assert.Equal(t, Strings{"article p"}, user[0].Selectors)

	s := NewSet(user, true)
	r, ok := s.Match(mustURL(t, "https://twitter.com/"))
	require.True(t, ok)
	assert.Equal(t, "second", r.Name)
	assert.True(t, r.DetectLanguage)
}

func TestRuleValidate(t *testing.T) {
	assert.Error(t, Rule{}.Validate())
	assert.Error(t, Rule{Name: "x", Regex: Strings{"("}}.Validate())
	assert.Error(t, Rule{Name: "x", Hostname: Strings{"a"}, CompanionLayout: "sideways"}.Validate())
	assert.NoError(t, Rule{Name: "x", Hostname: Strings{"a"}, CompanionLayout: LayoutSplice}.Validate())
}

func TestMatchPage_Heuristics(t *testing.T) {
	s := NewSet(nil, true)

	nitter, err := htmldoc.ParseString(`<html><head><meta property="og:site_name" content="Nitter"></head><body><div class="tweet-content">hi</div></body></html>`,
		htmldoc.Options{URL: "https://nitter.example.org/user"})
	require.NoError(t, err)
	r, ok := s.MatchPage(nitter)
	require.True(t, ok)
	assert.Equal(t, "nitter", r.Name)

	masto, err := htmldoc.ParseString(`<body><div id="mastodon"><div class="status__content__text"><p>toot</p></div></div></body>`,
		htmldoc.Options{URL: "https://social.example/@me"})
	require.NoError(t, err)
	r, ok = s.MatchPage(masto)
	require.True(t, ok)
	assert.Equal(t, "mastodon", r.Name)
	assert.True(t, r.DetectLanguage)

	plain, err := htmldoc.ParseString(`<body><p>x</p></body>`, htmldoc.Options{URL: "https://example.com/"})
	require.NoError(t, err)
	_, ok = s.MatchPage(plain)
	assert.False(t, ok)
}
