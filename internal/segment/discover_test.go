package segment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/siterules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	langs map[string]string
	calls int
}

func (f *fakeDetector) DetectLanguage(_ context.Context, text string) (string, error) {
	f.calls++
	lang, ok := f.langs[strings.TrimSpace(text)]
	if !ok {
		return "", errors.New("unknown text")
	}
	return lang, nil
}

func innerTexts(nodes []dom.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(dom.InnerText(n)))
	}
	return out
}

func TestDiscover_MainContent(t *testing.T) {
	d := parse(t, `<body>
<h1>Title</h1>
<div id="main"><p>one two three four</p><p>five six seven eight nine</p><ul><li>ten eleven</li></ul></div>
<div class="comments"><p>lots of words here in comments section really many many words words words words</p></div>
</body>`)
	disc := &Discoverer{Doc: d, TargetLanguage: "fr"}

	containers := disc.Containers(d.Body())
	require.Len(t, containers, 1)
	assert.Equal(t, find(t, d, "#main"), containers[0])

	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "one two three four", "five six seven eight nine", "ten eleven"}, innerTexts(blocks))
}

func TestDiscover_ParagraphWithInlineImage(t *testing.T) {
	d := parse(t, `<body><p>Install the tool first.</p><p>Read the <b>full</b> guide <img src="x.png"> before you start.</p></body>`)
	disc := &Discoverer{Doc: d}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Contains(t, dom.InnerText(blocks[1]), "before you start.")
}

func TestDiscover_SingleParagraphPromoted(t *testing.T) {
	d := parse(t, `<body><div id="wrap"><p>only paragraph with all the words</p></div><span>x</span></body>`)
	disc := &Discoverer{Doc: d}
	containers := disc.Containers(d.Body())
	require.Len(t, containers, 1)
	assert.Equal(t, find(t, d, "#wrap"), containers[0])
}

func TestDiscover_EmptyPage(t *testing.T) {
	d := parse(t, `<body> </body>`)
	disc := &Discoverer{Doc: d}
	assert.Nil(t, disc.Containers(d.Body()))
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestDiscover_ContainerSelectors(t *testing.T) {
	d := parse(t, `<body><h1>Head</h1><p>outside</p><article><p>inside</p><li>item</li></article></body>`)
	disc := &Discoverer{Doc: d, Rule: siterules.Rule{Name: "x", ContainerSelectors: siterules.Strings{"article"}}}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"inside", "item"}, innerTexts(blocks))

	disc.Rule.ContainerSelectors = siterules.Strings{"section"}
	blocks, err = disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestDiscover_BlockElementsOverride(t *testing.T) {
	d := parse(t, `<body><article><p>para</p><table><tr><td>cell</td></tr></table></article></body>`)
	disc := &Discoverer{Doc: d, Rule: siterules.Rule{
		Name:               "mail",
		ContainerSelectors: siterules.Strings{"article"},
		BlockElements:      siterules.Strings{"p"},
	}}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"para"}, innerTexts(blocks))
}

func TestDiscover_SelectorsWithLangAttribute(t *testing.T) {
	d := parse(t, `<body>
<div class="tweet" lang="fr">bonjour</div>
<div class="tweet" lang="en">hello</div>
<div class="tweet" lang="de">hallo</div>
<div class="tweet">none</div>
<p>not selected</p>
</body>`)
	disc := &Discoverer{
		Doc:            d,
		TargetLanguage: "fr",
		NeverLangs:     []string{"de"},
		Rule:           siterules.Rule{Name: "t", Selectors: siterules.Strings{"div.tweet"}, LangAttributeCheck: true},
	}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "none"}, innerTexts(blocks))
}

func TestDiscover_DedupeKeepsAncestor(t *testing.T) {
	for _, sels := range [][]string{{"div.post", "div.post p"}, {"div.post p", "div.post"}} {
		d := parse(t, `<body><div class="post"><p>a</p><p>b</p></div><p class="x">c</p></body>`)
		disc := &Discoverer{Doc: d, Rule: siterules.Rule{Name: "d", Selectors: append(siterules.Strings{"p.x"}, sels...)}}
		blocks, err := disc.Discover(context.Background(), d.Body())
		require.NoError(t, err)
		require.Len(t, blocks, 2, "%v", sels)
		assert.Equal(t, find(t, d, "div.post"), blocks[0])
		assert.Equal(t, find(t, d, "p.x"), blocks[1])
	}
}

func TestDiscover_LanguagePolicy(t *testing.T) {
	d := parse(t, `<body><main><p>Bonjour le monde</p><p>Hello world</p><p>Hallo Welt</p><p>???</p></main></body>`)
	det := &fakeDetector{langs: map[string]string{
		"Bonjour le monde": "fr",
		"Hello world":      "en-US",
		"Hallo Welt":       "de",
		"???":              "und",
	}}
	disc := &Discoverer{
		Doc:            d,
		TargetLanguage: "fr",
		NeverLangs:     []string{"de"},
		Detector:       det,
		Rule:           siterules.Rule{Name: "m", ContainerSelectors: siterules.Strings{"main"}, DetectLanguage: true},
	}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello world"}, innerTexts(blocks))
	assert.Equal(t, 4, det.calls)

	// Above the detection cap every block is kept untouched.
	det.calls = 0
	disc.MaxDetectBlocks = 2
	blocks, err = disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Len(t, blocks, 4)
	assert.Zero(t, det.calls)
}

func TestDiscover_LanguagePolicyCancelled(t *testing.T) {
	d := parse(t, `<body><main><p>Hello</p></main></body>`)
	disc := &Discoverer{
		Doc:      d,
		Detector: &fakeDetector{},
		Rule:     siterules.Rule{Name: "m", ContainerSelectors: siterules.Strings{"main"}, DetectLanguage: true},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := disc.Discover(ctx, d.Body())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover_NoTranslateSelectorsWrap(t *testing.T) {
	d := parse(t, `<body><p>see <code class="k">x</code> and <em class="k">y</em></p></body>`)
	disc := &Discoverer{Doc: d, Rule: siterules.Rule{Name: "n", Selectors: siterules.Strings{"p"}, NoTranslateSelectors: siterules.Strings{".k"}}}
	_, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)

	wrapped := d.QuerySelectorAll(d.Body(), "span.notranslate > .k")
	assert.Len(t, wrapped, 2)

	// A second pass leaves existing wrappers alone.
	_, err = disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Len(t, d.QuerySelectorAll(d.Body(), "span.notranslate"), 2)

	units := (&Segmenter{}).Segment(find(t, d, "p"))
	var all []string
	for _, u := range units {
		all = append(all, texts(u)...)
	}
	assert.Equal(t, []string{"see ", " and "}, all)
}

func TestDiscover_BrToParagraph(t *testing.T) {
	d := parse(t, `<body><div class="c">one<br><br>two<br>still<br><br> <br>three</div></body>`)
	disc := &Discoverer{Doc: d, Rule: siterules.Rule{Name: "b", ContainerSelectors: siterules.Strings{"div.c"}, BrToParagraph: true}}
	blocks, err := disc.Discover(context.Background(), d.Body())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two\nstill", "three"}, innerTexts(blocks))
	assert.Len(t, d.QuerySelectorAll(d.Body(), "div.c > br"), 0)
	assert.Len(t, d.QuerySelectorAll(d.Body(), "div.c > p > br"), 1)
}

func TestIsValid(t *testing.T) {
	d := parse(t, `<body>
<div data-translationmark="copiedNode"><p id="inCopy">copy</p></div>
<div class="notranslate"><p id="inNo">no</p></div>
<div contenteditable="true"><p id="inEdit">edit</p></div>
<p id="figure"><img src="a.png"> short</p>
<p id="captioned"><img src="a.png"> this caption is long enough to count as a real paragraph of text, so the whole block goes to the translator</p>
<p id="bare"> <img src="a.png"> </p>
<p id="linked"><a href="/"><img src="a.png"></a></p>
<p id="inline">Read the <b>full</b> guide <img src="x.png"> before you start.</p>
<p id="plain">plain</p>
<pre id="pre">code</pre>
</body>`)
	disc := &Discoverer{Doc: d}
	for id, want := range map[string]bool{
		"inCopy":    false,
		"inNo":      false,
		"inEdit":    false,
		"figure":    false,
		"captioned": true,
		"bare":      false,
		"linked":    false,
		"inline":    true,
		"plain":     true,
		"pre":       false,
	} {
		assert.Equal(t, want, disc.IsValid(find(t, d, "#"+id)), id)
	}
	disc.Classifier.TranslatePre = true
	assert.True(t, disc.IsValid(find(t, d, "#pre")))
	assert.False(t, disc.IsValid(nil))
}
