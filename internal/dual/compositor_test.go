package dual

import (
	"testing"

	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/oukeidos/dualpage/internal/segment"
	"github.com/oukeidos/dualpage/internal/siterules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.ParseString(src, htmldoc.Options{})
	require.NoError(t, err)
	return d
}

func find(t *testing.T, d dom.Document, sel string) dom.Node {
	t.Helper()
	nodes := d.QuerySelectorAll(d.Root(), sel)
	require.NotEmpty(t, nodes, sel)
	return nodes[0]
}

func TestWrapperStyle(t *testing.T) {
	tests := []struct {
		style, custom, want string
	}{
		{StyleUnderline, "", "vertical-align: inherit;border-bottom: 2px solid #72ECE9;"},
		{StyleHighlight, "", "vertical-align: inherit;background-color: #EAD0B3;padding: 3px 0;"},
		{StyleWeakening, "", "vertical-align: inherit;opacity: 0.4;"},
		{StyleMask, "", "vertical-align: inherit;"},
		{StyleNone, " color: red; ", "vertical-align: inherit;color: red;"},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapperStyle(tt.style, tt.custom))
		})
	}

	c := &Compositor{Style: StyleHighlight}
	assert.Equal(t, "vertical-align: inherit;", c.TextStyle())
	c.Enabled = true
	assert.Equal(t, WrapperStyle(StyleHighlight, ""), c.TextStyle())
	c.Rule.Style = StyleWeakening
	assert.Equal(t, StyleWeakening, c.EffectiveStyle())
	assert.True(t, IsStyle(StyleMask))
	assert.False(t, IsStyle("sparkle"))
}

func TestMaterialize_InsertsHiddenCopyBefore(t *testing.T) {
	d := parse(t, `<body><p id="p">Hello world</p></body>`)
	c := &Compositor{Doc: d, Enabled: true, Style: StyleUnderline}
	p := find(t, d, "#p")

	require.True(t, c.Materialize(p))
	prev := dom.PreviousSibling(p)
	require.NotNil(t, prev)
	assert.True(t, IsCompanion(prev))
	assert.Equal(t, "Hello world", prev.TextContent())
	assert.Equal(t, "none", dom.StyleProperty(prev, "display"))
	assert.True(t, dom.HasClass(prev, segment.NoTranslateClass))
	assert.False(t, dom.HasClass(prev, MaskClass))
	assert.Empty(t, dom.StyleProperty(prev, "padding-bottom"))
	assert.Equal(t, segment.NoTranslate, segment.Classifier{}.Classify(prev))

	assert.False(t, c.Materialize(p), "second copy")
	assert.Len(t, companions(d.Body()), 1)

	units := (&segment.Segmenter{}).Segment(d.Body())
	require.Len(t, units, 1)
	assert.Equal(t, p, units[0].Parent)
}

func TestMaterialize_Disabled(t *testing.T) {
	d := parse(t, `<body><p>x</p></body>`)
	c := &Compositor{Doc: d}
	assert.False(t, c.Materialize(find(t, d, "p")))
	assert.Empty(t, companions(d.Body()))
}

func TestMaterialize_Padding(t *testing.T) {
	d := parse(t, `<body><div id="d">block</div><span id="s">inline</span></body>`)
	c := &Compositor{Doc: d, Enabled: true}
	require.True(t, c.Materialize(find(t, d, "#d")))
	require.True(t, c.Materialize(find(t, d, "#s")))

	cd := dom.PreviousSibling(find(t, d, "#d"))
	cs := dom.PreviousSibling(find(t, d, "#s"))
	assert.Equal(t, "8px", dom.StyleProperty(cd, "padding-bottom"))
	assert.Equal(t, "8px", dom.StyleProperty(cs, "padding-right"))
}

func TestMaterialize_CopyDropsIDs(t *testing.T) {
	d := parse(t, `<body><div id="d">Hello <b id="b">there</b></div></body>`)
	c := &Compositor{Doc: d, Enabled: true}
	require.True(t, c.Materialize(find(t, d, "#d")))

	assert.Len(t, d.QuerySelectorAll(d.Body(), "#d"), 1)
	assert.Len(t, d.QuerySelectorAll(d.Body(), "#b"), 1)
	live := find(t, d, "#d")
	assert.False(t, IsCompanion(live))
	cp := dom.PreviousSibling(live)
	require.NotNil(t, cp)
	assert.True(t, IsCompanion(cp))
	assert.Equal(t, "Hello there", cp.TextContent())
	_, ok := cp.Attr("id")
	assert.False(t, ok)
}

func TestMaterialize_SiteTweaks(t *testing.T) {
	t.Run("reddit heading gets a line break", func(t *testing.T) {
		d := parse(t, `<body><h3 id="h">Post</h3></body>`)
		c := &Compositor{Doc: d, Enabled: true, Rule: siterules.Rule{Name: "reddit"}}
		require.True(t, c.Materialize(find(t, d, "#h")))
		cp := dom.PreviousSibling(find(t, d, "#h"))
		children := cp.Children()
		assert.True(t, dom.IsTag(children[len(children)-1], "BR"))
	})
	t.Run("google heading reveals as block", func(t *testing.T) {
		d := parse(t, `<body><h3 id="h" style="display: inline;">Result</h3></body>`)
		c := &Compositor{Doc: d, Enabled: true, Rule: siterules.Rule{Name: "google"}}
		require.True(t, c.Materialize(find(t, d, "#h")))
		cp := dom.PreviousSibling(find(t, d, "#h"))
		assert.Equal(t, "block", dom.AttrValue(cp, segment.OriginalDisplayAttr))
		assert.Equal(t, 1, c.Reveal(d.Body()))
		assert.Equal(t, "block", dom.StyleProperty(cp, "display"))
	})
	t.Run("selector rule inline node gets a line break", func(t *testing.T) {
		d := parse(t, `<body><span id="s">tweet</span></body>`)
		c := &Compositor{Doc: d, Enabled: true, Rule: siterules.Rule{Name: "custom", Selectors: siterules.Strings{"span"}}}
		require.True(t, c.Materialize(find(t, d, "#s")))
		cp := dom.PreviousSibling(find(t, d, "#s"))
		assert.Len(t, d.QuerySelectorAll(cp, "br"), 1)
	})
}

func TestMaterialize_Splice(t *testing.T) {
	d := parse(t, `<body><div id="t">Hi <b>there</b></div></body>`)
	before := d.HTML()
	c := &Compositor{Doc: d, Enabled: true, Rule: siterules.Rule{Name: "youtube", CompanionLayout: siterules.LayoutSplice}}
	node := find(t, d, "#t")

	require.True(t, c.Materialize(node))
	assert.False(t, c.Materialize(node), "second splice")
	children := node.Children()
	require.Len(t, children, 5)
	for _, ch := range children[:3] {
		assert.True(t, IsCompanion(ch))
	}
	assert.Equal(t, "Hi ", children[0].TextContent())
	assert.Equal(t, "\n", children[2].TextContent())
	assert.Equal(t, "Hi there", dom.InnerText(node))

	assert.Equal(t, 3, c.RemoveAll(d.Root()))
	assert.Equal(t, before, d.HTML())
}

func TestMask_StylesheetAndClass(t *testing.T) {
	d := parse(t, `<html><head></head><body><p id="a">a</p><p id="b">b</p></body></html>`)
	before := d.HTML()
	c := &Compositor{Doc: d, Enabled: true, Style: StyleMask}
	require.True(t, c.Materialize(find(t, d, "#a")))
	require.True(t, c.Materialize(find(t, d, "#b")))

	assert.True(t, dom.HasClass(dom.PreviousSibling(find(t, d, "#a")), MaskClass))
	styles := d.QuerySelectorAll(d.Head(), "style")
	require.Len(t, styles, 1)
	assert.Equal(t, MaskCSS, styles[0].TextContent())

	assert.Equal(t, 2, c.RemoveAll(d.Root()))
	assert.Equal(t, before, d.HTML())
}

func TestRevealConceal(t *testing.T) {
	d := parse(t, `<body><p id="a">a</p><div id="shadow-host"><template shadowrootmode="open"><p id="s">s</p></template></div></body>`)
	c := &Compositor{Doc: d, Enabled: true}
	require.True(t, c.Materialize(find(t, d, "#a")))
	inner := find(t, d, "#shadow-host").ShadowRoot().Children()[0]
	require.True(t, c.Materialize(inner))

	assert.Equal(t, 2, c.Reveal(d.Body()))
	for _, n := range companions(d.Body()) {
		_, ok := n.Attr("style")
		assert.False(t, ok)
	}
	assert.Equal(t, 2, c.Conceal(d.Body()))
	for _, n := range companions(d.Body()) {
		assert.Equal(t, "none", dom.StyleProperty(n, "display"))
	}
	assert.Equal(t, 2, c.RemoveAll(d.Root()))
	assert.Empty(t, companions(d.Body()))
}
