package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/oukeidos/dualpage/internal/backend"
	"github.com/oukeidos/dualpage/internal/config"
	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/scheduler"
	"github.com/oukeidos/dualpage/internal/siterules"
)

// CheckOptions configures CheckRestore.
type CheckOptions struct {
	PageURL        string
	Engine         config.Config
	Rules          *siterules.Set
	Dictionary     *keyword.Dictionary
	Backend        backend.Translator
	ViewportHeight float64
}

// CheckResult reports a translate and restore round trip.
type CheckResult struct {
	Stats
	// Changed is false when translation left the page untouched.
	Changed bool
	// Equal reports whether the restored page matches the loaded one.
	Equal bool
	// Offset is the first differing byte of the rendered pages, or -1.
	Offset int
	// Original and Restored are short excerpts around Offset.
	Original string
	Restored string
}

// CheckRestore translates the whole page, restores it and compares the
// rendered page with the one that was loaded.
func CheckRestore(ctx context.Context, page []byte, opts CheckOptions) (CheckResult, error) {
	if opts.Backend == nil {
		return CheckResult{}, fmt.Errorf("translation backend is required")
	}
	engCfg, notes := opts.Engine.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	doc, err := htmldoc.Parse(bytes.NewReader(page), htmldoc.Options{URL: opts.PageURL, ViewportHeight: opts.ViewportHeight})
	if err != nil {
		return CheckResult{}, err
	}
	before := doc.HTML()

	eng, err := scheduler.New(scheduler.Options{
		Doc:        doc,
		Backend:    opts.Backend,
		Config:     engCfg,
		Rules:      opts.Rules,
		Dictionary: opts.Dictionary,
		Logger:     logger.With("scheduler"),
	})
	if err != nil {
		return CheckResult{}, err
	}
	defer eng.Close()

	if err := eng.TranslatePage(ctx, engCfg.TargetLanguage); err != nil {
		return CheckResult{}, err
	}
	stats, err := scrollThrough(ctx, eng, doc, doc.ViewportHeight(), DefaultMaxScrolls, nil)
	if err != nil {
		return CheckResult{Stats: stats}, err
	}
	translated := doc.HTML()
	eng.RestorePage(ctx)
	after := doc.HTML()

	res := CheckResult{Stats: stats, Changed: translated != before, Equal: before == after, Offset: -1}
	if !res.Equal {
		res.Offset = firstDiff(before, after)
		res.Original = excerpt(before, res.Offset)
		res.Restored = excerpt(after, res.Offset)
	}
	return res, nil
}

func firstDiff(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func excerpt(s string, at int) string {
	const radius = 40
	start := max(0, at-radius)
	end := min(len(s), at+radius)
	return s[start:end]
}
