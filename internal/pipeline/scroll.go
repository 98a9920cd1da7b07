package pipeline

import (
	"context"

	"github.com/oukeidos/dualpage/internal/apperrors"
	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/scheduler"
)

// scrollThrough moves the viewport from the top of the page to the bottom,
// draining tree mutations and dispatching the units in view at every stop.
// Backend failures are counted and the pass goes on; an auth failure or a
// canceled context ends it.
func scrollThrough(ctx context.Context, eng *scheduler.Engine, doc *htmldoc.Document, step float64, maxScrolls int, onProgress func(Progress)) (Stats, error) {
	var stats Stats
	doc.ScrollTo(0)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		added, err := eng.DrainOnce(ctx)
		if err != nil {
			return stats, err
		}
		stats.NewUnits += added

		before := eng.Status()
		err = eng.DispatchOnce(ctx)
		after := eng.Status()
		if err != nil || after.Pending < before.Pending {
			stats.Dispatches++
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if apperrors.Is(err, apperrors.KindAuth) {
				return stats, err
			}
			stats.Failures++
			logger.Warn("Dispatch failed, continuing", "scroll", stats.Scrolls, "error", apperrors.PublicMessage(err))
		}

		y := doc.ScrollY()
		height := doc.ContentHeight()
		if onProgress != nil {
			onProgress(Progress{Scroll: stats.Scrolls, ScrollY: y, ContentHeight: height, Units: after.Units, Pending: after.Pending})
		}
		if y+doc.ViewportHeight() >= height || stats.Scrolls >= maxScrolls {
			break
		}
		doc.ScrollTo(y + step)
		stats.Scrolls++
	}
	st := eng.Status()
	stats.Units = st.Units
	stats.Pending = st.Pending
	stats.Attributes = st.Attributes
	return stats, nil
}
