package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/oukeidos/dualpage/internal/files"
	"github.com/oukeidos/dualpage/internal/host"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/scheduler"
)

// RunPage translates one HTML file: it loads the page, lets the engine
// bootstrap, scrolls the viewport over the whole page and writes the result.
func RunPage(ctx context.Context, cfg Config) (PageResult, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return PageResult{}, fmt.Errorf("invalid configuration: %w", err)
	}

	// 1. Validation & Setup
	if err := files.CheckPair(cfg.InputPath, cfg.OutputPath); err != nil {
		return PageResult{}, err
	}

	shouldOverwrite := cfg.Overwrite
	outputExists := false
	if _, err := os.Stat(cfg.OutputPath); err == nil {
		outputExists = true
		if cfg.OnConfirmOverwrite != nil {
			shouldOverwrite = cfg.OnConfirmOverwrite(cfg.OutputPath)
		}
		if !shouldOverwrite {
			logger.Info("Output file exists. Aborted by user.", "path", cfg.OutputPath)
			return PageResult{Status: StatusSkipped}, nil
		}
		logger.Info("Overwriting output file", "path", cfg.OutputPath)
	}

	// 2. Load
	data, err := files.ReadPage(cfg.InputPath)
	if err != nil {
		return PageResult{}, err
	}
	doc, err := htmldoc.Parse(bytes.NewReader(data), htmldoc.Options{URL: cfg.PageURL, ViewportHeight: cfg.ViewportHeight})
	if err != nil {
		return PageResult{}, err
	}
	logger.Info("Loaded page", "path", cfg.InputPath, "bytes", len(data))

	// 3. Bootstrap
	port := &host.Static{URL: cfg.PageURL}
	if u := doc.URL(); u != nil {
		port.HostName = u.Hostname()
	}
	eng, err := scheduler.New(scheduler.Options{
		Doc:        doc,
		Backend:    cfg.Backend,
		Host:       port,
		Config:     cfg.Engine,
		Rules:      cfg.Rules,
		Dictionary: cfg.Dictionary,
		Logger:     logger.With("scheduler"),
	})
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	if err := eng.Start(ctx); err != nil {
		return PageResult{}, fmt.Errorf("failed to start engine: %w", err)
	}
	if eng.Status().Page != scheduler.Translated {
		if err := eng.TranslatePage(ctx, cfg.Engine.TargetLanguage); err != nil {
			return PageResult{}, fmt.Errorf("failed to prepare page: %w", err)
		}
	}
	result := PageResult{Language: eng.Status().OriginalLanguage, Rule: eng.Rule().Name}

	// 4. Translate
	stats, err := scrollThrough(ctx, eng, doc, cfg.ScrollStep, cfg.MaxScrolls, cfg.OnProgress)
	result.Stats = stats
	if err != nil {
		result.Status = StatusFailure
		return result, fmt.Errorf("translation aborted: %w", err)
	}
	result.Status = statusFromStats(stats)
	logger.Info("Translation finished", "status", result.Status, "units", stats.Units, "pending", stats.Pending, "failures", stats.Failures)
	if result.Status == StatusFailure {
		return result, nil
	}

	// 5. Write
	if cfg.RevealOriginal {
		n := eng.Compositor().Reveal(doc.Body())
		logger.Debug("Companions revealed", "count", n)
	}
	var out bytes.Buffer
	if err := doc.Render(&out); err != nil {
		return result, fmt.Errorf("failed to render page: %w", err)
	}

	effectiveOutputPath, err := files.WritePage(cfg.OutputPath, out.Bytes(), outputExists && shouldOverwrite)
	if err != nil {
		return result, err
	}
	if effectiveOutputPath != cfg.OutputPath {
		logger.Warn("Output path adjusted to avoid overwrite", "requested", cfg.OutputPath, "effective", effectiveOutputPath)
	}
	result.OutputPath = effectiveOutputPath
	logger.Info("Saved results", "path", effectiveOutputPath)
	return result, nil
}
