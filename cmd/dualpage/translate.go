package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/dualpage/internal/cleanup"
	"github.com/oukeidos/dualpage/internal/files"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/pipeline"
	"github.com/oukeidos/dualpage/internal/prompt"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	engine         engineFlags
	backend        backendOptions
	pageURL        string
	viewportHeight float64
	scrollStep     float64
	maxScrolls     int
	revealOriginal bool
	yes            bool
	logFilePath    string
	debug          bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <input.html> <output.html>",
		Short: "Translate an HTML page, keeping the original text alongside",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("input and output files are required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	addEngineFlags(cmd, &opts.engine)
	addBackendFlags(cmd, &opts.backend)
	cmd.Flags().StringVar(&opts.pageURL, "url", "", "Address the page is treated as loaded from (selects site rules)")
	cmd.Flags().Float64Var(&opts.viewportHeight, "viewport-height", 800, "Simulated viewport height in pixels")
	cmd.Flags().Float64Var(&opts.scrollStep, "scroll-step", 0, "Pixels scrolled between dispatches (default one viewport)")
	cmd.Flags().IntVar(&opts.maxScrolls, "max-scrolls", pipeline.DefaultMaxScrolls, "Upper bound on viewport positions")
	cmd.Flags().BoolVar(&opts.revealOriginal, "reveal-original", false, "Show the original text in the written page")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func initLogging(debug bool, logFilePath string) error {
	logLevel := logger.LevelInfo
	if debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if logFilePath != "" {
		if err := files.RejectSymlinkPath(logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("log file", f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)
	return nil
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 2 {
		return fmt.Errorf("input and output files are required")
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using input: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "  Using output: %s\n", args[1])
	}
	if err := validateHTMLPathExtensions(args[0], args[1]); err != nil {
		return err
	}
	if err := initLogging(opts.debug, opts.logFilePath); err != nil {
		return err
	}

	engCfg, err := loadEngineConfig(cmd, &opts.engine)
	if err != nil {
		return err
	}
	if opts.pageURL != "" {
		u, err := parsePageURL(opts.pageURL)
		if err != nil {
			return err
		}
		if engCfg.IsNeverTranslateSite(u.Hostname()) {
			confirmed, err := prompt.DefaultConfirmer().ConfirmNeverTranslate(u.Hostname(), opts.yes)
			if err != nil {
				return err
			}
			if !confirmed {
				logger.Info("Site is on the never-translate list. Aborted by user.", "host", u.Hostname())
				return nil
			}
		}
	}
	dict, err := engCfg.LoadDictionary()
	if err != nil {
		return err
	}
	rules, err := engCfg.Rules()
	if err != nil {
		logger.Warn("Some site rules were skipped", "error", err)
	}

	ctx, stop := signalContext()
	defer stop()

	startTime := time.Now()
	router, services, err := buildBackends(ctx, engCfg, opts.backend)
	if err != nil {
		return err
	}
	if len(services) == 1 {
		// swaps stay on the primary service
		engCfg.AlternateService = ""
	}

	cfg := pipeline.Config{
		InputPath:      args[0],
		OutputPath:     args[1],
		PageURL:        opts.pageURL,
		Engine:         engCfg,
		Dictionary:     dict,
		Rules:          rules,
		Backend:        router,
		ViewportHeight: opts.viewportHeight,
		ScrollStep:     opts.scrollStep,
		MaxScrolls:     opts.maxScrolls,
		RevealOriginal: opts.revealOriginal,
		Overwrite:      opts.yes,
		OnProgress: func(p pipeline.Progress) {
			logger.Debug("Viewport", "scroll", p.Scroll, "y", p.ScrollY, "height", p.ContentHeight, "units", p.Units, "pending", p.Pending)
		},
		OnConfirmOverwrite: func(path string) bool {
			confirmed, err := prompt.DefaultConfirmer().ConfirmOverwrite(path, opts.yes)
			if err != nil {
				logger.Error("Overwrite confirmation failed", "error", err)
				return false
			}
			return confirmed
		},
	}

	result, err := pipeline.RunPage(ctx, cfg)

	// Always print stats (even on partial success)
	printUsageStats(cmd.OutOrStdout(), services, time.Since(startTime))

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled", "error", err)
			return nil
		}
		return err
	}
	return translationStatusError(result)
}

func translationStatusError(result pipeline.PageResult) error {
	switch result.Status {
	case pipeline.StatusSuccess, pipeline.StatusSkipped:
		return nil
	case pipeline.StatusPartialSuccess, pipeline.StatusFailure:
		return fmt.Errorf("translation finished with status: %s (%d of %d dispatches failed)", result.Status, result.Failures, result.Dispatches)
	default:
		return fmt.Errorf("translation finished with unknown status: %q", result.Status)
	}
}

var supportedHTMLExtensions = map[string]struct{}{
	".html":  {},
	".htm":   {},
	".xhtml": {},
}

const supportedHTMLExtensionsLabel = ".html, .htm, .xhtml"

func validateHTMLPathExtensions(inputPath, outputPath string) error {
	if err := validateHTMLExtension("input", inputPath); err != nil {
		return err
	}
	if err := validateHTMLExtension("output", outputPath); err != nil {
		return err
	}
	return nil
}

func validateHTMLExtension(kind, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedHTMLExtensions[ext]; ok {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported %s extension %q (supported: %s)", kind, ext, supportedHTMLExtensionsLabel)
}
