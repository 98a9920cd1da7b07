package main

import (
	"fmt"
	"os"

	"github.com/oukeidos/dualpage/internal/backend"
	"github.com/oukeidos/dualpage/internal/files"
	"github.com/oukeidos/dualpage/internal/logger"
	"github.com/oukeidos/dualpage/internal/pipeline"
	"github.com/spf13/cobra"
)

type restoreCheckOptions struct {
	engine         engineFlags
	pageURL        string
	viewportHeight float64
	debug          bool
}

func newRestoreCheckCmd() *cobra.Command {
	opts := restoreCheckOptions{}
	cmd := &cobra.Command{
		Use:   "restore-check <input.html>",
		Short: "Translate a page offline, restore it and verify nothing changed",
		Long: "Runs the full translation engine against a pseudo backend, restores the page\n" +
			"and compares the result with the page as loaded. No API key is needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				_ = cmd.Usage()
				return fmt.Errorf("exactly one input file is required")
			}
			return runRestoreCheck(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addEngineFlags(cmd, &opts.engine)
	cmd.Flags().StringVar(&opts.pageURL, "url", "", "Address the page is treated as loaded from (selects site rules)")
	cmd.Flags().Float64Var(&opts.viewportHeight, "viewport-height", 800, "Simulated viewport height in pixels")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runRestoreCheck(cmd *cobra.Command, path string, opts *restoreCheckOptions) error {
	if err := validateHTMLExtension("input", path); err != nil {
		return err
	}
	if err := initLogging(opts.debug, ""); err != nil {
		return err
	}
	if err := files.RejectSymlinkPath(path); err != nil {
		return err
	}
	page, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	engCfg, err := loadEngineConfig(cmd, &opts.engine)
	if err != nil {
		return err
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

	res, err := pipeline.CheckRestore(ctx, page, pipeline.CheckOptions{
		PageURL:        opts.pageURL,
		Engine:         engCfg,
		Rules:          rules,
		Dictionary:     dict,
		Backend:        &backend.Mock{},
		ViewportHeight: opts.viewportHeight,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Units: %d, Attributes: %d, Dispatches: %d, Never in view: %d\n", res.Units, res.Attributes, res.Dispatches, res.Pending)
	if !res.Changed {
		fmt.Fprintln(out, "Warning: translation left the page unchanged")
	}
	if !res.Equal {
		fmt.Fprintf(out, "Restored page differs at byte %d\n  loaded:   %q\n  restored: %q\n", res.Offset, res.Original, res.Restored)
		return fmt.Errorf("restore check failed")
	}
	fmt.Fprintln(out, "Restore check passed")
	return nil
}
