package main

import (
	"fmt"

	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/spf13/cobra"
)

func newDictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Work with keyword dictionaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.AddCommand(newDictCheckCmd())
	return cmd
}

type dictCheckOptions struct {
	texts []string
}

func newDictCheckCmd() *cobra.Command {
	opts := dictCheckOptions{}
	cmd := &cobra.Command{
		Use:   "check <dictionary.yaml|dictionary.json>",
		Short: "Validate a dictionary and show how it protects sample text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				_ = cmd.Usage()
				return fmt.Errorf("exactly one dictionary file is required")
			}
			return runDictCheck(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringArrayVar(&opts.texts, "text", nil, "Sample text to protect (repeatable)")
	return cmd
}

func runDictCheck(cmd *cobra.Command, path string, opts *dictCheckOptions) error {
	dict, err := keyword.LoadDictionary(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entries: %d\n", dict.Len())
	if len(opts.texts) == 0 {
		for _, e := range dict.Entries() {
			if e.Value == "" {
				fmt.Fprintf(out, "  %s (kept as is)\n", e.Key)
			} else {
				fmt.Fprintf(out, "  %s -> %s\n", e.Key, e.Value)
			}
		}
		return nil
	}

	codec := keyword.NewCodec(dict)
	for _, text := range opts.texts {
		protected := codec.Protect(text)
		recovered, err := codec.Recover(protected)
		if err != nil {
			return fmt.Errorf("failed to recover %q: %w", protected, err)
		}
		fmt.Fprintf(out, "Text:      %s\nProtected: %s\nRecovered: %s\n", text, protected, recovered)
	}
	return nil
}
