package main

import (
	"fmt"

	"github.com/oukeidos/dualpage/internal/language"
	"github.com/oukeidos/dualpage/internal/metadata"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var models bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported target languages or models",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if models {
				fmt.Fprintln(out, "Gemini Models:")
				for _, m := range metadata.GeminiModels {
					fmt.Fprintf(out, "  %-28s %s\n", m.ID, m.Label)
				}
				fmt.Fprintln(out, "OpenAI Models:")
				for _, m := range metadata.OpenAIModels {
					fmt.Fprintf(out, "  %-28s %s\n", m.ID, m.Label)
				}
				return
			}
			fmt.Fprintln(out, "Supported Languages:")
			for _, l := range language.GetSupportedLanguages() {
				fmt.Fprintf(out, "  %-35s [%s]\n", l.Name, l.ID)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&models, "models", false, "List known models and their labels instead")
	return cmd
}
