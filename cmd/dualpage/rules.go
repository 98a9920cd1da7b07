package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oukeidos/dualpage/internal/siterules"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rulesOptions struct {
	engine  engineFlags
	asYAML  bool
	matches string
}

func newRulesCmd() *cobra.Command {
	opts := rulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the site rules (user rules first, then built-in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addEngineFlags(cmd, &opts.engine)
	cmd.Flags().BoolVar(&opts.asYAML, "yaml", false, "Print the rules as YAML")
	cmd.Flags().StringVar(&opts.matches, "match", "", "Only show the rule selected for this URL")
	return cmd
}

func runRules(cmd *cobra.Command, opts *rulesOptions) error {
	engCfg, err := loadEngineConfig(cmd, &opts.engine)
	if err != nil {
		return err
	}
	set, err := engCfg.Rules()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	rules := set.Rules()
	if opts.matches != "" {
		u, err := parsePageURL(opts.matches)
		if err != nil {
			return err
		}
		rule, ok := set.Match(u)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No rule matches %s\n", opts.matches)
			return nil
		}
		rules = []siterules.Rule{rule}
	}

	out := cmd.OutOrStdout()
	if opts.asYAML {
		data, err := yaml.Marshal(rules)
		if err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	fmt.Fprintln(out, "Site rules:")
	for _, r := range rules {
		target := strings.Join(r.Hostname, ", ")
		if target == "" {
			target = strings.Join(r.Regex, ", ")
		}
		fmt.Fprintf(out, "  %-20s %s\n", r.Name, target)
	}
	return nil
}

func parsePageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", raw)
	}
	return u, nil
}
