package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/raaihank/loggov/internal/governance"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <document>",
		Short: "Validate a governance document and print its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read governance document: %w", err)
			}
			cfg, err := governance.ParseDocument(data, args[0])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printSummary(w io.Writer, cfg *governance.Config) {
	required := "-"
	if fields := cfg.RequiredFields(); len(fields) > 0 {
		required = strings.Join(fields, ", ")
	}

	fmt.Fprintf(w, "Document:        %s\n", cfg.Source())
	fmt.Fprintf(w, "Version:         %s\n", cfg.Version())
	fmt.Fprintf(w, "On PII:          %s\n", cfg.OnContainsPII())
	fmt.Fprintf(w, "Required fields: %s\n", required)
	fmt.Fprintf(w, "Rules:           %d\n\n", len(cfg.Rules()))

	if len(cfg.Rules()) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Name", "Pattern", "Replacement", "Options"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for i, r := range cfg.Rules() {
		rule := r.Rule()
		opts := make([]string, len(rule.Options))
		for j, o := range rule.Options {
			opts[j] = string(o)
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			rule.Name,
			rule.Pattern,
			rule.Replacement,
			strings.Join(opts, ","),
		})
	}
	table.Render()
}
