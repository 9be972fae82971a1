package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query every catalog and print the merged candidates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(results)
			}
			for _, result := range results {
				fmt.Fprintf(out, "%-6s %-7s %-4s %s\n", result.Type, result.Source, result.Year, result.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newEnrichCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Enrich every item left unenriched, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.db.GetUnenrichedItems()
			if err != nil {
				return fmt.Errorf("failed to list unenriched items: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, item := range items {
				if !a.pipeline.Run(ctx, item) {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enriched %s (%s)\n", item.Title, item.ID)
			}
			return nil
		},
	}
}
