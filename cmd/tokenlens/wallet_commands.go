package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

func newHoldingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings <wallet or name.sol>",
		Short: "List SPL token holdings of a wallet with resolved metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.ensureServices(cmd.Context())
			if err != nil {
				return err
			}
			report, err := services.Portfolio.Holdings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			if report.Owner != report.Query {
				fmt.Fprintf(out, "%s -> %s\n", report.Query, report.Owner)
			}
			if len(report.Holdings) == 0 {
				fmt.Fprintln(out, "No SPL token balances.")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(report.Holdings))
			for _, h := range report.Holdings {
				symbol, source := h.Mint, ""
				if h.Metadata != nil {
					symbol, source = h.Metadata.Symbol, h.Metadata.Source
				}
				rows = append(rows, []string{symbol, strconv.FormatFloat(h.Amount, 'f', -1, 64), colorSource(source, colorize), h.Mint})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Symbol", "Amount", "Source", "Mint"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var preloadFlag bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show resolver cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.ensureServices(cmd.Context())
			if err != nil {
				return err
			}
			if preloadFlag {
				services.Resolver.PreloadKnownLists(cmd.Context())
			}
			return printStats(cmd, ctx, services.Resolver.Stats())
		},
	}
	cmd.Flags().BoolVar(&preloadFlag, "preload", false, "Load the token lists before reporting")
	return cmd
}

func newListsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Download the registry and Jupiter token lists and report their size",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.ensureServices(cmd.Context())
			if err != nil {
				return err
			}
			services.Resolver.PreloadKnownLists(cmd.Context())
			stats := services.Resolver.Stats()
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"registry": map[string]any{"loaded": stats.RegistryLoaded, "count": stats.RegistryCount, "url": services.Config.Sources.RegistryURL},
					"jupiter":  map[string]any{"loaded": stats.JupiterLoaded, "count": stats.JupiterCount, "url": services.Config.Sources.JupiterURL},
				})
			}
			rows := [][]string{
				{"registry", strconv.FormatBool(stats.RegistryLoaded), strconv.Itoa(stats.RegistryCount), services.Config.Sources.RegistryURL},
				{"jupiter", strconv.FormatBool(stats.JupiterLoaded), strconv.Itoa(stats.JupiterCount), services.Config.Sources.JupiterURL},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"List", "Loaded", "Entries", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func printStats(cmd *cobra.Command, ctx *commandContext, stats core.Stats) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, stats)
	}
	rows := [][]string{
		{"Cached tokens", strconv.Itoa(stats.CacheSize)},
		{"Registry loaded", strconv.FormatBool(stats.RegistryLoaded)},
		{"Registry entries", strconv.Itoa(stats.RegistryCount)},
		{"Jupiter loaded", strconv.FormatBool(stats.JupiterLoaded)},
		{"Jupiter entries", strconv.Itoa(stats.JupiterCount)},
	}
	sources := make([]string, 0, len(stats.Hits))
	for source := range stats.Hits {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		rows = append(rows, []string{"Hits: " + source, strconv.Itoa(stats.Hits[source])})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}
