package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <address>",
		Short: "Resolve metadata for one token address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.ensureServices(cmd.Context())
			if err != nil {
				return err
			}
			md, err := services.Resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, md)
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			rows := [][]string{
				{"Address", md.Address},
				{"Symbol", md.Symbol},
				{"Name", md.Name},
				{"Decimals", strconv.Itoa(md.Decimals)},
				{"Logo", md.LogoURI},
				{"Metadata URI", md.URI},
				{"Source", colorSource(md.Source, colorize)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "batch [address...]",
		Short: "Resolve many token addresses concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses := append([]string(nil), args...)
			if fileFlag != "" {
				fromFile, err := readAddresses(cmd.InOrStdin(), fileFlag)
				if err != nil {
					return err
				}
				addresses = append(addresses, fromFile...)
			}
			if len(addresses) == 0 {
				return fmt.Errorf("no addresses given")
			}

			services, err := ctx.ensureServices(cmd.Context())
			if err != nil {
				return err
			}
			found := services.Resolver.ResolveBatch(cmd.Context(), addresses)

			ordered := make([]*core.TokenMetadata, 0, len(found))
			seen := make(map[string]bool, len(addresses))
			for _, addr := range addresses {
				md, ok := found[addr]
				if !ok || seen[addr] {
					continue
				}
				seen[addr] = true
				ordered = append(ordered, md)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, ordered)
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			rows := make([][]string, 0, len(ordered))
			for _, md := range ordered {
				rows = append(rows, []string{md.Symbol, md.Name, strconv.Itoa(md.Decimals), colorSource(md.Source, colorize), md.Address})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Symbol", "Name", "Decimals", "Source", "Address"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read addresses from a file, one per line (- for stdin)")
	return cmd
}

// readAddresses reads one address per line, skipping blanks and # comments.
func readAddresses(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open address file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}
	return out, nil
}
