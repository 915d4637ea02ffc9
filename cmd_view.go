package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/apicurate/internal/filter"
	"github.com/phobologic/apicurate/internal/ranking"
	"github.com/phobologic/apicurate/internal/toon"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		filterSrc string
		sortBy    string
		format    string
		top       int
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the declarations selected by a filter",
		Example: `  apicurate show --filter "is:public is:function"
  apicurate show --filter "!annotation:any usefulness:>0" --sort usefulness --top 20
  apicurate show --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("filter") {
				filterSrc = a.cfg.Filter
			}
			if !cmd.Flags().Changed("sort") {
				sortBy = a.cfg.Sort
			}
			f, err := filter.Compile(filterSrc)
			if err != nil {
				return err
			}
			order, err := ranking.ParseOrder(sortBy)
			if err != nil {
				return err
			}

			doc, err := a.openWithAPI()
			if err != nil {
				return err
			}
			view := doc.View(f, order)
			if top > 0 {
				view = ranking.Top(view, top, doc.Usages())
			}

			switch format {
			case "toon":
				_, err = fmt.Fprintln(a.stdout, toon.EncodeView(view, doc.Store(), doc.Usages()))
				return err
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(toon.Rows(view, doc.Store(), doc.Usages()))
			case "yaml":
				enc := yaml.NewEncoder(a.stdout)
				defer enc.Close()
				return enc.Encode(toon.Rows(view, doc.Store(), doc.Usages()))
			}
			return fmt.Errorf("unknown format %q (want toon, json or yaml)", format)
		},
	}
	cmd.Flags().StringVar(&filterSrc, "filter", "", "filter expression (default: the configured filter)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "order children by name, usages or usefulness")
	cmd.Flags().StringVar(&format, "format", "toon", "output format: toon, json or yaml")
	cmd.Flags().IntVar(&top, "top", 0, "keep only the N most used functions")
	return cmd
}

func newCheckFilterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-filter FILTER",
		Short: "Report the invalid tokens of a filter expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			invalid := filter.InvalidTokens(args[0])
			if len(invalid) == 0 {
				_, err := fmt.Fprintln(a.stdout, "ok")
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, toon.EncodeList("invalid", "token", invalid))
			return &filter.InvalidTokenError{Tokens: invalid}
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count declarations, their usage and the annotations per kind",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			doc, err := a.openWithAPI()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, toon.EncodeStats(doc.API(), doc.Store(), doc.Usages()))
			return err
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored annotations, tombstones included",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			doc, err := a.open()
			if err != nil {
				return err
			}
			entries := doc.Store().Entries()
			if target != "" {
				kept := entries[:0]
				for _, e := range entries {
					if e.Meta.Target == target {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			_, err = fmt.Fprintln(a.stdout, toon.EncodeAnnotations(entries))
			return err
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "only list annotations of this declaration id")
	return cmd
}
