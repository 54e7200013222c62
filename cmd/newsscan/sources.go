package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/cognicore/newsscan/pkg/newsscan/config"
	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

func newSourcesCmd(g *globalOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured categories and sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			printSources(cmd, cfg, category)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list this category")
	return cmd
}

func printSources(cmd *cobra.Command, cfg *config.Config, category string) {
	out := cmd.OutOrStdout()

	for _, cat := range cfg.Categories() {
		if category != "" && cat != category {
			continue
		}
		fmt.Fprintf(out, "%s\n", cat)

		for _, q := range cfg.Sources.APIQueries {
			if q.Category == cat {
				fmt.Fprintf(out, "  %s  %s\n", runewidth.FillRight("GDELT", sourceWidth), q.Query)
			}
		}
		for _, f := range cfg.Sources.Feeds {
			if f.Category == cat {
				fmt.Fprintf(out, "  %s  %s\n", runewidth.FillRight(truncate(f.Name, sourceWidth), sourceWidth), f.URL)
			}
		}
	}

	if category != "" && !slices.Contains(intelCategories(cfg.Sources.Intel), category) {
		return
	}
	if len(cfg.Sources.Intel) == 0 {
		return
	}

	fmt.Fprintln(out, "\nintel sources")
	for _, src := range cfg.Sources.Intel {
		if category != "" && src.Category != category {
			continue
		}
		hints := src.Type
		if len(src.Topics) > 0 {
			hints += " " + strings.Join(src.Topics, ",")
		}
		if src.Region != "" {
			hints += " " + src.Region
		}
		fmt.Fprintf(out, "  %s  %s  (%s)\n", runewidth.FillRight(truncate(src.Name, sourceWidth), sourceWidth), src.URL, hints)
	}
}

func intelCategories(sources []news.SourceDescriptor) []string {
	var cats []string
	for _, s := range sources {
		cats = append(cats, s.Category)
	}
	return news.UniqueStrings(cats)
}
