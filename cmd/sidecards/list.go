package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
	"github.com/Kazi-Aidah/sidecards/pkg/filter"
)

var (
	listJSON     bool
	listArchived bool
	listCriteria filter.Criteria
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cards in display order",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		vault, ctx := openVault(listArchived)
		defer closeVault(ctx, vault)

		vault.SetFilter(listCriteria)
		rows := vault.Rows()

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(rows); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}
		printRows(rows)
	},
}

func printRows(rows []sidecards.Row) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	for _, r := range rows {
		marks := ""
		if r.Pinned {
			marks += "*"
		}
		if r.Expired {
			marks += "!"
		}
		title, _, _ := strings.Cut(r.Content, "\n")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID), marks, title, r.CategoryLabel, r.Status, strings.Join(r.Tags, " "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(listCmd)
	f := listCmd.Flags()
	f.BoolVar(&listJSON, "json", false, "Output in JSON format")
	f.BoolVar(&listArchived, "archived", false, "List archived cards")
	f.StringVarP(&listCriteria.Query, "query", "q", "", "Only cards whose content contains the text")
	f.StringSliceVar(&listCriteria.Tags, "tag", nil, "Only cards carrying the tag (repeatable)")
	f.StringVar(&listCriteria.Category, "category", "", "Only cards of the category (id or label)")
	f.BoolVar(&listCriteria.PinnedOnly, "pinned", false, "Only pinned cards")
	f.BoolVar(&listCriteria.UntaggedOnly, "untagged", false, "Only cards without tags or category")
	f.StringVar(&listCriteria.Status, "status", "", "Only cards with the status")
}
