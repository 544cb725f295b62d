package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
	"github.com/Kazi-Aidah/sidecards/pkg/store"
)

var (
	addTags     []string
	addCategory string
	addStatus   string
	addColor    string
	addPinned   bool
	addNote     bool
	addNotePath string
	addExpires  string
)

var addCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Create a card",
	Long:  `Create a card at the top of the manual order. With --note a Markdown note named after the first line is created for it.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := sidecards.CreateOptions{
			CreateOptions: store.CreateOptions{
				Tags:     addTags,
				Category: addCategory,
				Color:    addColor,
				Pinned:   addPinned,
				NotePath: addNotePath,
			},
			WithNote: addNote,
		}
		if addStatus != "" {
			opts.Status = &core.Status{Name: addStatus}
		}
		if addExpires != "" {
			at, err := parseExpiry(addExpires, time.Now())
			if err != nil {
				fatal("Invalid --expires", err)
			}
			opts.ExpiresAt = at
		}

		vault, ctx := openVault(false)
		card, err := vault.Create(ctx, strings.Join(args, " "), opts)
		if err != nil {
			_ = vault.Close(ctx)
			fatal("Failed to create card", err)
		}
		closeVault(ctx, vault)

		if card.HasNote() {
			fmt.Printf("Card %s created with note %s\n", shortID(card.ID), card.NotePath)
			return
		}
		fmt.Printf("Card %s created\n", shortID(card.ID))
	},
}

// parseExpiry accepts a duration from now ("36h") or a date in any common layout.
func parseExpiry(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	return dateparse.ParseLocal(s)
}

var (
	editContent  string
	editCategory string
	editStatus   string
	editColor    string
	editExpires  string
)

var editCmd = &cobra.Command{
	Use:   "edit <card>",
	Short: "Change the fields of a card",
	Long:  `Change the fields of a card. Cards are referenced by id, id prefix or note path. Empty values clear a field; use --expires never to drop the expiry.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var m sidecards.Mutation
		flags := cmd.Flags()
		if flags.Changed("content") {
			m.Content = &editContent
		}
		if flags.Changed("category") {
			m.Category = &editCategory
		}
		if flags.Changed("status") {
			m.Status = &editStatus
		}
		if flags.Changed("color") {
			m.Color = &editColor
		}
		if flags.Changed("expires") {
			var at time.Time
			if editExpires != "never" && editExpires != "" {
				var err error
				if at, err = parseExpiry(editExpires, time.Now()); err != nil {
					fatal("Invalid --expires", err)
				}
			}
			m.ExpiresAt = &at
		}
		if m.Empty() {
			fatal("Nothing to change", fmt.Errorf("pass at least one field flag"))
		}

		withCard(args[0], func(ctx context.Context, vault *sidecards.Vault) error {
			card, err := vault.Update(ctx, args[0], m)
			if err == nil {
				fmt.Printf("Card %s updated\n", shortID(card.ID))
			}
			return err
		})
	},
}

var (
	tagAdd    []string
	tagRemove []string
)

var tagCmd = &cobra.Command{
	Use:   "tag <card>",
	Short: "Add or remove tags",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := sidecards.Mutation{AddTags: tagAdd, RemoveTags: tagRemove}
		withCard(args[0], func(ctx context.Context, vault *sidecards.Vault) error {
			card, err := vault.Update(ctx, args[0], m)
			if err == nil {
				fmt.Printf("Card %s tags: %s\n", shortID(card.ID), strings.Join(card.Tags, " "))
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd, editCmd, tagCmd)

	f := addCmd.Flags()
	f.StringSliceVarP(&addTags, "tag", "t", nil, "Tag the card (repeatable)")
	f.StringVarP(&addCategory, "category", "c", "", "Category id or label")
	f.StringVarP(&addStatus, "status", "s", "", "Status name")
	f.StringVar(&addColor, "color", "", "Card color")
	f.BoolVarP(&addPinned, "pin", "p", false, "Pin the card")
	f.BoolVarP(&addNote, "note", "n", false, "Create a note for the card")
	f.StringVar(&addNotePath, "note-path", "", "Create the note at this path")
	f.StringVar(&addExpires, "expires", "", "Expiry as a duration (36h) or a date")

	f = editCmd.Flags()
	f.StringVar(&editContent, "content", "", "New content")
	f.StringVar(&editCategory, "category", "", "Category id or label")
	f.StringVar(&editStatus, "status", "", "Status name")
	f.StringVar(&editColor, "color", "", "Card color")
	f.StringVar(&editExpires, "expires", "", "Expiry as a duration, a date or never")

	tagCmd.Flags().StringSliceVar(&tagAdd, "add", nil, "Tags to add")
	tagCmd.Flags().StringSliceVar(&tagRemove, "remove", nil, "Tags to remove")
}
