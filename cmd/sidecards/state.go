package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// toggleCmd builds a command that flips one flag of a card.
func toggleCmd(use, short, done string, apply func(ctx context.Context, vault *sidecards.Vault, ref string) (core.Card, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <card>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, ref := range args {
				withCard(ref, func(ctx context.Context, vault *sidecards.Vault) error {
					card, err := apply(ctx, vault, ref)
					if err == nil {
						fmt.Printf("Card %s %s\n", shortID(card.ID), done)
					}
					return err
				})
			}
		},
	}
}

var rmCmd = &cobra.Command{
	Use:     "rm <card>...",
	Aliases: []string{"delete"},
	Short:   "Delete cards and their notes",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, ref := range args {
			withCard(ref, func(ctx context.Context, vault *sidecards.Vault) error {
				if err := vault.Delete(ctx, ref); err != nil {
					return err
				}
				fmt.Printf("Card %s deleted\n", ref)
				return nil
			})
		}
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <card> <position>",
	Short: "Move a card within the manual order",
	Long:  `Move a card to a zero-based position among the visible cards. The vault switches to manual sorting.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("Invalid position", err)
		}
		vault, ctx := openVault(false)
		if err := vault.MoveCard(ctx, args[0], index); err != nil {
			_ = vault.Close(ctx)
			fatal("Failed to move card", err)
		}
		closeVault(ctx, vault)
		printRows(vault.Rows())
	},
}

var sortDescending bool

var sortCmd = &cobra.Command{
	Use:       "sort [manual|created|modified|alpha|status]",
	Short:     "Show or change the sort mode",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"manual", "created", "modified", "alpha", "status"},
	Run: func(cmd *cobra.Command, args []string) {
		vault, ctx := openVault(false)
		defer closeVault(ctx, vault)

		if len(args) == 1 {
			mode, err := core.ParseSortMode(args[0])
			if err != nil {
				_ = vault.Close(ctx)
				fatal("Invalid sort mode", err)
			}
			if err := vault.SetSortMode(ctx, mode, !sortDescending); err != nil {
				_ = vault.Close(ctx)
				fatal("Failed to change sort mode", err)
			}
		}

		rec := vault.Settings()
		direction := "ascending"
		if !rec.SortAscending {
			direction = "descending"
		}
		fmt.Printf("Sort: %s (%s)\n", rec.SortMode, direction)
	},
}

func init() {
	rootCmd.AddCommand(
		toggleCmd("pin", "Pin cards to the top", "pinned", func(ctx context.Context, v *sidecards.Vault, ref string) (core.Card, error) {
			return v.SetPinned(ctx, ref, true)
		}),
		toggleCmd("unpin", "Unpin cards", "unpinned", func(ctx context.Context, v *sidecards.Vault, ref string) (core.Card, error) {
			return v.SetPinned(ctx, ref, false)
		}),
		toggleCmd("archive", "Archive cards", "archived", func(ctx context.Context, v *sidecards.Vault, ref string) (core.Card, error) {
			return v.SetArchived(ctx, ref, true)
		}),
		toggleCmd("unarchive", "Restore archived cards", "restored", func(ctx context.Context, v *sidecards.Vault, ref string) (core.Card, error) {
			return v.SetArchived(ctx, ref, false)
		}),
		rmCmd, moveCmd, sortCmd,
	)
	sortCmd.Flags().BoolVar(&sortDescending, "desc", false, "Sort in descending order")
}
