package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
)

var (
	showHTML bool
	showJSON bool
)

var showCmd = &cobra.Command{
	Use:   "show <card>",
	Short: "Print a card",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withCard(args[0], func(ctx context.Context, vault *sidecards.Vault) error {
			card, err := vault.Find(args[0])
			if err != nil {
				return err
			}
			switch {
			case showJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(card)
			case showHTML:
				html, err := vault.Render(ctx, card.ID)
				if err != nil {
					return err
				}
				fmt.Print(html)
			default:
				fmt.Println(card.Content)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Render the content as HTML")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}
