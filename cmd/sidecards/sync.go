package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards/pkg/adapters/lifecycle"
	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Adopt notes that have no card yet",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		vault, ctx := openVault(false)
		n, err := vault.Import(ctx)
		if err != nil {
			_ = vault.Close(ctx)
			fatal("Import failed", err)
		}
		closeVault(ctx, vault)
		fmt.Printf("Imported %d notes\n", n)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive or delete expired cards",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		vault, ctx := openVault(false)
		swept, err := vault.SweepExpired(ctx)
		if err != nil {
			_ = vault.Close(ctx)
			fatal("Sweep failed", err)
		}
		action := vault.Settings().ExpiryAction
		closeVault(ctx, vault)
		for _, c := range swept {
			fmt.Printf("%s %s\n", action, shortID(c.ID))
		}
		fmt.Printf("%d expired cards\n", len(swept))
	},
}

var watchOnly []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the vault in sync with note edits",
	Long: heredoc.Doc(`
		Watch the cards folder and apply external edits as they happen:
		changed notes refresh their card, new notes become cards and deleted
		notes demote theirs. Expired cards are swept on schedule. Stop with
		Ctrl+C; pending changes are saved on exit.
	`),
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		vault, _ := openVault(false)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := vault.Watch(ctx)
		if err != nil {
			_ = vault.Close(context.Background())
			fatal("Failed to watch vault", err)
		}
		var types []core.EventType
		for _, t := range watchOnly {
			types = append(types, core.EventType(strings.ToUpper(t)))
		}
		source := lifecycle.NewSource(events, lifecycle.Only(types...))
		if err := source.Start(ctx); err != nil {
			_ = vault.Close(context.Background())
			fatal("Failed to start event source", err)
		}

		slog.Info("watching", "vault", vault.Path)
		for ev := range source.Events() {
			fmt.Println(ev.String())
		}
		slog.Debug("watch stopped", "forwarded", source.Forwarded(), "filtered", source.Dropped())
		closeVault(context.Background(), vault)
	},
}

func init() {
	rootCmd.AddCommand(importCmd, sweepCmd, watchCmd)
	watchCmd.Flags().StringSliceVar(&watchOnly, "only", nil, "Only print these change types (create, modify, delete)")
}
