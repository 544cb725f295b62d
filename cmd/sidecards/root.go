package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
	"github.com/Kazi-Aidah/sidecards/internal/config"
)

var (
	verbose bool
	cfgFile string

	v   = config.New()
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sidecards",
	Short: "Manage a collection of cards backed by Markdown notes",
	Long: heredoc.Doc(`
		sidecards keeps a collection of short cards, each optionally backed by a
		Markdown note, in one universal manual order.

		Card fields live in the note frontmatter; sort preferences, the manual
		order, categories and statuses live in the settings record under
		.sidecards/. Configuration is read from sidecards.yaml, SIDECARDS_*
		environment variables and flags, in increasing precedence.
	`),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if root, err := sidecards.FindVaultRoot(wd); err == nil {
			wd = root
		}
		cfg, err = config.Load(v, cfgFile, wd)
		if err != nil {
			return err
		}
		if cfg.Vault == "." {
			cfg.Vault = wd
		}
		if cfg.File != "" {
			slog.Debug("configuration loaded", "file", cfg.File)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&cfgFile, "config", "", "config file (default is sidecards.yaml in the vault)")
	flags.String("vault", ".", "Vault directory")
	flags.String("folder", "", "Folder holding card notes, relative to the vault")
	flags.String("settings", "json", "Settings backend: json, sqlite, redis or memory")
	flags.String("redis-addr", "localhost:6379", "Redis address for the redis backend")
	flags.Bool("versioning", false, "Commit card notes to git (default follows the vault)")
	flags.Bool("read-only", false, "Never write to the vault")

	if err := config.BindFlags(v, flags); err != nil {
		fatal("Failed to bind flags", err)
	}
}

// openVault opens the configured vault and loads one view.
func openVault(archived bool) (*sidecards.Vault, context.Context) {
	ctx := context.Background()
	opts := append(cfg.Options(),
		sidecards.WithMustExist(true),
		sidecards.WithLogger(slog.Default()),
	)
	vault, err := sidecards.New(cfg.Vault, opts...)
	if err != nil {
		fatal("Failed to open vault", err)
	}

	res, err := vault.Load(ctx, archived)
	if err != nil {
		fatal("Failed to load cards", err)
	}
	if res.Partial {
		slog.Warn("some cards could not be read", "view", viewName(archived))
	}
	if res.Adopted > 0 || res.Demoted > 0 {
		slog.Info("cards reconciled with notes", "adopted", res.Adopted, "demoted", res.Demoted)
	}
	return vault, ctx
}

// closeVault flushes pending changes. Errors are fatal so a failed save is
// never silent.
func closeVault(ctx context.Context, vault *sidecards.Vault) {
	if err := vault.Close(ctx); err != nil {
		fatal("Failed to save changes", err)
	}
}

func viewName(archived bool) string {
	if archived {
		return "archived"
	}
	return "active"
}

// withCard runs fn against the card ref, searching the active view first
// and then the archive.
func withCard(ref string, fn func(ctx context.Context, vault *sidecards.Vault) error) {
	vault, ctx := openVault(false)
	if _, err := vault.Find(ref); err != nil {
		if _, err := vault.Load(ctx, true); err != nil {
			fatal("Failed to load archived cards", err)
		}
	}
	if err := fn(ctx, vault); err != nil {
		_ = vault.Close(ctx)
		fatal(fmt.Sprintf("Failed to update card %q", ref), err)
	}
	closeVault(ctx, vault)
}
