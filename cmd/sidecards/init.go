package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Kazi-Aidah/sidecards"
	"github.com/Kazi-Aidah/sidecards/internal/config"
)

var initNoGit bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sidecards vault",
	Long:  `Create the cards folder, the settings directory and a sidecards.yaml. Unless --no-git is given, the vault is also a git repository.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := append(cfg.Options(),
			sidecards.WithAutoInit(true),
			sidecards.WithLogger(slog.Default()),
		)
		if initNoGit {
			opts = append(opts, sidecards.WithVersioning(false))
		}
		vault, err := sidecards.New(cfg.Vault, opts...)
		if err != nil {
			fatal("Failed to initialize vault", err)
		}
		// Close writes the record, which marks the vault as initialized.
		closeVault(context.Background(), vault)

		written := cfg
		if initNoGit {
			off := false
			written.Versioning = &off
		}
		path, err := config.Write(vault.Path, *written)
		if err != nil {
			fatal("Failed to write configuration", err)
		}

		fmt.Println("Initialized sidecards vault in", vault.Path)
		fmt.Println("Configuration:", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initNoGit, "no-git", false, "Do not version card notes with git")
}
