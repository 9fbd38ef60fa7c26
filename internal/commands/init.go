package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/config"
	"github.com/cleared-dev/mt940import/internal/importer"
	"github.com/cleared-dev/mt940import/internal/store"
)

func newInitCommand() *cobra.Command {
	var accountsFile string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new statement import project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), absDir, dbPath, accountsFile)
		},
	}

	cmd.Flags().StringVar(&accountsFile, "accounts", "", "CSV of bank accounts to load into the new database")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path relative to the project (default statements.db)")

	return cmd
}

func runInit(ctx context.Context, dir, dbPath, accountsFile string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Create directory structure.
	dirs := []string{
		cfg.Import.Dir,
		filepath.Join(cfg.Import.Dir, importer.ProcessedDir),
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write mt940import.yaml.
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write .gitignore.
	gitignore := cfg.Database.Path + "\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Create the database schema.
	db, err := store.Open(ctx, resolvePath(dir, cfg.Database.Path), log.New(os.Stderr))
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if accountsFile != "" {
		created, err := accounts.LoadFile(ctx, db, accountsFile)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d bank account(s)\n", len(created))
	}

	fmt.Printf("Initialized statement import project at %s\n", dir)
	return nil
}
